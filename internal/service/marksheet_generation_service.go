package service

import (
	"context"
	"database/sql"
	"sort"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-assessment-api/internal/dto"
	"github.com/noah-isme/sma-assessment-api/internal/models"
	appErrors "github.com/noah-isme/sma-assessment-api/pkg/errors"
)

const defaultGenerationBatchSize = 50

type marksheetWriter interface {
	ExistingStudents(ctx context.Context, gsaID string, studentIDs []string) (map[string]bool, error)
	CreateIfAbsent(ctx context.Context, score *models.AssessmentScore) (bool, error)
}

type enrollmentReader interface {
	FindActiveByStudent(ctx context.Context, studentID string) (*models.Enrollment, error)
	ListActiveByStudents(ctx context.Context, studentIDs []string) ([]models.Enrollment, error)
	ListActiveStudentIDsByGrade(ctx context.Context, gradeID string) ([]string, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error)
}

// MarksheetGenerationService creates zeroed marksheets from a GSA's setup. Generation is idempotent:
// students that already have a marksheet for the GSA are left untouched.
type MarksheetGenerationService struct {
	scores      marksheetWriter
	gsas        gsaLookup
	setups      setupResolver
	enrollments enrollmentReader
	students    studentReader
	grades      gradeReader
	batchSize   int
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewMarksheetGenerationService constructs the service. batchSize bounds the students handled per round trip.
func NewMarksheetGenerationService(scores marksheetWriter, gsas gsaLookup, setups setupResolver, enrollments enrollmentReader, students studentReader, grades gradeReader, batchSize int, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *MarksheetGenerationService {
	if batchSize <= 0 {
		batchSize = defaultGenerationBatchSize
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarksheetGenerationService{
		scores:      scores,
		gsas:        gsas,
		setups:      setups,
		enrollments: enrollments,
		students:    students,
		grades:      grades,
		batchSize:   batchSize,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
	}
}

// GenerateSingle creates the marksheet of one student for a subject, resolving the GSA through the student's active enrollment.
func (s *MarksheetGenerationService) GenerateSingle(ctx context.Context, req dto.GenerateSingleRequest) (*dto.GenerationResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation payload")
	}
	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		return nil, referenceError(err, "student not found", "failed to load student")
	}
	enrollment, err := s.enrollments.FindActiveByStudent(ctx, req.StudentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotEnrolled, "student has no active grade enrollment")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	gsa, setup, err := s.resolve(ctx, enrollment.GradeID, req.SubjectID)
	if err != nil {
		return nil, err
	}

	result := &dto.GenerationResult{}
	if err := s.generate(ctx, gsa, setup, []string{req.StudentID}, result); err != nil {
		return nil, err
	}
	if len(result.Errors) > 0 {
		item := result.Errors[0]
		return nil, appErrors.New(item.Code, appErrors.ErrInternal.Status, item.Message)
	}
	s.metrics.AddMarksheetsGenerated(GenerationModeSingle, result.Created)
	return result, nil
}

// GenerateMultiple creates marksheets for a list of students, grouped by their enrolled grade.
// Students whose grade has no assessment for the subject are skipped.
func (s *MarksheetGenerationService) GenerateMultiple(ctx context.Context, req dto.GenerateMultipleRequest) (*dto.GenerationResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation payload")
	}
	studentIDs := uniqueStrings(req.StudentIDs)
	result := &dto.GenerationResult{}

	known, err := s.students.ExistingIDs(ctx, studentIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate students")
	}
	enrollments, err := s.enrollments.ListActiveByStudents(ctx, studentIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	gradeOf := make(map[string]string, len(enrollments))
	for _, e := range enrollments {
		gradeOf[e.StudentID] = e.GradeID
	}

	byGrade := make(map[string][]string)
	for _, id := range studentIDs {
		switch {
		case !known[id]:
			result.Errors = append(result.Errors, itemError(id, appErrors.ErrReference, "student not found"))
		case gradeOf[id] == "":
			result.Errors = append(result.Errors, itemError(id, appErrors.ErrNotEnrolled, "student has no active grade enrollment"))
		default:
			byGrade[gradeOf[id]] = append(byGrade[gradeOf[id]], id)
		}
	}

	grades := make([]string, 0, len(byGrade))
	for gradeID := range byGrade {
		grades = append(grades, gradeID)
	}
	sort.Strings(grades)

	for _, gradeID := range grades {
		members := byGrade[gradeID]
		gsa, setup, err := s.resolve(ctx, gradeID, req.SubjectID)
		if appErrors.Is(err, appErrors.ErrNoSetup) {
			result.Skipped += len(members)
			s.logger.Debug("no assessment for grade, students skipped", zap.String("grade_id", gradeID), zap.Int("students", len(members)))
			continue
		}
		if err != nil {
			return nil, err
		}
		if err := s.generate(ctx, gsa, setup, members, result); err != nil {
			return nil, err
		}
	}

	s.metrics.AddMarksheetsGenerated(GenerationModeMultiple, result.Created)
	s.logSummary(GenerationModeMultiple, req.SubjectID, result)
	return result, nil
}

// GenerateBulk creates marksheets for every actively enrolled student of a grade.
func (s *MarksheetGenerationService) GenerateBulk(ctx context.Context, req dto.GenerateBulkRequest) (*dto.GenerationResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation payload")
	}
	if _, err := s.grades.FindByID(ctx, req.GradeID); err != nil {
		return nil, referenceError(err, "grade not found", "failed to load grade")
	}
	gsa, setup, err := s.resolve(ctx, req.GradeID, req.SubjectID)
	if err != nil {
		return nil, err
	}
	studentIDs, err := s.enrollments.ListActiveStudentIDsByGrade(ctx, req.GradeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade enrollments")
	}

	result := &dto.GenerationResult{}
	if err := s.generate(ctx, gsa, setup, studentIDs, result); err != nil {
		return nil, err
	}
	s.metrics.AddMarksheetsGenerated(GenerationModeBulk, result.Created)
	s.logSummary(GenerationModeBulk, req.SubjectID, result)
	return result, nil
}

func (s *MarksheetGenerationService) resolve(ctx context.Context, gradeID, subjectID string) (*models.GradeSubjectAssessment, *models.AssessmentSetup, error) {
	gsa, err := s.gsas.FindByGradeAndSubject(ctx, gradeID, subjectID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, appErrors.Clone(appErrors.ErrNoSetup, "no assessment configured for this grade and subject")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade subject assessment")
	}
	setup, err := s.setups.Get(ctx, gsa.SetupID)
	if err != nil {
		return nil, nil, err
	}
	return gsa, setup, nil
}

// generate writes missing marksheets in fixed-size batches. Per-student write failures are recorded on result.
func (s *MarksheetGenerationService) generate(ctx context.Context, gsa *models.GradeSubjectAssessment, setup *models.AssessmentSetup, studentIDs []string, result *dto.GenerationResult) error {
	for start := 0; start < len(studentIDs); start += s.batchSize {
		end := start + s.batchSize
		if end > len(studentIDs) {
			end = len(studentIDs)
		}
		batch := studentIDs[start:end]

		existing, err := s.scores.ExistingStudents(ctx, gsa.ID, batch)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing marksheets")
		}
		for _, studentID := range batch {
			if existing[studentID] {
				result.Existing++
				continue
			}
			created, err := s.scores.CreateIfAbsent(ctx, NewMarksheet(studentID, gsa, setup))
			if err != nil {
				s.logger.Warn("marksheet generation failed", zap.String("gsa_id", gsa.ID), zap.String("student_id", studentID), zap.Error(err))
				result.Errors = append(result.Errors, itemError(studentID, appErrors.ErrInternal, "failed to create marksheet"))
				continue
			}
			if created {
				result.Created++
			} else {
				result.Existing++
			}
		}
	}
	return nil
}

func (s *MarksheetGenerationService) logSummary(mode, subjectID string, result *dto.GenerationResult) {
	s.logger.Info("marksheets generated",
		zap.String("mode", mode),
		zap.String("subject_id", subjectID),
		zap.Int("created", result.Created),
		zap.Int("existing", result.Existing),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", len(result.Errors)),
	)
}

func itemError(studentID string, base *appErrors.Error, message string) dto.ItemError {
	return dto.ItemError{StudentID: studentID, Code: base.Code, Message: message}
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
