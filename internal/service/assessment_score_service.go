package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-assessment-api/internal/dto"
	"github.com/noah-isme/sma-assessment-api/internal/models"
	appErrors "github.com/noah-isme/sma-assessment-api/pkg/errors"
	"github.com/noah-isme/sma-assessment-api/pkg/lock"
)

type assessmentScoreRepository interface {
	List(ctx context.Context, filter models.AssessmentScoreFilter) ([]models.AssessmentScore, int, error)
	ListByGSA(ctx context.Context, gsaID string) ([]models.AssessmentScore, error)
	FindByID(ctx context.Context, id string) (*models.AssessmentScore, error)
	FindByStudentAndGSA(ctx context.Context, studentID, gsaID string) (*models.AssessmentScore, error)
	CreateIfAbsent(ctx context.Context, score *models.AssessmentScore) (bool, error)
	Update(ctx context.Context, score *models.AssessmentScore) error
}

// AssessmentScoreService records raw scores and keeps each marksheet's weighted result in step
// with the stages conducted on its GSA.
type AssessmentScoreService struct {
	scores    assessmentScoreRepository
	gsas      gsaLookup
	setups    setupResolver
	gates     gateProjector
	students  studentReader
	guard     gsaGuard
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAssessmentScoreService constructs the service. locker may be nil for single-writer deployments.
func NewAssessmentScoreService(scores assessmentScoreRepository, gsas gsaLookup, setups setupResolver, gates gateProjector, students studentReader, locker lock.Locker, lockTTL time.Duration, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *AssessmentScoreService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssessmentScoreService{
		scores:    scores,
		gsas:      gsas,
		setups:    setups,
		gates:     gates,
		students:  students,
		guard:     newGSAGuard(locker, lockTTL, metrics),
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// List returns marksheets with pagination metadata.
func (s *AssessmentScoreService) List(ctx context.Context, filter models.AssessmentScoreFilter) ([]models.AssessmentScore, *models.Pagination, error) {
	items, total, err := s.scores.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assessment scores")
	}
	return items, buildPagination(filter.Page, filter.PageSize, total), nil
}

// ListForStudent returns a student's marksheets, optionally narrowed to one subject.
func (s *AssessmentScoreService) ListForStudent(ctx context.Context, studentID string, filter models.AssessmentScoreFilter) ([]models.AssessmentScore, *models.Pagination, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	filter.StudentID = studentID
	return s.List(ctx, filter)
}

// Get returns a marksheet by id.
func (s *AssessmentScoreService) Get(ctx context.Context, id string) (*models.AssessmentScore, error) {
	score, err := s.scores.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assessment score not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assessment score")
	}
	return score, nil
}

// UpdateAssessmentScore writes raw scores into one marksheet and recomputes its result.
// Every score must target an entry of the marksheet whose stage has been conducted; nothing is written otherwise.
func (s *AssessmentScoreService) UpdateAssessmentScore(ctx context.Context, id string, req dto.UpdateScoresRequest) (*models.AssessmentScore, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid score payload")
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var updated *models.AssessmentScore
	err = s.guard.run(ctx, current.GSAID, func() error {
		marksheet, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		gsa, setup, err := s.loadGSAContext(ctx, marksheet.GSAID, req.AcademicTermID)
		if err != nil {
			return err
		}
		for _, in := range req.Scores {
			entry, ok := findEntry(marksheet.Scores, in.TypeID)
			if !ok {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("assessment type %s is not part of this marksheet", in.TypeID))
			}
			if err := ValidateConducted(gsa, in.TypeID, entry.TypeName); err != nil {
				return err
			}
		}
		for _, in := range req.Scores {
			SetEntryScore(marksheet, in.TypeID, *in.Score)
		}
		RecalcResult(marksheet, gsa, setup)
		if err := s.scores.Update(ctx, marksheet); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assessment score")
		}
		updated = marksheet
		return nil
	})
	if err != nil {
		s.metrics.AddScoreUpdates(ScorePathSingle, ScoreOutcomeFailed, 1)
		return nil, err
	}
	s.metrics.AddScoreUpdates(ScorePathSingle, ScoreOutcomeOK, 1)
	return updated, nil
}

// BatchUpdateScoresForType writes one assessment type's score for many students of a GSA.
// Students without a marksheet get one generated first. The stage must already be conducted,
// otherwise the whole batch is refused.
func (s *AssessmentScoreService) BatchUpdateScoresForType(ctx context.Context, req dto.BatchUpdateScoresRequest) (*dto.BatchUpdateResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid batch score payload")
	}
	gsa, err := s.gsas.FindByID(ctx, req.GSAID)
	if err != nil {
		return nil, referenceError(err, "grade subject assessment not found", "failed to load grade subject assessment")
	}
	setup, err := s.setups.Get(ctx, gsa.SetupID)
	if err != nil {
		return nil, err
	}
	position := setup.Position(req.AssessmentTypeID)
	if position < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "assessment type is not part of this assessment setup")
	}
	if err := s.gates.Project(ctx, gsa, req.AcademicTermID); err != nil {
		return nil, err
	}
	if err := ValidateConducted(gsa, req.AssessmentTypeID, setup.Types[position].Name); err != nil {
		return nil, err
	}

	studentIDs := make([]string, 0, len(req.Scores))
	for _, in := range req.Scores {
		studentIDs = append(studentIDs, in.StudentID)
	}
	known, err := s.students.ExistingIDs(ctx, uniqueStrings(studentIDs))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate students")
	}

	result := &dto.BatchUpdateResult{AverageScore: submittedAverage(req.Scores)}
	err = s.guard.run(ctx, gsa.ID, func() error {
		seen := make(map[string]struct{}, len(req.Scores))
		for _, in := range req.Scores {
			if _, dup := seen[in.StudentID]; dup {
				result.Errors = append(result.Errors, itemError(in.StudentID, appErrors.ErrValidation, "student listed more than once"))
				continue
			}
			seen[in.StudentID] = struct{}{}
			if !known[in.StudentID] {
				result.Errors = append(result.Errors, itemError(in.StudentID, appErrors.ErrReference, "student not found"))
				continue
			}
			marksheet, err := s.marksheetFor(ctx, in.StudentID, gsa, setup)
			if err != nil {
				s.logger.Warn("batch score load failed", zap.String("gsa_id", gsa.ID), zap.String("student_id", in.StudentID), zap.Error(err))
				result.Errors = append(result.Errors, itemError(in.StudentID, appErrors.ErrInternal, "failed to load marksheet"))
				continue
			}
			if !SetEntryScore(marksheet, req.AssessmentTypeID, *in.Score) {
				result.Errors = append(result.Errors, itemError(in.StudentID, appErrors.ErrValidation, "marksheet has no entry for this assessment type"))
				continue
			}
			RecalcResult(marksheet, gsa, setup)
			if err := s.scores.Update(ctx, marksheet); err != nil {
				s.logger.Warn("batch score update failed", zap.String("gsa_id", gsa.ID), zap.String("student_id", in.StudentID), zap.Error(err))
				result.Errors = append(result.Errors, itemError(in.StudentID, appErrors.ErrInternal, "failed to update marksheet"))
				continue
			}
			result.Updated++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Failed = len(result.Errors)

	s.metrics.AddScoreUpdates(ScorePathBatch, ScoreOutcomeOK, result.Updated)
	s.metrics.AddScoreUpdates(ScorePathBatch, ScoreOutcomeFailed, result.Failed)
	s.logger.Info("batch scores updated",
		zap.String("gsa_id", gsa.ID),
		zap.String("type_id", req.AssessmentTypeID),
		zap.Int("updated", result.Updated),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// RecalculateGSA recomputes every marksheet of a GSA against the gate of termID and persists changed results.
func (s *AssessmentScoreService) RecalculateGSA(ctx context.Context, gsaID, termID string) (*dto.RecalculationSummary, error) {
	gsa, setup, err := s.loadGSAContext(ctx, gsaID, termID)
	if err != nil {
		return nil, err
	}
	summary := &dto.RecalculationSummary{GSAID: gsa.ID}
	err = s.guard.run(ctx, gsa.ID, func() error {
		marksheets, err := s.scores.ListByGSA(ctx, gsa.ID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assessment scores")
		}
		for i := range marksheets {
			marksheet := &marksheets[i]
			before := marksheet.Result
			if RecalcResult(marksheet, gsa, setup) == before {
				continue
			}
			if err := s.scores.Update(ctx, marksheet); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assessment score")
			}
			summary.Changed++
		}
		summary.Total = len(marksheets)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("assessment results recalculated", zap.String("gsa_id", gsa.ID), zap.Int("total", summary.Total), zap.Int("changed", summary.Changed))
	return summary, nil
}

// loadGSAContext loads a GSA with its setup and the conducted stages of termID.
func (s *AssessmentScoreService) loadGSAContext(ctx context.Context, gsaID, termID string) (*models.GradeSubjectAssessment, *models.AssessmentSetup, error) {
	gsa, err := s.gsas.FindByID(ctx, gsaID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "grade subject assessment not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade subject assessment")
	}
	setup, err := s.setups.Get(ctx, gsa.SetupID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.gates.Project(ctx, gsa, termID); err != nil {
		return nil, nil, err
	}
	return gsa, setup, nil
}

func (s *AssessmentScoreService) marksheetFor(ctx context.Context, studentID string, gsa *models.GradeSubjectAssessment, setup *models.AssessmentSetup) (*models.AssessmentScore, error) {
	marksheet, err := s.scores.FindByStudentAndGSA(ctx, studentID, gsa.ID)
	if err == nil {
		return marksheet, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}
	fresh := NewMarksheet(studentID, gsa, setup)
	created, err := s.scores.CreateIfAbsent(ctx, fresh)
	if err != nil {
		return nil, err
	}
	if created {
		s.metrics.AddMarksheetsGenerated(GenerationModeBatch, 1)
		return fresh, nil
	}
	return s.scores.FindByStudentAndGSA(ctx, studentID, gsa.ID)
}

func findEntry(entries models.ScoreEntries, typeID string) (models.ScoreEntry, bool) {
	for _, e := range entries {
		if e.TypeID == typeID {
			return e, true
		}
	}
	return models.ScoreEntry{}, false
}

// submittedAverage is the mean of the scores as sent, before clamping or per-student failures.
func submittedAverage(scores []dto.StudentScoreInput) float64 {
	sum, n := 0.0, 0
	for _, in := range scores {
		if in.Score == nil {
			continue
		}
		sum += *in.Score
		n++
	}
	if n == 0 {
		return 0
	}
	return roundScore(sum / float64(n))
}
