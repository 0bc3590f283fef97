package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-assessment-api/internal/dto"
	"github.com/noah-isme/sma-assessment-api/internal/models"
	"github.com/noah-isme/sma-assessment-api/internal/repository"
	appErrors "github.com/noah-isme/sma-assessment-api/pkg/errors"
)

type gsaRepository interface {
	List(ctx context.Context, filter models.GSAFilter) ([]models.GradeSubjectAssessmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.GradeSubjectAssessment, error)
	FindByGradeAndSubject(ctx context.Context, gradeID, subjectID string) (*models.GradeSubjectAssessment, error)
	Exists(ctx context.Context, gradeID, subjectID string) (bool, error)
	Create(ctx context.Context, gsa *models.GradeSubjectAssessment) error
	UpdateSetup(ctx context.Context, id, setupID string) error
	Delete(ctx context.Context, id string) error
	CountDependencies(ctx context.Context, id string) (models.DependencyReport, error)
}

type gradeReader interface {
	FindByID(ctx context.Context, id string) (*models.Grade, error)
}

type subjectReader interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

type setupCatalog interface {
	Get(ctx context.Context, id string) (*models.AssessmentSetup, error)
	Default(ctx context.Context) (*models.AssessmentSetup, error)
	ValidateSetup(ctx context.Context, typeIDs []string) ([]models.SetupType, error)
}

type gateProjector interface {
	Project(ctx context.Context, gsa *models.GradeSubjectAssessment, termID string) error
}

// GradeSubjectAssessmentService binds grade+subject pairs to assessment setups.
type GradeSubjectAssessmentService struct {
	repo      gsaRepository
	grades    gradeReader
	subjects  subjectReader
	setups    setupCatalog
	gates     gateProjector
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGradeSubjectAssessmentService constructs the service.
func NewGradeSubjectAssessmentService(repo gsaRepository, grades gradeReader, subjects subjectReader, setups setupCatalog, gates gateProjector, validate *validator.Validate, logger *zap.Logger) *GradeSubjectAssessmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeSubjectAssessmentService{repo: repo, grades: grades, subjects: subjects, setups: setups, gates: gates, validator: validate, logger: logger}
}

// List returns GSAs with names and pagination metadata.
func (s *GradeSubjectAssessmentService) List(ctx context.Context, filter models.GSAFilter) ([]models.GradeSubjectAssessmentDetail, *models.Pagination, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grade subject assessments")
	}
	return items, buildPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a GSA with its conducted stages projected for termID (empty selects the current gate).
func (s *GradeSubjectAssessmentService) Get(ctx context.Context, id, termID string) (*models.GradeSubjectAssessment, error) {
	gsa, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade subject assessment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade subject assessment")
	}
	if err := s.gates.Project(ctx, gsa, termID); err != nil {
		return nil, err
	}
	return gsa, nil
}

// Create binds a grade and subject to a setup, falling back to the default setup.
func (s *GradeSubjectAssessmentService) Create(ctx context.Context, req dto.CreateGSARequest) (*models.GradeSubjectAssessment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade subject assessment payload")
	}
	if _, err := s.grades.FindByID(ctx, req.GradeID); err != nil {
		return nil, referenceError(err, "grade not found", "failed to load grade")
	}
	if _, err := s.subjects.FindByID(ctx, req.SubjectID); err != nil {
		return nil, referenceError(err, "subject not found", "failed to load subject")
	}
	exists, err := s.repo.Exists(ctx, req.GradeID, req.SubjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate grade subject assessment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicate, "an assessment already exists for this grade and subject")
	}

	setup, err := s.pickSetup(ctx, req.SetupID)
	if err != nil {
		return nil, err
	}
	gsa := &models.GradeSubjectAssessment{GradeID: req.GradeID, SubjectID: req.SubjectID, SetupID: setup.ID, ConductedStages: []string{}}
	if err := s.repo.Create(ctx, gsa); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, appErrors.Clone(appErrors.ErrDuplicate, "an assessment already exists for this grade and subject")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create grade subject assessment")
	}
	s.logger.Info("grade subject assessment created",
		zap.String("gsa_id", gsa.ID),
		zap.String("grade_id", gsa.GradeID),
		zap.String("subject_id", gsa.SubjectID),
		zap.String("setup_id", gsa.SetupID),
	)
	return gsa, nil
}

// AssignSetup rebinds a GSA to another setup while it has no marksheets or gates.
func (s *GradeSubjectAssessmentService) AssignSetup(ctx context.Context, id string, req dto.AssignSetupRequest) (*models.GradeSubjectAssessment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid setup assignment payload")
	}
	gsa, err := s.Get(ctx, id, "")
	if err != nil {
		return nil, err
	}
	deps, err := s.repo.CountDependencies(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check grade subject assessment usage")
	}
	if blocking := deps.Blocking(); len(blocking) > 0 {
		return nil, dependencyError("grade subject assessment", blocking)
	}
	setup, err := s.pickSetup(ctx, req.SetupID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateSetup(ctx, id, setup.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign assessment setup")
	}
	gsa.SetupID = setup.ID
	return gsa, nil
}

// Delete removes a GSA unless marksheets or gates reference it.
func (s *GradeSubjectAssessmentService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "grade subject assessment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade subject assessment")
	}
	deps, err := s.repo.CountDependencies(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check grade subject assessment usage")
	}
	if blocking := deps.Blocking(); len(blocking) > 0 {
		return dependencyError("grade subject assessment", blocking)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete grade subject assessment")
	}
	return nil
}

// pickSetup loads setupID (or the default setup) and re-validates its weights.
func (s *GradeSubjectAssessmentService) pickSetup(ctx context.Context, setupID string) (*models.AssessmentSetup, error) {
	var (
		setup *models.AssessmentSetup
		err   error
	)
	if setupID == "" {
		setup, err = s.setups.Default(ctx)
	} else {
		setup, err = s.setups.Get(ctx, setupID)
		if appErrors.Is(err, appErrors.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrReference, "assessment setup not found")
		}
	}
	if err != nil {
		return nil, err
	}
	if _, err := s.setups.ValidateSetup(ctx, setup.TypeIDs()); err != nil {
		return nil, err
	}
	return setup, nil
}

func referenceError(err error, missing, failure string) error {
	if err == sql.ErrNoRows {
		return appErrors.Clone(appErrors.ErrReference, missing)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, failure)
}
