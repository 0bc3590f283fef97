package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-assessment-api/internal/dto"
	"github.com/noah-isme/sma-assessment-api/internal/models"
	"github.com/noah-isme/sma-assessment-api/internal/repository"
	appErrors "github.com/noah-isme/sma-assessment-api/pkg/errors"
	"github.com/noah-isme/sma-assessment-api/pkg/lock"
)

type conductedAssessmentRepository interface {
	List(ctx context.Context, filter models.ConductedAssessmentFilter) ([]models.ConductedAssessment, int, error)
	FindByID(ctx context.Context, id string) (*models.ConductedAssessment, error)
	FindByGSAAndTerm(ctx context.Context, gsaID, termID string) (*models.ConductedAssessment, error)
	FindLatestByGSA(ctx context.Context, gsaID string) (*models.ConductedAssessment, error)
	Create(ctx context.Context, rec *models.ConductedAssessment) error
	CreateIfAbsent(ctx context.Context, rec *models.ConductedAssessment) (bool, error)
	AppendStage(ctx context.Context, id, typeID string, expectedCount int, status models.ConductedStatus) (bool, error)
}

type gsaLookup interface {
	FindByID(ctx context.Context, id string) (*models.GradeSubjectAssessment, error)
	FindByGradeAndSubject(ctx context.Context, gradeID, subjectID string) (*models.GradeSubjectAssessment, error)
}

type termReader interface {
	FindByID(ctx context.Context, id string) (*models.Term, error)
	FindActive(ctx context.Context) (*models.Term, error)
}

type setupResolver interface {
	Get(ctx context.Context, id string) (*models.AssessmentSetup, error)
}

// StageGateService owns the per-term conducted assessment gates and projects them onto GSAs.
type StageGateService struct {
	gates     conductedAssessmentRepository
	gsas      gsaLookup
	terms     termReader
	setups    setupResolver
	guard     gsaGuard
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStageGateService constructs the service. locker may be nil for single-writer deployments.
func NewStageGateService(gates conductedAssessmentRepository, gsas gsaLookup, terms termReader, setups setupResolver, locker lock.Locker, lockTTL time.Duration, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *StageGateService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StageGateService{
		gates:     gates,
		gsas:      gsas,
		terms:     terms,
		setups:    setups,
		guard:     newGSAGuard(locker, lockTTL, metrics),
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// List returns gate records with pagination metadata.
func (s *StageGateService) List(ctx context.Context, filter models.ConductedAssessmentFilter) ([]models.ConductedAssessment, *models.Pagination, error) {
	items, total, err := s.gates.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list conducted assessments")
	}
	return items, buildPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a gate record by id.
func (s *StageGateService) Get(ctx context.Context, id string) (*models.ConductedAssessment, error) {
	rec, err := s.gates.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "conducted assessment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load conducted assessment")
	}
	return rec, nil
}

// Create opens an empty gate for a GSA and term. A second create for the same pair fails.
func (s *StageGateService) Create(ctx context.Context, req dto.CreateConductedAssessmentRequest) (*models.ConductedAssessment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid conducted assessment payload")
	}
	if _, err := s.loadGSA(ctx, req.GSAID); err != nil {
		return nil, err
	}
	if _, err := s.resolveTerm(ctx, req.AcademicTermID); err != nil {
		return nil, err
	}
	rec := &models.ConductedAssessment{GSAID: req.GSAID, AcademicTermID: req.AcademicTermID}
	if err := s.gates.Create(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, appErrors.Clone(appErrors.ErrDuplicate, "conducted assessment already exists for this assessment and term")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create conducted assessment")
	}
	return rec, nil
}

// MarkStageConducted appends an assessment type to the gate of (GSA, term), creating the gate on first use.
// Stages must follow the setup order; the gate never shrinks.
func (s *StageGateService) MarkStageConducted(ctx context.Context, req dto.MarkStageConductedRequest) (*models.ConductedAssessment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid conduct payload")
	}
	gsa, err := s.resolveGSA(ctx, req)
	if err != nil {
		return nil, err
	}
	term, err := s.resolveTerm(ctx, req.AcademicTermID)
	if err != nil {
		return nil, err
	}
	setup, err := s.setups.Get(ctx, gsa.SetupID)
	if err != nil {
		return nil, err
	}
	if setup.Position(req.AssessmentTypeID) < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "assessment type is not part of this assessment setup")
	}

	var result *models.ConductedAssessment
	err = s.guard.run(ctx, gsa.ID, func() error {
		rec, err := noRowsAsNil(s.gates.FindByGSAAndTerm(ctx, gsa.ID, term.ID))
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load conducted assessment")
		}
		if rec == nil {
			rec = &models.ConductedAssessment{GSAID: gsa.ID, AcademicTermID: term.ID, ConductedStages: []string{}}
		}
		status, err := AdvanceGate(rec, setup, req.AssessmentTypeID)
		if err != nil {
			return err
		}
		if rec.ID == "" {
			result, err = s.openGate(ctx, rec, req.AssessmentTypeID, status)
			return err
		}
		expected := len(rec.ConductedStages)
		ok, err := s.gates.AppendStage(ctx, rec.ID, req.AssessmentTypeID, expected, status)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record conducted stage")
		}
		if !ok {
			return appErrors.Clone(appErrors.ErrConflict, "conducted stages changed concurrently, retry")
		}
		rec.ConductedStages = append(rec.ConductedStages, req.AssessmentTypeID)
		rec.Status = status
		rec.UpdatedAt = time.Now().UTC()
		result = rec
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncStageConducted()
	s.logger.Info("assessment stage conducted",
		zap.String("gsa_id", gsa.ID),
		zap.String("term_id", term.ID),
		zap.String("type_id", req.AssessmentTypeID),
		zap.String("status", string(result.Status)),
	)
	return result, nil
}

// Project fills gsa.ConductedStages from the gate of termID. With no termID the active term's gate is used;
// the GSA's most recently updated gate only applies while no term is active.
func (s *StageGateService) Project(ctx context.Context, gsa *models.GradeSubjectAssessment, termID string) error {
	rec, err := s.gateFor(ctx, gsa.ID, termID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load conducted stages")
	}
	gsa.ConductedStages = []string{}
	gsa.GateTermID = nil
	if termID != "" {
		gsa.GateTermID = &termID
	}
	if rec != nil {
		gsa.ConductedStages = append(gsa.ConductedStages, rec.ConductedStages...)
		term := rec.AcademicTermID
		gsa.GateTermID = &term
	}
	return nil
}

func (s *StageGateService) gateFor(ctx context.Context, gsaID, termID string) (*models.ConductedAssessment, error) {
	if termID != "" {
		return noRowsAsNil(s.gates.FindByGSAAndTerm(ctx, gsaID, termID))
	}
	active, err := s.terms.FindActive(ctx)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if active != nil {
		return noRowsAsNil(s.gates.FindByGSAAndTerm(ctx, gsaID, active.ID))
	}
	return noRowsAsNil(s.gates.FindLatestByGSA(ctx, gsaID))
}

// openGate writes the first row of a gate with its first stage already recorded.
func (s *StageGateService) openGate(ctx context.Context, rec *models.ConductedAssessment, typeID string, status models.ConductedStatus) (*models.ConductedAssessment, error) {
	rec.ConductedStages = append(rec.ConductedStages, typeID)
	rec.Status = status
	created, err := s.gates.CreateIfAbsent(ctx, rec)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open conducted assessment")
	}
	if !created {
		return nil, appErrors.Clone(appErrors.ErrConflict, "conducted stages changed concurrently, retry")
	}
	s.logger.Debug("conducted assessment opened", zap.String("gsa_id", rec.GSAID), zap.String("term_id", rec.AcademicTermID))
	return rec, nil
}

func (s *StageGateService) resolveGSA(ctx context.Context, req dto.MarkStageConductedRequest) (*models.GradeSubjectAssessment, error) {
	if req.GSAID != "" {
		return s.loadGSA(ctx, req.GSAID)
	}
	gsa, err := s.gsas.FindByGradeAndSubject(ctx, req.GradeID, req.SubjectID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNoSetup, "no assessment configured for this grade and subject")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade subject assessment")
	}
	return gsa, nil
}

func (s *StageGateService) loadGSA(ctx context.Context, id string) (*models.GradeSubjectAssessment, error) {
	gsa, err := s.gsas.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrReference, "grade subject assessment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade subject assessment")
	}
	return gsa, nil
}

func (s *StageGateService) resolveTerm(ctx context.Context, termID string) (*models.Term, error) {
	if termID == "" {
		term, err := s.terms.FindActive(ctx)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrValidation, "academicTermId is required when no academic term is active")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active term")
		}
		return term, nil
	}
	term, err := s.terms.FindByID(ctx, termID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrReference, "academic term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic term")
	}
	return term, nil
}

func noRowsAsNil(rec *models.ConductedAssessment, err error) (*models.ConductedAssessment, error) {
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}
