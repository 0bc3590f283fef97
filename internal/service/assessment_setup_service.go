package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-assessment-api/internal/dto"
	"github.com/noah-isme/sma-assessment-api/internal/models"
	"github.com/noah-isme/sma-assessment-api/internal/repository"
	"github.com/noah-isme/sma-assessment-api/pkg/cache"
	appErrors "github.com/noah-isme/sma-assessment-api/pkg/errors"
)

type assessmentSetupRepository interface {
	List(ctx context.Context, filter models.AssessmentSetupFilter) ([]models.AssessmentSetup, int, error)
	FindByID(ctx context.Context, id string) (*models.AssessmentSetup, error)
	FindByName(ctx context.Context, name string) (*models.AssessmentSetup, error)
	ExistsByName(ctx context.Context, name, excludeID string) (bool, error)
	Create(ctx context.Context, setup *models.AssessmentSetup) error
	Update(ctx context.Context, setup *models.AssessmentSetup, replaceTypes bool) error
	Delete(ctx context.Context, id string) error
	CountDependencies(ctx context.Context, id string) (models.DependencyReport, error)
}

type assessmentTypeLookup interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.AssessmentType, error)
}

// AssessmentSetupService manages ordered, weight-validated collections of assessment types.
type AssessmentSetupService struct {
	repo        assessmentSetupRepository
	types       assessmentTypeLookup
	cache       *CacheService
	defaultName string
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAssessmentSetupService constructs the service. defaultName names the fallback setup used by new GSAs.
func NewAssessmentSetupService(repo assessmentSetupRepository, types assessmentTypeLookup, cacheSvc *CacheService, defaultName string, validate *validator.Validate, logger *zap.Logger) *AssessmentSetupService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultName == "" {
		defaultName = "Full Term Assessment"
	}
	return &AssessmentSetupService{repo: repo, types: types, cache: cacheSvc, defaultName: defaultName, validator: validate, logger: logger}
}

// List returns setups with pagination metadata.
func (s *AssessmentSetupService) List(ctx context.Context, filter models.AssessmentSetupFilter) ([]models.AssessmentSetup, *models.Pagination, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assessment setups")
	}
	return items, buildPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a setup with its ordered types, reading through the cache when enabled.
func (s *AssessmentSetupService) Get(ctx context.Context, id string) (*models.AssessmentSetup, error) {
	setup, _, err := s.GetCached(ctx, id)
	return setup, err
}

// GetCached is Get that also reports whether the cache served the setup.
func (s *AssessmentSetupService) GetCached(ctx context.Context, id string) (*models.AssessmentSetup, bool, error) {
	key := cache.SetupKey(id)
	var cached models.AssessmentSetup
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, true, nil
	}
	setup, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "assessment setup not found")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assessment setup")
	}
	_ = s.cache.Set(ctx, key, setup, 0)
	return setup, false, nil
}

// Default returns the system fallback setup.
func (s *AssessmentSetupService) Default(ctx context.Context) (*models.AssessmentSetup, error) {
	setup, err := s.repo.FindByName(ctx, s.defaultName)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNoSetup, fmt.Sprintf("default assessment setup %q is not configured", s.defaultName))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load default assessment setup")
	}
	return setup, nil
}

// ValidateSetup resolves typeIDs in order and checks that their weights sum to 100.
func (s *AssessmentSetupService) ValidateSetup(ctx context.Context, typeIDs []string) ([]models.SetupType, error) {
	if len(typeIDs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one assessment type is required")
	}
	seen := make(map[string]struct{}, len(typeIDs))
	for _, id := range typeIDs {
		if _, dup := seen[id]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("assessment type %s listed more than once", id))
		}
		seen[id] = struct{}{}
	}

	found, err := s.types.FindByIDs(ctx, typeIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assessment types")
	}
	byID := make(map[string]models.AssessmentType, len(found))
	for _, t := range found {
		byID[t.ID] = t
	}

	var missing []string
	resolved := make([]models.SetupType, 0, len(typeIDs))
	for i, id := range typeIDs {
		t, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		resolved = append(resolved, models.SetupType{TypeID: t.ID, Name: t.Name, Weight: t.Weight, Position: i})
	}
	if len(missing) > 0 {
		return nil, appErrors.Clone(appErrors.ErrReference, fmt.Sprintf("unknown assessment types: %s", strings.Join(missing, ", ")))
	}
	if err := ValidateWeights(resolved); err != nil {
		return nil, err
	}
	return resolved, nil
}

// Create validates and stores a new setup.
func (s *AssessmentSetupService) Create(ctx context.Context, req dto.CreateAssessmentSetupRequest) (*models.AssessmentSetup, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assessment setup payload")
	}
	name := strings.TrimSpace(req.Name)
	if err := s.ensureUniqueName(ctx, name, ""); err != nil {
		return nil, err
	}
	types, err := s.ValidateSetup(ctx, req.TypeIDs)
	if err != nil {
		return nil, err
	}
	setup := &models.AssessmentSetup{Name: name, Description: req.Description, Types: types}
	if err := s.repo.Create(ctx, setup); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, appErrors.Clone(appErrors.ErrDuplicate, "assessment setup name already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assessment setup")
	}
	s.logger.Info("assessment setup created", zap.String("setup_id", setup.ID), zap.Int("types", len(types)))
	return setup, nil
}

// Update edits a setup. Changing the type list re-runs validation and is refused once marksheets or gates exist.
func (s *AssessmentSetupService) Update(ctx context.Context, id string, req dto.UpdateAssessmentSetupRequest) (*models.AssessmentSetup, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assessment setup payload")
	}
	setup, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assessment setup not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assessment setup")
	}
	name := strings.TrimSpace(req.Name)
	if err := s.ensureUniqueName(ctx, name, id); err != nil {
		return nil, err
	}

	replaceTypes := req.TypeIDs != nil && !sameOrder(setup.TypeIDs(), req.TypeIDs)
	if replaceTypes {
		deps, err := s.repo.CountDependencies(ctx, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assessment setup usage")
		}
		if deps[models.DependentScores] > 0 || deps[models.DependentConducted] > 0 {
			return nil, appErrors.Clone(appErrors.ErrDependency, "assessment types cannot change once marksheets or conducted assessments exist")
		}
		types, err := s.ValidateSetup(ctx, req.TypeIDs)
		if err != nil {
			return nil, err
		}
		setup.Types = types
	}
	setup.Name = name
	setup.Description = req.Description
	if err := s.repo.Update(ctx, setup, replaceTypes); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, appErrors.Clone(appErrors.ErrDuplicate, "assessment setup name already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assessment setup")
	}
	_ = s.cache.Evict(ctx, cache.SetupKey(id))
	return setup, nil
}

// Delete removes a setup unless GSAs, marksheets or gates still depend on it.
func (s *AssessmentSetupService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "assessment setup not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assessment setup")
	}
	deps, err := s.repo.CountDependencies(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assessment setup usage")
	}
	if blocking := deps.Blocking(); len(blocking) > 0 {
		return dependencyError("assessment setup", blocking)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete assessment setup")
	}
	_ = s.cache.Evict(ctx, cache.SetupKey(id))
	return nil
}

func (s *AssessmentSetupService) ensureUniqueName(ctx context.Context, name, excludeID string) error {
	exists, err := s.repo.ExistsByName(ctx, name, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate assessment setup name")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrDuplicate, "assessment setup name already exists")
	}
	return nil
}

func sameOrder(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
