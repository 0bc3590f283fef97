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

type assessmentTypeRepository interface {
	List(ctx context.Context, filter models.AssessmentTypeFilter) ([]models.AssessmentType, int, error)
	FindByID(ctx context.Context, id string) (*models.AssessmentType, error)
	ExistsByName(ctx context.Context, name, excludeID string) (bool, error)
	Create(ctx context.Context, t *models.AssessmentType) error
	Update(ctx context.Context, t *models.AssessmentType) error
	Delete(ctx context.Context, id string) error
	CountDependencies(ctx context.Context, id string) (models.DependencyReport, error)
}

// AssessmentTypeService manages the catalog of weighted assessment types.
type AssessmentTypeService struct {
	repo      assessmentTypeRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAssessmentTypeService constructs the service. cache may be nil.
func NewAssessmentTypeService(repo assessmentTypeRepository, cacheSvc *CacheService, validate *validator.Validate, logger *zap.Logger) *AssessmentTypeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssessmentTypeService{repo: repo, cache: cacheSvc, validator: validate, logger: logger}
}

// List returns assessment types with pagination metadata.
func (s *AssessmentTypeService) List(ctx context.Context, filter models.AssessmentTypeFilter) ([]models.AssessmentType, *models.Pagination, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assessment types")
	}
	return items, buildPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a type by id.
func (s *AssessmentTypeService) Get(ctx context.Context, id string) (*models.AssessmentType, error) {
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assessment type not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assessment type")
	}
	return t, nil
}

// Create adds a type to the catalog.
func (s *AssessmentTypeService) Create(ctx context.Context, req dto.CreateAssessmentTypeRequest) (*models.AssessmentType, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assessment type payload")
	}
	name := strings.TrimSpace(req.Name)
	if err := s.ensureUniqueName(ctx, name, ""); err != nil {
		return nil, err
	}
	t := &models.AssessmentType{Name: name, Weight: *req.Weight, Description: req.Description}
	if err := s.repo.Create(ctx, t); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, appErrors.Clone(appErrors.ErrDuplicate, "assessment type name already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assessment type")
	}
	return t, nil
}

// Update edits a type. The weight is frozen while any setup references the type.
func (s *AssessmentTypeService) Update(ctx context.Context, id string, req dto.UpdateAssessmentTypeRequest) (*models.AssessmentType, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assessment type payload")
	}
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if err := s.ensureUniqueName(ctx, name, id); err != nil {
		return nil, err
	}
	if *req.Weight != t.Weight {
		deps, err := s.repo.CountDependencies(ctx, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assessment type usage")
		}
		if deps[models.DependentSetups] > 0 {
			return nil, appErrors.Clone(appErrors.ErrDependency, "weight cannot change while the type is used by assessment_setups")
		}
	}
	t.Name = name
	t.Weight = *req.Weight
	t.Description = req.Description
	if err := s.repo.Update(ctx, t); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, appErrors.Clone(appErrors.ErrDuplicate, "assessment type name already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assessment type")
	}
	// cached setups carry type names and weights
	_ = s.cache.Invalidate(ctx, cache.SetupPattern)
	return t, nil
}

// Delete removes a type unless setups or gate records still reference it.
func (s *AssessmentTypeService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	deps, err := s.repo.CountDependencies(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assessment type usage")
	}
	if blocking := deps.Blocking(); len(blocking) > 0 {
		return dependencyError("assessment type", blocking)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete assessment type")
	}
	return nil
}

func (s *AssessmentTypeService) ensureUniqueName(ctx context.Context, name, excludeID string) error {
	exists, err := s.repo.ExistsByName(ctx, name, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate assessment type name")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrDuplicate, "assessment type name already exists")
	}
	return nil
}

func dependencyError(resource string, blocking []string) error {
	return appErrors.Clone(appErrors.ErrDependency, fmt.Sprintf("%s is still referenced by %s", resource, strings.Join(blocking, ", ")))
}

func buildPagination(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 50 {
		size = 50
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}
