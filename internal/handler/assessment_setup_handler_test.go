package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-assessment-api/internal/dto"
	"github.com/noah-isme/sma-assessment-api/internal/middleware"
	"github.com/noah-isme/sma-assessment-api/internal/models"
	appErrors "github.com/noah-isme/sma-assessment-api/pkg/errors"
)

type setupServiceMock struct {
	hit       bool
	createErr error
}

func (m *setupServiceMock) List(ctx context.Context, filter models.AssessmentSetupFilter) ([]models.AssessmentSetup, *models.Pagination, error) {
	return nil, &models.Pagination{}, nil
}

func (m *setupServiceMock) GetCached(ctx context.Context, id string) (*models.AssessmentSetup, bool, error) {
	return &models.AssessmentSetup{ID: id, Name: "Full Term Assessment"}, m.hit, nil
}

func (m *setupServiceMock) Default(ctx context.Context) (*models.AssessmentSetup, error) {
	return nil, appErrors.Clone(appErrors.ErrNoSetup, "default assessment setup is not configured")
}

func (m *setupServiceMock) Create(ctx context.Context, req dto.CreateAssessmentSetupRequest) (*models.AssessmentSetup, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &models.AssessmentSetup{ID: "setup-1", Name: req.Name}, nil
}

func (m *setupServiceMock) Update(ctx context.Context, id string, req dto.UpdateAssessmentSetupRequest) (*models.AssessmentSetup, error) {
	return &models.AssessmentSetup{ID: id, Name: req.Name}, nil
}

func (m *setupServiceMock) Delete(ctx context.Context, id string) error {
	return nil
}

func TestSetupHandlerGetReportsCacheHit(t *testing.T) {
	handler := NewAssessmentSetupHandler(&setupServiceMock{hit: true})
	c, w := newTestContext(http.MethodGet, "/assessment-setups/setup-1", nil, nil)
	c.Params = gin.Params{{Key: "id", Value: "setup-1"}}
	middleware.WithResponseMeta()(c)

	handler.Get(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeEnvelope(t, w).Meta["cache_hit"])
}

func TestSetupHandlerCreateInvalidWeights(t *testing.T) {
	handler := NewAssessmentSetupHandler(&setupServiceMock{createErr: appErrors.Clone(appErrors.ErrInvalidWeights, "assessment weights sum to 90.00, expected 100")})
	c, w := newTestContext(http.MethodPost, "/assessment-setups", []byte(`{"name":"Short","typeIds":["type-midterm","type-project"]}`), nil)

	handler.Create(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appErrors.ErrInvalidWeights.Code, decodeEnvelope(t, w).Error.Code)
}

func TestSetupHandlerDefaultMissing(t *testing.T) {
	handler := NewAssessmentSetupHandler(&setupServiceMock{})
	c, w := newTestContext(http.MethodGet, "/assessment-setups/default", nil, nil)

	handler.Default(c)
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
}
