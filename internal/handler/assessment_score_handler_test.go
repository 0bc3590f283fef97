package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-assessment-api/internal/dto"
	"github.com/noah-isme/sma-assessment-api/internal/middleware"
	"github.com/noah-isme/sma-assessment-api/internal/models"
	appErrors "github.com/noah-isme/sma-assessment-api/pkg/errors"
	"github.com/noah-isme/sma-assessment-api/pkg/response"
)

type scoreServiceMock struct {
	score      *models.AssessmentScore
	listFilter models.AssessmentScoreFilter
	listCalled bool
	updateErr  error
	batch      *dto.BatchUpdateResult
}

func (m *scoreServiceMock) List(ctx context.Context, filter models.AssessmentScoreFilter) ([]models.AssessmentScore, *models.Pagination, error) {
	m.listFilter = filter
	return []models.AssessmentScore{}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize}, nil
}

func (m *scoreServiceMock) ListForStudent(ctx context.Context, studentID string, filter models.AssessmentScoreFilter) ([]models.AssessmentScore, *models.Pagination, error) {
	m.listCalled = true
	filter.StudentID = studentID
	return m.List(ctx, filter)
}

func (m *scoreServiceMock) Get(ctx context.Context, id string) (*models.AssessmentScore, error) {
	if m.score == nil || m.score.ID != id {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "assessment score not found")
	}
	return m.score, nil
}

func (m *scoreServiceMock) UpdateAssessmentScore(ctx context.Context, id string, req dto.UpdateScoresRequest) (*models.AssessmentScore, error) {
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	return m.score, nil
}

func (m *scoreServiceMock) BatchUpdateScoresForType(ctx context.Context, req dto.BatchUpdateScoresRequest) (*dto.BatchUpdateResult, error) {
	return m.batch, nil
}

type generatorMock struct {
	result *dto.GenerationResult
	err    error
}

func (m *generatorMock) GenerateSingle(ctx context.Context, req dto.GenerateSingleRequest) (*dto.GenerationResult, error) {
	return m.result, m.err
}

func (m *generatorMock) GenerateMultiple(ctx context.Context, req dto.GenerateMultipleRequest) (*dto.GenerationResult, error) {
	return m.result, m.err
}

func (m *generatorMock) GenerateBulk(ctx context.Context, req dto.GenerateBulkRequest) (*dto.GenerationResult, error) {
	return m.result, m.err
}

func newTestContext(method, target string, body []byte, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope
}

func TestGenerateRespondsCreatedOnlyWhenSomethingWasCreated(t *testing.T) {
	body := []byte(`{"gradeId":"grade-10","subjectId":"subject-math"}`)

	handler := NewAssessmentScoreHandler(&scoreServiceMock{}, &generatorMock{result: &dto.GenerationResult{Created: 3}})
	c, w := newTestContext(http.MethodPost, "/assessment-scores/generate/bulk", body, nil)
	handler.GenerateBulk(c)
	assert.Equal(t, http.StatusCreated, w.Code)

	handler = NewAssessmentScoreHandler(&scoreServiceMock{}, &generatorMock{result: &dto.GenerationResult{Existing: 3}})
	c, w = newTestContext(http.MethodPost, "/assessment-scores/generate/bulk", body, nil)
	handler.GenerateBulk(c)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGenerateSingleMapsDomainErrors(t *testing.T) {
	handler := NewAssessmentScoreHandler(&scoreServiceMock{}, &generatorMock{err: appErrors.Clone(appErrors.ErrNotEnrolled, "student has no active grade enrollment")})
	c, w := newTestContext(http.MethodPost, "/assessment-scores/generate/single", []byte(`{"studentId":"s4","subjectId":"subject-math"}`), nil)

	handler.GenerateSingle(c)

	require.Equal(t, http.StatusPreconditionFailed, w.Code)
	envelope := decodeEnvelope(t, w)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrNotEnrolled.Code, envelope.Error.Code)
}

func TestGenerateMultipleInvalidBody(t *testing.T) {
	handler := NewAssessmentScoreHandler(&scoreServiceMock{}, &generatorMock{})
	c, w := newTestContext(http.MethodPost, "/assessment-scores/generate/multiple", []byte(`invalid`), nil)

	handler.GenerateMultiple(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateScoreReportsUnconductedStage(t *testing.T) {
	svc := &scoreServiceMock{updateErr: appErrors.Clone(appErrors.ErrStageNotConducted, `assessment "Final" has not been conducted yet`)}
	handler := NewAssessmentScoreHandler(svc, &generatorMock{})
	c, w := newTestContext(http.MethodPut, "/assessment-scores/score-001", []byte(`{"scores":[{"typeId":"type-final","score":90}]}`), nil)
	c.Params = gin.Params{{Key: "id", Value: "score-001"}}

	handler.Update(c)

	require.Equal(t, http.StatusPreconditionFailed, w.Code)
	envelope := decodeEnvelope(t, w)
	assert.Contains(t, envelope.Message, "Final")
}

func TestBatchUpdateReturnsSummary(t *testing.T) {
	svc := &scoreServiceMock{batch: &dto.BatchUpdateResult{Updated: 2, AverageScore: 70}}
	handler := NewAssessmentScoreHandler(svc, &generatorMock{})
	body := []byte(`{"gsaId":"gsa-1","assessmentTypeId":"type-midterm","scores":[{"studentId":"s1","score":80},{"studentId":"s2","score":60}]}`)
	c, w := newTestContext(http.MethodPut, "/assessment-scores/batch", body, nil)

	handler.BatchUpdate(c)

	require.Equal(t, http.StatusOK, w.Code)
	var payload struct {
		Data dto.BatchUpdateResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, 2, payload.Data.Updated)
	assert.Equal(t, 70.0, payload.Data.AverageScore)
}

func TestStudentMayOnlyReadOwnScores(t *testing.T) {
	svc := &scoreServiceMock{score: &models.AssessmentScore{ID: "score-001", StudentID: "s1"}}
	handler := NewAssessmentScoreHandler(svc, &generatorMock{})

	c, w := newTestContext(http.MethodGet, "/assessment-scores/student/s2", nil, &models.JWTClaims{UserID: "s1", Role: models.RoleStudent})
	c.Params = gin.Params{{Key: "studentId", Value: "s2"}}
	handler.ListForStudent(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, svc.listCalled)

	c, w = newTestContext(http.MethodGet, "/assessment-scores/student/s1?subjectId=subject-math&page=2", nil, &models.JWTClaims{UserID: "s1", Role: models.RoleStudent})
	c.Params = gin.Params{{Key: "studentId", Value: "s1"}}
	handler.ListForStudent(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "s1", svc.listFilter.StudentID)
	assert.Equal(t, "subject-math", svc.listFilter.SubjectID)
	assert.Equal(t, 2, svc.listFilter.Page)
	assert.Equal(t, 20, svc.listFilter.PageSize)

	c, w = newTestContext(http.MethodGet, "/assessment-scores/score-001", nil, &models.JWTClaims{UserID: "s2", Role: models.RoleStudent})
	c.Params = gin.Params{{Key: "id", Value: "score-001"}}
	handler.Get(c)
	assert.Equal(t, http.StatusForbidden, w.Code)

	c, w = newTestContext(http.MethodGet, "/assessment-scores/score-001", nil, &models.JWTClaims{UserID: "teacher-1", Role: models.RoleTeacher})
	c.Params = gin.Params{{Key: "id", Value: "score-001"}}
	handler.Get(c)
	assert.Equal(t, http.StatusOK, w.Code)
}
