package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-assessment-api/internal/dto"
	"github.com/noah-isme/sma-assessment-api/internal/models"
	appErrors "github.com/noah-isme/sma-assessment-api/pkg/errors"
	"github.com/noah-isme/sma-assessment-api/pkg/response"
)

type marksheetGenerator interface {
	GenerateSingle(ctx context.Context, req dto.GenerateSingleRequest) (*dto.GenerationResult, error)
	GenerateMultiple(ctx context.Context, req dto.GenerateMultipleRequest) (*dto.GenerationResult, error)
	GenerateBulk(ctx context.Context, req dto.GenerateBulkRequest) (*dto.GenerationResult, error)
}

type assessmentScoreService interface {
	List(ctx context.Context, filter models.AssessmentScoreFilter) ([]models.AssessmentScore, *models.Pagination, error)
	ListForStudent(ctx context.Context, studentID string, filter models.AssessmentScoreFilter) ([]models.AssessmentScore, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.AssessmentScore, error)
	UpdateAssessmentScore(ctx context.Context, id string, req dto.UpdateScoresRequest) (*models.AssessmentScore, error)
	BatchUpdateScoresForType(ctx context.Context, req dto.BatchUpdateScoresRequest) (*dto.BatchUpdateResult, error)
}

// AssessmentScoreHandler exposes marksheet generation and score entry endpoints.
type AssessmentScoreHandler struct {
	scores    assessmentScoreService
	generator marksheetGenerator
}

// NewAssessmentScoreHandler constructs the handler.
func NewAssessmentScoreHandler(scores assessmentScoreService, generator marksheetGenerator) *AssessmentScoreHandler {
	return &AssessmentScoreHandler{scores: scores, generator: generator}
}

// GenerateSingle godoc
// @Summary Generate a marksheet for one student
// @Tags Assessment Scores
// @Accept json
// @Produce json
// @Param payload body dto.GenerateSingleRequest true "Generation payload"
// @Success 201 {object} response.Envelope
// @Router /assessment-scores/generate/single [post]
func (h *AssessmentScoreHandler) GenerateSingle(c *gin.Context) {
	var req dto.GenerateSingleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	result, err := h.generator.GenerateSingle(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondGeneration(c, result)
}

// GenerateMultiple godoc
// @Summary Generate marksheets for a list of students
// @Tags Assessment Scores
// @Accept json
// @Produce json
// @Param payload body dto.GenerateMultipleRequest true "Generation payload"
// @Success 201 {object} response.Envelope
// @Router /assessment-scores/generate/multiple [post]
func (h *AssessmentScoreHandler) GenerateMultiple(c *gin.Context) {
	var req dto.GenerateMultipleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	result, err := h.generator.GenerateMultiple(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondGeneration(c, result)
}

// GenerateBulk godoc
// @Summary Generate marksheets for every student of a grade
// @Tags Assessment Scores
// @Accept json
// @Produce json
// @Param payload body dto.GenerateBulkRequest true "Generation payload"
// @Success 201 {object} response.Envelope
// @Router /assessment-scores/generate/bulk [post]
func (h *AssessmentScoreHandler) GenerateBulk(c *gin.Context) {
	var req dto.GenerateBulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	result, err := h.generator.GenerateBulk(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondGeneration(c, result)
}

// List godoc
// @Summary List marksheets
// @Tags Assessment Scores
// @Produce json
// @Param gsaId query string false "GSA ID"
// @Param studentId query string false "Student ID"
// @Param subjectId query string false "Subject ID"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /assessment-scores [get]
func (h *AssessmentScoreHandler) List(c *gin.Context) {
	filter := models.AssessmentScoreFilter{
		GSAID:     c.Query("gsaId"),
		StudentID: c.Query("studentId"),
		SubjectID: c.Query("subjectId"),
	}
	filter.Page, filter.PageSize = pageParams(c)

	items, pagination, err := h.scores.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// ListForStudent godoc
// @Summary List a student's marksheets
// @Tags Assessment Scores
// @Produce json
// @Param studentId path string true "Student ID"
// @Param subjectId query string false "Subject ID"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /assessment-scores/student/{studentId} [get]
func (h *AssessmentScoreHandler) ListForStudent(c *gin.Context) {
	studentID := c.Param("studentId")
	if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleStudent && claims.UserID != studentID {
		response.Error(c, appErrors.ErrForbidden)
		return
	}
	filter := models.AssessmentScoreFilter{SubjectID: c.Query("subjectId")}
	filter.Page, filter.PageSize = pageParams(c)

	items, pagination, err := h.scores.ListForStudent(c.Request.Context(), studentID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get marksheet
// @Tags Assessment Scores
// @Produce json
// @Param id path string true "Marksheet ID"
// @Success 200 {object} response.Envelope
// @Router /assessment-scores/{id} [get]
func (h *AssessmentScoreHandler) Get(c *gin.Context) {
	score, err := h.scores.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleStudent && claims.UserID != score.StudentID {
		response.Error(c, appErrors.ErrForbidden)
		return
	}
	response.JSON(c, http.StatusOK, score, nil)
}

// Update godoc
// @Summary Update marksheet scores
// @Description Scores are clamped to 0-100; every type must already be conducted.
// @Tags Assessment Scores
// @Accept json
// @Produce json
// @Param id path string true "Marksheet ID"
// @Param payload body dto.UpdateScoresRequest true "Scores payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /assessment-scores/{id} [put]
func (h *AssessmentScoreHandler) Update(c *gin.Context) {
	var req dto.UpdateScoresRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	score, err := h.scores.UpdateAssessmentScore(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, score, nil)
}

// BatchUpdate godoc
// @Summary Update one assessment type for many students
// @Tags Assessment Scores
// @Accept json
// @Produce json
// @Param payload body dto.BatchUpdateScoresRequest true "Batch payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /assessment-scores/batch [put]
func (h *AssessmentScoreHandler) BatchUpdate(c *gin.Context) {
	var req dto.BatchUpdateScoresRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	result, err := h.scores.BatchUpdateScoresForType(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

func respondGeneration(c *gin.Context, result *dto.GenerationResult) {
	status := http.StatusOK
	if result.Created > 0 {
		status = http.StatusCreated
	}
	response.JSON(c, status, result, nil)
}
