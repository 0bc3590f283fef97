package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-assessment-api/internal/dto"
	"github.com/noah-isme/sma-assessment-api/internal/models"
	"github.com/noah-isme/sma-assessment-api/pkg/response"
)

type stageGateService interface {
	List(ctx context.Context, filter models.ConductedAssessmentFilter) ([]models.ConductedAssessment, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.ConductedAssessment, error)
	Create(ctx context.Context, req dto.CreateConductedAssessmentRequest) (*models.ConductedAssessment, error)
	MarkStageConducted(ctx context.Context, req dto.MarkStageConductedRequest) (*models.ConductedAssessment, error)
}

// ConductedAssessmentHandler exposes stage gate endpoints.
type ConductedAssessmentHandler struct {
	service stageGateService
}

// NewConductedAssessmentHandler constructs the handler.
func NewConductedAssessmentHandler(svc stageGateService) *ConductedAssessmentHandler {
	return &ConductedAssessmentHandler{service: svc}
}

// List godoc
// @Summary List conducted assessments
// @Tags Conducted Assessments
// @Produce json
// @Param gsaId query string false "GSA ID"
// @Param termId query string false "Academic term ID"
// @Param status query string false "planned, in-progress or completed"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /conducted-assessments [get]
func (h *ConductedAssessmentHandler) List(c *gin.Context) {
	filter := models.ConductedAssessmentFilter{
		GSAID:  c.Query("gsaId"),
		TermID: c.Query("termId"),
		Status: models.ConductedStatus(c.Query("status")),
	}
	filter.Page, filter.PageSize = pageParams(c)

	items, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get conducted assessment
// @Tags Conducted Assessments
// @Produce json
// @Param id path string true "Conducted assessment ID"
// @Success 200 {object} response.Envelope
// @Router /conducted-assessments/{id} [get]
func (h *ConductedAssessmentHandler) Get(c *gin.Context) {
	rec, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rec, nil)
}

// Create godoc
// @Summary Open a conducted assessment for a term
// @Tags Conducted Assessments
// @Accept json
// @Produce json
// @Param payload body dto.CreateConductedAssessmentRequest true "Conducted assessment payload"
// @Success 201 {object} response.Envelope
// @Router /conducted-assessments [post]
func (h *ConductedAssessmentHandler) Create(c *gin.Context) {
	var req dto.CreateConductedAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	rec, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rec)
}

// MarkConducted godoc
// @Summary Mark an assessment stage as conducted
// @Description Stages must be conducted in setup order.
// @Tags Conducted Assessments
// @Accept json
// @Produce json
// @Param payload body dto.MarkStageConductedRequest true "Stage payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /conducted-assessments/conduct [post]
func (h *ConductedAssessmentHandler) MarkConducted(c *gin.Context) {
	var req dto.MarkStageConductedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	rec, err := h.service.MarkStageConducted(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rec, nil)
}
