package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-assessment-api/internal/dto"
	"github.com/noah-isme/sma-assessment-api/internal/models"
	"github.com/noah-isme/sma-assessment-api/pkg/response"
)

type assessmentTypeService interface {
	List(ctx context.Context, filter models.AssessmentTypeFilter) ([]models.AssessmentType, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.AssessmentType, error)
	Create(ctx context.Context, req dto.CreateAssessmentTypeRequest) (*models.AssessmentType, error)
	Update(ctx context.Context, id string, req dto.UpdateAssessmentTypeRequest) (*models.AssessmentType, error)
	Delete(ctx context.Context, id string) error
}

// AssessmentTypeHandler exposes the assessment type catalog.
type AssessmentTypeHandler struct {
	service assessmentTypeService
}

// NewAssessmentTypeHandler constructs the handler.
func NewAssessmentTypeHandler(svc assessmentTypeService) *AssessmentTypeHandler {
	return &AssessmentTypeHandler{service: svc}
}

// List godoc
// @Summary List assessment types
// @Tags Assessment Types
// @Produce json
// @Param search query string false "Name contains"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /assessment-types [get]
func (h *AssessmentTypeHandler) List(c *gin.Context) {
	filter := models.AssessmentTypeFilter{Search: c.Query("search")}
	filter.Page, filter.PageSize = pageParams(c)

	items, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get assessment type
// @Tags Assessment Types
// @Produce json
// @Param id path string true "Assessment type ID"
// @Success 200 {object} response.Envelope
// @Router /assessment-types/{id} [get]
func (h *AssessmentTypeHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Create godoc
// @Summary Create assessment type
// @Tags Assessment Types
// @Accept json
// @Produce json
// @Param payload body dto.CreateAssessmentTypeRequest true "Assessment type payload"
// @Success 201 {object} response.Envelope
// @Router /assessment-types [post]
func (h *AssessmentTypeHandler) Create(c *gin.Context) {
	var req dto.CreateAssessmentTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	item, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Update assessment type
// @Tags Assessment Types
// @Accept json
// @Produce json
// @Param id path string true "Assessment type ID"
// @Param payload body dto.UpdateAssessmentTypeRequest true "Assessment type payload"
// @Success 200 {object} response.Envelope
// @Router /assessment-types/{id} [put]
func (h *AssessmentTypeHandler) Update(c *gin.Context) {
	var req dto.UpdateAssessmentTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	item, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Delete assessment type
// @Tags Assessment Types
// @Param id path string true "Assessment type ID"
// @Success 204
// @Router /assessment-types/{id} [delete]
func (h *AssessmentTypeHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
