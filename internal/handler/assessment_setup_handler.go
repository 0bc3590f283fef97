package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-assessment-api/internal/dto"
	"github.com/noah-isme/sma-assessment-api/internal/middleware"
	"github.com/noah-isme/sma-assessment-api/internal/models"
	"github.com/noah-isme/sma-assessment-api/pkg/response"
)

type assessmentSetupService interface {
	List(ctx context.Context, filter models.AssessmentSetupFilter) ([]models.AssessmentSetup, *models.Pagination, error)
	GetCached(ctx context.Context, id string) (*models.AssessmentSetup, bool, error)
	Default(ctx context.Context) (*models.AssessmentSetup, error)
	Create(ctx context.Context, req dto.CreateAssessmentSetupRequest) (*models.AssessmentSetup, error)
	Update(ctx context.Context, id string, req dto.UpdateAssessmentSetupRequest) (*models.AssessmentSetup, error)
	Delete(ctx context.Context, id string) error
}

// AssessmentSetupHandler exposes assessment setup endpoints.
type AssessmentSetupHandler struct {
	service assessmentSetupService
}

// NewAssessmentSetupHandler constructs the handler.
func NewAssessmentSetupHandler(svc assessmentSetupService) *AssessmentSetupHandler {
	return &AssessmentSetupHandler{service: svc}
}

// List godoc
// @Summary List assessment setups
// @Tags Assessment Setups
// @Produce json
// @Param search query string false "Name contains"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /assessment-setups [get]
func (h *AssessmentSetupHandler) List(c *gin.Context) {
	filter := models.AssessmentSetupFilter{Search: c.Query("search")}
	filter.Page, filter.PageSize = pageParams(c)

	items, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get assessment setup
// @Tags Assessment Setups
// @Produce json
// @Param id path string true "Assessment setup ID"
// @Success 200 {object} response.Envelope
// @Router /assessment-setups/{id} [get]
func (h *AssessmentSetupHandler) Get(c *gin.Context) {
	setup, hit, err := h.service.GetCached(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, setup, nil, middleware.ExtractMeta(c))
}

// Default godoc
// @Summary Get the default assessment setup
// @Tags Assessment Setups
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /assessment-setups/default [get]
func (h *AssessmentSetupHandler) Default(c *gin.Context) {
	setup, err := h.service.Default(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, setup, nil)
}

// Create godoc
// @Summary Create assessment setup
// @Tags Assessment Setups
// @Accept json
// @Produce json
// @Param payload body dto.CreateAssessmentSetupRequest true "Assessment setup payload"
// @Success 201 {object} response.Envelope
// @Router /assessment-setups [post]
func (h *AssessmentSetupHandler) Create(c *gin.Context) {
	var req dto.CreateAssessmentSetupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	setup, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, setup)
}

// Update godoc
// @Summary Update assessment setup
// @Tags Assessment Setups
// @Accept json
// @Produce json
// @Param id path string true "Assessment setup ID"
// @Param payload body dto.UpdateAssessmentSetupRequest true "Assessment setup payload"
// @Success 200 {object} response.Envelope
// @Router /assessment-setups/{id} [put]
func (h *AssessmentSetupHandler) Update(c *gin.Context) {
	var req dto.UpdateAssessmentSetupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	setup, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, setup, nil)
}

// Delete godoc
// @Summary Delete assessment setup
// @Tags Assessment Setups
// @Param id path string true "Assessment setup ID"
// @Success 204
// @Router /assessment-setups/{id} [delete]
func (h *AssessmentSetupHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
