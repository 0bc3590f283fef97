package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-assessment-api/internal/dto"
	"github.com/noah-isme/sma-assessment-api/internal/models"
	"github.com/noah-isme/sma-assessment-api/pkg/response"
)

type gsaService interface {
	List(ctx context.Context, filter models.GSAFilter) ([]models.GradeSubjectAssessmentDetail, *models.Pagination, error)
	Get(ctx context.Context, id, termID string) (*models.GradeSubjectAssessment, error)
	Create(ctx context.Context, req dto.CreateGSARequest) (*models.GradeSubjectAssessment, error)
	AssignSetup(ctx context.Context, id string, req dto.AssignSetupRequest) (*models.GradeSubjectAssessment, error)
	Delete(ctx context.Context, id string) error
}

type recalculationScheduler interface {
	Enqueue(gsaID, termID string) (*dto.RecalculationAccepted, error)
}

// GradeSubjectAssessmentHandler exposes grade subject assessment endpoints.
type GradeSubjectAssessmentHandler struct {
	service gsaService
	recalc  recalculationScheduler
}

// NewGradeSubjectAssessmentHandler constructs the handler.
func NewGradeSubjectAssessmentHandler(svc gsaService, recalc recalculationScheduler) *GradeSubjectAssessmentHandler {
	return &GradeSubjectAssessmentHandler{service: svc, recalc: recalc}
}

// List godoc
// @Summary List grade subject assessments
// @Tags Grade Subject Assessments
// @Produce json
// @Param gradeId query string false "Grade ID"
// @Param subjectId query string false "Subject ID"
// @Param setupId query string false "Assessment setup ID"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /grade-subject-assessments [get]
func (h *GradeSubjectAssessmentHandler) List(c *gin.Context) {
	filter := models.GSAFilter{
		GradeID:   c.Query("gradeId"),
		SubjectID: c.Query("subjectId"),
		SetupID:   c.Query("setupId"),
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
// @Summary Get grade subject assessment
// @Description Returns the assessment with the stages conducted in the given term, or the current term when omitted.
// @Tags Grade Subject Assessments
// @Produce json
// @Param id path string true "GSA ID"
// @Param termId query string false "Academic term ID"
// @Success 200 {object} response.Envelope
// @Router /grade-subject-assessments/{id} [get]
func (h *GradeSubjectAssessmentHandler) Get(c *gin.Context) {
	gsa, err := h.service.Get(c.Request.Context(), c.Param("id"), c.Query("termId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gsa, nil)
}

// Create godoc
// @Summary Create grade subject assessment
// @Tags Grade Subject Assessments
// @Accept json
// @Produce json
// @Param payload body dto.CreateGSARequest true "GSA payload"
// @Success 201 {object} response.Envelope
// @Router /grade-subject-assessments [post]
func (h *GradeSubjectAssessmentHandler) Create(c *gin.Context) {
	var req dto.CreateGSARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	gsa, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gsa)
}

// AssignSetup godoc
// @Summary Assign an assessment setup
// @Tags Grade Subject Assessments
// @Accept json
// @Produce json
// @Param id path string true "GSA ID"
// @Param payload body dto.AssignSetupRequest true "Setup payload"
// @Success 200 {object} response.Envelope
// @Router /grade-subject-assessments/{id}/setup [put]
func (h *GradeSubjectAssessmentHandler) AssignSetup(c *gin.Context) {
	var req dto.AssignSetupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	gsa, err := h.service.AssignSetup(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gsa, nil)
}

// Recalculate godoc
// @Summary Queue a result recalculation
// @Tags Grade Subject Assessments
// @Produce json
// @Param id path string true "GSA ID"
// @Param termId query string false "Academic term ID"
// @Success 202 {object} response.Envelope
// @Router /grade-subject-assessments/{id}/recalculate [post]
func (h *GradeSubjectAssessmentHandler) Recalculate(c *gin.Context) {
	gsa, err := h.service.Get(c.Request.Context(), c.Param("id"), "")
	if err != nil {
		response.Error(c, err)
		return
	}
	accepted, err := h.recalc.Enqueue(gsa.ID, c.Query("termId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, "recalculation queued", accepted)
}

// Delete godoc
// @Summary Delete grade subject assessment
// @Tags Grade Subject Assessments
// @Param id path string true "GSA ID"
// @Success 204
// @Router /grade-subject-assessments/{id} [delete]
func (h *GradeSubjectAssessmentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
