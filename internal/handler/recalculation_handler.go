package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-assessment-api/pkg/jobs"
	"github.com/noah-isme/sma-assessment-api/pkg/response"
)

type recalculationTracker interface {
	Status(jobID string) (*jobs.Status, error)
}

// RecalculationHandler reports background recalculation progress.
type RecalculationHandler struct {
	tracker recalculationTracker
}

// NewRecalculationHandler constructs the handler.
func NewRecalculationHandler(tracker recalculationTracker) *RecalculationHandler {
	return &RecalculationHandler{tracker: tracker}
}

// Status godoc
// @Summary Get recalculation job status
// @Tags Grade Subject Assessments
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /recalculation-jobs/{id} [get]
func (h *RecalculationHandler) Status(c *gin.Context) {
	status, err := h.tracker.Status(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}
