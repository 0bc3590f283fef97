package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-assessment-api/internal/dto"
	appErrors "github.com/noah-isme/sma-assessment-api/pkg/errors"
	"github.com/noah-isme/sma-assessment-api/pkg/jobs"
)

const recalculationJobType = "assessment.recalculate"

type gsaRecalculator interface {
	RecalculateGSA(ctx context.Context, gsaID, termID string) (*dto.RecalculationSummary, error)
}

type recalculationPayload struct {
	GSAID  string
	TermID string
}

// RecalculationService runs GSA recalculations on a background worker pool.
type RecalculationService struct {
	recalculator gsaRecalculator
	queue        *jobs.Queue
	metrics      *MetricsService
	logger       *zap.Logger
}

// NewRecalculationService constructs the service and its queue. Call Start before enqueueing.
func NewRecalculationService(recalculator gsaRecalculator, cfg jobs.QueueConfig, metrics *MetricsService, logger *zap.Logger) *RecalculationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &RecalculationService{recalculator: recalculator, metrics: metrics, logger: logger}
	if cfg.Logger == nil {
		cfg.Logger = logger
	}
	svc.queue = jobs.NewQueue("assessment-recalculation", svc.handle, cfg)
	return svc
}

// Start launches the worker pool.
func (s *RecalculationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the worker pool.
func (s *RecalculationService) Stop() {
	s.queue.Stop()
}

// Enqueue schedules a recalculation of gsaID and returns the job id.
func (s *RecalculationService) Enqueue(gsaID, termID string) (*dto.RecalculationAccepted, error) {
	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    recalculationJobType,
		Payload: recalculationPayload{GSAID: gsaID, TermID: termID},
	}
	if err := s.queue.Enqueue(job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue recalculation")
	}
	return &dto.RecalculationAccepted{JobID: job.ID, GSAID: gsaID}, nil
}

// Status returns the state of a recalculation job.
func (s *RecalculationService) Status(jobID string) (*jobs.Status, error) {
	status, ok := s.queue.Status(jobID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "recalculation job not found")
	}
	return &status, nil
}

func (s *RecalculationService) handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(recalculationPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for job %s", job.Payload, job.ID)
	}
	summary, err := s.recalculator.RecalculateGSA(ctx, payload.GSAID, payload.TermID)
	if err != nil {
		return err
	}
	s.metrics.AddRecalculations(summary.Changed)
	s.logger.Debug("recalculation job finished", zap.String("job_id", job.ID), zap.String("gsa_id", payload.GSAID), zap.Int("changed", summary.Changed))
	return nil
}
