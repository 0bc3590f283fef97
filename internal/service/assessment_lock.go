package service

import (
	"context"
	"errors"
	"time"

	appErrors "github.com/noah-isme/sma-assessment-api/pkg/errors"
	"github.com/noah-isme/sma-assessment-api/pkg/lock"
)

const defaultGSALockTTL = 10 * time.Second

// gsaGuard serialises mutations of one GSA's gate and marksheets.
type gsaGuard struct {
	locker  lock.Locker
	ttl     time.Duration
	metrics *MetricsService
}

func newGSAGuard(locker lock.Locker, ttl time.Duration, metrics *MetricsService) gsaGuard {
	if ttl <= 0 {
		ttl = defaultGSALockTTL
	}
	return gsaGuard{locker: locker, ttl: ttl, metrics: metrics}
}

func (g gsaGuard) run(ctx context.Context, gsaID string, fn func() error) error {
	if g.locker == nil {
		return fn()
	}
	start := time.Now()
	release, err := g.locker.Acquire(ctx, "gsa:"+gsaID, g.ttl)
	g.metrics.ObserveLockWait(time.Since(start))
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return appErrors.Clone(appErrors.ErrLocked, "assessment is being updated by another request, retry later")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire assessment lock")
	}
	defer release()
	return fn()
}
