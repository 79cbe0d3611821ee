// internal/support/scheduler.go

package support

import (
	"context"
	"time"

	"github.com/weekender/weekender-bot/internal/common/logging"
)

// CleanupJob closes abandoned tickets on a fixed interval
type CleanupJob struct {
	service  Service
	interval time.Duration
	stopCh   chan struct{}
}

// NewCleanupJob creates a new cleanup job
func NewCleanupJob(service Service, interval time.Duration) *CleanupJob {
	if interval == 0 {
		interval = 24 * time.Hour
	}

	return &CleanupJob{
		service:  service,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start blocks until ctx is cancelled or Stop is called
func (j *CleanupJob) Start(ctx context.Context) {
	logger := logging.Component("support-cleanup")
	logger.Info().Dur("interval", j.interval).Msg("starting support cleanup job")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.cleanup(ctx)

	for {
		select {
		case <-ticker.C:
			j.cleanup(ctx)
		case <-j.stopCh:
			logger.Info().Msg("stopping support cleanup job")
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop stops the job
func (j *CleanupJob) Stop() {
	close(j.stopCh)
}

func (j *CleanupJob) cleanup(ctx context.Context) {
	if err := j.service.CloseStale(ctx); err != nil {
		logger := logging.Component("support-cleanup")
		logger.Error().Err(err).Msg("failed to close stale tickets")
	}
}
