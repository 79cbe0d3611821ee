package dating

import (
	"context"
	"time"

	"github.com/weekender/weekender-bot/internal/common/logging"
)

type Scheduler struct {
	service Service
}

func NewScheduler(service Service) *Scheduler {
	return &Scheduler{service: service}
}

func (s *Scheduler) Start(ctx context.Context) {
	// Repair like counters nightly at 4 AM
	go s.runDaily(ctx, 4, 0, s.service.ReconcileLikes)
}

func (s *Scheduler) runDaily(ctx context.Context, hour, minute int, task func(context.Context) error) {
	logger := logging.Component("dating-scheduler")
	for {
		timer := time.NewTimer(untilNext(time.Now(), hour, minute))

		select {
		case <-timer.C:
			if err := task(ctx); err != nil {
				logger.Error().Err(err).Msg("scheduled task failed")
			}
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

// untilNext is the wait until the next hour:minute strictly after now
func untilNext(now time.Time, hour, minute int) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next.Sub(now)
}
