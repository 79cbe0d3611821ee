// internal/notification/broadcaster.go

package notification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/weekender/weekender-bot/internal/common/logging"
)

// ErrRecipientUnavailable marks a delivery that failed because of the
// recipient (blocked the bot, deleted account) rather than the transport.
var ErrRecipientUnavailable = errors.New("recipient unavailable")

// Sender delivers one mailing to one chat
type Sender interface {
	SendMailing(ctx context.Context, chatID int64, m *Mailing) error
}

// ProgressFunc receives progress snapshots while a mailing runs
type ProgressFunc func(Progress)

// BroadcasterConfig throttles and protects outbound delivery
type BroadcasterConfig struct {
	Interval       time.Duration // minimum spacing between sends
	Burst          int
	ProgressEvery  int
	BreakerTimeout time.Duration // how long the breaker stays open
}

// DefaultBroadcasterConfig sends one message every two seconds
func DefaultBroadcasterConfig() BroadcasterConfig {
	return BroadcasterConfig{
		Interval:       2 * time.Second,
		Burst:          1,
		ProgressEvery:  10,
		BreakerTimeout: 30 * time.Second,
	}
}

// Broadcaster sends one mailing to many recipients sequentially
type Broadcaster struct {
	sender  Sender
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[struct{}]
	cfg     BroadcasterConfig
}

// NewBroadcaster wires the rate limiter and circuit breaker around a sender
func NewBroadcaster(sender Sender, cfg BroadcasterConfig) *Broadcaster {
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.ProgressEvery < 1 {
		cfg.ProgressEvery = 10
	}

	limit := rate.Inf
	if cfg.Interval > 0 {
		limit = rate.Every(cfg.Interval)
	}

	logger := logging.Component("mailing")
	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "telegram-mailing",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrRecipientUnavailable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("from", from.String()).Str("to", to.String()).Msg("mailing breaker state changed")
			breakerState.Set(stateToFloat(to))
		},
	})

	return &Broadcaster{
		sender:  sender,
		limiter: rate.NewLimiter(limit, cfg.Burst),
		breaker: breaker,
		cfg:     cfg,
	}
}

// Run delivers m to every recipient in order. Individual failures are counted,
// not returned. Cancelling ctx stops the run and returns the partial report.
func (b *Broadcaster) Run(ctx context.Context, jobID uuid.UUID, recipients []int64, m *Mailing, progress ProgressFunc) *Report {
	logger := logging.Component("mailing").With().Str("job_id", jobID.String()).Logger()
	report := &Report{JobID: jobID, Total: len(recipients), StartedAt: time.Now()}

	for i, chatID := range recipients {
		if err := b.limiter.Wait(ctx); err != nil {
			report.Cancelled = true
			break
		}

		if err := b.deliver(ctx, chatID, m); err != nil {
			report.Errors++
			mailingSends.WithLabelValues("error").Inc()
			logger.Debug().Err(err).Int64("chat_id", chatID).Msg("mailing delivery failed")
		} else {
			report.Success++
			mailingSends.WithLabelValues("success").Inc()
		}

		done := i + 1
		if progress != nil && (done%b.cfg.ProgressEvery == 0 || done == len(recipients)) {
			progress(Progress{Done: done, Total: report.Total, Success: report.Success, Errors: report.Errors})
		}
	}

	report.FinishedAt = time.Now()
	mailingDuration.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())
	return report
}

// deliver waits out an open breaker once before giving up on the recipient
func (b *Broadcaster) deliver(ctx context.Context, chatID int64, m *Mailing) error {
	send := func() (struct{}, error) {
		return struct{}{}, b.sender.SendMailing(ctx, chatID, m)
	}

	_, err := b.breaker.Execute(send)
	if !errors.Is(err, gobreaker.ErrOpenState) && !errors.Is(err, gobreaker.ErrTooManyRequests) {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(b.cfg.BreakerTimeout):
	}
	_, err = b.breaker.Execute(send)
	return err
}
