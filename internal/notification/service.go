// internal/notification/service.go

package notification

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/weekender/weekender-bot/internal/common/logging"
)

// Service runs admin mailings
type Service interface {
	CountRecipients(ctx context.Context, segment *Segment) (int, error)
	Broadcast(ctx context.Context, adminTgID int64, segment *Segment, m *Mailing, progress ProgressFunc) (*Report, error)
	History(ctx context.Context, limit int) ([]*MailingRecord, error)
}

// Observer is told about every mailing run, in addition to the caller's progress callback
type Observer interface {
	MailingStarted(jobID uuid.UUID, adminTgID int64, total int)
	MailingProgress(jobID uuid.UUID, p Progress)
	MailingFinished(report *Report)
}

type service struct {
	repo        Repository
	broadcaster *Broadcaster
	observers   []Observer
	running     atomic.Bool
	logger      zerolog.Logger
}

// NewService creates a new mailing service
func NewService(repo Repository, broadcaster *Broadcaster, observers ...Observer) Service {
	return &service{
		repo:        repo,
		broadcaster: broadcaster,
		observers:   observers,
		logger:      logging.Component("mailing"),
	}
}

func (s *service) CountRecipients(ctx context.Context, segment *Segment) (int, error) {
	ids, err := s.repo.Recipients(ctx, segment)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// Broadcast delivers m to the segment. Only one mailing runs at a time.
func (s *service) Broadcast(ctx context.Context, adminTgID int64, segment *Segment, m *Mailing, progress ProgressFunc) (*Report, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrMailingInProgress
	}
	defer s.running.Store(false)

	recipients, err := s.repo.Recipients(ctx, segment)
	if err != nil {
		mailingJobs.WithLabelValues("failed").Inc()
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}

	jobID := uuid.New()
	if err := s.repo.CreateMailing(ctx, jobID, adminTgID, segment, len(recipients)); err != nil {
		mailingJobs.WithLabelValues("failed").Inc()
		return nil, err
	}

	s.logger.Info().
		Str("job_id", jobID.String()).
		Int64("admin_tg_id", adminTgID).
		Int("recipients", len(recipients)).
		Int("media", len(m.Media)).
		Msg("mailing started")

	for _, o := range s.observers {
		o.MailingStarted(jobID, adminTgID, len(recipients))
	}
	observed := func(p Progress) {
		if progress != nil {
			progress(p)
		}
		for _, o := range s.observers {
			o.MailingProgress(jobID, p)
		}
	}

	report := s.broadcaster.Run(ctx, jobID, recipients, m, observed)
	report.AdminTgID = adminTgID
	for _, o := range s.observers {
		o.MailingFinished(report)
	}

	// the audit row is written even when the run was cancelled
	if err := s.repo.FinishMailing(context.WithoutCancel(ctx), report); err != nil {
		s.logger.Error().Err(err).Str("job_id", jobID.String()).Msg("failed to record mailing result")
	}

	outcome := "completed"
	if report.Cancelled {
		outcome = "cancelled"
	}
	mailingJobs.WithLabelValues(outcome).Inc()

	s.logger.Info().
		Str("job_id", jobID.String()).
		Int("total", report.Total).
		Int("success", report.Success).
		Int("errors", report.Errors).
		Bool("cancelled", report.Cancelled).
		Msg("mailing finished")

	return report, nil
}

func (s *service) History(ctx context.Context, limit int) ([]*MailingRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListMailings(ctx, limit)
}
