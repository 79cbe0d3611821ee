// internal/notification/repository.go

package notification

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines the mailing data access interface
type Repository interface {
	// Recipients returns users matching the segment, ordered by registration
	Recipients(ctx context.Context, segment *Segment) ([]int64, error)

	CreateMailing(ctx context.Context, id uuid.UUID, adminTgID int64, segment *Segment, total int) error
	FinishMailing(ctx context.Context, report *Report) error
	ListMailings(ctx context.Context, limit int) ([]*MailingRecord, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Recipients(ctx context.Context, segment *Segment) ([]int64, error) {
	var rows []Recipient
	err := r.db.SelectContext(ctx, &rows, `
        SELECT
            u.tg_id, u.year,
            MAX(o.name) FILTER (WHERE c.name = 'gender')   AS gender,
            MAX(o.name) FILTER (WHERE c.name = 'district') AS district,
            MAX(o.name) FILTER (WHERE c.name = 'target')   AS target
        FROM users u
        LEFT JOIN user_options uo ON uo.user_id = u.id AND uo.selected
        LEFT JOIN options o ON o.id = uo.option_id
        LEFT JOIN option_categories c ON c.id = o.category_id
        GROUP BY u.id
        ORDER BY u.id`)
	if err != nil {
		return nil, fmt.Errorf("load recipients: %w", err)
	}

	ids := make([]int64, 0, len(rows))
	for i := range rows {
		if segment.Matches(&rows[i]) {
			ids = append(ids, rows[i].TgID)
		}
	}
	return ids, nil
}

func (r *postgresRepository) CreateMailing(ctx context.Context, id uuid.UUID, adminTgID int64, segment *Segment, total int) error {
	raw, err := json.Marshal(segment)
	if err != nil {
		return fmt.Errorf("encode segment: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
        INSERT INTO mailings (id, admin_tg_id, segment, total)
        VALUES ($1, $2, $3, $4)`, id, adminTgID, raw, total)
	if err != nil {
		return fmt.Errorf("create mailing %s: %w", id, err)
	}
	return nil
}

func (r *postgresRepository) FinishMailing(ctx context.Context, report *Report) error {
	_, err := r.db.ExecContext(ctx, `
        UPDATE mailings
        SET success = $2, errors = $3, finished_at = $4
        WHERE id = $1`, report.JobID, report.Success, report.Errors, report.FinishedAt)
	if err != nil {
		return fmt.Errorf("finish mailing %s: %w", report.JobID, err)
	}
	return nil
}

func (r *postgresRepository) ListMailings(ctx context.Context, limit int) ([]*MailingRecord, error) {
	var records []*MailingRecord
	err := r.db.SelectContext(ctx, &records, `
        SELECT id, admin_tg_id, segment, total, success, errors, started_at, finished_at
        FROM mailings
        ORDER BY started_at DESC
        LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list mailings: %w", err)
	}
	return records, nil
}
