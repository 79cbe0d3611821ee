// internal/events/repository.go

package events

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type Repository interface {
	Create(ctx context.Context, req *CreateEventRequest) (*Event, error)
	Get(ctx context.Context, id int64) (*Event, error)
	List(ctx context.Context, filter ListFilter) ([]*Event, error)
	Delete(ctx context.Context, id int64) error
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

const eventSelect = `
    SELECT
        e.id, e.gender, e.age_range, e.status, e.url, e.description, e.created_at,
        COALESCE(ARRAY_AGG(o.name ORDER BY o.position) FILTER (WHERE o.id IS NOT NULL), '{}') AS interests
    FROM events e
    LEFT JOIN event_interests ei ON ei.event_id = e.id
    LEFT JOIN options o ON o.id = ei.option_id`

// Create inserts the event and links its interests in one transaction
func (r *postgresRepository) Create(ctx context.Context, req *CreateEventRequest) (*Event, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create event: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.GetContext(ctx, &id, `
        INSERT INTO events (gender, age_range, status, url, description)
        VALUES (NULLIF($1, ''), NULLIF($2, ''), NULLIF($3, ''), $4, $5)
        RETURNING id`, req.Gender, req.AgeRange, req.Status, req.URL, req.Description)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}

	if len(req.Interests) > 0 {
		var optionIDs []int64
		err = tx.SelectContext(ctx, &optionIDs, `
            SELECT o.id
            FROM options o
            JOIN option_categories c ON c.id = o.category_id
            WHERE c.name = 'interest' AND o.name = ANY($1)`, pq.Array(req.Interests))
		if err != nil {
			return nil, fmt.Errorf("resolve event interests: %w", err)
		}
		if len(optionIDs) != len(req.Interests) {
			return nil, ErrUnknownInterest
		}

		_, err = tx.ExecContext(ctx, `
            INSERT INTO event_interests (event_id, option_id)
            SELECT $1, UNNEST($2::int[])`, id, pq.Array(optionIDs))
		if err != nil {
			return nil, fmt.Errorf("link event interests: %w", err)
		}
	}

	var event Event
	if err := tx.GetContext(ctx, &event, eventSelect+` WHERE e.id = $1 GROUP BY e.id`, id); err != nil {
		return nil, fmt.Errorf("reload event %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *postgresRepository) Get(ctx context.Context, id int64) (*Event, error) {
	var event Event
	err := r.db.GetContext(ctx, &event, eventSelect+` WHERE e.id = $1 GROUP BY e.id`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("get event %d: %w", id, err)
	}
	return &event, nil
}

func (r *postgresRepository) List(ctx context.Context, filter ListFilter) ([]*Event, error) {
	var out []*Event
	err := r.db.SelectContext(ctx, &out,
		eventSelect+` GROUP BY e.id ORDER BY e.created_at DESC, e.id DESC LIMIT $1 OFFSET $2`,
		filter.Limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return out, nil
}

func (r *postgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrEventNotFound
	}
	return nil
}
