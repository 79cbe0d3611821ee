// internal/recommend/repository.go
// Subject and candidate pool reads from PostgreSQL

package recommend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Store is the read side the composer needs
type Store interface {
	GetSubject(ctx context.Context, subjectID int64) (*Subject, error)
	GetCandidatePool(ctx context.Context, kind PoolKind) ([]Candidate, error)
	// ResolveInterests returns the names that exist as interest options
	ResolveInterests(ctx context.Context, names []string) ([]string, error)
}

type postgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) Store {
	return &postgresStore{db: db}
}

type subjectRow struct {
	TgID      int64          `db:"tg_id"`
	Year      sql.NullInt64  `db:"year"`
	Gender    sql.NullString `db:"gender"`
	Status    sql.NullString `db:"status"`
	Target    sql.NullString `db:"target"`
	District  sql.NullString `db:"district"`
	Interests pq.StringArray `db:"interests"`
}

// Selected options are pivoted into one column per category.
const userAttributesSelect = `
    SELECT
        u.tg_id,
        u.year,
        MAX(o.name) FILTER (WHERE c.name = 'gender')   AS gender,
        MAX(o.name) FILTER (WHERE c.name = 'status')   AS status,
        MAX(o.name) FILTER (WHERE c.name = 'target')   AS target,
        MAX(o.name) FILTER (WHERE c.name = 'district') AS district,
        COALESCE(ARRAY_AGG(o.name ORDER BY o.name) FILTER (WHERE c.name = 'interest'), '{}') AS interests`

const userAttributesFrom = `
    FROM users u
    LEFT JOIN user_options uo ON uo.user_id = u.id AND uo.selected
    LEFT JOIN options o ON o.id = uo.option_id
    LEFT JOIN option_categories c ON c.id = o.category_id`

func (s *postgresStore) GetSubject(ctx context.Context, subjectID int64) (*Subject, error) {
	query := userAttributesSelect + userAttributesFrom + `
        WHERE u.tg_id = $1
        GROUP BY u.id`

	var row subjectRow
	if err := s.db.GetContext(ctx, &row, query, subjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubjectNotFound
		}
		return nil, fmt.Errorf("get subject %d: %w", subjectID, err)
	}

	return &Subject{
		ID:            row.TgID,
		Age:           nullInt(row.Year),
		Gender:        nullString(row.Gender),
		MaritalStatus: nullString(row.Status),
		Target:        nullString(row.Target),
		District:      nullString(row.District),
		Interests:     []string(row.Interests),
	}, nil
}

func (s *postgresStore) GetCandidatePool(ctx context.Context, kind PoolKind) ([]Candidate, error) {
	switch kind {
	case PoolEvents:
		return s.eventPool(ctx)
	case PoolUsers:
		return s.userPool(ctx)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPool, kind)
	}
}

type eventRow struct {
	ID          int64          `db:"id"`
	AgeRange    sql.NullString `db:"age_range"`
	Gender      sql.NullString `db:"gender"`
	Status      sql.NullString `db:"status"`
	URL         string         `db:"url"`
	Description string         `db:"description"`
	Interests   pq.StringArray `db:"interests"`
}

func (s *postgresStore) eventPool(ctx context.Context) ([]Candidate, error) {
	query := `
        SELECT
            e.id, e.age_range, e.gender, e.status, e.url, e.description,
            COALESCE(ARRAY_AGG(o.name ORDER BY o.name) FILTER (WHERE o.id IS NOT NULL), '{}') AS interests
        FROM events e
        LEFT JOIN event_interests ei ON ei.event_id = e.id
        LEFT JOIN options o ON o.id = ei.option_id
        GROUP BY e.id
        ORDER BY e.id`

	var rows []eventRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("load event pool: %w", err)
	}

	pool := make([]Candidate, 0, len(rows))
	for _, r := range rows {
		pool = append(pool, Candidate{
			ID:            r.ID,
			Kind:          PoolEvents,
			AgeRange:      nullString(r.AgeRange),
			Gender:        nullString(r.Gender),
			MaritalStatus: nullString(r.Status),
			InterestTags:  []string(r.Interests),
			Description:   r.Description,
			URL:           r.URL,
		})
	}
	return pool, nil
}

type userRow struct {
	subjectRow
	FirstName  sql.NullString `db:"first_name"`
	Username   sql.NullString `db:"username"`
	Profession sql.NullString `db:"profession"`
	About      sql.NullString `db:"about"`
	TotalLikes int            `db:"total_likes"`
	PhotoIDs   pq.StringArray `db:"photo_ids"`
}

// userPool only returns users who completed the questionnaire
func (s *postgresStore) userPool(ctx context.Context) ([]Candidate, error) {
	query := userAttributesSelect + `,
            u.first_name, u.username, u.profession, u.about, u.total_likes, u.photo_ids` +
		userAttributesFrom + `
        WHERE u.year IS NOT NULL
        GROUP BY u.id
        ORDER BY u.id`

	var rows []userRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("load user pool: %w", err)
	}

	pool := make([]Candidate, 0, len(rows))
	for _, r := range rows {
		pool = append(pool, Candidate{
			ID:            r.TgID,
			Kind:          PoolUsers,
			Age:           nullInt(r.Year),
			Gender:        nullString(r.Gender),
			MaritalStatus: nullString(r.Status),
			District:      nullString(r.District),
			InterestTags:  []string(r.Interests),
			FirstName:     r.FirstName.String,
			Username:      r.Username.String,
			Target:        nullString(r.Target),
			Profession:    nullString(r.Profession),
			About:         nullString(r.About),
			TotalLikes:    r.TotalLikes,
			PhotoIDs:      []string(r.PhotoIDs),
		})
	}
	return pool, nil
}

func (s *postgresStore) ResolveInterests(ctx context.Context, names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}

	query := `
        SELECT o.name
        FROM options o
        JOIN option_categories c ON c.id = o.category_id
        WHERE c.name = 'interest' AND o.name = ANY($1)`

	var known []string
	if err := s.db.SelectContext(ctx, &known, query, pq.Array(names)); err != nil {
		return nil, fmt.Errorf("resolve interests: %w", err)
	}
	return known, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func nullInt(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	v := int(ni.Int64)
	return &v
}
