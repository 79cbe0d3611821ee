// internal/profile/repository.go

package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Repository defines the profile data access interface
type Repository interface {
	// Users
	UpsertUser(ctx context.Context, tgID int64, firstName, username string) error
	GetUser(ctx context.Context, tgID int64) (*User, error)
	GetProfile(ctx context.Context, tgID int64) (*Profile, error)
	GetProfileByUsername(ctx context.Context, username string) (*Profile, error)
	SavePhotos(ctx context.Context, tgID int64, photoIDs []string) error

	// Questionnaire
	SaveProfile(ctx context.Context, tgID int64, draft *Draft) error
	ReplaceInterests(ctx context.Context, tgID int64, interests []string) error

	// Options
	ListOptions(ctx context.Context, category Category) ([]Option, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) UpsertUser(ctx context.Context, tgID int64, firstName, username string) error {
	query := `
        INSERT INTO users (tg_id, first_name, username)
        VALUES ($1, NULLIF($2, ''), NULLIF($3, ''))
        ON CONFLICT (tg_id) DO UPDATE SET
            first_name = EXCLUDED.first_name,
            username = EXCLUDED.username,
            updated_at = NOW()`

	if _, err := r.db.ExecContext(ctx, query, tgID, firstName, username); err != nil {
		return fmt.Errorf("upsert user %d: %w", tgID, err)
	}
	return nil
}

func (r *postgresRepository) GetUser(ctx context.Context, tgID int64) (*User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, `
        SELECT id, tg_id, first_name, username, year, profession, about, points,
               total_likes, is_admin, photo_ids, created_at, updated_at
        FROM users WHERE tg_id = $1`, tgID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user %d: %w", tgID, err)
	}
	return &u, nil
}

const profileSelect = `
    SELECT
        u.id, u.tg_id, u.first_name, u.username, u.year, u.profession, u.about,
        u.points, u.total_likes, u.is_admin, u.photo_ids, u.created_at, u.updated_at,
        MAX(o.name) FILTER (WHERE c.name = 'gender')   AS gender,
        MAX(o.name) FILTER (WHERE c.name = 'status')   AS status,
        MAX(o.name) FILTER (WHERE c.name = 'target')   AS target,
        MAX(o.name) FILTER (WHERE c.name = 'district') AS district,
        COALESCE(ARRAY_AGG(o.name ORDER BY o.position) FILTER (WHERE c.name = 'interest'), '{}') AS interests
    FROM users u
    LEFT JOIN user_options uo ON uo.user_id = u.id AND uo.selected
    LEFT JOIN options o ON o.id = uo.option_id
    LEFT JOIN option_categories c ON c.id = o.category_id`

func (r *postgresRepository) GetProfile(ctx context.Context, tgID int64) (*Profile, error) {
	return r.getProfile(ctx, profileSelect+` WHERE u.tg_id = $1 GROUP BY u.id`, tgID)
}

func (r *postgresRepository) GetProfileByUsername(ctx context.Context, username string) (*Profile, error) {
	return r.getProfile(ctx, profileSelect+` WHERE LOWER(u.username) = LOWER($1) GROUP BY u.id`, username)
}

func (r *postgresRepository) getProfile(ctx context.Context, query string, arg interface{}) (*Profile, error) {
	var p Profile
	if err := r.db.GetContext(ctx, &p, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

func (r *postgresRepository) SavePhotos(ctx context.Context, tgID int64, photoIDs []string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET photo_ids = $2, updated_at = NOW() WHERE tg_id = $1`,
		tgID, pq.Array(photoIDs))
	if err != nil {
		return fmt.Errorf("save photos for %d: %w", tgID, err)
	}
	return expectRow(res)
}

// SaveProfile writes scalar answers and replaces every selected option
func (r *postgresRepository) SaveProfile(ctx context.Context, tgID int64, d *Draft) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save profile: %w", err)
	}
	defer tx.Rollback()

	var userID int64
	err = tx.GetContext(ctx, &userID, `
        UPDATE users
        SET year = $2, profession = $3, about = NULLIF($4, ''), updated_at = NOW()
        WHERE tg_id = $1
        RETURNING id`, tgID, d.Age, d.Profession, d.About)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		return fmt.Errorf("update user %d: %w", tgID, err)
	}

	wanted := map[Category][]string{
		CategoryGender:   {d.Gender},
		CategoryStatus:   {d.Status},
		CategoryTarget:   {d.Target},
		CategoryDistrict: {d.District},
		CategoryInterest: d.Interests,
	}
	var optionIDs []int64
	for category, names := range wanted {
		ids, err := resolveOptions(ctx, tx, category, names)
		if err != nil {
			return err
		}
		optionIDs = append(optionIDs, ids...)
	}

	_, err = tx.ExecContext(ctx, `
        DELETE FROM user_options uo
        USING options o, option_categories c
        WHERE uo.user_id = $1 AND o.id = uo.option_id AND c.id = o.category_id
          AND c.name <> 'age_ranges'`, userID)
	if err != nil {
		return fmt.Errorf("clear options for %d: %w", tgID, err)
	}

	if err := insertOptions(ctx, tx, userID, optionIDs); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *postgresRepository) ReplaceInterests(ctx context.Context, tgID int64, interests []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace interests: %w", err)
	}
	defer tx.Rollback()

	var userID int64
	if err := tx.GetContext(ctx, &userID, `SELECT id FROM users WHERE tg_id = $1`, tgID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		return fmt.Errorf("find user %d: %w", tgID, err)
	}

	optionIDs, err := resolveOptions(ctx, tx, CategoryInterest, interests)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
        DELETE FROM user_options uo
        USING options o, option_categories c
        WHERE uo.user_id = $1 AND o.id = uo.option_id AND c.id = o.category_id
          AND c.name = 'interest'`, userID)
	if err != nil {
		return fmt.Errorf("clear interests for %d: %w", tgID, err)
	}

	if err := insertOptions(ctx, tx, userID, optionIDs); err != nil {
		return err
	}
	return tx.Commit()
}

// resolveOptions fails with ErrUnknownOption if any name is not in the catalogue
func resolveOptions(ctx context.Context, tx *sqlx.Tx, category Category, names []string) ([]int64, error) {
	var opts []Option
	err := tx.SelectContext(ctx, &opts, `
        SELECT o.id, c.name AS category, o.name, o.position
        FROM options o
        JOIN option_categories c ON c.id = o.category_id
        WHERE c.name = $1 AND o.name = ANY($2)`, string(category), pq.Array(names))
	if err != nil {
		return nil, fmt.Errorf("resolve %s options: %w", category, err)
	}

	found := make(map[string]int64, len(opts))
	for _, o := range opts {
		found[o.Name] = o.ID
	}
	ids := make([]int64, 0, len(names))
	for _, n := range names {
		id, ok := found[n]
		if !ok {
			return nil, fmt.Errorf("%w: %s %q", ErrUnknownOption, category, n)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func insertOptions(ctx context.Context, tx *sqlx.Tx, userID int64, optionIDs []int64) error {
	if len(optionIDs) == 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
        INSERT INTO user_options (user_id, option_id, selected)
        SELECT $1, UNNEST($2::int[]), TRUE
        ON CONFLICT (user_id, option_id) DO UPDATE SET selected = TRUE`,
		userID, pq.Array(optionIDs))
	if err != nil {
		return fmt.Errorf("insert options for user %d: %w", userID, err)
	}
	return nil
}

func (r *postgresRepository) ListOptions(ctx context.Context, category Category) ([]Option, error) {
	var opts []Option
	err := r.db.SelectContext(ctx, &opts, `
        SELECT o.id, c.name AS category, o.name, o.position
        FROM options o
        JOIN option_categories c ON c.id = o.category_id
        WHERE c.name = $1
        ORDER BY o.position, o.name`, string(category))
	if err != nil {
		return nil, fmt.Errorf("list %s options: %w", category, err)
	}
	return opts, nil
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}
