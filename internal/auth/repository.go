// internal/auth/repository.go

package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Repository reads and writes the users.is_admin flag
type Repository interface {
	IsAdmin(ctx context.Context, tgID int64) (bool, error)
	ListAdmins(ctx context.Context) ([]*Admin, error)
	SetAdmin(ctx context.Context, tgID int64, isAdmin bool) error
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) IsAdmin(ctx context.Context, tgID int64) (bool, error) {
	var isAdmin bool
	err := r.db.GetContext(ctx, &isAdmin, `SELECT is_admin FROM users WHERE tg_id = $1`, tgID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check admin %d: %w", tgID, err)
	}
	return isAdmin, nil
}

func (r *postgresRepository) ListAdmins(ctx context.Context) ([]*Admin, error) {
	var admins []*Admin
	err := r.db.SelectContext(ctx, &admins, `
        SELECT tg_id, username, first_name
        FROM users
        WHERE is_admin
        ORDER BY tg_id`)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	return admins, nil
}

func (r *postgresRepository) SetAdmin(ctx context.Context, tgID int64, isAdmin bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_admin = $2, updated_at = NOW() WHERE tg_id = $1`, tgID, isAdmin)
	if err != nil {
		return fmt.Errorf("set admin %d: %w", tgID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}
