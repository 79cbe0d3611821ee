package dating

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	// Toggle adds the reaction if absent or removes it if present, atomically
	Toggle(ctx context.Context, fromTgID, toTgID int64, kind Kind) (*ToggleResult, error)
	Snapshot(ctx context.Context, tgID int64) (*Snapshot, error)
	ListReactions(ctx context.Context, tgID int64) ([]*Reaction, error)

	// ReconcileLikes rewrites users.total_likes from the reactions table
	ReconcileLikes(ctx context.Context) (int64, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Toggle(ctx context.Context, fromTgID, toTgID int64, kind Kind) (*ToggleResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin toggle: %w", err)
	}
	defer tx.Rollback()

	// Locking both users in id order serialises concurrent toggles on the pair
	var users []struct {
		ID   int64 `db:"id"`
		TgID int64 `db:"tg_id"`
	}
	err = tx.SelectContext(ctx, &users, `
        SELECT id, tg_id FROM users
        WHERE tg_id IN ($1, $2)
        ORDER BY id
        FOR UPDATE`, fromTgID, toTgID)
	if err != nil {
		return nil, fmt.Errorf("lock users: %w", err)
	}
	if len(users) != 2 {
		return nil, ErrUserNotFound
	}
	fromID, toID := users[0].ID, users[1].ID
	if users[0].TgID != fromTgID {
		fromID, toID = toID, fromID
	}

	result := &ToggleResult{Kind: kind}

	res, err := tx.ExecContext(ctx, `
        DELETE FROM reactions
        WHERE kind = $1 AND from_user_id = $2 AND to_user_id = $3`, kind, fromID, toID)
	if err != nil {
		return nil, fmt.Errorf("delete reaction: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}

	if removed > 0 {
		if _, err := tx.ExecContext(ctx, `
            UPDATE reactions SET is_reciprocated = FALSE
            WHERE kind = $1 AND from_user_id = $2 AND to_user_id = $3`, kind, toID, fromID); err != nil {
			return nil, fmt.Errorf("clear reciprocity: %w", err)
		}
		if kind == KindLike {
			if _, err := tx.ExecContext(ctx, `
                UPDATE users SET total_likes = GREATEST(total_likes - 1, 0) WHERE id = $1`, toID); err != nil {
				return nil, fmt.Errorf("decrement likes: %w", err)
			}
		}
		return commit(tx, result)
	}

	var reverse bool
	err = tx.GetContext(ctx, &reverse, `
        SELECT EXISTS (
            SELECT 1 FROM reactions
            WHERE kind = $1 AND from_user_id = $2 AND to_user_id = $3
        )`, kind, toID, fromID)
	if err != nil {
		return nil, fmt.Errorf("check reciprocity: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
        INSERT INTO reactions (kind, from_user_id, to_user_id, is_reciprocated)
        VALUES ($1, $2, $3, $4)`, kind, fromID, toID, reverse); err != nil {
		return nil, fmt.Errorf("insert reaction: %w", err)
	}
	result.Added = true

	if reverse {
		if _, err := tx.ExecContext(ctx, `
            UPDATE reactions SET is_reciprocated = TRUE
            WHERE kind = $1 AND from_user_id = $2 AND to_user_id = $3`, kind, toID, fromID); err != nil {
			return nil, fmt.Errorf("mark reciprocity: %w", err)
		}
		result.Mutual = true
	}

	if kind == KindLike {
		if _, err := tx.ExecContext(ctx, `
            UPDATE users SET total_likes = total_likes + 1 WHERE id = $1`, toID); err != nil {
			return nil, fmt.Errorf("increment likes: %w", err)
		}
	}

	return commit(tx, result)
}

func commit(tx *sqlx.Tx, result *ToggleResult) (*ToggleResult, error) {
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit toggle: %w", err)
	}
	return result, nil
}

func (r *postgresRepository) Snapshot(ctx context.Context, tgID int64) (*Snapshot, error) {
	var rows []struct {
		Kind           Kind  `db:"kind"`
		ToTgID         int64 `db:"to_tg_id"`
		IsReciprocated bool  `db:"is_reciprocated"`
	}
	err := r.db.SelectContext(ctx, &rows, `
        SELECT r.kind, t.tg_id AS to_tg_id, r.is_reciprocated
        FROM reactions r
        JOIN users f ON f.id = r.from_user_id
        JOIN users t ON t.id = r.to_user_id
        WHERE f.tg_id = $1
        ORDER BY r.created_at`, tgID)
	if err != nil {
		return nil, fmt.Errorf("load reactions of %d: %w", tgID, err)
	}

	snap := &Snapshot{}
	for _, row := range rows {
		if row.Kind == KindLike {
			snap.Liked = append(snap.Liked, row.ToTgID)
		} else {
			snap.Friended = append(snap.Friended, row.ToTgID)
		}
		if row.IsReciprocated && !snap.IsMutual(row.ToTgID) {
			snap.Reciprocated = append(snap.Reciprocated, row.ToTgID)
		}
	}
	return snap, nil
}

func (r *postgresRepository) ListReactions(ctx context.Context, tgID int64) ([]*Reaction, error) {
	var reactions []*Reaction
	err := r.db.SelectContext(ctx, &reactions, `
        SELECT r.id, r.kind, f.tg_id AS from_tg_id, t.tg_id AS to_tg_id,
               r.is_reciprocated, r.created_at
        FROM reactions r
        JOIN users f ON f.id = r.from_user_id
        JOIN users t ON t.id = r.to_user_id
        WHERE f.tg_id = $1 OR t.tg_id = $1
        ORDER BY r.created_at DESC`, tgID)
	if err != nil {
		return nil, fmt.Errorf("list reactions of %d: %w", tgID, err)
	}
	return reactions, nil
}

func (r *postgresRepository) ReconcileLikes(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
        UPDATE users u
        SET total_likes = c.likes
        FROM (
            SELECT u2.id, COUNT(r.id) AS likes
            FROM users u2
            LEFT JOIN reactions r ON r.to_user_id = u2.id AND r.kind = 'like'
            GROUP BY u2.id
        ) c
        WHERE c.id = u.id AND u.total_likes <> c.likes`)
	if err != nil {
		return 0, fmt.Errorf("reconcile likes: %w", err)
	}
	return res.RowsAffected()
}
