// internal/common/database/migrations.go
// Idempotent schema creation and option catalogue seeding

package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/weekender/weekender-bot/internal/common/logging"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
        id BIGSERIAL PRIMARY KEY,
        tg_id BIGINT UNIQUE NOT NULL,
        first_name VARCHAR(64),
        username VARCHAR(64),
        year INTEGER,
        profession VARCHAR(50),
        about TEXT,
        points INTEGER NOT NULL DEFAULT 100,
        total_likes INTEGER NOT NULL DEFAULT 0 CHECK (total_likes >= 0),
        is_admin BOOLEAN NOT NULL DEFAULT FALSE,
        photo_ids TEXT[] NOT NULL DEFAULT '{}',
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    )`,

	`CREATE INDEX IF NOT EXISTS idx_users_username ON users (LOWER(username))`,

	`CREATE TABLE IF NOT EXISTS option_categories (
        id SERIAL PRIMARY KEY,
        name VARCHAR(40) UNIQUE NOT NULL
    )`,

	`CREATE TABLE IF NOT EXISTS options (
        id SERIAL PRIMARY KEY,
        category_id INTEGER NOT NULL REFERENCES option_categories(id) ON DELETE CASCADE,
        name VARCHAR(40) NOT NULL,
        position INTEGER NOT NULL DEFAULT 0,
        UNIQUE (category_id, name)
    )`,

	`CREATE TABLE IF NOT EXISTS user_options (
        user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
        option_id INTEGER NOT NULL REFERENCES options(id) ON DELETE CASCADE,
        selected BOOLEAN NOT NULL DEFAULT TRUE,
        PRIMARY KEY (user_id, option_id)
    )`,

	`CREATE TABLE IF NOT EXISTS events (
        id BIGSERIAL PRIMARY KEY,
        gender VARCHAR(20),
        age_range VARCHAR(20),
        status VARCHAR(20),
        url VARCHAR(255) NOT NULL DEFAULT '',
        description TEXT NOT NULL DEFAULT '',
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    )`,

	`CREATE TABLE IF NOT EXISTS event_interests (
        event_id BIGINT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
        option_id INTEGER NOT NULL REFERENCES options(id) ON DELETE CASCADE,
        PRIMARY KEY (event_id, option_id)
    )`,

	`CREATE TABLE IF NOT EXISTS reactions (
        id BIGSERIAL PRIMARY KEY,
        kind VARCHAR(10) NOT NULL CHECK (kind IN ('like', 'friend')),
        from_user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
        to_user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
        is_reciprocated BOOLEAN NOT NULL DEFAULT FALSE,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        UNIQUE (kind, from_user_id, to_user_id),
        CHECK (from_user_id <> to_user_id)
    )`,

	`CREATE INDEX IF NOT EXISTS idx_reactions_to ON reactions (kind, to_user_id)`,

	`CREATE TABLE IF NOT EXISTS support_tickets (
        id BIGSERIAL PRIMARY KEY,
        user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
        is_active BOOLEAN NOT NULL DEFAULT TRUE,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    )`,

	`CREATE INDEX IF NOT EXISTS idx_support_tickets_active ON support_tickets (user_id) WHERE is_active`,

	`CREATE TABLE IF NOT EXISTS support_messages (
        id BIGSERIAL PRIMARY KEY,
        ticket_id BIGINT NOT NULL REFERENCES support_tickets(id) ON DELETE CASCADE,
        text TEXT NOT NULL,
        is_from_user BOOLEAN NOT NULL DEFAULT TRUE,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    )`,

	`CREATE TABLE IF NOT EXISTS mailings (
        id UUID PRIMARY KEY,
        admin_tg_id BIGINT NOT NULL,
        segment JSONB NOT NULL,
        total INTEGER NOT NULL DEFAULT 0,
        success INTEGER NOT NULL DEFAULT 0,
        errors INTEGER NOT NULL DEFAULT 0,
        started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        finished_at TIMESTAMPTZ
    )`,
}

// SeedOptions is the option catalogue installed on first start, in display order
var SeedOptions = map[string][]string{
	"gender":     {"Женский", "Мужской"},
	"status":     {"Свободен", "В отношениях"},
	"target":     {"Дружба", "Отношения"},
	"district":   {"ЦАО", "ЗАО", "СЗАО", "САО", "СВАО", "ВАО", "ЮВАО", "ЮАО", "ЮЗАО"},
	"age_ranges": {"18-24", "25-34", "35-44", "45-54", "55+"},
	"interest": {
		"Активный отдых", "Вечеринки", "Гастрономия", "Искусство", "Кино", "Книги",
		"Музыка", "Настолки", "Путешествия", "Спорт", "Танцы", "Театр",
	},
}

// RunMigrations creates missing tables and seeds the option catalogue
func RunMigrations(ctx context.Context, db *sqlx.DB) error {
	logger := logging.Component("migrations")

	var usersExist bool
	err := db.QueryRowContext(ctx, `
        SELECT EXISTS (
            SELECT FROM information_schema.tables
            WHERE table_schema = 'public' AND table_name = 'users'
        )`).Scan(&usersExist)
	if err != nil {
		return fmt.Errorf("failed to check tables: %w", err)
	}
	if usersExist {
		logger.Info().Msg("tables already exist, applying missing migrations")
	}

	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	if err := seedOptions(ctx, db); err != nil {
		return err
	}

	logger.Info().Int("statements", len(schema)).Msg("migrations applied")
	return nil
}

func seedOptions(ctx context.Context, db *sqlx.DB) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	for category, names := range SeedOptions {
		var categoryID int
		err := tx.GetContext(ctx, &categoryID, `
            INSERT INTO option_categories (name) VALUES ($1)
            ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
            RETURNING id`, category)
		if err != nil {
			return fmt.Errorf("failed to seed category %s: %w", category, err)
		}

		for pos, name := range names {
			_, err := tx.ExecContext(ctx, `
                INSERT INTO options (category_id, name, position) VALUES ($1, $2, $3)
                ON CONFLICT (category_id, name) DO NOTHING`, categoryID, name, pos)
			if err != nil {
				return fmt.Errorf("failed to seed option %s/%s: %w", category, name, err)
			}
		}
	}

	return tx.Commit()
}
