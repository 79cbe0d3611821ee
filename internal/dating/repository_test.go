package dating

import (
	"context"
	"errors"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weekender/weekender-bot/internal/common/database"
)

func newMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return NewPostgresRepository(sqlx.NewDb(mockDB, "postgres")), mock
}

func lockRows(pairs ...int64) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "tg_id"})
	for i := 0; i+1 < len(pairs); i += 2 {
		rows.AddRow(pairs[i], pairs[i+1])
	}
	return rows
}

var (
	lockQuery       = regexp.QuoteMeta("ORDER BY id") + `\s+FOR UPDATE`
	deleteReaction  = regexp.QuoteMeta("DELETE FROM reactions")
	reverseExists   = regexp.QuoteMeta("SELECT EXISTS")
	insertReaction  = regexp.QuoteMeta("INSERT INTO reactions")
	markReciprocity = regexp.QuoteMeta("UPDATE reactions SET is_reciprocated = TRUE")
	clearReciprocal = regexp.QuoteMeta("UPDATE reactions SET is_reciprocated = FALSE")
	incrementLikes  = regexp.QuoteMeta("total_likes = total_likes + 1")
	decrementLikes  = regexp.QuoteMeta("GREATEST(total_likes - 1, 0)")
)

func TestPostgresToggle_ReverseLikeIsMutual(t *testing.T) {
	repo, mock := newMockRepo(t)

	// users 1 and 2 have row ids 10 and 20; user 2 likes user 1 back
	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).WithArgs(int64(2), int64(1)).WillReturnRows(lockRows(10, 1, 20, 2))
	mock.ExpectExec(deleteReaction).WithArgs("like", int64(20), int64(10)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(reverseExists).WithArgs("like", int64(10), int64(20)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec(insertReaction).WithArgs("like", int64(20), int64(10), true).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(markReciprocity).WithArgs("like", int64(10), int64(20)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(incrementLikes).WithArgs(int64(10)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := repo.Toggle(context.Background(), 2, 1, KindLike)
	require.NoError(t, err)
	assert.Equal(t, &ToggleResult{Kind: KindLike, Added: true, Mutual: true}, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresToggle_FirstFriendRequest(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).WithArgs(int64(1), int64(2)).WillReturnRows(lockRows(10, 1, 20, 2))
	mock.ExpectExec(deleteReaction).WithArgs("friend", int64(10), int64(20)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(reverseExists).WithArgs("friend", int64(20), int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(insertReaction).WithArgs("friend", int64(10), int64(20), false).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	res, err := repo.Toggle(context.Background(), 1, 2, KindFriend)
	require.NoError(t, err)
	assert.True(t, res.Added)
	assert.False(t, res.Mutual)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresToggle_UnlikeClearsReciprocity(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).WithArgs(int64(1), int64(2)).WillReturnRows(lockRows(10, 1, 20, 2))
	mock.ExpectExec(deleteReaction).WithArgs("like", int64(10), int64(20)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(clearReciprocal).WithArgs("like", int64(20), int64(10)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(decrementLikes).WithArgs(int64(20)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := repo.Toggle(context.Background(), 1, 2, KindLike)
	require.NoError(t, err)
	assert.False(t, res.Added)
	assert.False(t, res.Mutual)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresToggle_UnknownUser(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).WithArgs(int64(1), int64(3)).WillReturnRows(lockRows(10, 1))
	mock.ExpectRollback()

	_, err := repo.Toggle(context.Background(), 1, 3, KindLike)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresToggle_FailureRollsBack(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).WithArgs(int64(1), int64(2)).WillReturnRows(lockRows(10, 1, 20, 2))
	mock.ExpectExec(deleteReaction).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := repo.Toggle(context.Background(), 1, 2, KindLike)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSnapshot(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE f.tg_id = $1")).WithArgs(int64(1)).WillReturnRows(
		sqlmock.NewRows([]string{"kind", "to_tg_id", "is_reciprocated"}).
			AddRow("like", int64(2), true).
			AddRow("friend", int64(2), true).
			AddRow("friend", int64(3), false))

	snap, err := repo.Snapshot(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, snap.Liked)
	assert.Equal(t, []int64{2, 3}, snap.Friended)
	assert.Equal(t, []int64{2}, snap.Reciprocated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Runs only against a disposable database named by TEST_DATABASE_URL
func TestPostgresRepository_Integration(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.NewPostgresDB(ctx, database.DefaultPostgresConfig(url))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.RunMigrations(ctx, db))

	base := 7_000_000_000 + time.Now().UnixNano()%1_000_000_000
	anna, boris := base+1, base+2
	for _, id := range []int64{anna, boris} {
		_, err := db.ExecContext(ctx, `INSERT INTO users (tg_id) VALUES ($1)`, id)
		require.NoError(t, err)
	}
	t.Cleanup(func() {
		db.ExecContext(context.Background(), `DELETE FROM users WHERE tg_id IN ($1, $2)`, anna, boris)
	})

	repo := NewPostgresRepository(db)
	likes := func(tgID int64) int {
		var n int
		require.NoError(t, db.GetContext(ctx, &n, `SELECT total_likes FROM users WHERE tg_id = $1`, tgID))
		return n
	}
	reciprocated := func(from, to int64) bool {
		var v bool
		require.NoError(t, db.GetContext(ctx, &v, `
            SELECT r.is_reciprocated FROM reactions r
            JOIN users f ON f.id = r.from_user_id
            JOIN users t ON t.id = r.to_user_id
            WHERE r.kind = 'like' AND f.tg_id = $1 AND t.tg_id = $2`, from, to))
		return v
	}

	res, err := repo.Toggle(ctx, anna, boris, KindLike)
	require.NoError(t, err)
	assert.True(t, res.Added)
	assert.False(t, res.Mutual)
	assert.Equal(t, 1, likes(boris))
	assert.False(t, reciprocated(anna, boris))

	res, err = repo.Toggle(ctx, boris, anna, KindLike)
	require.NoError(t, err)
	assert.True(t, res.Mutual)
	assert.True(t, reciprocated(anna, boris))
	assert.True(t, reciprocated(boris, anna))
	assert.Equal(t, 1, likes(anna))

	snap, err := repo.Snapshot(ctx, anna)
	require.NoError(t, err)
	assert.True(t, snap.Has(KindLike, boris))
	assert.True(t, snap.IsMutual(boris))

	res, err = repo.Toggle(ctx, anna, boris, KindLike)
	require.NoError(t, err)
	assert.False(t, res.Added)
	assert.Equal(t, 0, likes(boris))
	assert.False(t, reciprocated(boris, anna))

	// drifted counter never goes below zero
	_, err = db.ExecContext(ctx, `UPDATE users SET total_likes = 0 WHERE tg_id = $1`, anna)
	require.NoError(t, err)
	_, err = repo.Toggle(ctx, boris, anna, KindLike)
	require.NoError(t, err)
	assert.Equal(t, 0, likes(anna))

	// friend requests leave the like counter alone
	_, err = repo.Toggle(ctx, anna, boris, KindFriend)
	require.NoError(t, err)
	assert.Equal(t, 0, likes(boris))

	_, err = db.ExecContext(ctx, `UPDATE users SET total_likes = 5 WHERE tg_id = $1`, boris)
	require.NoError(t, err)
	_, err = repo.ReconcileLikes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, likes(boris))

	_, err = repo.Toggle(ctx, anna, base+9, KindLike)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
