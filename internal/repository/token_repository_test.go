package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devmadlani/auth-service/internal/model"
)

func TestTokenRepo_Lifecycle(t *testing.T) {
	t.Parallel()
	db, mock := newMock(t)
	repo := NewTokenRepo(db)

	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	expires := created.Add(365 * 24 * time.Hour)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO refresh_tokens (user_id, expires_at, created_at) VALUES (?, ?, ?)")).
		WithArgs(uint64(7), expires, created).
		WillReturnResult(sqlmock.NewResult(100, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, expires_at, created_at FROM refresh_tokens WHERE id = ?")).
		WithArgs(uint64(100)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "expires_at", "created_at"}).AddRow(100, 7, expires, created))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM refresh_tokens WHERE id = ?")).
		WithArgs(uint64(100)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM refresh_tokens WHERE id = ?")).
		WithArgs(uint64(100)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM refresh_tokens WHERE id").
		WithArgs(uint64(100)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "expires_at", "created_at"}))

	rec := &model.RefreshToken{UserID: 7, CreatedAt: created, ExpiresAt: expires}
	require.NoError(t, repo.Create(context.Background(), rec))
	assert.Equal(t, uint64(100), rec.ID)

	got, err := repo.GetByID(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), got.UserID)
	assert.True(t, got.ExpiresAt.Equal(expires))

	deleted, err := repo.Delete(context.Background(), 100)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(context.Background(), 100)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = repo.GetByID(context.Background(), 100)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTokenRepo_DeleteExpired(t *testing.T) {
	t.Parallel()
	db, mock := newMock(t)
	cutoff := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM refresh_tokens WHERE expires_at < ?")).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 12))

	n, err := NewTokenRepo(db).DeleteExpired(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)
}

func TestStore_WithTx(t *testing.T) {
	t.Parallel()

	t.Run("commits on success", func(t *testing.T) {
		t.Parallel()
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("INSERT INTO refresh_tokens").WillReturnResult(sqlmock.NewResult(2, 1))
		mock.ExpectCommit()

		err := NewStore(db).WithTx(context.Background(), func(tx *Store) error {
			if err := tx.Users.Create(context.Background(), &model.User{}); err != nil {
				return err
			}
			return tx.Tokens.Create(context.Background(), &model.RefreshToken{UserID: 1})
		})
		require.NoError(t, err)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		t.Parallel()
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("INSERT INTO refresh_tokens").WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		err := NewStore(db).WithTx(context.Background(), func(tx *Store) error {
			if err := tx.Users.Create(context.Background(), &model.User{}); err != nil {
				return err
			}
			return tx.Tokens.Create(context.Background(), &model.RefreshToken{UserID: 1})
		})
		assert.EqualError(t, err, "disk full")
	})

	t.Run("nested reuses transaction", func(t *testing.T) {
		t.Parallel()
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectCommit()

		calls := 0
		err := NewStore(db).WithTx(context.Background(), func(tx *Store) error {
			return tx.WithTx(context.Background(), func(inner *Store) error {
				calls++
				assert.Same(t, tx, inner)
				return nil
			})
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})
}
