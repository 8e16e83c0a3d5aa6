package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/audio-upload-service/models"
	"github.com/upb/audio-upload-service/repositories"
	"go.uber.org/zap"
)

var userColumnNames = []string{
	"id", "external_id", "email", "first_name", "last_name", "display_name",
	"is_superuser", "created_at", "updated_at",
}

func TestUserRepository_GetByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db, zap.NewNop())
	now := time.Now().UTC()

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows(userColumnNames).
				AddRow(int64(7), "1000034426", "ivan@yandex.ru", "Ivan", nil, nil, true, now, now))

		user, err := repo.GetByID(context.Background(), 7)
		require.NoError(t, err)
		assert.Equal(t, int64(7), user.ID)
		assert.Equal(t, "1000034426", user.ExternalID)
		require.NotNil(t, user.Email)
		assert.Equal(t, "ivan@yandex.ru", *user.Email)
		assert.Nil(t, user.LastName)
		assert.True(t, user.IsSuperuser)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
			WithArgs(int64(8)).
			WillReturnRows(sqlmock.NewRows(userColumnNames))

		_, err := repo.GetByID(context.Background(), 8)
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})

	t.Run("query error", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
			WithArgs(int64(9)).
			WillReturnError(errors.New("connection reset"))

		_, err := repo.GetByID(context.Background(), 9)
		require.Error(t, err)
		assert.NotErrorIs(t, err, repositories.ErrNotFound)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByExternalID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db, zap.NewNop())
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE external_id = $1")).
		WithArgs("1000034426").
		WillReturnRows(sqlmock.NewRows(userColumnNames).
			AddRow(int64(3), "1000034426", nil, nil, nil, nil, false, now, now))

	user, err := repo.GetByExternalID(context.Background(), "1000034426")
	require.NoError(t, err)
	assert.Equal(t, int64(3), user.ID)
	assert.Nil(t, user.Email)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE external_id = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(userColumnNames))

	_, err = repo.GetByExternalID(context.Background(), "missing")
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpsertFromLogin(t *testing.T) {
	upsertQuery := regexp.QuoteMeta("ON CONFLICT (external_id) DO UPDATE")
	now := time.Now().UTC()

	t.Run("empty attributes are sent as NULL", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserRepository(db, zap.NewNop())

		mock.ExpectQuery(upsertQuery).
			WithArgs("1000034426", "ivan@yandex.ru", "Ivan", nil, nil, true).
			WillReturnRows(sqlmock.NewRows(userColumnNames).
				AddRow(int64(1), "1000034426", "ivan@yandex.ru", "Ivan", nil, nil, true, now, now))

		user, err := repo.UpsertFromLogin(context.Background(), repositories.LoginAttributes{
			ExternalID:  "1000034426",
			Email:       "ivan@yandex.ru",
			FirstName:   "Ivan",
			IsSuperuser: true,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), user.ID)
		assert.True(t, user.IsSuperuser)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("repeated login returns the same row", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserRepository(db, zap.NewNop())
		attrs := repositories.LoginAttributes{ExternalID: "42"}

		for i := 0; i < 2; i++ {
			mock.ExpectQuery(upsertQuery).
				WithArgs("42", nil, nil, nil, nil, false).
				WillReturnRows(sqlmock.NewRows(userColumnNames).
					AddRow(int64(5), "42", nil, nil, nil, nil, false, now, now))
		}

		first, err := repo.UpsertFromLogin(context.Background(), attrs)
		require.NoError(t, err)
		second, err := repo.UpsertFromLogin(context.Background(), attrs)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("email taken by another user", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserRepository(db, zap.NewNop())

		mock.ExpectQuery(upsertQuery).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})

		_, err := repo.UpsertFromLogin(context.Background(), repositories.LoginAttributes{
			ExternalID: "43",
			Email:      "taken@yandex.ru",
		})
		assert.ErrorIs(t, err, repositories.ErrDuplicate)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepository_UpdateProfile(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db, zap.NewNop())
	updatedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	first := "Ivan"

	user := &models.User{ID: 4, FirstName: &first}
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE users")).
		WithArgs(int64(4), "Ivan", nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(updatedAt))

	require.NoError(t, repo.UpdateProfile(context.Background(), user))
	assert.True(t, updatedAt.Equal(user.UpdatedAt))

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE users")).
		WithArgs(int64(99), nil, nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}))

	err := repo.UpdateProfile(context.Background(), &models.User{ID: 99})
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Delete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db, zap.NewNop())

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id = $1")).
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), 4))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id = $1")).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), 5), repositories.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}
