package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"usermanagement/models"
)

var userColumns = []string{"id", "username", "email", "password_hash", "is_staff", "created_at", "last_login_at"}

func newPostgresRepoWithMock(t *testing.T) (*PostgresUserRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresUserRepo(db), mock
}

func TestPostgresCreateUser_Success(t *testing.T) {
	repo, mock := newPostgresRepoWithMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO app_user (username, email, password_hash, is_staff, created_at)")).
		WithArgs("alice", "alice@example.com", "hash", false, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	u := &models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "hash"}
	require.NoError(t, repo.CreateUser(context.Background(), u))
	assert.Equal(t, int64(42), u.ID)
	assert.False(t, u.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateUser_UniqueViolation(t *testing.T) {
	tests := []struct {
		constraint string
		want       error
	}{
		{pgUsernameConstraint, ErrDuplicateUsername},
		{pgEmailConstraint, ErrDuplicateEmail},
	}
	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			repo, mock := newPostgresRepoWithMock(t)
			mock.ExpectQuery("INSERT INTO app_user").
				WillReturnError(&pq.Error{Code: pgUniqueViolation, Constraint: tt.constraint})

			err := repo.CreateUser(context.Background(), &models.User{Username: "alice", Email: "a@example.com"})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPostgresCreateUser_DBError(t *testing.T) {
	repo, mock := newPostgresRepoWithMock(t)
	mock.ExpectQuery("INSERT INTO app_user").WillReturnError(errors.New("db down"))

	err := repo.CreateUser(context.Background(), &models.User{Username: "alice"})
	require.Error(t, err)
	assert.Regexp(t, `db error: .*db down`, err.Error())
}

func TestPostgresGetUserByID(t *testing.T) {
	repo, mock := newPostgresRepoWithMock(t)
	created := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM app_user WHERE id = $1")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(int64(7), "alice", "alice@example.com", "hash", true, created, nil))

	got, err := repo.GetUserByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.True(t, got.IsStaff)
	assert.Nil(t, got.LastLoginAt)
}

func TestPostgresGetUserByUsername_NotFound(t *testing.T) {
	repo, mock := newPostgresRepoWithMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM app_user WHERE username = $1")).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetUserByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresUsernameExists(t *testing.T) {
	repo, mock := newPostgresRepoWithMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM app_user WHERE username = $1 AND id <> $2)")).
		WithArgs("alice", int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	found, err := repo.UsernameExists(context.Background(), "alice", 3)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestPostgresListNonStaff_Prefix(t *testing.T) {
	repo, mock := newPostgresRepoWithMock(t)
	created := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE is_staff = FALSE AND LOWER(username) LIKE $1")).
		WithArgs("al%").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(int64(1), "Alice", "a@example.com", "h", false, created, nil).
			AddRow(int64(2), "albert", "b@example.com", "h", false, created, created))

	users, err := repo.ListNonStaff(context.Background(), "Al")
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "albert", users[1].Username)
	require.NotNil(t, users[1].LastLoginAt)
}

func TestPostgresListNonStaff_All(t *testing.T) {
	repo, mock := newPostgresRepoWithMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE is_staff = FALSE ORDER BY id")).
		WillReturnRows(sqlmock.NewRows(userColumns))

	users, err := repo.ListNonStaff(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestPostgresUpdateUser(t *testing.T) {
	repo, mock := newPostgresRepoWithMock(t)
	mock.ExpectExec("UPDATE app_user").
		WithArgs("alice", "alice@example.com", "hash", false, int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateUser(context.Background(), &models.User{ID: 5, Username: "alice", Email: "alice@example.com", PasswordHash: "hash"})
	require.NoError(t, err)
}

func TestPostgresUpdateUser_Missing(t *testing.T) {
	repo, mock := newPostgresRepoWithMock(t)
	mock.ExpectExec("UPDATE app_user").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateUser(context.Background(), &models.User{ID: 5})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresDeleteUser(t *testing.T) {
	repo, mock := newPostgresRepoWithMock(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM app_user WHERE id = $1")).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM app_user WHERE id = $1")).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.DeleteUser(context.Background(), 5))
	assert.ErrorIs(t, repo.DeleteUser(context.Background(), 5), ErrNotFound)
}
