package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"usermanagement/config"
	"usermanagement/models"
	"usermanagement/repository"
)

func sqliteConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.SQLitePath = filepath.Join(t.TempDir(), "test.db")
	return cfg
}

func TestOpenUserRepository_SQLite(t *testing.T) {
	ctx := context.Background()
	cfg := sqliteConfig(t)

	repo, conn, err := OpenUserRepository(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, conn)
	defer conn.Disconnect(ctx)

	u := &models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "h"}
	require.NoError(t, repo.CreateUser(ctx, u))
	assert.Equal(t, int64(1), u.ID)

	err = repo.CreateUser(ctx, &models.User{Username: "alice", Email: "other@example.com", PasswordHash: "h"})
	assert.ErrorIs(t, err, repository.ErrDuplicateUsername)
	err = repo.CreateUser(ctx, &models.User{Username: "bob", Email: "alice@example.com", PasswordHash: "h"})
	assert.ErrorIs(t, err, repository.ErrDuplicateEmail)

	require.NoError(t, repo.CreateUser(ctx, &models.User{Username: "Albert", Email: "al@example.com", PasswordHash: "h"}))
	require.NoError(t, repo.CreateUser(ctx, &models.User{Username: "alroot", Email: "root@example.com", PasswordHash: "h", IsStaff: true}))
	require.NoError(t, repo.CreateUser(ctx, &models.User{Username: "al_x", Email: "x@example.com", PasswordHash: "h"}))

	users, err := repo.ListNonStaff(ctx, "AL")
	require.NoError(t, err)
	assert.Len(t, users, 3)

	users, err = repo.ListNonStaff(ctx, "al_")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "al_x", users[0].Username)

	got, err := repo.GetUserByUsername(ctx, "alroot")
	require.NoError(t, err)
	assert.True(t, got.IsStaff)
	assert.Nil(t, got.LastLoginAt)
}

func TestSQLiteUserRepo_EditPaths(t *testing.T) {
	ctx := context.Background()
	repo, conn, err := OpenUserRepository(ctx, sqliteConfig(t))
	require.NoError(t, err)
	defer conn.Disconnect(ctx)

	alice := &models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "h"}
	bob := &models.User{Username: "bob", Email: "bob@example.com", PasswordHash: "h"}
	require.NoError(t, repo.CreateUser(ctx, alice))
	require.NoError(t, repo.CreateUser(ctx, bob))

	t.Run("exists excludes the edited record", func(t *testing.T) {
		found, err := repo.UsernameExists(ctx, "alice", alice.ID)
		require.NoError(t, err)
		assert.False(t, found)
		found, err = repo.UsernameExists(ctx, "alice", bob.ID)
		require.NoError(t, err)
		assert.True(t, found)

		found, err = repo.EmailExists(ctx, "bob@example.com", bob.ID)
		require.NoError(t, err)
		assert.False(t, found)
		found, err = repo.EmailExists(ctx, "bob@example.com", alice.ID)
		require.NoError(t, err)
		assert.True(t, found)
	})

	t.Run("update", func(t *testing.T) {
		changed := *alice
		changed.Username = "alice2"
		changed.Email = "alice2@example.com"
		changed.PasswordHash = "h2"
		require.NoError(t, repo.UpdateUser(ctx, &changed))

		got, err := repo.GetUserByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice2", got.Username)
		assert.Equal(t, "alice2@example.com", got.Email)
		assert.Equal(t, "h2", got.PasswordHash)
	})

	t.Run("update onto taken values", func(t *testing.T) {
		clash := *bob
		clash.Username = "alice2"
		assert.ErrorIs(t, repo.UpdateUser(ctx, &clash), repository.ErrDuplicateUsername)

		clash = *bob
		clash.Email = "alice2@example.com"
		assert.ErrorIs(t, repo.UpdateUser(ctx, &clash), repository.ErrDuplicateEmail)

		got, err := repo.GetUserByID(ctx, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, "bob", got.Username)
		assert.Equal(t, "bob@example.com", got.Email)
	})

	t.Run("touch last login", func(t *testing.T) {
		at := time.Date(2026, 5, 1, 12, 30, 0, 0, time.UTC)
		require.NoError(t, repo.TouchLastLogin(ctx, bob.ID, at))

		got, err := repo.GetUserByID(ctx, bob.ID)
		require.NoError(t, err)
		require.NotNil(t, got.LastLoginAt)
		assert.True(t, at.Equal(*got.LastLoginAt))

		assert.ErrorIs(t, repo.TouchLastLogin(ctx, 999, at), repository.ErrNotFound)
	})

	t.Run("missing user", func(t *testing.T) {
		err := repo.UpdateUser(ctx, &models.User{ID: 999, Username: "x", Email: "x@example.com", PasswordHash: "h"})
		assert.ErrorIs(t, err, repository.ErrNotFound)
		_, err = repo.GetUserByID(ctx, 999)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.DeleteUser(ctx, bob.ID))
		assert.ErrorIs(t, repo.DeleteUser(ctx, bob.ID), repository.ErrNotFound)
		_, err := repo.GetUserByID(ctx, bob.ID)
		assert.ErrorIs(t, err, repository.ErrNotFound)

		users, err := repo.ListNonStaff(ctx, "")
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, alice.ID, users[0].ID)
	})
}

func TestRunMigrations_Idempotent(t *testing.T) {
	cfg := sqliteConfig(t)
	require.NoError(t, RunMigrations(cfg))
	require.NoError(t, RunMigrations(cfg))
}

func TestOpenUserRepository_Memory(t *testing.T) {
	cfg := config.Defaults()
	cfg.DBType = config.DBMemory

	repo, conn, err := OpenUserRepository(context.Background(), cfg)
	require.NoError(t, err)
	assert.Nil(t, conn)
	assert.IsType(t, &repository.MemoryUserRepo{}, repo)
}
