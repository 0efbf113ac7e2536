package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"usermanagement/models"
)

const sqliteUserSelectBase = "SELECT id, username, email, password_hash, is_staff, created_at, last_login_at FROM app_user"

// SQLiteUserRepo stores users in a local SQLite file through sqlx.
type SQLiteUserRepo struct {
	DB *sqlx.DB
}

func NewSQLiteUserRepo(db *sqlx.DB) *SQLiteUserRepo {
	return &SQLiteUserRepo{DB: db}
}

func (r *SQLiteUserRepo) CreateUser(ctx context.Context, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = utcNow()
	}

	res, err := r.DB.NamedExecContext(ctx, `
		INSERT INTO app_user (username, email, password_hash, is_staff, created_at)
		VALUES (:username, :email, :password_hash, :is_staff, :created_at)
	`, user)
	if err != nil {
		return mapSQLiteError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	user.ID = id
	return nil
}

func (r *SQLiteUserRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, sqliteUserSelectBase+" WHERE id = ?", id)
}

func (r *SQLiteUserRepo) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, sqliteUserSelectBase+" WHERE username = ?", username)
}

func (r *SQLiteUserRepo) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var u models.User
	if err := r.DB.GetContext(ctx, &u, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &u, nil
}

func (r *SQLiteUserRepo) UsernameExists(ctx context.Context, username string, excludeID int64) (bool, error) {
	return r.exists(ctx, "SELECT EXISTS (SELECT 1 FROM app_user WHERE username = ? AND id <> ?)", username, excludeID)
}

func (r *SQLiteUserRepo) EmailExists(ctx context.Context, email string, excludeID int64) (bool, error) {
	return r.exists(ctx, "SELECT EXISTS (SELECT 1 FROM app_user WHERE email = ? AND id <> ?)", email, excludeID)
}

func (r *SQLiteUserRepo) exists(ctx context.Context, query, value string, excludeID int64) (bool, error) {
	var found bool
	if err := r.DB.GetContext(ctx, &found, query, value, excludeID); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return found, nil
}

func (r *SQLiteUserRepo) ListNonStaff(ctx context.Context, prefix string) ([]models.User, error) {
	users := []models.User{}
	var err error
	if prefix == "" {
		err = r.DB.SelectContext(ctx, &users, sqliteUserSelectBase+" WHERE is_staff = 0 ORDER BY id")
	} else {
		err = r.DB.SelectContext(ctx, &users,
			sqliteUserSelectBase+` WHERE is_staff = 0 AND LOWER(username) LIKE ? ESCAPE '\' ORDER BY id`,
			likePrefix(prefix))
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return users, nil
}

func (r *SQLiteUserRepo) UpdateUser(ctx context.Context, user *models.User) error {
	res, err := r.DB.NamedExecContext(ctx, `
		UPDATE app_user
		SET username = :username, email = :email, password_hash = :password_hash, is_staff = :is_staff
		WHERE id = :id
	`, user)
	if err != nil {
		return mapSQLiteError(err)
	}
	return requireAffected(res)
}

func (r *SQLiteUserRepo) DeleteUser(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM app_user WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireAffected(res)
}

func (r *SQLiteUserRepo) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE app_user SET last_login_at = ? WHERE id = ?", at, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireAffected(res)
}

func (r *SQLiteUserRepo) Ping(ctx context.Context) error {
	return r.DB.PingContext(ctx)
}

func mapSQLiteError(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		msg := sqliteErr.Error()
		switch {
		case strings.Contains(msg, "app_user.username"):
			return ErrDuplicateUsername
		case strings.Contains(msg, "app_user.email"):
			return ErrDuplicateEmail
		}
	}
	return fmt.Errorf("db error: %w", err)
}
