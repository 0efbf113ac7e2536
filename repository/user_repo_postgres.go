package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"usermanagement/models"
)

const (
	pgUniqueViolation      = "23505"
	pgUsernameConstraint   = "app_user_username_key"
	pgEmailConstraint      = "app_user_email_key"
	postgresUserColumns    = "id, username, email, password_hash, is_staff, created_at, last_login_at"
	postgresUserSelectBase = "SELECT " + postgresUserColumns + " FROM app_user"
)

type PostgresUserRepo struct {
	DB *sql.DB
}

func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{DB: db}
}

// CreateUser inserts the user and fills in ID and CreatedAt.
func (r *PostgresUserRepo) CreateUser(ctx context.Context, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = utcNow()
	}

	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO app_user (username, email, password_hash, is_staff, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, user.Username, user.Email, user.PasswordHash, user.IsStaff, user.CreatedAt).Scan(&user.ID)
	if err != nil {
		return mapPostgresError(err)
	}
	return nil
}

func (r *PostgresUserRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	row := r.DB.QueryRowContext(ctx, postgresUserSelectBase+" WHERE id = $1", id)
	return scanPostgresUser(row)
}

func (r *PostgresUserRepo) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	row := r.DB.QueryRowContext(ctx, postgresUserSelectBase+" WHERE username = $1", username)
	return scanPostgresUser(row)
}

func (r *PostgresUserRepo) UsernameExists(ctx context.Context, username string, excludeID int64) (bool, error) {
	return r.exists(ctx, "SELECT EXISTS (SELECT 1 FROM app_user WHERE username = $1 AND id <> $2)", username, excludeID)
}

func (r *PostgresUserRepo) EmailExists(ctx context.Context, email string, excludeID int64) (bool, error) {
	return r.exists(ctx, "SELECT EXISTS (SELECT 1 FROM app_user WHERE email = $1 AND id <> $2)", email, excludeID)
}

func (r *PostgresUserRepo) exists(ctx context.Context, query, value string, excludeID int64) (bool, error) {
	var found bool
	if err := r.DB.QueryRowContext(ctx, query, value, excludeID).Scan(&found); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return found, nil
}

func (r *PostgresUserRepo) ListNonStaff(ctx context.Context, prefix string) ([]models.User, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if prefix == "" {
		rows, err = r.DB.QueryContext(ctx, postgresUserSelectBase+" WHERE is_staff = FALSE ORDER BY id")
	} else {
		rows, err = r.DB.QueryContext(ctx,
			postgresUserSelectBase+` WHERE is_staff = FALSE AND LOWER(username) LIKE $1 ESCAPE '\' ORDER BY id`,
			likePrefix(prefix))
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsStaff, &u.CreatedAt, &u.LastLoginAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return users, nil
}

func (r *PostgresUserRepo) UpdateUser(ctx context.Context, user *models.User) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE app_user
		SET username = $1, email = $2, password_hash = $3, is_staff = $4
		WHERE id = $5
	`, user.Username, user.Email, user.PasswordHash, user.IsStaff, user.ID)
	if err != nil {
		return mapPostgresError(err)
	}
	return requireAffected(res)
}

func (r *PostgresUserRepo) DeleteUser(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM app_user WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireAffected(res)
}

func (r *PostgresUserRepo) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE app_user SET last_login_at = $1 WHERE id = $2", at, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireAffected(res)
}

func (r *PostgresUserRepo) Ping(ctx context.Context) error {
	return r.DB.PingContext(ctx)
}

func scanPostgresUser(row *sql.Row) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsStaff, &u.CreatedAt, &u.LastLoginAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func mapPostgresError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
		switch pqErr.Constraint {
		case pgUsernameConstraint:
			return ErrDuplicateUsername
		case pgEmailConstraint:
			return ErrDuplicateEmail
		}
	}
	return fmt.Errorf("db error: %w", err)
}
