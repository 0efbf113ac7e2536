package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"usermanagement/models"
)

var (
	ErrNotFound          = errors.New("user not found")
	ErrDuplicateUsername = errors.New("username already exists")
	ErrDuplicateEmail    = errors.New("email already exists")
)

// UserRepository is the identity store. Implementations must enforce
// username and email uniqueness themselves and report violations as
// ErrDuplicateUsername or ErrDuplicateEmail.
//
// An excludeID of 0 excludes nothing.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UsernameExists(ctx context.Context, username string, excludeID int64) (bool, error)
	EmailExists(ctx context.Context, email string, excludeID int64) (bool, error)
	// ListNonStaff returns non-staff users ordered by id. A non-empty prefix
	// keeps only usernames starting with it, ignoring case.
	ListNonStaff(ctx context.Context, prefix string) ([]models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id int64) error
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
	Ping(ctx context.Context) error
}

// likePrefix builds a LIKE pattern matching lowercase usernames starting
// with prefix. Used with ESCAPE '\'.
func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(strings.ToLower(prefix)) + "%"
}

func utcNow() time.Time {
	return time.Now().UTC()
}
