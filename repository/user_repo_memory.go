package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"usermanagement/models"
)

// MemoryUserRepo is a process-local store. Data is lost on restart.
type MemoryUserRepo struct {
	mu     sync.RWMutex
	users  map[int64]models.User
	nextID int64
}

func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{users: make(map[int64]models.User)}
}

func (r *MemoryUserRepo) CreateUser(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkUnique(user.Username, user.Email, 0); err != nil {
		return err
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = utcNow()
	}
	r.nextID++
	user.ID = r.nextID
	r.users[user.ID] = cloneUser(*user)
	return nil
}

// checkUnique needs r.mu held.
func (r *MemoryUserRepo) checkUnique(username, email string, excludeID int64) error {
	for id, u := range r.users {
		if id == excludeID {
			continue
		}
		if u.Username == username {
			return ErrDuplicateUsername
		}
		if u.Email == email {
			return ErrDuplicateEmail
		}
	}
	return nil
}

func (r *MemoryUserRepo) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := cloneUser(u)
	return &c, nil
}

func (r *MemoryUserRepo) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Username == username {
			c := cloneUser(u)
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryUserRepo) UsernameExists(_ context.Context, username string, excludeID int64) (bool, error) {
	return r.any(func(u models.User) bool { return u.ID != excludeID && u.Username == username }), nil
}

func (r *MemoryUserRepo) EmailExists(_ context.Context, email string, excludeID int64) (bool, error) {
	return r.any(func(u models.User) bool { return u.ID != excludeID && u.Email == email }), nil
}

func (r *MemoryUserRepo) any(match func(models.User) bool) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if match(u) {
			return true
		}
	}
	return false
}

func (r *MemoryUserRepo) ListNonStaff(_ context.Context, prefix string) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	prefix = strings.ToLower(prefix)
	users := []models.User{}
	for _, u := range r.users {
		if u.IsStaff {
			continue
		}
		if prefix != "" && !strings.HasPrefix(strings.ToLower(u.Username), prefix) {
			continue
		}
		users = append(users, cloneUser(u))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r *MemoryUserRepo) UpdateUser(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.users[user.ID]
	if !ok {
		return ErrNotFound
	}
	if err := r.checkUnique(user.Username, user.Email, user.ID); err != nil {
		return err
	}
	current.Username = user.Username
	current.Email = user.Email
	current.PasswordHash = user.PasswordHash
	current.IsStaff = user.IsStaff
	r.users[user.ID] = current
	return nil
}

func (r *MemoryUserRepo) DeleteUser(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *MemoryUserRepo) TouchLastLogin(_ context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	u.LastLoginAt = &at
	r.users[id] = u
	return nil
}

func (r *MemoryUserRepo) Ping(context.Context) error {
	return nil
}

func cloneUser(u models.User) models.User {
	if u.LastLoginAt != nil {
		t := *u.LastLoginAt
		u.LastLoginAt = &t
	}
	return u
}
