package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"usermanagement/auth"
	"usermanagement/models"
	"usermanagement/repository"
)

// UserForm is the submitted account form: registration, admin create and
// admin edit all share it.
type UserForm struct {
	Username  string
	Email     string
	Password1 string
	Password2 string
}

func (f UserForm) trimmed() UserForm {
	return UserForm{
		Username:  strings.TrimSpace(f.Username),
		Email:     strings.TrimSpace(f.Email),
		Password1: strings.TrimSpace(f.Password1),
		Password2: strings.TrimSpace(f.Password2),
	}
}

// UserService holds the account rules on top of the identity store.
type UserService struct {
	repo   repository.UserRepository
	hasher auth.PasswordHasher
	now    func() time.Time
	// dummyHash is compared against when the username is unknown so that
	// both failure paths cost one bcrypt comparison.
	dummyHash string
}

func NewUserService(repo repository.UserRepository, hasher auth.PasswordHasher) *UserService {
	if hasher == nil {
		hasher = auth.BcryptHasher{}
	}
	dummy, _ := hasher.Hash("dummy-password")
	return &UserService{
		repo:      repo,
		hasher:    hasher,
		now:       func() time.Time { return time.Now().UTC() },
		dummyHash: dummy,
	}
}

// Register creates a non-staff account from the public registration form.
func (s *UserService) Register(ctx context.Context, form UserForm) (*models.User, error) {
	return s.create(ctx, form, false)
}

// CreateUser creates a non-staff account on behalf of a staff user.
func (s *UserService) CreateUser(ctx context.Context, form UserForm) (*models.User, error) {
	return s.create(ctx, form, false)
}

// CreateStaff creates a staff account. Used for bootstrapping.
func (s *UserService) CreateStaff(ctx context.Context, form UserForm) (*models.User, error) {
	return s.create(ctx, form, true)
}

func (s *UserService) create(ctx context.Context, form UserForm, staff bool) (*models.User, error) {
	form = form.trimmed()
	if form.Username == "" || form.Email == "" || form.Password1 == "" || form.Password2 == "" {
		return nil, ErrBlankFields
	}
	if err := checkPasswords(form); err != nil {
		return nil, err
	}
	if err := s.checkUnique(ctx, form.Username, form.Email, 0); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(form.Password1)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &models.User{
		Username:     form.Username,
		Email:        form.Email,
		PasswordHash: hash,
		IsStaff:      staff,
		CreatedAt:    s.now(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, translateStoreError(err)
	}
	return user, nil
}

// Update applies the admin edit form to a non-staff user. Both password
// fields left blank keep the current password.
func (s *UserService) Update(ctx context.Context, id int64, form UserForm) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	form = form.trimmed()
	if form.Username == "" || form.Email == "" {
		return nil, ErrBlankFields
	}
	changePassword := form.Password1 != "" || form.Password2 != ""
	if changePassword {
		if err := checkPasswords(form); err != nil {
			return nil, err
		}
	}
	if err := s.checkUnique(ctx, form.Username, form.Email, user.ID); err != nil {
		return nil, err
	}

	user.Username = form.Username
	user.Email = form.Email
	if changePassword {
		hash, err := s.hasher.Hash(form.Password1)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
	}
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, translateStoreError(err)
	}
	return user, nil
}

// Delete removes a non-staff user.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.repo.DeleteUser(ctx, user.ID)
}

// Get loads a user managed through the admin pages. Staff accounts are
// reported as repository.ErrNotFound.
func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.IsStaff {
		return nil, repository.ErrNotFound
	}
	return user, nil
}

// Lookup loads any user by id, staff included.
func (s *UserService) Lookup(ctx context.Context, id int64) (*models.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// Search lists non-staff users whose username starts with query, ignoring
// case. The query is used as given; an empty one lists all of them.
func (s *UserService) Search(ctx context.Context, query string) ([]models.User, error) {
	return s.repo.ListNonStaff(ctx, query)
}

// PromoteStaff grants staff access to an existing account.
func (s *UserService) PromoteStaff(ctx context.Context, username string) (*models.User, error) {
	user, err := s.repo.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if user.IsStaff {
		return user, nil
	}
	user.IsStaff = true
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate checks credentials and records the login time.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.verify(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return user, s.touch(ctx, user)
}

// AuthenticateStaff is Authenticate restricted to staff accounts.
func (s *UserService) AuthenticateStaff(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.verify(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if !user.IsStaff {
		return nil, ErrNotStaff
	}
	return user, s.touch(ctx, user)
}

func (s *UserService) verify(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		return nil, ErrBadCredentials
	}

	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.hasher.Compare(s.dummyHash, password)
			return nil, ErrBadCredentials
		}
		return nil, err
	}
	if !s.hasher.Compare(user.PasswordHash, password) {
		return nil, ErrBadCredentials
	}
	return user, nil
}

func (s *UserService) touch(ctx context.Context, user *models.User) error {
	at := s.now()
	if err := s.repo.TouchLastLogin(ctx, user.ID, at); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	user.LastLoginAt = &at
	return nil
}

func (s *UserService) checkUnique(ctx context.Context, username, email string, excludeID int64) error {
	taken, err := s.repo.UsernameExists(ctx, username, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return ErrUsernameTaken
	}
	taken, err = s.repo.EmailExists(ctx, email, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return ErrEmailTaken
	}
	return nil
}

func checkPasswords(form UserForm) error {
	if form.Password1 != form.Password2 {
		return ErrPasswordMismatch
	}
	if len(form.Password1) > auth.MaxPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}

// translateStoreError turns a lost uniqueness race into the same
// validation error the existence check would have produced.
func translateStoreError(err error) error {
	switch {
	case errors.Is(err, repository.ErrDuplicateUsername):
		return ErrUsernameTaken
	case errors.Is(err, repository.ErrDuplicateEmail):
		return ErrEmailTaken
	}
	return err
}
