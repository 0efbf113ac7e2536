package services

import "errors"

// ValidationError is a rejected form submission. Its text is shown to the
// user as is.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

var (
	ErrBlankFields      = &ValidationError{Msg: "All fields must have valid data (no spaces only)."}
	ErrPasswordMismatch = &ValidationError{Msg: "Passwords do not match."}
	ErrPasswordTooLong  = &ValidationError{Msg: "Password is too long."}
	ErrUsernameTaken    = &ValidationError{Msg: "Username already exists."}
	ErrEmailTaken       = &ValidationError{Msg: "Email already exists."}
)

var (
	ErrBadCredentials = errors.New("invalid credentials")
	ErrNotStaff       = errors.New("insufficient permissions")
)
