package models

import "time"

// User is an account record. Staff users may use the admin pages.
type User struct {
	ID           int64      `json:"id" db:"id" bson:"_id"`
	Username     string     `json:"username" db:"username" bson:"username"`
	Email        string     `json:"email" db:"email" bson:"email"`
	PasswordHash string     `json:"-" db:"password_hash" bson:"password_hash"`
	IsStaff      bool       `json:"is_staff" db:"is_staff" bson:"is_staff"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at" bson:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty" db:"last_login_at" bson:"last_login_at,omitempty"`
}
