// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other
// languages, but without inheritance. Go favours composition over inheritance.
package model

import (
	"strings"
	"time"
)

// User represents a registered account.
//
// The email address doubles as the login credential, so it carries a UNIQUE
// constraint in the database. There is no separate username — the display
// name is derived from the email (see FriendlyName).
//
// WHY PasswordHash WITH json:"-"?
// The bcrypt hash must never leave the server. The `json:"-"` tag tells
// encoding/json to skip the field entirely, so even if a handler
// accidentally serializes a User, the hash is not exposed.
type User struct {
	ID           string    `json:"id"        db:"id"`
	Email        string    `json:"email"     db:"email"`
	PasswordHash string    `json:"-"         db:"password_hash"`
	IsStaff      bool      `json:"isStaff"   db:"is_staff"`
	IsActive     bool      `json:"isActive"  db:"is_active"`
	JoinedAt     time.Time `json:"joinedAt"  db:"joined_at"`
}

// FriendlyName returns the user's display name: the local part of the email
// address (everything before the first "@"). An email with no "@" is
// returned unchanged.
//
//	"user1@events.com" → "user1"
//	"not-an-email"     → "not-an-email"
func (u *User) FriendlyName() string {
	return FriendlyName(u.Email)
}

// FriendlyName derives a display name from an email address without needing
// a full User record. Used where only the organiser's email was fetched.
func FriendlyName(email string) string {
	if at := strings.Index(email, "@"); at >= 0 {
		return email[:at]
	}
	return email
}
