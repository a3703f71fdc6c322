// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// Anonymous is the user id of an unauthenticated actor. Real row ids start at 1.
const Anonymous int64 = 0

// User represents a registered account.
//
// Accounts are created either through email/password registration or through
// GitHub sign-in. PasswordHash is empty for GitHub-only accounts and GitHubID
// is nil for password-only accounts; both are never serialized.
type User struct {
	ID           int64     `json:"id"         db:"id"`
	Email        string    `json:"email"      db:"email"`
	Username     string    `json:"username"   db:"username"`
	FirstName    string    `json:"first_name" db:"first_name"`
	LastName     string    `json:"last_name"  db:"last_name"`
	PasswordHash string    `json:"-"          db:"password_hash"`
	GitHubID     *int64    `json:"-"          db:"github_id"`
	CreatedAt    time.Time `json:"-"          db:"created_at"`
	UpdatedAt    time.Time `json:"-"          db:"updated_at"`
}
