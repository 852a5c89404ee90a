// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// Accounts are created either by password registration or by the first Google
// sign-in. OAuth-only accounts have no password at all: PasswordHash is nil,
// and password login against them is rejected by the auth service.
//
// WHY POINTERS FOR THE OPTIONAL COLUMNS?
// A nil *string maps directly to SQL NULL when scanning and inserting, so
// "never set" and "set to the empty string" stay distinguishable.
type User struct {
	ID               string     `json:"id"               db:"id"`
	Username         string     `json:"username"         db:"username"`
	Email            string     `json:"email"            db:"email"`
	PasswordHash     *string    `json:"-"                db:"password_hash"`
	GoogleID         *string    `json:"-"                db:"google_id"`
	ProfilePicture   *string    `json:"profilePicture"   db:"profile_picture"`
	HasMoodSubmitted bool       `json:"hasMoodSubmitted" db:"has_mood_submitted"`
	MoodSubmittedAt  *time.Time `json:"moodSubmittedAt"  db:"mood_submitted_at"`
	CreatedAt        time.Time  `json:"createdAt"        db:"created_at"`
	UpdatedAt        time.Time  `json:"updatedAt"        db:"updated_at"`
}

// HasPassword reports whether the account can sign in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// PublicUser is the subset of a User that is safe to return to clients.
type PublicUser struct {
	ID               string `json:"id"`
	Username         string `json:"username"`
	Email            string `json:"email"`
	HasMoodSubmitted bool   `json:"hasMoodSubmitted"`
}

// Public returns the client-facing view of the user.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:               u.ID,
		Username:         u.Username,
		Email:            u.Email,
		HasMoodSubmitted: u.HasMoodSubmitted,
	}
}
