// Package repository declares the storage contracts the services depend on.
//
// Two implementations live in sub-packages:
//
//	repository/sqlite   → embedded, single-file database (default)
//	repository/postgres → pgx connection pool, golang-migrate schema
//
// Services only see these interfaces, so tests can substitute in-memory fakes.
package repository

import (
	"context"
	"time"

	"github.com/sakif/moodmap/internal/model"
)

// UserRepository is the credential store.
//
// Lookups return apperror.ErrNotFound when no row matches. Writes that clash
// with the username, email or google_id uniqueness constraints return
// apperror.ErrConflict.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByGoogleID(ctx context.Context, googleID string) (*model.User, error)

	// UserExists reports whether any account already uses the username or the email.
	UserExists(ctx context.Context, username, email string) (bool, error)

	// LinkGoogleAccount attaches a Google identity (and picture, when non-empty)
	// to an existing account.
	LinkGoogleAccount(ctx context.Context, userID, googleID, picture string) error
}

// MoodRepository is the append-only submission store.
type MoodRepository interface {
	// SubmitMood records the user's one-time submission. In one transaction it
	// flips the user's has_mood_submitted flag, conditional on the flag still
	// being unset, and only then inserts the submission. It fills in the
	// submission's ID, and CreatedAt when the caller left it zero.
	//
	// Errors: apperror.ErrNotFound when the user no longer exists,
	// apperror.ErrForbidden when the user has already submitted.
	SubmitMood(ctx context.Context, userID string, submission *model.MoodSubmission) error

	// CountMoodsSince groups submissions created at or after since by
	// (district, mood), with the earliest creation time of each group.
	CountMoodsSince(ctx context.Context, since time.Time) ([]model.MoodCount, error)
}

// Store is everything the server needs from a backend.
type Store interface {
	UserRepository
	MoodRepository

	Ping(ctx context.Context) error
	Close() error
}
