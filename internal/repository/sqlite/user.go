package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/moodmap/internal/apperror"
	"github.com/sakif/moodmap/internal/model"
)

const userColumns = `id, username, email, password_hash, google_id, profile_picture,
	has_mood_submitted, mood_submitted_at, created_at, updated_at`

// CreateUser inserts a new user. ID and timestamps are generated here and
// written back into user.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := db.conn.NamedExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, google_id, profile_picture,
			has_mood_submitted, mood_submitted_at, created_at, updated_at)
		VALUES (:id, :username, :email, :password_hash, :google_id, :profile_picture,
			:has_mood_submitted, :mood_submitted_at, :created_at, :updated_at)`,
		user,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("User already exists")
		}
		return fmt.Errorf("sqlite: inserting user %q: %w", user.Username, err)
	}

	return nil
}

// GetUserByID retrieves a user by internal ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, "id", id)
}

// GetUserByEmail retrieves a user by email. Callers pass the lower-cased form.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUser(ctx, "email", email)
}

// GetUserByGoogleID retrieves the user linked to a Google account.
func (db *DB) GetUserByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	return db.getUser(ctx, "google_id", googleID)
}

// getUser runs the single-row lookup shared by the GetUserBy* methods.
// column is always a constant from this file, never user input.
func (db *DB) getUser(ctx context.Context, column, value string) (*model.User, error) {
	var u model.User
	err := db.conn.GetContext(ctx, &u,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = ?`, value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", value)
		}
		return nil, fmt.Errorf("sqlite: getting user by %s: %w", column, err)
	}
	return &u, nil
}

// UserExists reports whether the username or the email is taken.
func (db *DB) UserExists(ctx context.Context, username, email string) (bool, error) {
	var exists bool
	err := db.conn.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = ? OR email = ?)`,
		username, email,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking user existence: %w", err)
	}
	return exists, nil
}

// LinkGoogleAccount attaches googleID to the user. The stored picture is
// replaced only when picture is non-empty.
func (db *DB) LinkGoogleAccount(ctx context.Context, userID, googleID, picture string) error {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE users
		SET google_id = ?, profile_picture = COALESCE(NULLIF(?, ''), profile_picture), updated_at = ?
		WHERE id = ?`,
		googleID, picture, time.Now().UTC(), userID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("Google account is already linked to another user")
		}
		return fmt.Errorf("sqlite: linking google account to user %s: %w", userID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("user", userID)
	}
	return nil
}
