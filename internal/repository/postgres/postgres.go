// Package postgres implements the repository interfaces on PostgreSQL
// through a pgx connection pool. The schema is managed by golang-migrate
// from the SQL files embedded in migrations/.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/xid"

	"github.com/sakif/moodmap/internal/apperror"
	"github.com/sakif/moodmap/internal/model"
	"github.com/sakif/moodmap/internal/repository"
)

// uniqueViolation is SQLSTATE 23505.
const uniqueViolation = "23505"

var _ repository.Store = (*DB)(nil)

// DB implements repository.Store on a pgx pool.
type DB struct {
	pool *pgxpool.Pool
}

// New runs pending migrations against dbURL and opens a connection pool.
func New(ctx context.Context, dbURL string) (*DB, error) {
	if err := RunMigrations(dbURL); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: creating pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: pinging database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Ping checks the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: ping: %w", err)
	}
	return nil
}

// Close releases every pooled connection.
func (db *DB) Close() error {
	db.pool.Close()
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// =========================================================================
// USERS
// =========================================================================

const userColumns = `id, username, email, password_hash, google_id, profile_picture,
	has_mood_submitted, mood_submitted_at, created_at, updated_at`

func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := db.pool.Exec(ctx, `
		INSERT INTO users (id, username, email, password_hash, google_id, profile_picture,
			has_mood_submitted, mood_submitted_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		user.ID, user.Username, user.Email, user.PasswordHash, user.GoogleID, user.ProfilePicture,
		user.HasMoodSubmitted, user.MoodSubmittedAt, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("User already exists")
		}
		return fmt.Errorf("postgres: inserting user %q: %w", user.Username, err)
	}
	return nil
}

func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, "id", id)
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUser(ctx, "email", email)
}

func (db *DB) GetUserByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	return db.getUser(ctx, "google_id", googleID)
}

// getUser scans one row into model.User by its `db` tags.
// column is always a constant from this file.
func (db *DB) getUser(ctx context.Context, column, value string) (*model.User, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = $1`, value)
	if err != nil {
		return nil, fmt.Errorf("postgres: getting user by %s: %w", column, err)
	}

	u, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[model.User])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("user", value)
		}
		return nil, fmt.Errorf("postgres: scanning user by %s: %w", column, err)
	}
	return u, nil
}

func (db *DB) UserExists(ctx context.Context, username, email string) (bool, error) {
	var exists bool
	err := db.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 OR email = $2)`,
		username, email,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: checking user existence: %w", err)
	}
	return exists, nil
}

func (db *DB) LinkGoogleAccount(ctx context.Context, userID, googleID, picture string) error {
	tag, err := db.pool.Exec(ctx, `
		UPDATE users
		SET google_id = $1, profile_picture = COALESCE(NULLIF($2, ''), profile_picture), updated_at = NOW()
		WHERE id = $3`,
		googleID, picture, userID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("Google account is already linked to another user")
		}
		return fmt.Errorf("postgres: linking google account to user %s: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("user", userID)
	}
	return nil
}

// =========================================================================
// MOODS
// =========================================================================

// SubmitMood flips the submission flag and appends the mood in one
// transaction. The UPDATE takes the user's row lock, so a concurrent
// submission blocks until this one commits and then matches zero rows.
func (db *DB) SubmitMood(ctx context.Context, userID string, submission *model.MoodSubmission) error {
	if submission.CreatedAt.IsZero() {
		submission.CreatedAt = time.Now()
	}
	submission.CreatedAt = submission.CreatedAt.UTC()

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE users
		SET has_mood_submitted = TRUE, mood_submitted_at = $1, updated_at = $1
		WHERE id = $2 AND has_mood_submitted = FALSE`,
		submission.CreatedAt, userID,
	)
	if err != nil {
		return fmt.Errorf("postgres: flagging submission for user %s: %w", userID, err)
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
			return fmt.Errorf("postgres: checking user %s: %w", userID, err)
		}
		if !exists {
			return apperror.NotFound("user", userID)
		}
		return apperror.Forbidden("mood already submitted")
	}

	submission.ID = xid.New().String()
	_, err = tx.Exec(ctx,
		`INSERT INTO moods (id, district, mood, created_at) VALUES ($1, $2, $3, $4)`,
		submission.ID, string(submission.District), string(submission.Mood), submission.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: inserting mood: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: committing submission: %w", err)
	}
	return nil
}

type moodCountRow struct {
	District string    `db:"district"`
	Mood     string    `db:"mood"`
	Count    int       `db:"count"`
	FirstAt  time.Time `db:"first_at"`
}

func (db *DB) CountMoodsSince(ctx context.Context, since time.Time) ([]model.MoodCount, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT district, mood, COUNT(*) AS count, MIN(created_at) AS first_at
		FROM moods
		WHERE created_at >= $1
		GROUP BY district, mood`,
		since.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: counting moods: %w", err)
	}

	scanned, err := pgx.CollectRows(rows, pgx.RowToStructByName[moodCountRow])
	if err != nil {
		return nil, fmt.Errorf("postgres: scanning mood counts: %w", err)
	}

	counts := make([]model.MoodCount, 0, len(scanned))
	for _, r := range scanned {
		counts = append(counts, model.MoodCount{
			District:         model.District(r.District),
			Mood:             model.Mood(r.Mood),
			Count:            r.Count,
			FirstSubmittedAt: r.FirstAt.UTC(),
		})
	}
	return counts, nil
}
