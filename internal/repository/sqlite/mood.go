package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/moodmap/internal/apperror"
	"github.com/sakif/moodmap/internal/model"
)

// SubmitMood flips the user's submission flag and appends the submission in
// one transaction.
//
// THE CONDITIONAL UPDATE:
// "UPDATE ... WHERE has_mood_submitted = 0" is the check and the write in one
// statement. Two concurrent submissions cannot both see the flag unset: the
// second UPDATE affects zero rows and the transaction is rolled back before
// any mood row is written.
func (db *DB) SubmitMood(ctx context.Context, userID string, submission *model.MoodSubmission) error {
	if submission.CreatedAt.IsZero() {
		submission.CreatedAt = time.Now()
	}
	submission.CreatedAt = submission.CreatedAt.UTC()

	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	// Rollback after Commit is a no-op, so this is safe on the success path too.
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE users
		SET has_mood_submitted = 1, mood_submitted_at = ?, updated_at = ?
		WHERE id = ? AND has_mood_submitted = 0`,
		submission.CreatedAt, submission.CreatedAt, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: flagging submission for user %s: %w", userID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		// Either the user is gone or the flag was already set.
		var exists bool
		if err := tx.GetContext(ctx, &exists,
			`SELECT EXISTS (SELECT 1 FROM users WHERE id = ?)`, userID); err != nil {
			return fmt.Errorf("sqlite: checking user %s: %w", userID, err)
		}
		if !exists {
			return apperror.NotFound("user", userID)
		}
		return apperror.Forbidden("mood already submitted")
	}

	submission.ID = xid.New().String()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO moods (id, district, mood, created_at) VALUES (?, ?, ?, ?)`,
		submission.ID, string(submission.District), string(submission.Mood), submission.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting mood: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing submission: %w", err)
	}
	return nil
}

// moodCountRow mirrors one row of the CountMoodsSince aggregate.
type moodCountRow struct {
	District string `db:"district"`
	Mood     string `db:"mood"`
	Count    int    `db:"count"`
	FirstAt  int64  `db:"first_at"`
}

// CountMoodsSince returns per-(district, mood) counts for the window starting at since.
func (db *DB) CountMoodsSince(ctx context.Context, since time.Time) ([]model.MoodCount, error) {
	var rows []moodCountRow
	err := db.conn.SelectContext(ctx, &rows, `
		SELECT district, mood, COUNT(*) AS count, MIN(created_at) AS first_at
		FROM moods
		WHERE created_at >= ?
		GROUP BY district, mood`,
		since.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: counting moods: %w", err)
	}

	counts := make([]model.MoodCount, 0, len(rows))
	for _, r := range rows {
		counts = append(counts, model.MoodCount{
			District:         model.District(r.District),
			Mood:             model.Mood(r.Mood),
			Count:            r.Count,
			FirstSubmittedAt: time.UnixMilli(r.FirstAt).UTC(),
		})
	}
	return counts, nil
}
