package postgres

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/moodmap/internal/apperror"
	"github.com/sakif/moodmap/internal/model"
)

// newTestDB connects to MOODMAP_TEST_DATABASE_URL with a freshly migrated
// schema. The test is skipped when the variable is unset.
func newTestDB(t *testing.T) *DB {
	t.Helper()

	url := os.Getenv("MOODMAP_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("MOODMAP_TEST_DATABASE_URL not set")
	}

	require.NoError(t, RollbackAll(url))

	db, err := New(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
		_ = RollbackAll(url)
	})
	return db
}

func createTestUser(t *testing.T, db *DB, username string) *model.User {
	t.Helper()
	hash := "$2a$04$fakehash"
	user := &model.User{Username: username, Email: username + "@example.com", PasswordHash: &hash}
	require.NoError(t, db.CreateUser(context.Background(), user))
	return user
}

func TestUsers(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := createTestUser(t, db, "anu")

	got, err := db.GetUserByEmail(ctx, "anu@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.True(t, got.HasPassword())
	assert.False(t, got.HasMoodSubmitted)

	err = db.CreateUser(ctx, &model.User{Username: "anu", Email: "other@example.com"})
	assert.True(t, errors.Is(err, apperror.ErrConflict), "duplicate username: %v", err)

	exists, err := db.UserExists(ctx, "nobody", "anu@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, db.LinkGoogleAccount(ctx, user.ID, "g-1", "https://example.com/a.png"))
	linked, err := db.GetUserByGoogleID(ctx, "g-1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, linked.ID)

	_, err = db.GetUserByID(ctx, "missing")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestSubmitMood_ConcurrentExactlyOnce(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "racer")

	const attempts = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := db.SubmitMood(context.Background(), user.ID,
				&model.MoodSubmission{District: "Thrissur", Mood: model.MoodExcited})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.True(t, errors.Is(err, apperror.ErrForbidden), "unexpected error: %v", err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
}

func TestCountMoodsSince(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now()

	for i, at := range []time.Duration{-3 * time.Hour, -2 * time.Hour, -time.Hour} {
		u := createTestUser(t, db, "happy"+string(rune('a'+i)))
		require.NoError(t, db.SubmitMood(ctx, u.ID,
			&model.MoodSubmission{District: "Ernakulam", Mood: model.MoodHappy, CreatedAt: now.Add(at)}))
	}
	old := createTestUser(t, db, "old")
	require.NoError(t, db.SubmitMood(ctx, old.ID,
		&model.MoodSubmission{District: "Kollam", Mood: model.MoodSad, CreatedAt: now.Add(-25 * time.Hour)}))

	counts, err := db.CountMoodsSince(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, model.District("Ernakulam"), counts[0].District)
	assert.Equal(t, 3, counts[0].Count)
	assert.WithinDuration(t, now.Add(-3*time.Hour), counts[0].FirstSubmittedAt, time.Millisecond)
}
