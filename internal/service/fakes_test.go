package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/moodmap/internal/apperror"
	"github.com/sakif/moodmap/internal/auth"
	"github.com/sakif/moodmap/internal/model"
)

// =========================================================================
// FAKES
// =========================================================================

// fakeStore is an in-memory repository.UserRepository and
// repository.MoodRepository. Set the *Err fields to simulate database failures.
type fakeStore struct {
	mu     sync.Mutex
	users  map[string]*model.User
	moods  []model.MoodSubmission
	nextID int

	createErr error
	countErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[string]*model.User)}
}

func (f *fakeStore) CreateUser(ctx context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return f.createErr
	}
	for _, u := range f.users {
		if u.Username == user.Username || u.Email == user.Email ||
			(u.GoogleID != nil && user.GoogleID != nil && *u.GoogleID == *user.GoogleID) {
			return apperror.Conflict("User already exists")
		}
	}

	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt

	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeStore) find(match func(*model.User) bool, key string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if match(u) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", key)
}

func (f *fakeStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.ID == id }, id)
}

func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.Email == email }, email)
}

func (f *fakeStore) GetUserByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.GoogleID != nil && *u.GoogleID == googleID }, googleID)
}

func (f *fakeStore) UserExists(ctx context.Context, username, email string) (bool, error) {
	_, err := f.find(func(u *model.User) bool { return u.Username == username || u.Email == email }, username)
	return err == nil, nil
}

func (f *fakeStore) LinkGoogleAccount(ctx context.Context, userID, googleID, picture string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return apperror.NotFound("user", userID)
	}
	u.GoogleID = &googleID
	if picture != "" {
		u.ProfilePicture = &picture
	}
	return nil
}

func (f *fakeStore) SubmitMood(ctx context.Context, userID string, sub *model.MoodSubmission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return apperror.NotFound("user", userID)
	}
	if u.HasMoodSubmitted {
		return apperror.Forbidden("mood already submitted")
	}
	u.HasMoodSubmitted = true
	at := sub.CreatedAt
	u.MoodSubmittedAt = &at

	f.nextID++
	sub.ID = fmt.Sprintf("mood-%d", f.nextID)
	f.moods = append(f.moods, *sub)
	return nil
}

// addMood appends a submission without going through a user.
func (f *fakeStore) addMood(district model.District, mood model.Mood, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moods = append(f.moods, model.MoodSubmission{District: district, Mood: mood, CreatedAt: at})
}

func (f *fakeStore) CountMoodsSince(ctx context.Context, since time.Time) ([]model.MoodCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countErr != nil {
		return nil, f.countErr
	}

	type key struct {
		d model.District
		m model.Mood
	}
	groups := make(map[key]*model.MoodCount)
	var order []key
	for _, s := range f.moods {
		if s.CreatedAt.Before(since) {
			continue
		}
		k := key{s.District, s.Mood}
		g, ok := groups[k]
		if !ok {
			g = &model.MoodCount{District: s.District, Mood: s.Mood, FirstSubmittedAt: s.CreatedAt}
			groups[k] = g
			order = append(order, k)
		}
		g.Count++
		if s.CreatedAt.Before(g.FirstSubmittedAt) {
			g.FirstSubmittedAt = s.CreatedAt
		}
	}

	out := make([]model.MoodCount, 0, len(order))
	for _, k := range order {
		out = append(out, *groups[k])
	}
	return out, nil
}

// fakeGoogle returns a fixed profile for the code "good-code".
type fakeGoogle struct {
	profile *auth.GoogleProfile
}

func (g fakeGoogle) Exchange(ctx context.Context, code string) (*auth.GoogleProfile, error) {
	if code != "good-code" {
		return nil, fmt.Errorf("invalid_grant")
	}
	return g.profile, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
