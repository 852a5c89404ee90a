package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sakif/moodmap/internal/model"
)

// DefaultPollInterval is how often Poll refreshes when given no interval.
const DefaultPollInterval = 30 * time.Second

var (
	// ErrAlreadySubmitted is returned by Select and Submit once the user has
	// used their submission. Nothing is sent to the server.
	ErrAlreadySubmitted = errors.New("client: you have already submitted your mood")
	// ErrNotAuthenticated is returned by calls that need a signed-in session.
	ErrNotAuthenticated = errors.New("client: not signed in")
	// ErrUnknownDistrict is returned by Select for a district not on the board.
	ErrUnknownDistrict = errors.New("client: unknown district")
)

// Session is the signed-in state of one front end: the token, the user it
// belongs to and the last board fetched. It is safe for concurrent use, so
// Poll can run while Submit is called from another goroutine.
type Session struct {
	api *Client

	mu    sync.Mutex
	token string
	user  *model.PublicUser
	board Board
}

// NewSession wraps api. token may be empty, or one saved from an earlier
// login; call Refresh to load the user for it.
func NewSession(api *Client, token string) *Session {
	return &Session{
		api:   api,
		token: token,
		board: NewBoard(nil),
	}
}

// Token returns the current token, empty when signed out.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// User returns a copy of the signed-in user, or nil.
func (s *Session) User() *model.PublicUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Board returns the last fetched board.
func (s *Session) Board() Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board
}

// Authenticated reports whether the session holds a token.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// Login signs in and loads the board.
func (s *Session) Login(ctx context.Context, email, password string) error {
	res, err := s.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	s.signIn(res)
	return s.Refresh(ctx)
}

// Register creates an account, signs in and loads the board.
func (s *Session) Register(ctx context.Context, username, email, password string) error {
	res, err := s.api.Register(ctx, username, email, password)
	if err != nil {
		return err
	}
	s.signIn(res)
	return s.Refresh(ctx)
}

func (s *Session) signIn(res *AuthResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = res.Token
	user := res.User
	s.user = &user
}

// Logout tells the server and forgets the token. The local state is cleared
// even when the server call fails.
func (s *Session) Logout(ctx context.Context) error {
	token := s.Token()
	s.clear()
	if token == "" {
		return nil
	}
	return s.api.Logout(ctx, token)
}

func (s *Session) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = nil
}

// Refresh reloads the user record and the rollup. A 401 means the token is
// no longer accepted, so the session is signed out and the error returned.
func (s *Session) Refresh(ctx context.Context) error {
	token := s.Token()
	if token == "" {
		return ErrNotAuthenticated
	}

	user, err := s.api.Me(ctx, token)
	if err != nil {
		if IsUnauthorized(err) {
			s.clear()
		}
		return err
	}

	rollup, err := s.api.Moods(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != token {
		// Logged out (or in again) while the requests were in flight.
		return nil
	}
	s.user = user
	s.board = NewBoard(rollup)
	return nil
}

// Select checks that the user may submit a mood for district. It is the
// gate in front of the mood picker and sends nothing to the server.
func (s *Session) Select(district model.District) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token == "" || s.user == nil {
		return ErrNotAuthenticated
	}
	if s.user.HasMoodSubmitted {
		return ErrAlreadySubmitted
	}
	if !district.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownDistrict, district)
	}
	return nil
}

// Submit sends the user's mood for district and then reloads everything, so
// the board and HasMoodSubmitted reflect the server's view.
func (s *Session) Submit(ctx context.Context, district model.District, mood model.Mood) (*model.MoodSubmission, error) {
	if err := s.Select(district); err != nil {
		return nil, err
	}

	sub, err := s.api.Submit(ctx, s.Token(), district, mood)
	if err != nil {
		if IsForbidden(err) {
			// Submitted from somewhere else; pick up the flag.
			_ = s.Refresh(ctx)
			return nil, ErrAlreadySubmitted
		}
		return nil, err
	}

	if err := s.Refresh(ctx); err != nil {
		return sub, err
	}
	return sub, nil
}

// Poll refreshes every interval (DefaultPollInterval when interval <= 0),
// starting immediately, and hands each result to onUpdate. Transient errors
// are passed along with the unchanged board and polling continues.
//
// Poll returns nil once the session is signed out, the 401 that signed it
// out, or ctx.Err() when ctx ends.
func (s *Session) Poll(ctx context.Context, interval time.Duration, onUpdate func(Board, error)) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if !s.Authenticated() {
			return nil
		}

		err := s.Refresh(ctx)
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case IsUnauthorized(err):
			return err
		case errors.Is(err, ErrNotAuthenticated):
			return nil
		}
		if onUpdate != nil {
			onUpdate(s.Board(), err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
