package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/sakif/moodmap/internal/auth"
	"github.com/sakif/moodmap/internal/handler"
	sqliteRepo "github.com/sakif/moodmap/internal/repository/sqlite"
	"github.com/sakif/moodmap/internal/service"
)

const testSecret = "handler-test-secret-0123456789"

// fakeGoogle stands in for *auth.GoogleProvider on both sides of the flow.
type fakeGoogle struct {
	profile *auth.GoogleProfile
}

func (g *fakeGoogle) AuthURL(state string) string {
	return "https://accounts.example.com/o/oauth2/auth?" + url.Values{"state": {state}}.Encode()
}

func (g *fakeGoogle) Exchange(ctx context.Context, code string) (*auth.GoogleProfile, error) {
	if code != "good-code" {
		return nil, errors.New("invalid_grant")
	}
	return g.profile, nil
}

// testApp is the API mounted on a real in-memory store.
type testApp struct {
	router *chi.Mux
	db     *sqliteRepo.DB
	tokens *auth.TokenService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	return newTestAppWithOptions(t, handler.AuthOptions{ClientURL: "http://localhost:3000"})
}

func newTestAppWithOptions(t *testing.T, opts handler.AuthOptions) *testApp {
	t.Helper()

	db, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService(testSecret, time.Hour)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	google := &fakeGoogle{profile: &auth.GoogleProfile{
		ID:    "g-100",
		Email: "Meera@Example.com",
		Name:  "Meera Nair",
	}}

	authService := service.NewAuthService(db, tokens, auth.NewPasswordServiceWithCost(4), google, logger)
	moodService := service.NewMoodService(db, logger)

	authHandler := handler.NewAuthHandler(authService, google, opts, logger)
	moodHandler := handler.NewMoodHandler(moodService, logger)
	requireAuth := auth.RequireAuth(tokens)

	r := chi.NewRouter()
	r.Get("/health", handler.HandleHealth(db, logger))
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
		r.With(requireAuth).Get("/me", authHandler.HandleMe)
		r.Get("/google", authHandler.HandleGoogleLogin)
		r.Get("/google/callback", authHandler.HandleGoogleCallback)
	})
	r.Route("/api/moods", func(r chi.Router) {
		r.Get("/", moodHandler.HandleList)
		r.With(requireAuth).Post("/", moodHandler.HandleSubmit)
	})

	return &testApp{router: r, db: db, tokens: tokens}
}

// do sends a request with an optional JSON body and bearer token.
func (a *testApp) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

// register creates an account and returns its token.
func (a *testApp) register(t *testing.T, username string) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "secret123",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[handler.AuthResponse](t, rec).Token
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[handler.ErrorResponse](t, rec).Error
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
