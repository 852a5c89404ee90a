// Package service holds the business rules, between the HTTP handlers and
// the repositories:
//
//	AuthHandler (HTTP) → AuthService (rules) → UserRepository (DB)
//	                   ↘ TokenService (JWT), PasswordService (bcrypt)
//
//	MoodHandler (HTTP) → MoodService (rules) → MoodRepository (DB)
//
// Services never see HTTP. They return *apperror.AppError values for
// anything the caller should show to the user, and wrapped errors for
// everything else.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rs/xid"

	"github.com/sakif/moodmap/internal/apperror"
	"github.com/sakif/moodmap/internal/auth"
	"github.com/sakif/moodmap/internal/model"
	"github.com/sakif/moodmap/internal/repository"
)

// Messages shown to users.
const (
	MsgMissingFields      = "Please enter all fields"
	MsgPasswordTooShort   = "Password must be at least 6 characters"
	MsgUserExists         = "User already exists"
	MsgInvalidCredentials = "Invalid credentials"
	MsgGoogleOnlyAccount  = "This account uses Google sign-in"
	MsgUserNotFound       = "User not found"
)

// MinPasswordLength is the shortest password Register accepts, in characters.
const MinPasswordLength = 6

// ProfileExchanger turns an OAuth authorization code into a Google profile.
// *auth.GoogleProvider implements it.
type ProfileExchanger interface {
	Exchange(ctx context.Context, code string) (*auth.GoogleProfile, error)
}

// AuthService handles registration, login and session lookups.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	google    ProfileExchanger // nil when Google sign-in is not configured
	logger    *slog.Logger
}

// NewAuthService creates an AuthService. google may be nil.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	google ProfileExchanger,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		google:    google,
		logger:    logger,
	}
}

// AuthResult bundles the user and the issued JWT so the handler can set the
// cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// Register creates a password account and signs it in.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	email = normalizeEmail(email)

	if username == "" || email == "" || password == "" {
		return nil, apperror.ValidationFailed("", MsgMissingFields)
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password", MsgPasswordTooShort)
	}
	if len(password) > auth.MaxPasswordBytes {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("Password must be at most %d characters", auth.MaxPasswordBytes))
	}

	exists, err := s.users.UserExists(ctx, username, email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: checking for existing user: %w", err)
	}
	if exists {
		return nil, apperror.Conflict(MsgUserExists)
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: &hash,
	}
	// The store maps a unique violation to a Conflict, which covers a
	// concurrent registration slipping past UserExists.
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.Conflict(MsgUserExists)
		}
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	return s.issue(user)
}

// Login verifies an email/password pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperror.ValidationFailed("", MsgMissingFields)
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.InvalidCredentials(MsgInvalidCredentials)
		}
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if !user.HasPassword() {
		return nil, apperror.InvalidCredentials(MsgGoogleOnlyAccount)
	}

	if err := s.passwords.Verify(*user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperror.InvalidCredentials(MsgInvalidCredentials)
		}
		return nil, fmt.Errorf("service/auth: verifying password for user %s: %w", user.ID, err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))

	return s.issue(user)
}

// ExchangeProfileForUser resolves a Google profile to a local account:
//
//  1. an account already linked to the Google ID, else
//  2. an account with the same email, which gets the Google ID linked, else
//  3. a new password-less account.
func (s *AuthService) ExchangeProfileForUser(ctx context.Context, profile *auth.GoogleProfile) (*model.User, error) {
	if profile == nil || profile.ID == "" {
		return nil, apperror.ValidationFailed("google", "Google profile is missing an ID")
	}
	email := normalizeEmail(profile.Email)
	if email == "" {
		return nil, apperror.ValidationFailed("email", "Google account has no email address")
	}

	user, err := s.users.GetUserByGoogleID(ctx, profile.ID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: looking up google user: %w", err)
	}

	user, err = s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if err := s.users.LinkGoogleAccount(ctx, user.ID, profile.ID, profile.Picture); err != nil {
			return nil, fmt.Errorf("service/auth: linking google account: %w", err)
		}
		s.logger.Info("google account linked", slog.String("userID", user.ID))
		return s.users.GetUserByID(ctx, user.ID)
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("service/auth: looking up user by email: %w", err)
	}

	return s.createGoogleUser(ctx, profile, email)
}

// createGoogleUser inserts a password-less account. The generated username
// can collide with an existing one, so a few fresh suffixes are tried.
func (s *AuthService) createGoogleUser(ctx context.Context, profile *auth.GoogleProfile, email string) (*model.User, error) {
	googleID := profile.ID
	var picture *string
	if profile.Picture != "" {
		picture = &profile.Picture
	}

	base := usernameBase(profile.Name, email)

	const attempts = 3
	for i := 0; i < attempts; i++ {
		user := &model.User{
			Username:       base + "_" + usernameSuffix(),
			Email:          email,
			GoogleID:       &googleID,
			ProfilePicture: picture,
		}
		err := s.users.CreateUser(ctx, user)
		if err == nil {
			s.logger.Info("user registered via google",
				slog.String("userID", user.ID),
				slog.String("username", user.Username),
			)
			return user, nil
		}
		if !errors.Is(err, apperror.ErrConflict) {
			return nil, fmt.Errorf("service/auth: creating google user: %w", err)
		}
	}

	return nil, apperror.Conflict(MsgUserExists)
}

// LoginWithGoogle completes the OAuth flow for an authorization code.
func (s *AuthService) LoginWithGoogle(ctx context.Context, code string) (*AuthResult, error) {
	if s.google == nil {
		return nil, errors.New("service/auth: google sign-in is not configured")
	}
	if code == "" {
		return nil, apperror.ValidationFailed("code", "Missing authorization code")
	}

	profile, err := s.google.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("service/auth: exchanging google code: %w", err)
	}

	user, err := s.ExchangeProfileForUser(ctx, profile)
	if err != nil {
		return nil, err
	}

	return s.issue(user)
}

// CurrentUser returns the user a validated token refers to. A token for a
// deleted user is treated like an invalid session.
func (s *AuthService) CurrentUser(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.Unauthorized(MsgUserNotFound)
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized(MsgUserNotFound)
		}
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	return user, nil
}

// TokenMaxAge is the lifetime of issued tokens in seconds, for the cookie Max-Age.
func (s *AuthService) TokenMaxAge() int {
	return int(s.tokens.TTL().Seconds())
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// usernameBase lower-cases the display name and joins its words with "_".
// Without a display name the email's local part is used.
func usernameBase(displayName, email string) string {
	fields := strings.FieldsFunc(displayName, unicode.IsSpace)
	if len(fields) == 0 {
		local, _, _ := strings.Cut(email, "@")
		fields = []string{local}
	}
	return strings.ToLower(strings.Join(fields, "_"))
}

// usernameSuffix returns the fast-changing tail of a fresh xid.
func usernameSuffix() string {
	id := xid.New().String()
	return id[len(id)-6:]
}
