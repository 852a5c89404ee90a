package handler

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/rs/xid"

	"github.com/sakif/moodmap/internal/auth"
	"github.com/sakif/moodmap/internal/model"
	"github.com/sakif/moodmap/internal/service"
)

const oauthStateCookie = "oauth_state"

// GoogleRedirector builds the Google consent URL. *auth.GoogleProvider implements it.
type GoogleRedirector interface {
	AuthURL(state string) string
}

// AuthOptions carries the deployment settings the auth endpoints need.
type AuthOptions struct {
	ClientURL    string // where the OAuth callback sends the browser
	CookieSecure bool   // set Secure on the token cookie (HTTPS deployments)
}

// AuthHandler serves registration, login, logout, the current user and the
// Google OAuth redirect flow.
type AuthHandler struct {
	auth     *service.AuthService
	google   GoogleRedirector // nil when Google sign-in is not configured
	validate *requestValidator
	opts     AuthOptions
	logger   *slog.Logger
}

// NewAuthHandler creates an AuthHandler. google may be nil.
func NewAuthHandler(
	authService *service.AuthService,
	google GoogleRedirector,
	opts AuthOptions,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:     authService,
		google:   google,
		validate: newRequestValidator(),
		opts:     opts,
		logger:   logger,
	}
}

type registerRequest struct {
	Username string `json:"username" validate:"required,max=50"`
	Email    string `json:"email"    validate:"required,email,max=254"`
	Password string `json:"password" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is the body of a successful register or login.
type AuthResponse struct {
	Token string           `json:"token"`
	User  model.PublicUser `json:"user"`
}

// UserResponse is the body of GET /api/auth/me.
type UserResponse struct {
	User model.PublicUser `json:"user"`
}

// HandleRegister creates a password account.
//
// HTTP: POST /api/auth/register {"username", "email", "password"} → 201 AuthResponse
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.validate.Validate(req, service.MsgMissingFields); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.auth.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setTokenCookie(w, result.Token)
	writeJSON(w, http.StatusCreated, AuthResponse{Token: result.Token, User: result.User.Public()})
}

// HandleLogin signs in with email and password.
//
// HTTP: POST /api/auth/login {"email", "password"} → 200 AuthResponse
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.validate.Validate(req, service.MsgMissingFields); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setTokenCookie(w, result.Token)
	writeJSON(w, http.StatusOK, AuthResponse{Token: result.Token, User: result.User.Public()})
}

// HandleMe returns the authenticated user.
//
// HTTP: GET /api/auth/me (RequireAuth) → 200 UserResponse
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	user, err := h.auth.CurrentUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{User: user.Public()})
}

// HandleLogout clears the token cookie.
//
// Tokens are stateless, so one that was copied elsewhere stays valid until
// it expires. Logout only removes it from this browser.
//
// HTTP: POST /api/auth/logout → 200 {"message"}
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}

// HandleGoogleLogin redirects the browser to Google's consent page.
//
// HTTP: GET /api/auth/google
//
// CSRF PROTECTION VIA STATE:
// A random state goes both into a short-lived HttpOnly cookie and into the
// consent URL. The callback only proceeds when Google hands the same value back.
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()
	h.setStateCookie(w, state, 600)

	http.Redirect(w, r, h.google.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGoogleCallback completes Google sign-in.
//
// HTTP: GET /api/auth/google/callback?code=xxx&state=yyy
//
// Success redirects to CLIENT_URL?token=<jwt> (and sets the cookie);
// any failure redirects to CLIENT_URL?error=auth_failed.
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || q.Get("state") != stateCookie.Value {
		h.logger.Warn("google callback: invalid state")
		h.redirectToClient(w, r, "error", "auth_failed")
		return
	}

	// The state is single-use.
	h.setStateCookie(w, "", -1)

	if errParam := q.Get("error"); errParam != "" {
		h.logger.Info("google callback: authorization denied", slog.String("error", errParam))
		h.redirectToClient(w, r, "error", "auth_failed")
		return
	}

	result, err := h.auth.LoginWithGoogle(r.Context(), q.Get("code"))
	if err != nil {
		h.logger.Error("google callback: sign-in failed", slog.String("error", err.Error()))
		h.redirectToClient(w, r, "error", "auth_failed")
		return
	}

	h.setTokenCookie(w, result.Token)
	h.redirectToClient(w, r, "token", result.Token)
}

func (h *AuthHandler) redirectToClient(w http.ResponseWriter, r *http.Request, key, value string) {
	target := h.opts.ClientURL
	if target == "" {
		target = "/"
	}
	http.Redirect(w, r, target+"?"+url.Values{key: {value}}.Encode(), http.StatusSeeOther)
}

// setStateCookie writes the OAuth state cookie. Setting and clearing share
// one set of attributes so the clearing cookie replaces the original.
func (h *AuthHandler) setStateCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// setTokenCookie stores the JWT in an HttpOnly cookie so page scripts cannot
// read it. SameSite=Lax keeps it off cross-site POSTs.
func (h *AuthHandler) setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   h.auth.TokenMaxAge(),
		HttpOnly: true,
		Secure:   h.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
