package handler

import (
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/rodionaltshuler/smart-reminder-server/internal/apperror"
	"github.com/rodionaltshuler/smart-reminder-server/internal/model"
	"github.com/rodionaltshuler/smart-reminder-server/internal/service"
)

const stateCookieName = "oauth_state"

// ConsentURLer builds the provider consent page URL for the web login flow.
// *auth.FacebookProvider implements it.
type ConsentURLer interface {
	AuthURL(state string) string
}

// AuthHandler exposes login and the current user.
//
// HANDLER RESPONSIBILITIES:
//   - HandleLogin            → mobile flow: client posts a Facebook access token
//   - HandleFacebookLogin    → web flow: redirect the browser to Facebook
//   - HandleFacebookCallback → web flow: exchange the code, same answer as /login
//   - HandleMe               → the authenticated user's profile
//
// Both login flows answer with the user and the access credential the
// client sends back in the Authorization header.
type AuthHandler struct {
	auth    *service.AuthService
	consent ConsentURLer
	logger  *slog.Logger
}

// NewAuthHandler creates an AuthHandler. consent may be nil when the web
// flow is not configured; the web routes are then not registered.
func NewAuthHandler(auth *service.AuthService, consent ConsentURLer, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:    auth,
		consent: consent,
		logger:  logger,
	}
}

// loginResponse is the user with the issued credential alongside:
//
//	{"_id": "...", "name": "...", "oauth": "...", "accessToken": "eyJ..."}
type loginResponse struct {
	*model.User
	AccessToken string `json:"accessToken"`
}

// HandleLogin signs a user in with a provider access token.
//
// HTTP: POST /login
// Body: accessToken (form or JSON)
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	params, err := readParams(w, r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	result, err := h.auth.Login(r.Context(), params.Get("accessToken"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{User: result.User, AccessToken: result.Token})
}

// HandleFacebookLogin redirects the browser to the Facebook consent page.
//
// HTTP: GET /auth/facebook
//
// A random state is stored in a short-lived cookie and checked on callback,
// so only callbacks initiated by this server are accepted.
func (h *AuthHandler) HandleFacebookLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.consent.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleFacebookCallback completes the web login flow.
//
// HTTP: GET /auth/facebook/callback?code=xxx&state=yyy
func (h *AuthHandler) HandleFacebookCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || query.Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state mismatch", slog.String("got", query.Get("state")))
		writeError(w, r, h.logger, apperror.ValidationFailed("state", "Invalid OAuth state"))
		return
	}

	// Single use.
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := query.Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		writeError(w, r, h.logger, apperror.New(apperror.ErrUnauthorized, "Facebook login was denied"))
		return
	}

	result, err := h.auth.LoginWithCode(r.Context(), query.Get("code"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{User: result.User, AccessToken: result.Token})
}

// HandleMe returns the authenticated user.
//
// HTTP: GET /me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := principal(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, user)
}
