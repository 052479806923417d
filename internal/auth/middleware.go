package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/rodionaltshuler/smart-reminder-server/internal/apperror"
	"github.com/rodionaltshuler/smart-reminder-server/internal/model"
)

// HeaderName is the request header carrying the access credential. The raw
// credential is expected; a "Bearer " prefix is tolerated.
const HeaderName = "Authorization"

// DefaultExemptPaths are reachable without a credential: the login
// endpoints, the provider callback and public docs/ops endpoints.
//
// A pattern ending in "/*" exempts the whole subtree below it, at any
// depth. Other patterns follow path.Match.
var DefaultExemptPaths = []string{
	"/login",
	"/auth/facebook",
	"/auth/facebook/callback",
	"/swagger.json",
	"/api-docs/*",
	"/healthz",
	"/metrics",
}

// contextKey is an unexported type used for context keys in this package,
// so no other package can read or shadow the Principal.
type contextKey string

const principalKey contextKey = "principal"

// UserLookup resolves the user id carried by a credential.
// Implementations return an error matching apperror.ErrNotFound for unknown ids.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// FailureRecorder is notified of every rejected request; reason is one of
// "missing", "invalid", "unknown", "lookup".
type FailureRecorder interface {
	RecordAuthFailure(reason string)
}

// Gate authenticates every request that is not on the exempt list.
type Gate struct {
	tokens   *TokenService
	users    UserLookup
	exempt   []string
	logger   *slog.Logger
	failures FailureRecorder
}

// NewGate creates a Gate. exempt holds path.Match patterns; an invalid
// pattern is a configuration error.
func NewGate(tokens *TokenService, users UserLookup, exempt []string, logger *slog.Logger, failures FailureRecorder) (*Gate, error) {
	for _, p := range exempt {
		if _, err := path.Match(p, "/"); err != nil {
			return nil, fmt.Errorf("auth: invalid exempt path pattern %q: %w", p, err)
		}
	}
	return &Gate{
		tokens:   tokens,
		users:    users,
		exempt:   exempt,
		logger:   logger,
		failures: failures,
	}, nil
}

// IsExempt reports whether requests to urlPath skip authentication.
func (g *Gate) IsExempt(urlPath string) bool {
	for _, p := range g.exempt {
		if prefix, ok := strings.CutSuffix(p, "/*"); ok {
			if strings.HasPrefix(urlPath, prefix+"/") {
				return true
			}
			continue
		}
		if ok, _ := path.Match(p, urlPath); ok {
			return true
		}
	}
	return false
}

// Authenticate turns a raw Authorization header value into the Principal.
//
//   - empty header            → ErrMissingCredential (401)
//   - bad signature/structure → ErrInvalidCredential (401)
//   - user no longer exists   → ErrUnknownPrincipal  (401)
func (g *Gate) Authenticate(ctx context.Context, rawHeader string) (*model.User, error) {
	token := strings.TrimSpace(rawHeader)
	if scheme, rest, ok := strings.Cut(token, " "); ok && strings.EqualFold(scheme, "bearer") {
		token = strings.TrimSpace(rest)
	} else if strings.EqualFold(token, "bearer") {
		token = ""
	}
	if token == "" {
		return nil, apperror.Unauthorized(ErrMissingCredential,
			fmt.Sprintf("Auth header {%s} is missing", HeaderName))
	}

	claims, err := g.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	user, err := g.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized(ErrUnknownPrincipal, "Unknown user")
		}
		return nil, apperror.Internal(err, "auth: resolving principal")
	}
	return user, nil
}

// Middleware enforces authentication on every non-exempt path.
//
// On success the resolved user is stored in the request context; handlers
// read it with PrincipalFromContext. On failure the chain stops with
// 401 {"error": "..."} (or 500 if the user store is failing).
func (g *Gate) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if g.IsExempt(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			user, err := g.Authenticate(r.Context(), r.Header.Get(HeaderName))
			if err != nil {
				g.reject(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), user)))
		})
	}
}

func (g *Gate) reject(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusUnauthorized
	message := "Invalid access token"
	reason := "invalid"

	var appErr *apperror.AppError
	switch {
	case errors.Is(err, apperror.ErrInternal):
		status, message, reason = http.StatusInternalServerError, "An internal error occurred", "lookup"
	case errors.Is(err, ErrMissingCredential):
		reason = "missing"
	case errors.Is(err, ErrUnknownPrincipal):
		reason = "unknown"
	}
	if status == http.StatusUnauthorized && errors.As(err, &appErr) {
		message = appErr.Message
	}

	if g.failures != nil {
		g.failures.RecordAuthFailure(reason)
	}
	if g.logger != nil {
		level := slog.LevelInfo
		if status == http.StatusInternalServerError {
			level = slog.LevelError
		}
		g.logger.Log(r.Context(), level, "request rejected by auth gate",
			slog.String("path", r.URL.Path),
			slog.String("reason", reason),
			slog.String("error", err.Error()),
		)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// WithPrincipal returns a copy of ctx carrying user as the Principal.
func WithPrincipal(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, principalKey, user)
}

// PrincipalFromContext returns the authenticated user of the request.
// ok is false on exempt paths and in contexts that never went through the Gate.
func PrincipalFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(principalKey).(*model.User)
	return user, ok && user != nil
}
