// Package service holds the business rules of the server: identity
// resolution at login and the collaboration rules for lists and items.
//
// Services depend on the repository interfaces, never on SQL or HTTP:
//
//	handler (HTTP) → service (rules) → repository (store)
//
// Every returned error is an *apperror.AppError, so handlers only map kinds
// to status codes.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/rodionaltshuler/smart-reminder-server/internal/apperror"
	"github.com/rodionaltshuler/smart-reminder-server/internal/auth"
	"github.com/rodionaltshuler/smart-reminder-server/internal/model"
	"github.com/rodionaltshuler/smart-reminder-server/internal/repository"
)

// IdentityProvider is the external identity provider. *auth.FacebookProvider
// implements it.
type IdentityProvider interface {
	FetchProfile(ctx context.Context, accessToken string) (*auth.ProviderProfile, error)
	Exchange(ctx context.Context, code string) (string, error)
	GraphURL() string
}

// CredentialIssuer signs access credentials. *auth.TokenService implements it.
type CredentialIssuer interface {
	Issue(userID string) (string, error)
}

// LoginRecorder counts login outcomes.
type LoginRecorder interface {
	RecordLogin(outcome string)
}

// AuthService resolves a provider identity to a local user and issues the
// access credential.
type AuthService struct {
	users    repository.UserRepository
	provider IdentityProvider
	tokens   CredentialIssuer
	logger   *slog.Logger
	recorder LoginRecorder
}

// NewAuthService creates an AuthService. recorder may be nil.
func NewAuthService(
	users repository.UserRepository,
	provider IdentityProvider,
	tokens CredentialIssuer,
	logger *slog.Logger,
	recorder LoginRecorder,
) *AuthService {
	return &AuthService{
		users:    users,
		provider: provider,
		tokens:   tokens,
		logger:   logger,
		recorder: recorder,
	}
}

// AuthResult bundles the user and the credential issued for it.
type AuthResult struct {
	User  *model.User
	Token string
}

// Login exchanges a provider access token for a local user and a credential:
//
//  1. fetch the provider profile (401 if the provider rejects the token)
//  2. upsert the user by email, or by provider subject without an email
//  3. sign a credential bound to the user's id
//
// Nothing is retried; a provider or store failure aborts the login.
func (s *AuthService) Login(ctx context.Context, accessToken string) (*AuthResult, error) {
	if strings.TrimSpace(accessToken) == "" {
		s.record("invalid_request")
		return nil, apperror.ValidationFailed("accessToken", "Required param {accessToken} is missing")
	}

	profile, err := s.provider.FetchProfile(ctx, accessToken)
	if err != nil {
		s.record(loginOutcome(err))
		return nil, err
	}

	user, err := s.UpsertUserFromProfile(ctx, profile)
	if err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			s.record(loginOutcome(err))
		} else {
			s.record("store_failure")
		}
		return nil, err
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.record("signing_failure")
		return nil, err
	}

	s.record("success")
	s.logger.Info("user authenticated",
		slog.String("userID", user.ID),
		slog.String("oauth", user.OAuth),
	)

	return &AuthResult{User: user, Token: token}, nil
}

// LoginWithCode completes the browser redirect flow: the authorization code
// is exchanged for a provider access token, then Login runs as usual.
func (s *AuthService) LoginWithCode(ctx context.Context, code string) (*AuthResult, error) {
	if strings.TrimSpace(code) == "" {
		s.record("invalid_request")
		return nil, apperror.ValidationFailed("code", "Required param {code} is missing")
	}

	accessToken, err := s.provider.Exchange(ctx, code)
	if err != nil {
		s.record(loginOutcome(err))
		return nil, err
	}
	return s.Login(ctx, accessToken)
}

// UpsertUserFromProfile builds the canonical user for a provider profile and
// stores it. Repeated calls with the same profile return the same user.
func (s *AuthService) UpsertUserFromProfile(ctx context.Context, profile *auth.ProviderProfile) (*model.User, error) {
	if profile == nil || profile.ID == "" {
		return nil, apperror.Internal(errors.New("profile has no subject id"), "service/auth: invalid provider profile")
	}

	name := strings.TrimSpace(profile.Name)
	if name == "" {
		name = profile.ID
	}

	user, err := s.users.UpsertFromProfile(ctx, &model.User{
		Name:    name,
		Email:   normalizeEmail(profile.Email),
		OAuth:   profile.ID,
		Picture: profile.PictureURL(s.provider.GraphURL()),
	})
	if err != nil {
		return nil, storeError(err, "service/auth: upserting user")
	}
	return user, nil
}

// GetUserByID returns the user with the given id. The server hands the
// service to the auth gate as its auth.UserLookup.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.NotFound("User", id)
	}
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "service/auth: fetching user")
	}
	return user, nil
}

func (s *AuthService) record(outcome string) {
	if s.recorder != nil {
		s.recorder.RecordLogin(outcome)
	}
}

func loginOutcome(err error) string {
	switch {
	case errors.Is(err, auth.ErrProviderUnauthorized):
		return "provider_rejected"
	case errors.Is(err, auth.ErrProviderUnreachable):
		return "provider_unreachable"
	case errors.Is(err, apperror.ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}

// normalizeEmail trims and lower-cases an email with Unicode-aware casing.
// A Caser is not safe for concurrent use, so one is built per call.
func normalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	if email == "" {
		return ""
	}
	return cases.Lower(language.Und).String(email)
}
