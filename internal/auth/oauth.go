package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"

	"github.com/rodionaltshuler/smart-reminder-server/internal/apperror"
)

const (
	DefaultGraphURL        = "https://graph.facebook.com"
	DefaultProviderTimeout = 5 * time.Second

	// maxProfileBytes caps how much of the /me response we read.
	maxProfileBytes = 1 << 20
)

// ProviderProfile is the identity data Facebook returns for an access token.
// Email is empty when the user did not grant the email permission.
type ProviderProfile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// PictureURL is the public profile picture of the provider account.
func (p *ProviderProfile) PictureURL(graphURL string) string {
	return strings.TrimRight(graphURL, "/") + "/" + url.PathEscape(p.ID) + "/picture?type=large"
}

// graphError is the error envelope of the Graph API:
//
//	{"error": {"message": "...", "type": "OAuthException", "code": 190}}
type graphError struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// FacebookConfig configures FacebookProvider. GraphURL, AuthURL and TokenURL
// are overridable so tests can point the provider at an httptest server.
type FacebookConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	GraphURL     string
	AuthURL      string
	TokenURL     string
	Timeout      time.Duration
	// HTTPClient is the base transport; nil means http.DefaultClient.
	HTTPClient *http.Client
}

// FacebookProvider talks to the Facebook Graph API.
//
// Two entry points lead to the same profile fetch:
//   - FetchProfile: the client already holds a Facebook access token (mobile
//     SDK flow, used by POST /login)
//   - Exchange: the browser came back from the Facebook consent page with
//     an authorization code (GET /auth/facebook/callback)
type FacebookProvider struct {
	config   *oauth2.Config
	graphURL string
	timeout  time.Duration
	client   *http.Client
}

// NewFacebookProvider creates a FacebookProvider, filling in defaults.
func NewFacebookProvider(cfg FacebookConfig) *FacebookProvider {
	if cfg.GraphURL == "" {
		cfg.GraphURL = DefaultGraphURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultProviderTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	endpoint := facebook.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	return &FacebookProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Scopes:       []string{"email", "public_profile"},
			Endpoint:     endpoint,
		},
		graphURL: strings.TrimRight(cfg.GraphURL, "/"),
		timeout:  cfg.Timeout,
		client:   cfg.HTTPClient,
	}
}

// GraphURL is the base URL profile pictures are derived from.
func (p *FacebookProvider) GraphURL() string {
	return p.graphURL
}

// AuthURL returns the Facebook consent page URL for the web login flow.
// state is echoed back on the callback and must be checked by the caller.
func (p *FacebookProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades an authorization code for a Facebook access token.
func (p *FacebookProvider) Exchange(ctx context.Context, code string) (string, error) {
	ctx, cancel := context.WithTimeout(p.clientContext(ctx), p.timeout)
	defer cancel()

	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return "", apperror.Unauthorized(fmt.Errorf("%w: %w", ErrProviderUnauthorized, err), "Facebook rejected the authorization code")
		}
		return "", apperror.Internal(fmt.Errorf("%w: %w", ErrProviderUnreachable, err), "auth: exchanging OAuth code")
	}
	return token.AccessToken, nil
}

// FetchProfile calls GET /me with the given access token.
//
// The call is bounded by the provider timeout. An error payload or a 4xx
// answer means the token is bad (401 for the client); transport failures,
// timeouts and 5xx answers mean Facebook is unreachable (500). Nothing is
// retried.
func (p *FacebookProvider) FetchProfile(ctx context.Context, accessToken string) (*ProviderProfile, error) {
	ctx, cancel := context.WithTimeout(p.clientContext(ctx), p.timeout)
	defer cancel()

	// oauth2.NewClient wraps the base client with a transport that adds
	// "Authorization: Bearer <token>" to every request.
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.graphURL+"/me?fields=id,name,email", nil)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("%w: %w", ErrProviderUnreachable, err), "auth: building profile request")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("%w: %w", ErrProviderUnreachable, err), "auth: calling Facebook /me")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProfileBytes))
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("%w: %w", ErrProviderUnreachable, err), "auth: reading Facebook /me response")
	}

	if resp.StatusCode >= 500 {
		return nil, apperror.Internal(ErrProviderUnreachable,
			fmt.Sprintf("auth: Facebook /me returned status %d", resp.StatusCode))
	}

	var gErr graphError
	if json.Unmarshal(body, &gErr) == nil && gErr.Error != nil {
		message := gErr.Error.Message
		if message == "" {
			message = "Facebook rejected the access token"
		}
		return nil, apperror.Unauthorized(ErrProviderUnauthorized, message)
	}
	if resp.StatusCode >= 400 {
		return nil, apperror.Unauthorized(ErrProviderUnauthorized,
			fmt.Sprintf("Facebook rejected the access token (status %d)", resp.StatusCode))
	}

	var profile ProviderProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, apperror.Internal(fmt.Errorf("%w: %w", ErrProviderUnreachable, err), "auth: decoding Facebook /me response")
	}
	if profile.ID == "" {
		return nil, apperror.Internal(ErrProviderUnreachable, "auth: Facebook returned a profile without id")
	}

	return &profile, nil
}

// clientContext hands our base HTTP client to the oauth2 package.
func (p *FacebookProvider) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.client)
}
