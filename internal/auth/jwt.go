// Package auth provides the identity side of the server: access credential
// signing and verification, the identity provider client, and the
// request gate that turns an Authorization header into a Principal.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. The mobile/web client logs in to Facebook and gets a provider access token
//  2. It POSTs that token to /login
//  3. The server fetches the Facebook profile, upserts the local user
//  4. The server issues an access credential (a JWT) bound to the user's id
//  5. Every later request carries "Authorization: <credential>"; the Gate
//     verifies it and attaches the user to the request context
//
// WHY RS256 (asymmetric)?
// The credential is signed with a private key only the login process holds.
// Any other process verifies it with the public key, without being able to
// mint credentials itself.
//
// The claim set is exactly {"user_id": "<id>"}. There is no exp/iat, so a
// credential stays valid as long as the signing key does.
package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rodionaltshuler/smart-reminder-server/internal/apperror"
)

const signingAlgorithm = "RS256"

// Claims is the credential payload.
//
// jwt.RegisteredClaims is embedded only to satisfy the jwt.Claims interface;
// every registered field is left empty and omitted from the encoded token.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies access credentials.
//
// A service built with NewVerifier has no private key: Verify works, Issue
// fails with ErrSigningFailure.
type TokenService struct {
	private *rsa.PrivateKey
	public  *rsa.PublicKey
}

// NewTokenService creates a TokenService from an already loaded key pair.
// private may be nil for verify-only use.
func NewTokenService(private *rsa.PrivateKey, public *rsa.PublicKey) (*TokenService, error) {
	if public == nil && private != nil {
		public = &private.PublicKey
	}
	if public == nil {
		return nil, errors.New("auth: a public key is required to verify credentials")
	}
	return &TokenService{private: private, public: public}, nil
}

// NewVerifier creates a verify-only TokenService.
func NewVerifier(public *rsa.PublicKey) (*TokenService, error) {
	return NewTokenService(nil, public)
}

// LoadTokenService reads the key files once. privatePath may be empty for
// a verify-only process.
func LoadTokenService(privatePath, publicPath string) (*TokenService, error) {
	var (
		private *rsa.PrivateKey
		public  *rsa.PublicKey
		err     error
	)
	if privatePath != "" {
		if private, err = LoadPrivateKey(privatePath); err != nil {
			return nil, err
		}
	}
	if publicPath != "" {
		if public, err = LoadPublicKey(publicPath); err != nil {
			return nil, err
		}
	}
	return NewTokenService(private, public)
}

// CanIssue reports whether the service holds a signing key.
func (s *TokenService) CanIssue() bool {
	return s.private != nil
}

// Issue signs a credential for userID.
//
// A failure here is a server configuration problem (missing or broken key),
// reported as an internal error and never retried.
func (s *TokenService) Issue(userID string) (string, error) {
	if s.private == nil {
		return "", apperror.Internal(ErrSigningFailure, "auth: no private key loaded")
	}
	if userID == "" {
		return "", apperror.Internal(ErrSigningFailure, "auth: cannot issue a credential without a user id")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, Claims{UserID: userID})
	signed, err := token.SignedString(s.private)
	if err != nil {
		return "", apperror.Internal(fmt.Errorf("%w: %w", ErrSigningFailure, err), "auth: signing credential")
	}
	return signed, nil
}

// Verify checks the signature and structure of a credential and returns its
// claims.
//
// Only RS256 is accepted. This blocks both "alg":"none" tokens and the
// classic confusion attack where an HS256 token is signed with the public
// key used as an HMAC secret.
func (s *TokenService) Verify(tokenStr string) (*Claims, error) {
	var c Claims
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&c,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.public, nil
		},
		jwt.WithValidMethods([]string{signingAlgorithm}),
	)
	if err != nil {
		return nil, apperror.Unauthorized(fmt.Errorf("%w: %w", ErrInvalidCredential, err), "Invalid token")
	}
	if !token.Valid {
		return nil, apperror.Unauthorized(ErrInvalidCredential, "Invalid token")
	}
	if c.UserID == "" {
		return nil, apperror.Unauthorized(ErrInvalidCredential, "Invalid token")
	}
	return &c, nil
}
