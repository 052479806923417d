package auth

import (
	"crypto/rsa"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rodionaltshuler/smart-reminder-server/internal/apperror"
)

// RSA key generation is slow; generate the two test keys once per package.
var (
	testKeyOnce  sync.Once
	testKey      *rsa.PrivateKey
	foreignKey   *rsa.PrivateKey
	testKeyError error
)

func testKeys(t *testing.T) (*rsa.PrivateKey, *rsa.PrivateKey) {
	t.Helper()
	testKeyOnce.Do(func() {
		if testKey, testKeyError = GenerateKeyPair(DefaultKeyBits); testKeyError != nil {
			return
		}
		foreignKey, testKeyError = GenerateKeyPair(DefaultKeyBits)
	})
	require.NoError(t, testKeyError)
	return testKey, foreignKey
}

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	key, _ := testKeys(t)
	ts, err := NewTokenService(key, &key.PublicKey)
	require.NoError(t, err)
	return ts
}

// =========================================================================
// CONSTRUCTION
// =========================================================================

func TestNewTokenService_RequiresAKey(t *testing.T) {
	_, err := NewTokenService(nil, nil)
	require.Error(t, err)
}

func TestNewTokenService_DerivesPublicKey(t *testing.T) {
	key, _ := testKeys(t)
	ts, err := NewTokenService(key, nil)
	require.NoError(t, err)

	token, err := ts.Issue("user-1")
	require.NoError(t, err)
	_, err = ts.Verify(token)
	require.NoError(t, err)
}

func TestLoadTokenService_FromPEMFiles(t *testing.T) {
	key, _ := testKeys(t)
	dir := t.TempDir()

	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")
	pubPEM, err := EncodePublicKeyPEM(&key.PublicKey)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(privPath, EncodePrivateKeyPEM(key), 0o600))
	require.NoError(t, os.WriteFile(pubPath, pubPEM, 0o644))

	signer, err := LoadTokenService(privPath, pubPath)
	require.NoError(t, err)
	verifier, err := LoadTokenService("", pubPath)
	require.NoError(t, err)
	assert.True(t, signer.CanIssue())
	assert.False(t, verifier.CanIssue())

	token, err := signer.Issue("user-42")
	require.NoError(t, err)
	claims, err := verifier.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", claims.UserID)
}

func TestLoadTokenService_MissingFile(t *testing.T) {
	_, err := LoadTokenService(filepath.Join(t.TempDir(), "nope.pem"), "")
	require.Error(t, err)
}

// =========================================================================
// ISSUE
// =========================================================================

func TestIssue_LooksLikeAJWT(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Issue("user-123")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(token, "."), "expected header.payload.signature")
}

func TestIssue_IsDeterministic(t *testing.T) {
	ts := newTestTokenService(t)

	first, err := ts.Issue("user-123")
	require.NoError(t, err)
	second, err := ts.Issue("user-123")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestIssue_ClaimSetIsOnlyUserID(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Issue("user-123")
	require.NoError(t, err)

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	require.NoError(t, err)
	assert.Equal(t, jwt.MapClaims{"user_id": "user-123"}, parsed.Claims)
	assert.Equal(t, "RS256", parsed.Header["alg"])
}

func TestIssue_WithoutPrivateKey(t *testing.T) {
	key, _ := testKeys(t)
	verifier, err := NewVerifier(&key.PublicKey)
	require.NoError(t, err)

	_, err = verifier.Issue("user-123")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSigningFailure)
	assert.ErrorIs(t, err, apperror.ErrInternal)
}

// =========================================================================
// VERIFY
// =========================================================================

func TestVerify_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)

	for _, id := range []string{"a", "user-abc-123", "cv37rs3pp9olc6atsptg"} {
		token, err := ts.Issue(id)
		require.NoError(t, err)

		claims, err := ts.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, id, claims.UserID)
	}
}

func TestVerify_Rejects(t *testing.T) {
	ts := newTestTokenService(t)
	key, foreign := testKeys(t)

	good, err := ts.Issue("user-123")
	require.NoError(t, err)

	foreignSigned, err := jwt.NewWithClaims(jwt.SigningMethodRS256, Claims{UserID: "user-123"}).SignedString(foreign)
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "user-123"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	pubPEM, err := EncodePublicKeyPEM(&key.PublicKey)
	require.NoError(t, err)
	hmacConfused, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: "user-123"}).SignedString(pubPEM)
	require.NoError(t, err)

	noUser, err := jwt.NewWithClaims(jwt.SigningMethodRS256, Claims{}).SignedString(key)
	require.NoError(t, err)

	other, err := ts.Issue("user-999")
	require.NoError(t, err)
	parts := strings.Split(good, ".")
	otherPayload := strings.Split(other, ".")[1]

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.jwt.token"},
		{"tampered signature", good[:len(good)-4] + "AAAA"},
		{"swapped payload", parts[0] + "." + otherPayload + "." + parts[2]},
		{"signed by a foreign key", foreignSigned},
		{"alg none", unsigned},
		{"HS256 with public key as secret", hmacConfused},
		{"missing user_id", noUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ts.Verify(tt.token)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidCredential)
			assert.ErrorIs(t, err, apperror.ErrUnauthorized)
		})
	}
}
