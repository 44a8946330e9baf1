package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"capserv/src/app"
	cfg "capserv/src/configuration"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testIssuer = "https://auth.test/auth/v1"

func testAuthProperties() cfg.AuthProperties {
	return cfg.AuthProperties{
		Issuer:                testIssuer,
		AccessTokenCookieName: "sb-access-token",
		IDTokenCookieName:     "sb-id-token",
		RefreshCookieName:     "sb-refresh-token",
		CookieDomain:          "localhost",
		InsecureSkipSignature: true,
	}
}

// unsignedToken builds a compact JWT with an arbitrary signature segment.
func unsignedToken(t *testing.T, claims map[string]any) string {
	t.Helper()
	enc := base64.RawURLEncoding
	header, err := json.Marshal(map[string]string{"alg": "RS256", "typ": "JWT"})
	require.NoError(t, err)
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	return strings.Join([]string{enc.EncodeToString(header), enc.EncodeToString(payload), enc.EncodeToString([]byte("sig"))}, ".")
}

func validClaims(subject string) map[string]any {
	return map[string]any{
		"iss":   testIssuer,
		"sub":   subject,
		"aud":   "authenticated",
		"exp":   time.Now().Add(time.Hour).Unix(),
		"email": subject + "@example.com",
	}
}

func newTestResolver() *SessionResolver {
	props := testAuthProperties()
	return NewSessionResolver(props, NewTokenVerifier(context.Background(), props, nil), nil)
}

func TestSessionResolver(t *testing.T) {
	resolver := newTestResolver()

	t.Run("bearer header", func(t *testing.T) {
		token := unsignedToken(t, validClaims("u1"))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		cred, err := resolver.Resolve(req)
		require.NoError(t, err)
		assert.Equal(t, token, cred.Token)
		assert.Equal(t, "u1", cred.VoterID)
		assert.Equal(t, "u1@example.com", cred.Email)
	})

	t.Run("session cookies", func(t *testing.T) {
		access := unsignedToken(t, validClaims("access-subject"))
		identity := unsignedToken(t, validClaims("u2"))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "sb-access-token", Value: access})
		req.AddCookie(&http.Cookie{Name: "sb-id-token", Value: identity})

		cred, err := resolver.Resolve(req)
		require.NoError(t, err)
		assert.Equal(t, access, cred.Token)
		assert.Equal(t, "u2", cred.VoterID)
	})

	t.Run("no session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		_, err := resolver.Resolve(req)
		assert.ErrorIs(t, err, app.ErrUnauthenticated)
	})

	t.Run("non bearer scheme", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		_, err := resolver.Resolve(req)
		assert.ErrorIs(t, err, app.ErrUnauthenticated)
	})

	t.Run("expired token", func(t *testing.T) {
		claims := validClaims("u1")
		claims["exp"] = time.Now().Add(-time.Hour).Unix()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+unsignedToken(t, claims))
		_, err := resolver.Resolve(req)
		assert.ErrorIs(t, err, app.ErrUnauthenticated)
	})

	t.Run("foreign issuer", func(t *testing.T) {
		claims := validClaims("u1")
		claims["iss"] = "https://elsewhere.test"
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+unsignedToken(t, claims))
		_, err := resolver.Resolve(req)
		assert.ErrorIs(t, err, app.ErrUnauthenticated)
	})

	t.Run("missing subject", func(t *testing.T) {
		claims := validClaims("")
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+unsignedToken(t, claims))
		_, err := resolver.Resolve(req)
		assert.ErrorIs(t, err, app.ErrUnauthenticated)
	})

	t.Run("malformed token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		_, err := resolver.Resolve(req)
		assert.ErrorIs(t, err, app.ErrUnauthenticated)
	})
}

func TestSessionResolverAudience(t *testing.T) {
	props := testAuthProperties()
	props.ClientID = "capserv"
	resolver := NewSessionResolver(props, NewTokenVerifier(context.Background(), props, nil), nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+unsignedToken(t, validClaims("u1")))
	_, err := resolver.Resolve(req)
	assert.ErrorIs(t, err, app.ErrUnauthenticated)

	claims := validClaims("u1")
	claims["aud"] = []string{"capserv"}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+unsignedToken(t, claims))
	cred, err := resolver.Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, "u1", cred.VoterID)
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"Bearer":       "",
		"Token abc":    "",
		"":             "",
	}
	for header, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		assert.Equal(t, want, bearerToken(req), "header %q", header)
	}
}
