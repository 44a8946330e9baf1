package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"capserv/src/app"
	cfg "capserv/src/configuration"

	"github.com/coreos/go-oidc/v3/oidc"
)

type (
	// CredentialResolver extracts the caller's bearer credential from a
	// request. It returns app.ErrUnauthenticated when there is none.
	CredentialResolver interface {
		Resolve(r *http.Request) (app.Credential, error)
	}

	TokenVerifier interface {
		Verify(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)
	}

	SessionResolver struct {
		verifier      TokenVerifier
		accessCookie  string
		idTokenCookie string
		logger        *slog.Logger
	}
)

func NewSessionResolver(config cfg.AuthProperties, verifier TokenVerifier, logger *slog.Logger) *SessionResolver {
	return &SessionResolver{
		verifier:      verifier,
		accessCookie:  config.AccessTokenCookieName,
		idTokenCookie: config.IDTokenCookieName,
		logger:        app.ResolveLogger(logger),
	}
}

// NewTokenVerifier discovers the issuer and returns its ID token verifier.
// When discovery fails the issuer's JWKS endpoint is used directly, so keys
// are fetched lazily on first verification.
func NewTokenVerifier(ctx context.Context, config cfg.AuthProperties, logger *slog.Logger) TokenVerifier {
	logger = app.ResolveLogger(logger)
	oidcConfig := &oidc.Config{
		ClientID:          config.ClientID,
		SkipClientIDCheck: config.ClientID == "",
	}
	if config.InsecureSkipSignature {
		logger.Warn("token signatures are not checked",
			"event", "auth_insecure_verifier",
			"issuer", config.Issuer,
		)
		oidcConfig.InsecureSkipSignatureCheck = true
		return oidc.NewVerifier(config.Issuer, &oidc.StaticKeySet{}, oidcConfig)
	}

	provider, err := oidc.NewProvider(ctx, config.Issuer)
	if err != nil {
		jwksURL := strings.TrimRight(config.Issuer, "/") + "/.well-known/jwks.json"
		logger.Warn("oidc discovery failed, using jwks endpoint",
			"event", "auth_discovery_failed",
			"issuer", config.Issuer,
			"jwks_url", jwksURL,
			"error", err.Error(),
		)
		return oidc.NewVerifier(config.Issuer, oidc.NewRemoteKeySet(ctx, jwksURL), oidcConfig)
	}
	return provider.Verifier(oidcConfig)
}

// Resolve reads the access token from the Authorization header or the
// session cookie and verifies the identity token, falling back to the access
// token itself when no identity cookie is present.
func (s *SessionResolver) Resolve(r *http.Request) (app.Credential, error) {
	token := bearerToken(r)
	if token == "" {
		if cookie, err := r.Cookie(s.accessCookie); err == nil {
			token = strings.TrimSpace(cookie.Value)
		}
	}
	if token == "" {
		return app.Credential{}, app.ErrUnauthenticated
	}

	identity := token
	if cookie, err := r.Cookie(s.idTokenCookie); err == nil && strings.TrimSpace(cookie.Value) != "" {
		identity = strings.TrimSpace(cookie.Value)
	}

	idToken, err := s.verifier.Verify(r.Context(), identity)
	if err != nil {
		s.logger.Info("session token rejected",
			"event", "auth_token_rejected",
			"error", err.Error(),
		)
		return app.Credential{}, fmt.Errorf("%w: %v", app.ErrUnauthenticated, err)
	}
	if strings.TrimSpace(idToken.Subject) == "" {
		return app.Credential{}, fmt.Errorf("%w: token has no subject", app.ErrUnauthenticated)
	}

	var claims struct {
		Email string `json:"email"`
	}
	if err := idToken.Claims(&claims); err != nil {
		s.logger.Debug("can not parse token claims",
			"event", "auth_claims_unreadable",
			"error", err.Error(),
		)
	}
	return app.Credential{
		Token:   token,
		VoterID: idToken.Subject,
		Email:   claims.Email,
	}, nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < len("Bearer ") || !strings.EqualFold(header[:len("Bearer ")], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(header[len("Bearer "):])
}
