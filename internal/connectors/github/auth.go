package github

import (
	"context"
	"crypto/rsa"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/issuesync/internal/core/domain"
)

const (
	// appJWTLifetime is the validity of an app JWT. GitHub rejects more
	// than ten minutes.
	appJWTLifetime = 9 * time.Minute

	// appJWTSkew backdates iat to tolerate clock drift.
	appJWTSkew = 60 * time.Second

	// installationTokenTimeout bounds one installation token exchange.
	installationTokenTimeout = 30 * time.Second
)

// NewHTTPClient resolves auth into an authenticated HTTP client. It is
// called once at startup; every component downstream receives the client,
// never the credentials.
func NewHTTPClient(ctx context.Context, auth domain.Auth, cfg Config) (*http.Client, error) {
	if auth == nil {
		return nil, domain.ErrAuthRequired
	}
	if err := auth.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	var ts oauth2.TokenSource
	switch a := auth.(type) {
	case domain.TokenAuth:
		ts = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: a.Token})
	case domain.AppAuth:
		src, err := newAppTokenSource(a, cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		ts = oauth2.ReuseTokenSource(nil, src)
	default:
		return nil, fmt.Errorf("%w: unsupported auth %T", domain.ErrAuthRequired, auth)
	}

	tc := oauth2.NewClient(ctx, ts)
	tc.Timeout = cfg.Timeout
	return tc, nil
}

// appTokenSource exchanges a signed app JWT for an installation token.
type appTokenSource struct {
	appID          int64
	installationID int64
	key            *rsa.PrivateKey
	baseURL        string
	now            func() time.Time
}

func newAppTokenSource(a domain.AppAuth, baseURL string) (*appTokenSource, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(a.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPrivateKey, err)
	}
	if _, err := parseBaseURL(baseURL); err != nil {
		return nil, err
	}
	return &appTokenSource{
		appID:          a.AppID,
		installationID: a.InstallationID,
		key:            key,
		baseURL:        baseURL,
		now:            time.Now,
	}, nil
}

// signJWT returns an RS256 JWT identifying the app.
func (s *appTokenSource) signJWT() (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Issuer:    strconv.FormatInt(s.appID, 10),
		IssuedAt:  jwt.NewNumericDate(now.Add(-appJWTSkew)),
		ExpiresAt: jwt.NewNumericDate(now.Add(appJWTLifetime)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign app jwt: %w", err)
	}
	return signed, nil
}

// Token implements oauth2.TokenSource.
func (s *appTokenSource) Token() (*oauth2.Token, error) {
	signed, err := s.signJWT()
	if err != nil {
		return nil, err
	}

	client := gh.NewClient(&http.Client{Timeout: installationTokenTimeout}).WithAuthToken(signed)
	base, err := parseBaseURL(s.baseURL)
	if err != nil {
		return nil, err
	}
	client.BaseURL = base

	ctx, cancel := context.WithTimeout(context.Background(), installationTokenTimeout)
	defer cancel()

	tok, _, err := client.Apps.CreateInstallationToken(ctx, s.installationID, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create installation token: %w", domain.ErrAuthInvalid, err)
	}

	return &oauth2.Token{
		AccessToken: tok.GetToken(),
		TokenType:   "Bearer",
		Expiry:      tok.GetExpiresAt().Time,
	}, nil
}
