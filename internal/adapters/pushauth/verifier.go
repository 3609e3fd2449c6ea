// Package pushauth verifies bearer tokens on push deliveries using OIDC
// ID token verification against the queue provider's issuer.
package pushauth

import (
	"context"
	"fmt"
	"strings"

	gooidc "github.com/coreos/go-oidc/v3/oidc"

	"github.com/townready/townready/config"
	apperrors "github.com/townready/townready/internal/errors"
)

// Verifier checks the Authorization header of incoming push requests.
// When push auth is disabled every request passes, which is the local
// development mode where the worker pushes to itself without tokens.
type Verifier struct {
	enabled  bool
	verifier *gooidc.IDTokenVerifier
}

// NewVerifier constructs a Verifier. The issuer's discovery document is
// fetched once at construction.
func NewVerifier(ctx context.Context, cfg config.PushAuthConfig) (*Verifier, error) {
	if !cfg.Enabled {
		return &Verifier{}, nil
	}
	if cfg.Issuer == "" {
		return nil, fmt.Errorf("push auth issuer is required")
	}

	provider, err := gooidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}

	oidcCfg := &gooidc.Config{ClientID: cfg.Audience}
	if cfg.Audience == "" {
		oidcCfg.SkipClientIDCheck = true
	}

	return &Verifier{
		enabled:  true,
		verifier: provider.Verifier(oidcCfg),
	}, nil
}

// Enabled reports whether verification is active.
func (v *Verifier) Enabled() bool {
	return v.enabled
}

// VerifyAuthorization validates a raw Authorization header value.
func (v *Verifier) VerifyAuthorization(ctx context.Context, header string) error {
	if !v.enabled {
		return nil
	}

	token, ok := bearerToken(header)
	if !ok {
		return apperrors.ValidationField("authorization", "bearer token is required")
	}
	if _, err := v.verifier.Verify(ctx, token); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, "verify push token")
	}
	return nil
}

func bearerToken(header string) (string, bool) {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
