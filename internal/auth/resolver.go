package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// FallbackConfig controls the development fallback identity: when enabled
// and a request's token cannot be resolved, the resolver falls back to the
// configured account. Disabled by default; production deployments leave it
// off.
type FallbackConfig struct {
	Enabled bool
	Email   string
}

// Resolver maps an inbound bearer token to a resolved Identity.
type Resolver struct {
	tokens   *TokenService
	users    UserStore
	fallback FallbackConfig
	log      zerolog.Logger
}

// NewResolver constructs a Resolver. The fallback configuration is fixed at
// startup and injected, never read from ambient state.
func NewResolver(tokens *TokenService, users UserStore, fallback FallbackConfig, log zerolog.Logger) *Resolver {
	return &Resolver{tokens: tokens, users: users, fallback: fallback, log: log}
}

// Resolve produces the identity for a raw token, or (nil, nil) when no
// identity can be established. Resolution errors other than "no identity"
// are store failures and are returned as-is.
//
// The token path requires the subject to parse as a user id and the user to
// be active and unlocked; any failure along the way falls through to the
// fallback account when one is configured.
func (r *Resolver) Resolve(ctx context.Context, token string) (*Identity, error) {
	if strings.TrimSpace(token) == "" {
		return nil, nil
	}

	claims, err := r.tokens.Verify(token)
	if err != nil {
		return r.resolveFallback(ctx)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return r.resolveFallback(ctx)
	}

	user, err := r.users.FindActive(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return r.resolveFallback(ctx)
		}
		return nil, err
	}

	return r.identityFor(ctx, user)
}

func (r *Resolver) resolveFallback(ctx context.Context) (*Identity, error) {
	if !r.fallback.Enabled || strings.TrimSpace(r.fallback.Email) == "" {
		return nil, nil
	}
	user, err := r.users.FindActiveByEmail(ctx, r.fallback.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	r.log.Debug().Str("email", r.fallback.Email).Msg("resolved fallback identity")
	return r.identityFor(ctx, user)
}

func (r *Resolver) identityFor(ctx context.Context, user *User) (*Identity, error) {
	perms, err := r.users.PermissionsForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return NewIdentity(user, perms), nil
}
