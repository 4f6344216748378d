package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"inkwell/internal/domain/models"
	"inkwell/internal/lib/jwt"
	"inkwell/internal/lib/logger/sl"

	"github.com/patrickmn/go-cache"
)

var (
	ErrMissingCredential = errors.New("missing credential")
	ErrInvalidCredential = errors.New("invalid credential")
)

// Authenticator turns an opaque bearer credential into a Principal.
// Verified tokens are cached until they expire or cacheTTL passes,
// whichever comes first.
type Authenticator struct {
	log      *slog.Logger
	secret   []byte
	cacheTTL time.Duration
	verified *cache.Cache
}

func New(log *slog.Logger, secret string, cacheTTL time.Duration) *Authenticator {
	return &Authenticator{
		log:      log,
		secret:   []byte(secret),
		cacheTTL: cacheTTL,
		verified: cache.New(cacheTTL, 2*cacheTTL),
	}
}

// Authenticate accepts either the raw token or "Bearer <token>".
func (a *Authenticator) Authenticate(ctx context.Context, credential string) (*models.Principal, error) {
	const op = "auth.Authenticate"

	token := bearerToken(credential)
	if token == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingCredential)
	}

	if cached, ok := a.verified.Get(token); ok {
		principal := cached.(models.Principal)
		return &principal, nil
	}

	principal, expiresAt, err := jwt.ParseToken(token, a.secret)
	if err != nil {
		a.log.Debug("credential rejected", slog.String("op", op), sl.Err(err))

		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredential)
	}

	if ttl := a.ttlFor(expiresAt); ttl > 0 {
		a.verified.Set(token, *principal, ttl)
	}

	return principal, nil
}

// IssueToken signs a credential for principal. cmd/token exposes it on the command line.
func (a *Authenticator) IssueToken(principal models.Principal, ttl time.Duration) (string, error) {
	const op = "auth.IssueToken"

	token, err := jwt.NewToken(principal, a.secret, ttl)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return token, nil
}

func (a *Authenticator) ttlFor(expiresAt time.Time) time.Duration {
	if a.cacheTTL <= 0 {
		return 0
	}
	if expiresAt.IsZero() {
		return a.cacheTTL
	}
	if left := time.Until(expiresAt); left < a.cacheTTL {
		return left
	}
	return a.cacheTTL
}

func bearerToken(credential string) string {
	credential = strings.TrimSpace(credential)

	if len(credential) > 7 && strings.EqualFold(credential[:7], "bearer ") {
		return strings.TrimSpace(credential[7:])
	}

	return credential
}
