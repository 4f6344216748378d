package jwt

import (
	"errors"
	"fmt"
	"time"

	"inkwell/internal/domain/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// NewToken signs an HS256 token for the principal.
func NewToken(principal models.Principal, secret []byte, duration time.Duration) (string, error) {
	now := time.Now()

	claims := Claims{
		UserID: principal.ID.String(),
		Email:  principal.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseToken verifies signature and expiry and returns the principal the
// token was issued for.
func ParseToken(tokenString string, secret []byte) (*models.Principal, time.Time, error) {
	var claims Claims

	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, time.Time{}, ErrInvalidToken
	}

	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: bad uid claim", ErrInvalidToken)
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	return &models.Principal{ID: id, Email: claims.Email}, expiresAt, nil
}
