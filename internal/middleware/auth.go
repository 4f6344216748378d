package middleware

import (
	"context"
	"log/slog"

	"inkwell/internal/domain/models"
	"inkwell/internal/lib/logger/sl"

	"github.com/labstack/echo/v4"
)

const principalKey = "principal"

type Authenticator interface {
	Authenticate(ctx context.Context, credential string) (*models.Principal, error)
}

// Authenticate resolves the Authorization header into a principal when it
// carries a valid credential. Requests without one pass through; the
// handlers decide whether a principal is required.
func Authenticate(log *slog.Logger, authn Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			credential := c.Request().Header.Get(echo.HeaderAuthorization)
			if credential == "" {
				return next(c)
			}

			principal, err := authn.Authenticate(c.Request().Context(), credential)
			if err != nil {
				log.Debug("credential rejected", slog.String("path", c.Path()), sl.Err(err))
				return next(c)
			}

			c.Set(principalKey, principal)

			return next(c)
		}
	}
}

// PrincipalFrom returns the principal set by Authenticate, or nil.
func PrincipalFrom(c echo.Context) *models.Principal {
	principal, _ := c.Get(principalKey).(*models.Principal)
	return principal
}
