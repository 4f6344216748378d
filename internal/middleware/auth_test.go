package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"inkwell/internal/domain/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Authenticate(ctx context.Context, credential string) (*models.Principal, error) {
	args := m.Called(ctx, credential)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Principal), args.Error(1)
}

func TestAuthenticate(t *testing.T) {
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	authn := new(MockAuthenticator)
	principal := &models.Principal{ID: uuid.New()}

	authn.On("Authenticate", mock.Anything, "good").Return(principal, nil)
	authn.On("Authenticate", mock.Anything, "bad").Return(nil, errors.New("invalid credential"))

	e := echo.New()
	e.Use(Authenticate(log, authn))
	e.GET("/", func(c echo.Context) error {
		if p := PrincipalFrom(c); p != nil {
			return c.String(http.StatusOK, p.ID.String())
		}
		return c.String(http.StatusOK, "anonymous")
	})

	tests := []struct {
		name       string
		credential string
		want       string
	}{
		{name: "no header", credential: "", want: "anonymous"},
		{name: "rejected", credential: "bad", want: "anonymous"},
		{name: "accepted", credential: "good", want: principal.ID.String()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.credential != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.credential)
			}
			rec := httptest.NewRecorder()

			e.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, rec.Body.String())
		})
	}

	authn.AssertExpectations(t)
}
