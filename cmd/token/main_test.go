package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"inkwell/internal/services/auth"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	authenticator := auth.New(log, "token-cmd-secret", 0)

	id := uuid.New()
	email := gofakeit.Email()

	var out bytes.Buffer
	require.NoError(t, run(authenticator, id.String(), email, time.Hour, &out))

	principal, err := authenticator.Authenticate(context.Background(), "Bearer "+strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, id, principal.ID)
	assert.Equal(t, email, principal.Email)

	assert.Error(t, run(authenticator, "not-a-uuid", email, time.Hour, &out))
	assert.Error(t, run(authenticator, "", email, 0, &out))
}
