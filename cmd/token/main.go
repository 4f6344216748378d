// Command token signs a bearer credential with the configured auth secret,
// for calling the API from scripts and local development.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"inkwell/internal/config"
	"inkwell/internal/domain/models"
	"inkwell/internal/lib/logger/sl"
	"inkwell/internal/services/auth"

	"github.com/google/uuid"
)

func main() {
	var (
		uid   string
		email string
		ttl   time.Duration
	)

	// registered before config.MustLoad parses the command line
	flag.StringVar(&uid, "uid", "", "principal id, random when empty")
	flag.StringVar(&email, "email", "", "principal email")
	flag.DurationVar(&ttl, "ttl", time.Hour, "token lifetime")

	cfg := config.MustLoad()

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	if err := run(auth.New(log, cfg.Auth.Secret, 0), uid, email, ttl, os.Stdout); err != nil {
		log.Error("failed to issue token", sl.Err(err))
		os.Exit(1)
	}
}

func run(authenticator *auth.Authenticator, uid, email string, ttl time.Duration, out io.Writer) error {
	const op = "token.run"

	id := uuid.New()
	if uid != "" {
		parsed, err := uuid.Parse(uid)
		if err != nil {
			return fmt.Errorf("%s: bad uid: %w", op, err)
		}
		id = parsed
	}

	if ttl <= 0 {
		return fmt.Errorf("%s: ttl must be positive", op)
	}

	token, err := authenticator.IssueToken(models.Principal{ID: id, Email: email}, ttl)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	_, err = fmt.Fprintln(out, token)
	return err
}
