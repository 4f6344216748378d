package postgresql

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
)

type Storage struct {
	db *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS media (
	id UUID PRIMARY KEY,
	post_id UUID NOT NULL,
	uploader_id UUID NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	original_filename TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	file_size BIGINT NOT NULL,
	mime_type TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS media_post_id_idx ON media (post_id);

CREATE TABLE IF NOT EXISTS posts (
	id UUID PRIMARY KEY,
	title TEXT NOT NULL,
	body TEXT NOT NULL,
	metadata TEXT NOT NULL DEFAULT '',
	media_id UUID NULL REFERENCES media(id),
	author_id UUID NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

func New(ctx context.Context, dsn string) (*Storage, error) {
	const op = "storage.postgresql.New"

	db, err := pgxpool.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db}, nil
}

// NewFromPool wraps an already connected pool.
func NewFromPool(db *pgxpool.Pool) *Storage {
	return &Storage{db: db}
}

func (s *Storage) Pool() *pgxpool.Pool {
	return s.db
}

// Migrate creates the posts and media tables if they are missing.
func (s *Storage) Migrate(ctx context.Context) error {
	const op = "storage.postgresql.Migrate"

	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	const op = "storage.postgresql.HealthCheck"

	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) Stop() {
	s.db.Close()
}
