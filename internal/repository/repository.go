package repository

import (
	"context"
	"fmt"

	"inkwell/internal/storage/postgresql"
)

// Repository groups the post and media stores behind one handle.
type Repository struct {
	pg    *postgresql.Storage
	Post  PostRepository
	Media MediaRepository
}

// NewRepository connects to Postgres and migrates the schema. An empty dsn
// selects the in-memory store.
func NewRepository(ctx context.Context, dsn string) (*Repository, error) {
	const op = "repository.NewRepository"

	if dsn == "" {
		store := NewMemoryStore()
		return &Repository{Post: store, Media: store}, nil
	}

	pg, err := postgresql.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect to database: %w", op, err)
	}

	if err := pg.Migrate(ctx); err != nil {
		pg.Stop()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Repository{
		pg:    pg,
		Post:  NewPostRepository(pg.Pool()),
		Media: NewMediaRepository(pg.Pool()),
	}, nil
}

// HealthCheck pings the database. The in-memory store is always healthy.
func (r *Repository) HealthCheck(ctx context.Context) error {
	if r.pg == nil {
		return nil
	}

	return r.pg.HealthCheck(ctx)
}

func (r *Repository) Close() {
	if r.pg != nil {
		r.pg.Stop()
	}
}
