package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"inkwell/internal/domain/models"
	"inkwell/internal/storage"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const postsTable = "posts"

var postColumns = []string{
	"id", "title", "body", "metadata", "media_id", "author_id", "created_at", "updated_at",
}

type PostRepo struct {
	db *pgxpool.Pool
	sb sq.StatementBuilderType
}

func NewPostRepository(db *pgxpool.Pool) *PostRepo {
	return &PostRepo{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *PostRepo) CreatePost(ctx context.Context, post *models.Post) (*models.Post, error) {
	const op = "repository.post_repository.CreatePost"

	query, args, err := r.sb.Insert(postsTable).
		Columns(postColumns...).
		Values(
			post.ID,
			post.Title,
			post.Body,
			post.Metadata,
			post.MediaID,
			post.AuthorID,
			post.CreatedAt,
			post.UpdatedAt,
		).
		Suffix(returningPost()).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	created, err := scanPost(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return created, nil
}

func (r *PostRepo) GetPostByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	const op = "repository.post_repository.GetPostByID"

	query, args, err := r.sb.Select(postColumns...).
		From(postsTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	post, err := scanPost(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrPostNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return post, nil
}

// UpdatePost applies patch and bumps updated_at. Only fields set in patch are written.
func (r *PostRepo) UpdatePost(ctx context.Context, id uuid.UUID, patch models.PostPatch) (*models.Post, error) {
	const op = "repository.post_repository.UpdatePost"

	builder := r.sb.Update(postsTable).
		Set("updated_at", time.Now().UTC())

	if patch.Title != nil {
		builder = builder.Set("title", *patch.Title)
	}
	if patch.Body != nil {
		builder = builder.Set("body", *patch.Body)
	}
	if patch.Metadata != nil {
		builder = builder.Set("metadata", *patch.Metadata)
	}
	switch {
	case patch.ClearMedia:
		builder = builder.Set("media_id", nil)
	case patch.MediaID != nil:
		builder = builder.Set("media_id", *patch.MediaID)
	}

	query, args, err := builder.
		Where(sq.Eq{"id": id}).
		Suffix(returningPost()).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	post, err := scanPost(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrPostNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, foreignKeyErr(err, storage.ErrMediaNotFound))
	}

	return post, nil
}

func (r *PostRepo) DeletePost(ctx context.Context, id uuid.UUID) error {
	const op = "repository.post_repository.DeletePost"

	query, args, err := r.sb.Delete(postsTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	result, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrPostNotFound)
	}

	return nil
}

func returningPost() string {
	return "RETURNING id, title, body, metadata, media_id, author_id, created_at, updated_at"
}

func scanPost(row pgx.Row) (*models.Post, error) {
	var (
		post    models.Post
		mediaID uuid.NullUUID
	)

	err := row.Scan(
		&post.ID,
		&post.Title,
		&post.Body,
		&post.Metadata,
		&mediaID,
		&post.AuthorID,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if mediaID.Valid {
		id := mediaID.UUID
		post.MediaID = &id
	}

	return &post, nil
}
