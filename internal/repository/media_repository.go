package repository

import (
	"context"
	"errors"
	"fmt"

	"inkwell/internal/domain/models"
	"inkwell/internal/storage"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const (
	mediaTable = "media"

	// foreign_key_violation
	pgForeignKeyViolation = "23503"
)

var mediaColumns = []string{
	"id", "post_id", "uploader_id", "created_at", "original_filename", "storage_path", "file_size", "mime_type",
}

type MediaRepo struct {
	db *pgxpool.Pool
	sb sq.StatementBuilderType
}

func NewMediaRepository(db *pgxpool.Pool) *MediaRepo {
	return &MediaRepo{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *MediaRepo) CreateMedia(ctx context.Context, media *models.Media) (*models.Media, error) {
	const op = "repository.media_repository.CreateMedia"

	query, args, err := r.sb.Insert(mediaTable).
		Columns(mediaColumns...).
		Values(
			media.ID,
			media.PostID,
			media.UploaderID,
			media.CreatedAt,
			media.OriginalFilename,
			media.StoragePath,
			media.FileSize,
			media.MimeType,
		).
		Suffix("RETURNING id, post_id, uploader_id, created_at, original_filename, storage_path, file_size, mime_type").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	created, err := scanMedia(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create media: %w", op, err)
	}

	return created, nil
}

func (r *MediaRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Media, error) {
	const op = "repository.media_repository.FindByID"

	query, args, err := r.sb.Select(mediaColumns...).
		From(mediaTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	media, err := scanMedia(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrMediaNotFound)
		}
		return nil, fmt.Errorf("%s: failed to get media: %w", op, err)
	}

	return media, nil
}

// DeleteMedia fails with storage.ErrMediaInUse while a post still references the row.
func (r *MediaRepo) DeleteMedia(ctx context.Context, id uuid.UUID) error {
	const op = "repository.media_repository.DeleteMedia"

	query, args, err := r.sb.Delete(mediaTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	result, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, foreignKeyErr(err, storage.ErrMediaInUse))
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrMediaNotFound)
	}

	return nil
}

func scanMedia(row pgx.Row) (*models.Media, error) {
	var media models.Media

	err := row.Scan(
		&media.ID,
		&media.PostID,
		&media.UploaderID,
		&media.CreatedAt,
		&media.OriginalFilename,
		&media.StoragePath,
		&media.FileSize,
		&media.MimeType,
	)
	if err != nil {
		return nil, err
	}

	return &media, nil
}

// foreignKeyErr maps a foreign key violation to sentinel and leaves other errors alone.
func foreignKeyErr(err, sentinel error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return sentinel
	}
	return err
}
