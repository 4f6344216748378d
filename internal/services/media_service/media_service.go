package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"path"
	"path/filepath"
	"strings"

	"inkwell/internal/domain/models"
	"inkwell/internal/lib/logger/sl"
	"inkwell/internal/metrics"
	"inkwell/internal/repository"
	"inkwell/internal/storage"
	"inkwell/internal/storage/filestorage"

	"github.com/google/uuid"
)

var (
	ErrPostNotFound  = errors.New("post not found")
	ErrMediaNotFound = errors.New("featured media not found")
	ErrUploadMissing = errors.New("upload is missing")
	ErrInvalidUpload = errors.New("upload is invalid")
)

// MediaService links a post to at most one featured media asset and removes
// the asset when the link goes away.
type MediaService struct {
	log         *slog.Logger
	posts       repository.PostRepository
	media       repository.MediaRepository
	fileStorage filestorage.FileStorage
}

func NewMediaService(
	log *slog.Logger,
	posts repository.PostRepository,
	media repository.MediaRepository,
	fileStorage filestorage.FileStorage,
) *MediaService {
	return &MediaService{
		log:         log,
		posts:       posts,
		media:       media,
		fileStorage: fileStorage,
	}
}

// Attach stores file as the post's featured media. A previously attached
// media is removed only after the post points at the new one.
func (s *MediaService) Attach(ctx context.Context, postID, uploaderID uuid.UUID, file *multipart.FileHeader) (*models.Post, error) {
	const op = "media_service.Attach"

	log := s.log.With(
		slog.String("op", op),
		slog.String("post_id", postID.String()),
	)

	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}

	if file == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrUploadMissing)
	}

	mediaID := uuid.New()
	name := mediaID.String() + strings.ToLower(filepath.Ext(file.Filename))

	filePath, fileSize, err := s.fileStorage.Save(ctx, file, postSubPath(postID), name)
	if err != nil {
		log.Error("failed to save file", sl.Err(err))

		if errors.Is(err, storage.ErrFileTooLarge) || errors.Is(err, storage.ErrEmptyFile) {
			return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidUpload, err)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	media := models.NewMedia(postID, uploaderID, file.Filename, filePath, file.Header.Get("Content-Type"), fileSize)
	media.ID = mediaID

	if err := media.Validate(); err != nil {
		s.removeFile(ctx, log, filePath)
		log.Warn("media validation failed", sl.Err(err))

		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidUpload, err)
	}

	created, err := s.media.CreateMedia(ctx, media)
	if err != nil {
		s.removeFile(ctx, log, filePath)
		log.Error("failed to save media to database", sl.Err(err))

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	updated, err := s.posts.UpdatePost(ctx, postID, models.PostPatch{MediaID: &created.ID})
	if err != nil {
		s.discard(ctx, log, created)
		log.Error("failed to link media to post", sl.Err(err))

		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}

	if post.HasMedia() && *post.MediaID != created.ID {
		s.discardByID(ctx, log, *post.MediaID)
	}

	updated.MediaURL = s.fileStorage.URL(created.StoragePath)

	log.Info("featured media attached", slog.String("media_id", created.ID.String()))

	return updated, nil
}

// Detach clears the featured media. A post without media is returned as is.
func (s *MediaService) Detach(ctx context.Context, postID uuid.UUID) (*models.Post, error) {
	const op = "media_service.Detach"

	log := s.log.With(
		slog.String("op", op),
		slog.String("post_id", postID.String()),
	)

	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}

	if !post.HasMedia() {
		return post, nil
	}

	oldID := *post.MediaID

	updated, err := s.posts.UpdatePost(ctx, postID, models.PostPatch{ClearMedia: true})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}

	s.discardByID(ctx, log, oldID)

	log.Info("featured media detached", slog.String("media_id", oldID.String()))

	return updated, nil
}

// CascadeDelete removes the post's media ahead of deleting the post itself.
func (s *MediaService) CascadeDelete(ctx context.Context, postID uuid.UUID) error {
	const op = "media_service.CascadeDelete"

	if _, err := s.Detach(ctx, postID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// ResolveURL fills post.MediaURL from its featured media. A post without
// media gets an empty URL.
func (s *MediaService) ResolveURL(ctx context.Context, post *models.Post) error {
	const op = "media_service.ResolveURL"

	post.MediaURL = ""
	if !post.HasMedia() {
		return nil
	}

	media, err := s.media.FindByID(ctx, *post.MediaID)
	if err != nil {
		if errors.Is(err, storage.ErrMediaNotFound) {
			return fmt.Errorf("%s: %w", op, ErrMediaNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	post.MediaURL = s.fileStorage.URL(media.StoragePath)

	return nil
}

// OpenMedia returns the featured media of a post and a reader for its payload.
// The caller closes the reader.
func (s *MediaService) OpenMedia(ctx context.Context, postID uuid.UUID) (*models.Media, io.ReadCloser, error) {
	const op = "media_service.OpenMedia"

	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, notFound(err))
	}

	if !post.HasMedia() {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrMediaNotFound)
	}

	media, err := s.media.FindByID(ctx, *post.MediaID)
	if err != nil {
		if errors.Is(err, storage.ErrMediaNotFound) {
			return nil, nil, fmt.Errorf("%s: %w", op, ErrMediaNotFound)
		}
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	rc, err := s.fileStorage.Open(ctx, media.StoragePath)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			return nil, nil, fmt.Errorf("%s: %w", op, ErrMediaNotFound)
		}
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	return media, rc, nil
}

func (s *MediaService) discardByID(ctx context.Context, log *slog.Logger, mediaID uuid.UUID) {
	media, err := s.media.FindByID(ctx, mediaID)
	if err != nil {
		if !errors.Is(err, storage.ErrMediaNotFound) {
			log.Error("failed to load unlinked media", slog.String("media_id", mediaID.String()), sl.Err(err))
			metrics.OrphanedMedia.WithLabelValues("record").Inc()
		}
		return
	}

	s.discard(ctx, log, media)
}

// discard deletes an unreferenced media row and its file. Failures leave an
// orphan behind; they are logged and counted but never returned.
func (s *MediaService) discard(ctx context.Context, log *slog.Logger, media *models.Media) {
	ctx = context.WithoutCancel(ctx)

	if err := s.media.DeleteMedia(ctx, media.ID); err != nil && !errors.Is(err, storage.ErrMediaNotFound) {
		log.Error("failed to delete media record", slog.String("media_id", media.ID.String()), sl.Err(err))
		metrics.OrphanedMedia.WithLabelValues("record").Inc()
	}

	s.removeFile(ctx, log, media.StoragePath)
}

func (s *MediaService) removeFile(ctx context.Context, log *slog.Logger, filePath string) {
	if err := s.fileStorage.Delete(context.WithoutCancel(ctx), filePath); err != nil && !errors.Is(err, storage.ErrFileNotFound) {
		log.Error("failed to delete media file", slog.String("path", filePath), sl.Err(err))
		metrics.OrphanedMedia.WithLabelValues("file").Inc()
	}
}

func postSubPath(postID uuid.UUID) string {
	return path.Join("posts", postID.String())
}

func notFound(err error) error {
	if errors.Is(err, storage.ErrPostNotFound) {
		return fmt.Errorf("%w: %w", ErrPostNotFound, err)
	}
	return err
}
