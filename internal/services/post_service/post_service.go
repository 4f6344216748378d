package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"reflect"
	"strings"
	"time"

	"inkwell/internal/domain/models"
	"inkwell/internal/events"
	"inkwell/internal/lib/logger/sl"
	"inkwell/internal/lib/metadata"
	"inkwell/internal/lib/sanitize"
	"inkwell/internal/metrics"
	"inkwell/internal/repository"
	media "inkwell/internal/services/media_service"
	"inkwell/internal/storage"
	"inkwell/internal/transport/http/dto"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// MediaLinker manages the featured media of a post.
type MediaLinker interface {
	Attach(ctx context.Context, postID, uploaderID uuid.UUID, file *multipart.FileHeader) (*models.Post, error)
	Detach(ctx context.Context, postID uuid.UUID) (*models.Post, error)
	CascadeDelete(ctx context.Context, postID uuid.UUID) error
	OpenMedia(ctx context.Context, postID uuid.UUID) (*models.Media, io.ReadCloser, error)
	ResolveURL(ctx context.Context, post *models.Post) error
}

type PostService struct {
	log       *slog.Logger
	posts     repository.PostRepository
	linker    MediaLinker
	locker    repository.PostLocker
	publisher events.Publisher
	sanitizer *sanitize.Sanitizer
	validate  *validator.Validate
}

func NewPostService(
	log *slog.Logger,
	posts repository.PostRepository,
	linker MediaLinker,
	locker repository.PostLocker,
	publisher events.Publisher,
) *PostService {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	return &PostService{
		log:       log,
		posts:     posts,
		linker:    linker,
		locker:    locker,
		publisher: publisher,
		sanitizer: sanitize.New(),
		validate:  validate,
	}
}

// CreatePost stores a new post authored by principal. Title and body are
// sanitized before they are persisted.
func (s *PostService) CreatePost(ctx context.Context, principal *models.Principal, req dto.CreatePostRequest) (post *models.Post, err error) {
	const op = "post_service.CreatePost"
	defer func() { observe("create", err) }()

	if principal == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthenticated)
	}

	log := s.log.With(
		slog.String("op", op),
		slog.String("author_id", principal.ID.String()),
	)

	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", op, invalid(fieldReasons(err), err))
	}

	title, body := s.sanitizer.Sanitize(req.Title), s.sanitizer.Sanitize(req.Body)
	if title == "" {
		return nil, fmt.Errorf("%s: %w", op, invalid("title is empty after sanitizing", nil))
	}
	if body == "" {
		return nil, fmt.Errorf("%s: %w", op, invalid("body is empty after sanitizing", nil))
	}

	encoded, err := encodeMetadata(req.Metadata)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	post, err = s.posts.CreatePost(ctx, &models.Post{
		ID:        uuid.New(),
		Title:     title,
		Body:      body,
		Metadata:  encoded,
		AuthorID:  principal.ID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		log.Error("failed to create post", sl.Err(err))

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("post created", slog.String("post_id", post.ID.String()))
	s.publish(ctx, events.PostCreated, post, principal)

	return post, nil
}

// GetPost is the public read of a single post.
func (s *PostService) GetPost(ctx context.Context, id string) (*models.Post, error) {
	const op = "post_service.GetPost"

	postID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translateNotFound(err))
	}

	s.resolveMediaURL(ctx, op, post)

	return post, nil
}

// EditPost merges req into the post. Concurrent edits are last write wins per field.
func (s *PostService) EditPost(ctx context.Context, principal *models.Principal, id string, req dto.UpdatePostRequest) (post *models.Post, err error) {
	const op = "post_service.EditPost"
	defer func() { observe("edit", err) }()

	if principal == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthenticated)
	}

	postID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	log := s.log.With(
		slog.String("op", op),
		slog.String("post_id", postID.String()),
	)

	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", op, invalid(fieldReasons(err), err))
	}

	if req.IsEmpty() {
		post, err := s.posts.GetPostByID(ctx, postID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, translateNotFound(err))
		}
		s.resolveMediaURL(ctx, op, post)
		return post, nil
	}

	var patch models.PostPatch

	if req.Title != nil {
		title := s.sanitizer.Sanitize(*req.Title)
		if title == "" {
			return nil, fmt.Errorf("%s: %w", op, invalid("title is empty after sanitizing", nil))
		}
		patch.Title = &title
	}
	if req.Body != nil {
		body := s.sanitizer.Sanitize(*req.Body)
		if body == "" {
			return nil, fmt.Errorf("%s: %w", op, invalid("body is empty after sanitizing", nil))
		}
		patch.Body = &body
	}
	if req.Metadata != nil {
		encoded, err := encodeMetadata(req.Metadata)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		patch.Metadata = &encoded
	}

	post, err = s.posts.UpdatePost(ctx, postID, patch)
	if err != nil {
		if !errors.Is(err, storage.ErrPostNotFound) {
			log.Error("failed to update post", sl.Err(err))
		}

		return nil, fmt.Errorf("%s: %w", op, translateNotFound(err))
	}

	log.Info("post updated")
	s.resolveMediaURL(ctx, op, post)
	s.publish(ctx, events.PostUpdated, post, principal)

	return post, nil
}

// AttachFeatured replaces the featured media of the post with file.
func (s *PostService) AttachFeatured(ctx context.Context, principal *models.Principal, id string, file *multipart.FileHeader) (post *models.Post, err error) {
	const op = "post_service.AttachFeatured"
	defer func() { observe("attach_featured", err) }()

	if principal == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthenticated)
	}

	postID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, invalid("post id is missing or malformed", err))
	}

	if file == nil {
		return nil, fmt.Errorf("%s: %w", op, invalid("upload is missing", media.ErrUploadMissing))
	}

	unlock, err := s.lock(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer unlock()

	post, err = s.linker.Attach(ctx, postID, principal.ID, file)
	if err != nil {
		switch {
		case errors.Is(err, media.ErrPostNotFound):
			return nil, fmt.Errorf("%s: %w", op, invalid("post does not exist", err))
		case errors.Is(err, media.ErrUploadMissing):
			return nil, fmt.Errorf("%s: %w", op, invalid("upload is missing", err))
		case errors.Is(err, media.ErrInvalidUpload):
			return nil, fmt.Errorf("%s: %w", op, invalid(uploadReason(err), err))
		}

		s.log.Error("failed to attach featured media", slog.String("op", op), slog.String("post_id", postID.String()), sl.Err(err))

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.publish(ctx, events.PostFeatured, post, principal)

	return post, nil
}

// DetachFeatured removes the featured media. It succeeds when nothing was attached.
func (s *PostService) DetachFeatured(ctx context.Context, principal *models.Principal, id string) (post *models.Post, err error) {
	const op = "post_service.DetachFeatured"
	defer func() { observe("detach_featured", err) }()

	if principal == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthenticated)
	}

	postID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	unlock, err := s.lock(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer unlock()

	hadMedia := false
	if current, err := s.posts.GetPostByID(ctx, postID); err == nil {
		hadMedia = current.HasMedia()
	}

	post, err = s.linker.Detach(ctx, postID)
	if err != nil {
		if !errors.Is(err, media.ErrPostNotFound) {
			s.log.Error("failed to detach featured media", slog.String("op", op), slog.String("post_id", postID.String()), sl.Err(err))
		}

		return nil, fmt.Errorf("%s: %w", op, translateNotFound(err))
	}

	if hadMedia {
		s.publish(ctx, events.PostUpdated, post, principal)
	}

	return post, nil
}

// DeletePost removes the post together with its featured media.
func (s *PostService) DeletePost(ctx context.Context, principal *models.Principal, id string) (err error) {
	const op = "post_service.DeletePost"
	defer func() { observe("delete", err) }()

	if principal == nil {
		return fmt.Errorf("%s: %w", op, ErrUnauthenticated)
	}

	postID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	log := s.log.With(
		slog.String("op", op),
		slog.String("post_id", postID.String()),
	)

	unlock, err := s.lock(ctx, postID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer unlock()

	if err := s.linker.CascadeDelete(ctx, postID); err != nil {
		if !errors.Is(err, media.ErrPostNotFound) {
			log.Error("failed to delete featured media", sl.Err(err))
		}

		return fmt.Errorf("%s: %w", op, translateNotFound(err))
	}

	if err := s.posts.DeletePost(ctx, postID); err != nil {
		if !errors.Is(err, storage.ErrPostNotFound) {
			log.Error("failed to delete post", sl.Err(err))
		}

		return fmt.Errorf("%s: %w", op, translateNotFound(err))
	}

	log.Info("post deleted")
	s.publish(ctx, events.PostDeleted, &models.Post{ID: postID}, principal)

	return nil
}

// OpenFeatured returns the featured media of a post and its payload.
func (s *PostService) OpenFeatured(ctx context.Context, id string) (*models.Media, io.ReadCloser, error) {
	const op = "post_service.OpenFeatured"

	postID, err := uuid.Parse(id)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	m, rc, err := s.linker.OpenMedia(ctx, postID)
	if err != nil {
		if errors.Is(err, media.ErrMediaNotFound) {
			return nil, nil, fmt.Errorf("%s: %w: %w", op, ErrNotFound, err)
		}
		return nil, nil, fmt.Errorf("%s: %w", op, translateNotFound(err))
	}

	return m, rc, nil
}

// resolveMediaURL leaves MediaURL empty when the media record cannot be read;
// the post itself is still returned.
func (s *PostService) resolveMediaURL(ctx context.Context, op string, post *models.Post) {
	if err := s.linker.ResolveURL(ctx, post); err != nil {
		s.log.Warn("failed to resolve featured media url",
			slog.String("op", op),
			slog.String("post_id", post.ID.String()),
			sl.Err(err),
		)
	}
}

func (s *PostService) lock(ctx context.Context, postID uuid.UUID) (func(), error) {
	unlock, err := s.locker.Lock(ctx, postID)
	if err != nil {
		return nil, err
	}

	return func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			s.log.Warn("failed to release post lock", slog.String("post_id", postID.String()), sl.Err(err))
		}
	}, nil
}

func (s *PostService) publish(ctx context.Context, eventType string, post *models.Post, principal *models.Principal) {
	event := events.Event{
		Type:       eventType,
		PostID:     post.ID,
		ActorID:    principal.ID,
		MediaID:    post.MediaID,
		OccurredAt: time.Now().UTC(),
	}

	if err := s.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.log.Warn("failed to publish event",
			slog.String("type", eventType),
			slog.String("post_id", post.ID.String()),
			sl.Err(err),
		)
	}
}

func encodeMetadata(raw map[string]any) (string, error) {
	m, err := metadata.MapFromAny(raw)
	if err != nil {
		return "", invalid("metadata: "+err.Error(), err)
	}

	encoded, err := metadata.Encode(m)
	if err != nil {
		return "", invalid("metadata cannot be encoded", err)
	}

	return encoded, nil
}

func translateNotFound(err error) error {
	if errors.Is(err, storage.ErrPostNotFound) || errors.Is(err, media.ErrPostNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}

func uploadReason(err error) string {
	var verr *models.MediaValidationError

	switch {
	case errors.As(err, &verr):
		return "upload is invalid: " + strings.Join(verr.Errors, "; ")
	case errors.Is(err, storage.ErrFileTooLarge):
		return "upload exceeds the size limit"
	case errors.Is(err, storage.ErrEmptyFile):
		return "upload is empty"
	default:
		return "upload is invalid"
	}
}

func observe(operation string, err error) {
	metrics.PostOperations.WithLabelValues(operation, result(err)).Inc()
}

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrValidation):
		return "invalid"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, storage.ErrPostLocked):
		return "locked"
	default:
		return "error"
	}
}
