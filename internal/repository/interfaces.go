package repository

import (
	"context"

	"inkwell/internal/domain/models"

	"github.com/google/uuid"
)

type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) (*models.Post, error)
	GetPostByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	UpdatePost(ctx context.Context, id uuid.UUID, patch models.PostPatch) (*models.Post, error)
	DeletePost(ctx context.Context, id uuid.UUID) error
}

type MediaRepository interface {
	CreateMedia(ctx context.Context, media *models.Media) (*models.Media, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Media, error)
	DeleteMedia(ctx context.Context, id uuid.UUID) error
}

// Unlock releases a lock taken by PostLocker.Lock.
type Unlock func(ctx context.Context) error

// PostLocker serializes mutations of a single post.
type PostLocker interface {
	Lock(ctx context.Context, postID uuid.UUID) (Unlock, error)
}
