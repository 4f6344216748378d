package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"inkwell/internal/domain/models"
	"inkwell/internal/storage"

	"github.com/google/uuid"
)

// MemoryStore keeps posts and media in process memory. It enforces the same
// reference rules as the Postgres schema: a post may only point at an
// existing media row and a referenced media row cannot be deleted.
type MemoryStore struct {
	mu    sync.RWMutex
	posts map[uuid.UUID]models.Post
	media map[uuid.UUID]models.Media
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		posts: make(map[uuid.UUID]models.Post),
		media: make(map[uuid.UUID]models.Media),
	}
}

func (m *MemoryStore) CreatePost(ctx context.Context, post *models.Post) (*models.Post, error) {
	const op = "repository.memory.CreatePost"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.posts[post.ID]; exists {
		return nil, fmt.Errorf("%s: duplicate post id %s", op, post.ID)
	}
	if post.MediaID != nil {
		if _, ok := m.media[*post.MediaID]; !ok {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrMediaNotFound)
		}
	}

	stored := copyPost(*post)
	m.posts[post.ID] = stored

	out := copyPost(stored)
	return &out, nil
}

func (m *MemoryStore) GetPostByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	const op = "repository.memory.GetPostByID"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	post, ok := m.posts[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrPostNotFound)
	}

	out := copyPost(post)
	return &out, nil
}

func (m *MemoryStore) UpdatePost(ctx context.Context, id uuid.UUID, patch models.PostPatch) (*models.Post, error) {
	const op = "repository.memory.UpdatePost"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	post, ok := m.posts[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrPostNotFound)
	}
	if patch.MediaID != nil && !patch.ClearMedia {
		if _, ok := m.media[*patch.MediaID]; !ok {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrMediaNotFound)
		}
	}

	patch.Apply(&post)
	post.UpdatedAt = time.Now().UTC()
	m.posts[id] = post

	out := copyPost(post)
	return &out, nil
}

func (m *MemoryStore) DeletePost(ctx context.Context, id uuid.UUID) error {
	const op = "repository.memory.DeletePost"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.posts[id]; !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrPostNotFound)
	}
	delete(m.posts, id)

	return nil
}

func (m *MemoryStore) CreateMedia(ctx context.Context, media *models.Media) (*models.Media, error) {
	const op = "repository.memory.CreateMedia"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.media[media.ID]; exists {
		return nil, fmt.Errorf("%s: duplicate media id %s", op, media.ID)
	}
	m.media[media.ID] = *media

	out := *media
	return &out, nil
}

func (m *MemoryStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Media, error) {
	const op = "repository.memory.FindByID"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	media, ok := m.media[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrMediaNotFound)
	}

	return &media, nil
}

func (m *MemoryStore) DeleteMedia(ctx context.Context, id uuid.UUID) error {
	const op = "repository.memory.DeleteMedia"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.media[id]; !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrMediaNotFound)
	}
	for _, post := range m.posts {
		if post.MediaID != nil && *post.MediaID == id {
			return fmt.Errorf("%s: %w", op, storage.ErrMediaInUse)
		}
	}
	delete(m.media, id)

	return nil
}

// Counts reports the number of stored posts and media rows.
func (m *MemoryStore) Counts() (posts, media int) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.posts), len(m.media)
}

func copyPost(p models.Post) models.Post {
	if p.MediaID != nil {
		id := *p.MediaID
		p.MediaID = &id
	}
	return p
}
