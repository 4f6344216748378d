package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"inkwell/internal/storage"
	redisapp "inkwell/internal/storage/redis"

	"github.com/google/uuid"
)

// releaseScript deletes the lock only if it still carries our token.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`

const defaultLockRetry = 50 * time.Millisecond

// RedisPostLocker takes a per-post lease in Redis with SET NX PX.
type RedisPostLocker struct {
	Client *redisapp.Client
	TTL    time.Duration
	Wait   time.Duration
	Retry  time.Duration
	Token  func() string
}

func NewRedisPostLocker(client *redisapp.Client, ttl, wait time.Duration) *RedisPostLocker {
	return &RedisPostLocker{
		Client: client,
		TTL:    ttl,
		Wait:   wait,
		Retry:  defaultLockRetry,
		Token:  func() string { return uuid.NewString() },
	}
}

// Lock retries until Wait has passed, then fails with storage.ErrPostLocked.
func (l *RedisPostLocker) Lock(ctx context.Context, postID uuid.UUID) (Unlock, error) {
	const op = "repository.lock_repository.Lock"

	key := postLockKey(postID)
	token := l.Token()
	deadline := time.Now().Add(l.Wait)

	for {
		ok, err := l.Client.SetNX(ctx, key, token, l.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if ok {
			return func(ctx context.Context) error {
				return l.Client.Eval(ctx, releaseScript, []string{key}, token).Err()
			}, nil
		}

		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrPostLocked)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(l.Retry):
		}
	}
}

func postLockKey(postID uuid.UUID) string {
	return "post-lock:" + postID.String()
}

// LocalPostLocker is the in-process PostLocker used when Redis is not configured.
type LocalPostLocker struct {
	wait  time.Duration
	mu    sync.Mutex
	slots map[uuid.UUID]*lockSlot
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

func NewLocalPostLocker(wait time.Duration) *LocalPostLocker {
	return &LocalPostLocker{
		wait:  wait,
		slots: make(map[uuid.UUID]*lockSlot),
	}
}

func (l *LocalPostLocker) Lock(ctx context.Context, postID uuid.UUID) (Unlock, error) {
	const op = "repository.lock_repository.LocalLock"

	slot := l.acquireSlot(postID)

	select {
	case slot.ch <- struct{}{}:
	default:
		timer := time.NewTimer(l.wait)
		defer timer.Stop()

		select {
		case slot.ch <- struct{}{}:
		case <-timer.C:
			l.releaseSlot(postID)
			return nil, fmt.Errorf("%s: %w", op, storage.ErrPostLocked)
		case <-ctx.Done():
			l.releaseSlot(postID)
			return nil, fmt.Errorf("%s: %w", op, ctx.Err())
		}
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			<-slot.ch
			l.releaseSlot(postID)
		})
		return nil
	}, nil
}

func (l *LocalPostLocker) acquireSlot(postID uuid.UUID) *lockSlot {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot, ok := l.slots[postID]
	if !ok {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[postID] = slot
	}
	slot.refs++

	return slot
}

func (l *LocalPostLocker) releaseSlot(postID uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot, ok := l.slots[postID]
	if !ok {
		return
	}
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, postID)
	}
}
