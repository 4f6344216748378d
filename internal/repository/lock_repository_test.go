package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"inkwell/internal/repository"
	"inkwell/internal/storage"
	redisapp "inkwell/internal/storage/redis"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lockScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`

func NewMockClient() (*redisapp.Client, redismock.ClientMock) {
	db, mock := redismock.NewClientMock()
	return &redisapp.Client{Client: db}, mock
}

func setupLocker(wait time.Duration) (*repository.RedisPostLocker, redismock.ClientMock) {
	client, mock := NewMockClient()

	locker := repository.NewRedisPostLocker(client, 30*time.Second, wait)
	locker.Retry = time.Millisecond
	locker.Token = func() string { return "token-1" }

	return locker, mock
}

func TestRedisPostLocker_LockUnlock(t *testing.T) {
	ctx := context.Background()
	locker, mock := setupLocker(0)
	postID := uuid.New()
	key := "post-lock:" + postID.String()

	mock.ExpectSetNX(key, "token-1", 30*time.Second).SetVal(true)
	mock.ExpectEval(lockScript, []string{key}, "token-1").SetVal(int64(1))

	unlock, err := locker.Lock(ctx, postID)
	require.NoError(t, err)
	require.NoError(t, unlock(ctx))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisPostLocker_Contended(t *testing.T) {
	ctx := context.Background()
	postID := uuid.New()
	key := "post-lock:" + postID.String()

	t.Run("gives up without wait", func(t *testing.T) {
		locker, mock := setupLocker(0)
		mock.ExpectSetNX(key, "token-1", 30*time.Second).SetVal(false)

		_, err := locker.Lock(ctx, postID)
		assert.ErrorIs(t, err, storage.ErrPostLocked)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("retries until free", func(t *testing.T) {
		locker, mock := setupLocker(time.Second)
		mock.ExpectSetNX(key, "token-1", 30*time.Second).SetVal(false)
		mock.ExpectSetNX(key, "token-1", 30*time.Second).SetVal(true)

		_, err := locker.Lock(ctx, postID)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("redis error", func(t *testing.T) {
		locker, mock := setupLocker(0)
		boom := errors.New("connection refused")
		mock.ExpectSetNX(key, "token-1", 30*time.Second).SetErr(boom)

		_, err := locker.Lock(ctx, postID)
		assert.ErrorIs(t, err, boom)
	})
}

func TestLocalPostLocker(t *testing.T) {
	ctx := context.Background()
	postID := uuid.New()

	locker := repository.NewLocalPostLocker(20 * time.Millisecond)

	unlock, err := locker.Lock(ctx, postID)
	require.NoError(t, err)

	t.Run("same post waits then fails", func(t *testing.T) {
		_, err := locker.Lock(ctx, postID)
		assert.ErrorIs(t, err, storage.ErrPostLocked)
	})

	t.Run("other posts are independent", func(t *testing.T) {
		other, err := locker.Lock(ctx, uuid.New())
		require.NoError(t, err)
		require.NoError(t, other(ctx))
	})

	t.Run("waiter gets the lock after release", func(t *testing.T) {
		slow := repository.NewLocalPostLocker(time.Second)
		first, err := slow.Lock(ctx, postID)
		require.NoError(t, err)

		acquired := make(chan error, 1)
		go func() {
			second, err := slow.Lock(ctx, postID)
			if err == nil {
				err = second(ctx)
			}
			acquired <- err
		}()

		time.Sleep(10 * time.Millisecond)
		require.NoError(t, first(ctx))
		// double unlock is a no-op
		require.NoError(t, first(ctx))

		select {
		case err := <-acquired:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("waiter never acquired the lock")
		}
	})

	require.NoError(t, unlock(ctx))

	again, err := locker.Lock(ctx, postID)
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}

func TestLocalPostLocker_ContextCanceled(t *testing.T) {
	locker := repository.NewLocalPostLocker(time.Second)
	postID := uuid.New()

	unlock, err := locker.Lock(context.Background(), postID)
	require.NoError(t, err)
	defer unlock(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = locker.Lock(ctx, postID)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
