package locker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLockerExclusive(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	release, err := l.Acquire(ctx, "graph:1", time.Minute)
	require.NoError(t, err)

	// 同一把锁的第二次抢占应该超时
	ctx2, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx2, "graph:1", time.Minute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// 不同 key 互不影响
	release2, err := l.Acquire(ctx, "graph:2", time.Minute)
	require.NoError(t, err)
	release2()

	release()

	release3, err := l.Acquire(ctx, "graph:1", time.Minute)
	require.NoError(t, err)
	release3()
}

func TestLocalLockerTTLExpiry(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	_, err := l.Acquire(ctx, "graph:1", 50*time.Millisecond)
	require.NoError(t, err)

	// 持有者未释放, TTL 过期后其他人可以拿到
	ctx2, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	release, err := l.Acquire(ctx2, "graph:1", time.Minute)
	require.NoError(t, err)
	release()
}

func TestLocalLockerReleaseIdempotent(t *testing.T) {
	l := NewLocalLocker()
	release, err := l.Acquire(context.Background(), "graph:1", time.Minute)
	require.NoError(t, err)

	release()
	release() // second call is a no-op

	_, err = l.Acquire(context.Background(), "graph:1", time.Minute)
	assert.NoError(t, err)
}
