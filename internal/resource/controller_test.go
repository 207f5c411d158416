package resource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_Memory(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})

	require.NoError(t, c.AcquireMemory(t.Context(), 50))
	assert.Equal(t, int64(50), c.MemoryUsage())

	require.NoError(t, c.AcquireMemory(t.Context(), 40))
	assert.Equal(t, int64(90), c.MemoryUsage())

	// Over the limit: TryAcquire fails instantly
	assert.False(t, c.TryAcquireMemory(20))
	assert.Equal(t, int64(90), c.MemoryUsage())

	c.ReleaseMemory(50)
	assert.Equal(t, int64(40), c.MemoryUsage())

	assert.True(t, c.TryAcquireMemory(20))
	assert.Equal(t, int64(60), c.MemoryUsage())
	assert.Equal(t, int64(100), c.MemoryLimit())
}

func TestController_MemoryBlocking(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})
	require.NoError(t, c.AcquireMemory(t.Context(), 100))

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.AcquireMemory(ctx, 1), context.DeadlineExceeded)

	// Larger than the whole budget never blocks.
	assert.ErrorIs(t, c.AcquireMemory(t.Context(), 101), ErrMemoryLimitExceeded)
}

func TestController_UnlimitedMemory(t *testing.T) {
	c := NewController(Config{})

	require.NoError(t, c.AcquireMemory(t.Context(), 1000))
	assert.Equal(t, int64(1000), c.MemoryUsage())

	c.ReleaseMemory(500)
	assert.Equal(t, int64(500), c.MemoryUsage())
	assert.Equal(t, int64(0), c.MemoryLimit())
}

func TestController_Calls(t *testing.T) {
	c := NewController(Config{MaxInFlight: 2})

	require.NoError(t, c.AcquireCall(t.Context()))
	require.NoError(t, c.AcquireCall(t.Context()))
	assert.Equal(t, int64(2), c.InFlight())

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, c.AcquireCall(ctx))

	c.ReleaseCall()
	require.NoError(t, c.AcquireCall(t.Context()))
	assert.Equal(t, int64(2), c.InFlight())
}

func TestController_IOChunksLargeFrames(t *testing.T) {
	c := NewController(Config{BandwidthBytesPerSec: 1 << 20})

	// Larger than the bucket: admitted in chunks instead of failing WaitN.
	require.NoError(t, c.AcquireIO(t.Context(), 1<<20+10))

	// The bucket is drained; another full burst cannot fit a short deadline.
	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, c.AcquireIO(ctx, 1<<20))
}

func TestController_NilChecks(t *testing.T) {
	var c *Controller
	assert.NoError(t, c.AcquireMemory(t.Context(), 10))
	assert.True(t, c.TryAcquireMemory(10))
	c.ReleaseMemory(10)
	assert.NoError(t, c.AcquireCall(t.Context()))
	c.ReleaseCall()
	assert.NoError(t, c.AcquireIO(t.Context(), 1<<30))
	assert.Equal(t, int64(0), c.MemoryUsage())
	assert.Equal(t, int64(0), c.InFlight())
}
