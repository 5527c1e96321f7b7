package resource

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerSlots(t *testing.T) {
	c := NewController(Config{MaxWorkers: 2})

	require.True(t, c.TryAcquireWorker())
	require.True(t, c.TryAcquireWorker())
	assert.False(t, c.TryAcquireWorker())

	c.ReleaseWorker()
	assert.True(t, c.TryAcquireWorker())
}

func TestNilControllerIsUnlimited(t *testing.T) {
	var c *Controller

	assert.NoError(t, c.AcquireWorker(context.Background()))
	assert.True(t, c.TryAcquireWorker())
	c.ReleaseWorker()
	assert.NoError(t, c.AcquireIO(context.Background(), 1<<20))
}

func TestAcquireWorkerCancellation(t *testing.T) {
	c := NewController(Config{MaxWorkers: 1})
	require.NoError(t, c.AcquireWorker(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, c.AcquireWorker(ctx))
}

func TestAcquireIOUnlimited(t *testing.T) {
	c := NewController(Config{MaxWorkers: 1})
	assert.NoError(t, c.AcquireIO(context.Background(), 1<<30))
}

func TestAcquireIOSplitsLargeRequests(t *testing.T) {
	// Request larger than the burst must not error.
	c := NewController(Config{MaxWorkers: 1, IOLimitBytesPerSec: 1 << 20})
	assert.NoError(t, c.AcquireIO(context.Background(), 3<<20))
}

func TestLimitWriterPassthrough(t *testing.T) {
	var buf bytes.Buffer

	var nilC *Controller
	w := nilC.LimitWriter(context.Background(), &buf)
	assert.Equal(t, &buf, w)

	c := NewController(Config{MaxWorkers: 1, IOLimitBytesPerSec: 1 << 20})
	lw := c.LimitWriter(context.Background(), &buf)
	n, err := lw.Write([]byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, "payload", buf.String())
}
