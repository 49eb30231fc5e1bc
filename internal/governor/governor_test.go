package governor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireEnforcesMinDelay(t *testing.T) {
	g := New(nil)
	g.Configure("suumo", 50*time.Millisecond, 1)

	start := time.Now()
	for i := 0; i < 3; i++ {
		release, err := g.Acquire(context.Background(), "suumo")
		require.NoError(t, err)
		release()
	}
	elapsed := time.Since(start)

	// Three acquisitions means two enforced gaps.
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
}

func TestAcquireCapsInFlight(t *testing.T) {
	g := New(nil)
	g.Configure("suumo", 0, 2)

	r1, err := g.Acquire(context.Background(), "suumo")
	require.NoError(t, err)
	r2, err := g.Acquire(context.Background(), "suumo")
	require.NoError(t, err)

	// Third slot is unavailable until a release.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = g.Acquire(ctx, "suumo")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	r1()
	r3, err := g.Acquire(context.Background(), "suumo")
	require.NoError(t, err)

	r2()
	r3()
}

func TestAcquireHonorsCancellation(t *testing.T) {
	g := New(nil)
	g.Configure("suumo", 200*time.Millisecond, 1)

	// Prime the pacer so the next acquire has to wait out the delay.
	release, err := g.Acquire(context.Background(), "suumo")
	require.NoError(t, err)
	release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = g.Acquire(ctx, "suumo")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The slot taken during the aborted wait was returned.
	release, err = g.Acquire(context.Background(), "suumo")
	require.NoError(t, err)
	release()
}

func TestReleaseIsIdempotent(t *testing.T) {
	g := New(nil)
	g.Configure("suumo", 0, 1)

	release, err := g.Acquire(context.Background(), "suumo")
	require.NoError(t, err)
	release()
	release()

	// A double release must not free a slot twice.
	r2, err := g.Acquire(context.Background(), "suumo")
	require.NoError(t, err)
	defer r2()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = g.Acquire(ctx, "suumo")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUnconfiguredSourceDefaults(t *testing.T) {
	g := New(nil)

	release, err := g.Acquire(context.Background(), "unknown")
	require.NoError(t, err)
	release()
}

func TestSourcesArePacedIndependently(t *testing.T) {
	g := New(nil)
	g.Configure("suumo", time.Minute, 1)
	g.Configure("homes", 0, 1)

	release, err := g.Acquire(context.Background(), "suumo")
	require.NoError(t, err)
	defer release()

	// A busy source must not delay another one.
	done := make(chan struct{})
	go func() {
		r, err := g.Acquire(context.Background(), "homes")
		assert.NoError(t, err)
		r()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("acquire on independent source blocked")
	}
}
