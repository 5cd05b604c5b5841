package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/lorrc/helpdesk-backend/internal/core/errors"
)

func TestDebouncer_ComputesOnce_WithinTTL(t *testing.T) {
	d := NewDebouncer()

	var calls int32
	compute := func() (any, error) {
		atomic.AddInt32(&calls, 1)
		return "value", nil
	}

	for i := 0; i < 5; i++ {
		value, err := d.Do("k", time.Minute, time.Second, compute)
		require.NoError(t, err)
		assert.Equal(t, "value", value)
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDebouncer_RecomputesAfterTTL(t *testing.T) {
	start := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	current := start
	d := NewDebouncer().WithClock(func() time.Time { return current })

	var calls int32
	compute := func() (any, error) {
		return atomic.AddInt32(&calls, 1), nil
	}

	first, err := d.Do("k", time.Minute, time.Second, compute)
	require.NoError(t, err)
	assert.Equal(t, int32(1), first)

	current = start.Add(2 * time.Minute)

	second, err := d.Do("k", time.Minute, time.Second, compute)
	require.NoError(t, err)
	assert.Equal(t, int32(2), second)
}

func TestDebouncer_KeysAreIndependent(t *testing.T) {
	d := NewDebouncer()

	a, err := d.Do("a", time.Minute, time.Second, func() (any, error) { return "a-value", nil })
	require.NoError(t, err)
	b, err := d.Do("b", time.Minute, time.Second, func() (any, error) { return "b-value", nil })
	require.NoError(t, err)

	assert.Equal(t, "a-value", a)
	assert.Equal(t, "b-value", b)
}

func TestDebouncer_ConcurrentCallersShareOneCompute(t *testing.T) {
	d := NewDebouncer()

	var calls int32
	release := make(chan struct{})
	compute := func() (any, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "shared", nil
	}

	const workers = 8
	var wg sync.WaitGroup
	results := make([]any, workers)
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = d.Do("k", time.Minute, 5*time.Second, compute)
		}(i)
	}

	// Let the goroutines pile up behind the first compute, then let it go.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "shared", results[i])
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDebouncer_TimeoutWithoutStaleValue(t *testing.T) {
	d := NewDebouncer()

	release := make(chan struct{})
	defer close(release)

	started := make(chan struct{})
	go func() {
		_, _ = d.Do("k", time.Minute, time.Second, func() (any, error) {
			close(started)
			<-release
			return "slow", nil
		})
	}()
	<-started

	_, err := d.Do("k", time.Minute, 20*time.Millisecond, func() (any, error) {
		t.Error("compute must not run while the lock is held")
		return nil, nil
	})
	assert.ErrorIs(t, err, apperrors.ErrDebounceTimeout)
}

func TestDebouncer_TimeoutFallsBackToStaleValue(t *testing.T) {
	start := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	current := start
	d := NewDebouncer().WithClock(func() time.Time { return current })

	_, err := d.Do("k", time.Minute, time.Second, func() (any, error) { return "stale", nil })
	require.NoError(t, err)

	// Age the memo past its TTL, then park a slow compute on the lock.
	current = start.Add(2 * time.Minute)

	release := make(chan struct{})
	defer close(release)

	started := make(chan struct{})
	go func() {
		_, _ = d.Do("k", time.Minute, time.Second, func() (any, error) {
			close(started)
			<-release
			return "fresh", nil
		})
	}()
	<-started

	value, err := d.Do("k", time.Minute, 20*time.Millisecond, func() (any, error) { return nil, nil })
	require.NoError(t, err)
	assert.Equal(t, "stale", value)
}

func TestDebouncer_ComputeErrorFallsBackToStaleValue(t *testing.T) {
	start := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	current := start
	d := NewDebouncer().WithClock(func() time.Time { return current })

	_, err := d.Do("k", time.Minute, time.Second, func() (any, error) { return "stale", nil })
	require.NoError(t, err)

	current = start.Add(2 * time.Minute)

	value, err := d.Do("k", time.Minute, time.Second, func() (any, error) {
		return nil, errors.New("database down")
	})
	require.NoError(t, err)
	assert.Equal(t, "stale", value)
}

func TestDebouncer_ComputeErrorWithoutStaleValue(t *testing.T) {
	d := NewDebouncer()

	wantErr := errors.New("database down")
	_, err := d.Do("k", time.Minute, time.Second, func() (any, error) {
		return nil, wantErr
	})
	assert.ErrorIs(t, err, wantErr)
}

func TestDebouncer_Invalidate(t *testing.T) {
	d := NewDebouncer()

	var calls int32
	compute := func() (any, error) {
		return atomic.AddInt32(&calls, 1), nil
	}

	_, err := d.Do("k", time.Minute, time.Second, compute)
	require.NoError(t, err)

	d.Invalidate("k")

	value, err := d.Do("k", time.Minute, time.Second, compute)
	require.NoError(t, err)
	assert.Equal(t, int32(2), value)
}

func TestDebouncer_InFlight(t *testing.T) {
	d := NewDebouncer()

	assert.False(t, d.InFlight("k"))

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_, _ = d.Do("k", time.Minute, time.Second, func() (any, error) {
			close(started)
			<-release
			return nil, nil
		})
	}()
	<-started

	assert.True(t, d.InFlight("k"))
	close(release)
}
