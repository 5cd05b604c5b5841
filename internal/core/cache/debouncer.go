package cache

import (
	"sync"
	"time"

	apperrors "github.com/lorrc/helpdesk-backend/internal/core/errors"
)

// Debouncer serializes expensive computations per key. At most one
// compute runs per key at a time; concurrent callers wait up to a bound
// for the in-flight result and then degrade to whatever stale value the
// key last produced. sync.Mutex has no acquire deadline, so each slot
// holds a one-slot channel used as a timed mutex.
type Debouncer struct {
	mu    sync.Mutex
	slots map[string]*slot
	now   func() time.Time
}

type slot struct {
	sem chan struct{} // capacity 1; holding the token = holding the lock

	// Guarded by Debouncer.mu.
	result     any
	computedAt time.Time
	hasResult  bool
}

// NewDebouncer creates an empty debouncer.
func NewDebouncer() *Debouncer {
	return &Debouncer{
		slots: make(map[string]*slot),
		now:   time.Now,
	}
}

// WithClock overrides the debouncer's clock. Test hook.
func (d *Debouncer) WithClock(now func() time.Time) *Debouncer {
	d.now = now
	return d
}

func (d *Debouncer) slotFor(key string) *slot {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.slots[key]
	if !ok {
		s = &slot{sem: make(chan struct{}, 1)}
		d.slots[key] = s
	}
	return s
}

func (d *Debouncer) freshResult(s *slot, ttl time.Duration) (any, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if s.hasResult && d.now().Sub(s.computedAt) < ttl {
		return s.result, true
	}
	return nil, false
}

func (d *Debouncer) staleResult(s *slot) (any, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if s.hasResult {
		return s.result, true
	}
	return nil, false
}

func (d *Debouncer) storeResult(s *slot, value any) {
	d.mu.Lock()
	s.result = value
	s.computedAt = d.now()
	s.hasResult = true
	d.mu.Unlock()
}

// Do returns a value for key that is at most ttl old, computing it with
// fn when necessary. The sequence is: fresh check, timed lock acquire,
// fresh recheck under the lock, compute, store, release.
//
// When the lock cannot be acquired within wait, the last stale value is
// returned if one exists; otherwise apperrors.ErrDebounceTimeout. When
// fn fails, the lock is released, the stale value is returned if one
// exists, and fn's error otherwise.
func (d *Debouncer) Do(key string, ttl, wait time.Duration, fn func() (any, error)) (any, error) {
	s := d.slotFor(key)

	if value, ok := d.freshResult(s, ttl); ok {
		return value, nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case s.sem <- struct{}{}:
	case <-timer.C:
		if value, ok := d.staleResult(s); ok {
			return value, nil
		}
		return nil, apperrors.ErrDebounceTimeout
	}
	defer func() { <-s.sem }()

	// Another caller may have finished the compute while we waited.
	if value, ok := d.freshResult(s, ttl); ok {
		return value, nil
	}

	value, err := fn()
	if err != nil {
		if stale, ok := d.staleResult(s); ok {
			return stale, nil
		}
		return nil, err
	}

	d.storeResult(s, value)
	return value, nil
}

// Invalidate forgets the stored result for key. An in-flight compute is
// unaffected and will store its result normally.
func (d *Debouncer) Invalidate(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if s, ok := d.slots[key]; ok {
		s.result = nil
		s.hasResult = false
	}
}

// InFlight reports whether a compute currently holds the key's lock.
func (d *Debouncer) InFlight(key string) bool {
	d.mu.Lock()
	s, ok := d.slots[key]
	d.mu.Unlock()
	if !ok {
		return false
	}

	select {
	case s.sem <- struct{}{}:
		<-s.sem
		return false
	default:
		return true
	}
}
