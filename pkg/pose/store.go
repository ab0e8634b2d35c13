package pose

import (
	"sync/atomic"
	"time"
)

// DefaultStaleTimeout is how long a snapshot stays live without a decode.
const DefaultStaleTimeout = 10 * time.Second

// Store publishes snapshots from the listener to any number of readers.
// Readers never block and always see a complete snapshot.
type Store struct {
	latest       atomic.Pointer[Snapshot]
	touches      *TouchQueue
	staleTimeout time.Duration
	clock        func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock overrides time.Now for staleness checks.
func WithClock(clock func() time.Time) StoreOption {
	return func(s *Store) { s.clock = clock }
}

// WithTouchQueueSize bounds the touch transition queue.
func WithTouchQueueSize(n int) StoreOption {
	return func(s *Store) { s.touches = NewTouchQueue(n) }
}

// NewStore creates an empty store.
func NewStore(staleTimeout time.Duration, opts ...StoreOption) *Store {
	if staleTimeout <= 0 {
		staleTimeout = DefaultStaleTimeout
	}
	s := &Store{
		touches:      NewTouchQueue(DefaultTouchQueueSize),
		staleTimeout: staleTimeout,
		clock:        time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Publish makes a decode result visible to readers.
func (s *Store) Publish(r Result) {
	if r.Snapshot == nil {
		return
	}
	s.latest.Store(r.Snapshot)
	s.touches.Push(r.Touches...)
}

// Latest returns the most recent snapshot, or nil before the first decode.
func (s *Store) Latest() *Snapshot {
	return s.latest.Load()
}

// State reports Empty, Live or Stale at the current time.
func (s *Store) State() State {
	return s.latest.Load().State(s.clock(), s.staleTimeout)
}

// IsStale reports whether the latest snapshot is missing or too old to be
// authoritative.
func (s *Store) IsStale() bool {
	return s.State() != Live
}

// IsHandshakePending reports whether the latest decode announced a new session.
func (s *Store) IsHandshakePending() bool {
	snap := s.latest.Load()
	return snap != nil && snap.HandshakePending
}

// StaleTimeout returns the configured staleness threshold.
func (s *Store) StaleTimeout() time.Duration {
	return s.staleTimeout
}

// Touches exposes the transition queue.
func (s *Store) Touches() *TouchQueue {
	return s.touches
}

// DrainTouches removes every queued touch transition.
func (s *Store) DrainTouches() []TouchPoint {
	return s.touches.Drain()
}
