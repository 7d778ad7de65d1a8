package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// DefaultDebounce is how long SaveState waits for further saves before writing.
const DefaultDebounce = 50 * time.Millisecond

const writeTimeout = 5 * time.Second

// Store loads and saves draft state through a Backend. Reads never fail: a missing,
// corrupt or unreachable value is reported as absent. Writes never fail either: errors
// are logged and the store is marked unhealthy so callers can surface a warning.
type Store struct {
	backend  Backend
	clock    clockwork.Clock
	debounce time.Duration

	writeMu sync.Mutex // serialises backend writes of the state key

	mu      sync.Mutex
	pending []byte
	timer   clockwork.Timer
	closed  bool

	healthMu sync.RWMutex
	healthy  bool
}

// Option configures a Store.
type Option func(*Store)

// WithClock swaps the clock used for debouncing.
func WithClock(c clockwork.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(s *Store) { s.debounce = d }
}

// NewStore creates a Store over backend.
func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend:  backend,
		clock:    clockwork.NewRealClock(),
		debounce: DefaultDebounce,
		healthy:  true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Healthy is false once any write has failed.
func (s *Store) Healthy() bool {
	s.healthMu.RLock()
	defer s.healthMu.RUnlock()
	return s.healthy
}

func (s *Store) markUnhealthy(key string, err error) {
	s.healthMu.Lock()
	first := s.healthy
	s.healthy = false
	s.healthMu.Unlock()

	if first {
		log.Warn().Err(err).Str("key", key).Msg("storage unavailable, continuing without persistence")
		return
	}
	log.Debug().Err(err).Str("key", key).Msg("storage write failed")
}

// LoadState returns the saved draft state, if there is a usable one.
func (s *Store) LoadState(ctx context.Context) (*Snapshot, bool) {
	var snap Snapshot
	if !s.load(ctx, KeyState, &snap) {
		return nil, false
	}
	return &snap, true
}

// LoadDefaultOrder returns the saved default draft order.
func (s *Store) LoadDefaultOrder(ctx context.Context) ([]int, bool) {
	var o []int
	if !s.load(ctx, KeyDefaultOrder, &o) || len(o) == 0 {
		return nil, false
	}
	return o, true
}

// LoadDefaultDuration returns the saved default timer duration in seconds.
func (s *Store) LoadDefaultDuration(ctx context.Context) (int, bool) {
	var secs int
	if !s.load(ctx, KeyDefaultDuration, &secs) || secs <= 0 {
		return 0, false
	}
	return secs, true
}

func (s *Store) load(ctx context.Context, key string, out any) bool {
	data, err := s.backend.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false
	}
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to read saved value, using defaults")
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("saved value is corrupt, using defaults")
		return false
	}
	return true
}

// SaveState schedules snap to be written after the debounce window. A later call
// within the window replaces it; only the latest snapshot is written.
func (s *Store) SaveState(snap Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode draft state")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.pending = data
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = s.clock.AfterFunc(s.debounce, s.flushPending)
}

func (s *Store) flushPending() {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	s.Flush(ctx)
}

// Flush writes any pending snapshot now.
func (s *Store) Flush(ctx context.Context) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	data := s.pending
	s.pending = nil
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	if data == nil {
		return
	}
	s.write(ctx, KeyState, data)
}

// SaveDefaultOrder persists the editor's default order immediately.
func (s *Store) SaveDefaultOrder(ctx context.Context, o []int) {
	s.writeJSON(ctx, KeyDefaultOrder, o)
}

// SaveDefaultDuration persists the default timer duration immediately.
func (s *Store) SaveDefaultDuration(ctx context.Context, secs int) {
	s.writeJSON(ctx, KeyDefaultDuration, secs)
}

// Clear drops any pending save and deletes the saved draft state.
func (s *Store) Clear(ctx context.Context) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.pending = nil
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	if err := s.backend.Delete(ctx, KeyState); err != nil {
		s.markUnhealthy(KeyState, err)
	}
}

// Close flushes pending work. Saves after Close are ignored.
func (s *Store) Close(ctx context.Context) {
	s.Flush(ctx)

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *Store) writeJSON(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("failed to encode value")
		return
	}
	s.write(ctx, key, data)
}

func (s *Store) write(ctx context.Context, key string, data []byte) {
	if err := s.backend.Set(ctx, key, data); err != nil {
		s.markUnhealthy(key, err)
		return
	}
	log.Debug().Str("key", key).Int("bytes", len(data)).Msg("saved")
}
