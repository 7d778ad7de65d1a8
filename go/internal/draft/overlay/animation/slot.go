// Package animation schedules timed presentations (enter, hold, exit) and fires a
// completion callback exactly once per presentation that runs to the end.
package animation

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Policy decides what a Slot does when triggered while a presentation is in flight.
type Policy int

const (
	// DropIfBusy ignores the new trigger.
	DropIfBusy Policy = iota
	// CancelAndRestart cancels the running presentation (no callback) and starts
	// the new one, unless the new trigger has the same key as the running one.
	CancelAndRestart
)

func (p Policy) String() string {
	switch p {
	case DropIfBusy:
		return "drop_if_busy"
	case CancelAndRestart:
		return "cancel_and_restart"
	default:
		return "unknown"
	}
}

// Timing is how long each phase lasts.
type Timing struct {
	Enter time.Duration
	Hold  time.Duration
	Exit  time.Duration
}

// Total is the full length of a presentation.
func (t Timing) Total() time.Duration {
	return t.Enter + t.Hold + t.Exit
}

// Phase is where a presentation currently is.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseEntering Phase = "entering"
	PhaseHolding  Phase = "holding"
	PhaseExiting  Phase = "exiting"
)

// Active describes the presentation currently in a slot.
type Active struct {
	Key       string
	Payload   any
	Phase     Phase
	StartedAt time.Time
}

// Slot runs at most one presentation at a time.
type Slot struct {
	name   string
	policy Policy
	timing Timing
	clock  clockwork.Clock

	mu      sync.Mutex
	current *run
}

type run struct {
	key        string
	payload    any
	startedAt  time.Time
	timer      clockwork.Timer
	onComplete func()
}

// NewSlot creates an idle slot.
func NewSlot(name string, policy Policy, timing Timing, clock clockwork.Clock) *Slot {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Slot{name: name, policy: policy, timing: timing, clock: clock}
}

// Name is the slot's label.
func (s *Slot) Name() string { return s.name }

// Trigger starts a presentation for key. It reports whether one was started.
// onComplete runs after the exit phase, on the clock's goroutine, without any slot lock
// held, and never runs for a presentation that was cancelled or replaced.
func (s *Slot) Trigger(key string, payload any, onComplete func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur := s.current; cur != nil {
		if s.policy == DropIfBusy || cur.key == key {
			return false
		}
		cur.timer.Stop()
		s.current = nil
	}

	r := &run{
		key:        key,
		payload:    payload,
		startedAt:  s.clock.Now(),
		onComplete: onComplete,
	}
	r.timer = s.clock.AfterFunc(s.timing.Total(), func() { s.finish(r) })
	s.current = r
	return true
}

func (s *Slot) finish(r *run) {
	s.mu.Lock()
	if s.current != r {
		s.mu.Unlock()
		return
	}
	s.current = nil
	s.mu.Unlock()

	if r.onComplete != nil {
		r.onComplete()
	}
}

// Cancel stops the current presentation without running its callback.
// It reports whether anything was running.
func (s *Slot) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return false
	}
	s.current.timer.Stop()
	s.current = nil
	return true
}

// Busy reports whether a presentation is in flight.
func (s *Slot) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

// Active returns the running presentation and its phase, if any.
func (s *Slot) Active() (Active, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return Active{}, false
	}
	return Active{
		Key:       s.current.key,
		Payload:   s.current.payload,
		Phase:     s.phaseAt(s.clock.Since(s.current.startedAt)),
		StartedAt: s.current.startedAt,
	}, true
}

func (s *Slot) phaseAt(elapsed time.Duration) Phase {
	switch {
	case elapsed < s.timing.Enter:
		return PhaseEntering
	case elapsed < s.timing.Enter+s.timing.Hold:
		return PhaseHolding
	case elapsed < s.timing.Total():
		return PhaseExiting
	default:
		// Expired but the completion hasn't been delivered yet.
		return PhaseExiting
	}
}
