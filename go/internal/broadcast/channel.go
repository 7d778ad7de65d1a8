package broadcast

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// subscriberQueueSize bounds how far one slow handler can fall behind before
// messages to it are dropped.
const subscriberQueueSize = 1024

// Handler receives messages. Messages are shared between handlers and must be
// treated as read-only.
type Handler func(Message)

// Subscription is returned by Subscribe.
type Subscription interface {
	Unsubscribe()
}

// Channel is one surface's handle on a named channel.
type Channel interface {
	// Name is the channel name this handle was opened on.
	Name() string
	// ID identifies this handle as a sender.
	ID() string
	// Publish sends msg to every other handle on the channel. It doesn't wait for delivery.
	Publish(ctx context.Context, msg Message) error
	// Subscribe registers fn. Each subscription gets messages in per-sender order on its own goroutine.
	Subscribe(fn Handler) Subscription
	// Close unsubscribes everything and detaches from the transport.
	Close() error
}

// Transport opens channel handles.
type Transport interface {
	Open(ctx context.Context, name string) (Channel, error)
	Close() error
}

// handle holds what every transport's Channel has in common: sender identity,
// sequence numbering and local fan-out to subscriptions.
type handle struct {
	id   string
	name string
	seq  atomic.Uint64

	mu      sync.Mutex
	subs    map[*subscription]struct{}
	lastSeq map[string]uint64
	closed  bool
}

func newHandle(name string) *handle {
	return &handle{
		id:      uuid.New().String(),
		name:    name,
		subs:    make(map[*subscription]struct{}),
		lastSeq: make(map[string]uint64),
	}
}

func (h *handle) Name() string { return h.name }

func (h *handle) ID() string { return h.id }

func (h *handle) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

func (h *handle) encode(msg Message) ([]byte, error) {
	if h.isClosed() {
		return nil, ErrClosed
	}
	return Encode(h.id, h.seq.Add(1), msg)
}

func (h *handle) Subscribe(fn Handler) Subscription {
	sub := &subscription{
		handle: h,
		fn:     fn,
		queue:  make(chan Message, subscriberQueueSize),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		sub.stop()
		return sub
	}
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	go sub.run()
	return sub
}

// dispatch decodes one wire message and hands it to every subscription.
func (h *handle) dispatch(data []byte) {
	env, msg, err := Decode(data)
	switch {
	case errors.Is(err, ErrUnknownType):
		log.Debug().Str("channel", h.name).Str("type", string(env.Type)).Msg("ignoring unknown message type")
		return
	case err != nil:
		log.Warn().Err(err).Str("channel", h.name).Msg("dropping malformed message")
		return
	}
	if env.Sender == h.id {
		return
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	if env.Sender != "" && env.Seq != 0 {
		if last := h.lastSeq[env.Sender]; last != 0 && env.Seq != last+1 {
			log.Debug().
				Str("channel", h.name).
				Str("sender", env.Sender).
				Uint64("expected_seq", last+1).
				Uint64("seq", env.Seq).
				Msg("sequence gap from sender")
		}
		h.lastSeq[env.Sender] = env.Seq
	}
	targets := make([]*subscription, 0, len(h.subs))
	for s := range h.subs {
		targets = append(targets, s)
	}
	h.mu.Unlock()

	for _, s := range targets {
		s.enqueue(msg)
	}
}

func (h *handle) remove(s *subscription) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s]; !ok {
		return false
	}
	delete(h.subs, s)
	return true
}

// closeAll marks the handle closed and stops every subscription.
func (h *handle) closeAll() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	subs := h.subs
	h.subs = make(map[*subscription]struct{})
	h.mu.Unlock()

	for s := range subs {
		s.stop()
	}
}

type subscription struct {
	handle *handle
	fn     Handler
	queue  chan Message
	done   chan struct{}
	once   sync.Once
}

func (s *subscription) run() {
	for {
		select {
		case <-s.done:
			return
		case msg := <-s.queue:
			select {
			case <-s.done:
				return
			default:
			}
			s.fn(msg)
		}
	}
}

func (s *subscription) enqueue(msg Message) {
	select {
	case <-s.done:
	case s.queue <- msg:
	default:
		log.Warn().
			Str("channel", s.handle.name).
			Str("type", string(msg.Type())).
			Msg("subscriber queue full, dropping message")
	}
}

func (s *subscription) stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *subscription) Unsubscribe() {
	s.handle.remove(s)
	s.stop()
}
