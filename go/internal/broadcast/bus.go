package broadcast

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Bus is an in-process Transport. Every handle opened on the same Bus and name
// sees the others' messages.
type Bus struct {
	mu       sync.RWMutex
	channels map[string]map[*busChannel]struct{}
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{channels: make(map[string]map[*busChannel]struct{})}
}

// Open attaches a new handle to name.
func (b *Bus) Open(_ context.Context, name string) (Channel, error) {
	c := &busChannel{handle: newHandle(name), bus: b}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.channels[name] == nil {
		b.channels[name] = make(map[*busChannel]struct{})
	}
	b.channels[name][c] = struct{}{}

	log.Debug().Str("channel", name).Str("handle_id", c.id).Int("handles", len(b.channels[name])).Msg("bus handle opened")
	return c, nil
}

// Close closes every handle still open on the bus.
func (b *Bus) Close() error {
	b.mu.Lock()
	var all []*busChannel
	for _, set := range b.channels {
		for c := range set {
			all = append(all, c)
		}
	}
	b.channels = make(map[string]map[*busChannel]struct{})
	b.mu.Unlock()

	for _, c := range all {
		c.closeAll()
	}
	return nil
}

func (b *Bus) peers(c *busChannel) []*busChannel {
	b.mu.RLock()
	defer b.mu.RUnlock()

	set := b.channels[c.name]
	out := make([]*busChannel, 0, len(set))
	for p := range set {
		if p != c {
			out = append(out, p)
		}
	}
	return out
}

func (b *Bus) detach(c *busChannel) {
	b.mu.Lock()
	defer b.mu.Unlock()

	set := b.channels[c.name]
	delete(set, c)
	if len(set) == 0 {
		delete(b.channels, c.name)
	}
}

type busChannel struct {
	*handle
	bus *Bus
}

func (c *busChannel) Publish(_ context.Context, msg Message) error {
	data, err := c.encode(msg)
	if err != nil {
		return err
	}
	for _, p := range c.bus.peers(c) {
		p.dispatch(data)
	}
	return nil
}

func (c *busChannel) Close() error {
	c.bus.detach(c)
	c.closeAll()
	return nil
}
