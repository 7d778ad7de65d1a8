package broadcast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// NATSConfig configures a NATSTransport.
type NATSConfig struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultNATSConfig returns settings for a local nats-server.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		SubjectPrefix: "broadcast",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// NATSTransport carries channels over core NATS subjects. Core NATS has no
// persistence, so late subscribers get nothing that was sent before they joined.
type NATSTransport struct {
	nc     *nats.Conn
	prefix string
	owned  bool
}

// NewNATSTransport dials the server in cfg.
func NewNATSTransport(cfg NATSConfig) (*NATSTransport, error) {
	opts := []nats.Option{
		nats.Name("draft-overlay"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	t := NewNATSTransportFromConn(nc, cfg.SubjectPrefix)
	t.owned = true
	return t, nil
}

// NewNATSTransportFromConn reuses an existing connection. Close won't close it.
func NewNATSTransportFromConn(nc *nats.Conn, subjectPrefix string) *NATSTransport {
	return &NATSTransport{nc: nc, prefix: subjectPrefix}
}

func (t *NATSTransport) subject(name string) string {
	if t.prefix == "" {
		return name
	}
	return t.prefix + "." + name
}

// Open subscribes a new handle to the channel's subject.
func (t *NATSTransport) Open(_ context.Context, name string) (Channel, error) {
	c := &natsChannel{handle: newHandle(name), nc: t.nc, subject: t.subject(name)}

	sub, err := t.nc.Subscribe(c.subject, func(m *nats.Msg) {
		c.dispatch(m.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", c.subject, err)
	}
	c.sub = sub

	log.Debug().Str("subject", c.subject).Str("handle_id", c.id).Msg("NATS handle opened")
	return c, nil
}

// Close drains the connection if this transport dialed it.
func (t *NATSTransport) Close() error {
	if !t.owned {
		return nil
	}
	if err := t.nc.Drain(); err != nil {
		t.nc.Close()
		return fmt.Errorf("drain NATS connection: %w", err)
	}
	return nil
}

type natsChannel struct {
	*handle
	nc      *nats.Conn
	subject string
	sub     *nats.Subscription
}

func (c *natsChannel) Publish(_ context.Context, msg Message) error {
	data, err := c.encode(msg)
	if err != nil {
		return err
	}
	if err := c.nc.Publish(c.subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Type(), err)
	}
	return nil
}

func (c *natsChannel) Close() error {
	c.closeAll()
	if err := c.sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return fmt.Errorf("unsubscribe %s: %w", c.subject, err)
	}
	return nil
}
