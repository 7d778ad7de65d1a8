package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/draftoverlay/go/internal/broadcast"
)

// ConnectionManager bridges a broadcast channel to browser overlays over WebSocket.
// Every channel message goes out to every socket. From the sockets, only resync
// requests go back onto the channel; the admin stays the only writer.
type ConnectionManager struct {
	channel broadcast.Channel
	sub     broadcast.Subscription
	seq     atomic.Uint64

	connections map[*Connection]bool
	mu          sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig

	broadcastCh chan []byte
}

// Connection is one browser overlay.
type Connection struct {
	ID      string
	Surface string
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	ConnectedAt time.Time
	lastPing    atomic.Int64
}

// LastPing is when the browser last answered a ping.
func (c *Connection) LastPing() time.Time {
	return time.Unix(0, c.lastPing.Load())
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		SendBufferSize:  256,
		CheckOrigin: func(r *http.Request) bool {
			// Overlays are loaded from OBS browser sources and local files.
			return true
		},
	}
}

// ConnectionStats is what /ws/stats reports.
type ConnectionStats struct {
	TotalConnections int            `json:"total_connections"`
	Surfaces         map[string]int `json:"surfaces"`
}

// NewConnectionManager creates a manager relaying ch.
func NewConnectionManager(config ConnectionConfig, ch broadcast.Channel) *ConnectionManager {
	if config.SendBufferSize <= 0 {
		config.SendBufferSize = 256
	}
	cm := &ConnectionManager{
		channel:     ch,
		connections: make(map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan []byte, 1000),
	}
	// Subscribe now so nothing published before Start is missed.
	cm.sub = ch.Subscribe(cm.relay)
	return cm
}

// Start relays channel messages to sockets until ctx is done, then closes
// every socket.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Str("channel", cm.channel.Name()).Msg("connection manager started")

	defer func() {
		cm.sub.Unsubscribe()
		cm.closeAll()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case frame := <-cm.broadcastCh:
			cm.handleBroadcast(frame)
		}
	}
}

// relay runs on the channel subscription goroutine.
func (cm *ConnectionManager) relay(msg broadcast.Message) {
	frame, err := broadcast.Encode(cm.channel.ID(), cm.seq.Add(1), msg)
	if err != nil {
		log.Error().Err(err).Str("type", string(msg.Type())).Msg("failed to encode message for sockets")
		return
	}
	select {
	case cm.broadcastCh <- frame:
	default:
		log.Warn().Str("type", string(msg.Type())).Msg("broadcast channel full, dropping message")
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, surface string) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	now := time.Now()
	connection := &Connection{
		ID:          uuid.New().String(),
		Surface:     surface,
		Conn:        conn,
		Send:        make(chan []byte, cm.config.SendBufferSize),
		Manager:     cm,
		ConnectedAt: now,
	}
	connection.lastPing.Store(now.UnixNano())

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("surface", surface).
		Msg("WebSocket connection established")
	return nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.connections[conn] = true
	log.Debug().
		Str("connection_id", conn.ID).
		Int("total_connections", len(cm.connections)).
		Msg("connection registered")
}

func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if _, ok := cm.connections[conn]; !ok {
		return
	}
	delete(cm.connections, conn)
	close(conn.Send)

	log.Info().
		Str("connection_id", conn.ID).
		Str("surface", conn.Surface).
		Msg("connection unregistered")
}

func (cm *ConnectionManager) closeAll() {
	cm.mu.RLock()
	conns := make([]*Connection, 0, len(cm.connections))
	for c := range cm.connections {
		conns = append(conns, c)
	}
	cm.mu.RUnlock()

	for _, c := range conns {
		cm.unregisterConnection(c)
	}
}

func (cm *ConnectionManager) handleBroadcast(frame []byte) {
	cm.mu.RLock()
	targets := make([]*Connection, 0, len(cm.connections))
	for c := range cm.connections {
		targets = append(targets, c)
	}
	cm.mu.RUnlock()

	for _, c := range targets {
		if !c.trySend(frame) {
			log.Warn().
				Str("connection_id", c.ID).
				Str("surface", c.Surface).
				Msg("connection send buffer full, closing connection")
			cm.unregisterConnection(c)
			c.Conn.Close()
		}
	}

	log.Debug().Int("connections", len(targets)).Msg("frame broadcasted")
}

// trySend queues frame without blocking. It reports false when the socket is
// too slow or already gone.
func (c *Connection) trySend(frame []byte) (ok bool) {
	c.Manager.mu.RLock()
	defer c.Manager.mu.RUnlock()
	if !c.Manager.connections[c] {
		return true
	}
	select {
	case c.Send <- frame:
		return true
	default:
		return false
	}
}

// Stats returns a count of live sockets by surface.
func (cm *ConnectionManager) Stats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := ConnectionStats{TotalConnections: len(cm.connections), Surfaces: make(map[string]int)}
	for c := range cm.connections {
		stats.Surfaces[c.Surface]++
	}
	return stats
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to send ping")
				return
			}
		}
	}
}

func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		c.lastPing.Store(time.Now().UnixNano())
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("unexpected WebSocket close error")
			}
			return
		}
		c.handleClientMessage(message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}

// handleClientMessage forwards resync requests and drops everything else.
// Browsers never get to change the draft.
func (c *Connection) handleClientMessage(data []byte) {
	_, msg, err := broadcast.Decode(data)
	switch {
	case errors.Is(err, broadcast.ErrUnknownType):
		return
	case err != nil:
		log.Warn().Err(err).Str("connection_id", c.ID).Msg("malformed client frame")
		return
	}

	if _, ok := msg.(broadcast.RequestState); !ok {
		log.Warn().
			Str("connection_id", c.ID).
			Str("type", string(msg.Type())).
			Msg("dropping state-changing message from browser")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.Manager.config.WriteTimeout)
	defer cancel()
	if err := c.Manager.channel.Publish(ctx, msg); err != nil {
		log.Warn().Err(err).Str("connection_id", c.ID).Msg("failed to forward resync request")
	}
}
