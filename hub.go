package reminder

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// HubConfig configures a Hub.
type HubConfig struct {
	// Buffer is the per-connection event buffer. A connection whose buffer is
	// full misses the event. Defaults to 16.
	Buffer int
	// Logger receives drop warnings.
	Logger Logger
	// Encoder serializes routed payloads. Defaults to DefaultEncoder.
	Encoder Encoder
}

// Hub is the registry of live streaming connections, keyed by user. Routing
// is best-effort and at-most-once per connection: nothing is buffered for
// users who are not connected, and nothing is replayed on reconnect.
type Hub struct {
	mu     sync.RWMutex
	conns  map[string]map[*Conn]struct{}
	closed bool

	buffer int
	enc    Encoder
	log    Logger
}

// Conn is one live connection. It is created by Register and owned by the Hub.
type Conn struct {
	ID     string
	UserID string

	events chan []byte
	done   chan struct{}
	once   sync.Once
}

// Events yields encoded payloads routed to this connection.
func (c *Conn) Events() <-chan []byte { return c.events }

// Done is closed once the connection is unregistered or the hub shuts down.
func (c *Conn) Done() <-chan struct{} { return c.done }

func (c *Conn) close() { c.once.Do(func() { close(c.done) }) }

// NewHub creates an empty hub.
func NewHub(cfg HubConfig) *Hub {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 16
	}
	return &Hub{
		conns:  make(map[string]map[*Conn]struct{}),
		buffer: cfg.Buffer,
		enc:    orDefaultEncoder(cfg.Encoder),
		log:    orNoop(cfg.Logger),
	}
}

// Register adds a connection for userID. After Close, the returned connection
// is already done.
func (h *Hub) Register(userID string) *Conn {
	c := &Conn{
		ID:     uuid.NewString(),
		UserID: userID,
		events: make(chan []byte, h.buffer),
		done:   make(chan struct{}),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		c.close()
		return c
	}
	set, ok := h.conns[userID]
	if !ok {
		set = make(map[*Conn]struct{})
		h.conns[userID] = set
	}
	set[c] = struct{}{}
	return c
}

// Unregister removes c. It is safe to call more than once and with nil.
func (h *Hub) Unregister(c *Conn) {
	if c == nil {
		return
	}
	h.mu.Lock()
	if set, ok := h.conns[c.UserID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.conns, c.UserID)
		}
	}
	h.mu.Unlock()
	c.close()
}

// Route encodes payload once and pushes it to every connection of userID
// registered when the call starts. It returns how many connections accepted
// the event. No connections is not an error.
func (h *Hub) Route(userID string, payload any) (int, error) {
	data, err := h.enc.Encode(payload)
	if err != nil {
		return 0, fmt.Errorf("encode payload: %w", err)
	}

	h.mu.RLock()
	targets := make([]*Conn, 0, len(h.conns[userID]))
	for c := range h.conns[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	sent := 0
	for _, c := range targets {
		select {
		case <-c.done:
			continue
		default:
		}
		select {
		case c.events <- data:
			sent++
		default:
			h.log.Warnf("event dropped for slow connection: user=%s conn=%s", userID, c.ID)
		}
	}
	return sent, nil
}

// Count returns the number of live connections of userID.
func (h *Hub) Count(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID])
}

// Len returns the number of live connections across all users.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.conns {
		n += len(set)
	}
	return n
}

// Close ends every connection and rejects later registrations.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, set := range h.conns {
		for c := range set {
			c.close()
		}
	}
	h.conns = make(map[string]map[*Conn]struct{})
}
