package gateway

import (
	"sync"

	"github.com/gorilla/websocket"

	"IMClient/logger"
	"IMClient/tools/ids"
	"IMClient/tools/safe"
)

// conn is one websocket session. Outbound frames go through the send queue,
// consumed by a single writer goroutine.
type conn struct {
	id     string
	userID string
	ws     *websocket.Conn

	sendMu sync.Mutex // guards send against close; enqueue and close race
	send   chan []byte
	closed bool

	closeOnce sync.Once
}

func newConn(userID string, ws *websocket.Conn, queueSize int) *conn {
	return &conn{
		id:     ids.GenerateString(),
		userID: userID,
		ws:     ws,
		send:   make(chan []byte, queueSize),
	}
}

func (c *conn) writeLoop() {
	for b := range c.send {
		if err := c.ws.WriteMessage(websocket.TextMessage, b); err != nil {
			logger.Warnf("[gateway] write to user=%s conn=%s: %v", c.userID, c.id, err)
			return
		}
	}
}

// enqueue drops the frame when the queue is full rather than blocking the
// caller, and is a no-op once the connection closed: fan-out snapshots may
// still hold a conn whose reader already tore it down.
func (c *conn) enqueue(b []byte) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- b:
	default:
		logger.Warnf("[gateway] send queue full, drop frame user=%s conn=%s", c.userID, c.id)
	}
}

func (c *conn) close() {
	c.closeOnce.Do(func() {
		c.sendMu.Lock()
		c.closed = true
		close(c.send)
		c.sendMu.Unlock()
		_ = c.ws.Close()
	})
}

// Registry indexes live connections by user and by connection id. A user may
// hold several connections (multi-device), each tracked separately.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]map[string]*conn
	byConn map[string]*conn
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string]map[string]*conn),
		byConn: make(map[string]*conn),
	}
}

func (r *Registry) add(c *conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.byUser[c.userID]
	if m == nil {
		m = make(map[string]*conn)
		r.byUser[c.userID] = m
	}
	m[c.id] = c
	r.byConn[c.id] = c
	safe.Go(c.writeLoop)
}

func (r *Registry) remove(c *conn) {
	r.mu.Lock()
	if m := r.byUser[c.userID]; m != nil {
		delete(m, c.id)
		if len(m) == 0 {
			delete(r.byUser, c.userID)
		}
	}
	delete(r.byConn, c.id)
	r.mu.Unlock()
	c.close()
}

func (r *Registry) listByUser(userID string) []*conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m := r.byUser[userID]
	if len(m) == 0 {
		return nil
	}
	out := make([]*conn, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	return out
}
