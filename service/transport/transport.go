package transport

import (
	"encoding/json"
	"net/url"
	"sync"
	"time"

	"IMClient/logger"
	"IMClient/module/chat/model"
	"IMClient/tools/errs"
	"IMClient/tools/ids"
	"IMClient/tools/safe"

	"github.com/gorilla/websocket"
)

// State is the connection lifecycle state.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// StateHandler observes connection state changes.
type StateHandler func(state State)

// Options configures a Client. Zero values fall back to the defaults below.
type Options struct {
	URL           string // full ws(s) URL including token and sendId
	SendRetry     int
	SendRetryWait time.Duration
	WriteTimeout  time.Duration
	Dialer        *websocket.Dialer
}

const (
	defaultSendRetry     = 3
	defaultSendRetryWait = time.Second
	defaultWriteTimeout  = 10 * time.Second
)

// Client owns one websocket connection and demultiplexes inbound frames to
// kind subscribers. Handlers run synchronously on the read loop, in
// registration order, each isolated from sibling panics.
type Client struct {
	opts Options

	mu    sync.Mutex // guards ws writes and state
	ws    *websocket.Conn
	state State

	subs      *registry
	stateMu   sync.RWMutex
	stateSubs []*stateSubscriber

	done      chan struct{}
	closeOnce sync.Once
}

type stateSubscriber struct {
	id string
	fn StateHandler
}

// BuildURL assembles the connection URL from the endpoint and the session
// credentials. The token is treated as an opaque string.
func BuildURL(endpoint, token, sendID string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", errs.ErrArgs.WrapMsg("bad endpoint", "endpoint", endpoint)
	}
	q := u.Query()
	q.Set("token", token)
	q.Set("sendId", sendID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Dial opens the connection and starts the read loop. A bad URL or a failed
// handshake is the only error class surfaced to the hosting application.
func Dial(opts Options) (*Client, error) {
	if opts.URL == "" {
		return nil, errs.ErrArgs.WrapMsg("empty transport URL")
	}
	if _, err := url.Parse(opts.URL); err != nil {
		return nil, errs.ErrArgs.WrapMsg("bad transport URL", "url", opts.URL)
	}
	if opts.SendRetry <= 0 {
		opts.SendRetry = defaultSendRetry
	}
	if opts.SendRetryWait <= 0 {
		opts.SendRetryWait = defaultSendRetryWait
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}

	c := &Client{
		opts:  opts,
		state: StateConnecting,
		subs:  newRegistry(),
		done:  make(chan struct{}),
	}

	ws, _, err := opts.Dialer.Dial(opts.URL, nil)
	if err != nil {
		c.setState(StateClosed)
		return nil, errs.WrapMsg(err, "websocket dial", "url", opts.URL)
	}
	c.mu.Lock()
	c.ws = ws
	c.mu.Unlock()
	c.setState(StateOpen)

	safe.Go(c.readLoop)
	return c, nil
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers a handler for a frame kind and returns the matching
// unsubscribe function. Multiple handlers per kind fan out in registration
// order.
func (c *Client) Subscribe(kind int32, fn Handler) (unsubscribe func()) {
	id := c.subs.add(kind, fn)
	return func() { c.subs.remove(kind, id) }
}

// OnStateChange registers a connection-state observer and returns its
// unsubscribe function. The observer also receives the current state right
// away, so late subscribers do not miss an already-open connection.
func (c *Client) OnStateChange(fn StateHandler) (unsubscribe func()) {
	sub := &stateSubscriber{id: ids.GenerateString(), fn: fn}
	c.stateMu.Lock()
	c.stateSubs = append(c.stateSubs, sub)
	c.stateMu.Unlock()

	fn(c.State())

	return func() {
		c.stateMu.Lock()
		defer c.stateMu.Unlock()
		for i, s := range c.stateSubs {
			if s.id == sub.id {
				c.stateSubs = append(c.stateSubs[:i], c.stateSubs[i+1:]...)
				return
			}
		}
	}
}

// Send serializes data and writes it while the socket is open. If the socket
// is not open it retries after a fixed backoff up to the bounded attempt
// count, then fails with ErrTransportUnavailable carrying the last observed
// state. Send only guarantees the bytes reached an open socket; it never
// waits for an application-level acknowledgment.
func (c *Client) Send(data any) error {
	select {
	case <-c.done:
		return errs.ErrTransportClosed.WrapMsg("transport was torn down")
	default:
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return errs.WrapMsg(err, "marshal frame")
	}

	var last State
	for attempt := 1; attempt <= c.opts.SendRetry; attempt++ {
		c.mu.Lock()
		last = c.state
		if c.state == StateOpen && c.ws != nil {
			ws := c.ws
			_ = ws.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			err := ws.WriteMessage(websocket.TextMessage, payload)
			c.mu.Unlock()
			if err != nil {
				return errs.WrapMsg(err, "websocket write")
			}
			return nil
		}
		c.mu.Unlock()

		if attempt < c.opts.SendRetry {
			select {
			case <-time.After(c.opts.SendRetryWait):
			case <-c.done:
				// state can no longer change, fail the remaining attempts fast
			}
		}
	}
	return errs.ErrTransportUnavailable.WrapMsg("socket not open",
		"attempts", c.opts.SendRetry, "state", last.String())
}

// Close tears the transport down: detaches all handlers, closes the socket
// and transitions to closed. Idempotent.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.setState(StateClosing)
		close(c.done)

		c.mu.Lock()
		ws := c.ws
		c.ws = nil
		c.mu.Unlock()
		if ws != nil {
			_ = ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = ws.Close()
		}

		c.subs.clear()
		c.setState(StateClosed)
	})
	return nil
}

func (c *Client) readLoop() {
	for {
		c.mu.Lock()
		ws := c.ws
		c.mu.Unlock()
		if ws == nil {
			return
		}

		_, raw, err := ws.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				// deliberate teardown, Close already published the state
			default:
				if websocket.IsCloseError(err,
					websocket.CloseNormalClosure,
					websocket.CloseGoingAway,
					websocket.CloseNoStatusReceived,
				) {
					logger.Infof("[transport] peer closed: %v", err)
				} else {
					logger.Warnf("[transport] read error: %v", err)
				}
				c.mu.Lock()
				c.ws = nil
				c.mu.Unlock()
				c.setState(StateClosed)
			}
			return
		}

		c.dispatch(raw)
	}
}

// dispatch parses one inbound frame and fans it out. Malformed frames are
// dropped with a warning; kinds with no subscriber are ignored, which keeps
// the client forward-compatible with server protocol additions.
func (c *Client) dispatch(raw []byte) {
	var resp model.WSResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		sample := raw
		if len(sample) > 256 {
			sample = sample[:256]
		}
		logger.Warnf("[transport] drop malformed frame: %v sample=%q", err, sample)
		return
	}
	if resp.ReqIdentifier == 0 {
		logger.Warnf("[transport] drop frame without req_identifier len=%d", len(raw))
		return
	}

	subs := c.subs.list(resp.ReqIdentifier)
	if len(subs) == 0 {
		logger.Debugf("[transport] no subscriber for kind=%d", resp.ReqIdentifier)
		return
	}
	for _, sub := range subs {
		sub := sub
		safe.Call(func() { sub.fn(&resp) })
	}
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	if c.state == s {
		c.mu.Unlock()
		return
	}
	c.state = s
	c.mu.Unlock()

	c.stateMu.RLock()
	subs := make([]*stateSubscriber, len(c.stateSubs))
	copy(subs, c.stateSubs)
	c.stateMu.RUnlock()
	for _, sub := range subs {
		sub := sub
		safe.Call(func() { sub.fn(s) })
	}
}
