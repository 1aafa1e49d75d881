package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"IMClient/module/chat/model"
	"IMClient/tools/errs"

	"github.com/gorilla/websocket"
)

// testServer is a websocket endpoint the tests can push raw frames through.
type testServer struct {
	srv *httptest.Server

	mu    sync.Mutex
	conns []*websocket.Conn
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{}
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	ts.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ts.mu.Lock()
		ts.conns = append(ts.conns, ws)
		ts.mu.Unlock()
		// keep reading so close frames are processed
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(ts.srv.Close)
	return ts
}

func (ts *testServer) url() string {
	return "ws" + strings.TrimPrefix(ts.srv.URL, "http")
}

func (ts *testServer) sendRaw(t *testing.T, raw string) {
	t.Helper()
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if len(ts.conns) == 0 {
		t.Fatal("no connection to send through")
	}
	ws := ts.conns[len(ts.conns)-1]
	if err := ws.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
		t.Fatalf("server write: %v", err)
	}
}

func (ts *testServer) send(t *testing.T, kind int32, payload any) {
	t.Helper()
	data, _ := json.Marshal(payload)
	frame, _ := json.Marshal(&model.WSResponse{ReqIdentifier: kind, Data: data})
	ts.sendRaw(t, string(frame))
}

func (ts *testServer) dropConns() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	for _, ws := range ts.conns {
		_ = ws.Close()
	}
	ts.conns = nil
}

func dialTest(t *testing.T, ts *testServer) *Client {
	t.Helper()
	c, err := Dial(Options{
		URL:           ts.url(),
		SendRetry:     3,
		SendRetryWait: 20 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestBuildURL(t *testing.T) {
	u, err := BuildURL("ws://example.com/ws", "tok en", "42")
	if err != nil {
		t.Fatalf("BuildURL: %v", err)
	}
	if u != "ws://example.com/ws?sendId=42&token=tok+en" {
		t.Fatalf("url = %q", u)
	}
}

func TestDialBadURL(t *testing.T) {
	if _, err := Dial(Options{URL: ""}); err == nil {
		t.Fatal("expected error for empty URL")
	}
	if _, err := Dial(Options{URL: "ws://127.0.0.1:1/nope", SendRetryWait: time.Millisecond}); err == nil {
		t.Fatal("expected error for unreachable endpoint")
	}
}

func TestDispatchFanOutInRegistrationOrder(t *testing.T) {
	ts := newTestServer(t)
	c := dialTest(t, ts)

	var mu sync.Mutex
	var order []string
	c.Subscribe(1001, func(resp *model.WSResponse) {
		mu.Lock()
		order = append(order, "first")
		mu.Unlock()
	})
	unsub := c.Subscribe(1001, func(resp *model.WSResponse) {
		mu.Lock()
		order = append(order, "second")
		mu.Unlock()
	})

	ts.send(t, 1001, map[string]any{"max_seqs": map[string]int64{}})
	waitFor(t, "both handlers", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 2
	})
	mu.Lock()
	if order[0] != "first" || order[1] != "second" {
		t.Fatalf("order = %v", order)
	}
	mu.Unlock()

	// removing one handler must not affect its sibling
	unsub()
	ts.send(t, 1001, map[string]any{})
	waitFor(t, "third delivery", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 3
	})
	mu.Lock()
	if order[2] != "first" {
		t.Fatalf("order after unsubscribe = %v", order)
	}
	mu.Unlock()
}

func TestHandlerPanicIsolated(t *testing.T) {
	ts := newTestServer(t)
	c := dialTest(t, ts)

	var mu sync.Mutex
	reached := false
	c.Subscribe(2001, func(resp *model.WSResponse) {
		panic("bad subscriber")
	})
	c.Subscribe(2001, func(resp *model.WSResponse) {
		mu.Lock()
		reached = true
		mu.Unlock()
	})

	ts.send(t, 2001, &model.Message{ID: "1", ConversationID: "single:1_2", Seq: 1})
	waitFor(t, "sibling handler", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return reached
	})
}

func TestMalformedAndUnknownFramesDropped(t *testing.T) {
	ts := newTestServer(t)
	c := dialTest(t, ts)

	var mu sync.Mutex
	got := 0
	c.Subscribe(1002, func(resp *model.WSResponse) {
		mu.Lock()
		got++
		mu.Unlock()
	})

	ts.sendRaw(t, "this is not json")
	ts.sendRaw(t, `{"some":"thing"}`)        // no discriminant
	ts.send(t, 9999, map[string]any{"x": 1}) // unknown kind
	ts.send(t, 1002, map[string]any{"msgs": map[string]any{}})

	waitFor(t, "valid frame after garbage", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return got == 1
	})
	if c.State() != StateOpen {
		t.Fatalf("state = %v after malformed frames, want open", c.State())
	}
}

func TestSendWhileOpen(t *testing.T) {
	ts := newTestServer(t)
	c := dialTest(t, ts)

	if err := c.Send(&model.WSRequest{ReqIdentifier: 1001}); err != nil {
		t.Fatalf("send: %v", err)
	}
}

func TestSendAfterPeerDropRetriesThenFails(t *testing.T) {
	ts := newTestServer(t)
	c := dialTest(t, ts)

	ts.dropConns()
	waitFor(t, "closed state", func() bool { return c.State() == StateClosed })

	start := time.Now()
	err := c.Send(&model.WSRequest{ReqIdentifier: 1003})
	if !errors.Is(err, errs.ErrTransportUnavailable) {
		t.Fatalf("error = %v, want TransportUnavailable", err)
	}
	if elapsed := time.Since(start); elapsed < 2*20*time.Millisecond {
		t.Fatalf("failed after %v, expected the bounded backoff to run", elapsed)
	}
	if !strings.Contains(err.Error(), "closed") {
		t.Fatalf("error should carry the last observed state: %v", err)
	}
}

func TestStateChangeNotification(t *testing.T) {
	ts := newTestServer(t)
	c := dialTest(t, ts)

	var mu sync.Mutex
	var states []State
	c.OnStateChange(func(s State) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})

	mu.Lock()
	if len(states) == 0 || states[0] != StateOpen {
		t.Fatalf("late subscriber did not observe the current state: %v", states)
	}
	mu.Unlock()

	ts.dropConns()
	waitFor(t, "closed notification", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(states) >= 2 && states[len(states)-1] == StateClosed
	})
}

func TestCloseIsIdempotentAndDetaches(t *testing.T) {
	ts := newTestServer(t)
	c := dialTest(t, ts)

	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if c.State() != StateClosed {
		t.Fatalf("state = %v, want closed", c.State())
	}

	err := c.Send(&model.WSRequest{ReqIdentifier: 1001})
	if !errors.Is(err, errs.ErrTransportClosed) {
		t.Fatalf("send after close = %v, want TransportClosed", err)
	}
}
