package gateway

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
)

func newTestConn(t *testing.T, userID string) *conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
		ws, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return newConn(userID, ws, 4)
}

// A fan-out snapshot taken before a member disconnects may enqueue after that
// member's conn was removed and closed; the enqueue must be a silent no-op,
// never a send on a closed channel.
func TestEnqueueAfterRemoveIsNoop(t *testing.T) {
	reg := NewRegistry()
	c := newTestConn(t, "2")
	reg.add(c)

	stale := reg.listByUser("2")
	if len(stale) != 1 {
		t.Fatalf("listByUser = %d conns, want 1", len(stale))
	}
	reg.remove(c)

	for _, cn := range stale {
		cn.enqueue([]byte(`{"req_identifier":2001}`))
	}
}

func TestEnqueueRacingCloseDoesNotPanic(t *testing.T) {
	reg := NewRegistry()
	c := newTestConn(t, "2")
	reg.add(c)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < 200; j++ {
				c.enqueue([]byte(`{"req_identifier":2001}`))
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		reg.remove(c)
	}()
	close(start)
	wg.Wait()

	if got := reg.listByUser("2"); got != nil {
		t.Fatalf("conn still registered after remove: %v", got)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	c := newTestConn(t, "2")
	c.close()
	c.close()
	c.enqueue([]byte("late"))
}
