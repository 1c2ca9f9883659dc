package push

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	ws "github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/notification-inbox/internal/gateway"
)

func wsURL(s *httptest.Server) string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func staticToken(tok string) gateway.TokenSource {
	return gateway.TokenFunc(func(context.Context) (string, error) { return tok, nil })
}

func receive(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-events:
		require.True(t, ok, "events closed early")
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestSubscriptionRegistersAndDeliversEvents(t *testing.T) {
	var gotAuth atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		conn, err := ws.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()

		var reg frame
		if err := wsjson.Read(r.Context(), conn, &reg); err != nil {
			return
		}
		if reg.Event != "registerUser" || string(reg.Data) != `"alice"` {
			conn.Close(ws.StatusPolicyViolation, "bad register")
			return
		}

		conn.Write(r.Context(), ws.MessageText, []byte(`{"event":"newNotification","data":
			{"_id":"n1","userId":"alice","type":"interview","title":"t","message":"m",
			 "createdAt":"2025-06-01T10:00:00Z","isRead":false}}`))
		conn.Write(r.Context(), ws.MessageText, []byte(`{"event":"unsupported","data":{}}`))
		conn.Write(r.Context(), ws.MessageText, []byte(`{"event":"notificationDeleted","data":{"id":"n1","userId":"alice"}}`))

		for {
			if _, _, err := conn.Read(r.Context()); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	sub := Subscribe(context.Background(), "alice", staticToken("tok"), Options{URL: wsURL(server)})

	ev := receive(t, sub.Events())
	ne, ok := ev.(NewEvent)
	require.True(t, ok)
	assert.Equal(t, "n1", ne.Record.ID)

	assert.Equal(t, DeletedEvent{PrincipalID: "alice", ID: "n1"}, receive(t, sub.Events()))
	assert.Equal(t, StateConnected, sub.State())
	assert.Equal(t, "Bearer tok", gotAuth.Load())

	sub.Close()
	_, open := <-sub.Events()
	assert.False(t, open)
	assert.Equal(t, StateClosed, sub.State())

	// Closing twice is safe.
	sub.Close()
}

func TestSubscriptionReconnectsAfterDrop(t *testing.T) {
	var connects atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()

		var reg frame
		if err := wsjson.Read(r.Context(), conn, &reg); err != nil {
			return
		}
		n := connects.Add(1)
		if n == 1 {
			conn.Close(ws.StatusGoingAway, "restart")
			return
		}
		conn.Write(r.Context(), ws.MessageText, []byte(`{"event":"notificationDeleted","data":{"id":"n2","userId":"alice"}}`))
		for {
			if _, _, err := conn.Read(r.Context()); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	sub := Subscribe(context.Background(), "alice", staticToken("tok"), Options{
		URL:                wsURL(server),
		ReconnectPerMinute: 6000,
	})
	defer sub.Close()

	assert.Equal(t, DeletedEvent{PrincipalID: "alice", ID: "n2"}, receive(t, sub.Events()))
	assert.GreaterOrEqual(t, connects.Load(), int32(2))
}

func TestSubscriptionClosesEventsWhenParentEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sub := Subscribe(ctx, "alice", staticToken("tok"), Options{URL: "ws://127.0.0.1:1/ws"})
	cancel()

	select {
	case _, open := <-sub.Events():
		assert.False(t, open)
	case <-time.After(3 * time.Second):
		t.Fatal("events not closed after cancel")
	}
	sub.Close()
}
