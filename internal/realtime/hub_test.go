package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		sid := r.URL.Query().Get("sid")
		hub.ServeWS(conn, sid, &Event{Type: EventSnapshot, Payload: map[string]string{"sid": sid}})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, sid string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?sid=" + sid
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev map[string]interface{}
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestHub_InitialSnapshotAndPublish(t *testing.T) {
	hub := NewHub(zap.NewNop())
	srv := newTestServer(t, hub)

	a1 := dial(t, srv, "a")
	a2 := dial(t, srv, "a")
	b := dial(t, srv, "b")

	for _, c := range []*websocket.Conn{a1, a2, b} {
		assert.Equal(t, EventSnapshot, readEvent(t, c)["type"])
	}
	require.Eventually(t, func() bool { return hub.Count("a") == 2 && hub.Count("b") == 1 }, time.Second, 10*time.Millisecond)

	assert.Equal(t, 2, hub.Publish("a", Event{Type: EventNotice, Payload: "hello"}))
	assert.Equal(t, "hello", readEvent(t, a1)["payload"])
	assert.Equal(t, "hello", readEvent(t, a2)["payload"])

	assert.Equal(t, 0, hub.Publish("nobody", Event{Type: EventNotice}))
}

func TestHub_UnregistersOnClose(t *testing.T) {
	hub := NewHub(zap.NewNop())
	srv := newTestServer(t, hub)

	c := dial(t, srv, "a")
	readEvent(t, c)
	require.Eventually(t, func() bool { return hub.Count("a") == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, c.Close())
	assert.Eventually(t, func() bool { return hub.Count("a") == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_Ping(t *testing.T) {
	hub := NewHub(zap.NewNop())
	srv := newTestServer(t, hub)

	c := dial(t, srv, "a")
	readEvent(t, c)
	require.NoError(t, c.WriteJSON(map[string]string{"type": "ping"}))
	assert.Equal(t, EventPong, readEvent(t, c)["type"])
}
