package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/CoPhuocVinh/demo-kafka/internal/application"
)

type gaugeRecorder struct {
	mu sync.Mutex
	n  int
}

func (g *gaugeRecorder) SetConnections(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = n
}

func (g *gaugeRecorder) get() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readEvent reads frames until one carries event.
func readEvent(t *testing.T, conn *websocket.Conn, event string) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var env Envelope
		require.NoError(t, json.Unmarshal(data, &env))
		if env.Event == event {
			return env
		}
	}
}

func TestHubBroadcastsConsumedMessages(t *testing.T) {
	env := buildServer(t)
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	conn := dialWS(t, srv)
	status := readEvent(t, conn, EventConnectionStatus)
	require.Equal(t, "connected", status.Data.(map[string]any)["status"])

	rec := env.do(t, http.MethodPost, "/demo/send", `{"hello":"world"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	got := readEvent(t, conn, application.MessageChannel)
	data := got.Data.(map[string]any)
	require.Equal(t, "Consumer-1", data["consumerId"])
	require.Equal(t, testGroup, data["consumerGroup"])
	require.Equal(t, "0", data["offset"])
	require.JSONEq(t, `{"hello":"world"}`, data["value"].(string))
}

func TestHubPingPong(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()
	defer hub.Close()

	conn := dialWS(t, srv)
	readEvent(t, conn, EventConnectionStatus)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"ping"}`)))
	pong := readEvent(t, conn, EventPong)
	require.NotEmpty(t, pong.Data.(map[string]any)["timestamp"])

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("ping")))
	readEvent(t, conn, EventPong)
}

func TestHubTracksConnections(t *testing.T) {
	gauge := &gaugeRecorder{}
	hub := NewHub(gauge)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()
	defer hub.Close()

	first := dialWS(t, srv)
	readEvent(t, first, EventConnectionStatus)
	second := dialWS(t, srv)
	readEvent(t, second, EventConnectionStatus)

	update := readEvent(t, first, EventClientsUpdate)
	for update.Data.(map[string]any)["totalClients"] != float64(2) {
		update = readEvent(t, first, EventClientsUpdate)
	}
	require.Equal(t, 2, hub.Clients())
	require.Equal(t, 2, gauge.get())

	require.NoError(t, second.Close())
	require.Eventually(t, func() bool { return hub.Clients() == 1 && gauge.get() == 1 }, 5*time.Second, 20*time.Millisecond)
}

func TestHubPublishWithoutClients(t *testing.T) {
	hub := NewHub(nil)
	require.NotPanics(t, func() { hub.Publish(application.MessageChannel, map[string]string{"k": "v"}) })
	require.Zero(t, hub.Clients())
}
