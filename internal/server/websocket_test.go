package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleWebSocket_RejectsBadOrigin(t *testing.T) {
	srv := newTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "http://evil.test")
	rec := httptest.NewRecorder()
	srv.handleWebSocket(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandleWebSocket_RejectsMissingOrigin(t *testing.T) {
	srv := newTestServer(t, testConfig())

	rec := httptest.NewRecorder()
	srv.handleWebSocket(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// TestWebSocketDelivery runs the full path: upgrade, hub registration, and
// a broadcast arriving at the connected client.
func TestWebSocketDelivery(t *testing.T) {
	// Bind the listener first so the ephemeral port can go into the server
	// configuration before any handler runs. The origin check compares
	// against the configured port.
	ts := httptest.NewUnstartedServer(nil)
	_, portStr, err := net.SplitHostPort(ts.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Server.Port = port
	srv := newTestServer(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.runWebSocketHub(ctx)

	ts.Config.Handler = http.HandlerFunc(srv.handleWebSocket)
	ts.Start()
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPClient: ts.Client(),
		HTTPHeader: http.Header{"Origin": []string{ts.URL}},
	})
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.Eventually(t, func() bool {
		srv.clientsMutex.RLock()
		defer srv.clientsMutex.RUnlock()
		return len(srv.clients) == 1
	}, 2*time.Second, 10*time.Millisecond)

	srv.broadcastReload()

	readCtx, readCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer readCancel()
	msgType, data, err := conn.Read(readCtx)
	require.NoError(t, err)
	assert.Equal(t, websocket.MessageText, msgType)

	var msg UpdateMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "full_reload", msg.Type)
	assert.False(t, msg.Timestamp.IsZero())
}

// TestWebSocketUnregisterOnClose verifies a disconnecting client leaves the
// hub's client set.
func TestWebSocketUnregisterOnClose(t *testing.T) {
	ts := httptest.NewUnstartedServer(nil)
	_, portStr, err := net.SplitHostPort(ts.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Server.Port = port
	srv := newTestServer(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.runWebSocketHub(ctx)

	ts.Config.Handler = http.HandlerFunc(srv.handleWebSocket)
	ts.Start()
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPClient: ts.Client(),
		HTTPHeader: http.Header{"Origin": []string{ts.URL}},
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		srv.clientsMutex.RLock()
		defer srv.clientsMutex.RUnlock()
		return len(srv.clients) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))

	require.Eventually(t, func() bool {
		srv.clientsMutex.RLock()
		defer srv.clientsMutex.RUnlock()
		return len(srv.clients) == 0
	}, 2*time.Second, 10*time.Millisecond)
}
