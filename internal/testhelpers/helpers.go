// Package testhelpers provides shared utilities for exercising the relay over
// real HTTP and WebSocket connections in tests.
package testhelpers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// TestOrigin is the Origin header sent by ConnectWebSocket. Test configs
// should allow it.
const TestOrigin = "http://localhost:8080"

// Event is a decoded server event. Fields are read by name, e.g. ev["room"].
type Event map[string]any

// Kind returns the event's type field.
func (e Event) Kind() string {
	kind, _ := e["type"].(string)
	return kind
}

// Field returns a string field, or "" if absent.
func (e Event) Field(name string) string {
	value, _ := e[name].(string)
	return value
}

// WebSocketURL turns an httptest server URL into the relay's ws endpoint.
func WebSocketURL(serverURL string) string {
	return "ws" + strings.TrimPrefix(serverURL, "http") + "/ws"
}

// ConnectWebSocket dials url with TestOrigin as the Origin header.
func ConnectWebSocket(url string) (*websocket.Conn, error) {
	return ConnectWebSocketWithOrigin(url, TestOrigin)
}

// ConnectWebSocketWithOrigin dials url with the given Origin header. The
// handshake response status is returned alongside any error.
func ConnectWebSocketWithOrigin(url, origin string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	if err != nil && resp != nil {
		return nil, fmt.Errorf("%w (status %d)", err, resp.StatusCode)
	}
	return conn, err
}

// MustConnect dials url and registers a cleanup that closes the connection.
func MustConnect(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, err := ConnectWebSocket(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// SendEvent writes event as one JSON text frame.
func SendEvent(t *testing.T, conn *websocket.Conn, event any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(event))
}

// ReadEvent reads the next frame within timeout and decodes it.
func ReadEvent(t *testing.T, conn *websocket.Conn, timeout time.Duration) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(timeout)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var event Event
	require.NoError(t, json.Unmarshal(raw, &event), "frame %s", raw)
	return event
}

// ReadUntil reads frames until one of the given kind arrives and returns it.
// The frames skipped on the way are returned too.
func ReadUntil(t *testing.T, conn *websocket.Conn, kind string, timeout time.Duration) (Event, []Event) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	var skipped []Event
	for {
		remaining := time.Until(deadline)
		require.True(t, remaining > 0, "no %q event before timeout; saw %v", kind, skipped)
		event := ReadEvent(t, conn, remaining)
		if event.Kind() == kind {
			return event, skipped
		}
		skipped = append(skipped, event)
	}
}

// ExpectSilence asserts that no frame arrives on conn within wait. A read
// timeout breaks a gorilla connection, so this must be the last read on conn.
func ExpectSilence(t *testing.T, conn *websocket.Conn, wait time.Duration) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(wait)))
	_, raw, err := conn.ReadMessage()
	require.Error(t, err, "unexpected frame %s", raw)
}

// CloseWebSocket gracefully closes a WebSocket connection.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}

// MakeRequest executes an HTTP request with a 5-second timeout.
func MakeRequest(t *testing.T, method, url string) *http.Response {
	t.Helper()

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(method, url, http.NoBody)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}
