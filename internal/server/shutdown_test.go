package server_test

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/roomrelay/internal/server"
	"github.com/Tyrowin/roomrelay/internal/testhelpers"
)

func TestHubShutdown_WithoutClients(t *testing.T) {
	cfg := server.NewConfig()
	router, err := server.NewRouter(*cfg)
	require.NoError(t, err)
	hub := server.NewHub(*cfg, logs.GetLoggerFromString("INFO"), router, server.NewMetrics())
	go hub.Run()

	require.NoError(t, hub.Shutdown(time.Second))
	assert.Equal(t, 0, hub.ConnectionCount())
}

func TestGracefulShutdown_DisconnectsClients(t *testing.T) {
	req := require.New(t)
	r := startRelay(t, nil)

	clients := make([]*websocket.Conn, 5)
	for i := range clients {
		clients[i], _ = connect(t, r)
	}
	req.Equal(len(clients), r.hub.ConnectionCount())

	req.NoError(r.hub.Shutdown(5 * time.Second))

	for i, conn := range clients {
		req.NoError(conn.SetReadDeadline(time.Now().Add(readTimeout)))
		_, _, err := conn.ReadMessage()
		req.Error(err, "client %d still open", i)
	}

	// Late connections are upgraded and immediately sent away
	late := testhelpers.MustConnect(t, r.url)
	req.NoError(late.SetReadDeadline(time.Now().Add(readTimeout)))
	_, _, err := late.ReadMessage()
	req.True(websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestShutdownServer(t *testing.T) {
	log := logs.GetLoggerFromString("INFO")
	srv := server.CreateServer("127.0.0.1:0", http.NewServeMux())

	done := make(chan error, 1)
	go func() { done <- server.StartServer(srv, log) }()
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, server.ShutdownServer(srv, time.Second, log))
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, http.ErrServerClosed))
	case <-time.After(time.Second):
		t.Fatal("server did not stop")
	}
}
