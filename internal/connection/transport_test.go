package connection_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/connection"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/loop"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/protocol"
)

func TestManager_OverWebsocket(t *testing.T) {
	var (
		mu     sync.Mutex
		tokens []string
	)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws/room-7" {
			http.NotFound(w, r)
			return
		}

		mu.Lock()
		tokens = append(tokens, r.URL.Query().Get("token"))
		mu.Unlock()

		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()

		for {
			_, b, err := c.ReadMessage()
			if err != nil {
				return
			}
			if strings.Contains(string(b), `"ping"`) {
				if err := c.WriteMessage(websocket.TextMessage, []byte(`{"type":"pong"}`)); err != nil {
					return
				}
			}
		}
	}))
	defer srv.Close()

	lp := loop.New()
	go lp.Run()
	defer lp.Stop()

	frames := make(chan string, 4)
	m := connection.NewManager(connection.Config{
		Host:      strings.TrimPrefix(srv.URL, "http://"),
		Namespace: "room-7",
		Token:     func() string { return "t0k" },
		Post:      lp.Post,
		OnFrame:   func(frame []byte) { frames <- string(frame) },
	})

	ctx := context.Background()
	require.NoError(t, lp.Do(ctx, m.Connect))
	require.Eventually(t, func() bool {
		var ok bool
		require.NoError(t, lp.Do(ctx, func() { ok = m.IsConnected() }))
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	var sendErr error
	require.NoError(t, lp.Do(ctx, func() {
		sendErr = m.Send(protocol.Ping{})
	}))
	require.NoError(t, sendErr)

	select {
	case f := <-frames:
		assert.JSONEq(t, `{"type":"pong"}`, f)
	case <-time.After(2 * time.Second):
		t.Fatal("no pong received")
	}

	var connected bool
	require.NoError(t, lp.Do(ctx, func() {
		m.Disconnect()
		connected = m.IsConnected()
	}))
	assert.False(t, connected)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"t0k"}, tokens)
}
