package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newConnPair returns the server side of a live connection and the dialing peer
func newConnPair(t *testing.T) (*websocket.Conn, *websocket.Conn) {
	t.Helper()

	serverConns := make(chan *websocket.Conn, 1)
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverConns <- conn
	}))
	t.Cleanup(server.Close)

	peer, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { peer.Close() })

	select {
	case conn := <-serverConns:
		return conn, peer
	case <-time.After(2 * time.Second):
		t.Fatal("server connection not established")
		return nil, nil
	}
}

func TestClient_RunDeliversAndUnregisters(t *testing.T) {
	hub := NewHub()
	conn, peer := newConnPair(t)

	client := NewClient(conn, 5, hub)
	client.Run()
	assert.Equal(t, 1, hub.ClientCount(5))
	assert.Equal(t, int64(5), client.ProfileID())
	assert.NotEmpty(t, client.ID())

	require.NoError(t, client.Send([]byte(`{"type":"profile.updated"}`)))

	require.NoError(t, peer.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, message, err := peer.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"profile.updated"}`, string(message))

	// Peer disconnect ends the read pump
	peer.Close()
	require.Eventually(t, func() bool { return hub.ClientCount(5) == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, client.IsClosed())
}

func TestClient_SendAfterClose(t *testing.T) {
	conn, _ := newConnPair(t)
	client := NewClient(conn, 1, NewHub())

	require.NoError(t, client.Close())
	assert.NoError(t, client.Close(), "second close is a no-op")
	assert.True(t, client.IsClosed())
	assert.ErrorIs(t, client.Send([]byte("x")), ErrClientClosed)
}

func TestClient_SendBufferFull(t *testing.T) {
	conn, _ := newConnPair(t)
	client := NewClient(conn, 1, NewHub())
	defer client.Close()

	// Pumps are not running, so nothing drains the queue
	for i := 0; i < sendBufferSize; i++ {
		require.NoError(t, client.Send([]byte("x")))
	}
	assert.ErrorIs(t, client.Send([]byte("x")), ErrSendBufferFull)
}
