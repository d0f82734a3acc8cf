package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// socketPair dials a local upgrade server and returns both ends of one
// WebSocket connection.
func socketPair(t *testing.T) (server *websocket.Conn, client *websocket.Conn) {
	t.Helper()

	upgrader := websocket.Upgrader{}
	serverConns := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverConns <- conn
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	select {
	case server = <-serverConns:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for server side of socket pair")
	}
	return server, client
}

func registerConn(t *testing.T, hub *Hub) (uuid.UUID, *websocket.Conn) {
	t.Helper()
	serverSide, clientSide := socketPair(t)

	conn := NewConnection(serverSide, zerolog.Nop())
	connID := uuid.New()
	hub.RegisterConnection(connID, conn)
	go conn.WritePump()
	t.Cleanup(func() { hub.UnregisterConnection(connID) })

	return connID, clientSide
}

func readMessage(t *testing.T, client *websocket.Conn) Message {
	t.Helper()
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	require.NoError(t, client.ReadJSON(&msg))
	return msg
}

func TestHubSendToPlayer(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	connID, client := registerConn(t, hub)
	hub.JoinRoom("123456", "alice", connID)

	payload, _ := json.Marshal(map[string]string{"hello": "alice"})
	require.NoError(t, hub.SendToPlayer("123456", "alice", Message{Type: TypeGameState, Payload: payload}))

	msg := readMessage(t, client)
	assert.Equal(t, TypeGameState, msg.Type)
	assert.JSONEq(t, `{"hello":"alice"}`, string(msg.Payload))
}

func TestHubSendToPlayerUnknown(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	connID, _ := registerConn(t, hub)
	hub.JoinRoom("123456", "alice", connID)

	err := hub.SendToPlayer("123456", "ghost", Message{Type: TypeGameState})
	assert.ErrorIs(t, err, ErrConnectionNotFound)

	err = hub.SendToPlayer("999999", "alice", Message{Type: TypeGameState})
	assert.ErrorIs(t, err, ErrConnectionNotFound)
}

func TestHubRoomMembership(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	aliceID, _ := registerConn(t, hub)
	bobID, _ := registerConn(t, hub)
	hub.JoinRoom("123456", "alice", aliceID)
	hub.JoinRoom("123456", "bob", bobID)

	assert.ElementsMatch(t, []string{"alice", "bob"}, hub.RoomMembers("123456"))

	hub.LeaveRoom("123456", "alice")
	assert.Equal(t, []string{"bob"}, hub.RoomMembers("123456"))

	hub.LeaveRoom("123456", "bob")
	assert.Empty(t, hub.RoomMembers("123456"))
}

func TestHubUnregisterScrubsRooms(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	connID, _ := registerConn(t, hub)
	hub.JoinRoom("123456", "alice", connID)

	hub.UnregisterConnection(connID)

	assert.Empty(t, hub.RoomMembers("123456"))
	err := hub.SendToConn(connID, Message{Type: TypeGameState})
	assert.ErrorIs(t, err, ErrConnectionNotFound)
}

func TestConnectionSendAfterClose(t *testing.T) {
	serverSide, _ := socketPair(t)
	conn := NewConnection(serverSide, zerolog.Nop())

	conn.Close()
	err := conn.Send(Message{Type: TypePing})
	assert.ErrorIs(t, err, ErrConnectionClosed)
}
