package game

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httperrors "github.com/rankparty/rankparty/pkg/http/errors"
	"github.com/rankparty/rankparty/pkg/http/ws"
)

func newTestHandler(t *testing.T) (*Handler, *Registry, string) {
	t.Helper()
	logger := zerolog.Nop()
	registry := NewRegistry(RegistryOptions{Rand: rand.New(rand.NewSource(7))}, logger)
	engine := NewEngine(registry, &stubSupply{}, logger)
	hub := ws.NewHub(logger)
	handler := NewHandler(engine, hub, []string{"*"}, logger)

	srv := httptest.NewServer(http.HandlerFunc(handler.ServeWS))
	t.Cleanup(srv.Close)
	return handler, registry, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dialClient(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msgType string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(ws.Message{Type: msgType, Payload: raw}))
}

func recv(t *testing.T, conn *websocket.Conn) ws.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg ws.Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func recvState(t *testing.T, conn *websocket.Conn) ws.GameStatePayload {
	t.Helper()
	msg := recv(t, conn)
	require.Equal(t, ws.TypeGameState, msg.Type)
	var state ws.GameStatePayload
	require.NoError(t, json.Unmarshal(msg.Payload, &state))
	return state
}

func recvError(t *testing.T, conn *websocket.Conn) ws.ErrorPayload {
	t.Helper()
	msg := recv(t, conn)
	require.Equal(t, ws.TypeError, msg.Type)
	var errPayload ws.ErrorPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &errPayload))
	return errPayload
}

func TestHandlerCreateAndJoinFlow(t *testing.T) {
	_, _, url := newTestHandler(t)

	alice := dialClient(t, url)
	send(t, alice, ws.TypeCreateGame, ws.CreateGamePayload{PlayerName: "alice"})
	created := recvState(t, alice)

	assert.Len(t, created.RoomCode, 6)
	assert.Equal(t, "alice", created.Owner)
	assert.Equal(t, "waiting", created.Phase)

	bob := dialClient(t, url)
	send(t, bob, ws.TypeJoinGame, ws.JoinGamePayload{RoomCode: created.RoomCode, PlayerName: "bob"})

	// Both members see the join.
	bobState := recvState(t, bob)
	aliceState := recvState(t, alice)
	assert.Equal(t, []string{"alice", "bob"}, bobState.Players)
	assert.Equal(t, []string{"alice", "bob"}, aliceState.Players)
}

func TestHandlerStartDeliversPrivateQuestions(t *testing.T) {
	_, _, url := newTestHandler(t)

	alice := dialClient(t, url)
	send(t, alice, ws.TypeCreateGame, ws.CreateGamePayload{PlayerName: "alice"})
	created := recvState(t, alice)

	bob := dialClient(t, url)
	send(t, bob, ws.TypeJoinGame, ws.JoinGamePayload{RoomCode: created.RoomCode, PlayerName: "bob"})
	recvState(t, bob)
	recvState(t, alice)

	send(t, alice, ws.TypeStartGame, ws.StartGamePayload{RoomCode: created.RoomCode})
	aliceState := recvState(t, alice)
	bobState := recvState(t, bob)

	assert.Equal(t, "ranking", aliceState.Phase)
	assert.NotEmpty(t, aliceState.MyQuestion)
	assert.NotEmpty(t, bobState.MyQuestion)
	assert.NotEqual(t, aliceState.MyQuestion, bobState.MyQuestion)
}

func TestHandlerRankingAck(t *testing.T) {
	_, _, url := newTestHandler(t)

	alice := dialClient(t, url)
	send(t, alice, ws.TypeCreateGame, ws.CreateGamePayload{PlayerName: "alice"})
	created := recvState(t, alice)

	bob := dialClient(t, url)
	send(t, bob, ws.TypeJoinGame, ws.JoinGamePayload{RoomCode: created.RoomCode, PlayerName: "bob"})
	recvState(t, bob)
	recvState(t, alice)

	send(t, alice, ws.TypeStartGame, ws.StartGamePayload{RoomCode: created.RoomCode})
	recvState(t, alice)
	recvState(t, bob)

	send(t, bob, ws.TypeSubmitRanking, ws.SubmitRankingPayload{
		RoomCode: created.RoomCode,
		Ranking:  []string{"bob", "alice"},
	})

	ack := recv(t, bob)
	assert.Equal(t, ws.TypeRankingSubmitted, ack.Type)

	bobState := recvState(t, bob)
	assert.True(t, bobState.MyRankingSubmitted)
	assert.Equal(t, []string{"bob"}, bobState.RankingsSubmitted)

	aliceState := recvState(t, alice)
	assert.False(t, aliceState.MyRankingSubmitted)
}

func TestHandlerErrorsGoToOffenderOnly(t *testing.T) {
	_, registry, url := newTestHandler(t)

	alice := dialClient(t, url)
	send(t, alice, ws.TypeCreateGame, ws.CreateGamePayload{PlayerName: "alice"})
	created := recvState(t, alice)

	bob := dialClient(t, url)
	send(t, bob, ws.TypeJoinGame, ws.JoinGamePayload{RoomCode: "000000", PlayerName: "bob"})
	errPayload := recvError(t, bob)
	assert.Equal(t, httperrors.ErrCodeRoomNotFound, errPayload.Code)

	// Duplicate name join also fails and mutates nothing.
	send(t, bob, ws.TypeJoinGame, ws.JoinGamePayload{RoomCode: created.RoomCode, PlayerName: "alice"})
	errPayload = recvError(t, bob)
	assert.Equal(t, httperrors.ErrCodeDuplicateName, errPayload.Code)

	room, ok := registry.Get(created.RoomCode)
	require.True(t, ok)
	assert.Equal(t, []string{"alice"}, room.Players)
}

func TestHandlerUnknownMessageType(t *testing.T) {
	_, _, url := newTestHandler(t)

	conn := dialClient(t, url)
	send(t, conn, "do_a_flip", struct{}{})
	errPayload := recvError(t, conn)
	assert.Equal(t, httperrors.ErrCodeUnknownMessageType, errPayload.Code)
}

func TestHandlerRoomMismatch(t *testing.T) {
	_, _, url := newTestHandler(t)

	alice := dialClient(t, url)
	send(t, alice, ws.TypeCreateGame, ws.CreateGamePayload{PlayerName: "alice"})
	created := recvState(t, alice)
	require.NotEqual(t, "999999", created.RoomCode)

	send(t, alice, ws.TypeStartGame, ws.StartGamePayload{RoomCode: "999999"})
	errPayload := recvError(t, alice)
	assert.Equal(t, httperrors.ErrCodeNotInRoom, errPayload.Code)
}

func TestHandlerDisconnectBroadcastsDeparture(t *testing.T) {
	_, registry, url := newTestHandler(t)

	alice := dialClient(t, url)
	send(t, alice, ws.TypeCreateGame, ws.CreateGamePayload{PlayerName: "alice"})
	created := recvState(t, alice)

	bob := dialClient(t, url)
	send(t, bob, ws.TypeJoinGame, ws.JoinGamePayload{RoomCode: created.RoomCode, PlayerName: "bob"})
	recvState(t, bob)
	recvState(t, alice)

	bob.Close()

	left := recvState(t, alice)
	assert.Equal(t, []string{"alice"}, left.Players)
	assert.NotContains(t, left.Points, "bob")

	room, ok := registry.Get(created.RoomCode)
	require.True(t, ok)
	assert.Equal(t, []string{"alice"}, room.Players)
}
