package game

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	httperrors "github.com/rankparty/rankparty/pkg/http/errors"
	"github.com/rankparty/rankparty/pkg/http/ws"
)

// Handler manages WebSocket connections and routes game messages to the
// engine.
type Handler struct {
	engine   *Engine
	hub      *ws.Hub
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewHandler creates a game WebSocket handler.
func NewHandler(engine *Engine, hub *ws.Hub, allowedOrigins []string, logger zerolog.Logger) *Handler {
	return &Handler{
		engine:   engine,
		hub:      hub,
		upgrader: newUpgrader(allowedOrigins),
		logger:   logger,
	}
}

// session is the per-connection state: which player on which room this socket
// speaks for. It is only touched from the connection's read loop.
type session struct {
	connID     uuid.UUID
	roomCode   string
	playerName string
}

func (s *session) bound() bool { return s.roomCode != "" }

// HandleConnection processes a new WebSocket connection until it closes, then
// runs the disconnect path for any room the connection was bound to.
func (h *Handler) HandleConnection(conn *websocket.Conn) {
	wsConn := ws.NewConnection(conn, h.logger)
	connID := uuid.New()
	h.hub.RegisterConnection(connID, wsConn)

	go wsConn.WritePump()

	sess := &session{connID: connID}
	wsConn.ReadPump(func(msg ws.Message) error {
		return h.handleMessage(context.Background(), sess, msg)
	})

	if sess.bound() {
		h.hub.LeaveRoom(sess.roomCode, sess.playerName)
		view, err := h.engine.Disconnect(context.Background(), sess.roomCode, sess.playerName)
		if err != nil {
			h.logger.Warn().Err(err).Str("room_code", sess.roomCode).Msg("disconnect handling failed")
		} else if view != nil {
			h.broadcastState(view)
		}
	}
	h.hub.UnregisterConnection(connID)
}

// handleMessage routes incoming WebSocket messages.
func (h *Handler) handleMessage(ctx context.Context, sess *session, msg ws.Message) error {
	switch msg.Type {
	case ws.TypeCreateGame:
		return h.handleCreateGame(ctx, sess, msg.Payload)
	case ws.TypeJoinGame:
		return h.handleJoinGame(ctx, sess, msg.Payload)
	case ws.TypeStartGame:
		return h.handleStartGame(ctx, sess, msg.Payload)
	case ws.TypeSubmitRanking:
		return h.handleSubmitRanking(ctx, sess, msg.Payload)
	case ws.TypeSubmitGuess:
		return h.handleSubmitGuess(ctx, sess, msg.Payload)
	case ws.TypeNextReveal:
		return h.handleNextReveal(ctx, sess, msg.Payload)
	default:
		return h.sendError(sess, httperrors.ErrCodeUnknownMessageType, fmt.Sprintf("Unknown message type: %s", msg.Type))
	}
}

func (h *Handler) handleCreateGame(ctx context.Context, sess *session, payload json.RawMessage) error {
	var req ws.CreateGamePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return h.sendError(sess, httperrors.ErrCodeInvalidPayload, "Invalid create_game payload")
	}
	if sess.bound() {
		return h.sendError(sess, httperrors.ErrCodeAlreadyInRoom, "Connection is already in a room")
	}

	view, err := h.engine.CreateGame(ctx, req.PlayerName)
	if err != nil {
		return h.sendGameError(sess, err)
	}

	sess.roomCode = view.RoomCode
	sess.playerName = view.Owner
	h.hub.JoinRoom(sess.roomCode, sess.playerName, sess.connID)

	h.broadcastState(view)
	return nil
}

func (h *Handler) handleJoinGame(ctx context.Context, sess *session, payload json.RawMessage) error {
	var req ws.JoinGamePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return h.sendError(sess, httperrors.ErrCodeInvalidPayload, "Invalid join_game payload")
	}
	if sess.bound() {
		return h.sendError(sess, httperrors.ErrCodeAlreadyInRoom, "Connection is already in a room")
	}

	view, err := h.engine.JoinGame(ctx, req.RoomCode, req.PlayerName)
	if err != nil {
		return h.sendGameError(sess, err)
	}

	sess.roomCode = view.RoomCode
	sess.playerName = view.Players[len(view.Players)-1]
	h.hub.JoinRoom(sess.roomCode, sess.playerName, sess.connID)

	h.broadcastState(view)
	return nil
}

func (h *Handler) handleStartGame(ctx context.Context, sess *session, payload json.RawMessage) error {
	var req ws.StartGamePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return h.sendError(sess, httperrors.ErrCodeInvalidPayload, "Invalid start_game payload")
	}
	if !h.checkRoom(sess, req.RoomCode) {
		return nil
	}

	view, err := h.engine.StartGame(ctx, sess.roomCode, sess.playerName)
	if err != nil {
		return h.sendGameError(sess, err)
	}

	h.broadcastState(view)
	return nil
}

func (h *Handler) handleSubmitRanking(ctx context.Context, sess *session, payload json.RawMessage) error {
	var req ws.SubmitRankingPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return h.sendError(sess, httperrors.ErrCodeInvalidPayload, "Invalid submit_ranking payload")
	}
	if !h.checkRoom(sess, req.RoomCode) {
		return nil
	}

	view, err := h.engine.SubmitRanking(ctx, sess.roomCode, sess.playerName, req.Ranking)
	if err != nil {
		return h.sendGameError(sess, err)
	}

	ack := ws.Message{Type: ws.TypeRankingSubmitted}
	ack.Payload, _ = json.Marshal(ws.RankingSubmittedPayload{Accepted: true})
	if err := h.hub.SendToPlayer(sess.roomCode, sess.playerName, ack); err != nil {
		h.logger.Warn().Err(err).Str("player", sess.playerName).Msg("ranking ack failed")
	}

	h.broadcastState(view)
	return nil
}

func (h *Handler) handleSubmitGuess(ctx context.Context, sess *session, payload json.RawMessage) error {
	var req ws.SubmitGuessPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return h.sendError(sess, httperrors.ErrCodeInvalidPayload, "Invalid submit_guess payload")
	}
	if !h.checkRoom(sess, req.RoomCode) {
		return nil
	}

	view, err := h.engine.SubmitGuess(ctx, sess.roomCode, sess.playerName, req.Position)
	if err != nil {
		return h.sendGameError(sess, err)
	}

	h.broadcastState(view)
	return nil
}

func (h *Handler) handleNextReveal(ctx context.Context, sess *session, payload json.RawMessage) error {
	var req ws.NextRevealPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return h.sendError(sess, httperrors.ErrCodeInvalidPayload, "Invalid next_reveal payload")
	}
	if !h.checkRoom(sess, req.RoomCode) {
		return nil
	}

	view, err := h.engine.NextReveal(ctx, sess.roomCode, sess.playerName)
	if err != nil {
		return h.sendGameError(sess, err)
	}

	h.broadcastState(view)
	return nil
}

// checkRoom verifies the addressed room is the one this connection joined.
func (h *Handler) checkRoom(sess *session, roomCode string) bool {
	if !sess.bound() || sess.roomCode != roomCode {
		_ = h.sendError(sess, httperrors.ErrCodeNotInRoom, "Connection is not in that room")
		return false
	}
	return true
}

// broadcastState sends each connected room member their own view of the new
// state. Membership comes from the hub so players whose sockets are already
// gone are skipped.
func (h *Handler) broadcastState(view *StateView) {
	for _, name := range h.hub.RoomMembers(view.RoomCode) {
		msg := ws.Message{Type: ws.TypeGameState}
		msg.Payload, _ = json.Marshal(view.ForPlayer(name))
		if err := h.hub.SendToPlayer(view.RoomCode, name, msg); err != nil {
			h.logger.Warn().Err(err).
				Str("room_code", view.RoomCode).
				Str("player", name).
				Msg("state emission failed")
		}
	}
}

func (h *Handler) sendGameError(sess *session, err error) error {
	if gameErr, ok := err.(*Error); ok {
		return h.sendError(sess, gameErr.Code, gameErr.Message)
	}
	h.logger.Error().Err(err).Msg("unexpected engine error")
	return h.sendError(sess, httperrors.ErrCodeInternalError, "Internal error")
}

func (h *Handler) sendError(sess *session, code, message string) error {
	errPayload := ws.ErrorPayload{
		Code:    code,
		Message: message,
	}
	msg := ws.Message{Type: ws.TypeError}
	msg.Payload, _ = json.Marshal(errPayload)
	return h.hub.SendToConn(sess.connID, msg)
}
