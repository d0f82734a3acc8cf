package ws

import "encoding/json"

// MessageType constants for the WebSocket protocol.
const (
	// Client -> Server
	TypeCreateGame    = "create_game"
	TypeJoinGame      = "join_game"
	TypeStartGame     = "start_game"
	TypeSubmitRanking = "submit_ranking"
	TypeSubmitGuess   = "submit_guess"
	TypeNextReveal    = "next_reveal"

	// Server -> Client
	TypeGameState        = "game_state"
	TypeRankingSubmitted = "ranking_submitted"
	TypeError            = "error"
	TypePing             = "ping"
	TypePong             = "pong"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	RequestID string          `json:"request_id,omitempty"`
}

// Client Messages (incoming)

type CreateGamePayload struct {
	PlayerName string `json:"player_name"`
}

type JoinGamePayload struct {
	RoomCode   string `json:"room_code"`
	PlayerName string `json:"player_name"`
}

type StartGamePayload struct {
	RoomCode string `json:"room_code"`
}

type SubmitRankingPayload struct {
	RoomCode string   `json:"room_code"`
	Ranking  []string `json:"ranking"` // most-fitting first, every player exactly once
}

type SubmitGuessPayload struct {
	RoomCode string `json:"room_code"`
	Position int    `json:"position"` // 1-based
}

type NextRevealPayload struct {
	RoomCode string `json:"room_code"`
}

// Server Messages (outgoing)

// GameStatePayload is the per-recipient room snapshot. MyQuestion is only ever
// the recipient's own assigned question; hidden rankings are represented by
// submission flags, never their contents.
type GameStatePayload struct {
	RoomCode           string         `json:"room_code"`
	Players            []string       `json:"players"`
	Owner              string         `json:"owner"`
	Points             map[string]int `json:"points"`
	Phase              string         `json:"phase"`
	RevealIndex        int            `json:"reveal_index"`
	CurrentRanker      string         `json:"current_ranker,omitempty"`
	CurrentTarget      string         `json:"current_target,omitempty"`
	CurrentQuestion    string         `json:"current_question,omitempty"`
	CurrentGuesses     map[string]int `json:"current_guesses,omitempty"`
	ActualPosition     int            `json:"actual_position,omitempty"`     // reveal phase only
	CurrentFullRanking []string       `json:"current_full_ranking,omitempty"` // reveal phase only
	RankingsSubmitted  []string       `json:"rankings_submitted"`
	NoMoreQuestions    bool           `json:"no_more_questions"`

	MyQuestion         string `json:"my_question,omitempty"`
	MyRankingSubmitted bool   `json:"my_ranking_submitted"`
	MyGuessSubmitted   bool   `json:"my_guess_submitted"`
}

type RankingSubmittedPayload struct {
	Accepted bool `json:"accepted"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
