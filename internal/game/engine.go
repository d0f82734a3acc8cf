package game

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rankparty/rankparty/internal/question"
)

// QuestionSource is the slice of the question supply the engine depends on.
type QuestionSource interface {
	Acquire(ctx context.Context, roomCode string, count int) ([]string, error)
}

// Engine drives the per-room state machine: waiting -> ranking -> guessing ->
// reveal -> (next guessing | next round). Every public method serializes on
// the room's lock, so concurrent submissions cannot race the phase-completion
// size checks.
type Engine struct {
	registry *Registry
	supply   QuestionSource
	logger   zerolog.Logger
}

// NewEngine creates a game engine over the given registry and supply.
func NewEngine(registry *Registry, supply QuestionSource, logger zerolog.Logger) *Engine {
	return &Engine{
		registry: registry,
		supply:   supply,
		logger:   logger.With().Str("component", "game_engine").Logger(),
	}
}

// CreateGame creates a fresh waiting room owned by the named player.
func (e *Engine) CreateGame(ctx context.Context, playerName string) (*StateView, error) {
	playerName = strings.TrimSpace(playerName)
	if playerName == "" {
		return nil, ErrInvalidName
	}

	room := e.registry.CreateRoom(playerName)

	room.mu.Lock()
	defer room.mu.Unlock()
	return snapshotLocked(room), nil
}

// JoinGame adds a player to a waiting room. Names are unique per room; joining
// a room mid-game is a wrong-phase error so a running round's bookkeeping is
// never disturbed.
func (e *Engine) JoinGame(ctx context.Context, roomCode, playerName string) (*StateView, error) {
	playerName = strings.TrimSpace(playerName)
	if playerName == "" {
		return nil, ErrInvalidName
	}

	room, ok := e.registry.Get(roomCode)
	if !ok {
		return nil, ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	for _, p := range room.Players {
		if p == playerName {
			return nil, ErrDuplicateName
		}
	}
	if room.Phase != PhaseWaiting {
		return nil, ErrWrongPhase
	}

	room.Players = append(room.Players, playerName)
	room.Points[playerName] = 0

	e.logger.Info().
		Str("room_code", roomCode).
		Str("player", playerName).
		Int("player_count", len(room.Players)).
		Msg("player joined")

	return snapshotLocked(room), nil
}

// StartGame begins the first round. Owner-only, waiting phase only.
func (e *Engine) StartGame(ctx context.Context, roomCode, playerName string) (*StateView, error) {
	room, ok := e.registry.Get(roomCode)
	if !ok {
		return nil, ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if playerName != room.Owner {
		return nil, ErrNotOwner
	}
	if room.Phase != PhaseWaiting {
		return nil, ErrWrongPhase
	}

	e.startRoundLocked(ctx, room)
	return snapshotLocked(room), nil
}

// SubmitRanking records one player's full ordering of all players for their
// assigned question. When the last ranking lands the room moves to guessing.
func (e *Engine) SubmitRanking(ctx context.Context, roomCode, playerName string, ranking []string) (*StateView, error) {
	room, ok := e.registry.Get(roomCode)
	if !ok {
		return nil, ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if indexOf(room.Players, playerName) < 0 {
		return nil, ErrNotInRoom
	}
	if room.Phase != PhaseRanking {
		return nil, ErrWrongPhase
	}
	if _, done := room.Rankings[playerName]; done {
		return nil, ErrAlreadySubmitted
	}
	if !isPermutation(ranking, room.Players) {
		return nil, ErrMalformedRanking
	}

	room.Rankings[playerName] = append([]string(nil), ranking...)

	if len(room.Rankings) == len(room.Players) {
		e.beginGuessingLocked(room)
	}

	return snapshotLocked(room), nil
}

// SubmitGuess records one non-ranker player's guess at the target's position.
// When every eligible guesser has answered the reveal is scored.
func (e *Engine) SubmitGuess(ctx context.Context, roomCode, playerName string, position int) (*StateView, error) {
	room, ok := e.registry.Get(roomCode)
	if !ok {
		return nil, ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if indexOf(room.Players, playerName) < 0 {
		return nil, ErrNotInRoom
	}
	if room.Phase != PhaseGuessing {
		return nil, ErrWrongPhase
	}
	if playerName == room.CurrentRanker {
		return nil, ErrRankerCannotGuess
	}
	if position < 1 || position > len(room.Players) {
		return nil, ErrGuessOutOfRange
	}
	if _, done := room.CurrentGuesses[playerName]; done {
		return nil, ErrAlreadySubmitted
	}

	room.CurrentGuesses[playerName] = position

	if len(room.CurrentGuesses) == len(room.Players)-1 {
		e.scoreRevealLocked(room)
	}

	return snapshotLocked(room), nil
}

// NextReveal advances past a scored reveal. Owner-only. Either the next ranker
// comes up for guessing, or a fresh round begins once every ranker has been
// probed.
func (e *Engine) NextReveal(ctx context.Context, roomCode, playerName string) (*StateView, error) {
	room, ok := e.registry.Get(roomCode)
	if !ok {
		return nil, ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if playerName != room.Owner {
		return nil, ErrNotOwner
	}
	if room.Phase != PhaseReveal {
		return nil, ErrWrongPhase
	}

	room.RevealIndex++
	if room.RevealIndex < len(room.Rankers) {
		e.beginGuessingLocked(room)
	} else if !e.startRoundLocked(ctx, room) {
		// Round could not advance; stay put so a later attempt can retry.
		room.RevealIndex--
	}

	return snapshotLocked(room), nil
}

// Disconnect handles a player dropping out of a room. It is serialized with
// all other room mutations. The removed player's traces are scrubbed from
// every round structure and the active reveal is repaired or re-derived when
// the leaver was its ranker or target.
func (e *Engine) Disconnect(ctx context.Context, roomCode, playerName string) (*StateView, error) {
	room, ok := e.registry.Get(roomCode)
	if !ok {
		// Room already gone; nothing to do for this callback.
		e.logger.Warn().Str("room_code", roomCode).Msg("disconnect for unknown room")
		return nil, nil
	}

	room.mu.Lock()

	if indexOf(room.Players, playerName) < 0 {
		room.mu.Unlock()
		e.logger.Warn().
			Str("room_code", roomCode).
			Str("player", playerName).
			Msg("disconnect for unknown player")
		return nil, nil
	}

	wasRanker := room.Phase == PhaseGuessing && room.CurrentRanker == playerName
	wasTarget := room.Phase == PhaseGuessing && room.CurrentTarget == playerName
	wasRevealedRanker := room.Phase == PhaseReveal && room.CurrentRanker == playerName
	removePlayerLocked(room, playerName)

	// A scored ranker's departure shifts the list under the reveal cursor;
	// step back so advancing lands on their successor, not past it.
	if wasRevealedRanker {
		room.RevealIndex--
	}

	if len(room.Players) == 0 {
		room.mu.Unlock()
		e.registry.Destroy(roomCode)
		return nil, nil
	}

	if room.Owner == playerName {
		room.Owner = room.Players[0]
	}

	if len(room.Players) <= 1 {
		resetRoundLocked(room)
		room.Phase = PhaseWaiting
	} else {
		switch room.Phase {
		case PhaseRanking:
			// The leaver's missing ranking may have been the last one due.
			if len(room.Rankings) == len(room.Players) {
				e.beginGuessingLocked(room)
			}
		case PhaseGuessing:
			e.repairRevealLocked(ctx, room, wasRanker, wasTarget)
		}
	}

	view := snapshotLocked(room)
	room.mu.Unlock()

	e.logger.Info().
		Str("room_code", roomCode).
		Str("player", playerName).
		Int("player_count", len(room.Players)).
		Msg("player disconnected")

	return view, nil
}

// startRoundLocked assigns one unique question per player and resets the
// per-round structures. On supply exhaustion the depletion flag is raised and
// the room's phase is left untouched.
func (e *Engine) startRoundLocked(ctx context.Context, room *Room) bool {
	qs, err := e.supply.Acquire(ctx, room.Code, len(room.Players))
	if err != nil {
		if !errors.Is(err, question.ErrInsufficientSupply) {
			e.logger.Error().Err(err).Str("room_code", room.Code).Msg("question acquisition failed")
		}
		room.NoMoreQuestions = true
		return false
	}

	room.QuestionAssignments = make(map[string]string, len(room.Players))
	for i, p := range room.Players {
		room.QuestionAssignments[p] = qs[i]
	}

	room.Rankers = permute(room.rng, room.Players)
	room.RevealIndex = 0
	room.Rankings = make(map[string][]string)
	room.CurrentRanker = ""
	room.CurrentTarget = ""
	room.CurrentQuestion = ""
	room.ActualPosition = 0
	room.CurrentGuesses = make(map[string]int)
	room.CurrentFullRanking = nil
	room.NoMoreQuestions = false
	room.Phase = PhaseRanking
	return true
}

// beginGuessingLocked opens the reveal for rankers[revealIndex]: a target is
// drawn uniformly from all players (the ranker included) and the target's true
// 1-based position inside the ranker's hidden ranking is fixed.
func (e *Engine) beginGuessingLocked(room *Room) {
	ranker := room.Rankers[room.RevealIndex]
	target := room.Players[room.rng.Intn(len(room.Players))]

	room.CurrentRanker = ranker
	room.CurrentTarget = target
	room.CurrentQuestion = room.QuestionAssignments[ranker]
	room.ActualPosition = indexOf(room.Rankings[ranker], target) + 1
	room.CurrentGuesses = make(map[string]int)
	room.CurrentFullRanking = nil
	room.Phase = PhaseGuessing

	// A reveal with no eligible guessers (solo play) completes vacuously.
	if len(room.CurrentGuesses) == len(room.Players)-1 {
		e.scoreRevealLocked(room)
	}
}

// scoreRevealLocked applies the scoring rule exactly once per reveal, exposes
// the ranker's full ranking and re-sorts the leaderboard.
func (e *Engine) scoreRevealLocked(room *Room) {
	correct, rankerBonus := scoreReveal(room.CurrentGuesses, room.ActualPosition)
	for _, guesser := range correct {
		room.Points[guesser]++
	}
	// The ranker may have disconnected between guessing and scoring; a
	// departed player must never regain a points entry.
	if indexOf(room.Players, room.CurrentRanker) >= 0 {
		room.Points[room.CurrentRanker] += rankerBonus
	}

	room.CurrentFullRanking = append([]string(nil), room.Rankings[room.CurrentRanker]...)

	// Descending by points, stable so ties keep seating order.
	sort.SliceStable(room.Players, func(i, j int) bool {
		return room.Points[room.Players[i]] > room.Points[room.Players[j]]
	})

	room.Phase = PhaseReveal
}

// scoreReveal is the pure scoring rule: every guesser matching the actual
// position is worth one point, and the ranker earns one point per correct
// guesser, capped at three.
func scoreReveal(guesses map[string]int, actualPosition int) (correct []string, rankerBonus int) {
	for guesser, pos := range guesses {
		if pos == actualPosition {
			correct = append(correct, guesser)
		}
	}
	sort.Strings(correct)
	rankerBonus = len(correct)
	if rankerBonus > 3 {
		rankerBonus = 3
	}
	return correct, rankerBonus
}

// repairRevealLocked restores a consistent guessing state after a mid-reveal
// disconnect.
func (e *Engine) repairRevealLocked(ctx context.Context, room *Room, wasRanker, wasTarget bool) {
	if wasRanker {
		// The active ranking is gone; skip to the next ranker. Removal already
		// shifted rankers left, so revealIndex points at the successor.
		if room.RevealIndex < len(room.Rankers) {
			e.beginGuessingLocked(room)
		} else if !e.startRoundLocked(ctx, room) {
			// Supply dried up mid-repair. Park the room on a cleared reveal so
			// no guess can score against the departed ranker, and the owner
			// can retry advancing once the supply recovers.
			room.RevealIndex = len(room.Rankers) - 1
			room.CurrentRanker = ""
			room.CurrentTarget = ""
			room.CurrentQuestion = ""
			room.ActualPosition = 0
			room.CurrentGuesses = make(map[string]int)
			room.CurrentFullRanking = nil
			room.Phase = PhaseReveal
		}
		return
	}

	if wasTarget {
		// Draw a fresh target and restart the reveal's guesses.
		room.CurrentTarget = room.Players[room.rng.Intn(len(room.Players))]
		room.CurrentGuesses = make(map[string]int)
	}

	// The leaver was scrubbed from the ranker's list, so the target's true
	// position may have shifted.
	room.ActualPosition = indexOf(room.Rankings[room.CurrentRanker], room.CurrentTarget) + 1

	// The leaver's missing guess may have been the last one due.
	if len(room.CurrentGuesses) == len(room.Players)-1 {
		e.scoreRevealLocked(room)
	}
}

// removePlayerLocked purges a player from every room structure.
func removePlayerLocked(room *Room, name string) {
	if i := indexOf(room.Players, name); i >= 0 {
		room.Players = append(room.Players[:i], room.Players[i+1:]...)
	}
	delete(room.Points, name)
	delete(room.QuestionAssignments, name)
	delete(room.Rankings, name)
	delete(room.CurrentGuesses, name)

	for ranker, list := range room.Rankings {
		room.Rankings[ranker] = removeString(list, name)
	}
	room.CurrentFullRanking = removeString(room.CurrentFullRanking, name)

	if i := indexOf(room.Rankers, name); i >= 0 {
		room.Rankers = append(room.Rankers[:i], room.Rankers[i+1:]...)
		if i < room.RevealIndex {
			room.RevealIndex--
		}
	}
}

// resetRoundLocked clears all per-round state; points survive.
func resetRoundLocked(room *Room) {
	room.QuestionAssignments = make(map[string]string)
	room.Rankers = nil
	room.Rankings = make(map[string][]string)
	room.RevealIndex = 0
	room.CurrentRanker = ""
	room.CurrentTarget = ""
	room.CurrentQuestion = ""
	room.ActualPosition = 0
	room.CurrentGuesses = make(map[string]int)
	room.CurrentFullRanking = nil
}

func permute(rng *rand.Rand, players []string) []string {
	out := append([]string(nil), players...)
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

func indexOf(list []string, name string) int {
	for i, v := range list {
		if v == name {
			return i
		}
	}
	return -1
}

func removeString(list []string, name string) []string {
	if i := indexOf(list, name); i >= 0 {
		return append(list[:i], list[i+1:]...)
	}
	return list
}

// isPermutation verifies the ranking covers every player exactly once.
func isPermutation(ranking, players []string) bool {
	if len(ranking) != len(players) {
		return false
	}
	seen := make(map[string]struct{}, len(ranking))
	for _, name := range ranking {
		if indexOf(players, name) < 0 {
			return false
		}
		if _, dup := seen[name]; dup {
			return false
		}
		seen[name] = struct{}{}
	}
	return true
}
