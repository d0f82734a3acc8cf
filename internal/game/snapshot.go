package game

import (
	"sort"

	"github.com/rankparty/rankparty/pkg/http/ws"
)

// StateView is a consistent copy of a room's emit-safe state, taken under the
// room lock. The transport turns it into per-recipient payloads without
// touching the live room again.
type StateView struct {
	RoomCode           string
	Players            []string
	Owner              string
	Points             map[string]int
	Phase              string
	RevealIndex        int
	CurrentRanker      string
	CurrentTarget      string
	CurrentQuestion    string
	CurrentGuesses     map[string]int
	ActualPosition     int
	CurrentFullRanking []string
	RankingsSubmitted  []string
	NoMoreQuestions    bool

	questions      map[string]string
	guessSubmitted map[string]bool
}

// snapshotLocked copies the room state with the privacy rules applied: hidden
// rankings are reduced to submitted flags, and the true position plus the full
// ranking only appear once the reveal has been scored.
func snapshotLocked(room *Room) *StateView {
	// A scored ranker's departure can leave the reveal cursor at -1 until the
	// owner advances; never emit the sentinel.
	revealIndex := room.RevealIndex
	if revealIndex < 0 {
		revealIndex = 0
	}

	view := &StateView{
		RoomCode:        room.Code,
		Players:         append([]string(nil), room.Players...),
		Owner:           room.Owner,
		Points:          make(map[string]int, len(room.Points)),
		Phase:           room.Phase,
		RevealIndex:     revealIndex,
		CurrentRanker:   room.CurrentRanker,
		CurrentTarget:   room.CurrentTarget,
		CurrentQuestion: room.CurrentQuestion,
		CurrentGuesses:  make(map[string]int, len(room.CurrentGuesses)),
		NoMoreQuestions: room.NoMoreQuestions,
		questions:       make(map[string]string, len(room.QuestionAssignments)),
		guessSubmitted:  make(map[string]bool, len(room.CurrentGuesses)),
	}

	for name, pts := range room.Points {
		view.Points[name] = pts
	}
	for name, guess := range room.CurrentGuesses {
		view.CurrentGuesses[name] = guess
		view.guessSubmitted[name] = true
	}
	for name, q := range room.QuestionAssignments {
		view.questions[name] = q
	}
	for name := range room.Rankings {
		view.RankingsSubmitted = append(view.RankingsSubmitted, name)
	}
	sort.Strings(view.RankingsSubmitted)

	if room.Phase == PhaseReveal {
		view.ActualPosition = room.ActualPosition
		view.CurrentFullRanking = append([]string(nil), room.CurrentFullRanking...)
	}

	return view
}

// ForPlayer renders the snapshot for one recipient: their own question and
// submission flags, never anyone else's.
func (v *StateView) ForPlayer(name string) ws.GameStatePayload {
	submittedRanking := false
	for _, n := range v.RankingsSubmitted {
		if n == name {
			submittedRanking = true
			break
		}
	}

	return ws.GameStatePayload{
		RoomCode:           v.RoomCode,
		Players:            v.Players,
		Owner:              v.Owner,
		Points:             v.Points,
		Phase:              v.Phase,
		RevealIndex:        v.RevealIndex,
		CurrentRanker:      v.CurrentRanker,
		CurrentTarget:      v.CurrentTarget,
		CurrentQuestion:    v.CurrentQuestion,
		CurrentGuesses:     v.CurrentGuesses,
		ActualPosition:     v.ActualPosition,
		CurrentFullRanking: v.CurrentFullRanking,
		RankingsSubmitted:  v.RankingsSubmitted,
		NoMoreQuestions:    v.NoMoreQuestions,
		MyQuestion:         v.questions[name],
		MyRankingSubmitted: submittedRanking,
		MyGuessSubmitted:   v.guessSubmitted[name],
	}
}
