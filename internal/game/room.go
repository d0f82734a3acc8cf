package game

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rankparty/rankparty/internal/metrics"
)

// Phase lifecycle states for a room.
const (
	PhaseWaiting  = "waiting"
	PhaseRanking  = "ranking"
	PhaseGuessing = "guessing"
	PhaseReveal   = "reveal"
)

// Room is one isolated game instance. All fields are guarded by mu; only the
// engine mutates them, and every mutation for a room happens under its lock so
// interleaved submissions cannot double-trigger phase transitions.
type Room struct {
	mu sync.Mutex

	Code    string
	Players []string
	Owner   string
	Points  map[string]int
	Phase   string

	QuestionAssignments map[string]string
	Rankers             []string
	Rankings            map[string][]string
	RevealIndex         int

	CurrentRanker      string
	CurrentTarget      string
	CurrentQuestion    string
	ActualPosition     int
	CurrentGuesses     map[string]int
	CurrentFullRanking []string

	NoMoreQuestions bool
	CreatedAt       time.Time

	rng *rand.Rand
}

// Registry is the process-wide room index and owns room lifecycle.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[string]*Room
	rng    *rand.Rand
	logger zerolog.Logger

	// onDestroy lets the question supply forget a destroyed room's used-set.
	onDestroy func(roomCode string)
}

// RegistryOptions configures the registry.
type RegistryOptions struct {
	Rand      *rand.Rand // optional, for deterministic tests
	OnDestroy func(roomCode string)
}

// NewRegistry creates an empty room registry.
func NewRegistry(opts RegistryOptions, logger zerolog.Logger) *Registry {
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Registry{
		rooms:     make(map[string]*Room),
		rng:       rng,
		logger:    logger.With().Str("component", "room_registry").Logger(),
		onDestroy: opts.OnDestroy,
	}
}

// CreateRoom generates a unique 6-digit code and initializes a waiting room
// with the creator as owner and sole player.
func (r *Registry) CreateRoom(ownerName string) *Room {
	r.mu.Lock()
	defer r.mu.Unlock()

	code := r.generateRoomCodeLocked()
	room := &Room{
		Code:                code,
		Players:             []string{ownerName},
		Owner:               ownerName,
		Points:              map[string]int{ownerName: 0},
		Phase:               PhaseWaiting,
		QuestionAssignments: make(map[string]string),
		Rankings:            make(map[string][]string),
		CurrentGuesses:      make(map[string]int),
		CreatedAt:           time.Now(),
		rng:                 rand.New(rand.NewSource(r.rng.Int63())),
	}
	r.rooms[code] = room

	metrics.RoomsCreated.Inc()
	metrics.RoomsActive.Set(float64(len(r.rooms)))
	r.logger.Info().
		Str("room_code", code).
		Str("owner", ownerName).
		Msg("room created")

	return room
}

// Get retrieves a room by code.
func (r *Registry) Get(code string) (*Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[code]
	return room, ok
}

// Destroy removes a room and notifies the destroy hook.
func (r *Registry) Destroy(code string) {
	r.mu.Lock()
	_, existed := r.rooms[code]
	delete(r.rooms, code)
	metrics.RoomsActive.Set(float64(len(r.rooms)))
	r.mu.Unlock()

	if existed {
		if r.onDestroy != nil {
			r.onDestroy(code)
		}
		r.logger.Info().Str("room_code", code).Msg("room destroyed")
	}
}

// Len reports how many rooms are alive.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// generateRoomCodeLocked creates a unique 6-digit numeric code.
func (r *Registry) generateRoomCodeLocked() string {
	for {
		num := 100000 + r.rng.Intn(900000)
		code := fmt.Sprintf("%06d", num)
		if _, exists := r.rooms[code]; !exists {
			return code
		}
	}
}
