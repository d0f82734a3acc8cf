package question

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/rankparty/rankparty/internal/metrics"
)

// ErrInsufficientSupply is returned when no combination of sources can cover a
// room's demand. The caller owns the room-side reaction (depletion flag); the
// supply never mutates room state.
var ErrInsufficientSupply = errors.New("insufficient question supply")

// Generator produces candidate questions from a generative text service.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) ([]string, error)
}

// GenerateRequest carries one generation attempt's parameters. Seed and
// Examples change between retries to steer the service toward fresh output.
type GenerateRequest struct {
	Count    int
	Seed     string
	Examples []string
}

// Supply owns the process-wide question state: the dedup ledger (every string
// ever handed out, never reused for the life of the process), the bounded
// prefetch cache, per-room used-sets, the immutable seed pool, and the fixed
// fallback list. Everything sits behind one mutex since concurrent rooms
// acquire against shared state.
type Supply struct {
	mu       sync.Mutex
	used     map[string]struct{}
	roomUsed map[string]map[string]struct{}
	prefetch []string
	seedPool []string

	gen            Generator
	rng            *rand.Rand
	logger         zerolog.Logger
	prefetchCap    int
	maxAttempts    int
	attemptTimeout time.Duration
}

// SupplyOptions configures the question supply.
type SupplyOptions struct {
	SeedPool       []string
	PrefetchCap    int
	MaxAttempts    int
	AttemptTimeout time.Duration
	Rand           *rand.Rand // optional, for deterministic tests
}

// NewSupply creates the question supply. gen may be nil when no generative
// source is configured; acquisition then goes straight to local pools.
func NewSupply(gen Generator, opts SupplyOptions, logger zerolog.Logger) *Supply {
	if opts.PrefetchCap <= 0 {
		opts.PrefetchCap = 64
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 10
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = 10 * time.Second
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &Supply{
		used:           make(map[string]struct{}),
		roomUsed:       make(map[string]map[string]struct{}),
		seedPool:       opts.SeedPool,
		gen:            gen,
		rng:            rng,
		logger:         logger.With().Str("component", "question_supply").Logger(),
		prefetchCap:    opts.PrefetchCap,
		maxAttempts:    opts.MaxAttempts,
		attemptTimeout: opts.AttemptTimeout,
	}
}

// acquisition stages one Acquire call so nothing is committed to the ledger
// until the full demand is met.
type acquisition struct {
	supply    *Supply
	room      map[string]struct{}
	count     int
	picked    []string
	sources   []string
	pickedSet map[string]struct{}
	prefetch  []string
}

func (a *acquisition) need() int { return a.count - len(a.picked) }

func (a *acquisition) usable(q string) bool {
	if _, ok := a.supply.used[q]; ok {
		return false
	}
	if _, ok := a.room[q]; ok {
		return false
	}
	_, ok := a.pickedSet[q]
	return !ok
}

func (a *acquisition) take(q, source string) {
	a.picked = append(a.picked, q)
	a.sources = append(a.sources, source)
	a.pickedSet[q] = struct{}{}
}

// nearDuplicate reports whether the candidate is too similar to anything ever
// used, anything staged in this batch, or anything waiting in the prefetch
// cache.
func (a *acquisition) nearDuplicate(candidate string) bool {
	for q := range a.supply.used {
		if Similarity(candidate, q) > SimilarityThreshold {
			return true
		}
	}
	for _, q := range a.picked {
		if Similarity(candidate, q) > SimilarityThreshold {
			return true
		}
	}
	for _, q := range a.prefetch {
		if Similarity(candidate, q) > SimilarityThreshold {
			return true
		}
	}
	return false
}

// Acquire returns exactly count unique questions for the room, in priority
// order: prefetch cache, generative source (with retries), seed pool, fixed
// fallback list. On ErrInsufficientSupply nothing is consumed, so a later call
// against a replenished supply can still succeed.
func (s *Supply) Acquire(ctx context.Context, roomCode string, count int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room := s.roomUsed[roomCode]
	if room == nil {
		room = make(map[string]struct{})
		s.roomUsed[roomCode] = room
	}

	a := &acquisition{
		supply:    s,
		room:      room,
		count:     count,
		picked:    make([]string, 0, count),
		sources:   make([]string, 0, count),
		pickedSet: make(map[string]struct{}),
		prefetch:  make([]string, 0, len(s.prefetch)),
	}

	// 1. Drain the prefetch cache. Entries unusable for this room but still
	// globally fresh are kept for future rooms; ledger-dead ones are dropped.
	for _, q := range s.prefetch {
		if a.need() > 0 && a.usable(q) {
			a.take(q, "prefetch")
			continue
		}
		if _, dead := s.used[q]; !dead {
			a.prefetch = append(a.prefetch, q)
		}
	}

	// 2. Generative source with local retry. Failures never surface from
	// here; falling short just moves on to the local pools.
	if a.need() > 0 && s.gen != nil {
		s.generate(ctx, a)
	}

	// 3. Seed pool, then fixed fallback list.
	for _, q := range s.seedPool {
		if a.need() == 0 {
			break
		}
		if a.usable(q) {
			a.take(q, "seed")
		}
	}
	for _, q := range fallbackQuestions {
		if a.need() == 0 {
			break
		}
		if a.usable(q) {
			a.take(q, "fallback")
		}
	}

	if a.need() > 0 {
		metrics.SupplyExhausted.Inc()
		s.logger.Warn().
			Str("room", roomCode).
			Int("wanted", count).
			Int("got", len(a.picked)).
			Msg("question supply exhausted")
		return nil, ErrInsufficientSupply
	}

	// Commit: only a fully satisfied acquire consumes ledger entries.
	for _, q := range a.picked {
		s.used[q] = struct{}{}
		room[q] = struct{}{}
	}
	s.prefetch = a.prefetch
	for _, src := range a.sources {
		metrics.QuestionsServed.WithLabelValues(src).Inc()
	}

	return a.picked, nil
}

// ForgetRoom discards a destroyed room's used-set. The global ledger is
// intentionally untouched: used questions stay burned for the process lifetime.
func (s *Supply) ForgetRoom(roomCode string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.roomUsed, roomCode)
}

// PrefetchLen reports the current prefetch cache size.
func (s *Supply) PrefetchLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prefetch)
}

// generate runs the bounded retry loop against the generative source. Accepted
// candidates fill the current pick first; validated surplus lands in the
// prefetch cache (up to its cap) for future rooms. Called with s.mu held.
func (s *Supply) generate(ctx context.Context, a *acquisition) {
	backoff := retry.WithMaxRetries(uint64(s.maxAttempts-1), retry.NewConstant(200*time.Millisecond))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		metrics.GenerationAttempts.Inc()
		attemptCtx, cancel := context.WithTimeout(ctx, s.attemptTimeout)
		defer cancel()

		req := GenerateRequest{
			Count:    a.need(),
			Seed:     uuid.NewString(),
			Examples: s.sampleExamples(4),
		}

		candidates, err := s.gen.Generate(attemptCtx, req)
		if err != nil {
			metrics.GenerationFailures.Inc()
			s.logger.Warn().Err(err).Msg("generation attempt failed")
			return retry.RetryableError(err)
		}

		for _, c := range candidates {
			c = strings.TrimSpace(c)
			if !validFormat(c) {
				continue
			}
			if !a.usable(c) {
				continue
			}
			if a.nearDuplicate(c) {
				continue
			}
			if a.need() > 0 {
				a.take(c, "generated")
			} else if len(a.prefetch) < s.prefetchCap {
				a.prefetch = append(a.prefetch, c)
			}
		}

		if a.need() > 0 {
			metrics.GenerationFailures.Inc()
			shortfall := fmt.Errorf("too few candidates survived filtering, still need %d", a.need())
			s.logger.Warn().Err(shortfall).Msg("generation attempt fell short")
			return retry.RetryableError(shortfall)
		}
		return nil
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("generation retries exhausted; falling back to local pools")
	}
}

// sampleExamples returns a shuffled few-shot sample drawn from the local
// pools, reshuffled per attempt to vary the prompt.
func (s *Supply) sampleExamples(n int) []string {
	pool := s.seedPool
	if len(pool) == 0 {
		pool = fallbackQuestions
	}
	idx := s.rng.Perm(len(pool))
	if n > len(idx) {
		n = len(idx)
	}
	out := make([]string, 0, n)
	for _, i := range idx[:n] {
		out = append(out, pool[i])
	}
	return out
}

// validFormat enforces the affirmative "who is most likely ..." phrasing.
func validFormat(q string) bool {
	if q == "" {
		return false
	}
	lower := strings.ToLower(q)
	return strings.HasPrefix(lower, "who") && strings.Contains(lower, "most likely")
}
