package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gameplay and question supply counters, exposed via /metrics.
var (
	RoomsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rankparty_rooms_created_total",
		Help: "Number of game rooms created.",
	})

	RoomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rankparty_rooms_active",
		Help: "Number of game rooms currently alive.",
	})

	QuestionsServed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rankparty_questions_served_total",
		Help: "Questions handed to rooms, by source.",
	}, []string{"source"})

	GenerationAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rankparty_generation_attempts_total",
		Help: "Calls made to the generative question source.",
	})

	GenerationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rankparty_generation_failures_total",
		Help: "Generative calls that failed or produced no usable questions.",
	})

	SupplyExhausted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rankparty_supply_exhausted_total",
		Help: "Acquire calls that could not be satisfied from any source.",
	})
)
