// Package metrics exports container command and effect activity as
// Prometheus metrics.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/zuriscript/signalstory-sub000/store"
)

// Config holds metrics extension parameters.
type Config struct {
	// Namespace prefixes every metric name.
	Namespace string `json:"namespace,omitempty" env:"NAMESPACE"`

	// Buckets are the effect duration histogram buckets in seconds.
	Buckets []float64 `json:"buckets,omitempty" env:"BUCKETS"`
}

func DefaultConfig() Config {
	return Config{
		Namespace: "signalstory",
		Buckets:   prometheus.DefBuckets,
	}
}

func (c *Config) Merge(source *Config) {
	if source.Namespace != "" {
		c.Namespace = source.Namespace
	}
	if len(source.Buckets) > 0 {
		c.Buckets = source.Buckets
	}
}

// Extension counts commands and times effects for every container it is
// installed on.
type Extension struct {
	commands *prometheus.CounterVec
	effects  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight *prometheus.GaugeVec

	started map[string]time.Time
	mu      sync.Mutex
}

// New creates the extension and registers its collectors with reg.
func New(cfg Config, reg prometheus.Registerer) (*Extension, error) {
	c := DefaultConfig()
	c.Merge(&cfg)

	e := &Extension{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: c.Namespace,
			Name:      "commands_total",
			Help:      "Committed container commands by label.",
		}, []string{"store", "label"}),
		effects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: c.Namespace,
			Name:      "effects_total",
			Help:      "Settled effect invocations by result.",
		}, []string{"store", "effect", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: c.Namespace,
			Name:      "effect_duration_seconds",
			Help:      "Time from effect start to settle.",
			Buckets:   c.Buckets,
		}, []string{"store", "effect"}),
		inFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: c.Namespace,
			Name:      "effects_in_flight",
			Help:      "Effect invocations started but not yet settled.",
		}, []string{"store"}),
		started: make(map[string]time.Time),
	}

	for _, col := range []prometheus.Collector{e.commands, e.effects, e.duration, e.inFlight} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (e *Extension) AfterCommand(c store.Handle, label string) error {
	e.commands.WithLabelValues(c.Name(), label).Inc()
	return nil
}

func (e *Extension) BeforeEffect(c store.Handle, effect store.Effect, invocationID string) error {
	e.mu.Lock()
	e.started[invocationID] = time.Now()
	e.mu.Unlock()

	e.inFlight.WithLabelValues(c.Name()).Inc()
	return nil
}

func (e *Extension) AfterEffect(c store.Handle, effect store.Effect, outcome store.Outcome, invocationID string) {
	e.mu.Lock()
	start, ok := e.started[invocationID]
	delete(e.started, invocationID)
	e.mu.Unlock()

	result := "success"
	if outcome.Err != nil {
		result = "failure"
	}
	e.effects.WithLabelValues(c.Name(), effect.Name(), result).Inc()
	e.inFlight.WithLabelValues(c.Name()).Dec()
	if ok {
		e.duration.WithLabelValues(c.Name(), effect.Name()).Observe(time.Since(start).Seconds())
	}
}
