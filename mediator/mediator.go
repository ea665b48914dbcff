package mediator

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"weak"

	"github.com/zuriscript/signalstory-sub000/store"
)

// Event names a publication and fixes its payload type. Two Event values
// with the same name address the same handlers.
type Event[P any] struct {
	name string
}

// NewEvent creates an event identity.
func NewEvent[P any](name string) Event[P] {
	return Event[P]{name: name}
}

func (e Event[P]) Name() string {
	return e.name
}

// Message is what a handler receives: the name the publication was made
// under and its payload. A handler registered for several events tells them
// apart by Event.
type Message[P any] struct {
	Event   string
	Payload P
}

// Handler reacts to a publication on behalf of one container.
type Handler[T, P any] func(c *store.Container[T], msg Message[P]) error

type delivery int

const (
	delivered delivery = iota
	dead
)

type registration struct {
	owner     string
	storeName string
	source    string
	deliver   func(event string, payload any) (delivery, error)
}

type publication struct {
	event   string
	payload any
}

// Mediator routes publications to registered container handlers. Safe for
// concurrent use; handlers run without the mediator's lock held, so they may
// publish or register themselves.
type Mediator struct {
	name        string
	replayLimit int
	logger      *slog.Logger
	metrics     *counters

	handlers map[string][]*registration
	records  []publication
	mu       sync.Mutex
}

var defaultMediator = New(DefaultConfig())

// Default returns the process-wide mediator.
func Default() *Mediator {
	return defaultMediator
}

// New creates a mediator. Zero fields in cfg take their defaults.
func New(cfg Config) *Mediator {
	c := DefaultConfig()
	c.Merge(&cfg)

	return &Mediator{
		name:        c.Name,
		replayLimit: c.ReplayLimit,
		logger:      c.Logger,
		metrics:     newCounters(),
		handlers:    make(map[string][]*registration),
	}
}

// RegisterOption adjusts a single registration.
type RegisterOption func(*registration)

// WithSource tags the registration for source-filtered replay. The default
// tag is the container name.
func WithSource(source string) RegisterOption {
	return func(r *registration) { r.source = source }
}

// Register subscribes handler to event on behalf of c. The mediator keeps
// only a weak reference to c. Registering the same container twice is
// allowed and delivers twice.
func Register[T, P any](m *Mediator, event Event[P], c *store.Container[T], handler Handler[T, P], opts ...RegisterOption) error {
	if event.name == "" {
		return ErrInvalidEvent
	}

	ptr := weak.Make(c)
	reg := &registration{
		owner:     c.ID(),
		storeName: c.Name(),
		source:    c.Name(),
		deliver: func(event string, payload any) (delivery, error) {
			target := ptr.Value()
			if target == nil {
				return dead, nil
			}
			var typed P
			if payload != nil {
				p, ok := payload.(P)
				if !ok {
					return delivered, fmt.Errorf("%w: got %T, want %T", ErrPayloadType, payload, typed)
				}
				typed = p
			}
			return delivered, handler(target, Message[P]{Event: event, Payload: typed})
		},
	}
	for _, opt := range opts {
		opt(reg)
	}

	m.mu.Lock()
	m.handlers[event.name] = append(m.handlers[event.name], reg)
	m.mu.Unlock()

	m.metrics.register(1)
	m.logger.Debug(
		"handler registered",
		slog.String("mediator", m.name),
		slog.String("event", event.name),
		slog.String("store", reg.storeName),
		slog.String("source", reg.source),
	)

	return nil
}

// Unregister removes c's registrations from the named events, or from every
// event when none are named. Unknown events and containers are ignored.
func (m *Mediator) Unregister(c store.Handle, events ...string) {
	id := c.ID()

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(events) == 0 {
		events = make([]string, 0, len(m.handlers))
		for name := range m.handlers {
			events = append(events, name)
		}
	}

	removed := 0
	for _, name := range events {
		regs, ok := m.handlers[name]
		if !ok {
			continue
		}
		kept := slices.DeleteFunc(regs, func(r *registration) bool { return r.owner == id })
		removed += len(regs) - len(kept)
		m.setHandlers(name, kept)
	}
	m.metrics.register(-removed)
}

// setHandlers stores regs for name, dropping the key when regs is empty.
// Callers hold m.mu.
func (m *Mediator) setHandlers(name string, regs []*registration) {
	if len(regs) == 0 {
		delete(m.handlers, name)
		return
	}
	m.handlers[name] = regs
}

// Publish records payload for replay and delivers it to every live
// registration of event in registration order.
func Publish[P any](m *Mediator, event Event[P], payload P) error {
	return m.publish(event.name, payload)
}

func (m *Mediator) publish(name string, payload any) error {
	if name == "" {
		return ErrInvalidEvent
	}

	m.mu.Lock()
	m.records = append(m.records, publication{event: name, payload: payload})
	if m.replayLimit > 0 && len(m.records) > m.replayLimit {
		drop := len(m.records) - m.replayLimit
		clear(m.records[:drop])
		m.records = m.records[drop:]
	}
	regs := slices.Clone(m.handlers[name])
	m.mu.Unlock()

	m.metrics.record(name, func(em *EventMetrics) { em.Published++ })
	m.logger.Debug(
		"event published",
		slog.String("mediator", m.name),
		slog.String("event", name),
		slog.Int("handlers", len(regs)),
	)

	errs := m.deliver(name, payload, regs)
	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

// Replay re-delivers every recorded publication, in publication order, to
// the current registrations. With sources given, only registrations tagged
// with one of them receive deliveries. Failures from all publications are
// collected into one *AggregateError.
func (m *Mediator) Replay(sources ...string) error {
	m.mu.Lock()
	records := slices.Clone(m.records)
	m.mu.Unlock()

	m.logger.Debug(
		"replaying publications",
		slog.String("mediator", m.name),
		slog.Int("publications", len(records)),
		slog.Any("sources", sources),
	)

	var errs []error
	for _, rec := range records {
		m.mu.Lock()
		regs := slices.Clone(m.handlers[rec.event])
		m.mu.Unlock()

		if len(sources) > 0 {
			regs = slices.DeleteFunc(regs, func(r *registration) bool {
				return !slices.Contains(sources, r.source)
			})
		}
		m.metrics.record(rec.event, func(em *EventMetrics) { em.Replayed++ })
		errs = append(errs, m.deliver(rec.event, rec.payload, regs)...)
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

func (m *Mediator) deliver(name string, payload any, regs []*registration) []error {
	var (
		errs   []error
		pruned []*registration
	)

	for _, reg := range regs {
		state, err := invoke(reg, name, payload)
		if state == dead {
			pruned = append(pruned, reg)
			continue
		}
		failed := err != nil
		m.metrics.record(name, func(em *EventMetrics) {
			em.Delivered++
			if failed {
				em.Failed++
			}
		})
		if err != nil {
			m.logger.Warn(
				"handler failed",
				slog.String("mediator", m.name),
				slog.String("event", name),
				slog.String("store", reg.storeName),
				slog.String("error", err.Error()),
			)
			errs = append(errs, &HandlerError{Event: name, Store: reg.storeName, Source: reg.source, Err: err})
		}
	}

	if len(pruned) > 0 {
		m.prune(name, pruned)
	}
	return errs
}

func invoke(reg *registration, name string, payload any) (state delivery, err error) {
	defer func() {
		if r := recover(); r != nil {
			state, err = delivered, fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return reg.deliver(name, payload)
}

func (m *Mediator) prune(name string, dead []*registration) {
	m.mu.Lock()
	regs := m.handlers[name]
	kept := slices.DeleteFunc(regs, func(r *registration) bool { return slices.Contains(dead, r) })
	removed := len(regs) - len(kept)
	m.setHandlers(name, kept)
	m.mu.Unlock()

	if removed == 0 {
		return
	}
	m.metrics.register(-removed)
	m.metrics.record(name, func(em *EventMetrics) { em.Pruned += int64(removed) })
	m.logger.Debug(
		"pruned collected registrations",
		slog.String("mediator", m.name),
		slog.String("event", name),
		slog.Int("pruned", removed),
	)
}

// Registrations returns the number of registrations for event, including
// ones whose container has been collected but not yet pruned.
func (m *Mediator) Registrations(event string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handlers[event])
}

// Recorded returns the number of publications available to Replay.
func (m *Mediator) Recorded() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// ClearRecords forgets every recorded publication.
func (m *Mediator) ClearRecords() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = nil
}

// Metrics returns the mediator's counters, in total and per event name.
// Replayed deliveries count toward Delivered and Failed.
func (m *Mediator) Metrics() MetricsSnapshot {
	return m.metrics.snapshot()
}
