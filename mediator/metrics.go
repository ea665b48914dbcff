package mediator

import "sync"

// EventMetrics counts the traffic of one event name.
type EventMetrics struct {
	Published int64
	Replayed  int64
	Delivered int64
	Failed    int64
	Pruned    int64
}

// MetricsSnapshot is a point-in-time copy of a mediator's counters. The
// totals are sums over Events.
type MetricsSnapshot struct {
	Registrations int64
	Published     int64
	Replayed      int64
	Delivered     int64
	Failed        int64
	Pruned        int64
	Events        map[string]EventMetrics
}

// Event returns the counters of one event name, zero when it has seen no
// traffic.
func (s MetricsSnapshot) Event(name string) EventMetrics {
	return s.Events[name]
}

// counters has its own lock so that handlers running outside the
// mediator's lock never wait on it.
type counters struct {
	mu            sync.Mutex
	registrations int64
	events        map[string]*EventMetrics
}

func newCounters() *counters {
	return &counters{events: make(map[string]*EventMetrics)}
}

func (c *counters) register(delta int) {
	c.mu.Lock()
	c.registrations += int64(delta)
	c.mu.Unlock()
}

func (c *counters) record(event string, fn func(*EventMetrics)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	em, ok := c.events[event]
	if !ok {
		em = &EventMetrics{}
		c.events[event] = em
	}
	fn(em)
}

func (c *counters) snapshot() MetricsSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := MetricsSnapshot{
		Registrations: c.registrations,
		Events:        make(map[string]EventMetrics, len(c.events)),
	}
	for name, em := range c.events {
		s.Events[name] = *em
		s.Published += em.Published
		s.Replayed += em.Replayed
		s.Delivered += em.Delivered
		s.Failed += em.Failed
		s.Pruned += em.Pruned
	}
	return s
}
