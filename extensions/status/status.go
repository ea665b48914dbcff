// Package status tracks per-container effect activity: which invocations
// are in flight, whether the state changed since it was last marked clean,
// and the most recent effect failure.
package status

import (
	"slices"
	"sync"

	"github.com/zuriscript/signalstory-sub000/store"
)

type entry struct {
	pending  map[string]string // invocation id -> effect name
	modified bool
	lastErr  error
}

// Extension records effect status for every container it is installed on.
// In-flight effects are keyed by invocation id, so overlapping runs of the
// same effect are counted separately.
type Extension struct {
	entries map[string]*entry
	mu      sync.RWMutex
}

// New creates a status extension.
func New() *Extension {
	return &Extension{entries: make(map[string]*entry)}
}

// entry returns c's record. Callers hold e.mu for writing.
func (e *Extension) entry(c store.Handle) *entry {
	en, ok := e.entries[c.ID()]
	if !ok {
		en = &entry{pending: make(map[string]string)}
		e.entries[c.ID()] = en
	}
	return en
}

// OnInit starts c's record. The record is dropped once c is garbage
// collected.
func (e *Extension) OnInit(c store.Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.entry(c)
	c.OnCollect(e.forget)
	return nil
}

func (e *Extension) forget(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.entries, id)
}

// Tracked returns the number of containers with a live record.
func (e *Extension) Tracked() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.entries)
}

// AfterCommand marks c modified. Loading saved state does not count as a
// modification.
func (e *Extension) AfterCommand(c store.Handle, label string) error {
	if label == store.LabelLoad {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.entry(c).modified = true
	return nil
}

func (e *Extension) BeforeEffect(c store.Handle, effect store.Effect, invocationID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.entry(c).pending[invocationID] = effect.Name()
	return nil
}

func (e *Extension) AfterEffect(c store.Handle, effect store.Effect, outcome store.Outcome, invocationID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	en := e.entry(c)
	delete(en.pending, invocationID)
	if outcome.Err != nil {
		en.lastErr = outcome.Err
	}
}

// IsLoading reports whether any effect is in flight on c. With effects
// given, only invocations of those effects count.
func (e *Extension) IsLoading(c store.Handle, effects ...store.Effect) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	en, ok := e.entries[c.ID()]
	if !ok {
		return false
	}
	if len(effects) == 0 {
		return len(en.pending) > 0
	}
	for _, name := range en.pending {
		for _, eff := range effects {
			if eff.Name() == name {
				return true
			}
		}
	}
	return false
}

// Pending returns the invocation ids in flight on c, sorted.
func (e *Extension) Pending(c store.Handle) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	en, ok := e.entries[c.ID()]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(en.pending))
	for id := range en.pending {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// IsModified reports whether c was changed since it was created or last
// passed to MarkUnmodified.
func (e *Extension) IsModified(c store.Handle) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	en, ok := e.entries[c.ID()]
	return ok && en.modified
}

func (e *Extension) MarkUnmodified(c store.Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if en, ok := e.entries[c.ID()]; ok {
		en.modified = false
	}
}

// LastError returns the error of the most recent failed effect on c.
func (e *Extension) LastError(c store.Handle) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if en, ok := e.entries[c.ID()]; ok {
		return en.lastErr
	}
	return nil
}

// ClearError forgets c's last effect error.
func (e *Extension) ClearError(c store.Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if en, ok := e.entries[c.ID()]; ok {
		en.lastErr = nil
	}
}
