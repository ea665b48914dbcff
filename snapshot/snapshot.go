// Package snapshot captures the values of several containers at once and
// restores them together, independently of each container's history.
package snapshot

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/zuriscript/signalstory-sub000/store"
)

// Selector chooses which live containers a snapshot captures.
type Selector func(store.Handle) bool

// Containers selects the given container instances.
func Containers(containers ...store.Handle) Selector {
	ids := make([]string, len(containers))
	for i, c := range containers {
		ids[i] = c.ID()
	}
	return func(h store.Handle) bool {
		return slices.Contains(ids, h.ID())
	}
}

// Named selects every container carrying one of names.
func Named(names ...string) Selector {
	return func(h store.Handle) bool {
		return slices.Contains(names, h.Name())
	}
}

// OfType selects every container whose state type is T.
func OfType[T any]() Selector {
	return func(h store.Handle) bool {
		_, ok := h.(*store.Container[T])
		return ok
	}
}

// Snapshot is a point-in-time capture of container values. It references
// containers by id only, so holding a snapshot never keeps a container
// alive. A snapshot can be restored any number of times.
type Snapshot struct {
	id        ulid.ULID
	createdAt time.Time
	registry  *store.Registry
	captured  map[string]any
}

// Create captures every live container in registry matched by at least one
// selector, or every live container when no selector is given.
func Create(registry *store.Registry, selectors ...Selector) *Snapshot {
	now := time.Now()
	s := &Snapshot{
		id:        ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()),
		createdAt: now,
		registry:  registry,
		captured:  make(map[string]any),
	}

	for _, h := range registry.Live() {
		if matches(h, selectors) {
			s.captured[h.ID()] = h.Value()
		}
	}
	return s
}

func matches(h store.Handle, selectors []Selector) bool {
	if len(selectors) == 0 {
		return true
	}
	for _, sel := range selectors {
		if sel(h) {
			return true
		}
	}
	return false
}

func (s *Snapshot) ID() string {
	return s.id.String()
}

func (s *Snapshot) CreatedAt() time.Time {
	return s.createdAt
}

// Len returns the number of captured containers.
func (s *Snapshot) Len() int {
	return len(s.captured)
}

// Contains reports whether c was captured.
func (s *Snapshot) Contains(c store.Handle) bool {
	_, ok := s.captured[c.ID()]
	return ok
}

// Value returns the captured value of c.
func (s *Snapshot) Value(c store.Handle) (any, bool) {
	v, ok := s.captured[c.ID()]
	return v, ok
}

// Restore sets every captured container that is still alive back to its
// captured value. Containers already holding an equal value are left alone.
// Writes go through the normal command pipeline labeled store.LabelRestore,
// so history and devtools see them. Every container is attempted; the
// errors of those that failed are joined.
func (s *Snapshot) Restore() error {
	var errs []error
	for _, h := range s.registry.Live() {
		value, ok := s.captured[h.ID()]
		if !ok || reflect.DeepEqual(h.Value(), value) {
			continue
		}
		if err := h.Apply(value, store.LabelRestore); err != nil {
			errs = append(errs, fmt.Errorf("restore %s: %w", h.Name(), err))
		}
	}
	return errors.Join(errs...)
}
