package store

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/zuriscript/signalstory-sub000/cell"
	"github.com/zuriscript/signalstory-sub000/observability"
)

// Handle is the type-erased view of a container that extensions, the
// mediator, snapshots, and devtools work with.
type Handle interface {
	// ID returns the process-unique container identity.
	ID() string
	// Name returns the configured container name.
	Name() string
	// Value returns the current state.
	Value() any
	// Apply sets value through the command pipeline. The value must have the
	// container's state type.
	Apply(value any, label string) error
	// Decode unmarshals JSON into a value of the container's state type.
	Decode(data []byte) (any, error)
	// Extensions returns the container's extensions in hook order.
	Extensions() []Extension
	// WeakRef returns a weak reference to the container.
	WeakRef() Ref
	// OnCollect schedules fn to run with the container id after the
	// container has been garbage collected. Extensions use it to drop
	// per-container state.
	OnCollect(fn func(id string))
}

// Container wraps a cell with an identity and an extension pipeline.
// Commands on one container are applied in call order on the caller's
// goroutine; the container adds no locking of its own around hooks.
type Container[T any] struct {
	id         string
	name       string
	cell       cell.Cell[T]
	extensions []Extension
	hooks      *hooks
	observer   observability.Observer
	ref        Ref
}

// New creates a container holding initial in an in-memory cell.
func New[T any](initial T, cfg Config, opts ...Option) (*Container[T], error) {
	return NewWithCell(cell.New(initial), cfg, opts...)
}

// NewWithCell creates a container around an existing cell. Extensions'
// OnInit hooks run last, after the container has joined its registry; the
// first OnInit error removes it again and is returned.
func NewWithCell[T any](c cell.Cell[T], cfg Config, opts ...Option) (*Container[T], error) {
	o := options{registry: DefaultRegistry()}
	for _, opt := range opts {
		opt(&o)
	}

	observer := o.observer
	if observer == nil {
		resolved, err := observability.GetObserver(cfg.Observer)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve observer: %w", err)
		}
		observer = resolved
	}

	name := cfg.Name
	if name == "" {
		name = defaultName
	}

	ct := &Container[T]{
		id:         uuid.Must(uuid.NewV7()).String(),
		name:       name,
		cell:       c,
		extensions: slices.Clone(o.extensions),
		hooks:      buildHooks(o.extensions),
		observer:   observer,
	}
	ct.ref = newRef(ct)

	registry := o.registry
	if o.detached {
		registry = nil
	}
	if registry != nil {
		registry.Register(ct.ref)
	}

	ct.emit(context.Background(), EventCreate, observability.LevelVerbose, "store.New", map[string]any{
		"id":         ct.id,
		"extensions": len(ct.extensions),
	})

	if ct.hooks != nil {
		for _, hook := range ct.hooks.onInit {
			if err := hook.OnInit(ct); err != nil {
				if registry != nil {
					registry.Unregister(ct.id)
				}
				return nil, &HookError{Hook: "OnInit", Store: name, Err: err}
			}
		}
	}

	return ct, nil
}

// Must panics if err is non-nil. Intended for package-level containers and
// tests.
func Must[T any](c *Container[T], err error) *Container[T] {
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Container[T]) ID() string {
	return c.id
}

func (c *Container[T]) Name() string {
	return c.name
}

// Read returns the current state.
func (c *Container[T]) Read() T {
	return c.cell.Read()
}

func (c *Container[T]) Value() any {
	return c.cell.Read()
}

// Subscribe registers fn to run after every write to the underlying cell.
func (c *Container[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	return c.cell.Subscribe(fn)
}

func (c *Container[T]) Extensions() []Extension {
	return slices.Clone(c.extensions)
}

func (c *Container[T]) WeakRef() Ref {
	return c.ref
}

func (c *Container[T]) OnCollect(fn func(id string)) {
	runtime.AddCleanup(c, fn, c.id)
}

// Set replaces the state.
func (c *Container[T]) Set(value T, label string) error {
	return c.command(label, "store.Set", func(T) T { return value })
}

// Update replaces the state with fn applied to the current state. fn runs
// after the BeforeCommand hooks.
func (c *Container[T]) Update(fn func(T) T, label string) error {
	return c.command(label, "store.Update", fn)
}

// Mutate lets fn modify a copy of the current state in place, then writes the
// copy back. Reference-typed fields (maps, slices, pointers) inside T are
// shared with the previous value; replace them rather than editing them when
// history or snapshots must see the old contents.
func (c *Container[T]) Mutate(fn func(*T), label string) error {
	return c.command(label, "store.Mutate", func(current T) T {
		fn(&current)
		return current
	})
}

// Apply implements Handle. A nil value sets the zero value of T.
func (c *Container[T]) Apply(value any, label string) error {
	var typed T
	if value != nil {
		v, ok := value.(T)
		if !ok {
			return fmt.Errorf("%w: got %T, want %T", ErrTypeMismatch, value, typed)
		}
		typed = v
	}
	return c.command(label, "store.Apply", func(T) T { return typed })
}

func (c *Container[T]) Decode(data []byte) (any, error) {
	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("decode state for store %s: %w", c.name, err)
	}
	return value, nil
}

func (c *Container[T]) command(label, source string, next func(T) T) error {
	label = normalizeLabel(label)
	ctx := context.Background()

	if h := c.hooks; h != nil {
		for _, hook := range h.beforeCommand {
			if err := hook.BeforeCommand(c, label); err != nil {
				c.emit(ctx, EventCommandAborted, observability.LevelWarning, source, map[string]any{
					"label": label,
					"error": err.Error(),
				})
				return &HookError{Hook: "BeforeCommand", Store: c.name, Label: label, Err: err}
			}
		}
	}

	c.cell.Write(next(c.cell.Read()))

	c.emit(ctx, EventCommand, observability.LevelVerbose, source, map[string]any{
		"label": label,
	})

	if h := c.hooks; h != nil {
		for _, hook := range h.afterCommand {
			if err := hook.AfterCommand(c, label); err != nil {
				c.emit(ctx, EventHookError, observability.LevelError, source, map[string]any{
					"hook":  "AfterCommand",
					"label": label,
					"error": err.Error(),
				})
				return &HookError{Hook: "AfterCommand", Store: c.name, Label: label, Err: err}
			}
		}
	}

	return nil
}

func (c *Container[T]) emit(ctx context.Context, typ observability.EventType, level observability.Level, source string, data map[string]any) {
	if observability.IsNoOp(c.observer) {
		return
	}
	c.observer.OnEvent(ctx, observability.Event{
		Type:      typ,
		Level:     level,
		Timestamp: time.Now(),
		Source:    source,
		Store:     c.name,
		Data:      data,
	})
}
