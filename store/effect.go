package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/zuriscript/signalstory-sub000/observability"
)

// Effect is an external computation run through a container. Effects that
// need cancellation take a context or token through args and honor it
// themselves; the container never revokes an in-flight effect.
type Effect interface {
	Name() string
	Run(ctx context.Context, args ...any) Result
}

// EffectFunc is the body of an effect built with NewEffect.
type EffectFunc func(ctx context.Context, args ...any) Result

type namedEffect struct {
	name string
	fn   EffectFunc
}

// NewEffect creates an Effect from a function.
func NewEffect(name string, fn EffectFunc) Effect {
	return &namedEffect{name: name, fn: fn}
}

func (e *namedEffect) Name() string {
	return e.name
}

func (e *namedEffect) Run(ctx context.Context, args ...any) Result {
	return e.fn(ctx, args...)
}

type resultKind int

const (
	resultValue resultKind = iota
	resultPromise
	resultStream
)

// Result is what an effect body hands back to the container: a settled
// value, a deferred computation, or a stream of emissions.
type Result struct {
	kind    resultKind
	value   any
	err     error
	promise func(ctx context.Context) (any, error)
	values  <-chan any
	errs    <-chan error
}

// Value is a synchronous, successful result.
func Value(v any) Result {
	return Result{kind: resultValue, value: v}
}

// Failure is a synchronous, failed result.
func Failure(err error) Result {
	return Result{kind: resultValue, err: err}
}

// Promise defers the computation to fn, which the container runs on its own
// goroutine with the context passed to RunEffect.
func Promise(fn func(ctx context.Context) (any, error)) Result {
	return Result{kind: resultPromise, promise: fn}
}

// Stream is a multi-emission result. The invocation completes when values is
// closed and fails when a non-nil error arrives on errs. Producers report an
// error before closing values. A nil values channel completes immediately
// with zero emissions.
func Stream(values <-chan any, errs <-chan error) Result {
	return Result{kind: resultStream, values: values, errs: errs}
}

// Outcome is how an invocation settled. Value holds the synchronous or
// promised value, or the last emission of a stream.
type Outcome struct {
	Value     any
	Emissions int
	Err       error
}

// Failed reports whether the invocation ended with an error.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// Invocation tracks one run of an effect.
type Invocation struct {
	id      string
	effect  Effect
	done    chan struct{}
	once    sync.Once
	outcome Outcome
}

// ID returns the invocation id passed to the effect hooks.
func (i *Invocation) ID() string {
	return i.id
}

// Effect returns the invoked effect.
func (i *Invocation) Effect() Effect {
	return i.effect
}

// Done is closed after the invocation settled and AfterEffect hooks ran.
func (i *Invocation) Done() <-chan struct{} {
	return i.done
}

// Outcome returns the settled outcome, or false while still in flight.
func (i *Invocation) Outcome() (Outcome, bool) {
	select {
	case <-i.done:
		return i.outcome, true
	default:
		return Outcome{}, false
	}
}

// Wait blocks until the invocation settles or ctx is done. A failed effect
// yields an *EffectError.
func (i *Invocation) Wait(ctx context.Context) (any, error) {
	select {
	case <-i.done:
		if i.outcome.Err != nil {
			return i.outcome.Value, i.failure()
		}
		return i.outcome.Value, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (i *Invocation) failure() error {
	return &EffectError{Effect: i.effect.Name(), InvocationID: i.id, Err: i.outcome.Err}
}

// RunEffect invokes effect with args. BeforeEffect hooks run first; an error
// there aborts the invocation and nothing else happens. For synchronous
// results AfterEffect has already fired when RunEffect returns, and a failure
// is returned directly. Promise and Stream results settle in the background;
// use the returned Invocation to wait for them.
func (c *Container[T]) RunEffect(ctx context.Context, effect Effect, args ...any) (*Invocation, error) {
	inv := &Invocation{
		id:     uuid.Must(uuid.NewV7()).String(),
		effect: effect,
		done:   make(chan struct{}),
	}

	if h := c.hooks; h != nil {
		for _, hook := range h.beforeEffect {
			if err := hook.BeforeEffect(c, effect, inv.id); err != nil {
				return nil, &HookError{Hook: "BeforeEffect", Store: c.name, Label: effect.Name(), Err: err}
			}
		}
	}

	c.emit(ctx, EventEffectStart, observability.LevelVerbose, "store.RunEffect", map[string]any{
		"effect":        effect.Name(),
		"invocation_id": inv.id,
	})

	result := runEffect(ctx, effect, args)

	switch result.kind {
	case resultPromise:
		go func() {
			value, err := await(ctx, result.promise)
			c.settle(ctx, inv, Outcome{Value: value, Err: err})
		}()
		return inv, nil

	case resultStream:
		if result.values == nil {
			c.settle(ctx, inv, Outcome{})
			return inv, nil
		}
		go c.drain(ctx, inv, result.values, result.errs)
		return inv, nil

	default:
		c.settle(ctx, inv, Outcome{Value: result.value, Err: result.err})
		if result.err != nil {
			return inv, inv.failure()
		}
		return inv, nil
	}
}

func runEffect(ctx context.Context, effect Effect, args []any) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Failure(fmt.Errorf("effect panicked: %v", r))
		}
	}()
	return effect.Run(ctx, args...)
}

func await(ctx context.Context, fn func(context.Context) (any, error)) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value, err = nil, fmt.Errorf("effect panicked: %v", r)
		}
	}()
	return fn(ctx)
}

func (c *Container[T]) drain(ctx context.Context, inv *Invocation, values <-chan any, errs <-chan error) {
	var out Outcome
	for {
		select {
		case v, ok := <-values:
			if !ok {
				if errs != nil {
					select {
					case err := <-errs:
						out.Err = err
					default:
					}
				}
				c.settle(ctx, inv, out)
				return
			}
			out.Value = v
			out.Emissions++

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err == nil {
				continue
			}
			out.Err = err
			collect(&out, values)
			c.settle(ctx, inv, out)
			return
		}
	}
}

// collect counts emissions already buffered in values without waiting for
// more.
func collect(out *Outcome, values <-chan any) {
	for {
		select {
		case v, ok := <-values:
			if !ok {
				return
			}
			out.Value = v
			out.Emissions++
		default:
			return
		}
	}
}

func (c *Container[T]) settle(ctx context.Context, inv *Invocation, out Outcome) {
	inv.once.Do(func() {
		inv.outcome = out

		if h := c.hooks; h != nil {
			for _, hook := range h.afterEffect {
				c.afterEffect(ctx, hook, inv, out)
			}
		}

		level := observability.LevelVerbose
		data := map[string]any{
			"effect":        inv.effect.Name(),
			"invocation_id": inv.id,
			"emissions":     out.Emissions,
		}
		if out.Err != nil {
			level = observability.LevelWarning
			data["error"] = out.Err.Error()
		}
		c.emit(ctx, EventEffectComplete, level, "store.RunEffect", data)

		close(inv.done)
	})
}

func (c *Container[T]) afterEffect(ctx context.Context, hook AfterEffectHook, inv *Invocation, out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			c.emit(ctx, EventHookError, observability.LevelError, "store.RunEffect", map[string]any{
				"hook":          "AfterEffect",
				"effect":        inv.effect.Name(),
				"invocation_id": inv.id,
				"error":         fmt.Sprint(r),
			})
		}
	}()
	hook.AfterEffect(c, inv.effect, out, inv.id)
}
