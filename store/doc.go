// Package store implements the container: a named StateCell wrapped in a
// mutation pipeline that extensions can observe and intercept.
//
// # Containers
//
// A Container owns one cell.Cell and a fixed, ordered list of extensions:
//
//	counter, err := store.New(Counter{Value: 10}, store.Config{Name: "counter"},
//	    store.WithExtensions(history.NewExtension(), status.NewExtension()),
//	)
//	err = counter.Set(Counter{Value: 22}, "Inc")
//	err = counter.Update(func(c Counter) Counter { c.Value++; return c }, "Inc")
//
// Every Set, Update, and Mutate runs the pipeline:
//
//  1. BeforeCommand hooks, in registration order. The first error aborts the
//     command; nothing is written.
//  2. The cell write.
//  3. AfterCommand hooks, in registration order, with the new value visible.
//     An error here is returned to the caller but the write stays committed.
//
// Commands without a label are reported to hooks as LabelUnspecified.
//
// # Extensions
//
// An Extension is any value implementing one or more of InitHook,
// BeforeCommandHook, AfterCommandHook, BeforeEffectHook, and AfterEffectHook.
// Hooks are discovered once, when the container is built. A container with
// no extensions carries no hook table at all.
//
// # Effects
//
// RunEffect brackets an external computation with BeforeEffect and
// AfterEffect hooks. Effects return one of three result shapes:
//
//	store.Value(v)                 // synchronous
//	store.Promise(func(ctx) ...)   // asynchronous, runs on its own goroutine
//	store.Stream(values, errs)     // multi-emission, settles on close or error
//
// AfterEffect fires exactly once per invocation, whatever the shape,
// outcome, or number of emissions. Each invocation carries its own id so
// extensions can track several in-flight effects on the same container.
//
// # Registry
//
// Containers register a weak reference with a Registry (DefaultRegistry
// unless WithRegistry says otherwise). The registry never keeps a container
// alive; dead references are pruned whenever it is iterated.
package store
