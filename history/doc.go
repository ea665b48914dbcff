// Package history makes committed container commands reversible.
//
// Every container with the history Extension owns one append-only Log. Undo
// and redo never remove entries; they append Undo and Redo markers, and the
// current position is derived from the last entry alone. Each operation is
// O(1) regardless of how long the log grows.
//
//	hist := history.New()
//	c := store.Must(store.New(Counter{}, cfg, store.WithExtensions(hist)))
//
//	c.Set(Counter{Value: 1}, "Increment")
//	history.Undo(c) // back to Counter{}
//	history.Redo(c) // Counter{Value: 1} again
//
// The log is never compacted. Callers that need bounded memory call Clear.
package history
