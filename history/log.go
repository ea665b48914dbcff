package history

import (
	"slices"
	"sync"

	"github.com/zuriscript/signalstory-sub000/store"
)

// Kind distinguishes recorded commands from undo and redo markers.
type Kind int

const (
	KindNormal Kind = iota
	KindUndo
	KindRedo
)

func (k Kind) String() string {
	switch k {
	case KindNormal:
		return "normal"
	case KindUndo:
		return "undo"
	case KindRedo:
		return "redo"
	default:
		return "unknown"
	}
}

// Entry is one log record. Before is the state that was current when the
// entry was appended.
//
// Index is -1 for normal entries. An undo entry's Index is the normal entry
// it reverted; a redo entry's Index is the undo entry it reverted. Indices
// always point backward.
type Entry[T any] struct {
	Kind    Kind
	Command string
	Before  T
	Index   int

	// link is the applied command below a normal entry, or the next redo
	// candidate below an undo entry. -1 when there is none.
	link int
}

// Step is a planned undo or redo: the entry to append and the state the
// container moves to.
type Step[T any] struct {
	Entry Entry[T]
	State T
}

// top returns the index of the most recent normal entry whose effect is
// currently applied, or -1.
func top[T any](entries []Entry[T]) int {
	if len(entries) == 0 {
		return -1
	}
	last := len(entries) - 1
	switch e := entries[last]; e.Kind {
	case KindUndo:
		return entries[e.Index].link
	case KindRedo:
		return entries[e.Index].Index
	default:
		return last
	}
}

// redoTop returns the index of the undo entry the next redo reverts, or -1.
func redoTop[T any](entries []Entry[T]) int {
	if len(entries) == 0 {
		return -1
	}
	last := len(entries) - 1
	switch e := entries[last]; e.Kind {
	case KindUndo:
		return last
	case KindRedo:
		return entries[e.Index].link
	default:
		return -1
	}
}

// PlanUndo computes the undo of the most recent applied command without
// modifying entries. It reports false when there is nothing to undo.
func PlanUndo[T any](entries []Entry[T], current T) (Step[T], bool) {
	target := top(entries)
	if target < 0 {
		return Step[T]{}, false
	}
	undone := entries[target]
	return Step[T]{
		Entry: Entry[T]{
			Kind:    KindUndo,
			Command: undone.Command,
			Before:  current,
			Index:   target,
			link:    redoTop(entries),
		},
		State: undone.Before,
	}, true
}

// PlanRedo computes the redo of the most recent undo without modifying
// entries. It reports false unless the log ends in an undo chain with
// something left to redo.
func PlanRedo[T any](entries []Entry[T], current T) (Step[T], bool) {
	target := redoTop(entries)
	if target < 0 {
		return Step[T]{}, false
	}
	undo := entries[target]
	return Step[T]{
		Entry: Entry[T]{
			Kind:    KindRedo,
			Command: undo.Command,
			Before:  current,
			Index:   target,
			link:    -1,
		},
		State: undo.Before,
	}, true
}

// Log is an append-only undo/redo log. Safe for concurrent use.
type Log[T any] struct {
	entries []Entry[T]
	mu      sync.RWMutex
}

// NewLog creates an empty log.
func NewLog[T any]() *Log[T] {
	return &Log[T]{}
}

// Record appends a normal entry for command with the state before it ran.
// The undo and redo labels are never recorded; Record reports false for
// them.
func (l *Log[T]) Record(command string, before T) bool {
	if command == store.LabelUndo || command == store.LabelRedo {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, Entry[T]{
		Kind:    KindNormal,
		Command: command,
		Before:  before,
		Index:   -1,
		link:    top(l.entries),
	})
	return true
}

// PlanUndo plans an undo against the current log.
func (l *Log[T]) PlanUndo(current T) (Step[T], bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return PlanUndo(l.entries, current)
}

// PlanRedo plans a redo against the current log.
func (l *Log[T]) PlanRedo(current T) (Step[T], bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return PlanRedo(l.entries, current)
}

// Commit appends a planned step's entry.
func (l *Log[T]) Commit(step Step[T]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, step.Entry)
}

// Undo appends an undo entry and returns the state to move to. It reports
// false, leaving the log unchanged, when there is nothing to undo.
func (l *Log[T]) Undo(current T) (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	step, ok := PlanUndo(l.entries, current)
	if !ok {
		var zero T
		return zero, false
	}
	l.entries = append(l.entries, step.Entry)
	return step.State, true
}

// Redo appends a redo entry and returns the state to move to. It reports
// false, leaving the log unchanged, when the last entry does not continue
// an undo chain.
func (l *Log[T]) Redo(current T) (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	step, ok := PlanRedo(l.entries, current)
	if !ok {
		var zero T
		return zero, false
	}
	l.entries = append(l.entries, step.Entry)
	return step.State, true
}

func (l *Log[T]) CanUndo() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return top(l.entries) >= 0
}

func (l *Log[T]) CanRedo() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return redoTop(l.entries) >= 0
}

// Entries returns a copy of the log.
func (l *Log[T]) Entries() []Entry[T] {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.entries)
}

func (l *Log[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Clear drops every entry.
func (l *Log[T]) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}
