package history

import (
	"errors"
	"fmt"
	"sync"

	"github.com/zuriscript/signalstory-sub000/store"
)

// Extension records every committed command of the containers it is
// installed on. One Extension may serve many containers; each gets its own
// Log keyed by container id.
type Extension struct {
	tracked map[string]*tracked
	mu      sync.Mutex
}

type tracked struct {
	log *Log[any]

	// op serializes undo, redo, and transactions on one container.
	op sync.Mutex

	pending    any
	hasPending bool

	inTx       bool
	txCommands int
}

// New creates a history extension.
func New() *Extension {
	return &Extension{tracked: make(map[string]*tracked)}
}

func (e *Extension) track(c store.Handle) *tracked {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.tracked[c.ID()]
	if !ok {
		t = &tracked{log: NewLog[any]()}
		e.tracked[c.ID()] = t
	}
	return t
}

func (e *Extension) installed(c store.Handle) bool {
	for _, ext := range c.Extensions() {
		if ext == store.Extension(e) {
			return true
		}
	}
	return false
}

func (e *Extension) lookup(c store.Handle) (*tracked, error) {
	if !e.installed(c) {
		return nil, ErrHistoryDisabled
	}
	return e.track(c), nil
}

// OnInit starts c's log. The log is dropped once c is garbage collected.
func (e *Extension) OnInit(c store.Handle) error {
	e.track(c)
	c.OnCollect(e.forget)
	return nil
}

func (e *Extension) forget(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.tracked, id)
}

// Tracked returns the number of containers with a live log.
func (e *Extension) Tracked() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.tracked)
}

func (e *Extension) BeforeCommand(c store.Handle, label string) error {
	if skipped(label) {
		return nil
	}

	t := e.track(c)
	e.mu.Lock()
	defer e.mu.Unlock()

	if !t.inTx {
		t.pending, t.hasPending = c.Value(), true
	}
	return nil
}

func (e *Extension) AfterCommand(c store.Handle, label string) error {
	if skipped(label) {
		return nil
	}

	t := e.track(c)
	e.mu.Lock()
	if t.inTx {
		t.txCommands++
		e.mu.Unlock()
		return nil
	}
	before, ok := t.pending, t.hasPending
	t.pending, t.hasPending = nil, false
	e.mu.Unlock()

	if ok {
		t.log.Record(label, before)
	}
	return nil
}

func skipped(label string) bool {
	return label == store.LabelUndo || label == store.LabelRedo
}

// Undo reverts the most recent applied command on c. It reports false when
// there is nothing to undo.
func (e *Extension) Undo(c store.Handle) (bool, error) {
	return e.step(c, store.LabelUndo, (*Log[any]).PlanUndo)
}

// Redo re-applies the most recently undone command on c. It reports false
// unless the last history entry is an undo or redo with something left to
// redo.
func (e *Extension) Redo(c store.Handle) (bool, error) {
	return e.step(c, store.LabelRedo, (*Log[any]).PlanRedo)
}

func (e *Extension) step(c store.Handle, label string, plan func(*Log[any], any) (Step[any], bool)) (bool, error) {
	t, err := e.lookup(c)
	if err != nil {
		return false, err
	}

	if e.inTransaction(t) {
		return false, ErrTransactionActive
	}

	t.op.Lock()
	defer t.op.Unlock()

	s, ok := plan(t.log, c.Value())
	if !ok {
		return false, nil
	}
	if err := c.Apply(s.State, label); err != nil {
		var hookErr *store.HookError
		if !errors.As(err, &hookErr) || hookErr.Hook != "AfterCommand" {
			return false, err
		}
		// the state moved; keep the log consistent with it
		t.log.Commit(s)
		return true, err
	}
	t.log.Commit(s)
	return true, nil
}

func (e *Extension) inTransaction(t *tracked) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return t.inTx
}

func (e *Extension) CanUndo(c store.Handle) bool {
	t, err := e.lookup(c)
	return err == nil && t.log.CanUndo()
}

func (e *Extension) CanRedo(c store.Handle) bool {
	t, err := e.lookup(c)
	return err == nil && t.log.CanRedo()
}

// Entries returns a copy of c's log.
func (e *Extension) Entries(c store.Handle) ([]Entry[any], error) {
	t, err := e.lookup(c)
	if err != nil {
		return nil, err
	}
	return t.log.Entries(), nil
}

// Clear drops c's log. The container state is left alone.
func (e *Extension) Clear(c store.Handle) error {
	t, err := e.lookup(c)
	if err != nil {
		return err
	}
	t.log.Clear()
	return nil
}

// Transaction runs fn and records every command it issues on c as a single
// undo step labeled label. If fn fails, c is set back to its value from
// before the transaction with store.LabelRollback and nothing is recorded.
// Undo and redo on c fail with ErrTransactionActive while fn runs.
func (e *Extension) Transaction(c store.Handle, label string, fn func() error) error {
	t, err := e.lookup(c)
	if err != nil {
		return err
	}

	if e.inTransaction(t) {
		return ErrTransactionActive
	}

	t.op.Lock()
	defer t.op.Unlock()

	e.mu.Lock()
	if t.inTx {
		e.mu.Unlock()
		return ErrTransactionActive
	}
	t.inTx, t.txCommands = true, 0
	e.mu.Unlock()

	before := c.Value()
	ferr := fn()

	if ferr != nil {
		rerr := c.Apply(before, store.LabelRollback)
		e.endTransaction(t)
		if rerr != nil {
			return errors.Join(ferr, fmt.Errorf("rollback: %w", rerr))
		}
		return ferr
	}

	if n := e.endTransaction(t); n > 0 {
		if label == "" {
			label = store.LabelUnspecified
		}
		t.log.Record(label, before)
	}
	return nil
}

func (e *Extension) endTransaction(t *tracked) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := t.txCommands
	t.inTx, t.txCommands = false, 0
	return n
}

func find(c store.Handle) (*Extension, error) {
	ext, ok := store.FindExtension[*Extension](c)
	if !ok {
		return nil, ErrHistoryDisabled
	}
	return ext, nil
}

// Undo reverts the most recent applied command on c using its history
// extension.
func Undo(c store.Handle) (bool, error) {
	ext, err := find(c)
	if err != nil {
		return false, err
	}
	return ext.Undo(c)
}

// Redo re-applies the most recently undone command on c using its history
// extension.
func Redo(c store.Handle) (bool, error) {
	ext, err := find(c)
	if err != nil {
		return false, err
	}
	return ext.Redo(c)
}

func CanUndo(c store.Handle) bool {
	ext, err := find(c)
	return err == nil && ext.CanUndo(c)
}

func CanRedo(c store.Handle) bool {
	ext, err := find(c)
	return err == nil && ext.CanRedo(c)
}

// Transaction groups the commands fn issues on c into one undo step.
func Transaction(c store.Handle, label string, fn func() error) error {
	ext, err := find(c)
	if err != nil {
		return err
	}
	return ext.Transaction(c, label, fn)
}
