package store

import (
	"errors"
	"fmt"
)

// Sentinel errors for container operations.
var (
	ErrTypeMismatch = errors.New("value type mismatch")
	ErrEffectFailed = errors.New("effect failed")
)

// EffectError reports the failure of one effect invocation. It is returned
// only after AfterEffect hooks have run for that invocation.
//
// errors.Is(err, ErrEffectFailed) matches every EffectError; the underlying
// cause is reachable through errors.Is and errors.As as well.
type EffectError struct {
	Effect       string
	InvocationID string
	Err          error
}

func (e *EffectError) Error() string {
	return fmt.Sprintf("effect %s failed (invocation %s): %v", e.Effect, e.InvocationID, e.Err)
}

func (e *EffectError) Unwrap() []error {
	return []error{ErrEffectFailed, e.Err}
}

// HookError identifies the hook that aborted or failed an operation.
type HookError struct {
	Hook  string
	Store string
	Label string
	Err   error
}

func (e *HookError) Error() string {
	if e.Label == "" {
		return fmt.Sprintf("%s hook failed for store %s: %v", e.Hook, e.Store, e.Err)
	}
	return fmt.Sprintf("%s hook failed for store %s (%s): %v", e.Hook, e.Store, e.Label, e.Err)
}

func (e *HookError) Unwrap() error {
	return e.Err
}
