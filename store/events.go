package store

import "github.com/zuriscript/signalstory-sub000/observability"

// Container event types.
const (
	EventCreate         observability.EventType = "store.create"
	EventCommand        observability.EventType = "store.command"
	EventCommandAborted observability.EventType = "store.command.aborted"
	EventEffectStart    observability.EventType = "store.effect.start"
	EventEffectComplete observability.EventType = "store.effect.complete"
	EventHookError      observability.EventType = "store.hook.error"
)
