package store

// Extension is a bundle of optional lifecycle hooks. Any value qualifies; the
// hooks it takes part in are the hook interfaces it implements. An extension
// may be shared by many containers and keep per-container state keyed by
// Handle.ID.
type Extension any

// InitHook runs once, when the container is built. An error aborts
// construction.
type InitHook interface {
	OnInit(c Handle) error
}

// BeforeCommandHook runs before every state write. An error aborts the
// command before the cell is touched.
type BeforeCommandHook interface {
	BeforeCommand(c Handle, label string) error
}

// AfterCommandHook runs after every state write with the new value visible.
// An error is reported to the caller; the write is not rolled back.
type AfterCommandHook interface {
	AfterCommand(c Handle, label string) error
}

// BeforeEffectHook runs before an effect is invoked. An error aborts the
// invocation; the effect is never run and AfterEffect does not fire.
type BeforeEffectHook interface {
	BeforeEffect(c Handle, effect Effect, invocationID string) error
}

// AfterEffectHook runs exactly once when an effect invocation settles. It may
// run on a goroutine other than the one that called RunEffect.
type AfterEffectHook interface {
	AfterEffect(c Handle, effect Effect, outcome Outcome, invocationID string)
}

// hooks buckets extension hooks by capability. Buckets stay nil when no
// extension supplies the hook.
type hooks struct {
	onInit        []InitHook
	beforeCommand []BeforeCommandHook
	afterCommand  []AfterCommandHook
	beforeEffect  []BeforeEffectHook
	afterEffect   []AfterEffectHook
}

func buildHooks(extensions []Extension) *hooks {
	if len(extensions) == 0 {
		return nil
	}

	h := &hooks{}
	for _, ext := range extensions {
		if hook, ok := ext.(InitHook); ok {
			h.onInit = append(h.onInit, hook)
		}
		if hook, ok := ext.(BeforeCommandHook); ok {
			h.beforeCommand = append(h.beforeCommand, hook)
		}
		if hook, ok := ext.(AfterCommandHook); ok {
			h.afterCommand = append(h.afterCommand, hook)
		}
		if hook, ok := ext.(BeforeEffectHook); ok {
			h.beforeEffect = append(h.beforeEffect, hook)
		}
		if hook, ok := ext.(AfterEffectHook); ok {
			h.afterEffect = append(h.afterEffect, hook)
		}
	}

	if h.empty() {
		return nil
	}
	return h
}

func (h *hooks) empty() bool {
	return len(h.onInit) == 0 &&
		len(h.beforeCommand) == 0 &&
		len(h.afterCommand) == 0 &&
		len(h.beforeEffect) == 0 &&
		len(h.afterEffect) == 0
}

// FindExtension returns the first extension on c of type E.
//
//	hist, ok := store.FindExtension[*history.Extension](c)
func FindExtension[E any](c Handle) (E, bool) {
	for _, ext := range c.Extensions() {
		if e, ok := ext.(E); ok {
			return e, true
		}
	}
	var zero E
	return zero, false
}
