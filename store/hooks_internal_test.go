package store

import "testing"

type beforeOnly struct{}

func (beforeOnly) BeforeCommand(Handle, string) error { return nil }

func TestBuildHooks(t *testing.T) {
	if h := buildHooks(nil); h != nil {
		t.Errorf("buildHooks(nil) = %+v, want nil", h)
	}
	if h := buildHooks([]Extension{struct{}{}}); h != nil {
		t.Errorf("buildHooks(no hooks) = %+v, want nil", h)
	}

	h := buildHooks([]Extension{beforeOnly{}})
	if h == nil {
		t.Fatal("buildHooks() = nil, want table")
	}
	if len(h.beforeCommand) != 1 {
		t.Errorf("beforeCommand = %d hooks, want 1", len(h.beforeCommand))
	}
	if h.afterCommand != nil || h.onInit != nil || h.beforeEffect != nil || h.afterEffect != nil {
		t.Error("unused hook buckets should stay nil")
	}
}

func TestContainerWithoutExtensionsHasNoHooks(t *testing.T) {
	c := Must(New(0, Config{}, Detached()))
	if c.hooks != nil {
		t.Errorf("hooks = %+v, want nil", c.hooks)
	}
}
