package store_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/zuriscript/signalstory-sub000/observability"
	"github.com/zuriscript/signalstory-sub000/store"
)

// recorder logs every hook call it sees as "<hook>:<label>=<value>".
type recorder struct {
	calls      *[]string
	failInit   error
	failBefore error
	failAfter  error
}

func (r *recorder) OnInit(c store.Handle) error {
	*r.calls = append(*r.calls, "init")
	return r.failInit
}

func (r *recorder) BeforeCommand(c store.Handle, label string) error {
	*r.calls = append(*r.calls, "before:"+label)
	return r.failBefore
}

func (r *recorder) AfterCommand(c store.Handle, label string) error {
	*r.calls = append(*r.calls, "after:"+label)
	return r.failAfter
}

type tagged struct {
	tag   string
	calls *[]string
}

func (t tagged) BeforeCommand(c store.Handle, label string) error {
	*t.calls = append(*t.calls, t.tag+".before")
	return nil
}

func (t tagged) AfterCommand(c store.Handle, label string) error {
	*t.calls = append(*t.calls, t.tag+".after")
	return nil
}

func newCounter(t *testing.T, opts ...store.Option) *store.Container[int] {
	t.Helper()
	opts = append([]store.Option{store.WithRegistry(store.NewRegistry())}, opts...)
	c, err := store.New(0, store.Config{Name: "counter"}, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestNew_Defaults(t *testing.T) {
	c, err := store.New(5, store.Config{}, store.Detached())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c.Name() != "store" {
		t.Errorf("Name() = %q, want %q", c.Name(), "store")
	}
	if c.ID() == "" {
		t.Error("ID() is empty")
	}
	if c.Read() != 5 {
		t.Errorf("Read() = %d, want 5", c.Read())
	}
}

func TestNew_UniqueIDs(t *testing.T) {
	a := newCounter(t)
	b := newCounter(t)
	if a.ID() == b.ID() {
		t.Errorf("two containers share id %q", a.ID())
	}
}

func TestNew_UnknownObserver(t *testing.T) {
	_, err := store.New(0, store.Config{Observer: "missing"}, store.Detached())
	if err == nil {
		t.Fatal("New() with unknown observer should fail")
	}
}

func TestNew_OnInitError(t *testing.T) {
	reg := store.NewRegistry()
	var calls []string
	cause := errors.New("boom")

	_, err := store.New(0, store.Config{Name: "broken"},
		store.WithRegistry(reg),
		store.WithExtensions(&recorder{calls: &calls, failInit: cause}),
	)
	if !errors.Is(err, cause) {
		t.Fatalf("New() error = %v, want %v", err, cause)
	}

	var hookErr *store.HookError
	if !errors.As(err, &hookErr) || hookErr.Hook != "OnInit" {
		t.Errorf("New() error = %#v, want OnInit HookError", err)
	}
	if reg.Len() != 0 {
		t.Errorf("registry Len() = %d after failed init, want 0", reg.Len())
	}
}

func TestSet_PipelineOrder(t *testing.T) {
	var calls []string
	c := newCounter(t, store.WithExtensions(&recorder{calls: &calls}))

	if err := c.Set(3, "Increase"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	want := []string{"init", "before:Increase", "after:Increase"}
	if !slices.Equal(calls, want) {
		t.Errorf("calls = %v, want %v", calls, want)
	}
	if c.Read() != 3 {
		t.Errorf("Read() = %d, want 3", c.Read())
	}
}

func TestSet_ExtensionOrder(t *testing.T) {
	var calls []string
	c := newCounter(t, store.WithExtensions(
		tagged{tag: "a", calls: &calls},
		tagged{tag: "b", calls: &calls},
	))

	if err := c.Set(1, "x"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	want := []string{"a.before", "b.before", "a.after", "b.after"}
	if !slices.Equal(calls, want) {
		t.Errorf("calls = %v, want %v", calls, want)
	}
}

type valueSpy struct {
	before, after *[]any
}

func (s valueSpy) BeforeCommand(c store.Handle, label string) error {
	*s.before = append(*s.before, c.Value())
	return nil
}

func (s valueSpy) AfterCommand(c store.Handle, label string) error {
	*s.after = append(*s.after, c.Value())
	return nil
}

func TestSet_HooksSeeCommittedState(t *testing.T) {
	var before, after []any
	c := newCounter(t, store.WithExtensions(valueSpy{before: &before, after: &after}))

	c.Set(1, "a")
	c.Set(2, "b")

	if !slices.Equal(before, []any{0, 1}) {
		t.Errorf("before values = %v, want [0 1]", before)
	}
	if !slices.Equal(after, []any{1, 2}) {
		t.Errorf("after values = %v, want [1 2]", after)
	}
}

func TestSet_BeforeCommandAborts(t *testing.T) {
	var calls []string
	cause := errors.New("frozen")
	c := newCounter(t, store.WithExtensions(&recorder{calls: &calls, failBefore: cause}))

	err := c.Set(9, "x")
	if !errors.Is(err, cause) {
		t.Fatalf("Set() error = %v, want %v", err, cause)
	}
	if c.Read() != 0 {
		t.Errorf("Read() = %d after aborted command, want 0", c.Read())
	}
	if slices.Contains(calls, "after:x") {
		t.Errorf("AfterCommand ran for aborted command: %v", calls)
	}
}

func TestSet_AfterCommandErrorKeepsState(t *testing.T) {
	var calls []string
	cause := errors.New("late")
	c := newCounter(t, store.WithExtensions(&recorder{calls: &calls, failAfter: cause}))

	err := c.Set(4, "x")
	if !errors.Is(err, cause) {
		t.Fatalf("Set() error = %v, want %v", err, cause)
	}
	if c.Read() != 4 {
		t.Errorf("Read() = %d, want 4", c.Read())
	}
}

func TestSet_EmptyLabel(t *testing.T) {
	var calls []string
	c := newCounter(t, store.WithExtensions(&recorder{calls: &calls}))

	c.Set(1, "")

	if !slices.Contains(calls, "after:"+store.LabelUnspecified) {
		t.Errorf("calls = %v, want label %q", calls, store.LabelUnspecified)
	}
}

func TestUpdate_RunsAfterBeforeHooks(t *testing.T) {
	var calls []string
	c := newCounter(t, store.WithExtensions(&recorder{calls: &calls}))

	c.Update(func(v int) int {
		calls = append(calls, "fn")
		return v + 10
	}, "Add")

	want := []string{"init", "before:Add", "fn", "after:Add"}
	if !slices.Equal(calls, want) {
		t.Errorf("calls = %v, want %v", calls, want)
	}
	if c.Read() != 10 {
		t.Errorf("Read() = %d, want 10", c.Read())
	}
}

type profile struct {
	Name string
	Age  int
}

func TestMutate(t *testing.T) {
	c, err := store.New(profile{Name: "ada"}, store.Config{Name: "profile"}, store.Detached())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	c.Mutate(func(p *profile) { p.Age = 36 }, "Birthday")

	if got := c.Read(); got != (profile{Name: "ada", Age: 36}) {
		t.Errorf("Read() = %+v", got)
	}
}

func TestApply(t *testing.T) {
	c := newCounter(t)

	if err := c.Apply(7, "x"); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if c.Read() != 7 {
		t.Errorf("Read() = %d, want 7", c.Read())
	}

	err := c.Apply("seven", "x")
	if !errors.Is(err, store.ErrTypeMismatch) {
		t.Errorf("Apply(string) error = %v, want ErrTypeMismatch", err)
	}
	if c.Read() != 7 {
		t.Errorf("Read() = %d after mismatch, want 7", c.Read())
	}

	if err := c.Apply(nil, "x"); err != nil {
		t.Fatalf("Apply(nil) error = %v", err)
	}
	if c.Read() != 0 {
		t.Errorf("Read() = %d after Apply(nil), want 0", c.Read())
	}
}

func TestDecode(t *testing.T) {
	c, _ := store.New(profile{}, store.Config{Name: "profile"}, store.Detached())

	v, err := c.Decode([]byte(`{"Name":"grace","Age":85}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if v != (profile{Name: "grace", Age: 85}) {
		t.Errorf("Decode() = %#v", v)
	}

	if _, err := c.Decode([]byte(`{`)); err == nil {
		t.Error("Decode() of malformed JSON should fail")
	}
}

func TestSubscribe(t *testing.T) {
	c := newCounter(t)

	var seen []int
	unsubscribe := c.Subscribe(func(v int) { seen = append(seen, v) })
	c.Set(1, "a")
	unsubscribe()
	c.Set(2, "b")

	if !slices.Equal(seen, []int{1}) {
		t.Errorf("seen = %v, want [1]", seen)
	}
}

func TestFindExtension(t *testing.T) {
	var calls []string
	rec := &recorder{calls: &calls}
	c := newCounter(t, store.WithExtensions(rec))

	got, ok := store.FindExtension[*recorder](c)
	if !ok || got != rec {
		t.Errorf("FindExtension() = %v, %v", got, ok)
	}
	if _, ok := store.FindExtension[valueSpy](c); ok {
		t.Error("FindExtension() found an extension that is not installed")
	}
}

func TestObserverEvents(t *testing.T) {
	var types []observability.EventType
	obs := observability.ObserverFunc(func(ctx context.Context, e observability.Event) {
		types = append(types, e.Type)
	})

	c := newCounter(t, store.WithObserver(obs))
	c.Set(1, "x")

	want := []observability.EventType{store.EventCreate, store.EventCommand}
	if !slices.Equal(types, want) {
		t.Errorf("event types = %v, want %v", types, want)
	}
}

func TestIsReserved(t *testing.T) {
	tests := []struct {
		label string
		want  bool
	}{
		{store.LabelUndo, true},
		{store.LabelRestore, true},
		{store.LabelLoad, true},
		{store.LabelUnspecified, false},
		{"Increase", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := store.IsReserved(tt.label); got != tt.want {
			t.Errorf("IsReserved(%q) = %v, want %v", tt.label, got, tt.want)
		}
	}
}

func TestConfig_Merge(t *testing.T) {
	cfg := store.DefaultConfig()
	cfg.Merge(&store.Config{Name: "cart"})

	if cfg.Name != "cart" {
		t.Errorf("Name = %q, want %q", cfg.Name, "cart")
	}
	if cfg.Observer != "noop" {
		t.Errorf("Observer = %q, want %q", cfg.Observer, "noop")
	}
}
