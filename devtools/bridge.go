package devtools

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/zuriscript/signalstory-sub000/store"
)

// Message types exchanged with the debugger.
const (
	TypeInit   = "INIT"
	TypeAction = "ACTION"
	TypeJump   = "JUMP"
	TypeError  = "ERROR"
)

// Action is one message sent to the debugger.
type Action struct {
	Type  string          `json:"type"`
	Store string          `json:"store,omitempty"`
	ID    string          `json:"id,omitempty"`
	Label string          `json:"label,omitempty"`
	State json.RawMessage `json:"state,omitempty"`
	Time  time.Time       `json:"time"`
	Error string          `json:"error,omitempty"`
}

// Instruction is one message received from the debugger.
type Instruction struct {
	Type  string          `json:"type"`
	Store string          `json:"store"`
	State json.RawMessage `json:"state"`
}

type subscriber struct {
	ch   chan Action
	once sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.ch) })
}

// Bridge connects containers to a time-travel debugger.
type Bridge struct {
	name       string
	bufferSize int
	registry   *store.Registry
	logger     *slog.Logger
	upgrader   websocket.Upgrader

	subscribers map[*subscriber]struct{}
	mu          sync.RWMutex
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithRegistry resolves jump targets in r instead of store.DefaultRegistry.
func WithRegistry(r *store.Registry) Option {
	return func(b *Bridge) { b.registry = r }
}

// New creates a bridge. Zero fields in cfg take their defaults.
func New(cfg Config, opts ...Option) *Bridge {
	c := DefaultConfig()
	c.Merge(&cfg)

	b := &Bridge{
		name:        c.Name,
		bufferSize:  c.BufferSize,
		registry:    store.DefaultRegistry(),
		logger:      c.Logger,
		subscribers: make(map[*subscriber]struct{}),
	}
	b.upgrader = websocket.Upgrader{CheckOrigin: originChecker(c.AllowedOrigins)}

	for _, opt := range opts {
		opt(b)
	}
	return b
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		if len(allowed) == 0 {
			return true
		}
		return slices.Contains(allowed, r.Header.Get("Origin"))
	}
}

// OnInit announces c with its initial state.
func (b *Bridge) OnInit(c store.Handle) error {
	b.publish(c, TypeInit, "")
	return nil
}

// AfterCommand relays the committed command. Jumps issued by the debugger
// are not relayed.
func (b *Bridge) AfterCommand(c store.Handle, label string) error {
	if label == store.LabelDevtools {
		return nil
	}
	b.publish(c, TypeAction, label)
	return nil
}

func (b *Bridge) publish(c store.Handle, typ, label string) {
	state, err := json.Marshal(c.Value())
	if err != nil {
		b.logger.Warn("state not serializable",
			slog.String("bridge", b.name),
			slog.String("store", c.Name()),
			slog.String("error", err.Error()),
		)
		return
	}

	b.broadcast(Action{
		Type:  typ,
		Store: c.Name(),
		ID:    c.ID(),
		Label: label,
		State: state,
		Time:  time.Now(),
	})
}

func (b *Bridge) broadcast(a Action) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub.ch <- a:
		default:
			b.logger.Warn("devtools client lagging, action dropped",
				slog.String("bridge", b.name),
				slog.String("store", a.Store),
				slog.String("label", a.Label),
			)
		}
	}
}

// Subscribe returns a channel receiving every action broadcast after the
// call. cancel stops delivery and closes the channel.
func (b *Bridge) Subscribe() (actions <-chan Action, cancel func()) {
	sub := &subscriber{ch: make(chan Action, b.bufferSize)}

	b.mu.Lock()
	b.subscribers[sub] = struct{}{}
	b.mu.Unlock()

	return sub.ch, func() {
		b.mu.Lock()
		delete(b.subscribers, sub)
		b.mu.Unlock()
		sub.close()
	}
}

// Clients returns the number of active subscriptions.
func (b *Bridge) Clients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Jump sets every live container named name to the JSON-encoded state,
// through the command pipeline with store.LabelDevtools.
func (b *Bridge) Jump(name string, state json.RawMessage) error {
	targets := b.registry.Lookup(name)
	if len(targets) == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownStore, name)
	}

	var errs []error
	for _, c := range targets {
		value, err := c.Decode(state)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := c.Apply(value, store.LabelDevtools); err != nil {
			errs = append(errs, fmt.Errorf("jump %s: %w", name, err))
		}
	}

	b.logger.Debug("jump applied",
		slog.String("bridge", b.name),
		slog.String("store", name),
		slog.Int("targets", len(targets)),
	)
	return errors.Join(errs...)
}

// ServeHTTP upgrades the request to a websocket that streams actions to
// the client and accepts jump instructions from it.
func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Error("failed to upgrade the websocket", slog.String("error", err.Error()))
		return
	}
	defer ws.Close()

	actions, cancel := b.Subscribe()
	defer cancel()

	b.logger.Info("devtools client connected",
		slog.String("bridge", b.name),
		slog.String("remote", r.RemoteAddr),
	)

	replies := make(chan Action, 1)
	done := make(chan struct{})
	go b.writeLoop(ws, actions, replies, done)

	for {
		var in Instruction
		if err := ws.ReadJSON(&in); err != nil {
			b.logger.Info("devtools client disconnected", slog.String("error", err.Error()))
			break
		}

		if reply, ok := b.handle(in); !ok {
			select {
			case replies <- reply:
			case <-done:
			}
		}
	}

	close(replies)
	<-done
}

// handle applies one instruction. It reports false with an error action
// to send back when the instruction failed.
func (b *Bridge) handle(in Instruction) (Action, bool) {
	var err error
	switch in.Type {
	case TypeJump:
		err = b.Jump(in.Store, in.State)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownMessage, in.Type)
	}
	if err == nil {
		return Action{}, true
	}
	return Action{Type: TypeError, Store: in.Store, Time: time.Now(), Error: err.Error()}, false
}

// writeLoop is the only writer on ws.
func (b *Bridge) writeLoop(ws *websocket.Conn, actions <-chan Action, replies <-chan Action, done chan<- struct{}) {
	defer close(done)

	for {
		var (
			a  Action
			ok bool
		)
		select {
		case a, ok = <-actions:
		case a, ok = <-replies:
		}
		if !ok {
			return
		}
		if err := ws.WriteJSON(a); err != nil {
			b.logger.Warn("failed to write websocket JSON", slog.String("error", err.Error()))
			ws.Close()
			return
		}
	}
}
