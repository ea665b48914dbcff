package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/zuriscript/signalstory-sub000/store"
)

// Extension loads a container's saved value when the container is built
// and saves the value after every committed command.
type Extension struct {
	store  Store
	prefix string
	logger *slog.Logger
}

// ExtensionOption configures an Extension.
type ExtensionOption func(*Extension)

// WithPrefix sets the key prefix. Keys are prefix+container name.
func WithPrefix(prefix string) ExtensionOption {
	return func(e *Extension) { e.prefix = prefix }
}

// WithLogger sets the logger for load and save diagnostics.
func WithLogger(logger *slog.Logger) ExtensionOption {
	return func(e *Extension) { e.logger = logger }
}

// NewExtension creates a persistence extension over s.
func NewExtension(s Store, opts ...ExtensionOption) *Extension {
	e := &Extension{
		store:  s,
		prefix: DefaultConfig().Prefix,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Key returns the storage key for c.
func (e *Extension) Key(c store.Handle) string {
	return e.prefix + c.Name()
}

// OnInit applies the saved value, if any, with store.LabelLoad. A missing
// key leaves the initial value in place.
func (e *Extension) OnInit(c store.Handle) error {
	ctx := context.Background()
	key := e.Key(c)

	entries, err := e.store.Load(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		e.logger.Debug("no saved state", slog.String("store", c.Name()), slog.String("key", key))
		return nil
	}
	if err != nil {
		return err
	}

	value, err := c.Decode(entries[0].Value)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrLoadFailed, key, err)
	}
	if err := c.Apply(value, store.LabelLoad); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrLoadFailed, key, err)
	}

	e.logger.Debug("state loaded", slog.String("store", c.Name()), slog.String("key", key))
	return nil
}

// AfterCommand saves the committed value. The load itself is not written
// back.
func (e *Extension) AfterCommand(c store.Handle, label string) error {
	if label == store.LabelLoad {
		return nil
	}
	return e.Save(context.Background(), c)
}

// Save writes c's current value.
func (e *Extension) Save(ctx context.Context, c store.Handle) error {
	data, err := json.Marshal(c.Value())
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, e.Key(c), err)
	}
	return e.store.Save(ctx, Entry{Key: e.Key(c), Value: data})
}

// Clear removes c's saved value. The container state is left alone.
func (e *Extension) Clear(ctx context.Context, c store.Handle) error {
	return e.store.Delete(ctx, e.Key(c))
}
