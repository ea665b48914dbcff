package store

import "github.com/zuriscript/signalstory-sub000/observability"

const defaultName = "store"

// Config holds container initialization parameters.
type Config struct {
	// Name is the human-readable container name. It keys persistence
	// entries and devtools actions; it need not be unique.
	Name string `json:"name,omitempty" env:"NAME"`

	// Observer names an observer from the observability registry.
	Observer string `json:"observer,omitempty" env:"OBSERVER"`
}

// DefaultConfig returns a Config with observability disabled.
func DefaultConfig() Config {
	return Config{
		Name:     defaultName,
		Observer: "noop",
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Name != "" {
		c.Name = source.Name
	}
	if source.Observer != "" {
		c.Observer = source.Observer
	}
}

type options struct {
	extensions []Extension
	observer   observability.Observer
	registry   *Registry
	detached   bool
}

// Option configures a container after config-driven initialization.
type Option func(*options)

// WithExtensions appends extensions in the order their hooks should run.
func WithExtensions(extensions ...Extension) Option {
	return func(o *options) { o.extensions = append(o.extensions, extensions...) }
}

// WithObserver overrides the observer named in Config.
func WithObserver(observer observability.Observer) Option {
	return func(o *options) { o.observer = observer }
}

// WithRegistry registers the container with r instead of DefaultRegistry.
func WithRegistry(r *Registry) Option {
	return func(o *options) { o.registry = r }
}

// Detached keeps the container out of every registry. Detached containers
// are invisible to snapshots and devtools.
func Detached() Option {
	return func(o *options) { o.detached = true }
}
