package persistence

import (
	"errors"
	"log/slog"
)

// Built-in drivers.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverBadger = "badger"
	DriverSQLite = "sqlite"
)

// Config holds persistence initialization parameters.
type Config struct {
	// Driver selects the storage backend: one of the built-in drivers or a
	// name registered with RegisterStore. Empty disables persistence.
	Driver string `json:"driver,omitempty" env:"DRIVER"`

	// Path is the file store root, the BadgerDB directory, or the SQLite
	// database file.
	Path string `json:"path,omitempty" env:"PATH"`

	// Prefix is prepended to container names to form storage keys.
	Prefix string `json:"prefix,omitempty" env:"PREFIX"`

	// InMemory runs BadgerDB without touching disk.
	InMemory bool `json:"in_memory,omitempty" env:"IN_MEMORY"`

	// SyncWrites makes BadgerDB flush before Save returns.
	SyncWrites bool `json:"sync_writes,omitempty" env:"SYNC_WRITES"`
}

// DefaultConfig returns the default persistence configuration (disabled).
func DefaultConfig() Config {
	return Config{
		Prefix: "signalstory/",
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Driver != "" {
		c.Driver = source.Driver
	}
	if source.Path != "" {
		c.Path = source.Path
	}
	if source.Prefix != "" {
		c.Prefix = source.Prefix
	}
	if source.InMemory {
		c.InMemory = true
	}
	if source.SyncWrites {
		c.SyncWrites = true
	}
}

// Open creates a Store from configuration. Returns a nil Store when Driver
// is empty, indicating persistence is disabled. Release the store with
// Close.
func Open(cfg *Config, logger *slog.Logger) (Store, error) {
	switch cfg.Driver {
	case "":
		return nil, nil
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverFile:
		if cfg.Path == "" {
			return nil, errors.New("file store requires a path")
		}
		return NewFileStore(cfg.Path), nil
	case DriverBadger:
		db, err := OpenBadger(BadgerConfig{
			Path:       cfg.Path,
			InMemory:   cfg.InMemory,
			SyncWrites: cfg.SyncWrites,
			Logger:     logger,
		})
		if err != nil {
			return nil, err
		}
		return &badgerStore{db: db, owned: true}, nil
	case DriverSQLite:
		return OpenSQLite(cfg.Path)
	default:
		return GetStore(cfg.Driver)
	}
}
