package mediator

import "log/slog"

// Config defines configuration for a Mediator.
type Config struct {
	// Name identifies the mediator in logs.
	Name string `json:"name,omitempty" env:"NAME"`

	// ReplayLimit caps the number of recorded publications. Zero keeps
	// every publication.
	ReplayLimit int `json:"replay_limit,omitempty" env:"REPLAY_LIMIT"`

	Logger *slog.Logger `json:"-"`
}

// DefaultConfig returns a Config with unbounded replay.
func DefaultConfig() Config {
	return Config{
		Name:   "default",
		Logger: slog.Default(),
	}
}

func (c *Config) Merge(source *Config) {
	if source.Name != "" {
		c.Name = source.Name
	}

	if source.ReplayLimit > 0 {
		c.ReplayLimit = source.ReplayLimit
	}

	if source.Logger != nil {
		c.Logger = source.Logger
	}
}
