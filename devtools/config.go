package devtools

import "log/slog"

// Config defines configuration for a Bridge.
type Config struct {
	// Name identifies the bridge in logs and actions.
	Name string `json:"name,omitempty" env:"NAME"`

	// BufferSize is the per-client action queue length. Actions for a
	// client whose queue is full are dropped.
	BufferSize int `json:"buffer_size,omitempty" env:"BUFFER_SIZE"`

	// AllowedOrigins restricts websocket upgrades by Origin header. Empty
	// allows every origin.
	AllowedOrigins []string `json:"allowed_origins,omitempty" env:"ALLOWED_ORIGINS"`

	Logger *slog.Logger `json:"-"`
}

func DefaultConfig() Config {
	return Config{
		Name:       "signalstory",
		BufferSize: 64,
		Logger:     slog.Default(),
	}
}

func (c *Config) Merge(source *Config) {
	if source.Name != "" {
		c.Name = source.Name
	}

	if source.BufferSize > 0 {
		c.BufferSize = source.BufferSize
	}

	if len(source.AllowedOrigins) > 0 {
		c.AllowedOrigins = source.AllowedOrigins
	}

	if source.Logger != nil {
		c.Logger = source.Logger
	}
}
