package core

import (
	"fmt"
	"time"

	"github.com/liliang-cn/sagittadb/internal/ident"
	"github.com/liliang-cn/sagittadb/internal/sqlite"
)

// MemoryPath opens a transient collection that lives as long as its handle.
const MemoryPath = sqlite.Memory

// Config represents configuration options for a collection
type Config struct {
	Path          string        `json:"path"`          // Database file path or MemoryPath
	BusyTimeout   time.Duration `json:"busyTimeout"`   // How long SQLite waits on a locked file
	JournalMode   string        `json:"journalMode"`   // Journal mode for file databases
	Codec         Codec         `json:"-"`             // Document body codec
	Logger        Logger        `json:"-"`             // Operation logger
	MetricsPrefix string        `json:"metricsPrefix"` // Prefix of exported metric names
}

// DefaultConfig returns a default configuration
func DefaultConfig() Config {
	return Config{
		Path:          MemoryPath,
		BusyTimeout:   5 * time.Second,
		JournalMode:   "WAL",
		Codec:         JSONCodec{},
		Logger:        NopLogger(),
		MetricsPrefix: "sagittadb",
	}
}

// withDefaults fills zero fields from DefaultConfig and validates the rest.
func (c Config) withDefaults() (Config, error) {
	def := DefaultConfig()
	if c.Path == "" {
		return c, fmt.Errorf("%w: database path cannot be empty", ErrInvalidArgument)
	}
	if c.BusyTimeout < 0 {
		return c, fmt.Errorf("%w: busy timeout must be non-negative", ErrInvalidArgument)
	}
	if c.Codec == nil {
		c.Codec = def.Codec
	}
	if c.Logger == nil {
		c.Logger = def.Logger
	}
	if c.MetricsPrefix == "" {
		c.MetricsPrefix = def.MetricsPrefix
	}
	if _, err := ident.Validate(c.MetricsPrefix); err != nil {
		return c, fmt.Errorf("metrics prefix: %w", err)
	}
	switch c.JournalMode {
	case "", "DELETE", "TRUNCATE", "PERSIST", "MEMORY", "WAL", "OFF",
		"delete", "truncate", "persist", "memory", "wal", "off":
	default:
		return c, fmt.Errorf("%w: unknown journal mode %q", ErrInvalidArgument, c.JournalMode)
	}
	return c, nil
}
