package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"empty path", func(c *Config) { c.Path = "" }, ErrInvalidArgument},
		{"negative busy timeout", func(c *Config) { c.BusyTimeout = -time.Second }, ErrInvalidArgument},
		{"unknown journal mode", func(c *Config) { c.JournalMode = "sideways" }, ErrInvalidArgument},
		{"bad metrics prefix", func(c *Config) { c.MetricsPrefix = "my-store" }, ErrInvalidIdentifier},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(&config)
			c, err := Open(context.Background(), config)
			if err == nil {
				_ = c.Close()
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Open() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigDefaultsFillZeroFields(t *testing.T) {
	c, err := Open(context.Background(), Config{Path: MemoryPath})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer c.Close()

	if c.Codec().Name() != "std" {
		t.Errorf("default codec = %q", c.Codec().Name())
	}
	if c.logger == nil || c.metrics.prefix != "sagittadb" {
		t.Errorf("defaults not applied: logger %v, prefix %q", c.logger, c.metrics.prefix)
	}
}

func TestCodecByName(t *testing.T) {
	for _, name := range []string{"", "std", "fast"} {
		if _, err := CodecByName(name); err != nil {
			t.Errorf("CodecByName(%q) error = %v", name, err)
		}
	}
	if _, err := CodecByName("xml"); err == nil {
		t.Error("CodecByName(xml) should fail")
	}
}
