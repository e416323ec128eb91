package sagittadb

import (
	"context"
	"log/slog"
	"time"

	"github.com/liliang-cn/sagittadb/pkg/core"
)

// Version is the library version reported by the CLI.
const Version = "0.3.0"

// Memory is the location of a transient collection discarded on Close.
const Memory = core.MemoryPath

type (
	// Collection is a set of documents in one SQLite database.
	Collection = core.Collection
	// Document is a JSON-like mapping from field names to values.
	Document = core.Document
	// Equality matches documents whose fields equal every given value.
	Equality = core.Equality
	// QueryOption restricts the window of returned documents.
	QueryOption = core.QueryOption
	// IndexInfo describes an expression index.
	IndexInfo = core.IndexInfo
	// Stats summarises a collection.
	Stats = core.Stats
	// Codec converts documents to and from their stored form.
	Codec = core.Codec
	// Logger receives operation logs.
	Logger = core.Logger
	// Config is the full collection configuration.
	Config = core.Config
	// AggregationRequest selects what Aggregate computes.
	AggregationRequest = core.AggregationRequest
	// AggregationResult is one row of an aggregation.
	AggregationResult = core.AggregationResult
)

// WithLimit returns at most n documents.
func WithLimit(n int) QueryOption { return core.WithLimit(n) }

// WithOffset skips the first n matching documents.
func WithOffset(n int) QueryOption { return core.WithOffset(n) }

// Option is a functional option for configuring a collection.
type Option func(*core.Config)

// WithCodec selects the document codec.
func WithCodec(c Codec) Option {
	return func(cfg *core.Config) { cfg.Codec = c }
}

// WithLogger sets the logger used by the collection.
func WithLogger(l Logger) Option {
	return func(cfg *core.Config) { cfg.Logger = l }
}

// WithSlog logs through an slog.Logger.
func WithSlog(l *slog.Logger) Option {
	return func(cfg *core.Config) { cfg.Logger = core.NewSlogLogger(l) }
}

// WithBusyTimeout sets how long SQLite waits on a locked database file.
func WithBusyTimeout(d time.Duration) Option {
	return func(cfg *core.Config) { cfg.BusyTimeout = d }
}

// WithJournalMode sets the journal mode of file databases, e.g. "WAL".
func WithJournalMode(mode string) Option {
	return func(cfg *core.Config) { cfg.JournalMode = mode }
}

// WithMetricsPrefix sets the prefix of exported metric names.
func WithMetricsPrefix(prefix string) Option {
	return func(cfg *core.Config) { cfg.MetricsPrefix = prefix }
}

// Open opens or creates the collection stored at path. Pass Memory for a
// transient collection.
func Open(path string, opts ...Option) (*Collection, error) {
	return OpenContext(context.Background(), path, opts...)
}

// OpenContext is Open with a context bounding the initial connection.
func OpenContext(ctx context.Context, path string, opts ...Option) (*Collection, error) {
	config := core.DefaultConfig()
	config.Path = path
	for _, opt := range opts {
		if opt != nil {
			opt(&config)
		}
	}
	return core.Open(ctx, config)
}

// OpenMemory opens a transient in-memory collection.
func OpenMemory(opts ...Option) (*Collection, error) {
	return Open(Memory, opts...)
}
