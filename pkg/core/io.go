package core

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/liliang-cn/sagittadb/internal/sqlite"
)

// DumpFormat represents the format for data export
type DumpFormat string

const (
	// DumpFormatJSON exports a single JSON object holding metadata and records
	DumpFormatJSON DumpFormat = "json"
	// DumpFormatJSONL exports one document per line
	DumpFormatJSONL DumpFormat = "jsonl"
)

// DumpVersion is written into the metadata of every JSON dump.
const DumpVersion = "1.0"

// ParseDumpFormat accepts "json" and "jsonl" (also "ndjson").
func ParseDumpFormat(s string) (DumpFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return DumpFormatJSON, nil
	case "jsonl", "ndjson":
		return DumpFormatJSONL, nil
	default:
		return "", fmt.Errorf("%w: unsupported dump format %q", ErrInvalidArgument, s)
	}
}

// FormatFromPath guesses the dump format from a file extension.
func FormatFromPath(path string) DumpFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return DumpFormatJSONL
	default:
		return DumpFormatJSON
	}
}

// DumpOptions defines options for data export
type DumpOptions struct {
	Format DumpFormat // Export format
	Filter Equality   // Optional filter for selective export
	Indent bool       // Pretty-print JSON dumps
}

// DefaultDumpOptions returns default dump options
func DefaultDumpOptions() DumpOptions {
	return DumpOptions{Format: DumpFormatJSON, Indent: true}
}

// DumpMetadata is the header of a JSON dump.
type DumpMetadata struct {
	DumpID         string `json:"dump_id"`
	BackupDate     string `json:"backup_date"`
	SourceDatabase string `json:"source_database"`
	RecordCount    int    `json:"record_count"`
	BackupVersion  string `json:"backup_version"`
	Codec          string `json:"codec"`
}

// DumpStats provides statistics about the export operation
type DumpStats struct {
	DumpID       string `json:"dump_id" yaml:"dump_id"`
	Documents    int    `json:"documents" yaml:"documents"`
	BytesWritten int64  `json:"bytes_written" yaml:"bytes_written"`
}

// dumpFile is the layout of a JSON dump.
type dumpFile struct {
	Metadata DumpMetadata      `json:"metadata"`
	Records  []json.RawMessage `json:"records"`
}

// Dump writes the documents matching opts.Filter to w in id order. Ids are
// not exported; Load assigns new ones.
func (c *Collection) Dump(ctx context.Context, w io.Writer, opts DumpOptions) (stats *DumpStats, err error) {
	defer c.track("dump", time.Now(), &err)

	format, err := ParseDumpFormat(string(opts.Format))
	if err != nil {
		return nil, err
	}
	records, err := c.find(ctx, opts.Filter, nil)
	if err != nil {
		return nil, err
	}

	bodies := make([]json.RawMessage, 0, len(records))
	for _, rec := range records {
		body, err := c.codec.Encode(rec.doc)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", rec.id, err)
		}
		bodies = append(bodies, body)
	}

	cw := &countingWriter{w: w}
	stats = &DumpStats{DumpID: uuid.NewString(), Documents: len(bodies)}

	switch format {
	case DumpFormatJSONL:
		for _, body := range bodies {
			if _, err := cw.Write(append(body, '\n')); err != nil {
				return nil, fmt.Errorf("failed to write dump: %w", err)
			}
		}
	default:
		out := dumpFile{
			Metadata: DumpMetadata{
				DumpID:         stats.DumpID,
				BackupDate:     time.Now().UTC().Format(time.RFC3339),
				SourceDatabase: c.handle.Path(),
				RecordCount:    len(bodies),
				BackupVersion:  DumpVersion,
				Codec:          c.codec.Name(),
			},
			Records: bodies,
		}
		enc := json.NewEncoder(cw)
		if opts.Indent {
			enc.SetIndent("", "  ")
		}
		if err := enc.Encode(out); err != nil {
			return nil, fmt.Errorf("failed to write dump: %w", err)
		}
	}

	stats.BytesWritten = cw.n
	c.logger.Info("dump written", "format", format, "documents", stats.Documents, "bytes", stats.BytesWritten)
	return stats, nil
}

// LoadOptions defines options for data import
type LoadOptions struct {
	Format DumpFormat // Import format
	Purge  bool       // Delete existing documents first
}

// LoadStats provides statistics about the import operation
type LoadStats struct {
	Documents int           `json:"documents" yaml:"documents"`
	Purged    int64         `json:"purged" yaml:"purged"`
	FirstID   int64         `json:"first_id" yaml:"first_id"`
	LastID    int64         `json:"last_id" yaml:"last_id"`
	Metadata  *DumpMetadata `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Load reads documents from r and inserts them. A JSON input is either a
// dump written by Dump or a bare array of documents. The import is one
// transaction; with opts.Purge the existing documents are deleted in the
// same transaction.
func (c *Collection) Load(ctx context.Context, r io.Reader, opts LoadOptions) (stats *LoadStats, err error) {
	defer c.track("load", time.Now(), &err)

	format, err := ParseDumpFormat(string(opts.Format))
	if err != nil {
		return nil, err
	}

	stats = &LoadStats{}
	var raw []json.RawMessage
	switch format {
	case DumpFormatJSONL:
		raw, err = readLines(r)
	default:
		raw, stats.Metadata, err = readDump(r)
	}
	if err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(raw))
	for i, msg := range raw {
		doc, err := c.codec.Decode(msg)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %w", ErrInvalidDocument, i, err)
		}
		docs = append(docs, doc)
	}

	var ids []int64
	err = c.handle.Tx(ctx, func(q sqlite.Querier) error {
		bodies, err := c.encodeAll(docs)
		if err != nil {
			return err
		}
		if opts.Purge {
			result, err := q.ExecContext(ctx, purgeSQL)
			if err != nil {
				return sqlite.ExecutionError(err)
			}
			if stats.Purged, err = result.RowsAffected(); err != nil {
				return sqlite.ExecutionError(err)
			}
		}
		ids, err = insertBodies(ctx, q, bodies)
		return err
	})
	if err != nil {
		return nil, err
	}

	stats.Documents = len(ids)
	if len(ids) > 0 {
		stats.FirstID, stats.LastID = ids[0], ids[len(ids)-1]
	}
	c.logger.Info("dump loaded", "format", format, "documents", stats.Documents, "purged", stats.Purged)
	return stats, nil
}

// DumpToFile exports data to a file, replacing it if it exists
func (c *Collection) DumpToFile(ctx context.Context, path string, opts DumpOptions) (*DumpStats, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, wrapError("dump", fmt.Errorf("failed to create file: %w", err))
	}

	stats, err := c.Dump(ctx, file, opts)
	if closeErr := file.Close(); err == nil && closeErr != nil {
		err = wrapError("dump", closeErr)
	}
	if err != nil {
		// Remove partial file on error
		_ = os.Remove(path)
		return nil, err
	}
	return stats, nil
}

// LoadFromFile imports data from a file
func (c *Collection) LoadFromFile(ctx context.Context, path string, opts LoadOptions) (*LoadStats, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, wrapError("load", fmt.Errorf("failed to open file: %w", err))
	}
	defer func() { _ = file.Close() }()

	return c.Load(ctx, file, opts)
}

func readDump(r io.Reader) ([]json.RawMessage, *DumpMetadata, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read dump: %w", err)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var records []json.RawMessage
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		}
		return records, nil, nil
	}

	var dump struct {
		Metadata *DumpMetadata     `json:"metadata"`
		Records  []json.RawMessage `json:"records"`
	}
	if err := json.Unmarshal(trimmed, &dump); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	if dump.Records == nil {
		return nil, nil, fmt.Errorf("%w: dump has no records array", ErrInvalidDocument)
	}
	return dump.Records, dump.Metadata, nil
}

func readLines(r io.Reader) ([]json.RawMessage, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	var records []json.RawMessage
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		records = append(records, json.RawMessage(bytes.Clone(line)))
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, fmt.Errorf("%w: line exceeds maximum size", ErrInvalidDocument)
		}
		return nil, fmt.Errorf("failed to read dump: %w", err)
	}
	return records, nil
}

// countingWriter counts the bytes written through it.
type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
