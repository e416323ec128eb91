package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestDumpJSON(t *testing.T) {
	ctx := context.Background()
	c := newTestCollection(t)
	seedPeople(t, c)

	var buf bytes.Buffer
	stats, err := c.Dump(ctx, &buf, DefaultDumpOptions())
	if err != nil {
		t.Fatalf("Dump() error = %v", err)
	}
	if stats.Documents != 5 || stats.BytesWritten != int64(buf.Len()) || stats.DumpID == "" {
		t.Errorf("Dump() stats = %+v, buffer %d bytes", stats, buf.Len())
	}

	var out struct {
		Metadata DumpMetadata     `json:"metadata"`
		Records  []map[string]any `json:"records"`
	}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("dump is not valid JSON: %v", err)
	}
	md := out.Metadata
	if md.RecordCount != 5 || md.BackupVersion != DumpVersion || md.DumpID != stats.DumpID || md.SourceDatabase != MemoryPath {
		t.Errorf("metadata = %+v", md)
	}
	if len(out.Records) != 5 || out.Records[0]["name"] != "Alice" {
		t.Errorf("records = %v", out.Records)
	}
}

func TestDumpFiltered(t *testing.T) {
	ctx := context.Background()
	c := newTestCollection(t)
	seedPeople(t, c)

	var buf bytes.Buffer
	stats, err := c.Dump(ctx, &buf, DumpOptions{Format: DumpFormatJSONL, Filter: Equality{"city": "Oslo"}})
	if err != nil {
		t.Fatalf("Dump() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if stats.Documents != 2 || len(lines) != 2 {
		t.Fatalf("Dump() wrote %d lines, stats %+v", len(lines), stats)
	}
	if !strings.Contains(lines[0], `"name":"Alice"`) {
		t.Errorf("first line = %s", lines[0])
	}
}

func TestDumpLoadRoundTrip(t *testing.T) {
	ctx := context.Background()

	for _, format := range []DumpFormat{DumpFormatJSON, DumpFormatJSONL} {
		t.Run(string(format), func(t *testing.T) {
			src := newTestCollection(t)
			seedPeople(t, src)
			mustInsert(t, src, Document{"nested": map[string]any{"list": []any{1, "two", nil}}, "huge": uint64(1) << 63})

			var buf bytes.Buffer
			if _, err := src.Dump(ctx, &buf, DumpOptions{Format: format}); err != nil {
				t.Fatalf("Dump() error = %v", err)
			}

			dst := newTestCollection(t)
			stats, err := dst.Load(ctx, &buf, LoadOptions{Format: format})
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if stats.Documents != 6 || stats.FirstID != 1 || stats.LastID != 6 {
				t.Errorf("Load() stats = %+v", stats)
			}
			if format == DumpFormatJSON && (stats.Metadata == nil || stats.Metadata.RecordCount != 6) {
				t.Errorf("Load() metadata = %+v", stats.Metadata)
			}

			want := mustCollect(t)(src.All(ctx))
			got := mustCollect(t)(dst.All(ctx))
			if !reflect.DeepEqual(got, want) {
				t.Errorf("loaded documents = %v, want %v", got, want)
			}
		})
	}
}

func TestLoadPurge(t *testing.T) {
	ctx := context.Background()
	c := newTestCollection(t)
	seedPeople(t, c)

	input := `[{"name":"Zed"},{"name":"Yan"}]`
	stats, err := c.Load(ctx, strings.NewReader(input), LoadOptions{Purge: true})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if stats.Purged != 5 || stats.Documents != 2 || stats.Metadata != nil {
		t.Errorf("Load() stats = %+v", stats)
	}
	if n, _ := c.Count(ctx, nil); n != 2 {
		t.Errorf("Count() = %d, want 2", n)
	}
}

func TestLoadRejectsBadInputAtomically(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		format DumpFormat
		input  string
	}{
		{"not json", DumpFormatJSON, "{"},
		{"no records", DumpFormatJSON, `{"metadata":{}}`},
		{"record not an object", DumpFormatJSON, `{"records":[{"a":1},[1,2]]}`},
		{"bad line", DumpFormatJSONL, "{\"a\":1}\n{oops}\n"},
		{"scalar line", DumpFormatJSONL, "{\"a\":1}\n42\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCollection(t)
			mustInsert(t, c, Document{"keep": true})

			_, err := c.Load(ctx, strings.NewReader(tt.input), LoadOptions{Format: tt.format, Purge: true})
			if !errors.Is(err, ErrInvalidDocument) {
				t.Fatalf("Load() error = %v, want ErrInvalidDocument", err)
			}
			if n, _ := c.Count(ctx, nil); n != 1 {
				t.Errorf("Count() = %d after failed load, want 1", n)
			}
		})
	}

	c := newTestCollection(t)
	if _, err := c.Load(ctx, strings.NewReader("[]"), LoadOptions{Format: "csv"}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Load(csv) error = %v, want ErrInvalidArgument", err)
	}
}

func TestDumpAndLoadFiles(t *testing.T) {
	ctx := context.Background()
	c := newTestCollection(t)
	seedPeople(t, c)

	path := filepath.Join(t.TempDir(), "people.jsonl")
	format := FormatFromPath(path)
	if format != DumpFormatJSONL {
		t.Fatalf("FormatFromPath() = %q", format)
	}
	if _, err := c.DumpToFile(ctx, path, DumpOptions{Format: format}); err != nil {
		t.Fatalf("DumpToFile() error = %v", err)
	}

	dst := newTestCollection(t)
	stats, err := dst.LoadFromFile(ctx, path, LoadOptions{Format: format})
	if err != nil || stats.Documents != 5 {
		t.Fatalf("LoadFromFile() = %+v, %v", stats, err)
	}

	if _, err := dst.LoadFromFile(ctx, filepath.Join(t.TempDir(), "missing.json"), LoadOptions{}); err == nil {
		t.Error("LoadFromFile(missing) should fail")
	}
}

func TestParseDumpFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    DumpFormat
		wantErr bool
	}{
		{"", DumpFormatJSON, false},
		{"JSON", DumpFormatJSON, false},
		{"jsonl", DumpFormatJSONL, false},
		{"ndjson", DumpFormatJSONL, false},
		{"csv", "", true},
	}
	for _, tt := range tests {
		got, err := ParseDumpFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseDumpFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}
