package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/liliang-cn/sagittadb"
	"github.com/liliang-cn/sagittadb/pkg/core"
)

func (a *app) insertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "insert [document-json...]",
		Short: "Insert documents",
		Long: `Insert one document per argument. Without arguments, documents are
read from stdin as a JSON object, a JSON array of objects, or JSON Lines.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCollection(cmd, func(c *core.Collection) error {
				var raw [][]byte
				for _, arg := range args {
					raw = append(raw, []byte(arg))
				}
				if len(args) == 0 {
					var err error
					if raw, err = readDocuments(a.in); err != nil {
						return err
					}
				}

				docs := make([]core.Document, 0, len(raw))
				for i, r := range raw {
					doc, err := c.Codec().Decode(r)
					if err != nil {
						return fmt.Errorf("document %d is not a JSON object: %w", i, err)
					}
					docs = append(docs, doc)
				}

				ids, err := c.InsertMany(cmd.Context(), slices.Values(docs))
				if err != nil {
					return err
				}
				return a.print(map[string]any{"ids": ids})
			})
		},
	}
}

func (a *app) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a document by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", args[0], err)
			}
			return a.withCollection(cmd, func(c *core.Collection) error {
				doc, err := c.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				return a.print(doc)
			})
		},
	}
}

func (a *app) searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [filter-json]",
		Short: "Search documents whose fields equal the filter values",
		Example: `  sagitta search '{"city":"Oslo","age":30}'
  sagitta search '{"deleted":null}' --limit 10`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := parseFilter(args)
			if err != nil {
				return err
			}
			return a.withCollection(cmd, func(c *core.Collection) error {
				docs, err := c.Search(cmd.Context(), filter, a.pageOptions(cmd)...)
				if err != nil {
					return err
				}
				return a.printDocuments(docs)
			})
		},
	}
	addPageFlags(cmd)
	return cmd
}

func (a *app) patternCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "pattern <field> <regexp>",
		Short:   "Search documents whose field matches a regular expression",
		Example: `  sagitta pattern name '^Ali'`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCollection(cmd, func(c *core.Collection) error {
				docs, err := c.SearchPattern(cmd.Context(), args[0], args[1], a.pageOptions(cmd)...)
				if err != nil {
					return err
				}
				return a.printDocuments(docs)
			})
		},
	}
	addPageFlags(cmd)
	return cmd
}

func (a *app) findAnyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "find-any <field> <values-json-array>",
		Short:   "Search documents whose field equals any of the values",
		Example: `  sagitta find-any city '["Oslo","Paris"]'`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var values []any
			dec := json.NewDecoder(bytes.NewReader([]byte(args[1])))
			dec.UseNumber()
			if err := dec.Decode(&values); err != nil {
				return fmt.Errorf("values must be a JSON array: %w", err)
			}
			return a.withCollection(cmd, func(c *core.Collection) error {
				docs, err := c.FindAny(cmd.Context(), args[0], values, a.pageOptions(cmd)...)
				if err != nil {
					return err
				}
				return a.printDocuments(docs)
			})
		},
	}
	addPageFlags(cmd)
	return cmd
}

func (a *app) countCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count [filter-json]",
		Short: "Count documents matching the filter",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := parseFilter(args)
			if err != nil {
				return err
			}
			return a.withCollection(cmd, func(c *core.Collection) error {
				n, err := c.Count(cmd.Context(), filter)
				if err != nil {
					return err
				}
				return a.print(map[string]any{"count": n})
			})
		},
	}
}

func (a *app) aggregateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aggregate <count|sum|avg|min|max> [field]",
		Short: "Aggregate a numeric field, optionally grouped by another field",
		Example: `  sagitta aggregate count --group-by city
  sagitta aggregate avg age --filter '{"active":true}'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			typ, err := core.ParseAggregationType(args[0])
			if err != nil {
				return err
			}
			req := core.AggregationRequest{Type: typ}
			if len(args) == 2 {
				req.Field = args[1]
			}
			req.GroupBy, _ = cmd.Flags().GetString("group-by")
			raw, _ := cmd.Flags().GetString("filter")
			if req.Filter, err = parseFilter([]string{raw}); err != nil {
				return err
			}
			return a.withCollection(cmd, func(c *core.Collection) error {
				results, err := c.Aggregate(cmd.Context(), req)
				if err != nil {
					return err
				}
				return a.print(results)
			})
		},
	}
	cmd.Flags().String("group-by", "", "Field to group by")
	cmd.Flags().String("filter", "", "Aggregate only documents matching this filter JSON")
	return cmd
}

func (a *app) allCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "all",
		Short: "List documents in id order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCollection(cmd, func(c *core.Collection) error {
				withIDs, _ := cmd.Flags().GetBool("ids")
				if !withIDs {
					docs, err := c.All(cmd.Context(), a.pageOptions(cmd)...)
					if err != nil {
						return err
					}
					return a.printDocuments(docs)
				}

				records, err := c.Records(cmd.Context(), a.pageOptions(cmd)...)
				if err != nil {
					return err
				}
				out := []map[string]any{}
				for id, doc := range records {
					out = append(out, map[string]any{"id": id, "document": doc})
				}
				return a.print(out)
			})
		},
	}
	addPageFlags(cmd)
	cmd.Flags().Bool("ids", false, "Include document ids")
	return cmd
}

func (a *app) updateCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "update <filter-json> <changes-json>",
		Short:   "Merge changes into every matching document",
		Example: `  sagitta update '{"name":"Alice"}' '{"age":31}'`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := parseFilter(args[:1])
			if err != nil {
				return err
			}
			changes, err := core.JSONCodec{}.Decode([]byte(args[1]))
			if err != nil {
				return fmt.Errorf("changes must be a JSON object: %w", err)
			}
			return a.withCollection(cmd, func(c *core.Collection) error {
				n, err := c.Update(cmd.Context(), filter, changes)
				if err != nil {
					return err
				}
				return a.print(map[string]any{"updated": n})
			})
		},
	}
}

func (a *app) removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <filter-json>",
		Short: "Remove every matching document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := parseFilter(args)
			if err != nil {
				return err
			}
			return a.withCollection(cmd, func(c *core.Collection) error {
				n, err := c.Remove(cmd.Context(), filter)
				if err != nil {
					return err
				}
				return a.print(map[string]any{"removed": n})
			})
		},
	}
}

func (a *app) purgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Remove every document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if force, _ := cmd.Flags().GetBool("force"); !force {
				return errors.New("purge deletes every document, pass --force to confirm")
			}
			return a.withCollection(cmd, func(c *core.Collection) error {
				n, err := c.Purge(cmd.Context())
				if err != nil {
					return err
				}
				return a.print(map[string]any{"removed": n})
			})
		},
	}
	cmd.Flags().Bool("force", false, "Confirm deleting every document")
	return cmd
}

func (a *app) indexCmd() *cobra.Command {
	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Manage field indexes",
	}

	createCmd := &cobra.Command{
		Use:   "create <field>",
		Short: "Create an index on a field",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCollection(cmd, func(c *core.Collection) error {
				if err := c.CreateIndex(cmd.Context(), args[0]); err != nil {
					return err
				}
				return a.print(map[string]any{"created": args[0]})
			})
		},
	}

	dropCmd := &cobra.Command{
		Use:   "drop <field>",
		Short: "Drop the index on a field",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCollection(cmd, func(c *core.Collection) error {
				if err := c.DropIndex(cmd.Context(), args[0]); err != nil {
					return err
				}
				return a.print(map[string]any{"dropped": args[0]})
			})
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List field indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCollection(cmd, func(c *core.Collection) error {
				indexes, err := c.Indexes(cmd.Context())
				if err != nil {
					return err
				}
				return a.print(indexes)
			})
		},
	}

	indexCmd.AddCommand(createCmd, dropCmd, listCmd)
	return indexCmd
}

func (a *app) exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <file|->",
		Short: "Export documents as JSON or JSON Lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := dumpOptions(cmd, args[0])
			if err != nil {
				return err
			}
			return a.withCollection(cmd, func(c *core.Collection) error {
				if args[0] == "-" {
					_, err := c.Dump(cmd.Context(), a.out, opts)
					return err
				}
				stats, err := c.DumpToFile(cmd.Context(), args[0], opts)
				if err != nil {
					return err
				}
				return a.print(stats)
			})
		},
	}
	cmd.Flags().String("format", "", "json or jsonl (default from file extension)")
	cmd.Flags().String("filter", "", "Export only documents matching this filter JSON")
	return cmd
}

func (a *app) importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Import documents from a JSON dump or JSON Lines file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := formatFlag(cmd, args[0])
			if err != nil {
				return err
			}
			purge, _ := cmd.Flags().GetBool("purge")
			opts := core.LoadOptions{Format: format, Purge: purge}

			return a.withCollection(cmd, func(c *core.Collection) error {
				var stats *core.LoadStats
				if args[0] == "-" {
					stats, err = c.Load(cmd.Context(), a.in, opts)
				} else {
					stats, err = c.LoadFromFile(cmd.Context(), args[0], opts)
				}
				if err != nil {
					return err
				}
				return a.print(stats)
			})
		},
	}
	cmd.Flags().String("format", "", "json or jsonl (default from file extension)")
	cmd.Flags().Bool("purge", false, "Delete existing documents before importing")
	return cmd
}

func (a *app) backupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup <dest>",
		Short: "Write a consistent copy of the database file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCollection(cmd, func(c *core.Collection) error {
				if err := c.Backup(cmd.Context(), args[0]); err != nil {
					return err
				}
				return a.print(map[string]any{"backup": args[0]})
			})
		},
	}
}

func (a *app) statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show collection statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCollection(cmd, func(c *core.Collection) error {
				stats, err := c.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if prom, _ := cmd.Flags().GetBool("prometheus"); prom {
					c.WritePrometheus(a.out)
					return nil
				}
				return a.print(stats)
			})
		},
	}
	cmd.Flags().Bool("prometheus", false, "Print operation metrics in Prometheus text format")
	return cmd
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(a.out, "sagitta %s\n", sagittadb.Version)
			return err
		},
	}
}

func addPageFlags(cmd *cobra.Command) {
	cmd.Flags().Int("limit", -1, "Maximum number of documents (-1 for no limit)")
	cmd.Flags().Int("offset", 0, "Number of matching documents to skip")
}

func (a *app) pageOptions(cmd *cobra.Command) []core.QueryOption {
	var opts []core.QueryOption
	if limit, _ := cmd.Flags().GetInt("limit"); limit >= 0 {
		opts = append(opts, core.WithLimit(limit))
	}
	if offset, _ := cmd.Flags().GetInt("offset"); offset != 0 {
		opts = append(opts, core.WithOffset(offset))
	}
	return opts
}

// parseFilter decodes an optional filter argument into an Equality.
func parseFilter(args []string) (core.Equality, error) {
	if len(args) == 0 || args[0] == "" {
		return core.Equality{}, nil
	}
	doc, err := core.JSONCodec{}.Decode([]byte(args[0]))
	if err != nil {
		return nil, fmt.Errorf("filter must be a JSON object: %w", err)
	}
	return core.Equality(doc), nil
}

func formatFlag(cmd *cobra.Command, path string) (core.DumpFormat, error) {
	name, _ := cmd.Flags().GetString("format")
	if name == "" {
		return core.FormatFromPath(path), nil
	}
	return core.ParseDumpFormat(name)
}

func dumpOptions(cmd *cobra.Command, path string) (core.DumpOptions, error) {
	format, err := formatFlag(cmd, path)
	if err != nil {
		return core.DumpOptions{}, err
	}
	opts := core.DefaultDumpOptions()
	opts.Format = format
	if raw, _ := cmd.Flags().GetString("filter"); raw != "" {
		if opts.Filter, err = parseFilter([]string{raw}); err != nil {
			return core.DumpOptions{}, err
		}
	}
	return opts, nil
}

// readDocuments splits stdin into raw documents. It accepts one object, an
// array of objects or JSON Lines.
func readDocuments(r io.Reader) ([][]byte, error) {
	data, err := io.ReadAll(bufio.NewReader(r))
	if err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	if data[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("invalid JSON array: %w", err)
		}
		out := make([][]byte, len(items))
		for i, item := range items {
			out[i] = item
		}
		return out, nil
	}

	var out [][]byte
	dec := json.NewDecoder(bytes.NewReader(data))
	for {
		var item json.RawMessage
		if err := dec.Decode(&item); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return nil, fmt.Errorf("invalid JSON input: %w", err)
		}
		out = append(out, item)
	}
}

// printDocuments prints a query result as one list.
func (a *app) printDocuments(docs iter.Seq[core.Document]) error {
	out := slices.Collect(docs)
	if out == nil {
		out = []core.Document{}
	}
	return a.print(out)
}
