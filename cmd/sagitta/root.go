package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/liliang-cn/sagittadb/pkg/core"
)

const envPrefix = "sagitta"

// app carries the state shared by all commands of one invocation.
type app struct {
	v      *viper.Viper
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	logger *slog.Logger
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	a := &app{v: viper.New(), in: in, out: out, errOut: errOut}

	rootCmd := &cobra.Command{
		Use:   "sagitta",
		Short: "CLI tool for the sagittadb document store",
		Long: `A command-line interface for storing and querying JSON documents
in a SQLite-backed sagittadb collection.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("db", "sagitta.db", "Database file path, or :memory:")
	flags.String("log-level", "warn", "Log level: debug, info, warn or error")
	flags.StringP("output", "o", "json", "Output format: json or yaml")
	flags.String("codec", "std", "Document codec: std or fast")
	flags.Duration("busy-timeout", core.DefaultConfig().BusyTimeout, "How long to wait on a locked database")

	rootCmd.AddCommand(
		a.insertCmd(),
		a.getCmd(),
		a.searchCmd(),
		a.patternCmd(),
		a.findAnyCmd(),
		a.countCmd(),
		a.aggregateCmd(),
		a.allCmd(),
		a.updateCmd(),
		a.removeCmd(),
		a.purgeCmd(),
		a.indexCmd(),
		a.exportCmd(),
		a.importCmd(),
		a.backupCmd(),
		a.statsCmd(),
		a.versionCmd(),
	)
	return rootCmd
}

// init loads .env files, binds flags and environment into viper and builds
// the logger.
func (a *app) init(cmd *cobra.Command) error {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	switch a.v.GetString("output") {
	case "json", "yaml":
	default:
		return fmt.Errorf("invalid output format %q", a.v.GetString("output"))
	}

	a.logger = newLogger(a.errOut, core.ParseLogLevel(a.v.GetString("log-level")).SlogLevel())
	return nil
}

// newLogger writes colored logs when w is a terminal.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd())
		w = colorable.NewColorable(f)
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    noColor,
	}))
}

// open opens the collection named by the db flag.
func (a *app) open(cmd *cobra.Command) (*core.Collection, error) {
	codec, err := core.CodecByName(a.v.GetString("codec"))
	if err != nil {
		return nil, err
	}

	config := core.DefaultConfig()
	config.Path = a.v.GetString("db")
	config.BusyTimeout = a.v.GetDuration("busy-timeout")
	config.Codec = codec
	config.Logger = core.NewSlogLogger(a.logger)

	c, err := core.Open(cmd.Context(), config)
	if err != nil {
		return nil, fmt.Errorf("failed to open collection: %w", err)
	}
	return c, nil
}

// withCollection opens the collection, runs fn and closes it.
func (a *app) withCollection(cmd *cobra.Command, fn func(c *core.Collection) error) error {
	c, err := a.open(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			a.logger.Warn("failed to close collection", "error", err)
		}
	}()
	return fn(c)
}
