package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/CTAG07/charkov/pkg/corpus"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// app carries the state shared by every subcommand of a single invocation.
type app struct {
	configPath string
	dbPath     string
	logLevel   string

	config *Config
	logger *slog.Logger
	db     *sql.DB
	store  *corpus.Store

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// run executes one command line and releases the database afterwards.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	defer a.close()

	root := newRootCmd(a)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRootCmd(a *app) *cobra.Command {

	root := &cobra.Command{
		Use:           "charkov",
		Short:         "Character-level Markov text generator",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file path (.json or .toml)")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "sqlite database path")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newGenerateCmd(a),
		newCorpusCmd(a),
		newRunsCmd(a),
		newStatsCmd(a),
		newDumpCmd(a),
		newServeCmd(a),
		newConfigCmd(a),
	)
	return root
}

// setup loads the environment and config file, then applies flag overrides.
func (a *app) setup(cmd *cobra.Command) error {
	bootLogger := slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	loadDotEnv(bootLogger)

	path := a.configPath
	if path == "" {
		path = getEnv("CONFIG", DefaultConfigPath())
		a.configPath = path
	}
	config, err := LoadConfig(path)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	applyEnv(config, bootLogger)

	if cmd.Flags().Changed("db") {
		config.Server.DatabasePath = a.dbPath
	}
	if cmd.Flags().Changed("log-level") {
		config.Server.LogLevel = a.logLevel
	}
	a.config = config

	// Logs go to stderr so generated text on stdout stays clean.
	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: parseLogLevel(config.Server.LogLevel)}))
	a.logger.Debug("Configuration loaded", "path", path, "database", config.Server.DatabasePath)
	return nil
}

// openStore opens the database and prepares the corpus store on first use.
func (a *app) openStore() (*corpus.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	db, err := initDB(a.config.Server.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err = corpus.SetupSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to setup corpus schema: %w", err)
	}
	store, err := corpus.NewStore(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	store.SetLogger(a.logger)
	a.db = db
	a.store = store
	return store, nil
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
		a.store = nil
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil && a.logger != nil {
			a.logger.Error("Failed to close database", "error", err)
		}
		a.db = nil
	}
}

// ensureDBDir creates the parent directory of a file-backed database.
func ensureDBDir(dataSource string) error {
	if dataSource == "" || dataSource == ":memory:" || strings.HasPrefix(dataSource, "file:") {
		return nil
	}
	dir := filepath.Dir(dataSource)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target *string, value string) {
	if cmd.Flags().Changed(name) {
		return
	}
	*target = value
}

func applyIntConfig(cmd *cobra.Command, name string, target *int, value int) {
	if cmd.Flags().Changed(name) {
		return
	}
	*target = value
}

func applyBoolConfig(cmd *cobra.Command, name string, target *bool, value bool) {
	if cmd.Flags().Changed(name) {
		return
	}
	*target = value
}
