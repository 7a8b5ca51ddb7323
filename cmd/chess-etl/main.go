// Command chess-etl loads chess tournament games from PGN sources into a SQLite
// store and rebuilds the standings of every tournament it touches.
//
// Usage:
//
//	chess-etl ingest --sources sources.json --db chess.db
//	chess-etl rebuild "Sinquefield Cup 2024"
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"chess-etl/internal/config"
	"chess-etl/internal/db"
	"chess-etl/internal/ingest"
	"chess-etl/internal/ipc"
	"chess-etl/internal/logger"
	"chess-etl/internal/sources"
)

const (
	exitSuccess = 0
	exitFailure = 1
)

type options struct {
	envFile     string
	dbPath      string
	driver      string
	sourcesPath string
	pgnDir      string
	httpTimeout time.Duration
	logMode     string
	ndjson      bool
}

func main() {
	// Setup context with cancellation
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		cancel()
		os.Exit(exitFailure)
	}
	os.Exit(exitSuccess)
}

func rootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:          "chess-etl",
		Short:        "Chess tournament PGN importer",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, opts)
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&opts.envFile, "env", "", "Path to a .env file (default: ./.env if present)")
	f.StringVar(&opts.dbPath, "db", "", "Path to the SQLite database (env CHESS_DB_PATH)")
	f.StringVar(&opts.driver, "driver", "", "Database driver: 'sqlite' or 'sqlite3' (env CHESS_DB_DRIVER)")
	f.StringVar(&opts.sourcesPath, "sources", "", "Path to the sources document (env CHESS_SOURCES)")
	f.StringVar(&opts.pgnDir, "pgn-dir", "", "Directory scanned for .pgn files (env CHESS_PGN_DIR)")
	f.DurationVar(&opts.httpTimeout, "http-timeout", 0, "Timeout for remote sources, 0 = none (env CHESS_HTTP_TIMEOUT)")
	f.StringVar(&opts.logMode, "log-mode", "", "Log format: 'dev' or 'prod' (env LOG_MODE)")
	f.BoolVar(&opts.ndjson, "ndjson", false, "Emit NDJSON run events on stdout")

	root.AddCommand(ingestCmd(opts))
	root.AddCommand(rebuildCmd(opts))
	return root
}

func ingestCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Import every configured PGN source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, opts)
		},
	}
}

func rebuildCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild <tournament>",
		Short: "Recompute the standings of one tournament",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRebuild(cmd, opts, args[0])
		},
	}
}

// setup loads configuration, applies flag overrides and opens the store.
func setup(ctx context.Context, opts *options) (*config.Config, *logger.Logger, *ingest.Pipeline, func(), error) {
	cfg, err := config.Load(opts.envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return nil, nil, nil, nil, err
	}
	if opts.dbPath != "" {
		cfg.DBPath = opts.dbPath
	}
	if opts.driver != "" {
		cfg.DBDriver = opts.driver
	}
	if opts.sourcesPath != "" {
		cfg.SourcesPath = opts.sourcesPath
	}
	if opts.pgnDir != "" {
		cfg.PGNDir = opts.pgnDir
	}
	if opts.httpTimeout != 0 {
		cfg.HTTPTimeout = opts.httpTimeout
	}
	if opts.logMode != "" {
		cfg.LogMode = opts.logMode
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to build logger: %v\n", err)
		return nil, nil, nil, nil, err
	}

	log.Info("opening database", "path", cfg.DBPath, "driver", cfg.DBDriver)
	conn, err := db.Open(ctx, cfg.DBDriver, cfg.DBPath)
	if err != nil {
		log.Error("failed to open database", "error", err)
		log.Sync()
		return nil, nil, nil, nil, err
	}

	out := ipc.Discard()
	if opts.ndjson {
		out = ipc.NewOutput(os.Stdout)
	}

	p := ingest.NewPipeline(conn, sources.NewLoader(cfg.HTTPTimeout), log, out)
	cleanup := func() {
		conn.Close()
		log.Sync()
	}
	return cfg, log, p, cleanup, nil
}

func runIngest(cmd *cobra.Command, opts *options) error {
	ctx := cmd.Context()
	cfg, log, p, cleanup, err := setup(ctx, opts)
	if err != nil {
		return err
	}
	defer cleanup()

	doc, err := config.LoadSources(cfg.SourcesPath)
	if err != nil {
		log.Error("failed to load sources", "error", err)
		return err
	}
	srcs := sources.Resolve(doc, cfg.ResolvedPGNDir())
	log.Info("sources resolved", "urls", len(doc.URLs), "files", len(srcs)-len(doc.URLs))

	report, err := p.Run(ctx, srcs)
	if err != nil {
		log.Error("ingestion aborted", "error", err)
		return err
	}
	log.Info("done", "run_id", report.RunID, "tournaments", len(report.Tournaments))
	return nil
}

func runRebuild(cmd *cobra.Command, opts *options, name string) error {
	ctx := cmd.Context()
	_, log, p, cleanup, err := setup(ctx, opts)
	if err != nil {
		return err
	}
	defer cleanup()

	standings, err := p.Rebuild(ctx, name)
	if err != nil {
		log.Error("rebuild failed", "tournament", name, "error", err)
		return err
	}
	log.Info("standings rebuilt", "tournament", name, "players", len(standings))
	return nil
}
