// Package main is the SolMDb command line: analyze deck documents, store them,
// serve the REST API, or watch a directory of decks.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/TMind/SolMDb/internal/analysis"
	"github.com/TMind/SolMDb/internal/config"
	"github.com/TMind/SolMDb/internal/evaluation"
	"github.com/TMind/SolMDb/internal/storage"
	"github.com/TMind/SolMDb/internal/synergy"
	"github.com/TMind/SolMDb/internal/version"
)

var (
	configPath = flag.String("config", "", "Config file (default: ~/.solmdb/config.toml)")
	dbPath     = flag.String("db", "", "Database path (overrides storage.path)")
	debug      = flag.Bool("debug", false, "Enable debug logging")
	showVer    = flag.Bool("version", false, "Print the version and exit")
)

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintln(out, "Usage: solmdb [flags] <command> [args]")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  analyze <file>   Analyze every deck and fusion in a deck document")
	fmt.Fprintln(out, "  import <file>    Store every deck and fusion of a deck document")
	fmt.Fprintln(out, "  serve            Start the REST API server")
	fmt.Fprintln(out, "  watch [dir]      Re-analyze deck documents in dir when they change")
	fmt.Fprintln(out, "  synergies        Print the synergy rule table")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Flags:")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *showVer {
		fmt.Println("solmdb", version.GetVersion())
		return
	}
	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Invalid logging config: %v", err)
	}
	slog.SetDefault(logger)

	app := &app{cfg: cfg, logger: logger}

	cmd, args := flag.Arg(0), flag.Args()[1:]
	switch cmd {
	case "analyze":
		err = app.analyze(args)
	case "import":
		err = app.importDecks(args)
	case "serve":
		err = app.serve(args)
	case "watch":
		err = app.watch(args)
	case "synergies":
		err = app.synergies()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFrom(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if *dbPath != "" {
		cfg.Storage.Path = *dbPath
	}
	if *debug {
		cfg.App.DebugMode = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	level, err := cfg.GetLogLevel()
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}

// app holds what every command shares.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
}

func (a *app) registry() (*synergy.Registry, error) {
	if a.cfg.Registry.File == "" {
		return synergy.DefaultRegistry(), nil
	}
	data, err := os.ReadFile(a.cfg.Registry.File)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule table: %w", err)
	}
	return synergy.LoadRegistry(data)
}

func (a *app) params() evaluation.Params {
	e := a.cfg.Evaluation
	return evaluation.Params{
		PoolSize:   e.PoolSize,
		PoolShrink: e.PoolShrink,
		DrawSize:   e.DrawSize,
		Turns:      e.Turns,
	}
}

// openStore opens the configured database.
func (a *app) openStore() (*storage.Service, error) {
	path, err := a.cfg.GetStoragePath()
	if err != nil {
		return nil, err
	}
	dbCfg := storage.DefaultConfig(path)
	dbCfg.AutoMigrate = a.cfg.Storage.AutoMigrate
	db, err := storage.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.logger.Debug("database opened", slog.String("path", path))
	return storage.NewService(db), nil
}

// newService builds the analysis service. store may be nil.
func (a *app) newService(store analysis.Store) (*analysis.Service, error) {
	reg, err := a.registry()
	if err != nil {
		return nil, err
	}
	return analysis.NewService(reg, a.params(), analysis.Options{
		Workers: a.cfg.Analysis.Workers,
		Store:   store,
		Logger:  a.logger,
	})
}
