package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TMind/SolMDb/internal/analysis"
	"github.com/TMind/SolMDb/internal/api"
	"github.com/TMind/SolMDb/internal/api/handlers"
	"github.com/TMind/SolMDb/internal/deck"
	"github.com/TMind/SolMDb/internal/deckimport"
	"github.com/TMind/SolMDb/internal/deckwatch"
	"github.com/TMind/SolMDb/internal/events"
	"github.com/TMind/SolMDb/internal/storage"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func closeStore(store *storage.Service) {
	if err := store.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}
}

// loadVariants reads a deck document and returns its variants, or only the
// named one.
func loadVariants(path, name string) ([]deck.Variant, error) {
	doc, err := deckimport.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return doc.Variants()
	}
	v, err := doc.Variant(name)
	if err != nil {
		return nil, err
	}
	return []deck.Variant{v}, nil
}

func (a *app) analyze(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	name := fs.String("deck", "", "Analyze only this deck or fusion")
	store := fs.Bool("store", false, "Store decks and reports in the database")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: solmdb analyze [-deck name] [-store] <file>")
	}

	variants, err := loadVariants(fs.Arg(0), *name)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	if !*store {
		svc, err := a.newService(nil)
		if err != nil {
			return err
		}
		reports, err := svc.AnalyzeAll(ctx, variants)
		if err != nil {
			return err
		}
		return printJSON(reports)
	}

	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	svc, err := a.newService(st)
	if err != nil {
		return err
	}
	reports := make([]*analysis.Report, 0, len(variants))
	for _, v := range variants {
		r, err := svc.AnalyzeAndStore(ctx, v)
		if err != nil {
			return err
		}
		reports = append(reports, r)
	}
	return printJSON(reports)
}

func (a *app) importDecks(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: solmdb import <file>")
	}
	variants, err := loadVariants(args[0], "")
	if err != nil {
		return err
	}

	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	ctx := context.Background()
	names := make([]string, 0, len(variants))
	for _, v := range variants {
		m, err := analysis.DeckModel(v)
		if err != nil {
			return err
		}
		if err := st.SaveDeck(ctx, m); err != nil {
			return err
		}
		names = append(names, m.Name)
	}
	a.logger.Info("decks imported", slog.Int("count", len(names)))
	return printJSON(names)
}

func (a *app) serve(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	port := fs.Int("port", a.cfg.Server.Port, "API server port")
	noDB := fs.Bool("no-db", false, "Serve without a database; stored deck routes are disabled")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		store     handlers.DeckStore
		analyzeTo analysis.Store
	)
	if !*noDB {
		st, err := a.openStore()
		if err != nil {
			return err
		}
		defer closeStore(st)
		store, analyzeTo = st, st
	}

	svc, err := a.newService(analyzeTo)
	if err != nil {
		return err
	}

	apiCfg := api.DefaultConfig()
	apiCfg.Port = *port
	apiCfg.RateLimit = a.cfg.Server.RateLimit
	apiCfg.RateBurst = a.cfg.Server.RateBurst
	if len(a.cfg.Server.AllowedOrigins) > 0 {
		apiCfg.AllowedOrigins = a.cfg.Server.AllowedOrigins
	}
	server := api.NewServer(apiCfg, svc, store, a.logger)

	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}
	fmt.Printf("API server running at http://localhost:%d\n", server.Port())
	fmt.Println("Press Ctrl+C to stop")

	ctx, cancel := signalContext()
	defer cancel()
	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
	fmt.Println("API server stopped.")
	return nil
}

func (a *app) watch(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	store := fs.Bool("store", false, "Store decks and reports in the database")
	if err := fs.Parse(args); err != nil {
		return err
	}

	dir := a.cfg.Watch.Dir
	if fs.NArg() > 0 {
		dir = fs.Arg(0)
	}
	if dir == "" {
		return errors.New("usage: solmdb watch [-store] <dir> (or set watch.dir)")
	}
	debounce, err := a.cfg.GetWatchDebounce()
	if err != nil {
		return err
	}

	var analyzeTo analysis.Store
	if *store {
		st, err := a.openStore()
		if err != nil {
			return err
		}
		defer closeStore(st)
		analyzeTo = st
	}
	svc, err := a.newService(analyzeTo)
	if err != nil {
		return err
	}

	dispatcher := events.NewDispatcher(a.logger)
	dispatcher.Register(events.NewJSONObserver(os.Stdout))
	dispatcher.Register(events.NewLoggingObserver(a.logger))

	w, err := deckwatch.New(dir, svc, nil, deckwatch.Options{
		Debounce:    debounce,
		InitialScan: true,
		Persist:     *store,
		Events:      dispatcher,
		Logger:      a.logger,
	})
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (a *app) synergies() error {
	reg, err := a.registry()
	if err != nil {
		return err
	}
	rules := reg.Rules()
	out := make([]handlers.RuleView, 0, len(rules))
	for _, r := range rules {
		out = append(out, handlers.RuleView{
			Name:    r.Name,
			Weight:  r.Weight,
			Sources: r.SourceTags,
			Targets: r.TargetTags,
		})
	}
	return printJSON(out)
}
