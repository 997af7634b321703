// Package deckwatch re-analyzes deck documents in a directory whenever they
// change on disk.
package deckwatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/TMind/SolMDb/internal/analysis"
	"github.com/TMind/SolMDb/internal/deckimport"
	"github.com/TMind/SolMDb/internal/events"
)

// DefaultDebounce is used when Options.Debounce is not positive.
const DefaultDebounce = 500 * time.Millisecond

// ResultFunc receives the outcome of processing one file. reports is nil when
// err is set.
type ResultFunc func(path string, reports []*analysis.Report, err error)

// Options configures a Watcher.
type Options struct {
	// Debounce is the quiet period after the last change before files are
	// processed.
	Debounce time.Duration

	// InitialScan processes every deck file already in the directory when
	// Run starts.
	InitialScan bool

	// Persist stores every analyzed variant through the analysis service.
	Persist bool

	// Events, when set, receives file:analyzed and file:failed events.
	Events *events.Dispatcher

	Logger *slog.Logger
}

// Watcher watches one directory for deck document changes.
type Watcher struct {
	dir      string
	svc      *analysis.Service
	onResult ResultFunc
	opts     Options
	logger   *slog.Logger

	ready     chan struct{}
	readyOnce sync.Once
}

// New creates a watcher over dir. onResult may be nil.
func New(dir string, svc *analysis.Service, onResult ResultFunc, opts Options) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat watch directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	if svc == nil {
		return nil, errors.New("deckwatch: analysis service is required")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if onResult == nil {
		onResult = func(string, []*analysis.Report, error) {}
	}

	return &Watcher{
		dir:      dir,
		svc:      svc,
		onResult: onResult,
		opts:     opts,
		logger:   logger.With(slog.String("component", "deckwatch"), slog.String("dir", dir)),
		ready:    make(chan struct{}),
	}, nil
}

// Ready is closed once the directory is being watched.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Run watches until ctx is done. It returns ctx.Err() on cancellation.
func (w *Watcher) Run(ctx context.Context) (err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() {
		if closeErr := watcher.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch directory: %w", err)
	}
	w.readyOnce.Do(func() { close(w.ready) })
	w.logger.Info("watching for deck changes", slog.Duration("debounce", w.opts.Debounce))

	if w.opts.InitialScan {
		if err := w.scan(ctx); err != nil {
			return err
		}
	}

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.opts.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			pending[event.Name] = struct{}{}
			timer.Reset(w.opts.Debounce)
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", slog.Any("error", werr))
		case <-timer.C:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			clear(pending)
			sort.Strings(paths)
			for _, p := range paths {
				w.handle(ctx, p)
			}
		}
	}
}

func relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	return deckimport.IsDeckFile(event.Name)
}

// scan processes the deck files already present, in name order.
func (w *Watcher) scan(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("failed to read watch directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !deckimport.IsDeckFile(e.Name()) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		w.handle(ctx, filepath.Join(w.dir, e.Name()))
	}
	return nil
}

func (w *Watcher) handle(ctx context.Context, path string) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		// written then removed within the debounce window
		return
	}
	reports, err := w.Process(ctx, path)
	if err != nil {
		w.logger.Warn("failed to analyze deck file", slog.String("path", path), slog.Any("error", err))
	} else {
		w.logger.Info("deck file analyzed", slog.String("path", path), slog.Int("variants", len(reports)))
	}
	w.onResult(path, reports, err)
	w.publish(ctx, path, reports, err)
}

func (w *Watcher) publish(ctx context.Context, path string, reports []*analysis.Report, err error) {
	if w.opts.Events == nil {
		return
	}
	if err != nil {
		w.opts.Events.Dispatch(events.NewTypedEvent(ctx, events.TypeFileFailed, events.FileFailedEvent{
			Path:  path,
			Error: err.Error(),
		}))
		return
	}
	decks := make([]events.DeckResult, 0, len(reports))
	for _, r := range reports {
		decks = append(decks, events.DeckResult{
			Deck:      r.Deck,
			Score:     r.Score,
			Empty:     r.Empty,
			EdgeCount: r.EdgeCount,
		})
	}
	w.opts.Events.Dispatch(events.NewTypedEvent(ctx, events.TypeFileAnalyzed, events.FileAnalyzedEvent{
		Path:  path,
		Decks: decks,
	}))
}

// Process imports one deck document and analyzes all its variants.
func (w *Watcher) Process(ctx context.Context, path string) ([]*analysis.Report, error) {
	doc, err := deckimport.LoadFile(path)
	if err != nil {
		return nil, err
	}
	variants, err := doc.Variants()
	if err != nil {
		return nil, err
	}

	if !w.opts.Persist {
		return w.svc.AnalyzeAll(ctx, variants)
	}

	reports := make([]*analysis.Report, 0, len(variants))
	for _, v := range variants {
		r, err := w.svc.AnalyzeAndStore(ctx, v)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, nil
}
