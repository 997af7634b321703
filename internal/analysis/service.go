// Package analysis runs the full pipeline for deck variants: flatten, build
// the synergy graph, score it, and optionally persist the report.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/TMind/SolMDb/internal/deck"
	"github.com/TMind/SolMDb/internal/evaluation"
	"github.com/TMind/SolMDb/internal/graph"
	"github.com/TMind/SolMDb/internal/metrics"
	"github.com/TMind/SolMDb/internal/storage/models"
	"github.com/TMind/SolMDb/internal/synergy"
)

// ErrNoStore is returned by AnalyzeAndStore on a service without storage.
var ErrNoStore = errors.New("analysis service has no store")

// Store persists a deck together with one analysis of it.
type Store interface {
	SaveDeckWithAnalysis(ctx context.Context, deck *models.Deck, analysis *models.Analysis) error
}

// Options configures a Service. Zero values pick defaults.
type Options struct {
	Workers int
	Store   Store
	Metrics *metrics.AnalysisMetrics
	Logger  *slog.Logger
}

// Service analyzes deck variants. It is safe for concurrent use.
type Service struct {
	reg       *synergy.Registry
	builder   *graph.Builder
	evaluator *evaluation.Evaluator
	store     Store
	metrics   *metrics.AnalysisMetrics
	workers   int
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates an analysis service over reg with the given draw model.
func NewService(reg *synergy.Registry, params evaluation.Params, opts Options) (*Service, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ev, err := evaluation.NewEvaluator(reg, params, logger)
	if err != nil {
		return nil, err
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.NewAnalysisMetrics()
	}
	return &Service{
		reg:       reg,
		builder:   graph.NewBuilder(logger),
		evaluator: ev,
		store:     opts.Store,
		metrics:   m,
		workers:   workers,
		logger:    logger.With(slog.String("component", "analysis")),
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// Registry returns the rule table the service matches against.
func (s *Service) Registry() *synergy.Registry {
	return s.reg
}

// Evaluator returns the scoring engine.
func (s *Service) Evaluator() *evaluation.Evaluator {
	return s.evaluator
}

// Metrics returns the service's metrics collector.
func (s *Service) Metrics() *metrics.AnalysisMetrics {
	return s.metrics
}

// Analyze runs the pipeline for one variant. A deck without active synergies
// yields a report with Empty set and a zero score. A deck without entities
// fails with deck.ErrEmptyDeck.
func (s *Service) Analyze(ctx context.Context, v deck.Variant) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	report, err := s.analyze(v)
	if err != nil {
		s.metrics.IncrementErrors()
		s.logger.Warn("analysis failed", slog.String("deck", v.DeckName()), slog.Any("error", err))
		return nil, err
	}

	s.metrics.RecordAnalysis(time.Since(start), report.Empty)
	s.logger.Debug("deck analyzed",
		slog.String("deck", report.Deck),
		slog.Float64("score", report.Score),
		slog.Int("edges", report.EdgeCount),
		slog.Bool("empty", report.Empty),
	)
	return report, nil
}

func (s *Service) analyze(v deck.Variant) (*Report, error) {
	view, err := deck.Flatten(s.reg, v)
	if err != nil {
		return nil, fmt.Errorf("deck %q: %w", v.DeckName(), err)
	}

	buildStart := time.Now()
	g, err := s.builder.Build(view)
	if err != nil {
		return nil, fmt.Errorf("deck %q: failed to build graph: %w", v.DeckName(), err)
	}
	s.metrics.RecordBuild(time.Since(buildStart))

	report := &Report{
		ID:         uuid.NewString(),
		Deck:       view.Name,
		Variant:    view.Kind,
		Faction:    view.Faction,
		Breakdown:  map[string]float64{},
		Matched:    g.Matched(),
		Unmatched:  g.Unmatched(),
		EdgeCount:  g.EdgeCount(),
		LocalRatio: g.LocalRatio(),
		Duplicates: view.Duplicates,
		Graph:      g.Export(),
		CreatedAt:  s.now(),
	}

	evalStart := time.Now()
	score, err := s.evaluator.EvaluateDeck(view)
	s.metrics.RecordEvaluate(time.Since(evalStart))
	switch {
	case errors.Is(err, evaluation.ErrNoActiveSynergies):
		report.Empty = true
	case err != nil:
		return nil, fmt.Errorf("deck %q: failed to evaluate: %w", v.DeckName(), err)
	default:
		report.Score = score.Total
		report.Breakdown = score.Breakdown
		report.Evaluation = score
	}
	return report, nil
}

// AnalyzeAll analyzes variants concurrently, at most Workers at a time. The
// reports are in input order. The first failure cancels the remaining work
// and is returned.
func (s *Service) AnalyzeAll(ctx context.Context, variants []deck.Variant) ([]*Report, error) {
	reports := make([]*Report, len(variants))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, v := range variants {
		if gctx.Err() != nil {
			break
		}
		i, v := i, v
		g.Go(func() error {
			r, err := s.Analyze(gctx, v)
			if err != nil {
				return err
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return reports, nil
}

// AnalyzeAndStore analyzes v and persists the deck together with the report.
func (s *Service) AnalyzeAndStore(ctx context.Context, v deck.Variant) (*Report, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	report, err := s.Analyze(ctx, v)
	if err != nil {
		return nil, err
	}
	deckModel, err := DeckModel(v)
	if err != nil {
		return nil, err
	}
	analysisModel, err := report.Model()
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveDeckWithAnalysis(ctx, deckModel, analysisModel); err != nil {
		s.metrics.IncrementErrors()
		return nil, fmt.Errorf("failed to store analysis of %q: %w", v.DeckName(), err)
	}
	s.metrics.IncrementPersisted()
	return report, nil
}
