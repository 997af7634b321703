// Package evaluation scores synergies with a hypergeometric draw model.
//
// The model follows three draw turns. The pool starts at PoolSize cards and
// shrinks by PoolShrink each turn; DrawSize cards are drawn per turn. A
// synergy's per-turn probability p_i is folded with
//
//	P = p0 + (1-p0)*p1 + (1-p0)*(1-p1)*p2
//
// so synergies that show up early weigh the most.
package evaluation

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/TMind/SolMDb/internal/deck"
	"github.com/TMind/SolMDb/internal/synergy"
)

// SpellSynergy is scored as a risk: its validity is the complement of the
// chance that sources and targets are drawn together.
const SpellSynergy = "SPELL"

// ErrNoActiveSynergies is returned when a deck has no synergy with both a
// source and a target.
var ErrNoActiveSynergies = errors.New("deck has no active synergies")

// Params configures the draw model.
type Params struct {
	PoolSize   int
	PoolShrink int
	DrawSize   int
	Turns      int
}

// DefaultParams returns the standard 20 card pool, 5 card draw, three turns.
func DefaultParams() Params {
	return Params{
		PoolSize:   20,
		PoolShrink: 5,
		DrawSize:   5,
		Turns:      3,
	}
}

// Validate checks that the parameters describe at least one drawable turn.
func (p Params) Validate() error {
	if p.PoolSize <= 0 {
		return fmt.Errorf("pool size must be positive: %d", p.PoolSize)
	}
	if p.DrawSize <= 0 || p.DrawSize > p.PoolSize {
		return fmt.Errorf("draw size must be in 1..%d: %d", p.PoolSize, p.DrawSize)
	}
	if p.PoolShrink < 0 {
		return fmt.Errorf("pool shrink cannot be negative: %d", p.PoolShrink)
	}
	if p.Turns <= 0 {
		return fmt.Errorf("turns must be positive: %d", p.Turns)
	}
	return nil
}

// Evaluator scores synergy instances and decks. It holds no mutable state.
type Evaluator struct {
	reg    *synergy.Registry
	params Params
	logger *slog.Logger
}

// NewEvaluator creates an Evaluator. A nil logger uses slog.Default().
func NewEvaluator(reg *synergy.Registry, params Params, logger *slog.Logger) (*Evaluator, error) {
	if reg == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid evaluation params: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{
		reg:    reg,
		params: params,
		logger: logger.With(slog.String("component", "evaluation")),
	}, nil
}

// Params returns the draw model parameters.
func (e *Evaluator) Params() Params {
	return e.params
}

// DrawProbability is P(targets >= minTarget) * P(sources <= maxSource) for a
// draw of drawSize from a pool of poolSize. The two tails are treated as
// independent. Degenerate parameters give 0.
func (e *Evaluator) DrawProbability(sourceCount, targetCount, poolSize, minTarget, maxSource, drawSize int) float64 {
	p := tailAtLeast(poolSize, targetCount, drawSize, minTarget) *
		tailAtMost(poolSize, sourceCount, drawSize, maxSource)
	return e.sanitize(p, "draw_probability", poolSize, drawSize)
}

// Validity returns how likely the synergy manifests over the draw turns, in
// [0, 1]. For SPELL it is the chance the risk does not materialize.
func (e *Evaluator) Validity(inst *Instance) float64 {
	s, t := inst.SourceTotal(), inst.TargetTotal()
	draw := e.params.DrawSize
	spell := inst.Rule.Name == SpellSynergy

	total, notYet := 0.0, 1.0
	for turn := 0; turn < e.params.Turns; turn++ {
		pool := e.params.PoolSize - turn*e.params.PoolShrink

		var p float64
		if spell {
			p = e.sanitize(
				tailAtLeast(pool, s, draw, 1)*tailAtLeast(pool, t, draw, 1),
				"spell_turn", pool, draw,
			)
		} else {
			p = e.DrawProbability(s, t, pool, 1, 0, draw)
		}

		total += notYet * p
		notYet *= 1 - p
	}

	if spell {
		return clamp01(1 - total)
	}
	return clamp01(total)
}

// EvaluateSynergy is Validity times the chance of drawing at least one target
// in the opening draw, scaled to 0..100.
func (e *Evaluator) EvaluateSynergy(inst *Instance) float64 {
	opening := e.sanitize(
		tailAtLeast(e.params.PoolSize, inst.TargetTotal(), e.params.DrawSize, 1),
		"opening_target", e.params.PoolSize, e.params.DrawSize,
	)
	return e.Validity(inst) * opening * 100
}

// DeckScore is the evaluation of one deck.
type DeckScore struct {
	Total                 float64            `json:"total"`
	Breakdown             map[string]float64 `json:"breakdown"`
	Active                []string           `json:"active"`
	SourceVolume          int                `json:"source_volume"`
	TargetVolume          int                `json:"target_volume"`
	MissingSourceFraction float64            `json:"missing_source_fraction"`
	MissingTargetFraction float64            `json:"missing_target_fraction"`
}

// EvaluateDeck sums weight * EvaluateSynergy over the active synergies of
// view, then scales the sum by the share of source and target volume that an
// active synergy covers.
func (e *Evaluator) EvaluateDeck(view *deck.View) (*DeckScore, error) {
	if view == nil || view.Len() == 0 {
		return nil, deck.ErrEmptyDeck
	}

	totals := view.Collection.TagTotals()
	instances := Instances(e.reg, totals)

	score := &DeckScore{Breakdown: make(map[string]float64)}
	activeRules := make(map[string]struct{})
	sum := 0.0
	for _, inst := range instances {
		if !inst.IsActive() {
			continue
		}
		v := e.EvaluateSynergy(inst)
		score.Breakdown[inst.Rule.Name] = v
		score.Active = append(score.Active, inst.Rule.Name)
		activeRules[inst.Rule.Name] = struct{}{}
		sum += inst.Rule.Weight * v
	}
	if len(score.Active) == 0 {
		return nil, ErrNoActiveSynergies
	}

	missingSource, missingTarget := 0, 0
	for _, tag := range sortedTags(totals) {
		v := totals[tag]
		if rules := e.reg.BySourceTag(tag); len(rules) > 0 {
			score.SourceVolume += v
			if !anyActive(rules, activeRules) {
				missingSource += v
			}
		}
		if rules := e.reg.ByTargetTag(tag); len(rules) > 0 {
			score.TargetVolume += v
			if !anyActive(rules, activeRules) {
				missingTarget += v
			}
		}
	}
	score.MissingSourceFraction = fraction(missingSource, score.SourceVolume)
	score.MissingTargetFraction = fraction(missingTarget, score.TargetVolume)

	score.Total = sum * (1 - score.MissingTargetFraction) * (1 - score.MissingSourceFraction)

	e.logger.Debug("deck evaluated",
		slog.String("deck", view.Name),
		slog.Float64("score", score.Total),
		slog.Int("active", len(score.Active)),
	)
	return score, nil
}

func (e *Evaluator) sanitize(p float64, what string, pool, draw int) float64 {
	if math.IsNaN(p) {
		e.logger.Debug("degenerate probability coerced to 0",
			slog.String("term", what),
			slog.Int("pool", pool),
			slog.Int("draw", draw),
		)
		return 0
	}
	return clamp01(p)
}

func anyActive(rules []*synergy.Rule, active map[string]struct{}) bool {
	for _, r := range rules {
		if _, ok := active[r.Name]; ok {
			return true
		}
	}
	return false
}

// fraction guards an empty volume as 0% missing.
func fraction(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) / float64(whole)
}

func sortedTags(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
