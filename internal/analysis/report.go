package analysis

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/TMind/SolMDb/internal/deck"
	"github.com/TMind/SolMDb/internal/deckimport"
	"github.com/TMind/SolMDb/internal/evaluation"
	"github.com/TMind/SolMDb/internal/graph"
	"github.com/TMind/SolMDb/internal/storage/models"
)

// Report is the outcome of analyzing one deck variant.
type Report struct {
	ID         string                `json:"id"`
	Deck       string                `json:"deck"`
	Variant    deck.Kind             `json:"variant,omitempty"`
	Faction    string                `json:"faction,omitempty"`
	Score      float64               `json:"score"`
	Empty      bool                  `json:"empty"`
	Breakdown  map[string]float64    `json:"breakdown"`
	Evaluation *evaluation.DeckScore `json:"evaluation,omitempty"`
	Matched    map[string]int        `json:"matched,omitempty"`
	Unmatched  graph.Tally           `json:"unmatched"`
	EdgeCount  int                   `json:"edge_count"`
	LocalRatio float64               `json:"local_ratio"`
	Duplicates []string              `json:"duplicates,omitempty"`
	Graph      graph.Export          `json:"graph"`
	CreatedAt  time.Time             `json:"created_at"`
}

// Model converts the report into its stored form.
func (r *Report) Model() (*models.Analysis, error) {
	breakdown, err := json.Marshal(r.Breakdown)
	if err != nil {
		return nil, fmt.Errorf("failed to encode breakdown: %w", err)
	}
	unmatched, err := json.Marshal(r.Unmatched)
	if err != nil {
		return nil, fmt.Errorf("failed to encode unmatched: %w", err)
	}
	g, err := json.Marshal(r.Graph)
	if err != nil {
		return nil, fmt.Errorf("failed to encode graph: %w", err)
	}
	return &models.Analysis{
		ID:        r.ID,
		DeckName:  r.Deck,
		Score:     r.Score,
		Empty:     r.Empty,
		Breakdown: breakdown,
		Unmatched: unmatched,
		Graph:     g,
		CreatedAt: r.CreatedAt,
	}, nil
}

// FromModel rebuilds a report from its stored form. Fields that are not
// stored (evaluation details, matched counts) stay empty.
func FromModel(a *models.Analysis) (*Report, error) {
	r := &Report{
		ID:        a.ID,
		Deck:      a.DeckName,
		Score:     a.Score,
		Empty:     a.Empty,
		CreatedAt: a.CreatedAt,
	}
	if err := decodeJSON(a.Breakdown, &r.Breakdown); err != nil {
		return nil, fmt.Errorf("failed to decode breakdown: %w", err)
	}
	if err := decodeJSON(a.Unmatched, &r.Unmatched); err != nil {
		return nil, fmt.Errorf("failed to decode unmatched: %w", err)
	}
	if err := decodeJSON(a.Graph, &r.Graph); err != nil {
		return nil, fmt.Errorf("failed to decode graph: %w", err)
	}
	for _, targets := range r.Graph.Edges {
		r.EdgeCount += len(targets)
	}
	return r, nil
}

func decodeJSON(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// DeckModel converts a variant into its stored form. The payload is a JSON
// deck document holding just this variant.
func DeckModel(v deck.Variant) (*models.Deck, error) {
	payload, err := deckimport.FromVariant(v).Encode(deckimport.FormatJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to encode deck %q: %w", v.DeckName(), err)
	}
	return &models.Deck{
		Name:    v.DeckName(),
		Variant: string(v.Kind()),
		Faction: deck.Faction(v),
		Payload: payload,
	}, nil
}

// VariantOf decodes a stored deck back into a variant.
func VariantOf(d *models.Deck) (deck.Variant, error) {
	doc, err := deckimport.Parse(d.Payload, deckimport.FormatJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to decode stored deck %q: %w", d.Name, err)
	}
	return doc.Variant(d.Name)
}
