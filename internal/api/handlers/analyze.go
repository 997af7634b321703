package handlers

import (
	"fmt"
	"net/http"

	"github.com/TMind/SolMDb/internal/analysis"
	"github.com/TMind/SolMDb/internal/api/response"
	"github.com/TMind/SolMDb/internal/deck"
	"github.com/TMind/SolMDb/internal/metrics"
	"github.com/TMind/SolMDb/internal/synergy"
)

// AnalyzeHandler analyzes deck documents posted in the request body without
// storing them.
type AnalyzeHandler struct {
	svc *analysis.Service
}

// NewAnalyzeHandler creates a new AnalyzeHandler.
func NewAnalyzeHandler(svc *analysis.Service) *AnalyzeHandler {
	return &AnalyzeHandler{svc: svc}
}

// Analyze returns one report per deck and fusion in the document. With the
// deck query parameter only that variant is analyzed.
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	variants, err := decodeVariants(r)
	if err != nil {
		response.BadRequest(w, err)
		return
	}

	if name := r.URL.Query().Get("deck"); name != "" {
		var picked []deck.Variant
		for _, v := range variants {
			if v.DeckName() == name {
				picked = append(picked, v)
			}
		}
		if len(picked) == 0 {
			response.NotFound(w, fmt.Errorf("no deck named %q in document", name))
			return
		}
		variants = picked
	}

	reports, err := h.svc.AnalyzeAll(r.Context(), variants)
	if err != nil {
		writeAnalysisError(w, err)
		return
	}
	response.Success(w, reports)
}

// SynergyHandler serves the rule table.
type SynergyHandler struct {
	reg *synergy.Registry
}

// NewSynergyHandler creates a new SynergyHandler.
func NewSynergyHandler(reg *synergy.Registry) *SynergyHandler {
	return &SynergyHandler{reg: reg}
}

// RuleView is the JSON form of a synergy rule.
type RuleView struct {
	Name    string   `json:"name"`
	Weight  float64  `json:"weight"`
	Sources []string `json:"sources"`
	Targets []string `json:"targets"`
}

// GetSynergies returns the rules in table order.
func (h *SynergyHandler) GetSynergies(w http.ResponseWriter, _ *http.Request) {
	rules := h.reg.Rules()
	out := make([]RuleView, 0, len(rules))
	for _, rule := range rules {
		out = append(out, RuleView{
			Name:    rule.Name,
			Weight:  rule.Weight,
			Sources: rule.SourceTags,
			Targets: rule.TargetTags,
		})
	}
	response.Success(w, out)
}

// MetricsHandler serves the analysis metrics snapshot.
type MetricsHandler struct {
	metrics *metrics.AnalysisMetrics
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(m *metrics.AnalysisMetrics) *MetricsHandler {
	return &MetricsHandler{metrics: m}
}

// GetMetrics returns the current latency and outcome statistics.
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, h.metrics.Snapshot())
}
