package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/TMind/SolMDb/internal/analysis"
	"github.com/TMind/SolMDb/internal/api/response"
	"github.com/TMind/SolMDb/internal/deck"
	"github.com/TMind/SolMDb/internal/deckimport"
	"github.com/TMind/SolMDb/internal/storage"
	"github.com/TMind/SolMDb/internal/storage/models"
)

// DeckStore is the persistence the deck routes need.
type DeckStore interface {
	SaveDeck(ctx context.Context, deck *models.Deck) error
	GetDeck(ctx context.Context, name string) (*models.Deck, error)
	ListDecks(ctx context.Context) ([]*models.Deck, error)
	DeleteDeck(ctx context.Context, name string) error
	LatestAnalysis(ctx context.Context, deckName string) (*models.Analysis, error)
	ListAnalyses(ctx context.Context, deckName string, limit int) ([]*models.Analysis, error)
}

// DeckHandler handles stored deck requests.
type DeckHandler struct {
	svc   *analysis.Service
	store DeckStore
}

// NewDeckHandler creates a new DeckHandler.
func NewDeckHandler(svc *analysis.Service, store DeckStore) *DeckHandler {
	return &DeckHandler{svc: svc, store: store}
}

// DeckSummary is a stored deck without its document.
type DeckSummary struct {
	Name      string    `json:"name"`
	Variant   string    `json:"variant"`
	Faction   string    `json:"faction"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeckDetail is a stored deck with its document.
type DeckDetail struct {
	DeckSummary
	Document json.RawMessage `json:"document"`
}

func summary(d *models.Deck) DeckSummary {
	return DeckSummary{
		Name:      d.Name,
		Variant:   d.Variant,
		Faction:   d.Faction,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// deckName returns the unescaped {name} path parameter.
func deckName(r *http.Request) (string, error) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		return "", fmt.Errorf("invalid deck name: %w", err)
	}
	if name == "" {
		return "", errors.New("deck name is required")
	}
	return name, nil
}

// GetDecks returns all stored decks.
func (h *DeckHandler) GetDecks(w http.ResponseWriter, r *http.Request) {
	decks, err := h.store.ListDecks(r.Context())
	if err != nil {
		response.InternalError(w, err)
		return
	}

	out := make([]DeckSummary, 0, len(decks))
	for _, d := range decks {
		out = append(out, summary(d))
	}
	response.Success(w, out)
}

// CreateDecks stores every deck and fusion of a deck document.
func (h *DeckHandler) CreateDecks(w http.ResponseWriter, r *http.Request) {
	variants, err := decodeVariants(r)
	if err != nil {
		response.BadRequest(w, err)
		return
	}

	out := make([]DeckSummary, 0, len(variants))
	for _, v := range variants {
		m, err := analysis.DeckModel(v)
		if err != nil {
			response.InternalError(w, err)
			return
		}
		if err := h.store.SaveDeck(r.Context(), m); err != nil {
			response.InternalError(w, err)
			return
		}
		out = append(out, summary(m))
	}
	response.Created(w, out)
}

// GetDeck returns a stored deck with its document.
func (h *DeckHandler) GetDeck(w http.ResponseWriter, r *http.Request) {
	d, ok := h.load(w, r)
	if !ok {
		return
	}
	response.Success(w, DeckDetail{DeckSummary: summary(d), Document: d.Payload})
}

// DeleteDeck removes a stored deck and its analyses.
func (h *DeckHandler) DeleteDeck(w http.ResponseWriter, r *http.Request) {
	name, err := deckName(r)
	if err != nil {
		response.BadRequest(w, err)
		return
	}

	if err := h.store.DeleteDeck(r.Context(), name); err != nil {
		if errors.Is(err, storage.ErrDeckNotFound) {
			response.NotFound(w, err)
			return
		}
		response.InternalError(w, err)
		return
	}
	response.NoContent(w)
}

// AnalyzeDeck analyzes a stored deck and stores the report.
func (h *DeckHandler) AnalyzeDeck(w http.ResponseWriter, r *http.Request) {
	d, ok := h.load(w, r)
	if !ok {
		return
	}
	v, err := analysis.VariantOf(d)
	if err != nil {
		response.InternalError(w, err)
		return
	}

	report, err := h.svc.AnalyzeAndStore(r.Context(), v)
	if err != nil {
		writeAnalysisError(w, err)
		return
	}
	response.Created(w, report)
}

// GetAnalyses returns a deck's stored reports, newest first. The optional
// limit query parameter caps the count.
func (h *DeckHandler) GetAnalyses(w http.ResponseWriter, r *http.Request) {
	d, ok := h.load(w, r)
	if !ok {
		return
	}

	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			response.BadRequest(w, fmt.Errorf("invalid limit %q", s))
			return
		}
		limit = n
	}

	stored, err := h.store.ListAnalyses(r.Context(), d.Name, limit)
	if err != nil {
		response.InternalError(w, err)
		return
	}
	reports := make([]*analysis.Report, 0, len(stored))
	for _, a := range stored {
		rep, err := analysis.FromModel(a)
		if err != nil {
			response.InternalError(w, err)
			return
		}
		reports = append(reports, rep)
	}
	response.Success(w, reports)
}

// GetLatestAnalysis returns a deck's newest stored report.
func (h *DeckHandler) GetLatestAnalysis(w http.ResponseWriter, r *http.Request) {
	d, ok := h.load(w, r)
	if !ok {
		return
	}

	a, err := h.store.LatestAnalysis(r.Context(), d.Name)
	if err != nil {
		response.InternalError(w, err)
		return
	}
	if a == nil {
		response.NotFound(w, fmt.Errorf("deck %q has not been analyzed", d.Name))
		return
	}
	rep, err := analysis.FromModel(a)
	if err != nil {
		response.InternalError(w, err)
		return
	}
	response.Success(w, rep)
}

// load fetches the deck named in the path, writing the error response itself
// when it cannot.
func (h *DeckHandler) load(w http.ResponseWriter, r *http.Request) (*models.Deck, bool) {
	name, err := deckName(r)
	if err != nil {
		response.BadRequest(w, err)
		return nil, false
	}
	d, err := h.store.GetDeck(r.Context(), name)
	if err != nil {
		response.InternalError(w, err)
		return nil, false
	}
	if d == nil {
		response.NotFound(w, fmt.Errorf("%w: %s", storage.ErrDeckNotFound, name))
		return nil, false
	}
	return d, true
}

// decodeVariants reads a JSON deck document from the request body.
func decodeVariants(r *http.Request) ([]deck.Variant, error) {
	var doc deckimport.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		return nil, errors.New("invalid request body")
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc.Variants()
}

func writeAnalysisError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, deck.ErrEmptyDeck):
		response.UnprocessableEntity(w, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		response.Error(w, http.StatusServiceUnavailable, err)
	default:
		response.InternalError(w, err)
	}
}
