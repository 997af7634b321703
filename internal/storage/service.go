package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/TMind/SolMDb/internal/storage/models"
	"github.com/TMind/SolMDb/internal/storage/repository"
)

// ErrDeckNotFound is returned when an operation names a deck that is not stored.
var ErrDeckNotFound = errors.New("deck not found")

// Service provides high-level operations for storing decks and analyses.
type Service struct {
	db       *DB
	decks    repository.DeckRepository
	analyses repository.AnalysisRepository
	now      func() time.Time
}

// NewService creates a new storage service.
func NewService(db *DB) *Service {
	return &Service{
		db:       db,
		decks:    repository.NewDeckRepository(db.Conn()),
		analyses: repository.NewAnalysisRepository(db.Conn()),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Close closes the underlying database.
func (s *Service) Close() error {
	return s.db.Close()
}

// SaveDeck inserts or replaces a deck, stamping its timestamps.
func (s *Service) SaveDeck(ctx context.Context, deck *models.Deck) error {
	stamp(deck, s.now())
	if err := s.decks.Upsert(ctx, deck); err != nil {
		return fmt.Errorf("failed to save deck %q: %w", deck.Name, err)
	}
	return nil
}

// GetDeck returns the deck called name, or nil if it is not stored.
func (s *Service) GetDeck(ctx context.Context, name string) (*models.Deck, error) {
	return s.decks.GetByName(ctx, name)
}

// ListDecks returns all stored decks ordered by name.
func (s *Service) ListDecks(ctx context.Context) ([]*models.Deck, error) {
	return s.decks.List(ctx)
}

// DeleteDeck removes a deck together with its analyses.
func (s *Service) DeleteDeck(ctx context.Context, name string) error {
	err := s.decks.Delete(ctx, name)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrDeckNotFound, name)
	}
	return err
}

// SaveAnalysis stores an analysis of an already stored deck. A missing ID or
// timestamp is filled in.
func (s *Service) SaveAnalysis(ctx context.Context, analysis *models.Analysis) error {
	s.prepare(analysis)
	return s.db.WithTransaction(ctx, func(_ *sql.Tx, decks repository.DeckRepository, analyses repository.AnalysisRepository) error {
		existing, err := decks.GetByName(ctx, analysis.DeckName)
		if err != nil {
			return fmt.Errorf("failed to check deck: %w", err)
		}
		if existing == nil {
			return fmt.Errorf("%w: %s", ErrDeckNotFound, analysis.DeckName)
		}
		return analyses.Create(ctx, analysis)
	})
}

// SaveDeckWithAnalysis stores a deck and its analysis atomically.
func (s *Service) SaveDeckWithAnalysis(ctx context.Context, deck *models.Deck, analysis *models.Analysis) error {
	stamp(deck, s.now())
	analysis.DeckName = deck.Name
	s.prepare(analysis)
	return s.db.WithTransaction(ctx, func(_ *sql.Tx, decks repository.DeckRepository, analyses repository.AnalysisRepository) error {
		if err := decks.Upsert(ctx, deck); err != nil {
			return err
		}
		return analyses.Create(ctx, analysis)
	})
}

// GetAnalysis returns an analysis by ID, or nil if absent.
func (s *Service) GetAnalysis(ctx context.Context, id string) (*models.Analysis, error) {
	return s.analyses.GetByID(ctx, id)
}

// LatestAnalysis returns the newest analysis of a deck, or nil if it has none.
func (s *Service) LatestAnalysis(ctx context.Context, deckName string) (*models.Analysis, error) {
	return s.analyses.GetLatest(ctx, deckName)
}

// ListAnalyses returns a deck's analyses, newest first.
func (s *Service) ListAnalyses(ctx context.Context, deckName string, limit int) ([]*models.Analysis, error) {
	return s.analyses.ListByDeck(ctx, deckName, limit)
}

func (s *Service) prepare(a *models.Analysis) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}
}

func stamp(deck *models.Deck, now time.Time) {
	if deck.CreatedAt.IsZero() {
		deck.CreatedAt = now
	}
	deck.UpdatedAt = now
}
