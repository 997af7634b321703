package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/TMind/SolMDb/internal/storage/models"
)

// AnalysisRepository handles database operations for analysis reports.
type AnalysisRepository interface {
	// Create inserts a new analysis. The deck must exist.
	Create(ctx context.Context, analysis *models.Analysis) error

	// GetByID retrieves an analysis by ID. Returns nil, nil when absent.
	GetByID(ctx context.Context, id string) (*models.Analysis, error)

	// GetLatest retrieves the newest analysis of a deck. Returns nil, nil when
	// the deck has none.
	GetLatest(ctx context.Context, deckName string) (*models.Analysis, error)

	// ListByDeck retrieves a deck's analyses, newest first. limit <= 0 means all.
	ListByDeck(ctx context.Context, deckName string, limit int) ([]*models.Analysis, error)
}

type analysisRepository struct {
	db DBTX
}

// NewAnalysisRepository creates a new analysis repository.
func NewAnalysisRepository(db DBTX) AnalysisRepository {
	return &analysisRepository{db: db}
}

const analysisColumns = `id, deck_name, score, empty, breakdown, unmatched, graph, created_at`

// Create inserts a new analysis.
func (r *analysisRepository) Create(ctx context.Context, a *models.Analysis) error {
	query := `INSERT INTO analyses (` + analysisColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		a.ID,
		a.DeckName,
		a.Score,
		a.Empty,
		jsonText(a.Breakdown),
		jsonText(a.Unmatched),
		jsonText(a.Graph),
		a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create analysis: %w", err)
	}
	return nil
}

// GetByID retrieves an analysis by ID.
func (r *analysisRepository) GetByID(ctx context.Context, id string) (*models.Analysis, error) {
	query := `SELECT ` + analysisColumns + ` FROM analyses WHERE id = ?`

	a, err := scanAnalysis(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis by id: %w", err)
	}
	return a, nil
}

// GetLatest retrieves the newest analysis of a deck.
func (r *analysisRepository) GetLatest(ctx context.Context, deckName string) (*models.Analysis, error) {
	query := `
		SELECT ` + analysisColumns + `
		FROM analyses
		WHERE deck_name = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`

	a, err := scanAnalysis(r.db.QueryRowContext(ctx, query, deckName))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest analysis: %w", err)
	}
	return a, nil
}

// ListByDeck retrieves a deck's analyses, newest first.
func (r *analysisRepository) ListByDeck(ctx context.Context, deckName string, limit int) ([]*models.Analysis, error) {
	query := `
		SELECT ` + analysisColumns + `
		FROM analyses
		WHERE deck_name = ?
		ORDER BY created_at DESC, rowid DESC
	`
	args := []any{deckName}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []*models.Analysis{}
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating analyses: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(s scanner) (*models.Analysis, error) {
	a := &models.Analysis{}
	var breakdown, unmatched, graph string
	if err := s.Scan(
		&a.ID,
		&a.DeckName,
		&a.Score,
		&a.Empty,
		&breakdown,
		&unmatched,
		&graph,
		&a.CreatedAt,
	); err != nil {
		return nil, err
	}
	a.Breakdown = []byte(breakdown)
	a.Unmatched = []byte(unmatched)
	a.Graph = []byte(graph)
	return a, nil
}

// jsonText stores an empty payload as an empty JSON object.
func jsonText(b []byte) string {
	if len(b) == 0 {
		return "{}"
	}
	return string(b)
}
