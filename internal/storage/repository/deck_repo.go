package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/TMind/SolMDb/internal/storage/models"
)

// ErrNotFound is returned by deletes that match no row.
var ErrNotFound = errors.New("record not found")

// DBTX is satisfied by *sql.DB and *sql.Tx, so repositories can run inside a
// transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DeckRepository handles database operations for decks.
type DeckRepository interface {
	// Upsert inserts a deck or replaces the stored one with the same name.
	Upsert(ctx context.Context, deck *models.Deck) error

	// GetByName retrieves a deck by name. Returns nil, nil when absent.
	GetByName(ctx context.Context, name string) (*models.Deck, error)

	// List retrieves all decks ordered by name.
	List(ctx context.Context) ([]*models.Deck, error)

	// Delete removes a deck and, by cascade, its analyses.
	Delete(ctx context.Context, name string) error
}

// deckRepository is the concrete implementation of DeckRepository.
type deckRepository struct {
	db DBTX
}

// NewDeckRepository creates a new deck repository.
func NewDeckRepository(db DBTX) DeckRepository {
	return &deckRepository{db: db}
}

// Upsert inserts a deck or replaces the stored one with the same name.
// created_at of an existing row is preserved.
func (r *deckRepository) Upsert(ctx context.Context, deck *models.Deck) error {
	query := `
		INSERT INTO decks (name, variant, faction, payload, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			variant = excluded.variant,
			faction = excluded.faction,
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		deck.Name,
		deck.Variant,
		deck.Faction,
		string(deck.Payload),
		deck.CreatedAt,
		deck.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert deck: %w", err)
	}

	return nil
}

// GetByName retrieves a deck by name.
func (r *deckRepository) GetByName(ctx context.Context, name string) (*models.Deck, error) {
	query := `
		SELECT name, variant, faction, payload, created_at, updated_at
		FROM decks
		WHERE name = ?
	`

	deck := &models.Deck{}
	var payload string
	err := r.db.QueryRowContext(ctx, query, name).Scan(
		&deck.Name,
		&deck.Variant,
		&deck.Faction,
		&payload,
		&deck.CreatedAt,
		&deck.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deck by name: %w", err)
	}
	deck.Payload = []byte(payload)

	return deck, nil
}

// List retrieves all decks ordered by name.
func (r *deckRepository) List(ctx context.Context) ([]*models.Deck, error) {
	query := `
		SELECT name, variant, faction, payload, created_at, updated_at
		FROM decks
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list decks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	decks := []*models.Deck{}
	for rows.Next() {
		deck := &models.Deck{}
		var payload string
		if err := rows.Scan(
			&deck.Name,
			&deck.Variant,
			&deck.Faction,
			&payload,
			&deck.CreatedAt,
			&deck.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan deck: %w", err)
		}
		deck.Payload = []byte(payload)
		decks = append(decks, deck)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating decks: %w", err)
	}

	return decks, nil
}

// Delete removes a deck by name.
func (r *deckRepository) Delete(ctx context.Context, name string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM decks WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete deck: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete deck: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("deck %q: %w", name, ErrNotFound)
	}
	return nil
}
