package models

import "time"

// Deck is a stored deck variant. Payload holds the deck document as JSON.
type Deck struct {
	Name      string
	Variant   string // "single" or "fused"
	Faction   string
	Payload   []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Analysis is a stored analysis report of one deck.
type Analysis struct {
	ID        string
	DeckName  string
	Score     float64
	Empty     bool
	Breakdown []byte // JSON object synergy -> score
	Unmatched []byte // JSON object synergy -> entity -> value
	Graph     []byte // JSON node/edge export
	CreatedAt time.Time
}
