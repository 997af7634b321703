package events

// Event types emitted while watching deck files.
const (
	TypeFileAnalyzed = "file:analyzed"
	TypeFileFailed   = "file:failed"
)

// DeckResult summarizes one analyzed variant.
type DeckResult struct {
	Deck      string  `json:"deck"`
	Score     float64 `json:"score"`
	Empty     bool    `json:"empty"`
	EdgeCount int     `json:"edge_count"`
}

// FileAnalyzedEvent is the payload for file:analyzed events.
type FileAnalyzedEvent struct {
	Path  string       `json:"path"`
	Decks []DeckResult `json:"decks"`
}

// FileFailedEvent is the payload for file:failed events.
type FileFailedEvent struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}
