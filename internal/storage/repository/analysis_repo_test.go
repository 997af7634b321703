package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TMind/SolMDb/internal/storage/models"
)

func testAnalysis(deckName string, score float64, at time.Time) *models.Analysis {
	return &models.Analysis{
		ID:        uuid.NewString(),
		DeckName:  deckName,
		Score:     score,
		Breakdown: []byte(`{"BEAST":12.5}`),
		Unmatched: []byte(`{"DRAGON":{"Rider":1}}`),
		Graph:     []byte(`{"nodes":{},"edges":{}}`),
		CreatedAt: at,
	}
}

func TestAnalysisRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	decks := NewDeckRepository(db)
	repo := NewAnalysisRepository(db)
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, decks.Upsert(ctx, testDeck("Pack", now)))

	a := testAnalysis("Pack", 12.5, now)
	require.NoError(t, repo.Create(ctx, a))

	got, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Pack", got.DeckName)
	assert.InDelta(t, 12.5, got.Score, 1e-9)
	assert.False(t, got.Empty)
	assert.JSONEq(t, `{"BEAST":12.5}`, string(got.Breakdown))
	assert.JSONEq(t, `{"DRAGON":{"Rider":1}}`, string(got.Unmatched))

	missing, err := repo.GetByID(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestAnalysisRepository_EmptyPayloads(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	now := time.Now().UTC()
	require.NoError(t, NewDeckRepository(db).Upsert(ctx, testDeck("Bare", now)))

	repo := NewAnalysisRepository(db)
	a := &models.Analysis{ID: uuid.NewString(), DeckName: "Bare", Empty: true, CreatedAt: now}
	require.NoError(t, repo.Create(ctx, a))

	got, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.Empty)
	assert.Equal(t, "{}", string(got.Breakdown))
}

func TestAnalysisRepository_RequiresDeck(t *testing.T) {
	repo := NewAnalysisRepository(setupTestDB(t))
	err := repo.Create(context.Background(), testAnalysis("Ghost", 1, time.Now()))
	assert.Error(t, err)
}

func TestAnalysisRepository_LatestAndList(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewAnalysisRepository(db)
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, NewDeckRepository(db).Upsert(ctx, testDeck("Pack", base)))

	latest, err := repo.GetLatest(ctx, "Pack")
	require.NoError(t, err)
	assert.Nil(t, latest)

	for i, score := range []float64{10, 30, 20} {
		require.NoError(t, repo.Create(ctx, testAnalysis("Pack", score, base.Add(time.Duration(i)*time.Minute))))
	}

	latest, err = repo.GetLatest(ctx, "Pack")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.InDelta(t, 20, latest.Score, 1e-9)

	all, err := repo.ListByDeck(ctx, "Pack", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.InDelta(t, 10, all[2].Score, 1e-9)

	two, err := repo.ListByDeck(ctx, "Pack", 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
}

func TestAnalysisRepository_CascadeOnDeckDelete(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	decks := NewDeckRepository(db)
	repo := NewAnalysisRepository(db)
	now := time.Now().UTC()

	require.NoError(t, decks.Upsert(ctx, testDeck("Pack", now)))
	a := testAnalysis("Pack", 5, now)
	require.NoError(t, repo.Create(ctx, a))

	require.NoError(t, decks.Delete(ctx, "Pack"))
	got, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
