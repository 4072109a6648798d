package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contribscout/server/internal/cache"
	"github.com/contribscout/server/internal/models"
)

// ---- fakes -----------------------------------------------------------------

type stubSearcher struct {
	lexHits  []models.OpportunityHit
	lexErr   error
	lexCalls int

	vecHits  []models.OpportunityHit
	vecErr   error
	vecCalls int

	lastFilters models.SearchFilters
}

func (s *stubSearcher) LexicalSearch(_ context.Context, _ string, filters models.SearchFilters, _ int) ([]models.OpportunityHit, error) {
	s.lexCalls++
	s.lastFilters = filters
	return s.lexHits, s.lexErr
}

func (s *stubSearcher) VectorSearch(_ context.Context, _ []float32, filters models.SearchFilters, _ float64, _ int) ([]models.OpportunityHit, error) {
	s.vecCalls++
	s.lastFilters = filters
	return s.vecHits, s.vecErr
}

type stubEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (e *stubEmbedder) Embed(context.Context, string) ([]float32, error) {
	e.calls++
	return e.vec, e.err
}

func hit(id string, score float64) models.OpportunityHit {
	return models.OpportunityHit{
		Opportunity: models.Opportunity{ID: id, RepoID: "r", State: models.OpportunityOpen},
		Score:       score,
	}
}

func newTestSearch(t *testing.T, searcher *stubSearcher, embedder *stubEmbedder) *SearchService {
	t.Helper()
	results, err := cache.NewLayered(cache.NewMemoryStore(), time.Minute)
	require.NoError(t, err)
	return NewSearchService(searcher, embedder, results, SearchConfig{
		LexicalWeight:       0.3,
		VectorWeight:        0.7,
		SimilarityThreshold: 0.5,
		CandidateLimit:      50,
		CallTimeout:         time.Second,
		ResultTTL:           time.Minute,
	})
}

// ---- tests -----------------------------------------------------------------

func TestSearchFusesBothSources(t *testing.T) {
	searcher := &stubSearcher{
		lexHits: []models.OpportunityHit{hit("a#1", 1.0), hit("b#2", 0.5)},
		vecHits: []models.OpportunityHit{hit("a#1", 0.8), hit("c#3", 0.9)},
	}
	svc := newTestSearch(t, searcher, &stubEmbedder{vec: []float32{1, 0}})

	fused, meta, err := svc.Search(context.Background(), "query", models.SearchFilters{})
	require.NoError(t, err)
	assert.False(t, meta.Degraded)
	require.Len(t, fused, 3)

	byID := map[string]models.FusedCandidate{}
	for _, c := range fused {
		byID[c.Opportunity.ID] = c
	}

	// Both sources: weighted sum. Single source: own score scaled by its weight.
	assert.InDelta(t, 0.3*1.0+0.7*0.8, byID["a#1"].Fused, 1e-9)
	assert.InDelta(t, 0.3*0.5, byID["b#2"].Fused, 1e-9)
	assert.InDelta(t, 0.7*0.9, byID["c#3"].Fused, 1e-9)
	assert.ElementsMatch(t, []string{models.SourceLexical, models.SourceVector}, byID["a#1"].Sources)

	// Sorted descending by fused score.
	assert.Equal(t, "a#1", fused[0].Opportunity.ID)
	assert.Equal(t, "c#3", fused[1].Opportunity.ID)
	assert.Equal(t, "b#2", fused[2].Opportunity.ID)
}

func TestSearchFusionMonotonic(t *testing.T) {
	svc := newTestSearch(t, &stubSearcher{}, &stubEmbedder{})

	// Holding the vector component fixed, a higher lexical score never
	// lowers the fused score (and vice versa).
	prev := -1.0
	for _, lex := range []float64{0, 0.25, 0.5, 0.75, 1.0} {
		fused := svc.fuse(
			[]models.OpportunityHit{hit("a#1", lex)},
			[]models.OpportunityHit{hit("a#1", 0.6)},
		)
		require.Len(t, fused, 1)
		assert.GreaterOrEqual(t, fused[0].Fused, prev)
		prev = fused[0].Fused
	}

	prev = -1.0
	for _, vec := range []float64{0, 0.25, 0.5, 0.75, 1.0} {
		fused := svc.fuse(
			[]models.OpportunityHit{hit("a#1", 0.6)},
			[]models.OpportunityHit{hit("a#1", vec)},
		)
		require.Len(t, fused, 1)
		assert.GreaterOrEqual(t, fused[0].Fused, prev)
		prev = fused[0].Fused
	}
}

func TestSearchTieBreaks(t *testing.T) {
	svc := newTestSearch(t, &stubSearcher{}, &stubEmbedder{})

	// Same fused score; higher raw vector similarity wins.
	fused := svc.fuse(
		[]models.OpportunityHit{hit("lexier#1", 0.7)},
		[]models.OpportunityHit{hit("vecier#2", 0.3)},
	)
	require.Len(t, fused, 2)
	assert.InDelta(t, fused[0].Fused, fused[1].Fused, 1e-9)
	assert.Equal(t, "vecier#2", fused[0].Opportunity.ID)

	// Identical everything: ID ascending for determinism.
	fused = svc.fuse(nil, []models.OpportunityHit{hit("b#2", 0.4), hit("a#1", 0.4)})
	assert.Equal(t, "a#1", fused[0].Opportunity.ID)
	assert.Equal(t, "b#2", fused[1].Opportunity.ID)
}

func TestSearchDegradesToLexicalOnly(t *testing.T) {
	searcher := &stubSearcher{
		lexHits: []models.OpportunityHit{hit("a#1", 1.0)},
		vecErr:  fmt.Errorf("vector index: %w: down", models.ErrIndexUnavailable),
	}
	svc := newTestSearch(t, searcher, &stubEmbedder{vec: []float32{1}})

	fused, meta, err := svc.Search(context.Background(), "query", models.SearchFilters{})
	require.NoError(t, err, "one surviving source is a success, not an error")
	assert.True(t, meta.Degraded)
	require.Len(t, fused, 1)
	assert.InDelta(t, 0.3, fused[0].Fused, 1e-9)
}

func TestSearchDegradesWhenEmbeddingFails(t *testing.T) {
	searcher := &stubSearcher{lexHits: []models.OpportunityHit{hit("a#1", 1.0)}}
	svc := newTestSearch(t, searcher, &stubEmbedder{err: models.ErrProviderUnavailable})

	fused, meta, err := svc.Search(context.Background(), "query", models.SearchFilters{})
	require.NoError(t, err)
	assert.True(t, meta.Degraded)
	assert.Len(t, fused, 1)
	assert.Zero(t, searcher.vecCalls, "no vector call without an embedding")
}

func TestSearchTotalFailure(t *testing.T) {
	searcher := &stubSearcher{
		lexErr: fmt.Errorf("lexical index: %w", models.ErrIndexUnavailable),
		vecErr: fmt.Errorf("vector index: %w", models.ErrIndexUnavailable),
	}
	svc := newTestSearch(t, searcher, &stubEmbedder{vec: []float32{1}})

	_, _, err := svc.Search(context.Background(), "query", models.SearchFilters{})
	assert.ErrorIs(t, err, models.ErrSearchUnavailable)
}

func TestSearchDimensionMismatchIsFatal(t *testing.T) {
	searcher := &stubSearcher{
		lexHits: []models.OpportunityHit{hit("a#1", 1.0)},
		vecErr:  fmt.Errorf("query vector has 3 dims: %w", models.ErrDimensionMismatch),
	}
	svc := newTestSearch(t, searcher, &stubEmbedder{vec: []float32{1, 2, 3}})

	_, _, err := svc.Search(context.Background(), "query", models.SearchFilters{})
	assert.ErrorIs(t, err, models.ErrDimensionMismatch, "config bugs must not be absorbed into degraded mode")
}

func TestSearchEmptyQuerySkipsVector(t *testing.T) {
	searcher := &stubSearcher{lexHits: []models.OpportunityHit{hit("a#1", 1.0)}}
	embedder := &stubEmbedder{}
	svc := newTestSearch(t, searcher, embedder)

	fused, meta, err := svc.Search(context.Background(), "", models.SearchFilters{Language: "TypeScript"})
	require.NoError(t, err)
	assert.False(t, meta.Degraded, "a skipped source is not a failed source")
	assert.Len(t, fused, 1)
	assert.Zero(t, embedder.calls)
	assert.Zero(t, searcher.vecCalls)
	assert.Equal(t, "TypeScript", searcher.lastFilters.Language, "filters reach the adapter as pre-filters")
}

func TestSearchCacheShortCircuits(t *testing.T) {
	searcher := &stubSearcher{
		lexHits: []models.OpportunityHit{hit("a#1", 1.0)},
		vecHits: []models.OpportunityHit{hit("a#1", 0.9)},
	}
	svc := newTestSearch(t, searcher, &stubEmbedder{vec: []float32{1}})

	first, meta, err := svc.Search(context.Background(), "typescript parser", models.SearchFilters{})
	require.NoError(t, err)
	assert.False(t, meta.CacheHit)

	second, meta, err := svc.Search(context.Background(), "typescript parser", models.SearchFilters{})
	require.NoError(t, err)
	assert.True(t, meta.CacheHit)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, searcher.lexCalls, "cached queries issue no index calls")
	assert.Equal(t, 1, searcher.vecCalls)

	// Invalidation forces a recompute.
	require.NoError(t, svc.InvalidateResults(context.Background()))
	_, meta, err = svc.Search(context.Background(), "typescript parser", models.SearchFilters{})
	require.NoError(t, err)
	assert.False(t, meta.CacheHit)
	assert.Equal(t, 2, searcher.lexCalls)
}

func TestSearchDegradedResultsNotCached(t *testing.T) {
	searcher := &stubSearcher{
		lexHits: []models.OpportunityHit{hit("a#1", 1.0)},
		vecErr:  fmt.Errorf("vector index: %w: down", models.ErrIndexUnavailable),
	}
	svc := newTestSearch(t, searcher, &stubEmbedder{vec: []float32{1}})

	fused, meta, err := svc.Search(context.Background(), "query", models.SearchFilters{})
	require.NoError(t, err)
	require.True(t, meta.Degraded)
	require.Len(t, fused, 1)

	// The vector index comes back. The repeat query must recompute with
	// both sources instead of replaying the lexical-only list as complete.
	searcher.vecErr = nil
	searcher.vecHits = []models.OpportunityHit{hit("b#2", 0.9)}

	fused, meta, err = svc.Search(context.Background(), "query", models.SearchFilters{})
	require.NoError(t, err)
	assert.False(t, meta.CacheHit, "degraded lists must not be memoized")
	assert.False(t, meta.Degraded)
	require.Len(t, fused, 2)
	assert.Equal(t, 2, searcher.lexCalls)
	assert.Equal(t, 2, searcher.vecCalls)

	// Healthy results still cache as before.
	_, meta, err = svc.Search(context.Background(), "query", models.SearchFilters{})
	require.NoError(t, err)
	assert.True(t, meta.CacheHit)
}

func TestFingerprint(t *testing.T) {
	gfi := true
	f := models.SearchFilters{Language: "Go", GoodFirstIssue: &gfi}

	assert.Equal(t, Fingerprint("parser", f), Fingerprint("parser", f))
	assert.Equal(t, Fingerprint("  Parser!  ", f), Fingerprint("parser", f),
		"normalization folds trivially different spellings together")
	assert.NotEqual(t, Fingerprint("parser", f), Fingerprint("lexer", f))
	assert.NotEqual(t, Fingerprint("parser", f), Fingerprint("parser", models.SearchFilters{Language: "Rust"}))

	// Filter order never matters: labels are sorted into the key.
	a := models.SearchFilters{Labels: []string{"bug", "ui"}}
	b := models.SearchFilters{Labels: []string{"ui", "bug"}}
	assert.Equal(t, Fingerprint("q", a), Fingerprint("q", b))
}

func TestSearchPropagatesContext(t *testing.T) {
	searcher := &stubSearcher{lexErr: context.Canceled, vecErr: context.Canceled}
	svc := newTestSearch(t, searcher, &stubEmbedder{vec: []float32{1}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := svc.Search(ctx, "query", models.SearchFilters{})
	assert.True(t, errors.Is(err, models.ErrSearchUnavailable))
}
