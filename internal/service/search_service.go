package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/contribscout/server/internal/cache"
	"github.com/contribscout/server/internal/models"
)

// ---- Collaborator contracts ------------------------------------------------

// OpportunitySearcher exposes the two index adapters over the opportunity
// corpus. The Mongo implementation runs Atlas $search and $vectorSearch.
type OpportunitySearcher interface {
	LexicalSearch(ctx context.Context, queryText string, filters models.SearchFilters, limit int) ([]models.OpportunityHit, error)
	VectorSearch(ctx context.Context, queryVec []float32, filters models.SearchFilters, threshold float64, limit int) ([]models.OpportunityHit, error)
}

// Embedder is the query-side slice of the embedding gateway.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ---- Planner ---------------------------------------------------------------

// SearchConfig tunes the hybrid query planner.
type SearchConfig struct {
	LexicalWeight       float64
	VectorWeight        float64
	SimilarityThreshold float64
	CandidateLimit      int
	CallTimeout         time.Duration // Per index/gateway call
	ResultTTL           time.Duration // Shared-tier cache TTL
}

// SearchService is the hybrid query planner: it fans out to the lexical and
// vector indexes concurrently, fuses the two candidate sets into one scored
// list, and memoizes the fused result (pre-personalization) in the result
// cache.
type SearchService struct {
	searcher OpportunitySearcher
	embedder Embedder
	results  cache.ResultCache
	cfg      SearchConfig
}

// NewSearchService wires the planner.
func NewSearchService(searcher OpportunitySearcher, embedder Embedder, results cache.ResultCache, cfg SearchConfig) *SearchService {
	return &SearchService{
		searcher: searcher,
		embedder: embedder,
		results:  results,
		cfg:      cfg,
	}
}

// Search returns the fused candidate list for a query plus filter set.
//
// When one index source fails the planner degrades to the surviving source
// and flags the result set, logging the loss instead of surfacing it:
// availability outranks completeness. When both fail it returns
// ErrSearchUnavailable. A dimension mismatch is a configuration bug and is
// returned as-is, never absorbed into degraded mode.
func (s *SearchService) Search(ctx context.Context, queryText string, filters models.SearchFilters) ([]models.FusedCandidate, models.SearchMeta, error) {
	var meta models.SearchMeta

	key := Fingerprint(queryText, filters)
	if cached, ok := s.results.Get(ctx, key); ok {
		meta.CacheHit = true
		return cached, meta, nil
	}

	hasQuery := strings.TrimSpace(queryText) != ""

	var (
		lexHits, vecHits []models.OpportunityHit
		lexErr, vecErr   error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		lexHits, lexErr = s.lexical(gctx, queryText, filters)
		meta.Timings.LexicalMS = time.Since(start).Milliseconds()
		return nil
	})
	if hasQuery {
		g.Go(func() error {
			embedStart := time.Now()
			vec, err := s.embedQuery(gctx, queryText)
			meta.Timings.EmbedMS = time.Since(embedStart).Milliseconds()
			if err != nil {
				vecErr = err
				return nil
			}

			start := time.Now()
			vecHits, vecErr = s.vector(gctx, vec, filters)
			meta.Timings.VectorMS = time.Since(start).Milliseconds()
			return nil
		})
	}
	_ = g.Wait() // Branches record their own errors and never abort the group.

	// A dimension mismatch means the configured dimension and the stored
	// vectors disagree. Alert, don't degrade.
	if vecErr != nil && errors.Is(vecErr, models.ErrDimensionMismatch) {
		return nil, meta, vecErr
	}

	switch {
	case lexErr != nil && (!hasQuery || vecErr != nil):
		return nil, meta, fmt.Errorf("%w: lexical: %v, vector: %v", models.ErrSearchUnavailable, lexErr, vecErr)
	case lexErr != nil:
		log.Printf("search: degraded to vector-only: %v", lexErr)
		meta.Degraded = true
		lexHits = nil
	case vecErr != nil:
		log.Printf("search: degraded to lexical-only: %v", vecErr)
		meta.Degraded = true
		vecHits = nil
	}

	fuseStart := time.Now()
	fused := s.fuse(lexHits, vecHits)
	meta.Timings.FuseMS = time.Since(fuseStart).Milliseconds()

	// Degraded lists are never memoized: a cache hit replays them as
	// complete long after the failed source recovers.
	if !meta.Degraded {
		if err := s.results.Set(ctx, key, fused, s.cfg.ResultTTL); err != nil {
			log.Printf("search: result cache write failed: %v", err)
		}
	}

	return fused, meta, nil
}

// InvalidateResults drops cached fused results. Called after ingestion
// changes the corpus.
func (s *SearchService) InvalidateResults(ctx context.Context) error {
	return s.results.Invalidate(ctx, "search:*")
}

func (s *SearchService) lexical(ctx context.Context, queryText string, filters models.SearchFilters) ([]models.OpportunityHit, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()
	return s.searcher.LexicalSearch(ctx, queryText, filters, s.cfg.CandidateLimit)
}

func (s *SearchService) vector(ctx context.Context, vec []float32, filters models.SearchFilters) ([]models.OpportunityHit, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()
	return s.searcher.VectorSearch(ctx, vec, filters, s.cfg.SimilarityThreshold, s.cfg.CandidateLimit)
}

func (s *SearchService) embedQuery(ctx context.Context, queryText string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()
	return s.embedder.Embed(ctx, queryText)
}

// fuse merges the two candidate sets by opportunity ID. A candidate in both
// sets gets the weighted sum of its scores; a single-source candidate keeps
// its own score scaled by that source's weight. No cross-source
// normalization beyond the fixed weights — a deliberately simple policy,
// not a learned ranker.
func (s *SearchService) fuse(lexHits, vecHits []models.OpportunityHit) []models.FusedCandidate {
	byID := make(map[string]*models.FusedCandidate, len(lexHits)+len(vecHits))
	order := make([]string, 0, len(lexHits)+len(vecHits))

	for _, h := range lexHits {
		byID[h.ID] = &models.FusedCandidate{
			Opportunity: h.Opportunity,
			Lexical:     h.Score,
			Sources:     []string{models.SourceLexical},
		}
		order = append(order, h.ID)
	}
	for _, h := range vecHits {
		if c, ok := byID[h.ID]; ok {
			c.Vector = h.Score
			c.Sources = append(c.Sources, models.SourceVector)
			continue
		}
		byID[h.ID] = &models.FusedCandidate{
			Opportunity: h.Opportunity,
			Vector:      h.Score,
			Sources:     []string{models.SourceVector},
		}
		order = append(order, h.ID)
	}

	fused := make([]models.FusedCandidate, 0, len(order))
	for _, id := range order {
		c := byID[id]
		c.Fused = s.cfg.LexicalWeight*c.Lexical + s.cfg.VectorWeight*c.Vector
		fused = append(fused, *c)
	}

	// Ties broken by raw vector similarity, then ID, for determinism.
	sort.SliceStable(fused, func(i, j int) bool {
		if fused[i].Fused != fused[j].Fused {
			return fused[i].Fused > fused[j].Fused
		}
		if fused[i].Vector != fused[j].Vector {
			return fused[i].Vector > fused[j].Vector
		}
		return fused[i].Opportunity.ID < fused[j].Opportunity.ID
	})

	return fused
}

// Fingerprint derives the deterministic cache key for a query + filter set.
// The query text goes through the same normalization as embedding inputs,
// so trivially different spellings of one query share a cache entry.
func Fingerprint(queryText string, f models.SearchFilters) string {
	pairs := []string{
		"q=" + NormalizeText(queryText),
		"lang=" + strings.ToLower(f.Language),
		"tier=" + strings.ToLower(f.Difficulty),
		"mindiff=" + floatKey(f.MinDifficulty),
		"maxdiff=" + floatKey(f.MaxDifficulty),
		"minimpact=" + floatKey(f.MinImpact),
		"maximpact=" + floatKey(f.MaxImpact),
		"labels=" + sortedKey(f.Labels),
		"skills=" + sortedKey(f.Skills),
		"gfi=" + boolKey(f.GoodFirstIssue),
		"mentor=" + boolKey(f.Mentorship),
		"hacktober=" + boolKey(f.Hacktoberfest),
		fmt.Sprintf("minstars=%d", f.MinStars),
	}
	sort.Strings(pairs)

	sum := sha256.Sum256([]byte(strings.Join(pairs, "|")))
	return "search:" + hex.EncodeToString(sum[:])
}

func floatKey(f *float64) string {
	if f == nil {
		return ""
	}
	return fmt.Sprintf("%g", *f)
}

func boolKey(b *bool) string {
	if b == nil {
		return ""
	}
	return fmt.Sprintf("%t", *b)
}

func sortedKey(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	lowered := make([]string, len(vals))
	for i, v := range vals {
		lowered[i] = strings.ToLower(v)
	}
	sort.Strings(lowered)
	return strings.Join(lowered, ",")
}
