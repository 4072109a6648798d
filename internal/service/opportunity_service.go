package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/contribscout/server/internal/models"
)

const (
	maxQueryChars  = 1000
	maxPerPage     = 100
	defaultPerPage = 20
)

// OpportunityService is the caller-facing operation: query + profile in,
// ordered ScoredOpportunity page out. It composes the hybrid planner and
// the ranker and owns request validation and pagination.
type OpportunityService struct {
	search *SearchService
	ranker *RankingService
}

// NewOpportunityService wires the planner and ranker.
func NewOpportunityService(search *SearchService, ranker *RankingService) *OpportunityService {
	return &OpportunityService{search: search, ranker: ranker}
}

// SearchOpportunities validates the request, runs the hybrid search, ranks
// the full candidate set against the caller's profile and returns the
// requested page. Ranking always sees the whole set — rank positions are
// relative to every candidate, not to one page.
func (s *OpportunityService) SearchOpportunities(ctx context.Context, req models.SearchRequest, profile models.UserProfile) (models.SearchResponse, error) {
	start := time.Now()

	req, err := normalizeRequest(req)
	if err != nil {
		return models.SearchResponse{}, err
	}

	candidates, meta, err := s.search.Search(ctx, req.Query, req.Filters)
	if err != nil {
		return models.SearchResponse{}, err
	}

	rankStart := time.Now()
	ranked := s.ranker.Rank(candidates, profile, req.Context)
	meta.Timings.RankMS = time.Since(rankStart).Milliseconds()
	meta.Timings.TotalMS = time.Since(start).Milliseconds()

	total := len(ranked)
	lo := (req.Page - 1) * req.PerPage
	hi := lo + req.PerPage
	if lo > total {
		lo = total
	}
	if hi > total {
		hi = total
	}

	return models.SearchResponse{
		Items:   ranked[lo:hi],
		Total:   total,
		Page:    req.Page,
		PerPage: req.PerPage,
		HasMore: hi < total,
		Meta:    meta,
	}, nil
}

// normalizeRequest applies defaults and rejects caller-correctable
// mistakes with ErrInvalidParameter.
func normalizeRequest(req models.SearchRequest) (models.SearchRequest, error) {
	if len(req.Query) > maxQueryChars {
		return req, fmt.Errorf("query is %d chars, max %d: %w", len(req.Query), maxQueryChars, models.ErrInvalidParameter)
	}
	if req.Page == 0 {
		req.Page = 1
	}
	if req.Page < 1 {
		return req, fmt.Errorf("page must be >= 1: %w", models.ErrInvalidParameter)
	}
	if req.PerPage == 0 {
		req.PerPage = defaultPerPage
	}
	if req.PerPage < 1 || req.PerPage > maxPerPage {
		return req, fmt.Errorf("per_page must be in [1,%d]: %w", maxPerPage, models.ErrInvalidParameter)
	}
	if d := req.Filters.Difficulty; d != "" && models.DifficultyTierIndex(strings.ToLower(d)) < 0 {
		return req, fmt.Errorf("unknown difficulty tier %q: %w", d, models.ErrInvalidParameter)
	}
	if bad(req.Filters.MinDifficulty, req.Filters.MaxDifficulty) {
		return req, fmt.Errorf("difficulty score range is inverted: %w", models.ErrInvalidParameter)
	}
	if bad(req.Filters.MinImpact, req.Filters.MaxImpact) {
		return req, fmt.Errorf("impact score range is inverted: %w", models.ErrInvalidParameter)
	}
	return req, nil
}

func bad(min, max *float64) bool {
	return min != nil && max != nil && *min > *max
}
