package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contribscout/server/internal/models"
)

func newTestRanker(t *testing.T) *RankingService {
	t.Helper()
	r, err := NewRankingService(DefaultRankingWeights())
	require.NoError(t, err)
	r.now = func() time.Time { return time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC) }
	return r
}

func candidate(id, repoID string, opts ...func(*models.Opportunity)) models.FusedCandidate {
	opp := models.Opportunity{
		ID:              id,
		RepoID:          repoID,
		Difficulty:      models.DifficultyIntermediate,
		DifficultyScore: models.DefaultDifficulty,
		ImpactScore:     models.DefaultImpact,
		State:           models.OpportunityOpen,
		UpdatedAt:       time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC),
		RepoStars:       1000,
	}
	for _, opt := range opts {
		opt(&opp)
	}
	return models.FusedCandidate{Opportunity: opp, Fused: 1}
}

func TestRankingWeightsValidate(t *testing.T) {
	assert.NoError(t, DefaultRankingWeights().Validate())

	bad := DefaultRankingWeights()
	bad.SkillMatch = 0.5
	assert.Error(t, bad.Validate())

	_, err := NewRankingService(bad)
	assert.Error(t, err)
}

func TestRankDenseRanks(t *testing.T) {
	ranker := newTestRanker(t)

	for _, n := range []int{0, 1, 2, 25} {
		candidates := make([]models.FusedCandidate, n)
		for i := range candidates {
			candidates[i] = candidate(string(rune('a'+i%26))+"/x#1", "r")
		}

		ranked := ranker.Rank(candidates, models.UserProfile{}, models.RankingContext{})
		require.Len(t, ranked, n)

		seen := make(map[int]bool, n)
		for i, s := range ranked {
			assert.Equal(t, i+1, s.Rank, "ranks must be dense and 1-based")
			assert.False(t, seen[s.Rank], "duplicate rank %d", s.Rank)
			seen[s.Rank] = true
		}
	}
}

func TestRankIdempotent(t *testing.T) {
	ranker := newTestRanker(t)
	candidates := []models.FusedCandidate{
		candidate("a/x#1", "a/x", func(o *models.Opportunity) { o.ImpactScore = 9 }),
		candidate("b/y#2", "b/y", func(o *models.Opportunity) { o.Skills = []string{"Go"} }),
		candidate("c/z#3", "c/z", func(o *models.Opportunity) { o.RepoStars = 90000 }),
	}
	profile := models.UserProfile{Skills: []string{"Go"}, Difficulty: models.DifficultyIntermediate}
	rctx := models.RankingContext{RecentlyShown: []string{"c/z"}}

	first := ranker.Rank(candidates, profile, rctx)
	second := ranker.Rank(candidates, profile, rctx)
	assert.Equal(t, first, second)
}

func TestRankSkillMatchDominates(t *testing.T) {
	ranker := newTestRanker(t)

	// Equal impact/freshness/popularity baselines; only skills differ.
	matching := candidate("conf/parser#1", "conf/parser", func(o *models.Opportunity) {
		o.Title = "Add TypeScript support to configuration parser"
		o.Skills = []string{"TypeScript"}
		o.Difficulty = models.DifficultyBeginner
	})
	unrelated := candidate("other/tool#2", "other/tool", func(o *models.Opportunity) {
		o.Title = "Rewrite scheduler in Rust"
		o.Skills = []string{"Rust", "Systems Programming"}
		o.Difficulty = models.DifficultyBeginner
	})

	profile := models.UserProfile{Skills: []string{"TypeScript"}, Difficulty: models.DifficultyBeginner}
	ranked := ranker.Rank([]models.FusedCandidate{unrelated, matching}, profile, models.RankingContext{})

	require.Len(t, ranked, 2)
	assert.Equal(t, "conf/parser#1", ranked[0].Opportunity.ID)
	assert.Equal(t, 1, ranked[0].Rank)
	assert.Equal(t, 1.0, ranked[0].SubScores[ScoreSkillMatch])
	assert.Equal(t, 0.0, ranked[1].SubScores[ScoreSkillMatch])
}

func TestRankDiversityPenalty(t *testing.T) {
	ranker := newTestRanker(t)

	shownRepo := candidate("big/repo#2", "big/repo")
	novel := candidate("new/repo#1", "new/repo")

	rctx := models.RankingContext{RecentlyShown: []string{"big/repo"}}
	ranked := ranker.Rank([]models.FusedCandidate{shownRepo, novel}, models.UserProfile{}, rctx)

	byID := map[string]models.ScoredOpportunity{}
	for _, s := range ranked {
		byID[s.Opportunity.ID] = s
	}
	assert.Equal(t, 1.0, byID["new/repo#1"].SubScores[ScoreDiversity])
	assert.Less(t, byID["big/repo#2"].SubScores[ScoreDiversity], byID["new/repo#1"].SubScores[ScoreDiversity])
	assert.Equal(t, "new/repo#1", ranked[0].Opportunity.ID)
}

func TestSkillMatch(t *testing.T) {
	user := lowerSet([]string{"Go", "TypeScript"})

	assert.Equal(t, 1.0, skillMatch(nil, user), "no required skills scores full")
	assert.Equal(t, 1.0, skillMatch([]string{"go"}, user))
	assert.Equal(t, 0.5, skillMatch([]string{"Go", "Rust"}, user))
	assert.Equal(t, 0.0, skillMatch([]string{"Rust"}, user))
}

func TestDifficultyMatchDecay(t *testing.T) {
	assert.Equal(t, 1.0, difficultyMatch("beginner", "beginner"))
	assert.Equal(t, 0.6, difficultyMatch("beginner", "intermediate"))
	assert.Equal(t, 0.2, difficultyMatch("beginner", "advanced"))
	assert.Equal(t, 0.05, difficultyMatch("beginner", "expert"))
	assert.Equal(t, 0.6, difficultyMatch("expert", "advanced"), "distance is symmetric")
	assert.Equal(t, 0.5, difficultyMatch("unknown", "beginner"), "unknown tiers score neutral")
	assert.Equal(t, 1.0, difficultyMatch("Beginner", "BEGINNER"), "case-insensitive")
}

func TestPopularityScoreSaturates(t *testing.T) {
	assert.Equal(t, 0.0, popularityScore(0))
	assert.Equal(t, 0.5, popularityScore(5000))

	// Monotonic with diminishing returns.
	small := popularityScore(100)
	mid := popularityScore(10000)
	huge := popularityScore(1000000)
	assert.Greater(t, mid, small)
	assert.Greater(t, huge, mid)
	assert.Less(t, huge, 1.0)
	assert.Less(t, huge-mid, mid-small)
}

func TestFreshnessScoreFloors(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	assert.InDelta(t, 1.0, freshnessScore(now, now), 1e-9)
	assert.InDelta(t, 0.5, freshnessScore(now.Add(-30*24*time.Hour), now), 1e-9)
	assert.Equal(t, freshnessFloor, freshnessScore(now.Add(-10*365*24*time.Hour), now),
		"ancient opportunities floor instead of reaching zero")
	assert.Equal(t, freshnessFloor, freshnessScore(time.Time{}, now))
}
