package service

import (
	"fmt"
	"math"
	"runtime"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/contribscout/server/internal/models"
)

// Sub-score names, used as keys in ScoredOpportunity.SubScores.
const (
	ScoreSkillMatch      = "skillMatch"
	ScoreDifficultyMatch = "difficultyMatch"
	ScoreImpact          = "impactScore"
	ScorePopularity      = "popularityScore"
	ScoreFreshness       = "freshnessScore"
	ScoreDiversity       = "diversityScore"
)

// RankingWeights is the single named weight table for the final score.
// Tuning these is an expected operational activity; they must sum to 1.0.
type RankingWeights struct {
	SkillMatch      float64
	DifficultyMatch float64
	Impact          float64
	Popularity      float64
	Freshness       float64
	Diversity       float64
}

// DefaultRankingWeights returns the production weight table.
func DefaultRankingWeights() RankingWeights {
	return RankingWeights{
		SkillMatch:      0.30,
		DifficultyMatch: 0.20,
		Impact:          0.20,
		Popularity:      0.10,
		Freshness:       0.10,
		Diversity:       0.10,
	}
}

// Validate checks the weights sum to 1.0 (within floating-point slack).
// Called at startup; a bad table is a deployment bug.
func (w RankingWeights) Validate() error {
	sum := w.SkillMatch + w.DifficultyMatch + w.Impact + w.Popularity + w.Freshness + w.Diversity
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("ranking weights sum to %g, want 1.0", sum)
	}
	return nil
}

// Ranker tuning knobs beyond the weight table.
const (
	popularitySaturation = 5000.0 // Stars at which popularity reaches 0.5

	freshnessHalfLife = 30 * 24 * time.Hour
	freshnessFloor    = 0.2 // Stale-but-valid work is never zeroed out

	diversityPenalty = 0.3 // Score for a repo already shown this session
)

// difficultyDecay[d] is the difficultyMatch score at tier distance d;
// distances past the end use the last entry.
var difficultyDecay = []float64{1.0, 0.6, 0.2, 0.05}

// RankingService turns fused candidates into a personalized, densely
// ranked list.
type RankingService struct {
	weights RankingWeights
	now     func() time.Time // Injected for tests
}

// NewRankingService validates and captures the weight table.
func NewRankingService(weights RankingWeights) (*RankingService, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return &RankingService{weights: weights, now: time.Now}, nil
}

// Rank scores every candidate against the profile and context, sorts by
// final score and assigns dense 1-based ranks. A pure function over its
// inputs: identical inputs produce identical ordering and scores.
//
// Sub-scores are independent per candidate and computed concurrently; the
// sort and rank assignment are a single serial pass, because a rank is only
// meaningful relative to the whole set.
func (r *RankingService) Rank(candidates []models.FusedCandidate, profile models.UserProfile, rctx models.RankingContext) []models.ScoredOpportunity {
	scored := make([]models.ScoredOpportunity, len(candidates))
	if len(candidates) == 0 {
		return scored
	}

	shown := make(map[string]struct{}, len(rctx.RecentlyShown))
	for _, repoID := range rctx.RecentlyShown {
		shown[repoID] = struct{}{}
	}
	userSkills := lowerSet(profile.Skills)
	now := r.now()

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range candidates {
		g.Go(func() error {
			scored[i] = r.score(candidates[i].Opportunity, userSkills, profile, shown, now)
			return nil
		})
	}
	_ = g.Wait() // score never fails

	// Stable sort: equal final scores keep their fused-candidate order,
	// which the planner already made deterministic down to the ID.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].FinalScore > scored[j].FinalScore
	})
	for i := range scored {
		scored[i].Rank = i + 1
	}
	return scored
}

// score computes the six sub-scores and their weighted combination for one
// opportunity.
func (r *RankingService) score(opp models.Opportunity, userSkills map[string]struct{}, profile models.UserProfile, shown map[string]struct{}, now time.Time) models.ScoredOpportunity {
	subs := map[string]float64{
		ScoreSkillMatch:      skillMatch(opp.Skills, userSkills),
		ScoreDifficultyMatch: difficultyMatch(opp.Difficulty, profile.Difficulty),
		ScoreImpact:          clamp01(opp.ImpactScore / models.ScoreScaleMax),
		ScorePopularity:      popularityScore(opp.RepoStars),
		ScoreFreshness:       freshnessScore(opp.UpdatedAt, now),
		ScoreDiversity:       diversityScore(opp.RepoID, shown),
	}

	final := r.weights.SkillMatch*subs[ScoreSkillMatch] +
		r.weights.DifficultyMatch*subs[ScoreDifficultyMatch] +
		r.weights.Impact*subs[ScoreImpact] +
		r.weights.Popularity*subs[ScorePopularity] +
		r.weights.Freshness*subs[ScoreFreshness] +
		r.weights.Diversity*subs[ScoreDiversity]

	return models.ScoredOpportunity{
		Opportunity: opp,
		SubScores:   subs,
		FinalScore:  final,
	}
}

// skillMatch is the fraction of required skills the user has; 1.0 when the
// opportunity requires none.
func skillMatch(required []string, userSkills map[string]struct{}) float64 {
	if len(required) == 0 {
		return 1.0
	}
	matched := 0
	for _, skill := range required {
		if _, ok := userSkills[strings.ToLower(skill)]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(required))
}

// difficultyMatch collapses the tier distance between the opportunity and
// the user's preference through a fixed decay table. Unknown tiers on
// either side score neutral.
func difficultyMatch(oppTier, userTier string) float64 {
	a := models.DifficultyTierIndex(strings.ToLower(oppTier))
	b := models.DifficultyTierIndex(strings.ToLower(userTier))
	if a < 0 || b < 0 {
		return 0.5
	}
	dist := a - b
	if dist < 0 {
		dist = -dist
	}
	if dist >= len(difficultyDecay) {
		dist = len(difficultyDecay) - 1
	}
	return difficultyDecay[dist]
}

// popularityScore saturates so mega-repositories cannot dominate: stars
// map through s/(s+K), which is monotonic with diminishing returns.
func popularityScore(stars int) float64 {
	if stars <= 0 {
		return 0
	}
	s := float64(stars)
	return s / (s + popularitySaturation)
}

// freshnessScore decays exponentially with time since last update, floored
// so stale-but-valid opportunities are never excluded on freshness alone.
func freshnessScore(updatedAt time.Time, now time.Time) float64 {
	if updatedAt.IsZero() {
		return freshnessFloor
	}
	age := now.Sub(updatedAt)
	if age < 0 {
		age = 0
	}
	decay := math.Exp2(-float64(age) / float64(freshnessHalfLife))
	if decay < freshnessFloor {
		return freshnessFloor
	}
	return decay
}

// diversityScore penalizes opportunities whose repository the user has
// already been shown this session.
func diversityScore(repoID string, shown map[string]struct{}) float64 {
	if _, ok := shown[repoID]; ok {
		return diversityPenalty
	}
	return 1.0
}

func lowerSet(vals []string) map[string]struct{} {
	set := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		set[strings.ToLower(v)] = struct{}{}
	}
	return set
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
