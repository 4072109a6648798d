package models

import "time"

// Difficulty tiers, ordered from easiest to hardest. The ordering is load
// bearing: the ranker measures tier distance by index.
const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
	DifficultyExpert       = "expert"
)

// DifficultyTiers lists the known tiers in ascending order.
var DifficultyTiers = []string{
	DifficultyBeginner,
	DifficultyIntermediate,
	DifficultyAdvanced,
	DifficultyExpert,
}

// DifficultyTierIndex returns the ordinal position of a tier, or -1 for an
// unknown tier name (comparison is case-insensitive at the call sites).
func DifficultyTierIndex(tier string) int {
	for i, t := range DifficultyTiers {
		if t == tier {
			return i
		}
	}
	return -1
}

// Opportunity lifecycle states. Opportunities are never deleted, only
// marked closed or stale.
const (
	OpportunityOpen   = "open"
	OpportunityClosed = "closed"
	OpportunityStale  = "stale"
)

// Bounds for the stored difficulty and impact scores. Both fields are
// always populated (defaulted on ingestion, never null) because the
// ranker reads them unconditionally.
const (
	ScoreScaleMax     = 10.0
	DefaultDifficulty = 5.0
	DefaultImpact     = 5.0
)

// Opportunity is a single contribution opportunity derived from a GitHub
// issue or pull request.
type Opportunity struct {
	ID          string `bson:"_id" json:"id"`         // "owner/repo#123"
	RepoID      string `bson:"repo_id" json:"repo_id"` // Owning repository full name
	Number      int    `bson:"number" json:"number"`   // Source issue/PR number
	Title       string `bson:"title" json:"title"`
	Description string `bson:"description" json:"description"`

	// Structured metadata derived from labels and heuristics on ingestion.
	Labels         []string `bson:"labels" json:"labels"`
	Skills         []string `bson:"skills" json:"skills"` // Required skills
	Difficulty     string   `bson:"difficulty" json:"difficulty"`
	EstimatedHours int      `bson:"estimated_hours" json:"estimated_hours"`
	Mentorship     bool     `bson:"mentorship" json:"mentorship"`
	GoodFirstIssue bool     `bson:"good_first_issue" json:"good_first_issue"`
	Hacktoberfest  bool     `bson:"hacktoberfest" json:"hacktoberfest"`
	Priority       string   `bson:"priority" json:"priority"`
	Complexity     float64  `bson:"complexity" json:"complexity"`
	LearningScore  float64  `bson:"learning_score" json:"learning_score"`

	// Always populated, in [0, ScoreScaleMax].
	DifficultyScore float64 `bson:"difficulty_score" json:"difficulty_score"`
	ImpactScore     float64 `bson:"impact_score" json:"impact_score"`

	State     string    `bson:"state" json:"state"`
	Embedding []float32 `bson:"embedding,omitempty" json:"-"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`

	// Denormalized repository fields used by the ranker without a join.
	RepoStars    int    `bson:"repo_stars" json:"repo_stars"`
	RepoLanguage string `bson:"repo_language" json:"repo_language"`
}
