package models

// ---- Search input ----------------------------------------------------------

// SearchFilters are the structural pre-filters applied by both index
// adapters before any relevance scoring.
type SearchFilters struct {
	Language       string   `json:"language"`
	Difficulty     string   `json:"difficulty"` // Exact tier match
	MinDifficulty  *float64 `json:"min_difficulty"`
	MaxDifficulty  *float64 `json:"max_difficulty"`
	MinImpact      *float64 `json:"min_impact"`
	MaxImpact      *float64 `json:"max_impact"`
	Labels         []string `json:"labels"`
	Skills         []string `json:"skills"`
	GoodFirstIssue *bool    `json:"good_first_issue"`
	Mentorship     *bool    `json:"mentorship"`
	Hacktoberfest  *bool    `json:"hacktoberfest"`
	MinStars       int      `json:"min_stars"`
}

// SearchRequest is the payload for POST /search/opportunities.
type SearchRequest struct {
	Query   string        `json:"query"`
	Filters SearchFilters `json:"filters"`
	Page    int           `json:"page"`
	PerPage int           `json:"per_page"`
	// Context carries session signals (recently shown repos) for ranking.
	Context RankingContext `json:"context"`
}

// ---- Search output ---------------------------------------------------------

// OpportunityHit is one index-adapter result: an opportunity plus the
// relevance score the index assigned it, both decoded from the same
// aggregation document.
type OpportunityHit struct {
	Opportunity `bson:",inline"`
	Score       float64 `bson:"search_score" json:"score"`
}

// Candidate sources, recorded per fused candidate for observability.
const (
	SourceLexical = "lexical"
	SourceVector  = "vector"
)

// FusedCandidate is one opportunity after score fusion: the raw per-source
// scores plus the weighted combination. This is what the result cache
// stores — personalization happens afterwards and is cheap to recompute.
type FusedCandidate struct {
	Opportunity Opportunity `bson:"opportunity" json:"opportunity"`
	Lexical     float64     `bson:"lexical" json:"lexical"`
	Vector      float64     `bson:"vector" json:"vector"`
	Fused       float64     `bson:"fused" json:"fused"`
	Sources     []string    `bson:"sources" json:"sources"`
}

// ScoredOpportunity is the ranker's output: an opportunity with its named
// sub-scores, the combined final score, and a dense 1-based rank. Produced
// fresh on every ranking call; never persisted.
type ScoredOpportunity struct {
	Opportunity Opportunity        `json:"opportunity"`
	SubScores   map[string]float64 `json:"sub_scores"`
	FinalScore  float64            `json:"final_score"`
	Rank        int                `json:"rank"`
}

// StageTimings reports elapsed wall time per pipeline stage, in
// milliseconds, for query-execution observability.
type StageTimings struct {
	EmbedMS   int64 `json:"embed_ms"`
	LexicalMS int64 `json:"lexical_ms"`
	VectorMS  int64 `json:"vector_ms"`
	FuseMS    int64 `json:"fuse_ms"`
	RankMS    int64 `json:"rank_ms"`
	TotalMS   int64 `json:"total_ms"`
}

// SearchMeta describes how a result set was produced.
type SearchMeta struct {
	// Degraded is true when exactly one index source failed and the
	// results come from the surviving source only.
	Degraded bool         `json:"degraded"`
	CacheHit bool         `json:"cache_hit"`
	Timings  StageTimings `json:"timings"`
}

// SearchResponse is the payload returned by POST /search/opportunities.
type SearchResponse struct {
	Items   []ScoredOpportunity `json:"items"`
	Total   int                 `json:"total"`
	Page    int                 `json:"page"`
	PerPage int                 `json:"per_page"`
	HasMore bool                `json:"has_more"`
	Meta    SearchMeta          `json:"meta"`
}
