package models

// UserProfile carries the ranking-relevant facts about the caller. The core
// only reads it; accounts and authentication live elsewhere.
type UserProfile struct {
	ID           string   `bson:"_id" json:"id"`
	Skills       []string `bson:"skills" json:"skills"`
	Interests    []string `bson:"interests" json:"interests"`
	Difficulty   string   `bson:"difficulty" json:"difficulty"`         // Preferred tier
	HoursPerWeek int      `bson:"hours_per_week" json:"hours_per_week"` // Time-commitment preference
}

// RankingContext holds session-scoped signals supplied by the caller per
// request. Ephemeral: the core never persists it.
type RankingContext struct {
	// RecentlyShown lists repository IDs the user has already been shown
	// this session, used by the diversity sub-score.
	RecentlyShown []string `json:"recently_shown"`
}
