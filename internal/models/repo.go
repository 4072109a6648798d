package models

// Repo represents a GitHub repository with its metadata and vector embedding.
type Repo struct {
	ID          string    `bson:"_id" json:"id"`      // Repository full name (e.g. "facebook/react")
	Owner       string    `bson:"owner" json:"owner"` // GitHub username
	Name        string    `bson:"name" json:"name"`   // Repository name
	FullName    string    `bson:"full_name" json:"full_name"`
	Description string    `bson:"description" json:"description"`
	Language    string    `bson:"language" json:"language"` // Primary language
	Topics      []string  `bson:"topics" json:"topics"`
	Stars       int       `bson:"stars" json:"stars"`
	Forks       int       `bson:"forks" json:"forks"`
	Health      float64   `bson:"health" json:"health"` // Activity score in [0,1]
	ImageURL    string    `bson:"image_url" json:"image_url"`
	Embedding   []float32 `bson:"embedding,omitempty" json:"-"` // Absent or exactly the configured dimension
}

// Issue captures the minimal fields we care about from GitHub's REST API.
type Issue struct {
	ID        int     `json:"id"         bson:"id"`
	Number    int     `json:"number"     bson:"number"`
	Title     string  `json:"title"      bson:"title"`
	Body      string  `json:"body"       bson:"body"`
	State     string  `json:"state"      bson:"state"`
	HTMLURL   string  `json:"html_url"   bson:"html_url"`
	Labels    []Label `json:"labels"     bson:"labels"`
	CreatedAt string  `json:"created_at" bson:"created_at"`
	UpdatedAt string  `json:"updated_at" bson:"updated_at"`
	User      struct {
		Login string `json:"login" bson:"login"`
	} `json:"user" bson:"user"`
}

// Label is a GitHub issue label.
type Label struct {
	Name string `json:"name" bson:"name"`
}
