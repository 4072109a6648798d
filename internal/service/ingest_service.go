package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/contribscout/server/internal/models"
)

// ---- Collaborator contracts ------------------------------------------------

// IssueSource pulls repository metadata and issues, normally GitHub's REST
// API. Webhooks, pagination and rate limiting belong to the full ingestion
// pipeline outside this service; this is the admin-triggered form.
type IssueSource interface {
	GetRepo(ctx context.Context, owner, name string) (models.Repo, error)
	ListRepoIssues(ctx context.Context, owner, repo, state string, perPage int) ([]models.Issue, error)
}

// OpportunityWriter persists opportunities.
type OpportunityWriter interface {
	Upsert(ctx context.Context, opp models.Opportunity) error
	MarkState(ctx context.Context, id, state string) error
}

// RepoWriter persists repository metadata.
type RepoWriter interface {
	Upsert(ctx context.Context, repo models.Repo) error
}

// BatchEmbedder is the ingestion-side slice of the embedding gateway.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// ResultInvalidator drops cached search results after the corpus changes.
type ResultInvalidator interface {
	InvalidateResults(ctx context.Context) error
}

// ---- Service ---------------------------------------------------------------

// IngestService turns a repository's open issues into searchable
// opportunities: metadata derived from labels, embeddings computed in one
// batch, documents upserted, then the result cache invalidated.
type IngestService struct {
	source  IssueSource
	opps    OpportunityWriter
	repos   RepoWriter
	embed   BatchEmbedder
	results ResultInvalidator
}

// NewIngestService wires dependencies.
func NewIngestService(source IssueSource, opps OpportunityWriter, repos RepoWriter, embed BatchEmbedder, results ResultInvalidator) *IngestService {
	return &IngestService{
		source:  source,
		opps:    opps,
		repos:   repos,
		embed:   embed,
		results: results,
	}
}

// IngestRepo pulls up to perPage open issues for owner/name and upserts
// them as opportunities. Returns the number ingested.
//
// Embeddings for the whole batch are computed in one gateway call; if that
// call fails nothing is written, so the corpus never holds opportunities
// whose text and embedding disagree.
func (s *IngestService) IngestRepo(ctx context.Context, owner, name string, perPage int) (int, error) {
	repo, err := s.source.GetRepo(ctx, owner, name)
	if err != nil {
		return 0, fmt.Errorf("fetch repo %s/%s: %w", owner, name, err)
	}

	issues, err := s.source.ListRepoIssues(ctx, owner, name, "open", perPage)
	if err != nil {
		return 0, fmt.Errorf("fetch issues for %s: %w", repo.ID, err)
	}
	if len(issues) == 0 {
		return 0, s.repos.Upsert(ctx, repo)
	}

	texts := make([]string, len(issues))
	for i, issue := range issues {
		texts[i] = issue.Title + "\n\n" + issue.Body
	}
	vecs, err := s.embed.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed %d issues for %s: %w", len(issues), repo.ID, err)
	}

	if err := s.repos.Upsert(ctx, repo); err != nil {
		return 0, fmt.Errorf("upsert repo %s: %w", repo.ID, err)
	}

	count := 0
	for i, issue := range issues {
		opp := opportunityFromIssue(repo, issue)
		opp.Embedding = vecs[i]
		if err := s.opps.Upsert(ctx, opp); err != nil {
			return count, fmt.Errorf("upsert %s: %w", opp.ID, err)
		}
		count++
	}

	if err := s.results.InvalidateResults(ctx); err != nil {
		// Stale cached results expire on their own TTL; log and move on.
		log.Printf("ingest: cache invalidation failed: %v", err)
	}

	log.Printf("ingest: %s now has %d opportunities", repo.ID, count)
	return count, nil
}

// MarkOpportunityState transitions an opportunity to closed or stale and
// drops cached results that may still list it as open.
func (s *IngestService) MarkOpportunityState(ctx context.Context, id, state string) error {
	if state != models.OpportunityClosed && state != models.OpportunityStale {
		return fmt.Errorf("state must be %q or %q: %w",
			models.OpportunityClosed, models.OpportunityStale, models.ErrInvalidParameter)
	}
	if err := s.opps.MarkState(ctx, id, state); err != nil {
		return fmt.Errorf("mark %s %s: %w", id, state, err)
	}
	if err := s.results.InvalidateResults(ctx); err != nil {
		log.Printf("ingest: cache invalidation failed: %v", err)
	}
	return nil
}

// opportunityFromIssue derives structured metadata from an issue's labels.
// Difficulty and impact scores are always populated — the ranker reads
// them unconditionally.
func opportunityFromIssue(repo models.Repo, issue models.Issue) models.Opportunity {
	labels := make([]string, len(issue.Labels))
	for i, l := range issue.Labels {
		labels[i] = l.Name
	}

	opp := models.Opportunity{
		ID:              fmt.Sprintf("%s#%d", repo.ID, issue.Number),
		RepoID:          repo.ID,
		Number:          issue.Number,
		Title:           issue.Title,
		Description:     issue.Body,
		Labels:          labels,
		Difficulty:      models.DifficultyIntermediate,
		DifficultyScore: models.DefaultDifficulty,
		ImpactScore:     models.DefaultImpact,
		State:           models.OpportunityOpen,
		CreatedAt:       parseGitHubTime(issue.CreatedAt),
		UpdatedAt:       parseGitHubTime(issue.UpdatedAt),
		RepoStars:       repo.Stars,
		RepoLanguage:    strings.ToLower(repo.Language),
	}

	for _, label := range labels {
		switch l := strings.ToLower(label); {
		case l == "good first issue" || l == "good-first-issue":
			opp.GoodFirstIssue = true
			opp.Difficulty = models.DifficultyBeginner
			opp.DifficultyScore = 2.0
		case l == "help wanted":
			opp.Mentorship = true
		case l == "hacktoberfest":
			opp.Hacktoberfest = true
		case strings.HasPrefix(l, "difficulty/"):
			if models.DifficultyTierIndex(strings.TrimPrefix(l, "difficulty/")) >= 0 {
				opp.Difficulty = strings.TrimPrefix(l, "difficulty/")
			}
		case strings.HasPrefix(l, "skill/"):
			opp.Skills = append(opp.Skills, strings.TrimPrefix(l, "skill/"))
		case l == "critical" || l == "priority/high":
			opp.Priority = "high"
			opp.ImpactScore = 8.0
		}
	}

	// A repository's primary language is an implicit required skill when
	// labels declare none.
	if len(opp.Skills) == 0 && repo.Language != "" {
		opp.Skills = []string{repo.Language}
	}

	return opp
}

func parseGitHubTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
