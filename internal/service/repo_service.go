package service

import (
	"context"
	"log"

	"github.com/contribscout/server/internal/models"
)

// ---- Repository contracts --------------------------------------------------

// RepoReader fetches stored repository metadata.
type RepoReader interface {
	FindByID(ctx context.Context, id string) (models.Repo, error)
}

// OpportunityReader fetches stored opportunities.
type OpportunityReader interface {
	FindByID(ctx context.Context, id string) (models.Opportunity, error)
}

// ---- Return DTO ------------------------------------------------------------

// RepoDetail combines stored metadata with live GitHub issues.
type RepoDetail struct {
	Repo   models.Repo    `json:"repo"`
	Issues []models.Issue `json:"issues"`
}

// ---- Service ---------------------------------------------------------------

// RepoService serves the detail endpoints behind search results.
type RepoService struct {
	repos  RepoReader
	opps   OpportunityReader
	source IssueSource
}

// NewRepoService returns a concrete implementation.
func NewRepoService(repos RepoReader, opps OpportunityReader, source IssueSource) *RepoService {
	return &RepoService{repos: repos, opps: opps, source: source}
}

// GetRepo fetches repository metadata from the store, then pulls live open
// issues from GitHub. A GitHub failure is non-fatal: the stored metadata
// still has value on its own.
func (s *RepoService) GetRepo(ctx context.Context, owner, name string) (RepoDetail, error) {
	repo, err := s.repos.FindByID(ctx, owner+"/"+name)
	if err != nil {
		return RepoDetail{}, err
	}

	issues, err := s.source.ListRepoIssues(ctx, owner, name, "open", 20)
	if err != nil {
		log.Printf("repo detail: live issues for %s unavailable: %v", repo.ID, err)
		return RepoDetail{Repo: repo}, nil
	}

	return RepoDetail{Repo: repo, Issues: issues}, nil
}

// GetOpportunity fetches one opportunity by its "owner/repo#123" ID.
func (s *RepoService) GetOpportunity(ctx context.Context, id string) (models.Opportunity, error) {
	return s.opps.FindByID(ctx, id)
}
