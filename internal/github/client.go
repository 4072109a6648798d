package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/contribscout/server/internal/models"
)

// Client is a minimal wrapper around GitHub's REST API v3.
// It is intentionally light—just the endpoints ingestion requires.
type Client struct {
	http  *http.Client
	token string
}

// repoDoc is the subset of GitHub's repository payload we keep.
type repoDoc struct {
	FullName    string   `json:"full_name"`
	Description string   `json:"description"`
	Language    string   `json:"language"`
	Topics      []string `json:"topics"`
	Stars       int      `json:"stargazers_count"`
	Forks       int      `json:"forks_count"`
	Owner       struct {
		Login string `json:"login"`
	} `json:"owner"`
}

// NewClient returns a ready-to-use GitHub API client.
// token may be an empty string, but you will be subject to very low rate-limits.
func NewClient(token string) *Client {
	return &Client{
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		token: token,
	}
}

// GetRepo fetches repository metadata.
func (c *Client) GetRepo(ctx context.Context, owner, name string) (models.Repo, error) {
	u := fmt.Sprintf("https://api.github.com/repos/%s/%s", url.PathEscape(owner), url.PathEscape(name))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return models.Repo{}, err
	}
	c.addHeaders(req)

	var doc repoDoc
	if err := c.do(req, &doc); err != nil {
		return models.Repo{}, err
	}

	return models.Repo{
		ID:          doc.FullName,
		Owner:       doc.Owner.Login,
		Name:        name,
		FullName:    doc.FullName,
		Description: doc.Description,
		Language:    doc.Language,
		Topics:      doc.Topics,
		Stars:       doc.Stars,
		Forks:       doc.Forks,
	}, nil
}

// ListRepoIssues fetches issues for a repo.
//
//	owner – repository owner (e.g., "torvalds")
//	repo  – repository name  (e.g., "linux")
//	state – "open" | "closed" | "all"
//	perPage – max items per page (1–100)
func (c *Client) ListRepoIssues(ctx context.Context, owner, repo, state string, perPage int) ([]models.Issue, error) {
	u := fmt.Sprintf("https://api.github.com/repos/%s/%s/issues", url.PathEscape(owner), url.PathEscape(repo))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	q := req.URL.Query()
	if state != "" {
		q.Set("state", state)
	}
	if perPage > 0 {
		q.Set("per_page", fmt.Sprint(perPage))
	}
	req.URL.RawQuery = q.Encode()

	c.addHeaders(req)

	var issues []models.Issue
	if err := c.do(req, &issues); err != nil {
		return nil, err
	}
	return issues, nil
}

// addHeaders sets authentication and Accept headers.
func (c *Client) addHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("User-Agent", "contribscout-api")
}

// do executes the HTTP request and decodes JSON into v.
func (c *Client) do(req *http.Request, v interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("github: unexpected status %s", resp.Status)
	}

	return json.NewDecoder(resp.Body).Decode(v)
}
