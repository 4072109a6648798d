package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contribscout/server/internal/middleware"
	"github.com/contribscout/server/internal/models"
)

// ---- fakes -----------------------------------------------------------------

type stubResolver struct{}

func (stubResolver) FindProfileByToken(_ context.Context, token string) (models.UserProfile, error) {
	if token != "valid-token" {
		return models.UserProfile{}, models.ErrUnauthorized
	}
	return models.UserProfile{ID: "u1", Skills: []string{"Go"}}, nil
}

type stubOpportunityService struct {
	err         error
	lastProfile models.UserProfile
}

func (s *stubOpportunityService) SearchOpportunities(_ context.Context, req models.SearchRequest, profile models.UserProfile) (models.SearchResponse, error) {
	s.lastProfile = profile
	if s.err != nil {
		return models.SearchResponse{}, s.err
	}
	return models.SearchResponse{
		Items: []models.ScoredOpportunity{{
			Opportunity: models.Opportunity{ID: "acme/widgets#1", Title: "Fix flaky test"},
			FinalScore:  0.8,
			Rank:        1,
		}},
		Total:   1,
		Page:    1,
		PerPage: 20,
	}, nil
}

func newTestApp(svc *stubOpportunityService) *fiber.App {
	app := fiber.New()
	v1 := app.Group("/api/v1", middleware.Auth(stubResolver{}))
	NewSearchHandler(svc).Register(v1)
	return app
}

func searchRequest(t *testing.T, body any, token string) *http.Request {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search/opportunities", bytes.NewReader(buf))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	return req
}

// ---- tests -----------------------------------------------------------------

func TestSearchRequiresAuth(t *testing.T) {
	app := newTestApp(&stubOpportunityService{})

	resp, err := app.Test(searchRequest(t, models.SearchRequest{}, ""))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = app.Test(searchRequest(t, models.SearchRequest{}, "wrong-token"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSearchReturnsRankedPage(t *testing.T) {
	svc := &stubOpportunityService{}
	app := newTestApp(svc)

	resp, err := app.Test(searchRequest(t, models.SearchRequest{Query: "flaky"}, "valid-token"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body models.SearchResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, "acme/widgets#1", body.Items[0].Opportunity.ID)
	assert.Equal(t, 1, body.Items[0].Rank)

	assert.Equal(t, "u1", svc.lastProfile.ID, "the authenticated profile reaches the service")
}

func TestSearchErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"invalid parameter", fmt.Errorf("page: %w", models.ErrInvalidParameter), http.StatusBadRequest},
		{"search unavailable", fmt.Errorf("both sources: %w", models.ErrSearchUnavailable), http.StatusServiceUnavailable},
		{"index unavailable", fmt.Errorf("lexical: %w", models.ErrIndexUnavailable), http.StatusServiceUnavailable},
		{"dimension mismatch", fmt.Errorf("vec: %w", models.ErrDimensionMismatch), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(&stubOpportunityService{err: tt.err})

			resp, err := app.Test(searchRequest(t, models.SearchRequest{}, "valid-token"))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestSearchRejectsMalformedBody(t *testing.T) {
	app := newTestApp(&stubOpportunityService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search/opportunities", bytes.NewReader([]byte("{not json")))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer valid-token")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
