package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/contribscout/server/internal/middleware"
	"github.com/contribscout/server/internal/models"
)

// OpportunitySearcher is the service-layer operation this handler fronts.
type OpportunitySearcher interface {
	SearchOpportunities(ctx context.Context, req models.SearchRequest, profile models.UserProfile) (models.SearchResponse, error)
}

// SearchHandler wires HTTP → OpportunityService.
type SearchHandler struct {
	svc OpportunitySearcher
}

// NewSearchHandler returns a handler instance.
func NewSearchHandler(svc OpportunitySearcher) *SearchHandler {
	return &SearchHandler{svc: svc}
}

// Register mounts POST /search/opportunities on the given router group.
func (h *SearchHandler) Register(r fiber.Router) {
	r.Post("/search/opportunities", h.search)
}

// search handles POST /search/opportunities.
func (h *SearchHandler) search(c *fiber.Ctx) error {
	var req models.SearchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
	}

	profile := middleware.ProfileFrom(c)

	resp, err := h.svc.SearchOpportunities(c.UserContext(), req, profile)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(resp)
}
