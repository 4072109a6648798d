package handler

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/contribscout/server/internal/models"
	"github.com/contribscout/server/internal/service"
)

// RepoDetailer serves the detail endpoints behind search results.
type RepoDetailer interface {
	GetRepo(ctx context.Context, owner, name string) (service.RepoDetail, error)
	GetOpportunity(ctx context.Context, id string) (models.Opportunity, error)
}

// RepoHandler wires HTTP → RepoService.
type RepoHandler struct {
	svc RepoDetailer
}

// NewRepoHandler creates a new RepoHandler.
func NewRepoHandler(svc RepoDetailer) *RepoHandler {
	return &RepoHandler{svc: svc}
}

// Register mounts the detail routes on the supplied router group.
func (h *RepoHandler) Register(r fiber.Router) {
	r.Get("/repos/:owner/:name", h.getRepo)
	r.Get("/opportunities/:owner/:name/:number", h.getOpportunity)
}

// getRepo handles GET /repos/:owner/:name
func (h *RepoHandler) getRepo(c *fiber.Ctx) error {
	owner := c.Params("owner")
	name := c.Params("name")
	if owner == "" || name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "owner and name are required")
	}

	detail, err := h.svc.GetRepo(c.UserContext(), owner, name)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(detail)
}

// getOpportunity handles GET /opportunities/:owner/:name/:number
func (h *RepoHandler) getOpportunity(c *fiber.Ctx) error {
	owner := c.Params("owner")
	name := c.Params("name")
	number, err := c.ParamsInt("number")
	if err != nil || number < 1 {
		return fiber.NewError(fiber.StatusBadRequest, "number must be a positive integer")
	}

	id := fmt.Sprintf("%s/%s#%d", owner, name, number)
	opp, err := h.svc.GetOpportunity(c.UserContext(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(opp)
}
