package handler

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// RepoIngester pulls a repository's open issues into the opportunity corpus
// and maintains their lifecycle state.
type RepoIngester interface {
	IngestRepo(ctx context.Context, owner, name string, perPage int) (int, error)
	MarkOpportunityState(ctx context.Context, id, state string) error
}

// IngestHandler wires HTTP → IngestService.
type IngestHandler struct {
	svc RepoIngester
}

// NewIngestHandler returns a handler instance.
func NewIngestHandler(svc RepoIngester) *IngestHandler {
	return &IngestHandler{svc: svc}
}

// Register mounts the admin routes on the given router group.
func (h *IngestHandler) Register(r fiber.Router) {
	r.Post("/admin/ingest/:owner/:name", h.ingest)
	r.Patch("/admin/opportunities/:owner/:name/:number/state", h.markState)
}

// ingest handles POST /admin/ingest/:owner/:name?limit=100
func (h *IngestHandler) ingest(c *fiber.Ctx) error {
	owner := c.Params("owner")
	name := c.Params("name")
	if owner == "" || name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "owner and name are required")
	}

	limit, err := strconv.Atoi(c.Query("limit", "100"))
	if err != nil || limit < 1 || limit > 100 {
		return fiber.NewError(fiber.StatusBadRequest, "limit must be in [1,100]")
	}

	count, err := h.svc.IngestRepo(c.UserContext(), owner, name, limit)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(fiber.Map{
		"repo":     owner + "/" + name,
		"ingested": count,
	})
}

// markState handles PATCH /admin/opportunities/:owner/:name/:number/state
func (h *IngestHandler) markState(c *fiber.Ctx) error {
	var body struct {
		State string `json:"state"`
	}
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
	}

	number, err := c.ParamsInt("number")
	if err != nil || number < 1 {
		return fiber.NewError(fiber.StatusBadRequest, "number must be a positive integer")
	}

	id := fmt.Sprintf("%s/%s#%d", c.Params("owner"), c.Params("name"), number)
	if err := h.svc.MarkOpportunityState(c.UserContext(), id, body.State); err != nil {
		return toHTTPError(err)
	}

	return c.JSON(fiber.Map{"id": id, "state": body.State})
}
