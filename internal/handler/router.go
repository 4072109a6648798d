package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/contribscout/server/internal/middleware"
)

// RegisterRoutes mounts the authenticated API surface under /api/v1.
func RegisterRoutes(app *fiber.App,
	resolver middleware.ProfileResolver,
	searchSvc OpportunitySearcher,
	repoSvc RepoDetailer,
	ingestSvc RepoIngester,
) {
	v1 := app.Group("/api/v1", middleware.Auth(resolver))
	NewSearchHandler(searchSvc).Register(v1)
	NewRepoHandler(repoSvc).Register(v1)
	NewIngestHandler(ingestSvc).Register(v1)
}
