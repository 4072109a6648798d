package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/contribscout/server/internal/cache"
	"github.com/contribscout/server/internal/config"
	"github.com/contribscout/server/internal/database"
	"github.com/contribscout/server/internal/github"
	"github.com/contribscout/server/internal/handler"
	"github.com/contribscout/server/internal/repository"
	"github.com/contribscout/server/internal/service"
)

// main is the single entry-point for the REST API.
func main() {
	ctx := context.Background()

	// Load configuration
	cfg := config.Load()
	log.Printf("Configuration loaded:")
	log.Printf("  - Database: %s", cfg.DBName)
	log.Printf("  - Embedding dim: %d", cfg.EmbeddingDim)

	// Connect to MongoDB
	client, err := database.NewMongo(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(context.Background())
	log.Printf("Connected to MongoDB")

	db := client.Database(cfg.DBName)

	// Initialize repositories
	oppRepo := repository.NewOpportunityRepository(db, cfg.EmbeddingDim)
	repoRepo := repository.NewRepoRepository(db)
	userRepo := repository.NewUserRepository(db)

	// Initialize the embedding gateway over Vertex AI
	provider, err := service.NewVertexEmbedder(ctx, cfg.ProjectID, cfg.Location, cfg.CredentialsFile)
	if err != nil {
		log.Fatalf("Failed to initialize Vertex AI embedder: %v", err)
	}
	defer provider.Close()
	gateway := service.NewEmbeddingGateway(provider, cfg.EmbeddingCacheTTL)

	// Initialize the layered result cache: ristretto in front of Mongo
	sharedTier, err := cache.NewMongoStore(ctx, db)
	if err != nil {
		log.Fatalf("Failed to initialize shared cache tier: %v", err)
	}
	results, err := cache.NewLayered(sharedTier, cfg.LocalCacheTTLCap)
	if err != nil {
		log.Fatalf("Failed to initialize result cache: %v", err)
	}

	// Initialize services
	searchSvc := service.NewSearchService(oppRepo, gateway, results, service.SearchConfig{
		LexicalWeight:       cfg.LexicalWeight,
		VectorWeight:        cfg.VectorWeight,
		SimilarityThreshold: cfg.SimilarityThreshold,
		CandidateLimit:      cfg.CandidateLimit,
		CallTimeout:         cfg.SearchTimeout,
		ResultTTL:           cfg.ResultCacheTTL,
	})

	ranker, err := service.NewRankingService(service.DefaultRankingWeights())
	if err != nil {
		log.Fatalf("Invalid ranking weights: %v", err)
	}
	oppSvc := service.NewOpportunityService(searchSvc, ranker)

	gh := github.NewClient(cfg.GitHubToken)
	repoSvc := service.NewRepoService(repoRepo, oppRepo, gh)
	ingestSvc := service.NewIngestService(gh, oppRepo, repoRepo, gateway, searchSvc)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Add middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New())

	// Register routes
	handler.RegisterRoutes(app, userRepo, oppSvc, repoSvc, ingestSvc)
	handler.NewHealthHandler(client).Register(app)

	// Start server
	log.Printf("Server starting on port %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
