// Package config centralises all environment / flag configuration for the API.
// It should be imported only by `cmd/server` (and test code). Business-logic
// layers receive an already-built Config instance via dependency-injection.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime option the server needs.
// Keep it flat and simple—prefer primitive types over embedding structs.
type Config struct {
	// Network
	Port string

	// Data stores
	MongoURI string
	DBName   string

	// External services
	GitHubToken     string
	ProjectID       string
	Location        string
	CredentialsFile string

	// Search tuning
	EmbeddingDim        int           // Dimension of stored embeddings
	SimilarityThreshold float64       // Vector candidates below this are dropped
	CandidateLimit      int           // Per-source candidate cap
	LexicalWeight       float64       // Fusion weight for lexical scores
	VectorWeight        float64       // Fusion weight for vector similarity
	SearchTimeout       time.Duration // Per index/gateway call

	// Caching
	ResultCacheTTL    time.Duration // Shared-tier TTL for fused results
	LocalCacheTTLCap  time.Duration // Ceiling for the in-process tier
	EmbeddingCacheTTL time.Duration // Content-addressed embedding cache

	// Server tuning
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Load parses the environment (and an optional .env file) into Config.
// It panics on missing critical variables so mis-configurations fail fast.
func Load() Config {
	// godotenv.Load() is a no-op if .env doesn't exist—safe in production.
	_ = godotenv.Load()

	return Config{
		Port:            must("PORT"),
		MongoURI:        must("MONGODB_URI"),
		DBName:          getEnv("MONGODB_DB", "contribscout"),
		GitHubToken:     getEnv("GITHUB_TOKEN", ""),
		ProjectID:       must("GCP_PROJECT_ID"),
		Location:        getEnv("GCP_LOCATION", "us-central1"),
		CredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),

		EmbeddingDim:        getInt("EMBEDDING_DIM", 768),
		SimilarityThreshold: getFloat("SIMILARITY_THRESHOLD", 0.55),
		CandidateLimit:      getInt("CANDIDATE_LIMIT", 200),
		LexicalWeight:       getFloat("LEXICAL_WEIGHT", 0.3),
		VectorWeight:        getFloat("VECTOR_WEIGHT", 0.7),
		SearchTimeout:       getDuration("SEARCH_TIMEOUT_SEC", 5),

		ResultCacheTTL:    getDuration("RESULT_CACHE_TTL_SEC", 300),
		LocalCacheTTLCap:  getDuration("LOCAL_CACHE_TTL_CAP_SEC", 60),
		EmbeddingCacheTTL: getDuration("EMBEDDING_CACHE_TTL_SEC", 6*3600),

		ReadTimeout:  getDuration("READ_TIMEOUT_SEC", 5),
		WriteTimeout: getDuration("WRITE_TIMEOUT_SEC", 10),
	}
}

// must fetches a required env var or terminates the program.
func must(key string) string {
	val := os.Getenv(key)
	if val == "" {
		log.Fatalf("env var %s is required", key)
	}
	return val
}

// getEnv returns env[key] if set, otherwise defaultVal.
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getInt reads an integer from env, falling back to defaultVal.
func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("invalid %s=%q; using default %d", key, v, defaultVal)
	}
	return defaultVal
}

// getFloat reads a float from env, falling back to defaultVal.
func getFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		log.Printf("invalid %s=%q; using default %g", key, v, defaultVal)
	}
	return defaultVal
}

// getDuration reads an integer (seconds) from env, falling back to defaultSec.
func getDuration(key string, defaultSec int) time.Duration {
	if v := os.Getenv(key); v != "" {
		if sec, err := strconv.Atoi(v); err == nil {
			return time.Duration(sec) * time.Second
		}
		log.Printf("invalid %s=%q; using default %ds", key, v, defaultSec)
	}
	return time.Duration(defaultSec) * time.Second
}
