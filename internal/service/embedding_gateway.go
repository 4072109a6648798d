package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/contribscout/server/internal/models"
)

const (
	// embedMaxChars is the documented ceiling applied before dispatch.
	// Inputs are truncated here defensively; callers should pre-truncate.
	embedMaxChars = 8000

	// embedHardLimit rejects absurd inputs outright instead of silently
	// embedding an 8KB prefix of them.
	embedHardLimit = 100_000

	// embedBatchChunk is the fixed group size for provider batch calls.
	embedBatchChunk = 16

	embedCacheSize = 4096
)

var (
	nonWordRe    = regexp.MustCompile(`[^\w\s]+`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// EmbeddingGateway wraps an EmbeddingProvider with input normalization and
// a content-addressed cache. Embeddings are deterministic per model
// version, so cached vectors stay valid for hours.
//
// The cache never serves stale-on-error: a miss combined with a provider
// failure is a hard failure, not a fallback to a default vector.
type EmbeddingGateway struct {
	provider EmbeddingProvider
	cache    *expirable.LRU[string, []float32]
}

// NewEmbeddingGateway builds a gateway with the given cache TTL.
func NewEmbeddingGateway(provider EmbeddingProvider, ttl time.Duration) *EmbeddingGateway {
	return &EmbeddingGateway{
		provider: provider,
		cache:    expirable.NewLRU[string, []float32](embedCacheSize, nil, ttl),
	}
}

// Embed returns the vector for text, consulting the cache first.
func (g *EmbeddingGateway) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := g.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch returns one vector per input text, in order. Inputs are
// normalized and cached individually; only misses reach the provider, in
// fixed-size chunks. A failure in any chunk fails the entire call — there
// is no partial-success contract, callers retry the whole batch.
func (g *EmbeddingGateway) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	keys := make([]string, len(texts))

	var missTexts []string
	var missIdx []int
	for i, text := range texts {
		if len(text) > embedHardLimit {
			return nil, fmt.Errorf("input %d is %d chars: %w", i, len(text), models.ErrInputTooLarge)
		}
		norm := NormalizeText(text)
		keys[i] = fingerprint(norm)

		if vec, ok := g.cache.Get(keys[i]); ok {
			out[i] = vec
			continue
		}
		missTexts = append(missTexts, norm)
		missIdx = append(missIdx, i)
	}

	for start := 0; start < len(missTexts); start += embedBatchChunk {
		end := start + embedBatchChunk
		if end > len(missTexts) {
			end = len(missTexts)
		}

		vecs, err := g.provider.EmbedBatch(ctx, missTexts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch chunk %d: %w", start/embedBatchChunk, err)
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("%w: chunk returned %d vectors for %d inputs",
				models.ErrProviderUnavailable, len(vecs), end-start)
		}

		for i, vec := range vecs {
			idx := missIdx[start+i]
			out[idx] = vec
			g.cache.Add(keys[idx], vec)
		}
	}

	return out, nil
}

// NormalizeText lower-cases, strips non-word characters, collapses
// whitespace and caps length. The same normalization feeds both the
// embedding cache key and the planner's query fingerprint, so equivalent
// queries share cache entries.
func NormalizeText(text string) string {
	s := strings.ToLower(text)
	s = nonWordRe.ReplaceAllString(s, " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	return truncateBytes(s, embedMaxChars)
}

// truncateBytes caps s at max bytes without splitting a UTF-8 sequence.
func truncateBytes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// fingerprint hashes a normalized string into a hex cache key.
func fingerprint(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
