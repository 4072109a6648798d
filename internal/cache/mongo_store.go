package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/contribscout/server/internal/models"
)

// MongoStore is the shared cache tier backed by a capped-lifetime Mongo
// collection. Expiry is enforced twice: an `expires_at` filter on reads
// (exact) and a TTL index (eventual cleanup, Mongo sweeps about once a
// minute).
type MongoStore struct {
	col *mongo.Collection
}

// cacheDoc is the stored shape of one entry.
type cacheDoc struct {
	Key       string                  `bson:"_id"`
	Value     []models.FusedCandidate `bson:"value"`
	CreatedAt time.Time               `bson:"created_at"`
	ExpiresAt time.Time               `bson:"expires_at"`
}

// NewMongoStore wires the "search_cache" collection and ensures its TTL
// index exists.
func NewMongoStore(ctx context.Context, db *mongo.Database) (*MongoStore, error) {
	col := db.Collection("search_cache")

	_, err := col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		return nil, fmt.Errorf("create cache TTL index: %w", err)
	}

	return &MongoStore{col: col}, nil
}

func (s *MongoStore) Get(ctx context.Context, key string) ([]models.FusedCandidate, bool, error) {
	filter := bson.M{
		"_id":        key,
		"expires_at": bson.M{"$gt": time.Now()},
	}

	var doc cacheDoc
	err := s.col.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return doc.Value, true, nil
}

func (s *MongoStore) Set(ctx context.Context, key string, val []models.FusedCandidate, ttl time.Duration) error {
	now := time.Now()
	doc := cacheDoc{
		Key:       key,
		Value:     val,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	opts := options.Replace().SetUpsert(true)
	_, err := s.col.ReplaceOne(ctx, bson.M{"_id": key}, doc, opts)
	return err
}

// DeletePattern removes every entry whose key matches the glob pattern,
// translated to an anchored regex for a single DeleteMany.
func (s *MongoStore) DeletePattern(ctx context.Context, pattern string) error {
	_, err := s.col.DeleteMany(ctx, bson.M{
		"_id": bson.M{"$regex": globToRegex(pattern)},
	})
	return err
}

// globToRegex converts a glob pattern (only `*` and `?` wildcards) into an
// anchored regular expression.
func globToRegex(pattern string) string {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		case '.', '+', '(', ')', '[', ']', '{', '}', '^', '$', '|', '\\':
			b.WriteString(`\`)
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteString("$")
	return b.String()
}
