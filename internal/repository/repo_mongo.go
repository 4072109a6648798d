package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/contribscout/server/internal/models"
)

// RepoMongo stores repository metadata in the "repos" collection, one
// document per repository keyed by full name.
type RepoMongo struct {
	col *mongo.Collection
}

// NewRepoRepository wires the collection.
func NewRepoRepository(db *mongo.Database) *RepoMongo {
	return &RepoMongo{col: db.Collection("repos")}
}

// FindByID fetches a repo document by its "owner/name" identifier.
func (r *RepoMongo) FindByID(ctx context.Context, id string) (models.Repo, error) {
	var repo models.Repo
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&repo)
	if err == mongo.ErrNoDocuments {
		return repo, fmt.Errorf("repo %s: %w", id, models.ErrNotFound)
	}
	return repo, err
}

// Upsert writes a repository document in one atomic replace, so the
// embedding and the description it was computed from always agree.
func (r *RepoMongo) Upsert(ctx context.Context, repo models.Repo) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": repo.ID}, repo, opts)
	return err
}
