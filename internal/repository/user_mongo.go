package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/contribscout/server/internal/models"
)

// UserMongo resolves API tokens to user profiles. Account creation and
// OAuth linking are handled by a separate service; this side only reads.
type UserMongo struct {
	col *mongo.Collection
}

// NewUserRepository wires the "users" collection.
func NewUserRepository(db *mongo.Database) *UserMongo {
	return &UserMongo{col: db.Collection("users")}
}

// userDoc is the subset of the account document this service reads.
type userDoc struct {
	Profile models.UserProfile `bson:"profile"`
}

// FindProfileByToken returns the ranking profile for the holder of token.
func (r *UserMongo) FindProfileByToken(ctx context.Context, token string) (models.UserProfile, error) {
	var doc userDoc
	err := r.col.FindOne(ctx, bson.M{"api_token": token}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return models.UserProfile{}, fmt.Errorf("unknown token: %w", models.ErrUnauthorized)
	}
	if err != nil {
		return models.UserProfile{}, err
	}
	return doc.Profile, nil
}
