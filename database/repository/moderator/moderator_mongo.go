package moderatorRepo

import (
	"context"
	"fmt"
	"time"

	"medichat/database"
	"medichat/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoModeratorRepo implements ModeratorRepository using MongoDB.
type MongoModeratorRepo struct {
	coll *mongo.Collection
}

// NewMongoModeratorRepo creates a new ModeratorRepository backed by MongoDB.
func NewMongoModeratorRepo() ModeratorRepository {
	repo := &MongoModeratorRepo{coll: database.DB().Collection("moderators")}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create moderator indexes: %v\n", err)
	}
	return repo
}

func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func (r *MongoModeratorRepo) ensureIndexes() error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoModeratorRepo) getOne(filter bson.M) (*models.Moderator, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var mod models.Moderator
	if err := r.coll.FindOne(ctx, filter).Decode(&mod); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch moderator: %w", err)
	}
	return &mod, nil
}

func (r *MongoModeratorRepo) GetByID(id string) (*models.Moderator, error) {
	return r.getOne(bson.M{"id": id})
}

func (r *MongoModeratorRepo) GetByEmail(email string) (*models.Moderator, error) {
	return r.getOne(bson.M{"email": email})
}

func (r *MongoModeratorRepo) GetByTokenHash(tokenHash string) (*models.Moderator, error) {
	return r.getOne(bson.M{"tokenHash": tokenHash})
}

func (r *MongoModeratorRepo) SetTokenHash(id, tokenHash string) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	update := bson.M{"$set": bson.M{"tokenHash": tokenHash, "updatedAt": time.Now()}}
	result, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to set token hash for moderator %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
