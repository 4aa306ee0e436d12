package pairingRepo

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

// MongoPairingRepo implements PairingRepository using MongoDB.
type MongoPairingRepo struct {
	coll *mongo.Collection
}

// NewMongoPairingRepo creates a new PairingRepository backed by MongoDB.
func NewMongoPairingRepo() PairingRepository {
	repo := &MongoPairingRepo{coll: database.DB().Collection("pairing_codes")}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create pairing indexes: %v\n", err)
	}
	return repo
}

func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func (r *MongoPairingRepo) ensureIndexes() error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "moderatorId", Value: 1}, {Key: "consumedAt", Value: 1}}},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoPairingRepo) Create(code *models.PairingCode) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, code); err != nil {
		return fmt.Errorf("failed to create pairing code: %w", err)
	}
	return nil
}

func (r *MongoPairingRepo) GetByCode(code string) (*models.PairingCode, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var pc models.PairingCode
	if err := r.coll.FindOne(ctx, bson.M{"code": code}).Decode(&pc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch pairing code: %w", err)
	}
	return &pc, nil
}

func (r *MongoPairingRepo) ExpireUnconsumed(moderatorID string, now time.Time) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{
		"moderatorId": moderatorID,
		"consumedAt":  nil,
		"expiresAt":   bson.M{"$gt": now},
	}
	update := bson.M{"$set": bson.M{"expiresAt": now}}
	if _, err := r.coll.UpdateMany(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to expire unconsumed codes for moderator %s: %w", moderatorID, err)
	}
	return nil
}

func (r *MongoPairingRepo) Consume(code, deviceID string, now time.Time) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{"code": code, "consumedAt": nil}
	update := bson.M{"$set": bson.M{"consumedAt": now, "consumedBy": deviceID}}
	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to consume pairing code: %w", err)
	}
	if result.MatchedCount == 0 {
		// Either unknown or already redeemed; let the caller distinguish.
		existing, err := r.GetByCode(code)
		if err != nil {
			return err
		}
		if existing == nil {
			return ErrNotFound
		}
		return ErrConsumed
	}
	return nil
}
