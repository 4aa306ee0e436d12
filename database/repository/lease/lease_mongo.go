package leaseRepo

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

// MongoLeaseRepo implements LeaseRepository using MongoDB.
type MongoLeaseRepo struct {
	coll *mongo.Collection
}

// NewMongoLeaseRepo creates a new LeaseRepository backed by MongoDB.
func NewMongoLeaseRepo() LeaseRepository {
	repo := &MongoLeaseRepo{coll: database.DB().Collection("leases")}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create lease indexes: %v\n", err)
	}
	return repo
}

func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func (r *MongoLeaseRepo) ensureIndexes() error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "moderatorId", Value: 1}, {Key: "revokedAt", Value: 1}}},
		{Keys: bson.D{{Key: "expiresAt", Value: 1}}},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoLeaseRepo) Create(lease *models.SessionLease) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, lease); err != nil {
		return fmt.Errorf("failed to create lease: %w", err)
	}
	return nil
}

func (r *MongoLeaseRepo) GetByID(id string) (*models.SessionLease, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var lease models.SessionLease
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&lease); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch lease with id %s: %w", id, err)
	}
	return &lease, nil
}

func (r *MongoLeaseRepo) GetUnrevokedByModerator(moderatorID string) (*models.SessionLease, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var lease models.SessionLease
	filter := bson.M{"moderatorId": moderatorID, "revokedAt": nil}
	if err := r.coll.FindOne(ctx, filter).Decode(&lease); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch lease for moderator %s: %w", moderatorID, err)
	}
	return &lease, nil
}

func (r *MongoLeaseRepo) Renew(id, tokenHash string, expiresAt, now time.Time) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{"id": id, "revokedAt": nil}
	update := bson.M{"$set": bson.M{
		"tokenHash":       tokenHash,
		"expiresAt":       expiresAt,
		"lastHeartbeatAt": now,
	}}
	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to renew lease %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return ErrConflict
	}
	return nil
}

func (r *MongoLeaseRepo) RecordHeartbeat(id, status, url, lastError string, expiresAt, now time.Time) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{"id": id, "revokedAt": nil}
	update := bson.M{"$set": bson.M{
		"status":          status,
		"lastUrl":         url,
		"lastError":       lastError,
		"expiresAt":       expiresAt,
		"lastHeartbeatAt": now,
	}}
	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to record heartbeat for lease %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return ErrConflict
	}
	return nil
}

func (r *MongoLeaseRepo) Revoke(id, reason string, at time.Time) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{"id": id, "revokedAt": nil}
	update := bson.M{"$set": bson.M{
		"revokedAt":    at,
		"revokeReason": reason,
		"status":       models.ExtensionDisconnected,
	}}
	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to revoke lease %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return ErrConflict
	}
	return nil
}

func (r *MongoLeaseRepo) ListExpired(cutoff time.Time) ([]models.SessionLease, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	filter := bson.M{"revokedAt": nil, "expiresAt": bson.M{"$lt": cutoff}}
	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired leases: %w", err)
	}
	defer cursor.Close(ctx)

	var leases []models.SessionLease
	for cursor.Next(ctx) {
		var l models.SessionLease
		if err := cursor.Decode(&l); err != nil {
			return nil, fmt.Errorf("failed to decode lease: %w", err)
		}
		leases = append(leases, l)
	}
	return leases, nil
}
