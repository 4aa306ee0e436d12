package modsessionRepo

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

// MongoModeratorSessionRepo implements ModeratorSessionRepository using MongoDB.
type MongoModeratorSessionRepo struct {
	coll *mongo.Collection
}

// NewMongoModeratorSessionRepo creates a new repository backed by MongoDB.
func NewMongoModeratorSessionRepo() ModeratorSessionRepository {
	repo := &MongoModeratorSessionRepo{coll: database.DB().Collection("moderator_sessions")}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create moderator session indexes: %v\n", err)
	}
	return repo
}

func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func (r *MongoModeratorSessionRepo) ensureIndexes() error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "moderatorId", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoModeratorSessionRepo) Get(moderatorID string) (*models.ModeratorSession, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var session models.ModeratorSession
	if err := r.coll.FindOne(ctx, bson.M{"moderatorId": moderatorID}).Decode(&session); err != nil {
		if err == mongo.ErrNoDocuments {
			// Implicit unpaused session.
			return &models.ModeratorSession{
				ModeratorID:     moderatorID,
				ExtensionStatus: models.ExtensionDisconnected,
			}, nil
		}
		return nil, fmt.Errorf("failed to fetch session for moderator %s: %w", moderatorID, err)
	}
	return &session, nil
}

func (r *MongoModeratorSessionRepo) SetPause(moderatorID, reason, pausedBy string, resumable bool, at time.Time) (bool, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	// Only transitions unpaused -> paused; an existing pause keeps its reason.
	filter := bson.M{"moderatorId": moderatorID, "paused": bson.M{"$ne": true}}
	update := bson.M{
		"$set": bson.M{
			"paused":      true,
			"pauseReason": reason,
			"pausedBy":    pausedBy,
			"pausedAt":    at,
			"resumable":   resumable,
			"updatedAt":   at,
		},
		"$setOnInsert": bson.M{"extensionStatus": models.ExtensionDisconnected},
	}
	opts := options.Update().SetUpsert(true)
	result, err := r.coll.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Lost the upsert race against an existing paused session.
			return false, nil
		}
		return false, fmt.Errorf("failed to pause moderator %s: %w", moderatorID, err)
	}
	return result.ModifiedCount > 0 || result.UpsertedCount > 0, nil
}

func (r *MongoModeratorSessionRepo) ClearPause(moderatorID string, reasons []string, at time.Time) (bool, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{"moderatorId": moderatorID, "paused": true}
	if len(reasons) > 0 {
		filter["pauseReason"] = bson.M{"$in": reasons}
	}
	update := bson.M{
		"$set":   bson.M{"paused": false, "resumable": false, "updatedAt": at},
		"$unset": bson.M{"pauseReason": "", "pausedBy": "", "pausedAt": ""},
	}
	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to clear pause for moderator %s: %w", moderatorID, err)
	}
	return result.ModifiedCount > 0, nil
}

func (r *MongoModeratorSessionRepo) ListPausedByReason(reason string) ([]models.ModeratorSession, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	cursor, err := r.coll.Find(ctx, bson.M{"paused": true, "pauseReason": reason})
	if err != nil {
		return nil, fmt.Errorf("failed to list paused sessions: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []models.ModeratorSession
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode paused sessions: %w", err)
	}
	return sessions, nil
}

func (r *MongoModeratorSessionRepo) MirrorStatus(moderatorID, status string, at time.Time) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	update := bson.M{"$set": bson.M{"extensionStatus": status, "updatedAt": at}}
	opts := options.Update().SetUpsert(true)
	if _, err := r.coll.UpdateOne(ctx, bson.M{"moderatorId": moderatorID}, update, opts); err != nil {
		return fmt.Errorf("failed to mirror status for moderator %s: %w", moderatorID, err)
	}
	return nil
}
