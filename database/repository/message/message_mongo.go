package messageRepo

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

// MongoMessageRepo implements MessageRepository using MongoDB.
type MongoMessageRepo struct {
	coll        *mongo.Collection
	patientColl *mongo.Collection
}

// NewMongoMessageRepo creates a new MessageRepository backed by MongoDB.
func NewMongoMessageRepo() MessageRepository {
	db := database.DB()
	repo := &MongoMessageRepo{
		coll:        db.Collection("messages"),
		patientColl: db.Collection("patients"),
	}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create message indexes: %v\n", err)
	}
	return repo
}

func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func (r *MongoMessageRepo) ensureIndexes() error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "moderatorId", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "phone", Value: 1}}},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoMessageRepo) GetByID(id string) (*models.Message, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var msg models.Message
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&msg); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch message with id %s: %w", id, err)
	}
	return &msg, nil
}

func (r *MongoMessageRepo) MarkSending(id, commandID string, at time.Time) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"status":            models.MessageSending,
			"inFlightCommandId": commandID,
			"updatedAt":         at,
		},
		"$inc": bson.M{"attempts": 1},
	}
	result, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to mark message %s sending: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkSentGroundTruth deliberately matches on id alone: a success report from
// the extension wins over whatever the local status drifted to.
func (r *MongoMessageRepo) MarkSentGroundTruth(id string, at time.Time) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"status":    models.MessageSent,
			"sentAt":    at,
			"isPaused":  false,
			"updatedAt": at,
		},
		"$unset": bson.M{
			"inFlightCommandId": "",
			"pauseReason":       "",
			"pausedAt":          "",
			"lastError":         "",
		},
	}
	result, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to mark message %s sent: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoMessageRepo) MarkFailed(id, reason string, at time.Time) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{"id": id, "status": models.MessageSending}
	update := bson.M{
		"$set": bson.M{
			"status":    models.MessageFailed,
			"lastError": reason,
			"updatedAt": at,
		},
		"$unset": bson.M{"inFlightCommandId": ""},
	}
	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to mark message %s failed: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoMessageRepo) Requeue(id string, at time.Time) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	update := bson.M{
		"$set":   bson.M{"status": models.MessageQueued, "updatedAt": at},
		"$unset": bson.M{"inFlightCommandId": ""},
	}
	result, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to requeue message %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoMessageRepo) PauseByReason(moderatorID, reason string, at time.Time) (int64, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	filter := bson.M{
		"moderatorId": moderatorID,
		"isPaused":    false,
		"status":      bson.M{"$in": []string{models.MessageQueued, models.MessageSending}},
	}
	update := bson.M{"$set": bson.M{
		"isPaused":    true,
		"pauseReason": reason,
		"pausedAt":    at,
		"updatedAt":   at,
	}}
	result, err := r.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to pause messages for moderator %s: %w", moderatorID, err)
	}
	return result.ModifiedCount, nil
}

func (r *MongoMessageRepo) UnpauseByReason(moderatorID string, reasons []string, at time.Time) (int64, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	filter := bson.M{
		"moderatorId": moderatorID,
		"isPaused":    true,
		"pauseReason": bson.M{"$in": reasons},
	}
	update := bson.M{
		"$set":   bson.M{"isPaused": false, "updatedAt": at},
		"$unset": bson.M{"pauseReason": "", "pausedAt": ""},
	}
	result, err := r.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to unpause messages for moderator %s: %w", moderatorID, err)
	}
	return result.ModifiedCount, nil
}

func (r *MongoMessageRepo) ListSendingWithCommand() ([]models.Message, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	filter := bson.M{
		"status":            models.MessageSending,
		"inFlightCommandId": bson.M{"$nin": bson.A{nil, ""}},
	}
	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list sending messages: %w", err)
	}
	defer cursor.Close(ctx)

	var msgs []models.Message
	for cursor.Next(ctx) {
		var m models.Message
		if err := cursor.Decode(&m); err != nil {
			return nil, fmt.Errorf("failed to decode message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// FanOutHasAccount updates messages and patient records sharing the phone in
// one transaction so the verdict never lands on half the records.
func (r *MongoMessageRepo) FanOutHasAccount(phone string, hasAccount bool, at time.Time) (int64, error) {
	ctx, cancel := newContext(15 * time.Second)
	defer cancel()

	client := r.coll.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return 0, fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	var updated int64
	txnFn := func(sc mongo.SessionContext) error {
		set := bson.M{"$set": bson.M{"hasAccount": hasAccount, "updatedAt": at}}
		res, err := r.coll.UpdateMany(sc, bson.M{"phone": phone}, set)
		if err != nil {
			return fmt.Errorf("message fan-out failed: %w", err)
		}
		updated = res.ModifiedCount
		if _, err := r.patientColl.UpdateMany(sc, bson.M{"phone": phone}, set); err != nil {
			return fmt.Errorf("patient fan-out failed: %w", err)
		}
		return nil
	}

	if err := mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return err
		}
		if err := txnFn(sc); err != nil {
			_ = sc.AbortTransaction(sc)
			return err
		}
		return sc.CommitTransaction(sc)
	}); err != nil {
		return 0, fmt.Errorf("fan-out transaction failed: %w", err)
	}
	return updated, nil
}
