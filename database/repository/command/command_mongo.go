package commandRepo

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

// MongoCommandRepo implements CommandRepository using MongoDB.
type MongoCommandRepo struct {
	coll *mongo.Collection
}

// NewMongoCommandRepo creates a new CommandRepository backed by MongoDB.
func NewMongoCommandRepo() CommandRepository {
	repo := &MongoCommandRepo{coll: database.DB().Collection("commands")}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create command indexes: %v\n", err)
	}
	return repo
}

func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func (r *MongoCommandRepo) ensureIndexes() error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "moderatorId", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "messageId", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "expiresAt", Value: 1}}},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoCommandRepo) Create(cmd *models.Command) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, cmd); err != nil {
		return fmt.Errorf("failed to create command: %w", err)
	}
	return nil
}

func (r *MongoCommandRepo) GetByID(id string) (*models.Command, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var cmd models.Command
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&cmd); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch command with id %s: %w", id, err)
	}
	return &cmd, nil
}

func (r *MongoCommandRepo) ListPending(moderatorID string, limit int64, now time.Time) ([]models.Command, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	filter := bson.M{
		"moderatorId": moderatorID,
		"status":      bson.M{"$in": []string{models.CommandPending, models.CommandSent}},
		"expiresAt":   bson.M{"$gt": now},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "priority", Value: 1}, {Key: "createdAt", Value: 1}}).
		SetLimit(limit)

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending commands for moderator %s: %w", moderatorID, err)
	}
	defer cursor.Close(ctx)

	return decodeCommands(ctx, cursor)
}

// transition performs a guarded status change: the filter pins the allowed
// source states so a concurrent writer cannot double-apply.
func (r *MongoCommandRepo) transition(id string, from []string, set bson.M) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{"id": id, "status": bson.M{"$in": from}}
	result, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to transition command %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return ErrInvalidTransition
	}
	return nil
}

func (r *MongoCommandRepo) MarkSent(id string, at time.Time) error {
	return r.transition(id, []string{models.CommandPending}, bson.M{
		"status": models.CommandSent,
		"sentAt": at,
	})
}

func (r *MongoCommandRepo) Acknowledge(id string, at time.Time) error {
	return r.transition(id, []string{models.CommandPending, models.CommandSent}, bson.M{
		"status":  models.CommandAcked,
		"ackedAt": at,
	})
}

func (r *MongoCommandRepo) Complete(id, resultStatus, result string, at time.Time) error {
	return r.transition(id, models.ActiveCommandStatuses, bson.M{
		"status":       models.CommandCompleted,
		"completedAt":  at,
		"resultStatus": resultStatus,
		"result":       result,
	})
}

func (r *MongoCommandRepo) Fail(id, reason string, at time.Time) error {
	return r.transition(id, models.ActiveCommandStatuses, bson.M{
		"status":       models.CommandFailed,
		"completedAt":  at,
		"resultStatus": models.ResultFailure,
		"result":       reason,
	})
}

func (r *MongoCommandRepo) Expire(id, result string, at time.Time) error {
	return r.transition(id, models.ActiveCommandStatuses, bson.M{
		"status":       models.CommandExpired,
		"completedAt":  at,
		"resultStatus": models.ResultTimeout,
		"result":       result,
	})
}

func (r *MongoCommandRepo) GetActiveByMessage(messageID string) (*models.Command, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{
		"messageId": messageID,
		"status":    bson.M{"$in": models.ActiveCommandStatuses},
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	var cmd models.Command
	if err := r.coll.FindOne(ctx, filter, opts).Decode(&cmd); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch active command for message %s: %w", messageID, err)
	}
	return &cmd, nil
}

func (r *MongoCommandRepo) ListActiveByMessage(messageID string) ([]models.Command, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	filter := bson.M{
		"messageId": messageID,
		"status":    bson.M{"$in": models.ActiveCommandStatuses},
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list active commands for message %s: %w", messageID, err)
	}
	defer cursor.Close(ctx)

	return decodeCommands(ctx, cursor)
}

func (r *MongoCommandRepo) GetRecentSuccessByMessage(messageID string, since time.Time) (*models.Command, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{
		"messageId":    messageID,
		"status":       models.CommandCompleted,
		"resultStatus": models.ResultSuccess,
		"completedAt":  bson.M{"$gte": since},
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "completedAt", Value: -1}})

	var cmd models.Command
	if err := r.coll.FindOne(ctx, filter, opts).Decode(&cmd); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch recent success for message %s: %w", messageID, err)
	}
	return &cmd, nil
}

func (r *MongoCommandRepo) ListAckTimedOut(cutoff time.Time) ([]models.Command, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	filter := bson.M{
		"status":  models.CommandAcked,
		"ackedAt": bson.M{"$lt": cutoff},
	}
	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list ack-timed-out commands: %w", err)
	}
	defer cursor.Close(ctx)

	return decodeCommands(ctx, cursor)
}

func (r *MongoCommandRepo) ListExpiredNonTerminal(now time.Time) ([]models.Command, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	filter := bson.M{
		"status":    bson.M{"$in": models.ActiveCommandStatuses},
		"expiresAt": bson.M{"$lt": now},
	}
	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired commands: %w", err)
	}
	defer cursor.Close(ctx)

	return decodeCommands(ctx, cursor)
}

func (r *MongoCommandRepo) CountActiveByType(moderatorID, cmdType string) (int64, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{
		"moderatorId": moderatorID,
		"type":        cmdType,
		"status":      bson.M{"$in": models.ActiveCommandStatuses},
	}
	count, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count active %s commands: %w", cmdType, err)
	}
	return count, nil
}

func (r *MongoCommandRepo) ListMessageIDsWithActive() ([]string, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	filter := bson.M{
		"messageId": bson.M{"$nin": bson.A{nil, ""}},
		"status":    bson.M{"$in": models.ActiveCommandStatuses},
	}
	raw, err := r.coll.Distinct(ctx, "messageId", filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages with active commands: %w", err)
	}
	ids := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			ids = append(ids, s)
		}
	}
	return ids, nil
}

func decodeCommands(ctx context.Context, cursor *mongo.Cursor) ([]models.Command, error) {
	var cmds []models.Command
	for cursor.Next(ctx) {
		var c models.Command
		if err := cursor.Decode(&c); err != nil {
			return nil, fmt.Errorf("failed to decode command: %w", err)
		}
		cmds = append(cmds, c)
	}
	return cmds, nil
}
