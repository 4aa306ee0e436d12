package deviceRepo

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

// MongoDeviceRepo implements DeviceRepository using MongoDB.
type MongoDeviceRepo struct {
	coll        *mongo.Collection
	leaseColl   *mongo.Collection
	commandColl *mongo.Collection
}

// NewMongoDeviceRepo creates a new DeviceRepository backed by MongoDB.
func NewMongoDeviceRepo() DeviceRepository {
	db := database.DB()
	repo := &MongoDeviceRepo{
		coll:        db.Collection("devices"),
		leaseColl:   db.Collection("leases"),
		commandColl: db.Collection("commands"),
	}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create device indexes: %v\n", err)
	}
	return repo
}

// newContext creates a context with the given timeout.
func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func (r *MongoDeviceRepo) ensureIndexes() error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "moderatorId", Value: 1}, {Key: "revokedAt", Value: 1}}},
		{Keys: bson.D{{Key: "tokenHash", Value: 1}}},
	}

	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoDeviceRepo) Create(device *models.Device) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	now := time.Now()
	device.CreatedAt = now
	device.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, device); err != nil {
		return fmt.Errorf("failed to create device: %w", err)
	}
	return nil
}

func (r *MongoDeviceRepo) GetByID(id string) (*models.Device, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var device models.Device
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&device); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch device with id %s: %w", id, err)
	}
	return &device, nil
}

func (r *MongoDeviceRepo) GetByTokenHash(tokenHash string) (*models.Device, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var device models.Device
	filter := bson.M{"tokenHash": tokenHash, "revokedAt": nil}
	if err := r.coll.FindOne(ctx, filter).Decode(&device); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch device by token hash: %w", err)
	}
	return &device, nil
}

func (r *MongoDeviceRepo) GetActiveByModerator(moderatorID string) (*models.Device, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var device models.Device
	filter := bson.M{"moderatorId": moderatorID, "revokedAt": nil}
	if err := r.coll.FindOne(ctx, filter).Decode(&device); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch active device for moderator %s: %w", moderatorID, err)
	}
	return &device, nil
}

func (r *MongoDeviceRepo) ListByModerator(moderatorID string) ([]models.Device, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"moderatorId": moderatorID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices for moderator %s: %w", moderatorID, err)
	}
	defer cursor.Close(ctx)

	var devices []models.Device
	for cursor.Next(ctx) {
		var d models.Device
		if err := cursor.Decode(&d); err != nil {
			return nil, fmt.Errorf("failed to decode device: %w", err)
		}
		devices = append(devices, d)
	}
	return devices, nil
}

func (r *MongoDeviceRepo) RotateToken(id, tokenHash string, expiresAt time.Time) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{"id": id, "revokedAt": nil}
	update := bson.M{"$set": bson.M{
		"tokenHash":      tokenHash,
		"tokenExpiresAt": expiresAt,
		"updatedAt":      time.Now(),
	}}
	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to rotate token for device %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoDeviceRepo) TouchLastSeen(id string, at time.Time) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	update := bson.M{"$set": bson.M{"lastSeenAt": at, "updatedAt": at}}
	result, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to touch device %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoDeviceRepo) Revoke(id, reason string, at time.Time) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{"id": id, "revokedAt": nil}
	update := bson.M{"$set": bson.M{
		"revokedAt":    at,
		"revokeReason": reason,
		"updatedAt":    at,
	}}
	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to revoke device %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCascade removes the device and everything hanging off it inside one
// mongo transaction. Any failed step aborts the whole deletion.
func (r *MongoDeviceRepo) DeleteCascade(id string) error {
	ctx, cancel := newContext(15 * time.Second)
	defer cancel()

	client := r.coll.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	txnFn := func(sc mongo.SessionContext) error {
		if _, err := r.leaseColl.DeleteMany(sc, bson.M{"deviceId": id}); err != nil {
			return fmt.Errorf("delete leases failed: %w", err)
		}
		var device models.Device
		if err := r.coll.FindOne(sc, bson.M{"id": id}).Decode(&device); err != nil {
			if err == mongo.ErrNoDocuments {
				return ErrNotFound
			}
			return fmt.Errorf("fetch device failed: %w", err)
		}
		if _, err := r.commandColl.DeleteMany(sc, bson.M{"moderatorId": device.ModeratorID}); err != nil {
			return fmt.Errorf("delete commands failed: %w", err)
		}
		result, err := r.coll.DeleteOne(sc, bson.M{"id": id})
		if err != nil {
			return fmt.Errorf("delete device failed: %w", err)
		}
		if result.DeletedCount == 0 {
			return ErrNotFound
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
		return fmt.Errorf("device delete transaction failed: %w", err)
	}
	return nil
}
