// Package mongodb provides the MongoDB-backed implementation of the
// storage interface. Users and tasks live in separate collections; the
// users collection carries a unique index on email.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/patric-chuzhbe/todolst/internal/db/storage"
	"github.com/patric-chuzhbe/todolst/internal/task"
	"github.com/patric-chuzhbe/todolst/internal/user"
)

const (
	usersCollection = "users"
	tasksCollection = "tasks"
)

// MongoDB is the document-store backend.
type MongoDB struct {
	client            *mongo.Client
	database          *mongo.Database
	connectionTimeout time.Duration
}

// New connects to MongoDB, verifies the connection and ensures the
// unique email index exists.
func New(ctx context.Context, uri, databaseName string, connectionTimeout time.Duration) (*MongoDB, error) {
	connectCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("error while `mongo.Connect()` calling: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, fmt.Errorf("error while `client.Ping()` calling: %w", err)
	}

	result := &MongoDB{
		client:            client,
		database:          client.Database(databaseName),
		connectionTimeout: connectionTimeout,
	}

	_, err = result.database.Collection(usersCollection).Indexes().CreateOne(
		connectCtx,
		mongo.IndexModel{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("error while creating the unique email index: %w", err)
	}

	return result, nil
}

// CreateUser inserts a new user document.
// The unique index turns concurrent duplicate registrations into ErrDuplicateEmail.
func (db *MongoDB) CreateUser(ctx context.Context, usr *user.User) (string, error) {
	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}

	_, err := db.database.Collection(usersCollection).InsertOne(ctx, usr)
	if mongo.IsDuplicateKeyError(err) {
		return "", storage.ErrDuplicateEmail
	}
	if err != nil {
		return "", err
	}

	return usr.ID, nil
}

// GetUserByID returns the user with the given ID or storage.ErrNotFound.
func (db *MongoDB) GetUserByID(ctx context.Context, userID string) (*user.User, error) {
	var usr user.User
	err := db.database.Collection(usersCollection).
		FindOne(ctx, bson.M{"_id": userID}).
		Decode(&usr)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &usr, nil
}

// FindUserByEmail looks a user up by email.
func (db *MongoDB) FindUserByEmail(ctx context.Context, email string) (*user.User, bool, error) {
	var usr user.User
	err := db.database.Collection(usersCollection).
		FindOne(ctx, bson.M{"email": email}).
		Decode(&usr)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	return &usr, true, nil
}

// CreateTask inserts a new task document and returns its ID.
func (db *MongoDB) CreateTask(ctx context.Context, tsk *task.Task) (string, error) {
	if tsk.ID == "" {
		tsk.ID = uuid.New().String()
	}

	_, err := db.database.Collection(tasksCollection).InsertOne(ctx, tsk)
	if err != nil {
		return "", err
	}

	return tsk.ID, nil
}

// GetUserTasks returns the owner's tasks, newest first.
func (db *MongoDB) GetUserTasks(ctx context.Context, ownerID string) ([]task.Task, error) {
	cursor, err := db.database.Collection(tasksCollection).Find(
		ctx,
		bson.M{"owner_id": ownerID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	result := []task.Task{}
	if err := cursor.All(ctx, &result); err != nil {
		return nil, err
	}

	return result, nil
}

// UpdateTask applies the patch with a single compound id-and-owner filter
// and returns the document as it looks after the update.
func (db *MongoDB) UpdateTask(ctx context.Context, ownerID, taskID string, patch task.Patch) (*task.Task, error) {
	sets := bson.M{"updated_at": time.Now()}
	if patch.Text != nil {
		sets["text"] = *patch.Text
	}
	if patch.Completed != nil {
		sets["completed"] = *patch.Completed
	}

	var updated task.Task
	err := db.database.Collection(tasksCollection).
		FindOneAndUpdate(
			ctx,
			bson.M{"_id": taskID, "owner_id": ownerID},
			bson.M{"$set": sets},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).
		Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &updated, nil
}

// DeleteTask removes the task matching both id and owner.
func (db *MongoDB) DeleteTask(ctx context.Context, ownerID, taskID string) error {
	result, err := db.database.Collection(tasksCollection).
		DeleteOne(ctx, bson.M{"_id": taskID, "owner_id": ownerID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// GetNumberOfUsers returns the total amount of registered users.
func (db *MongoDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	return db.database.Collection(usersCollection).CountDocuments(ctx, bson.M{})
}

// GetNumberOfTasks returns the total amount of stored tasks.
func (db *MongoDB) GetNumberOfTasks(ctx context.Context) (int64, error) {
	return db.database.Collection(tasksCollection).CountDocuments(ctx, bson.M{})
}

// Ping checks the connection to the MongoDB server.
func (db *MongoDB) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.client.Ping(pingCtx, nil)
}

// Close disconnects from the MongoDB server.
func (db *MongoDB) Close() error {
	disconnectCtx, cancel := context.WithTimeout(context.Background(), db.connectionTimeout)
	defer cancel()

	return db.client.Disconnect(disconnectCtx)
}
