// Package jsondb provides a file-backed implementation of the storage
// interface. The whole dataset is kept in memory and flushed to a JSON
// file on Close.
package jsondb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/patric-chuzhbe/todolst/internal/db/storage"
	"github.com/patric-chuzhbe/todolst/internal/task"
	"github.com/patric-chuzhbe/todolst/internal/user"
)

// CacheStruct is the serialized shape of the database file.
type CacheStruct struct {
	Users         map[string]*user.User
	EmailToUserID map[string]string
	Tasks         map[string]*task.Task

	// TaskOrder keeps task IDs in insertion order so that listings can be
	// produced newest-first without relying on timestamp resolution.
	TaskOrder []string
}

// JSONDB is the file-backed storage backend.
type JSONDB struct {
	fileName string
	mu       sync.RWMutex
	Cache    CacheStruct
}

func initDBFile(fileName string) error {
	dbFile, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(dbFile, `{
	"Users": {},
	"EmailToUserID": {},
	"Tasks": {},
	"TaskOrder": []
}`)
	if err != nil {
		return err
	}
	return dbFile.Close()
}

func writeToJSONFile(fileName string, cache interface{}) error {
	jsonData, err := json.MarshalIndent(cache, "", "\t")
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %s", err)
	}

	file, err2 := os.OpenFile(fileName, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0644)
	if err2 != nil {
		return fmt.Errorf("error opening file: %s", err2)
	}
	defer file.Close()

	_, err = file.Write(jsonData)
	if err != nil {
		return fmt.Errorf("error writing to file: %s", err)
	}

	return nil
}

func parseJSONFile(fileName string, cacheMap *CacheStruct) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	err = decoder.Decode(cacheMap)
	if err != nil {
		return err
	}

	return nil
}

// New opens the database file, creating and initializing it when absent.
func New(fileName string) (*JSONDB, error) {
	db := JSONDB{
		fileName: fileName,
		Cache:    CacheStruct{},
	}

	err := parseJSONFile(db.fileName, &db.Cache)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		err := initDBFile(fileName)
		if err != nil {
			return nil, err
		}
		err = parseJSONFile(db.fileName, &db.Cache)
		if err != nil {
			return nil, err
		}
	}

	return &db, nil
}

// CreateUser stores a new user record. The email must not be registered yet.
func (db *JSONDB) CreateUser(ctx context.Context, usr *user.User) (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, taken := db.Cache.EmailToUserID[usr.Email]; taken {
		return "", storage.ErrDuplicateEmail
	}

	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}

	stored := *usr
	db.Cache.Users[usr.ID] = &stored
	db.Cache.EmailToUserID[usr.Email] = usr.ID

	return usr.ID, nil
}

// GetUserByID returns the user with the given ID or storage.ErrNotFound.
func (db *JSONDB) GetUserByID(ctx context.Context, userID string) (*user.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	usr, ok := db.Cache.Users[userID]
	if !ok {
		return nil, storage.ErrNotFound
	}

	found := *usr
	return &found, nil
}

// FindUserByEmail looks a user up by email.
func (db *JSONDB) FindUserByEmail(ctx context.Context, email string) (*user.User, bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	userID, ok := db.Cache.EmailToUserID[email]
	if !ok {
		return nil, false, nil
	}

	usr, ok := db.Cache.Users[userID]
	if !ok {
		return nil, false, nil
	}

	found := *usr
	return &found, true, nil
}

// CreateTask stores a new task record and returns its ID.
func (db *JSONDB) CreateTask(ctx context.Context, tsk *task.Task) (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if tsk.ID == "" {
		tsk.ID = uuid.New().String()
	}

	stored := *tsk
	db.Cache.Tasks[tsk.ID] = &stored
	db.Cache.TaskOrder = append(db.Cache.TaskOrder, tsk.ID)

	return tsk.ID, nil
}

// GetUserTasks returns the owner's tasks, newest first.
func (db *JSONDB) GetUserTasks(ctx context.Context, ownerID string) ([]task.Task, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	result := []task.Task{}
	for i := len(db.Cache.TaskOrder) - 1; i >= 0; i-- {
		tsk, ok := db.Cache.Tasks[db.Cache.TaskOrder[i]]
		if !ok || tsk.OwnerID != ownerID {
			continue
		}
		result = append(result, *tsk)
	}

	return result, nil
}

// UpdateTask applies the patch to the task matching both id and owner.
func (db *JSONDB) UpdateTask(ctx context.Context, ownerID, taskID string, patch task.Patch) (*task.Task, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	tsk, ok := db.Cache.Tasks[taskID]
	if !ok || tsk.OwnerID != ownerID {
		return nil, storage.ErrNotFound
	}

	if patch.Text != nil {
		tsk.Text = *patch.Text
	}
	if patch.Completed != nil {
		tsk.Completed = *patch.Completed
	}
	tsk.UpdatedAt = time.Now()

	updated := *tsk
	return &updated, nil
}

// DeleteTask removes the task matching both id and owner.
func (db *JSONDB) DeleteTask(ctx context.Context, ownerID, taskID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tsk, ok := db.Cache.Tasks[taskID]
	if !ok || tsk.OwnerID != ownerID {
		return storage.ErrNotFound
	}

	delete(db.Cache.Tasks, taskID)
	for i, id := range db.Cache.TaskOrder {
		if id == taskID {
			db.Cache.TaskOrder = append(db.Cache.TaskOrder[:i], db.Cache.TaskOrder[i+1:]...)
			break
		}
	}

	return nil
}

// GetNumberOfUsers returns the total amount of registered users.
func (db *JSONDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return int64(len(db.Cache.Users)), nil
}

// GetNumberOfTasks returns the total amount of stored tasks.
func (db *JSONDB) GetNumberOfTasks(ctx context.Context) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return int64(len(db.Cache.Tasks)), nil
}

// Ping always succeeds for the file backend.
func (db *JSONDB) Ping(ctx context.Context) error {
	return nil
}

// Close flushes the in-memory cache to the database file.
func (db *JSONDB) Close() error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return writeToJSONFile(db.fileName, db.Cache)
}
