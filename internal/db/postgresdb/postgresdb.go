// Package postgresdb provides a PostgreSQL-based implementation of the storage
// interface for persisting users and their tasks.
// Schema management is handled by goose migrations at startup.
package postgresdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/patric-chuzhbe/todolst/internal/db/storage"
	"github.com/patric-chuzhbe/todolst/internal/task"
	"github.com/patric-chuzhbe/todolst/internal/user"
)

const uniqueViolationCode = "23505"

// PostgresDB is a PostgreSQL-backed implementation of the storage interface.
type PostgresDB struct {
	database          *sql.DB
	connectionTimeout time.Duration
}

// New establishes a connection to the PostgreSQL database,
// runs schema migrations, and returns a configured PostgresDB instance.
func New(
	ctx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	migrationsDir string,
) (*PostgresDB, error) {
	database, err := sql.Open("pgx", databaseDSN)
	if err != nil {
		return nil, err
	}

	result := &PostgresDB{
		database:          database,
		connectionTimeout: connectionTimeout,
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `goose.SetDialect()` calling: %w",
				err,
			)
	}

	if err := goose.Up(result.database, migrationsDir); err != nil {
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `goose.Up()` calling: %w",
				err,
			)
	}

	return result, nil
}

// CreateUser inserts a new user row. The UNIQUE constraint on email maps
// to storage.ErrDuplicateEmail.
func (db *PostgresDB) CreateUser(ctx context.Context, usr *user.User) (string, error) {
	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}

	queryCtx, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	_, err := db.database.ExecContext(
		queryCtx,
		`
			INSERT INTO users (id, username, email, password_hash, created_at)
				VALUES ($1, $2, $3, $4, $5)
		`,
		usr.ID,
		usr.Username,
		usr.Email,
		usr.PasswordHash,
		usr.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return "", storage.ErrDuplicateEmail
		}
		return "", err
	}

	return usr.ID, nil
}

// GetUserByID returns the user with the given ID or storage.ErrNotFound.
func (db *PostgresDB) GetUserByID(ctx context.Context, userID string) (*user.User, error) {
	queryCtx, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	usr := user.User{}
	err := db.database.QueryRowContext(
		queryCtx,
		`
			SELECT id, username, email, password_hash, created_at
				FROM users
				WHERE id = $1
		`,
		userID,
	).Scan(&usr.ID, &usr.Username, &usr.Email, &usr.PasswordHash, &usr.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &usr, nil
}

// FindUserByEmail looks a user up by email.
func (db *PostgresDB) FindUserByEmail(ctx context.Context, email string) (*user.User, bool, error) {
	queryCtx, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	usr := user.User{}
	err := db.database.QueryRowContext(
		queryCtx,
		`
			SELECT id, username, email, password_hash, created_at
				FROM users
				WHERE email = $1
		`,
		email,
	).Scan(&usr.ID, &usr.Username, &usr.Email, &usr.PasswordHash, &usr.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	return &usr, true, nil
}

// CreateTask inserts a new task row and returns its ID.
func (db *PostgresDB) CreateTask(ctx context.Context, tsk *task.Task) (string, error) {
	if tsk.ID == "" {
		tsk.ID = uuid.New().String()
	}

	queryCtx, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	_, err := db.database.ExecContext(
		queryCtx,
		`
			INSERT INTO tasks (id, text, completed, owner_id, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6)
		`,
		tsk.ID,
		tsk.Text,
		tsk.Completed,
		tsk.OwnerID,
		tsk.CreatedAt,
		tsk.UpdatedAt,
	)
	if err != nil {
		return "", err
	}

	return tsk.ID, nil
}

// GetUserTasks returns the owner's tasks, newest first.
func (db *PostgresDB) GetUserTasks(ctx context.Context, ownerID string) ([]task.Task, error) {
	queryCtx, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	rows, err := db.database.QueryContext(
		queryCtx,
		`
			SELECT id, text, completed, owner_id, created_at, updated_at
				FROM tasks
				WHERE owner_id = $1
				ORDER BY created_at DESC
		`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []task.Task{}
	for rows.Next() {
		tsk := task.Task{}
		err := rows.Scan(&tsk.ID, &tsk.Text, &tsk.Completed, &tsk.OwnerID, &tsk.CreatedAt, &tsk.UpdatedAt)
		if err != nil {
			return nil, err
		}
		result = append(result, tsk)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// UpdateTask applies the patch in a single compound id-and-owner UPDATE,
// so a task owned by another user is indistinguishable from an absent one.
func (db *PostgresDB) UpdateTask(ctx context.Context, ownerID, taskID string, patch task.Patch) (*task.Task, error) {
	queryCtx, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	updated := task.Task{}
	err := db.database.QueryRowContext(
		queryCtx,
		`
			UPDATE tasks
				SET text = COALESCE($3, text),
					completed = COALESCE($4, completed),
					updated_at = now()
				WHERE id = $1
					AND owner_id = $2
				RETURNING id, text, completed, owner_id, created_at, updated_at
		`,
		taskID,
		ownerID,
		patch.Text,
		patch.Completed,
	).Scan(&updated.ID, &updated.Text, &updated.Completed, &updated.OwnerID, &updated.CreatedAt, &updated.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &updated, nil
}

// DeleteTask removes the task matching both id and owner.
func (db *PostgresDB) DeleteTask(ctx context.Context, ownerID, taskID string) error {
	queryCtx, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	result, err := db.database.ExecContext(
		queryCtx,
		`
			DELETE FROM tasks
				WHERE id = $1
					AND owner_id = $2
		`,
		taskID,
		ownerID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// GetNumberOfUsers returns the total amount of registered users.
func (db *PostgresDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	return db.countRows(ctx, `SELECT count(*) FROM users`)
}

// GetNumberOfTasks returns the total amount of stored tasks.
func (db *PostgresDB) GetNumberOfTasks(ctx context.Context) (int64, error) {
	return db.countRows(ctx, `SELECT count(*) FROM tasks`)
}

func (db *PostgresDB) countRows(ctx context.Context, query string) (int64, error) {
	queryCtx, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	var count int64
	if err := db.database.QueryRowContext(queryCtx, query).Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}

// Ping checks the connection to the database.
func (db *PostgresDB) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.database.PingContext(pingCtx)
}

// Close closes the underlying connection pool.
func (db *PostgresDB) Close() error {
	return db.database.Close()
}
