// Package pgstore provides PostgreSQL-backed task and user stores. Both
// accept a DBTX so they work on a *pgxpool.Pool or inside a pgx.Tx.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	reminder "github.com/ace-232/day-planner-app"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the minimal interface shared by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// schema is applied one statement at a time by EnsureSchema.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		email         TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_email_lower_idx ON users (lower(email))`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id           TEXT PRIMARY KEY,
		user_id      TEXT NOT NULL,
		title        TEXT NOT NULL,
		description  TEXT NOT NULL DEFAULT '',
		scheduled_at TIMESTAMPTZ NOT NULL,
		channel      TEXT NOT NULL,
		status       TEXT NOT NULL DEFAULT 'pending',
		retries      INTEGER NOT NULL DEFAULT 0,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS tasks_user_scheduled_idx ON tasks (user_id, scheduled_at)`,
}

// Open connects a pool and verifies it with a ping.
func Open(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the tables and indexes if they do not exist.
func EnsureSchema(ctx context.Context, db DBTX) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// isUniqueViolation reports whether err is a unique constraint violation (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// TaskStore implements reminder.TaskStore on the tasks table.
type TaskStore struct {
	db DBTX
}

var _ reminder.TaskStore = (*TaskStore)(nil)

// NewTaskStore creates a task store backed by db.
func NewTaskStore(db DBTX) *TaskStore {
	return &TaskStore{db: db}
}

const taskColumns = `id, user_id, title, description, scheduled_at, channel, status, retries, created_at`

func scanTask(row pgx.Row) (*reminder.Task, error) {
	var (
		t       reminder.Task
		channel string
		status  string
	)
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.ScheduledAt, &channel, &status, &t.Retries, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	st, err := reminder.ParseStatus(status)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", t.ID, err)
	}
	t.Channel = reminder.Channel(channel)
	t.Status = st
	t.ScheduledAt = t.ScheduledAt.UTC()
	t.CreatedAt = t.CreatedAt.UTC()
	return &t, nil
}

// Save inserts t or overwrites the row with the same ID.
func (s *TaskStore) Save(ctx context.Context, t *reminder.Task) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO tasks (`+taskColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE SET
		   title = EXCLUDED.title, description = EXCLUDED.description,
		   scheduled_at = EXCLUDED.scheduled_at, channel = EXCLUDED.channel,
		   status = EXCLUDED.status, retries = EXCLUDED.retries`,
		t.ID, t.UserID, t.Title, t.Description, t.ScheduledAt, string(t.Channel), string(t.Status), t.Retries, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save task %s: %w", t.ID, err)
	}
	return nil
}

func (s *TaskStore) FindByID(ctx context.Context, id string) (*reminder.Task, error) {
	t, err := scanTask(s.db.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, reminder.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load task %s: %w", id, err)
	}
	return t, nil
}

// FindByUser returns the user's tasks ordered by scheduled time.
func (s *TaskStore) FindByUser(ctx context.Context, userID string) ([]*reminder.Task, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE user_id = $1 ORDER BY scheduled_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks of %s: %w", userID, err)
	}
	defer rows.Close()

	out := []*reminder.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks of %s: %w", userID, err)
	}
	return out, nil
}

func (s *TaskStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	return nil
}

// IncrementRetries bumps the counter of a pending task and returns the new value.
func (s *TaskStore) IncrementRetries(ctx context.Context, id string) (int, error) {
	var n int
	err := s.db.QueryRow(ctx,
		`UPDATE tasks SET retries = retries + 1 WHERE id = $1 AND status = $2 RETURNING retries`,
		id, string(reminder.StatusPending),
	).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, s.absentOrConflict(ctx, id)
	}
	if err != nil {
		return 0, fmt.Errorf("increment retries of %s: %w", id, err)
	}
	return n, nil
}

// Transition moves the task from one status to another if it is still in from.
func (s *TaskStore) Transition(ctx context.Context, id string, from, to reminder.Status) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE tasks SET status = $3 WHERE id = $1 AND status = $2`,
		id, string(from), string(to),
	)
	if err != nil {
		return fmt.Errorf("transition %s %s->%s: %w", id, from, to, err)
	}
	if tag.RowsAffected() == 0 {
		return s.absentOrConflict(ctx, id)
	}
	return nil
}

// absentOrConflict tells a missing row from a status mismatch after a
// conditional update matched nothing.
func (s *TaskStore) absentOrConflict(ctx context.Context, id string) error {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tasks WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check task %s: %w", id, err)
	}
	if !exists {
		return reminder.ErrTaskNotFound
	}
	return reminder.ErrStatusConflict
}

// UserStore implements reminder.UserStore on the users table.
type UserStore struct {
	db DBTX
}

var _ reminder.UserStore = (*UserStore)(nil)

// NewUserStore creates a user store backed by db.
func NewUserStore(db DBTX) *UserStore {
	return &UserStore{db: db}
}

const userColumns = `id, name, email, password_hash, created_at`

func scanUser(row pgx.Row) (*reminder.User, error) {
	var u reminder.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

// Create inserts u. A duplicate email returns reminder.ErrUserExists.
func (s *UserStore) Create(ctx context.Context, u *reminder.User) error {
	created := u.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Name, u.Email, u.PasswordHash, created,
	)
	if isUniqueViolation(err) {
		return reminder.ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("create user %s: %w", u.Email, err)
	}
	return nil
}

func (s *UserStore) FindByID(ctx context.Context, id string) (*reminder.User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, reminder.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", id, err)
	}
	return u, nil
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*reminder.User, error) {
	u, err := scanUser(s.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = $1`, strings.ToLower(email)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, reminder.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user %s: %w", email, err)
	}
	return u, nil
}
