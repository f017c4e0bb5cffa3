package reminder

import "context"

// TaskStore persists tasks and acts as the status ledger.
//
// Transition and IncrementRetries are conditional: they only apply while the
// task is in the expected state and report ErrStatusConflict otherwise. This
// is what keeps a task from recording two terminal outcomes when stale and
// fresh messages for it are processed concurrently.
type TaskStore interface {
	// Save inserts or replaces t by ID.
	Save(ctx context.Context, t *Task) error
	// FindByID returns ErrTaskNotFound when no task has id.
	FindByID(ctx context.Context, id string) (*Task, error)
	// FindByUser returns the user's tasks ordered by scheduled time.
	FindByUser(ctx context.Context, userID string) ([]*Task, error)
	// Delete removes a task. Deleting a missing task is not an error.
	Delete(ctx context.Context, id string) error
	// IncrementRetries adds one to the retry counter of a pending task and
	// returns the new value.
	IncrementRetries(ctx context.Context, id string) (int, error)
	// Transition moves the task from one status to another.
	Transition(ctx context.Context, id string, from, to Status) error
}

// UserStore persists users.
type UserStore interface {
	// Create returns ErrUserExists when the email is taken (case-insensitive).
	Create(ctx context.Context, u *User) error
	// FindByID returns ErrUserNotFound when no user has id.
	FindByID(ctx context.Context, id string) (*User, error)
	// FindByEmail matches case-insensitively and returns ErrUserNotFound when absent.
	FindByEmail(ctx context.Context, email string) (*User, error)
}
