package reminder

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Task is one scheduled reminder. It is the unit the dispatch pipeline tracks:
// the consumer re-reads it on every delivery attempt, so the copy held by a
// dispatch message is never trusted.
type Task struct {
	// ID is the opaque task identifier (a UUID string).
	ID string `json:"id"`
	// UserID is the owning user. Immutable after creation.
	UserID string `json:"userId"`
	// Title is the required reminder title.
	Title string `json:"title"`
	// Description is optional free text.
	Description string `json:"description,omitempty"`
	// ScheduledAt is the instant the reminder should fire.
	ScheduledAt time.Time `json:"scheduledTime"`
	// Channel is fixed for the task's lifetime.
	Channel Channel `json:"notificationType"`
	// Status starts pending and advances to exactly one terminal state.
	Status Status `json:"status"`
	// Retries counts failed delivery attempts.
	Retries int `json:"retries"`
	// CreatedAt is when the task was accepted.
	CreatedAt time.Time `json:"createdAt"`
}

// NewTask builds a pending task with a fresh ID.
func NewTask(userID, title, description string, at time.Time, ch Channel) *Task {
	return &Task{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       title,
		Description: description,
		ScheduledAt: at.UTC(),
		Channel:     ch,
		Status:      StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
}

// User is the owner of tasks. The pipeline only reads Email.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NewUser builds a user with a fresh ID.
func NewUser(name, email, passwordHash string) *User {
	return &User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
}

// Notification is the in-app payload pushed to live connections.
type Notification struct {
	Type    Channel `json:"type"`
	Content string  `json:"content"`
	TaskID  string  `json:"taskId"`
}

// InAppNotification builds the payload announcing that t is due.
func InAppNotification(t *Task) Notification {
	return Notification{
		Type:    ChannelInApp,
		Content: "Task due: " + t.Title,
		TaskID:  t.ID,
	}
}

// EmailSubject is the subject line of every reminder email.
const EmailSubject = "Task Reminder"

// EmailBody renders the plain-text reminder for t.
func EmailBody(t *Task) string {
	return fmt.Sprintf("Your task \"%s\" is due now!", t.Title)
}
