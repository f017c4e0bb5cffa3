package reminder

import (
	"context"
	"iter"
	"time"

	"github.com/google/uuid"
)

// Message is the dispatch envelope placed into a Scheduler. It carries only
// the task reference: the consumer re-reads task state on delivery, so the
// message is a pure wake-up signal. Every enqueue produces a new ID, which
// makes retries brand-new messages rather than requeues.
type Message struct {
	ID     string `json:"id"`
	TaskID string `json:"taskId"`
	// EnqueuedAt and DueAt are unix milliseconds.
	EnqueuedAt int64 `json:"enqueuedAt"`
	DueAt      int64 `json:"dueAt"`
}

// NewMessage builds an envelope for taskID due delay after now. Negative
// delays are clamped to zero.
func NewMessage(taskID string, delay time.Duration, now time.Time) Message {
	delay = ClampDelay(delay)
	return Message{
		ID:         uuid.NewString(),
		TaskID:     taskID,
		EnqueuedAt: now.UnixMilli(),
		DueAt:      now.Add(delay).UnixMilli(),
	}
}

// Due returns DueAt as a time.
func (m Message) Due() time.Time { return time.UnixMilli(m.DueAt) }

// Delivery is a leased message. Receipt is the backend-specific handle that
// must be passed back to Ack.
type Delivery struct {
	Message Message
	Receipt string
}

// Scheduler is the delay broker used by the producer and the consumer.
//
// Enqueue makes a message for taskID visible no earlier than delay from now.
// Dequeue blocks until a due message is leased or ctx is done; consumption is
// at-least-once, an unacknowledged lease expires and the message is handed
// out again. Ack removes the message permanently. No ordering is promised
// across messages beyond their due times.
type Scheduler interface {
	Enqueue(ctx context.Context, taskID string, delay time.Duration) error
	Dequeue(ctx context.Context) (*Delivery, error)
	Ack(ctx context.Context, d *Delivery) error
}

// QueueStats reports message counts per scheduler state.
type QueueStats struct {
	Delayed int64 `json:"delayed"`
	Pending int64 `json:"pending"`
	Active  int64 `json:"active"`
}

// StatsReporter is implemented by schedulers that can report queue depth.
type StatsReporter interface {
	Stats(ctx context.Context) (QueueStats, error)
}

// ClampDelay returns d, or zero when d is negative (past-due tasks fire immediately).
func ClampDelay(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}

// Consume exposes s as a lazy, infinite sequence of due messages. The
// sequence ends when ctx is done or the caller stops ranging. Backend errors
// are yielded with a nil delivery and iteration continues.
func Consume(ctx context.Context, s Scheduler) iter.Seq2[*Delivery, error] {
	return func(yield func(*Delivery, error) bool) {
		for {
			d, err := s.Dequeue(ctx)
			if ctx.Err() != nil {
				return
			}
			if !yield(d, err) {
				return
			}
		}
	}
}
