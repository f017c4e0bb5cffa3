package reminder

import (
	"context"
	"fmt"
	"time"
)

// Producer schedules the first dispatch of newly created tasks.
type Producer struct {
	sched Scheduler
	log   Logger
	now   func() time.Time
}

// NewProducer creates a producer enqueueing into s.
func NewProducer(s Scheduler, opts ...Option) *Producer {
	o := buildOptions(opts)
	return &Producer{sched: s, log: o.logger, now: o.now}
}

// OnTaskCreated enqueues exactly one dispatch message for t, due at its
// scheduled time (immediately when that is in the past). A failure wraps
// ErrEnqueue; the caller must not report the task as created, since it
// would never fire.
func (p *Producer) OnTaskCreated(ctx context.Context, t *Task) error {
	delay := ClampDelay(t.ScheduledAt.Sub(p.now()))
	if err := p.sched.Enqueue(ctx, t.ID, delay); err != nil {
		p.log.Errorf("initial dispatch not enqueued, task will not fire: task=%s user=%s err=%v", t.ID, t.UserID, err)
		return fmt.Errorf("%w: task %s: %w", ErrEnqueue, t.ID, err)
	}
	p.log.Infof("dispatch scheduled: task=%s channel=%s delay=%s", t.ID, t.Channel, delay)
	return nil
}
