package reminder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	rtm "github.com/ace-232/day-planner-app/internal/runtime"
)

// ConsumerConfig defines the configuration of a Consumer.
type ConsumerConfig struct {
	// Concurrency is the number of worker goroutines. Defaults to 1.
	Concurrency int
	// DeliveryTimeout bounds each delivery call; expiry counts as a failed
	// attempt. Keep it below the scheduler's visibility TTL so a slow
	// attempt is not handed to a second worker. Defaults to 10s.
	DeliveryTimeout time.Duration
	// Retry is the backoff policy. The zero value means DefaultRetryPolicy.
	Retry RetryPolicy
	// Logger is used for dispatch events.
	Logger Logger
}

// Consumer is the dispatch worker and retry engine. Every message runs
// through the same state machine:
//
//	RECEIVED -> LOOKUP -> (SKIP if gone or terminal) -> DELIVER
//	  -> SUCCESS: mark sent, ack
//	  -> FAILURE: persist retry counter, then re-enqueue with backoff or mark failed, ack
//
// A message is left unacknowledged only when a store or scheduler write
// fails, so that the lease expires and it is redelivered.
type Consumer struct {
	sched Scheduler
	tasks TaskStore
	users UserStore
	mux   *ChannelMux
	cfg   ConsumerConfig
	log   Logger

	rt      *rtm.Runtime[*Delivery]
	mu      sync.Mutex
	started bool
}

// NewConsumer creates a consumer. It does not pull anything until Start.
func NewConsumer(sched Scheduler, tasks TaskStore, users UserStore, mux *ChannelMux, cfg ConsumerConfig) *Consumer {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = 10 * time.Second
	}
	cfg.Retry = cfg.Retry.orDefault()
	c := &Consumer{
		sched: sched,
		tasks: tasks,
		users: users,
		mux:   mux,
		cfg:   cfg,
		log:   orNoop(cfg.Logger),
	}
	c.rt = rtm.New[*Delivery](rtm.Config{
		Concurrency: cfg.Concurrency,
		Logger:      rtLogger{Logger: c.log},
	}, sched.Dequeue, func(ctx context.Context, d *Delivery) {
		if d == nil {
			return
		}
		_ = c.Handle(ctx, d)
	})
	return c
}

// Start launches the workers. It is idempotent and non-blocking.
func (c *Consumer) Start() {
	c.mu.Lock()
	if c.started {
		c.log.Warnf("consumer already started; ignoring Start()")
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()
	c.log.Infof("starting consumer: concurrency=%d max_attempts=%d", c.cfg.Concurrency, c.cfg.Retry.MaxAttempts())
	c.rt.Start()
}

// Stop stops pulling and waits for in-flight messages to finish.
func (c *Consumer) Stop() {
	c.mu.Lock()
	if !c.started {
		c.log.Warnf("consumer not started; ignoring Stop()")
		c.mu.Unlock()
		return
	}
	c.started = false
	c.mu.Unlock()
	c.log.Infof("stopping consumer")
	c.rt.Stop()
}

// Handle runs one delivery through the state machine. A non-nil error means
// the message was left unacknowledged.
func (c *Consumer) Handle(ctx context.Context, d *Delivery) error {
	msg := d.Message
	task, err := c.tasks.FindByID(ctx, msg.TaskID)
	switch {
	case errors.Is(err, ErrTaskNotFound):
		c.log.Infof("task gone, dropping message: task=%s msg=%s", msg.TaskID, msg.ID)
		return c.ack(ctx, d)
	case err != nil:
		c.log.Errorf("task lookup failed, message left for redelivery: task=%s msg=%s err=%v", msg.TaskID, msg.ID, err)
		return fmt.Errorf("lookup task %s: %w", msg.TaskID, err)
	}
	if task.Status.Terminal() {
		c.log.Debugf("task already %s, dropping message: task=%s msg=%s", task.Status, task.ID, msg.ID)
		return c.ack(ctx, d)
	}

	user, err := c.users.FindByID(ctx, task.UserID)
	switch {
	case errors.Is(err, ErrUserNotFound):
		c.log.Warnf("owner missing, failing task: task=%s user=%s", task.ID, task.UserID)
		return c.finish(ctx, d, task, StatusFailed)
	case err != nil:
		c.log.Errorf("user lookup failed, message left for redelivery: task=%s user=%s err=%v", task.ID, task.UserID, err)
		return fmt.Errorf("lookup user %s: %w", task.UserID, err)
	}

	actx := WithAttempt(ctx, Attempt{TaskID: task.ID, MessageID: msg.ID, Number: task.Retries + 1})
	dctx, cancel := context.WithTimeout(actx, c.cfg.DeliveryTimeout)
	derr := c.mux.Deliver(dctx, task, user)
	cancel()

	switch {
	case derr == nil:
		return c.finish(ctx, d, task, StatusSent)
	case errors.Is(derr, ErrNoDeliverer), errors.Is(derr, ErrNoRecipient):
		c.log.Errorf("task cannot be delivered, failing: task=%s channel=%s err=%v", task.ID, task.Channel, derr)
		return c.finish(ctx, d, task, StatusFailed)
	default:
		return c.retry(ctx, d, task, derr)
	}
}

// finish records a terminal outcome and acks.
func (c *Consumer) finish(ctx context.Context, d *Delivery, task *Task, to Status) error {
	err := c.tasks.Transition(ctx, task.ID, StatusPending, to)
	switch {
	case err == nil:
		c.log.Infof("task %s: task=%s channel=%s retries=%d", to, task.ID, task.Channel, task.Retries)
	case errors.Is(err, ErrStatusConflict), errors.Is(err, ErrTaskNotFound):
		c.log.Warnf("task changed concurrently, outcome not recorded: task=%s want=%s msg=%s", task.ID, to, d.Message.ID)
	default:
		c.log.Errorf("status write failed, message left for redelivery: task=%s want=%s err=%v", task.ID, to, err)
		return fmt.Errorf("mark task %s %s: %w", task.ID, to, err)
	}
	return c.ack(ctx, d)
}

// retry persists the failed attempt before scheduling the next one.
func (c *Consumer) retry(ctx context.Context, d *Delivery, task *Task, cause error) error {
	retries, err := c.tasks.IncrementRetries(ctx, task.ID)
	switch {
	case errors.Is(err, ErrStatusConflict), errors.Is(err, ErrTaskNotFound):
		c.log.Warnf("task changed during delivery, retry dropped: task=%s msg=%s", task.ID, d.Message.ID)
		return c.ack(ctx, d)
	case err != nil:
		c.log.Errorf("retry counter write failed, message left for redelivery: task=%s err=%v", task.ID, err)
		return fmt.Errorf("record retry for task %s: %w", task.ID, err)
	}
	task.Retries = retries

	if !c.cfg.Retry.ShouldRetry(retries) {
		c.log.Warnf("retry ceiling reached: task=%s retries=%d err=%v", task.ID, retries, cause)
		return c.finish(ctx, d, task, StatusFailed)
	}

	delay := c.cfg.Retry.Backoff(retries)
	if err := c.sched.Enqueue(ctx, task.ID, delay); err != nil {
		c.log.Errorf("retry not enqueued, message left for redelivery: task=%s retries=%d err=%v", task.ID, retries, err)
		return fmt.Errorf("%w: retry of task %s: %w", ErrEnqueue, task.ID, err)
	}
	c.log.Warnf("delivery failed, retry scheduled: task=%s retries=%d delay=%s err=%v", task.ID, retries, delay, cause)
	return c.ack(ctx, d)
}

func (c *Consumer) ack(ctx context.Context, d *Delivery) error {
	if err := c.sched.Ack(ctx, d); err != nil {
		c.log.Errorf("ack failed: task=%s msg=%s err=%v", d.Message.TaskID, d.Message.ID, err)
		return fmt.Errorf("ack message %s: %w", d.Message.ID, err)
	}
	return nil
}

// rtLogger adapts the public Logger to the internal runtime logger interface.
type rtLogger struct{ Logger }
