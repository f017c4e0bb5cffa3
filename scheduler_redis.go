package reminder

import (
	"context"
	"time"

	"github.com/ace-232/day-planner-app/internal/delayq"
	ikeys "github.com/ace-232/day-planner-app/internal/keys"
	"github.com/redis/go-redis/v9"
)

// maintenanceBatch bounds how many members one poll promotes or reclaims.
const maintenanceBatch = 256

// RedisSchedulerConfig configures a RedisScheduler.
type RedisSchedulerConfig struct {
	// Queue names the key set used. Defaults to "tasks".
	Queue string
	// VisibilityTTL is how long a dequeued message is leased to a worker.
	// If the worker neither acks nor finishes in time, the message is handed
	// out again. Defaults to 30s.
	VisibilityTTL time.Duration
	// PollInterval is the wait between polls when nothing is due. Defaults to 100ms.
	PollInterval time.Duration
	// Logger receives reclaim and decode warnings.
	Logger Logger
	// Now overrides the clock; tests use it to move time without sleeping.
	Now func() time.Time
}

// RedisScheduler is the default Scheduler. Due times are kept in
// milliseconds; promotion of due messages and reclaim of expired leases run
// as atomic scripts on every poll, so no background goroutines are needed
// and any number of consumer processes can share a queue.
type RedisScheduler struct {
	rdb     redis.UniversalClient
	keys    ikeys.Queue
	cfg     RedisSchedulerConfig
	encoder Encoder
	log     Logger
	now     func() time.Time
}

var (
	_ Scheduler     = (*RedisScheduler)(nil)
	_ StatsReporter = (*RedisScheduler)(nil)
)

// NewRedisScheduler creates a scheduler on rdb.
func NewRedisScheduler(rdb redis.UniversalClient, cfg RedisSchedulerConfig) *RedisScheduler {
	if cfg.Queue == "" {
		cfg.Queue = "tasks"
	}
	if cfg.VisibilityTTL <= 0 {
		cfg.VisibilityTTL = 30 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 100 * time.Millisecond
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &RedisScheduler{
		rdb:     rdb,
		keys:    ikeys.For(cfg.Queue),
		cfg:     cfg,
		encoder: DefaultEncoder,
		log:     orNoop(cfg.Logger),
		now:     now,
	}
}

// Enqueue places a new message for taskID, visible after delay.
func (s *RedisScheduler) Enqueue(ctx context.Context, taskID string, delay time.Duration) error {
	now := s.now()
	m := NewMessage(taskID, delay, now)
	raw, err := EncodeMessage(s.encoder, m)
	if err != nil {
		return err
	}
	return delayq.Schedule(ctx, s.rdb, s.keys, raw, m.DueAt, now.UnixMilli())
}

// Dequeue polls until a message is due and leases it.
func (s *RedisScheduler) Dequeue(ctx context.Context) (*Delivery, error) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	for {
		d, err := s.poll(ctx)
		if err != nil || d != nil {
			return d, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *RedisScheduler) poll(ctx context.Context) (*Delivery, error) {
	now := s.now()
	nowMs := now.UnixMilli()
	if _, err := delayq.Promote(ctx, s.rdb, s.keys, nowMs, maintenanceBatch); err != nil {
		return nil, err
	}
	n, err := delayq.Reclaim(ctx, s.rdb, s.keys, nowMs, maintenanceBatch)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		s.log.Warnf("reclaimed expired leases: queue=%s count=%d", s.cfg.Queue, n)
	}
	raw, err := delayq.Dequeue(ctx, s.rdb, s.keys, now.Add(s.cfg.VisibilityTTL).UnixMilli())
	if err != nil || raw == nil {
		return nil, err
	}
	m, err := DecodeMessage(s.encoder, raw)
	if err != nil {
		// Undecodable members would be reclaimed forever; drop them.
		s.log.Errorf("dropping undecodable message: queue=%s raw=%q err=%v", s.cfg.Queue, raw, err)
		if aerr := delayq.Ack(ctx, s.rdb, s.keys, raw); aerr != nil {
			return nil, aerr
		}
		return nil, nil
	}
	return &Delivery{Message: m, Receipt: string(raw)}, nil
}

// Ack removes the leased message. Acking a message whose lease already
// expired and was handed out again also removes the second lease.
func (s *RedisScheduler) Ack(ctx context.Context, d *Delivery) error {
	return delayq.Ack(ctx, s.rdb, s.keys, []byte(d.Receipt))
}

// Stats reports queue depth per state.
func (s *RedisScheduler) Stats(ctx context.Context) (QueueStats, error) {
	d, p, a, err := delayq.Counts(ctx, s.rdb, s.keys)
	if err != nil {
		return QueueStats{}, err
	}
	return QueueStats{Delayed: d, Pending: p, Active: a}, nil
}
