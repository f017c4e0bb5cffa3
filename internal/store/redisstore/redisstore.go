// Package redisstore keeps tasks and users in Redis hashes. Conditional
// updates are Lua scripts so they are atomic across processes.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	reminder "github.com/ace-232/day-planner-app"
	ikeys "github.com/ace-232/day-planner-app/internal/keys"
	"github.com/redis/go-redis/v9"
)

// transitionScript sets status to ARGV[2] only when it currently equals ARGV[1].
// Returns 1 on success, 0 on mismatch, -1 when the task does not exist.
var transitionScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'status')
if not cur then return -1 end
if cur ~= ARGV[1] then return 0 end
redis.call('HSET', KEYS[1], 'status', ARGV[2])
return 1
`)

// incrementScript bumps retries of a pending task and returns the new value.
// Returns -1 when the task does not exist and -2 when it is not pending.
var incrementScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'status')
if not cur then return -1 end
if cur ~= ARGV[1] then return -2 end
return redis.call('HINCRBY', KEYS[1], 'retries', 1)
`)

// createUserScript claims the email index and writes the user hash together.
// Returns 0 when the email is already taken.
var createUserScript = redis.NewScript(`
if redis.call('SETNX', KEYS[2], ARGV[1]) == 0 then return 0 end
redis.call('HSET', KEYS[1], 'id', ARGV[1], 'name', ARGV[2], 'email', ARGV[3], 'password_hash', ARGV[4], 'created_at', ARGV[5])
return 1
`)

// TaskStore implements reminder.TaskStore.
type TaskStore struct {
	rdb redis.UniversalClient
}

var _ reminder.TaskStore = (*TaskStore)(nil)

// NewTaskStore creates a task store on rdb.
func NewTaskStore(rdb redis.UniversalClient) *TaskStore {
	return &TaskStore{rdb: rdb}
}

func (s *TaskStore) Save(ctx context.Context, t *reminder.Task) error {
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, ikeys.Task(t.ID), taskFields(t))
		p.SAdd(ctx, ikeys.UserTasks(t.UserID), t.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save task %s: %w", t.ID, err)
	}
	return nil
}

func (s *TaskStore) FindByID(ctx context.Context, id string) (*reminder.Task, error) {
	m, err := s.rdb.HGetAll(ctx, ikeys.Task(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("load task %s: %w", id, err)
	}
	if len(m) == 0 {
		return nil, reminder.ErrTaskNotFound
	}
	return parseTask(m)
}

// FindByUser returns the user's tasks ordered by scheduled time.
func (s *TaskStore) FindByUser(ctx context.Context, userID string) ([]*reminder.Task, error) {
	ids, err := s.rdb.SMembers(ctx, ikeys.UserTasks(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list tasks of %s: %w", userID, err)
	}
	if len(ids) == 0 {
		return []*reminder.Task{}, nil
	}
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = p.HGetAll(ctx, ikeys.Task(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load tasks of %s: %w", userID, err)
	}
	out := make([]*reminder.Task, 0, len(ids))
	for _, c := range cmds {
		m := c.Val()
		if len(m) == 0 {
			// index entry left behind by a concurrent delete
			continue
		}
		t, err := parseTask(m)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func (s *TaskStore) Delete(ctx context.Context, id string) error {
	userID, err := s.rdb.HGet(ctx, ikeys.Task(id), "user_id").Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, ikeys.Task(id))
		p.SRem(ctx, ikeys.UserTasks(userID), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	return nil
}

func (s *TaskStore) IncrementRetries(ctx context.Context, id string) (int, error) {
	n, err := incrementScript.Run(ctx, s.rdb, []string{ikeys.Task(id)}, string(reminder.StatusPending)).Int()
	if err != nil {
		return 0, fmt.Errorf("increment retries of %s: %w", id, err)
	}
	switch n {
	case -1:
		return 0, reminder.ErrTaskNotFound
	case -2:
		return 0, reminder.ErrStatusConflict
	}
	return n, nil
}

func (s *TaskStore) Transition(ctx context.Context, id string, from, to reminder.Status) error {
	n, err := transitionScript.Run(ctx, s.rdb, []string{ikeys.Task(id)}, string(from), string(to)).Int()
	if err != nil {
		return fmt.Errorf("transition %s %s->%s: %w", id, from, to, err)
	}
	switch n {
	case -1:
		return reminder.ErrTaskNotFound
	case 0:
		return reminder.ErrStatusConflict
	}
	return nil
}

func taskFields(t *reminder.Task) map[string]any {
	return map[string]any{
		"id":           t.ID,
		"user_id":      t.UserID,
		"title":        t.Title,
		"description":  t.Description,
		"scheduled_at": t.ScheduledAt.UnixMilli(),
		"channel":      string(t.Channel),
		"status":       string(t.Status),
		"retries":      t.Retries,
		"created_at":   t.CreatedAt.UnixMilli(),
	}
}

func parseTask(m map[string]string) (*reminder.Task, error) {
	sched, err := strconv.ParseInt(m["scheduled_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("task %s: bad scheduled_at: %w", m["id"], err)
	}
	created, _ := strconv.ParseInt(m["created_at"], 10, 64)
	retries, _ := strconv.Atoi(m["retries"])
	st, err := reminder.ParseStatus(m["status"])
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", m["id"], err)
	}
	return &reminder.Task{
		ID:          m["id"],
		UserID:      m["user_id"],
		Title:       m["title"],
		Description: m["description"],
		ScheduledAt: time.UnixMilli(sched).UTC(),
		// stored as-is; the consumer fails tasks whose channel has no deliverer
		Channel:   reminder.Channel(m["channel"]),
		Status:    st,
		Retries:   retries,
		CreatedAt: time.UnixMilli(created).UTC(),
	}, nil
}

// UserStore implements reminder.UserStore.
type UserStore struct {
	rdb redis.UniversalClient
}

var _ reminder.UserStore = (*UserStore)(nil)

// NewUserStore creates a user store on rdb.
func NewUserStore(rdb redis.UniversalClient) *UserStore {
	return &UserStore{rdb: rdb}
}

// Create stores u. Emails are unique case-insensitively.
func (s *UserStore) Create(ctx context.Context, u *reminder.User) error {
	ok, err := createUserScript.Run(ctx, s.rdb,
		[]string{ikeys.User(u.ID), ikeys.UserEmail(u.Email)},
		u.ID, u.Name, u.Email, u.PasswordHash, u.CreatedAt.UnixMilli(),
	).Int()
	if err != nil {
		return fmt.Errorf("create user %s: %w", u.Email, err)
	}
	if ok == 0 {
		return reminder.ErrUserExists
	}
	return nil
}

func (s *UserStore) FindByID(ctx context.Context, id string) (*reminder.User, error) {
	m, err := s.rdb.HGetAll(ctx, ikeys.User(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", id, err)
	}
	if len(m) == 0 {
		return nil, reminder.ErrUserNotFound
	}
	created, _ := strconv.ParseInt(m["created_at"], 10, 64)
	return &reminder.User{
		ID:           m["id"],
		Name:         m["name"],
		Email:        m["email"],
		PasswordHash: m["password_hash"],
		CreatedAt:    time.UnixMilli(created).UTC(),
	}, nil
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*reminder.User, error) {
	id, err := s.rdb.Get(ctx, ikeys.UserEmail(email)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, reminder.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user %s: %w", email, err)
	}
	return s.FindByID(ctx, id)
}
