package reminder

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	mrd "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newMiniClient(t *testing.T) (*redis.Client, func()) {
	t.Helper()
	s := mrd.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	cleanup := func() {
		_ = rdb.Close()
		s.Close()
	}
	return rdb, cleanup
}

var errInjected = errors.New("injected failure")

// memTaskStore is an in-memory TaskStore with the same conditional semantics
// as the real backends. It records every status transition.
type memTaskStore struct {
	mu          sync.Mutex
	tasks       map[string]Task
	transitions []string

	findErr       error
	transitionErr error
	incrementErr  error
}

func newMemTaskStore(ts ...*Task) *memTaskStore {
	s := &memTaskStore{tasks: map[string]Task{}}
	for _, t := range ts {
		s.tasks[t.ID] = *t
	}
	return s
}

func (s *memTaskStore) Save(_ context.Context, t *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = *t
	return nil
}

func (s *memTaskStore) FindByID(_ context.Context, id string) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return &t, nil
}

func (s *memTaskStore) FindByUser(_ context.Context, userID string) ([]*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Task
	for _, t := range s.tasks {
		if t.UserID == userID {
			t := t
			out = append(out, &t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func (s *memTaskStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, id)
	return nil
}

func (s *memTaskStore) IncrementRetries(_ context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.incrementErr != nil {
		return 0, s.incrementErr
	}
	t, ok := s.tasks[id]
	if !ok {
		return 0, ErrTaskNotFound
	}
	if t.Status != StatusPending {
		return 0, ErrStatusConflict
	}
	t.Retries++
	s.tasks[id] = t
	return t.Retries, nil
}

func (s *memTaskStore) Transition(_ context.Context, id string, from, to Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.transitionErr != nil {
		return s.transitionErr
	}
	t, ok := s.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	if t.Status != from {
		return ErrStatusConflict
	}
	t.Status = to
	s.tasks[id] = t
	s.transitions = append(s.transitions, string(from)+"->"+string(to))
	return nil
}

func (s *memTaskStore) get(id string) Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks[id]
}

type memUserStore struct {
	mu      sync.Mutex
	users   map[string]User
	findErr error
}

func newMemUserStore(us ...*User) *memUserStore {
	s := &memUserStore{users: map[string]User{}}
	for _, u := range us {
		s.users[u.ID] = *u
	}
	return s
}

func (s *memUserStore) Create(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, x := range s.users {
		if x.Email == u.Email {
			return ErrUserExists
		}
	}
	s.users[u.ID] = *u
	return nil
}

func (s *memUserStore) FindByID(_ context.Context, id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (s *memUserStore) FindByEmail(_ context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}

type enqueued struct {
	TaskID string
	Delay  time.Duration
}

// recordingScheduler records enqueues and acks. Dequeue is not used by the
// tests that drive Consumer.Handle directly.
type recordingScheduler struct {
	mu         sync.Mutex
	enqueued   []enqueued
	acked      []string
	enqueueErr error
	ackErr     error
}

func (s *recordingScheduler) Enqueue(_ context.Context, taskID string, delay time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enqueueErr != nil {
		return s.enqueueErr
	}
	s.enqueued = append(s.enqueued, enqueued{TaskID: taskID, Delay: delay})
	return nil
}

func (s *recordingScheduler) Dequeue(ctx context.Context) (*Delivery, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (s *recordingScheduler) Ack(_ context.Context, d *Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ackErr != nil {
		return s.ackErr
	}
	s.acked = append(s.acked, d.Message.ID)
	return nil
}

func (s *recordingScheduler) delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, 0, len(s.enqueued))
	for _, e := range s.enqueued {
		out = append(out, e.Delay)
	}
	return out
}

func (s *recordingScheduler) ackCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.acked)
}

// fakeMailer counts calls and fails while failing is set.
type fakeMailer struct {
	mu      sync.Mutex
	calls   int
	sent    []string
	failing bool
	block   bool
}

func (m *fakeMailer) Send(ctx context.Context, to, subject, body string) error {
	m.mu.Lock()
	m.calls++
	failing, block := m.failing, m.block
	m.mu.Unlock()
	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	if failing {
		return errors.New("smtp: connection refused")
	}
	m.mu.Lock()
	m.sent = append(m.sent, to+"|"+subject+"|"+body)
	m.mu.Unlock()
	return nil
}

func (m *fakeMailer) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func testUser() *User {
	return &User{ID: "u1", Name: "Ann", Email: "ann@example.com"}
}

func testTask(ch Channel, at time.Time) *Task {
	t := NewTask("u1", "Water plants", "", at, ch)
	return t
}

func deliveryFor(taskID string) *Delivery {
	m := NewMessage(taskID, 0, time.Now())
	return &Delivery{Message: m, Receipt: m.ID}
}
