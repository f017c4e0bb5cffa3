package reminder

import (
	"context"
	"fmt"
	"time"
)

// DeliverFunc performs one delivery attempt of a task to its owner.
type DeliverFunc func(ctx context.Context, t *Task, u *User) error

// Middleware wraps a DeliverFunc to provide cross-cutting concerns.
type Middleware func(DeliverFunc) DeliverFunc

// ChannelMux routes a task to the deliverer registered for its channel.
type ChannelMux struct {
	handlers    map[Channel]DeliverFunc
	middlewares []Middleware
}

// NewChannelMux creates an empty mux.
func NewChannelMux() *ChannelMux {
	return &ChannelMux{
		handlers:    make(map[Channel]DeliverFunc),
		middlewares: []Middleware{},
	}
}

// NewDeliveryMux wires the email and in-app channels.
func NewDeliveryMux(m Mailer, n Notifier) *ChannelMux {
	mux := NewChannelMux()
	mux.Handle(ChannelEmail, EmailDeliverer(m))
	mux.Handle(ChannelInApp, InAppDeliverer(n))
	return mux
}

// Handle registers the deliverer for ch, replacing any previous one.
func (m *ChannelMux) Handle(ch Channel, fn DeliverFunc) {
	m.handlers[ch] = fn
}

// Use adds middleware. Middlewares run in the order they are added.
func (m *ChannelMux) Use(mw Middleware) {
	m.middlewares = append(m.middlewares, mw)
}

// Deliver runs the deliverer for t.Channel. It returns an error wrapping
// ErrNoDeliverer when the channel has none.
func (m *ChannelMux) Deliver(ctx context.Context, t *Task, u *User) error {
	h, ok := m.handlers[t.Channel]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNoDeliverer, t.Channel)
	}
	return m.wrap(h)(ctx, t, u)
}

func (m *ChannelMux) wrap(h DeliverFunc) DeliverFunc {
	for i := len(m.middlewares) - 1; i >= 0; i-- {
		h = m.middlewares[i](h)
	}
	return h
}

// LoggingMiddleware logs the outcome and duration of each attempt.
func LoggingMiddleware(l Logger) Middleware {
	l = orNoop(l)
	return func(next DeliverFunc) DeliverFunc {
		return func(ctx context.Context, t *Task, u *User) error {
			start := time.Now()
			err := next(ctx, t, u)
			attempt, _ := AttemptFrom(ctx)
			if err != nil {
				l.Warnf("delivery error: task=%s channel=%s attempt=%d dur=%s err=%v", t.ID, t.Channel, attempt.Number, time.Since(start), err)
			} else {
				l.Debugf("delivery ok: task=%s channel=%s attempt=%d dur=%s", t.ID, t.Channel, attempt.Number, time.Since(start))
			}
			return err
		}
	}
}
