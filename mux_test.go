package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestChannelMux_RoutesByChannel(t *testing.T) {
	mux := NewChannelMux()
	var got []Channel
	mux.Handle(ChannelEmail, func(context.Context, *Task, *User) error { got = append(got, ChannelEmail); return nil })
	mux.Handle(ChannelInApp, func(context.Context, *Task, *User) error { got = append(got, ChannelInApp); return nil })

	ctx := context.Background()
	require.NoError(t, mux.Deliver(ctx, testTask(ChannelInApp, time.Now()), testUser()))
	require.NoError(t, mux.Deliver(ctx, testTask(ChannelEmail, time.Now()), testUser()))
	require.Equal(t, []Channel{ChannelInApp, ChannelEmail}, got)
}

func TestChannelMux_NoDeliverer(t *testing.T) {
	mux := NewChannelMux()
	task := testTask(Channel("sms"), time.Now())
	err := mux.Deliver(context.Background(), task, testUser())
	require.True(t, errors.Is(err, ErrNoDeliverer))
}

func TestChannelMux_MiddlewareOrder(t *testing.T) {
	mux := NewChannelMux()
	var order []string
	mw := func(name string) Middleware {
		return func(next DeliverFunc) DeliverFunc {
			return func(ctx context.Context, t *Task, u *User) error {
				order = append(order, name)
				return next(ctx, t, u)
			}
		}
	}
	mux.Use(mw("first"))
	mux.Use(mw("second"))
	mux.Use(LoggingMiddleware(nil))
	mux.Handle(ChannelEmail, func(context.Context, *Task, *User) error {
		order = append(order, "handler")
		return nil
	})
	require.NoError(t, mux.Deliver(context.Background(), testTask(ChannelEmail, time.Now()), testUser()))
	require.Equal(t, []string{"first", "second", "handler"}, order)
}

func TestEmailDeliverer(t *testing.T) {
	m := &fakeMailer{}
	deliver := EmailDeliverer(m)
	task := testTask(ChannelEmail, time.Now())

	require.NoError(t, deliver(context.Background(), task, testUser()))
	require.Equal(t, []string{`ann@example.com|Task Reminder|Your task "Water plants" is due now!`}, m.sent)

	err := deliver(context.Background(), task, &User{ID: "u1"})
	require.ErrorIs(t, err, ErrNoRecipient, "owner without address cannot be mailed")
	require.Equal(t, 1, m.callCount())
}

type captureNotifier struct {
	userID string
	n      Notification
	err    error
}

func (c *captureNotifier) Notify(_ context.Context, userID string, n Notification) error {
	c.userID, c.n = userID, n
	return c.err
}

func TestInAppDeliverer(t *testing.T) {
	cn := &captureNotifier{}
	task := testTask(ChannelInApp, time.Now())
	require.NoError(t, InAppDeliverer(cn)(context.Background(), task, testUser()))
	require.Equal(t, "u1", cn.userID)
	require.Equal(t, Notification{Type: ChannelInApp, Content: "Task due: Water plants", TaskID: task.ID}, cn.n)

	cn.err = errInjected
	require.ErrorIs(t, InAppDeliverer(cn)(context.Background(), task, testUser()), errInjected)
}
