package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestProducer_DelayUntilScheduledTime(t *testing.T) {
	sched := &recordingScheduler{}
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	p := NewProducer(sched, WithClock(func() time.Time { return now }))

	task := testTask(ChannelEmail, now.Add(90*time.Second))
	require.NoError(t, p.OnTaskCreated(context.Background(), task))
	require.Len(t, sched.enqueued, 1, "exactly one message per create")
	require.Equal(t, task.ID, sched.enqueued[0].TaskID)
	require.Equal(t, 90*time.Second, sched.enqueued[0].Delay)
}

func TestProducer_PastDueFiresImmediately(t *testing.T) {
	sched := &recordingScheduler{}
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	p := NewProducer(sched, WithClock(func() time.Time { return now }))

	require.NoError(t, p.OnTaskCreated(context.Background(), testTask(ChannelInApp, now.Add(-time.Hour))))
	require.Equal(t, []time.Duration{0}, sched.delays())
}

func TestProducer_EnqueueFailure(t *testing.T) {
	sched := &recordingScheduler{enqueueErr: errInjected}
	p := NewProducer(sched, WithLogger(NewFmtLogger()))

	err := p.OnTaskCreated(context.Background(), testTask(ChannelEmail, time.Now().Add(time.Minute)))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrEnqueue))
	require.True(t, errors.Is(err, errInjected))
}
