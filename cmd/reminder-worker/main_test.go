package main

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	reminder "github.com/ace-232/day-planner-app"
)

type fixedStats struct{ st reminder.QueueStats }

func (f fixedStats) Stats(context.Context) (reminder.QueueStats, error) { return f.st, nil }

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

func TestReportStats(t *testing.T) {
	var buf syncBuffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		reportStats(ctx, fixedStats{reminder.QueueStats{Delayed: 3, Pending: 1}}, 5*time.Millisecond, log)
		close(done)
	}()
	require.Eventually(t, func() bool { return bytes.Contains(buf.Bytes(), []byte("queue depth")) }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.Contains(t, string(buf.Bytes()), "delayed=3")
}
