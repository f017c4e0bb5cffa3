package reminder

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFmtLogger_WritesLevelPrefixedLines(t *testing.T) {
	var buf bytes.Buffer
	l := FmtLogger{Out: &buf}
	l.Infof("sent: task=%s", "t1")
	l.Errorf("retry %d", 2)
	assert.Equal(t, "[INFO] sent: task=t1\n[ERROR] retry 2\n", buf.String())
}

func TestSlogLogger_ForwardsLevels(t *testing.T) {
	var buf bytes.Buffer
	h := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})
	l := NewSlogLogger(slog.New(h))
	l.Infof("hidden")
	l.Warnf("queue=%s", "reminders")
	out := buf.String()
	require.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"level":"WARN"`)
	assert.Contains(t, out, `"msg":"queue=reminders"`)
}
