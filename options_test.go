package reminder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOptions_Setters(t *testing.T) {
	o := buildOptions(nil)
	require.NotNil(t, o.now, "default clock")
	require.IsType(t, noopLogger{}, o.logger, "default logger is a no-op")

	fixed := time.UnixMilli(1_700_000_000_000)
	l := NewFmtLogger()
	o = buildOptions([]Option{WithLogger(l), WithClock(func() time.Time { return fixed })})
	require.Same(t, l, o.logger)
	require.Equal(t, fixed, o.now())

	// nil clock keeps the default
	o = buildOptions([]Option{WithClock(nil)})
	require.NotNil(t, o.now)
}
