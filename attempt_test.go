package reminder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAttempt_FromContext(t *testing.T) {
	_, ok := AttemptFrom(context.Background())
	require.False(t, ok)

	want := Attempt{TaskID: "t1", MessageID: "m1", Number: 2}
	got, ok := AttemptFrom(WithAttempt(context.Background(), want))
	require.True(t, ok)
	require.Equal(t, want, got)
}
