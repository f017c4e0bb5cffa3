package reminder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryPolicy_DefaultSchedule(t *testing.T) {
	p := DefaultRetryPolicy()
	assert.Equal(t, 10*time.Second, p.Backoff(1))
	assert.Equal(t, 20*time.Second, p.Backoff(2))
	assert.Equal(t, 40*time.Second, p.Backoff(3))
	assert.Equal(t, 5*time.Second, p.Backoff(0))
	assert.Equal(t, 5*time.Second, p.Backoff(-1), "negative counters clamp to zero")
}

func TestRetryPolicy_CeilingIsInclusive(t *testing.T) {
	p := DefaultRetryPolicy()
	for r := 1; r <= 3; r++ {
		assert.Truef(t, p.ShouldRetry(r), "retries=%d should be retried", r)
	}
	assert.False(t, p.ShouldRetry(4))
	assert.Equal(t, 4, p.MaxAttempts())
}

func TestRetryPolicy_OrDefault(t *testing.T) {
	assert.Equal(t, DefaultRetryPolicy(), RetryPolicy{}.orDefault())

	p := RetryPolicy{MaxRetries: -2, BaseDelay: time.Millisecond}.orDefault()
	assert.Equal(t, 0, p.MaxRetries)
	assert.Equal(t, 1, p.MaxAttempts())
	assert.False(t, p.ShouldRetry(1))
}
