package reminder

import "time"

// RetryPolicy decides whether a failed delivery is retried and how long to
// wait. The ceiling is inclusive: with MaxRetries 3 a task gets at most four
// attempts.
type RetryPolicy struct {
	// MaxRetries is the highest retry counter value that is still retried.
	MaxRetries int
	// BaseDelay is multiplied by 2^retries.
	BaseDelay time.Duration
}

// DefaultRetryPolicy retries three times after 10s, 20s and 40s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, BaseDelay: 5 * time.Second}
}

// ShouldRetry reports whether a task whose counter now equals retries gets another attempt.
func (p RetryPolicy) ShouldRetry(retries int) bool {
	return retries <= p.MaxRetries
}

// Backoff returns 2^retries * BaseDelay.
func (p RetryPolicy) Backoff(retries int) time.Duration {
	if retries < 0 {
		retries = 0
	}
	return p.BaseDelay << uint(retries)
}

// MaxAttempts is the total number of delivery attempts a task can receive.
func (p RetryPolicy) MaxAttempts() int { return p.MaxRetries + 1 }

func (p RetryPolicy) orDefault() RetryPolicy {
	if p.BaseDelay <= 0 {
		return DefaultRetryPolicy()
	}
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	return p
}
