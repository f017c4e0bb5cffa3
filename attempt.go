package reminder

import "context"

// Attempt describes the delivery attempt in progress. The consumer attaches
// it to the context handed to deliverers so transports can tag outgoing
// requests with it.
type Attempt struct {
	TaskID    string
	MessageID string
	// Number is 1 for the first attempt.
	Number int
}

type attemptKey struct{}

// WithAttempt returns a child context carrying a.
func WithAttempt(parent context.Context, a Attempt) context.Context {
	return context.WithValue(parent, attemptKey{}, a)
}

// AttemptFrom extracts the attempt from ctx if present.
func AttemptFrom(ctx context.Context) (Attempt, bool) {
	a, ok := ctx.Value(attemptKey{}).(Attempt)
	return a, ok
}
