package reminder

import "time"

type options struct {
	logger Logger
	now    func() time.Time
}

// Option configures a Producer.
type Option func(*options)

// WithLogger sets the logger used for scheduling events.
func WithLogger(l Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithClock overrides time.Now when computing the initial delay.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = orNoop(o.logger)
	return o
}
