package runtime

import (
	"context"
	"runtime/debug"
	"sync"
	"time"
)

// Logger is a minimal logging interface used internally by the runtime.
// It mirrors the public logger in the root package to avoid an import cycle.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debugf(string, ...any) {}
func (noopLogger) Infof(string, ...any)  {}
func (noopLogger) Warnf(string, ...any)  {}
func (noopLogger) Errorf(string, ...any) {}

type Config struct {
	// Concurrency is the number of worker goroutines.
	Concurrency int
	// ErrorBackoff is how long a worker waits after a failed pull.
	ErrorBackoff time.Duration
	Logger       Logger
}

// Puller blocks until an item is available or ctx is done.
type Puller[T any] func(ctx context.Context) (T, error)

// Handler processes one item. Its context is not cancelled by Stop, so
// in-flight items run to completion.
type Handler[T any] func(ctx context.Context, item T)

// Runtime runs Concurrency workers, each pulling and handling one item at a time.
type Runtime[T any] struct {
	cfg     Config
	pull    Puller[T]
	handle  Handler[T]
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
	ctx     context.Context
	cancel  context.CancelFunc
	log     Logger
}

// New creates a runtime. It does nothing until Start.
func New[T any](cfg Config, pull Puller[T], handle Handler[T]) *Runtime[T] {
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = time.Second
	}
	lg := cfg.Logger
	if lg == nil {
		lg = noopLogger{}
	}
	return &Runtime[T]{cfg: cfg, pull: pull, handle: handle, log: lg}
}

// Start launches the workers. It is idempotent and non-blocking.
func (rt *Runtime[T]) Start() {
	rt.mu.Lock()
	if rt.started {
		rt.log.Warnf("runtime already started; ignoring Start()")
		rt.mu.Unlock()
		return
	}
	rt.started = true
	rt.ctx, rt.cancel = context.WithCancel(context.Background())
	ctx := rt.ctx
	rt.mu.Unlock()
	rt.log.Infof("runtime starting: concurrency=%d", rt.cfg.Concurrency)

	for i := 0; i < rt.cfg.Concurrency; i++ {
		rt.wg.Add(1)
		go func(id int) {
			defer rt.wg.Done()
			rt.workerLoop(ctx, id)
		}(i)
	}
}

// Stop cancels pulling and waits for in-flight items to finish.
func (rt *Runtime[T]) Stop() {
	rt.mu.Lock()
	if !rt.started {
		rt.log.Warnf("runtime not started; ignoring Stop()")
		rt.mu.Unlock()
		return
	}
	rt.started = false
	cancel := rt.cancel
	rt.mu.Unlock()
	rt.log.Infof("runtime stopping")

	cancel()
	rt.wg.Wait()
}

// Running reports whether Start was called without a matching Stop.
func (rt *Runtime[T]) Running() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.started
}

func (rt *Runtime[T]) workerLoop(ctx context.Context, id int) {
	handleCtx := context.WithoutCancel(ctx)
	for {
		if ctx.Err() != nil {
			return
		}
		item, err := rt.pull(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			rt.log.Warnf("pull failed: worker=%d err=%v", id, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(rt.cfg.ErrorBackoff):
			}
			continue
		}
		rt.safeHandle(handleCtx, id, item)
	}
}

func (rt *Runtime[T]) safeHandle(ctx context.Context, id int, item T) {
	defer func() {
		if r := recover(); r != nil {
			rt.log.Errorf("handler panic: worker=%d panic=%v\n%s", id, r, debug.Stack())
		}
	}()
	rt.handle(ctx, item)
}
