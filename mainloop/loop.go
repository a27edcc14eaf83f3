// Package mainloop provides the designated control thread that runs
// completion callbacks and dispatches fetches on behalf of resources.
package mainloop

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	pluginruntime "github.com/wippyai/plugin-runtime"
)

type loopKey struct{}

// OnLoop reports whether ctx was handed to a closure running on a loop.
// Blocking calls use it to refuse running on the control thread.
func OnLoop(ctx context.Context) bool {
	_, ok := ctx.Value(loopKey{}).(*Loop)
	return ok
}

// Loop runs posted closures one at a time, in order, on a single goroutine.
// It is safe to post from any goroutine, including the loop itself.
type Loop struct {
	log     *zap.Logger
	queue   []func(context.Context)
	wake    chan struct{}
	stopped chan struct{}
	cancel  context.CancelFunc
	mu      sync.Mutex
	running bool
	closed  bool
}

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the logger used for recovered panics.
func WithLogger(l *zap.Logger) Option {
	return func(lp *Loop) { lp.log = l }
}

// New creates a stopped loop.
func New(opts ...Option) *Loop {
	l := &Loop{
		wake: make(chan struct{}, 1), // intentional 1 buffer
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.log == nil {
		l.log = zap.NewNop()
	}
	return l
}

// Start runs the loop on a new goroutine. It does nothing if the loop is
// already running or has been stopped.
func (l *Loop) Start() {
	ctx, ok := l.begin(context.Background())
	if !ok {
		return
	}
	go l.run(ctx)
}

// Run runs the loop on the calling goroutine until ctx is done or Stop is
// called.
func (l *Loop) Run(ctx context.Context) {
	ctx, ok := l.begin(ctx)
	if !ok {
		return
	}
	l.run(ctx)
}

func (l *Loop) begin(parent context.Context) (context.Context, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running || l.closed {
		return nil, false
	}
	l.running = true
	l.stopped = make(chan struct{})
	ctx, cancel := context.WithCancel(context.WithValue(parent, loopKey{}, l))
	l.cancel = cancel
	return ctx, true
}

func (l *Loop) run(ctx context.Context) {
	defer close(l.stopped)
	for {
		select {
		case <-ctx.Done():
			l.mu.Lock()
			l.closed = true
			l.queue = nil
			l.mu.Unlock()
			return
		case <-l.wake:
		}

		for {
			l.mu.Lock()
			if len(l.queue) == 0 || ctx.Err() != nil {
				l.mu.Unlock()
				break
			}
			fn := l.queue[0]
			l.queue[0] = nil
			l.queue = l.queue[1:]
			l.mu.Unlock()

			l.call(ctx, fn)
		}
	}
}

func (l *Loop) call(ctx context.Context, fn func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("panic in loop closure", zap.Any("panic", r))
		}
	}()
	fn(ctx)
}

// Post queues fn to run on the loop. It returns false once the loop has
// been stopped. Closures posted before Start run once it starts.
func (l *Loop) Post(fn func(ctx context.Context)) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// CallOnMainThread runs cb with result on the loop after delay.
func (l *Loop) CallOnMainThread(delay time.Duration, cb pluginruntime.CompletionCallback, result pluginruntime.Result) {
	if !cb.IsSet() {
		return
	}
	post := func() {
		if !l.Post(func(context.Context) { cb.Run(result) }) {
			l.log.Debug("callback dropped after stop", zap.Stringer("result", result))
		}
	}
	if delay <= 0 {
		post()
		return
	}
	time.AfterFunc(delay, post)
}

// Stop stops the loop and waits for the running closure to return. Queued
// closures are discarded. It can be called multiple times, but not from a
// closure running on the loop.
func (l *Loop) Stop() {
	l.mu.Lock()
	if !l.running {
		l.closed = true
		l.mu.Unlock()
		return
	}
	cancel, stopped := l.cancel, l.stopped
	l.mu.Unlock()

	cancel()
	<-stopped
}
