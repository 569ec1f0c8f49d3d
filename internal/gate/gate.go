package gate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// GlobalKey is the single key used when writers are not sharded.
const GlobalKey = "global"

// ErrTimeout is returned when the gate could not be acquired within the bounded wait.
// No state has changed when it is returned, so the whole operation may be retried.
var ErrTimeout = errors.New("gate: acquire timeout")

// Options control acquisition behavior.
type Options struct {
	Timeout     time.Duration
	Retries     int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	// OnWait observes how long an acquisition waited, successful or not.
	OnWait func(key string, waited time.Duration, acquired bool)
}

type entry struct {
	token chan struct{}
	refs  int
}

// Gate serializes writers per key. Held keys block other writers of the same key only.
type Gate struct {
	mu      sync.Mutex
	entries map[string]*entry
	opts    Options
}

func New(opts Options) *Gate {
	if opts.Timeout <= 0 {
		opts.Timeout = 3 * time.Second
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = time.Second
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 5 * time.Second
	}
	return &Gate{entries: make(map[string]*entry), opts: opts}
}

func (g *Gate) ref(key string) *entry {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.entries[key]
	if !ok {
		e = &entry{token: make(chan struct{}, 1)}
		g.entries[key] = e
	}
	e.refs++
	return e
}

func (g *Gate) unref(key string, e *entry) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(g.entries, key)
	}
}

// Acquire moves key from Free to Held. The returned release is idempotent and must be
// called on every exit path.
func (g *Gate) Acquire(ctx context.Context, key string) (func(), error) {
	var lastErr error
	for attempt := 0; attempt <= g.opts.Retries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, g.backoff(attempt)); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrTimeout, key, err)
			}
		}
		release, err := g.tryAcquire(ctx, key)
		if err == nil {
			return release, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (g *Gate) tryAcquire(ctx context.Context, key string) (func(), error) {
	e := g.ref(key)
	started := time.Now()

	timer := time.NewTimer(g.opts.Timeout)
	defer timer.Stop()

	select {
	case e.token <- struct{}{}:
		g.observe(key, time.Since(started), true)
		var once sync.Once
		return func() {
			once.Do(func() {
				<-e.token
				g.unref(key, e)
			})
		}, nil
	case <-timer.C:
		g.unref(key, e)
		g.observe(key, time.Since(started), false)
		return nil, fmt.Errorf("%w: %s after %s", ErrTimeout, key, g.opts.Timeout)
	case <-ctx.Done():
		g.unref(key, e)
		g.observe(key, time.Since(started), false)
		return nil, fmt.Errorf("%w: %s: %v", ErrTimeout, key, ctx.Err())
	}
}

// Do runs fn while holding key. The gate is released even if fn panics.
func (g *Gate) Do(ctx context.Context, key string, fn func() error) error {
	release, err := g.Acquire(ctx, key)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

// Held reports whether key is currently held. Intended for diagnostics and tests.
func (g *Gate) Held(key string) bool {
	g.mu.Lock()
	e, ok := g.entries[key]
	g.mu.Unlock()
	return ok && len(e.token) == 1
}

func (g *Gate) backoff(attempt int) time.Duration {
	d := g.opts.BaseBackoff << (attempt - 1)
	if d > g.opts.MaxBackoff || d <= 0 {
		d = g.opts.MaxBackoff
	}
	return d
}

func (g *Gate) observe(key string, waited time.Duration, acquired bool) {
	if g.opts.OnWait != nil {
		g.opts.OnWait(key, waited, acquired)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// KeyFunc maps a reservation date to a gate key.
type KeyFunc func(date string) string

// Global serializes every writer.
func Global(string) string { return GlobalKey }

// ByDate lets writers on different dates proceed in parallel.
func ByDate(date string) string { return "date:" + date }
