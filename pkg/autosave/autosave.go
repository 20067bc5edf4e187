// Package autosave debounces document edits into persistence calls.
//
// Every Schedule call replaces the pending snapshot and restarts the timer, so
// a burst of edits produces one save, fired interval after the last edit, with
// the last edit's content.
package autosave

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const DefaultInterval = 5 * time.Second

// Snapshot is the document state handed to the save callback.
type Snapshot struct {
	Elements []json.RawMessage
	AppState map[string]json.RawMessage
	Files    map[string]json.RawMessage
}

type SaveFunc func(ctx context.Context, s Snapshot) error

type timer interface {
	Stop() bool
}

type afterFunc func(d time.Duration, f func()) timer

func realAfterFunc(d time.Duration, f func()) timer {
	return time.AfterFunc(d, f)
}

type Controller struct {
	mu       sync.Mutex
	save     SaveFunc
	interval time.Duration
	after    afterFunc
	ctx      context.Context
	logger   *logrus.Logger
	onError  func(error)

	timer   timer
	pending *Snapshot
	gen     uint64
	closed  bool
}

type Option func(*Controller)

func WithInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithErrorHandler receives save failures. It is called from the timer
// goroutine.
func WithErrorHandler(fn func(error)) Option {
	return func(c *Controller) { c.onError = fn }
}

func WithLogger(l *logrus.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithContext sets the context passed to every save.
func WithContext(ctx context.Context) Option {
	return func(c *Controller) {
		if ctx != nil {
			c.ctx = ctx
		}
	}
}

func withAfterFunc(fn afterFunc) Option {
	return func(c *Controller) { c.after = fn }
}

func New(save SaveFunc, opts ...Option) *Controller {
	c := &Controller{
		save:     save,
		interval: DefaultInterval,
		after:    realAfterFunc,
		ctx:      context.Background(),
		logger:   logrus.StandardLogger(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Schedule records the latest document state and restarts the countdown.
// It never blocks on and never reports save failures.
func (c *Controller) Schedule(elements []json.RawMessage, appState, files map[string]json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.gen++
	c.pending = &Snapshot{Elements: elements, AppState: appState, Files: files}
	gen := c.gen
	c.timer = c.after(c.interval, func() { c.fire(gen) })
}

// Pending reports whether a save is waiting for its timer.
func (c *Controller) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending != nil
}

// Flush saves the pending snapshot now, if there is one.
func (c *Controller) Flush() error {
	snap, ok := c.take()
	if !ok {
		return nil
	}
	return c.run(snap)
}

// Close cancels any pending save. Nothing is saved after Close returns.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.gen++
	c.pending = nil
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) take() (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return Snapshot{}, false
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
	snap := *c.pending
	c.pending = nil
	return snap, true
}

func (c *Controller) fire(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.gen || c.pending == nil {
		c.mu.Unlock()
		return
	}
	snap := *c.pending
	c.pending = nil
	c.timer = nil
	c.mu.Unlock()

	_ = c.run(snap)
}

func (c *Controller) run(snap Snapshot) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("autosave: save panicked: %v", r)
		}
		if err != nil {
			c.logger.WithError(err).WithField("elements", len(snap.Elements)).Warn("autosave failed")
			if c.onError != nil {
				c.onError(err)
			}
		}
	}()
	return c.save(c.ctx, snap)
}
