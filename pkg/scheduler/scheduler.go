// Package scheduler paces a resumable computation. Both policies call the
// same Resume contract: Blocking in a tight loop, Interval once per period
// from a single driver goroutine.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// Resumable is anything that advances one suspension per Resume call.
type Resumable[S any] interface {
	Resume() (S, bool)
	Running() bool
}

// Policy drives r until it stops running or ctx is done.
type Policy[S any] interface {
	Drive(ctx context.Context, r Resumable[S]) *Completion
}

// Blocking resumes synchronously until the computation finishes. The
// returned completion is already settled.
type Blocking[S any] struct {
	// Observe, when set, sees every suspension in order.
	Observe func(S)
	Logger  *slog.Logger
}

func (b Blocking[S]) Drive(ctx context.Context, r Resumable[S]) *Completion {
	c := NewCompletion()
	logger := loggerOrDiscard(b.Logger)
	for r.Running() {
		if err := ctx.Err(); err != nil {
			c.Cancel(err)
			return c
		}
		if err := step(c, r, b.Observe); err != nil {
			logger.Error("resume failed", "resumes", c.Resumes(), "error", err)
			c.Fail(err)
			return c
		}
	}
	logger.Debug("blocking run finished", "resumes", c.Resumes())
	c.Resolve()
	return c
}

// Interval issues the first resume immediately and then one per elapsed
// Period. Resumes are serialized on one goroutine; cancelling ctx stops the
// ticks and leaves the computation at its last suspension.
type Interval[S any] struct {
	Period  time.Duration
	Observe func(S)
	Logger  *slog.Logger
}

func (iv Interval[S]) Drive(ctx context.Context, r Resumable[S]) *Completion {
	c := NewCompletion()
	if iv.Period <= 0 {
		c.Fail(errors.Errorf("interval period must be positive, got %s", iv.Period))
		return c
	}
	logger := loggerOrDiscard(iv.Logger)
	limiter := rate.NewLimiter(rate.Every(iv.Period), 1)
	go func() {
		for r.Running() {
			if err := limiter.Wait(ctx); err != nil {
				logger.Debug("interval cancelled", "resumes", c.Resumes(), "error", err)
				c.Cancel(err)
				return
			}
			if err := step(c, r, iv.Observe); err != nil {
				logger.Error("resume failed", "resumes", c.Resumes(), "error", err)
				c.Fail(err)
				return
			}
			logger.Debug("tick", "resumes", c.Resumes(), "period", iv.Period)
		}
		c.Resolve()
	}()
	return c
}

func step[S any](c *Completion, r Resumable[S], observe func(S)) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	s, ok := r.Resume()
	c.tick()
	if ok && observe != nil {
		observe(s)
	}
	return nil
}

func loggerOrDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}
