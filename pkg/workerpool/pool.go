// Package workerpool runs independent jobs with bounded parallelism.
package workerpool

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Config configures the pool.
type Config struct {
	MaxConcurrent int // default: 4
}

// DefaultConfig returns a pool of four workers.
func DefaultConfig() Config {
	return Config{MaxConcurrent: 4}
}

// Pool bounds how many jobs run at once with a semaphore.
type Pool struct {
	config Config
	logger *zap.Logger
}

// New creates a pool.
func New(config Config, logger *zap.Logger) *Pool {
	if config.MaxConcurrent < 1 {
		config.MaxConcurrent = DefaultConfig().MaxConcurrent
	}
	return &Pool{
		config: config,
		logger: logger.Named("worker-pool"),
	}
}

// MaxConcurrent returns the configured parallelism.
func (p *Pool) MaxConcurrent() int { return p.config.MaxConcurrent }

// Job is one unit of work.
type Job[T any] struct {
	ID      string
	Execute func(ctx context.Context) (T, error)
}

// Result is the outcome of one job.
type Result[T any] struct {
	ID    string
	Value T
	Err   error
}

// Process runs every job and returns results in submission order. A failing job does not
// stop the others; jobs still waiting for a slot when ctx is cancelled report ctx.Err().
func Process[T any](ctx context.Context, pool *Pool, jobs []Job[T], onProgress func(completed, total int)) []Result[T] {
	if len(jobs) == 0 {
		return nil
	}

	results := make([]Result[T], len(jobs))
	done := make(chan int, len(jobs))
	sem := make(chan struct{}, pool.config.MaxConcurrent)
	var wg sync.WaitGroup

	for i, job := range jobs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { done <- i }()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = Result[T]{ID: job.ID, Err: ctx.Err()}
				return
			}

			value, err := job.Execute(ctx)
			if err != nil {
				pool.logger.Debug("Job failed", zap.String("job_id", job.ID), zap.Error(err))
			}
			results[i] = Result[T]{ID: job.ID, Value: value, Err: err}
		}()
	}

	go func() {
		wg.Wait()
		close(done)
	}()

	completed := 0
	for range done {
		completed++
		if onProgress != nil {
			onProgress(completed, len(jobs))
		}
	}
	return results
}
