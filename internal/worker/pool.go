package worker

import (
	"context"
	"sync"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

// Pool runs jobs on a fixed number of workers
type Pool struct {
	workers int
}

// NewPool creates a pool with the specified number of workers
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{workers: workers}
}

// Workers returns the pool size
func (p *Pool) Workers() int {
	return p.workers
}

type indexedJob struct {
	index int
	job   Job
}

// Run executes jobs and returns their results in job order. Jobs not yet
// started when ctx is cancelled get a nil result.
func (p *Pool) Run(ctx context.Context, jobs []Job) []Result {
	results := make([]Result, len(jobs))
	if len(jobs) == 0 {
		return results
	}

	queue := make(chan indexedJob)
	var wg sync.WaitGroup

	workers := p.workers
	if workers > len(jobs) {
		workers = len(jobs)
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ij := range queue {
				// Each index is written by exactly one worker
				results[ij.index] = ij.job.Execute(ctx)
			}
		}()
	}

feed:
	for i, job := range jobs {
		select {
		case <-ctx.Done():
			break feed
		case queue <- indexedJob{index: i, job: job}:
		}
	}
	close(queue)
	wg.Wait()

	return results
}
