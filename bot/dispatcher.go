// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chatdsj/chatdsj/lib/metrics"
)

const (
	// DefaultWorkers is the number of jobs run concurrently.
	DefaultWorkers = 4

	// DefaultEventTimeout bounds one job. A mention can wait out
	// several completion retries and Slack rate limits, so this is
	// generous.
	DefaultEventTimeout = 2 * time.Minute

	// queuePerWorker sizes the default queue.
	queuePerWorker = 16
)

// Job is one unit of work. ctx carries the per-job deadline.
type Job func(ctx context.Context)

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	// Workers is the number of concurrent jobs. Zero uses
	// DefaultWorkers.
	Workers int

	// QueueSize is the number of jobs that may wait for a worker.
	// Zero uses 16 per worker.
	QueueSize int

	// EventTimeout bounds each job. Zero uses DefaultEventTimeout.
	EventTimeout time.Duration

	// Metrics counts dropped jobs. Optional.
	Metrics *metrics.Registry

	// Logger receives drop and drain logs. Nil uses slog.Default().
	Logger *slog.Logger
}

// Dispatcher runs jobs on a fixed pool of workers. Submit never
// blocks: when every worker is busy and the queue is full the job is
// dropped. Shutdown stops intake and waits for queued and running jobs
// to finish.
type Dispatcher struct {
	jobs    chan namedJob
	workers int
	timeout time.Duration
	metrics *metrics.Registry
	logger  *slog.Logger

	mu      sync.Mutex
	started bool
	closed  bool
	cancel  context.CancelFunc

	// activeWorkers tracks worker goroutines for Shutdown.
	activeWorkers sync.WaitGroup
}

type namedJob struct {
	name string
	run  Job
}

// NewDispatcher creates a Dispatcher. Jobs submitted before Start wait
// in the queue.
func NewDispatcher(config DispatcherConfig) *Dispatcher {
	if config.Workers <= 0 {
		config.Workers = DefaultWorkers
	}
	if config.QueueSize <= 0 {
		config.QueueSize = config.Workers * queuePerWorker
	}
	if config.EventTimeout <= 0 {
		config.EventTimeout = DefaultEventTimeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Dispatcher{
		jobs:    make(chan namedJob, config.QueueSize),
		workers: config.Workers,
		timeout: config.EventTimeout,
		metrics: config.Metrics,
		logger:  config.Logger,
	}
}

// Start launches the workers. Every job's context derives from ctx, so
// cancelling ctx aborts running jobs; normal shutdown goes through
// Shutdown instead. Calling Start more than once has no effect.
func (dispatcher *Dispatcher) Start(ctx context.Context) {
	dispatcher.mu.Lock()
	defer dispatcher.mu.Unlock()
	if dispatcher.started {
		return
	}
	dispatcher.started = true

	ctx, dispatcher.cancel = context.WithCancel(ctx)
	for range dispatcher.workers {
		dispatcher.activeWorkers.Add(1)
		go func() {
			defer dispatcher.activeWorkers.Done()
			for job := range dispatcher.jobs {
				dispatcher.run(ctx, job)
			}
		}()
	}
}

func (dispatcher *Dispatcher) run(ctx context.Context, job namedJob) {
	jobCtx, cancel := context.WithTimeout(ctx, dispatcher.timeout)
	defer cancel()

	defer func() {
		if recovered := recover(); recovered != nil {
			dispatcher.metrics.CountError("dispatch_panic")
			dispatcher.logger.Error("job panicked",
				"job", job.name,
				"panic", recovered,
			)
		}
	}()
	job.run(jobCtx)

	if jobCtx.Err() == context.DeadlineExceeded {
		dispatcher.metrics.CountError("dispatch_timeout")
		dispatcher.logger.Warn("job exceeded its deadline",
			"job", job.name,
			"timeout", dispatcher.timeout,
		)
	}
}

// Submit queues job under name (used in logs). Returns false when the
// dispatcher is shutting down or the queue is full.
func (dispatcher *Dispatcher) Submit(name string, job Job) bool {
	dispatcher.mu.Lock()
	defer dispatcher.mu.Unlock()

	if dispatcher.closed {
		dispatcher.logger.Warn("dispatcher is shut down, dropping job", "job", name)
		return false
	}
	select {
	case dispatcher.jobs <- namedJob{name: name, run: job}:
		return true
	default:
		dispatcher.metrics.CountError("dispatch_dropped")
		dispatcher.logger.Warn("dispatch queue full, dropping job",
			"job", name,
			"queue_size", cap(dispatcher.jobs),
		)
		return false
	}
}

// Shutdown stops accepting jobs and waits for the queue to drain. If
// ctx ends first, running jobs are cancelled and ctx's error is
// returned without waiting further.
func (dispatcher *Dispatcher) Shutdown(ctx context.Context) error {
	dispatcher.mu.Lock()
	if !dispatcher.closed {
		dispatcher.closed = true
		close(dispatcher.jobs)
	}
	started := dispatcher.started
	cancel := dispatcher.cancel
	dispatcher.mu.Unlock()

	if !started {
		return nil
	}

	drained := make(chan struct{})
	go func() {
		dispatcher.activeWorkers.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		cancel()
		dispatcher.logger.Info("dispatcher drained")
		return nil
	case <-ctx.Done():
		cancel()
		return fmt.Errorf("bot: dispatcher drain: %w", ctx.Err())
	}
}

// Queued returns the number of jobs waiting for a worker.
func (dispatcher *Dispatcher) Queued() int {
	return len(dispatcher.jobs)
}
