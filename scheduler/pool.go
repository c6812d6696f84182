package scheduler

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vellumview/tilecore"
)

// Executor is the callback a WorkerPool or IOWorker invokes for each job
// it dequeues. Implementations should check token.IsCancelled()
// periodically during long work and return early if it flips true. A
// non-nil return is logged and the job is still marked complete; a
// failed job is never retried or panicked on.
type Executor func(job *Job, token CancellationToken) error

// PoolConfig configures a WorkerPool.
type PoolConfig struct {
	// NumWorkers is the number of goroutines pulling from the scheduler.
	// Zero or negative selects runtime.GOMAXPROCS(0).
	NumWorkers int
	// PollInterval is how long a worker sleeps after finding the queue
	// empty before checking again.
	PollInterval time.Duration
}

// DefaultPollInterval is the worker and IO-thread poll cadence used when
// no caller-supplied interval is configured.
const DefaultPollInterval = 100 * time.Millisecond

// DefaultPoolConfig returns a PoolConfig sized to the host's logical CPU
// count, polling every DefaultPollInterval.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{NumWorkers: runtime.GOMAXPROCS(0), PollInterval: DefaultPollInterval}
}

// WorkerPool is a fixed-size pool of goroutines that drain jobs from a
// JobScheduler's priority queue and execute them via an Executor
// callback. Workers pull from the single shared priority
// queue rather than per-worker queues: priority order across the whole
// system matters more than per-worker locality here.
type WorkerPool struct {
	scheduler *JobScheduler
	executor  Executor
	config    PoolConfig

	shutdown atomic.Bool
	wg       sync.WaitGroup
}

// NewWorkerPool creates and starts a worker pool pulling from scheduler.
func NewWorkerPool(scheduler *JobScheduler, executor Executor, config PoolConfig) *WorkerPool {
	if config.NumWorkers <= 0 {
		config.NumWorkers = runtime.GOMAXPROCS(0)
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}

	p := &WorkerPool{scheduler: scheduler, executor: executor, config: config}
	p.wg.Add(config.NumWorkers)
	for i := 0; i < config.NumWorkers; i++ {
		go p.run()
	}
	return p
}

// NumWorkers returns the number of worker goroutines.
func (p *WorkerPool) NumWorkers() int { return p.config.NumWorkers }

// IsShuttingDown reports whether Shutdown has been called.
func (p *WorkerPool) IsShuttingDown() bool { return p.shutdown.Load() }

func (p *WorkerPool) run() {
	defer p.wg.Done()
	for {
		if p.shutdown.Load() {
			return
		}

		job, ok := p.scheduler.NextJob()
		if !ok {
			time.Sleep(p.config.PollInterval)
			continue
		}

		token := p.scheduler.CancellationTokenFor(job.ID)
		if !token.IsCancelled() {
			if err := p.executor(job, token); err != nil {
				tilecore.Logger().Warn("job failed", "job_id", job.ID, "kind", job.Type.Kind, "err", err)
			}
		}
		p.scheduler.CompleteJob(job.ID)
	}
}

// Shutdown signals every worker to stop and blocks until they've all
// finished their current job and exited.
func (p *WorkerPool) Shutdown() {
	p.shutdown.Store(true)
	p.wg.Wait()
}

// ShutdownNoWait signals every worker to stop without waiting for them
// to exit.
func (p *WorkerPool) ShutdownNoWait() {
	p.shutdown.Store(true)
}
