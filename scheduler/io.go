package scheduler

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/vellumview/tilecore"
)

// IOWorker is a single dedicated goroutine for KindLoadFile jobs,
// separate from the render WorkerPool so a slow disk read never blocks
// CPU-bound tile rendering. It only ever dequeues a job when
// the head of the priority queue is a LoadFile job; any other job at the
// head is left for the render pool to handle.
type IOWorker struct {
	scheduler *JobScheduler
	executor  Executor
	interval  time.Duration

	shutdown atomic.Bool
	wg       sync.WaitGroup
}

// NewIOWorker creates and starts the IO worker.
func NewIOWorker(scheduler *JobScheduler, executor Executor, pollInterval time.Duration) *IOWorker {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	w := &IOWorker{scheduler: scheduler, executor: executor, interval: pollInterval}
	w.wg.Add(1)
	go w.run()
	return w
}

// IsShuttingDown reports whether Shutdown has been called.
func (w *IOWorker) IsShuttingDown() bool { return w.shutdown.Load() }

func (w *IOWorker) run() {
	defer w.wg.Done()
	for {
		if w.shutdown.Load() {
			return
		}

		job, ok := w.scheduler.PeekNextJob()
		if !ok || job.Type.Kind != KindLoadFile {
			time.Sleep(w.interval)
			continue
		}

		job, ok = w.scheduler.NextJob()
		if !ok {
			// The job was dequeued by a render worker between our peek
			// and our pop; nothing to do this tick.
			continue
		}
		if job.Type.Kind != KindLoadFile {
			// A render worker popped the LoadFile job we peeked and pushed
			// a different job to the head in the gap before our own pop;
			// put it back exactly where it was and let the render pool
			// pick it up on its own next poll.
			w.scheduler.Requeue(job)
			continue
		}

		token := w.scheduler.CancellationTokenFor(job.ID)
		if !token.IsCancelled() {
			if err := w.executor(job, token); err != nil {
				tilecore.Logger().Warn("job failed", "job_id", job.ID, "kind", job.Type.Kind, "err", err)
			}
		}
		w.scheduler.CompleteJob(job.ID)
	}
}

// Shutdown signals the IO worker to stop and blocks until it exits.
func (w *IOWorker) Shutdown() {
	w.shutdown.Store(true)
	w.wg.Wait()
}
