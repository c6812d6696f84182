package scheduler

import "sync"

// JobScheduler pairs a PriorityQueue with per-job CancellationTokens:
// the shared state a WorkerPool and IOWorker both pull from.
type JobScheduler struct {
	queue *PriorityQueue

	mu     sync.Mutex
	tokens map[ID]CancellationToken
}

// NewJobScheduler creates an empty scheduler.
func NewJobScheduler() *JobScheduler {
	return &JobScheduler{
		queue:  NewPriorityQueue(),
		tokens: make(map[ID]CancellationToken),
	}
}

// Submit enqueues a job and returns its ID and cancellation token.
func (s *JobScheduler) Submit(priority Priority, jobType Type) (ID, CancellationToken) {
	id := s.queue.Push(priority, jobType)
	tok := NewCancellationToken()
	s.mu.Lock()
	s.tokens[id] = tok
	s.mu.Unlock()
	return id, tok
}

// NextJob pops the highest-priority job, or (nil, false) if none is
// queued.
func (s *JobScheduler) NextJob() (*Job, bool) {
	return s.queue.Pop()
}

// PeekNextJob returns the highest-priority job without dequeuing it.
// The IO thread uses this to check whether the head of the queue is an
// IO job before committing to dequeue it.
func (s *JobScheduler) PeekNextJob() (*Job, bool) {
	return s.queue.Peek()
}

// Requeue pushes job back onto the queue with its original ID, Priority
// and insertion order intact. Its cancellation token is left untouched,
// since the job is still outstanding, not completed.
func (s *JobScheduler) Requeue(job *Job) {
	s.queue.PushBack(job)
}

// CancellationTokenFor returns the token associated with id, or a fresh
// never-cancelled token if id is unknown (already completed or never
// submitted).
func (s *JobScheduler) CancellationTokenFor(id ID) CancellationToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok, ok := s.tokens[id]; ok {
		return tok
	}
	return NewCancellationToken()
}

// CompleteJob releases the bookkeeping for a finished job.
func (s *JobScheduler) CompleteJob(id ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, id)
}

// CancelJob cancels a single in-flight or queued job by ID, returning
// whether a token was found.
func (s *JobScheduler) CancelJob(id ID) bool {
	s.mu.Lock()
	tok, ok := s.tokens[id]
	s.mu.Unlock()
	if !ok {
		return false
	}
	tok.Cancel()
	return true
}

// CancelAll removes every queued job matching predicate and cancels its
// token, returning how many were affected. Jobs already dequeued and
// running are unaffected by the queue removal but keep their own
// cancellation token, which a caller can cancel separately via CancelJob.
func (s *JobScheduler) CancelAll(predicate func(*Job) bool) int {
	var ids []ID
	removed := s.queue.RemoveIf(func(j *Job) bool {
		if predicate(j) {
			ids = append(ids, j.ID)
			return true
		}
		return false
	})
	s.mu.Lock()
	for _, id := range ids {
		if tok, ok := s.tokens[id]; ok {
			tok.Cancel()
		}
	}
	s.mu.Unlock()
	return removed
}

// PendingJobsList returns a snapshot of every job still queued.
func (s *JobScheduler) PendingJobsList() []*Job {
	return s.queue.Jobs()
}

// Len returns the number of jobs currently queued.
func (s *JobScheduler) Len() int { return s.queue.Len() }
