package scheduler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSubmitAssignsTokenAndID(t *testing.T) {
	s := NewJobScheduler()
	id, tok := s.Submit(PriorityVisible, loadFileType("test.pdf"))
	require.False(t, tok.IsCancelled())

	got := s.CancellationTokenFor(id)
	require.Equal(t, tok, got)
}

func TestCancelJobCancelsExistingToken(t *testing.T) {
	s := NewJobScheduler()
	id, _ := s.Submit(PriorityVisible, loadFileType("test.pdf"))

	require.True(t, s.CancelJob(id))
	require.True(t, s.CancellationTokenFor(id).IsCancelled())
}

func TestCancelJobReportsMissingID(t *testing.T) {
	s := NewJobScheduler()
	require.False(t, s.CancelJob(999))
}

func TestCompleteJobReleasesToken(t *testing.T) {
	s := NewJobScheduler()
	id, _ := s.Submit(PriorityVisible, loadFileType("test.pdf"))
	s.CompleteJob(id)

	// A completed (unknown) job gets a fresh, never-cancelled token.
	require.False(t, s.CancellationTokenFor(id).IsCancelled())
}

func TestCancelAllRemovesMatchingQueuedJobs(t *testing.T) {
	s := NewJobScheduler()
	s.Submit(PriorityVisible, ocrType(0))
	s.Submit(PriorityVisible, ocrType(1))
	s.Submit(PriorityMargin, loadFileType("keep.pdf"))

	removed := s.CancelAll(func(j *Job) bool { return j.Type.Kind == KindRunOCR })
	require.Equal(t, 2, removed)
	require.Equal(t, 1, s.Len())
}

func TestPeekNextJobLeavesQueueIntact(t *testing.T) {
	s := NewJobScheduler()
	s.Submit(PriorityVisible, loadFileType("test.pdf"))

	peeked, ok := s.PeekNextJob()
	require.True(t, ok)
	require.Equal(t, KindLoadFile, peeked.Type.Kind)
	require.Equal(t, 1, s.Len())
}

func TestPendingJobsList(t *testing.T) {
	s := NewJobScheduler()
	s.Submit(PriorityVisible, loadFileType("a.pdf"))
	s.Submit(PriorityOcr, ocrType(0))

	require.Len(t, s.PendingJobsList(), 2)
}
