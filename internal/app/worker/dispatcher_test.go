package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
	"total_loc/internal/app/queue"
	"total_loc/internal/domain/model"
	"total_loc/internal/platform/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedExecutor blocks every job until release is closed, then completes it.
type gatedExecutor struct {
	q       *queue.JobQueue
	release chan struct{}

	mu      sync.Mutex
	started []string
}

func newGatedExecutor(q *queue.JobQueue) *gatedExecutor {
	return &gatedExecutor{q: q, release: make(chan struct{})}
}

func (e *gatedExecutor) Execute(ctx context.Context, job *model.LineCountJob) {
	e.mu.Lock()
	e.started = append(e.started, job.ID)
	e.mu.Unlock()

	select {
	case <-e.release:
		_ = e.q.CompleteRequest(job.ID, &model.JobResult{TotalLines: 1}, nil)
	case <-ctx.Done():
		_ = e.q.CompleteRequest(job.ID, nil, ctx.Err())
	}
}

func (e *gatedExecutor) Started() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.started...)
}

type executorFunc func(ctx context.Context, job *model.LineCountJob)

func (f executorFunc) Execute(ctx context.Context, job *model.LineCountJob) { f(ctx, job) }

func TestTick_PromotesUpToCeiling(t *testing.T) {
	q := queue.New(2)
	exec := newGatedExecutor(q)
	d := NewDispatcher(q, exec, time.Hour, logger.Discard())

	a := q.AddRequest(model.JobRequest{UserID: "a"})
	b := q.AddRequest(model.JobRequest{UserID: "b"})
	c := q.AddRequest(model.JobRequest{UserID: "c"})

	assert.Equal(t, 2, d.Tick())

	for _, id := range []string{a.ID, b.ID} {
		job, ok := q.GetRequest(id)
		require.True(t, ok)
		assert.Equal(t, model.JobStatusProcessing, job.Status)
		assert.Nil(t, job.PositionInQueue)
	}
	cJob, ok := q.GetRequest(c.ID)
	require.True(t, ok)
	assert.Equal(t, model.JobStatusQueued, cJob.Status)
	require.NotNil(t, cJob.PositionInQueue)
	assert.Equal(t, 0, *cJob.PositionInQueue)

	assert.Equal(t, 0, d.Tick(), "no capacity left")

	close(exec.release)
	require.NoError(t, d.Stop(context.Background()))
	assert.ElementsMatch(t, []string{a.ID, b.ID}, exec.Started())
}

func TestLoop_DrainsQueue(t *testing.T) {
	q := queue.New(2)
	exec := newGatedExecutor(q)
	close(exec.release)
	d := NewDispatcher(q, exec, 10*time.Millisecond, logger.Discard())

	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, q.AddRequest(model.JobRequest{UserID: "u"}).ID)
	}

	d.Start(context.Background())
	require.Eventually(t, func() bool {
		for _, id := range ids {
			job, _ := q.GetRequest(id)
			if job.Status != model.JobStatusCompleted {
				return false
			}
		}
		return true
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, d.Stop(context.Background()))
	assert.ElementsMatch(t, ids, exec.Started())
}

func TestLoop_NeverExceedsCeiling(t *testing.T) {
	const maxConcurrent = 2
	q := queue.New(maxConcurrent)

	var mu sync.Mutex
	running, peak := 0, 0
	exec := executorFunc(func(ctx context.Context, job *model.LineCountJob) {
		mu.Lock()
		running++
		if running > peak {
			peak = running
		}
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		running--
		mu.Unlock()
		_ = q.CompleteRequest(job.ID, &model.JobResult{}, nil)
	})
	d := NewDispatcher(q, exec, time.Millisecond, logger.Discard())

	for i := 0; i < 10; i++ {
		q.AddRequest(model.JobRequest{UserID: "u"})
	}
	d.Start(context.Background())
	require.Eventually(t, func() bool {
		s := q.Stats()
		return s.Queued == 0 && s.Processing == 0
	}, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, d.Stop(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, peak, maxConcurrent)
}

func TestLaunch_PanicIsRecordedAsFailure(t *testing.T) {
	q := queue.New(1)
	exec := executorFunc(func(ctx context.Context, job *model.LineCountJob) {
		panic("kaboom")
	})
	d := NewDispatcher(q, exec, time.Hour, logger.Discard())

	a := q.AddRequest(model.JobRequest{UserID: "a"})
	b := q.AddRequest(model.JobRequest{UserID: "b"})

	require.Equal(t, 1, d.Tick())
	require.Eventually(t, func() bool {
		job, _ := q.GetRequest(a.ID)
		return job.Status == model.JobStatusFailed
	}, time.Second, 5*time.Millisecond)

	job, _ := q.GetRequest(a.ID)
	require.NotNil(t, job.Error)
	assert.Contains(t, *job.Error, "kaboom")

	// The slot is free again and the next job gets promoted.
	assert.Equal(t, 1, d.Tick())
	require.Eventually(t, func() bool {
		job, _ := q.GetRequest(b.ID)
		return job.Status == model.JobStatusFailed
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, d.Stop(context.Background()))
}

func TestStop_CancelsJobsAfterDeadline(t *testing.T) {
	q := queue.New(1)
	exec := newGatedExecutor(q) // never released
	d := NewDispatcher(q, exec, time.Hour, logger.Discard())

	a := q.AddRequest(model.JobRequest{UserID: "a"})
	d.Start(context.Background())
	require.Eventually(t, func() bool { return len(exec.Started()) == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := d.Stop(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	// The cancelled job has already recorded its failure when Stop returns.
	job, _ := q.GetRequest(a.ID)
	assert.Equal(t, model.JobStatusFailed, job.Status)
	require.NotNil(t, job.Error)
	assert.Contains(t, *job.Error, "context canceled")
}

func TestStop_GraceIsBounded(t *testing.T) {
	q := queue.New(1)
	stuck := make(chan struct{})
	defer close(stuck)
	exec := executorFunc(func(ctx context.Context, job *model.LineCountJob) {
		<-stuck // ignores cancellation
	})
	d := NewDispatcher(q, exec, time.Hour, logger.Discard())
	d.grace = 20 * time.Millisecond

	q.AddRequest(model.JobRequest{UserID: "a"})
	require.Equal(t, 1, d.Tick())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := d.Stop(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), time.Second)
}

func TestStop_WithoutStart(t *testing.T) {
	q := queue.New(1)
	d := NewDispatcher(q, newGatedExecutor(q), time.Hour, logger.Discard())
	assert.NoError(t, d.Stop(context.Background()))
}
