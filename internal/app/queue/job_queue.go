// Package queue holds the in-memory admission queue for line count jobs.
//
// Every state change goes through one of AddRequest, GetNextRequest or
// CompleteRequest, each of which runs entirely under the queue mutex. No I/O
// happens while the mutex is held.
package queue

import (
	"fmt"
	"sync"
	"time"
	"total_loc/internal/common"
	"total_loc/internal/domain/model"

	"github.com/google/uuid"
)

const (
	DefaultMaxConcurrent    = 2
	DefaultCleanupThreshold = 1000
	DefaultRetention        = 24 * time.Hour
)

type JobQueue struct {
	mu sync.Mutex

	// waitLine is admission order. An id may linger here after its job left
	// QUEUED; GetNextRequest discards such entries as it pops them.
	waitLine []string
	jobs     map[string]*model.LineCountJob

	processingCount int
	maxConcurrent   int

	cleanupThreshold int
	retention        time.Duration

	now         func() time.Time
	newID       func() string
	lastCreated time.Time
}

type Option func(*JobQueue)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(q *JobQueue) { q.now = now }
}

func WithCleanupThreshold(n int) Option {
	return func(q *JobQueue) {
		if n > 0 {
			q.cleanupThreshold = n
		}
	}
}

func WithRetention(d time.Duration) Option {
	return func(q *JobQueue) {
		if d > 0 {
			q.retention = d
		}
	}
}

func New(maxConcurrent int, opts ...Option) *JobQueue {
	if maxConcurrent < 1 {
		maxConcurrent = DefaultMaxConcurrent
	}
	q := &JobQueue{
		jobs:             make(map[string]*model.LineCountJob),
		maxConcurrent:    maxConcurrent,
		cleanupThreshold: DefaultCleanupThreshold,
		retention:        DefaultRetention,
		now:              time.Now,
		newID:            uuid.NewString,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *JobQueue) MaxConcurrent() int {
	return q.maxConcurrent
}

// AddRequest admits a new job in QUEUED state and returns a snapshot of it.
func (q *JobQueue) AddRequest(req model.JobRequest) *model.LineCountJob {
	q.mu.Lock()
	defer q.mu.Unlock()

	createdAt := q.now()
	if !createdAt.After(q.lastCreated) {
		createdAt = q.lastCreated.Add(time.Nanosecond)
	}
	q.lastCreated = createdAt

	position := q.queuedCountLocked()
	job := &model.LineCountJob{
		ID:              q.newID(),
		Status:          model.JobStatusQueued,
		Request:         req,
		CreatedAt:       createdAt,
		PositionInQueue: &position,
	}

	q.waitLine = append(q.waitLine, job.ID)
	q.jobs[job.ID] = job

	return job.Clone()
}

// GetRequest returns a snapshot of the job, or false if the id is unknown or
// was already swept.
func (q *JobQueue) GetRequest(id string) (*model.LineCountJob, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[id]
	if !ok {
		return nil, false
	}
	return job.Clone(), true
}

// GetNextRequest promotes the oldest still-QUEUED job to PROCESSING. Stale
// ids at the front of the wait line are dropped on the way. It returns false
// when nothing is queued or the concurrency ceiling is already reached.
func (q *JobQueue) GetNextRequest() (*model.LineCountJob, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.processingCount >= q.maxConcurrent {
		return nil, false
	}

	for len(q.waitLine) > 0 {
		id := q.waitLine[0]
		q.waitLine[0] = ""
		q.waitLine = q.waitLine[1:]

		job, ok := q.jobs[id]
		if !ok || job.Status != model.JobStatusQueued {
			continue
		}

		startedAt := q.now()
		q.processingCount++
		job.Status = model.JobStatusProcessing
		job.StartedAt = &startedAt
		job.PositionInQueue = nil
		q.reindexLocked()

		return job.Clone(), true
	}

	// Let the backing array go once the line drains.
	q.waitLine = nil
	return nil, false
}

// CompleteRequest moves a PROCESSING job to COMPLETED when result is non-nil,
// otherwise to FAILED with jobErr's message.
func (q *JobQueue) CompleteRequest(id string, result *model.JobResult, jobErr error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[id]
	if !ok {
		return fmt.Errorf("job %s: %w", id, common.ErrNotFound)
	}
	if job.Status != model.JobStatusProcessing {
		return fmt.Errorf("job %s is %s, not %s: %w", id, job.Status, model.JobStatusProcessing, common.ErrInvalidTransition)
	}

	completedAt := q.now()
	job.CompletedAt = &completedAt
	if result != nil {
		job.Status = model.JobStatusCompleted
		job.Result = result.Clone()
	} else {
		msg := "job finished without a result"
		if jobErr != nil {
			msg = jobErr.Error()
		}
		job.Status = model.JobStatusFailed
		job.Error = &msg
	}
	q.processingCount--

	if len(q.jobs) > q.cleanupThreshold {
		q.sweepLocked(completedAt)
	}
	return nil
}

// CanProcessNext reports whether another job may be promoted.
func (q *JobQueue) CanProcessNext() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.processingCount < q.maxConcurrent
}

type Stats struct {
	Queued        int `json:"queue_length"`
	Processing    int `json:"processing"`
	Total         int `json:"total_jobs"`
	MaxConcurrent int `json:"max_concurrent"`
}

func (q *JobQueue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Queued:        q.queuedCountLocked(),
		Processing:    q.processingCount,
		Total:         len(q.jobs),
		MaxConcurrent: q.maxConcurrent,
	}
}

func (q *JobQueue) queuedCountLocked() int {
	n := 0
	for _, id := range q.waitLine {
		if job, ok := q.jobs[id]; ok && job.Status == model.JobStatusQueued {
			n++
		}
	}
	return n
}

// reindexLocked recomputes 0-based positions of queued jobs in FIFO order.
func (q *JobQueue) reindexLocked() {
	position := 0
	for _, id := range q.waitLine {
		job, ok := q.jobs[id]
		if !ok || job.Status != model.JobStatusQueued {
			continue
		}
		p := position
		job.PositionInQueue = &p
		position++
	}
}

// sweepLocked drops terminal jobs that finished more than retention ago.
func (q *JobQueue) sweepLocked(now time.Time) {
	removed := false
	for id, job := range q.jobs {
		if !job.Status.IsTerminal() || job.CompletedAt == nil {
			continue
		}
		if now.Sub(*job.CompletedAt) > q.retention {
			delete(q.jobs, id)
			removed = true
		}
	}
	if !removed {
		return
	}

	kept := q.waitLine[:0]
	for _, id := range q.waitLine {
		if _, ok := q.jobs[id]; ok {
			kept = append(kept, id)
		}
	}
	q.waitLine = kept
}
