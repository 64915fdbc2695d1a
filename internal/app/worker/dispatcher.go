package worker

import (
	"context"
	"fmt"
	"sync"
	"time"
	"total_loc/internal/app/queue"
	"total_loc/internal/domain/model"
	"total_loc/internal/platform/metrics"

	"github.com/sirupsen/logrus"
)

const (
	DefaultDispatchInterval = time.Second

	// DefaultCancelGrace bounds how long Stop waits for cancelled jobs to
	// record their failure.
	DefaultCancelGrace = 5 * time.Second
)

// Executor runs one promoted job. It must call JobQueue.CompleteRequest
// exactly once before returning.
type Executor interface {
	Execute(ctx context.Context, job *model.LineCountJob)
}

// Dispatcher promotes queued jobs while capacity allows and runs each on its
// own goroutine. It never waits on a job from inside the loop.
type Dispatcher struct {
	queue    *queue.JobQueue
	executor Executor
	interval time.Duration
	grace    time.Duration
	log      *logrus.Entry

	mu         sync.Mutex
	cancelLoop context.CancelFunc
	loopDone   chan struct{}

	// Jobs run under their own context so stopping the loop lets them drain.
	jobsCtx    context.Context
	cancelJobs context.CancelFunc
	jobs       sync.WaitGroup
}

func NewDispatcher(q *queue.JobQueue, executor Executor, interval time.Duration, log *logrus.Entry) *Dispatcher {
	if interval <= 0 {
		interval = DefaultDispatchInterval
	}
	jobsCtx, cancelJobs := context.WithCancel(context.Background())
	return &Dispatcher{
		queue:      q,
		executor:   executor,
		interval:   interval,
		grace:      DefaultCancelGrace,
		log:        log,
		jobsCtx:    jobsCtx,
		cancelJobs: cancelJobs,
	}
}

// Start launches the scheduling loop. It returns immediately; use Stop to
// shut it down.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.loopDone != nil {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	d.cancelLoop = cancel
	d.loopDone = make(chan struct{})

	go d.run(loopCtx, d.loopDone)
	d.log.WithField("interval", d.interval.String()).Info("Dispatcher started")
}

func (d *Dispatcher) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			d.log.Info("Dispatcher loop stopping...")
			return
		case <-timer.C:
			d.Tick()
			timer.Reset(d.interval)
		}
	}
}

// Tick promotes and launches jobs until the queue is empty or the
// concurrency ceiling is reached. It returns how many jobs it launched.
func (d *Dispatcher) Tick() int {
	launched := 0
	for d.queue.CanProcessNext() {
		job, ok := d.queue.GetNextRequest()
		if !ok {
			break
		}
		d.launch(job)
		launched++
	}

	stats := d.queue.Stats()
	metrics.ObserveQueue(stats.Queued, stats.Processing)
	return launched
}

func (d *Dispatcher) launch(job *model.LineCountJob) {
	d.jobs.Add(1)
	log := d.log.WithField("job_id", job.ID)
	log.Info("Job promoted")

	go func() {
		defer d.jobs.Done()
		defer func() {
			if r := recover(); r != nil {
				log.WithField("panic", r).Error("Job panicked")
				err := d.queue.CompleteRequest(job.ID, nil, fmt.Errorf("job panicked: %v", r))
				if err != nil {
					// Already terminal; the panic came after completion.
					log.WithError(err).Warn("Could not record panic on job")
				}
			}
		}()
		d.executor.Execute(d.jobsCtx, job)
	}()
}

// Stop cancels the loop and waits for it to exit, then waits for running
// jobs until ctx expires. Jobs still running at that point have their
// context cancelled and get up to the cancel grace period to record their
// failure; ctx's error is returned.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	cancel, done := d.cancelLoop, d.loopDone
	d.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	drained := make(chan struct{})
	go func() {
		d.jobs.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		d.cancelJobs()
		d.log.Info("Dispatcher stopped, all jobs drained")
		return nil
	case <-ctx.Done():
		d.cancelJobs()
		d.log.WithError(ctx.Err()).Warn("Shutdown deadline reached, cancelling running jobs")
	}

	select {
	case <-drained:
		d.log.Info("Dispatcher stopped, cancelled jobs recorded as failed")
	case <-time.After(d.grace):
		d.log.Error("Cancelled jobs did not finish within the grace period")
	}
	return ctx.Err()
}
