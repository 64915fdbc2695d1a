package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"total_loc/internal/app/queue"
	"total_loc/internal/common"
	"total_loc/internal/domain/model"
	"total_loc/internal/domain/repository"
	"total_loc/internal/platform/metrics"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

const DefaultRepoConcurrency = 3

// Notifier is told about every job that reaches a terminal state with an
// e-mail address attached.
type Notifier interface {
	NotifyJobFinished(ctx context.Context, email string, job *model.LineCountJob) error
}

type SubmitRequest struct {
	UserID      string `json:"user_id"`
	AccessToken string `json:"access_token"`
	Email       string `json:"email,omitempty"`
}

type SubmitResponse struct {
	RequestID string        `json:"request_id"`
	Status    JobStatusView `json:"status"`
}

type LineCountService struct {
	queue           *queue.JobQueue
	clients         repository.RemoteClientFactory
	aggregator      *RepositoryAggregator
	notifier        Notifier // optional
	repoConcurrency int
	jobTimeout      time.Duration // 0 means no deadline
	log             *logrus.Entry
}

type LineCountServiceConfig struct {
	RepoConcurrency int
	JobTimeout      time.Duration
}

func NewLineCountService(
	q *queue.JobQueue,
	clients repository.RemoteClientFactory,
	aggregator *RepositoryAggregator,
	notifier Notifier,
	cfg LineCountServiceConfig,
	log *logrus.Entry,
) *LineCountService {
	if cfg.RepoConcurrency < 1 {
		cfg.RepoConcurrency = DefaultRepoConcurrency
	}
	return &LineCountService{
		queue:           q,
		clients:         clients,
		aggregator:      aggregator,
		notifier:        notifier,
		repoConcurrency: cfg.RepoConcurrency,
		jobTimeout:      cfg.JobTimeout,
		log:             log,
	}
}

// Submit validates the request and admits a job. It never waits on GitHub.
func (s *LineCountService) Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	req.AccessToken = strings.TrimSpace(req.AccessToken)
	req.Email = strings.TrimSpace(req.Email)

	if req.UserID == "" || req.AccessToken == "" {
		return nil, common.Errorf("user_id and access_token are required: %w", common.ErrValidation)
	}

	job := s.queue.AddRequest(model.JobRequest{
		UserID:      req.UserID,
		AccessToken: req.AccessToken,
		Email:       req.Email,
	})
	metrics.JobSubmitted()
	s.log.WithFields(logrus.Fields{"job_id": job.ID, "user_id": req.UserID}).Info("Line count job queued")

	return &SubmitResponse{
		RequestID: job.ID,
		Status:    ProjectStatus(job, s.queue.MaxConcurrent()),
	}, nil
}

// Status returns the current projection of a job.
func (s *LineCountService) Status(ctx context.Context, requestID string) (*JobStatusView, error) {
	job, ok := s.queue.GetRequest(requestID)
	if !ok {
		return nil, common.Errorf("request %s: %w", requestID, common.ErrNotFound)
	}
	view := ProjectStatus(job, s.queue.MaxConcurrent())
	return &view, nil
}

func (s *LineCountService) Health() queue.Stats {
	return s.queue.Stats()
}

// Execute runs one promoted job to a terminal state. Any failure is recorded
// on the job; nothing propagates to the caller.
func (s *LineCountService) Execute(ctx context.Context, job *model.LineCountJob) {
	log := s.log.WithFields(logrus.Fields{"job_id": job.ID, "user_id": job.Request.UserID})
	start := time.Now()

	if s.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.jobTimeout)
		defer cancel()
	}

	result, err := s.countUserLines(ctx, job.Request, log)
	status := model.JobStatusCompleted
	if err != nil {
		status = model.JobStatusFailed
		log.WithError(err).Error("Line count job failed")
		result = nil
	} else {
		log.WithFields(logrus.Fields{
			"total_lines":  result.TotalLines,
			"repositories": result.RepositoriesProcessed,
		}).Info("Line count job completed")
	}

	if cErr := s.queue.CompleteRequest(job.ID, result, err); cErr != nil {
		log.WithError(cErr).Error("Failed to record job completion")
		return
	}
	metrics.JobFinished(status.String(), time.Since(start))

	s.notify(job.ID, job.Request.Email, log)
}

// countUserLines lists the caller's repositories and aggregates the non-fork
// ones, at most repoConcurrency at a time.
func (s *LineCountService) countUserLines(ctx context.Context, req model.JobRequest, log *logrus.Entry) (*model.JobResult, error) {
	client := s.clients.ForToken(req.AccessToken)

	repos, err := client.ListOwnedRepositories(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing repositories: %w", err)
	}

	owned := repos[:0:0]
	for _, r := range repos {
		if !r.Fork {
			owned = append(owned, r)
		}
	}
	log.WithFields(logrus.Fields{"repositories": len(owned), "forks_skipped": len(repos) - len(owned)}).Info("Counting repositories")

	summaries := make([]model.RepositorySummary, len(owned))
	sem := semaphore.NewWeighted(int64(s.repoConcurrency))
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		panicErr error
	)
	for i, repo := range owned {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(logrus.Fields{"repository": repo.FullName, "panic": r}).Error("Repository count panicked")
					mu.Lock()
					if panicErr == nil {
						panicErr = fmt.Errorf("counting %s panicked: %v", repo.FullName, r)
					}
					mu.Unlock()
				}
			}()
			summaries[i] = s.aggregator.CountRepositoryLines(ctx, client, repo)
		}()
	}
	wg.Wait()

	if panicErr != nil {
		return nil, panicErr
	}
	// A deadline or shutdown mid-way leaves the totals incomplete.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("job interrupted: %w", err)
	}

	result := &model.JobResult{Repositories: make([]model.RepositorySummary, 0, len(summaries))}
	for _, summary := range summaries {
		result.Add(summary)
	}
	return result, nil
}

func (s *LineCountService) notify(jobID, email string, log *logrus.Entry) {
	if s.notifier == nil || email == "" {
		return
	}
	job, ok := s.queue.GetRequest(jobID)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.notifier.NotifyJobFinished(ctx, email, job); err != nil {
		log.WithError(err).Warn("Failed to send report e-mail")
	}
}
