package service

import (
	"time"
	"total_loc/internal/domain/model"
)

// MinutesPerScan is the rough cost of one job used for wait estimates.
const MinutesPerScan = 5

// JobStatusView is the caller-facing rendering of a job.
type JobStatusView struct {
	RequestID            string           `json:"request_id"`
	Status               string           `json:"status"`
	CreatedAt            time.Time        `json:"created_at"`
	StartedAt            *time.Time       `json:"started_at"`
	CompletedAt          *time.Time       `json:"completed_at"`
	Result               *model.JobResult `json:"result"`
	Error                *string          `json:"error"`
	PositionInQueue      *int             `json:"position_in_queue"`
	EstimatedWaitMinutes *int             `json:"estimated_wait_minutes,omitempty"`
}

// ProjectStatus renders job without touching it. The wait estimate is only
// present for queued jobs that have a position.
func ProjectStatus(job *model.LineCountJob, maxConcurrent int) JobStatusView {
	view := JobStatusView{
		RequestID:       job.ID,
		Status:          job.Status.String(),
		CreatedAt:       job.CreatedAt,
		StartedAt:       job.StartedAt,
		CompletedAt:     job.CompletedAt,
		Result:          job.Result,
		Error:           job.Error,
		PositionInQueue: job.PositionInQueue,
	}

	if job.Status == model.JobStatusQueued && job.PositionInQueue != nil {
		if maxConcurrent < 1 {
			maxConcurrent = 1
		}
		wait := (*job.PositionInQueue/maxConcurrent + 1) * MinutesPerScan
		view.EstimatedWaitMinutes = &wait
	}
	return view
}
