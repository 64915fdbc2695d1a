package model

import "time"

type JobStatus string

const (
	JobStatusQueued     JobStatus = "QUEUED"
	JobStatusProcessing JobStatus = "PROCESSING" // Promoted by the dispatcher, job body running
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// IsTerminal reports whether no further transitions can happen.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

func (s JobStatus) String() string {
	return string(s)
}

// JobRequest is what a caller submitted. It stays with the job so the executor
// can reach GitHub on the caller's behalf; it is never rendered back.
type JobRequest struct {
	UserID      string `json:"user_id"`
	AccessToken string `json:"-"`
	Email       string `json:"email,omitempty"` // Report is mailed here when set
}

type LineCountJob struct {
	ID              string     `json:"id"`
	Status          JobStatus  `json:"status"`
	Request         JobRequest `json:"-"`
	CreatedAt       time.Time  `json:"created_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	Result          *JobResult `json:"result,omitempty"`            // Only when COMPLETED
	Error           *string    `json:"error,omitempty"`             // Only when FAILED
	PositionInQueue *int       `json:"position_in_queue,omitempty"` // Only while QUEUED
}

// Clone returns a deep copy of j.
func (j *LineCountJob) Clone() *LineCountJob {
	if j == nil {
		return nil
	}
	c := *j
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	if j.Error != nil {
		e := *j.Error
		c.Error = &e
	}
	if j.PositionInQueue != nil {
		p := *j.PositionInQueue
		c.PositionInQueue = &p
	}
	if j.Result != nil {
		c.Result = j.Result.Clone()
	}
	return &c
}

// JobResult aggregates every repository summary of one job.
type JobResult struct {
	TotalLines            int                 `json:"total_lines"`
	FilesProcessed        int                 `json:"files_processed"`
	RepositoriesProcessed int                 `json:"repositories_processed"`
	Repositories          []RepositorySummary `json:"repositories"`
}

func (r *JobResult) Clone() *JobResult {
	c := *r
	c.Repositories = make([]RepositorySummary, len(r.Repositories))
	for i, s := range r.Repositories {
		c.Repositories[i] = s.Clone()
	}
	return &c
}

// Add folds one repository summary into the result.
func (r *JobResult) Add(s RepositorySummary) {
	r.TotalLines += s.TotalLines
	r.FilesProcessed += s.FilesProcessed
	r.RepositoriesProcessed++
	r.Repositories = append(r.Repositories, s)
}
