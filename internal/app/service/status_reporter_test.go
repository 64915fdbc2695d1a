package service

import (
	"encoding/json"
	"testing"
	"time"
	"total_loc/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestProjectStatus_QueuedWaitEstimate(t *testing.T) {
	tests := []struct {
		position      int
		maxConcurrent int
		want          int
	}{
		{0, 2, 5},
		{1, 2, 5},
		{2, 2, 10},
		{5, 2, 15},
		{3, 1, 20},
		{3, 0, 20},
	}

	for _, tt := range tests {
		job := &model.LineCountJob{ID: "j", Status: model.JobStatusQueued, PositionInQueue: intPtr(tt.position)}
		view := ProjectStatus(job, tt.maxConcurrent)
		require.NotNil(t, view.EstimatedWaitMinutes)
		assert.Equal(t, tt.want, *view.EstimatedWaitMinutes, "position %d, max %d", tt.position, tt.maxConcurrent)
	}
}

func TestProjectStatus_NoEstimateOutsideQueue(t *testing.T) {
	started := time.Now()
	job := &model.LineCountJob{ID: "j", Status: model.JobStatusProcessing, StartedAt: &started}
	view := ProjectStatus(job, 2)
	assert.Nil(t, view.EstimatedWaitMinutes)
	assert.Equal(t, "PROCESSING", view.Status)

	queuedNoPosition := &model.LineCountJob{ID: "k", Status: model.JobStatusQueued}
	assert.Nil(t, ProjectStatus(queuedNoPosition, 2).EstimatedWaitMinutes)
}

func TestProjectStatus_FailedJobJSON(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	done := created.Add(time.Minute)
	msg := "boom"
	job := &model.LineCountJob{
		ID:          "j1",
		Status:      model.JobStatusFailed,
		CreatedAt:   created,
		StartedAt:   &created,
		CompletedAt: &done,
		Error:       &msg,
		Request:     model.JobRequest{UserID: "u", AccessToken: "secret"},
	}

	raw, err := json.Marshal(ProjectStatus(job, 2))
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"request_id": "j1",
		"status": "FAILED",
		"created_at": "2024-05-01T12:00:00Z",
		"started_at": "2024-05-01T12:00:00Z",
		"completed_at": "2024-05-01T12:01:00Z",
		"result": null,
		"error": "boom",
		"position_in_queue": null
	}`, string(raw))
	assert.NotContains(t, string(raw), "secret")
}
