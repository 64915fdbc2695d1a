package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{"MAX_CONCURRENT_JOBS", "FILE_CONCURRENCY", "DISPATCH_INTERVAL", "JOB_TIMEOUT", "SOURCE_EXTENSIONS"} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()
	assert.Equal(t, 2, cfg.MaxConcurrentJobs)
	assert.Equal(t, 3, cfg.RepoConcurrency)
	assert.Equal(t, 5, cfg.FileConcurrency)
	assert.Equal(t, time.Second, cfg.DispatchInterval)
	assert.Equal(t, time.Duration(0), cfg.JobTimeout)
	assert.Equal(t, 24*time.Hour, cfg.JobRetention)
	assert.Equal(t, 1000, cfg.CleanupThreshold)
	assert.Empty(t, cfg.SourceExtensions)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("MAX_CONCURRENT_JOBS", "4")
	t.Setenv("DISPATCH_INTERVAL", "250ms")
	t.Setenv("JOB_TIMEOUT", "90")
	t.Setenv("GITHUB_REQUESTS_PER_SECOND", "2.5")
	t.Setenv("SOURCE_EXTENSIONS", ".go, .rs ,,")

	cfg := FromEnv()
	assert.Equal(t, 4, cfg.MaxConcurrentJobs)
	assert.Equal(t, 250*time.Millisecond, cfg.DispatchInterval)
	assert.Equal(t, 90*time.Second, cfg.JobTimeout)
	assert.Equal(t, 2.5, cfg.GitHubRequestsPerSecond)
	assert.Equal(t, []string{".go", ".rs"}, cfg.SourceExtensions)
}

func TestGetEnvAsInt_InvalidFallsBack(t *testing.T) {
	t.Setenv("MAX_CONCURRENT_JOBS", "many")
	assert.Equal(t, 2, getEnvAsInt("MAX_CONCURRENT_JOBS", 2))
}
