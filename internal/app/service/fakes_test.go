package service

import (
	"context"
	"errors"
	"sync"
	"time"
	"total_loc/internal/common"
	"total_loc/internal/domain/model"
	"total_loc/internal/domain/repository"
)

// fakeRemote serves a fixed tree per repository. dirs maps "owner/name:path"
// to the entries listed there; files maps download URLs to content.
type fakeRemote struct {
	identity string
	repos    []model.Repository
	listErr  error
	dirs     map[string][]model.RepositoryEntry
	dirErrs  map[string]error
	files    map[string]string
	fileErrs map[string]error
	delay    time.Duration
	// panics holds "owner/name:path" listings and download URLs that panic.
	panics map[string]bool

	mu       sync.Mutex
	fetches  int
	inFlight int
	peak     int
}

func (f *fakeRemote) ListOwnedRepositories(ctx context.Context) ([]model.Repository, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.repos, nil
}

func (f *fakeRemote) ListFiles(ctx context.Context, fullName, path string) ([]model.RepositoryEntry, error) {
	key := fullName + ":" + path
	if f.panics[key] {
		panic("listing " + key)
	}
	if err, ok := f.dirErrs[key]; ok {
		return nil, err
	}
	return f.dirs[key], nil
}

func (f *fakeRemote) FetchFileContent(ctx context.Context, downloadURL string) (string, error) {
	f.mu.Lock()
	f.fetches++
	f.inFlight++
	if f.inFlight > f.peak {
		f.peak = f.inFlight
	}
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.panics[downloadURL] {
		panic("fetching " + downloadURL)
	}
	if err, ok := f.fileErrs[downloadURL]; ok {
		return "", err
	}
	content, ok := f.files[downloadURL]
	if !ok {
		return "", errors.New("unexpected status 404")
	}
	return content, nil
}

func (f *fakeRemote) Identity() string {
	return f.identity
}

func (f *fakeRemote) Fetches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

func (f *fakeRemote) Peak() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peak
}

type fakeFactory struct {
	client *fakeRemote
	tokens []string
	mu     sync.Mutex
}

func (f *fakeFactory) ForToken(token string) repository.RemoteRepositoryClient {
	f.mu.Lock()
	f.tokens = append(f.tokens, token)
	f.mu.Unlock()
	return f.client
}

type memoryCache struct {
	mu   sync.Mutex
	data map[string]model.RepositorySummary
	puts int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string]model.RepositorySummary{}}
}

func (c *memoryCache) GetSummary(ctx context.Context, key string) (*model.RepositorySummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.data[key]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &s, nil
}

func (c *memoryCache) PutSummary(ctx context.Context, key string, summary model.RepositorySummary) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = summary
	c.puts++
	return nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []*model.LineCountJob
	to   []string
}

func (n *recordingNotifier) NotifyJobFinished(ctx context.Context, email string, job *model.LineCountJob) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, job)
	n.to = append(n.to, email)
	return nil
}

func file(path string) model.RepositoryEntry {
	return model.RepositoryEntry{Path: path, Type: model.EntryTypeFile, DownloadURL: "https://raw.test/" + path}
}

func dir(path string) model.RepositoryEntry {
	return model.RepositoryEntry{Path: path, Type: model.EntryTypeDir}
}
