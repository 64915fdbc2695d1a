package service

import (
	"context"
	"errors"
	"sync"
	"total_loc/internal/common"
	"total_loc/internal/domain/model"
	"total_loc/internal/domain/repository"
	"total_loc/internal/platform/metrics"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const DefaultFileConcurrency = 5

// RepositoryAggregator counts the lines of one repository. File fetches are
// capped at fileConcurrency per repository.
type RepositoryAggregator struct {
	classifier      *SourceClassifier
	cache           repository.SummaryCache // optional
	fileConcurrency int
	log             *logrus.Entry
}

func NewRepositoryAggregator(classifier *SourceClassifier, cache repository.SummaryCache, fileConcurrency int, log *logrus.Entry) *RepositoryAggregator {
	if fileConcurrency < 1 {
		fileConcurrency = DefaultFileConcurrency
	}
	if classifier == nil {
		classifier = NewSourceClassifier(nil)
	}
	return &RepositoryAggregator{
		classifier:      classifier,
		cache:           cache,
		fileConcurrency: fileConcurrency,
		log:             log,
	}
}

// CountRepositoryLines never fails: unreadable directories contribute no
// files and unreadable files contribute zero lines.
func (a *RepositoryAggregator) CountRepositoryLines(ctx context.Context, client repository.RemoteRepositoryClient, repo model.Repository) model.RepositorySummary {
	log := a.log.WithField("repository", repo.FullName)

	cacheKey, cacheable := "", false
	if a.cache != nil {
		cacheKey, cacheable = repository.SummaryKey(client.Identity(), repo)
	}
	if cacheable {
		cached, err := a.cache.GetSummary(ctx, cacheKey)
		switch {
		case err == nil:
			log.Debug("Repository summary served from cache")
			metrics.RepositoryCounted(true)
			return *cached
		case !errors.Is(err, common.ErrNotFound):
			log.WithError(err).Warn("Summary cache lookup failed")
		}
	}

	files, dirsFailed := a.collectFiles(ctx, client, repo.FullName, "", log)

	summary := model.RepositorySummary{Repository: repo.FullName, DirsFailed: dirsFailed, Languages: map[string]int{}}
	var mu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(a.fileConcurrency)
	for _, f := range files {
		if !f.IsSource {
			continue
		}
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					log.WithField("path", f.Path).WithField("panic", r).Error("File count panicked, counting it as zero")
					mu.Lock()
					summary.FilesFailed++
					mu.Unlock()
				}
			}()

			content, err := client.FetchFileContent(ctx, f.DownloadURL)
			if err != nil {
				log.WithError(err).WithField("path", f.Path).Warn("Failed to fetch file, counting it as zero")
				metrics.FileFetchFailed()
				mu.Lock()
				summary.FilesFailed++
				mu.Unlock()
				return nil
			}

			lines := CountLines(content)
			lang := a.classifier.Language(f.Path)

			mu.Lock()
			summary.TotalLines += lines
			summary.FilesProcessed++
			summary.Languages[lang] += lines
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	metrics.RepositoryCounted(false)
	log.WithFields(logrus.Fields{
		"total_lines":     summary.TotalLines,
		"files_processed": summary.FilesProcessed,
		"files_failed":    summary.FilesFailed,
		"dirs_failed":     summary.DirsFailed,
	}).Info("Repository counted")

	// A partial count must not outlive this job.
	if cacheable && summary.FilesFailed == 0 && summary.DirsFailed == 0 && ctx.Err() == nil {
		if err := a.cache.PutSummary(ctx, cacheKey, summary); err != nil {
			log.WithError(err).Warn("Failed to store repository summary")
		}
	}
	return summary
}

// collectFiles walks the repository tree depth-first, keeping listing order.
// It also returns how many directory listings failed below dir, dir included.
func (a *RepositoryAggregator) collectFiles(ctx context.Context, client repository.RemoteRepositoryClient, fullName, dir string, log *logrus.Entry) ([]model.RepositoryFile, int) {
	entries, err := client.ListFiles(ctx, fullName, dir)
	if err != nil {
		log.WithError(err).WithField("path", dir).Warn("Failed to list directory, skipping it")
		return nil, 1
	}

	var (
		files  []model.RepositoryFile
		failed int
	)
	for _, e := range entries {
		switch e.Type {
		case model.EntryTypeDir:
			sub, subFailed := a.collectFiles(ctx, client, fullName, e.Path, log)
			files = append(files, sub...)
			failed += subFailed
		case model.EntryTypeFile:
			files = append(files, model.RepositoryFile{
				Path:        e.Path,
				DownloadURL: e.DownloadURL,
				IsSource:    a.classifier.IsSource(e.Path),
			})
		}
	}
	return files, failed
}
