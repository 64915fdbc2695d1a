package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
	"total_loc/internal/common"
	"total_loc/internal/domain/model"

	"github.com/redis/go-redis/v9"
)

const summaryKeyPrefix = "total_loc:summary:v1"

// SummaryCache stores per-repository summaries between jobs. GetSummary
// returns common.ErrNotFound on a miss.
type SummaryCache interface {
	GetSummary(ctx context.Context, key string) (*model.RepositorySummary, error)
	PutSummary(ctx context.Context, key string, summary model.RepositorySummary) error
}

// SummaryKey identifies a repository snapshot as seen by one credential.
// It returns false when the repository has no push time, since such a
// snapshot cannot be told apart from a later one.
func SummaryKey(identity string, repo model.Repository) (string, bool) {
	if identity == "" || repo.PushedAt.IsZero() {
		return "", false
	}
	return fmt.Sprintf("%s:%s:%s:%s", summaryKeyPrefix, identity, repo.FullName,
		strconv.FormatInt(repo.PushedAt.Unix(), 10)), true
}

type redisSummaryCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisSummaryCache(rdb *redis.Client, ttl time.Duration) SummaryCache {
	return &redisSummaryCache{rdb: rdb, ttl: ttl}
}

func (c *redisSummaryCache) GetSummary(ctx context.Context, key string) (*model.RepositorySummary, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("reading summary %s: %w", key, err)
	}

	var summary model.RepositorySummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil, fmt.Errorf("decoding summary %s: %w", key, err)
	}
	return &summary, nil
}

func (c *redisSummaryCache) PutSummary(ctx context.Context, key string, summary model.RepositorySummary) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encoding summary %s: %w", key, err)
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("writing summary %s: %w", key, err)
	}
	return nil
}
