package github

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"total_loc/internal/common"
	"total_loc/internal/domain/model"
	"total_loc/internal/domain/repository"

	gh "github.com/google/go-github/github"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const reposPerPage = 100

type Config struct {
	BaseURL           string        // Empty means api.github.com
	HTTPTimeout       time.Duration // 0 keeps the transport default
	RequestsPerSecond float64       // <= 0 disables pacing
	Burst             int
}

// ClientFactory hands out per-token clients. All of them share one request
// pacer and one circuit breaker so a burst of jobs cannot hammer GitHub.
type ClientFactory struct {
	baseURL *url.URL
	timeout time.Duration
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	log     *logrus.Entry
}

func NewClientFactory(cfg Config, log *logrus.Entry) (*ClientFactory, error) {
	f := &ClientFactory{
		timeout: cfg.HTTPTimeout,
		limiter: rate.NewLimiter(rate.Inf, 0),
		log:     log,
	}

	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL %q: %w", cfg.BaseURL, err)
		}
		f.baseURL = u
	}

	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	f.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "github",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
		IsSuccessful: isBreakerSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).Warn("GitHub circuit breaker changed state")
		},
	})

	return f, nil
}

func (f *ClientFactory) ForToken(token string) repository.RemoteRepositoryClient {
	hc := oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	if f.timeout > 0 {
		hc.Timeout = f.timeout
	}

	api := gh.NewClient(hc)
	if f.baseURL != nil {
		api.BaseURL = f.baseURL
	}

	return &Client{
		api:      api,
		http:     hc,
		identity: fingerprint(token),
		factory:  f,
	}
}

// Client is bound to a single access token.
type Client struct {
	api      *gh.Client
	http     *http.Client
	identity string
	factory  *ClientFactory
}

func (c *Client) Identity() string {
	return c.identity
}

func (c *Client) ListOwnedRepositories(ctx context.Context) ([]model.Repository, error) {
	opts := &gh.RepositoryListOptions{
		Affiliation: "owner",
		ListOptions: gh.ListOptions{PerPage: reposPerPage},
	}

	var repos []model.Repository
	for {
		var (
			page []*gh.Repository
			resp *gh.Response
		)
		err := c.call(ctx, func() error {
			var err error
			page, resp, err = c.api.Repositories.List(ctx, "", opts)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("list repositories: %w", err)
		}

		for _, r := range page {
			repos = append(repos, model.Repository{
				FullName: r.GetFullName(),
				Fork:     r.GetFork(),
				PushedAt: r.GetPushedAt().Time,
			})
		}

		if resp == nil || resp.NextPage == 0 {
			return repos, nil
		}
		opts.Page = resp.NextPage
	}
}

func (c *Client) ListFiles(ctx context.Context, fullName, dirPath string) ([]model.RepositoryEntry, error) {
	owner, name, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || name == "" {
		return nil, fmt.Errorf("malformed repository name %q: %w", fullName, common.ErrBadRequest)
	}

	var listing []*gh.RepositoryContent
	err := c.call(ctx, func() error {
		var err error
		_, listing, _, err = c.api.Repositories.GetContents(ctx, owner, name, dirPath, nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list %s/%s: %w", fullName, dirPath, err)
	}

	entries := make([]model.RepositoryEntry, 0, len(listing))
	for _, item := range listing {
		var kind model.EntryType
		switch item.GetType() {
		case "file":
			kind = model.EntryTypeFile
		case "dir":
			kind = model.EntryTypeDir
		default:
			// symlinks and submodules are not followed
			continue
		}
		entries = append(entries, model.RepositoryEntry{
			Path:        item.GetPath(),
			Type:        kind,
			DownloadURL: item.GetDownloadURL(),
		})
	}
	return entries, nil
}

func (c *Client) FetchFileContent(ctx context.Context, downloadURL string) (string, error) {
	if downloadURL == "" {
		return "", fmt.Errorf("file has no download URL: %w", common.ErrBadRequest)
	}

	var body []byte
	err := c.call(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
		if err != nil {
			return err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return &StatusError{StatusCode: resp.StatusCode, URL: downloadURL}
		}
		body, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// call paces fn through the shared limiter and breaker.
func (c *Client) call(ctx context.Context, fn func() error) error {
	if err := c.factory.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := c.factory.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("github unavailable: %w: %w", err, common.ErrServiceUnavailable)
	}
	return err
}

// StatusError is a non-2xx answer to a raw file download.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d fetching %s", e.StatusCode, e.URL)
}

// isBreakerSuccess treats client errors as healthy answers; only 5xx and
// transport failures count against GitHub. Caller cancellation is ignored.
func isBreakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode < 500
	}
	var apiErr *gh.ErrorResponse
	if errors.As(err, &apiErr) && apiErr.Response != nil {
		return apiErr.Response.StatusCode < 500
	}
	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		return true
	}
	var abuseErr *gh.AbuseRateLimitError
	return errors.As(err, &abuseErr)
}

// fingerprint derives a cache identity from a token without keeping it.
func fingerprint(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:8])
}
