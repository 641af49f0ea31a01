// internal/github/client.go
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	mediaType      = "application/vnd.github+json"
	defaultTimeout = 60 * time.Second

	defaultMaxRetries   = 3
	defaultRetryBackoff = 2 * time.Second
	defaultMargin       = time.Second
	defaultPerPage      = 100
	defaultSort         = "stars"
)

var (
	// ErrNotFound is returned when the API answers 404. It is never retried.
	ErrNotFound = errors.New("github: resource not found")
	// ErrUnauthorized is returned for 401 and for 403 answers that are not
	// rate limits. The credentials are wrong, so callers stop.
	ErrUnauthorized = errors.New("github: bad credentials or insufficient permissions")
)

// Options tune the retry and paging behaviour of a Client.
type Options struct {
	// BaseURL overrides https://api.github.com/, mostly for tests and GHES.
	BaseURL string
	// RequestsPerSecond throttles outgoing calls. Zero disables throttling.
	RequestsPerSecond float64
	// RateLimitMargin is added to the wait computed from the reset header.
	RateLimitMargin time.Duration
	// MaxRetries bounds the attempts for errors other than rate limiting and 404.
	MaxRetries   int
	RetryBackoff time.Duration
	PerPage      int
	Sort         string
}

// Client is a wrapper around the go-github client that owns the retry policy.
type Client struct {
	gh      *github.Client
	logger  *slog.Logger
	limiter *rate.Limiter

	margin     time.Duration
	maxRetries int
	backoff    time.Duration
	perPage    int
	sort       string

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates and configures a new Client instance.
// A non-empty token is sent as a bearer credential on every request.
func NewClient(token string, opts Options, logger *slog.Logger) (*Client, error) {
	httpClient := &http.Client{}
	if token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		httpClient = oauth2.NewClient(context.Background(), ts)
	}
	httpClient.Timeout = defaultTimeout

	gh := github.NewClient(httpClient)
	if opts.BaseURL != "" {
		u, err := url.Parse(strings.TrimSuffix(opts.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parse base url: %w", err)
		}
		gh.BaseURL = u
	}

	c := &Client{
		gh:         gh,
		logger:     logger,
		margin:     opts.RateLimitMargin,
		maxRetries: opts.MaxRetries,
		backoff:    opts.RetryBackoff,
		perPage:    opts.PerPage,
		sort:       opts.Sort,
		now:        time.Now,
		sleep:      sleepContext,
	}
	if c.margin <= 0 {
		c.margin = defaultMargin
	}
	if c.maxRetries <= 0 {
		c.maxRetries = defaultMaxRetries
	}
	if c.backoff <= 0 {
		c.backoff = defaultRetryBackoff
	}
	if c.perPage <= 0 || c.perPage > 100 {
		c.perPage = defaultPerPage
	}
	if c.sort == "" {
		c.sort = defaultSort
	}
	if opts.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return c, nil
}

// Get issues a GET request against path and decodes the JSON body into v.
//
// Rate limited responses are retried after sleeping until the reset time plus
// a margin, with no cap on the number of attempts. A 404 returns ErrNotFound,
// 401 and other 403 answers return ErrUnauthorized, and other client errors
// are returned at once. Any other failure is retried
// up to MaxRetries attempts with linear backoff and then returned.
func (c *Client) Get(ctx context.Context, path string, query url.Values, v any) error {
	target := strings.TrimPrefix(path, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	failures := 0
	for {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("rate limit wait: %w", err)
			}
		}

		req, err := c.gh.NewRequest(http.MethodGet, target, nil)
		if err != nil {
			return fmt.Errorf("build request %s: %w", path, err)
		}
		req.Header.Set("Accept", mediaType)

		_, err = c.gh.Do(ctx, req, v)
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		var rateErr *github.RateLimitError
		var abuseErr *github.AbuseRateLimitError
		var respErr *github.ErrorResponse
		switch {
		case errors.As(err, &rateErr):
			wait := rateErr.Rate.Reset.Time.Sub(c.now()) + c.margin
			if wait < c.margin {
				wait = c.margin
			}
			c.logger.Warn("Rate limit hit, waiting for reset",
				"path", path, "reset", rateErr.Rate.Reset.Time.Format(time.RFC3339), "wait", wait.String())
			if err := c.sleep(ctx, wait); err != nil {
				return err
			}
		case errors.As(err, &abuseErr):
			wait := c.margin
			if abuseErr.RetryAfter != nil {
				wait += *abuseErr.RetryAfter
			} else if abuseErr.Response != nil {
				wait += c.resetWait(abuseErr.Response)
			}
			c.logger.Warn("Secondary rate limit hit, waiting", "path", path, "wait", wait.String())
			if err := c.sleep(ctx, wait); err != nil {
				return err
			}
		case errors.As(err, &respErr) && respErr.Response != nil && respErr.Response.StatusCode == http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		case errors.As(err, &respErr) && respErr.Response != nil &&
			(respErr.Response.StatusCode == http.StatusUnauthorized || respErr.Response.StatusCode == http.StatusForbidden):
			return fmt.Errorf("%w: get %s: %w", ErrUnauthorized, path, err)
		case errors.As(err, &respErr) && respErr.Response != nil && permanent(respErr.Response.StatusCode):
			return fmt.Errorf("get %s: %w", path, err)
		default:
			failures++
			if failures >= c.maxRetries {
				return fmt.Errorf("get %s after %d attempts: %w", path, failures, err)
			}
			wait := c.backoff * time.Duration(failures)
			c.logger.Warn("Request failed, retrying", "path", path, "attempt", failures, "wait", wait.String(), "error", err)
			if err := c.sleep(ctx, wait); err != nil {
				return err
			}
		}
	}
}

// GetRepository fetches the canonical repository info.
func (c *Client) GetRepository(ctx context.Context, owner, name string) (*Repository, error) {
	var repo Repository
	path := fmt.Sprintf("repos/%s/%s", url.PathEscape(owner), url.PathEscape(name))
	if err := c.Get(ctx, path, nil, &repo); err != nil {
		return nil, err
	}
	return &repo, nil
}

// SearchRepositories fetches one page of repositories matching query.
func (c *Client) SearchRepositories(ctx context.Context, query string, page int) (*SearchResult, error) {
	return c.search(ctx, query, page, c.perPage)
}

// CountRepositories returns the total number of repositories matching query.
func (c *Client) CountRepositories(ctx context.Context, query string) (int, error) {
	result, err := c.search(ctx, query, 1, 1)
	if err != nil {
		return 0, err
	}
	return result.Total, nil
}

func (c *Client) search(ctx context.Context, query string, page, perPage int) (*SearchResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("sort", c.sort)
	params.Set("per_page", strconv.Itoa(perPage))
	params.Set("page", strconv.Itoa(page))

	var result SearchResult
	if err := c.Get(ctx, "search/repositories", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// permanent reports client errors that fail the same way on every attempt,
// such as 422 for a search page past the result cap.
func permanent(status int) bool {
	return status >= 400 && status < 500 &&
		status != http.StatusRequestTimeout && status != http.StatusTooManyRequests
}

// resetWait reads X-RateLimit-Reset from a raw response.
func (c *Client) resetWait(resp *http.Response) time.Duration {
	reset, err := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64)
	if err != nil {
		return 0
	}
	if wait := time.Unix(reset, 0).Sub(c.now()); wait > 0 {
		return wait
	}
	return 0
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
