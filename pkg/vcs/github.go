package vcs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultAPIBaseURL is the public GitHub REST API.
const DefaultAPIBaseURL = "https://api.github.com"

// ErrNotFound reports that the repository or ref does not exist.
var ErrNotFound = errors.New("repository or ref not found")

var (
	commitHashRegex = regexp.MustCompile(`^[0-9a-f]{40}$`)
	repoRegex       = regexp.MustCompile(`^[A-Za-z0-9._-]+/[A-Za-z0-9._-]+$`)
)

// IsCommitHash reports whether the ref is already a full commit hash.
func IsCommitHash(ref string) bool {
	return commitHashRegex.MatchString(ref)
}

// RepoURL returns the canonical repository URL for an "owner/name" location.
func RepoURL(repo string) string {
	return "https://github.com/" + repo
}

// Config controls a Client.
type Config struct {
	// APIBaseURL is the API root. Defaults to DefaultAPIBaseURL.
	APIBaseURL string
	// Token is an optional token for private repositories and rate limits.
	Token string
	// Timeout bounds each HTTP request.
	Timeout time.Duration
	// MaxRetries bounds retry attempts after the first request.
	MaxRetries uint64
	// RetryInterval is the pause between retries.
	RetryInterval time.Duration
	// UserAgent identifies the tool to the API.
	UserAgent string

	Log *logrus.Logger
}

// DefaultConfig returns the settings used when none are given.
func DefaultConfig() *Config {
	return &Config{
		APIBaseURL:    DefaultAPIBaseURL,
		Timeout:       30 * time.Second,
		MaxRetries:    3,
		RetryInterval: 500 * time.Millisecond,
		UserAgent:     "stanza/1.0",
	}
}

// Client resolves refs against the GitHub API. Safe for concurrent use.
type Client struct {
	apiBaseURL    string
	token         string
	userAgent     string
	httpClient    *http.Client
	maxRetries    uint64
	retryInterval time.Duration
	log           *logrus.Logger
}

// NewClient creates a Client from the config; nil selects DefaultConfig.
func NewClient(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	log := config.Log
	if log == nil {
		log = logrus.New()
	}

	defaults := DefaultConfig()
	apiBaseURL := config.APIBaseURL
	if apiBaseURL == "" {
		apiBaseURL = defaults.APIBaseURL
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaults.Timeout
	}
	retryInterval := config.RetryInterval
	if retryInterval <= 0 {
		retryInterval = defaults.RetryInterval
	}
	userAgent := config.UserAgent
	if userAgent == "" {
		userAgent = defaults.UserAgent
	}

	return &Client{
		apiBaseURL: strings.TrimSuffix(apiBaseURL, "/"),
		token:      config.Token,
		userAgent:  userAgent,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		maxRetries:    config.MaxRetries,
		retryInterval: retryInterval,
		log:           log,
	}
}

// ResolveRef returns the full commit hash the ref points at in the
// "owner/name" repository. A ref that is already a full commit hash is
// returned as-is without a lookup.
func (c *Client) ResolveRef(ctx context.Context, repo, ref string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("ref is required")
	}
	if IsCommitHash(ref) {
		return ref, nil
	}
	if !repoRegex.MatchString(repo) {
		return "", fmt.Errorf("invalid repository %q (want owner/name)", repo)
	}

	var sha string
	op := func() error {
		got, err := c.fetchCommit(ctx, repo, ref)
		if err == nil {
			sha = got
			return nil
		}

		if errors.Is(err, ErrNotFound) {
			return backoff.Permanent(err)
		}
		var statusErr *httpStatusError
		if errors.As(err, &statusErr) && statusErr.status < 500 {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}

		c.log.Warnf("GitHub lookup for %s@%s failed, retrying: %v", repo, ref, err)
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryInterval), c.maxRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return "", err
	}

	return sha, nil
}

// Ping reports whether the GitHub API is reachable. Any HTTP response
// counts; only transport failures are errors.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.apiBaseURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach GitHub API: %w", err)
	}
	resp.Body.Close()
	return nil
}

func (c *Client) fetchCommit(ctx context.Context, repo, ref string) (string, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/commits/%s", c.apiBaseURL, repo, url.PathEscape(ref))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach GitHub: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// Fall through to decode.
	case http.StatusNotFound, http.StatusUnprocessableEntity:
		return "", fmt.Errorf("%w: %s@%s", ErrNotFound, repo, ref)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &httpStatusError{status: resp.StatusCode, body: strings.TrimSpace(string(body))}
	}

	var payload struct {
		SHA string `json:"sha"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if !IsCommitHash(payload.SHA) {
		return "", fmt.Errorf("GitHub returned malformed commit hash %q for %s@%s", payload.SHA, repo, ref)
	}

	c.log.Debugf("Resolved %s@%s to %s", repo, ref, payload.SHA)
	return payload.SHA, nil
}

type httpStatusError struct {
	status int
	body   string
}

func (e *httpStatusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("GitHub responded with status %d", e.status)
	}
	return fmt.Sprintf("GitHub responded with status %d: %s", e.status, e.body)
}
