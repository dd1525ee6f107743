package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public plugin registry.
const DefaultBaseURL = "https://registry.stanzabuild.org"

// ErrNotFound reports that the registry does not know the package.
var ErrNotFound = errors.New("package not found")

// Config controls a Client.
type Config struct {
	// BaseURL is the registry root. Defaults to DefaultBaseURL.
	BaseURL string
	// Token is an optional bearer token for private registries.
	Token string
	// Timeout bounds each HTTP request.
	Timeout time.Duration
	// CacheSize and CacheTTL size the in-process response cache.
	CacheSize int
	CacheTTL  time.Duration
	// RequestsPerSecond and Burst bound the client-side request rate.
	RequestsPerSecond float64
	Burst             int
	// MaxRetries bounds retry attempts after the first request.
	MaxRetries uint64
	// RetryInterval is the pause between retries.
	RetryInterval time.Duration
	// UserAgent identifies the tool to the registry.
	UserAgent string

	Log *logrus.Logger
}

// DefaultConfig returns the settings used when none are given.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:           DefaultBaseURL,
		Timeout:           30 * time.Second,
		CacheSize:         256,
		CacheTTL:          5 * time.Minute,
		RequestsPerSecond: 10,
		Burst:             5,
		MaxRetries:        3,
		RetryInterval:     500 * time.Millisecond,
		UserAgent:         "stanza/1.0",
	}
}

// Client queries the registry for published package versions. Safe for
// concurrent use; the resolver calls it from its worker pool.
type Client struct {
	baseURL       string
	userAgent     string
	httpClient    *http.Client
	limiter       *rate.Limiter
	cache         *lru.LRU[string, []Version]
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
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaults.BaseURL
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaults.Timeout
	}
	cacheSize := config.CacheSize
	if cacheSize <= 0 {
		cacheSize = defaults.CacheSize
	}
	cacheTTL := config.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = defaults.CacheTTL
	}
	rps := config.RequestsPerSecond
	if rps <= 0 {
		rps = defaults.RequestsPerSecond
	}
	burst := config.Burst
	if burst <= 0 {
		burst = defaults.Burst
	}
	retryInterval := config.RetryInterval
	if retryInterval <= 0 {
		retryInterval = defaults.RetryInterval
	}
	userAgent := config.UserAgent
	if userAgent == "" {
		userAgent = defaults.UserAgent
	}

	httpClient := &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	if config.Token != "" {
		// Route the oauth2 transport through the instrumented base client.
		baseCtx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		httpClient = oauth2.NewClient(baseCtx, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: config.Token,
		}))
		httpClient.Timeout = timeout
	}

	return &Client{
		baseURL:       strings.TrimSuffix(baseURL, "/"),
		userAgent:     userAgent,
		httpClient:    httpClient,
		limiter:       rate.NewLimiter(rate.Limit(rps), burst),
		cache:         lru.NewLRU[string, []Version](cacheSize, nil, cacheTTL),
		maxRetries:    config.MaxRetries,
		retryInterval: retryInterval,
		log:           log,
	}
}

// Versions returns the published versions of a package, unordered. Results
// are cached for the configured TTL; transient failures are retried with a
// bounded constant backoff.
func (c *Client) Versions(ctx context.Context, packageName string) ([]Version, error) {
	if cached, ok := c.cache.Get(packageName); ok {
		c.log.Debugf("Registry cache hit for %s", packageName)
		return append([]Version(nil), cached...), nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var versions []Version
	op := func() error {
		vs, err := c.fetchVersions(ctx, packageName)
		if err == nil {
			versions = vs
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

		c.log.Warnf("Registry request for %s failed, retrying: %v", packageName, err)
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryInterval), c.maxRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}

	c.cache.Add(packageName, versions)
	return append([]Version(nil), versions...), nil
}

// Ping reports whether the registry is reachable. Any HTTP response counts;
// only transport failures are errors.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach registry: %w", err)
	}
	resp.Body.Close()
	return nil
}

func (c *Client) fetchVersions(ctx context.Context, packageName string) ([]Version, error) {
	endpoint := fmt.Sprintf("%s/packages/%s/versions", c.baseURL, url.PathEscape(packageName))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach registry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, packageName)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &httpStatusError{status: resp.StatusCode, body: strings.TrimSpace(string(body))}
	}

	var payload struct {
		Name     string   `json:"name"`
		Versions []string `json:"versions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	versions := make([]Version, 0, len(payload.Versions))
	for _, raw := range payload.Versions {
		v, err := ParseVersion(raw)
		if err != nil {
			return nil, fmt.Errorf("registry returned %w for package %s", err, packageName)
		}
		versions = append(versions, v)
	}

	c.log.Debugf("Fetched %d version(s) for %s", len(versions), packageName)
	return versions, nil
}

type httpStatusError struct {
	status int
	body   string
}

func (e *httpStatusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("registry responded with status %d", e.status)
	}
	return fmt.Sprintf("registry responded with status %d: %s", e.status, e.body)
}
