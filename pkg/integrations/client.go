package integrations

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/modman/pkg/buildinfo"
	"github.com/matzehuels/modman/pkg/cache"
	errs "github.com/matzehuels/modman/pkg/errors"
	"github.com/matzehuels/modman/pkg/httputil"
	"github.com/matzehuels/modman/pkg/observability"
)

// DefaultMaxThrottleRetries bounds how many consecutive 429 responses a
// single call tolerates.
const DefaultMaxThrottleRetries = 10

// Options configures a [Client]. Only BaseURL is required.
type Options struct {
	BaseURL   string
	UserAgent string // Defaults to buildinfo.UserAgent()

	HTTPClient *http.Client // Defaults to NewHTTPClient()

	Cache     cache.Cache   // Metadata response cache; nil disables caching
	Namespace string        // Key prefix inside Cache
	CacheTTL  time.Duration // Zero stores entries without expiry

	Logger     *log.Logger
	Hooks      observability.HTTPHooks
	CacheHooks observability.CacheHooks
	Observer   httputil.WaitObserver // Shown rate limit cooldowns

	Retry              httputil.Policy // Zero value means httputil.DefaultPolicy()
	MaxThrottleRetries int             // Zero means DefaultMaxThrottleRetries

	// Test seams for the rate limiter.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// Client provides shared HTTP functionality for registry API clients.
// It handles rate limiting, connection retries, response caching and the
// User-Agent header.
//
// Calls are safe for concurrent use; the rate limit state is shared by all
// callers of one Client.
type Client struct {
	http      *http.Client
	baseURL   string
	userAgent string
	cache     cache.Cache
	ttl       time.Duration
	logger    *log.Logger
	hooks     observability.HTTPHooks
	cacheHook observability.CacheHooks
	limiter   *httputil.RateLimiter
	now       func() time.Time
	retry     httputil.Policy
	throttle  int
}

// NewClient creates a Client from opts.
func NewClient(opts Options) *Client {
	c := &Client{
		http:      opts.HTTPClient,
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		userAgent: opts.UserAgent,
		ttl:       opts.CacheTTL,
		logger:    opts.Logger,
		hooks:     opts.Hooks,
		cacheHook: opts.CacheHooks,
		retry:     opts.Retry,
		throttle:  opts.MaxThrottleRetries,
		now:       opts.Now,
		limiter: httputil.NewRateLimiter(httputil.RateLimiterOptions{
			Observer: opts.Observer,
			Now:      opts.Now,
			Sleep:    opts.Sleep,
		}),
	}
	if c.http == nil {
		c.http = NewHTTPClient()
	}
	if c.userAgent == "" {
		c.userAgent = buildinfo.UserAgent()
	}
	if opts.Cache != nil {
		c.cache = cache.NewScoped(opts.Cache, opts.Namespace)
	} else {
		c.cache = cache.NewNullCache()
	}
	if c.logger == nil {
		c.logger = log.Default()
	}
	if c.hooks == nil {
		c.hooks = observability.NoopHTTPHooks{}
	}
	if c.cacheHook == nil {
		c.cacheHook = observability.NoopCacheHooks{}
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.retry.Attempts == 0 {
		c.retry = httputil.DefaultPolicy()
	}
	if c.throttle <= 0 {
		c.throttle = DefaultMaxThrottleRetries
	}
	return c
}

// BaseURL returns the registry base URL without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// UserAgent returns the User-Agent sent with every request.
func (c *Client) UserAgent() string { return c.userAgent }

// RateLimit returns the current rate limit snapshot.
func (c *Client) RateLimit() httputil.RateLimit { return c.limiter.State() }

// Cached retrieves a value from cache or executes fetch and caches the result.
// If refresh is true, the cache is read-bypassed but still written.
// The fetch function should populate v; on success, v is stored as JSON.
func (c *Client) Cached(ctx context.Context, key string, refresh bool, v any, fetch func() error) error {
	keyType, _, _ := strings.Cut(key, ":")
	if !refresh {
		data, ok, err := c.cache.Get(ctx, key)
		if err != nil {
			c.logger.Warn("metadata cache read failed", "key", key, "err", err)
		}
		if ok && json.Unmarshal(data, v) == nil {
			c.cacheHook.OnCacheHit(ctx, keyType)
			return nil
		}
		c.cacheHook.OnCacheMiss(ctx, keyType)
	}
	if err := fetch(); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("metadata cache encode failed", "key", key, "err", err)
		return nil
	}
	if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("metadata cache write failed", "key", key, "err", err)
		return nil
	}
	c.cacheHook.OnCacheSet(ctx, keyType, len(data))
	return nil
}

// Get requests path (relative to the base URL) with the given query and
// JSON-decodes the response into v.
func (c *Client) Get(ctx context.Context, path string, query url.Values, v any) error {
	body, err := c.GetRaw(ctx, path, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errs.Wrap(errs.ErrCodeParse, err, "decode %s", path)
	}
	return nil
}

// GetRaw requests path and returns the response body verbatim.
//
// Before each attempt the call blocks while the rate limit window is
// exhausted. Transport failures are retried according to the retry policy
// and end in a [*ConnectionError]. A 429 response marks the window exhausted
// and the request is repeated after the cooldown, up to MaxThrottleRetries
// times, after which [*errs.RateLimitedError] is returned. Any other non-2xx
// status yields a [*StatusError].
func (c *Client) GetRaw(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u, err := c.resolve(path, query)
	if err != nil {
		return nil, err
	}

	for throttled := 0; ; throttled++ {
		waited, err := c.limiter.Wait(ctx)
		if err != nil {
			return nil, err
		}
		if waited > 0 {
			c.hooks.OnThrottle(ctx, u.Host, waited)
		}

		resp, err := c.fetch(ctx, u)
		if err != nil {
			return nil, err
		}

		if resp.status == http.StatusTooManyRequests {
			c.limiter.Throttle(resp.header)
			if throttled >= c.throttle {
				return nil, &errs.RateLimitedError{
					RetryAfter: int(c.limiter.State().Reset.Sub(c.now()).Round(time.Second).Seconds()),
					Attempts:   throttled + 1,
				}
			}
			c.logger.Warn("rate limited by registry, retrying", "url", u.String(), "attempt", throttled+1)
			continue
		}

		c.limiter.Update(resp.header)
		if resp.status < 200 || resp.status > 299 {
			return nil, &StatusError{Method: http.MethodGet, URL: u.String(), StatusCode: resp.status}
		}
		return resp.body, nil
	}
}

type response struct {
	status int
	header http.Header
	body   []byte
}

// fetch performs one logical request, retrying transport failures.
func (c *Client) fetch(ctx context.Context, u *url.URL) (*response, error) {
	var resp *response
	err := httputil.Retry(ctx, c.retry, func(attempt int) error {
		r, err := c.do(ctx, u)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("request failed", "url", u.String(), "attempt", attempt, "err", err)
			return httputil.Retryable(err)
		}
		resp = r
		return nil
	})
	if err != nil {
		var ex *httputil.ExhaustedError
		if errors.As(err, &ex) {
			return nil, &ConnectionError{URL: u.String(), Attempts: ex.Attempts, Err: ex.Err}
		}
		return nil, err
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, u *url.URL) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	c.hooks.OnRequest(ctx, req.Method, u.Host, u.Path)
	start := time.Now()

	r, err := c.http.Do(req)
	if err != nil {
		c.hooks.OnError(ctx, req.Method, u.Host, u.Path, err)
		return nil, err
	}
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		c.hooks.OnError(ctx, req.Method, u.Host, u.Path, err)
		return nil, err
	}
	c.hooks.OnResponse(ctx, req.Method, u.Host, u.Path, r.StatusCode, time.Since(start))
	c.logger.Debug("registry response", "url", u.String(), "status", r.StatusCode, "body", shorten(body))

	return &response{status: r.StatusCode, header: r.Header, body: body}, nil
}

func (c *Client) resolve(path string, query url.Values) (*url.URL, error) {
	u, err := url.Parse(c.baseURL + "/" + strings.TrimLeft(path, "/"))
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "invalid request path %q", path)
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u, nil
}
