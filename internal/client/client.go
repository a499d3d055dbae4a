package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	api "github.com/dapplets/dapplet-registry/internal/api/http"
	"github.com/dapplets/dapplet-registry/internal/api/middleware"
	"github.com/dapplets/dapplet-registry/internal/infrastructure/resilience"
	"github.com/dapplets/dapplet-registry/internal/infrastructure/tracing"
	"github.com/dapplets/dapplet-registry/internal/shared/types"
)

// APIPrefix is the path of the registry API on a server
const APIPrefix = "/api/v1"

// APIError is a failed response from the registry
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("registry: %d %s: %s", e.Status, e.Code, e.Message)
}

// Unwrap exposes the domain sentinel so callers can use errors.Is
func (e *APIError) Unwrap() error {
	return api.ErrorOf(e.Code)
}

// Config holds client settings
type Config struct {
	BaseURL    string
	Account    types.Account
	Timeout    time.Duration
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
	// RateLimit is requests per second; zero means unlimited
	RateLimit float64
	Logger    *zap.Logger
}

// DefaultConfig returns client defaults for baseURL
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:    baseURL,
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		MinWait:    500 * time.Millisecond,
		MaxWait:    10 * time.Second,
	}
}

// Client talks to a registry server. Calls are rate limited, retried on
// transient failures and guarded by a circuit breaker.
type Client struct {
	resty   *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	logger  *zap.Logger

	mu      sync.RWMutex
	account types.Account
}

// New creates a client from cfg
func New(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.MaxRetries
	retryClient.RetryWaitMin = cfg.MinWait
	retryClient.RetryWaitMax = cfg.MaxWait
	retryClient.Logger = nil
	retryClient.CheckRetry = checkRetry
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	httpClient := retryClient.StandardClient()
	httpClient.Timeout = cfg.Timeout

	restyClient := resty.NewWithClient(httpClient).
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/") + APIPrefix).
		SetHeader("User-Agent", "module-registry-client/1.0").
		SetHeader("Accept", "application/json")

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	breaker := resilience.New("registry-client", resilience.Settings{
		Threshold:    5,
		Cooldown:     30 * time.Second,
		Probes:       3,
		IsSuccessful: isSuccessful,
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Client{
		resty:   restyClient,
		limiter: limiter,
		breaker: breaker,
		logger:  logger,
		account: cfg.Account,
	}
}

// As returns a client that sends requests as account. The copy shares the
// connection pool, limiter and breaker.
func (c *Client) As(account types.Account) *Client {
	return &Client{
		resty:   c.resty,
		limiter: c.limiter,
		breaker: c.breaker,
		logger:  c.logger,
		account: account,
	}
}

// Account returns the caller identity sent with mutations
func (c *Client) Account() types.Account {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.account
}

// SetAccount changes the caller identity
func (c *Client) SetAccount(account types.Account) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.account = account
}

// BreakerState reports the circuit breaker state
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}

// checkRetry retries connection errors and overload statuses only. Domain
// errors are final.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true, nil
	}
	return false, nil
}

// isSuccessful keeps 4xx answers out of the breaker counts: the server is
// healthy, the request was wrong.
func isSuccessful(err error) bool {
	if err == nil {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status < http.StatusInternalServerError
	}
	return false
}

type call struct {
	method string
	path   string
	query  map[string]string
	body   any
	raw    []byte
	ctype  string
	out    any
}

func (c *Client) do(ctx context.Context, req call) (*resty.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	return resilience.Call(ctx, c.breaker, func(ctx context.Context) (*resty.Response, error) {
		r := c.resty.R().
			SetContext(ctx).
			SetError(&api.ErrorResponse{})

		tracing.Inject(ctx, r.Header)
		if account := c.Account(); account != "" {
			r.SetHeader(middleware.AccountHeader, string(account))
		}

		if req.query != nil {
			r.SetQueryParams(req.query)
		}
		switch {
		case req.raw != nil:
			r.SetHeader("Content-Type", req.ctype).SetBody(req.raw)
		case req.body != nil:
			r.SetBody(req.body)
		}
		if req.out != nil {
			r.SetResult(req.out)
		}

		resp, err := r.Execute(req.method, req.path)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", req.method, req.path, err)
		}
		if resp.IsError() {
			apiErr := &APIError{Status: resp.StatusCode(), Message: resp.Status()}
			if body, ok := resp.Error().(*api.ErrorResponse); ok && body.Code != "" {
				apiErr.Code = body.Code
				apiErr.Message = body.Error
			}
			c.logger.Debug("registry request failed",
				zap.String("method", req.method),
				zap.String("path", req.path),
				zap.Int("status", apiErr.Status),
				zap.String("code", apiErr.Code),
			)
			return resp, apiErr
		}
		return resp, nil
	})
}
