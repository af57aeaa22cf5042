// Package wpt implements the client for the remote performance-testing
// service's asynchronous job API.
package wpt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/ChromeCAB/lighthouse/internal/trace"
)

// TraceArtifact is the artifact name requested from the download endpoint.
const TraceArtifact = "lighthouse_trace.json"

// Sleeper suspends between polls. Injectable so tests can count waits.
type Sleeper func(ctx context.Context, d time.Duration) error

// Config holds the knobs for one client instance.
type Config struct {
	// BaseURL is the service root, e.g. https://www.webpagetest.org.
	BaseURL string
	// APIKey authenticates job creation. Checked once at startup by the
	// config layer; the client assumes it is present.
	APIKey string
	// Location is the fixed geographic/browser/connectivity profile.
	Location string
	// PollFallback is the wait used when the service reports no queue
	// position hint.
	PollFallback time.Duration
}

// Client drives one throttled trace capture per StartJob/PollUntilDone pair.
type Client struct {
	cfg    Config
	httpc  *http.Client
	sleep  Sleeper
	logger *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the transport, mainly for tests.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) { c.httpc = httpc }
}

// WithSleeper overrides the poll wait, mainly for tests.
func WithSleeper(sleep Sleeper) Option {
	return func(c *Client) { c.sleep = sleep }
}

// NewClient builds a Client with defaults filled in.
func NewClient(cfg Config, logger *zap.Logger, opts ...Option) *Client {
	if cfg.PollFallback <= 0 {
		cfg.PollFallback = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		cfg:    cfg,
		httpc:  &http.Client{},
		sleep:  sleepWithContext,
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type apiResponse struct {
	StatusCode int    `json:"statusCode"`
	StatusText string `json:"statusText"`
	Data       struct {
		TestID      string `json:"testId"`
		JSONURL     string `json:"jsonUrl"`
		BehindCount int    `json:"behindCount"`
	} `json:"data"`
}

// StartJob submits a trace-capture job for target and returns its handle.
func (c *Client) StartJob(ctx context.Context, target string) (trace.JobHandle, error) {
	q := url.Values{}
	q.Set("k", c.cfg.APIKey)
	q.Set("f", "json")
	q.Set("url", target)
	q.Set("location", c.cfg.Location)
	q.Set("lighthouse", "1")

	body, err := c.get(ctx, c.cfg.BaseURL+"/runtest.php?"+q.Encode())
	if err != nil {
		return trace.JobHandle{}, err
	}
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return trace.JobHandle{}, fmt.Errorf("decode job creation response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return trace.JobHandle{}, &trace.RemoteJobError{StatusCode: resp.StatusCode, Message: resp.StatusText}
	}
	c.logger.Debug("remote job started",
		zap.String("url", target),
		zap.String("test_id", resp.Data.TestID),
	)
	return trace.JobHandle{TestID: resp.Data.TestID, StatusURL: resp.Data.JSONURL}, nil
}

// PollUntilDone polls the job status until the service reports completion,
// then downloads and returns the raw trace artifact. In-progress statuses
// (1xx) wait the reported queue hint, or the fallback when absent; the loop
// has no attempt cap. Any other status fails with a RemoteJobError.
func (c *Client) PollUntilDone(ctx context.Context, handle trace.JobHandle) ([]byte, error) {
	for {
		body, err := c.get(ctx, handle.StatusURL)
		if err != nil {
			return nil, err
		}
		var resp apiResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("decode job status response: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return c.downloadTrace(ctx, handle)
		case resp.StatusCode >= 100 && resp.StatusCode < 200:
			wait := c.cfg.PollFallback
			if resp.Data.BehindCount > 0 {
				wait = time.Duration(resp.Data.BehindCount) * time.Second
			}
			c.logger.Debug("remote job pending",
				zap.String("test_id", handle.TestID),
				zap.Int("behind", resp.Data.BehindCount),
				zap.Duration("wait", wait),
			)
			if err := c.sleep(ctx, wait); err != nil {
				return nil, fmt.Errorf("poll wait: %w", err)
			}
		default:
			return nil, &trace.RemoteJobError{StatusCode: resp.StatusCode, Message: resp.StatusText}
		}
	}
}

func (c *Client) downloadTrace(ctx context.Context, handle trace.JobHandle) ([]byte, error) {
	q := url.Values{}
	q.Set("test", handle.TestID)
	q.Set("file", TraceArtifact)
	return c.get(ctx, c.cfg.BaseURL+"/getgzip.php?"+q.Encode())
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", rawURL, err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response %s: %w", rawURL, err)
	}
	return body, nil
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
