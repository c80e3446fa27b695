package download

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"peiyin/internal/logging"
	"peiyin/internal/services"
)

const (
	defaultRetryBase = time.Second
	maxErrorBody     = 512
	defaultExt       = ".mp4"
)

// Fetcher downloads a URL into a directory and returns the written path.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL, dir string) (string, error)
}

// Options configures a Client.
type Options struct {
	Timeout   time.Duration
	Retries   int
	RetryBase time.Duration
	UserAgent string
	Logger    *slog.Logger
	// HTTPClient overrides the transport entirely; Timeout is ignored when set.
	HTTPClient *http.Client
}

// Client wraps an http.Client with retries.
type Client struct {
	http      *http.Client
	retries   int
	retryBase time.Duration
	userAgent string
	logger    *slog.Logger
}

// New constructs a Client.
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     30 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		}
	}
	retries := opts.Retries
	if retries < 1 {
		retries = 1
	}
	base := opts.RetryBase
	if base <= 0 {
		base = defaultRetryBase
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Client{
		http:      httpClient,
		retries:   retries,
		retryBase: base,
		userAgent: strings.TrimSpace(opts.UserAgent),
		logger:    logger,
	}
}

// Fetch downloads rawURL to <dir>/source<ext>, where ext comes from the URL
// path. A partial file is removed on failure.
func (c *Client) Fetch(ctx context.Context, rawURL, dir string) (string, error) {
	ext, err := SourceExtension(rawURL)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "download", "parse url", rawURL, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}
	target := filepath.Join(dir, "source"+ext)

	resp, err := c.get(ctx, rawURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	file, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("create download target: %w", err)
	}
	written, copyErr := io.Copy(file, resp.Body)
	closeErr := file.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		_ = os.Remove(target)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", services.Wrap(services.ErrTransient, "download", "read body", rawURL, copyErr)
	}
	if written == 0 {
		_ = os.Remove(target)
		return "", services.Wrap(services.ErrTransient, "download", "read body", rawURL+" returned an empty body", nil)
	}
	c.logger.Debug("download complete",
		logging.String(logging.FieldSourceURL, rawURL),
		logging.Int64("bytes", written),
		logging.String(logging.FieldEventType, "download_complete"),
	)
	return target, nil
}

// GetJSON fetches rawURL and decodes the body into dest.
func (c *Client) GetJSON(ctx context.Context, rawURL string, dest any) error {
	resp, err := c.get(ctx, rawURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return services.Wrap(services.ErrValidation, "download", "decode json", rawURL, err)
	}
	return nil
}

// get returns a 2xx response or an error after exhausting retries.
func (c *Client) get(ctx context.Context, rawURL string) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt < c.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "download", "build request", rawURL, err)
		}
		if c.userAgent != "" {
			req.Header.Set("User-Agent", c.userAgent)
		}

		var retryAfter time.Duration
		resp, err := c.http.Do(req)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = services.Wrap(services.ErrTransient, "download", "request", rawURL, err)
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return resp, nil
		case retryable(resp.StatusCode):
			retryAfter = parseRetryAfter(resp)
			lastErr = statusError(rawURL, resp)
			_ = resp.Body.Close()
		default:
			err := statusError(rawURL, resp)
			_ = resp.Body.Close()
			return nil, err
		}

		if attempt == c.retries-1 {
			break
		}
		wait := time.Duration(attempt+1) * c.retryBase
		if retryAfter > wait {
			wait = retryAfter
		}
		c.logger.Debug("download retry",
			logging.String(logging.FieldSourceURL, rawURL),
			logging.Int("attempt", attempt+1),
			logging.Duration("wait", wait),
			logging.Error(lastErr),
		)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if lastErr == nil {
		lastErr = errors.New("download failed")
	}
	return nil, lastErr
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func statusError(rawURL string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := fmt.Sprintf("%s returned status %d", rawURL, resp.StatusCode)
	if text := strings.TrimSpace(string(body)); text != "" {
		msg += ": " + text
	}
	return services.Wrap(services.ErrTransient, "download", "status", msg, nil)
}

// parseRetryAfter reads a Retry-After header and returns the duration to wait.
func parseRetryAfter(resp *http.Response) time.Duration {
	ra := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if ra == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(ra); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(ra); err == nil {
		return time.Until(t)
	}
	return 0
}

// SourceExtension returns the lower-cased extension of the URL path, or .mp4
// when the path has none.
func SourceExtension(rawURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	ext := strings.ToLower(path.Ext(parsed.Path))
	if ext == "" || len(ext) > 6 || strings.ContainsAny(ext, `/\`) {
		return defaultExt, nil
	}
	return ext, nil
}
