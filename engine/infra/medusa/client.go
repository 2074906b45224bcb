package medusa

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

	"github.com/charmbracelet/log"
	"github.com/compozy/storepulse/engine/core"
	pkgerrors "github.com/compozy/storepulse/pkg/errors"
	"github.com/compozy/storepulse/pkg/logger"
)

// Config configures the Admin API client
type Config struct {
	BaseURL    string
	APIKey     string
	PageSize   int
	Timeout    time.Duration
	// MaxRetries is the number of retries after the first attempt
	MaxRetries uint
	CartsPath  string
	// RetryDelay overrides the initial backoff delay
	RetryDelay time.Duration
}

// Client talks to the Medusa Admin API. Secret API keys are sent as the
// basic auth user name.
type Client struct {
	baseURL    *url.URL
	apiKey     string
	pageSize   int
	cartsPath  string
	httpClient *http.Client
	retry      *pkgerrors.RetryConfig
	logger     *log.Logger
}

// NewClient creates a new Admin API client
func NewClient(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, core.NewError(fmt.Errorf("invalid medusa base url %q", cfg.BaseURL), core.ErrorCodeConfigInvalid, nil)
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 200
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.CartsPath == "" {
		cfg.CartsPath = "/admin/carts"
	}

	retry := pkgerrors.DefaultRetryConfig()
	retry.MaxAttempts = cfg.MaxRetries + 1
	if cfg.RetryDelay > 0 {
		retry.InitialDelay = cfg.RetryDelay
		retry.MaxDelay = 10 * cfg.RetryDelay
	}

	return &Client{
		baseURL:   base,
		apiKey:    cfg.APIKey,
		pageSize:  cfg.PageSize,
		cartsPath: "/" + strings.TrimLeft(cfg.CartsPath, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		retry:  retry,
		logger: logger.With("component", "medusa"),
	}, nil
}

// get fetches path and decodes the JSON body into out, retrying transient
// failures.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return pkgerrors.WithRetry(ctx, "medusa GET "+path, c.retry, func() error {
		return c.do(ctx, path, query, out)
	})
}

func (c *Client) do(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.baseURL.JoinPath(path)
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.SetBasicAuth(c.apiKey, "")
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return core.NewError(fmt.Errorf("request failed: %w", err), core.ErrorCodeSourceUnavailable, map[string]any{
			"path": path,
		})
	}
	defer resp.Body.Close()

	c.logger.Debug("medusa request", "path", path, "status", resp.StatusCode, "duration", time.Since(started))

	if resp.StatusCode != http.StatusOK {
		return statusError(path, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return core.NewError(fmt.Errorf("failed to decode response: %w", err), core.ErrorCodeQueryFailed, map[string]any{
			"path": path,
		})
	}
	return nil
}

func statusError(path string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	message := strings.TrimSpace(string(body))
	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Message != "" {
		message = payload.Message
	}
	err := fmt.Errorf("request failed with status %d: %s", resp.StatusCode, message)
	metadata := map[string]any{"path": path, "status": resp.StatusCode}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return core.NewError(err, core.ErrorCodeNotFound, metadata)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return core.NewError(err, core.ErrorCodeSourceUnavailable, metadata)
	default:
		return core.NewError(err, core.ErrorCodeQueryFailed, metadata)
	}
}

// list pages through a collection endpoint until limit items were read or
// the collection is exhausted. A zero limit reads everything.
func list[T any](
	ctx context.Context,
	c *Client,
	path, key string,
	query url.Values,
	limit, offset int,
) ([]T, error) {
	items := make([]T, 0)
	for {
		pageSize := c.pageSize
		if limit > 0 && limit-len(items) < pageSize {
			pageSize = limit - len(items)
		}
		q := cloneValues(query)
		q.Set("limit", fmt.Sprint(pageSize))
		q.Set("offset", fmt.Sprint(offset))

		var body map[string]json.RawMessage
		if err := c.get(ctx, path, q, &body); err != nil {
			return nil, collectionError(path, err)
		}
		var page []T
		if raw, ok := body[key]; ok {
			if err := json.Unmarshal(raw, &page); err != nil {
				return nil, core.NewError(fmt.Errorf("failed to decode %s: %w", key, err), core.ErrorCodeQueryFailed, nil)
			}
		}
		count := -1
		if raw, ok := body["count"]; ok {
			_ = json.Unmarshal(raw, &count)
		}

		items = append(items, page...)
		offset += len(page)
		if len(page) == 0 || (limit > 0 && len(items) >= limit) {
			return items, nil
		}
		if count >= 0 {
			if offset >= count {
				return items, nil
			}
			continue
		}
		if len(page) < pageSize {
			return items, nil
		}
	}
}

// collectionError reports a missing collection route as a failed query.
// NOT_FOUND is reserved for single entity lookups.
func collectionError(path string, err error) error {
	if core.CodeOf(err) != core.ErrorCodeNotFound {
		return err
	}
	return core.NewError(
		fmt.Errorf("collection %s is not available: %s", path, core.MessageOf(err)),
		core.ErrorCodeQueryFailed,
		map[string]any{"path": path},
	)
}

// retrieve fetches a single entity wrapped under key
func retrieve[T any](ctx context.Context, c *Client, path, key string, query url.Values) (*T, error) {
	var body map[string]json.RawMessage
	if err := c.get(ctx, path, query, &body); err != nil {
		return nil, err
	}
	raw, ok := body[key]
	if !ok || string(raw) == "null" {
		return nil, core.NewError(fmt.Errorf("%s not found", key), core.ErrorCodeNotFound, map[string]any{"path": path})
	}
	var item T
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, core.NewError(fmt.Errorf("failed to decode %s: %w", key, err), core.ErrorCodeQueryFailed, nil)
	}
	return &item, nil
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v)+2)
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}

// queryFailed tags err with QUERY_FAILED unless it already is a lookup miss
func queryFailed(entity string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if code := core.CodeOf(err); code == core.ErrorCodeNotFound || code == core.ErrorCodeQueryFailed {
		return err
	}
	return core.NewError(fmt.Errorf("failed to fetch %s: %w", entity, err), core.ErrorCodeQueryFailed, map[string]any{
		"entity": entity,
	})
}
