package hostapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bluele/gcache"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/muurk/ledstatus/internal/logging"
	"github.com/muurk/ledstatus/internal/version"
)

const (
	// DefaultPluginID is the identifier the LED status plugin registers with the host
	DefaultPluginID = "ws281x_led_status"

	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 10 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for idempotent requests
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the default delay between retry attempts
	DefaultRetryDelay = 1 * time.Second

	// DefaultMaxRetryDelay is the maximum delay for exponential backoff
	DefaultMaxRetryDelay = 30 * time.Second

	// DefaultCacheDuration is how long a settings snapshot stays valid
	DefaultCacheDuration = 30 * time.Second

	// APIKeyHeader carries the application key on every request
	APIKeyHeader = "X-Api-Key"
)

const settingsCacheKey = "settings"

// Client talks to the host's REST API on behalf of one plugin.
// Commands go through the host's "simple API" (POST /api/plugin/<id>),
// which is the only write path the plugin exposes.
type Client struct {
	// BaseURL is the host root (e.g., "http://octopi.local")
	BaseURL string

	// APIKey is the host application key sent as X-Api-Key
	APIKey string

	// PluginID selects the plugin endpoint (default: ws281x_led_status)
	PluginID string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// MaxRetries is the maximum number of retry attempts for GET requests
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts
	RetryDelay time.Duration

	// MaxRetryDelay is the maximum delay for exponential backoff
	MaxRetryDelay time.Duration

	// UseExponentialBackoff doubles the delay after every failed attempt
	UseExponentialBackoff bool

	// CacheDuration is how long to cache the settings snapshot (0 = no cache)
	CacheDuration time.Duration

	cache   gcache.Cache
	fetches singleflight.Group
}

// NewClient creates a host API client for the LED status plugin
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL:               strings.TrimRight(baseURL, "/"),
		APIKey:                apiKey,
		PluginID:              DefaultPluginID,
		HTTPClient:            &http.Client{Timeout: DefaultTimeout},
		MaxRetries:            DefaultMaxRetries,
		RetryDelay:            DefaultRetryDelay,
		MaxRetryDelay:         DefaultMaxRetryDelay,
		UseExponentialBackoff: true,
		CacheDuration:         DefaultCacheDuration,
		cache:                 gcache.New(8).LRU().Build(),
	}
}

// SetTimeout sets the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// SetRetry configures retry behavior
func (c *Client) SetRetry(maxRetries int, retryDelay time.Duration) {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
}

// PluginURL returns the simple API endpoint for the plugin
func (c *Client) PluginURL() string {
	return fmt.Sprintf("%s/api/plugin/%s", c.BaseURL, c.PluginID)
}

// Command issues a named simple-API command with an optional payload.
// Commands are never retried: the host may already have acted on them.
// The raw response body is returned for the caller to decode.
func (c *Client) Command(ctx context.Context, command string, payload map[string]any) ([]byte, error) {
	if command == "" {
		return nil, NewValidationError("command name must not be empty")
	}

	body := map[string]any{"command": command}
	for k, v := range payload {
		if k == "command" {
			continue
		}
		body[k] = v
	}

	requestID := uuid.NewString()
	logging.LogCommand(requestID, c.PluginID, command)

	data, err := c.do(ctx, http.MethodPost, c.PluginURL(), body)
	if err != nil {
		logging.Warn("Command failed",
			zap.String("request_id", requestID),
			zap.String("command", command),
			zap.Error(err),
		)
		return nil, err
	}

	logging.Debug("Command response",
		zap.String("request_id", requestID),
		zap.String("command", command),
		zap.ByteString("body", data),
	)
	return data, nil
}

// Status performs the plugin's status GET ({lights_on, torch_on})
func (c *Client) Status(ctx context.Context) (*PluginStatus, error) {
	var status PluginStatus
	err := c.withRetry(ctx, func() error {
		data, err := c.do(ctx, http.MethodGet, c.PluginURL(), nil)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(data, &status); err != nil {
			return NewParseError("failed to parse status response", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// WizardDetails returns the plugin's wizard details block from GET /api/setup/wizard.
// The block is returned raw so that callers can merge whichever flags it contains.
func (c *Client) WizardDetails(ctx context.Context) ([]byte, error) {
	var details []byte
	err := c.withRetry(ctx, func() error {
		data, err := c.do(ctx, http.MethodGet, c.BaseURL+"/api/setup/wizard", nil)
		if err != nil {
			return err
		}

		var wizards map[string]struct {
			Details json.RawMessage `json:"details"`
		}
		if err := json.Unmarshal(data, &wizards); err != nil {
			return NewParseError("failed to parse wizard response", err)
		}

		entry, ok := wizards[c.PluginID]
		if !ok {
			details = nil
			return nil
		}
		details = entry.Details
		return nil
	})
	return details, err
}

// Login performs a passive login with the API key and returns the session
// used to authenticate the push channel.
func (c *Client) Login(ctx context.Context) (*Session, error) {
	data, err := c.do(ctx, http.MethodPost, c.BaseURL+"/api/login", map[string]any{"passive": true})
	if err != nil {
		return nil, err
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, NewParseError("failed to parse login response", err)
	}
	if session.Name == "" || session.Session == "" {
		return nil, NewAuthError(http.StatusForbidden, "login returned no session")
	}
	return &session, nil
}

// PluginSettings decodes the plugin's section of GET /api/settings into v.
// The settings snapshot is cached for CacheDuration.
func (c *Client) PluginSettings(ctx context.Context, v any) error {
	raw, err := c.pluginSettingsRaw(ctx)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return NewHTTPError(http.StatusNotFound, fmt.Sprintf("no settings for plugin %s", c.PluginID))
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return NewParseError("failed to parse plugin settings", err)
	}
	return nil
}

func (c *Client) pluginSettingsRaw(ctx context.Context) (json.RawMessage, error) {
	if c.CacheDuration > 0 {
		if cached, err := c.cache.Get(settingsCacheKey); err == nil {
			return cached.(json.RawMessage), nil
		}
	}

	// Concurrent callers on a cold cache share one request
	v, err, _ := c.fetches.Do(settingsCacheKey, func() (any, error) {
		return c.fetchPluginSettings(ctx)
	})
	if err != nil {
		return nil, err
	}
	section := v.(json.RawMessage)

	if c.CacheDuration > 0 && len(section) > 0 {
		_ = c.cache.SetWithExpire(settingsCacheKey, section, c.CacheDuration)
	}
	return section, nil
}

func (c *Client) fetchPluginSettings(ctx context.Context) (json.RawMessage, error) {
	var section json.RawMessage
	err := c.withRetry(ctx, func() error {
		data, err := c.do(ctx, http.MethodGet, c.BaseURL+"/api/settings", nil)
		if err != nil {
			return err
		}

		var settings struct {
			Plugins map[string]json.RawMessage `json:"plugins"`
		}
		if err := json.Unmarshal(data, &settings); err != nil {
			return NewParseError("failed to parse settings response", err)
		}
		section = settings.Plugins[c.PluginID]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return section, nil
}

// SavePluginSettings writes v as the plugin's settings section
// (POST /api/settings {"plugins": {"<id>": v}}) and invalidates the cache.
func (c *Client) SavePluginSettings(ctx context.Context, v any) error {
	body := map[string]any{
		"plugins": map[string]any{c.PluginID: v},
	}
	if _, err := c.do(ctx, http.MethodPost, c.BaseURL+"/api/settings", body); err != nil {
		return err
	}
	c.InvalidateCache()
	return nil
}

// InvalidateCache drops the cached settings snapshot
func (c *Client) InvalidateCache() {
	c.cache.Remove(settingsCacheKey)
}

// withRetry runs fn until it succeeds, returns a non-retryable error,
// exhausts MaxRetries or ctx is done.
func (c *Client) withRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	currentDelay := c.RetryDelay

	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(currentDelay):
			}

			if c.UseExponentialBackoff {
				currentDelay *= 2
				if currentDelay > c.MaxRetryDelay {
					currentDelay = c.MaxRetryDelay
				}
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}
		logging.Debug("Retrying host request",
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}

	return lastErr
}

// do performs a single request and returns the response body
func (c *Client) do(ctx context.Context, method, url string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, NewValidationError(fmt.Sprintf("failed to encode request: %v", err))
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, NewNetworkError(fmt.Sprintf("failed to create %s request", method), err)
	}
	req.Header.Set("User-Agent", version.UserAgent())
	if c.APIKey != "" {
		req.Header.Set(APIKeyHeader, c.APIKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, NewNetworkError(fmt.Sprintf("%s %s failed", method, url), err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewNetworkError("failed to read response body", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, NewAuthError(resp.StatusCode, "host rejected credentials (check API key)")
	case resp.StatusCode == http.StatusNoContent:
		return nil, nil
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, NewHTTPError(resp.StatusCode, fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(data))))
	}

	return data, nil
}
