package hostapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const testAPIKey = "0123456789ABCDEF"

// newTestClient points a client at server with fast retries
func newTestClient(server *httptest.Server) *Client {
	client := NewClient(server.URL, testAPIKey)
	client.SetRetry(2, 5*time.Millisecond)
	return client
}

func TestNewClient(t *testing.T) {
	client := NewClient("http://octopi.local/", "key")

	if client.BaseURL != "http://octopi.local" {
		t.Errorf("BaseURL = %s, want http://octopi.local", client.BaseURL)
	}
	if client.PluginID != DefaultPluginID {
		t.Errorf("PluginID = %s, want %s", client.PluginID, DefaultPluginID)
	}
	if client.HTTPClient == nil {
		t.Error("HTTPClient should not be nil")
	}
	if client.PluginURL() != "http://octopi.local/api/plugin/ws281x_led_status" {
		t.Errorf("PluginURL() = %s", client.PluginURL())
	}
}

func TestSetTimeoutAndRetry(t *testing.T) {
	client := NewClient("http://octopi.local", "key")
	client.SetTimeout(5 * time.Second)
	client.SetRetry(5, 2*time.Second)

	if client.HTTPClient.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", client.HTTPClient.Timeout)
	}
	if client.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", client.MaxRetries)
	}
	if client.RetryDelay != 2*time.Second {
		t.Errorf("RetryDelay = %v, want 2s", client.RetryDelay)
	}
}

func TestCommand(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/api/plugin/ws281x_led_status" {
			t.Errorf("Path = %s", r.URL.Path)
		}
		if r.Header.Get(APIKeyHeader) != testAPIKey {
			t.Errorf("%s = %q, want %q", APIKeyHeader, r.Header.Get(APIKeyHeader), testAPIKey)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type = %q", r.Header.Get("Content-Type"))
		}

		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		_, _ = w.Write([]byte(`{"lights_on": true, "torch_on": false}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	data, err := client.Command(context.Background(), CmdWizEnableSPI, map[string]any{
		"password": "raspberry",
		"command":  "ignored",
	})
	if err != nil {
		t.Fatalf("Command() error = %v", err)
	}

	if got["command"] != CmdWizEnableSPI {
		t.Errorf("command = %v, want %s", got["command"], CmdWizEnableSPI)
	}
	if got["password"] != "raspberry" {
		t.Errorf("password = %v, want raspberry", got["password"])
	}
	if string(data) != `{"lights_on": true, "torch_on": false}` {
		t.Errorf("response = %s", data)
	}
}

func TestCommandNoContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	data, err := newTestClient(server).Command(context.Background(), CmdTestOSConfig, nil)
	if err != nil {
		t.Fatalf("Command() error = %v", err)
	}
	if data != nil {
		t.Errorf("data = %q, want nil", data)
	}
}

func TestCommandNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(server).Command(context.Background(), CmdLightsOn, nil)
	if !IsHTTPError(err) {
		t.Fatalf("Command() error = %v, want HTTP error", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("requests = %d, want 1", n)
	}
}

func TestCommandEmptyName(t *testing.T) {
	client := NewClient("http://octopi.local", "key")
	_, err := client.Command(context.Background(), "", nil)

	var hostErr *HostError
	if !errors.As(err, &hostErr) || hostErr.Type != ErrTypeValidation {
		t.Errorf("Command(\"\") error = %v, want validation error", err)
	}
}

func TestStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("Method = %s, want GET", r.Method)
		}
		_, _ = w.Write([]byte(`{"lights_on": false, "torch_on": true}`))
	}))
	defer server.Close()

	status, err := newTestClient(server).Status(context.Background())
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.LightsOn || !status.TorchOn {
		t.Errorf("Status() = %+v, want lights off torch on", status)
	}
}

func TestStatusRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"lights_on": true, "torch_on": false}`))
	}))
	defer server.Close()

	status, err := newTestClient(server).Status(context.Background())
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if !status.LightsOn {
		t.Error("LightsOn = false, want true")
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("requests = %d, want 3", n)
	}
}

func TestStatusErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
		tries  int32
	}{
		{"unauthorized", http.StatusForbidden, "", IsAuthError, 1},
		{"plugin missing", http.StatusNotFound, "not found", IsHTTPError, 1},
		{"bad json", http.StatusOK, "{", IsParseError, 1},
		{"server error", http.StatusInternalServerError, "", IsHTTPError, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestClient(server).Status(context.Background())
			if !tt.check(err) {
				t.Errorf("Status() error = %v, wrong kind", err)
			}
			if n := atomic.LoadInt32(&calls); n != tt.tries {
				t.Errorf("requests = %d, want %d", n, tt.tries)
			}
		})
	}
}

func TestStatusContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(server)
	client.SetRetry(5, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.Status(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Status() error = %v, want deadline exceeded", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("retry wait ignored the context")
	}
}

func TestWizardDetails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/setup/wizard" {
			t.Errorf("Path = %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{
			"corewizard": {"details": {}},
			"ws281x_led_status": {"details": {"adduser_done": {"passed": true}}, "required": true}
		}`))
	}))
	defer server.Close()

	details, err := newTestClient(server).WizardDetails(context.Background())
	if err != nil {
		t.Fatalf("WizardDetails() error = %v", err)
	}
	if string(details) != `{"adduser_done": {"passed": true}}` {
		t.Errorf("details = %s", details)
	}
}

func TestWizardDetailsAbsent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"corewizard": {"details": {}}}`))
	}))
	defer server.Close()

	details, err := newTestClient(server).WizardDetails(context.Background())
	if err != nil {
		t.Fatalf("WizardDetails() error = %v", err)
	}
	if details != nil {
		t.Errorf("details = %s, want nil", details)
	}
}

func TestLogin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/login" {
			t.Errorf("Path = %s", r.URL.Path)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["passive"] != true {
			t.Errorf("passive = %v, want true", body["passive"])
		}
		_, _ = w.Write([]byte(`{"name": "pi", "session": "s3ss10n", "admin": true}`))
	}))
	defer server.Close()

	session, err := newTestClient(server).Login(context.Background())
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if session.AuthToken() != "pi:s3ss10n" {
		t.Errorf("AuthToken() = %s, want pi:s3ss10n", session.AuthToken())
	}
}

func TestLoginNoSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	if _, err := newTestClient(server).Login(context.Background()); !IsAuthError(err) {
		t.Errorf("Login() error = %v, want auth error", err)
	}
}

func TestPluginSettingsCached(t *testing.T) {
	var gets, posts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/settings" {
			t.Errorf("Path = %s", r.URL.Path)
		}
		switch r.Method {
		case http.MethodGet:
			atomic.AddInt32(&gets, 1)
			_, _ = w.Write([]byte(`{"plugins": {"ws281x_led_status": {"strip": {"count": 24}}}}`))
		case http.MethodPost:
			atomic.AddInt32(&posts, 1)
			var body struct {
				Plugins map[string]map[string]any `json:"plugins"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			if _, ok := body.Plugins[DefaultPluginID]["custom"]; !ok {
				t.Errorf("posted body lacks plugins.%s.custom", DefaultPluginID)
			}
			_, _ = w.Write([]byte(`{}`))
		}
	}))
	defer server.Close()

	client := newTestClient(server)

	var settings struct {
		Strip struct {
			Count int `json:"count"`
		} `json:"strip"`
	}
	for i := 0; i < 2; i++ {
		if err := client.PluginSettings(context.Background(), &settings); err != nil {
			t.Fatalf("PluginSettings() error = %v", err)
		}
	}
	if settings.Strip.Count != 24 {
		t.Errorf("strip count = %d, want 24", settings.Strip.Count)
	}
	if n := atomic.LoadInt32(&gets); n != 1 {
		t.Errorf("GET requests = %d, want 1 (cached)", n)
	}

	if err := client.SavePluginSettings(context.Background(), map[string]any{"custom": map[string]any{}}); err != nil {
		t.Fatalf("SavePluginSettings() error = %v", err)
	}
	if n := atomic.LoadInt32(&posts); n != 1 {
		t.Errorf("POST requests = %d, want 1", n)
	}

	_ = client.PluginSettings(context.Background(), &settings)
	if n := atomic.LoadInt32(&gets); n != 2 {
		t.Errorf("GET requests after save = %d, want 2", n)
	}
}

func TestPluginSettingsMissing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"plugins": {}}`))
	}))
	defer server.Close()

	var v map[string]any
	err := newTestClient(server).PluginSettings(context.Background(), &v)
	if !IsHTTPError(err) {
		t.Errorf("PluginSettings() error = %v, want HTTP error", err)
	}
}
