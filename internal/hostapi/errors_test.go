package hostapi

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"testing"
)

// timeoutError implements net.Error with Timeout() = true
type timeoutError struct{}

func (e *timeoutError) Error() string   { return "i/o timeout" }
func (e *timeoutError) Timeout() bool   { return true }
func (e *timeoutError) Temporary() bool { return true }

func TestClassifyNetworkError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantType  ErrorType
		retryable bool
	}{
		{
			name: "timeout",
			err: &url.Error{Op: "Get", URL: "http://octopi.local", Err: &net.OpError{
				Op: "dial", Net: "tcp", Err: &timeoutError{},
			}},
			wantType:  ErrTypeTimeout,
			retryable: true,
		},
		{
			name: "connection refused",
			err: &url.Error{Op: "Get", URL: "http://octopi.local", Err: &net.OpError{
				Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED,
			}},
			wantType:  ErrTypeConnectionRefused,
			retryable: true,
		},
		{
			name:      "dns",
			err:       &url.Error{Op: "Get", URL: "http://octopi.local", Err: &net.DNSError{Name: "octopi.local", Err: "no such host"}},
			wantType:  ErrTypeDNS,
			retryable: false,
		},
		{
			name:      "generic",
			err:       errors.New("connection reset"),
			wantType:  ErrTypeNetwork,
			retryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hostErr := ClassifyNetworkError(tt.err)
			if hostErr == nil {
				t.Fatal("ClassifyNetworkError() = nil")
			}
			if hostErr.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", hostErr.Type, tt.wantType)
			}
			if hostErr.Retryable != tt.retryable {
				t.Errorf("Retryable = %v, want %v", hostErr.Retryable, tt.retryable)
			}
			if !errors.Is(hostErr, tt.err) {
				t.Error("original error not unwrappable")
			}
		})
	}

	if ClassifyNetworkError(nil) != nil {
		t.Error("ClassifyNetworkError(nil) should be nil")
	}
}

func TestHTTPErrorRetryable(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{http.StatusBadRequest, false},
		{http.StatusNotFound, false},
		{http.StatusInternalServerError, true},
		{http.StatusServiceUnavailable, true},
	}

	for _, tt := range tests {
		err := NewHTTPError(tt.status, "x")
		if IsRetryable(err) != tt.retryable {
			t.Errorf("IsRetryable(HTTP %d) = %v, want %v", tt.status, IsRetryable(err), tt.retryable)
		}
	}

	if IsRetryable(NewAuthError(http.StatusForbidden, "x")) {
		t.Error("auth errors must not be retryable")
	}
}

func TestPredicatesThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("lights_on: %w", NewAuthError(http.StatusUnauthorized, "bad key"))

	if !IsAuthError(wrapped) {
		t.Error("IsAuthError(wrapped) = false")
	}
	if IsHTTPError(wrapped) || IsParseError(wrapped) || IsNetworkError(wrapped) {
		t.Error("wrapped auth error matched another kind")
	}
	if IsAuthError(errors.New("plain")) {
		t.Error("IsAuthError(plain) = true")
	}
}

func TestGetTroubleshootingHint(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"plugin missing", NewHTTPError(http.StatusNotFound, "x"), "not installed"},
		{"server error", NewHTTPError(http.StatusInternalServerError, "x"), "octoprint.log"},
		{"auth", NewAuthError(http.StatusForbidden, "x"), "API key"},
		{"dns", &HostError{Type: ErrTypeDNS}, "IP address"},
		{"unknown", errors.New("x"), "unexpected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetTroubleshootingHint(tt.err); !strings.Contains(got, tt.want) {
				t.Errorf("GetTroubleshootingHint() = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestGetShortErrorMessage(t *testing.T) {
	if got := GetShortErrorMessage(&HostError{Type: ErrTypeTimeout}); got != "Host not responding (timeout)" {
		t.Errorf("GetShortErrorMessage(timeout) = %q", got)
	}
	if got := GetShortErrorMessage(errors.New("plain")); got != "plain" {
		t.Errorf("GetShortErrorMessage(plain) = %q, want plain", got)
	}
}
