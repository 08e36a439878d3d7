package hostapi

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error (connection reset, unreachable, etc.)
	ErrTypeNetwork ErrorType = iota
	// ErrTypeAuth indicates the host rejected the API key
	ErrTypeAuth
	// ErrTypeHTTP indicates an HTTP-level error (unexpected status code)
	ErrTypeHTTP
	// ErrTypeParse indicates the host returned a body we could not decode
	ErrTypeParse
	// ErrTypeValidation indicates a request we refused to send
	ErrTypeValidation
	// ErrTypeTimeout indicates a request timeout
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates the host refused the connection
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates a DNS resolution failure
	ErrTypeDNS
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeAuth:
		return "Authentication Error"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeParse:
		return "Parse Error"
	case ErrTypeValidation:
		return "Validation Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// HostError represents an error that occurred while talking to the host API
type HostError struct {
	Type       ErrorType // Category of error
	Message    string    // Human-readable error message
	StatusCode int       // HTTP status code (if applicable)
	Err        error     // Underlying error (if any)
	Retryable  bool      // Whether the request may be retried
}

// Error implements the error interface
func (e *HostError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *HostError) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError analyzes a transport error and returns a typed HostError
func ClassifyNetworkError(err error) *HostError {
	if err == nil {
		return nil
	}

	if os.IsTimeout(err) {
		return &HostError{
			Type:      ErrTypeTimeout,
			Message:   "request timed out",
			Err:       err,
			Retryable: true,
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &HostError{
			Type:      ErrTypeDNS,
			Message:   fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name),
			Err:       err,
			Retryable: false,
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.ECONNREFUSED) {
		return &HostError{
			Type:      ErrTypeConnectionRefused,
			Message:   "host refused connection",
			Err:       err,
			Retryable: true,
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != err {
		return ClassifyNetworkError(urlErr.Err)
	}

	return &HostError{
		Type:      ErrTypeNetwork,
		Message:   "network error occurred",
		Err:       err,
		Retryable: true,
	}
}

// NewNetworkError creates a network-level error with automatic classification
func NewNetworkError(message string, err error) *HostError {
	classified := ClassifyNetworkError(err)
	if classified == nil {
		return &HostError{Type: ErrTypeNetwork, Message: message, Retryable: true}
	}
	classified.Message = message
	return classified
}

// NewAuthError creates an authentication error
func NewAuthError(statusCode int, message string) *HostError {
	return &HostError{
		Type:       ErrTypeAuth,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  false,
	}
}

// NewHTTPError creates an HTTP-level error
func NewHTTPError(statusCode int, message string) *HostError {
	return &HostError{
		Type:       ErrTypeHTTP,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  statusCode >= 500,
	}
}

// NewParseError creates a parsing error
func NewParseError(message string, err error) *HostError {
	return &HostError{
		Type:    ErrTypeParse,
		Message: message,
		Err:     err,
	}
}

// NewValidationError creates a validation error
func NewValidationError(message string) *HostError {
	return &HostError{
		Type:    ErrTypeValidation,
		Message: message,
	}
}

func asHostError(err error) (*HostError, bool) {
	var hostErr *HostError
	if errors.As(err, &hostErr) {
		return hostErr, true
	}
	return nil, false
}

// IsNetworkError checks if an error is a network error (including timeout, connection refused, DNS)
func IsNetworkError(err error) bool {
	if hostErr, ok := asHostError(err); ok {
		return hostErr.Type == ErrTypeNetwork ||
			hostErr.Type == ErrTypeTimeout ||
			hostErr.Type == ErrTypeConnectionRefused ||
			hostErr.Type == ErrTypeDNS
	}
	return false
}

// IsAuthError checks if an error is an authentication error
func IsAuthError(err error) bool {
	hostErr, ok := asHostError(err)
	return ok && hostErr.Type == ErrTypeAuth
}

// IsHTTPError checks if an error is an HTTP error
func IsHTTPError(err error) bool {
	hostErr, ok := asHostError(err)
	return ok && hostErr.Type == ErrTypeHTTP
}

// IsParseError checks if an error is a parse error
func IsParseError(err error) bool {
	hostErr, ok := asHostError(err)
	return ok && hostErr.Type == ErrTypeParse
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	hostErr, ok := asHostError(err)
	return ok && hostErr.Retryable
}

// GetTroubleshootingHint returns user-friendly troubleshooting advice for an error
func GetTroubleshootingHint(err error) string {
	hostErr, ok := asHostError(err)
	if !ok {
		return "An unexpected error occurred. Please try again."
	}

	switch hostErr.Type {
	case ErrTypeTimeout:
		return strings.Join([]string{
			"The host did not respond in time.",
			"Troubleshooting:",
			"  • Check that the printer host is powered on",
			"  • Verify OctoPrint is running (it can take a minute after boot)",
			"  • Try increasing the timeout duration",
		}, "\n")

	case ErrTypeConnectionRefused:
		return strings.Join([]string{
			"The host refused the connection.",
			"Troubleshooting:",
			"  • OctoPrint may be restarting - wait and retry",
			"  • Verify the port in the host URL (default is 80)",
		}, "\n")

	case ErrTypeDNS:
		return strings.Join([]string{
			"Could not resolve the host name.",
			"Troubleshooting:",
			"  • Use the IP address instead of the .local name",
			"  • Run 'ledstatus-cfg scan' to discover hosts",
		}, "\n")

	case ErrTypeAuth:
		return strings.Join([]string{
			"The host rejected the API key.",
			"Troubleshooting:",
			"  • Create an application key in OctoPrint's user settings",
			"  • Update the saved host with 'ledstatus-cfg hosts add'",
		}, "\n")

	case ErrTypeHTTP:
		if hostErr.StatusCode == http.StatusNotFound {
			return "The LED status plugin is not installed or not enabled on this host."
		}
		if hostErr.StatusCode >= 500 {
			return fmt.Sprintf("The host returned an internal error (HTTP %d). Check octoprint.log.", hostErr.StatusCode)
		}
		return fmt.Sprintf("The host returned HTTP error %d. Check the request parameters.", hostErr.StatusCode)

	case ErrTypeParse:
		return "The host's response could not be decoded. Check the plugin version."

	case ErrTypeValidation:
		return "The request was invalid. Check the error message for details."

	default:
		return strings.Join([]string{
			"Network communication failed.",
			"Troubleshooting:",
			"  • Check your network connection",
			"  • Verify the host URL",
		}, "\n")
	}
}

// GetShortErrorMessage returns a concise, user-friendly error message
func GetShortErrorMessage(err error) string {
	hostErr, ok := asHostError(err)
	if !ok {
		return err.Error()
	}

	switch hostErr.Type {
	case ErrTypeTimeout:
		return "Host not responding (timeout)"
	case ErrTypeConnectionRefused:
		return "Host refused connection"
	case ErrTypeDNS:
		return "Cannot resolve host name"
	case ErrTypeAuth:
		return "API key rejected"
	case ErrTypeNetwork:
		return "Network error - check connection"
	case ErrTypeHTTP:
		return fmt.Sprintf("Host error (HTTP %d)", hostErr.StatusCode)
	case ErrTypeParse:
		return "Failed to parse host response"
	default:
		return hostErr.Message
	}
}
