package utils

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/Sriram-PR/page-fetcher/pkg/models"
)

// --- Sentinel Errors for Categorization ---
var (
	ErrInvalidInput        = errors.New("invalid input")        // Malformed URL or unsupported scheme
	ErrDisallowedHost      = errors.New("host not allowed")     // SSRF check rejected the host (incl. DNS failure)
	ErrTimeout             = errors.New("fetch timed out")      // Global budget exceeded
	ErrRendererUnavailable = errors.New("renderer unavailable") // Engine/session could not be acquired
	ErrNavigationFailed    = errors.New("navigation failed")    // Wraps the last navigation error
	ErrInternal            = errors.New("internal error")       // Unclassified failure
	ErrConfigValidation    = errors.New("configuration validation error")
)

// FetchError is the single error type returned across the fetch boundary.
// Err keeps the full chain for logs; callers only see Kind unless they ask for detail.
type FetchError struct {
	Kind models.ErrorKind
	Err  error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Detail returns the raw underlying error text
func (e *FetchError) Detail() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// StatusCode returns the HTTP status a route layer should map this error to
func (e *FetchError) StatusCode() int {
	return e.Kind.HTTPStatus()
}

// Public returns the caller-facing message. Detail is only attached for kinds that
// expose it, and only when verbose output was requested.
func (e *FetchError) Public(verbose bool) string {
	msg := e.Kind.String()
	if verbose && e.Kind.ExposesDetail() && e.Err != nil {
		msg += ": " + e.Detail()
	}
	return msg
}

// NewFetchError wraps err (which should already carry the matching sentinel) as kind
func NewFetchError(kind models.ErrorKind, err error) *FetchError {
	return &FetchError{Kind: kind, Err: err}
}

// Classify converts any error into a *FetchError. An existing *FetchError is returned as is;
// otherwise the kind is derived from the sentinel in the chain, defaulting to internal.
func Classify(err error) *FetchError {
	if err == nil {
		return nil
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	return &FetchError{Kind: KindOf(err), Err: err}
}

// KindOf returns the taxonomy entry for err based on the sentinels it wraps
func KindOf(err error) models.ErrorKind {
	switch {
	case err == nil:
		return models.ErrorKindUnset
	case errors.Is(err, ErrInvalidInput):
		return models.ErrorKindInvalidInput
	case errors.Is(err, ErrDisallowedHost):
		return models.ErrorKindDisallowedHost
	case errors.Is(err, ErrTimeout):
		return models.ErrorKindTimeout
	case errors.Is(err, ErrRendererUnavailable):
		return models.ErrorKindRendererUnavailable
	case errors.Is(err, ErrNavigationFailed):
		return models.ErrorKindNavigationFailed
	}
	return models.ErrorKindInternal
}

// CategorizeError maps an error to a predefined category string for logging.
func CategorizeError(err error) string {
	if err == nil {
		return "None"
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return "Input_InvalidURL"
	case errors.Is(err, ErrDisallowedHost):
		errMsg := err.Error()
		if strings.Contains(errMsg, "resolve") || strings.Contains(errMsg, "no such host") {
			return "Policy_DNSFailClosed"
		}
		if strings.Contains(errMsg, "localhost") {
			return "Policy_Localhost"
		}
		return "Policy_PrivateAddress"
	case errors.Is(err, ErrTimeout):
		return "Render_Timeout"
	case errors.Is(err, ErrRendererUnavailable):
		return "Render_Unavailable"
	case errors.Is(err, ErrNavigationFailed):
		// The last attempt's error is joined with the sentinel, so match on the full message
		lowerErrMsg := strings.ToLower(err.Error())
		switch {
		case strings.Contains(lowerErrMsg, "timeout") || strings.Contains(lowerErrMsg, "deadline exceeded"):
			return "Navigation_Timeout"
		case strings.Contains(lowerErrMsg, "net::err_name_not_resolved") || strings.Contains(lowerErrMsg, "no such host"):
			return "Navigation_DNSLookup"
		case strings.Contains(lowerErrMsg, "connection refused"):
			return "Navigation_ConnectionRefused"
		}
		return "Navigation_Other"
	case errors.Is(err, ErrConfigValidation):
		return "Config_Validation"
	}

	// --- Fallback checks for common underlying error types ---
	if errors.Is(err, context.Canceled) {
		return "System_ContextCanceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "System_ContextDeadlineExceeded"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "Network_Timeout"
	}
	if errors.Is(err, ErrInternal) {
		return "Internal"
	}

	return "Unknown"
}
