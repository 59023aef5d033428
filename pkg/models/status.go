package models

import "net/http"

// ErrorKind classifies a failed fetch
type ErrorKind string

const (
	ErrorKindUnset               ErrorKind = ""                     // Zero value = unclassified
	ErrorKindInvalidInput        ErrorKind = "invalid_input"        // Malformed URL or disallowed scheme
	ErrorKindDisallowedHost      ErrorKind = "disallowed_host"      // Failed the SSRF safety check (incl. DNS failure)
	ErrorKindTimeout             ErrorKind = "timeout"              // Global fetch budget exceeded
	ErrorKindRendererUnavailable ErrorKind = "renderer_unavailable" // Engine or session could not be acquired
	ErrorKindNavigationFailed    ErrorKind = "navigation_failed"    // All navigation attempts failed
	ErrorKindInternal            ErrorKind = "internal"             // Anything not classified above
)

// String implements fmt.Stringer for logging
func (k ErrorKind) String() string {
	if k == "" {
		return "unset"
	}
	return string(k)
}

// IsValid returns true if the kind is a known classification
func (k ErrorKind) IsValid() bool {
	switch k {
	case ErrorKindInvalidInput, ErrorKindDisallowedHost, ErrorKindTimeout,
		ErrorKindRendererUnavailable, ErrorKindNavigationFailed, ErrorKindInternal:
		return true
	}
	return false
}

// HTTPStatus returns the status code a route layer should answer with for this kind
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case ErrorKindInvalidInput, ErrorKindDisallowedHost:
		return http.StatusBadRequest
	case ErrorKindTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// ExposesDetail reports whether verbose callers may see the raw error detail
func (k ErrorKind) ExposesDetail() bool {
	return k == ErrorKindNavigationFailed || k == ErrorKindInternal || k == ErrorKindUnset
}
