package models

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKind_String(t *testing.T) {
	assert.Equal(t, "unset", ErrorKindUnset.String())
	assert.Equal(t, "timeout", ErrorKindTimeout.String())
	assert.Equal(t, "disallowed_host", ErrorKindDisallowedHost.String())
}

func TestErrorKind_IsValid(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want bool
	}{
		{ErrorKindUnset, false},
		{ErrorKindInvalidInput, true},
		{ErrorKindDisallowedHost, true},
		{ErrorKindTimeout, true},
		{ErrorKindRendererUnavailable, true},
		{ErrorKindNavigationFailed, true},
		{ErrorKindInternal, true},
		{ErrorKind("bogus"), false},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.IsValid())
		})
	}
}

func TestErrorKind_HTTPStatus(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want int
	}{
		{ErrorKindInvalidInput, http.StatusBadRequest},
		{ErrorKindDisallowedHost, http.StatusBadRequest},
		{ErrorKindTimeout, http.StatusGatewayTimeout},
		{ErrorKindRendererUnavailable, http.StatusInternalServerError},
		{ErrorKindNavigationFailed, http.StatusInternalServerError},
		{ErrorKindInternal, http.StatusInternalServerError},
		{ErrorKindUnset, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.HTTPStatus())
		})
	}
}

func TestErrorKind_ExposesDetail(t *testing.T) {
	assert.True(t, ErrorKindNavigationFailed.ExposesDetail())
	assert.True(t, ErrorKindInternal.ExposesDetail())
	assert.False(t, ErrorKindDisallowedHost.ExposesDetail())
	assert.False(t, ErrorKindTimeout.ExposesDetail())
	assert.False(t, ErrorKindRendererUnavailable.ExposesDetail())
}

func TestModeFromFlag(t *testing.T) {
	assert.Equal(t, ModeSummary, ModeFromFlag(false))
	assert.Equal(t, ModeFullContent, ModeFromFlag(true))
	assert.Equal(t, "summary", ModeSummary.String())
	assert.Equal(t, "full_content", ModeFullContent.String())
	assert.Equal(t, "unknown", Mode(42).String())
}
