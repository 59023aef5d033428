package orchestrate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/page-fetcher/pkg/render"
	"github.com/Sriram-PR/page-fetcher/pkg/utils"
)

func TestRetryingNavigator(t *testing.T) {
	errBoom := errors.New("net::ERR_CONNECTION_RESET")
	errFinal := errors.New("net::ERR_TIMED_OUT")

	tests := []struct {
		name      string
		navErrs   []error
		wantErr   error
		wantCalls int32
	}{
		{name: "first attempt succeeds", wantCalls: 1},
		{name: "fails once then succeeds", navErrs: []error{errBoom}, wantCalls: 2},
		{name: "fails twice", navErrs: []error{errBoom, errFinal}, wantErr: errFinal, wantCalls: 2},
		{name: "never a third attempt", navErrs: []error{errBoom, errBoom, errBoom}, wantErr: errBoom, wantCalls: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := &fakeSession{navErrs: tt.navErrs}
			nav := NewRetryingNavigator(time.Millisecond, render.ReadinessNetworkIdle, testLogger())

			err := nav.Navigate(context.Background(), session, "https://example.com")

			assert.Equal(t, tt.wantCalls, session.navigations.Load())
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, utils.ErrNavigationFailed)
			assert.ErrorIs(t, err, tt.wantErr, "final attempt's error is propagated")
		})
	}
}

func TestRetryingNavigator_FlatDelay(t *testing.T) {
	session := &fakeSession{navErrs: []error{errors.New("boom")}}
	nav := NewRetryingNavigator(60*time.Millisecond, render.ReadinessLoad, testLogger())

	start := time.Now()
	require.NoError(t, nav.Navigate(context.Background(), session, "https://example.com"))

	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
	assert.Equal(t, render.ReadinessLoad, session.readiness, "readiness is passed through")
}

func TestRetryingNavigator_CancelledDuringDelay(t *testing.T) {
	session := &fakeSession{navErrs: []error{errors.New("boom")}}
	nav := NewRetryingNavigator(time.Hour, render.ReadinessNetworkIdle, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := nav.Navigate(ctx, session, "https://example.com")

	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrNavigationFailed)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, int32(1), session.navigations.Load())
}

func TestRetryingNavigator_ErrorIsCategorized(t *testing.T) {
	tests := []struct {
		name   string
		navErr error
		want   string
	}{
		{"dns", errors.New("goto https://example.com: net::ERR_NAME_NOT_RESOLVED"), "Navigation_DNSLookup"},
		{"refused", errors.New("dial tcp 93.184.216.34:443: connect: connection refused"), "Navigation_ConnectionRefused"},
		{"nav timeout", errors.New("Timeout 18000ms exceeded"), "Navigation_Timeout"},
		{"other", errors.New("net::ERR_ABORTED"), "Navigation_Other"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := &fakeSession{navErrs: []error{tt.navErr, tt.navErr}}
			nav := NewRetryingNavigator(time.Millisecond, render.ReadinessNetworkIdle, testLogger())

			err := nav.Navigate(context.Background(), session, "https://example.com")

			require.Error(t, err)
			assert.Equal(t, tt.want, utils.CategorizeError(err))
		})
	}
}
