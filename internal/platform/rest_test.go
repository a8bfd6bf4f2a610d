package platform

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/diamondburned/arikawa/v3/utils/httputil"
	"github.com/stretchr/testify/assert"
)

var (
	_ Client        = (*RESTClient)(nil)
	_ MemberBrowser = (*RESTClient)(nil)
)

func TestRetryAfter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		err         error
		wantWait    time.Duration
		wantLimited bool
	}{
		{
			name:        "plain error is not a rate limit",
			err:         errors.New("connection reset"),
			wantLimited: false,
		},
		{
			name:        "http error with other status",
			err:         &httputil.HTTPError{Status: http.StatusForbidden},
			wantLimited: false,
		},
		{
			name:        "rate limit with retry_after body",
			err:         &httputil.HTTPError{Status: http.StatusTooManyRequests, Body: []byte(`{"retry_after": 2.5}`)},
			wantWait:    2500 * time.Millisecond,
			wantLimited: true,
		},
		{
			name:        "rate limit with unparseable body falls back to default",
			err:         &httputil.HTTPError{Status: http.StatusTooManyRequests, Body: []byte("slow down")},
			wantWait:    defaultRetryAfter,
			wantLimited: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			wait, limited := retryAfter(tt.err)
			assert.Equal(t, tt.wantLimited, limited)

			if tt.wantLimited {
				assert.Equal(t, tt.wantWait, wait)
			}
		})
	}
}
