package httpx

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

type statusErr int

func (e statusErr) Error() string       { return "status error" }
func (e statusErr) HTTPStatusCode() int { return int(e) }

func TestIsRetryableHTTPStatus(t *testing.T) {
	retryable := []int{408, 429, 500, 502, 503, 599}
	for _, code := range retryable {
		if !IsRetryableHTTPStatus(code) {
			t.Fatalf("status %d should be retryable", code)
		}
	}
	final := []int{200, 301, 400, 401, 403, 404}
	for _, code := range final {
		if IsRetryableHTTPStatus(code) {
			t.Fatalf("status %d should not be retryable", code)
		}
	}
}

func TestIsRetryableError(t *testing.T) {
	if IsRetryableError(nil) {
		t.Fatalf("nil error is not retryable")
	}
	if !IsRetryableError(context.DeadlineExceeded) {
		t.Fatalf("deadline exceeded is retryable")
	}
	if !IsRetryableError(statusErr(503)) {
		t.Fatalf("503 carrier is retryable")
	}
	if IsRetryableError(statusErr(404)) {
		t.Fatalf("404 carrier is not retryable")
	}
	if IsRetryableError(errors.New("opaque")) {
		t.Fatalf("opaque error is not retryable")
	}
}

func TestRetryAfterDuration(t *testing.T) {
	if got := RetryAfterDuration(nil, time.Second, 5*time.Second); got != time.Second {
		t.Fatalf("nil response: %v, want fallback", got)
	}

	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set("Retry-After", "3")
	if got := RetryAfterDuration(resp, time.Second, 5*time.Second); got != 3*time.Second {
		t.Fatalf("Retry-After: %v, want 3s", got)
	}

	resp.Header.Set("Retry-After", "60")
	if got := RetryAfterDuration(resp, time.Second, 5*time.Second); got != 5*time.Second {
		t.Fatalf("capped: %v, want 5s", got)
	}

	resp.Header.Set("Retry-After", "soon")
	if got := RetryAfterDuration(resp, time.Second, 5*time.Second); got != time.Second {
		t.Fatalf("unparseable header: %v, want fallback", got)
	}
}

func TestJitterSleep_StaysNearBase(t *testing.T) {
	if got := JitterSleep(0); got != 0 {
		t.Fatalf("zero base: %v", got)
	}
	base := time.Second
	for i := 0; i < 50; i++ {
		got := JitterSleep(base)
		if got < 800*time.Millisecond || got > 1200*time.Millisecond {
			t.Fatalf("jitter %v outside +/-20%% of base", got)
		}
	}
}
