package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type fakeLimiter struct {
	counts map[string]int64
	err    error
}

func newFakeLimiter() *fakeLimiter {
	return &fakeLimiter{counts: map[string]int64{}}
}

func (f *fakeLimiter) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	if f.err != nil {
		return false, 0, f.err
	}
	f.counts[scope]++
	return f.counts[scope] <= limit, f.counts[scope], nil
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestWebhookRateLimit_BlocksOverLimit(t *testing.T) {
	limiter := newFakeLimiter()
	handler := WebhookRateLimit(limiter, 2, time.Minute, nil)(okHandler())

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/moyasar", strings.NewReader("{}"))
		req.RemoteAddr = "1.2.3.4:5678"
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if i < 2 && rec.Code != http.StatusOK {
			t.Fatalf("expected success before limit, got %d", rec.Code)
		}
		if i >= 2 {
			if rec.Code != http.StatusTooManyRequests {
				t.Fatalf("expected 429, got %d", rec.Code)
			}
			var payload struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
				t.Fatalf("decode error: %v", err)
			}
			if payload.Error.Code != "RATE_LIMITED" {
				t.Fatalf("unexpected error code %s", payload.Error.Code)
			}
		}
	}
}

func TestWebhookRateLimit_ScopesPerProviderAndIP(t *testing.T) {
	limiter := newFakeLimiter()
	handler := WebhookRateLimit(limiter, 1, time.Minute, nil)(okHandler())

	send := func(path, addr string) int {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader("{}"))
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("/webhooks/moyasar", "1.2.3.4:5678"); code != http.StatusOK {
		t.Fatalf("first request blocked: %d", code)
	}
	if code := send("/webhooks/moyasar", "1.2.3.4:5678"); code != http.StatusTooManyRequests {
		t.Fatalf("same scope must be limited, got %d", code)
	}
	if code := send("/webhooks/tabby", "1.2.3.4:5678"); code != http.StatusOK {
		t.Fatalf("other provider must have its own window, got %d", code)
	}
	if code := send("/webhooks/moyasar", "9.8.7.6:5678"); code != http.StatusOK {
		t.Fatalf("other source must have its own window, got %d", code)
	}
}

func TestWebhookRateLimit_LimiterFailureDoesNotBlock(t *testing.T) {
	limiter := newFakeLimiter()
	limiter.err = errors.New("redis down")
	handler := WebhookRateLimit(limiter, 1, time.Minute, nil)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/webhooks/moyasar", strings.NewReader("{}"))
	req.RemoteAddr = "1.2.3.4:5678"
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("delivery must proceed when the limiter is unavailable, got %d", rec.Code)
	}
}

func TestWebhookRateLimit_DisabledWithoutLimiter(t *testing.T) {
	handler := WebhookRateLimit(nil, 1, time.Minute, nil)(okHandler())

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/moyasar", strings.NewReader("{}"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("middleware must be a no-op without a limiter, got %d", rec.Code)
		}
	}
}
