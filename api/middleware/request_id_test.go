package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestIDAdoptsWellFormedHeader(t *testing.T) {
	var seen string
	handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.Header.Set("X-Request-Id", "lb-7f3a.01")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "lb-7f3a.01", seen)
	assert.Equal(t, "lb-7f3a.01", rec.Header().Get("X-Request-Id"))
}

func TestRequestIDReplacesUnsafeHeader(t *testing.T) {
	var seen string
	handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	for _, inbound := range []string{"", "has space", "<script>", strings.Repeat("a", 129)} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-Id", inbound)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.NotEqual(t, inbound, seen)
		assert.Len(t, seen, 36, "minted ids are uuids")
		assert.Equal(t, seen, rec.Header().Get("X-Request-Id"))
	}
}

func TestIdempotencyReplayNamesOriginalRequest(t *testing.T) {
	store := newFakeStore()
	handler := RequestID(nil)(Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})))

	first := orderRequest(`{"deliveryMethod":"pickup"}`, "key-1", 9)
	first.Header.Set("X-Request-Id", "req-first")
	handler.ServeHTTP(httptest.NewRecorder(), first)

	retry := orderRequest(`{"deliveryMethod":"pickup"}`, "key-1", 9)
	retry.Header.Set("X-Request-Id", "req-retry")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, retry)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "true", rec.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, "req-first", rec.Header().Get("Idempotent-Original-Request-Id"))
	assert.Equal(t, "req-retry", rec.Header().Get("X-Request-Id"))
}
