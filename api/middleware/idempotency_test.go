package middleware

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/bookloan-backend/internal/identity"
	"github.com/angelmondragon/bookloan-backend/pkg/enums"
)

type fakeStore struct {
	data   map[string]string
	ttls   map[string]time.Duration
	setErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = fmt.Sprint(value)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key] = fmt.Sprint(value)
	f.ttls[key] = ttl
	return true, nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func requestWithPattern(method, url, pattern string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, url, body)
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{pattern}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rc)
	ctx = WithIdentity(ctx, identity.Resolved{Identity: identity.Identity{UserID: uuid.New(), Role: enums.RoleUser}})
	return req.WithContext(ctx)
}

func TestRouteIdempotent(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		pattern string
		want    bool
	}{
		{"borrow", http.MethodPost, "/api/v1/loans", true},
		{"return", http.MethodPut, "/api/v1/loans/{checkoutId}/returned", true},
		{"list", http.MethodGet, "/api/v1/loans", false},
		{"logout", http.MethodPost, "/api/v1/auth/logout", false},
		{"empty", http.MethodPost, "", false},
	}
	for _, tt := range tests {
		if got := routeIdempotent(tt.method, tt.pattern); got != tt.want {
			t.Fatalf("%s: expected %v got %v", tt.name, tt.want, got)
		}
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"checkout_id":"c1"}}`))
	}))

	first := requestWithPattern(http.MethodPost, "/api/v1/loans", "/api/v1/loans", strings.NewReader(`{"book_id":"b1"}`))
	first.Header.Set(IdempotencyHeader, "key-1")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, first)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}

	replay := first.Clone(first.Context())
	replay.Body = io.NopCloser(strings.NewReader(`{"book_id":"b1"}`))
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, replay)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected replayed 201 got %d", resp.Code)
	}
	if calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls)
	}
	if resp.Body.String() != `{"data":{"checkout_id":"c1"}}` {
		t.Fatalf("unexpected replay body %q", resp.Body.String())
	}
	if resp.Header().Get("Idempotent-Replay") != "true" {
		t.Fatal("expected replay marker header")
	}
	for key, ttl := range store.ttls {
		if ttl != time.Hour {
			t.Fatalf("expected configured ttl for %s, got %s", key, ttl)
		}
	}
}

func TestIdempotencyRejectsDifferentBody(t *testing.T) {
	store := newFakeStore()
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	ctxReq := requestWithPattern(http.MethodPost, "/api/v1/loans", "/api/v1/loans", strings.NewReader(`{"book_id":"b1"}`))
	ctxReq.Header.Set(IdempotencyHeader, "key-1")
	handler.ServeHTTP(httptest.NewRecorder(), ctxReq)

	second := ctxReq.Clone(ctxReq.Context())
	second.Body = io.NopCloser(strings.NewReader(`{"book_id":"b2"}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, second)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "IDEMPOTENCY_KEY_REUSED") {
		t.Fatalf("expected idempotency error code, got %s", resp.Body.String())
	}
}

func TestIdempotencyInFlightIsConflict(t *testing.T) {
	store := newFakeStore()
	var inner http.Handler
	nested := 0
	inner = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nested++
		if nested == 1 {
			again := requestWithPattern(http.MethodPost, "/api/v1/loans", "/api/v1/loans", strings.NewReader(`{}`))
			again = again.WithContext(r.Context())
			again.Header.Set(IdempotencyHeader, "key-1")
			rec := httptest.NewRecorder()
			Idempotency(store, time.Hour, nil)(inner).ServeHTTP(rec, again)
			if rec.Code != http.StatusConflict {
				t.Errorf("expected in-flight duplicate to get 409, got %d", rec.Code)
			}
		}
		w.WriteHeader(http.StatusCreated)
	})

	req := requestWithPattern(http.MethodPost, "/api/v1/loans", "/api/v1/loans", strings.NewReader(`{}`))
	req.Header.Set(IdempotencyHeader, "key-1")
	resp := httptest.NewRecorder()
	Idempotency(store, time.Hour, nil)(inner).ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	if nested != 1 {
		t.Fatalf("duplicate should not reach the handler, ran %d times", nested)
	}
}

func TestIdempotencyReleasesKeyOnServerError(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	for i := 0; i < 2; i++ {
		req := requestWithPattern(http.MethodPut, "/api/v1/loans/c1/returned", "/api/v1/loans/{checkoutId}/returned", nil)
		req.Header.Set(IdempotencyHeader, "key-1")
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503 got %d", resp.Code)
		}
	}
	if calls != 2 {
		t.Fatalf("expected retry after server error to reach the handler, ran %d times", calls)
	}
	if len(store.data) != 0 {
		t.Fatalf("expected no stored records, got %v", store.data)
	}
}

func TestIdempotencyWithoutHeaderPassesThrough(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))
	for i := 0; i < 2; i++ {
		req := requestWithPattern(http.MethodPost, "/api/v1/loans", "/api/v1/loans", strings.NewReader(`{}`))
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls != 2 {
		t.Fatalf("expected both requests to run, got %d", calls)
	}
	if len(store.data) != 0 {
		t.Fatal("expected nothing stored without a key")
	}
}

func TestIdempotencyPersistFailureStillResponds(t *testing.T) {
	store := newFakeStore()
	store.setErr = errors.New("redis down")
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := requestWithPattern(http.MethodPut, "/api/v1/loans/c1/returned", "/api/v1/loans/{checkoutId}/returned", nil)
	req.Header.Set(IdempotencyHeader, "key-1")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}
