package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"markershare/internal/auth"
	"markershare/internal/config"
	"markershare/internal/kv"
)

const (
	testSecret   = "test-secret"
	testUser     = "admin"
	testPassword = "hunter2"
)

func testConfig() config.Config {
	return config.Config{
		ServiceName:             "eso-marker-share",
		JWTSecret:               testSecret,
		TokenTTL:                time.Hour,
		AdminUsername:           testUser,
		AdminPasswordHashSHA256: auth.HashSHA256(testPassword),
		AllowedOrigins:          []string{"*"},
		KVBackend:               config.BackendMemory,
		KVListPageSize:          100,
	}
}

func newTestServer(t *testing.T, cfg config.Config, kvStore kv.Store) http.Handler {
	t.Helper()
	svc, err := NewService(cfg, kvStore)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return NewHTTPServer(svc, cfg.AllowedOrigins).Handler()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return out
}

func login(t *testing.T, h http.Handler) string {
	t.Helper()
	rr := doJSON(t, h, http.MethodPost, "/api/auth/login", map[string]string{
		"username": testUser,
		"password": testPassword,
	}, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("login status %d: %s", rr.Code, rr.Body.String())
	}
	return decode[LoginResult](t, rr).Token
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rr.Code, rr.Body.String())
	}
}

// faultyStore lets a test replace single backend calls.
type faultyStore struct {
	kv.Store
	getFn  func(ctx context.Context, key string) (string, error)
	pingFn func(ctx context.Context) error
}

func (f *faultyStore) Get(ctx context.Context, key string) (string, error) {
	if f.getFn != nil {
		return f.getFn(ctx, key)
	}
	return f.Store.Get(ctx, key)
}

func (f *faultyStore) Ping(ctx context.Context) error {
	if f.pingFn != nil {
		return f.pingFn(ctx)
	}
	return f.Store.Ping(ctx)
}
