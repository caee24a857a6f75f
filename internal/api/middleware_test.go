package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/seamline/seamline-agent/internal/store"
)

func TestIsAllowedOrigin(t *testing.T) {
	allowed := []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost",
		"http://127.0.0.1:3000",
		"http://127.0.0.1",
		"https://acme.app.seamline.io",
		"https://demo-org.app.seamline.io",
		"https://acme.app.seamline.local",
		"http://acme.app.seamline.local",
		"http://devorg.app.seamline.local:3000",
		"https://a--b.app.seamline.io",
		"https://a.app.seamline.io",
	}

	for _, origin := range allowed {
		if !isAllowedOrigin(origin) {
			t.Errorf("isAllowedOrigin(%q) = false, want true", origin)
		}
	}

	denied := []string{
		"https://evil.com",
		"https://app.seamline.io",
		"https://app.seamline.io.evil.com",
		"https://acme.app.seamline.io.evil.com",
		"http://192.168.1.1:3000",
		"https://seamline.io",
		"",
		"ftp://localhost:3000",
		"http://localhost:3000/path",
		"https://-bad.app.seamline.io",
		"https://bad-.app.seamline.io",
	}

	for _, origin := range denied {
		if isAllowedOrigin(origin) {
			t.Errorf("isAllowedOrigin(%q) = true, want false", origin)
		}
	}
}

func TestIsLoopbackRemoteAddr(t *testing.T) {
	loopback := []string{
		"127.0.0.1:12345",
		"[::1]:12345",
	}

	for _, addr := range loopback {
		if !isLoopbackRemoteAddr(addr) {
			t.Errorf("isLoopbackRemoteAddr(%q) = false, want true", addr)
		}
	}

	nonLoopback := []string{
		"8.8.8.8:12345",
		"192.168.1.1:8080",
		"10.0.0.1:3000",
		"not-an-ip:1234",
		"127.0.0.1",
	}

	for _, addr := range nonLoopback {
		if isLoopbackRemoteAddr(addr) {
			t.Errorf("isLoopbackRemoteAddr(%q) = true, want false", addr)
		}
	}
}

func TestCORSAllowlist_AllowedOrigin(t *testing.T) {
	handler := CORSAllowlist()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("ACAO = %q, want %q", got, "http://localhost:3000")
	}
	if got := rr.Header().Get("Vary"); got != "Origin" {
		t.Errorf("Vary = %q, want %q", got, "Origin")
	}
}

func TestCORSAllowlist_DeniedOrigin(t *testing.T) {
	handler := CORSAllowlist()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.com")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("ACAO = %q, want empty", got)
	}
}

func TestCORSAllowlist_Preflight(t *testing.T) {
	handler := CORSAllowlist()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("preflight should not reach the inner handler")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/clips", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNoContent)
	}
	if got := rr.Header().Get("Access-Control-Allow-Methods"); got == "" {
		t.Error("Access-Control-Allow-Methods missing from preflight response")
	}
}

func TestLoopbackOnly_RejectsRemotePeer(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := LoopbackOnly(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// httptest.NewRequest defaults RemoteAddr to 192.0.2.1, a TEST-NET
	// address, which must be rejected.
	req := httptest.NewRequest(http.MethodGet, "/state", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusForbidden)
	}
}

func TestAuthMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := newFakeRepo()
	if err := repo.SetConfig(context.Background(), store.ConfigKeyAuthToken, "local-dev-token"); err != nil {
		t.Fatalf("SetConfig() error = %v", err)
	}

	handler := AuthMiddleware(repo, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc123", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "Bearer local-dev-token", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/state", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
		})
	}
}

func TestAuthMiddleware_NoStoredToken(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := newFakeRepo()

	handler := AuthMiddleware(repo, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/state", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusInternalServerError)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := RequestIDMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = r.Context().Value(RequestIDKey).(string)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/state", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if len(seen) != 8 {
		t.Fatalf("request id in context = %q, want 8 characters", seen)
	}
	if got := rr.Header().Get("X-Request-ID"); got != seen {
		t.Errorf("X-Request-ID header = %q, want %q", got, seen)
	}
}

// fakeRepo is an in-memory store.Repository for handler tests.
type fakeRepo struct {
	mu        sync.Mutex
	config    map[string]string
	jobs      map[string]*store.ExportJob
	jobOrder  []string
	durations map[string]float64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		config:    make(map[string]string),
		jobs:      make(map[string]*store.ExportJob),
		durations: make(map[string]float64),
	}
}

func (f *fakeRepo) CreateExportJob(_ context.Context, job *store.ExportJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *job
	f.jobs[job.ID] = &cp
	f.jobOrder = append(f.jobOrder, job.ID)
	return nil
}

func (f *fakeRepo) GetExportJob(_ context.Context, id string) (*store.ExportJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return nil, nil
	}
	cp := *job
	return &cp, nil
}

func (f *fakeRepo) ListExportJobs(_ context.Context, limit int) ([]*store.ExportJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*store.ExportJob
	for i := len(f.jobOrder) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *f.jobs[f.jobOrder[i]]
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeRepo) UpdateExportStatus(_ context.Context, id, status, errorMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if job, ok := f.jobs[id]; ok {
		job.Status = status
		job.Error = errorMsg
	}
	return nil
}

func (f *fakeRepo) UpdateExportProgress(_ context.Context, id string, progress int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if job, ok := f.jobs[id]; ok {
		job.Progress = progress
	}
	return nil
}

func (f *fakeRepo) UpdateExportResult(_ context.Context, id, resultURL, resultType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if job, ok := f.jobs[id]; ok {
		job.ResultURL = resultURL
		job.ResultType = resultType
	}
	return nil
}

func (f *fakeRepo) GetDuration(_ context.Context, sourceURL string) (float64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.durations[sourceURL]
	return d, ok, nil
}

func (f *fakeRepo) PutDuration(_ context.Context, sourceURL string, seconds float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.durations[sourceURL] = seconds
	return nil
}

func (f *fakeRepo) GetConfig(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.config[key], nil
}

func (f *fakeRepo) SetConfig(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.config[key] = value
	return nil
}
