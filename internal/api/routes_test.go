package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/seamline/seamline-agent/internal/editor"
	"github.com/seamline/seamline-agent/internal/export"
	"github.com/seamline/seamline-agent/internal/player"
	"github.com/seamline/seamline-agent/internal/store"
	"github.com/seamline/seamline-agent/internal/stream"
	"github.com/seamline/seamline-agent/internal/surface"
)

const testToken = "local-dev-token"

type testServer struct {
	handler http.Handler
	repo    *fakeRepo
	session *editor.Session
}

// instantExporter completes immediately with a fixed result.
type instantExporter struct{}

func (instantExporter) Export(_ context.Context, _ export.Manifest, progress export.Progress) (*export.Result, error) {
	if progress != nil {
		progress(100)
	}
	return &export.Result{ResultURL: "https://cdn.example.com/out.mp4", ResultType: "video"}, nil
}

func newTestServer(t *testing.T, assetsDir string) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := newFakeRepo()
	if err := repo.SetConfig(context.Background(), store.ConfigKeyAuthToken, testToken); err != nil {
		t.Fatalf("SetConfig() error = %v", err)
	}

	p := player.New(player.Config{
		Active: player.NewSyntheticMedia(),
		Logger: logger,
	})
	session := editor.NewSession(editor.Config{
		Player:    p,
		Exporters: map[string]export.Exporter{store.ExportKindRender: instantExporter{}},
		Repo:      repo,
		Logger:    logger,
		Track:     surface.NewTrack(1000),
	})

	cfg := ServerConfig{
		Port:       0,
		Session:    session,
		Repository: repo,
		Assets:     stream.NewAssetServer(assetsDir, logger),
		Logger:     logger,
		StartTime:  time.Now(),
		DeviceID:   "dev-test",
		Version:    "test",
	}

	return &testServer{handler: NewRouter(cfg), repo: repo, session: session}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}, authed bool) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "127.0.0.1:52100"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func decodeJSONBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response body: %v\nbody: %s", err, rr.Body.String())
	}
	return body
}

func (ts *testServer) addClip(t *testing.T, url string) string {
	t.Helper()
	rr := ts.do(t, http.MethodPost, "/clips", GenerateClipRequest{SourceURL: url}, true)
	if rr.Code != http.StatusCreated {
		t.Fatalf("POST /clips status = %d, want %d: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	var resp GenerateClipResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode clip response: %v", err)
	}
	return resp.Clip.ID
}

func TestHealthEndpoint_NoAuth(t *testing.T) {
	ts := newTestServer(t, t.TempDir())

	rr := ts.do(t, http.MethodGet, "/health", nil, false)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	body := decodeJSONBody(t, rr)
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
	if body["device_id"] != "dev-test" {
		t.Errorf("device_id = %v, want dev-test", body["device_id"])
	}
}

func TestStateEndpoint_RequiresAuth(t *testing.T) {
	ts := newTestServer(t, t.TempDir())

	rr := ts.do(t, http.MethodGet, "/state", nil, false)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestStateEndpoint_EmptyEdit(t *testing.T) {
	ts := newTestServer(t, t.TempDir())

	rr := ts.do(t, http.MethodGet, "/state", nil, true)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var state StateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if len(state.Clips) != 0 {
		t.Errorf("clips = %d, want 0", len(state.Clips))
	}
	if state.Gesture != "idle" {
		t.Errorf("gesture = %q, want idle", state.Gesture)
	}
}

func TestGenerateClip_AppendsToEdit(t *testing.T) {
	ts := newTestServer(t, t.TempDir())

	ts.addClip(t, "https://media.example.com/a.mp4")
	ts.addClip(t, "https://media.example.com/b.mp4")

	rr := ts.do(t, http.MethodGet, "/state", nil, true)
	var state StateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}

	if len(state.Clips) != 2 {
		t.Fatalf("clips = %d, want 2", len(state.Clips))
	}
	// Unprobed clips carry the placeholder duration and lay out
	// back to back.
	if state.Clips[0].StartTime != 0 || state.Clips[1].StartTime != 5 {
		t.Errorf("start times = %v, %v, want 0, 5", state.Clips[0].StartTime, state.Clips[1].StartTime)
	}
	if state.Duration != 10 {
		t.Errorf("duration = %v, want 10", state.Duration)
	}
}

func TestGenerateClip_ValidationFailure(t *testing.T) {
	ts := newTestServer(t, t.TempDir())

	rr := ts.do(t, http.MethodPost, "/clips", GenerateClipRequest{Label: "no source"}, true)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}

	body := decodeJSONBody(t, rr)
	if body["code"] != "VALIDATION_FAILED" {
		t.Errorf("code = %v, want VALIDATION_FAILED", body["code"])
	}
}

func TestRemoveClip(t *testing.T) {
	ts := newTestServer(t, t.TempDir())
	id := ts.addClip(t, "https://media.example.com/a.mp4")

	rr := ts.do(t, http.MethodDelete, "/clips/"+id, nil, true)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNoContent)
	}

	rr = ts.do(t, http.MethodDelete, "/clips/"+id, nil, true)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestSelection_Lifecycle(t *testing.T) {
	ts := newTestServer(t, t.TempDir())
	id := ts.addClip(t, "https://media.example.com/a.mp4")

	rr := ts.do(t, http.MethodPost, "/clips/"+id+"/select", nil, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("select status = %d: %s", rr.Code, rr.Body.String())
	}
	var sel SelectResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &sel); err != nil {
		t.Fatalf("decode select response: %v", err)
	}
	if sel.SelectedClipID != id {
		t.Errorf("selected_clip_id = %q, want %q", sel.SelectedClipID, id)
	}

	rr = ts.do(t, http.MethodPost, "/selection/clear", nil, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("clear status = %d", rr.Code)
	}
	if got := ts.session.SelectedClipID(); got != "" {
		t.Errorf("selection after clear = %q, want empty", got)
	}

	rr = ts.do(t, http.MethodPost, "/clips/ghost/select", nil, true)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("select unknown clip status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestReorderGesture_OverHTTP(t *testing.T) {
	ts := newTestServer(t, t.TempDir())
	a := ts.addClip(t, "https://media.example.com/a.mp4")
	b := ts.addClip(t, "https://media.example.com/b.mp4")

	idx := 0
	rr := ts.do(t, http.MethodPost, "/gestures/reorder", BeginReorderRequest{Index: &idx}, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("begin reorder status = %d: %s", rr.Code, rr.Body.String())
	}

	// A second gesture while one is active conflicts.
	rr = ts.do(t, http.MethodPost, "/gestures/reorder", BeginReorderRequest{Index: &idx}, true)
	if rr.Code != http.StatusConflict {
		t.Fatalf("concurrent begin status = %d, want %d", rr.Code, http.StatusConflict)
	}

	x := 1000.0
	rr = ts.do(t, http.MethodPost, "/gestures/move", MoveGestureRequest{X: &x}, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("move status = %d: %s", rr.Code, rr.Body.String())
	}

	rr = ts.do(t, http.MethodPost, "/gestures/commit", nil, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("commit status = %d: %s", rr.Code, rr.Body.String())
	}

	var state StateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state.Clips[0].ID != b || state.Clips[1].ID != a {
		t.Errorf("order after drop = [%s %s], want [%s %s]", state.Clips[0].ID, state.Clips[1].ID, b, a)
	}
	if state.Gesture != "idle" {
		t.Errorf("gesture = %q, want idle", state.Gesture)
	}
}

func TestTrimGesture_CancelOverHTTP(t *testing.T) {
	ts := newTestServer(t, t.TempDir())
	ts.addClip(t, "https://media.example.com/a.mp4")

	idx := 0
	rr := ts.do(t, http.MethodPost, "/gestures/trim", BeginTrimRequest{Index: &idx, Edge: "end"}, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("begin trim status = %d: %s", rr.Code, rr.Body.String())
	}

	rr = ts.do(t, http.MethodPost, "/gestures/cancel", nil, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("cancel status = %d: %s", rr.Code, rr.Body.String())
	}

	var state StateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state.Clips[0].TrimEnd != 5 {
		t.Errorf("trim_end after cancel = %v, want 5", state.Clips[0].TrimEnd)
	}
}

func TestGestureCommit_NoActiveGesture(t *testing.T) {
	ts := newTestServer(t, t.TempDir())
	ts.addClip(t, "https://media.example.com/a.mp4")

	rr := ts.do(t, http.MethodPost, "/gestures/commit", nil, true)
	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusConflict)
	}

	body := decodeJSONBody(t, rr)
	if body["code"] != "NO_GESTURE" {
		t.Errorf("code = %v, want NO_GESTURE", body["code"])
	}
}

func TestSeek_BySecondsAndByPixel(t *testing.T) {
	ts := newTestServer(t, t.TempDir())
	ts.addClip(t, "https://media.example.com/a.mp4")
	ts.addClip(t, "https://media.example.com/b.mp4")

	secs := 7.0
	rr := ts.do(t, http.MethodPost, "/playback/seek", SeekRequest{Seconds: &secs}, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("seek status = %d: %s", rr.Code, rr.Body.String())
	}
	var state StateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state.CurrentTime != 7 {
		t.Errorf("current_time = %v, want 7", state.CurrentTime)
	}

	// Track is 1000px wide over a 10s edit; x=250 maps to 2.5s.
	x := 250.0
	rr = ts.do(t, http.MethodPost, "/playback/seek", SeekRequest{X: &x}, true)
	if err := json.Unmarshal(rr.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state.CurrentTime != 2.5 {
		t.Errorf("current_time = %v, want 2.5", state.CurrentTime)
	}

	rr = ts.do(t, http.MethodPost, "/playback/seek", SeekRequest{}, true)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("empty seek status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestPlaybackControls(t *testing.T) {
	ts := newTestServer(t, t.TempDir())
	ts.addClip(t, "https://media.example.com/a.mp4")

	rr := ts.do(t, http.MethodPost, "/playback/play", nil, true)
	var state StateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if !state.IsPlaying {
		t.Error("is_playing = false after play")
	}

	rr = ts.do(t, http.MethodPost, "/playback/pause", nil, true)
	if err := json.Unmarshal(rr.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state.IsPlaying {
		t.Error("is_playing = true after pause")
	}

	rr = ts.do(t, http.MethodPost, "/playback/toggle", nil, true)
	if err := json.Unmarshal(rr.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if !state.IsPlaying {
		t.Error("is_playing = false after toggle")
	}
}

func TestStartExport_Dispatch(t *testing.T) {
	ts := newTestServer(t, t.TempDir())
	ts.addClip(t, "https://media.example.com/a.mp4")

	rr := ts.do(t, http.MethodPost, "/exports", StartExportRequest{Kind: "render", Title: "My Edit"}, true)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d: %s", rr.Code, http.StatusAccepted, rr.Body.String())
	}

	var resp StartExportResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.JobID == "" {
		t.Fatal("job_id is empty")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		rr = ts.do(t, http.MethodGet, "/exports/"+resp.JobID, nil, true)
		if rr.Code != http.StatusOK {
			t.Fatalf("get export status = %d", rr.Code)
		}
		var job ExportJobResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &job); err != nil {
			t.Fatalf("decode job: %v", err)
		}
		if job.Status == store.ExportStatusCompleted {
			if job.ResultURL != "https://cdn.example.com/out.mp4" {
				t.Errorf("result_url = %q", job.ResultURL)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("export never completed, status = %q error = %q", job.Status, job.Error)
		}
		time.Sleep(5 * time.Millisecond)
	}

	rr = ts.do(t, http.MethodGet, "/exports", nil, true)
	var list ExportJobsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Jobs) != 1 || list.Jobs[0].ID != resp.JobID {
		t.Errorf("jobs list = %+v, want one job %s", list.Jobs, resp.JobID)
	}
}

func TestStartExport_EmptyEdit(t *testing.T) {
	ts := newTestServer(t, t.TempDir())

	rr := ts.do(t, http.MethodPost, "/exports", StartExportRequest{Kind: "render", Title: "Empty"}, true)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestStartExport_UnknownKindRejectedByValidation(t *testing.T) {
	ts := newTestServer(t, t.TempDir())
	ts.addClip(t, "https://media.example.com/a.mp4")

	rr := ts.do(t, http.MethodPost, "/exports", StartExportRequest{Kind: "gif", Title: "Nope"}, true)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestGetExport_Missing(t *testing.T) {
	ts := newTestServer(t, t.TempDir())

	rr := ts.do(t, http.MethodGet, "/exports/nope", nil, true)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestAssetEndpoint_RangeRequest(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "clip.mp4"), []byte("0123456789"), 0o644); err != nil {
		t.Fatalf("write asset: %v", err)
	}
	ts := newTestServer(t, dir)

	req := httptest.NewRequest(http.MethodGet, "/assets/clip.mp4", nil)
	req.RemoteAddr = "127.0.0.1:52100"
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.Header.Set("Range", "bytes=2-5")
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusPartialContent)
	}
	if got := rr.Body.String(); got != "2345" {
		t.Errorf("body = %q, want %q", got, "2345")
	}
	if got := rr.Header().Get("Content-Range"); got != fmt.Sprintf("bytes 2-5/%d", 10) {
		t.Errorf("Content-Range = %q", got)
	}
}

func TestAssetEndpoint_Missing(t *testing.T) {
	ts := newTestServer(t, t.TempDir())

	rr := ts.do(t, http.MethodGet, "/assets/ghost.mp4", nil, true)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}
