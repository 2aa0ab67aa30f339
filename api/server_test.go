package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repcoach/repcoach/db"
	"github.com/repcoach/repcoach/internal/config"
	"github.com/repcoach/repcoach/internal/engine"
	"github.com/repcoach/repcoach/internal/pose"
	"github.com/repcoach/repcoach/internal/testutil"
)

func testServer(t *testing.T) (*Server, *http.ServeMux) {
	t.Helper()
	database, err := db.NewDB(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, database.MigrateUp("../migrations"))

	w := 1
	cfg := &config.TuningConfig{SmoothingWindow: &w}
	s := NewServer(cfg, database)
	return s, s.ServeMux()
}

func doJSON(t *testing.T, mux *http.ServeMux, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func pushupFrames() []pose.Frame {
	angles := []float64{170, 150, 120, 85, 70, 85, 120, 150, 170}
	frames := make([]pose.Frame, len(angles))
	for i, a := range angles {
		frames[i] = testutil.FrameAt(int64(i*5), testutil.UpperBody(a, 0.95))
	}
	return frames
}

func TestSessionLifecycle(t *testing.T) {
	_, mux := testServer(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/session/start?exercise=push-up&weight_kg=80", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	started := decode[map[string]string](t, rec)
	sessionID := started["session_id"]
	require.NotEmpty(t, sessionID)
	assert.Equal(t, "push-up", started["exercise"])

	var status engine.FrameStatus
	for _, frame := range pushupFrames() {
		rec := doJSON(t, mux, http.MethodPost, "/api/session/frame", frame)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		status = decode[engine.FrameStatus](t, rec)
	}
	assert.Equal(t, 1, status.RepCount)
	require.NotNil(t, status.Rep)
	assert.Equal(t, 100, status.Rep.Score)

	rec = doJSON(t, mux, http.MethodGet, "/api/session/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total_reps":1`)

	rec = doJSON(t, mux, http.MethodPost, "/api/session/stop", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := decode[engine.Summary](t, rec)
	assert.Equal(t, sessionID, summary.SessionID.String())
	assert.Equal(t, 1, summary.TotalReps)

	// The finished session landed in the history.
	rec = doJSON(t, mux, http.MethodGet, "/api/sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sessions := decode[[]db.StoredSession](t, rec)
	require.Len(t, sessions, 1)
	assert.Equal(t, sessionID, sessions[0].SessionID)

	rec = doJSON(t, mux, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[db.Stats](t, rec)
	assert.Equal(t, 1, stats.TotalSessions)
	assert.Equal(t, 1, stats.TotalReps)

	// Stopping again is a 404: nothing active anymore.
	rec = doJSON(t, mux, http.MethodPost, "/api/session/stop", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStartRejectsUnknownExercise(t *testing.T) {
	_, mux := testServer(t)
	rec := doJSON(t, mux, http.MethodPost, "/api/session/start?exercise=burpee", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartRejectsBadWeight(t *testing.T) {
	_, mux := testServer(t)
	rec := doJSON(t, mux, http.MethodPost, "/api/session/start?exercise=squat&weight_kg=-5", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartConflictsWhileActive(t *testing.T) {
	_, mux := testServer(t)
	rec := doJSON(t, mux, http.MethodPost, "/api/session/start?exercise=squat", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, mux, http.MethodPost, "/api/session/start?exercise=plank", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestFrameWithoutSession(t *testing.T) {
	_, mux := testServer(t)
	rec := doJSON(t, mux, http.MethodPost, "/api/session/frame", pushupFrames()[0])
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFrameMalformed(t *testing.T) {
	_, mux := testServer(t)
	rec := doJSON(t, mux, http.MethodPost, "/api/session/start?exercise=push-up", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, mux, http.MethodPost, "/api/session/frame", pose.Frame{Index: 3})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "malformed frame")

	req := httptest.NewRequest(http.MethodPost, "/api/session/frame", strings.NewReader("not json"))
	rec2 := httptest.NewRecorder()
	mux.ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusBadRequest, rec2.Code)
}

func TestSwitchExercise(t *testing.T) {
	_, mux := testServer(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/session/switch?exercise=squat", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, mux, http.MethodPost, "/api/session/start?exercise=push-up", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, mux, http.MethodPost, "/api/session/switch?exercise=squat", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	switched := decode[map[string]string](t, rec)
	assert.Equal(t, "squat", switched["exercise"])

	rec = doJSON(t, mux, http.MethodPost, "/api/session/switch?exercise=burpee", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParamsRoundTrip(t *testing.T) {
	_, mux := testServer(t)

	rec := doJSON(t, mux, http.MethodGet, "/api/params", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	current := decode[config.TuningConfig](t, rec)
	require.NotNil(t, current.SmoothingWindow)
	assert.Equal(t, 1, *current.SmoothingWindow)

	conf := 0.75
	rec = doJSON(t, mux, http.MethodPost, "/api/params", config.TuningConfig{ConfidenceMin: &conf})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, mux, http.MethodGet, "/api/params", nil)
	updated := decode[config.TuningConfig](t, rec)
	require.NotNil(t, updated.ConfidenceMin)
	assert.Equal(t, 0.75, *updated.ConfidenceMin)
}

func TestParamsRejectsInvalid(t *testing.T) {
	_, mux := testServer(t)
	conf := 1.5
	rec := doJSON(t, mux, http.MethodPost, "/api/params", config.TuningConfig{ConfidenceMin: &conf})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReport(t *testing.T) {
	_, mux := testServer(t)

	rec := doJSON(t, mux, http.MethodGet, "/api/report", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, mux, http.MethodPost, "/api/session/start?exercise=push-up", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, frame := range pushupFrames() {
		rec := doJSON(t, mux, http.MethodPost, "/api/session/frame", frame)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec = doJSON(t, mux, http.MethodGet, "/api/report", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<html")

	stopRec := doJSON(t, mux, http.MethodPost, "/api/session/stop", nil)
	require.Equal(t, http.StatusOK, stopRec.Code)
	summary := decode[engine.Summary](t, stopRec)

	rec = doJSON(t, mux, http.MethodGet, "/api/report?session_id="+summary.SessionID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<html")

	rec = doJSON(t, mux, http.MethodGet, "/api/report?session_id=not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportReport(t *testing.T) {
	_, mux := testServer(t)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	rec := doJSON(t, mux, http.MethodPost, "/api/report/export", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, mux, http.MethodPost, "/api/session/start?exercise=push-up", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, frame := range pushupFrames() {
		rec := doJSON(t, mux, http.MethodPost, "/api/session/frame", frame)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec = doJSON(t, mux, http.MethodPost, "/api/report/export", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	exported := decode[map[string]string](t, rec)
	data, err := os.ReadFile(exported["path"])
	require.NoError(t, err)
	assert.Contains(t, string(data), "<html")

	stopRec := doJSON(t, mux, http.MethodPost, "/api/session/stop", nil)
	require.Equal(t, http.StatusOK, stopRec.Code)
	summary := decode[engine.Summary](t, stopRec)

	// Stored sessions export too, with the filename sanitised.
	target := "/api/report/export?session_id=" + summary.SessionID.String() + "&filename=my+session.html"
	rec = doJSON(t, mux, http.MethodPost, target, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	exported = decode[map[string]string](t, rec)
	assert.Equal(t, "my_session.html", exported["path"])
	_, err = os.Stat("my_session.html")
	assert.NoError(t, err)

	rec = doJSON(t, mux, http.MethodPost, "/api/report/export?session_id=not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	_, mux := testServer(t)
	rec := doJSON(t, mux, http.MethodGet, "/api/session/start?exercise=squat", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
