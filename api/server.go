// Package api exposes the recognition engine over HTTP: session control,
// per-frame keypoint ingest, live status for the UI overlay, and the
// stored workout history.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/repcoach/repcoach/db"
	"github.com/repcoach/repcoach/internal/config"
	"github.com/repcoach/repcoach/internal/engine"
	"github.com/repcoach/repcoach/internal/httputil"
	"github.com/repcoach/repcoach/internal/monitoring"
	"github.com/repcoach/repcoach/internal/pose"
	"github.com/repcoach/repcoach/internal/report"
	"github.com/repcoach/repcoach/internal/security"
)

// Server serves one user's detection sessions. At most one session is
// active at a time; frames are processed strictly in arrival order.
type Server struct {
	mu      sync.Mutex
	session *engine.Session
	cfg     *config.TuningConfig
	db      *db.DB
}

// NewServer creates an API server. db may be nil when persistence is
// disabled.
func NewServer(cfg *config.TuningConfig, database *db.DB) *Server {
	if cfg == nil {
		cfg = config.EmptyTuningConfig()
	}
	return &Server{cfg: cfg, db: database}
}

// ServeMux returns the route table.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/session/start", s.handleStart)
	mux.HandleFunc("/api/session/switch", s.handleSwitch)
	mux.HandleFunc("/api/session/frame", s.handleFrame)
	mux.HandleFunc("/api/session/status", s.handleStatus)
	mux.HandleFunc("/api/session/stop", s.handleStop)
	mux.HandleFunc("/api/sessions", s.handleSessions)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/report", s.handleReport)
	mux.HandleFunc("/api/report/export", s.handleExport)
	mux.HandleFunc("/api/params", s.handleParams)
	mux.HandleFunc("/", s.handleHome)
	return mux
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("repcoach exercise recognition engine\n"))
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	ex, err := engine.ParseExercise(r.FormValue("exercise"))
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	opts := []engine.Option{}
	if v := r.FormValue("weight_kg"); v != "" {
		kg, err := strconv.ParseFloat(v, 64)
		if err != nil || kg <= 0 {
			httputil.BadRequest(w, "weight_kg must be a positive number")
			return
		}
		opts = append(opts, engine.WithBodyWeight(kg))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		httputil.Conflict(w, "a session is already active; stop it first")
		return
	}
	session, err := engine.NewSession(ex, s.cfg, opts...)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	s.session = session
	monitoring.Logf("started %s session %s", ex, session.ID())
	httputil.WriteJSONOK(w, sessionInfo(session))
}

// sessionInfo shapes the session-started payload.
func sessionInfo(session *engine.Session) map[string]string {
	return map[string]string{
		"session_id": session.ID().String(),
		"exercise":   string(session.Exercise()),
	}
}

func (s *Server) handleSwitch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	ex, err := engine.ParseExercise(r.FormValue("exercise"))
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	session := s.activeSession()
	if session == nil {
		httputil.NotFound(w, "no active session")
		return
	}
	if err := session.SwitchExercise(ex); err != nil {
		if errors.Is(err, engine.ErrInvalidExercise) {
			httputil.BadRequest(w, err.Error())
			return
		}
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, sessionInfo(session))
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	session := s.activeSession()
	if session == nil {
		httputil.NotFound(w, "no active session")
		return
	}

	var frame pose.Frame
	if err := json.NewDecoder(r.Body).Decode(&frame); err != nil {
		httputil.BadRequest(w, "failed to decode frame: "+err.Error())
		return
	}
	status, err := session.ProcessFrame(frame)
	if err != nil {
		if errors.Is(err, pose.ErrMalformedFrame) {
			httputil.BadRequest(w, err.Error())
			return
		}
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, status)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	session := s.activeSession()
	if session == nil {
		httputil.NotFound(w, "no active session")
		return
	}
	httputil.WriteJSONOK(w, struct {
		engine.Summary
		MalformedFrames int `json:"malformed_frames"`
	}{session.Summary(), session.MalformedFrames()})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	s.mu.Lock()
	session := s.session
	s.session = nil
	s.mu.Unlock()
	if session == nil {
		httputil.NotFound(w, "no active session")
		return
	}

	summary := session.Finish()
	if s.db != nil {
		if err := s.db.SaveSession(summary, session.RepHistory()); err != nil {
			monitoring.Logf("failed to persist session %s: %v", summary.SessionID, err)
			httputil.InternalServerError(w, "failed to persist session")
			return
		}
	}
	httputil.WriteJSONOK(w, summary)
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.db == nil {
		httputil.NotFound(w, "persistence disabled")
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	sessions, err := s.db.Sessions(limit)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, sessions)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.db == nil {
		httputil.NotFound(w, "persistence disabled")
		return
	}
	stats, err := s.db.Stats()
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, stats)
}

// handleReport renders an HTML chart of the live session, or of a stored
// one when session_id is given.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	if id := r.URL.Query().Get("session_id"); id != "" {
		s.renderStoredReport(w, id)
		return
	}

	session := s.activeSession()
	if session == nil {
		httputil.NotFound(w, "no active session; pass session_id for a stored one")
		return
	}
	if err := report.RenderSession(w, session.Summary(), session.RepHistory()); err != nil {
		monitoring.Logf("failed to render report: %v", err)
	}
}

func (s *Server) renderStoredReport(w http.ResponseWriter, id string) {
	summary, reps, ok := s.loadStored(w, id)
	if !ok {
		return
	}
	if err := report.RenderSession(w, summary, reps); err != nil {
		monitoring.Logf("failed to render report: %v", err)
	}
}

// loadStored fetches a persisted session by id, writing the error
// response itself when the lookup fails.
func (s *Server) loadStored(w http.ResponseWriter, id string) (engine.Summary, []engine.RepRecord, bool) {
	if s.db == nil {
		httputil.NotFound(w, "persistence disabled")
		return engine.Summary{}, nil, false
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		httputil.BadRequest(w, "invalid session_id")
		return engine.Summary{}, nil, false
	}
	sessions, err := s.db.Sessions(1000)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return engine.Summary{}, nil, false
	}
	for _, stored := range sessions {
		if stored.SessionID != parsed.String() {
			continue
		}
		reps, err := s.db.SessionReps(stored.SessionID)
		if err != nil {
			httputil.InternalServerError(w, err.Error())
			return engine.Summary{}, nil, false
		}
		summary := engine.Summary{
			SessionID:         parsed,
			Exercise:          engine.Exercise(stored.Exercise),
			TotalReps:         stored.TotalReps,
			AverageFormScore:  stored.AverageFormScore,
			DurationSeconds:   stored.DurationSeconds,
			ActiveHoldSeconds: stored.ActiveHoldSeconds,
			EstimatedCalories: stored.EstimatedCalories,
		}
		return summary, reps, true
	}
	httputil.NotFound(w, "session not found")
	return engine.Summary{}, nil, false
}

// handleExport writes a session report to an HTML file on disk and
// responds with its path. The filename is sanitised and confined to the
// working directory.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	var summary engine.Summary
	var reps []engine.RepRecord
	if id := r.FormValue("session_id"); id != "" {
		var ok bool
		summary, reps, ok = s.loadStored(w, id)
		if !ok {
			return
		}
	} else {
		session := s.activeSession()
		if session == nil {
			httputil.NotFound(w, "no active session; pass session_id for a stored one")
			return
		}
		summary = session.Summary()
		reps = session.RepHistory()
	}

	name := r.FormValue("filename")
	if name == "" {
		name = "repcoach-" + summary.SessionID.String() + ".html"
	}
	name = security.SanitizeFilename(name)
	if err := security.ValidateExportPath(name); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	f, err := os.Create(name)
	if err != nil {
		httputil.InternalServerError(w, "failed to create export file")
		return
	}
	defer f.Close()
	if err := report.RenderSession(f, summary, reps); err != nil {
		httputil.InternalServerError(w, "failed to render report")
		return
	}
	monitoring.Logf("exported session %s report to %s", summary.SessionID, name)
	httputil.WriteJSONOK(w, map[string]string{"path": name})
}

// handleParams reports the current tuning config on GET and replaces it
// on POST. Updates apply to sessions started afterwards.
func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.mu.Lock()
		cfg := s.cfg
		s.mu.Unlock()
		httputil.WriteJSONOK(w, cfg)
	case http.MethodPost:
		var cfg config.TuningConfig
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			httputil.BadRequest(w, "failed to decode params: "+err.Error())
			return
		}
		if err := cfg.Validate(); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		s.mu.Lock()
		s.cfg = &cfg
		s.mu.Unlock()
		httputil.WriteJSONOK(w, &cfg)
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) activeSession() *engine.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}
