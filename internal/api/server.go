// internal/api/server.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/user/viva/internal/types"
)

// Generator produces and persists the report for one session.
type Generator interface {
	Generate(ctx context.Context, sessionID string, assessment *types.AssessmentSummary, student *types.Student) (*types.Report, error)
}

// SecretMinter mints realtime client secrets for the browser voice client.
type SecretMinter interface {
	MintClientSecret(ctx context.Context) (json.RawMessage, error)
}

// Server is the HTTP boundary for session ingest, report generation, and
// teacher-facing report reads.
type Server struct {
	events    types.EventLog
	reports   types.ReportStore
	generator Generator
	minter    SecretMinter
	mux       *http.ServeMux
}

// NewServer creates a Server wired to the given stores and pipeline. minter
// may be nil when realtime token minting is not configured.
func NewServer(events types.EventLog, reports types.ReportStore, generator Generator, minter SecretMinter) *Server {
	s := &Server{
		events:    events,
		reports:   reports,
		generator: generator,
		minter:    minter,
		mux:       http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /api/realtime/events", s.handleIngest)
	s.mux.HandleFunc("POST /api/realtime/report", s.handleGenerate)
	s.mux.HandleFunc("POST /api/realtime/token", s.handleToken)
	s.mux.HandleFunc("GET /api/teacher/reports", s.handleReports)
	return s
}

// ServeHTTP delegates to the internal mux, implementing http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps pipeline errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrInvalidSessionID), errors.Is(err, types.ErrMissingField):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ingestRequest is the JSON body for POST /api/realtime/events.
type ingestRequest struct {
	SessionID string          `json:"sessionId"`
	Direction string          `json:"direction"`
	Event     json.RawMessage `json:"event"`
	TS        int64           `json:"ts"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.SessionID == "" || req.Direction == "" || len(req.Event) == 0 {
		err := fmt.Errorf("%w: sessionId, direction, or event", types.ErrMissingField)
		writeError(w, statusFor(err), err.Error())
		return
	}

	ts := req.TS
	if ts == 0 {
		ts = time.Now().UnixMilli()
	}

	err := s.events.Append(r.Context(), req.SessionID, &types.RawEvent{
		TS:        ts,
		Direction: req.Direction,
		Event:     req.Event,
	})
	if err != nil {
		slog.Error("append event failed", "session_id", req.SessionID, "error", err)
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// generateRequest is the JSON body for POST /api/realtime/report.
type generateRequest struct {
	SessionID  string                   `json:"sessionId"`
	Assessment *types.AssessmentSummary `json:"assessment"`
	Student    *types.Student           `json:"student"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.SessionID == "" {
		err := fmt.Errorf("%w: sessionId", types.ErrMissingField)
		writeError(w, statusFor(err), err.Error())
		return
	}

	report, err := s.generator.Generate(r.Context(), req.SessionID, req.Assessment, req.Student)
	if err != nil {
		slog.Error("report generation failed", "session_id", req.SessionID, "error", err)
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "report": report})
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if s.minter == nil {
		writeError(w, http.StatusServiceUnavailable, "realtime token minting not configured")
		return
	}

	payload, err := s.minter.MintClientSecret(r.Context())
	if err != nil {
		slog.Error("mint client secret failed", "error", err)
		writeError(w, statusFor(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(payload)
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	if sessionID := r.URL.Query().Get("sessionId"); sessionID != "" {
		report, err := s.reports.Get(r.Context(), sessionID)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "report": report})
		return
	}

	summaries, err := s.reports.ListSummaries(r.Context())
	if err != nil {
		slog.Error("list reports failed", "error", err)
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "reports": summaries})
}
