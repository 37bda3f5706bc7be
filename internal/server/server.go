package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/insightx/upi-insight/internal/chat"
	apperrors "github.com/insightx/upi-insight/internal/errors"
	"github.com/insightx/upi-insight/internal/logging"
	"github.com/insightx/upi-insight/internal/pipeline"
)

// maxBodyBytes bounds request bodies; questions and OCR text are small.
const maxBodyBytes = 1 << 20

// Server exposes the pipeline and session store over HTTP.
type Server struct {
	pipeline     *pipeline.Pipeline
	store        *chat.Store
	sessionLimit int
	logger       *logging.Logger
}

// New creates a server around the pipeline and its session store.
func New(p *pipeline.Pipeline, store *chat.Store, sessionLimit int) *Server {
	if sessionLimit <= 0 {
		sessionLimit = 50
	}

	return &Server{
		pipeline:     p,
		store:        store,
		sessionLimit: sessionLimit,
		logger:       logging.GetLogger(),
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/ask", s.handleAsk)
	mux.HandleFunc("POST /api/voice-ask", s.handleVoiceAsk)
	mux.HandleFunc("POST /api/ocr-ask", s.handleOCRAsk)
	mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/sessions/{id}/messages", s.handleGetMessages)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDeleteSession)

	return s.withCORS(s.withLogging(mux))
}

type askRequest struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if !s.decode(w, r, &req) {
		return
	}

	if req.Question == "" {
		s.writeError(w, http.StatusBadRequest, apperrors.ErrTypeValidation, "question is required")
		return
	}

	s.writeJSON(w, http.StatusOK, s.pipeline.Ask(r.Context(), req.SessionID, req.Question))
}

type voiceAskRequest struct {
	SessionID  string `json:"session_id"`
	Transcript string `json:"transcript"`
}

func (s *Server) handleVoiceAsk(w http.ResponseWriter, r *http.Request) {
	var req voiceAskRequest
	if !s.decode(w, r, &req) {
		return
	}

	if req.Transcript == "" {
		s.writeError(w, http.StatusBadRequest, apperrors.ErrTypeValidation, "transcript is required")
		return
	}

	s.writeJSON(w, http.StatusOK, s.pipeline.VoiceAsk(r.Context(), req.SessionID, req.Transcript))
}

type ocrAskRequest struct {
	SessionID string `json:"session_id"`
	OCRText   string `json:"ocr_text"`
	Note      string `json:"note"`
}

func (s *Server) handleOCRAsk(w http.ResponseWriter, r *http.Request) {
	var req ocrAskRequest
	if !s.decode(w, r, &req) {
		return
	}

	if req.OCRText == "" {
		s.writeError(w, http.StatusBadRequest, apperrors.ErrTypeValidation, "ocr_text is required")
		return
	}

	s.writeJSON(w, http.StatusOK, s.pipeline.OCRAsk(r.Context(), req.SessionID, req.OCRText, req.Note))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.store.ListSessions(r.Context(), s.sessionLimit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, apperrors.GetType(err), "failed to list sessions")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.store.CreateSession(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, apperrors.GetType(err), "failed to create session")
		return
	}

	s.writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := s.store.GetMessages(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, apperrors.GetType(err), "failed to load messages")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteSession(r.Context(), r.PathValue("id")); err != nil {
		if apperrors.IsType(err, apperrors.ErrTypeNotFound) {
			s.writeError(w, http.StatusNotFound, apperrors.ErrTypeNotFound, "session not found")
			return
		}

		s.writeError(w, http.StatusInternalServerError, apperrors.GetType(err), "failed to delete session")

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, apperrors.ErrTypeValidation, "invalid JSON body")
		return false
	}

	return true
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, errType apperrors.ErrorType, message string) {
	s.writeJSON(w, status, errorEnvelope{Error: errorBody{Type: string(errType), Message: message}})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		s.logger.WithFields(map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Debug("Request handled")
	})
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return httpServer.Shutdown(shutdownCtx)
}
