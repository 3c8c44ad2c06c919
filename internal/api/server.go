// Package api exposes the view controller over a small JSON/HTTP surface
// plus a websocket chat channel. It is a thin presentation consumer: every
// handler only issues controller commands and renders already-normalized
// state, so no transport or provider error can leak through it.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/certlab/studyguide/internal/curriculum"
	"github.com/certlab/studyguide/internal/progress"
	"github.com/certlab/studyguide/internal/report"
	"github.com/certlab/studyguide/internal/study"
)

// Server bundles the handlers' dependencies.
type Server struct {
	Catalog    *curriculum.Catalog
	Tracker    *progress.Tracker
	Controller *study.Controller
}

// Routes builds the HTTP router.
func (s *Server) Routes(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	r.Route("/api", func(r chi.Router) {
		r.Get("/modules", s.handleModules)
		r.Get("/topics/{id}", s.handleTopic)
		r.Get("/state", s.handleState)
		r.Post("/modules/{id}/select", s.handleSelectModule)
		r.Post("/view", s.handleSetView)
		r.Post("/search", s.handleSearch)
		r.Post("/topics/{id}/toggle", s.handleToggleTopic)
		r.Post("/quiz/regenerate", s.handleRegenerateQuiz)
		r.Post("/scenario/regenerate", s.handleRegenerateScenario)
		r.Get("/progress/export", s.handleExport)
		r.Get("/chat/ws", s.handleChatWS)
	})

	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleModules(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Catalog.Modules())
}

// topicResponse is one topic rendered at a single detail level.
type topicResponse struct {
	ID                string                 `json:"id"`
	Title             string                 `json:"title"`
	Level             curriculum.DetailLevel `json:"level"`
	Explanation       string                 `json:"explanation"`
	IndustrialUseCase string                 `json:"industrialUseCase"`
	KeyTakeaways      []string               `json:"keyTakeaways"`
}

// handleTopic serves a single topic with the explanation variant picked
// by the level query parameter. Unknown levels resolve to moderate.
func (s *Server) handleTopic(w http.ResponseWriter, r *http.Request) {
	topic, ok := s.Catalog.FindTopic(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown topic")
		return
	}

	level := curriculum.DetailLevel(r.URL.Query().Get("level"))
	switch level {
	case curriculum.DetailShort, curriculum.DetailFull:
	default:
		level = curriculum.DetailModerate
	}

	writeJSON(w, http.StatusOK, topicResponse{
		ID:                topic.ID,
		Title:             topic.Title,
		Level:             level,
		Explanation:       topic.Explanation(level),
		IndustrialUseCase: topic.IndustrialUseCase,
		KeyTakeaways:      topic.KeyTakeaways,
	})
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Controller.Snapshot())
}

func (s *Server) handleSelectModule(w http.ResponseWriter, r *http.Request) {
	s.Controller.SelectModule(chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, s.Controller.Snapshot())
}

func (s *Server) handleSetView(w http.ResponseWriter, r *http.Request) {
	var body struct {
		View study.View `json:"view"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.Controller.SetView(body.View); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.Controller.Snapshot())
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	// Empty or in-flight queries are a no-op by contract; the snapshot
	// tells the client which one happened.
	s.Controller.SubmitQuery(body.Query)
	writeJSON(w, http.StatusAccepted, s.Controller.Snapshot())
}

func (s *Server) handleToggleTopic(w http.ResponseWriter, r *http.Request) {
	completed := s.Controller.ToggleTopic(chi.URLParam(r, "id"))
	total := s.Catalog.TotalTopics()
	writeJSON(w, http.StatusOK, study.ProgressState{
		Completed:  completed,
		Count:      s.Tracker.Count(),
		Total:      total,
		Percentage: s.Tracker.Percentage(total),
	})
}

func (s *Server) handleRegenerateQuiz(w http.ResponseWriter, _ *http.Request) {
	s.Controller.RegenerateQuiz()
	writeJSON(w, http.StatusAccepted, s.Controller.Snapshot())
}

func (s *Server) handleRegenerateScenario(w http.ResponseWriter, _ *http.Request) {
	s.Controller.RegenerateScenario()
	writeJSON(w, http.StatusAccepted, s.Controller.Snapshot())
}

func (s *Server) handleExport(w http.ResponseWriter, _ *http.Request) {
	f, err := report.Build(s.Catalog, s.Tracker)
	if err != nil {
		slog.Error("building progress workbook failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not build progress report")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="study_progress.xlsx"`)
	if err := f.Write(w); err != nil {
		slog.Warn("writing progress workbook failed", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encoding response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
