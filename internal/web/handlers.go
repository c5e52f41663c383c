package web

import (
	"encoding/json"
	"net/http"

	"github.com/brandon/onthisday/internal/memories"
	"github.com/brandon/onthisday/pkg/types"
)

type photosResponse struct {
	Groups []types.PhotoGroup `json:"groups"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type emailResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	today, _ := memories.ParseDate("", s.now(), s.memories.Location())
	data := map[string]interface{}{
		"Today": today.Format("2006-01-02"),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		s.logger.WithError(err).Error("Failed to render page")
		http.Error(w, "Template error", http.StatusInternalServerError)
	}
}

func (s *Server) handlePhotos(w http.ResponseWriter, r *http.Request) {
	date, _ := memories.ParseDate(r.URL.Query().Get("date"), s.now(), s.memories.Location())

	groups, err := s.memories.ForDate(r.Context(), date)
	if err != nil {
		s.logger.WithError(err).WithField("date", date.Format("2006-01-02")).Error("Failed to fetch photos")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to fetch photos"})
		return
	}

	writeJSON(w, http.StatusOK, photosResponse{Groups: groups})
}

func (s *Server) handleTestEmail(w http.ResponseWriter, r *http.Request) {
	if s.digest == nil {
		writeJSON(w, http.StatusInternalServerError, emailResponse{
			Success: false,
			Error:   "email delivery is not configured",
		})
		return
	}

	date, _ := memories.ParseDate(r.URL.Query().Get("date"), s.now(), s.memories.Location())
	s.logger.WithField("date", date.Format("2006-01-02")).Info("Manual digest requested")
	s.digest.SendWithRetry(s.background, date)

	writeJSON(w, http.StatusOK, emailResponse{
		Success: true,
		Message: "Email sending process initiated",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Service: serviceName})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
