// Package api serves the JSON endpoints the pages call from the browser:
// voting and the login/rate widget in the footer.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Jackevansevo/jeddit/internal/reddit"
	"github.com/Jackevansevo/jeddit/internal/session"
)

// Server holds the dependencies of the JSON API handlers.
type Server struct {
	client   *reddit.Client
	sessions *session.Manager
	logger   *slog.Logger
}

// New creates the API server.
func New(client *reddit.Client, sessions *session.Manager, logger *slog.Logger) *Server {
	return &Server{client: client, sessions: sessions, logger: logger}
}

// Mount registers the API routes under the given router.
func (s *Server) Mount(r chi.Router) {
	r.Post("/vote", s.handleVote)
	r.Get("/session", s.handleSession)
}

type voteRequest struct {
	// ID is the thing's fullname, e.g. t3_abc123.
	ID  string `json:"id"`
	Dir int    `json:"dir"`
}

// handleVote casts a vote for the logged-in user. dir is 1, -1 or 0.
func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	viewer, sess, sessID := s.sessions.Viewer(r.Context(), r)
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "login required")
		return
	}

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ID == "" || req.Dir < -1 || req.Dir > 1 {
		writeError(w, http.StatusBadRequest, "id and dir (-1, 0 or 1) are required")
		return
	}

	if err := s.client.Vote(r.Context(), viewer, req.ID, req.Dir); err != nil {
		if errors.Is(err, reddit.ErrUnauthorized) {
			if derr := s.sessions.Destroy(r.Context(), w, sessID); derr != nil {
				s.logger.Warn("destroying session failed", "error", derr)
			}
			writeError(w, http.StatusUnauthorized, "session expired")
			return
		}
		var se reddit.StatusError
		if errors.As(err, &se) && se.Code == http.StatusTooManyRequests {
			writeError(w, http.StatusTooManyRequests, "rate limited")
			return
		}
		s.logger.Error("vote failed", "id", req.ID, "error", err)
		writeError(w, http.StatusBadGateway, "vote failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"id": req.ID, "dir": req.Dir})
}

type sessionResponse struct {
	LoggedIn bool               `json:"logged_in"`
	Name     string             `json:"name,omitempty"`
	Stats    *reddit.RateStatus `json:"stats,omitempty"`
}

// handleSession reports login state and the latest rate-limit snapshot,
// rendered in the page footer.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	viewer, sess, _ := s.sessions.Viewer(r.Context(), r)

	resp := sessionResponse{Stats: s.client.RateStatus(r.Context(), viewer)}
	if sess != nil {
		resp.LoggedIn = true
		resp.Name = sess.Account.Name
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
