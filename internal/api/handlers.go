// Package api exposes HTTP handlers for the activity directory.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"example.com/extracurricular/internal/domain"
	"example.com/extracurricular/internal/web/static"
)

// IndexPath is where the root path redirects browsers.
const IndexPath = "/static/index.html"

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service
	logger  *zap.Logger
}

// NewHandler builds a Handler. A nil logger disables logging.
func NewHandler(service *domain.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", redirectToIndex)
	mux.HandleFunc("GET /activities", h.listActivities)
	mux.HandleFunc("POST /activities/{name}/signup", h.signup)
	mux.HandleFunc("GET /healthz", healthz)
	mux.HandleFunc("GET "+IndexPath, serveIndex)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static.FS)))
}

// serveIndex serves index.html at its own path without a directory redirect.
func serveIndex(w http.ResponseWriter, r *http.Request) {
	page, err := static.FS.ReadFile("index.html")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", "internal server error")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	http.ServeContent(w, r, "index.html", time.Time{}, bytes.NewReader(page))
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func redirectToIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, IndexPath, http.StatusTemporaryRedirect)
}

func (h *Handler) listActivities(w http.ResponseWriter, r *http.Request) {
	activities, err := h.service.ListActivities(r.Context())
	if err != nil {
		h.logger.Error("list activities failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error", "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, ActivityDirectory(activities))
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	query := r.URL.Query()
	if !query.Has("email") {
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", "email query parameter is required")
		return
	}
	email := query.Get("email")

	if _, err := h.service.Signup(r.Context(), name, email); err != nil {
		switch {
		case errors.Is(err, domain.ErrActivityNotFound):
			writeError(w, http.StatusNotFound, "not_found", "Activity not found")
		case errors.Is(err, domain.ErrAlreadySignedUp):
			writeError(w, http.StatusBadRequest, "already_signed_up", "Student already signed up")
		case errors.Is(err, domain.ErrActivityFull):
			writeError(w, http.StatusBadRequest, "activity_full", "Activity is full")
		default:
			h.logger.Error("signup failed", zap.String("activity", name), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "server_error", "internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, SignupResponse{
		Message: fmt.Sprintf("Signed up %s for %s", email, name),
	})
}

// ActivityView is the public representation of one activity. The name is
// the key of the enclosing directory object.
type ActivityView struct {
	Description     string   `json:"description"`
	Schedule        string   `json:"schedule"`
	MaxParticipants int      `json:"max_participants"`
	Participants    []string `json:"participants"`
}

// ActivityDirectory encodes as a JSON object keyed by activity name, in
// catalog order.
type ActivityDirectory []domain.Activity

// MarshalJSON implements json.Marshaler.
func (d ActivityDirectory) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, a := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(a.Name)
		if err != nil {
			return nil, err
		}
		participants := a.Participants
		if participants == nil {
			participants = []string{}
		}
		value, err := json.Marshal(ActivityView{
			Description:     a.Description,
			Schedule:        a.Schedule,
			MaxParticipants: a.MaxParticipants,
			Participants:    participants,
		})
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// SignupResponse is returned after a successful signup.
type SignupResponse struct {
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
