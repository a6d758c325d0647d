package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
)

type Handler struct {
	service *Service
	exists  func(canvasID string) bool
}

// NewHandler serves token issuance. exists reports whether a canvas id is
// known; tokens are only issued for existing canvases.
func NewHandler(service *Service, exists func(canvasID string) bool) *Handler {
	return &Handler{service: service, exists: exists}
}

// IssueSession handles POST /api/canvases/{id}/session. It requires no
// credentials; see the package documentation for the trust model.
func (h *Handler) IssueSession(w http.ResponseWriter, r *http.Request) {
	canvasID := mux.Vars(r)["id"]
	if !h.exists(canvasID) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	sess, err := h.service.Issue(canvasID)
	if err != nil {
		slog.Error("issue session failed", "error", err, "canvas", canvasID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusCreated, sess)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
