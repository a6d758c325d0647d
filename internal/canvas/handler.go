package canvas

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/inamate/freecanvas/internal/middleware"
)

// maxImportSize bounds an imported document body.
const maxImportSize = 100 << 20

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type nameRequest struct {
	Name string `json:"name"`
}

// Register mounts the canvas routes on r, which is expected to be the /api
// subrouter. OPTIONS requests to any path below r are answered as preflights.
func (h *Handler) Register(r *mux.Router) {
	r.MatcherFunc(isOptions).HandlerFunc(middleware.Preflight)
	r.HandleFunc("/canvases", h.List).Methods("GET")
	r.HandleFunc("/canvases", h.Create).Methods("POST")
	r.HandleFunc("/canvases/import", h.Import).Methods("POST")
	r.HandleFunc("/canvases/{id}", h.Get).Methods("GET")
	r.HandleFunc("/canvases/{id}", h.Rename).Methods("PATCH")
	r.HandleFunc("/canvases/{id}", h.Delete).Methods("DELETE")
	r.HandleFunc("/canvases/{id}/switch", h.SwitchTo).Methods("POST")
	r.HandleFunc("/canvases/{id}/export", h.Export).Methods("GET")
}

// isOptions is a plain matcher rather than Methods so that unknown paths
// below the subrouter still answer 404, not 405.
func isOptions(r *http.Request, _ *mux.RouteMatch) bool {
	return r.Method == http.MethodOptions
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.List())
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
	}

	sum, err := h.service.Create(req.Name)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sum)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	e, err := h.service.Get(mux.Vars(r)["id"])
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *Handler) Rename(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	sum, err := h.service.Rename(mux.Vars(r)["id"], req.Name)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(mux.Vars(r)["id"]); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SwitchTo(w http.ResponseWriter, r *http.Request) {
	sum, err := h.service.SwitchTo(mux.Vars(r)["id"])
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	data, err := h.service.Export(id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.json"`, id))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Import handles POST /api/canvases/import?name=... with a scene document as
// the body.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportSize))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "document too large"})
		return
	}

	sum, err := h.service.Import(r.URL.Query().Get("name"), data)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sum)
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, ErrInvalidName):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrInvalidDocument):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	default:
		slog.Error("service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
