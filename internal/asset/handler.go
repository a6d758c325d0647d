package asset

import (
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/inamate/freecanvas/internal/typeid"
)

const maxUploadSize = 10 << 20 // 10MB

// UploadResponse is returned from the upload endpoint.
type UploadResponse struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Type   string `json:"type"`
	Name   string `json:"name"`
}

// Handler serves asset upload and retrieval endpoints.
type Handler struct {
	dir string
}

// NewHandler creates an asset handler that stores files in dir.
func NewHandler(dir string) *Handler {
	if err := os.MkdirAll(dir, 0755); err != nil {
		slog.Error("create asset dir", "error", err, "dir", dir)
	}
	return &Handler{dir: dir}
}

func acceptedType(contentType string) bool {
	for _, t := range acceptedTypes {
		if strings.HasPrefix(contentType, t) {
			return true
		}
	}
	return false
}

// Upload handles POST /assets/upload (multipart form with a "file" field).
// Every accepted format is stored as PNG.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file too large (max 10MB)"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing file field"})
		return
	}
	defer file.Close()

	if !acceptedType(header.Header.Get("Content-Type")) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "only PNG, JPEG, WebP and BMP images are supported"})
		return
	}

	img, format, err := image.Decode(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid image: " + err.Error()})
		return
	}

	assetID := typeid.NewAssetID()
	filename := assetID + ".png"
	path := filepath.Join(h.dir, filename)

	out, err := os.Create(path)
	if err != nil {
		slog.Error("create asset file", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save file"})
		return
	}
	defer out.Close()

	if err := png.Encode(out, img); err != nil {
		slog.Error("encode png", "error", err, "source_format", format)
		os.Remove(path)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to encode image"})
		return
	}

	b := img.Bounds()
	writeJSON(w, http.StatusOK, UploadResponse{
		ID:     assetID,
		URL:    URLPrefix + filename,
		Width:  b.Dx(),
		Height: b.Dy(),
		Type:   "png",
		Name:   header.Filename,
	})
}

// Serve returns an http.Handler for stored asset files.
func (h *Handler) Serve() http.Handler {
	fs := http.FileServer(http.Dir(h.dir))
	return http.StripPrefix(URLPrefix, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Asset IDs are unique, so files are immutable
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		fs.ServeHTTP(w, r)
	}))
}

// Delete removes a stored asset.
func (h *Handler) Delete(assetID string) error {
	if err := typeid.Validate(assetID, typeid.PrefixAsset); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(h.dir, assetID+".png")); err != nil {
		return fmt.Errorf("asset not found: %s", assetID)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
