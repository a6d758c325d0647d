package canvas

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/freecanvas/internal/middleware"
	"github.com/inamate/freecanvas/internal/workspace"
)

func newRouter(t *testing.T) (*mux.Router, *fixture) {
	t.Helper()
	f := newFixture(t, nil)
	r := mux.NewRouter()
	NewHandler(f.svc).Register(r.PathPrefix("/api").Subrouter())
	return r, f
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestCanvasCRUD(t *testing.T) {
	r, _ := newRouter(t)

	rec := do(r, "POST", "/api/canvases", `{"name":"First"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	first := decode[workspace.Summary](t, rec)

	rec = do(r, "POST", "/api/canvases", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	second := decode[workspace.Summary](t, rec)
	assert.Equal(t, DefaultName, second.Name)

	rec = do(r, "GET", "/api/canvases", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]workspace.Summary](t, rec), 2)

	rec = do(r, "PATCH", "/api/canvases/"+first.ID, `{"name":"Renamed"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Renamed", decode[workspace.Summary](t, rec).Name)

	rec = do(r, "POST", "/api/canvases/"+first.ID+"/switch", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[workspace.Summary](t, rec).Current)

	rec = do(r, "GET", "/api/canvases/"+first.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	entry := decode[workspace.Entry](t, rec)
	assert.Equal(t, "Renamed", entry.Name)
	assert.Empty(t, entry.Elements)

	rec = do(r, "DELETE", "/api/canvases/"+first.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(r, "GET", "/api/canvases/"+first.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCanvasErrors(t *testing.T) {
	r, _ := newRouter(t)

	assert.Equal(t, http.StatusBadRequest, do(r, "POST", "/api/canvases", `{`).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, "PATCH", "/api/canvases/x", `nope`).Code)
	assert.Equal(t, http.StatusNotFound, do(r, "PATCH", "/api/canvases/x", `{"name":"a"}`).Code)
	assert.Equal(t, http.StatusNotFound, do(r, "DELETE", "/api/canvases/x", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, "POST", "/api/canvases/x/switch", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, "GET", "/api/canvases/x/export", "").Code)

	long := `{"name":"` + strings.Repeat("a", maxNameLength+1) + `"}`
	assert.Equal(t, http.StatusBadRequest, do(r, "POST", "/api/canvases", long).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do(r, "POST", "/api/canvases/import", `{"elements":[{}]}`).Code)
}

func TestImportExportRoutes(t *testing.T) {
	r, _ := newRouter(t)

	body := `{"elements":[{"id":"el_1","kind":"circle","x":50,"y":50,"zIndex":1,"data":{"radius":25,"fill":"#0f0"}}]}`
	rec := do(r, "POST", "/api/canvases/import?name=Dots", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	sum := decode[workspace.Summary](t, rec)
	assert.Equal(t, "Dots", sum.Name)
	assert.Equal(t, 1, sum.ElementCount)

	rec = do(r, "GET", "/api/canvases/"+sum.ID+"/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), sum.ID+".json")
	assert.Contains(t, rec.Body.String(), `"kind": "circle"`)
}

func TestPreflightReachesCORS(t *testing.T) {
	r, f := newRouter(t)
	r.Use(middleware.CORS([]string{"http://localhost:5173"}))
	before := len(f.svc.List())

	for _, tc := range []struct{ path, method string }{
		{"/api/canvases", "POST"},
		{"/api/canvases/canvas_1", "PATCH"},
		{"/api/canvases/canvas_1", "DELETE"},
		{"/api/canvases/canvas_1/switch", "POST"},
		{"/api/canvases/canvas_1/session", "POST"},
	} {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, tc.path, nil)
			req.Header.Set("Origin", "http://localhost:5173")
			req.Header.Set("Access-Control-Request-Method", tc.method)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusNoContent, rec.Code)
			assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), tc.method)
		})
	}

	// A bare OPTIONS never reaches a mutating handler.
	assert.Equal(t, http.StatusNoContent, do(r, http.MethodOptions, "/api/canvases", "").Code)
	assert.Len(t, f.svc.List(), before)
}

func TestUnknownAPIPathIsNotFound(t *testing.T) {
	r, _ := newRouter(t)
	assert.Equal(t, http.StatusNotFound, do(r, "GET", "/api/nothing-here", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(r, "PUT", "/api/canvases", "").Code)
}
