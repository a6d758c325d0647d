package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	s, err := NewService("test-secret", opts...)
	require.NoError(t, err)
	return s
}

func TestIssueAndValidate(t *testing.T) {
	s := newService(t)
	sess, err := s.Issue("canvas_1")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, "canvas_1", sess.CanvasID)

	claims, err := s.Validate(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, "canvas_1", claims.CanvasID)
	assert.Equal(t, sess.SessionID, claims.Subject)
	assert.True(t, claims.ExpiresAt.Time.Equal(sess.ExpiresAt))
}

func TestEmptySecret(t *testing.T) {
	_, err := NewService("")
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestExpiredToken(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := newService(t, WithTTL(time.Minute), WithClock(func() time.Time { return now }))
	sess, err := s.Issue("canvas_1")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = s.Validate(sess.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRejectsForeignTokens(t *testing.T) {
	s := newService(t)

	other := newService(t)
	other.secret = []byte("another-secret")
	sess, err := other.Issue("canvas_1")
	require.NoError(t, err)
	_, err = s.Validate(sess.Token)
	assert.ErrorIs(t, err, ErrInvalidToken, "signed with another key")

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{CanvasID: "canvas_1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = s.Validate(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken, "alg none")

	_, err = s.Validate("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthorizeChecksCanvas(t *testing.T) {
	s := newService(t)
	sess, err := s.Issue("canvas_1")
	require.NoError(t, err)

	_, err = s.Authorize(sess.Token, "canvas_2")
	assert.ErrorIs(t, err, ErrWrongCanvas)
	_, err = s.Authorize(sess.Token, "canvas_1")
	assert.NoError(t, err)
}

func TestRequireCanvasMiddleware(t *testing.T) {
	s := newService(t)
	sess, err := s.Issue("canvas_1")
	require.NoError(t, err)

	r := mux.NewRouter()
	r.Handle("/ws/canvas/{id}", s.RequireCanvas("id")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		require.True(t, ok)
		w.Write([]byte(claims.CanvasID))
	})))

	cases := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"query token", "/ws/canvas/canvas_1?token=" + sess.Token, "", http.StatusOK},
		{"bearer token", "/ws/canvas/canvas_1", "Bearer " + sess.Token, http.StatusOK},
		{"missing", "/ws/canvas/canvas_1", "", http.StatusUnauthorized},
		{"malformed header", "/ws/canvas/canvas_1", "Token " + sess.Token, http.StatusUnauthorized},
		{"other canvas", "/ws/canvas/canvas_2?token=" + sess.Token, "", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestIssueSessionHandler(t *testing.T) {
	s := newService(t)
	h := NewHandler(s, func(id string) bool { return id == "canvas_1" })
	r := mux.NewRouter()
	r.HandleFunc("/api/canvases/{id}/session", h.IssueSession).Methods("POST")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/canvases/canvas_1/session", nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	var sess Session
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&sess))
	_, err := s.Authorize(sess.Token, "canvas_1")
	assert.NoError(t, err)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/canvases/nope/session", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIssuedTokenOpensOnlyItsCanvas(t *testing.T) {
	s := newService(t)
	h := NewHandler(s, func(id string) bool { return id == "canvas_1" || id == "canvas_2" })
	r := mux.NewRouter()
	r.HandleFunc("/api/canvases/{id}/session", h.IssueSession).Methods("POST")
	r.Handle("/ws/canvas/{id}", s.RequireCanvas("id")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	// No credentials are needed to mint a token.
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/canvases/canvas_1/session", nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	var sess Session
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&sess))

	for id, want := range map[string]int{
		"canvas_1": http.StatusOK,
		"canvas_2": http.StatusForbidden,
	} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws/canvas/"+id+"?token="+sess.Token, nil))
		assert.Equal(t, want, rec.Code, id)
	}
}
