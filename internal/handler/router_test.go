package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-with-happy/ai-voice-agent/internal/handler/persona"
	personamodel "github.com/code-with-happy/ai-voice-agent/internal/model/persona"
)

func TestRouterHealthz(t *testing.T) {
	r := NewRouter(Handlers{})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"status":"ok"}`, resp.Body.String())
}

func TestRouterMountsAPIAndStatic(t *testing.T) {
	r := NewRouter(Handlers{
		Persona: persona.New(personamodel.NewMemoryStore(personamodel.Seed()), "friendly-guide"),
		Static:  fstest.MapFS{"index.html": {Data: []byte("<html>voice</html>")}},
	})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/personas", nil))
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "voice")
}

func TestRouterCORSPreflight(t *testing.T) {
	r := NewRouter(Handlers{})

	req := httptest.NewRequest(http.MethodOptions, "/healthz", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, "*", resp.Header().Get("Access-Control-Allow-Origin"))
}
