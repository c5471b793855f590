package audio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audiostore "github.com/code-with-happy/ai-voice-agent/internal/service/audio"
)

func TestServeStoredAudio(t *testing.T) {
	store, err := audiostore.NewDiskStore(t.TempDir(), "")
	require.NoError(t, err)
	url, err := store.Save(context.Background(), "s1", []byte("ID3-audio"), "mp3")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "/audio/"))

	r := chi.NewRouter()
	New(store).RegisterRoutes(r)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, url, nil))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "audio/mpeg", resp.Header().Get("Content-Type"))
	assert.Equal(t, "ID3-audio", resp.Body.String())
}

func TestServeUnknownAudio(t *testing.T) {
	store, err := audiostore.NewDiskStore(t.TempDir(), "")
	require.NoError(t, err)

	r := chi.NewRouter()
	New(store).RegisterRoutes(r)

	for _, path := range []string{
		"/audio/00000000-0000-0000-0000-000000000000.mp3",
		"/audio/..%2Fsecret.mp3",
		"/audio/notes.txt",
	} {
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, resp.Code, path)
	}
}
