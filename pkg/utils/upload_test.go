package utils

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func multipartRequest(t *testing.T, field, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestReadAudioUpload(t *testing.T) {
	req := multipartRequest(t, "file", "turn.webm", "audio/webm;codecs=opus", []byte("webm-bytes"))

	upload, err := ReadAudioUpload(req, 1<<20, "file", "audio")
	require.NoError(t, err)
	assert.Equal(t, []byte("webm-bytes"), upload.Data)
	assert.Equal(t, "audio/webm", upload.ContentType)
	assert.Equal(t, "webm", upload.Format)
}

func TestReadAudioUploadAlternateFieldAndInferredType(t *testing.T) {
	req := multipartRequest(t, "audio", "turn.wav", "application/octet-stream", []byte("RIFF"))

	upload, err := ReadAudioUpload(req, 1<<20, "file", "audio")
	require.NoError(t, err)
	assert.Equal(t, "audio/wav", upload.ContentType)
	assert.Equal(t, "wav", upload.Format)
}

func TestReadAudioUploadRejects(t *testing.T) {
	_, err := ReadAudioUpload(multipartRequest(t, "file", "notes.txt", "text/plain", []byte("hi")), 1<<20, "file")
	require.ErrorIs(t, err, ErrNotAudio)

	_, err = ReadAudioUpload(multipartRequest(t, "other", "turn.wav", "audio/wav", []byte("RIFF")), 1<<20, "file", "audio")
	require.ErrorIs(t, err, ErrNoAudioFile)

	_, err = ReadAudioUpload(multipartRequest(t, "file", "turn.wav", "audio/wav", bytes.Repeat([]byte{1}, 64)), 16, "file")
	require.ErrorIs(t, err, ErrUploadTooLarge)
}

func TestRespondJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondJSON(rec, http.StatusCreated, map[string]any{"ok": true})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}
