package utils

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

var (
	ErrNoAudioFile    = errors.New("audio file is required")
	ErrNotAudio       = errors.New("uploaded file must be audio")
	ErrUploadTooLarge = errors.New("uploaded file is too large")
)

// Upload is an audio file read from a multipart request.
type Upload struct {
	Data        []byte
	Filename    string
	ContentType string
	// Format is the short container name, such as "webm" or "wav".
	Format string
}

var audioExtensions = map[string]string{
	".webm": "audio/webm",
	".weba": "audio/webm",
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".ogg":  "audio/ogg",
	".opus": "audio/ogg",
	".m4a":  "audio/mp4",
	".flac": "audio/flac",
	".pcm":  "audio/pcm",
}

// ReadAudioUpload reads the first present form field of fields as audio.
// The declared content type must be audio/*; a missing or generic type is
// inferred from the file extension.
func ReadAudioUpload(r *http.Request, maxBytes int64, fields ...string) (*Upload, error) {
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, ErrUploadTooLarge
		}
		return nil, fmt.Errorf("parse multipart form: %w", err)
	}
	defer r.MultipartForm.RemoveAll()

	for _, field := range fields {
		file, header, err := r.FormFile(field)
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", field, err)
		}
		defer file.Close()

		contentType := header.Header.Get("Content-Type")
		if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
			contentType = mediaType
		}
		if contentType == "" || contentType == "application/octet-stream" {
			contentType = audioExtensions[strings.ToLower(filepath.Ext(header.Filename))]
		}
		if !strings.HasPrefix(contentType, "audio/") {
			return nil, ErrNotAudio
		}

		data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", field, err)
		}
		if int64(len(data)) > maxBytes {
			return nil, ErrUploadTooLarge
		}
		return &Upload{
			Data:        data,
			Filename:    header.Filename,
			ContentType: contentType,
			Format:      AudioFormat(contentType, header.Filename),
		}, nil
	}
	return nil, ErrNoAudioFile
}

// AudioFormat derives a short format name from a MIME type, falling back to
// the file extension.
func AudioFormat(contentType, filename string) string {
	switch contentType {
	case "audio/webm":
		return "webm"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return "wav"
	case "audio/mpeg", "audio/mp3":
		return "mp3"
	case "audio/ogg", "audio/opus":
		return "ogg"
	case "audio/mp4", "audio/x-m4a", "audio/aac":
		return "m4a"
	case "audio/flac":
		return "flac"
	case "audio/pcm", "audio/l16":
		return "pcm"
	}
	if ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), "."); ext != "" {
		return ext
	}
	return "wav"
}
