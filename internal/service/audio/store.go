// Package audio keeps synthesized speech on disk so it can be served by URL.
package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("audio file not found")

var namePattern = regexp.MustCompile(`^[0-9a-f-]{36}\.[a-z0-9]{2,5}$`)

// DiskStore writes audio files under Dir and builds their public URLs.
type DiskStore struct {
	dir     string
	baseURL string
}

// NewDiskStore creates dir if needed. baseURL is prefixed to "/audio/{name}";
// leave it empty for host-relative URLs.
func NewDiskStore(dir, baseURL string) (*DiskStore, error) {
	if dir == "" {
		return nil, errors.New("audio directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audio directory: %w", err)
	}
	return &DiskStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Save writes data under a fresh name and returns its URL.
func (s *DiskStore) Save(ctx context.Context, _ string, data []byte, format string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", errors.New("audio data is empty")
	}
	name := uuid.NewString() + "." + extension(format)
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write audio: %w", err)
	}
	return s.baseURL + "/audio/" + name, nil
}

// Path resolves a served name to its file. Names that Save could not have
// produced are rejected.
func (s *DiskStore) Path(name string) (string, error) {
	if !namePattern.MatchString(name) {
		return "", ErrNotFound
	}
	path := filepath.Join(s.dir, name)
	if _, err := os.Stat(path); err != nil {
		return "", ErrNotFound
	}
	return path, nil
}

func extension(format string) string {
	switch f := strings.ToLower(strings.TrimSpace(format)); f {
	case "", "mpeg":
		return "mp3"
	case "pcm":
		return "raw"
	case "ogg_opus":
		return "ogg"
	default:
		return f
	}
}

// ContentType maps a stored file name to its MIME type.
func ContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".ogg", ".opus":
		return "audio/ogg"
	case ".aac":
		return "audio/aac"
	case ".flac":
		return "audio/flac"
	default:
		return "application/octet-stream"
	}
}
