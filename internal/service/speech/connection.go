package speech

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/code-with-happy/ai-voice-agent/internal/model/speech"
)

const (
	defaultASRURL = "wss://openspeech.bytedance.com/api/v3/sauc/bigmodel_nostream"
	defaultTTSURL = "wss://openspeech.bytedance.com/api/v3/tts/unidirectional/stream"

	handshakeTimeout = 30 * time.Second
)

// conn wraps one websocket session with the Volcengine framing.
type conn struct {
	ws     *websocket.Conn
	logger *slog.Logger
	done   chan struct{}
}

type connectParams struct {
	URL        string
	AppID      string
	Token      string
	ResourceID string
	ConnectID  string
}

func dial(ctx context.Context, dialer *websocket.Dialer, p connectParams, logger *slog.Logger) (*conn, error) {
	header := http.Header{}
	header.Set("X-Api-App-Key", p.AppID)
	header.Set("X-Api-Access-Key", p.Token)
	header.Set("X-Api-Resource-Id", p.ResourceID)
	header.Set("X-Api-Connect-Id", p.ConnectID)

	ws, resp, err := dialer.DialContext(ctx, p.URL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", p.URL, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", p.URL, err)
	}
	if resp != nil {
		if logID := resp.Header.Get("X-Tt-Logid"); logID != "" {
			logger = logger.With("logid", logID)
		}
	}
	logger.Debug("speech connection established", "resource", p.ResourceID)

	c := &conn{ws: ws, logger: logger, done: make(chan struct{})}
	// Unblock pending reads once the caller gives up.
	go func() {
		select {
		case <-ctx.Done():
			_ = ws.SetReadDeadline(time.Now())
		case <-c.done:
		}
	}()
	return c, nil
}

func (c *conn) send(f *Frame) error {
	data, err := f.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	return c.ws.WriteMessage(websocket.BinaryMessage, data)
}

func (c *conn) receive() (*Frame, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}
	return ReadFrame(bytes.NewReader(data))
}

func (c *conn) Close() error {
	close(c.done)
	return c.ws.Close()
}

// serverError turns an ErrorMessage frame into an error.
func serverError(service string, f *Frame) error {
	payload, err := f.DecodedPayload()
	if err != nil {
		return fmt.Errorf("%s error %d (undecodable payload): %w", service, f.ErrorCode, err)
	}
	return fmt.Errorf("%s error %d: %s", service, f.ErrorCode, strings.TrimSpace(string(payload)))
}

func resolveCredentials(cfg *speech.Config) (string, string, error) {
	if cfg == nil {
		return "", "", ErrNotConfigured
	}
	appID := strings.TrimSpace(cfg.AppID)
	token := strings.TrimSpace(cfg.AccessToken)
	if appID == "" || token == "" {
		return "", "", fmt.Errorf("%w: app id and access token are required", ErrNotConfigured)
	}
	return appID, token, nil
}

// withTimeout bounds one provider call by cfg.Timeout when it is set.
func withTimeout(ctx context.Context, cfg *speech.Config) (context.Context, context.CancelFunc) {
	if cfg == nil || cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, cfg.Timeout)
}

func newDialer() *websocket.Dialer {
	return &websocket.Dialer{HandshakeTimeout: handshakeTimeout}
}
