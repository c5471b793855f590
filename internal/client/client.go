// Package client talks to the voice agent server over HTTP.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/code-with-happy/ai-voice-agent/internal/model/agent"
	"github.com/code-with-happy/ai-voice-agent/internal/model/chat"
)

var ErrSessionNotFound = errors.New("session not found")

// Client calls the agent endpoints of one server.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// New returns a client for the server at baseURL. A nil httpClient gets a
// two minute timeout, long enough for a full turn.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	return &Client{baseURL: u, httpClient: httpClient}, nil
}

// SendTurn uploads one recording and returns the reply. Audio URLs in the
// response are made absolute. A failed turn comes back as *agent.RemoteError.
func (c *Client) SendTurn(ctx context.Context, sessionID string, in agent.AudioInput) (*agent.TurnResponse, error) {
	body, contentType, err := multipartAudio(in)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("agent", "chat", sessionID), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send turn: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read turn response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var env agent.ErrorEnvelope
		if err := sonic.Unmarshal(data, &env); err != nil || env.ErrorStage == "" {
			return nil, fmt.Errorf("send turn: unexpected status %d", resp.StatusCode)
		}
		return nil, &agent.RemoteError{StatusCode: resp.StatusCode, Envelope: env}
	}

	var out agent.TurnResponse
	if err := sonic.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode turn response: %w", err)
	}
	if !out.Success {
		return nil, fmt.Errorf("send turn: response not marked successful")
	}
	for i, u := range out.AudioURLs {
		out.AudioURLs[i] = c.resolve(u)
	}
	if out.AudioURL != "" {
		out.AudioURL = c.resolve(out.AudioURL)
	}
	return &out, nil
}

// History fetches the messages recorded for sessionID.
func (c *Client) History(ctx context.Context, sessionID string) ([]chat.Message, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("agent", "chat", sessionID, "history"), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrSessionNotFound
	default:
		return nil, fmt.Errorf("get history: unexpected status %d", resp.StatusCode)
	}

	var out struct {
		Messages []chat.Message `json:"messages"`
	}
	if err := sonic.ConfigDefault.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return out.Messages, nil
}

func (c *Client) endpoint(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return c.baseURL.String() + "/" + strings.Join(escaped, "/")
}

func (c *Client) resolve(ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return c.baseURL.ResolveReference(u).String()
}

func multipartAudio(in agent.AudioInput) (io.Reader, string, error) {
	format := in.Format
	if format == "" {
		format = "wav"
	}
	contentType := in.ContentType
	if contentType == "" {
		contentType = "audio/" + format
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="turn.%s"`, format))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(in.Data); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &body, mw.FormDataContentType(), nil
}
