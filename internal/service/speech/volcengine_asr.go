package speech

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/code-with-happy/ai-voice-agent/internal/model/speech"
)

const (
	asrHourlyResource     = "volc.bigasr.sauc.duration"
	asrConcurrentResource = "volc.bigasr.sauc.concurrent"
	asrSuccessCode        = 20000000

	// asrChunkBytes is 200ms of 16kHz 16-bit mono PCM.
	asrChunkBytes = 6400
	// The full client request takes sequence 1.
	asrFirstAudioSequence = 2
)

// VolcengineASR transcribes a complete recording over the bigmodel
// websocket API.
type VolcengineASR struct {
	cfg    *speech.Config
	dialer *websocket.Dialer
	logger *slog.Logger
}

func NewVolcengineASR(cfg *speech.Config, logger *slog.Logger) *VolcengineASR {
	if logger == nil {
		logger = slog.Default()
	}
	return &VolcengineASR{cfg: cfg, dialer: newDialer(), logger: logger.With("component", "volcengine_asr")}
}

type asrRequest struct {
	User struct {
		UID string `json:"uid,omitempty"`
	} `json:"user"`
	Audio struct {
		Language string `json:"language,omitempty"`
		Format   string `json:"format"`
		Codec    string `json:"codec,omitempty"`
		Rate     int    `json:"rate,omitempty"`
		Bits     int    `json:"bits,omitempty"`
		Channel  int    `json:"channel,omitempty"`
	} `json:"audio"`
	Request struct {
		ModelName      string `json:"model_name"`
		EnableITN      bool   `json:"enable_itn,omitempty"`
		EnablePunc     bool   `json:"enable_punc,omitempty"`
		ShowUtterances bool   `json:"show_utterances,omitempty"`
		ResultType     string `json:"result_type,omitempty"`
		EndWindowSize  int    `json:"end_window_size,omitempty"`
	} `json:"request"`
}

type asrUtterance struct {
	Text     string `json:"text"`
	Definite bool   `json:"definite"`
}

type asrResponse struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Sequence int    `json:"sequence"`
	Result   struct {
		Text       string         `json:"text"`
		Utterances []asrUtterance `json:"utterances,omitempty"`
	} `json:"result"`
	AudioInfo struct {
		Duration int64 `json:"duration"`
	} `json:"audio_info"`
}

// Transcribe sends the recording in fixed-size packets and waits for the
// final recognition result.
func (c *VolcengineASR) Transcribe(ctx context.Context, req *speech.TranscriptionRequest) (*speech.Transcription, error) {
	if len(req.Audio) == 0 {
		return nil, fmt.Errorf("asr: %w", ErrEmptyInput)
	}
	appID, token, err := resolveCredentials(c.cfg)
	if err != nil {
		return nil, err
	}

	resource := asrHourlyResource
	if c.cfg.ConcurrentMode {
		resource = asrConcurrentResource
	}
	url := c.cfg.ASRURL
	if url == "" {
		url = defaultASRURL
	}

	ctx, cancel := withTimeout(ctx, c.cfg)
	defer cancel()

	cn, err := dial(ctx, c.dialer, connectParams{
		URL:        url,
		AppID:      appID,
		Token:      token,
		ResourceID: resource,
		ConnectID:  uuid.NewString(),
	}, c.logger.With("session", req.SessionID))
	if err != nil {
		return nil, fmt.Errorf("asr: %w", err)
	}
	defer cn.Close()

	payload, err := sonic.Marshal(c.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("asr: marshal request: %w", err)
	}
	compressed, err := gzipBytes(payload)
	if err != nil {
		return nil, fmt.Errorf("asr: %w", err)
	}
	if err := cn.send(newFullClientRequest(compressed, GzipCompression)); err != nil {
		return nil, fmt.Errorf("asr: send request: %w", err)
	}

	// The server may reject the stream before all audio is written, so
	// results are read while audio is still being sent.
	sendErr := make(chan error, 1)
	go func() {
		sendErr <- sendAudio(ctx, cn, req.Audio)
	}()

	type outcome struct {
		result *speech.Transcription
		err    error
	}
	recv := make(chan outcome, 1)
	go func() {
		result, err := c.receive(cn, req.SessionID)
		recv <- outcome{result, err}
	}()

	for {
		select {
		case err := <-sendErr:
			if err != nil {
				return nil, fmt.Errorf("asr: send audio: %w", err)
			}
			sendErr = nil
		case out := <-recv:
			if out.err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				return nil, fmt.Errorf("asr: %w", out.err)
			}
			return out.result, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (c *VolcengineASR) buildRequest(req *speech.TranscriptionRequest) *asrRequest {
	r := &asrRequest{}
	r.User.UID = req.SessionID

	r.Audio.Format, r.Audio.Codec = audioContainer(req.Format)
	r.Audio.Language = req.Language
	if r.Audio.Language == "" {
		r.Audio.Language = c.cfg.ASRLanguage
	}
	r.Audio.Rate = 16000
	r.Audio.Bits = 16
	r.Audio.Channel = 1

	r.Request.ModelName = "bigmodel"
	r.Request.EnableITN = true
	r.Request.EnablePunc = true
	r.Request.ShowUtterances = true
	r.Request.ResultType = "full"
	r.Request.EndWindowSize = 800
	return r
}

// audioContainer maps an upload format to the container and codec the ASR
// API understands. Browser recordings arrive as webm/opus.
func audioContainer(format string) (string, string) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "mp3", "mpeg":
		return "mp3", ""
	case "ogg", "webm", "opus":
		return "ogg", "opus"
	case "pcm", "raw":
		return "pcm", "raw"
	default:
		return "wav", "raw"
	}
}

func sendAudio(ctx context.Context, cn *conn, audio []byte) error {
	seq := int32(asrFirstAudioSequence)
	for start := 0; start < len(audio); start += asrChunkBytes {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+asrChunkBytes, len(audio))
		last := end == len(audio)

		chunk, err := gzipBytes(audio[start:end])
		if err != nil {
			return err
		}
		if err := cn.send(newAudioOnlyRequest(chunk, seq, last, GzipCompression)); err != nil {
			return err
		}
		seq++
	}
	return nil
}

func (c *VolcengineASR) receive(cn *conn, sessionID string) (*speech.Transcription, error) {
	var (
		text     string
		duration int64
	)
	for {
		f, err := cn.receive()
		if err != nil {
			return nil, err
		}

		switch f.Type {
		case ErrorMessage:
			return nil, serverError("asr", f)
		case FullServerResponse:
			payload, err := f.DecodedPayload()
			if err != nil {
				return nil, err
			}
			var resp asrResponse
			if err := sonic.Unmarshal(payload, &resp); err != nil {
				cn.logger.Warn("undecodable asr response", "error", err)
				continue
			}
			if resp.Code != 0 && resp.Code != asrSuccessCode {
				return nil, fmt.Errorf("api error %d: %s", resp.Code, resp.Message)
			}

			candidate := resp.Result.Text
			if candidate == "" {
				candidate = joinUtterances(resp.Result.Utterances)
			}
			if candidate != "" {
				text = candidate
			}
			if resp.AudioInfo.Duration > 0 {
				duration = resp.AudioInfo.Duration
			}

			if f.IsLast() || resp.Sequence < 0 {
				return &speech.Transcription{
					SessionID: sessionID,
					Text:      strings.TrimSpace(text),
					Duration:  duration,
					RequestID: sessionID,
					CreatedAt: time.Now(),
				}, nil
			}
		}
	}
}

func joinUtterances(utterances []asrUtterance) string {
	parts := make([]string, 0, len(utterances))
	for _, u := range utterances {
		if t := strings.TrimSpace(u.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
