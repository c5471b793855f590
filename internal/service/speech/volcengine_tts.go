package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/code-with-happy/ai-voice-agent/internal/model/speech"
)

// VolcengineTTS synthesizes speech over the unidirectional streaming API.
type VolcengineTTS struct {
	cfg    *speech.Config
	dialer *websocket.Dialer
	logger *slog.Logger
}

func NewVolcengineTTS(cfg *speech.Config, logger *slog.Logger) *VolcengineTTS {
	if logger == nil {
		logger = slog.Default()
	}
	return &VolcengineTTS{cfg: cfg, dialer: newDialer(), logger: logger.With("component", "volcengine_tts")}
}

type ttsRequest struct {
	User struct {
		UID string `json:"uid"`
	} `json:"user"`
	ReqParams struct {
		Speaker     string         `json:"speaker"`
		Text        string         `json:"text"`
		AudioParams ttsAudioParams `json:"audio_params"`
		Additions   string         `json:"additions,omitempty"`
		Language    string         `json:"language,omitempty"`
	} `json:"req_params"`
}

type ttsAudioParams struct {
	Format       string  `json:"format"`
	SampleRate   int     `json:"sample_rate"`
	SpeedRatio   float32 `json:"speed_ratio,omitempty"`
	VolumeRatio  float32 `json:"volume_ratio,omitempty"`
	Emotion      string  `json:"emotion,omitempty"`
	EmotionScale float32 `json:"emotion_scale,omitempty"`
}

type ttsResponse struct {
	ReqID    string `json:"reqid"`
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Sequence int    `json:"sequence"`
	Data     string `json:"data"`
	Addition struct {
		Duration string `json:"duration,omitempty"`
	} `json:"addition"`
}

// Synthesize returns the complete audio for req.Text. Speakers and resource
// ids are tried in order while the server reports a resource mismatch; any
// other failure ends the call.
func (c *VolcengineTTS) Synthesize(ctx context.Context, req *speech.SynthesisRequest) (*speech.Synthesis, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("tts: %w", ErrEmptyInput)
	}
	appID, token, err := resolveCredentials(c.cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, c.cfg)
	defer cancel()

	var lastMismatch error
	for _, speaker := range speakerCandidates(req.Voice, c.cfg.TTSVoice) {
		for _, resource := range resourceCandidates(speaker) {
			result, err := c.synthesizeWith(ctx, req, appID, token, speaker, resource)
			if err == nil {
				return result, nil
			}
			if !isResourceMismatch(err) {
				return nil, fmt.Errorf("tts: %w", err)
			}
			c.logger.Info("speaker resource mismatch", "speaker", speaker, "resource", resource)
			lastMismatch = err
		}
	}
	return nil, fmt.Errorf("tts: no compatible resource: %w", lastMismatch)
}

func (c *VolcengineTTS) synthesizeWith(ctx context.Context, req *speech.SynthesisRequest, appID, token, speaker, resource string) (*speech.Synthesis, error) {
	url := c.cfg.TTSURL
	if url == "" {
		url = defaultTTSURL
	}
	connectID := uuid.NewString()

	cn, err := dial(ctx, c.dialer, connectParams{
		URL:        url,
		AppID:      appID,
		Token:      token,
		ResourceID: resource,
		ConnectID:  connectID,
	}, c.logger.With("session", req.SessionID))
	if err != nil {
		return nil, err
	}
	defer cn.Close()

	format := c.format(req.Format)
	payload, err := sonic.Marshal(c.buildRequest(req, speaker, format))
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	if err := cn.send(newFullClientRequest(payload, NoCompression)); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	var (
		audio    bytes.Buffer
		reqID    string
		duration int64
	)
	for {
		f, err := cn.receive()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}

		switch f.Type {
		case ErrorMessage:
			return nil, serverError("tts", f)

		case AudioOnlyServerResponse:
			chunk, err := f.DecodedPayload()
			if err != nil {
				return nil, err
			}
			audio.Write(chunk)

		case FullServerResponse:
			payload, err := f.DecodedPayload()
			if err != nil {
				return nil, err
			}
			var resp ttsResponse
			if len(payload) > 0 {
				if err := sonic.Unmarshal(payload, &resp); err != nil {
					cn.logger.Warn("undecodable tts response", "error", err)
				} else {
					// 3000 is the legacy success code.
					if resp.Code != 0 && resp.Code != 3000 {
						return nil, fmt.Errorf("api error %d: %s", resp.Code, resp.Message)
					}
					if resp.ReqID != "" {
						reqID = resp.ReqID
					}
					if ms, err := strconv.ParseInt(resp.Addition.Duration, 10, 64); err == nil {
						duration = ms
					}
					if resp.Data != "" {
						chunk, err := base64.StdEncoding.DecodeString(resp.Data)
						if err != nil {
							return nil, fmt.Errorf("decode audio chunk: %w", err)
						}
						audio.Write(chunk)
					}
				}
			}

			finished := f.Flags&WithEvent == WithEvent && f.Event == EventSessionFinished
			if finished || f.IsLast() || resp.Sequence < 0 {
				if audio.Len() == 0 {
					return nil, fmt.Errorf("empty audio")
				}
				if reqID == "" {
					reqID = connectID
				}
				return &speech.Synthesis{
					SessionID: req.SessionID,
					Audio:     audio.Bytes(),
					Format:    format,
					Duration:  duration,
					RequestID: reqID,
					CreatedAt: time.Now(),
				}, nil
			}

		default:
			cn.logger.Debug("ignoring frame", "type", f.Type)
		}
	}
}

// format picks the output encoding. WAV is not offered by the streaming
// endpoint and falls back to mp3.
func (c *VolcengineTTS) format(requested string) string {
	format := strings.ToLower(strings.TrimSpace(requested))
	if format == "" {
		format = strings.ToLower(strings.TrimSpace(c.cfg.TTSFormat))
	}
	switch format {
	case "", "wav":
		return "mp3"
	default:
		return format
	}
}

func (c *VolcengineTTS) buildRequest(req *speech.SynthesisRequest, speaker, format string) *ttsRequest {
	r := &ttsRequest{}
	r.User.UID = req.SessionID
	if r.User.UID == "" {
		r.User.UID = uuid.NewString()
	}

	r.ReqParams.Speaker = speaker
	r.ReqParams.Text = req.Text
	r.ReqParams.AudioParams.Format = format
	r.ReqParams.AudioParams.SampleRate = 24000

	speed := req.Speed
	if speed <= 0 {
		speed = c.cfg.TTSSpeed
	}
	if speed > 0 && speed != 1 {
		r.ReqParams.AudioParams.SpeedRatio = speed
	}
	volume := req.Volume
	if volume <= 0 {
		volume = c.cfg.TTSVolume
	}
	if volume > 0 && volume != 1 {
		r.ReqParams.AudioParams.VolumeRatio = volume
	}

	// A fallback speaker may not be expressive.
	if req.Emotion != "" && SupportsEmotion(speaker) {
		r.ReqParams.AudioParams.Emotion = req.Emotion
		r.ReqParams.AudioParams.EmotionScale = req.EmotionScale
	}

	r.ReqParams.Language = req.Language
	if r.ReqParams.Language == "" {
		r.ReqParams.Language = c.cfg.TTSLanguage
	}
	r.ReqParams.Additions = `{"disable_markdown_filter":false}`
	return r
}
