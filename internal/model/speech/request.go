package speech

// TranscriptionRequest asks for the text of one recorded utterance.
type TranscriptionRequest struct {
	SessionID string
	Audio     []byte
	Format    string // wav, mp3, ogg, webm, pcm
	Language  string
}

// SynthesisRequest asks for the audio of one chunk of text.
type SynthesisRequest struct {
	SessionID string  `json:"sessionId"`
	Text      string  `json:"text"`
	Voice     string  `json:"voice,omitempty"`
	Speed     float32 `json:"speed,omitempty"`
	Volume    float32 `json:"volume,omitempty"`
	Format    string  `json:"format,omitempty"`
	Language  string  `json:"language,omitempty"`

	// Emotion and EmotionScale (1 to 5) style expressive voices; other
	// voices ignore them.
	Emotion      string  `json:"emotion,omitempty"`
	EmotionScale float32 `json:"emotionScale,omitempty"`
}
