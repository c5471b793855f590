package speech

import "time"

// Transcription is the recognized text of an utterance.
type Transcription struct {
	SessionID string    `json:"sessionId"`
	Text      string    `json:"text"`
	Duration  int64     `json:"duration"` // milliseconds
	RequestID string    `json:"requestId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Synthesis is the audio produced for one chunk of text.
type Synthesis struct {
	SessionID string    `json:"sessionId"`
	Audio     []byte    `json:"-"`
	Format    string    `json:"format"`
	Duration  int64     `json:"duration"` // milliseconds
	RequestID string    `json:"requestId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
