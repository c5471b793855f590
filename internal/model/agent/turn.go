// Package agent holds the request and result types of a conversational turn.
package agent

// AudioInput is the user's recorded utterance for one turn.
type AudioInput struct {
	Data        []byte
	ContentType string
	Format      string
}

// TurnResult is returned once every stage of a turn has succeeded.
type TurnResult struct {
	SessionID     string   `json:"sessionId"`
	Transcript    string   `json:"transcript"`
	ReplyText     string   `json:"llmText"`
	AudioURLs     []string `json:"audioUrls"`
	HistoryLength int      `json:"historyLength"`
}

// AudioChunk ties one slice of the reply to the audio synthesized for it.
type AudioChunk struct {
	Index int
	Text  string
	URL   string
}

// TurnResponse is the body returned by the chat endpoint on success.
type TurnResponse struct {
	Success       bool     `json:"success"`
	AudioURL      string   `json:"audioUrl"`
	AudioURLs     []string `json:"audioUrls"`
	Transcript    string   `json:"transcript"`
	LLMText       string   `json:"llmText"`
	SessionID     string   `json:"sessionId"`
	HistoryLength int      `json:"historyLength"`
}

// NewTurnResponse builds the success body for result.
func NewTurnResponse(result *TurnResult) TurnResponse {
	resp := TurnResponse{
		Success:       true,
		AudioURLs:     result.AudioURLs,
		Transcript:    result.Transcript,
		LLMText:       result.ReplyText,
		SessionID:     result.SessionID,
		HistoryLength: result.HistoryLength,
	}
	if resp.AudioURLs == nil {
		resp.AudioURLs = []string{}
	}
	if len(resp.AudioURLs) > 0 {
		resp.AudioURL = resp.AudioURLs[0]
	}
	return resp
}
