package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	agenthandler "github.com/code-with-happy/ai-voice-agent/internal/handler/agent"
	"github.com/code-with-happy/ai-voice-agent/internal/model/agent"
	chatservice "github.com/code-with-happy/ai-voice-agent/internal/service/chat"
)

type scriptedTurns struct {
	store *chatservice.Store
	err   error
	got   agent.AudioInput
}

func (s *scriptedTurns) HandleTurn(ctx context.Context, sessionID string, in agent.AudioInput) (*agent.TurnResult, error) {
	s.got = in
	if s.err != nil {
		return nil, s.err
	}
	if _, err := s.store.GetOrCreate(ctx, sessionID); err != nil {
		return nil, err
	}
	if _, err := s.store.Append(ctx, sessionID, "user", "hello"); err != nil {
		return nil, err
	}
	return &agent.TurnResult{
		SessionID:     sessionID,
		Transcript:    "hello",
		ReplyText:     "hi",
		AudioURLs:     []string{"/audio/a.mp3", "/audio/b.mp3"},
		HistoryLength: 1,
	}, nil
}

func newServer(t *testing.T, turns *scriptedTurns) *Client {
	t.Helper()
	r := chi.NewRouter()
	agenthandler.New(turns, turns.store, agenthandler.Options{FallbackText: "Say that again?"}).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, srv.Client())
	require.NoError(t, err)
	return c
}

func TestSendTurn(t *testing.T) {
	turns := &scriptedTurns{store: chatservice.NewStore()}
	c := newServer(t, turns)

	resp, err := c.SendTurn(context.Background(), "s1", agent.AudioInput{Data: []byte("webm"), ContentType: "audio/webm", Format: "webm"})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, "hello", resp.Transcript)
	assert.Equal(t, "hi", resp.LLMText)
	require.Len(t, resp.AudioURLs, 2)
	assert.Equal(t, c.baseURL.String()+"/audio/a.mp3", resp.AudioURLs[0])
	assert.Equal(t, resp.AudioURLs[0], resp.AudioURL)
	assert.Equal(t, []byte("webm"), turns.got.Data)
	assert.Equal(t, "webm", turns.got.Format)
}

func TestSendTurnEnvelope(t *testing.T) {
	turns := &scriptedTurns{store: chatservice.NewStore(), err: agent.NewTurnError(agent.StageLLM, errors.New("provider down"))}
	c := newServer(t, turns)

	_, err := c.SendTurn(context.Background(), "s1", agent.AudioInput{Data: []byte("wav")})

	var remote *agent.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, http.StatusBadGateway, remote.StatusCode)
	assert.Equal(t, agent.StageLLM, remote.Envelope.ErrorStage)
	assert.Equal(t, "Say that again?", remote.FallbackText())
}

func TestSendTurnTransportFailure(t *testing.T) {
	c, err := New("http://127.0.0.1:1", nil)
	require.NoError(t, err)

	_, err = c.SendTurn(context.Background(), "s1", agent.AudioInput{Data: []byte("wav")})
	require.Error(t, err)

	var remote *agent.RemoteError
	assert.False(t, errors.As(err, &remote))
}

func TestHistory(t *testing.T) {
	turns := &scriptedTurns{store: chatservice.NewStore()}
	c := newServer(t, turns)
	ctx := context.Background()

	_, err := c.History(ctx, "s1")
	require.ErrorIs(t, err, ErrSessionNotFound)

	_, err = c.SendTurn(ctx, "s1", agent.AudioInput{Data: []byte("wav")})
	require.NoError(t, err)

	messages, err := c.History(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "hello", messages[0].Text)
}

func TestNewRejectsRelativeURL(t *testing.T) {
	_, err := New("localhost:8080", nil)
	require.Error(t, err)
}
