package playback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-with-happy/ai-voice-agent/internal/model/agent"
)

// scriptedRecorder returns one recording per entry in takes, then blocks
// until the context ends.
type scriptedRecorder struct {
	mu    sync.Mutex
	takes int
	calls int
}

func (r *scriptedRecorder) Record(ctx context.Context) (agent.AudioInput, error) {
	r.mu.Lock()
	r.calls++
	call := r.calls
	r.mu.Unlock()
	if call <= r.takes {
		return agent.AudioInput{Data: []byte("audio"), Format: "wav"}, nil
	}
	<-ctx.Done()
	return agent.AudioInput{}, ctx.Err()
}

type fakeSender struct {
	resp *agent.TurnResponse
	err  error
}

func (s *fakeSender) SendTurn(context.Context, string, agent.AudioInput) (*agent.TurnResponse, error) {
	return s.resp, s.err
}

type fakePlayer struct {
	mu     sync.Mutex
	fail   map[string]bool
	played []string
}

func (p *fakePlayer) Play(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.played = append(p.played, url)
	if p.fail[url] {
		return errors.New("decode error")
	}
	return nil
}

type fakeOpener struct {
	mu     sync.Mutex
	opened []string
}

func (o *fakeOpener) Open(url string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opened = append(o.opened, url)
	return nil
}

type fakeSpeaker struct {
	mu    sync.Mutex
	spoke []string
}

func (s *fakeSpeaker) Speak(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spoke = append(s.spoke, text)
	return nil
}

func (s *fakeSpeaker) said() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.spoke...)
}

func waitForStates(t *testing.T, states <-chan State, want ...State) {
	t.Helper()
	for i, w := range want {
		select {
		case got := <-states:
			require.Equal(t, w, got, "state %d", i)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for state %d (%s)", i, w)
		}
	}
}

func TestPlaySegmentsFailingMiddleSegment(t *testing.T) {
	urls := []string{"http://x/a.mp3", "http://x/b.mp3", "http://x/c.mp3"}
	player := &fakePlayer{fail: map[string]bool{urls[1]: true}}
	opener := &fakeOpener{}
	var advances []Advance
	c := New(nil, nil, player, opener, nil, Options{OnAdvance: func(a Advance) { advances = append(advances, a) }})

	n := c.PlaySegments(context.Background(), urls)

	assert.Equal(t, 3, n)
	assert.Equal(t, urls, player.played)
	assert.Equal(t, []string{urls[1]}, opener.opened)
	require.Len(t, advances, 3)
	assert.NoError(t, advances[0].Err)
	assert.Error(t, advances[1].Err)
	assert.Equal(t, 2, advances[2].Index)
}

func TestPlaySegmentsStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := New(nil, nil, &fakePlayer{}, nil, nil, Options{})

	assert.Equal(t, 0, c.PlaySegments(ctx, []string{"a", "b"}))
}

func TestRunLoopsBackToListening(t *testing.T) {
	urls := []string{"http://x/a.mp3", "http://x/b.mp3", "http://x/c.mp3"}
	player := &fakePlayer{fail: map[string]bool{urls[1]: true}}
	opener := &fakeOpener{}
	states := make(chan State, 16)
	advances := make(chan Advance, 16)

	c := New(
		&scriptedRecorder{takes: 1},
		&fakeSender{resp: &agent.TurnResponse{Success: true, AudioURL: urls[0], AudioURLs: urls}},
		player, opener, &fakeSpeaker{},
		Options{
			SessionID:     "s1",
			OnStateChange: func(s State) { states <- s },
			OnAdvance:     func(a Advance) { advances <- a },
		},
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.True(t, c.Start())
	waitForStates(t, states, Listening, Processing, Responding, Listening)
	assert.Len(t, advances, 3)
	assert.Equal(t, []string{urls[1]}, opener.opened)

	assert.False(t, c.Start(), "start is ignored while listening")

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunSpeaksFallbackOnEnvelope(t *testing.T) {
	states := make(chan State, 16)
	speaker := &fakeSpeaker{}
	recorder := &scriptedRecorder{takes: 2}
	c := New(
		recorder,
		&fakeSender{err: &agent.RemoteError{StatusCode: 502, Envelope: agent.ErrorEnvelope{ErrorStage: agent.StageLLM, FallbackText: "Try later."}}},
		&fakePlayer{}, &fakeOpener{}, speaker,
		Options{OnStateChange: func(s State) { states <- s }},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	require.True(t, c.Start())
	waitForStates(t, states, Listening, Processing, Idle)
	assert.Equal(t, []string{"Try later."}, speaker.said())

	// No automatic relisten: a new Start is required.
	require.True(t, c.Start())
	waitForStates(t, states, Listening, Processing, Idle)
	assert.Len(t, speaker.said(), 2)
}

func TestRunSpeaksDefaultFallbackOnTransportFailure(t *testing.T) {
	states := make(chan State, 16)
	speaker := &fakeSpeaker{}
	c := New(
		&scriptedRecorder{takes: 1},
		&fakeSender{err: errors.New("connection refused")},
		&fakePlayer{}, &fakeOpener{}, speaker,
		Options{OnStateChange: func(s State) { states <- s }},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	require.True(t, c.Start())
	waitForStates(t, states, Listening, Processing, Idle)
	assert.Equal(t, []string{agent.DefaultFallbackText}, speaker.said())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "responding", Responding.String())
}
