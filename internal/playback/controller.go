// Package playback runs the hands-free conversation loop on the client side:
// record, send the turn, play the reply, and listen again.
package playback

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/code-with-happy/ai-voice-agent/internal/model/agent"
)

// State is the phase of the conversation loop.
type State int

const (
	Idle State = iota
	Listening
	Processing
	Responding
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Listening:
		return "listening"
	case Processing:
		return "processing"
	case Responding:
		return "responding"
	default:
		return "unknown"
	}
}

// Recorder captures one utterance.
type Recorder interface {
	Record(ctx context.Context) (agent.AudioInput, error)
}

// TurnSender submits a recording and returns the server's reply. A failed
// turn should be reported as *agent.RemoteError.
type TurnSender interface {
	SendTurn(ctx context.Context, sessionID string, in agent.AudioInput) (*agent.TurnResponse, error)
}

// Player plays url and returns once playback has finished.
type Player interface {
	Play(ctx context.Context, url string) error
}

// Opener hands url to something else, such as a browser, when playback fails.
type Opener interface {
	Open(url string) error
}

// Speaker says text locally, without the server.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Advance reports that the loop moved past one reply segment.
type Advance struct {
	Index int
	URL   string
	Err   error
}

// Options configures a Controller.
type Options struct {
	SessionID string
	// FallbackText is spoken when the server is unreachable. Server-side
	// failures carry their own phrase.
	FallbackText  string
	Logger        *slog.Logger
	OnStateChange func(State)
	OnAdvance     func(Advance)
}

// Controller owns the loop state. Collaborators are called from the
// goroutine running Run.
type Controller struct {
	recorder Recorder
	sender   TurnSender
	player   Player
	opener   Opener
	speaker  Speaker
	opts     Options
	logger   *slog.Logger

	mu    sync.Mutex
	state State
	start chan struct{}
}

func New(recorder Recorder, sender TurnSender, player Player, opener Opener, speaker Speaker, opts Options) *Controller {
	if opts.FallbackText == "" {
		opts.FallbackText = agent.DefaultFallbackText
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		recorder: recorder,
		sender:   sender,
		player:   player,
		opener:   opener,
		speaker:  speaker,
		opts:     opts,
		logger:   logger.With("component", "playback", "session", opts.SessionID),
		start:    make(chan struct{}, 1),
	}
}

// State returns the current phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start begins listening. It is ignored, returning false, unless the
// controller is idle.
func (c *Controller) Start() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Idle {
		return false
	}
	select {
	case c.start <- struct{}{}:
		return true
	default:
		return false
	}
}

// Run drives the loop until ctx is done. After a failed turn the fallback
// phrase is spoken and the controller waits in Idle for the next Start.
func (c *Controller) Run(ctx context.Context) error {
	for {
		c.setState(Idle)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.start:
		}

		for {
			if err := c.turn(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				break
			}
		}
	}
}

// turn runs Listening, Processing and Responding once. A non-nil error
// ends the conversation.
func (c *Controller) turn(ctx context.Context) error {
	c.setState(Listening)
	in, err := c.recorder.Record(ctx)
	if err != nil {
		if ctx.Err() == nil {
			c.logger.Warn("recording failed", "error", err)
		}
		return err
	}

	c.setState(Processing)
	resp, err := c.sender.SendTurn(ctx, c.opts.SessionID, in)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		c.logger.Warn("turn failed", "stage", agent.StageOf(err), "error", err)
		c.speakFallback(ctx, err)
		return err
	}

	c.setState(Responding)
	urls := resp.AudioURLs
	if len(urls) == 0 && resp.AudioURL != "" {
		urls = []string{resp.AudioURL}
	}
	c.PlaySegments(ctx, urls)
	return ctx.Err()
}

// PlaySegments plays urls in order, waiting for each to finish. A segment
// that fails to play is handed to the Opener and skipped. It returns the
// number of segments advanced past, which is len(urls) unless ctx ends early.
func (c *Controller) PlaySegments(ctx context.Context, urls []string) int {
	advanced := 0
	for i, url := range urls {
		if ctx.Err() != nil {
			break
		}
		err := c.player.Play(ctx, url)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			c.logger.Warn("playback failed, opening externally", "segment", i, "url", url, "error", err)
			if c.opener != nil {
				if openErr := c.opener.Open(url); openErr != nil {
					c.logger.Debug("open failed", "url", url, "error", openErr)
				}
			}
		}
		advanced++
		if c.opts.OnAdvance != nil {
			c.opts.OnAdvance(Advance{Index: i, URL: url, Err: err})
		}
	}
	return advanced
}

func (c *Controller) speakFallback(ctx context.Context, err error) {
	text := c.opts.FallbackText
	var remote *agent.RemoteError
	if errors.As(err, &remote) {
		text = remote.FallbackText()
	}
	if c.speaker == nil {
		return
	}
	if speakErr := c.speaker.Speak(ctx, text); speakErr != nil {
		c.logger.Debug("fallback speech failed", "error", speakErr)
	}
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	changed := c.state != s
	c.state = s
	c.mu.Unlock()
	if changed && c.opts.OnStateChange != nil {
		c.opts.OnStateChange(s)
	}
}
