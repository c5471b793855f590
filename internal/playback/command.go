package playback

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/code-with-happy/ai-voice-agent/internal/model/agent"
)

var ErrNothingRecorded = errors.New("recorder produced no audio")

// CommandRecorder records by running an external program that writes one
// utterance to stdout and exits, e.g. sox with a silence effect.
type CommandRecorder struct {
	Args        []string
	Format      string
	ContentType string
}

func (r CommandRecorder) Record(ctx context.Context) (agent.AudioInput, error) {
	cmd, err := command(ctx, r.Args, "", "")
	if err != nil {
		return agent.AudioInput{}, err
	}
	data, err := cmd.Output()
	if err != nil {
		return agent.AudioInput{}, fmt.Errorf("record: %w", err)
	}
	if len(data) == 0 {
		return agent.AudioInput{}, ErrNothingRecorded
	}
	format := r.Format
	if format == "" {
		format = "wav"
	}
	contentType := r.ContentType
	if contentType == "" {
		contentType = "audio/" + format
	}
	return agent.AudioInput{Data: data, ContentType: contentType, Format: format}, nil
}

// CommandPlayer plays a URL with an external player that exits when done.
type CommandPlayer struct {
	Args []string
}

func (p CommandPlayer) Play(ctx context.Context, url string) error {
	cmd, err := command(ctx, p.Args, "{url}", url)
	if err != nil {
		return err
	}
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("play %s: %w: %s", url, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// CommandOpener launches a URL handler without waiting for it.
type CommandOpener struct {
	Args []string
}

func (o CommandOpener) Open(url string) error {
	cmd, err := command(context.Background(), o.Args, "{url}", url)
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait() //nolint:errcheck
	return nil
}

// CommandSpeaker speaks text with a local synthesizer such as say or espeak.
type CommandSpeaker struct {
	Args []string
}

func (s CommandSpeaker) Speak(ctx context.Context, text string) error {
	cmd, err := command(ctx, s.Args, "{text}", text)
	if err != nil {
		return err
	}
	return cmd.Run()
}

// command builds args into a command, substituting placeholder with value.
// When no argument holds the placeholder, value is appended.
func command(ctx context.Context, args []string, placeholder, value string) (*exec.Cmd, error) {
	if len(args) == 0 {
		return nil, errors.New("command not configured")
	}
	expanded := make([]string, 0, len(args)+1)
	substituted := placeholder == ""
	for _, a := range args {
		if placeholder != "" && strings.Contains(a, placeholder) {
			a = strings.ReplaceAll(a, placeholder, value)
			substituted = true
		}
		expanded = append(expanded, a)
	}
	if !substituted {
		expanded = append(expanded, value)
	}
	return exec.CommandContext(ctx, expanded[0], expanded[1:]...), nil
}
