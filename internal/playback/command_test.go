package playback

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireTool(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available", name)
	}
}

func TestCommandRecorder(t *testing.T) {
	requireTool(t, "printf")

	in, err := CommandRecorder{Args: []string{"printf", "RIFF"}}.Record(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("RIFF"), in.Data)
	assert.Equal(t, "wav", in.Format)
	assert.Equal(t, "audio/wav", in.ContentType)

	_, err = CommandRecorder{Args: []string{"printf", ""}}.Record(context.Background())
	assert.ErrorIs(t, err, ErrNothingRecorded)
}

func TestCommandPlayer(t *testing.T) {
	requireTool(t, "true")
	requireTool(t, "false")

	assert.NoError(t, CommandPlayer{Args: []string{"true"}}.Play(context.Background(), "http://x/a.mp3"))
	assert.Error(t, CommandPlayer{Args: []string{"false"}}.Play(context.Background(), "http://x/a.mp3"))
	assert.Error(t, CommandPlayer{}.Play(context.Background(), "http://x/a.mp3"))
}

func TestCommandPlaceholder(t *testing.T) {
	cmd, err := command(context.Background(), []string{"mpv", "--really-quiet", "{url}"}, "{url}", "http://x/a.mp3")
	require.NoError(t, err)
	assert.Equal(t, []string{"mpv", "--really-quiet", "http://x/a.mp3"}, cmd.Args)

	cmd, err = command(context.Background(), []string{"espeak"}, "{text}", "hello there")
	require.NoError(t, err)
	assert.Equal(t, []string{"espeak", "hello there"}, cmd.Args)

	cmd, err = command(context.Background(), []string{"sox", "-d", "-t", "wav", "-"}, "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"sox", "-d", "-t", "wav", "-"}, cmd.Args)
}
