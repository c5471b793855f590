package web

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticIndex(t *testing.T) {
	page, err := fs.ReadFile(Static(), "index.html")
	require.NoError(t, err)

	body := string(page)
	assert.Contains(t, body, `url.searchParams.get("session")`, "session id is read back from the page URL")
	assert.Contains(t, body, "history.replaceState(", "new session ids are written to the page URL")
	assert.Contains(t, body, "if (done) return;", "a failed segment is opened once")
	assert.Contains(t, body, "/agent/chat/")
}

func TestStartClaimsListeningBeforeMicrophonePrompt(t *testing.T) {
	page, err := fs.ReadFile(Static(), "index.html")
	require.NoError(t, err)

	body := string(page)
	guard := strings.Index(body, `if (state !== "idle") return;`)
	require.GreaterOrEqual(t, guard, 0)
	handler := body[guard:]
	claim := strings.Index(handler, `setState("listening");`)
	prompt := strings.Index(handler, "getUserMedia(")
	require.GreaterOrEqual(t, claim, 0)
	require.GreaterOrEqual(t, prompt, 0)
	assert.Less(t, claim, prompt)
}
