package speech

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameFullClientRequest(t *testing.T) {
	payload, err := gzipBytes([]byte(`{"user":{"uid":"abc"}}`))
	require.NoError(t, err)

	data, err := newFullClientRequest(payload, GzipCompression).MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x11, 0x10, 0x11, 0x00}, data[:4])

	f, err := ReadFrame(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, FullClientRequest, f.Type)
	assert.Equal(t, JSONSerialization, f.Serialization)

	decoded, err := f.DecodedPayload()
	require.NoError(t, err)
	assert.JSONEq(t, `{"user":{"uid":"abc"}}`, string(decoded))
}

func TestAudioOnlyRequestSequence(t *testing.T) {
	mid := newAudioOnlyRequest([]byte("pcm"), 2, false, NoCompression)
	assert.Equal(t, PositiveSequence, mid.Flags)
	assert.False(t, mid.IsLast())

	last := newAudioOnlyRequest([]byte("pcm"), 4, true, NoCompression)
	assert.Equal(t, NegativeSequence, last.Flags)
	assert.Equal(t, int32(-4), last.Sequence)
	assert.True(t, last.IsLast())

	data, err := last.MarshalBinary()
	require.NoError(t, err)
	f, err := ReadFrame(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, int32(-4), f.Sequence)
	assert.Equal(t, []byte("pcm"), f.Payload)
}

func TestFrameWithEvent(t *testing.T) {
	in := &Frame{
		Type:          FullServerResponse,
		Flags:         WithEvent,
		Serialization: JSONSerialization,
		Event:         EventSessionFinished,
		SessionID:     "session-1",
		Payload:       []byte(`{}`),
	}
	data, err := in.MarshalBinary()
	require.NoError(t, err)

	out, err := ReadFrame(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, EventSessionFinished, out.Event)
	assert.Equal(t, "session-1", out.SessionID)
	assert.Empty(t, out.ConnectID)

	started := &Frame{Type: FullServerResponse, Flags: WithEvent, Event: EventConnectionStarted, ConnectID: "conn-1"}
	data, err = started.MarshalBinary()
	require.NoError(t, err)
	out, err = ReadFrame(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "conn-1", out.ConnectID)
	assert.Empty(t, out.SessionID)
}

func TestFrameErrorMessage(t *testing.T) {
	in := &Frame{Type: ErrorMessage, ErrorCode: 45000001, Payload: []byte("bad request")}
	data, err := in.MarshalBinary()
	require.NoError(t, err)

	out, err := ReadFrame(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, uint32(45000001), out.ErrorCode)
	assert.EqualError(t, serverError("tts", out), "tts error 45000001: bad request")
}

func TestReadFrameRejects(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader([]byte{0x11, 0x10}))
	require.Error(t, err)

	_, err = ReadFrame(bytes.NewReader([]byte{0x21, 0x10, 0x10, 0x00, 0, 0, 0, 0}))
	require.ErrorContains(t, err, "unsupported protocol version")

	// Payload size promises more bytes than present.
	_, err = ReadFrame(bytes.NewReader([]byte{0x11, 0x90, 0x10, 0x00, 0, 0, 0, 9, 'x'}))
	require.Error(t, err)
}
