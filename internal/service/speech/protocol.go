package speech

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Volcengine speech services share a binary framing over websocket:
//
//	byte 0: protocol version (4 bits) | header size in 4-byte words (4 bits)
//	byte 1: message type (4 bits)     | message flags (4 bits)
//	byte 2: serialization (4 bits)    | compression (4 bits)
//	byte 3: reserved
//
// followed by an optional sequence number, optional event metadata, a
// payload size and the payload.

const protocolVersion = 0b0001

// MessageType is the high nibble of the second header byte.
type MessageType uint8

const (
	FullClientRequest       MessageType = 0b0001
	AudioOnlyRequest        MessageType = 0b0010
	FullServerResponse      MessageType = 0b1001
	AudioOnlyServerResponse MessageType = 0b1011
	ErrorMessage            MessageType = 0b1111
)

// MessageFlags is the low nibble of the second header byte.
type MessageFlags uint8

const (
	NoSequence       MessageFlags = 0b0000
	PositiveSequence MessageFlags = 0b0001
	LastNoSequence   MessageFlags = 0b0010
	NegativeSequence MessageFlags = 0b0011
	WithEvent        MessageFlags = 0b0100

	sequenceMask MessageFlags = 0b0011
)

// EventType tags frames sent with the WithEvent flag.
type EventType int32

const (
	EventNone               EventType = 0
	EventStartConnection    EventType = 1
	EventFinishConnection   EventType = 2
	EventConnectionStarted  EventType = 50
	EventConnectionFailed   EventType = 51
	EventConnectionFinished EventType = 52
	EventSessionStarted     EventType = 150
	EventSessionFinished    EventType = 152
	EventSessionFailed      EventType = 153
)

// Serialization is the high nibble of the third header byte.
type Serialization uint8

const (
	NoSerialization   Serialization = 0b0000
	JSONSerialization Serialization = 0b0001
)

// Compression is the low nibble of the third header byte.
type Compression uint8

const (
	NoCompression   Compression = 0b0000
	GzipCompression Compression = 0b0001
)

var errShortHeader = errors.New("frame header shorter than 4 bytes")

// Frame is one decoded protocol message.
type Frame struct {
	Type          MessageType
	Flags         MessageFlags
	Serialization Serialization
	Compression   Compression

	Sequence  int32
	Event     EventType
	SessionID string
	ConnectID string
	ErrorCode uint32
	Payload   []byte
}

func (f *Frame) hasSequence() bool {
	s := f.Flags & sequenceMask
	return s == PositiveSequence || s == NegativeSequence
}

func (f *Frame) hasEvent() bool {
	return f.Flags&WithEvent == WithEvent
}

// IsLast reports whether the frame closes its stream.
func (f *Frame) IsLast() bool {
	s := f.Flags & sequenceMask
	return s == LastNoSequence || s == NegativeSequence
}

// MarshalBinary encodes the frame.
func (f *Frame) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	buf.Write([]byte{
		protocolVersion<<4 | 0b0001,
		byte(f.Type)<<4 | byte(f.Flags),
		byte(f.Serialization)<<4 | byte(f.Compression),
		0x00,
	})

	if f.hasSequence() {
		writeUint32(&buf, uint32(f.Sequence))
	}
	if f.hasEvent() {
		writeUint32(&buf, uint32(f.Event))
		if !eventSkipsSessionID(f.Event) {
			writeString(&buf, f.SessionID)
		}
		if eventHasConnectID(f.Event) {
			writeString(&buf, f.ConnectID)
		}
	}
	if f.Type == ErrorMessage {
		writeUint32(&buf, f.ErrorCode)
	}
	writeUint32(&buf, uint32(len(f.Payload)))
	buf.Write(f.Payload)
	return buf.Bytes(), nil
}

// ReadFrame decodes one frame from r.
func ReadFrame(r io.Reader) (*Frame, error) {
	header := make([]byte, 4)
	if _, err := io.ReadFull(r, header); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, errShortHeader
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	if version := header[0] >> 4; version != protocolVersion {
		return nil, fmt.Errorf("unsupported protocol version %d", version)
	}

	f := &Frame{
		Type:          MessageType(header[1] >> 4),
		Flags:         MessageFlags(header[1] & 0x0F),
		Serialization: Serialization(header[2] >> 4),
		Compression:   Compression(header[2] & 0x0F),
	}

	if extra := int(header[0]&0x0F)*4 - 4; extra > 0 {
		if _, err := io.CopyN(io.Discard, r, int64(extra)); err != nil {
			return nil, fmt.Errorf("read header extension: %w", err)
		}
	}

	if f.hasSequence() {
		seq, err := readUint32(r)
		if err != nil {
			return nil, fmt.Errorf("read sequence: %w", err)
		}
		f.Sequence = int32(seq)
	}

	if f.hasEvent() {
		event, err := readUint32(r)
		if err != nil {
			return nil, fmt.Errorf("read event: %w", err)
		}
		f.Event = EventType(int32(event))
		if !eventSkipsSessionID(f.Event) {
			if f.SessionID, err = readString(r); err != nil {
				return nil, fmt.Errorf("read session id: %w", err)
			}
		}
		if eventHasConnectID(f.Event) {
			if f.ConnectID, err = readString(r); err != nil {
				return nil, fmt.Errorf("read connect id: %w", err)
			}
		}
	}

	if f.Type == ErrorMessage {
		code, err := readUint32(r)
		if err != nil {
			return nil, fmt.Errorf("read error code: %w", err)
		}
		f.ErrorCode = code
	}

	size, err := readUint32(r)
	if err != nil {
		return nil, fmt.Errorf("read payload size: %w", err)
	}
	if size > 0 {
		f.Payload = make([]byte, size)
		if _, err := io.ReadFull(r, f.Payload); err != nil {
			return nil, fmt.Errorf("read payload (%d bytes): %w", size, err)
		}
	}
	return f, nil
}

// DecodedPayload returns the payload with compression removed.
func (f *Frame) DecodedPayload() ([]byte, error) {
	switch f.Compression {
	case NoCompression:
		return f.Payload, nil
	case GzipCompression:
		return gunzip(f.Payload)
	default:
		return nil, fmt.Errorf("unsupported compression %d", f.Compression)
	}
}

func newFullClientRequest(payload []byte, compression Compression) *Frame {
	return &Frame{
		Type:          FullClientRequest,
		Flags:         NoSequence,
		Serialization: JSONSerialization,
		Compression:   compression,
		Payload:       payload,
	}
}

// newAudioOnlyRequest frames one audio packet. The final packet carries a
// negated sequence number.
func newAudioOnlyRequest(audio []byte, sequence int32, last bool, compression Compression) *Frame {
	flags := PositiveSequence
	switch {
	case last && sequence != 0:
		flags = NegativeSequence
		sequence = -sequence
	case last:
		flags = LastNoSequence
	case sequence <= 0:
		flags = NoSequence
	}
	return &Frame{
		Type:          AudioOnlyRequest,
		Flags:         flags,
		Serialization: NoSerialization,
		Compression:   compression,
		Sequence:      sequence,
		Payload:       audio,
	}
}

func eventSkipsSessionID(event EventType) bool {
	switch event {
	case EventStartConnection, EventFinishConnection,
		EventConnectionStarted, EventConnectionFailed, EventConnectionFinished:
		return true
	}
	return false
}

func eventHasConnectID(event EventType) bool {
	switch event {
	case EventConnectionStarted, EventConnectionFailed, EventConnectionFinished:
		return true
	}
	return false
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeString(buf *bytes.Buffer, s string) {
	writeUint32(buf, uint32(len(s)))
	buf.WriteString(s)
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func readString(r io.Reader) (string, error) {
	size, err := readUint32(r)
	if err != nil || size == 0 {
		return "", err
	}
	b := make([]byte, size)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, fmt.Errorf("gzip write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w", err)
	}
	return buf.Bytes(), nil
}

func gunzip(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip reader: %w", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gzip read: %w", err)
	}
	return out, nil
}
