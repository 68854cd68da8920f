package proto

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Wire format: every state transition is a single 1-byte tag, written and
// flushed immediately. Initialized is followed by a 4-byte big-endian PID.
// Finished is followed by a 4-byte big-endian length and the encoded
// outcome. The task descriptor travels parent→child with the same
// length-prefixed framing.

// maxFrameSize bounds frame payloads on both sides: writers refuse to
// emit a frame the peer would reject.
const maxFrameSize = 64 << 20

var (
	// ErrFrameTooLarge is returned when a length prefix exceeds maxFrameSize.
	ErrFrameTooLarge = errors.New("frame exceeds size limit")
)

// Message is a single decoded state-transition message.
type Message struct {
	State   State
	PID     int    // set for StateInitialized
	Payload []byte // set for StateFinished
}

// WriteState writes a bare state tag.
func WriteState(w io.Writer, s State) error {
	if _, err := w.Write([]byte{byte(s)}); err != nil {
		return fmt.Errorf("write state %s: %w", s, err)
	}
	return nil
}

// WriteInitialized writes the Initialized tag followed by the worker PID.
func WriteInitialized(w io.Writer, pid int) error {
	buf := make([]byte, 5)
	buf[0] = byte(StateInitialized)
	binary.BigEndian.PutUint32(buf[1:], uint32(pid))
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write state %s: %w", StateInitialized, err)
	}
	return nil
}

// WriteFinished writes the Finished tag followed by the length-prefixed
// outcome payload. This must be the last message on the stream.
func WriteFinished(w io.Writer, payload []byte) error {
	if len(payload) > maxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}
	buf := make([]byte, 5+len(payload))
	buf[0] = byte(StateFinished)
	binary.BigEndian.PutUint32(buf[1:5], uint32(len(payload)))
	copy(buf[5:], payload)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write state %s: %w", StateFinished, err)
	}
	return nil
}

// ReadMessage reads the next state-transition message from the stream.
// A clean EOF before the tag byte is reported as io.EOF; a stream that
// ends inside a message is reported as io.ErrUnexpectedEOF.
func ReadMessage(r io.Reader) (Message, error) {
	var tag [1]byte
	if _, err := io.ReadFull(r, tag[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Message{}, io.EOF
		}
		return Message{}, fmt.Errorf("read state tag: %w", err)
	}

	state := State(tag[0])
	if state > StateFinished {
		return Message{}, fmt.Errorf("unknown state tag 0x%02x", tag[0])
	}

	msg := Message{State: state}
	switch state {
	case StateInitialized:
		var pid [4]byte
		if _, err := io.ReadFull(r, pid[:]); err != nil {
			return Message{}, fmt.Errorf("read %s pid: %w", state, eofToUnexpected(err))
		}
		msg.PID = int(binary.BigEndian.Uint32(pid[:]))
	case StateFinished:
		payload, err := ReadFrame(r)
		if err != nil {
			return Message{}, fmt.Errorf("read %s payload: %w", state, err)
		}
		msg.Payload = payload
	}
	return msg, nil
}

// WriteFrame writes a length-prefixed opaque payload.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > maxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(payload)))
	if _, err := w.Write(length[:]); err != nil {
		return fmt.Errorf("write frame length: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write frame payload: %w", err)
	}
	return nil
}

// ReadFrame reads a length-prefixed opaque payload.
func ReadFrame(r io.Reader) ([]byte, error) {
	var length [4]byte
	if _, err := io.ReadFull(r, length[:]); err != nil {
		return nil, fmt.Errorf("read frame length: %w", eofToUnexpected(err))
	}
	size := binary.BigEndian.Uint32(length[:])
	if size > maxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size)
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("read frame payload: %w", eofToUnexpected(err))
	}
	return payload, nil
}

// eofToUnexpected normalizes a mid-message EOF so callers can always
// treat io.ErrUnexpectedEOF as "truncated message".
func eofToUnexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
