package outcome

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/psantana5/runproc/pkg/task"
)

// Codec is the opaque serialize/deserialize boundary for task
// descriptors and outcomes. Its internal format is not part of the
// channel contract.
type Codec interface {
	EncodeOutcome(o Outcome) ([]byte, error)
	DecodeOutcome(data []byte) (Outcome, error)
	EncodeDescriptor(d task.Descriptor) ([]byte, error)
	DecodeDescriptor(data []byte) (task.Descriptor, error)
}

func init() {
	// Concrete types carried inside the Value and Args interface slots
	// must be known to gob on both ends. Common scalars are registered
	// here; callers register their own payload types via RegisterType.
	gob.Register(int(0))
	gob.Register(int64(0))
	gob.Register(uint64(0))
	gob.Register(float64(0))
	gob.Register(false)
	gob.Register("")
	gob.Register([]byte(nil))
	gob.Register([]any(nil))
	gob.Register(map[string]any(nil))
	gob.Register(time.Duration(0))
	gob.Register(time.Time{})
}

// RegisterType makes a concrete argument or result type encodable.
// It must be called in both the supervisor and the worker binary,
// which is the same binary in the normal setup.
func RegisterType(value any) {
	gob.Register(value)
}

// GobCodec encodes descriptors and outcomes with encoding/gob.
type GobCodec struct{}

// NewGobCodec returns the default codec.
func NewGobCodec() *GobCodec {
	return &GobCodec{}
}

func (c *GobCodec) EncodeOutcome(o Outcome) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&o); err != nil {
		return nil, fmt.Errorf("encode outcome: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *GobCodec) DecodeOutcome(data []byte) (Outcome, error) {
	var o Outcome
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&o); err != nil {
		return Outcome{}, fmt.Errorf("decode outcome: %w", err)
	}
	return o, nil
}

func (c *GobCodec) EncodeDescriptor(d task.Descriptor) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&d); err != nil {
		return nil, fmt.Errorf("encode descriptor: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *GobCodec) DecodeDescriptor(data []byte) (task.Descriptor, error) {
	var d task.Descriptor
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&d); err != nil {
		return task.Descriptor{}, fmt.Errorf("decode descriptor: %w", err)
	}
	return d, nil
}
