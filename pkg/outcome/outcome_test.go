package outcome

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/psantana5/runproc/pkg/task"
)

func TestOutcomeRoundTrip(t *testing.T) {
	codec := NewGobCodec()

	tests := []struct {
		name    string
		outcome Outcome
	}{
		{"nil value", Success(nil)},
		{"int value", Success(42)},
		{"string value", Success("transcoded")},
		{"slice value", Success([]any{"a", 1, 2.5})},
		{"map value", Success(map[string]any{"frames": 1200, "codec": "h264"})},
		{"failure", Failed(&RemoteFailure{
			Type:    "*errors.errorString",
			Message: "boom",
			Trace:   "goroutine 1 [running]:\nmain.main()",
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := codec.EncodeOutcome(tt.outcome)
			if err != nil {
				t.Fatalf("EncodeOutcome error: %v", err)
			}
			got, err := codec.DecodeOutcome(data)
			if err != nil {
				t.Fatalf("DecodeOutcome error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.outcome) {
				t.Errorf("round trip = %+v, want %+v", got, tt.outcome)
			}

			// Decode-then-reencode must produce an equal outcome again.
			data2, err := codec.EncodeOutcome(got)
			if err != nil {
				t.Fatalf("re-encode error: %v", err)
			}
			again, err := codec.DecodeOutcome(data2)
			if err != nil {
				t.Fatalf("re-decode error: %v", err)
			}
			if !reflect.DeepEqual(again, tt.outcome) {
				t.Errorf("re-encoded round trip = %+v, want %+v", again, tt.outcome)
			}
		})
	}
}

func TestDescriptorRoundTrip(t *testing.T) {
	codec := NewGobCodec()

	desc := task.Descriptor{
		Name: "transcode",
		Args: []any{"input.mp4", 2, true},
	}

	data, err := codec.EncodeDescriptor(desc)
	if err != nil {
		t.Fatalf("EncodeDescriptor error: %v", err)
	}
	got, err := codec.DecodeDescriptor(data)
	if err != nil {
		t.Fatalf("DecodeDescriptor error: %v", err)
	}
	if !reflect.DeepEqual(got, desc) {
		t.Errorf("round trip = %+v, want %+v", got, desc)
	}
}

func TestDecodeOutcomeGarbage(t *testing.T) {
	codec := NewGobCodec()
	if _, err := codec.DecodeOutcome(bytes.Repeat([]byte{0x7f}, 16)); err == nil {
		t.Error("DecodeOutcome succeeded on garbage input")
	}
}

func TestIsSuccess(t *testing.T) {
	if !Success("ok").IsSuccess() {
		t.Error("Success outcome reported as failure")
	}
	if Failed(&RemoteFailure{Message: "x"}).IsSuccess() {
		t.Error("Failed outcome reported as success")
	}
}

func TestCaptureFailure(t *testing.T) {
	failure := CaptureFailure(errors.New("boom"))

	if failure.Type != "*errors.errorString" {
		t.Errorf("Type = %q, want *errors.errorString", failure.Type)
	}
	if failure.Message != "boom" {
		t.Errorf("Message = %q, want boom", failure.Message)
	}
	if !strings.Contains(failure.Trace, "TestCaptureFailure") {
		t.Errorf("Trace does not contain the capturing frame:\n%s", failure.Trace)
	}
}
