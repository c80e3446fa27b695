package ffprobe

import (
	"context"
	"errors"
	"math"
	"testing"

	"peiyin/internal/services"
)

type stubExecutor struct {
	output []byte
	err    error
	args   []string
}

func (s *stubExecutor) Run(_ context.Context, _ string, args []string) ([]byte, error) {
	s.args = append([]string(nil), args...)
	return s.output, s.err
}

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video"},
			{CodecType: "audio"},
			{CodecType: "audio"},
		},
		Format: Format{
			Duration: "123.45",
			Size:     "1000",
		},
	}
	if result.VideoStreamCount() != 1 {
		t.Fatalf("expected 1 video stream, got %d", result.VideoStreamCount())
	}
	if result.AudioStreamCount() != 2 {
		t.Fatalf("expected 2 audio streams, got %d", result.AudioStreamCount())
	}
	if result.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 1000 {
		t.Fatalf("unexpected size: %d", result.SizeBytes())
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{Format: Format{Duration: "bad", Size: "-1"}}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
}

func TestInspectParsesOutput(t *testing.T) {
	stub := &stubExecutor{output: []byte(`{"streams":[{"index":0,"codec_type":"audio","codec_name":"aac"}],"format":{"duration":"4.5"}}`)}
	prober := Prober{Executor: stub}
	result, err := prober.Inspect(context.Background(), "/tmp/clip.m4a")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if result.AudioStreamCount() != 1 || result.DurationSeconds() != 4.5 {
		t.Fatalf("unexpected result %+v", result)
	}
	if got := stub.args[len(stub.args)-1]; got != "/tmp/clip.m4a" {
		t.Fatalf("expected path as last arg, got %q", got)
	}
}

func TestInspectMalformedJSON(t *testing.T) {
	prober := Prober{Executor: &stubExecutor{output: []byte("not json")}}
	if _, err := prober.Inspect(context.Background(), "/tmp/x"); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestRequireStreamsRejectsMissingVideo(t *testing.T) {
	prober := Prober{Executor: &stubExecutor{output: []byte(`{"streams":[{"codec_type":"audio"}],"format":{}}`)}}
	if _, err := prober.RequireStreams(context.Background(), "/tmp/x", true, false); err != nil {
		t.Fatalf("audio-only requirement should pass: %v", err)
	}
	_, err := prober.RequireStreams(context.Background(), "/tmp/x", false, true)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
