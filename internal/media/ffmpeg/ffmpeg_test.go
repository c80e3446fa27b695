package ffmpeg_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"peiyin/internal/media/ffmpeg"
	"peiyin/internal/services"
)

type recordingExecutor struct {
	calls [][]string
	write bool
}

func (r *recordingExecutor) Run(_ context.Context, _ string, args []string) ([]byte, error) {
	r.calls = append(r.calls, append([]string(nil), args...))
	if r.write {
		if err := os.WriteFile(args[len(args)-1], []byte("media"), 0o644); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func argValue(args []string, flag string) string {
	idx := slices.Index(args, flag)
	if idx < 0 || idx+1 >= len(args) {
		return ""
	}
	return args[idx+1]
}

func TestReplaceAudioMapsVideoAndNewAudio(t *testing.T) {
	exec := &recordingExecutor{write: true}
	client := ffmpeg.New("ffmpeg", ffmpeg.WithExecutor(exec), ffmpeg.WithAudioEncoding("aac", "128k"))
	out := filepath.Join(t.TempDir(), "out.mp4")
	if err := client.ReplaceAudio(context.Background(), "video.mp4", "bg.mp3", out); err != nil {
		t.Fatalf("ReplaceAudio: %v", err)
	}
	args := exec.calls[0]
	joined := strings.Join(args, " ")
	for _, want := range []string{"-i video.mp4 -i bg.mp3", "-map 0:v:0 -map 1:a:0", "-c:v copy", "-c:a aac -b:a 128k"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q in %q", want, joined)
		}
	}
	if slices.Contains(args, "-shortest") {
		t.Fatalf("replace audio must not truncate to the shorter stream")
	}
	if args[len(args)-1] != out {
		t.Fatalf("expected output last, got %q", args[len(args)-1])
	}
}

func TestMixAudioUsesEqualWeightsAndLongestDuration(t *testing.T) {
	exec := &recordingExecutor{write: true}
	client := ffmpeg.New("", ffmpeg.WithExecutor(exec))
	if client.Binary() != "ffmpeg" {
		t.Fatalf("expected default binary, got %q", client.Binary())
	}
	out := filepath.Join(t.TempDir(), "mix.m4a")
	if err := client.MixAudio(context.Background(), "user.m4a", "bg.mp3", out); err != nil {
		t.Fatalf("MixAudio: %v", err)
	}
	graph := argValue(exec.calls[0], "-filter_complex")
	if !strings.Contains(graph, "amix=inputs=2:duration=longest") || !strings.Contains(graph, "weights=1 1") {
		t.Fatalf("unexpected mix graph %q", graph)
	}
	if argValue(exec.calls[0], "-map") != "[a]" {
		t.Fatalf("expected mixed stream mapped")
	}
}

func TestStackVerticalForcesSquareWithoutPadding(t *testing.T) {
	exec := &recordingExecutor{write: true}
	client := ffmpeg.New("ffmpeg", ffmpeg.WithExecutor(exec))
	out := filepath.Join(t.TempDir(), "stack.mp4")
	if err := client.StackVertical(context.Background(), "source.mp4", "user.mp4", out, 720); err != nil {
		t.Fatalf("StackVertical: %v", err)
	}
	args := exec.calls[0]
	graph := argValue(args, "-filter_complex")
	if strings.Count(graph, "scale=720:720") != 2 || !strings.Contains(graph, "vstack=inputs=2") {
		t.Fatalf("unexpected stack graph %q", graph)
	}
	if strings.Contains(graph, "pad") || strings.Contains(graph, "force_original_aspect_ratio") {
		t.Fatalf("stack must stretch, not letterbox: %q", graph)
	}
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-map [v] -map 1:a?") {
		t.Fatalf("expected audio from user input only: %q", joined)
	}
	if strings.Contains(joined, "0:a") {
		t.Fatalf("source audio must not be mapped: %q", joined)
	}
}

func TestStackVerticalRejectsOddSize(t *testing.T) {
	client := ffmpeg.New("ffmpeg", ffmpeg.WithExecutor(&recordingExecutor{}))
	err := client.StackVertical(context.Background(), "a", "b", "c", 721)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestExtractAndMuteArgs(t *testing.T) {
	exec := &recordingExecutor{write: true}
	client := ffmpeg.New("ffmpeg", ffmpeg.WithExecutor(exec))
	dir := t.TempDir()
	if err := client.ExtractAudio(context.Background(), "in.mp4", filepath.Join(dir, "a.mp3")); err != nil {
		t.Fatalf("ExtractAudio: %v", err)
	}
	if err := client.MuteVideo(context.Background(), "in.mp4", filepath.Join(dir, "v.mp4")); err != nil {
		t.Fatalf("MuteVideo: %v", err)
	}
	if !slices.Contains(exec.calls[0], "-vn") || argValue(exec.calls[0], "-acodec") != "libmp3lame" {
		t.Fatalf("unexpected extract args %v", exec.calls[0])
	}
	if !slices.Contains(exec.calls[1], "-an") || argValue(exec.calls[1], "-c:v") != "copy" {
		t.Fatalf("unexpected mute args %v", exec.calls[1])
	}
}

func TestMissingOutputIsToolError(t *testing.T) {
	client := ffmpeg.New("ffmpeg", ffmpeg.WithExecutor(&recordingExecutor{}))
	err := client.MuteVideo(context.Background(), "in.mp4", filepath.Join(t.TempDir(), "never.mp4"))
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}
