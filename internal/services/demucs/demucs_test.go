package demucs_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"peiyin/internal/services"
	"peiyin/internal/services/demucs"
)

// stubExecutor mimics demucs by writing the accompaniment stem under the
// configured model directory.
type stubExecutor struct {
	modelDir string
	ext      string
	args     []string
}

func (s *stubExecutor) Run(_ context.Context, _ string, args []string) ([]byte, error) {
	s.args = append([]string(nil), args...)
	if s.modelDir == "" {
		return []byte("done"), nil
	}
	outDir := args[slices.Index(args, "-o")+1]
	input := args[len(args)-1]
	track := filepath.Base(input)
	track = track[:len(track)-len(filepath.Ext(track))]
	dir := filepath.Join(outDir, s.modelDir, track)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	ext := s.ext
	if ext == "" {
		ext = ".mp3"
	}
	return nil, os.WriteFile(filepath.Join(dir, "no_vocals"+ext), []byte("stem"), 0o644)
}

func newClient(t *testing.T, exec *stubExecutor) *demucs.Client {
	t.Helper()
	client, err := demucs.New("demucs", "htdemucs", 0, demucs.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestSeparateFindsRequestedModelDir(t *testing.T) {
	exec := &stubExecutor{modelDir: "htdemucs"}
	client := newClient(t, exec)
	out := filepath.Join(t.TempDir(), "sep")
	path, err := client.Separate(context.Background(), "/work/audio.mp3", out)
	if err != nil {
		t.Fatalf("Separate: %v", err)
	}
	want := filepath.Join(out, "htdemucs", "audio", "no_vocals.mp3")
	if path != want {
		t.Fatalf("expected %q, got %q", want, path)
	}
	for _, arg := range []string{"--two-stems=vocals", "--mp3"} {
		if !slices.Contains(exec.args, arg) {
			t.Fatalf("missing %s in %v", arg, exec.args)
		}
	}
	if exec.args[slices.Index(exec.args, "-n")+1] != "htdemucs" {
		t.Fatalf("expected model flag, got %v", exec.args)
	}
}

func TestSeparateFallsBackToKnownModelDir(t *testing.T) {
	client := newClient(t, &stubExecutor{modelDir: "mdx_extra_q", ext: ".wav"})
	path, err := client.Separate(context.Background(), "/work/audio.mp3", t.TempDir())
	if err != nil {
		t.Fatalf("Separate: %v", err)
	}
	if filepath.Base(filepath.Dir(filepath.Dir(path))) != "mdx_extra_q" || filepath.Ext(path) != ".wav" {
		t.Fatalf("unexpected path %q", path)
	}
}

func TestSeparateFallsBackToAnyDir(t *testing.T) {
	client := newClient(t, &stubExecutor{modelDir: "custom_model_v9"})
	if _, err := client.Separate(context.Background(), "/work/audio.mp3", t.TempDir()); err != nil {
		t.Fatalf("Separate: %v", err)
	}
}

func TestSeparateMissingOutputIsDistinctError(t *testing.T) {
	client := newClient(t, &stubExecutor{})
	_, err := client.Separate(context.Background(), "/work/audio.mp3", t.TempDir())
	if !errors.Is(err, demucs.ErrOutputNotFound) {
		t.Fatalf("expected ErrOutputNotFound, got %v", err)
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected output-missing to classify as a tool error")
	}
}

func TestNewRequiresBinary(t *testing.T) {
	if _, err := demucs.New(" ", "", 0); err == nil {
		t.Fatal("expected error for empty binary")
	}
	client, err := demucs.New("demucs", "", 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if client.Model() != "htdemucs" {
		t.Fatalf("expected default model, got %q", client.Model())
	}
}
