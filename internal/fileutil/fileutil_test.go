package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCopyVerifiedCopiesContent(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")

	content := []byte("hello world")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := copyVerified(src, dst); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q, want %q", got, content)
	}
}

func TestCopyVerifiedMissingSource(t *testing.T) {
	dir := t.TempDir()
	if err := copyVerified(filepath.Join(dir, "missing"), filepath.Join(dir, "dst")); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestPublishMovesIntoNestedDir(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "work", "out.mp4")
	if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(src, []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(dir, "public", "dubbing", "dub_1_audio.mp4")
	if err := Publish(src, dst); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !IsNonEmptyFile(dst) {
		t.Fatalf("expected published file at %s", dst)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("expected source removed, got %v", err)
	}
}

func TestPublishReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "a.mp3")
	if err := os.WriteFile(dst, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	src := filepath.Join(dir, "b.mp3")
	if err := os.WriteFile(src, []byte("new"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Publish(src, dst); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	got, _ := os.ReadFile(dst)
	if string(got) != "new" {
		t.Fatalf("expected replaced content, got %q", got)
	}
}

func TestIsNonEmptyFile(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if IsNonEmptyFile(empty) || IsNonEmptyFile(dir) || IsNonEmptyFile(filepath.Join(dir, "nope")) {
		t.Fatal("expected empty file, directory and missing path to be rejected")
	}
}
