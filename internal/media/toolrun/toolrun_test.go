package toolrun_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"peiyin/internal/media/toolrun"
	"peiyin/internal/services"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tool.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestInvokeSuccessReturnsOutput(t *testing.T) {
	script := writeScript(t, `echo "hello $1"`)
	out, err := toolrun.Invoke(context.Background(), nil, toolrun.Invocation{Binary: script, Args: []string{"world"}})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if strings.TrimSpace(string(out)) != "hello world" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestInvokeNonZeroExitIsExternalToolError(t *testing.T) {
	script := writeScript(t, `echo "codec not found" >&2; exit 3`)
	_, err := toolrun.Invoke(context.Background(), toolrun.CommandExecutor{}, toolrun.Invocation{Stage: "remux", Binary: script})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if !strings.Contains(err.Error(), "codec not found") {
		t.Fatalf("expected stderr tail in error, got %q", err)
	}
}

func TestInvokeTimeout(t *testing.T) {
	script := writeScript(t, `sleep 5`)
	start := time.Now()
	_, err := toolrun.Invoke(context.Background(), nil, toolrun.Invocation{
		Stage:   "separate",
		Binary:  script,
		Timeout: 100 * time.Millisecond,
	})
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if time.Since(start) > 4*time.Second {
		t.Fatalf("timeout did not stop the tool promptly")
	}
}

func TestInvokeTimeoutKillsDescendants(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "marker")
	script := writeScript(t, `sh -c 'sleep 2; touch "$1"' sh "$1"`)
	start := time.Now()
	_, err := toolrun.Invoke(context.Background(), nil, toolrun.Invocation{
		Stage:   "separate",
		Binary:  script,
		Args:    []string{marker},
		Timeout: 100 * time.Millisecond,
	})
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Invoke returned after %s", elapsed)
	}
	time.Sleep(2500 * time.Millisecond)
	if _, err := os.Stat(marker); err == nil {
		t.Fatalf("child of timed-out tool kept running and wrote %s", marker)
	}
}

func TestInvokeParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := toolrun.Invoke(ctx, nil, toolrun.Invocation{Binary: writeScript(t, `sleep 5`)})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestInvokeMissingBinary(t *testing.T) {
	tests := []struct {
		name   string
		binary string
	}{
		{name: "absolute path", binary: filepath.Join(t.TempDir(), "missing")},
		{name: "bare name", binary: "peiyin-no-such-tool"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := toolrun.Invoke(context.Background(), nil, toolrun.Invocation{Stage: "separate", Binary: tt.binary})
			if !errors.Is(err, services.ErrConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
			if errors.Is(err, services.ErrExternalTool) {
				t.Fatalf("missing binary reported as tool failure: %v", err)
			}
		})
	}
}

func TestInvokeUnexecutableBinary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tool.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	_, err := toolrun.Invoke(context.Background(), nil, toolrun.Invocation{Binary: path})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestTailTruncates(t *testing.T) {
	long := strings.Repeat("x", 5000) + "END"
	tail := toolrun.Tail([]byte(long))
	if !strings.HasSuffix(tail, "END") || !strings.HasPrefix(tail, "...") {
		t.Fatalf("unexpected tail %q", tail[:10])
	}
	if len(tail) > 2100 {
		t.Fatalf("tail too long: %d", len(tail))
	}
}
