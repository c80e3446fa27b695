package testsupport

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// Call records one tool invocation.
type Call struct {
	Binary string
	Args   []string
}

// Inputs returns the values of every -i flag.
func (c Call) Inputs() []string {
	var inputs []string
	for i := 0; i < len(c.Args)-1; i++ {
		if c.Args[i] == "-i" {
			inputs = append(inputs, c.Args[i+1])
		}
	}
	return inputs
}

// Output returns the final argument.
func (c Call) Output() string {
	if len(c.Args) == 0 {
		return ""
	}
	return c.Args[len(c.Args)-1]
}

// Has reports whether args contain value.
func (c Call) Has(value string) bool {
	return slices.Contains(c.Args, value)
}

type failRule struct {
	binary string
	match  string
	err    error
}

// FakeExecutor imitates ffmpeg, ffprobe and demucs. ffmpeg writes its output
// path with a line naming its inputs, so tests can trace where a file came
// from. demucs creates <out>/<model>/<track>/no_vocals.mp3. ffprobe reports
// one audio and one video stream unless ProbeJSON is set.
type FakeExecutor struct {
	mu    sync.Mutex
	calls []Call
	rules []failRule

	// DemucsModelDir overrides the directory demucs writes under.
	DemucsModelDir string
	// DemucsNoOutput makes demucs exit cleanly without writing a stem.
	DemucsNoOutput bool
	// ProbeJSON replaces the default ffprobe response.
	ProbeJSON string
	// OnRun, when set, runs before each invocation is simulated.
	OnRun func(Call)
}

// NewFakeExecutor returns an executor with default behaviour.
func NewFakeExecutor() *FakeExecutor {
	return &FakeExecutor{}
}

// FailWhen makes invocations of binary whose args contain match fail with
// err. An empty match fails every invocation of binary.
func (f *FakeExecutor) FailWhen(binary, match string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		err = errors.New("exit status 1")
	}
	f.rules = append(f.rules, failRule{binary: binary, match: match, err: err})
}

// Calls returns a snapshot of recorded invocations.
func (f *FakeExecutor) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// CallsTo returns invocations of binary (matched on base name).
func (f *FakeExecutor) CallsTo(binary string) []Call {
	var out []Call
	for _, call := range f.Calls() {
		if filepath.Base(call.Binary) == binary {
			out = append(out, call)
		}
	}
	return out
}

// Run implements toolrun.Executor.
func (f *FakeExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	call := Call{Binary: binary, Args: slices.Clone(args)}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	rules := slices.Clone(f.rules)
	f.mu.Unlock()

	if f.OnRun != nil {
		f.OnRun(call)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := filepath.Base(binary)
	for _, rule := range rules {
		if rule.binary != name {
			continue
		}
		if rule.match == "" || slices.ContainsFunc(args, func(a string) bool { return strings.Contains(a, rule.match) }) {
			return []byte("simulated failure"), rule.err
		}
	}

	switch name {
	case "ffprobe":
		if f.ProbeJSON != "" {
			return []byte(f.ProbeJSON), nil
		}
		return []byte(`{"streams":[{"index":0,"codec_type":"video"},{"index":1,"codec_type":"audio"}],"format":{"duration":"3.5"}}`), nil
	case "demucs":
		return nil, f.demucs(args)
	default:
		out := call.Output()
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return nil, err
		}
		content := fmt.Sprintf("ffmpeg inputs=%s\n", strings.Join(call.Inputs(), "|"))
		return nil, os.WriteFile(out, []byte(content), 0o644)
	}
}

func (f *FakeExecutor) demucs(args []string) error {
	if f.DemucsNoOutput {
		return nil
	}
	outIdx := slices.Index(args, "-o")
	modelIdx := slices.Index(args, "-n")
	if outIdx < 0 || modelIdx < 0 || outIdx+1 >= len(args) || modelIdx+1 >= len(args) {
		return errors.New("fake demucs: missing -o or -n")
	}
	model := args[modelIdx+1]
	if f.DemucsModelDir != "" {
		model = f.DemucsModelDir
	}
	input := args[len(args)-1]
	track := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	dir := filepath.Join(args[outIdx+1], model, track)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "no_vocals.mp3"), []byte("accompaniment of "+input+"\n"), 0o644)
}
