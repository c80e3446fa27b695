package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"peiyin/internal/media/toolrun"
	"peiyin/internal/services"
)

const mixGraph = "[0:a][1:a]amix=inputs=2:duration=longest:weights=1 1:normalize=0[a]"

// Client runs ffmpeg with shared codec settings.
type Client struct {
	binary       string
	timeout      time.Duration
	audioCodec   string
	audioBitrate string
	executor     toolrun.Executor
}

// Option configures a Client.
type Option func(*Client)

// WithExecutor overrides the command executor (primarily for tests).
func WithExecutor(executor toolrun.Executor) Option {
	return func(c *Client) {
		if executor != nil {
			c.executor = executor
		}
	}
}

// WithTimeout bounds every ffmpeg invocation. Zero disables the bound.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.timeout = timeout }
}

// WithAudioEncoding sets the codec and bitrate used when audio is re-encoded.
func WithAudioEncoding(codec, bitrate string) Option {
	return func(c *Client) {
		if codec = strings.TrimSpace(codec); codec != "" {
			c.audioCodec = codec
		}
		c.audioBitrate = strings.TrimSpace(bitrate)
	}
}

// New constructs a Client for binary.
func New(binary string, opts ...Option) *Client {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	c := &Client{
		binary:       binary,
		audioCodec:   "aac",
		audioBitrate: "192k",
		executor:     toolrun.CommandExecutor{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Binary reports the configured ffmpeg executable.
func (c *Client) Binary() string { return c.binary }

// ExtractAudio writes the audio track of input to output as MP3.
func (c *Client) ExtractAudio(ctx context.Context, input, output string) error {
	b := NewBuilder(output).Input(input).Option("-vn", "-acodec", "libmp3lame", "-q:a", "2")
	return c.run(ctx, "extract_audio", b)
}

// MuteVideo copies the video track of input to output without any audio.
func (c *Client) MuteVideo(ctx context.Context, input, output string) error {
	b := NewBuilder(output).Input(input).Option("-an").CopyVideo()
	return c.run(ctx, "mute_video", b)
}

// ReplaceAudio pairs the first video track of video with the first audio
// track of audio. Video is copied, audio re-encoded; the original audio of
// video is discarded.
func (c *Client) ReplaceAudio(ctx context.Context, video, audio, output string) error {
	b := NewBuilder(output).
		Input(video).
		Input(audio).
		Map("0:v:0").
		Map("1:a:0").
		CopyVideo().
		AudioCodec(c.audioCodec, c.audioBitrate)
	return c.run(ctx, "replace_audio", b)
}

// MixAudio mixes two audio inputs with equal weight. The result lasts as long
// as the longer input.
func (c *Client) MixAudio(ctx context.Context, first, second, output string) error {
	b := NewBuilder(output).
		Input(first).
		Input(second).
		FilterComplex(mixGraph).
		Map("[a]").
		AudioCodec(c.audioCodec, c.audioBitrate)
	return c.run(ctx, "mix_audio", b)
}

// StackVertical scales top and bottom to size×size and stacks them into a
// size×2size picture. Audio comes only from bottom.
func (c *Client) StackVertical(ctx context.Context, top, bottom, output string, size int) error {
	if size <= 0 || size%2 != 0 {
		return services.Wrap(services.ErrValidation, "stack_video", "size", fmt.Sprintf("invalid stack size %d", size), nil)
	}
	b := NewBuilder(output).
		Input(top).
		Input(bottom).
		FilterComplex(squareStackGraph(size)).
		Map("[v]").
		Map("1:a?").
		Option("-c:v", "libx264", "-pix_fmt", "yuv420p").
		AudioCodec(c.audioCodec, c.audioBitrate)
	return c.run(ctx, "stack_video", b)
}

func (c *Client) run(ctx context.Context, stage string, b *Builder) error {
	_, err := toolrun.Invoke(ctx, c.executor, toolrun.Invocation{
		Stage:   stage,
		Binary:  c.binary,
		Args:    b.Args(),
		Timeout: c.timeout,
	})
	if err != nil {
		return err
	}
	return verifyOutput(stage, b.outputPath)
}

// verifyOutput guards against ffmpeg exiting cleanly without writing anything.
func verifyOutput(stage, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return services.Wrap(services.ErrExternalTool, stage, "verify output", path+" was not created", nil)
		}
		return services.Wrap(services.ErrExternalTool, stage, "verify output", path, err)
	}
	if info.Size() == 0 {
		return services.Wrap(services.ErrExternalTool, stage, "verify output", path+" is empty", nil)
	}
	return nil
}
