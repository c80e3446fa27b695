package ffmpeg

import "strconv"

// Builder accumulates ffmpeg arguments. Inputs are emitted first, followed by
// output options in the order they were added, followed by the output path.
type Builder struct {
	inputs     []string
	filter     string
	maps       []string
	options    []string
	outputPath string
}

// NewBuilder creates a builder writing to outputPath.
func NewBuilder(outputPath string) *Builder {
	return &Builder{outputPath: outputPath}
}

// Input appends an input file.
func (b *Builder) Input(path string) *Builder {
	b.inputs = append(b.inputs, path)
	return b
}

// FilterComplex sets the -filter_complex graph.
func (b *Builder) FilterComplex(graph string) *Builder {
	b.filter = graph
	return b
}

// Map appends a -map selector.
func (b *Builder) Map(selector string) *Builder {
	b.maps = append(b.maps, selector)
	return b
}

// Option appends raw output options.
func (b *Builder) Option(args ...string) *Builder {
	b.options = append(b.options, args...)
	return b
}

// AudioCodec sets the output audio codec and, when non-empty, its bitrate.
func (b *Builder) AudioCodec(codec, bitrate string) *Builder {
	b.options = append(b.options, "-c:a", codec)
	if bitrate != "" {
		b.options = append(b.options, "-b:a", bitrate)
	}
	return b
}

// CopyVideo stream-copies the selected video track.
func (b *Builder) CopyVideo() *Builder {
	b.options = append(b.options, "-c:v", "copy")
	return b
}

// Args renders the argument list.
func (b *Builder) Args() []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "error"}
	for _, input := range b.inputs {
		args = append(args, "-i", input)
	}
	if b.filter != "" {
		args = append(args, "-filter_complex", b.filter)
	}
	for _, selector := range b.maps {
		args = append(args, "-map", selector)
	}
	args = append(args, b.options...)
	return append(args, b.outputPath)
}

// squareStackGraph scales both inputs to size×size, ignoring aspect ratio, and
// stacks the first above the second.
func squareStackGraph(size int) string {
	edge := strconv.Itoa(size)
	scale := "scale=" + edge + ":" + edge + ",setsar=1"
	return "[0:v]" + scale + "[top];[1:v]" + scale + "[bot];[top][bot]vstack=inputs=2[v]"
}
