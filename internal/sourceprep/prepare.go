package sourceprep

import (
	"context"
	"log/slog"
	"path/filepath"

	"peiyin/internal/download"
	"peiyin/internal/logging"
	"peiyin/internal/queue"
	"peiyin/internal/services/demucs"
	"peiyin/internal/stage"
)

// Cache is the subset of mediacache.Manager used here.
type Cache interface {
	Lookup(ctx context.Context, sourceURL string, kind queue.CacheKind) (string, bool, error)
	Store(ctx context.Context, sourceURL string, kind queue.CacheKind, src string) (string, error)
}

// Transcoder is the subset of ffmpeg.Client used here.
type Transcoder interface {
	ExtractAudio(ctx context.Context, input, output string) error
	MuteVideo(ctx context.Context, input, output string) error
}

// Artifacts are cache paths for one source clip.
type Artifacts struct {
	BackgroundAudio string
	MuteVideo       string
	// Downloaded is true when the source had to be fetched.
	Downloaded bool
}

// Preparer produces cached source artifacts.
type Preparer struct {
	cache     Cache
	fetcher   download.Fetcher
	ffmpeg    Transcoder
	separator demucs.Separator
	logger    *slog.Logger
}

// New constructs a Preparer.
func New(cache Cache, fetcher download.Fetcher, ffmpeg Transcoder, separator demucs.Separator, logger *slog.Logger) *Preparer {
	return &Preparer{
		cache:     cache,
		fetcher:   fetcher,
		ffmpeg:    ffmpeg,
		separator: separator,
		logger:    logging.NewComponentLogger(logger, "sourceprep"),
	}
}

// Separated returns the background audio and muted video of sourceURL,
// computing whichever is missing from the cache inside workDir. kind labels
// step metrics with the calling job kind.
func (p *Preparer) Separated(ctx context.Context, kind, sourceURL, workDir string) (Artifacts, error) {
	var out Artifacts
	var bgHit, muteHit bool
	var err error
	if out.BackgroundAudio, bgHit, err = p.cache.Lookup(ctx, sourceURL, queue.CacheBackgroundAudio); err != nil {
		return out, err
	}
	if out.MuteVideo, muteHit, err = p.cache.Lookup(ctx, sourceURL, queue.CacheMuteVideo); err != nil {
		return out, err
	}
	if bgHit && muteHit {
		logging.WithContext(ctx, p.logger).Info("source artifacts served from cache",
			logging.String(logging.FieldEventType, "cache_hit"),
			logging.String(logging.FieldSourceURL, sourceURL),
		)
		return out, nil
	}

	source, err := p.download(ctx, kind, sourceURL, workDir)
	if err != nil {
		return out, err
	}
	out.Downloaded = true

	if !muteHit {
		if out.MuteVideo, err = p.mute(ctx, kind, sourceURL, source, workDir); err != nil {
			return out, err
		}
	}
	if !bgHit {
		if out.BackgroundAudio, err = p.separate(ctx, kind, sourceURL, source, workDir); err != nil {
			return out, err
		}
	}
	return out, nil
}

// Muted returns the muted video of sourceURL, downloading and muting it on a
// cache miss. Source separation is never run.
func (p *Preparer) Muted(ctx context.Context, kind, sourceURL, workDir string) (string, error) {
	path, hit, err := p.cache.Lookup(ctx, sourceURL, queue.CacheMuteVideo)
	if err != nil || hit {
		return path, err
	}
	source, err := p.download(ctx, kind, sourceURL, workDir)
	if err != nil {
		return "", err
	}
	return p.mute(ctx, kind, sourceURL, source, workDir)
}

func (p *Preparer) download(ctx context.Context, kind, sourceURL, workDir string) (string, error) {
	var source string
	err := stage.Step(ctx, p.logger, kind, "download", func(ctx context.Context) error {
		var err error
		source, err = p.fetcher.Fetch(ctx, sourceURL, filepath.Join(workDir, "download"))
		return err
	})
	return source, err
}

func (p *Preparer) mute(ctx context.Context, kind, sourceURL, source, workDir string) (string, error) {
	tmp := filepath.Join(workDir, "mute.mp4")
	if err := stage.Step(ctx, p.logger, kind, "mute_video", func(ctx context.Context) error {
		return p.ffmpeg.MuteVideo(ctx, source, tmp)
	}); err != nil {
		return "", err
	}
	return p.cache.Store(ctx, sourceURL, queue.CacheMuteVideo, tmp)
}

func (p *Preparer) separate(ctx context.Context, kind, sourceURL, source, workDir string) (string, error) {
	audio := filepath.Join(workDir, "audio.mp3")
	if err := stage.Step(ctx, p.logger, kind, "extract_audio", func(ctx context.Context) error {
		return p.ffmpeg.ExtractAudio(ctx, source, audio)
	}); err != nil {
		return "", err
	}
	var stem string
	if err := stage.Step(ctx, p.logger, kind, "separate", func(ctx context.Context) error {
		var err error
		stem, err = p.separator.Separate(ctx, audio, filepath.Join(workDir, "separated"))
		return err
	}); err != nil {
		return "", err
	}
	return p.cache.Store(ctx, sourceURL, queue.CacheBackgroundAudio, stem)
}
