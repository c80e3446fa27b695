package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"peiyin/internal/config"
	"peiyin/internal/download"
	"peiyin/internal/logging"
	"peiyin/internal/mediacache"
	"peiyin/internal/queue"
	"peiyin/internal/recommend"
	"peiyin/internal/services"
	"peiyin/internal/textutil"
)

// MediaPrefix is the URL prefix published outputs are served under.
const MediaPrefix = "/media/"

// Store is the subset of queue.Store the API needs.
type Store interface {
	EnqueueVocalRemoval(ctx context.Context, sourceURL, urlHash string) (*queue.VocalRemovalJob, bool, error)
	GetVocalRemoval(ctx context.Context, sourceURL string) (*queue.VocalRemovalJob, error)
	NewCompositeDubbing(ctx context.Context, sub queue.DubbingSubmission) (*queue.CompositeDubbingJob, error)
	GetCompositeDubbing(ctx context.Context, id int64) (*queue.CompositeDubbingJob, error)
	ListPublicCompositeDubbings(ctx context.Context, limit int) ([]*queue.CompositeDubbingJob, error)
	ListRecommendations(ctx context.Context) ([]queue.RecommendedClip, error)
	Health(ctx context.Context) (queue.HealthSummary, error)
	CheckHealth(ctx context.Context) (queue.DatabaseHealth, error)
}

// Refresher regenerates recommendations on demand.
type Refresher interface {
	Refresh(ctx context.Context) (recommend.Result, error)
}

// DubbingForm carries the non-file fields of a dubbing submission.
type DubbingForm struct {
	UserID    string
	SourceURL string
	Mode      string
	Display   queue.DisplayMetadata
	IsPublic  bool
}

// Service implements the request logic behind the HTTP handlers.
type Service struct {
	cfg       *config.Config
	store     Store
	refresher Refresher
	logger    *slog.Logger
}

// NewService constructs a Service. refresher may be nil when recommendations
// are disabled.
func NewService(cfg *config.Config, store Store, refresher Refresher, logger *slog.Logger) *Service {
	return &Service{
		cfg:       cfg,
		store:     store,
		refresher: refresher,
		logger:    logging.NewComponentLogger(logger, "api"),
	}
}

// EnqueueVocalRemoval creates a job for sourceURL, or returns the existing
// job for that URL unchanged.
func (s *Service) EnqueueVocalRemoval(ctx context.Context, sourceURL string) (VocalRemovalStatus, error) {
	sourceURL = strings.TrimSpace(sourceURL)
	if err := validateSourceURL(sourceURL); err != nil {
		return VocalRemovalStatus{}, err
	}
	job, created, err := s.store.EnqueueVocalRemoval(ctx, sourceURL, mediacache.Key(sourceURL))
	if err != nil {
		return VocalRemovalStatus{}, err
	}
	if created {
		s.logger.Info("vocal removal queued",
			logging.String(logging.FieldSourceURL, sourceURL),
			logging.String(logging.FieldEventType, "job_enqueued"),
		)
	}
	status := FromVocalRemovalJob(job)
	status.Created = created
	return status, nil
}

// VocalRemoval returns the job for sourceURL.
func (s *Service) VocalRemoval(ctx context.Context, sourceURL string) (VocalRemovalStatus, error) {
	sourceURL = strings.TrimSpace(sourceURL)
	if sourceURL == "" {
		return VocalRemovalStatus{}, services.Wrap(services.ErrValidation, "api", "source_url", "source_url is required", nil)
	}
	job, err := s.store.GetVocalRemoval(ctx, sourceURL)
	if err != nil {
		return VocalRemovalStatus{}, err
	}
	if job == nil {
		return VocalRemovalStatus{}, services.Wrap(services.ErrNotFound, "api", "vocal removal", sourceURL, nil)
	}
	return FromVocalRemovalJob(job), nil
}

// SubmitDubbing saves the uploaded media and creates a dubbing job. The file
// is removed again when the job cannot be created.
func (s *Service) SubmitDubbing(ctx context.Context, form DubbingForm, media io.Reader, filename string) (DubbingCreated, error) {
	mode, ok := queue.ParseDubbingMode(form.Mode)
	if !ok {
		return DubbingCreated{}, services.Wrap(services.ErrValidation, "api", "mode", fmt.Sprintf("unsupported mode %q", form.Mode), nil)
	}
	if strings.TrimSpace(form.UserID) == "" {
		return DubbingCreated{}, services.Wrap(services.ErrValidation, "api", "user_id", "user_id is required", nil)
	}
	if err := validateSourceURL(form.SourceURL); err != nil {
		return DubbingCreated{}, err
	}

	path, err := s.saveUpload(media, filename)
	if err != nil {
		return DubbingCreated{}, err
	}
	req, err := queue.NewDubbingRequest(mode, path)
	if err != nil {
		_ = os.Remove(path)
		return DubbingCreated{}, services.Wrap(services.ErrValidation, "api", "mode", "", err)
	}
	job, err := s.store.NewCompositeDubbing(ctx, queue.DubbingSubmission{
		UserID:    form.UserID,
		SourceURL: form.SourceURL,
		Request:   req,
		Display:   form.Display,
		IsPublic:  form.IsPublic,
	})
	if err != nil {
		_ = os.Remove(path)
		return DubbingCreated{}, err
	}
	s.logger.Info("dubbing queued",
		logging.Int64("job_id", job.ID),
		logging.String("mode", string(mode)),
		logging.String(logging.FieldSourceURL, job.SourceURL),
		logging.String(logging.FieldEventType, "job_enqueued"),
	)
	return DubbingCreated{JobID: job.ID, Status: string(job.Status)}, nil
}

// Dubbing returns one dubbing job.
func (s *Service) Dubbing(ctx context.Context, id int64) (DubbingStatus, error) {
	job, err := s.store.GetCompositeDubbing(ctx, id)
	if err != nil {
		return DubbingStatus{}, err
	}
	if job == nil {
		return DubbingStatus{}, services.Wrap(services.ErrNotFound, "api", "dubbing", fmt.Sprintf("job %d", id), nil)
	}
	return FromDubbingJob(job), nil
}

// PublicDubbings lists recent public completed dubbings.
func (s *Service) PublicDubbings(ctx context.Context, limit int) (DubbingList, error) {
	jobs, err := s.store.ListPublicCompositeDubbings(ctx, limit)
	if err != nil {
		return DubbingList{}, err
	}
	out := DubbingList{Jobs: make([]DubbingStatus, 0, len(jobs))}
	for _, job := range jobs {
		out.Jobs = append(out.Jobs, FromDubbingJob(job))
	}
	return out, nil
}

// Recommendations returns the current set in display order.
func (s *Service) Recommendations(ctx context.Context) (RecommendationList, error) {
	clips, err := s.store.ListRecommendations(ctx)
	if err != nil {
		return RecommendationList{}, err
	}
	return FromRecommendations(clips), nil
}

// RefreshRecommendations runs one generation synchronously. A pass that
// finds no seasons or clips is reported in the message, not as an error.
func (s *Service) RefreshRecommendations(ctx context.Context) (RefreshResponse, error) {
	if s.refresher == nil {
		return RefreshResponse{}, services.Wrap(services.ErrConfiguration, "api", "recommendations", "recommendations are disabled", nil)
	}
	result, err := s.refresher.Refresh(ctx)
	switch {
	case errors.Is(err, recommend.ErrNoSeasons), errors.Is(err, recommend.ErrNoClips):
		return RefreshResponse{Result: result, Message: err.Error()}, nil
	case err != nil:
		return RefreshResponse{}, err
	}
	return RefreshResponse{Result: result, Message: fmt.Sprintf("generated %d recommendations", result.Count)}, nil
}

// Health reports database integrity and job counts.
func (s *Service) Health(ctx context.Context) (HealthResponse, error) {
	db, err := s.store.CheckHealth(ctx)
	if err != nil {
		return HealthResponse{}, err
	}
	summary, err := s.store.Health(ctx)
	if err != nil {
		return HealthResponse{}, err
	}
	return HealthResponse{
		Ready: db.DatabaseReadable && db.IntegrityCheck && len(db.MissingTables) == 0,
		Database: DatabaseHealth{
			Path:           db.DBPath,
			SchemaVersion:  db.SchemaVersion,
			IntegrityCheck: db.IntegrityCheck,
			MissingTables:  db.MissingTables,
			Error:          db.Error,
		},
		Jobs: map[string]int{
			"total":      summary.Total,
			"pending":    summary.Pending,
			"processing": summary.Processing,
			"completed":  summary.Completed,
			"failed":     summary.Failed,
		},
	}, nil
}

func (s *Service) saveUpload(media io.Reader, filename string) (string, error) {
	if media == nil {
		return "", services.Wrap(services.ErrValidation, "api", "media", "media file is required", nil)
	}
	name := textutil.SanitizeFileName(filepath.Base(filename))
	if name == "" {
		name = "upload"
	}
	path := filepath.Join(s.cfg.Paths.UploadDir, uuid.NewString()+"_"+name)
	if err := os.MkdirAll(s.cfg.Paths.UploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	written, copyErr := io.Copy(f, media)
	closeErr := f.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr == nil && written == 0 {
		copyErr = services.Wrap(services.ErrValidation, "api", "media", "media file is empty", nil)
	}
	if copyErr != nil {
		_ = os.Remove(path)
		return "", copyErr
	}
	return path, nil
}

func validateSourceURL(sourceURL string) error {
	if strings.TrimSpace(sourceURL) == "" {
		return services.Wrap(services.ErrValidation, "api", "source_url", "source_url is required", nil)
	}
	if _, err := download.SourceExtension(sourceURL); err != nil {
		return services.Wrap(services.ErrValidation, "api", "source_url", "", err)
	}
	return nil
}
