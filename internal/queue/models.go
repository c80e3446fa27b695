package queue

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle of a pipeline job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	return []Status{StatusPending, StatusProcessing, StatusCompleted, StatusFailed}
}

// ParseStatus converts a string into a Status.
func ParseStatus(value string) (Status, bool) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	switch status {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return status, true
	}
	return "", false
}

// IsTerminal reports whether no transition leaves this status.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// JobKind names one of the two pipeline job tables.
type JobKind string

const (
	KindVocalRemoval     JobKind = "vocal_removal"
	KindCompositeDubbing JobKind = "composite_dubbing"
)

// AllJobKinds returns both job kinds in display order.
func AllJobKinds() []JobKind {
	return []JobKind{KindVocalRemoval, KindCompositeDubbing}
}

// ParseJobKind accepts the canonical names plus the dashed CLI spelling.
func ParseJobKind(value string) (JobKind, bool) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), "-", "_")
	switch JobKind(normalized) {
	case KindVocalRemoval:
		return KindVocalRemoval, true
	case KindCompositeDubbing, "dubbing":
		return KindCompositeDubbing, true
	}
	return "", false
}

// VocalRemovalJob removes vocals from one source video. The source URL is the
// natural key; at most one record exists per URL.
type VocalRemovalJob struct {
	ID           int64     `db:"id" json:"-"`
	SourceURL    string    `db:"source_url" json:"source_url"`
	URLHash      string    `db:"url_hash" json:"url_hash"`
	Status       Status    `db:"status" json:"status"`
	OutputPath   *string   `db:"output_path" json:"output_path,omitempty"`
	ErrorMessage *string   `db:"error_message" json:"error,omitempty"`
	CreatedAt    Timestamp `db:"created_at" json:"created_at"`
	UpdatedAt    Timestamp `db:"updated_at" json:"updated_at"`
}

// DubbingMode selects which composite pipeline runs for a dubbing job.
type DubbingMode string

const (
	ModeAudio DubbingMode = "audio"
	ModeVideo DubbingMode = "video"
)

// ParseDubbingMode validates a mode string.
func ParseDubbingMode(value string) (DubbingMode, bool) {
	switch DubbingMode(strings.ToLower(strings.TrimSpace(value))) {
	case ModeAudio:
		return ModeAudio, true
	case ModeVideo:
		return ModeVideo, true
	}
	return "", false
}

// DubbingRequest is the mode-specific input of a composite dubbing job. It is
// implemented only by AudioDubbingRequest and VideoDubbingRequest.
type DubbingRequest interface {
	Mode() DubbingMode
	MediaPath() string
	dubbingRequest()
}

// AudioDubbingRequest mixes a user voice recording over the source clip's
// background track.
type AudioDubbingRequest struct {
	UserAudioPath string
}

func (r AudioDubbingRequest) Mode() DubbingMode { return ModeAudio }
func (r AudioDubbingRequest) MediaPath() string { return r.UserAudioPath }
func (AudioDubbingRequest) dubbingRequest()     {}

// VideoDubbingRequest stacks the source clip above a user reaction video.
type VideoDubbingRequest struct {
	UserVideoPath string
}

func (r VideoDubbingRequest) Mode() DubbingMode { return ModeVideo }
func (r VideoDubbingRequest) MediaPath() string { return r.UserVideoPath }
func (VideoDubbingRequest) dubbingRequest()     {}

// NewDubbingRequest builds the request variant for mode.
func NewDubbingRequest(mode DubbingMode, mediaPath string) (DubbingRequest, error) {
	switch mode {
	case ModeAudio:
		return AudioDubbingRequest{UserAudioPath: mediaPath}, nil
	case ModeVideo:
		return VideoDubbingRequest{UserVideoPath: mediaPath}, nil
	default:
		return nil, fmt.Errorf("unknown dubbing mode %q", mode)
	}
}

// DisplayMetadata is carried through a dubbing job for read convenience only.
type DisplayMetadata struct {
	CaptionText string  `db:"caption_text" json:"caption_text"`
	Translation string  `db:"translation" json:"translation"`
	Thumbnail   string  `db:"thumbnail" json:"thumbnail"`
	Duration    float64 `db:"duration" json:"duration"`
}

// DubbingSubmission is the input accepted by NewCompositeDubbing.
type DubbingSubmission struct {
	UserID    string
	SourceURL string
	Request   DubbingRequest
	Display   DisplayMetadata
	IsPublic  bool
}

// CompositeDubbingJob is one user submission. Records are never deduplicated.
type CompositeDubbingJob struct {
	ID           int64       `db:"id" json:"job_id"`
	UserID       string      `db:"user_id" json:"user_id"`
	SourceURL    string      `db:"source_url" json:"source_url"`
	MediaPath    string      `db:"media_path" json:"-"`
	Mode         DubbingMode `db:"mode" json:"mode"`
	Status       Status      `db:"status" json:"status"`
	OutputPath   *string     `db:"output_path" json:"output_path,omitempty"`
	ErrorMessage *string     `db:"error_message" json:"error,omitempty"`
	IsPublic     bool        `db:"is_public" json:"is_public"`
	DisplayMetadata
	CreatedAt Timestamp `db:"created_at" json:"created_at"`
	UpdatedAt Timestamp `db:"updated_at" json:"updated_at"`
}

// Request reconstructs the tagged request variant stored on the job.
func (j *CompositeDubbingJob) Request() (DubbingRequest, error) {
	if j == nil {
		return nil, errors.New("nil dubbing job")
	}
	return NewDubbingRequest(j.Mode, j.MediaPath)
}

// CacheKind names a cached intermediate artifact.
type CacheKind string

const (
	CacheBackgroundAudio CacheKind = "background_audio"
	CacheMuteVideo       CacheKind = "mute_video"
)

// AllCacheKinds lists both artifact kinds.
func AllCacheKinds() []CacheKind {
	return []CacheKind{CacheBackgroundAudio, CacheMuteVideo}
}

// CacheEntry maps (url hash, kind) to a file on disk.
type CacheEntry struct {
	URLHash   string    `db:"url_hash"`
	Kind      CacheKind `db:"kind"`
	SourceURL string    `db:"source_url"`
	Path      string    `db:"path"`
	CreatedAt Timestamp `db:"created_at"`
}

// Season is a catalog season whose all.json feeds the recommendation sampler.
type Season struct {
	ID         string    `db:"id" json:"id"`
	CartoonID  string    `db:"cartoon_id" json:"cartoon_id"`
	Number     int       `db:"number" json:"number"`
	AllJSONURL string    `db:"all_json_url" json:"all_json_url"`
	IsActive   bool      `db:"is_active" json:"is_active"`
	CreatedAt  Timestamp `db:"created_at" json:"created_at"`
}

// RecommendedClip is one sampled clip shown on the home screen.
type RecommendedClip struct {
	ID            int64     `db:"id" json:"id"`
	SeasonID      string    `db:"season_id" json:"season_id"`
	EpisodeName   string    `db:"episode_name" json:"episode_name"`
	ClipPath      string    `db:"clip_path" json:"clip_path"`
	VideoURL      string    `db:"video_url" json:"video_url"`
	Thumbnail     *string   `db:"thumbnail" json:"thumbnail"`
	OriginalText  string    `db:"original_text" json:"original_text"`
	TranslationCN *string   `db:"translation_cn" json:"translation_cn"`
	Duration      float64   `db:"duration" json:"duration"`
	SortOrder     int       `db:"sort_order" json:"sort_order"`
	CreatedAt     Timestamp `db:"created_at" json:"created_at"`
}

// HealthSummary describes aggregated job counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Failed     int
	Completed  int
}

// DatabaseHealth captures diagnostic information about the job database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    int
	MissingTables    []string
	IntegrityCheck   bool
	Error            string
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Timestamp stores times as fixed-width UTC text.
type Timestamp struct {
	time.Time
}

// Scan implements sql.Scanner.
func (t *Timestamp) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (t *Timestamp) parse(value string) error {
	parsed, err := parseTimeString(value)
	if err != nil {
		return err
	}
	t.Time = parsed.UTC()
	return nil
}

// Value implements driver.Valuer.
func (t Timestamp) Value() (driver.Value, error) {
	if t.IsZero() {
		return nil, nil
	}
	return t.UTC().Format(timeLayout), nil
}

func parseTimeString(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func stringPtr(value string) *string {
	return &value
}
