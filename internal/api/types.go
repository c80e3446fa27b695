package api

import (
	"peiyin/internal/deps"
	"peiyin/internal/recommend"
	"peiyin/internal/workflow"
)

// VocalRemovalStatus is the response for enqueue and status lookups.
type VocalRemovalStatus struct {
	SourceURL  string `json:"source_url"`
	Status     string `json:"status"`
	OutputPath string `json:"output_path,omitempty"`
	OutputURL  string `json:"output_url,omitempty"`
	Error      string `json:"error,omitempty"`
	Created    bool   `json:"created"`
}

// DubbingCreated is returned when a dubbing submission is accepted.
type DubbingCreated struct {
	JobID  int64  `json:"job_id"`
	Status string `json:"status"`
}

// DubbingStatus describes one dubbing job.
type DubbingStatus struct {
	JobID       int64   `json:"job_id"`
	UserID      string  `json:"user_id"`
	SourceURL   string  `json:"source_url"`
	Mode        string  `json:"mode"`
	Status      string  `json:"status"`
	OutputPath  string  `json:"output_path,omitempty"`
	OutputURL   string  `json:"output_url,omitempty"`
	Error       string  `json:"error,omitempty"`
	IsPublic    bool    `json:"is_public"`
	CaptionText string  `json:"caption_text"`
	Translation string  `json:"translation"`
	Thumbnail   string  `json:"thumbnail"`
	Duration    float64 `json:"duration"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// DubbingList wraps public dubbing listings.
type DubbingList struct {
	Jobs []DubbingStatus `json:"jobs"`
}

// Recommendation is one recommended clip.
type Recommendation struct {
	ID            int64   `json:"id"`
	SeasonID      string  `json:"season_id"`
	EpisodeName   string  `json:"episode_name"`
	ClipPath      string  `json:"clip_path"`
	VideoURL      string  `json:"video_url"`
	Thumbnail     *string `json:"thumbnail"`
	OriginalText  string  `json:"original_text"`
	TranslationCN *string `json:"translation_cn"`
	Duration      float64 `json:"duration"`
	SortOrder     int     `json:"sort_order"`
}

// RecommendationList wraps the recommendation set.
type RecommendationList struct {
	Clips []Recommendation `json:"clips"`
}

// RefreshResponse reports a manual refresh.
type RefreshResponse struct {
	recommend.Result
	Message string `json:"message"`
}

// HealthResponse is served by /healthz.
type HealthResponse struct {
	Ready    bool                  `json:"ready"`
	Database DatabaseHealth        `json:"database"`
	Jobs     map[string]int        `json:"jobs"`
	Lanes    []workflow.LaneStatus `json:"lanes,omitempty"`
}

// DatabaseHealth mirrors queue.DatabaseHealth.
type DatabaseHealth struct {
	Path           string   `json:"path"`
	SchemaVersion  int      `json:"schema_version"`
	IntegrityCheck bool     `json:"integrity_check"`
	MissingTables  []string `json:"missing_tables,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// DaemonStatus is served by /api/status.
type DaemonStatus struct {
	Workflow     workflow.StatusSummary `json:"workflow"`
	Dependencies []DependencyStatus     `json:"dependencies"`
}

// DependencyStatus captures availability of an external binary.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// FromDependencies converts dependency check results.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, DependencyStatus{
			Name:        status.Name,
			Command:     status.Command,
			Description: status.Description,
			Available:   status.Available,
			Detail:      status.Detail,
		})
	}
	return out
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}
