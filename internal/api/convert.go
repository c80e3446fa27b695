package api

import (
	"peiyin/internal/queue"
)

// dateTimeFormat is used for timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// MediaURL maps a path relative to the public directory onto its URL.
func MediaURL(rel string) string {
	if rel == "" {
		return ""
	}
	return MediaPrefix + rel
}

// FromVocalRemovalJob converts a store record.
func FromVocalRemovalJob(job *queue.VocalRemovalJob) VocalRemovalStatus {
	if job == nil {
		return VocalRemovalStatus{}
	}
	out := VocalRemovalStatus{
		SourceURL:  job.SourceURL,
		Status:     string(job.Status),
		OutputPath: deref(job.OutputPath),
		Error:      deref(job.ErrorMessage),
	}
	out.OutputURL = MediaURL(out.OutputPath)
	return out
}

// FromDubbingJob converts a store record.
func FromDubbingJob(job *queue.CompositeDubbingJob) DubbingStatus {
	if job == nil {
		return DubbingStatus{}
	}
	out := DubbingStatus{
		JobID:       job.ID,
		UserID:      job.UserID,
		SourceURL:   job.SourceURL,
		Mode:        string(job.Mode),
		Status:      string(job.Status),
		OutputPath:  deref(job.OutputPath),
		Error:       deref(job.ErrorMessage),
		IsPublic:    job.IsPublic,
		CaptionText: job.CaptionText,
		Translation: job.Translation,
		Thumbnail:   job.Thumbnail,
		Duration:    job.Duration,
	}
	out.OutputURL = MediaURL(out.OutputPath)
	if !job.CreatedAt.IsZero() {
		out.CreatedAt = job.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !job.UpdatedAt.IsZero() {
		out.UpdatedAt = job.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return out
}

// FromRecommendations converts the stored set.
func FromRecommendations(clips []queue.RecommendedClip) RecommendationList {
	out := RecommendationList{Clips: make([]Recommendation, 0, len(clips))}
	for _, clip := range clips {
		out.Clips = append(out.Clips, Recommendation{
			ID:            clip.ID,
			SeasonID:      clip.SeasonID,
			EpisodeName:   clip.EpisodeName,
			ClipPath:      clip.ClipPath,
			VideoURL:      clip.VideoURL,
			Thumbnail:     clip.Thumbnail,
			OriginalText:  clip.OriginalText,
			TranslationCN: clip.TranslationCN,
			Duration:      clip.Duration,
			SortOrder:     clip.SortOrder,
		})
	}
	return out
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
