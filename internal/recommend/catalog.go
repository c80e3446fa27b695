package recommend

import (
	"context"
	"strings"

	"peiyin/internal/queue"
)

// JSONGetter fetches and decodes a JSON document.
type JSONGetter interface {
	GetJSON(ctx context.Context, rawURL string, dest any) error
}

type episodeEntry struct {
	Name string `json:"name"`
}

type episodeDoc struct {
	Clips []clipEntry `json:"clips"`
}

type clipEntry struct {
	VideoURL      string   `json:"video_url"`
	Thumbnail     string   `json:"thumbnail"`
	OriginalText  string   `json:"original_text"`
	TranslationCN *string  `json:"translation_cn"`
	Duration      *float64 `json:"duration"`
}

// BaseURL returns the directory URL that episode paths are relative to.
func BaseURL(allJSONURL string) string {
	if strings.HasSuffix(allJSONURL, "/all.json") {
		return strings.TrimSuffix(allJSONURL, "all.json")
	}
	if idx := strings.LastIndex(allJSONURL, "/"); idx >= 0 {
		return allJSONURL[:idx+1]
	}
	return allJSONURL + "/"
}

// episodeClips converts one episode document into recommendation rows.
func episodeClips(seasonID, base, episode string, doc episodeDoc) []queue.RecommendedClip {
	clips := make([]queue.RecommendedClip, 0, len(doc.Clips))
	for _, entry := range doc.Clips {
		clipPath := episode + "/" + entry.VideoURL
		clip := queue.RecommendedClip{
			SeasonID:      seasonID,
			EpisodeName:   episode,
			ClipPath:      clipPath,
			VideoURL:      base + clipPath,
			OriginalText:  entry.OriginalText,
			TranslationCN: entry.TranslationCN,
		}
		if entry.Thumbnail != "" {
			thumb := base + episode + "/" + entry.Thumbnail
			clip.Thumbnail = &thumb
		}
		if entry.Duration != nil {
			clip.Duration = *entry.Duration
		}
		clips = append(clips, clip)
	}
	return clips
}
