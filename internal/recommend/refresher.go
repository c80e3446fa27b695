package recommend

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"peiyin/internal/config"
	"peiyin/internal/logging"
	"peiyin/internal/metrics"
	"peiyin/internal/queue"
	"peiyin/internal/stage"
)

const laneName = "recommendation"

// ErrNoSeasons and ErrNoClips report a pass that left the set untouched.
var (
	ErrNoSeasons = errors.New("no active seasons")
	ErrNoClips   = errors.New("no clips found in active seasons")
)

// Store is the subset of queue.Store the refresher needs.
type Store interface {
	ActiveSeasons(ctx context.Context) ([]queue.Season, error)
	CountRecommendations(ctx context.Context) (int, error)
	ReplaceRecommendations(ctx context.Context, clips []queue.RecommendedClip) error
}

// Result summarizes one refresh.
type Result struct {
	Count          int `json:"count"`
	TotalAvailable int `json:"total_available"`
}

// Refresher regenerates the recommendation set.
type Refresher struct {
	cfg     *config.Config
	store   Store
	client  JSONGetter
	logger  *slog.Logger
	shuffle func(n int, swap func(i, j int))

	mu sync.Mutex
}

// New constructs a Refresher.
func New(cfg *config.Config, store Store, client JSONGetter, logger *slog.Logger) *Refresher {
	return &Refresher{
		cfg:     cfg,
		store:   store,
		client:  client,
		logger:  logging.NewComponentLogger(logger, laneName),
		shuffle: rand.Shuffle,
	}
}

func (r *Refresher) Name() string { return laneName }

func (r *Refresher) Interval() time.Duration {
	return time.Duration(r.cfg.Recommendation.IntervalSeconds) * time.Second
}

func (r *Refresher) ErrorBackoff() time.Duration {
	return time.Duration(r.cfg.Recommendation.ErrorRetrySeconds) * time.Second
}

// DelayFirst reports that the loop waits one interval before its first pass;
// Startup covers the empty-set case.
func (r *Refresher) DelayFirst() bool { return true }

// Startup generates a set immediately when none is stored.
func (r *Refresher) Startup(ctx context.Context) error {
	count, err := r.store.CountRecommendations(ctx)
	if err != nil {
		return err
	}
	metrics.SetRecommendations(count)
	if count > 0 {
		return nil
	}
	r.logger.Info("no recommendations stored; generating now",
		logging.String(logging.FieldEventType, "recommendations_bootstrap"))
	return r.Poll(ctx)
}

// Poll runs one refresh. Passes that find nothing are logged and not
// treated as loop errors.
func (r *Refresher) Poll(ctx context.Context) error {
	_, err := r.Refresh(ctx)
	if errors.Is(err, ErrNoSeasons) || errors.Is(err, ErrNoClips) {
		return nil
	}
	return err
}

// Refresh collects clips from every active season and replaces the stored set
// with a random sample of the configured size.
func (r *Refresher) Refresh(ctx context.Context) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seasons, err := r.store.ActiveSeasons(ctx)
	if err != nil {
		return Result{}, err
	}
	if len(seasons) == 0 {
		logging.WarnWithContext(r.logger, "no active seasons; keeping current recommendations", "recommendations_skipped",
			logging.String(logging.FieldErrorHint, "add a season with `peiyin seasons add`"))
		return Result{}, ErrNoSeasons
	}

	var pool []queue.RecommendedClip
	for _, season := range seasons {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		pool = append(pool, r.seasonClips(ctx, season)...)
	}
	if len(pool) == 0 {
		logging.WarnWithContext(r.logger, "no clips found; keeping current recommendations", "recommendations_skipped",
			logging.Int("seasons", len(seasons)),
			logging.String(logging.FieldErrorHint, "check the seasons' all_json_url values"))
		return Result{}, ErrNoClips
	}

	selected := r.sample(pool, r.cfg.Recommendation.Count)
	if err := r.store.ReplaceRecommendations(ctx, selected); err != nil {
		return Result{}, err
	}
	metrics.SetRecommendations(len(selected))
	r.logger.Info("recommendations refreshed",
		logging.String(logging.FieldEventType, "recommendations_refreshed"),
		logging.Int("count", len(selected)),
		logging.Int("total_available", len(pool)),
	)
	return Result{Count: len(selected), TotalAvailable: len(pool)}, nil
}

func (r *Refresher) seasonClips(ctx context.Context, season queue.Season) []queue.RecommendedClip {
	if season.AllJSONURL == "" {
		return nil
	}
	log := r.logger.With(logging.String("season_id", season.ID))
	var episodes []episodeEntry
	if err := r.client.GetJSON(ctx, season.AllJSONURL, &episodes); err != nil {
		log.Debug("season listing unavailable", logging.Error(err))
		return nil
	}
	base := BaseURL(season.AllJSONURL)
	var clips []queue.RecommendedClip
	for _, episode := range episodes {
		if episode.Name == "" {
			continue
		}
		var doc episodeDoc
		url := base + episode.Name + "/" + episode.Name + ".json"
		if err := r.client.GetJSON(ctx, url, &doc); err != nil {
			log.Debug("episode unavailable", logging.String("episode", episode.Name), logging.Error(err))
			continue
		}
		clips = append(clips, episodeClips(season.ID, base, episode.Name, doc)...)
	}
	return clips
}

// sample returns min(n, len(pool)) distinct clips in random order.
func (r *Refresher) sample(pool []queue.RecommendedClip, n int) []queue.RecommendedClip {
	n = max(0, min(n, len(pool)))
	r.shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool[:n]
}

// HealthCheck reports whether the recommendation set can be read.
func (r *Refresher) HealthCheck(ctx context.Context) stage.Health {
	if _, err := r.store.CountRecommendations(ctx); err != nil {
		return stage.Unhealthy(laneName, err.Error())
	}
	return stage.Healthy(laneName)
}
