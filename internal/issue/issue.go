// Package issue assembles one finished issue per destination: it drives
// retrieval across the destination's sources, curates each content pool, and
// maintains the cross-run cache. Destinations are built sequentially; a
// failed destination is logged and skipped, never fatal to the rest, except
// in dev mode where the failure surfaces immediately.
package issue

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"time"

	"gazette/internal/blob"
	"gazette/internal/browser"
	"gazette/internal/cache"
	"gazette/internal/config"
	"gazette/internal/core"
	"gazette/internal/curate"
	"gazette/internal/fetch"
	"gazette/internal/logger"
	"gazette/internal/sources"
	"gazette/internal/sports"
	"gazette/internal/weather"
)

// nwsAttribution credits the forecast provider when a forecast is included.
const nwsAttribution = "National Weather Service API"

// Runner holds the collaborators shared across every destination in a run.
// The judge, encoder, and browser factory may be nil; each absence turns its
// stage into a no-op.
type Runner struct {
	Store   blob.Store
	Cache   *cache.Cache
	Pub     *config.Publication
	Judge   curate.Judge
	Encoder curate.Encoder
	Browser browser.Factory
	Log     *slog.Logger
	Capture *logger.Capture
	Dev     bool

	// Publish hands a finished issue to the delivery layer.
	Publish func(dest *config.Destination, content *core.IssueContent) error

	// Now and the service constructors are swappable for tests. A nil
	// constructor falls back to the production service.
	Now        func() time.Time
	NewEngine  func(timeout time.Duration) *sources.Engine
	NewSports  func(timeout time.Duration) *sports.Service
	NewWeather func(timeout time.Duration) *weather.Service
}

// NewRunner wires a runner with production collaborators.
func NewRunner(store blob.Store, pub *config.Publication, log *slog.Logger) *Runner {
	return &Runner{
		Store: store,
		Cache: cache.New(store),
		Pub:   pub,
		Log:   log,
		Now:   time.Now,
		NewEngine: func(timeout time.Duration) *sources.Engine {
			return sources.NewEngine(fetch.NewClient(timeout), log)
		},
	}
}

// Run builds and publishes every eligible destination's issue. In prod mode
// a destination failure is captured for the admin issue and the loop
// continues; in dev mode it is returned immediately with its stack.
func (r *Runner) Run(ctx context.Context, dests []*config.Destination) error {
	for _, dest := range dests {
		if err := r.runOne(ctx, dest); err != nil {
			if r.Dev {
				return fmt.Errorf("destination %s failed: %w", dest.Name, err)
			}
			r.Log.Error("issue failed due to unhandled error",
				"destination", dest.Name, "error", err, "stack", string(debug.Stack()))
		}
	}
	return nil
}

func (r *Runner) runOne(ctx context.Context, dest *config.Destination) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic while building issue: %v\n%s", rec, debug.Stack())
		}
	}()

	content, err := r.BuildIssue(ctx, dest)
	if err != nil {
		return err
	}
	if dest.Admin && r.Capture != nil {
		content.RunLog = r.Capture.String()
	}
	if r.Publish == nil {
		return nil
	}
	return r.Publish(dest, content)
}

// dedupItems removes exact text repeats across the aggregated pool while
// preserving order. The same headline often arrives from two sections of the
// same site.
func dedupItems(items []core.Item) []core.Item {
	seen := make(map[string]struct{}, len(items))
	out := make([]core.Item, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.Text]; ok {
			continue
		}
		seen[item.Text] = struct{}{}
		out = append(out, item)
	}
	return out
}

// BuildIssue retrieves and curates all content for one destination. The raw
// pre-edit pool is saved to the cache only after every curation pass has
// read the previous run's record: comparisons are raw-to-raw, and the
// nondeterministic stages (judge, clustering) must not shrink what the next
// run suppresses against.
func (r *Runner) BuildIssue(ctx context.Context, dest *config.Destination) (*core.IssueContent, error) {
	log := r.Log.With("destination", dest.Name)
	log.Info("starting issue build")
	engine := r.NewEngine(dest.RequestTimeout)

	var cacheLines []string
	if dest.CachePath != "" {
		if err := r.Cache.EnsurePlaceholder(dest.CachePath); err != nil {
			return nil, fmt.Errorf("failed to prepare cache: %w", err)
		}
		lines, err := r.Cache.Load(dest.CachePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load cache: %w", err)
		}
		cacheLines = lines
	}

	// News: flatten in configured order, then aggregate-level exact dedup.
	var news []core.Item
	for _, src := range dest.NewsSources {
		news = append(news, engine.Retrieve(ctx, src)...)
	}
	news = dedupItems(news)

	var toCache []string
	toCache = append(toCache, core.Texts(news)...)

	headlines := curate.Curate(ctx, news, curate.Options{
		CacheLines:            cacheLines,
		EnforceTrailingPeriod: true,
		OneItemKeywords:       r.Pub.Editorial.OneItemKeywords,
		FilterSubstance:       true,
		Substance:             r.Pub.SubstanceRules,
		Judge:                 r.Judge,
		JudgeCfg:              r.Pub.Editorial.Judge,
		Encoder:               r.Encoder,
		Cluster:               r.Pub.Editorial.Cluster,
		PrefacesToIgnore:      prefaces(dest.NewsSources),
	}, log)

	// Tonight's games for tracked teams lead the headlines. They skip the
	// cache entirely: a game tonight is news tonight even when yesterday's
	// schedule said the same thing.
	var scoreboard []string
	if !dest.Sports.Empty() {
		sp := r.sportsService(dest.RequestTimeout, log)
		games := sp.GameHeadlines(ctx, dest.Sports)
		headlines = append(core.FromTexts(games, core.KindHeadline, "sports"), headlines...)
		scoreboard = sp.Scoreboard(ctx, dest.Sports)
	}

	// Alerts are edited lightly: no substance filtering and no clustering,
	// since a transit feed can carry several similar but distinct alerts.
	var alerts []core.Item
	for _, src := range dest.AlertsSources {
		alerts = append(alerts, engine.Retrieve(ctx, src)...)
	}
	toCache = append(toCache, core.Texts(alerts)...)
	alerts = curate.Curate(ctx, alerts, curate.Options{
		CacheLines:            cacheLines,
		EnforceTrailingPeriod: true,
		OneItemKeywords:       r.Pub.Editorial.OneItemKeywords,
	}, log)

	// Image fragments: suppression and the keyword cap, but no trailing
	// period since the items are markup rather than sentences.
	var imageURLs []core.Item
	for _, src := range dest.ImageSources {
		imageURLs = append(imageURLs, engine.Retrieve(ctx, src)...)
	}
	toCache = append(toCache, core.Texts(imageURLs)...)
	imageURLs = curate.Curate(ctx, imageURLs, curate.Options{
		CacheLines:      cacheLines,
		OneItemKeywords: r.Pub.Editorial.OneItemKeywords,
	}, log)

	eventsHTML := ""
	for _, src := range dest.EventsSources {
		for _, item := range engine.Retrieve(ctx, src) {
			eventsHTML += item.Text
		}
	}

	var forecast *core.Forecast
	if dest.Forecast != nil {
		forecast = r.weatherService(dest.RequestTimeout, log).Forecast(ctx, *dest.Forecast)
	}

	shots := engine.Screenshots(dest.ScreenshotSources, r.Browser)

	// Persist the raw pool now that every cache read is behind us. Dev runs
	// leave the record untouched so repeated experiments see stable input.
	if dest.CachePath != "" && !r.Dev {
		if err := r.Cache.Save(dest.CachePath, toCache); err != nil {
			log.Warn("failed to save cache, next run may repeat items", "error", err)
		}
	}

	content := &core.IssueContent{
		Headlines:   headlines,
		Alerts:      alerts,
		Scoreboard:  scoreboard,
		ImageURLs:   imageURLs,
		EventsHTML:  eventsHTML,
		Forecast:    forecast,
		Screenshots: shots,
	}
	content.Attributions = attributions(dest, forecast != nil)
	log.Info("finished issue build",
		"headlines", len(headlines), "alerts", len(alerts), "images", len(imageURLs))
	return content, nil
}

func (r *Runner) sportsService(timeout time.Duration, log *slog.Logger) *sports.Service {
	if r.NewSports != nil {
		return r.NewSports(timeout)
	}
	return sports.NewService(fetch.NewClient(timeout), log)
}

func (r *Runner) weatherService(timeout time.Duration, log *slog.Logger) *weather.Service {
	if r.NewWeather != nil {
		return r.NewWeather(timeout)
	}
	return weather.NewService(fetch.NewClient(timeout), log)
}

// prefaces collects the configured source prefaces, which clustering ignores
// so a shared label doesn't read as similarity.
func prefaces(descs []sources.Descriptor) []string {
	var out []string
	for _, d := range descs {
		if d.Preface != "" {
			out = append(out, d.Preface)
		}
	}
	return out
}

// attributions credits every source the issue drew from, sorted and unique.
func attributions(dest *config.Destination, forecastUsed bool) []string {
	set := make(map[string]struct{})
	for _, group := range [][]sources.Descriptor{
		dest.NewsSources, dest.AlertsSources, dest.ImageSources, dest.EventsSources,
	} {
		for _, src := range group {
			set[src.Name] = struct{}{}
		}
	}
	if len(dest.Sports.NBATeams) > 0 {
		set["NBA API"] = struct{}{}
	}
	if len(dest.Sports.NHLTeams) > 0 {
		set["NHL API"] = struct{}{}
	}
	if forecastUsed {
		set[nwsAttribution] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
