package config

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"gazette/internal/blob"
	"gazette/internal/core"
	"gazette/internal/schedule"
	"gazette/internal/sources"
	"gazette/internal/sports"
	"gazette/internal/weather"
)

// destinationPrefix marks destination config objects on the blob store.
// Every object whose name starts with it is one destination.
const destinationPrefix = "config_"

// onlyDestinationEnv limits a run to a single destination, for canarying a
// new deployment without disturbing everyone else's issue.
const onlyDestinationEnv = "ONLY_DESTINATION"

// defaultRequestTimeout applies when a destination doesn't set its own.
const defaultRequestTimeout = 30 * time.Second

// transitSelection is a destination's transit alert subscription.
type transitSelection struct {
	Route       string              `yaml:"route"`
	Stops       []string            `yaml:"stops"`
	DirectionID *int                `yaml:"direction_id"`
	Frequency   *schedule.Frequency `yaml:"frequency"`
	Seasons     []string            `yaml:"seasons"`
}

// eventsSelection is a destination's events calendar subscription.
type eventsSelection struct {
	Sources   []string            `yaml:"sources"`
	Frequency *schedule.Frequency `yaml:"frequency"`
	Seasons   []string            `yaml:"seasons"`
}

// destinationDoc is the raw YAML shape of one destination config object.
type destinationDoc struct {
	Name      string              `yaml:"name"`
	Admin     bool                `yaml:"admin"`
	Frequency *schedule.Frequency `yaml:"issue_frequency"`
	Seasons   []string            `yaml:"seasons"`

	Editorial struct {
		Subject         string `yaml:"subject"`
		CachePath       string `yaml:"cache_path"`
		RequestsTimeout int    `yaml:"requests_timeout"`
	} `yaml:"editorial"`

	Sources struct {
		NewsCategories  []string           `yaml:"news_categories"`
		AlertsSources   []string           `yaml:"alerts_sources"`
		ImageCategories []string           `yaml:"image_categories"`
		Screenshots     []string           `yaml:"screenshots"`
		Events          eventsSelection    `yaml:"events"`
		Transit         []transitSelection `yaml:"transit"`
	} `yaml:"sources"`

	Sports   sports.Config   `yaml:"sports"`
	Forecast *weather.Config `yaml:"forecast"`
	Slogans  []string        `yaml:"slogans"`
	Extras   []string        `yaml:"extras"`
}

// Destination is one resolved recipient: its selected slice of the source
// catalog plus its personal settings. Only destinations scheduled for today
// come out of LoadDestinations.
type Destination struct {
	Name    string
	Admin   bool
	Subject string

	CachePath      string
	RequestTimeout time.Duration

	NewsSources       []sources.Descriptor
	EventsSources     []sources.Descriptor
	AlertsSources     []sources.Descriptor
	ImageSources      []sources.Descriptor
	ScreenshotSources []sources.Descriptor

	Sports   sports.Config
	Forecast *weather.Config
	Slogans  []string
	Extras   []string
}

// filterSources keeps the catalog entries whose criterion value appears in
// the selections, ordered by the selection list rather than the catalog.
func filterSources(catalog []sources.Descriptor, selections []string, criterion func(sources.Descriptor) string) []sources.Descriptor {
	if len(selections) == 0 {
		return nil
	}
	var kept []sources.Descriptor
	for _, want := range selections {
		for _, src := range catalog {
			if criterion(src) == want {
				kept = append(kept, src)
			}
		}
	}
	return kept
}

func byName(d sources.Descriptor) string     { return d.Name }
func byCategory(d sources.Descriptor) string { return d.Category }

// resolveDestination turns one raw document into a Destination, or nil when
// today is not a delivery day for it.
func resolveDestination(doc destinationDoc, pub *Publication, today time.Time, log *slog.Logger) *Destination {
	// Whole-issue gating. The cadence is imputed daily when absent, so the
	// required-frequency policy only fires on a malformed spec.
	freq := doc.Frequency
	if freq == nil {
		freq = &schedule.Frequency{Cadence: "daily"}
	}
	if !schedule.IsScheduled(freq, today, schedule.MissingMeansNever, doc.Name, log) {
		log.Info("no issue today, outside issue frequency", "destination", doc.Name)
		return nil
	}
	if !schedule.InSeason(doc.Seasons, today, log) {
		log.Info("no issue today, outside seasons", "destination", doc.Name)
		return nil
	}

	timeout := defaultRequestTimeout
	if doc.Editorial.RequestsTimeout > 0 {
		timeout = time.Duration(doc.Editorial.RequestsTimeout) * time.Second
	}
	if doc.Editorial.CachePath == "" {
		log.Warn("destination has no cache_path; repeats from the last issue will not be suppressed",
			"destination", doc.Name)
	}

	dest := &Destination{
		Name:           doc.Name,
		Admin:          doc.Admin,
		Subject:        doc.Editorial.Subject,
		CachePath:      doc.Editorial.CachePath,
		RequestTimeout: timeout,
		Sports:         doc.Sports,
		Forecast:       doc.Forecast,
		Slogans:        doc.Slogans,
		Extras:         doc.Extras,
	}

	dest.NewsSources = filterSources(pub.NewsSources, doc.Sources.NewsCategories, byCategory)
	dest.AlertsSources = filterSources(pub.AlertsSources, doc.Sources.AlertsSources, byName)
	dest.ImageSources = filterSources(pub.ImageSources, doc.Sources.ImageCategories, byCategory)
	dest.ScreenshotSources = filterSources(pub.ScreenshotSources, doc.Sources.Screenshots, byName)

	// The events section carries its own cadence on top of per-source gating.
	if schedule.IsScheduled(eventsFrequency(doc.Sources.Events), today, schedule.MissingMeansNever, doc.Name+" events", log) &&
		schedule.InSeason(doc.Sources.Events.Seasons, today, log) {
		dest.EventsSources = filterSources(pub.EventsSources, doc.Sources.Events.Sources, byName)
	}

	// Transit subscriptions become alert sources of their own.
	for _, sub := range doc.Sources.Transit {
		if !schedule.IsScheduled(sub.Frequency, today, schedule.MissingMeansAlways, doc.Name+" transit", log) {
			continue
		}
		if !schedule.InSeason(sub.Seasons, today, log) {
			continue
		}
		desc := sources.Descriptor{
			Name:        "Transit alerts: " + sub.Route,
			Kind:        sources.KindTransitAlert,
			Renders:     core.KindHeadline,
			Route:       sub.Route,
			Stops:       sub.Stops,
			DirectionID: sub.DirectionID,
		}
		if err := desc.Validate(); err != nil {
			log.Warn("skipping invalid transit subscription", "destination", doc.Name, "error", err)
			continue
		}
		dest.AlertsSources = append(dest.AlertsSources, desc)
	}

	// Publication forecast defaults fill per-destination gaps.
	if dest.Forecast != nil && dest.Forecast.SnoozeSecs == 0 {
		dest.Forecast.SnoozeSecs = pub.Forecast.SnoozeSecs
	}

	return dest
}

func eventsFrequency(sel eventsSelection) *schedule.Frequency {
	if sel.Frequency != nil {
		return sel.Frequency
	}
	return &schedule.Frequency{Cadence: "daily"}
}

// LoadDestinations loads every destination config from the store and keeps
// the ones eligible today. Admin destinations sort last so their issue can
// carry the warnings logged while everyone else's was built.
func LoadDestinations(store blob.Store, pub *Publication, today time.Time, log *slog.Logger) ([]*Destination, error) {
	paths, err := store.List(destinationPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list destination configs: %w", err)
	}
	sort.Strings(paths)

	var dests []*Destination
	for _, path := range paths {
		data, err := store.Read(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read destination config %s: %w", path, err)
		}
		var doc destinationDoc
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse destination config %s: %w", path, err)
		}
		if doc.Name == "" {
			doc.Name = path
		}
		if dest := resolveDestination(doc, pub, today, log); dest != nil {
			dests = append(dests, dest)
		}
	}

	if only := os.Getenv(onlyDestinationEnv); only != "" {
		var filtered []*Destination
		for _, dest := range dests {
			if dest.Name == only {
				filtered = append(filtered, dest)
			}
		}
		log.Info("limiting delivery to one destination", "destination", only)
		dests = filtered
	}

	sort.SliceStable(dests, func(i, j int) bool {
		return !dests[i].Admin && dests[j].Admin
	})
	return dests, nil
}
