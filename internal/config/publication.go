package config

import (
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"

	"gazette/internal/blob"
	"gazette/internal/curate"
	"gazette/internal/sources"
)

// publicationFile is the shared settings document on the blob store.
const publicationFile = "publication_config.yml"

// substanceRulesFile holds the shared phrase lists for substance filtering.
const substanceRulesFile = "substance_rules.yml"

// extrasFile holds the shared pool of closing quotes.
const extrasFile = "extras.yml"

// Editorial carries the publication-wide editing settings.
type Editorial struct {
	OneItemKeywords []string              `yaml:"one_item_keywords"`
	Judge           *curate.JudgeConfig   `yaml:"judge"`
	Cluster         *curate.ClusterConfig `yaml:"cluster"`
	EnableExtras    bool                  `yaml:"enable_extras"`
}

// ForecastDefaults are publication-wide forecast settings merged into each
// destination's forecast config.
type ForecastDefaults struct {
	SnoozeSecs int `yaml:"api_snooze_bar"`
}

// Publication is the shared half of the configuration: the source catalog
// and publication-wide editorial settings every destination draws from.
type Publication struct {
	Editorial         Editorial            `yaml:"editorial"`
	Forecast          ForecastDefaults     `yaml:"forecast"`
	NewsSources       []sources.Descriptor `yaml:"news_sources"`
	EventsSources     []sources.Descriptor `yaml:"events_sources"`
	AlertsSources     []sources.Descriptor `yaml:"alerts_sources"`
	ImageSources      []sources.Descriptor `yaml:"image_sources"`
	ScreenshotSources []sources.Descriptor `yaml:"screenshot_sources"`

	// Loaded from companion documents, not from publicationFile itself.
	SubstanceRules *curate.SubstanceRules `yaml:"-"`
	Extras         []string               `yaml:"-"`
}

// validDescriptors drops descriptors that fail validation, with a warning
// naming each. An invalid source costs itself, never the run.
func validDescriptors(descs []sources.Descriptor, log *slog.Logger) []sources.Descriptor {
	kept := descs[:0]
	for _, d := range descs {
		if err := d.Validate(); err != nil {
			log.Warn("skipping invalid source config", "error", err)
			continue
		}
		kept = append(kept, d)
	}
	return kept
}

// LoadPublication reads and validates the shared configuration from the blob
// store. The publication document is required; the companions are optional.
func LoadPublication(store blob.Store, log *slog.Logger) (*Publication, error) {
	data, err := store.Read(publicationFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load publication config: %w", err)
	}
	pub := &Publication{}
	if err := yaml.Unmarshal(data, pub); err != nil {
		return nil, fmt.Errorf("failed to parse publication config: %w", err)
	}

	pub.NewsSources = validDescriptors(pub.NewsSources, log)
	pub.EventsSources = validDescriptors(pub.EventsSources, log)
	pub.AlertsSources = validDescriptors(pub.AlertsSources, log)
	pub.ImageSources = validDescriptors(pub.ImageSources, log)
	pub.ScreenshotSources = validDescriptors(pub.ScreenshotSources, log)

	if data, err := store.Read(substanceRulesFile); err == nil {
		rules := &curate.SubstanceRules{}
		if err := yaml.Unmarshal(data, rules); err != nil {
			return nil, fmt.Errorf("failed to parse substance rules: %w", err)
		}
		pub.SubstanceRules = rules
	} else {
		log.Warn("no substance rules found, substance filtering disabled", "error", err)
	}

	if pub.Editorial.EnableExtras {
		if data, err := store.Read(extrasFile); err == nil {
			var doc struct {
				Quotes []string `yaml:"quotes"`
			}
			if err := yaml.Unmarshal(data, &doc); err != nil {
				log.Warn("extras document did not parse", "error", err)
			} else {
				pub.Extras = doc.Quotes
			}
		}
	}

	return pub, nil
}
