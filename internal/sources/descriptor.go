package sources

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"gazette/internal/core"
	"gazette/internal/normalize"
	"gazette/internal/schedule"
)

// Kind names the retrieval strategy for a source.
type Kind string

const (
	KindAPI          Kind = "api"
	KindScrape       Kind = "scrape"
	KindFeedImages   Kind = "feed_images"
	KindFeedAtom     Kind = "feed_atom"
	KindEvents       Kind = "events_calendar"
	KindStatic       Kind = "static"
	KindTransitAlert Kind = "transit_alert"
	KindScreenshot   Kind = "screenshot"
)

// StringList accepts either a YAML scalar or a sequence, so configs can write
// `must_contain: storm` and `must_contain: [storm, flood]` interchangeably.
type StringList []string

func (l *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*l = StringList{s}
		return nil
	case yaml.SequenceNode:
		var ss []string
		if err := node.Decode(&ss); err != nil {
			return err
		}
		*l = StringList(ss)
		return nil
	default:
		return fmt.Errorf("must_contain-style fields expect a string or a list, got yaml kind %d", node.Kind)
	}
}

// EventsConfig describes a paginated web calendar and how to pull structured
// events out of it.
type EventsConfig struct {
	URLBase        string `yaml:"url_base"` // May contain {PAGE}, {START_DATE}, {END_DATE}
	WindowDays     int    `yaml:"window"`   // How many days ahead to ask for
	EventItemTag   string `yaml:"event_item_tag"`
	EventListClass string `yaml:"event_list_class"`

	TitleClass       string `yaml:"title_class"`
	VenueClass       string `yaml:"venue_class"`
	DatesClass       string `yaml:"dates_class"`
	DescriptionClass string `yaml:"description_class"`

	ImageHTMLClass      string `yaml:"image_html_class"`
	PlaceholderImageSrc string `yaml:"placeholder_image_src"`
	PlaceholderImageURL string `yaml:"placeholder_image_replacement_url"`
	LinkURLClass        string `yaml:"link_url_class"`
	LinkURLAttr         string `yaml:"link_url_attr"`

	MaxEvents int `yaml:"max_events"`
}

// Descriptor is one source's full configuration: what to fetch, how to
// extract it, how to shape the resulting text, and when it is eligible.
// Exactly one Kind applies; Validate rejects descriptors whose required
// fields for that kind are missing.
type Descriptor struct {
	Name     string        `yaml:"name"`
	Category string        `yaml:"category"` // Selection group readers subscribe by
	Kind     Kind          `yaml:"method"`
	Renders  core.ItemKind `yaml:"type"` // headline, alert, image_url, html

	URL       string              `yaml:"url"`
	Frequency *schedule.Frequency `yaml:"frequency"`
	Seasons   []string            `yaml:"seasons"`

	Preface          string `yaml:"preface"`
	AlertPreface     string `yaml:"alert_preface"`
	ForceUniqueDaily bool   `yaml:"force_unique_daily_alert"`
	ExpectEmpty      bool   `yaml:"exclude_from_zero_results_warning"`
	BrowserHeaders   bool   `yaml:"browser_headers"`

	// api
	APIKeyName    string `yaml:"api_key_name"`
	HeadlineField string `yaml:"headline_field"`

	// scrape
	SelectQuery        string   `yaml:"select_query"`
	Tag                string   `yaml:"tag"`
	TagClass           string   `yaml:"tag_class"`
	MultitagGroup      string   `yaml:"multitag_group"`
	MultitagTags       []string `yaml:"multitag_tags"`
	MultitagSeparator  string   `yaml:"multitag_separator"`
	ImgTag             bool     `yaml:"img_tag"`
	ImgTagNumber       int      `yaml:"img_tag_number"`
	TagNext            string   `yaml:"tag_next"`
	DetailPageRoot     string   `yaml:"detail_page_root"`
	DetailImgNumber    int      `yaml:"detail_img_number"`
	DetailTextTag      string   `yaml:"detail_text_tag"`
	DetailTextTagClass string   `yaml:"detail_text_tag_class"`
	AddHTTPImg         bool     `yaml:"add_http_img"`
	SplitChar          string   `yaml:"split_char"`
	Header             string   `yaml:"header"`

	// Calendar-style sitemaps: the path to today's page is computed from the
	// date, so scraping never surfaces stale headlines.
	SitemapFormat        string `yaml:"calendar_sitemap_format"`
	SitemapYesterday     bool   `yaml:"calendar_sitemap_subtract_one_day"`
	SitemapTrailingSlash bool   `yaml:"calendar_sitemap_add_trailing_slash"`

	// feed_images / feed_atom
	ImgTagUnderKey           string   `yaml:"get_img_tag_under_this_key"`
	MediaThumbnailAndSummary bool     `yaml:"media_thumbnail_and_summary"`
	SummaryCantContain       string   `yaml:"summary_cant_contain"`
	EnforceHTTPSImg          bool     `yaml:"enforce_https_img_url"`
	HeaderPath               []string `yaml:"header_path"`
	HeaderPreface            string   `yaml:"header_preface"`
	ImagePath                []string `yaml:"image_path"`
	BodyPath                 []string `yaml:"body_path"`

	// static
	StaticMessage string `yaml:"static_message"`

	// transit_alert
	AlertsURL   string   `yaml:"alerts_url"`
	Route       string   `yaml:"route"`
	Stops       []string `yaml:"stops"`
	DirectionID *int     `yaml:"direction_id"`

	// screenshot
	TagID         string `yaml:"tag_id"`
	TagXPath      string `yaml:"tag_xpath"`
	TagCSS        string `yaml:"tag_css"`
	ElementNumber int    `yaml:"element_number"` // 1-based
	LoadDelaySecs int    `yaml:"delay_secs_for_loading"`

	// events_calendar
	Events *EventsConfig `yaml:"events"`

	// Text shaping, applied by the normalizer after extraction.
	MustContain          StringList `yaml:"must_contain"`
	CantContain          StringList `yaml:"cant_contain"`
	RemoveText           string     `yaml:"remove_text"`
	HealInnerNewline     bool       `yaml:"heal_inner_newline"`
	HealRestWithEllipses bool       `yaml:"heal_rest_with_ellipses"`
	MinWords             int        `yaml:"min_words"`
	MaxItems             int        `yaml:"max_items"`
	AllowedValues        []string   `yaml:"allowed_values"`
}

// Validate checks the fields required by the descriptor's Kind. Invalid
// descriptors are skipped at config load, never at retrieval time.
func (d Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("source has no name")
	}
	switch d.Kind {
	case KindAPI:
		if d.URL == "" || d.APIKeyName == "" || d.HeadlineField == "" {
			return fmt.Errorf("api source %q needs url, api_key_name, and headline_field", d.Name)
		}
	case KindScrape:
		if d.URL == "" {
			return fmt.Errorf("scrape source %q needs a url", d.Name)
		}
		if d.SelectQuery == "" && d.Tag == "" && d.MultitagGroup == "" && !d.ImgTag {
			return fmt.Errorf("scrape source %q configures no extraction strategy", d.Name)
		}
	case KindFeedImages, KindFeedAtom:
		if d.URL == "" {
			return fmt.Errorf("feed source %q needs a url", d.Name)
		}
	case KindEvents:
		if d.Events == nil || d.Events.URLBase == "" || d.Events.EventItemTag == "" || d.Events.EventListClass == "" {
			return fmt.Errorf("events source %q needs events.url_base, event_item_tag, and event_list_class", d.Name)
		}
	case KindStatic:
		if d.StaticMessage == "" {
			return fmt.Errorf("static source %q has no static_message", d.Name)
		}
	case KindTransitAlert:
		if d.Route == "" || len(d.Stops) == 0 || d.DirectionID == nil {
			return fmt.Errorf("transit source %q needs route, stops, and direction_id", d.Name)
		}
	case KindScreenshot:
		if d.URL == "" {
			return fmt.Errorf("screenshot source %q needs a url", d.Name)
		}
		if d.ElementNumber < 1 {
			return fmt.Errorf("screenshot source %q needs a 1-based element_number", d.Name)
		}
	default:
		return fmt.Errorf("source %q has unknown method %q", d.Name, d.Kind)
	}
	switch d.Renders {
	case core.KindHeadline, core.KindAlert, core.KindImageURL, core.KindHTML:
	default:
		return fmt.Errorf("source %q has unknown type %q", d.Name, d.Renders)
	}
	return nil
}

func (d Descriptor) normalizeOptions(today time.Time) normalize.Options {
	return normalize.Options{
		SourceName:           d.Name,
		Today:                today,
		MustContain:          d.MustContain,
		CantContain:          d.CantContain,
		RemoveText:           d.RemoveText,
		HealInnerNewline:     d.HealInnerNewline,
		HealRestWithEllipses: d.HealRestWithEllipses,
		MinWords:             d.MinWords,
		MaxItems:             d.MaxItems,
		AllowedValues:        d.AllowedValues,
	}
}
