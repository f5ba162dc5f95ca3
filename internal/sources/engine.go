// Package sources retrieves raw content from the outside world. Each source
// is described by a Descriptor and handled by one retrieval strategy; every
// strategy funnels its items through the normalizer and the engine's
// preface wrapping, so downstream stages see a uniform shape. A failing
// source yields an empty result and a warning, never a failed run.
package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"gazette/internal/core"
	"gazette/internal/fetch"
	"gazette/internal/normalize"
	"gazette/internal/schedule"
	"gazette/internal/secrets"
)

// Engine runs retrieval for every source kind. One Engine is shared across
// all destinations in a run; it holds no per-source state.
type Engine struct {
	Client *fetch.Client
	Secret func(string) (string, error)
	Log    *slog.Logger

	// Now and Sleep are swappable for tests.
	Now   func() time.Time
	Sleep func(time.Duration)
}

// NewEngine wires an engine with the production collaborators.
func NewEngine(client *fetch.Client, log *slog.Logger) *Engine {
	return &Engine{
		Client: client,
		Secret: secrets.Get,
		Log:    log,
		Now:    time.Now,
		Sleep:  time.Sleep,
	}
}

type handler func(e *Engine, ctx context.Context, src Descriptor) ([]string, error)

// handlers is the static dispatch table. Screenshot sources are not listed;
// they need a browser session and run through Engine.Screenshots instead.
var handlers = map[Kind]handler{
	KindAPI:          (*Engine).retrieveAPI,
	KindScrape:       (*Engine).retrieveScrape,
	KindFeedImages:   (*Engine).retrieveFeedImages,
	KindFeedAtom:     (*Engine).retrieveFeedAtom,
	KindEvents:       (*Engine).retrieveEvents,
	KindStatic:       (*Engine).retrieveStatic,
	KindTransitAlert: (*Engine).retrieveTransitAlerts,
}

// skipNormalize marks the kinds whose output is pre-rendered HTML blocks.
// Running those through text normalization would mangle the markup.
var skipNormalize = map[Kind]bool{
	KindEvents:   true,
	KindFeedAtom: true,
}

// Retrieve fetches, normalizes, and wraps one source's items. Sources out of
// schedule or season return nothing without any I/O. A panic inside a
// handler is recovered; the run continues without this source.
func (e *Engine) Retrieve(ctx context.Context, src Descriptor) (items []core.Item) {
	defer func() {
		if r := recover(); r != nil {
			e.Log.Warn("source panicked, skipping", "source", src.Name, "panic", r)
			items = nil
		}
	}()

	today := e.Now()
	if !schedule.IsScheduled(src.Frequency, today, schedule.MissingMeansAlways, src.Name, e.Log) {
		return nil
	}
	if !schedule.InSeason(src.Seasons, today, e.Log) {
		return nil
	}

	h, ok := handlers[src.Kind]
	if !ok {
		e.Log.Warn("source has no retrieval handler", "source", src.Name, "method", src.Kind)
		return nil
	}
	raw, err := h(e, ctx, src)
	if err != nil {
		e.Log.Warn("source failed", "source", src.Name, "kind", fetch.Classify(err).String(), "error", err)
		return nil
	}

	if !skipNormalize[src.Kind] {
		raw = normalize.Apply(raw, src.normalizeOptions(today), e.Log)
	}

	if len(raw) == 0 {
		if !src.ExpectEmpty {
			e.Log.Warn("retrieved 0 items", "source", src.Name)
		}
		return nil
	}
	e.Log.Info("retrieved items", "source", src.Name, "count", len(raw))

	// Transit alerts carry a marker preface unless the config overrides it.
	if src.Kind == KindTransitAlert && src.Preface == "" {
		src.Preface = defaultTransitPreface
	}
	return e.wrap(raw, src, today)
}

// wrap applies the per-kind presentation: prefaces for headlines and image
// urls, a link-wrapped alert line for alerts, pass-through for HTML blocks.
func (e *Engine) wrap(raw []string, src Descriptor, today time.Time) []core.Item {
	switch src.Renders {
	case core.KindHeadline, core.KindImageURL:
		items := make([]core.Item, len(raw))
		for i, text := range raw {
			items[i] = core.NewItem(src.Preface+text, src.Renders, src.Name)
		}
		return items

	case core.KindAlert:
		// Alerts that fire on a condition can produce identical markup two
		// days running, which the cache would then suppress. A per-day alt
		// text keeps each day's firing unique.
		altText := ""
		if src.ForceUniqueDaily {
			altText = fmt.Sprintf(" alt=\" Result for %s\"", today.Format("01/02/2006"))
		}
		items := make([]core.Item, len(raw))
		for i, text := range raw {
			line := fmt.Sprintf("%s <a href=%q target=\"_blank\"%s>%s</a>", src.AlertPreface, src.URL, altText, text)
			items[i] = core.NewItem(line, core.KindAlert, src.Name)
		}
		return items

	case core.KindHTML:
		return core.FromTexts(raw, core.KindHTML, src.Name)

	default:
		e.Log.Warn("unknown type of source", "source", src.Name, "type", src.Renders)
		return nil
	}
}

// retrieveAPI calls a JSON endpoint whose key is appended to the URL, and
// pulls the configured field out of each object under "results".
func (e *Engine) retrieveAPI(ctx context.Context, src Descriptor) ([]string, error) {
	key, err := e.Secret(src.APIKeyName)
	if err != nil {
		return nil, fmt.Errorf("api source needs secret %s: %w", src.APIKeyName, err)
	}
	status, body, err := e.Client.Get(ctx, src.URL+key, fetch.Options{})
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("api returned status %d", status)
	}

	var payload struct {
		Results []map[string]any `json:"results"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode api response: %w", err)
	}
	items := make([]string, 0, len(payload.Results))
	for _, obj := range payload.Results {
		v, ok := obj[src.HeadlineField].(string)
		if !ok {
			return nil, fmt.Errorf("api object is missing string field %q", src.HeadlineField)
		}
		items = append(items, v)
	}
	return items, nil
}

// retrieveStatic returns the configured literal. The date token lets daily
// static content stay distinct under the cache's exact-match comparison.
func (e *Engine) retrieveStatic(_ context.Context, src Descriptor) ([]string, error) {
	return []string{src.StaticMessage}, nil
}
