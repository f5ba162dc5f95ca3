package sources

import (
	"time"

	"gazette/internal/browser"
	"gazette/internal/core"
	"gazette/internal/schedule"
)

// selector resolves which single lookup strategy a screenshot source
// configured. When several are set, the first in precedence order wins and a
// warning is logged.
func (e *Engine) selector(src Descriptor) (browser.SelectorKind, string, bool) {
	type choice struct {
		kind  browser.SelectorKind
		value string
	}
	var configured []choice
	if src.Tag != "" {
		configured = append(configured, choice{browser.ByTag, src.Tag})
	}
	if src.TagClass != "" {
		configured = append(configured, choice{browser.ByClass, src.TagClass})
	}
	if src.TagID != "" {
		configured = append(configured, choice{browser.ByID, src.TagID})
	}
	if src.TagXPath != "" {
		configured = append(configured, choice{browser.ByXPath, src.TagXPath})
	}
	if src.TagCSS != "" {
		configured = append(configured, choice{browser.ByCSS, src.TagCSS})
	}

	if len(configured) == 0 {
		e.Log.Warn("screenshot source configures no element selector", "source", src.Name)
		return 0, "", false
	}
	if len(configured) > 1 {
		e.Log.Warn("screenshot source configures multiple selectors, only one will be used", "source", src.Name)
	}
	return configured[0].kind, configured[0].value, true
}

// Screenshots captures one image per eligible screenshot source. The browser
// session is opened once for the whole batch and released on every path; a
// source that fails is skipped, not fatal to the batch.
func (e *Engine) Screenshots(sources []Descriptor, factory browser.Factory) []core.Screenshot {
	if len(sources) == 0 || factory == nil {
		return nil
	}

	session, err := factory()
	if err != nil {
		e.Log.Warn("could not open browser session, skipping screenshots", "error", err)
		return nil
	}
	defer func() { _ = session.Quit() }()

	today := e.Now()
	var shots []core.Screenshot
	for _, src := range sources {
		if !schedule.IsScheduled(src.Frequency, today, schedule.MissingMeansAlways, src.Name, e.Log) {
			continue
		}
		if !schedule.InSeason(src.Seasons, today, e.Log) {
			continue
		}

		kind, value, ok := e.selector(src)
		if !ok {
			continue
		}
		if err := session.Navigate(src.URL); err != nil {
			e.Log.Warn("screenshot navigation failed", "source", src.Name, "error", err)
			continue
		}
		// Dynamically rendered charts screenshot incomplete when captured
		// too quickly after navigation.
		if src.LoadDelaySecs > 0 {
			e.Sleep(time.Duration(src.LoadDelaySecs) * time.Second)
		}

		elements, err := session.Find(kind, value)
		if err != nil {
			e.Log.Warn("screenshot element lookup failed", "source", src.Name, "error", err)
			continue
		}
		if len(elements) < src.ElementNumber {
			e.Log.Warn("screenshot element not present", "source", src.Name,
				"wanted", src.ElementNumber, "found", len(elements))
			continue
		}
		image, err := elements[src.ElementNumber-1].Screenshot()
		if err != nil {
			e.Log.Warn("screenshot capture failed", "source", src.Name, "error", err)
			continue
		}
		shots = append(shots, core.Screenshot{ImageB64: image, Heading: src.Header})
	}
	return shots
}
