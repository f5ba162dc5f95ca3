package sources

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"gazette/internal/fetch"
)

// calendarDateLayout is the date format most web calendars accept in their
// query strings.
const calendarDateLayout = "01-02-2006"

// event is one structured calendar entry, ready for row rendering.
type event struct {
	Title       string
	Venue       string
	Dates       string
	Description string
	ImageHTML   string
	LinkURL     string
}

func classText(sel *goquery.Selection, class string) string {
	if class == "" {
		return ""
	}
	return strings.TrimSpace(sel.Find("." + class).First().Text())
}

// extractEvent parses one event element per the calendar's class map.
func extractEvent(sel *goquery.Selection, cfg EventsConfig) event {
	ev := event{
		Title:       classText(sel, cfg.TitleClass),
		Venue:       classText(sel, cfg.VenueClass),
		Dates:       classText(sel, cfg.DatesClass),
		Description: classText(sel, cfg.DescriptionClass),
	}

	if cfg.ImageHTMLClass != "" {
		img := sel.Find("." + cfg.ImageHTMLClass).First()
		if img.Length() > 0 {
			html, err := goquery.OuterHtml(img)
			if err == nil {
				ev.ImageHTML = html
			}
			// Calendars often serve a stock placeholder thumbnail; swap in
			// the configured replacement when we recognize it.
			if cfg.PlaceholderImageSrc != "" {
				if src, _ := img.Attr("src"); strings.Contains(src, cfg.PlaceholderImageSrc) {
					ev.ImageHTML = cfg.PlaceholderImageURL
				}
			}
		}
	}

	if cfg.LinkURLClass != "" && cfg.LinkURLAttr != "" {
		ev.LinkURL, _ = sel.Find("." + cfg.LinkURLClass).First().Attr(cfg.LinkURLAttr)
	}
	return ev
}

// formatEvent renders one event as a table row. Titles under two characters
// are treated as parse noise and dropped.
func formatEvent(ev event) string {
	if utf8.RuneCountInString(ev.Title) < 2 {
		return ""
	}
	return fmt.Sprintf(
		"<tr><td>%s</td><td><h4><a href=%q>%s</a></h4><p><b>%s</b></p><p><b><i>%s</i></b></p><p>%s</p><br></td></tr>",
		ev.ImageHTML, ev.LinkURL, ev.Title, ev.Venue, ev.Dates, ev.Description)
}

// retrieveEvents walks a paginated web calendar and renders the events it
// finds as one HTML table block. Pagination stops at the first page that
// fails or comes back empty.
func (e *Engine) retrieveEvents(ctx context.Context, src Descriptor) ([]string, error) {
	cfg := *src.Events

	today := e.Now()
	urlBase := cfg.URLBase
	urlBase = strings.ReplaceAll(urlBase, "{START_DATE}", today.Format(calendarDateLayout))
	urlBase = strings.ReplaceAll(urlBase, "{END_DATE}", today.AddDate(0, 0, cfg.WindowDays).Format(calendarDateLayout))

	var events []event
	for page := 1; ; page++ {
		url := strings.ReplaceAll(urlBase, "{PAGE}", fmt.Sprintf("%d", page))
		_, body, err := e.Client.Get(ctx, url, fetch.Options{})
		if err != nil {
			e.Log.Warn("calendar page fetch failed, stopping pagination",
				"source", src.Name, "page", page, "error", err)
			break
		}
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			e.Log.Warn("calendar page did not parse, stopping pagination",
				"source", src.Name, "page", page, "error", err)
			break
		}
		sel := findByTagAndClass(doc, cfg.EventItemTag, cfg.EventListClass)
		if sel.Length() == 0 {
			break
		}
		sel.Each(func(_ int, s *goquery.Selection) {
			events = append(events, extractEvent(s, cfg))
		})
	}

	if cfg.MaxEvents > 0 && len(events) > cfg.MaxEvents {
		events = events[:cfg.MaxEvents]
	}

	var b strings.Builder
	b.WriteString("<table>")
	for _, ev := range events {
		b.WriteString(formatEvent(ev))
	}
	b.WriteString("</table>")
	return []string{b.String()}, nil
}
