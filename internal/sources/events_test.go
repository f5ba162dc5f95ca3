package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const eventsPage1 = `<html><body>
<li class="events">
	<span class="title">Farmers market</span>
	<span class="venue">Town common</span>
	<span class="dates">Saturday</span>
	<span class="blurb">Local produce</span>
	<a class="more" href="https://events.test/market">details</a>
</li>
<li class="events">
	<span class="title">X</span>
	<span class="venue">Nowhere</span>
</li>
</body></html>`

const eventsPage2 = `<html><body>
<li class="events">
	<span class="title">Road race</span>
	<span class="venue">Main street</span>
	<span class="dates">Sunday</span>
	<span class="blurb">5k fun run</span>
</li>
</body></html>`

func TestRetrieveEventsPaginates(t *testing.T) {
	var sawStart, sawEnd string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		sawStart, sawEnd = q.Get("start"), q.Get("end")
		switch q.Get("page") {
		case "1":
			_, _ = w.Write([]byte(eventsPage1))
		case "2":
			_, _ = w.Write([]byte(eventsPage2))
		default:
			_, _ = w.Write([]byte(`<html><body></body></html>`))
		}
	}))
	defer server.Close()

	src := Descriptor{
		Name:    "Town Calendar",
		Kind:    KindEvents,
		Renders: "html",
		Events: &EventsConfig{
			URLBase:          server.URL + "/?page={PAGE}&start={START_DATE}&end={END_DATE}",
			WindowDays:       7,
			EventItemTag:     "li",
			EventListClass:   "events",
			TitleClass:       "title",
			VenueClass:       "venue",
			DatesClass:       "dates",
			DescriptionClass: "blurb",
			LinkURLClass:     "more",
			LinkURLAttr:      "href",
		},
	}
	items, err := testEngine().retrieveEvents(context.Background(), src)
	if err != nil {
		t.Fatalf("retrieveEvents() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected one table block, got %v", items)
	}
	table := items[0]

	if sawStart != "06-14-2024" || sawEnd != "06-21-2024" {
		t.Errorf("date window = %s to %s", sawStart, sawEnd)
	}
	if !strings.HasPrefix(table, "<table>") || !strings.HasSuffix(table, "</table>") {
		t.Errorf("not a table block: %q", table)
	}
	if !strings.Contains(table, ">Farmers market</a>") || !strings.Contains(table, ">Road race</a>") {
		t.Errorf("missing events from both pages: %q", table)
	}
	if !strings.Contains(table, `href="https://events.test/market"`) {
		t.Errorf("missing event link: %q", table)
	}
	// Single-character titles are parse noise.
	if strings.Contains(table, ">X</a>") {
		t.Errorf("noise row survived: %q", table)
	}
}

func TestRetrieveEventsMaxEventsCap(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "1" {
			_, _ = w.Write([]byte(eventsPage1))
			return
		}
		_, _ = w.Write([]byte(`<html><body></body></html>`))
	}))
	defer server.Close()

	src := Descriptor{
		Name: "Town Calendar",
		Kind: KindEvents,
		Events: &EventsConfig{
			URLBase:        server.URL + "/?page={PAGE}",
			EventItemTag:   "li",
			EventListClass: "events",
			TitleClass:     "title",
			MaxEvents:      1,
		},
	}
	items, err := testEngine().retrieveEvents(context.Background(), src)
	if err != nil {
		t.Fatalf("retrieveEvents() error = %v", err)
	}
	if got := strings.Count(items[0], "<tr>"); got != 1 {
		t.Errorf("expected 1 row, got %d: %q", got, items[0])
	}
}
