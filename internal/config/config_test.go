package config

import (
	"io"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"gazette/internal/blob"
	"gazette/internal/sources"
	"gazette/internal/sports"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// A Friday.
var testDay = time.Date(2024, time.June, 14, 7, 0, 0, 0, time.UTC)

const publicationYAML = `
editorial:
  one_item_keywords: [patriots]
  enable_extras: true
news_sources:
  - name: Local Paper
    category: local
    method: scrape
    type: headline
    url: https://local.test
    tag: h2
  - name: Sports Desk
    category: sports
    method: scrape
    type: headline
    url: https://sports.test
    tag: h2
  - name: Broken Source
    category: local
    method: scrape
    type: headline
alerts_sources:
  - name: Surf Report
    method: scrape
    type: alert
    url: https://surf.test
    tag: h2
events_sources:
  - name: Town Calendar
    method: events_calendar
    type: html
    events:
      url_base: https://events.test?page={PAGE}
      event_item_tag: li
      event_list_class: events
`

func seedStore(t *testing.T, docs map[string]string) blob.Store {
	t.Helper()
	store := blob.NewMemStore()
	for name, body := range docs {
		if err := store.Write(name, []byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	return store
}

func TestLoadPublicationDropsInvalidSources(t *testing.T) {
	store := seedStore(t, map[string]string{
		"publication_config.yml": publicationYAML,
		"substance_rules.yml":    "cant_begin_with: [\"watch:\"]\n",
		"extras.yml":             "quotes: [\"Stay curious.\"]\n",
	})

	pub, err := LoadPublication(store, testLogger())
	if err != nil {
		t.Fatalf("LoadPublication() error = %v", err)
	}
	if len(pub.NewsSources) != 2 {
		t.Errorf("expected the invalid source dropped, got %d news sources", len(pub.NewsSources))
	}
	if pub.SubstanceRules == nil || len(pub.SubstanceRules.CantBeginWith) != 1 {
		t.Errorf("substance rules not loaded: %+v", pub.SubstanceRules)
	}
	if len(pub.Extras) != 1 || pub.Extras[0] != "Stay curious." {
		t.Errorf("extras not loaded: %v", pub.Extras)
	}
	if len(pub.Editorial.OneItemKeywords) != 1 {
		t.Errorf("editorial settings not parsed: %+v", pub.Editorial)
	}
}

func TestLoadPublicationMissingSubstanceRulesIsTolerated(t *testing.T) {
	store := seedStore(t, map[string]string{"publication_config.yml": publicationYAML})

	pub, err := LoadPublication(store, testLogger())
	if err != nil {
		t.Fatalf("LoadPublication() error = %v", err)
	}
	if pub.SubstanceRules != nil {
		t.Errorf("expected nil substance rules, got %+v", pub.SubstanceRules)
	}
}

func TestFilterSourcesFollowsSelectionOrder(t *testing.T) {
	catalog := []sources.Descriptor{
		{Name: "A", Category: "sports"},
		{Name: "B", Category: "local"},
		{Name: "C", Category: "sports"},
	}
	got := filterSources(catalog, []string{"local", "sports"}, byCategory)
	if len(got) != 3 || got[0].Name != "B" || got[1].Name != "A" || got[2].Name != "C" {
		t.Errorf("filterSources() order = %v", names(got))
	}
	if filterSources(catalog, nil, byCategory) != nil {
		t.Error("expected nil for empty selections")
	}
}

func names(descs []sources.Descriptor) []string {
	out := make([]string, len(descs))
	for i, d := range descs {
		out[i] = d.Name
	}
	return out
}

func TestLoadDestinationsAdminsSortLast(t *testing.T) {
	store := seedStore(t, map[string]string{
		"publication_config.yml": publicationYAML,
		"config_admin.yml":       "name: Admin\nadmin: true\neditorial:\n  cache_path: cache_admin.txt\n",
		"config_reader.yml":      "name: Reader\neditorial:\n  cache_path: cache_reader.txt\n",
	})
	pub, err := LoadPublication(store, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	dests, err := LoadDestinations(store, pub, testDay, testLogger())
	if err != nil {
		t.Fatalf("LoadDestinations() error = %v", err)
	}
	if len(dests) != 2 {
		t.Fatalf("expected 2 destinations, got %d", len(dests))
	}
	if dests[0].Name != "Reader" || dests[1].Name != "Admin" {
		t.Errorf("expected admin last, got %s then %s", dests[0].Name, dests[1].Name)
	}
}

func TestLoadDestinationsOnlyDestinationFilter(t *testing.T) {
	store := seedStore(t, map[string]string{
		"publication_config.yml": publicationYAML,
		"config_a.yml":           "name: Alpha\neditorial:\n  cache_path: a.txt\n",
		"config_b.yml":           "name: Beta\neditorial:\n  cache_path: b.txt\n",
	})
	pub, err := LoadPublication(store, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	t.Setenv("ONLY_DESTINATION", "Beta")
	dests, err := LoadDestinations(store, pub, testDay, testLogger())
	if err != nil {
		t.Fatalf("LoadDestinations() error = %v", err)
	}
	if len(dests) != 1 || dests[0].Name != "Beta" {
		t.Errorf("expected only Beta, got %v", destNames(dests))
	}
}

func destNames(dests []*Destination) []string {
	out := make([]string, len(dests))
	for i, d := range dests {
		out[i] = d.Name
	}
	return out
}

func TestLoadDestinationsSkipsOutOfSchedule(t *testing.T) {
	// testDay is a Friday; this destination publishes Mondays.
	store := seedStore(t, map[string]string{
		"publication_config.yml": publicationYAML,
		"config_monday.yml": `name: Mondays Only
issue_frequency:
  frequency: weekly
  day_of_week: Monday
editorial:
  cache_path: m.txt
`,
	})
	pub, err := LoadPublication(store, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	dests, err := LoadDestinations(store, pub, testDay, testLogger())
	if err != nil {
		t.Fatalf("LoadDestinations() error = %v", err)
	}
	if len(dests) != 0 {
		t.Errorf("expected no destinations, got %v", destNames(dests))
	}
}

func TestResolveDestinationSelections(t *testing.T) {
	store := seedStore(t, map[string]string{
		"publication_config.yml": publicationYAML,
		"config_reader.yml": `name: Reader
editorial:
  subject: "Morning brief"
  cache_path: cache_reader.txt
  requests_timeout: 10
sources:
  news_categories: [local]
  alerts_sources: [Surf Report]
  events:
    sources: [Town Calendar]
  transit:
    - route: Red
      stops: [place-a]
      direction_id: 0
sports:
  nba_teams: [Celtics]
  nhl_teams: [Boston]
  hide_nhl_scoreboard: true
`,
	})
	pub, err := LoadPublication(store, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	dests, err := LoadDestinations(store, pub, testDay, testLogger())
	if err != nil {
		t.Fatalf("LoadDestinations() error = %v", err)
	}
	if len(dests) != 1 {
		t.Fatalf("expected 1 destination, got %d", len(dests))
	}
	dest := dests[0]

	if dest.Subject != "Morning brief" {
		t.Errorf("Subject = %q", dest.Subject)
	}
	if dest.RequestTimeout != 10*time.Second {
		t.Errorf("RequestTimeout = %v", dest.RequestTimeout)
	}
	if len(dest.NewsSources) != 1 || dest.NewsSources[0].Name != "Local Paper" {
		t.Errorf("NewsSources = %v", names(dest.NewsSources))
	}
	if len(dest.EventsSources) != 1 || dest.EventsSources[0].Name != "Town Calendar" {
		t.Errorf("EventsSources = %v", names(dest.EventsSources))
	}
	// The named alert source plus the transit subscription.
	if len(dest.AlertsSources) != 2 {
		t.Fatalf("AlertsSources = %v", names(dest.AlertsSources))
	}
	transit := dest.AlertsSources[1]
	if transit.Name != "Transit alerts: Red" || transit.Kind != sources.KindTransitAlert {
		t.Errorf("transit subscription not resolved: %+v", transit)
	}
	wantSports := sports.Config{
		NBATeams:          []string{"Celtics"},
		NHLTeams:          []string{"Boston"},
		HideNHLScoreboard: true,
	}
	if !reflect.DeepEqual(dest.Sports, wantSports) {
		t.Errorf("Sports = %+v, want %+v", dest.Sports, wantSports)
	}
}

func TestResolveDestinationDefaultTimeout(t *testing.T) {
	store := seedStore(t, map[string]string{
		"publication_config.yml": publicationYAML,
		"config_reader.yml":      "name: Reader\neditorial:\n  cache_path: c.txt\n",
	})
	pub, err := LoadPublication(store, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	dests, err := LoadDestinations(store, pub, testDay, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if len(dests) != 1 || dests[0].RequestTimeout != defaultRequestTimeout {
		t.Errorf("expected default timeout, got %+v", dests)
	}
}
