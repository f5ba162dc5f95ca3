package weather

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gazette/internal/fetch"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testService(handler http.Handler) (*Service, func()) {
	server := httptest.NewServer(handler)
	svc := NewService(fetch.NewClient(5*time.Second), testLogger())
	svc.Sleep = func(time.Duration) {}
	svc.BaseURL = server.URL
	return svc, server.Close
}

const forecastBody = `{
	"properties": {
		"periods": [
			{"name": "Tonight", "shortForecast": "Clear", "detailedForecast": "Clear all night.", "icon": "https://img/night"},
			{"name": "This Evening", "shortForecast": "Cool", "detailedForecast": "Cool evening.", "icon": "https://img/evening"},
			{"name": "Friday", "shortForecast": "Partly Sunny", "detailedForecast": "Partly sunny, high near 70.", "icon": "https://img/day"}
		]
	}
}`

func TestForecastSkipsNightPeriods(t *testing.T) {
	svc, done := testService(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/gridpoints/BOX/71,90/forecast" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(forecastBody))
	}))
	defer done()

	cfg := Config{Office: "BOX", GridX: 71, GridY: 90, LocationName: "Boston"}
	forecast := svc.Forecast(context.Background(), cfg)
	if forecast == nil {
		t.Fatal("expected a forecast")
	}
	if forecast.Short != "Partly sunny in Boston" {
		t.Errorf("Short = %q", forecast.Short)
	}
	if forecast.Detailed != "Partly sunny, high near 70." {
		t.Errorf("Detailed = %q", forecast.Detailed)
	}
	if forecast.IconURL != "https://img/day" {
		t.Errorf("IconURL = %q", forecast.IconURL)
	}
}

func TestForecastRetriesUntil200(t *testing.T) {
	hits := 0
	svc, done := testService(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(forecastBody))
	}))
	defer done()

	forecast := svc.Forecast(context.Background(), Config{Office: "BOX", SnoozeSecs: 1})
	if forecast == nil {
		t.Fatal("expected a forecast after retries")
	}
	if hits != 3 {
		t.Errorf("expected 3 attempts, got %d", hits)
	}
	// No location configured, so no suffix.
	if forecast.Short != "Partly sunny" {
		t.Errorf("Short = %q", forecast.Short)
	}
}

func TestForecastGivesUpAfterMaxAttempts(t *testing.T) {
	hits := 0
	svc, done := testService(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer done()

	if forecast := svc.Forecast(context.Background(), Config{Office: "BOX"}); forecast != nil {
		t.Errorf("expected nil forecast, got %+v", forecast)
	}
	if hits != maxAttempts {
		t.Errorf("expected %d attempts, got %d", maxAttempts, hits)
	}
}

func TestForecastNilWhenOnlyNightPeriods(t *testing.T) {
	svc, done := testService(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"properties": {"periods": [{"name": "Tonight", "shortForecast": "Clear"}]}}`))
	}))
	defer done()

	if forecast := svc.Forecast(context.Background(), Config{Office: "BOX"}); forecast != nil {
		t.Errorf("expected nil forecast, got %+v", forecast)
	}
}

func TestSentenceCase(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"Partly Sunny", "Partly sunny"},
		{"rain", "Rain"},
		{"", ""},
		{"Chance Rain Showers", "Chance rain showers"},
	}
	for _, tt := range tests {
		if got := sentenceCase(tt.in); got != tt.expected {
			t.Errorf("sentenceCase(%q) = %q, want %q", tt.in, got, tt.expected)
		}
	}
}
