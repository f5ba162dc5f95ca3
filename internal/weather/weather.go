// Package weather pulls a local forecast from the National Weather Service
// gridpoint API.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"gazette/internal/core"
	"gazette/internal/fetch"
)

// maxAttempts bounds the NWS polling loop. The gridpoint endpoint routinely
// needs several attempts before it answers 200.
const maxAttempts = 10

// Config selects the forecast gridpoint. Office plus grid coordinates come
// from api.weather.gov/points lookup for the reader's location.
type Config struct {
	Office       string `yaml:"office"`
	GridX        int    `yaml:"grid_x"`
	GridY        int    `yaml:"grid_y"`
	LocationName string `yaml:"location_name"`
	SnoozeSecs   int    `yaml:"api_snooze_bar"` // Wait between retries of a non-200 answer
}

// Service fetches forecasts. Sleep is swappable for tests.
type Service struct {
	Client *fetch.Client
	Log    *slog.Logger
	Sleep  func(time.Duration)

	// BaseURL overrides the NWS endpoint, for tests.
	BaseURL string
}

func NewService(client *fetch.Client, log *slog.Logger) *Service {
	return &Service{Client: client, Log: log, Sleep: time.Sleep}
}

type nwsResponse struct {
	Properties struct {
		Periods []struct {
			Name             string `json:"name"`
			ShortForecast    string `json:"shortForecast"`
			DetailedForecast string `json:"detailedForecast"`
			Icon             string `json:"icon"`
		} `json:"periods"`
	} `json:"properties"`
}

// sentenceCase lowers everything after the first rune, turning the API's
// Title Case summaries into sentence case.
func sentenceCase(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	head := unicode.ToUpper(runes[0])
	return string(head) + strings.ToLower(string(runes[1:]))
}

// Forecast returns the next daytime forecast period, or nil with a warning
// when the API can't be reached or only night periods are available. A
// missing forecast never fails the issue.
func (s *Service) Forecast(ctx context.Context, cfg Config) *core.Forecast {
	base := s.BaseURL
	if base == "" {
		base = "https://api.weather.gov"
	}
	url := fmt.Sprintf("%s/gridpoints/%s/%d,%d/forecast", base, cfg.Office, cfg.GridX, cfg.GridY)

	var body []byte
	ok := false
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		status, b, err := s.Client.Get(ctx, url, fetch.Options{})
		if err == nil && status == 200 {
			body = b
			ok = true
			break
		}
		s.Log.Info("weather request failed, snoozing before retry",
			"status", status, "error", err, "attempt", attempt)
		s.Sleep(time.Duration(cfg.SnoozeSecs) * time.Second)
	}
	if !ok {
		s.Log.Warn("forecast unavailable", "attempts", maxAttempts)
		return nil
	}

	var resp nwsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		s.Log.Warn("forecast response did not decode", "error", err)
		return nil
	}

	// The first period can be Tonight, Overnight, or This Evening; the issue
	// header wants the coming daytime outlook.
	for _, period := range resp.Properties.Periods {
		name := strings.ToLower(period.Name)
		if strings.Contains(name, "night") || strings.Contains(name, "evening") {
			continue
		}
		short := sentenceCase(period.ShortForecast)
		if cfg.LocationName != "" {
			short += " in " + cfg.LocationName
		}
		return &core.Forecast{
			Short:    short,
			Detailed: period.DetailedForecast,
			IconURL:  period.Icon,
		}
	}
	s.Log.Warn("no daytime forecast period available")
	return nil
}
