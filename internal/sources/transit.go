package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gazette/internal/fetch"
)

// defaultAlertsURL is the MBTA v3 alerts endpoint.
const defaultAlertsURL = "https://api-v3.mbta.com/alerts"

// defaultTransitPreface marks a transit alert line in the issue.
const defaultTransitPreface = "🚂 Service alert: "

// retrieveTransitAlerts queries the transit alerts API filtered down to the
// stops a reader actually rides through. Route, stops, and direction are all
// required; Validate enforces that at config load.
func (e *Engine) retrieveTransitAlerts(ctx context.Context, src Descriptor) ([]string, error) {
	base := src.AlertsURL
	if base == "" {
		base = defaultAlertsURL
	}
	url := fmt.Sprintf("%s?filter[route]=%s&filter[stop]=%s&filter[direction_id]=%d",
		base, src.Route, strings.Join(src.Stops, ","), *src.DirectionID)

	status, body, err := e.Client.Get(ctx, url, fetch.Options{})
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("alerts api returned status %d", status)
	}

	var payload struct {
		Data []struct {
			Attributes struct {
				Header string `json:"header"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode alerts response: %w", err)
	}

	items := make([]string, 0, len(payload.Data))
	for _, alert := range payload.Data {
		items = append(items, strings.TrimSpace(alert.Attributes.Header))
	}
	return items, nil
}
