// Package core defines the shared value types that flow through retrieval,
// normalization, and curation.
package core

// ItemKind distinguishes how an Item is rendered and which editorial
// treatment it receives downstream.
type ItemKind string

const (
	KindHeadline ItemKind = "headline"  // Plain text headline
	KindAlert    ItemKind = "alert"     // Link-wrapped alert line
	KindImageURL ItemKind = "image_url" // <img> fragment referenced by URL
	KindHTML     ItemKind = "html"      // Pre-rendered HTML block, bypasses text normalization
)

// Item is a single unit of curated content. Items are value types: two items
// are the same item when their Text is equal, regardless of where they were
// retrieved. Pipeline stages never mutate an Item in place; each stage
// returns a fresh slice.
type Item struct {
	Text   string   `json:"text"`   // The content, preface included
	Kind   ItemKind `json:"kind"`   // How the item renders
	Source string   `json:"source"` // Name of the originating source, for logs
}

// NewItem builds an Item of the given kind.
func NewItem(text string, kind ItemKind, source string) Item {
	return Item{Text: text, Kind: kind, Source: source}
}

// Texts extracts the text of each item, preserving order.
func Texts(items []Item) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Text
	}
	return out
}

// FromTexts wraps a list of strings as Items sharing one kind and source.
func FromTexts(texts []string, kind ItemKind, source string) []Item {
	items := make([]Item, len(texts))
	for i, t := range texts {
		items[i] = Item{Text: t, Kind: kind, Source: source}
	}
	return items
}

// Screenshot is an image captured by the browser collaborator, carried as
// base64 PNG alongside an optional heading shown above it.
type Screenshot struct {
	ImageB64 string `json:"image_b64"`
	Heading  string `json:"heading"`
}

// Forecast holds a weather forecast destined for the issue header.
type Forecast struct {
	Short    string `json:"short"`    // One-line summary, sentence case
	Detailed string `json:"detailed"` // Full forecast text
	IconURL  string `json:"icon_url"` // Optional condition icon
}

// IssueContent is the curated output for one destination, ordered per
// category, handed to an external renderer. The core emits no wire format.
type IssueContent struct {
	Headlines    []Item       `json:"headlines"`
	Alerts       []Item       `json:"alerts"`
	Scoreboard   []string     `json:"scoreboard,omitempty"` // Final scores for tracked teams

	ImageURLs    []Item       `json:"image_urls"`
	EventsHTML   string       `json:"events_html"`
	Forecast     *Forecast    `json:"forecast,omitempty"`
	Screenshots  []Screenshot `json:"screenshots,omitempty"`
	Attributions []string     `json:"attributions"`
	RunLog       string       `json:"run_log,omitempty"` // Captured warnings, admin destinations only
}
