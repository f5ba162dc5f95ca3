// Package normalize post-processes raw retrieved items: substitution,
// substring gates, text healing, length and count limits, and allow-list
// validation. It is a pure sequence-to-sequence transform with a fixed stage
// order; later stages assume earlier cleanup has happened.
package normalize

import (
	"log/slog"
	"strings"
	"time"
)

// DateToken is replaced in item text with today's date. Sources whose markup
// is identical every day use it to stay distinct from the previous issue in
// the cache's exact-match comparison.
const DateToken = "{{DATE}}"

// Options carry a source's text-shaping configuration.
type Options struct {
	SourceName           string
	Today                time.Time
	MustContain          []string // Keep items containing at least one (OR), case-insensitive
	CantContain          []string // Drop items containing any, case-insensitive
	RemoveText           string   // Literal substring stripped from each item
	HealInnerNewline     bool     // Join interior newline segments with ": "
	HealRestWithEllipses bool     // With >1 interior newline, join the tail with "..." instead of dropping it
	MinWords             int      // Drop items shorter than this many words
	MaxItems             int      // Truncate the list; 0 means no limit
	AllowedValues        []string // When set, drop anything not in the list
}

// SubstituteDate fills the date token into a single string.
func SubstituteDate(s string, today time.Time) string {
	return strings.ReplaceAll(s, DateToken, today.Format("01/02/2006"))
}

// healInnerNewlines joins interior newline segments. One newline becomes
// "first: last". More than one keeps the first two segments, or joins the
// whole tail with "..." when requested, never ending on an ellipsis.
func healInnerNewlines(s string, restWithEllipses bool) string {
	parts := strings.Split(s, "\n")
	switch {
	case len(parts) == 2:
		return parts[0] + ": " + parts[1]
	case len(parts) > 2:
		if restWithEllipses {
			healed := parts[0] + ": " + strings.Join(parts[1:], "...")
			healed = strings.TrimSpace(healed)
			healed = strings.Trim(healed, ".")
			return strings.TrimSpace(healed)
		}
		return parts[0] + ": " + parts[1]
	default:
		return s
	}
}

// Dedup removes exact duplicates while preserving first-seen order.
func Dedup(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

func containsAnyFold(s string, needles []string) bool {
	lower := strings.ToLower(s)
	for _, n := range needles {
		if strings.Contains(lower, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

// Apply runs the full normalization chain over items. A panic while
// normalizing one source's items is converted to an empty result with a
// warning naming the source, so a malformed source cannot abort the run.
func Apply(items []string, opts Options, log *slog.Logger) (out []string) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn("normalization failed, source yields no items", "source", opts.SourceName, "panic", r)
			out = nil
		}
	}()

	if len(items) == 0 {
		return items
	}

	// 1. Dynamic token substitution.
	work := make([]string, len(items))
	for i, item := range items {
		work[i] = SubstituteDate(item, opts.Today)
	}

	// 2. Required and forbidden substrings.
	if len(opts.MustContain) > 0 {
		kept := work[:0]
		for _, item := range work {
			if containsAnyFold(item, opts.MustContain) {
				kept = append(kept, item)
			}
		}
		work = kept
	}
	if len(opts.CantContain) > 0 {
		kept := work[:0]
		for _, item := range work {
			if !containsAnyFold(item, opts.CantContain) {
				kept = append(kept, item)
			}
		}
		work = kept
	}

	// 3. Literal removal.
	if opts.RemoveText != "" {
		for i, item := range work {
			work[i] = strings.ReplaceAll(item, opts.RemoveText, "")
		}
	}

	// 4. Strip wrapping control characters until a fixed point. Items can
	// arrive multiply wrapped, e.g. "\n\t\nheadline\n".
	for {
		before := 0
		for _, item := range work {
			before += len(item)
		}
		for i, item := range work {
			item = strings.Trim(item, "\r")
			item = strings.Trim(item, "\n")
			item = strings.Trim(item, "\t")
			work[i] = item
		}
		after := 0
		for _, item := range work {
			after += len(item)
		}
		if before == after {
			break
		}
	}

	// 5. Interior newline healing.
	if opts.HealInnerNewline {
		for i, item := range work {
			work[i] = healInnerNewlines(item, opts.HealRestWithEllipses)
		}
	}

	// 6. Minimum word count.
	if opts.MinWords > 0 {
		kept := work[:0]
		for _, item := range work {
			if len(strings.Fields(item)) >= opts.MinWords {
				kept = append(kept, item)
			}
		}
		work = kept
	}

	// 7. Exact dedup, first occurrence wins.
	work = Dedup(work)

	// 8. Final cleanup: no remaining newlines, no surrounding space, no
	// empties.
	kept := work[:0]
	for _, item := range work {
		item = strings.TrimSpace(strings.ReplaceAll(item, "\n", ""))
		if item != "" {
			kept = append(kept, item)
		}
	}
	work = kept

	// 9. Item cap.
	if opts.MaxItems > 0 && len(work) > opts.MaxItems {
		work = work[:opts.MaxItems]
	}

	// 10. Allow-list validation.
	if len(opts.AllowedValues) > 0 {
		allowed := make(map[string]struct{}, len(opts.AllowedValues))
		for _, v := range opts.AllowedValues {
			allowed[v] = struct{}{}
		}
		var removed []string
		kept := work[:0]
		for _, item := range work {
			if _, ok := allowed[item]; ok {
				kept = append(kept, item)
			} else {
				removed = append(removed, item)
			}
		}
		if len(removed) > 0 {
			log.Warn("removed values outside the allow-list",
				"source", opts.SourceName, "removed", removed, "allowed", opts.AllowedValues)
		}
		work = kept
	}

	return work
}
