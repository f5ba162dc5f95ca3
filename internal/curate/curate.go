// Package curate applies the editorial chain to a pool of candidate items:
// cross-run repeat suppression, per-item cleanup, keyword caps, substance
// rules, an optional language-model judge, and optional semantic clustering.
// Every optional stage degrades to a no-op on failure; curation never fails a
// whole run.
package curate

import (
	"context"
	"log/slog"
	"strings"

	"gazette/internal/core"
)

// SubstanceRules are the deterministic phrase lists that reject low-value
// items. All comparisons are against emoji-stripped, lower-cased text.
type SubstanceRules struct {
	CantBeginWith []string `yaml:"cant_begin_with"`
	CantContain   []string `yaml:"cant_contain"`
	CantEndWith   []string `yaml:"cant_end_with"`
}

// JudgeConfig parameterizes the language-model substance filter.
type JudgeConfig struct {
	SystemRole  string `yaml:"system_role"`
	Instruction string `yaml:"instruction"`
}

// ClusterConfig parameterizes semantic near-duplicate clustering.
type ClusterConfig struct {
	Threshold float64 `yaml:"threshold"`
}

// Judge is the language-model collaborator: one synchronous completion per
// curation run.
type Judge interface {
	Complete(ctx context.Context, systemRole, userMessage string) (string, error)
}

// Encoder is the similarity-model collaborator. Cosine similarity over the
// returned vectors is computed here, not by the model.
type Encoder interface {
	Encode(ctx context.Context, texts []string) ([][]float64, error)
}

// Options carry one destination's editorial settings for a single pool.
type Options struct {
	CacheLines            []string // Raw item texts from the previous run
	EnforceTrailingPeriod bool     // Append "." unless the item already ends a sentence
	OneItemKeywords       []string // Keep at most one mention of each
	FilterSubstance       bool     // Run substance rules (and the judge, if configured)
	Substance             *SubstanceRules
	Judge                 Judge
	JudgeCfg              *JudgeConfig
	Encoder               Encoder
	Cluster               *ClusterConfig
	PrefacesToIgnore      []string // Repeated source prefaces, ignored during clustering
}

// Curate runs the editorial chain in its fixed order and returns the
// surviving items. The input slice is never mutated.
func Curate(ctx context.Context, items []core.Item, opts Options, log *slog.Logger) []core.Item {
	if len(items) == 0 {
		return items
	}

	edited := suppressCached(items, opts.CacheLines, log)
	edited = cleanItems(edited, opts.EnforceTrailingPeriod)
	for _, keyword := range opts.OneItemKeywords {
		// Each keyword pass sees the previous pass's output.
		edited = capKeyword(edited, keyword)
	}
	if len(edited) > 0 && opts.FilterSubstance && opts.Substance != nil {
		edited = applySubstanceRules(edited, *opts.Substance, log)
		if opts.Judge != nil && opts.JudgeCfg != nil {
			edited = applyJudge(ctx, edited, opts.Judge, *opts.JudgeCfg, log)
		} else {
			log.Info("substance judge not configured, skipping")
		}
	}
	if len(edited) > 0 && opts.Encoder != nil && opts.Cluster != nil {
		edited = clusterDedup(ctx, edited, opts.Encoder, *opts.Cluster, opts.PrefacesToIgnore, log)
	}
	log.Info("curation finished", "in", len(items), "out", len(edited))
	return edited
}

// suppressCached drops items shown in the previous run. The comparison is
// emoji-insensitive on both sides so a decorative preface change alone never
// resurrects an old item.
func suppressCached(items []core.Item, cacheLines []string, log *slog.Logger) []core.Item {
	if len(cacheLines) == 0 {
		return items
	}
	previous := make(map[string]struct{}, len(cacheLines))
	for _, line := range cacheLines {
		previous[StripEmoji(line)] = struct{}{}
	}
	fresh := make([]core.Item, 0, len(items))
	var dropped []string
	for _, item := range items {
		if _, ok := previous[StripEmoji(item.Text)]; ok {
			dropped = append(dropped, item.Text)
			continue
		}
		fresh = append(fresh, item)
	}
	if len(dropped) > 0 {
		log.Info("removed items shown in the last issue", "removed", dropped)
	}
	return fresh
}

// cleanItem standardizes punctuation so later exact comparisons behave:
// curly apostrophes become straight, non-breaking spaces become plain.
func cleanItem(text string, enforceTrailingPeriod bool) string {
	text = strings.ReplaceAll(text, "’", "'")
	text = strings.ReplaceAll(text, "‘", "'")
	text = strings.ReplaceAll(text, " ", " ")
	if enforceTrailingPeriod &&
		!strings.HasSuffix(text, ".") &&
		!strings.HasSuffix(text, "?") &&
		!strings.HasSuffix(text, "!") {
		text += "."
	}
	return text
}

func cleanItems(items []core.Item, enforceTrailingPeriod bool) []core.Item {
	out := make([]core.Item, len(items))
	for i, item := range items {
		item.Text = cleanItem(item.Text, enforceTrailingPeriod)
		out[i] = item
	}
	return out
}

// capKeyword keeps only the first item mentioning the keyword,
// case-insensitively; items without the keyword pass through untouched.
func capKeyword(items []core.Item, keyword string) []core.Item {
	keyword = strings.ToLower(keyword)
	kept := make([]core.Item, 0, len(items))
	mentions := 0
	for _, item := range items {
		has := strings.Contains(strings.ToLower(item.Text), keyword)
		if has {
			mentions++
		}
		if !has || mentions <= 1 {
			kept = append(kept, item)
		}
	}
	return kept
}

func breaksRule(lowered string, rules SubstanceRules) bool {
	clean := StripEmoji(lowered)
	for _, phrase := range rules.CantBeginWith {
		if strings.HasPrefix(clean, strings.ToLower(phrase)) {
			return true
		}
	}
	for _, phrase := range rules.CantContain {
		if strings.Contains(clean, strings.ToLower(phrase)) {
			return true
		}
	}
	for _, phrase := range rules.CantEndWith {
		if strings.HasSuffix(clean, strings.ToLower(phrase)) {
			return true
		}
	}
	return false
}

// applySubstanceRules drops items violating any of the phrase lists.
func applySubstanceRules(items []core.Item, rules SubstanceRules, log *slog.Logger) []core.Item {
	kept := make([]core.Item, 0, len(items))
	var removed []string
	for _, item := range items {
		if breaksRule(strings.ToLower(item.Text), rules) {
			removed = append(removed, item.Text)
			continue
		}
		kept = append(kept, item)
	}
	if len(removed) > 0 {
		log.Info("substance rules removed items", "removed", removed)
	}
	return kept
}
