package curate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"

	"gazette/internal/core"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func headlines(texts ...string) []core.Item {
	return core.FromTexts(texts, core.KindHeadline, "test")
}

func TestStripEmoji(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"🌩️ Storm warning.", "Storm warning."},
		{"Storm warning.", "Storm warning."},
		{"🚂 Service alert: delays", "Service alert: delays"},
		{"👨‍👩‍👧 family", "family"},
		{"1️⃣ first", "1 first"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := StripEmoji(tt.in); got != tt.expected {
			t.Errorf("StripEmoji(%q) = %q, want %q", tt.in, got, tt.expected)
		}
	}
}

// An item shown yesterday is suppressed even when its decorative emoji
// preface changed.
func TestCacheSuppressionIsEmojiInsensitive(t *testing.T) {
	items := headlines("🌩️ Storm warning.", "Mayor resigns.")
	opts := Options{CacheLines: []string{"⚡ Storm warning."}}

	got := Curate(context.Background(), items, opts, testLogger())
	want := []string{"Mayor resigns."}
	if !reflect.DeepEqual(core.Texts(got), want) {
		t.Errorf("Curate() = %v, want %v", core.Texts(got), want)
	}
}

func TestCleanItem(t *testing.T) {
	tests := []struct {
		name           string
		in             string
		trailingPeriod bool
		expected       string
	}{
		{"curly apostrophes straighten", "It’s ‘done’", false, "It's 'done'"},
		{"non-breaking space becomes plain", "Storm warning", false, "Storm warning"},
		{"period appended", "Mayor resigns", true, "Mayor resigns."},
		{"existing period kept", "Mayor resigns.", true, "Mayor resigns."},
		{"question mark ends a sentence", "Mayor resigns?", true, "Mayor resigns?"},
		{"exclamation ends a sentence", "Mayor resigns!", true, "Mayor resigns!"},
		{"no period without the option", "Mayor resigns", false, "Mayor resigns"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanItem(tt.in, tt.trailingPeriod); got != tt.expected {
				t.Errorf("cleanItem(%q) = %q, want %q", tt.in, got, tt.expected)
			}
		})
	}
}

func TestKeywordCapKeepsFirstMention(t *testing.T) {
	items := headlines(
		"Patriots win again.",
		"Mayor resigns.",
		"PATRIOTS trade rumors swirl.",
		"Patriots fan built a shrine.",
	)
	opts := Options{OneItemKeywords: []string{"patriots"}}

	got := Curate(context.Background(), items, opts, testLogger())
	want := []string{"Patriots win again.", "Mayor resigns."}
	if !reflect.DeepEqual(core.Texts(got), want) {
		t.Errorf("Curate() = %v, want %v", core.Texts(got), want)
	}
}

func TestSubstanceRules(t *testing.T) {
	rules := &SubstanceRules{
		CantBeginWith: []string{"watch:"},
		CantContain:   []string{"sponsored"},
		CantEndWith:   []string{"slideshow."},
	}
	items := headlines(
		"Watch: cat does a thing.",
		"Sponsored content you'll love.",
		"Top homes in a slideshow.",
		"🎥 Watch: another clip.",
		"Mayor resigns.",
	)
	opts := Options{FilterSubstance: true, Substance: rules}

	got := Curate(context.Background(), items, opts, testLogger())
	want := []string{"Mayor resigns."}
	if !reflect.DeepEqual(core.Texts(got), want) {
		t.Errorf("Curate() = %v, want %v", core.Texts(got), want)
	}
}

type fakeJudge struct {
	response string
	err      error
}

func (j fakeJudge) Complete(_ context.Context, _, _ string) (string, error) {
	return j.response, j.err
}

func TestJudgeRemovesOnlyNamedItems(t *testing.T) {
	items := headlines("Celebrity spotted at cafe.", "Mayor resigns.")
	opts := Options{
		FilterSubstance: true,
		Substance:       &SubstanceRules{},
		Judge:           fakeJudge{response: "* Celebrity spotted at cafe."},
		JudgeCfg:        &JudgeConfig{SystemRole: "editor", Instruction: "remove fluff"},
	}

	got := Curate(context.Background(), items, opts, testLogger())
	want := []string{"Mayor resigns."}
	if !reflect.DeepEqual(core.Texts(got), want) {
		t.Errorf("Curate() = %v, want %v", core.Texts(got), want)
	}
}

// A judge answer naming something that was never sent removes nothing.
func TestJudgeCannotHallucinateRemovals(t *testing.T) {
	items := headlines("Mayor resigns.")
	opts := Options{
		FilterSubstance: true,
		Substance:       &SubstanceRules{},
		Judge:           fakeJudge{response: "* Something invented entirely."},
		JudgeCfg:        &JudgeConfig{},
	}

	got := Curate(context.Background(), items, opts, testLogger())
	if len(got) != 1 {
		t.Fatalf("expected the item to survive, got %v", core.Texts(got))
	}
}

// A failing judge degrades to a no-op: everything survives.
func TestJudgeFailureRemovesNothing(t *testing.T) {
	items := headlines("Celebrity spotted at cafe.", "Mayor resigns.")
	opts := Options{
		FilterSubstance: true,
		Substance:       &SubstanceRules{},
		Judge:           fakeJudge{err: errors.New("model unavailable")},
		JudgeCfg:        &JudgeConfig{},
	}

	got := Curate(context.Background(), items, opts, testLogger())
	if len(got) != 2 {
		t.Errorf("expected both items to survive a judge failure, got %v", core.Texts(got))
	}
}

func TestCurateEmptyInput(t *testing.T) {
	got := Curate(context.Background(), nil, Options{}, testLogger())
	if len(got) != 0 {
		t.Errorf("expected no items, got %v", got)
	}
}
