package curate

import (
	"context"
	"log/slog"
	"strings"

	"gazette/internal/core"
)

// judgeLeadIn opens the prompt sent to the language-model judge.
const judgeLeadIn = "Here are today's news headlines:"

// applyJudge sends the surviving items to the language-model judge as one
// bulleted prompt and removes the items the judge names. The judge's answer
// is advisory: only items that are an exact substring of a returned line are
// removed, so a hallucinated deletion of something never sent is impossible.
// Any judge failure removes nothing.
func applyJudge(ctx context.Context, items []core.Item, judge Judge, cfg JudgeConfig, log *slog.Logger) []core.Item {
	var b strings.Builder
	b.WriteString(judgeLeadIn)
	b.WriteString("\n")
	for _, item := range items {
		b.WriteString("* ")
		b.WriteString(item.Text)
		b.WriteString("\n")
	}
	b.WriteString(cfg.Instruction)

	response, err := judge.Complete(ctx, cfg.SystemRole, b.String())
	if err != nil {
		log.Warn("substance judge unavailable, removing nothing", "error", err)
		return items
	}

	lines := strings.Split(response, "\n")
	kept := make([]core.Item, 0, len(items))
	var removed []string
	for _, item := range items {
		hit := false
		for _, line := range lines {
			if line != "" && strings.Contains(line, item.Text) {
				hit = true
				break
			}
		}
		if hit {
			removed = append(removed, item.Text)
			continue
		}
		kept = append(kept, item)
	}
	if len(removed) > 0 {
		log.Warn("judge removed items", "removed", removed)
	}
	return kept
}
