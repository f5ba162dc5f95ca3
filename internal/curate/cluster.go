package curate

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"gazette/internal/core"
)

// CosineSimilarity computes the cosine of the angle between two embedding
// vectors, 0 when either is empty or the lengths differ.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// clusterDedup removes near-duplicate items by embedding similarity, keeping
// one representative per group of transitively similar items. Shared source
// prefaces are stripped from the working copies first so two items don't
// score as similar merely because both start with the same label.
//
// Pairs are resolved by an online transitive rule rather than full connected
// components: the first pair seeds one keeper (its first element) and one
// dropper; each later pair that touches an already-resolved item turns its
// unresolved members into droppers; a pair touching nothing resolved seeds a
// new keeper/dropper split. Which member of a pair survives therefore
// depends on pair discovery order, which is the (i, j) index order over the
// input slice and deterministic for identical input ordering.
func clusterDedup(ctx context.Context, items []core.Item, encoder Encoder, cfg ClusterConfig, prefacesToIgnore []string, log *slog.Logger) []core.Item {
	if len(items) < 2 {
		return items
	}

	stripped := make([]string, len(items))
	for i, item := range items {
		text := item.Text
		for _, preface := range prefacesToIgnore {
			if preface != "" {
				text = strings.TrimSpace(strings.ReplaceAll(text, preface, ""))
			}
		}
		stripped[i] = text
	}

	embeddings, err := encoder.Encode(ctx, stripped)
	if err != nil || len(embeddings) != len(items) {
		log.Warn("semantic dedup failed, keeping all items", "error", err)
		return items
	}

	type pair struct{ a, b string }
	var pairs []pair
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			if CosineSimilarity(embeddings[i], embeddings[j]) >= cfg.Threshold {
				pairs = append(pairs, pair{stripped[i], stripped[j]})
			}
		}
	}
	if len(pairs) == 0 {
		log.Info("semantic dedup found no near-duplicates")
		return items
	}

	keepers := map[string]struct{}{pairs[0].a: {}}
	droppers := map[string]struct{}{pairs[0].b: {}}
	resolved := func(s string) bool {
		if _, ok := keepers[s]; ok {
			return true
		}
		_, ok := droppers[s]
		return ok
	}
	for _, p := range pairs[1:] {
		if resolved(p.a) || resolved(p.b) {
			// A transitively similar neighbor of something already
			// resolved never becomes a keeper.
			if !resolved(p.a) {
				droppers[p.a] = struct{}{}
			}
			if !resolved(p.b) {
				droppers[p.b] = struct{}{}
			}
		} else {
			keepers[p.a] = struct{}{}
			droppers[p.b] = struct{}{}
		}
	}

	// Map dropper texts back to the original preface-intact items.
	kept := make([]core.Item, 0, len(items))
	var removed []string
	for _, item := range items {
		drop := false
		for d := range droppers {
			if strings.Contains(item.Text, d) {
				drop = true
				break
			}
		}
		if drop {
			removed = append(removed, item.Text)
			continue
		}
		kept = append(kept, item)
	}
	log.Info("semantic dedup removed near-duplicates", "removed", removed)
	return kept
}
