package curate

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"gazette/internal/core"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float64
		expected float64
	}{
		{"identical", []float64{1, 0}, []float64{1, 0}, 1},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, -1},
		{"length mismatch", []float64{1, 0}, []float64{1}, 0},
		{"zero vector", []float64{0, 0}, []float64{1, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("CosineSimilarity() = %v, want %v", got, tt.expected)
			}
		})
	}
}

// fakeEncoder returns a fixed vector per known text, so pairwise similarity
// is fully controlled by the test.
type fakeEncoder struct {
	vectors map[string][]float64
	err     error
}

func (f fakeEncoder) Encode(_ context.Context, texts []string) ([][]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float64, len(texts))
	for i, text := range texts {
		v, ok := f.vectors[text]
		if !ok {
			v = []float64{0, 0, 1}
		}
		out[i] = v
	}
	return out, nil
}

// Near-duplicate pairs (A,B), (B,C), (D,E) resolve to keepers {A, D}: B and
// C join A's group transitively, E joins D's.
func TestClusterDedupTransitive(t *testing.T) {
	// A, B, C share a direction pairwise above threshold via A~B and B~C;
	// D and E share another.
	vectors := map[string][]float64{
		"A": {1, 0, 0},
		"B": {0.9, 0.1, 0},
		"C": {0.78, 0.22, 0},
		"D": {0, 1, 0},
		"E": {0, 0.95, 0.05},
	}
	items := headlines("A", "B", "C", "D", "E")
	enc := fakeEncoder{vectors: vectors}
	cfg := ClusterConfig{Threshold: 0.97}

	got := clusterDedup(context.Background(), items, enc, cfg, nil, testLogger())
	want := []string{"A", "D"}
	if !reflect.DeepEqual(core.Texts(got), want) {
		t.Errorf("clusterDedup() = %v, want %v", core.Texts(got), want)
	}

	// Same input, same outcome: resolution is deterministic for a fixed
	// input order.
	itemsAgain := headlines("A", "B", "C", "D", "E")
	gotAgain := clusterDedup(context.Background(), itemsAgain, enc, cfg, nil, testLogger())
	if !reflect.DeepEqual(core.Texts(got), core.Texts(gotAgain)) {
		t.Errorf("clusterDedup() not deterministic: %v then %v", core.Texts(got), core.Texts(gotAgain))
	}
}

func TestClusterDedupNoPairs(t *testing.T) {
	vectors := map[string][]float64{
		"A": {1, 0, 0},
		"B": {0, 1, 0},
	}
	items := headlines("A", "B")
	got := clusterDedup(context.Background(), items, fakeEncoder{vectors: vectors}, ClusterConfig{Threshold: 0.9}, nil, testLogger())
	if len(got) != 2 {
		t.Errorf("expected both items kept, got %v", core.Texts(got))
	}
}

// Shared source prefaces are ignored during similarity, but survive on the
// returned items.
func TestClusterDedupIgnoresPrefaces(t *testing.T) {
	vectors := map[string][]float64{
		"Storm inbound": {1, 0, 0},
		"Storm coming":  {0.99, 0.01, 0},
	}
	items := headlines("📰 Storm inbound", "📰 Storm coming")
	got := clusterDedup(context.Background(), items, fakeEncoder{vectors: vectors}, ClusterConfig{Threshold: 0.9}, []string{"📰 "}, testLogger())
	want := []string{"📰 Storm inbound"}
	if !reflect.DeepEqual(core.Texts(got), want) {
		t.Errorf("clusterDedup() = %v, want %v", core.Texts(got), want)
	}
}

// Encoding failure keeps everything: clustering is best-effort.
func TestClusterDedupEncoderFailure(t *testing.T) {
	items := headlines("A", "B")
	got := clusterDedup(context.Background(), items, fakeEncoder{err: errors.New("no model")}, ClusterConfig{Threshold: 0.9}, nil, testLogger())
	if len(got) != 2 {
		t.Errorf("expected all items kept on encoder failure, got %v", core.Texts(got))
	}
}
