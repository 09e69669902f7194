//go:build integration

package embedder

import (
	"context"
	"math"
	"testing"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/54b3r/orangebot-go/internal/config"
)

// Needs a running Ollama with the embedding model pulled:
//
//	ollama pull nomic-embed-text
//	go test -tags=integration -run Integration ./internal/embedder/
func TestOllamaEmbedder_Integration(t *testing.T) {
	model := config.String("EMBEDDING_MODEL", defaultOllamaModel)
	emb := NewOllamaEmbedder(&OllamaConfig{
		Host:     config.String("OLLAMA_HOST", "http://localhost:11434"),
		Model:    model,
		MaxBatch: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	passages := []string{
		"Dial *100# to check your remaining mobile internet quota.",
		"Home internet routers can be reset from the admin page at 192.168.1.1.",
		"Your monthly bill can be paid through the My Orange app or at any Orange store.",
	}
	questions := []struct {
		text string
		want int
	}{
		{"how much data do I have left on my phone?", 0},
		{"my wifi router is not working", 1},
		{"where can I pay my bill?", 2},
	}

	texts := append([]string{}, passages...)
	for _, q := range questions {
		texts = append(texts, q.text)
	}
	vecs, err := emb.Embed(ctx, texts)
	if err != nil {
		t.Fatalf("Embed: %v (is %q pulled?)", err, model)
	}
	if len(vecs) != len(texts) {
		t.Fatalf("expected %d vectors, got %d", len(texts), len(vecs))
	}
	if got, want := len(vecs[0]), DefaultDimensions("ollama"); model == defaultOllamaModel && got != want {
		t.Errorf("dimension %d, want %d", got, want)
	}

	for i, q := range questions {
		qv := vecs[len(passages)+i]
		best, bestSim := -1, math.Inf(-1)
		for j := range passages {
			if sim := cosine(qv, vecs[j]); sim > bestSim {
				best, bestSim = j, sim
			}
		}
		if best != q.want {
			t.Errorf("%q: nearest passage %d, want %d", q.text, best, q.want)
		}
	}
}

func cosine(a, b []float32) float64 {
	x, y := make([]float64, len(a)), make([]float64, len(b))
	for i := range a {
		x[i] = float64(a[i])
	}
	for i := range b {
		y[i] = float64(b[i])
	}
	return floats.Dot(x, y) / (floats.Norm(x, 2) * floats.Norm(y, 2))
}
