package rag

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// MaxMarginalRelevance greedily selects k candidates that are relevant to
// query while being dissimilar to the candidates already selected. lambda = 1
// is pure relevance, lambda = 0 pure diversity. Candidates without a vector
// of the query's dimension are ignored. The selection order is returned.
func MaxMarginalRelevance(query []float32, cands []Candidate, k int, lambda float64) []Candidate {
	if k <= 0 || len(query) == 0 {
		return nil
	}

	q := toFloat64(query)
	pool := make([]Candidate, 0, len(cands))
	vecs := make([][]float64, 0, len(cands))
	for _, c := range cands {
		if len(c.Vector) != len(query) {
			continue
		}
		pool = append(pool, c)
		vecs = append(vecs, toFloat64(c.Vector))
	}
	if len(pool) == 0 {
		return nil
	}
	if k > len(pool) {
		k = len(pool)
	}

	relevance := make([]float64, len(pool))
	for i, v := range vecs {
		relevance[i] = cosine(q, v)
	}

	selected := make([]int, 0, k)
	used := make([]bool, len(pool))
	for len(selected) < k {
		best, bestScore := -1, math.Inf(-1)
		for i := range pool {
			if used[i] {
				continue
			}
			redundancy := 0.0
			if len(selected) > 0 {
				redundancy = math.Inf(-1)
				for _, j := range selected {
					redundancy = math.Max(redundancy, cosine(vecs[i], vecs[j]))
				}
			}
			score := lambda*relevance[i] - (1-lambda)*redundancy
			if score > bestScore {
				best, bestScore = i, score
			}
		}
		used[best] = true
		selected = append(selected, best)
	}

	out := make([]Candidate, len(selected))
	for i, idx := range selected {
		out[i] = pool[idx]
		out[i].Score = float32(1 - relevance[idx])
	}
	return out
}

// cosine returns the cosine similarity of a and b, 0 when either is zero.
func cosine(a, b []float64) float64 {
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
