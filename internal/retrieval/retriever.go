// Package retrieval runs the multi-query document search for a chat turn and
// renders the hits into the context block handed to the chat model.
package retrieval

import (
	"context"
	"log/slog"
	"sort"

	"github.com/54b3r/orangebot-go/internal/rag"
)

const (
	// DefaultK is the number of documents a chat turn asks for.
	DefaultK = 10

	// mmrMaxK caps the diversity search result count.
	mmrMaxK = 6
	// mmrMaxFetch caps the candidate pool handed to MMR re-ranking.
	mmrMaxFetch = 24
	// mmrMinFetch is the smallest candidate pool.
	mmrMinFetch = 12
	// mmrLambda favours diversity over raw relevance.
	mmrLambda = 0.3
	// mmrScore is the fixed score assigned to diversity hits when merging.
	mmrScore = 0.5
)

// Retriever merges similarity and diversity searches over several query
// strings into one ranked, de-duplicated document list.
type Retriever struct {
	searcher rag.Searcher
	log      *slog.Logger
}

// New returns a Retriever backed by searcher.
func New(searcher rag.Searcher, log *slog.Logger) *Retriever {
	return &Retriever{searcher: searcher, log: log}
}

// Retrieve returns at most k documents relevant to query and the extra
// searches, unique by ID and sorted by ascending score. Search failures are
// logged and skipped; an empty result is not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, searches []string, k int, filter rag.Filter) []rag.Document {
	if k <= 0 {
		return nil
	}

	var (
		merged []rag.Document
		seen   = make(map[string]struct{})
	)
	add := func(docs []rag.Document, fixedScore *float32) {
		for _, d := range docs {
			if d.ID == "" {
				continue
			}
			if _, dup := seen[d.ID]; dup {
				continue
			}
			seen[d.ID] = struct{}{}
			if fixedScore != nil {
				d.Score = *fixedScore
			}
			merged = append(merged, d)
		}
	}

	score := float32(mmrScore)
	for _, q := range queryList(query, searches) {
		add(r.similarity(ctx, q, k, filter), nil)
		add(r.diversity(ctx, q, k, filter), &score)
	}

	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Score < merged[j].Score })
	if len(merged) > k {
		merged = merged[:k]
	}
	return merged
}

func (r *Retriever) similarity(ctx context.Context, q string, k int, filter rag.Filter) []rag.Document {
	if len(filter) == 0 {
		docs, err := r.searcher.SimilaritySearch(ctx, q, k, nil)
		if err != nil {
			r.log.Warn("retrieval: similarity search failed", slog.String("query", q), slog.String("error", err.Error()))
			return nil
		}
		return docs
	}

	docs, err := r.searcher.SimilaritySearch(ctx, q, k*2, filter)
	if err == nil {
		return docs
	}
	r.log.Warn("retrieval: filtered search failed, retrying without filter",
		slog.String("query", q),
		slog.String("error", err.Error()),
	)
	docs, err = r.searcher.SimilaritySearch(ctx, q, k, nil)
	if err != nil {
		r.log.Warn("retrieval: similarity search failed", slog.String("query", q), slog.String("error", err.Error()))
		return nil
	}
	return docs
}

func (r *Retriever) diversity(ctx context.Context, q string, k int, filter rag.Filter) []rag.Document {
	docs, err := r.searcher.MMRSearch(ctx, q, min(k, mmrMaxK), fetchK(k), mmrLambda, filter)
	if err != nil {
		r.log.Warn("retrieval: diversity search failed", slog.String("query", q), slog.String("error", err.Error()))
		return nil
	}
	return docs
}

func fetchK(k int) int {
	return min(mmrMaxFetch, max(3*k, mmrMinFetch))
}

// queryList puts the original query first, followed by each distinct search
// string that differs from it.
func queryList(query string, searches []string) []string {
	out := []string{query}
	seen := map[string]struct{}{query: {}}
	for _, s := range searches {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
