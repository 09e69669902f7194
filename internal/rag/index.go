package rag

import (
	"context"
	"fmt"
)

// Index implements Searcher by combining an Embedder and a VectorStore. It
// embeds query text at search time and delegates to the store.
type Index struct {
	// embedder converts text to dense vectors.
	embedder Embedder

	// store persists and searches the vectors.
	store VectorStore
}

// NewIndex constructs an Index from the given Embedder and VectorStore.
func NewIndex(embedder Embedder, store VectorStore) (*Index, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("rag: store must not be nil")
	}
	return &Index{embedder: embedder, store: store}, nil
}

// Store returns the underlying vector store.
func (x *Index) Store() VectorStore {
	return x.store
}

// SimilaritySearch embeds query and returns the k closest documents.
func (x *Index) SimilaritySearch(ctx context.Context, query string, k int, filter Filter) ([]Document, error) {
	vec, err := x.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	docs, err := x.store.Search(ctx, vec, k, filter)
	if err != nil {
		return nil, fmt.Errorf("rag: vector search failed: %w", err)
	}
	return docs, nil
}

// MMRSearch embeds query, fetches fetchK candidates and re-ranks them with
// MaxMarginalRelevance, returning at most k documents.
func (x *Index) MMRSearch(ctx context.Context, query string, k, fetchK int, lambda float64, filter Filter) ([]Document, error) {
	if fetchK < k {
		fetchK = k
	}
	vec, err := x.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	cands, err := x.store.Candidates(ctx, vec, fetchK, filter)
	if err != nil {
		return nil, fmt.Errorf("rag: candidate search failed: %w", err)
	}

	picked := MaxMarginalRelevance(vec, cands, k, lambda)
	docs := make([]Document, len(picked))
	for i, c := range picked {
		docs[i] = c.Document
	}
	return docs, nil
}

// Add embeds docs' contents and upserts them into the store.
func (x *Index) Add(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	vecs, err := x.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("rag: embedding documents failed: %w", err)
	}
	if len(vecs) != len(docs) {
		return fmt.Errorf("rag: embedder returned %d vectors for %d documents", len(vecs), len(docs))
	}
	if err := x.store.Upsert(ctx, docs, vecs); err != nil {
		return fmt.Errorf("rag: upsert failed: %w", err)
	}
	return nil
}

func (x *Index) embedQuery(ctx context.Context, query string) ([]float32, error) {
	embeddings, err := x.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("rag: embedding query failed: %w", err)
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, fmt.Errorf("rag: embedder returned empty result for query")
	}
	return embeddings[0], nil
}
