// Package rag defines the document-store side of retrieval: the stored and
// retrieved document shape, vector store backends (chromem-go, Qdrant), the
// embedder contract, and an Index that turns query text into similarity or
// diversity (MMR) searches.
package rag

import (
	"context"
)

// Document represents a unit of retrieved or stored knowledge.
type Document struct {
	// ID is the unique identifier for this document chunk.
	ID string

	// Content is the raw text content of the chunk.
	Content string

	// Source is the origin of the document (file name, web page).
	Source string

	// Metadata holds flat key-value tags (section, title, bundle_type, ...).
	Metadata map[string]string

	// Score is the retrieval distance; lower is better.
	Score float32
}

// Section returns the "section" metadata tag, or "" when absent.
func (d Document) Section() string {
	return d.Metadata["section"]
}

// Filter is a metadata equality filter. A nil or empty filter matches every
// document.
type Filter map[string]string

// Candidate is a search hit together with its stored embedding, the input to
// MMR re-ranking.
type Candidate struct {
	Document
	// Vector is the stored embedding of the document.
	Vector []float32
}

// VectorStore is the interface for persisting and searching document embeddings.
// Implementations must be safe to call from multiple goroutines.
type VectorStore interface {
	// Upsert stores or updates a batch of documents with their pre-computed embeddings.
	// The embeddings slice must be parallel to docs: embeddings[i] is the vector for docs[i].
	Upsert(ctx context.Context, docs []Document, embeddings [][]float32) error

	// Search returns up to k documents closest to the query embedding,
	// restricted by filter, ordered by ascending Score.
	Search(ctx context.Context, queryEmbedding []float32, k int, filter Filter) ([]Document, error)

	// Candidates is like Search but also returns each document's stored vector.
	Candidates(ctx context.Context, queryEmbedding []float32, n int, filter Filter) ([]Candidate, error)

	// Count returns the number of stored documents.
	Count(ctx context.Context) (int, error)

	// Reset drops every document by recreating the collection.
	Reset(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}

// Embedder is the interface for converting text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Searcher is the text-level search contract used by the retriever.
type Searcher interface {
	// SimilaritySearch returns the k documents most similar to query.
	SimilaritySearch(ctx context.Context, query string, k int, filter Filter) ([]Document, error)

	// MMRSearch fetches fetchK similar documents and re-ranks them for
	// diversity, returning k. lambda weighs relevance against novelty.
	MMRSearch(ctx context.Context, query string, k, fetchK int, lambda float64, filter Filter) ([]Document, error)
}
