// Package ingestion loads the processed knowledge base (JSONL) into the
// vector store: records are converted to documents, long contents are
// chunked with overlap, and chunks are embedded and upserted in batches.
// It backs the `orangebot ingest` command.
package ingestion

import (
	"context"
	"fmt"

	"github.com/54b3r/orangebot-go/internal/rag"
)

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// ChunkSize is the maximum number of characters per chunk.
	// Defaults to 1000 if zero.
	ChunkSize int

	// ChunkOverlap is the number of characters shared by consecutive chunks.
	// Defaults to 100 if zero.
	ChunkOverlap int

	// BatchSize is the number of chunks embedded per request. Defaults to 32.
	BatchSize int
}

// Progress is called after each batch with the chunks stored so far.
type Progress func(done, total int)

// Pipeline orchestrates the chunk → embed → upsert flow.
type Pipeline struct {
	embedder rag.Embedder
	store    rag.VectorStore
	cfg      Config
}

// NewPipeline constructs a Pipeline from the provided dependencies and config.
func NewPipeline(embedder rag.Embedder, store rag.VectorStore, cfg Config) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("ingestion: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("ingestion: store must not be nil")
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1000
	}
	if cfg.ChunkOverlap == 0 {
		cfg.ChunkOverlap = 100
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = 0
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = cfg.ChunkSize / 10
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	return &Pipeline{embedder: embedder, store: store, cfg: cfg}, nil
}

// Rebuild empties the collection before a fresh ingest.
func (p *Pipeline) Rebuild(ctx context.Context) error {
	if err := p.store.Reset(ctx); err != nil {
		return fmt.Errorf("ingestion: reset store: %w", err)
	}
	return nil
}

// Chunks splits each document into overlapping chunks. A document that fits
// in one chunk keeps its ID; otherwise chunk n gets ID "{id}#{n}".
func (p *Pipeline) Chunks(docs []rag.Document) []rag.Document {
	var out []rag.Document
	for _, d := range docs {
		parts := p.chunk(d.Content)
		if len(parts) <= 1 {
			out = append(out, d)
			continue
		}
		for i, part := range parts {
			c := d
			c.ID = fmt.Sprintf("%s#%d", d.ID, i)
			c.Content = part
			c.Metadata = make(map[string]string, len(d.Metadata)+2)
			for k, v := range d.Metadata {
				c.Metadata[k] = v
			}
			c.Metadata["id"] = c.ID
			c.Metadata["chunk_index"] = fmt.Sprintf("%d", i)
			out = append(out, c)
		}
	}
	return out
}

// Ingest chunks, embeds and stores docs. It returns the number of chunks
// stored and stops at the first error.
func (p *Pipeline) Ingest(ctx context.Context, docs []rag.Document, progress Progress) (int, error) {
	if progress == nil {
		progress = func(int, int) {}
	}
	chunks := p.Chunks(docs)
	total := len(chunks)

	for start := 0; start < total; start += p.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return start, err
		}
		batch := chunks[start:min(start+p.cfg.BatchSize, total)]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}
		embeddings, err := p.embedder.Embed(ctx, texts)
		if err != nil {
			return start, fmt.Errorf("ingestion: embedding failed for batch at %d: %w", start, err)
		}
		if len(embeddings) != len(batch) {
			return start, fmt.Errorf("ingestion: embedder returned %d vectors for %d chunks", len(embeddings), len(batch))
		}
		if err := p.store.Upsert(ctx, batch, embeddings); err != nil {
			return start, fmt.Errorf("ingestion: upsert failed for batch at %d: %w", start, err)
		}
		progress(start+len(batch), total)
	}
	return total, nil
}

// chunk splits text into overlapping rune windows of cfg.ChunkSize.
func (p *Pipeline) chunk(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	var chunks []string
	size := p.cfg.ChunkSize
	step := size - p.cfg.ChunkOverlap

	for start := 0; start < len(runes); start += step {
		end := min(start+size, len(runes))
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
