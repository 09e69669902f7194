package rag

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/philippgille/chromem-go"
)

// sourceKey is the chromem metadata key that carries Document.Source.
const sourceKey = "source"

// ChromemConfig holds the location of an embedded chromem-go database.
type ChromemConfig struct {
	// Dir is the directory the database is persisted to (default: chroma_db).
	Dir string

	// Collection is the collection name (default: documents).
	Collection string

	// Compress gzips the persisted files.
	Compress bool

	// Concurrency bounds parallel document inserts (default: 4).
	Concurrency int
}

// ChromemStore implements VectorStore on top of an embedded, persistent
// chromem-go database. Embeddings are always supplied by the caller.
type ChromemStore struct {
	// db is the chromem database handle.
	db *chromem.DB

	// cfg holds the resolved configuration for this store.
	cfg ChromemConfig

	// mu guards col, which Reset swaps.
	mu  sync.RWMutex
	col *chromem.Collection
}

// errNoEmbedding is returned by the collection's embedding func. Documents
// and queries always arrive pre-embedded, so reaching it is a caller bug.
var errNoEmbedding = errors.New("rag: chromem: embeddings must be precomputed")

func refuseEmbedding(context.Context, string) ([]float32, error) {
	return nil, errNoEmbedding
}

// NewChromemStore opens (or creates) the persistent database at cfg.Dir and
// the named collection inside it.
func NewChromemStore(cfg ChromemConfig) (*ChromemStore, error) {
	if cfg.Dir == "" {
		cfg.Dir = "chroma_db"
	}
	if cfg.Collection == "" {
		cfg.Collection = "documents"
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}

	db, err := chromem.NewPersistentDB(cfg.Dir, cfg.Compress)
	if err != nil {
		return nil, fmt.Errorf("rag: chromem: open %s: %w", cfg.Dir, err)
	}
	col, err := db.GetOrCreateCollection(cfg.Collection, nil, refuseEmbedding)
	if err != nil {
		return nil, fmt.Errorf("rag: chromem: collection %q: %w", cfg.Collection, err)
	}
	return &ChromemStore{db: db, cfg: cfg, col: col}, nil
}

// collection returns the current collection handle.
func (s *ChromemStore) collection() *chromem.Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.col
}

// Upsert stores a batch of documents with their embeddings. Documents with
// an existing ID are overwritten.
func (s *ChromemStore) Upsert(ctx context.Context, docs []Document, embeddings [][]float32) error {
	if len(docs) != len(embeddings) {
		return fmt.Errorf("rag: chromem: %d documents but %d embeddings", len(docs), len(embeddings))
	}
	if len(docs) == 0 {
		return nil
	}

	batch := make([]chromem.Document, 0, len(docs))
	for i, d := range docs {
		meta := make(map[string]string, len(d.Metadata)+1)
		for k, v := range d.Metadata {
			meta[k] = v
		}
		if d.Source != "" {
			meta[sourceKey] = d.Source
		}
		batch = append(batch, chromem.Document{
			ID:        d.ID,
			Metadata:  meta,
			Embedding: embeddings[i],
			Content:   d.Content,
		})
	}

	if err := s.collection().AddDocuments(ctx, batch, s.cfg.Concurrency); err != nil {
		return fmt.Errorf("rag: chromem: upsert: %w", err)
	}
	return nil
}

// Search returns up to k documents by cosine similarity. Score is the cosine
// distance (1 - similarity).
func (s *ChromemStore) Search(ctx context.Context, queryEmbedding []float32, k int, filter Filter) ([]Document, error) {
	results, err := s.query(ctx, queryEmbedding, k, filter)
	if err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(results))
	for _, r := range results {
		docs = append(docs, chromemDocument(r))
	}
	return docs, nil
}

// Candidates returns up to n documents along with their stored vectors.
func (s *ChromemStore) Candidates(ctx context.Context, queryEmbedding []float32, n int, filter Filter) ([]Candidate, error) {
	results, err := s.query(ctx, queryEmbedding, n, filter)
	if err != nil {
		return nil, err
	}
	out := make([]Candidate, 0, len(results))
	for _, r := range results {
		out = append(out, Candidate{Document: chromemDocument(r), Vector: r.Embedding})
	}
	return out, nil
}

// query clamps n to the collection size, which chromem requires.
func (s *ChromemStore) query(ctx context.Context, vec []float32, n int, filter Filter) ([]chromem.Result, error) {
	col := s.collection()
	if count := col.Count(); n > count {
		n = count
	}
	if n <= 0 {
		return nil, nil
	}

	var where map[string]string
	if len(filter) > 0 {
		where = map[string]string(filter)
	}
	results, err := col.QueryEmbedding(ctx, vec, n, where, nil)
	if err != nil {
		return nil, fmt.Errorf("rag: chromem: query: %w", err)
	}
	return results, nil
}

// Count returns the number of documents in the collection.
func (s *ChromemStore) Count(context.Context) (int, error) {
	return s.collection().Count(), nil
}

// Reset deletes and recreates the collection.
func (s *ChromemStore) Reset(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.DeleteCollection(s.cfg.Collection); err != nil {
		return fmt.Errorf("rag: chromem: delete collection %q: %w", s.cfg.Collection, err)
	}
	col, err := s.db.GetOrCreateCollection(s.cfg.Collection, nil, refuseEmbedding)
	if err != nil {
		return fmt.Errorf("rag: chromem: recreate collection %q: %w", s.cfg.Collection, err)
	}
	s.col = col
	return nil
}

// Close is a no-op; chromem persists on every write.
func (s *ChromemStore) Close() error {
	return nil
}

func chromemDocument(r chromem.Result) Document {
	meta := make(map[string]string, len(r.Metadata))
	var source string
	for k, v := range r.Metadata {
		if k == sourceKey {
			source = v
			continue
		}
		meta[k] = v
	}
	return Document{
		ID:       r.ID,
		Content:  r.Content,
		Source:   source,
		Metadata: meta,
		Score:    1 - r.Similarity,
	}
}
