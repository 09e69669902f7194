package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/54b3r/orangebot-go/internal/config"
	"github.com/54b3r/orangebot-go/internal/embedder"
	"github.com/54b3r/orangebot-go/internal/ingestion"
	"github.com/54b3r/orangebot-go/internal/logging"
	"github.com/54b3r/orangebot-go/internal/rag"
)

// NewIngestCmd constructs the `orangebot ingest` command, which loads the
// processed knowledge base into the vector store.
func NewIngestCmd() *cobra.Command {
	var rebuild bool
	var chunkSize int
	var chunkOverlap int
	var batchSize int
	var quiet bool

	cmd := &cobra.Command{
		Use:   "ingest [jsonl-file]",
		Short: "Load the knowledge base into the vector store",
		Long: `Embed the processed knowledge base (one JSON record per line) and store it in
the vector store selected by VECTOR_STORE (chromem or qdrant).

Each record has the shape {"id", "section", "title", "content", "metadata"}.
Blank or malformed lines and records without content are skipped. Nested
metadata values are stored as JSON strings.

Relevant environment variables:
  VECTOR_STORE         chromem (default) or qdrant
  CHROMA_DIR           chromem database directory (default: chroma_db)
  VECTOR_COLLECTION    Collection name (default: documents)
  QDRANT_HOST/PORT     Qdrant gRPC endpoint (default: localhost:6334)
  EMBEDDING_PROVIDER   ollama (default), openai, azure, gemini
  EMBEDDING_MODEL      Embedding model (default: nomic-embed-text)

Examples:
  orangebot ingest
  orangebot ingest --rebuild data/processed/documents_for_rag_final.jsonl
  VECTOR_STORE=qdrant orangebot ingest --batch-size 64`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			path := config.DefaultKnowledge
			if len(args) == 1 {
				path = args[0]
			}

			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			records, stats, err := ingestion.ReadJSONL(f)
			_ = f.Close()
			if err != nil {
				return fmt.Errorf("ingest: read %s: %w", path, err)
			}
			log.Info("knowledge base loaded",
				slog.String("path", path),
				slog.Int("lines", stats.Lines),
				slog.Int("records", stats.Records),
				slog.Int("invalid", stats.Invalid),
				slog.Int("empty", stats.Empty),
			)
			if len(records) == 0 {
				return fmt.Errorf("ingest: no documents to index in %s", path)
			}

			if err := embedder.Validate(log); err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			emb, err := embedder.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("ingest: failed to initialise embedder: %w", err)
			}
			log.Info("embedder initialised", slog.String("provider", embedder.Backend()))

			store, err := openVectorStore(ctx, log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer store.Close()

			pipeline, err := ingestion.NewPipeline(emb, store, ingestion.Config{
				ChunkSize:    chunkSize,
				ChunkOverlap: chunkOverlap,
				BatchSize:    batchSize,
			})
			if err != nil {
				return fmt.Errorf("ingest: failed to create pipeline: %w", err)
			}

			if rebuild {
				log.Info("clearing collection before rebuild")
				if err := pipeline.Rebuild(ctx); err != nil {
					return fmt.Errorf("ingest: %w", err)
				}
			}

			docs := make([]rag.Document, len(records))
			for i, r := range records {
				docs[i] = r.Document(path)
			}

			var progress ingestion.Progress
			if !quiet {
				bar := newProgressBar(len(pipeline.Chunks(docs)))
				defer func() { _ = bar.Finish() }()
				progress = func(done, _ int) { _ = bar.Set(done) }
			}

			n, err := pipeline.Ingest(ctx, docs, progress)
			if err != nil {
				return fmt.Errorf("ingest: pipeline failed after %d chunks: %w", n, err)
			}

			count, err := store.Count(ctx)
			if err != nil {
				log.Warn("ingest: could not count documents", slog.Any("error", err))
			}
			log.Info("ingestion complete",
				slog.Int("documents", len(docs)),
				slog.Int("chunks", n),
				slog.Int("collection_total", count),
			)
			return nil
		},
	}

	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "Drop every stored document before ingesting")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 1000, "Maximum characters per chunk")
	cmd.Flags().IntVar(&chunkOverlap, "chunk-overlap", 100, "Characters shared by consecutive chunks")
	cmd.Flags().IntVar(&batchSize, "batch-size", 32, "Chunks embedded per request")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not draw a progress bar")

	return cmd
}

// newProgressBar draws chunk progress on stderr.
func newProgressBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("embedding"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("chunks"),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
	)
}
