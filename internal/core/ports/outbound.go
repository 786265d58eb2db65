package ports

import (
	"context"

	"github.com/northbridge-ai/diligence/internal/core/domain"
)

// Embedder produces fixed-length vectors for texts. Implemented by the
// Ollama client; ingestion-time embedding happens inside the vector store,
// so the retriever only embeds queries through the collection itself.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorCollection is one persisted per-category chunk index.
type VectorCollection interface {
	// Add embeds and stores chunks. Callers batch; implementations may not.
	Add(ctx context.Context, chunks []domain.DocumentChunk) error
	// SimilaritySearch returns up to k nearest chunks with raw distances,
	// optionally restricted by an equality metadata filter.
	SimilaritySearch(ctx context.Context, query string, k int, filter domain.MetadataFilter) ([]domain.ScoredChunk, error)
	// Documents returns up to limit stored chunks matching the filter,
	// without scores. Used to build lexical indexes.
	Documents(ctx context.Context, filter domain.MetadataFilter, limit int) ([]domain.StoredChunk, error)
	// Count reports the total number of stored chunks.
	Count(ctx context.Context) (int, error)
}

// CollectionProvider resolves the collection for a category. Unknown or
// empty categories resolve to the union "all" collection.
type CollectionProvider interface {
	Collection(ctx context.Context, category domain.DocumentCategory) (VectorCollection, error)
}

// DocumentLoader extracts raw (content, metadata) blocks from one file
// format. Loaders infer company and document type; the pipeline owns
// chunking, dedup and storage.
type DocumentLoader interface {
	Supports(path string) bool
	Load(ctx context.Context, path string) ([]domain.DocumentChunk, error)
}

// Chunker splits one content block into bounded overlapping segments.
type Chunker interface {
	Chunk(text string, metadata map[string]any) []string
}

// Deduplicator rejects exact and near-duplicate segments during ingestion.
// Not safe for concurrent use; ingestion runs are serialized per instance.
type Deduplicator interface {
	IsDuplicate(text string) bool
	Add(text string) string
	Clear()
}

// Generator produces prose from a fully assembled prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// IngestQueue carries ingestion requests from the API to the worker.
type IngestQueue interface {
	PublishIngestRequest(ctx context.Context, req domain.IngestRequest) error
	SubscribeIngestRequests(ctx context.Context, handler func(context.Context, domain.IngestRequest) error) error
}

// RunRepository persists the registry of ingestion runs.
type RunRepository interface {
	CreateRun(ctx context.Context, run domain.IngestionRun) error
	FinishRun(ctx context.Context, id, status string, stats *domain.IngestionStats) error
	GetRun(ctx context.Context, id string) (domain.IngestionRun, error)
	ListRuns(ctx context.Context, limit int) ([]domain.IngestionRun, error)
}
