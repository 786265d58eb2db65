package ports

import (
	"context"

	"github.com/northbridge-ai/diligence/internal/core/domain"
)

// Searcher is the retrieval surface exposed to adapters (HTTP, MCP, CLI).
type Searcher interface {
	Search(ctx context.Context, req domain.SearchRequest) ([]domain.RetrievalResult, error)
}

// Answerer retrieves context and generates a prose answer.
type Answerer interface {
	Answer(ctx context.Context, req domain.SearchRequest) (string, []domain.RetrievalResult, error)
}

// Ingestor runs a batch ingestion pass over a directory tree.
type Ingestor interface {
	IngestDirectory(ctx context.Context, root string, recursive bool) (*domain.IngestionStats, error)
}
