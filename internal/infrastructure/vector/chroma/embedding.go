package chroma

import (
	"context"

	"github.com/amikos-tech/chroma-go/pkg/embeddings"

	"github.com/northbridge-ai/diligence/internal/core/ports"
)

// EmbeddingFunc bridges the Ollama embedder into chroma-go so collections
// embed documents and queries through the same model.
type EmbeddingFunc struct {
	embedder ports.Embedder
}

func NewEmbeddingFunc(embedder ports.Embedder) *EmbeddingFunc {
	return &EmbeddingFunc{embedder: embedder}
}

func (f *EmbeddingFunc) EmbedDocuments(ctx context.Context, texts []string) ([]embeddings.Embedding, error) {
	vectors, err := f.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	out := make([]embeddings.Embedding, len(vectors))
	for i, v := range vectors {
		out[i] = embeddings.NewEmbeddingFromFloat32(v)
	}
	return out, nil
}

func (f *EmbeddingFunc) EmbedQuery(ctx context.Context, text string) (embeddings.Embedding, error) {
	vector, err := f.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	return embeddings.NewEmbeddingFromFloat32(vector), nil
}
