// Package chroma adapts ChromaDB collections to the retrieval ports. One
// collection exists per document category plus the union collection that
// receives every chunk.
package chroma

import (
	"context"
	"fmt"
	"sync"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"

	"github.com/northbridge-ai/diligence/internal/core/domain"
	"github.com/northbridge-ai/diligence/internal/core/ports"
)

// Collection names per category. The union collection holds every chunk
// regardless of category and backs unfiltered searches.
var collectionNames = map[domain.DocumentCategory]string{
	domain.CategoryFinancial: "dd_financial_docs",
	domain.CategoryLegal:     "dd_legal_docs",
	domain.CategoryHR:        "dd_hr_docs",
	domain.CategoryMarket:    "dd_market_docs",
}

const unionCollection = "dd_all_docs"

// Provider lazily opens one collection handle per category.
type Provider struct {
	client chroma.Client
	embed  embeddings.EmbeddingFunction

	mu   sync.Mutex
	cols map[string]*Collection
}

func NewProvider(baseURL string, embed embeddings.EmbeddingFunction) (*Provider, error) {
	client, err := chroma.NewHTTPClient(chroma.WithBaseURL(baseURL))
	if err != nil {
		return nil, fmt.Errorf("connect chroma: %w", err)
	}
	return &Provider{
		client: client,
		embed:  embed,
		cols:   make(map[string]*Collection),
	}, nil
}

// Collection resolves the collection for a category. Unknown and cross_ref
// categories resolve to the union collection.
func (p *Provider) Collection(ctx context.Context, category domain.DocumentCategory) (ports.VectorCollection, error) {
	name, ok := collectionNames[category]
	if !ok {
		name = unionCollection
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if col, ok := p.cols[name]; ok {
		return col, nil
	}

	col, err := p.client.GetOrCreateCollection(ctx, name, chroma.WithEmbeddingFunctionCreate(p.embed))
	if err != nil {
		return nil, fmt.Errorf("open collection %s: %w", name, err)
	}

	wrapped := &Collection{col: col}
	p.cols[name] = wrapped
	return wrapped, nil
}

func (p *Provider) Close() error {
	return p.client.Close()
}

// Collection wraps one chroma collection behind the VectorCollection port.
type Collection struct {
	col chroma.Collection
}

func (c *Collection) Add(ctx context.Context, chunks []domain.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	ids := make([]chroma.DocumentID, len(chunks))
	metas := make([]chroma.DocumentMetadata, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
		ids[i] = chroma.DocumentID(chunk.Metadata.ChunkHash)
		metas[i] = toDocumentMetadata(chunk.Metadata.ToMap())
	}

	err := c.col.Add(ctx,
		chroma.WithTexts(texts...),
		chroma.WithIDs(ids...),
		chroma.WithMetadatas(metas...),
	)
	if err != nil {
		return fmt.Errorf("chroma add: %w", err)
	}
	return nil
}

func (c *Collection) SimilaritySearch(ctx context.Context, query string, k int, filter domain.MetadataFilter) ([]domain.ScoredChunk, error) {
	opts := []chroma.CollectionQueryOption{
		chroma.WithQueryTexts(query),
		chroma.WithNResults(k),
	}
	if where := buildWhere(filter); where != nil {
		opts = append(opts, chroma.WithWhereQuery(where))
	}

	res, err := c.col.Query(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("chroma query: %w", err)
	}

	docGroups := res.GetDocumentsGroups()
	metaGroups := res.GetMetadatasGroups()
	distGroups := res.GetDistancesGroups()
	if len(docGroups) == 0 {
		return nil, nil
	}

	docs := docGroups[0]
	out := make([]domain.ScoredChunk, 0, len(docs))
	for i := range docs {
		chunk := domain.StoredChunk{Content: docs[i].ContentString()}
		if len(metaGroups) > 0 && i < len(metaGroups[0]) {
			chunk.Metadata = fromDocumentMetadata(metaGroups[0][i])
		}
		distance := 0.0
		if len(distGroups) > 0 && i < len(distGroups[0]) {
			distance = float64(distGroups[0][i])
		}
		out = append(out, domain.ScoredChunk{Chunk: chunk, Distance: distance})
	}
	return out, nil
}

func (c *Collection) Documents(ctx context.Context, filter domain.MetadataFilter, limit int) ([]domain.StoredChunk, error) {
	opts := []chroma.CollectionGetOption{}
	if where := buildWhere(filter); where != nil {
		opts = append(opts, chroma.WithWhereGet(where))
	}
	if limit > 0 {
		opts = append(opts, chroma.WithLimitGet(limit))
	}

	res, err := c.col.Get(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("chroma get: %w", err)
	}

	docs := res.GetDocuments()
	metas := res.GetMetadatas()
	out := make([]domain.StoredChunk, 0, len(docs))
	for i := range docs {
		chunk := domain.StoredChunk{Content: docs[i].ContentString()}
		if i < len(metas) {
			chunk.Metadata = fromDocumentMetadata(metas[i])
		}
		out = append(out, chunk)
	}
	return out, nil
}

func (c *Collection) Count(ctx context.Context) (int, error) {
	n, err := c.col.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("chroma count: %w", err)
	}
	return n, nil
}

func buildWhere(filter domain.MetadataFilter) chroma.WhereFilter {
	var clauses []chroma.WhereClause
	if filter.CompanyID != "" {
		clauses = append(clauses, chroma.EqString("company_id", filter.CompanyID))
	}
	if filter.DocType != "" {
		clauses = append(clauses, chroma.EqString("doc_type", filter.DocType))
	}

	switch len(clauses) {
	case 0:
		return nil
	case 1:
		return clauses[0]
	default:
		return chroma.And(clauses...)
	}
}

func toDocumentMetadata(meta map[string]any) chroma.DocumentMetadata {
	attrs := make([]*chroma.MetaAttribute, 0, len(meta))
	for key, value := range meta {
		switch v := value.(type) {
		case string:
			attrs = append(attrs, chroma.NewStringAttribute(key, v))
		case int:
			attrs = append(attrs, chroma.NewIntAttribute(key, int64(v)))
		case int64:
			attrs = append(attrs, chroma.NewIntAttribute(key, v))
		case float64:
			attrs = append(attrs, chroma.NewFloatAttribute(key, v))
		}
	}
	return chroma.NewDocumentMetadata(attrs...)
}

// Chroma metadata reads back key by key; these are all attributes chunks
// carry.
var stringKeys = []string{
	"source", "filename", "company_id", "category", "doc_type",
	"chunk_hash", "upload_date", "original_doc_type", "original_category",
}

var intKeys = []string{
	"chunk_index", "total_chunks", "page", "fiscal_year", "record_count",
}

func fromDocumentMetadata(meta chroma.DocumentMetadata) map[string]any {
	out := make(map[string]any)
	if meta == nil {
		return out
	}
	for _, key := range stringKeys {
		if v, ok := meta.GetString(key); ok {
			out[key] = v
		}
	}
	for _, key := range intKeys {
		if v, ok := meta.GetInt(key); ok {
			out[key] = int(v)
		}
	}
	return out
}
