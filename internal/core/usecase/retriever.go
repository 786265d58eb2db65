package usecase

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/northbridge-ai/diligence/internal/core/domain"
	"github.com/northbridge-ai/diligence/internal/core/ports"
)

const (
	DefaultTopK   = 10
	DefaultFetchK = 30

	DefaultSemanticWeight = 0.7
	DefaultBM25Weight     = 0.3
	DefaultMMRDiversity   = 0.3

	// Upper bound on the document snapshot fetched per filter key for
	// lexical indexing.
	defaultSnapshotLimit = 1000
)

// RetrieverConfig tunes the hybrid blend. Zero values take the defaults.
type RetrieverConfig struct {
	SemanticWeight float64
	BM25Weight     float64
	UseMMR         bool
	MMRDiversity   float64
	SnapshotLimit  int
}

func (c RetrieverConfig) withDefaults() RetrieverConfig {
	if c.SemanticWeight == 0 && c.BM25Weight == 0 {
		c.SemanticWeight = DefaultSemanticWeight
		c.BM25Weight = DefaultBM25Weight
	}
	if c.MMRDiversity == 0 {
		c.MMRDiversity = DefaultMMRDiversity
	}
	if c.SnapshotLimit <= 0 {
		c.SnapshotLimit = defaultSnapshotLimit
	}
	return c
}

// HybridRetriever merges an embedding-similarity leg with an independent
// BM25 leg. Both legs run against the same filtered collection; their score
// spaces are min-max normalized separately and blended, so a document
// strong in only one leg can still surface.
type HybridRetriever struct {
	collections ports.CollectionProvider
	cache       *BM25Cache
	cfg         RetrieverConfig
	logger      *slog.Logger
}

func NewHybridRetriever(
	collections ports.CollectionProvider,
	cache *BM25Cache,
	cfg RetrieverConfig,
	logger *slog.Logger,
) *HybridRetriever {
	if cache == nil {
		cache = NewBM25Cache()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HybridRetriever{
		collections: collections,
		cache:       cache,
		cfg:         cfg.withDefaults(),
		logger:      logger,
	}
}

func (r *HybridRetriever) Search(ctx context.Context, req domain.SearchRequest) ([]domain.RetrievalResult, error) {
	start := time.Now()

	topK := req.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	fetchK := req.FetchK
	if fetchK <= 0 {
		fetchK = DefaultFetchK
	}

	category := domain.CategoryUnknown
	if req.Category != "" {
		category = domain.NormalizeCategory(req.Category)
		if category == domain.CategoryUnknown {
			r.logger.Warn("category_unrecognized", "category", req.Category)
		}
	}

	filter := domain.MetadataFilter{CompanyID: req.CompanyID}
	if req.DocType != "" {
		filter.DocType = string(domain.NormalizeDocType(req.DocType))
	}

	collection, err := r.collections.Collection(ctx, category)
	if err != nil {
		return nil, err
	}

	semantic := r.semanticLeg(ctx, collection, req.Query, fetchK, filter)
	lexical := r.lexicalLeg(ctx, collection, req.Query, fetchK, category, filter)

	merged := blend(semantic, lexical, r.cfg.SemanticWeight, r.cfg.BM25Weight)
	if len(merged) == 0 {
		r.logger.Info("retrieval_empty", "query", truncate(req.Query, 80))
		return []domain.RetrievalResult{}, nil
	}

	if r.cfg.UseMMR && len(merged) > topK {
		merged = maxMarginalRelevance(merged, r.cfg.MMRDiversity, topK)
	} else if len(merged) > topK {
		merged = merged[:topK]
	}

	results := make([]domain.RetrievalResult, 0, len(merged))
	for _, c := range merged {
		results = append(results, domain.RetrievalResult{
			Content:         c.chunk.Content,
			Score:           c.score,
			Metadata:        domain.NormalizeMetadata(c.chunk.Metadata),
			RetrievalMethod: domain.MethodHybrid,
		})
	}

	r.logger.Info("retrieval_complete",
		"results", len(results),
		"semantic_candidates", len(semantic),
		"bm25_candidates", len(lexical),
		"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
	)
	return results, nil
}

type legCandidate struct {
	chunk domain.StoredChunk
	score float64
}

// semanticLeg embeds the query through the collection and converts each
// distance d to relevance 1/(1+d). A filtered search that fails is retried
// once unfiltered; a second failure degrades the leg to empty so the
// lexical leg can still answer.
func (r *HybridRetriever) semanticLeg(
	ctx context.Context,
	collection ports.VectorCollection,
	query string,
	fetchK int,
	filter domain.MetadataFilter,
) map[string]legCandidate {
	hits, err := collection.SimilaritySearch(ctx, query, fetchK, filter)
	if err != nil && !filter.IsZero() {
		r.logger.Warn("semantic_leg_retry_unfiltered", "error", err)
		hits, err = collection.SimilaritySearch(ctx, query, fetchK, domain.MetadataFilter{})
	}
	if err != nil {
		r.logger.Warn("semantic_leg_failed", "error", err)
		return nil
	}

	out := make(map[string]legCandidate, len(hits))
	for _, hit := range hits {
		out[chunkKey(hit.Chunk)] = legCandidate{
			chunk: hit.Chunk,
			score: 1.0 / (1.0 + hit.Distance),
		}
	}
	return out
}

// lexicalLeg scores the query against a cached BM25 index over the filtered
// document snapshot and keeps the top fetchK positive scores. Any failure
// degrades the leg to empty.
func (r *HybridRetriever) lexicalLeg(
	ctx context.Context,
	collection ports.VectorCollection,
	query string,
	fetchK int,
	category domain.DocumentCategory,
	filter domain.MetadataFilter,
) map[string]legCandidate {
	key := FilterKey{Category: category, CompanyID: filter.CompanyID, DocType: filter.DocType}

	entry, err := r.snapshot(ctx, collection, key, filter)
	if err != nil {
		r.logger.Warn("bm25_leg_failed", "error", err)
		return nil
	}
	if entry == nil || entry.index.Len() == 0 {
		return nil
	}

	scores := entry.index.Scores(Tokenize(query))
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })

	out := make(map[string]legCandidate)
	for rank, idx := range order {
		if rank >= fetchK || scores[idx] <= 0 {
			break
		}
		chunk := entry.docs[idx]
		out[chunkKey(chunk)] = legCandidate{chunk: chunk, score: scores[idx]}
	}
	return out
}

// snapshot returns the cached BM25 entry for the key, rebuilding it when
// missing or when the collection's chunk count moved since the snapshot.
func (r *HybridRetriever) snapshot(
	ctx context.Context,
	collection ports.VectorCollection,
	key FilterKey,
	filter domain.MetadataFilter,
) (*bm25Entry, error) {
	count, err := collection.Count(ctx)
	if err != nil {
		return nil, err
	}

	if entry, ok := r.cache.get(key); ok && entry.count == count {
		return entry, nil
	}

	docs, err := collection.Documents(ctx, filter, r.cfg.SnapshotLimit)
	if err != nil {
		return nil, err
	}

	contents := make([]string, len(docs))
	for i, d := range docs {
		contents[i] = d.Content
	}
	entry := &bm25Entry{index: NewBM25(contents), docs: docs, count: count}
	r.cache.put(key, entry)

	r.logger.Debug("bm25_snapshot_rebuilt",
		"category", string(key.Category),
		"company_id", key.CompanyID,
		"doc_type", key.DocType,
		"documents", len(docs),
	)
	return entry, nil
}

// blend unions both legs by content identity, min-max normalizes each leg
// over its own members (degenerate score sets normalize to 1.0), and
// weights them into one score. Absence from a leg contributes zero.
func blend(semantic, lexical map[string]legCandidate, semanticWeight, bm25Weight float64) []rankedChunk {
	semMin, semMax := scoreRange(semantic)
	bmMin, bmMax := scoreRange(lexical)

	keys := make(map[string]domain.StoredChunk, len(semantic)+len(lexical))
	for k, c := range semantic {
		keys[k] = c.chunk
	}
	for k, c := range lexical {
		keys[k] = c.chunk
	}

	merged := make([]rankedChunk, 0, len(keys))
	for k, chunk := range keys {
		semNorm := 0.0
		if c, ok := semantic[k]; ok {
			semNorm = normalizeScore(c.score, semMin, semMax)
		}
		bmNorm := 0.0
		if c, ok := lexical[k]; ok {
			bmNorm = normalizeScore(c.score, bmMin, bmMax)
		}
		merged = append(merged, rankedChunk{
			chunk: chunk,
			score: semanticWeight*semNorm + bm25Weight*bmNorm,
		})
	}

	sort.SliceStable(merged, func(a, b int) bool { return merged[a].score > merged[b].score })
	return merged
}

func scoreRange(leg map[string]legCandidate) (float64, float64) {
	first := true
	var lo, hi float64
	for _, c := range leg {
		if first {
			lo, hi = c.score, c.score
			first = false
			continue
		}
		if c.score < lo {
			lo = c.score
		}
		if c.score > hi {
			hi = c.score
		}
	}
	return lo, hi
}

func normalizeScore(v, lo, hi float64) float64 {
	if hi == lo {
		return 1.0
	}
	return (v - lo) / (hi - lo)
}

// chunkKey is the union identity across legs. The stored chunk_hash is
// preferred; content is hashed directly when a chunk predates hashing.
func chunkKey(chunk domain.StoredChunk) string {
	if h, ok := chunk.Metadata["chunk_hash"].(string); ok && h != "" {
		return h
	}
	return domain.HashContent(chunk.Content)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
