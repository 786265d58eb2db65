package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/northbridge-ai/diligence/internal/core/domain"
	"github.com/northbridge-ai/diligence/internal/core/ports"
)

type fakeCollection struct {
	hits      []domain.ScoredChunk
	docs      []domain.StoredChunk
	count     int
	searchErr error
	// failFiltered makes only filtered similarity searches fail, so the
	// unfiltered retry path can be observed.
	failFiltered bool

	searchCalls    int
	documentsCalls int
	added          [][]domain.DocumentChunk
}

func (f *fakeCollection) Add(_ context.Context, chunks []domain.DocumentChunk) error {
	f.added = append(f.added, chunks)
	return nil
}

func (f *fakeCollection) SimilaritySearch(_ context.Context, _ string, _ int, filter domain.MetadataFilter) ([]domain.ScoredChunk, error) {
	f.searchCalls++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if f.failFiltered && !filter.IsZero() {
		return nil, errors.New("filtered search unsupported")
	}
	return f.hits, nil
}

func (f *fakeCollection) Documents(context.Context, domain.MetadataFilter, int) ([]domain.StoredChunk, error) {
	f.documentsCalls++
	return f.docs, nil
}

func (f *fakeCollection) Count(context.Context) (int, error) {
	return f.count, nil
}

type fakeProvider struct {
	col        *fakeCollection
	categories []domain.DocumentCategory
}

func (f *fakeProvider) Collection(_ context.Context, category domain.DocumentCategory) (ports.VectorCollection, error) {
	f.categories = append(f.categories, category)
	return f.col, nil
}

func scored(content string, distance float64) domain.ScoredChunk {
	return domain.ScoredChunk{
		Chunk:    domain.StoredChunk{Content: content},
		Distance: distance,
	}
}

func newRetriever(col *fakeCollection, cfg RetrieverConfig) (*HybridRetriever, *fakeProvider) {
	provider := &fakeProvider{col: col}
	return NewHybridRetriever(provider, NewBM25Cache(), cfg, nil), provider
}

func TestSearchSurfacesKeywordOnlyMatch(t *testing.T) {
	col := &fakeCollection{
		hits: []domain.ScoredChunk{
			scored("general corporate overview and history", 0.1),
			scored("organizational chart and governance", 0.3),
		},
		docs: []domain.StoredChunk{
			{Content: "general corporate overview and history"},
			{Content: "organizational chart and governance"},
			{Content: "indemnification cap set at zweiundvierzig million"},
		},
		count: 3,
	}
	retriever, _ := newRetriever(col, RetrieverConfig{})

	results, err := retriever.Search(context.Background(), domain.SearchRequest{Query: "zweiundvierzig"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	found := false
	for _, r := range results {
		if r.Content == "indemnification cap set at zweiundvierzig million" {
			found = true
		}
		if r.RetrievalMethod != domain.MethodHybrid {
			t.Fatalf("unexpected retrieval method %q", r.RetrievalMethod)
		}
	}
	if !found {
		t.Fatalf("keyword-only document missing from blended results: %+v", results)
	}
}

func TestSearchWeightsShiftRanking(t *testing.T) {
	col := &fakeCollection{
		hits: []domain.ScoredChunk{
			scored("semantic favorite about growth prospects", 0.05),
		},
		docs: []domain.StoredChunk{
			{Content: "semantic favorite about growth prospects"},
			{Content: "lexical favorite mentioning zweiundvierzig twice zweiundvierzig"},
		},
		count: 2,
	}

	lexHeavy, _ := newRetriever(col, RetrieverConfig{SemanticWeight: 0.1, BM25Weight: 0.9})
	results, err := lexHeavy.Search(context.Background(), domain.SearchRequest{Query: "zweiundvierzig"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) == 0 || results[0].Content != "lexical favorite mentioning zweiundvierzig twice zweiundvierzig" {
		t.Fatalf("lexical-heavy weights should rank the keyword match first: %+v", results)
	}

	semHeavy, _ := newRetriever(col, RetrieverConfig{SemanticWeight: 0.9, BM25Weight: 0.1})
	results, err = semHeavy.Search(context.Background(), domain.SearchRequest{Query: "zweiundvierzig"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) == 0 || results[0].Content != "semantic favorite about growth prospects" {
		t.Fatalf("semantic-heavy weights should rank the embedding match first: %+v", results)
	}
}

func TestSearchRetriesUnfilteredOnFilteredFailure(t *testing.T) {
	col := &fakeCollection{
		hits:         []domain.ScoredChunk{scored("supply agreement with bbd", 0.2)},
		failFiltered: true,
		count:        1,
		docs:         []domain.StoredChunk{{Content: "supply agreement with bbd"}},
	}
	retriever, _ := newRetriever(col, RetrieverConfig{})

	results, err := retriever.Search(context.Background(), domain.SearchRequest{
		Query:     "supply agreement",
		CompanyID: "BBD",
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) == 0 {
		t.Fatalf("expected results from the unfiltered retry")
	}
	if col.searchCalls != 2 {
		t.Fatalf("expected filtered attempt plus retry, got %d calls", col.searchCalls)
	}
}

func TestSearchDegradesToLexicalWhenSemanticFails(t *testing.T) {
	col := &fakeCollection{
		searchErr: errors.New("embedding backend down"),
		docs:      []domain.StoredChunk{{Content: "license fees payable quarterly"}},
		count:     1,
	}
	retriever, _ := newRetriever(col, RetrieverConfig{})

	results, err := retriever.Search(context.Background(), domain.SearchRequest{Query: "license fees"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].Content != "license fees payable quarterly" {
		t.Fatalf("lexical leg should carry the search alone: %+v", results)
	}
}

func TestSearchReturnsEmptySliceWhenNothingMatches(t *testing.T) {
	col := &fakeCollection{count: 0}
	retriever, _ := newRetriever(col, RetrieverConfig{})

	results, err := retriever.Search(context.Background(), domain.SearchRequest{Query: "anything"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if results == nil || len(results) != 0 {
		t.Fatalf("expected empty non-nil result set, got %#v", results)
	}
}

func TestSearchTruncatesToTopK(t *testing.T) {
	docs := []domain.StoredChunk{
		{Content: "clause alpha governs termination rights"},
		{Content: "clause beta governs payment terms"},
		{Content: "clause gamma governs warranties"},
		{Content: "clause delta governs liability caps"},
	}
	col := &fakeCollection{docs: docs, count: len(docs)}
	retriever, _ := newRetriever(col, RetrieverConfig{})

	results, err := retriever.Search(context.Background(), domain.SearchRequest{Query: "clause governs", TopK: 2})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected top-k truncation to 2, got %d", len(results))
	}
}

func TestSearchMMRDiversifiesResults(t *testing.T) {
	docs := []domain.StoredChunk{
		{Content: "escrow release conditions require auditor sign off"},
		{Content: "escrow release conditions require auditor sign off too"},
		{Content: "change of control provisions trigger consent requirements"},
	}
	col := &fakeCollection{docs: docs, count: len(docs)}
	retriever, _ := newRetriever(col, RetrieverConfig{UseMMR: true})

	results, err := retriever.Search(context.Background(), domain.SearchRequest{
		Query: "escrow release conditions consent",
		TopK:  2,
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Content == results[1].Content {
		t.Fatalf("mmr returned duplicate content")
	}
	near := results[0].Content[:40] == results[1].Content[:40]
	if near {
		t.Fatalf("mmr kept two near-identical chunks: %q / %q", results[0].Content, results[1].Content)
	}
}

func TestSearchReusesSnapshotWhileCountStable(t *testing.T) {
	col := &fakeCollection{
		docs:  []domain.StoredChunk{{Content: "annual report narrative"}},
		count: 1,
	}
	retriever, _ := newRetriever(col, RetrieverConfig{})

	for i := 0; i < 3; i++ {
		if _, err := retriever.Search(context.Background(), domain.SearchRequest{Query: "annual report"}); err != nil {
			t.Fatalf("Search() error = %v", err)
		}
	}
	if col.documentsCalls != 1 {
		t.Fatalf("expected a single snapshot build, got %d", col.documentsCalls)
	}

	col.count = 2
	col.docs = append(col.docs, domain.StoredChunk{Content: "annual report appendix"})
	if _, err := retriever.Search(context.Background(), domain.SearchRequest{Query: "annual report"}); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if col.documentsCalls != 2 {
		t.Fatalf("count change should rebuild the snapshot, got %d builds", col.documentsCalls)
	}
}

func TestSearchNormalizesRequestCategory(t *testing.T) {
	col := &fakeCollection{count: 0}
	retriever, provider := newRetriever(col, RetrieverConfig{})

	if _, err := retriever.Search(context.Background(), domain.SearchRequest{Query: "q", Category: "Finance"}); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(provider.categories) == 0 || provider.categories[0] != domain.CategoryFinancial {
		t.Fatalf("expected financial collection, got %v", provider.categories)
	}
}

// filterCollection honors equality metadata filters the way a real vector
// store does, so filtered retrieval can be exercised end to end.
type filterCollection struct {
	chunks []domain.DocumentChunk
}

func metadataMatches(meta domain.ChunkMetadata, filter domain.MetadataFilter) bool {
	if filter.CompanyID != "" && meta.CompanyID != filter.CompanyID {
		return false
	}
	if filter.DocType != "" && string(meta.DocType) != filter.DocType {
		return false
	}
	return true
}

func (c *filterCollection) Add(_ context.Context, chunks []domain.DocumentChunk) error {
	c.chunks = append(c.chunks, chunks...)
	return nil
}

func (c *filterCollection) SimilaritySearch(_ context.Context, _ string, k int, filter domain.MetadataFilter) ([]domain.ScoredChunk, error) {
	var out []domain.ScoredChunk
	for _, chunk := range c.chunks {
		if !metadataMatches(chunk.Metadata, filter) {
			continue
		}
		out = append(out, domain.ScoredChunk{
			Chunk:    domain.StoredChunk{Content: chunk.Content, Metadata: chunk.Metadata.ToMap()},
			Distance: 0.5,
		})
		if len(out) == k {
			break
		}
	}
	return out, nil
}

func (c *filterCollection) Documents(_ context.Context, filter domain.MetadataFilter, limit int) ([]domain.StoredChunk, error) {
	var out []domain.StoredChunk
	for _, chunk := range c.chunks {
		if !metadataMatches(chunk.Metadata, filter) {
			continue
		}
		out = append(out, domain.StoredChunk{Content: chunk.Content, Metadata: chunk.Metadata.ToMap()})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (c *filterCollection) Count(context.Context) (int, error) {
	return len(c.chunks), nil
}

type filterProvider struct {
	cols map[domain.DocumentCategory]*filterCollection
}

func (p *filterProvider) Collection(_ context.Context, category domain.DocumentCategory) (ports.VectorCollection, error) {
	if category == domain.CategoryCrossRef {
		category = domain.CategoryUnknown
	}
	col, ok := p.cols[category]
	if !ok {
		col = &filterCollection{}
		p.cols[category] = col
	}
	return col, nil
}

// routingLoader assigns fixed per-file metadata so the composed flow below
// controls which category and company each chunk lands in.
type routingLoader struct {
	byName map[string]domain.ChunkMetadata
}

func (l *routingLoader) Supports(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".txt")
}

func (l *routingLoader) Load(_ context.Context, path string) ([]domain.DocumentChunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	meta := l.byName[filepath.Base(path)]
	meta.Source = path
	meta.Filename = filepath.Base(path)
	return []domain.DocumentChunk{{Content: string(data), Metadata: meta}}, nil
}

func TestIngestThenSearchScopedByCategoryAndCompany(t *testing.T) {
	const finLine = "quarterly revenue rose nine percent on subscription growth"
	const peopleLine = "onboarding checklist for new analysts and associates"

	dir := t.TempDir()
	writeFile(t, dir, "fin.txt", finLine)
	writeFile(t, dir, "people.txt", peopleLine)

	loader := &routingLoader{byName: map[string]domain.ChunkMetadata{
		"fin.txt": {
			CompanyID: "BBD",
			Category:  domain.CategoryFinancial,
			DocType:   domain.TypeFinancialStatement,
		},
		"people.txt": {
			CompanyID: "BBD",
			Category:  domain.CategoryHR,
			DocType:   domain.TypeHRPolicy,
		},
	}}

	provider := &filterProvider{cols: map[domain.DocumentCategory]*filterCollection{}}
	pipeline := NewIngestPipeline([]ports.DocumentLoader{loader}, lineChunker{}, newMapDedup(), provider, 0, nil)
	if _, err := pipeline.IngestDirectory(context.Background(), dir, false); err != nil {
		t.Fatalf("IngestDirectory() error = %v", err)
	}

	retriever := NewHybridRetriever(provider, NewBM25Cache(), RetrieverConfig{}, nil)

	results, err := retriever.Search(context.Background(), domain.SearchRequest{
		Query:     "quarterly revenue",
		Category:  "financial",
		CompanyID: "BBD",
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].Content != finLine {
		t.Fatalf("scoped search should return the matching chunk only: %+v", results)
	}
	if results[0].Metadata["company_id"] != "BBD" {
		t.Fatalf("company id missing from result metadata: %v", results[0].Metadata)
	}
	if results[0].RetrievalMethod != domain.MethodHybrid {
		t.Fatalf("unexpected retrieval method %q", results[0].RetrievalMethod)
	}

	results, err = retriever.Search(context.Background(), domain.SearchRequest{
		Query:     "onboarding checklist",
		Category:  "hr",
		CompanyID: "XYZ",
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if results == nil || len(results) != 0 {
		t.Fatalf("non-matching company filter should yield an empty result set, got %#v", results)
	}

	results, err = retriever.Search(context.Background(), domain.SearchRequest{
		Query:     "onboarding checklist",
		Category:  "hr",
		CompanyID: "BBD",
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].Content != peopleLine {
		t.Fatalf("matching company filter should return the chunk: %+v", results)
	}

	results, err = retriever.Search(context.Background(), domain.SearchRequest{Query: "onboarding checklist"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) == 0 || results[0].Content != peopleLine {
		t.Fatalf("union search should rank the lexical match first: %+v", results)
	}
}

func TestSearchPreservesOriginalMetadataLabels(t *testing.T) {
	stored := domain.StoredChunk{
		Content:  "assets and liabilities summary",
		Metadata: map[string]any{"doc_type": "Balance Sheet", "category": "financial"},
	}
	col := &fakeCollection{
		hits:  []domain.ScoredChunk{{Chunk: stored, Distance: 0.1}},
		count: 1,
		docs:  []domain.StoredChunk{stored},
	}
	retriever, _ := newRetriever(col, RetrieverConfig{})

	results, err := retriever.Search(context.Background(), domain.SearchRequest{Query: "assets"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) == 0 {
		t.Fatalf("expected results")
	}
	meta := results[0].Metadata
	if meta["doc_type"] != "balance_sheet" {
		t.Fatalf("doc_type not canonicalized: %v", meta["doc_type"])
	}
	if meta["original_doc_type"] != "Balance Sheet" {
		t.Fatalf("original label lost: %v", meta["original_doc_type"])
	}
}
