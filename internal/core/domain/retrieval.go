package domain

// Retrieval method tags carried on results.
const (
	MethodSemantic = "semantic"
	MethodBM25     = "bm25"
	MethodHybrid   = "hybrid"
)

// SearchRequest is a retrieval query with optional metadata filters.
// Category narrows the search to one collection; CompanyID and DocType
// become equality filters inside that collection.
type SearchRequest struct {
	Query     string `json:"query"`
	Category  string `json:"category,omitempty"`
	CompanyID string `json:"company_id,omitempty"`
	DocType   string `json:"doc_type,omitempty"`
	TopK      int    `json:"top_k,omitempty"`
	FetchK    int    `json:"fetch_k,omitempty"`
}

// RetrievalResult is one ranked hit. Score is comparable only within the
// blend of the query that produced it; results are never persisted.
type RetrievalResult struct {
	Content         string         `json:"content"`
	Score           float64        `json:"score"`
	Metadata        map[string]any `json:"metadata"`
	RetrievalMethod string         `json:"retrieval_method"`
}

// StoredChunk is a chunk as read back from a vector collection.
type StoredChunk struct {
	Content  string
	Metadata map[string]any
}

// ScoredChunk pairs a stored chunk with its raw vector-space distance.
type ScoredChunk struct {
	Chunk    StoredChunk
	Distance float64
}

// MetadataFilter is a conjunction of equality constraints over stored
// metadata fields. An empty filter matches everything.
type MetadataFilter struct {
	CompanyID string
	DocType   string
}

func (f MetadataFilter) IsZero() bool {
	return f.CompanyID == "" && f.DocType == ""
}
