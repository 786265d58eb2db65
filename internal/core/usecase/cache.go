package usecase

import (
	"sync"

	"github.com/northbridge-ai/diligence/internal/core/domain"
)

// FilterKey identifies one cached lexical index: the collection plus the
// equality filters applied to its snapshot.
type FilterKey struct {
	Category  domain.DocumentCategory
	CompanyID string
	DocType   string
}

type bm25Entry struct {
	index *BM25
	docs  []domain.StoredChunk
	// Collection-wide chunk count at snapshot time. Entries are rebuilt
	// when the live count differs; replacing documents without changing
	// the count leaves a stale entry until Invalidate or Clear. Known
	// staleness window, accepted.
	count int
}

// BM25Cache holds derived lexical indexes and their document snapshots per
// filter key. Never the source of truth: every entry is reconstructible
// from the owning vector collection. Safe for concurrent use; concurrent
// population of the same key is last-writer-wins.
type BM25Cache struct {
	mu      sync.Mutex
	entries map[FilterKey]*bm25Entry
}

func NewBM25Cache() *BM25Cache {
	return &BM25Cache{entries: make(map[FilterKey]*bm25Entry)}
}

func (c *BM25Cache) get(key FilterKey) (*bm25Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	return entry, ok
}

func (c *BM25Cache) put(key FilterKey, entry *bm25Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry
}

func (c *BM25Cache) Invalidate(key FilterKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *BM25Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[FilterKey]*bm25Entry)
}

func (c *BM25Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
