package dedup

import (
	"fmt"
	"strings"

	"github.com/northbridge-ai/diligence/internal/core/domain"
)

// ExactIndex is O(1) set membership over content hashes.
type ExactIndex struct {
	seen           map[string]struct{}
	duplicateCount int
}

func NewExactIndex() *ExactIndex {
	return &ExactIndex{seen: make(map[string]struct{})}
}

func (e *ExactIndex) IsDuplicate(text string) bool {
	_, ok := e.seen[domain.HashContent(text)]
	return ok
}

// Add records the text and returns its hash plus whether it was new.
func (e *ExactIndex) Add(text string) (string, bool) {
	h := domain.HashContent(text)
	if _, ok := e.seen[h]; ok {
		e.duplicateCount++
		return h, false
	}
	e.seen[h] = struct{}{}
	return h, true
}

func (e *ExactIndex) Clear() {
	e.seen = make(map[string]struct{})
	e.duplicateCount = 0
}

func (e *ExactIndex) Unique() int     { return len(e.seen) }
func (e *ExactIndex) Duplicates() int { return e.duplicateCount }

// FuzzyIndex detects near-duplicates via MinHash signatures in a banded
// LSH at a Jaccard threshold.
type FuzzyIndex struct {
	threshold      float64
	hasher         *MinHasher
	lsh            *LSH
	nextID         int
	duplicateCount int
}

func NewFuzzyIndex(threshold float64, numPerm, ngramSize int) *FuzzyIndex {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.8
	}
	return &FuzzyIndex{
		threshold: threshold,
		hasher:    NewMinHasher(numPerm, ngramSize),
		lsh:       NewLSH(threshold, numPerm),
	}
}

func (f *FuzzyIndex) IsDuplicate(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	return len(f.lsh.Query(f.hasher.Sign(text))) > 0
}

// Add indexes the text and returns its id. A near-duplicate is counted and
// the id of the existing neighbor is returned instead.
func (f *FuzzyIndex) Add(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	sig := f.hasher.Sign(text)
	if neighbors := f.lsh.Query(sig); len(neighbors) > 0 {
		f.duplicateCount++
		return neighbors[0]
	}

	id := fmt.Sprintf("doc_%d", f.nextID)
	f.nextID++
	f.lsh.Insert(id, sig)
	return id
}

func (f *FuzzyIndex) Clear() {
	f.lsh = NewLSH(f.threshold, f.hasher.numPerm)
	f.nextID = 0
	f.duplicateCount = 0
}

func (f *FuzzyIndex) Unique() int     { return f.lsh.Len() }
func (f *FuzzyIndex) Duplicates() int { return f.duplicateCount }

// Hybrid composes both layers: the cheap exact check runs first, the fuzzy
// check only on an exact miss. New items land in the fuzzy index only when
// they were not exact duplicates, so identical copies do not pile up under
// separate LSH entries. Not safe for concurrent use.
type Hybrid struct {
	exact *ExactIndex
	fuzzy *FuzzyIndex
}

func NewHybrid(fuzzyThreshold float64, numPerm, ngramSize int) *Hybrid {
	return &Hybrid{
		exact: NewExactIndex(),
		fuzzy: NewFuzzyIndex(fuzzyThreshold, numPerm, ngramSize),
	}
}

func (h *Hybrid) IsDuplicate(text string) bool {
	if h.exact.IsDuplicate(text) {
		return true
	}
	return h.fuzzy.IsDuplicate(text)
}

// Add records the text in both layers and returns the exact content hash
// as the chunk identity.
func (h *Hybrid) Add(text string) string {
	hash, isNew := h.exact.Add(text)
	if isNew {
		h.fuzzy.Add(text)
	}
	return hash
}

func (h *Hybrid) Clear() {
	h.exact.Clear()
	h.fuzzy.Clear()
}

func (h *Hybrid) ExactDuplicates() int { return h.exact.Duplicates() }
func (h *Hybrid) FuzzyDuplicates() int { return h.fuzzy.Duplicates() }
func (h *Hybrid) TotalDuplicates() int { return h.exact.Duplicates() + h.fuzzy.Duplicates() }
func (h *Hybrid) Unique() int          { return h.exact.Unique() }
