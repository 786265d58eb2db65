package dedup

import (
	"fmt"
	"strings"
	"testing"
)

const baseText = "The acquisition agreement obligates the seller to deliver audited " +
	"financial statements for the last three fiscal years, including balance " +
	"sheets, income statements and cash flow statements prepared under GAAP."

func TestExactIndexDetectsIdenticalContent(t *testing.T) {
	idx := NewExactIndex()

	if idx.IsDuplicate(baseText) {
		t.Fatalf("empty index reported a duplicate")
	}

	hash, isNew := idx.Add(baseText)
	if !isNew || hash == "" {
		t.Fatalf("first add should be new with a hash, got new=%v hash=%q", isNew, hash)
	}
	if !idx.IsDuplicate(baseText) {
		t.Fatalf("expected duplicate after add")
	}

	again, isNew := idx.Add(baseText)
	if isNew {
		t.Fatalf("second add should not be new")
	}
	if again != hash {
		t.Fatalf("hash changed between adds: %q vs %q", hash, again)
	}
	if idx.Duplicates() != 1 {
		t.Fatalf("expected 1 duplicate, got %d", idx.Duplicates())
	}
}

func TestExactIndexNormalizesCaseAndWhitespace(t *testing.T) {
	idx := NewExactIndex()
	idx.Add("  Revenue Grew 12% ")

	if !idx.IsDuplicate("revenue grew 12%") {
		t.Fatalf("case and whitespace variants should hash identically")
	}
}

func TestFuzzyIndexDetectsNearDuplicate(t *testing.T) {
	idx := NewFuzzyIndex(0.8, DefaultNumPerm, DefaultNgramSize)

	idx.Add(baseText)

	variant := strings.Replace(baseText, "three fiscal years", "four fiscal years", 1)
	if !idx.IsDuplicate(variant) {
		t.Fatalf("small edit should register as near-duplicate")
	}
}

func TestFuzzyIndexIgnoresUnrelatedContent(t *testing.T) {
	idx := NewFuzzyIndex(0.8, DefaultNumPerm, DefaultNgramSize)

	idx.Add(baseText)

	other := "Employee headcount by department: engineering 120, sales 45, " +
		"finance 18, human resources 9, operations 33, legal 6."
	if idx.IsDuplicate(other) {
		t.Fatalf("unrelated content flagged as near-duplicate")
	}
}

func TestFuzzyIndexReturnsNeighborID(t *testing.T) {
	idx := NewFuzzyIndex(0.8, DefaultNumPerm, DefaultNgramSize)

	first := idx.Add(baseText)
	variant := strings.Replace(baseText, "audited", "reviewed", 1)
	second := idx.Add(variant)

	if second != first {
		t.Fatalf("near-duplicate should return neighbor id %q, got %q", first, second)
	}
	if idx.Duplicates() != 1 {
		t.Fatalf("expected 1 fuzzy duplicate, got %d", idx.Duplicates())
	}
}

func TestHybridExactShortCircuitsFuzzy(t *testing.T) {
	h := NewHybrid(0.8, DefaultNumPerm, DefaultNgramSize)

	h.Add(baseText)
	h.Add(baseText)

	if h.ExactDuplicates() != 1 {
		t.Fatalf("expected 1 exact duplicate, got %d", h.ExactDuplicates())
	}
	if h.FuzzyDuplicates() != 0 {
		t.Fatalf("exact duplicate must not reach the fuzzy layer, got %d", h.FuzzyDuplicates())
	}
	if h.Unique() != 1 {
		t.Fatalf("expected 1 unique item, got %d", h.Unique())
	}
}

func TestHybridCountsFuzzyDuplicatesOnExactMiss(t *testing.T) {
	h := NewHybrid(0.8, DefaultNumPerm, DefaultNgramSize)

	h.Add(baseText)
	variant := strings.Replace(baseText, "GAAP", "IFRS", 1)
	if !h.IsDuplicate(variant) {
		t.Fatalf("near-duplicate should be caught by the fuzzy layer")
	}
}

func TestHybridClearResetsBothLayers(t *testing.T) {
	h := NewHybrid(0.8, DefaultNumPerm, DefaultNgramSize)

	h.Add(baseText)
	h.Add(baseText)
	h.Clear()

	if h.IsDuplicate(baseText) {
		t.Fatalf("cleared index still reports duplicates")
	}
	if h.TotalDuplicates() != 0 || h.Unique() != 0 {
		t.Fatalf("counters survived clear: dups=%d unique=%d", h.TotalDuplicates(), h.Unique())
	}
}

func TestMinHashSignaturesAreDeterministic(t *testing.T) {
	a := NewMinHasher(DefaultNumPerm, DefaultNgramSize)
	b := NewMinHasher(DefaultNumPerm, DefaultNgramSize)

	sigA := a.Sign(baseText)
	sigB := b.Sign(baseText)
	if len(sigA) != DefaultNumPerm {
		t.Fatalf("expected %d signature values, got %d", DefaultNumPerm, len(sigA))
	}
	for i := range sigA {
		if sigA[i] != sigB[i] {
			t.Fatalf("signatures diverge at permutation %d", i)
		}
	}
}

func TestEstimateJaccardIdenticalSignatures(t *testing.T) {
	h := NewMinHasher(DefaultNumPerm, DefaultNgramSize)
	sig := h.Sign(baseText)

	if got := EstimateJaccard(sig, sig); got != 1.0 {
		t.Fatalf("identical signatures should estimate 1.0, got %v", got)
	}
}

func TestEstimateJaccardTracksSimilarity(t *testing.T) {
	h := NewMinHasher(DefaultNumPerm, DefaultNgramSize)

	near := h.Sign(strings.Replace(baseText, "seller", "vendor", 1))
	far := h.Sign("Completely different market analysis covering competitor " +
		"pricing, churn rates and regional demand forecasts for 2025.")
	base := h.Sign(baseText)

	if EstimateJaccard(base, near) <= EstimateJaccard(base, far) {
		t.Fatalf("near variant should estimate higher similarity than unrelated text")
	}
}

func TestLSHInsertAndQueryRoundTrip(t *testing.T) {
	h := NewMinHasher(DefaultNumPerm, DefaultNgramSize)
	lsh := NewLSH(0.8, DefaultNumPerm)

	for i := 0; i < 5; i++ {
		text := fmt.Sprintf("%s Version %d of the agreement.", baseText, i)
		lsh.Insert(fmt.Sprintf("doc_%d", i), h.Sign(text))
	}
	if lsh.Len() != 5 {
		t.Fatalf("expected 5 indexed signatures, got %d", lsh.Len())
	}

	hits := lsh.Query(h.Sign(baseText + " Version 0 of the agreement."))
	if len(hits) == 0 {
		t.Fatalf("expected at least the identical signature to match")
	}
}
