package usecase

import (
	"math"
	"strings"
)

// Okapi BM25 parameters.
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// BM25 is an in-memory lexical index over a fixed corpus snapshot.
// Documents are whitespace-tokenized and lower-cased.
type BM25 struct {
	termFreqs []map[string]int
	docLens   []int
	docFreq   map[string]int
	avgLen    float64
}

func NewBM25(docs []string) *BM25 {
	idx := &BM25{
		termFreqs: make([]map[string]int, len(docs)),
		docLens:   make([]int, len(docs)),
		docFreq:   make(map[string]int),
	}

	totalLen := 0
	for i, doc := range docs {
		tokens := Tokenize(doc)
		tf := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			tf[tok]++
		}
		idx.termFreqs[i] = tf
		idx.docLens[i] = len(tokens)
		totalLen += len(tokens)
		for tok := range tf {
			idx.docFreq[tok]++
		}
	}
	if len(docs) > 0 {
		idx.avgLen = float64(totalLen) / float64(len(docs))
	}
	return idx
}

func (b *BM25) Len() int {
	return len(b.termFreqs)
}

// Scores returns the raw BM25 score of every indexed document against the
// query tokens, in corpus order. Uses the non-negative idf variant
// ln(1 + (N - df + 0.5) / (df + 0.5)).
func (b *BM25) Scores(queryTokens []string) []float64 {
	n := float64(len(b.termFreqs))
	scores := make([]float64, len(b.termFreqs))
	if n == 0 || b.avgLen == 0 {
		return scores
	}

	for _, tok := range queryTokens {
		df := float64(b.docFreq[tok])
		if df == 0 {
			continue
		}
		idf := math.Log(1 + (n-df+0.5)/(df+0.5))
		for i, tf := range b.termFreqs {
			freq := float64(tf[tok])
			if freq == 0 {
				continue
			}
			norm := 1 - bm25B + bm25B*float64(b.docLens[i])/b.avgLen
			scores[i] += idf * freq * (bm25K1 + 1) / (freq + bm25K1*norm)
		}
	}
	return scores
}

// Tokenize lower-cases and splits on whitespace. Deliberately simple: both
// index and query sides must agree, and the blend with the semantic leg
// compensates for the lack of stemming.
func Tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}
