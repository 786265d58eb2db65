package dedup

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"math/rand"
	"strings"
)

const (
	DefaultNumPerm   = 128
	DefaultNgramSize = 3

	// 2^61 - 1, large Mersenne prime for the permutation family.
	mersennePrime = uint64(1<<61 - 1)

	// Fixed seed keeps signatures stable across runs, which makes dedup
	// deterministic for a fixed corpus order.
	permutationSeed = 1
)

// Signature is a MinHash sketch: one minimum per permutation.
type Signature []uint64

// MinHasher derives MinHash signatures from character n-grams of
// case/space-normalized text.
type MinHasher struct {
	numPerm   int
	ngramSize int
	permA     []uint64
	permB     []uint64
}

func NewMinHasher(numPerm, ngramSize int) *MinHasher {
	if numPerm <= 0 {
		numPerm = DefaultNumPerm
	}
	if ngramSize <= 0 {
		ngramSize = DefaultNgramSize
	}

	rng := rand.New(rand.NewSource(permutationSeed))
	permA := make([]uint64, numPerm)
	permB := make([]uint64, numPerm)
	for i := range numPerm {
		permA[i] = uint64(rng.Int63n(int64(mersennePrime-1))) + 1
		permB[i] = uint64(rng.Int63n(int64(mersennePrime)))
	}

	return &MinHasher{
		numPerm:   numPerm,
		ngramSize: ngramSize,
		permA:     permA,
		permB:     permB,
	}
}

func (m *MinHasher) Sign(text string) Signature {
	sig := make(Signature, m.numPerm)
	for i := range sig {
		sig[i] = mersennePrime
	}

	normalized := []rune(strings.ToLower(strings.TrimSpace(text)))
	for i := 0; i+m.ngramSize <= len(normalized); i++ {
		x := hashNgram(string(normalized[i : i+m.ngramSize]))
		for j := range m.numPerm {
			h := (m.permA[j]*x + m.permB[j]) % mersennePrime
			if h < sig[j] {
				sig[j] = h
			}
		}
	}
	return sig
}

// EstimateJaccard approximates set similarity as the fraction of matching
// signature positions.
func EstimateJaccard(a, b Signature) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	matches := 0
	for i := range a {
		if a[i] == b[i] {
			matches++
		}
	}
	return float64(matches) / float64(len(a))
}

func hashNgram(ngram string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(ngram))
	return h.Sum64() % mersennePrime
}

// LSH buckets signatures into bands so that candidates above the Jaccard
// threshold collide in at least one band with high probability. Candidates
// are verified against the estimated Jaccard before being reported.
type LSH struct {
	threshold  float64
	bands      int
	rows       int
	buckets    []map[string][]string
	signatures map[string]Signature
}

func NewLSH(threshold float64, numPerm int) *LSH {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.8
	}
	if numPerm <= 0 {
		numPerm = DefaultNumPerm
	}

	bands, rows := pickBands(threshold, numPerm)
	l := &LSH{
		threshold:  threshold,
		bands:      bands,
		rows:       rows,
		signatures: make(map[string]Signature),
	}
	l.buckets = make([]map[string][]string, bands)
	for i := range l.buckets {
		l.buckets[i] = make(map[string][]string)
	}
	return l
}

// pickBands chooses the band/row split whose collision threshold
// (1/bands)^(1/rows) lands closest to the requested threshold.
func pickBands(threshold float64, numPerm int) (int, int) {
	bestBands, bestRows := 1, numPerm
	bestDiff := 2.0
	for bands := 1; bands <= numPerm; bands++ {
		if numPerm%bands != 0 {
			continue
		}
		rows := numPerm / bands
		t := math.Pow(1/float64(bands), 1/float64(rows))
		diff := t - threshold
		if diff < 0 {
			diff = -diff
		}
		if diff < bestDiff {
			bestDiff = diff
			bestBands, bestRows = bands, rows
		}
	}
	return bestBands, bestRows
}

func (l *LSH) Insert(id string, sig Signature) {
	l.signatures[id] = sig
	for band := range l.bands {
		key := l.bandKey(band, sig)
		l.buckets[band][key] = append(l.buckets[band][key], id)
	}
}

// Query returns ids of indexed signatures estimated at or above the
// threshold.
func (l *LSH) Query(sig Signature) []string {
	seen := make(map[string]struct{})
	var out []string
	for band := range l.bands {
		key := l.bandKey(band, sig)
		for _, id := range l.buckets[band][key] {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			if EstimateJaccard(sig, l.signatures[id]) >= l.threshold {
				out = append(out, id)
			}
		}
	}
	return out
}

func (l *LSH) Len() int {
	return len(l.signatures)
}

func (l *LSH) bandKey(band int, sig Signature) string {
	start := band * l.rows
	buf := make([]byte, 0, l.rows*8)
	for _, v := range sig[start : start+l.rows] {
		buf = binary.LittleEndian.AppendUint64(buf, v)
	}
	return string(buf)
}
