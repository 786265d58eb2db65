package chunking

import "strings"

const (
	DefaultChunkSize    = 512
	DefaultChunkOverlap = 50
	TableChunkSize      = 1500
	TableChunkOverlap   = 200

	// Segments at or below this length are discarded as noise.
	minSegmentLength = 10
)

// sentenceSeparators is the descending-priority ladder for prose: paragraph
// breaks first, then lines, sentence punctuation, clause punctuation, words,
// and finally bare runes.
var sentenceSeparators = []string{"\n\n\n", "\n\n", "\n", ". ", "! ", "? ", "; ", ": ", ", ", " ", ""}

// tableSeparators keeps rows and cells intact for tabular content.
var tableSeparators = []string{"\n\n", "\n", " | ", ", ", " ", ""}

// Splitter recursively splits text along a separator ladder, merging the
// pieces back into chunks near chunkSize with overlap carried between
// adjacent chunks.
type Splitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

func NewSplitter(chunkSize, overlap int, separators []string) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	if len(separators) == 0 {
		separators = sentenceSeparators
	}
	return &Splitter{
		chunkSize:  chunkSize,
		overlap:    overlap,
		separators: separators,
	}
}

func NewSentenceSplitter(chunkSize, overlap int) *Splitter {
	return NewSplitter(chunkSize, overlap, sentenceSeparators)
}

func NewTableSplitter() *Splitter {
	return NewSplitter(TableChunkSize, TableChunkOverlap, tableSeparators)
}

// Split returns bounded overlapping segments of text, shortest ladder
// separator first. Splitting must never fail a document, so any panic from
// the recursion degrades to fixed-size sliding windows.
func (s *Splitter) Split(text string) (out []string) {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			out = s.slidingWindow(text)
		}
	}()

	segments := s.splitRecursive(text, s.separators)

	out = segments[:0]
	for _, seg := range segments {
		if len(strings.TrimSpace(seg)) > minSegmentLength {
			out = append(out, seg)
		}
	}
	return out
}

func (s *Splitter) splitRecursive(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var rest []string
	for i, sep := range separators {
		if sep == "" {
			separator = ""
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			rest = separators[i+1:]
			break
		}
	}

	splits := splitBy(text, separator)

	var final []string
	var good []string
	for _, piece := range splits {
		if len(piece) < s.chunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			final = append(final, s.merge(good, separator)...)
			good = nil
		}
		if len(rest) == 0 {
			final = append(final, piece)
		} else {
			final = append(final, s.splitRecursive(piece, rest)...)
		}
	}
	if len(good) > 0 {
		final = append(final, s.merge(good, separator)...)
	}
	return final
}

// merge packs consecutive splits into chunks close to chunkSize. When a
// chunk closes, leading splits are dropped until the carried tail fits the
// overlap budget, so adjacent chunks share their boundary text.
func (s *Splitter) merge(splits []string, separator string) []string {
	sepLen := len(separator)

	var chunks []string
	var current []string
	total := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunk := strings.TrimSpace(strings.Join(current, separator))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
	}

	for _, piece := range splits {
		pieceLen := len(piece)
		if total+pieceLen+joinLen(len(current), sepLen) > s.chunkSize && total > 0 {
			flush()
			for total > s.overlap || (total+pieceLen+joinLen(len(current), sepLen) > s.chunkSize && total > 0) {
				total -= len(current[0]) + joinLen(len(current)-1, sepLen)
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += pieceLen + joinLen(len(current)-1, sepLen)
	}
	flush()
	return chunks
}

func joinLen(pieces, sepLen int) int {
	if pieces > 0 {
		return sepLen
	}
	return 0
}

func splitBy(text, separator string) []string {
	if separator == "" {
		runes := []rune(text)
		out := make([]string, 0, len(runes))
		for _, r := range runes {
			out = append(out, string(r))
		}
		return out
	}
	parts := strings.Split(text, separator)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// slidingWindow is the last-resort strategy: fixed-size slices stepped by
// chunkSize-overlap.
func (s *Splitter) slidingWindow(text string) []string {
	runes := []rune(text)
	step := s.chunkSize - s.overlap
	if step <= 0 {
		step = s.chunkSize
	}

	out := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := min(start+s.chunkSize, len(runes))
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			out = append(out, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return out
}
