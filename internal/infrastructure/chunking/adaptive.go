package chunking

import "strings"

// structuredDocTypes forces the table strategy regardless of content shape.
var structuredDocTypes = map[string]struct{}{
	"employee_record":     {},
	"financial_data":      {},
	"financial_statement": {},
	"balance_sheet":       {},
	"income_statement":    {},
	"cash_flow":           {},
}

// pipeDensityThreshold is the cheap tabular-content heuristic applied when
// metadata gives no hint.
const pipeDensityThreshold = 10

// AdaptiveChunker picks between a sentence-aware splitter for prose and a
// coarser table-aware splitter for structured content. Strategy selection
// looks at metadata first, content shape second.
type AdaptiveChunker struct {
	sentence *Splitter
	table    *Splitter
}

func NewAdaptiveChunker(chunkSize, overlap int) *AdaptiveChunker {
	return &AdaptiveChunker{
		sentence: NewSentenceSplitter(chunkSize, overlap),
		table:    NewTableSplitter(),
	}
}

func (c *AdaptiveChunker) Chunk(text string, metadata map[string]any) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	if docType, ok := metadata["doc_type"].(string); ok {
		if _, structured := structuredDocTypes[docType]; structured {
			return c.table.Split(text)
		}
	}

	if strings.Count(text, "|") > pipeDensityThreshold || strings.Count(text, "\t") > pipeDensityThreshold {
		return c.table.Split(text)
	}

	return c.sentence.Split(text)
}
