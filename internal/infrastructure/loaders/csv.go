package loaders

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/northbridge-ai/diligence/internal/core/domain"
)

var financialDocTypes = map[domain.DocumentType]struct{}{
	domain.TypeBalanceSheet:       {},
	domain.TypeIncomeStatement:    {},
	domain.TypeCashFlow:           {},
	domain.TypeFinancialStatement: {},
}

// CSVLoader renders CSV rows into markdown blocks. Financial tables get a
// complete-table chunk plus one chunk per row; employee data gets one
// chunk per record; everything else collapses into a single summary chunk.
type CSVLoader struct{}

func NewCSVLoader() *CSVLoader {
	return &CSVLoader{}
}

func (l *CSVLoader) Supports(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".csv")
}

func (l *CSVLoader) Load(ctx context.Context, path string) ([]domain.DocumentChunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	headers, rows, err := readCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	meta := baseMetadata(path)
	meta.CompanyID = IdentifyCompany(meta.Filename, "")

	_, financial := financialDocTypes[meta.DocType]
	switch {
	case financial || meta.Category == domain.CategoryFinancial:
		return l.financialChunks(meta, headers, rows), nil
	case meta.DocType == domain.TypeEmployeeRecord:
		return l.employeeChunks(meta, headers, rows), nil
	default:
		return l.genericChunks(meta, headers, rows), nil
	}
}

// readCSV skips an optional leading //-comment line and maps each record
// onto the header row.
func readCSV(f *os.File) ([]string, []map[string]string, error) {
	br := bufio.NewReader(f)
	if peek, err := br.Peek(2); err == nil && string(peek) == "//" {
		if _, err := br.ReadString('\n'); err != nil {
			return nil, nil, err
		}
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, nil
	}

	headers := records[0]
	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(record) {
				row[h] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return headers, rows, nil
}

func (l *CSVLoader) financialChunks(meta domain.ChunkMetadata, headers []string, rows []map[string]string) []domain.DocumentChunk {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s - Complete Financial Data\n\n", meta.Filename)
	fmt.Fprintf(&b, "**Company:** %s\n", meta.CompanyID)
	fmt.Fprintf(&b, "**Document Type:** %s\n", meta.DocType)
	fmt.Fprintf(&b, "**Columns:** %s\n", strings.Join(headers, ", "))
	fmt.Fprintf(&b, "**Total Records:** %d\n\n## Complete Data\n\n", len(rows))

	b.WriteString("| " + strings.Join(headers, " | ") + " |\n")
	b.WriteString("| " + strings.Repeat("--- | ", len(headers)-1) + "--- |\n")
	for _, row := range rows {
		values := make([]string, len(headers))
		for i, h := range headers {
			values[i] = row[h]
		}
		b.WriteString("| " + strings.Join(values, " | ") + " |\n")
	}

	fullMeta := meta
	fullMeta.RecordCount = len(rows)
	fullMeta.TotalChunks = len(rows) + 1
	chunks := []domain.DocumentChunk{{Content: b.String(), Metadata: fullMeta}}

	for i, row := range rows {
		label := fmt.Sprintf("Row %d", i+1)
		if len(headers) > 0 && row[headers[0]] != "" {
			label = row[headers[0]]
		}

		var rb strings.Builder
		fmt.Fprintf(&rb, "# %s - %s\n\n", meta.Filename, label)
		fmt.Fprintf(&rb, "**Company:** %s\n", meta.CompanyID)
		fmt.Fprintf(&rb, "**Document Type:** %s\n", meta.DocType)
		fmt.Fprintf(&rb, "**Row:** %d of %d\n\n## Data\n\n", i+1, len(rows))
		for _, h := range headers {
			if v := row[h]; v != "" && v != "--" {
				fmt.Fprintf(&rb, "- **%s:** %s\n", h, v)
			}
		}

		rowMeta := meta
		rowMeta.RecordCount = 1
		rowMeta.ChunkIndex = i + 1
		rowMeta.TotalChunks = len(rows) + 1
		chunks = append(chunks, domain.DocumentChunk{Content: rb.String(), Metadata: rowMeta})
	}
	return chunks
}

func (l *CSVLoader) employeeChunks(meta domain.ChunkMetadata, headers []string, rows []map[string]string) []domain.DocumentChunk {
	chunks := make([]domain.DocumentChunk, 0, len(rows))
	for i, row := range rows {
		var b strings.Builder
		b.WriteString("# Employee Record\n\n")
		fmt.Fprintf(&b, "**Source:** %s\n", meta.Filename)
		fmt.Fprintf(&b, "**Record:** %d of %d\n\n## Employee Details\n\n", i+1, len(rows))
		for _, h := range headers {
			if v := row[h]; v != "" && v != "--" {
				fmt.Fprintf(&b, "- **%s:** %s\n", h, v)
			}
		}

		recMeta := meta
		recMeta.Category = domain.CategoryHR
		recMeta.DocType = domain.TypeEmployeeRecord
		recMeta.ChunkIndex = i
		recMeta.TotalChunks = len(rows)
		if company := row["Company"]; company != "" {
			recMeta.CompanyID = company
		}
		chunks = append(chunks, domain.DocumentChunk{Content: b.String(), Metadata: recMeta})
	}
	return chunks
}

func (l *CSVLoader) genericChunks(meta domain.ChunkMetadata, headers []string, rows []map[string]string) []domain.DocumentChunk {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", meta.Filename)
	fmt.Fprintf(&b, "**Company:** %s\n", meta.CompanyID)
	fmt.Fprintf(&b, "**Category:** %s\n", meta.Category)
	fmt.Fprintf(&b, "**Document Type:** %s\n", meta.DocType)
	fmt.Fprintf(&b, "**Columns:** %s\n", strings.Join(headers, ", "))
	fmt.Fprintf(&b, "**Total Records:** %d\n\n## Complete Data\n\n", len(rows))

	for _, row := range rows {
		var parts []string
		for _, h := range headers {
			if v := row[h]; v != "" && v != "--" {
				parts = append(parts, fmt.Sprintf("%s: %s", h, v))
			}
		}
		fmt.Fprintf(&b, "- %s\n", strings.Join(parts, " | "))
	}

	meta.RecordCount = len(rows)
	return []domain.DocumentChunk{{Content: b.String(), Metadata: meta}}
}
