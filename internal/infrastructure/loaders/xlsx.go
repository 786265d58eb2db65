package loaders

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/northbridge-ai/diligence/internal/core/domain"
)

// XLSXLoader renders each sheet as a markdown table block. Sheets share the
// file-level metadata; record counts come from the data rows per sheet.
type XLSXLoader struct{}

func NewXLSXLoader() *XLSXLoader {
	return &XLSXLoader{}
}

func (l *XLSXLoader) Supports(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xlsx")
}

func (l *XLSXLoader) Load(ctx context.Context, path string) ([]domain.DocumentChunk, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	meta := baseMetadata(path)
	meta.CompanyID = IdentifyCompany(meta.Filename, "")

	var chunks []domain.DocumentChunk
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		if len(rows) == 0 {
			continue
		}

		var b strings.Builder
		fmt.Fprintf(&b, "# %s - %s\n\n", meta.Filename, sheet)
		fmt.Fprintf(&b, "**Company:** %s\n", meta.CompanyID)
		fmt.Fprintf(&b, "**Document Type:** %s\n", meta.DocType)
		fmt.Fprintf(&b, "**Total Records:** %d\n\n## Data\n\n", max(len(rows)-1, 0))

		headers := rows[0]
		b.WriteString("| " + strings.Join(headers, " | ") + " |\n")
		if len(headers) > 0 {
			b.WriteString("| " + strings.Repeat("--- | ", len(headers)-1) + "--- |\n")
		}
		for _, row := range rows[1:] {
			cells := make([]string, len(headers))
			for i := range headers {
				if i < len(row) {
					cells[i] = row[i]
				}
			}
			b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
		}

		sheetMeta := meta
		sheetMeta.RecordCount = max(len(rows)-1, 0)
		chunks = append(chunks, domain.DocumentChunk{Content: b.String(), Metadata: sheetMeta})
	}
	return chunks, nil
}
