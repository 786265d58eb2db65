package loaders

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/northbridge-ai/diligence/internal/core/domain"
)

// PDFLoader extracts embedded text per page. Multi-page documents yield one
// block per page so retrieval can cite page numbers; when no text can be
// extracted at all (scanned documents, OCR is out of scope) the file is
// still indexed through a placeholder block.
type PDFLoader struct{}

func NewPDFLoader() *PDFLoader {
	return &PDFLoader{}
}

func (l *PDFLoader) Supports(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

func (l *PDFLoader) Load(ctx context.Context, path string) ([]domain.DocumentChunk, error) {
	pages, err := extractPages(path)
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	var fullText strings.Builder
	for _, page := range pages {
		fullText.WriteString(page)
		fullText.WriteString("\n\n")
	}

	if strings.TrimSpace(fullText.String()) == "" {
		return []domain.DocumentChunk{l.placeholder(path)}, nil
	}

	meta := baseMetadata(path)
	category, docType := inferWithContent(path, fullText.String())
	meta.Category = category
	meta.DocType = docType
	meta.CompanyID = IdentifyCompany(meta.Filename, fullText.String())

	if len(pages) <= 1 {
		return []domain.DocumentChunk{{Content: fullText.String(), Metadata: meta}}, nil
	}

	var chunks []domain.DocumentChunk
	for i, page := range pages {
		if strings.TrimSpace(page) == "" {
			continue
		}
		pageMeta := meta
		pageMeta.Page = i + 1
		chunks = append(chunks, domain.DocumentChunk{Content: page, Metadata: pageMeta})
	}
	return chunks, nil
}

func extractPages(path string) ([]string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page should not drop the document.
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}

func (l *PDFLoader) placeholder(path string) domain.DocumentChunk {
	meta := baseMetadata(path)
	meta.CompanyID = IdentifyCompany(meta.Filename, "")

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", meta.Filename)
	b.WriteString("**Document Type:** PDF\n")
	fmt.Fprintf(&b, "**Category:** %s\n", meta.Category)
	fmt.Fprintf(&b, "**Company:** %s\n", meta.CompanyID)
	b.WriteString("**Note:** Text extraction failed. Document may be scanned or image-based.\n")

	return domain.DocumentChunk{Content: b.String(), Metadata: meta}
}
