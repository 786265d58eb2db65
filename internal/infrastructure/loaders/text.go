package loaders

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/northbridge-ai/diligence/internal/core/domain"
)

// TextLoader reads .txt and .md files whole, stripping a leading comment
// header when present.
type TextLoader struct{}

func NewTextLoader() *TextLoader {
	return &TextLoader{}
}

func (l *TextLoader) Supports(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".txt" || ext == ".md"
}

func (l *TextLoader) Load(ctx context.Context, path string) ([]domain.DocumentChunk, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read text file: %w", err)
	}

	content := stripCommentHeader(string(raw))
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	meta := baseMetadata(path)
	category, docType := inferWithContent(path, content)
	meta.Category = category
	meta.DocType = docType
	meta.CompanyID = IdentifyCompany(meta.Filename, content)

	return []domain.DocumentChunk{{Content: content, Metadata: meta}}, nil
}

func stripCommentHeader(content string) string {
	switch {
	case strings.HasPrefix(content, "<!--"):
		if _, rest, found := strings.Cut(content, "-->"); found {
			return strings.TrimSpace(rest)
		}
	case strings.HasPrefix(content, "//"):
		if _, rest, found := strings.Cut(content, "\n"); found {
			return strings.TrimSpace(rest)
		}
	}
	return content
}

// inferWithContent falls back to content keywords when the path alone
// leaves the category unknown.
func inferWithContent(path, content string) (domain.DocumentCategory, domain.DocumentType) {
	category, docType := InferCategoryAndType(path)
	if category != domain.CategoryUnknown {
		return category, docType
	}

	prefix := strings.ToLower(content)
	if len(prefix) > 500 {
		prefix = prefix[:500]
	}
	switch {
	case strings.Contains(prefix, "revenue"), strings.Contains(prefix, "balance sheet"):
		category = domain.CategoryFinancial
	case strings.Contains(prefix, "agreement"), strings.Contains(prefix, "hereby"):
		category = domain.CategoryLegal
	case strings.Contains(prefix, "employee"), strings.Contains(prefix, "personnel"):
		category = domain.CategoryHR
	case strings.Contains(prefix, "market"), strings.Contains(prefix, "competitor"):
		category = domain.CategoryMarket
	}
	return category, docType
}
