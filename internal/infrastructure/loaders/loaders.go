// Package loaders extracts raw (content, metadata) blocks from supported
// file formats. Loaders infer the owning company and the document
// category/type from path and content; downstream chunking, dedup and
// storage are owned by the ingestion pipeline.
package loaders

import (
	"path/filepath"
	"strings"

	"github.com/northbridge-ai/diligence/internal/core/domain"
	"github.com/northbridge-ai/diligence/internal/core/ports"
)

// companyAliases maps each canonical company id to the spellings seen in
// the data-room files. Matching is case-insensitive over the filename plus
// a content prefix.
var companyAliases = map[string][]string{
	"BBD":       {"BBD_LTD", "BBD Software", "BBD_Software"},
	"XYZ":       {"XYZ_LTD", "XYZ LTD"},
	"SUPERNOVA": {"Supernova", "Supernova_"},
	"RASPUTIN":  {"Rasputin", "Rasputil_Petroleum", "Rasputin_"},
	"TECHNOBOX": {"Techno_Box", "TechnoBox"},
}

// companyContentPrefix bounds how much content participates in company
// matching.
const companyContentPrefix = 1000

// IdentifyCompany resolves the company id from filename and content, or
// domain.CompanyUnknown.
func IdentifyCompany(filename, content string) string {
	if len(content) > companyContentPrefix {
		content = content[:companyContentPrefix]
	}
	haystack := strings.ToUpper(filename + " " + content)

	for companyID, aliases := range companyAliases {
		if strings.Contains(haystack, companyID) {
			return companyID
		}
		for _, alias := range aliases {
			if strings.Contains(haystack, strings.ToUpper(alias)) {
				return companyID
			}
		}
	}
	return domain.CompanyUnknown
}

// InferCategoryAndType guesses category and document type from the file
// path. Filename keywords dominate; directory names break ties for the
// category. Unrecognized paths stay UNKNOWN, which normalization keeps.
func InferCategoryAndType(path string) (domain.DocumentCategory, domain.DocumentType) {
	pathLower := strings.ToLower(path)
	filename := strings.ToLower(filepath.Base(path))

	category := domain.CategoryUnknown
	switch {
	case strings.Contains(pathLower, "financ"):
		category = domain.CategoryFinancial
	case strings.Contains(pathLower, "legal"),
		strings.Contains(pathLower, "contract"),
		strings.Contains(pathLower, "litigation"):
		category = domain.CategoryLegal
	case strings.Contains(pathLower, "hr"),
		strings.Contains(pathLower, "employee"),
		strings.Contains(pathLower, "human"):
		category = domain.CategoryHR
	case strings.Contains(pathLower, "market"):
		category = domain.CategoryMarket
	}

	docType := domain.TypeUnknown
	switch {
	case strings.Contains(filename, "balance"):
		docType, category = domain.TypeBalanceSheet, domain.CategoryFinancial
	case strings.Contains(filename, "income"):
		docType, category = domain.TypeIncomeStatement, domain.CategoryFinancial
	case strings.Contains(filename, "cash") && strings.Contains(filename, "flow"):
		docType, category = domain.TypeCashFlow, domain.CategoryFinancial
	case strings.Contains(filename, "contract"), strings.Contains(filename, "agreement"):
		docType, category = domain.TypeContract, domain.CategoryLegal
	case strings.Contains(pathLower, "litigation"), strings.Contains(filename, "lawsuit"):
		docType, category = domain.TypeLitigation, domain.CategoryLegal
	case strings.Contains(pathLower, "patent"),
		strings.Contains(pathLower, "trademark"),
		strings.Contains(pathLower, "copyright"):
		docType, category = domain.TypeIPDocument, domain.CategoryLegal
	case strings.Contains(pathLower, "compliance"), strings.Contains(filename, "regulatory"):
		docType, category = domain.TypeCompliance, domain.CategoryLegal
	case strings.Contains(filename, "judgment"), strings.Contains(pathLower, "court"):
		docType, category = domain.TypeCourtJudgment, domain.CategoryLegal
	case strings.Contains(filename, "nda"):
		docType, category = domain.TypeNDA, domain.CategoryLegal
	case strings.Contains(filename, "license"):
		docType, category = domain.TypeLicenseAgreement, domain.CategoryLegal
	case strings.Contains(filename, "partnership"):
		docType, category = domain.TypePartnershipAgreement, domain.CategoryLegal
	case strings.Contains(filename, "environment"):
		docType, category = domain.TypeEnvironmentalPolicy, domain.CategoryLegal
	case strings.Contains(filename, "employee") && strings.Contains(filename, "data"):
		docType, category = domain.TypeEmployeeRecord, domain.CategoryHR
	case strings.Contains(filename, "handbook"):
		docType, category = domain.TypeEmployeeHandbook, domain.CategoryHR
	case strings.Contains(filename, "policy"), strings.Contains(pathLower, "policies"):
		docType, category = domain.TypeHRPolicy, domain.CategoryHR
	}

	return category, docType
}

// All returns every loader in dispatch order.
func All() []ports.DocumentLoader {
	return []ports.DocumentLoader{
		NewCSVLoader(),
		NewTextLoader(),
		NewPDFLoader(),
		NewXLSXLoader(),
	}
}

func baseMetadata(path string) domain.ChunkMetadata {
	category, docType := InferCategoryAndType(path)
	return domain.ChunkMetadata{
		Source:      path,
		Filename:    filepath.Base(path),
		CompanyID:   domain.CompanyUnknown,
		Category:    category,
		DocType:     docType,
		TotalChunks: 1,
	}
}
