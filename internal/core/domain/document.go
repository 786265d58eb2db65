package domain

import "time"

type DocumentCategory string

const (
	CategoryFinancial DocumentCategory = "financial"
	CategoryLegal     DocumentCategory = "legal"
	CategoryHR        DocumentCategory = "hr"
	CategoryMarket    DocumentCategory = "market"
	CategoryCrossRef  DocumentCategory = "cross_ref"
	CategoryUnknown   DocumentCategory = "unknown"
)

func Categories() []DocumentCategory {
	return []DocumentCategory{
		CategoryFinancial,
		CategoryLegal,
		CategoryHR,
		CategoryMarket,
		CategoryCrossRef,
	}
}

type DocumentType string

const (
	TypeBalanceSheet         DocumentType = "balance_sheet"
	TypeIncomeStatement      DocumentType = "income_statement"
	TypeCashFlow             DocumentType = "cash_flow"
	TypeFinancialStatement   DocumentType = "financial_statement"
	TypeContract             DocumentType = "contract"
	TypeLitigation           DocumentType = "litigation"
	TypeIPDocument           DocumentType = "ip_document"
	TypeCompliance           DocumentType = "compliance"
	TypeCourtJudgment        DocumentType = "court_judgment"
	TypeNDA                  DocumentType = "nda"
	TypeLicenseAgreement     DocumentType = "license_agreement"
	TypePartnershipAgreement DocumentType = "partnership_agreement"
	TypeEnvironmentalPolicy  DocumentType = "environmental_policy"
	TypeEmployeeRecord       DocumentType = "employee_record"
	TypeHRPolicy             DocumentType = "hr_policy"
	TypeEmployeeHandbook     DocumentType = "employee_handbook"
	TypePolicyDocument       DocumentType = "policy_document"
	TypeUnknown              DocumentType = "unknown"
)

// CompanyUnknown is the company_id assigned when no known company matches.
const CompanyUnknown = "UNKNOWN"

// ChunkMetadata describes where a chunk came from and how it is filterable.
// Category and DocType always hold canonical enum values after normalization.
type ChunkMetadata struct {
	Source      string           `json:"source"`
	Filename    string           `json:"filename"`
	CompanyID   string           `json:"company_id"`
	Category    DocumentCategory `json:"category"`
	DocType     DocumentType     `json:"doc_type"`
	ChunkHash   string           `json:"chunk_hash"`
	Page        int              `json:"page,omitempty"`
	FiscalYear  int              `json:"fiscal_year,omitempty"`
	UploadDate  time.Time        `json:"upload_date"`
	RecordCount int              `json:"record_count,omitempty"`
	ChunkIndex  int              `json:"chunk_index"`
	TotalChunks int              `json:"total_chunks"`
}

// ToMap flattens the metadata for storage in a vector collection, which
// accepts only scalar attribute values.
func (m ChunkMetadata) ToMap() map[string]any {
	out := map[string]any{
		"source":       m.Source,
		"filename":     m.Filename,
		"company_id":   m.CompanyID,
		"category":     string(m.Category),
		"doc_type":     string(m.DocType),
		"chunk_hash":   m.ChunkHash,
		"upload_date":  m.UploadDate.Format(time.RFC3339),
		"chunk_index":  m.ChunkIndex,
		"total_chunks": m.TotalChunks,
	}
	if m.Page > 0 {
		out["page"] = m.Page
	}
	if m.FiscalYear > 0 {
		out["fiscal_year"] = m.FiscalYear
	}
	if m.RecordCount > 0 {
		out["record_count"] = m.RecordCount
	}
	return out
}

// DocumentChunk is the atomic unit stored and retrieved. Immutable once
// created; ChunkHash identifies identical content across re-ingestions.
type DocumentChunk struct {
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
}
