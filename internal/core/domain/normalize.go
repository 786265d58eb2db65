package domain

import (
	"fmt"
	"strings"
)

// NormalizeDocType maps an arbitrary loader-supplied label to a canonical
// DocumentType. It never fails: unrecognized input degrades to TypeUnknown
// so that ingestion cannot abort on a bad label.
func NormalizeDocType(value string) DocumentType {
	switch canonicalLabel(value) {
	case "balance_sheet", "balancesheet":
		return TypeBalanceSheet
	case "income_statement", "incomestatement":
		return TypeIncomeStatement
	case "cash_flow", "cash_flow_statement", "cashflow", "cashflow_statement":
		return TypeCashFlow
	case "financial_statement", "financial_data":
		return TypeFinancialStatement
	case "contract", "contracts", "engagement_agreement":
		return TypeContract
	case "litigation", "lawsuit":
		return TypeLitigation
	case "ip_document", "intellectual_property", "patent", "trademark", "copyright":
		return TypeIPDocument
	case "compliance", "regulatory":
		return TypeCompliance
	case "court_judgment", "judgment":
		return TypeCourtJudgment
	case "nda", "mnda":
		return TypeNDA
	case "license_agreement", "license":
		return TypeLicenseAgreement
	case "partnership_agreement", "partnership":
		return TypePartnershipAgreement
	case "environmental_policy", "environment":
		return TypeEnvironmentalPolicy
	case "employee_record", "employee_data":
		return TypeEmployeeRecord
	case "hr_policy":
		return TypeHRPolicy
	case "employee_handbook", "handbook":
		return TypeEmployeeHandbook
	case "policy_document":
		return TypePolicyDocument
	default:
		return TypeUnknown
	}
}

// NormalizeCategory maps an arbitrary label to a canonical DocumentCategory.
// Same totality guarantee as NormalizeDocType.
func NormalizeCategory(value string) DocumentCategory {
	switch canonicalLabel(value) {
	case "financial", "finance":
		return CategoryFinancial
	case "legal":
		return CategoryLegal
	case "hr", "human_resources":
		return CategoryHR
	case "market":
		return CategoryMarket
	case "cross_ref":
		return CategoryCrossRef
	default:
		return CategoryUnknown
	}
}

// NormalizeMetadata rewrites the doc_type and category keys of a stored
// metadata map to canonical values. When a rewrite changes the value, the
// raw input is preserved under original_doc_type / original_category so the
// provenance stays auditable.
func NormalizeMetadata(metadata map[string]any) map[string]any {
	normalized := make(map[string]any, len(metadata)+2)
	for k, v := range metadata {
		normalized[k] = v
	}

	if raw, ok := normalized["doc_type"]; ok {
		original := stringify(raw)
		docType := NormalizeDocType(original)
		normalized["doc_type"] = string(docType)
		if original != string(docType) {
			normalized["original_doc_type"] = original
		}
	}

	if raw, ok := normalized["category"]; ok {
		original := stringify(raw)
		category := NormalizeCategory(original)
		normalized["category"] = string(category)
		if original != string(category) {
			normalized["original_category"] = original
		}
	}

	return normalized
}

func canonicalLabel(value string) string {
	s := strings.ToLower(strings.TrimSpace(value))
	s = strings.ReplaceAll(s, "-", "_")
	return strings.ReplaceAll(s, " ", "_")
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
