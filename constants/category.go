package constants

import (
	"strings"
)

// DeclaredCategory is the upload slot the user placed a file in. It is a
// user assertion, not a classification result: the classifier only uses it
// to break exact-confidence ties.
type DeclaredCategory string

const (
	CategorySection8Notice    DeclaredCategory = "Section8Notice"
	CategorySection21Notice   DeclaredCategory = "Section21Notice"
	CategoryGasSafetyCert     DeclaredCategory = "GasSafetyCertificate"
	CategoryEPC               DeclaredCategory = "EnergyPerformanceCertificate"
	CategoryTenancyAgreement  DeclaredCategory = "TenancyAgreement"
	CategoryDepositProtection DeclaredCategory = "DepositProtectionCertificate"
	CategoryBankStatement     DeclaredCategory = "BankStatement"
	CategoryOther             DeclaredCategory = "Other"
)

var allCategories = []DeclaredCategory{
	CategorySection8Notice,
	CategorySection21Notice,
	CategoryGasSafetyCert,
	CategoryEPC,
	CategoryTenancyAgreement,
	CategoryDepositProtection,
	CategoryBankStatement,
	CategoryOther,
}

// categoryDocType maps each upload slot to the document type it claims.
var categoryDocType = map[DeclaredCategory]DocumentType{
	CategorySection8Notice:    DocTypeSection8Notice,
	CategorySection21Notice:   DocTypeSection21Notice,
	CategoryGasSafetyCert:     DocTypeGasSafetyCert,
	CategoryEPC:               DocTypeEPC,
	CategoryTenancyAgreement:  DocTypeTenancyAgreement,
	CategoryDepositProtection: DocTypeDepositProtection,
	CategoryBankStatement:     DocTypeBankStatement,
}

func AsStringSlice() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

// DocTypeForCategory returns the document type a declared category asserts,
// or UNSUPPORTED for slots with no type claim (e.g. Other).
func DocTypeForCategory(cat DeclaredCategory) DocumentType {
	if dt, ok := categoryDocType[cat]; ok {
		return dt
	}
	return DocTypeUnsupported
}

// Canonicalize maps free-form slot labels (intake directory names, API input)
// onto a declared category. Unrecognized input maps to Other.
func Canonicalize(input string) (DeclaredCategory, bool) {
	if input == "" {
		return CategoryOther, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))
	normalized = strings.NewReplacer(" ", "", "-", "", "_", "").Replace(normalized)

	// synonyms map
	synonyms := map[string]DeclaredCategory{
		"section8":         CategorySection8Notice,
		"form3":            CategorySection8Notice,
		"noticeseekingpossession": CategorySection8Notice,
		"section21":        CategorySection21Notice,
		"form6a":           CategorySection21Notice,
		"gassafety":        CategoryGasSafetyCert,
		"gascertificate":   CategoryGasSafetyCert,
		"cp12":             CategoryGasSafetyCert,
		"epc":              CategoryEPC,
		"energycertificate": CategoryEPC,
		"tenancy":          CategoryTenancyAgreement,
		"ast":              CategoryTenancyAgreement,
		"deposit":          CategoryDepositProtection,
		"depositscheme":    CategoryDepositProtection,
		"bankstatement":    CategoryBankStatement,
		"statement":        CategoryBankStatement,
	}

	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}

	// check if it matches any category string
	for _, cat := range allCategories {
		if normalized == strings.ToLower(string(cat)) {
			return cat, true
		}
	}

	return CategoryOther, false
}
