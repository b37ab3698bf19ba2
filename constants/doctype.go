package constants

// DocumentType is the closed set of document kinds Smart Review understands.
type DocumentType string

// Stable values (stored in DB and cache entries; do not rename).
const (
	DocTypeSection8Notice    DocumentType = "SECTION_8_NOTICE"    // Form 3, Housing Act 1988 s.8
	DocTypeSection21Notice   DocumentType = "SECTION_21_NOTICE"   // Form 6A, Housing Act 1988 s.21
	DocTypeGasSafetyCert     DocumentType = "GAS_SAFETY_CERT"     // CP12 landlord gas safety record
	DocTypeEPC               DocumentType = "EPC"                 // energy performance certificate
	DocTypeTenancyAgreement  DocumentType = "TENANCY_AGREEMENT"   // AST agreement
	DocTypeDepositProtection DocumentType = "DEPOSIT_PROTECTION"  // scheme certificate
	DocTypeBankStatement     DocumentType = "BANK_STATEMENT"      // arrears evidence
	DocTypeUnsupported       DocumentType = "UNSUPPORTED"         // unreadable / unrecognized
)

// Jurisdiction identifies which body of rules applies.
type Jurisdiction string

const (
	JurisdictionEngland  Jurisdiction = "ENGLAND"
	JurisdictionWales    Jurisdiction = "WALES"
	JurisdictionScotland Jurisdiction = "SCOTLAND"
)

// AllDocumentTypes lists every classifiable type, excluding UNSUPPORTED.
var AllDocumentTypes = []DocumentType{
	DocTypeSection8Notice,
	DocTypeSection21Notice,
	DocTypeGasSafetyCert,
	DocTypeEPC,
	DocTypeTenancyAgreement,
	DocTypeDepositProtection,
	DocTypeBankStatement,
}

// RentFrequency is how often rent falls due; drives the arrears multipliers.
type RentFrequency string

const (
	RentWeekly      RentFrequency = "WEEKLY"
	RentFortnightly RentFrequency = "FORTNIGHTLY"
	RentMonthly     RentFrequency = "MONTHLY"
	RentQuarterly   RentFrequency = "QUARTERLY"
	RentYearly      RentFrequency = "YEARLY"
)
