package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalizeSynonyms(t *testing.T) {
	tests := []struct {
		input string
		want  DeclaredCategory
		ok    bool
	}{
		{"section8", CategorySection8Notice, true},
		{"Section 8", CategorySection8Notice, true},
		{"form-3", CategorySection8Notice, true},
		{"notice_seeking_possession", CategorySection8Notice, true},
		{"form6a", CategorySection21Notice, true},
		{"CP12", CategoryGasSafetyCert, true},
		{"gas safety", CategoryGasSafetyCert, true},
		{"EPC", CategoryEPC, true},
		{"ast", CategoryTenancyAgreement, true},
		{"deposit", CategoryDepositProtection, true},
		{"bank-statement", CategoryBankStatement, true},
		{"statement", CategoryBankStatement, true},
		{"TenancyAgreement", CategoryTenancyAgreement, true},
		{"other", CategoryOther, true},
		{"holiday photos", CategoryOther, false},
		{"", CategoryOther, false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := Canonicalize(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestDocTypeForCategory(t *testing.T) {
	assert.Equal(t, DocTypeSection8Notice, DocTypeForCategory(CategorySection8Notice))
	assert.Equal(t, DocTypeGasSafetyCert, DocTypeForCategory(CategoryGasSafetyCert))
	assert.Equal(t, DocTypeUnsupported, DocTypeForCategory(CategoryOther))
}

func TestMapExtToClass(t *testing.T) {
	assert.Equal(t, MimeTextPDF, MapExtToClass(".pdf"))
	assert.Equal(t, MimeTextPDF, MapExtToClass("PDF"))
	assert.Equal(t, MimeImage, MapExtToClass("jpeg"))
	assert.Equal(t, MimeImage, MapExtToClass(".HEIC"))
	assert.Equal(t, MimeUnsupported, MapExtToClass("docx"))
	assert.Equal(t, MimeUnsupported, MapExtToClass(""))
}

func TestNormalizeExt(t *testing.T) {
	assert.Equal(t, "pdf", NormalizeExt(".PDF"))
	assert.Equal(t, "jpg", NormalizeExt("jpg"))
	assert.Equal(t, "", NormalizeExt("."))
}
