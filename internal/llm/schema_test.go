package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/landlorddocs/smartreview/constants"
	"github.com/landlorddocs/smartreview/internal/config"
	"github.com/landlorddocs/smartreview/internal/entity"
)

func noticeSpecs() []config.FieldSpec {
	return []config.FieldSpec{
		{Name: "rent_amount", Kind: "money"},
		{Name: "date_served", Kind: "date"},
	}
}

func TestFieldSchemaAcceptsWellFormedResponse(t *testing.T) {
	schema := BuildFieldJSONSchema(noticeSpecs())

	good := []byte(`{"fields":[
		{"name":"rent_amount","value":"950.00","confidence":0.71},
		{"name":"date_served","value":"2026-03-14","confidence":0.64}
	]}`)
	assert.NoError(t, CheckResponseShape(schema, good))

	empty := []byte(`{"fields":[]}`)
	assert.NoError(t, CheckResponseShape(schema, empty))
}

func TestFieldSchemaRejectsMalformedResponses(t *testing.T) {
	schema := BuildFieldJSONSchema(noticeSpecs())

	tests := []struct {
		name string
		body string
	}{
		{"unknown field name", `{"fields":[{"name":"favourite_colour","value":"blue","confidence":0.9}]}`},
		{"confidence above one", `{"fields":[{"name":"rent_amount","value":"950.00","confidence":1.2}]}`},
		{"negative confidence", `{"fields":[{"name":"rent_amount","value":"950.00","confidence":-0.1}]}`},
		{"empty value", `{"fields":[{"name":"rent_amount","value":"","confidence":0.5}]}`},
		{"missing confidence", `{"fields":[{"name":"rent_amount","value":"950.00"}]}`},
		{"extra property", `{"fields":[{"name":"rent_amount","value":"950.00","confidence":0.5,"anchor":"p1"}]}`},
		{"fields not an array", `{"fields":{"rent_amount":"950.00"}}`},
		{"missing fields key", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, CheckResponseShape(schema, []byte(tt.body)))
		})
	}
}

// stubProvider records the path taken and returns canned candidates.
type stubProvider struct {
	text   []entity.ExtractedField
	vision []entity.ExtractedField
	err    error

	textCalls   int
	visionCalls int
}

func (s *stubProvider) ExtractText(ctx context.Context, req Request) ([]entity.ExtractedField, error) {
	s.textCalls++
	return s.text, s.err
}

func (s *stubProvider) ExtractVision(ctx context.Context, req Request) ([]entity.ExtractedField, error) {
	s.visionCalls++
	return s.vision, s.err
}

func TestExtractorRoutesByMimeClass(t *testing.T) {
	fields := []entity.ExtractedField{{FieldName: "rent_amount", Value: "950.00", Confidence: 0.7, Source: constants.SourceProbabilistic}}
	p := &stubProvider{text: fields, vision: fields}
	e := NewExtractor(p, nil)

	req := Request{DocumentType: constants.DocTypeSection8Notice, Specs: noticeSpecs(), Text: "notice text", ImagePath: "scan.jpg"}

	got := e.Extract(context.Background(), constants.MimeTextPDF, req)
	assert.Equal(t, fields, got)
	assert.Equal(t, 1, p.textCalls)

	got = e.Extract(context.Background(), constants.MimeImage, req)
	assert.Equal(t, fields, got)
	got = e.Extract(context.Background(), constants.MimeScannedPDF, req)
	assert.Equal(t, fields, got)
	assert.Equal(t, 2, p.visionCalls)
}

func TestExtractorSkipsWhenNothingToAsk(t *testing.T) {
	p := &stubProvider{text: []entity.ExtractedField{{FieldName: "x"}}}
	e := NewExtractor(p, nil)

	got := e.Extract(context.Background(), constants.MimeTextPDF, Request{})
	assert.Nil(t, got)
	assert.Zero(t, p.textCalls)
}

func TestExtractorVisionNeedsAPageImage(t *testing.T) {
	p := &stubProvider{vision: []entity.ExtractedField{{FieldName: "x"}}}
	e := NewExtractor(p, nil)

	got := e.Extract(context.Background(), constants.MimeScannedPDF, Request{Specs: noticeSpecs()})
	assert.Nil(t, got)
	assert.Zero(t, p.visionCalls)
}

func TestExtractorDegradesErrorsToEmpty(t *testing.T) {
	p := &stubProvider{err: errors.New("rate limited")}
	e := NewExtractor(p, nil)

	got := e.Extract(context.Background(), constants.MimeTextPDF, Request{Specs: noticeSpecs(), Text: "t"})
	assert.Nil(t, got)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got = e.Extract(ctx, constants.MimeTextPDF, Request{Specs: noticeSpecs(), Text: "t"})
	assert.Nil(t, got, "cancellation also yields no partial data")
}

func TestExtractorIgnoresUnsupportedMime(t *testing.T) {
	p := &stubProvider{text: []entity.ExtractedField{{FieldName: "x"}}}
	e := NewExtractor(p, nil)

	got := e.Extract(context.Background(), constants.MimeUnsupported, Request{Specs: noticeSpecs(), Text: "t"})
	assert.Nil(t, got)
	require.Zero(t, p.textCalls)
}
