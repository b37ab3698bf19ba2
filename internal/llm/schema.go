package llm

import (
	"github.com/landlorddocs/smartreview/internal/config"
)

// BuildFieldJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map. We pass a rendering of it to the model as a structured-output
// constraint and also use it locally to validate what comes back.
func BuildFieldJSONSchema(specs []config.FieldSpec) map[string]any {
	names := make([]string, 0, len(specs))
	for _, fs := range specs {
		names = append(names, fs.Name)
	}

	item := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"name":       map[string]any{"type": "string", "enum": names},
			"value":      map[string]any{"type": "string", "minLength": 1},
			"confidence": map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
		},
		"required": []string{"name", "value", "confidence"},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"fields": map[string]any{"type": "array", "items": item},
		},
		"required": []string{"fields"},
	}
}
