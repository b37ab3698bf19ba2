package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// CheckResponseShape rejects model output that does not match the structured
// output schema we asked for. A rejected response is treated the same as an
// inference failure: no probabilistic candidates for this file.
func CheckResponseShape(schema map[string]any, payload []byte) error {
	compiled, err := compileSchema(schema)
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if err := compiled.Validate(doc); err != nil {
		return fmt.Errorf("response does not match schema: %w", err)
	}
	return nil
}

func compileSchema(schema map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("extraction.json", bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("register schema: %w", err)
	}
	return c.Compile("extraction.json")
}
