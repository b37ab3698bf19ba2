package llm

import (
	"encoding/json"
	"strings"
)

const maxPromptText = 6000

func buildSystemPrompt(req Request) string {
	parts := []string{
		"You are an extraction engine for UK residential tenancy paperwork.",
		"Return ONLY JSON that matches the JSON Schema provided.",
		"The document is believed to be: " + string(req.DocumentType) + ".",
		"Use ISO-8601 dates (YYYY-MM-DD); UK documents write dates day-first.",
		"Money values are plain decimals without currency symbols.",
		"Report a confidence between 0 and 1 for every field you return.",
		"Omit any field you cannot read from the document. Never output null and never guess.",
	}
	var lines []string
	for _, fs := range req.Specs {
		lines = append(lines, "- "+fs.Name+": "+fs.Prompt)
	}
	parts = append(parts, "Fields to extract:\n"+strings.Join(lines, "\n"))
	return strings.Join(parts, " ")
}

func buildUserPrompt(req Request, schema map[string]any) string {
	var b strings.Builder
	if req.FilenameHint != "" {
		b.WriteString("Filename: ")
		b.WriteString(req.FilenameHint)
		b.WriteString("\n")
	}
	if req.DeclaredCategory != "" {
		b.WriteString("Uploaded as: ")
		b.WriteString(string(req.DeclaredCategory))
		b.WriteString("\n")
	}
	if req.Text != "" {
		b.WriteString("\nDocument text:\n")
		if len(req.Text) > maxPromptText {
			b.WriteString(req.Text[:maxPromptText])
		} else {
			b.WriteString(req.Text)
		}
	}
	b.WriteString("\n\nReturn ONLY JSON matching this schema:\n")
	b.WriteString(mustJSON(schema))
	return b.String()
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
