package entity

import "github.com/kalambet/contractd/internal/engine"

const systemPrompt = `You are a named entity recognition engine for legal and commercial contracts. Read the contract text and list every organization (company, corporation, agency, institution) it names. Your output must be ONLY a single valid JSON object that conforms to the provided schema. Do not include any other text, prose, or markdown.

Rules:
- List organizations in the order they first appear in the text.
- Copy each name exactly as written in the text, including suffixes such as Inc., LLC or Ltd.
- Do not list people, places, products or document titles.
- Return an empty list when the text names no organization.`

// BuildPrompt constructs the chat messages for organization extraction.
func BuildPrompt(text string) []engine.Message {
	return []engine.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: text},
	}
}

func organizationsSchema() *engine.Schema {
	return &engine.Schema{
		Type: "object",
		Properties: map[string]engine.SchemaProperty{
			"organizations": {
				Type:        "array",
				Description: "Organization names in order of first appearance",
				Items:       &engine.SchemaProperty{Type: "string"},
			},
		},
		Required: []string{"organizations"},
	}
}
