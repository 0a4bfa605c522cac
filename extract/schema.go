// Package extract implements a human-in-the-loop structured data
// extraction agent. An LLM converts free text into a fixed-schema Record,
// execution pauses for human review, and the loop regenerates on rejection
// until the reviewer accepts, at which point the record is finalized.
//
// Graph execution, interruption and checkpoint persistence are provided by
// langgraphgo; this package supplies the node callbacks, the routing logic
// and a thread-scoped Session wrapper.
package extract

import (
	"encoding/json"
	"fmt"

	"github.com/tmc/langchaingo/llms"
)

// Record is a general-purpose structured record extracted from user text.
// The field names on the wire match the original extraction schema.
type Record struct {
	// Kind classifies the request, e.g. "reservation", "info_request", "contact".
	Kind string `json:"data_type"`

	// Entity is the main entity referenced in the input.
	Entity string `json:"primary_entity"`

	// Attributes holds key attributes of the entity as key-value pairs.
	Attributes map[string]any `json:"attributes,omitempty"`

	// When is the relevant date/time, ISO format preferred.
	When string `json:"datetime,omitempty"`

	// Priority is an optional priority level between 1 and 5.
	Priority int `json:"priority,omitempty"`

	// Tags categorize the record.
	Tags []string `json:"tags,omitempty"`

	// Notes carries additional context.
	Notes string `json:"notes,omitempty"`
}

// Validate checks the basic field constraints.
func (r *Record) Validate() error {
	if r.Kind == "" {
		return fmt.Errorf("record: data_type is required")
	}
	if r.Entity == "" {
		return fmt.Errorf("record: primary_entity is required")
	}
	if r.Priority != 0 && (r.Priority < 1 || r.Priority > 5) {
		return fmt.Errorf("record: priority %d out of range 1-5", r.Priority)
	}
	return nil
}

// JSON renders the record as indented JSON for display.
func (r *Record) JSON() string {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Sprintf("{%q: %q}", "error", err.Error())
	}
	return string(data)
}

const extractionToolName = "record_extraction"

// extractionTool describes the Record schema as a function definition so
// the model is constrained to schema-valid output.
var extractionTool = llms.Tool{
	Type: "function",
	Function: &llms.FunctionDefinition{
		Name:        extractionToolName,
		Description: "Record structured information extracted from the user's text.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"data_type": map[string]any{
					"type":        "string",
					"description": "Type of data extracted, e.g. 'reservation', 'info_request', 'contact'",
				},
				"primary_entity": map[string]any{
					"type":        "string",
					"description": "Main entity referenced in the input (person, place, concept, etc.)",
				},
				"attributes": map[string]any{
					"type":        "object",
					"description": "Key attributes of the entity as key-value pairs",
				},
				"datetime": map[string]any{
					"type":        "string",
					"description": "Relevant date/time if applicable, ISO format (YYYY-MM-DD) preferred",
				},
				"priority": map[string]any{
					"type":        "integer",
					"description": "Priority level (1-5) if applicable",
				},
				"tags": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Relevant tags for categorization",
				},
				"notes": map[string]any{
					"type":        "string",
					"description": "Additional notes or context",
				},
			},
			"required": []string{"data_type", "primary_entity"},
		},
	},
}

// parseRecord decodes and validates function-call arguments into a Record.
func parseRecord(arguments string) (*Record, error) {
	var rec Record
	if err := json.Unmarshal([]byte(arguments), &rec); err != nil {
		return nil, fmt.Errorf("decode extraction arguments: %w", err)
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return &rec, nil
}
