package audit

import "github.com/abhisek/qbank/internal/llm"

// ReviewSchema is the JSON shape the model must answer in.
var ReviewSchema = &llm.Schema{
	Name:        "answer-review",
	Description: "Whether the answers marked correct for a multiple-choice question are right",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"verdict": map[string]any{
				"type":        "string",
				"enum":        []any{string(VerdictAgree), string(VerdictDisagree), string(VerdictUnsure)},
				"description": "agree if the marked answers are exactly the correct ones, disagree if not, unsure if it cannot be decided",
			},
			"suggested_correct": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "integer", "minimum": 1},
				"description": "Numbers of the answers that should be marked correct",
			},
			"rationale": map[string]any{
				"type":        "string",
				"description": "One or two sentences explaining the verdict",
			},
		},
		"required":             []any{"verdict", "suggested_correct", "rationale"},
		"additionalProperties": false,
	},
}
