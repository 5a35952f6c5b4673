package extractsignals

import (
	"triage-workers/internal/common/validation"
	"triage-workers/internal/triage"
)

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"text"},
		Properties: map[string]validation.Property{
			"text": {
				Type:        "string",
				Description: "Free-text description of the situation",
				MinLength:   validation.Int(1),
			},
			"age_years": {
				Type:        "integer",
				Description: "Known patient age, used instead of parsing the text",
				Nullable:    true,
				Minimum:     validation.Float(triage.MinAgeYears),
				Maximum:     validation.Float(triage.MaxAgeYears),
			},
		},
		AdditionalProperties: true,
	}
}
