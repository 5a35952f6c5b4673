package classifyseverity

import (
	"triage-workers/internal/common/validation"
	"triage-workers/internal/triage"
)

// GetInputSchema accepts the flags under either "flags" or the older
// "symptoms" name; parseInput requires one of them.
func GetInputSchema() validation.JSONSchema {
	flagItems := &validation.Property{Type: "string"}
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"flags": {
				Type:        "array",
				Description: "Symptom flags from the extractor",
				Items:       flagItems,
			},
			"symptoms": {
				Type:        "array",
				Description: "Alias of flags",
				Items:       flagItems,
			},
			"age_years": {
				Type:        "integer",
				Description: "Patient age in years",
				Nullable:    true,
				Minimum:     validation.Float(triage.MinAgeYears),
				Maximum:     validation.Float(triage.MaxAgeYears),
			},
		},
		AdditionalProperties: true,
	}
}
