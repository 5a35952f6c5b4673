package locatenearest

import "triage-workers/internal/common/validation"

// Coordinate ranges are checked by the locator so the error names the field
// the same way for every caller. parseInput requires severity or its
// level_of_care fallback.
func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"lat", "lng"},
		Properties: map[string]validation.Property{
			"severity": {
				Type:        "string",
				Description: "Level of care, passed through to the result",
				Nullable:    true,
			},
			"level_of_care": {
				Type:        "string",
				Description: "Used as severity when severity is absent",
				Nullable:    true,
			},
			"lat": {
				Type:        "number",
				Description: "Incident latitude in decimal degrees",
			},
			"lng": {
				Type:        "number",
				Description: "Incident longitude in decimal degrees",
			},
		},
		AdditionalProperties: true,
	}
}
