package notifydispatch

import (
	"triage-workers/internal/common/validation"
	"triage-workers/internal/models"
)

func GetInputSchema() validation.JSONSchema {
	levels := make([]string, 0, 4)
	for _, lvl := range models.SeverityLevels() {
		levels = append(levels, lvl.String())
	}

	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"level_of_care", "nearest_hospital", "distance_km"},
		Properties: map[string]validation.Property{
			"level_of_care": {
				Type: "string",
				Enum: levels,
			},
			"nearest_hospital": {
				Type:      "string",
				MinLength: validation.Int(1),
			},
			"phone": {
				Type:     "string",
				Nullable: true,
			},
			"distance_km": {
				Type:    "number",
				Minimum: validation.Float(0),
			},
			"free_text": {
				Type:     "string",
				Nullable: true,
			},
			"case_id": {
				Type:      "string",
				Nullable:  true,
				MaxLength: validation.Int(128),
			},
		},
		AdditionalProperties: true,
	}
}
