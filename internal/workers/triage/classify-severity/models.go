package classifyseverity

type Input struct {
	Flags    []string `json:"flags"`
	AgeYears *int     `json:"age_years,omitempty"`
}

type Output struct {
	LevelOfCare string   `json:"level_of_care"`
	Flags       []string `json:"flags"`
	AgeYears    *int     `json:"age_years"`
}
