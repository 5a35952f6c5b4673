package extractsignals

type Input struct {
	Text     string `json:"text"`
	AgeYears *int   `json:"age_years,omitempty"`
}

// Output carries the flags twice: "symptoms" is the name older process
// models read.
type Output struct {
	AgeYears *int     `json:"age_years"`
	FreeText string   `json:"free_text"`
	Flags    []string `json:"flags"`
	Symptoms []string `json:"symptoms"`
}
