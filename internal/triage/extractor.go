package triage

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"triage-workers/internal/models"
)

const (
	MinAgeYears = 0
	MaxAgeYears = 120
)

// ageRx matches a 1-3 digit number followed by a year unit ("34 yr", "7years", "80 Y").
var ageRx = regexp.MustCompile(`(?i)\b(\d{1,3})\s*(?:y|yr|yrs|years?)\b`)

// Extractor turns free text into ExtractedSignals using an injected vocabulary.
// It holds no mutable state and is safe for concurrent use.
type Extractor struct {
	vocab Vocabulary
}

func NewExtractor(vocab Vocabulary) *Extractor {
	return &Extractor{vocab: vocab}
}

// NewDefaultExtractor uses DefaultVocabulary.
func NewDefaultExtractor() *Extractor {
	return NewExtractor(DefaultVocabulary())
}

func (e *Extractor) Vocabulary() Vocabulary {
	return e.vocab
}

// Extract resolves age and symptom flags from text. An explicit ageHint is used
// verbatim; otherwise the first age expression in text is parsed and dropped if
// it falls outside [0,120].
func (e *Extractor) Extract(text string, ageHint *int) (*models.ExtractedSignals, error) {
	if strings.TrimSpace(text) == "" {
		return nil, invalidField("text", "is required and must not be blank")
	}

	age := copyInt(ageHint)
	if age == nil {
		age = ExtractAge(text)
	}

	return &models.ExtractedSignals{
		AgeYears: age,
		FreeText: text,
		Flags:    e.Flags(text),
	}, nil
}

// Flags returns the symptom categories found in text, sorted.
func (e *Extractor) Flags(text string) models.FlagSet {
	return models.NewFlagSet(e.vocab.Match(lower(text))...)
}

// ExtractAge returns the first age expression in text, or nil when there is none
// or it is out of range.
func ExtractAge(text string) *int {
	m := ageRx.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	age, err := strconv.Atoi(m[1])
	if err != nil || age < MinAgeYears || age > MaxAgeYears {
		return nil
	}
	return &age
}

// lower builds a fresh caser per call; cases.Caser is not safe to share.
func lower(s string) string {
	return cases.Lower(language.Und).String(s)
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
