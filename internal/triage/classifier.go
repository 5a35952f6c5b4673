package triage

import "triage-workers/internal/models"

// Age bounds outside which a flagged patient is escalated to ALS.
const (
	PaediatricAgeBelow = 12
	ElderlyAgeAbove    = 75
)

var (
	criticalFlags = []string{FlagUnconscious, FlagBleeding}
	alsFlags      = []string{FlagChestPain, FlagBreathlessness, FlagSeizure, FlagStrokeSigns}
)

// Classify maps flags and an optional age to a level of care. Rules are
// evaluated top to bottom and the first match wins:
//
//	unconscious|bleeding                          -> Critical
//	chest_pain|breathlessness|seizure|stroke_signs -> ALS
//	any flag and age < 12 or age > 75             -> ALS
//	any flag                                      -> BLS
//	otherwise                                     -> General
func Classify(flags []string, age *int) models.SeverityLevel {
	set := models.NewFlagSet(flags...)

	switch {
	case set.ContainsAny(criticalFlags...):
		return models.SeverityCritical
	case set.ContainsAny(alsFlags...):
		return models.SeverityALS
	case !set.IsEmpty() && age != nil && (*age < PaediatricAgeBelow || *age > ElderlyAgeAbove):
		return models.SeverityALS
	case !set.IsEmpty():
		return models.SeverityBLS
	default:
		return models.SeverityGeneral
	}
}

// ClassifySignals classifies an extractor result.
func ClassifySignals(signals *models.ExtractedSignals) models.Classification {
	if signals == nil {
		return models.Classification{LevelOfCare: models.SeverityGeneral, Flags: models.FlagSet{}}
	}
	return models.Classification{
		LevelOfCare: Classify(signals.Flags, signals.AgeYears),
		Flags:       models.NewFlagSet(signals.Flags...),
		AgeYears:    copyInt(signals.AgeYears),
	}
}
