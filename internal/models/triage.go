// internal/models/triage.go
package models

import (
	"fmt"
	"sort"
	"strings"
)

// SeverityLevel is the level of care a report maps to.
type SeverityLevel string

const (
	SeverityGeneral  SeverityLevel = "General"
	SeverityBLS      SeverityLevel = "BLS"
	SeverityALS      SeverityLevel = "ALS"
	SeverityCritical SeverityLevel = "Critical"
)

var severityRank = map[SeverityLevel]int{
	SeverityGeneral:  0,
	SeverityBLS:      1,
	SeverityALS:      2,
	SeverityCritical: 3,
}

// SeverityLevels lists every level in ascending urgency.
func SeverityLevels() []SeverityLevel {
	return []SeverityLevel{SeverityGeneral, SeverityBLS, SeverityALS, SeverityCritical}
}

// Rank returns the urgency rank of the level, or -1 for an unknown label.
func (s SeverityLevel) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return -1
}

// AtLeast reports whether s is as urgent as other or more.
func (s SeverityLevel) AtLeast(other SeverityLevel) bool {
	return s.Rank() >= other.Rank() && s.Rank() >= 0
}

func (s SeverityLevel) IsValid() bool {
	return s.Rank() >= 0
}

func (s SeverityLevel) String() string {
	return string(s)
}

// ParseSeverityLevel accepts a level label in any case ("als", "CRITICAL").
func ParseSeverityLevel(label string) (SeverityLevel, error) {
	trimmed := strings.TrimSpace(label)
	for _, lvl := range SeverityLevels() {
		if strings.EqualFold(trimmed, string(lvl)) {
			return lvl, nil
		}
	}
	return "", fmt.Errorf("unknown severity level %q", label)
}

// FlagSet is a de-duplicated, lexicographically sorted set of symptom flags.
type FlagSet []string

// NewFlagSet builds a FlagSet from flags in any order. Entries are trimmed;
// a blank entry is kept and still counts as a reported symptom.
func NewFlagSet(flags ...string) FlagSet {
	seen := make(map[string]struct{}, len(flags))
	out := make(FlagSet, 0, len(flags))
	for _, f := range flags {
		f = strings.TrimSpace(f)
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func (fs FlagSet) Contains(flag string) bool {
	i := sort.SearchStrings(fs, flag)
	return i < len(fs) && fs[i] == flag
}

// ContainsAny reports whether the set shares at least one flag with others.
func (fs FlagSet) ContainsAny(others ...string) bool {
	for _, o := range others {
		if fs.Contains(o) {
			return true
		}
	}
	return false
}

func (fs FlagSet) IsEmpty() bool {
	return len(fs) == 0
}

// RawReport is the free-text input to the extractor.
type RawReport struct {
	Text     string `json:"text"`
	AgeYears *int   `json:"age_years,omitempty"`
}

// ExtractedSignals is the structured record produced from a RawReport.
type ExtractedSignals struct {
	AgeYears *int    `json:"age_years"`
	FreeText string  `json:"free_text"`
	Flags    FlagSet `json:"flags"`
}

// Classification is the level of care assigned to a set of signals.
type Classification struct {
	LevelOfCare SeverityLevel `json:"level_of_care"`
	Flags       FlagSet       `json:"flags"`
	AgeYears    *int          `json:"age_years"`
}
