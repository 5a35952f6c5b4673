package triage

import (
	"sort"
	"strings"
)

// Symptom categories recognised by the default vocabulary.
const (
	FlagChestPain      = "chest_pain"
	FlagBreathlessness = "breathlessness"
	FlagUnconscious    = "unconscious"
	FlagBleeding       = "bleeding"
	FlagSeizure        = "seizure"
	FlagStrokeSigns    = "stroke_signs"
	FlagFever          = "fever"
	FlagPain           = "pain"
)

// Category is one symptom flag and the phrases that trigger it.
type Category struct {
	Name    string
	Phrases []string
}

// Vocabulary maps symptom categories to trigger phrases. It is immutable once
// built; accessors hand out copies.
type Vocabulary struct {
	categories []Category
}

// NewVocabulary builds a Vocabulary from a category -> phrases map. Phrases are
// lower-cased and blanks dropped; categories without phrases are skipped.
// Categories are kept in name order so scans are deterministic.
func NewVocabulary(phrases map[string][]string) Vocabulary {
	names := make([]string, 0, len(phrases))
	for name := range phrases {
		if strings.TrimSpace(name) != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	cats := make([]Category, 0, len(names))
	for _, name := range names {
		var list []string
		for _, p := range phrases[name] {
			p = lower(strings.TrimSpace(p))
			if p != "" {
				list = append(list, p)
			}
		}
		if len(list) == 0 {
			continue
		}
		cats = append(cats, Category{Name: strings.TrimSpace(name), Phrases: list})
	}
	return Vocabulary{categories: cats}
}

// DefaultVocabulary is the EMS phrase list the extractor ships with.
func DefaultVocabulary() Vocabulary {
	return NewVocabulary(map[string][]string{
		FlagChestPain:      {"chest pain", "pressure in chest", "tight chest"},
		FlagBreathlessness: {"short of breath", "breathless", "difficulty breathing"},
		FlagUnconscious:    {"unconscious", "not responding", "passed out", "fainted"},
		FlagBleeding:       {"bleeding", "profuse bleed", "blood everywhere"},
		FlagSeizure:        {"seizure", "fitting", "convulsion"},
		FlagStrokeSigns:    {"face droop", "arm weakness", "slurred speech", "stroke"},
		FlagFever:          {"fever", "temperature", "high temp", "pyrexia"},
		FlagPain:           {"pain", "ache", "hurts"},
	})
}

// Categories returns a copy of the categories in scan order.
func (v Vocabulary) Categories() []Category {
	out := make([]Category, len(v.categories))
	for i, c := range v.categories {
		out[i] = Category{Name: c.Name, Phrases: append([]string(nil), c.Phrases...)}
	}
	return out
}

func (v Vocabulary) Len() int {
	return len(v.categories)
}

// Match returns the categories with at least one phrase contained in lowered.
// lowered must already be lower-cased.
func (v Vocabulary) Match(lowered string) []string {
	var found []string
	for _, c := range v.categories {
		for _, p := range c.Phrases {
			if strings.Contains(lowered, p) {
				found = append(found, c.Name)
				break
			}
		}
	}
	return found
}
