package notifydispatch

import (
	"fmt"
	"strings"
)

// smsLimit keeps an alert inside a single concatenated SMS.
const smsLimit = 320

const (
	subjectTemplate = "[{{level}}] Dispatch alert{{case}}"
	bodyTemplate    = "Level of care: {{level}}\n" +
		"Nearest facility: {{hospital}} ({{distance}} km)\n" +
		"Facility phone: {{phone}}\n" +
		"Report: {{text}}"
)

func messageData(input *Input) map[string]string {
	phone := "unknown"
	if input.Phone != nil && *input.Phone != "" {
		phone = *input.Phone
	}
	caseSuffix := ""
	if input.CaseID != "" {
		caseSuffix = " " + input.CaseID
	}
	return map[string]string{
		"level":    input.LevelOfCare,
		"hospital": input.NearestHospital,
		"distance": fmt.Sprintf("%.2f", input.DistanceKm),
		"phone":    phone,
		"text":     strings.TrimSpace(input.FreeText),
		"case":     caseSuffix,
	}
}

// render substitutes {{key}} placeholders; unknown placeholders are dropped.
func render(tmpl string, data map[string]string) string {
	pairs := make([]string, 0, len(data)*2)
	for k, v := range data {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	result := strings.NewReplacer(pairs...).Replace(tmpl)

	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		result = result[:start] + result[start+end+2:]
	}
	return result
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}
