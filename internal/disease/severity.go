package disease

import (
	"fmt"
	"strings"
)

// Severity is the triage tier attached to a candidate disease.
type Severity string

const (
	Low    Severity = "low"
	Medium Severity = "medium"
	High   Severity = "high"
)

// Language selects how severities are rendered in responses.
type Language string

const (
	Vietnamese Language = "vi"
	English    Language = "en"
)

// elevatedProbability promotes an otherwise unlisted disease to Medium.
const elevatedProbability = 0.45

var (
	highRisk = setOf(
		"myocardial infarction",
		"heart failure",
		"stroke",
		"pulmonary embolism",
		"sepsis",
		"pulmonary edema",
		"severe asthma",
		"gastric hemorrhage",
	)
	mediumRisk = setOf(
		"pneumonia",
		"appendicitis",
		"kidney stones",
		"kidney infection",
		"bronchitis",
		"dengue",
		"diabetes type 2",
		"hypertension",
	)
	severityLabels = map[Language]map[Severity]string{
		Vietnamese: {Low: "nhẹ", Medium: "trung bình", High: "nặng"},
		English:    {Low: "low", Medium: "medium", High: "high"},
	}
)

// Valid reports whether s is one of the three tiers.
func (s Severity) Valid() bool {
	return s == Low || s == Medium || s == High
}

// Display renders s in lang, falling back to the raw tier name.
func (s Severity) Display(lang Language) string {
	if label, ok := severityLabels[lang][s]; ok {
		return label
	}
	return string(s)
}

// ParseSeverity accepts a tier name in any case.
func ParseSeverity(raw string) (Severity, error) {
	s := Severity(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown severity %q", raw)
	}
	return s, nil
}

// ParseLanguage accepts "vi" or "en".
func ParseLanguage(raw string) (Language, error) {
	lang := Language(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := severityLabels[lang]; !ok {
		return "", fmt.Errorf("unsupported display language %q", raw)
	}
	return lang, nil
}

// ClassifySeverity picks the tier for a raw label. A non-empty override always
// wins; then the fixed high and medium lists; then the probability cut.
func ClassifySeverity(label string, probability float64, override Severity) Severity {
	if override != "" {
		return override
	}
	key := strings.ToLower(label)
	if _, ok := highRisk[key]; ok {
		return High
	}
	if _, ok := mediumRisk[key]; ok {
		return Medium
	}
	if probability >= elevatedProbability {
		return Medium
	}
	return Low
}

func setOf(values ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}
