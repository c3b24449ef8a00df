package analyzer

import (
	"strings"

	"advisor-backend/internal/catalog"
)

const questionFeatureExamples = 3

// ClarificationQuestions returns follow-up questions for the dimensions the
// analysis left unresolved, in priority order: business type, platform,
// features, ambiguous terms. When nothing is unresolved but clarity is still
// low, or when the caller asks anyway, a single details question is returned.
// The list never exceeds Settings.MaxQuestions.
func (a *Analyzer) ClarificationQuestions(an Analysis) []string {
	s := a.cat.Settings
	q := s.Questions
	var out []string

	if an.BusinessType == catalog.BusinessUnknown {
		out = append(out, fill(q.BusinessType, map[string]string{
			"types": a.businessLabels(nil),
		}))
	}
	if an.PlatformSignal == catalog.PlatformUnknown {
		out = append(out, fill(q.Platform, map[string]string{
			"platforms": a.platformLabels(),
		}))
	}
	if len(an.DetectedFeatures) == 0 {
		out = append(out, fill(q.Features, map[string]string{
			"features": a.featureExamples(an.BusinessType),
		}))
	}
	if len(an.AmbiguousTerms) > 0 {
		var owners []catalog.BusinessType
		quoted := make([]string, 0, len(an.AmbiguousTerms))
		for _, term := range an.AmbiguousTerms {
			quoted = append(quoted, `"`+term+`"`)
			for _, bt := range a.termOwners[term] {
				if !containsBusiness(owners, bt) {
					owners = append(owners, bt)
				}
			}
		}
		out = append(out, fill(q.Ambiguous, map[string]string{
			"terms": joinWords(quoted, "and"),
			"types": a.businessLabels(owners),
		}))
	}
	if len(out) == 0 || (an.ClarityScore < s.ClarityThreshold && len(out) < s.MaxQuestions) {
		out = append(out, q.Details)
	}
	if len(out) > s.MaxQuestions {
		out = out[:s.MaxQuestions]
	}
	return out
}

func (a *Analyzer) businessLabels(only []catalog.BusinessType) string {
	var labels []string
	for _, bt := range a.cat.BusinessTypes {
		if bt.ID == catalog.BusinessGeneric {
			continue
		}
		if only != nil && !containsBusiness(only, bt.ID) {
			continue
		}
		labels = append(labels, strings.ToLower(labelOr(bt.Label, string(bt.ID))))
	}
	return joinWords(labels, "or")
}

func (a *Analyzer) platformLabels() string {
	labels := make([]string, 0, len(a.cat.Platforms))
	for _, p := range a.cat.Platforms {
		labels = append(labels, labelOr(p.Label, string(p.ID)))
	}
	return joinWords(labels, "or")
}

func (a *Analyzer) featureExamples(bt catalog.BusinessType) string {
	entries := a.cat.FeaturesFor(bt)
	if len(entries) == 0 {
		entries = a.cat.FeaturesFor(catalog.BusinessGeneric)
	}
	var names []string
	for _, entry := range entries {
		if len(names) == questionFeatureExamples {
			break
		}
		if f, ok := a.cat.Feature(entry.Feature); ok {
			names = append(names, strings.ToLower(f.Name))
		}
	}
	return joinWords(names, "or")
}

func fill(template string, values map[string]string) string {
	out := template
	for key, value := range values {
		out = strings.ReplaceAll(out, "{{"+key+"}}", value)
	}
	return out
}

// joinWords renders "a", "a or b", "a, b or c".
func joinWords(items []string, conj string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}
	return strings.Join(items[:len(items)-1], ", ") + " " + conj + " " + items[len(items)-1]
}

func labelOr(label, fallback string) string {
	if strings.TrimSpace(label) == "" {
		return fallback
	}
	return label
}

func containsBusiness(items []catalog.BusinessType, bt catalog.BusinessType) bool {
	for _, item := range items {
		if item == bt {
			return true
		}
	}
	return false
}
