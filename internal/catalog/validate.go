package catalog

import (
	"fmt"
	"math"
	"strings"
)

const weightTolerance = 1e-6

// Validate checks that every table is complete and internally consistent.
// All problems are reported together, wrapped in ErrInvalidCatalog.
func (c *Catalog) Validate() error {
	var v validator
	v.settings(c.Settings)
	v.businessTypes(c.BusinessTypes)
	v.platforms(c.Platforms)
	v.features(c.Features)
	v.featureCatalog(c)
	v.techStacks(c)
	v.signals(c.Signals)
	if len(v.problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidCatalog, strings.Join(v.problems, "; "))
}

type validator struct {
	problems []string
}

func (v *validator) addf(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) settings(s Settings) {
	if !unit(s.ClarityThreshold) {
		v.addf("settings.clarity_threshold must be within [0,1]")
	}
	w := s.ClarityWeights
	if w.Business < 0 || w.Platform < 0 || w.Specificity < 0 || w.Features < 0 {
		v.addf("settings.clarity_weights must be non-negative")
	}
	if math.Abs(w.Sum()-1) > weightTolerance {
		v.addf("settings.clarity_weights must sum to 1, got %g", w.Sum())
	}
	if s.SpecificityCap <= 0 || s.SpecificityCap > 1 {
		v.addf("settings.specificity_cap must be within (0,1]")
	}
	if s.FeatureCap <= 0 {
		v.addf("settings.feature_cap must be positive")
	}
	if s.ConfidenceSaturation < 0 {
		v.addf("settings.confidence_saturation must not be negative")
	}
	if s.VariancePct < 0 || s.VariancePct >= 1 {
		v.addf("settings.variance_pct must be within [0,1)")
	}
	if s.MaxQuestions <= 0 {
		v.addf("settings.max_questions must be positive")
	}
	if s.FeatureTopK <= 0 {
		v.addf("settings.feature_top_k must be positive")
	}
	if !s.DefaultPlatform.Valid() {
		v.addf("settings.default_platform %q is not a platform", s.DefaultPlatform)
	}
	if !unit(s.FallbackPlatformConfidence) {
		v.addf("settings.fallback_platform_confidence must be within [0,1]")
	}
	if !unit(s.RequirementPlatformConfidence) {
		v.addf("settings.requirement_platform_confidence must be within [0,1]")
	}
	if !unit(s.DetectedFeatureBoost) {
		v.addf("settings.detected_feature_boost must be within [0,1]")
	}
	if !unit(s.ExplicitFeatureRelevance) {
		v.addf("settings.explicit_feature_relevance must be within [0,1]")
	}

	seen := map[string]bool{}
	total := 0.0
	for i, phase := range s.Phases {
		name := strings.TrimSpace(phase.Name)
		if name == "" {
			v.addf("settings.phases[%d] has no name", i)
		}
		if seen[name] {
			v.addf("settings.phases[%d] duplicates %q", i, name)
		}
		seen[name] = true
		if phase.Share <= 0 {
			v.addf("settings.phases[%d] share must be positive", i)
		}
		total += phase.Share
	}
	if math.Abs(total-1) > weightTolerance {
		v.addf("settings.phases shares must sum to 1, got %g", total)
	}
}

func (v *validator) businessTypes(items []BusinessProfile) {
	seen := map[BusinessType]bool{}
	for i, bt := range items {
		if !bt.ID.Valid() {
			v.addf("business_types[%d] id %q is not a business type", i, bt.ID)
			continue
		}
		if seen[bt.ID] {
			v.addf("business_types[%d] duplicates %q", i, bt.ID)
		}
		seen[bt.ID] = true
		if !bt.PreferredPlatform.Valid() {
			v.addf("business_types.%s preferred_platform %q is not a platform", bt.ID, bt.PreferredPlatform)
		}
		if bt.CostMultiplier <= 0 {
			v.addf("business_types.%s cost_multiplier must be positive", bt.ID)
		}
		if bt.ID == BusinessGeneric && len(bt.Keywords) > 0 {
			v.addf("business_types.generic must not declare keywords")
		}
		v.keywords("business_types."+string(bt.ID), bt.Keywords)
	}
	for _, bt := range businessTypes {
		if !seen[bt] {
			v.addf("business_types is missing %q", bt)
		}
	}
}

func (v *validator) platforms(items []PlatformProfile) {
	seen := map[Platform]bool{}
	for i, p := range items {
		if !p.ID.Valid() {
			v.addf("platforms[%d] id %q is not a platform", i, p.ID)
			continue
		}
		if seen[p.ID] {
			v.addf("platforms[%d] duplicates %q", i, p.ID)
		}
		seen[p.ID] = true
		if p.BaseCost <= 0 {
			v.addf("platforms.%s base_cost must be positive", p.ID)
		}
		if p.BaseDays <= 0 {
			v.addf("platforms.%s base_days must be positive", p.ID)
		}
		v.keywords("platforms."+string(p.ID), p.Keywords)
	}
	for _, p := range platforms {
		if !seen[p] {
			v.addf("platforms is missing %q", p)
		}
	}
}

func (v *validator) keywords(path string, items []Keyword) {
	for i, kw := range items {
		if strings.TrimSpace(kw.Term) == "" {
			v.addf("%s.keywords[%d] is empty", path, i)
		}
		if kw.Weight <= 0 {
			v.addf("%s.keywords[%d] weight must be positive", path, i)
		}
	}
}

func (v *validator) features(items []Feature) {
	seen := map[FeatureID]bool{}
	for i, f := range items {
		if strings.TrimSpace(string(f.ID)) == "" {
			v.addf("features[%d] has no id", i)
			continue
		}
		if seen[f.ID] {
			v.addf("features[%d] duplicates %q", i, f.ID)
		}
		seen[f.ID] = true
		if strings.TrimSpace(f.Name) == "" {
			v.addf("features.%s has no name", f.ID)
		}
		if len(f.Platforms) == 0 {
			v.addf("features.%s declares no platforms", f.ID)
		}
		for _, p := range f.Platforms {
			if !p.Valid() {
				v.addf("features.%s platform %q is not a platform", f.ID, p)
			}
		}
		if f.CostWeight < 0 {
			v.addf("features.%s cost_weight must not be negative", f.ID)
		}
		if f.DurationDays < 0 {
			v.addf("features.%s duration_days must not be negative", f.ID)
		}
		for j, kw := range f.Keywords {
			if strings.TrimSpace(kw) == "" {
				v.addf("features.%s.keywords[%d] is empty", f.ID, j)
			}
		}
	}
}

func (v *validator) featureCatalog(c *Catalog) {
	if len(c.FeatureCatalog[BusinessGeneric]) == 0 {
		v.addf("feature_catalog.generic is required")
	}
	for _, bt := range businessTypes {
		entries, ok := c.FeatureCatalog[bt]
		if !ok {
			continue
		}
		seen := map[FeatureID]bool{}
		for i, entry := range entries {
			path := fmt.Sprintf("feature_catalog.%s[%d]", bt, i)
			if _, ok := c.Feature(entry.Feature); !ok {
				v.addf("%s references unknown feature %q", path, entry.Feature)
			}
			if seen[entry.Feature] {
				v.addf("%s duplicates %q", path, entry.Feature)
			}
			seen[entry.Feature] = true
			if !unit(entry.Relevance) {
				v.addf("%s relevance must be within [0,1]", path)
			}
			for _, p := range entry.Platforms {
				if !p.Valid() {
					v.addf("%s platform %q is not a platform", path, p)
				}
			}
		}
	}
	for bt := range c.FeatureCatalog {
		if !bt.Valid() {
			v.addf("feature_catalog key %q is not a business type", bt)
		}
	}
}

func (v *validator) techStacks(c *Catalog) {
	for i, rule := range c.TechStacks {
		path := fmt.Sprintf("tech_stacks[%d]", i)
		if !rule.Platform.Valid() {
			v.addf("%s platform %q is not a platform", path, rule.Platform)
		}
		if !rule.BusinessType.Valid() {
			v.addf("%s business_type %q is not a business type", path, rule.BusinessType)
		}
		for _, id := range rule.RequiresAny {
			if _, ok := c.Feature(id); !ok {
				v.addf("%s requires unknown feature %q", path, id)
			}
		}
		if strings.TrimSpace(rule.Bundle.Name) == "" {
			v.addf("%s bundle has no name", path)
		}
		if len(rule.Bundle.Components) == 0 {
			v.addf("%s bundle has no components", path)
		}
	}
}

func (v *validator) signals(s Signals) {
	lists := []struct {
		path  string
		terms []string
	}{
		{"signals.portability.high", s.Portability.High},
		{"signals.portability.medium", s.Portability.Medium},
		{"signals.portability.low", s.Portability.Low},
		{"signals.notification.major", s.Notification.Major},
		{"signals.notification.minor", s.Notification.Minor},
		{"signals.urgency", s.Urgency},
		{"signals.budget.cues", s.Budget.Cues},
		{"signals.timeline.cues", s.Timeline.Cues},
	}
	for _, l := range lists {
		for i, term := range l.terms {
			if strings.TrimSpace(term) == "" {
				v.addf("%s[%d] is empty", l.path, i)
			}
		}
	}
	if len(s.Notification.Major) > 0 && s.Notification.MajorThreshold <= 0 {
		v.addf("signals.notification.major_threshold must be positive")
	}
	if s.Budget.MinAmount < 0 {
		v.addf("signals.budget.min_amount must not be negative")
	}
	for word, days := range s.Timeline.Units {
		if len(strings.Fields(word)) != 1 {
			v.addf("signals.timeline.units key %q must be a single word", word)
		}
		if days <= 0 {
			v.addf("signals.timeline.units.%s must be a positive number of days", word)
		}
	}
}

func unit(x float64) bool {
	return x >= 0 && x <= 1
}
