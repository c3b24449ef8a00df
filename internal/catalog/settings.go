package catalog

// DefaultSettings returns the scoring and estimation defaults used when a
// catalog document leaves a setting out.
func DefaultSettings() Settings {
	return Settings{
		ClarityThreshold: 0.5,
		ClarityWeights: ClarityWeights{
			Business:    0.35,
			Platform:    0.25,
			Specificity: 0.25,
			Features:    0.15,
		},
		SpecificityCap:                0.3,
		FeatureCap:                    3,
		ConfidenceSaturation:          3,
		VariancePct:                   0.2,
		MaxQuestions:                  3,
		FeatureTopK:                   6,
		DefaultPlatform:               PlatformWeb,
		FallbackPlatformConfidence:    0.3,
		RequirementPlatformConfidence: 0.9,
		DetectedFeatureBoost:          0.8,
		ExplicitFeatureRelevance:      1.0,
		Phases: []Phase{
			{Name: "design", Share: 0.15},
			{Name: "development", Share: 0.55},
			{Name: "testing", Share: 0.2},
			{Name: "deployment", Share: 0.1},
		},
		Questions: QuestionTemplates{
			BusinessType: "What kind of business is this project for? For example: {{types}}.",
			Platform:     "Where will people mainly use it: {{platforms}}?",
			Features:     "What are the most important things it should do? For example: {{features}}.",
			Ambiguous:    "You mentioned {{terms}}, which fits more than one kind of business ({{types}}). Which one is closest?",
			Details:      "Could you describe the project in a little more detail?",
		},
	}
}

// applyDefaults fills settings that cannot be meaningfully empty. Numeric
// settings are not touched here: Parse decodes over DefaultSettings, so an
// omitted key keeps its default and an explicit 0 is kept as written.
func (s *Settings) applyDefaults() {
	def := DefaultSettings()
	if s.DefaultPlatform == "" {
		s.DefaultPlatform = def.DefaultPlatform
	}
	if len(s.Phases) == 0 {
		s.Phases = def.Phases
	}
	q := &s.Questions
	if q.BusinessType == "" {
		q.BusinessType = def.Questions.BusinessType
	}
	if q.Platform == "" {
		q.Platform = def.Questions.Platform
	}
	if q.Features == "" {
		q.Features = def.Questions.Features
	}
	if q.Ambiguous == "" {
		q.Ambiguous = def.Questions.Ambiguous
	}
	if q.Details == "" {
		q.Details = def.Questions.Details
	}
}
