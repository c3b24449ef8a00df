package catalog

import (
	"errors"
	"strings"

	"gopkg.in/yaml.v3"
)

// BusinessType is the closed set of client business categories.
type BusinessType string

const (
	BusinessUnknown    BusinessType = "unknown"
	BusinessRetail     BusinessType = "retail"
	BusinessRestaurant BusinessType = "restaurant"
	BusinessHealthcare BusinessType = "healthcare"
	BusinessEducation  BusinessType = "education"
	BusinessLogistics  BusinessType = "logistics"
	BusinessFinance    BusinessType = "finance"
	BusinessRealEstate BusinessType = "real_estate"
	BusinessConsulting BusinessType = "consulting"
	BusinessGeneric    BusinessType = "generic"
)

var businessTypes = []BusinessType{
	BusinessRetail,
	BusinessRestaurant,
	BusinessHealthcare,
	BusinessEducation,
	BusinessLogistics,
	BusinessFinance,
	BusinessRealEstate,
	BusinessConsulting,
	BusinessGeneric,
}

// BusinessTypes returns every valid business type, generic last.
func BusinessTypes() []BusinessType {
	return append([]BusinessType(nil), businessTypes...)
}

// Valid reports whether b is a member of the closed set. Unknown is not.
func (b BusinessType) Valid() bool {
	for _, bt := range businessTypes {
		if bt == b {
			return true
		}
	}
	return false
}

// ParseBusinessType normalizes and validates a business type string.
func ParseBusinessType(raw string) (BusinessType, error) {
	normalized := normalizeID(raw)
	if normalized == "" {
		return "", errors.New("business type is required")
	}
	bt := BusinessType(normalized)
	if !bt.Valid() {
		return "", errors.New("business type is invalid")
	}
	return bt, nil
}

// Platform is the target delivery platform.
type Platform string

const (
	PlatformUnknown Platform = "unknown"
	PlatformMobile  Platform = "mobile"
	PlatformWeb     Platform = "web"
	PlatformDesktop Platform = "desktop"
)

var platforms = []Platform{PlatformMobile, PlatformWeb, PlatformDesktop}

// Platforms returns the valid platforms in declaration order.
func Platforms() []Platform {
	return append([]Platform(nil), platforms...)
}

// Valid reports whether p is mobile, web or desktop.
func (p Platform) Valid() bool {
	for _, candidate := range platforms {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePlatform normalizes and validates a platform string.
func ParsePlatform(raw string) (Platform, error) {
	normalized := normalizeID(raw)
	if normalized == "" {
		return "", errors.New("platform is required")
	}
	p := Platform(normalized)
	if !p.Valid() {
		return "", errors.New("platform is invalid")
	}
	return p, nil
}

// Portability is how mobile the people using the product are.
type Portability string

const (
	PortabilityHigh   Portability = "high"
	PortabilityMedium Portability = "medium"
	PortabilityLow    Portability = "low"
)

// Valid reports whether p is high, medium or low.
func (p Portability) Valid() bool {
	switch p {
	case PortabilityHigh, PortabilityMedium, PortabilityLow:
		return true
	}
	return false
}

// ParsePortability normalizes and validates a portability level.
func ParsePortability(raw string) (Portability, error) {
	p := Portability(normalizeID(raw))
	if !p.Valid() {
		return "", errors.New("portability must be high, medium or low")
	}
	return p, nil
}

// Access says whether the product must work without a network connection.
type Access string

const (
	AccessOnline  Access = "online"
	AccessOffline Access = "offline"
)

// Valid reports whether a is online or offline.
func (a Access) Valid() bool {
	return a == AccessOnline || a == AccessOffline
}

// ParseAccess normalizes and validates an access requirement.
func ParseAccess(raw string) (Access, error) {
	a := Access(normalizeID(raw))
	if !a.Valid() {
		return "", errors.New("access must be online or offline")
	}
	return a, nil
}

// FeatureID identifies a feature declared in the catalog feature table.
type FeatureID string

// Keyword is a weighted cue term. Multi-word terms match contiguous tokens.
type Keyword struct {
	Term   string  `yaml:"term" json:"term"`
	Weight float64 `yaml:"weight" json:"weight"`
}

// UnmarshalYAML accepts either a bare scalar (weight 1) or a {term, weight} mapping.
func (k *Keyword) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		k.Term = node.Value
		k.Weight = 1
		return nil
	}
	type plain Keyword
	var out plain
	if err := node.Decode(&out); err != nil {
		return err
	}
	if out.Weight == 0 {
		out.Weight = 1
	}
	*k = Keyword(out)
	return nil
}

// BusinessProfile holds the keyword set and pricing hints for one business type.
type BusinessProfile struct {
	ID                BusinessType `yaml:"id" json:"id"`
	Label             string       `yaml:"label" json:"label"`
	PreferredPlatform Platform     `yaml:"preferred_platform" json:"preferredPlatform"`
	CostMultiplier    float64      `yaml:"cost_multiplier" json:"costMultiplier"`
	Keywords          []Keyword    `yaml:"keywords" json:"keywords,omitempty"`
}

// PlatformProfile holds platform cue words and base cost/timeline.
type PlatformProfile struct {
	ID       Platform  `yaml:"id" json:"id"`
	Label    string    `yaml:"label" json:"label"`
	BaseCost float64   `yaml:"base_cost" json:"baseCost"`
	BaseDays int       `yaml:"base_days" json:"baseDays"`
	Keywords []Keyword `yaml:"keywords" json:"keywords,omitempty"`
}

// Feature is a candidate capability with its detection synonyms and effort weights.
type Feature struct {
	ID           FeatureID  `yaml:"id" json:"id"`
	Name         string     `yaml:"name" json:"name"`
	Description  string     `yaml:"description" json:"description"`
	Keywords     []string   `yaml:"keywords" json:"keywords,omitempty"`
	Platforms    []Platform `yaml:"platforms" json:"platforms"`
	CostWeight   float64    `yaml:"cost_weight" json:"costWeight"`
	DurationDays int        `yaml:"duration_days" json:"durationDays"`
}

// SupportsPlatform reports whether the feature can ship on p.
func (f Feature) SupportsPlatform(p Platform) bool {
	return containsPlatform(f.Platforms, p)
}

// FeatureEntry is one row of a business type's feature catalog.
type FeatureEntry struct {
	Feature   FeatureID  `yaml:"feature" json:"feature"`
	Relevance float64    `yaml:"relevance" json:"relevance"`
	Platforms []Platform `yaml:"platforms,omitempty" json:"platforms,omitempty"`
}

// TechStackBundle is a named set of technology components recommended together.
type TechStackBundle struct {
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description" json:"description"`
	Components  []string `yaml:"components" json:"components"`
	Pros        []string `yaml:"pros" json:"pros,omitempty"`
	Cons        []string `yaml:"cons" json:"cons,omitempty"`
}

// TechStackRule pairs a predicate over platform, business type and features with a bundle.
// An empty RequiresAny matches any feature set.
type TechStackRule struct {
	Platform     Platform        `yaml:"platform" json:"platform"`
	BusinessType BusinessType    `yaml:"business_type" json:"businessType"`
	RequiresAny  []FeatureID     `yaml:"requires_any" json:"requiresAny,omitempty"`
	Bundle       TechStackBundle `yaml:"bundle" json:"bundle"`
}

// Matches reports whether the rule applies to the given platform, business type and features.
func (r TechStackRule) Matches(p Platform, bt BusinessType, features []FeatureID) bool {
	if r.Platform != p || r.BusinessType != bt {
		return false
	}
	if len(r.RequiresAny) == 0 {
		return true
	}
	for _, want := range r.RequiresAny {
		for _, have := range features {
			if want == have {
				return true
			}
		}
	}
	return false
}

// Signals lists the cue words behind the secondary requirement signals.
// Every list is optional; a catalog without signals reports medium
// portability, no notification need, low urgency and no budget or timeline.
type Signals struct {
	Portability  PortabilityCues  `yaml:"portability" json:"portability"`
	Notification NotificationCues `yaml:"notification" json:"notification"`
	Urgency      []string         `yaml:"urgency" json:"urgency,omitempty"`
	Budget       BudgetCues       `yaml:"budget" json:"budget"`
	Timeline     TimelineCues     `yaml:"timeline" json:"timeline"`
}

// PortabilityCues are checked high first; no cue at all means medium.
type PortabilityCues struct {
	High   []string `yaml:"high" json:"high,omitempty"`
	Medium []string `yaml:"medium" json:"medium,omitempty"`
	Low    []string `yaml:"low" json:"low,omitempty"`
}

// NotificationCues: MajorThreshold distinct major cues make the need major.
type NotificationCues struct {
	Major          []string `yaml:"major" json:"major,omitempty"`
	Minor          []string `yaml:"minor" json:"minor,omitempty"`
	MajorThreshold int      `yaml:"major_threshold" json:"majorThreshold"`
}

// BudgetCues: numbers above MinAmount count as budget amounts when they
// carry a currency sign or a k suffix, or when a cue word is present.
type BudgetCues struct {
	Cues      []string `yaml:"cues" json:"cues,omitempty"`
	MinAmount float64  `yaml:"min_amount" json:"minAmount"`
}

// TimelineCues maps unit words to days so "within 3 months" reads as 90 days.
type TimelineCues struct {
	Cues  []string       `yaml:"cues" json:"cues,omitempty"`
	Units map[string]int `yaml:"units" json:"units,omitempty"`
}

// Phase is a project phase and its share of the total timeline.
type Phase struct {
	Name  string  `yaml:"name" json:"name"`
	Share float64 `yaml:"share" json:"share"`
}

// ClarityWeights weights the four clarity signals. They must sum to 1.
type ClarityWeights struct {
	Business    float64 `yaml:"business" json:"business"`
	Platform    float64 `yaml:"platform" json:"platform"`
	Specificity float64 `yaml:"specificity" json:"specificity"`
	Features    float64 `yaml:"features" json:"features"`
}

// Sum returns the total of all four weights.
func (w ClarityWeights) Sum() float64 {
	return w.Business + w.Platform + w.Specificity + w.Features
}

// QuestionTemplates are the clarification prompts. Placeholders:
// {{types}}, {{platforms}}, {{features}}, {{terms}}.
type QuestionTemplates struct {
	BusinessType string `yaml:"business_type" json:"businessType"`
	Platform     string `yaml:"platform" json:"platform"`
	Features     string `yaml:"features" json:"features"`
	Ambiguous    string `yaml:"ambiguous" json:"ambiguous"`
	Details      string `yaml:"details" json:"details"`
}

// Settings holds every scalar that tunes scoring, selection and estimation.
type Settings struct {
	ClarityThreshold           float64        `yaml:"clarity_threshold" json:"clarityThreshold"`
	ClarityWeights             ClarityWeights `yaml:"clarity_weights" json:"clarityWeights"`
	SpecificityCap             float64        `yaml:"specificity_cap" json:"specificityCap"`
	FeatureCap                 int            `yaml:"feature_cap" json:"featureCap"`
	ConfidenceSaturation       float64        `yaml:"confidence_saturation" json:"confidenceSaturation"`
	VariancePct                float64        `yaml:"variance_pct" json:"variancePct"`
	MaxQuestions               int            `yaml:"max_questions" json:"maxQuestions"`
	FeatureTopK                int            `yaml:"feature_top_k" json:"featureTopK"`
	DefaultPlatform            Platform       `yaml:"default_platform" json:"defaultPlatform"`
	FallbackPlatformConfidence float64        `yaml:"fallback_platform_confidence" json:"fallbackPlatformConfidence"`
	// RequirementPlatformConfidence is reported when portability or access
	// answers pick the platform.
	RequirementPlatformConfidence float64           `yaml:"requirement_platform_confidence" json:"requirementPlatformConfidence"`
	DetectedFeatureBoost          float64           `yaml:"detected_feature_boost" json:"detectedFeatureBoost"`
	ExplicitFeatureRelevance      float64           `yaml:"explicit_feature_relevance" json:"explicitFeatureRelevance"`
	Phases                        []Phase           `yaml:"phases" json:"phases"`
	Questions                     QuestionTemplates `yaml:"questions" json:"questions"`
}

func normalizeID(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	return s
}

func containsPlatform(items []Platform, p Platform) bool {
	for _, item := range items {
		if item == p {
			return true
		}
	}
	return false
}
