package engine

import (
	"advisor-backend/internal/analyzer"
	"advisor-backend/internal/catalog"
)

// State is a position in the clarification state machine.
type State string

const (
	StateAwaitingInput State = "awaiting_input"
	StateClarifying    State = "clarifying"
	StateResolved      State = "resolved"
)

// ConfidenceFlag marks whether any fallback path shaped a recommendation.
type ConfidenceFlag string

const (
	ConfidenceNormal   ConfidenceFlag = "normal"
	ConfidenceFallback ConfidenceFlag = "fallback"
)

// Fallback reasons reported on Recommendation.FallbackReasons.
const (
	ReasonBusinessGeneric       = "business_type_generic"
	ReasonPlatformFromBusiness  = "platform_from_business_type"
	ReasonPlatformDefault       = "platform_default"
	ReasonTechStackGeneric      = "tech_stack_generic"
	ReasonFeatureCatalogGeneric = "feature_catalog_generic"
)

// FeatureSource says why a feature was recommended.
type FeatureSource string

const (
	SourceCatalog  FeatureSource = "catalog"
	SourceDetected FeatureSource = "detected"
	SourceExplicit FeatureSource = "explicit"
)

// Priority is the delivery priority of a recommended feature.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
)

// AdditionalInfo carries structured answers supplied after a clarification
// round, or up front by callers that already know them.
type AdditionalInfo struct {
	Platform            catalog.Platform     `json:"platform,omitempty"`
	BusinessType        catalog.BusinessType `json:"businessType,omitempty"`
	ExplicitFeatures    []catalog.FeatureID  `json:"explicitFeatures,omitempty"`
	ExistingFeatures    []catalog.FeatureID  `json:"existingFeatures,omitempty"`
	BudgetCeiling       *float64             `json:"budgetCeiling,omitempty"`
	TimelineCeilingDays *int                 `json:"timelineCeilingDays,omitempty"`
	// Portability and Access pick the platform when Platform is empty.
	Portability catalog.Portability `json:"portability,omitempty"`
	Access      catalog.Access      `json:"access,omitempty"`
}

// ClarificationRequest is returned instead of a recommendation when the
// input is too vague. It always carries at least one question.
type ClarificationRequest struct {
	Questions []string          `json:"questions"`
	Analysis  analyzer.Analysis `json:"analysis"`
}

type FeatureRecommendation struct {
	ID           catalog.FeatureID `json:"id"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Relevance    float64           `json:"relevance"`
	Priority     Priority          `json:"priority"`
	Source       FeatureSource     `json:"source"`
	CostWeight   float64           `json:"costWeight"`
	DurationDays int               `json:"durationDays"`
}

// CostEstimate is a low/mid/high range in the catalog's currency unit.
type CostEstimate struct {
	Low  float64 `json:"low"`
	Mid  float64 `json:"mid"`
	High float64 `json:"high"`
}

type PhaseDuration struct {
	Name string `json:"name"`
	Days int    `json:"days"`
}

// TimelineEstimate phases always sum to TotalDays.
type TimelineEstimate struct {
	Phases    []PhaseDuration `json:"phases"`
	TotalDays int             `json:"totalDays"`
}

// ConstraintCheck compares the estimate with caller ceilings, or with the
// amounts and durations stated in the text when the caller gave none. It
// never changes the estimate itself.
type ConstraintCheck struct {
	BudgetCeiling       *float64 `json:"budgetCeiling,omitempty"`
	BudgetFromText      bool     `json:"budgetFromText,omitempty"`
	WithinBudget        *bool    `json:"withinBudget,omitempty"`
	TimelineCeilingDays *int     `json:"timelineCeilingDays,omitempty"`
	TimelineFromText    bool     `json:"timelineFromText,omitempty"`
	WithinTimeline      *bool    `json:"withinTimeline,omitempty"`
	Notes               []string `json:"notes,omitempty"`
}

type Recommendation struct {
	Platform           catalog.Platform        `json:"platform"`
	PlatformConfidence float64                 `json:"platformConfidence"`
	BusinessType       catalog.BusinessType    `json:"businessType"`
	Features           []FeatureRecommendation `json:"features"`
	TechStack          catalog.TechStackBundle `json:"techStack"`
	Cost               CostEstimate            `json:"cost"`
	Timeline           TimelineEstimate        `json:"timeline"`
	ConfidenceFlag     ConfidenceFlag          `json:"confidenceFlag"`
	FallbackReasons    []string                `json:"fallbackReasons,omitempty"`
	Constraints        ConstraintCheck         `json:"constraints"`
	Analysis           analyzer.Analysis       `json:"analysis"`
}

// FeatureIDs lists the recommended feature ids in rank order.
func (r Recommendation) FeatureIDs() []catalog.FeatureID {
	out := make([]catalog.FeatureID, 0, len(r.Features))
	for _, f := range r.Features {
		out = append(out, f.ID)
	}
	return out
}

// Outcome holds exactly one of Clarification or Recommendation.
type Outcome struct {
	Clarification  *ClarificationRequest `json:"clarification,omitempty"`
	Recommendation *Recommendation       `json:"recommendation,omitempty"`
}

// State reports resolved when a recommendation is present and clarifying
// otherwise.
func (o Outcome) State() State {
	if o.Recommendation != nil {
		return StateResolved
	}
	return StateClarifying
}

// Analysis returns the analysis behind whichever result is set.
func (o Outcome) Analysis() analyzer.Analysis {
	if o.Recommendation != nil {
		return o.Recommendation.Analysis
	}
	if o.Clarification != nil {
		return o.Clarification.Analysis
	}
	return analyzer.Analysis{}
}
