// Package engine turns an analysis into either a clarification request or a
// full project recommendation: platform, ranked features, tech stack, cost
// and timeline.
package engine

import (
	"errors"
	"fmt"
	"math"

	"advisor-backend/internal/analyzer"
	"advisor-backend/internal/catalog"
)

var (
	// ErrInvalidInput covers unusable text and malformed AdditionalInfo.
	ErrInvalidInput = analyzer.ErrInvalidInput
	// ErrCatalogLookup means the catalog has no tech stack rule for a
	// platform, not even a generic one.
	ErrCatalogLookup = errors.New("catalog lookup failed")
)

// Engine is stateless apart from its immutable catalog and analyzer, and is
// safe for concurrent use.
type Engine struct {
	cat      *catalog.Catalog
	analyzer *analyzer.Analyzer
}

func New(an *analyzer.Analyzer) *Engine {
	return &Engine{cat: an.Catalog(), analyzer: an}
}

func (e *Engine) Analyzer() *analyzer.Analyzer {
	return e.analyzer
}

func (e *Engine) Catalog() *catalog.Catalog {
	return e.cat
}

// Generate analyzes text and either asks for clarification (only when info
// is nil) or resolves a recommendation, taking fallback paths as needed.
func (e *Engine) Generate(text string, info *AdditionalInfo) (Outcome, error) {
	an, err := e.analyzer.Analyze(text)
	if err != nil {
		return Outcome{}, err
	}
	if info != nil {
		if err := e.ValidateInfo(*info); err != nil {
			return Outcome{}, err
		}
	}
	if info == nil && e.analyzer.NeedsClarification(an) {
		return Outcome{Clarification: &ClarificationRequest{
			Questions: e.analyzer.ClarificationQuestions(an),
			Analysis:  an,
		}}, nil
	}
	rec, err := e.Resolve(an, info)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Recommendation: &rec}, nil
}

// ValidateInfo rejects unknown enums, unknown feature ids and negative or
// non-finite ceilings.
func (e *Engine) ValidateInfo(info AdditionalInfo) error {
	if info.Platform != "" && !info.Platform.Valid() {
		return fmt.Errorf("%w: platform %q is not supported", ErrInvalidInput, info.Platform)
	}
	if info.BusinessType != "" && !info.BusinessType.Valid() {
		return fmt.Errorf("%w: business type %q is not supported", ErrInvalidInput, info.BusinessType)
	}
	for _, id := range info.ExplicitFeatures {
		if _, ok := e.cat.Feature(id); !ok {
			return fmt.Errorf("%w: unknown feature %q", ErrInvalidInput, id)
		}
	}
	for _, id := range info.ExistingFeatures {
		if _, ok := e.cat.Feature(id); !ok {
			return fmt.Errorf("%w: unknown feature %q", ErrInvalidInput, id)
		}
	}
	if info.Portability != "" && !info.Portability.Valid() {
		return fmt.Errorf("%w: portability %q must be high, medium or low", ErrInvalidInput, info.Portability)
	}
	if info.Access != "" && !info.Access.Valid() {
		return fmt.Errorf("%w: access %q must be online or offline", ErrInvalidInput, info.Access)
	}
	if b := info.BudgetCeiling; b != nil && (*b < 0 || math.IsNaN(*b) || math.IsInf(*b, 0)) {
		return fmt.Errorf("%w: budget ceiling must be a non-negative number", ErrInvalidInput)
	}
	if d := info.TimelineCeilingDays; d != nil && *d < 0 {
		return fmt.Errorf("%w: timeline ceiling must not be negative", ErrInvalidInput)
	}
	return nil
}

// Resolve builds a recommendation from an analysis without the
// clarification gate. Unresolved dimensions take the fallback paths.
func (e *Engine) Resolve(an analyzer.Analysis, info *AdditionalInfo) (Recommendation, error) {
	if info == nil {
		info = &AdditionalInfo{}
	}
	var reasons []string

	business := an.BusinessType
	businessKnown := true
	switch {
	case info.BusinessType != "":
		business = info.BusinessType
	case business == catalog.BusinessUnknown || business == "":
		business = catalog.BusinessGeneric
		businessKnown = false
		reasons = append(reasons, ReasonBusinessGeneric)
	}

	platform, platformConf, reason := e.resolvePlatform(an, info, business, businessKnown)
	if reason != "" {
		reasons = append(reasons, reason)
	}

	features, usedGenericCatalog := e.selectFeatures(an, info, business, platform)
	if usedGenericCatalog && business != catalog.BusinessGeneric {
		reasons = append(reasons, ReasonFeatureCatalogGeneric)
	}

	ids := make([]catalog.FeatureID, 0, len(features))
	for _, f := range features {
		ids = append(ids, f.ID)
	}
	stack, genericStack, err := e.selectTechStack(platform, business, ids)
	if err != nil {
		return Recommendation{}, err
	}
	if genericStack && business != catalog.BusinessGeneric {
		reasons = append(reasons, ReasonTechStackGeneric)
	}

	profile, ok := e.cat.Platform(platform)
	if !ok {
		return Recommendation{}, fmt.Errorf("%w: platform %q has no cost profile", ErrCatalogLookup, platform)
	}
	multiplier := 1.0
	if bp, ok := e.cat.Business(business); ok {
		multiplier = bp.CostMultiplier
	}
	cost := estimateCost(profile, features, multiplier, e.cat.Settings.VariancePct)
	timeline := estimateTimeline(profile, features, e.cat.Settings.Phases)

	flag := ConfidenceNormal
	if len(reasons) > 0 {
		flag = ConfidenceFallback
	}
	return Recommendation{
		Platform:           platform,
		PlatformConfidence: platformConf,
		BusinessType:       business,
		Features:           features,
		TechStack:          stack,
		Cost:               cost,
		Timeline:           timeline,
		ConfidenceFlag:     flag,
		FallbackReasons:    reasons,
		Constraints:        checkConstraints(*info, an, cost, timeline),
		Analysis:           an,
	}, nil
}

func (e *Engine) resolvePlatform(an analyzer.Analysis, info *AdditionalInfo, business catalog.BusinessType, businessKnown bool) (catalog.Platform, float64, string) {
	s := e.cat.Settings
	if info.Platform != "" {
		return info.Platform, 1, ""
	}
	if p, ok := requirementPlatform(an, info); ok {
		return p, s.RequirementPlatformConfidence, ""
	}
	if an.PlatformSignal.Valid() {
		return an.PlatformSignal, an.PlatformConfidence, ""
	}
	if businessKnown {
		if bp, ok := e.cat.Business(business); ok && bp.PreferredPlatform.Valid() {
			return bp.PreferredPlatform, s.FallbackPlatformConfidence, ReasonPlatformFromBusiness
		}
	}
	return s.DefaultPlatform, s.FallbackPlatformConfidence, ReasonPlatformDefault
}

// requirementPlatform maps portability and access answers to a platform.
// High portability, or a major notification need in the text, means mobile.
// Low portability or offline access means desktop. Medium portability with
// online access leaves the choice to the text.
func requirementPlatform(an analyzer.Analysis, info *AdditionalInfo) (catalog.Platform, bool) {
	if info.Portability == "" && info.Access == "" {
		return "", false
	}
	switch {
	case info.Portability == catalog.PortabilityHigh || an.Notification == analyzer.NotificationMajor:
		return catalog.PlatformMobile, true
	case info.Portability == catalog.PortabilityLow || info.Access == catalog.AccessOffline:
		return catalog.PlatformDesktop, true
	}
	return "", false
}

// selectTechStack tries rules for the resolved business type first, then
// generic rules. The bool reports whether a generic rule was used.
func (e *Engine) selectTechStack(p catalog.Platform, bt catalog.BusinessType, features []catalog.FeatureID) (catalog.TechStackBundle, bool, error) {
	if bt != catalog.BusinessGeneric {
		for _, rule := range e.cat.TechStacks {
			if rule.Matches(p, bt, features) {
				return rule.Bundle, false, nil
			}
		}
	}
	for _, rule := range e.cat.TechStacks {
		if rule.Matches(p, catalog.BusinessGeneric, features) {
			return rule.Bundle, true, nil
		}
	}
	return catalog.TechStackBundle{}, false, fmt.Errorf("%w: no tech stack rule for platform %q and business type %q", ErrCatalogLookup, p, bt)
}
