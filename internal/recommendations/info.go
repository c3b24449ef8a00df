package recommendations

import (
	"fmt"
	"strings"

	"advisor-backend/internal/catalog"
	"advisor-backend/internal/engine"
)

// InfoInput is the loosely typed form of engine.AdditionalInfo accepted from
// HTTP bodies, CLI flags and MCP arguments. Names are resolved against the
// catalog, so "android app" or "Loyalty Program" work as well as ids.
type InfoInput struct {
	Platform         string   `json:"platform,omitempty"`
	BusinessType     string   `json:"businessType,omitempty"`
	Features         []string `json:"features,omitempty"`
	ExistingFeatures []string `json:"existingFeatures,omitempty"`
	Budget           *float64 `json:"budget,omitempty"`
	MaxDays          *int     `json:"maxDays,omitempty"`
	Portability      string   `json:"portability,omitempty"`
	Access           string   `json:"access,omitempty"`
}

// IsZero reports whether no field was supplied.
func (in InfoInput) IsZero() bool {
	return strings.TrimSpace(in.Platform) == "" &&
		strings.TrimSpace(in.BusinessType) == "" &&
		len(in.Features) == 0 &&
		len(in.ExistingFeatures) == 0 &&
		in.Budget == nil &&
		in.MaxDays == nil &&
		strings.TrimSpace(in.Portability) == "" &&
		strings.TrimSpace(in.Access) == ""
}

// ResolveInfo maps an InfoInput onto catalog ids. A zero input yields nil so
// the clarification gate still applies.
func ResolveInfo(cat *catalog.Catalog, in InfoInput) (*engine.AdditionalInfo, error) {
	if in.IsZero() {
		return nil, nil
	}
	info := &engine.AdditionalInfo{
		BudgetCeiling:       in.Budget,
		TimelineCeilingDays: in.MaxDays,
	}
	if raw := strings.TrimSpace(in.Platform); raw != "" {
		p, ok := cat.ResolvePlatform(raw)
		if !ok {
			return nil, fmt.Errorf("%w: unknown platform %q", ErrInvalidInput, raw)
		}
		info.Platform = p
	}
	if raw := strings.TrimSpace(in.BusinessType); raw != "" {
		bt, ok := cat.ResolveBusinessType(raw)
		if !ok {
			return nil, fmt.Errorf("%w: unknown business type %q", ErrInvalidInput, raw)
		}
		info.BusinessType = bt
	}
	if raw := strings.TrimSpace(in.Portability); raw != "" {
		p, err := catalog.ParsePortability(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		info.Portability = p
	}
	if raw := strings.TrimSpace(in.Access); raw != "" {
		acc, err := catalog.ParseAccess(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		info.Access = acc
	}
	var err error
	if info.ExplicitFeatures, err = resolveFeatures(cat, in.Features); err != nil {
		return nil, err
	}
	if info.ExistingFeatures, err = resolveFeatures(cat, in.ExistingFeatures); err != nil {
		return nil, err
	}
	return info, nil
}

func resolveFeatures(cat *catalog.Catalog, names []string) ([]catalog.FeatureID, error) {
	var out []catalog.FeatureID
	seen := map[catalog.FeatureID]bool{}
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		id, ok := cat.ResolveFeature(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown feature %q", ErrInvalidInput, name)
		}
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out, nil
}
