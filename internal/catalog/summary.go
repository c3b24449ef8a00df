package catalog

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Summary is the public, keyword-free view of a catalog used by the API,
// the CLI and the MCP tools.
type Summary struct {
	BusinessTypes []SummaryItem    `json:"businessTypes"`
	Platforms     []SummaryItem    `json:"platforms"`
	Features      []SummaryFeature `json:"features"`
	TechStacks    []string         `json:"techStacks"`
}

type SummaryItem struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type SummaryFeature struct {
	ID          FeatureID  `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Platforms   []Platform `json:"platforms"`
}

// Summary lists business types, platforms and features in catalog order and
// the distinct tech stack names sorted alphabetically.
func (c *Catalog) Summary() Summary {
	title := cases.Title(language.English)
	out := Summary{
		BusinessTypes: make([]SummaryItem, 0, len(c.BusinessTypes)),
		Platforms:     make([]SummaryItem, 0, len(c.Platforms)),
		Features:      make([]SummaryFeature, 0, len(c.Features)),
	}
	for _, bt := range c.BusinessTypes {
		out.BusinessTypes = append(out.BusinessTypes, SummaryItem{ID: string(bt.ID), Label: displayName(title, bt.Label, string(bt.ID))})
	}
	for _, p := range c.Platforms {
		out.Platforms = append(out.Platforms, SummaryItem{ID: string(p.ID), Label: displayName(title, p.Label, string(p.ID))})
	}
	for _, f := range c.Features {
		out.Features = append(out.Features, SummaryFeature{
			ID:          f.ID,
			Name:        displayName(title, f.Name, string(f.ID)),
			Description: f.Description,
			Platforms:   append([]Platform(nil), f.Platforms...),
		})
	}
	seen := map[string]bool{}
	for _, r := range c.TechStacks {
		if !seen[r.Bundle.Name] {
			seen[r.Bundle.Name] = true
			out.TechStacks = append(out.TechStacks, r.Bundle.Name)
		}
	}
	sort.Strings(out.TechStacks)
	return out
}

// displayName prefers the declared label and title-cases the id otherwise.
func displayName(title cases.Caser, label, id string) string {
	if strings.TrimSpace(label) != "" {
		return label
	}
	return title.String(humanize(id))
}
