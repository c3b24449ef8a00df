package catalog

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// ResolveFeature maps a user-typed feature name ("delivery tracking",
// "Delivery-Tracking", "deliv track") to a declared feature id. Exact ids and
// names win; otherwise the closest fuzzy match is used.
func (c *Catalog) ResolveFeature(name string) (FeatureID, bool) {
	query := humanize(name)
	if query == "" {
		return "", false
	}
	targets := make([]string, 0, len(c.Features)*2)
	ids := make([]FeatureID, 0, len(c.Features)*2)
	for _, f := range c.Features {
		targets = append(targets, humanize(string(f.ID)), humanize(f.Name))
		ids = append(ids, f.ID, f.ID)
	}
	i, ok := bestMatch(query, targets)
	if !ok {
		return "", false
	}
	return ids[i], true
}

// ResolveBusinessType maps a user-typed business name to a business type.
func (c *Catalog) ResolveBusinessType(name string) (BusinessType, bool) {
	if bt, err := ParseBusinessType(name); err == nil {
		return bt, true
	}
	query := humanize(name)
	if query == "" {
		return "", false
	}
	var targets []string
	var ids []BusinessType
	for _, bt := range c.BusinessTypes {
		targets = append(targets, humanize(string(bt.ID)), humanize(bt.Label))
		ids = append(ids, bt.ID, bt.ID)
	}
	i, ok := bestMatch(query, targets)
	if !ok {
		return "", false
	}
	return ids[i], true
}

// ResolvePlatform maps a user-typed platform name ("phone app", "website")
// to a platform. Platform keywords count as names.
func (c *Catalog) ResolvePlatform(name string) (Platform, bool) {
	if p, err := ParsePlatform(name); err == nil {
		return p, true
	}
	query := humanize(name)
	if query == "" {
		return "", false
	}
	var targets []string
	var ids []Platform
	for _, p := range c.Platforms {
		targets = append(targets, humanize(string(p.ID)), humanize(p.Label))
		ids = append(ids, p.ID, p.ID)
		for _, kw := range p.Keywords {
			targets = append(targets, humanize(kw.Term))
			ids = append(ids, p.ID)
		}
	}
	for _, word := range strings.Fields(query) {
		for i, target := range targets {
			if word == target {
				return ids[i], true
			}
		}
	}
	i, ok := bestMatch(query, targets)
	if !ok {
		return "", false
	}
	return ids[i], true
}

// minPrefixLen is the shortest query word accepted as an abbreviation.
// Shorter words must equal a target word.
const minPrefixLen = 3

// bestMatch returns the index of the exact target equal to query, or else
// the closest target whose words the query abbreviates ("deliv track" for
// "delivery tracking"). Ties keep declaration order.
func bestMatch(query string, targets []string) (int, bool) {
	for i, target := range targets {
		if target == query {
			return i, true
		}
	}
	best, bestDist := -1, 0
	for i, target := range targets {
		if !abbreviates(query, target) {
			continue
		}
		dist := fuzzy.LevenshteinDistance(query, target)
		if best == -1 || dist < bestDist {
			best, bestDist = i, dist
		}
	}
	return best, best >= 0
}

// abbreviates reports whether every query word, in order, equals or is a
// prefix of a distinct word of target.
func abbreviates(query, target string) bool {
	words := strings.Fields(target)
	j := 0
	for _, q := range strings.Fields(query) {
		matched := false
		for ; j < len(words); j++ {
			w := words[j]
			if q == w || (len(q) >= minPrefixLen && strings.HasPrefix(w, q)) {
				matched = true
				j++
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

func humanize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
