package engine

import (
	"math"
	"sort"

	"advisor-backend/internal/analyzer"
	"advisor-backend/internal/catalog"
)

type candidate struct {
	rec   FeatureRecommendation
	order int
}

// selectFeatures ranks the business feature catalog for the platform,
// boosting features the text mentioned, truncates to the configured top-K
// and then adds explicitly requested features. Existing features are always
// dropped. The bool reports whether the generic catalog stood in for a
// business type that has none.
func (e *Engine) selectFeatures(an analyzer.Analysis, info *AdditionalInfo, bt catalog.BusinessType, p catalog.Platform) ([]FeatureRecommendation, bool) {
	s := e.cat.Settings
	entries := e.cat.FeaturesFor(bt)
	usedGeneric := false
	if len(entries) == 0 {
		entries = e.cat.FeaturesFor(catalog.BusinessGeneric)
		usedGeneric = true
	}

	existing := toSet(info.ExistingFeatures)
	detected := toSet(an.DetectedFeatures)
	entryIndex := make(map[catalog.FeatureID]int, len(entries))
	for i, entry := range entries {
		entryIndex[entry.Feature] = i
	}
	orderOf := func(id catalog.FeatureID) int {
		if i, ok := entryIndex[id]; ok {
			return i
		}
		return len(entries) + e.cat.FeatureOrder(id)
	}

	var pool []candidate
	inPool := map[catalog.FeatureID]bool{}
	for i, entry := range entries {
		if existing[entry.Feature] || !e.cat.Compatible(entry, p) {
			continue
		}
		relevance, source := entry.Relevance, SourceCatalog
		if detected[entry.Feature] {
			relevance, source = boost(entry.Relevance, s.DetectedFeatureBoost), SourceDetected
		}
		if c, ok := e.newCandidate(entry.Feature, relevance, source, i); ok {
			pool = append(pool, c)
			inPool[entry.Feature] = true
		}
	}
	for _, id := range an.DetectedFeatures {
		if inPool[id] || existing[id] {
			continue
		}
		if _, listed := entryIndex[id]; listed {
			// listed for this business but not for this platform
			continue
		}
		f, ok := e.cat.Feature(id)
		if !ok || !f.SupportsPlatform(p) {
			continue
		}
		if c, ok := e.newCandidate(id, boost(0, s.DetectedFeatureBoost), SourceDetected, orderOf(id)); ok {
			pool = append(pool, c)
			inPool[id] = true
		}
	}

	sortCandidates(pool)
	if len(pool) > s.FeatureTopK {
		pool = pool[:s.FeatureTopK]
	}

	selected := map[catalog.FeatureID]int{}
	for i, c := range pool {
		selected[c.rec.ID] = i
	}
	for _, id := range info.ExplicitFeatures {
		if existing[id] {
			continue
		}
		if i, ok := selected[id]; ok {
			c := &pool[i]
			c.rec.Relevance = math.Max(c.rec.Relevance, s.ExplicitFeatureRelevance)
			c.rec.Source = SourceExplicit
			c.rec.Priority = PriorityHigh
			continue
		}
		if c, ok := e.newCandidate(id, s.ExplicitFeatureRelevance, SourceExplicit, orderOf(id)); ok {
			selected[id] = len(pool)
			pool = append(pool, c)
		}
	}
	sortCandidates(pool)

	out := make([]FeatureRecommendation, 0, len(pool))
	for _, c := range pool {
		out = append(out, c.rec)
	}
	return out, usedGeneric
}

func (e *Engine) newCandidate(id catalog.FeatureID, relevance float64, source FeatureSource, order int) (candidate, bool) {
	f, ok := e.cat.Feature(id)
	if !ok {
		return candidate{}, false
	}
	priority := PriorityMedium
	if source != SourceCatalog {
		priority = PriorityHigh
	}
	return candidate{
		rec: FeatureRecommendation{
			ID:           f.ID,
			Name:         f.Name,
			Description:  f.Description,
			Relevance:    relevance,
			Priority:     priority,
			Source:       source,
			CostWeight:   f.CostWeight,
			DurationDays: f.DurationDays,
		},
		order: order,
	}, true
}

func sortCandidates(pool []candidate) {
	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].rec.Relevance != pool[j].rec.Relevance {
			return pool[i].rec.Relevance > pool[j].rec.Relevance
		}
		return pool[i].order < pool[j].order
	})
}

// boost lifts relevance toward 1 by the given fraction of the remaining gap.
func boost(relevance, fraction float64) float64 {
	return math.Round((relevance+(1-relevance)*fraction)*1e4) / 1e4
}

func toSet(ids []catalog.FeatureID) map[catalog.FeatureID]bool {
	out := make(map[catalog.FeatureID]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}
