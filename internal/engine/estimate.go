package engine

import (
	"fmt"
	"math"
	"sort"

	"advisor-backend/internal/analyzer"
	"advisor-backend/internal/catalog"
)

func estimateCost(p catalog.PlatformProfile, features []FeatureRecommendation, multiplier, variance float64) CostEstimate {
	total := p.BaseCost
	for _, f := range features {
		total += f.CostWeight
	}
	mid := total * multiplier
	return CostEstimate{
		Low:  cents(mid * (1 - variance)),
		Mid:  cents(mid),
		High: cents(mid * (1 + variance)),
	}
}

// estimateTimeline splits base plus feature days across phases with the
// largest remainder method so that phases always sum to the total.
func estimateTimeline(p catalog.PlatformProfile, features []FeatureRecommendation, phases []catalog.Phase) TimelineEstimate {
	total := p.BaseDays
	for _, f := range features {
		total += f.DurationDays
	}
	return TimelineEstimate{
		Phases:    splitDays(total, phases),
		TotalDays: total,
	}
}

func splitDays(total int, phases []catalog.Phase) []PhaseDuration {
	out := make([]PhaseDuration, len(phases))
	if len(phases) == 0 {
		return out
	}
	shareSum := 0.0
	for _, ph := range phases {
		shareSum += ph.Share
	}

	type remainder struct {
		idx  int
		frac float64
	}
	rems := make([]remainder, len(phases))
	assigned := 0
	for i, ph := range phases {
		exact := float64(total) * ph.Share / shareSum
		whole := int(math.Floor(exact))
		out[i] = PhaseDuration{Name: ph.Name, Days: whole}
		rems[i] = remainder{idx: i, frac: exact - float64(whole)}
		assigned += whole
	}
	sort.SliceStable(rems, func(i, j int) bool {
		return rems[i].frac > rems[j].frac
	})
	for left, k := total-assigned, 0; left > 0; left, k = left-1, k+1 {
		out[rems[k%len(rems)].idx].Days++
	}
	return out
}

func checkConstraints(info AdditionalInfo, an analyzer.Analysis, cost CostEstimate, timeline TimelineEstimate) ConstraintCheck {
	var out ConstraintCheck
	budget := info.BudgetCeiling
	if budget == nil {
		if budget = an.Budget.Ceiling(); budget != nil {
			out.BudgetFromText = true
		}
	}
	if budget != nil {
		ceiling := *budget
		within := cost.Mid <= ceiling
		out.BudgetCeiling = &ceiling
		out.WithinBudget = &within
		if out.BudgetFromText {
			out.Notes = append(out.Notes, fmt.Sprintf("budget ceiling %.2f taken from the requirement text", ceiling))
		}
		switch {
		case !within:
			out.Notes = append(out.Notes, fmt.Sprintf("estimated cost %.2f exceeds the budget ceiling %.2f", cost.Mid, ceiling))
		case cost.High > ceiling:
			out.Notes = append(out.Notes, fmt.Sprintf("upper cost estimate %.2f exceeds the budget ceiling %.2f", cost.High, ceiling))
		}
	}

	days := info.TimelineCeilingDays
	if days == nil {
		if days = an.Timeline.CeilingDays(); days != nil {
			out.TimelineFromText = true
		}
	}
	if days != nil {
		ceiling := *days
		within := timeline.TotalDays <= ceiling
		out.TimelineCeilingDays = &ceiling
		out.WithinTimeline = &within
		if out.TimelineFromText {
			out.Notes = append(out.Notes, fmt.Sprintf("timeline ceiling of %d days taken from the requirement text", ceiling))
		}
		if !within {
			out.Notes = append(out.Notes, fmt.Sprintf("estimated timeline of %d days exceeds the ceiling of %d days", timeline.TotalDays, ceiling))
		}
	}
	return out
}

func cents(x float64) float64 {
	return math.Round(x*100) / 100
}
