package analyzer

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"advisor-backend/internal/catalog"
)

// NotificationNeed is how strongly the text asks for alerts and live updates.
type NotificationNeed string

const (
	NotificationMajor NotificationNeed = "major"
	NotificationMinor NotificationNeed = "minor"
	NotificationNone  NotificationNeed = "none"
)

// Urgency grows with the number of distinct rush words in the text.
type Urgency string

const (
	UrgencyHigh   Urgency = "high"
	UrgencyMedium Urgency = "medium"
	UrgencyLow    Urgency = "low"
)

// BudgetIndicators are the budget cue words and amounts found in the text.
type BudgetIndicators struct {
	Mentioned bool      `json:"mentioned"`
	Amounts   []float64 `json:"amounts"`
}

// Ceiling returns the largest stated amount, or nil when none was found.
func (b BudgetIndicators) Ceiling() *float64 {
	if len(b.Amounts) == 0 {
		return nil
	}
	top := b.Amounts[0]
	for _, a := range b.Amounts[1:] {
		top = math.Max(top, a)
	}
	return &top
}

// TimelineIndicators are the timeline cue words, unit words and stated
// durations (in days) found in the text.
type TimelineIndicators struct {
	Mentioned bool     `json:"mentioned"`
	Units     []string `json:"units"`
	Days      []int    `json:"days"`
}

// CeilingDays returns the longest stated duration, or nil when none was found.
func (t TimelineIndicators) CeilingDays() *int {
	if len(t.Days) == 0 {
		return nil
	}
	top := t.Days[0]
	for _, d := range t.Days[1:] {
		if d > top {
			top = d
		}
	}
	return &top
}

// maxDurationDays drops durations that cannot be a project timeline.
const maxDurationDays = 100 * 365

var (
	numberPattern = regexp.MustCompile(`([$€£])?\s?(\d{1,3}(?:,\d{3})+|\d+)(\.\d+)?\s?([kK]\b)?`)
	nextWord      = regexp.MustCompile(`^[\s-]*(\pL+)`)
)

type signalSets struct {
	portabilityHigh   []matcher
	portabilityMedium []matcher
	portabilityLow    []matcher
	notifyMajor       []matcher
	notifyMinor       []matcher
	majorThreshold    int
	urgency           []matcher
	budgetCues        []matcher
	minAmount         float64
	timelineCues      []matcher
	// unit token -> days
	units map[string]int
}

func (a *Analyzer) compileSignals(s catalog.Signals) signalSets {
	terms := func(words []string) []matcher {
		kws := make([]catalog.Keyword, 0, len(words))
		for _, w := range words {
			kws = append(kws, catalog.Keyword{Term: w, Weight: 1})
		}
		return a.compile(kws)
	}
	out := signalSets{
		portabilityHigh:   terms(s.Portability.High),
		portabilityMedium: terms(s.Portability.Medium),
		portabilityLow:    terms(s.Portability.Low),
		notifyMajor:       terms(s.Notification.Major),
		notifyMinor:       terms(s.Notification.Minor),
		majorThreshold:    s.Notification.MajorThreshold,
		urgency:           terms(s.Urgency),
		budgetCues:        terms(s.Budget.Cues),
		minAmount:         s.Budget.MinAmount,
		timelineCues:      terms(s.Timeline.Cues),
		units:             map[string]int{},
	}
	for word, days := range s.Timeline.Units {
		if tokens := a.tok.Tokenize(word); len(tokens) == 1 {
			out.units[tokens[0]] = days
		}
	}
	return out
}

// countHits returns how many distinct terms occur in tokens. It never marks
// tokens as covered, so signals do not change specificity.
func countHits(tokens []string, terms []matcher) int {
	scratch := make([]bool, len(tokens))
	n := 0
	for _, m := range terms {
		if len(matchPositions(tokens, m.tokens, scratch)) > 0 {
			n++
		}
	}
	return n
}

func (a *Analyzer) readSignals(text string, tokens []string, out *Analysis) {
	s := a.signals

	switch {
	case countHits(tokens, s.portabilityHigh) > 0:
		out.Portability = catalog.PortabilityHigh
	case countHits(tokens, s.portabilityMedium) > 0:
		out.Portability = catalog.PortabilityMedium
	case countHits(tokens, s.portabilityLow) > 0:
		out.Portability = catalog.PortabilityLow
	default:
		out.Portability = catalog.PortabilityMedium
	}

	major := countHits(tokens, s.notifyMajor)
	switch {
	case s.majorThreshold > 0 && major >= s.majorThreshold:
		out.Notification = NotificationMajor
	case countHits(tokens, s.notifyMinor) > 0:
		out.Notification = NotificationMinor
	default:
		out.Notification = NotificationNone
	}

	switch n := countHits(tokens, s.urgency); {
	case n >= 2:
		out.Urgency = UrgencyHigh
	case n == 1:
		out.Urgency = UrgencyMedium
	default:
		out.Urgency = UrgencyLow
	}

	out.Budget = BudgetIndicators{
		Mentioned: countHits(tokens, s.budgetCues) > 0,
		Amounts:   []float64{},
	}
	out.Timeline = TimelineIndicators{
		Mentioned: countHits(tokens, s.timelineCues) > 0,
		Units:     []string{},
		Days:      []int{},
	}
	seenUnit := map[string]bool{}
	for _, tok := range tokens {
		if _, ok := s.units[tok]; ok && !seenUnit[tok] {
			seenUnit[tok] = true
			out.Timeline.Units = append(out.Timeline.Units, tok)
		}
	}
	a.readNumbers(text, out)
}

// readNumbers sorts the numbers in text into durations (followed by a unit
// word) and budget amounts.
func (a *Analyzer) readNumbers(text string, out *Analysis) {
	s := a.signals
	for _, m := range numberPattern.FindAllStringSubmatchIndex(text, -1) {
		currency := m[2] >= 0
		whole := strings.ReplaceAll(text[m[4]:m[5]], ",", "")
		frac := ""
		if m[6] >= 0 {
			frac = text[m[6]:m[7]]
		}
		value, err := strconv.ParseFloat(whole+frac, 64)
		if err != nil {
			continue
		}
		thousands := m[8] >= 0

		if !currency && !thousands {
			if w := nextWord.FindStringSubmatch(text[m[1]:]); w != nil {
				unit := a.tok.Tokenize(w[1])
				if len(unit) == 1 {
					if days, ok := s.units[unit[0]]; ok {
						total := math.Round(value * float64(days))
						if total > 0 && total <= maxDurationDays {
							out.Timeline.Days = append(out.Timeline.Days, int(total))
						}
						continue
					}
				}
			}
		}

		if thousands {
			value *= 1000
		}
		if value <= s.minAmount {
			continue
		}
		if currency || thousands || out.Budget.Mentioned {
			out.Budget.Amounts = append(out.Budget.Amounts, math.Round(value*100)/100)
		}
	}
}
