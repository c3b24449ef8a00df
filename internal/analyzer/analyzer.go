// Package analyzer classifies free-text project requirements against the
// catalog: business type, platform signal, mentioned features and a clarity
// score that decides whether follow-up questions are needed.
package analyzer

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"advisor-backend/internal/catalog"
	"advisor-backend/internal/tokenize"
)

// ErrInvalidInput is returned for empty, whitespace-only or non-UTF-8 text.
var ErrInvalidInput = errors.New("invalid input")

// Analysis is the result of one Analyze call. It is never modified after it
// is returned.
type Analysis struct {
	BusinessType           catalog.BusinessType `json:"businessType"`
	BusinessTypeConfidence float64              `json:"businessTypeConfidence"`
	PlatformSignal         catalog.Platform     `json:"platformSignal"`
	PlatformConfidence     float64              `json:"platformConfidence"`
	DetectedFeatures       []catalog.FeatureID  `json:"detectedFeatures"`
	ClarityScore           float64              `json:"clarityScore"`
	AmbiguousTerms         []string             `json:"ambiguousTerms"`
	TokenCount             int                  `json:"tokenCount"`
	KeywordTokenCount      int                  `json:"keywordTokenCount"`

	// Secondary signals. They never change the clarity score.
	Portability  catalog.Portability `json:"portability"`
	Notification NotificationNeed    `json:"notification"`
	Urgency      Urgency             `json:"urgency"`
	Budget       BudgetIndicators    `json:"budget"`
	Timeline     TimelineIndicators  `json:"timeline"`
}

type matcher struct {
	term   string
	tokens []string
	weight float64
}

type keywordSet[T comparable] struct {
	id       T
	matchers []matcher
}

// Analyzer holds the compiled keyword tables of one catalog. It keeps no
// per-call state and is safe for concurrent use.
type Analyzer struct {
	cat        *catalog.Catalog
	tok        tokenize.Tokenizer
	business   []keywordSet[catalog.BusinessType]
	platforms  []keywordSet[catalog.Platform]
	features   []keywordSet[catalog.FeatureID]
	signals    signalSets
	normaliser float64
	// term -> business types declaring it, in declaration order
	termOwners map[string][]catalog.BusinessType
}

// New compiles the catalog keyword tables with tok. A nil tok selects
// tokenize.Default.
func New(cat *catalog.Catalog, tok tokenize.Tokenizer) *Analyzer {
	if tok == nil {
		tok = tokenize.Default()
	}
	a := &Analyzer{
		cat:        cat,
		tok:        tok,
		termOwners: map[string][]catalog.BusinessType{},
	}

	maxTotal := 0.0
	for _, bt := range cat.BusinessTypes {
		if bt.ID == catalog.BusinessGeneric {
			continue
		}
		set := keywordSet[catalog.BusinessType]{id: bt.ID, matchers: a.compile(bt.Keywords)}
		total := 0.0
		for _, m := range set.matchers {
			total += m.weight
			owners := a.termOwners[m.term]
			if len(owners) == 0 || owners[len(owners)-1] != bt.ID {
				a.termOwners[m.term] = append(owners, bt.ID)
			}
		}
		maxTotal = math.Max(maxTotal, total)
		a.business = append(a.business, set)
	}
	for _, p := range cat.Platforms {
		a.platforms = append(a.platforms, keywordSet[catalog.Platform]{id: p.ID, matchers: a.compile(p.Keywords)})
	}
	for _, f := range cat.Features {
		kws := make([]catalog.Keyword, 0, len(f.Keywords))
		for _, term := range f.Keywords {
			kws = append(kws, catalog.Keyword{Term: term, Weight: 1})
		}
		a.features = append(a.features, keywordSet[catalog.FeatureID]{id: f.ID, matchers: a.compile(kws)})
	}

	a.signals = a.compileSignals(cat.Signals)

	a.normaliser = cat.Settings.ConfidenceSaturation
	if a.normaliser <= 0 {
		a.normaliser = maxTotal
	}
	return a
}

func (a *Analyzer) compile(keywords []catalog.Keyword) []matcher {
	out := make([]matcher, 0, len(keywords))
	for _, kw := range keywords {
		tokens := a.tok.Tokenize(kw.Term)
		if len(tokens) == 0 {
			continue
		}
		out = append(out, matcher{
			term:   strings.Join(tokens, " "),
			tokens: tokens,
			weight: kw.Weight,
		})
	}
	return out
}

// Catalog returns the catalog the analyzer was compiled from.
func (a *Analyzer) Catalog() *catalog.Catalog {
	return a.cat
}

// Analyze classifies text. It fails with ErrInvalidInput when the text is
// empty, only whitespace, not valid UTF-8 or has no word tokens.
func (a *Analyzer) Analyze(text string) (Analysis, error) {
	if !utf8.ValidString(text) {
		return Analysis{}, fmt.Errorf("%w: text is not valid UTF-8", ErrInvalidInput)
	}
	if strings.TrimSpace(text) == "" {
		return Analysis{}, fmt.Errorf("%w: text is empty", ErrInvalidInput)
	}
	tokens := a.tok.Tokenize(text)
	if len(tokens) == 0 {
		return Analysis{}, fmt.Errorf("%w: text has no words", ErrInvalidInput)
	}

	covered := make([]bool, len(tokens))
	out := Analysis{
		BusinessType:     catalog.BusinessUnknown,
		PlatformSignal:   catalog.PlatformUnknown,
		DetectedFeatures: []catalog.FeatureID{},
		AmbiguousTerms:   []string{},
		TokenCount:       len(tokens),
	}

	businessScores := make([]float64, len(a.business))
	termFirst := map[string]int{}
	for i, set := range a.business {
		for _, m := range set.matchers {
			pos := matchPositions(tokens, m.tokens, covered)
			if len(pos) == 0 {
				continue
			}
			businessScores[i] += m.weight
			if first, ok := termFirst[m.term]; !ok || pos[0] < first {
				termFirst[m.term] = pos[0]
			}
		}
	}
	if best, score := argmax(businessScores); score > 0 {
		out.BusinessType = a.business[best].id
		out.BusinessTypeConfidence = a.confidence(score)
	}

	platformScores := make([]float64, len(a.platforms))
	for i, set := range a.platforms {
		for _, m := range set.matchers {
			if len(matchPositions(tokens, m.tokens, covered)) > 0 {
				platformScores[i] += m.weight
			}
		}
	}
	if best, score := argmax(platformScores); score > 0 {
		out.PlatformSignal = a.platforms[best].id
		out.PlatformConfidence = a.confidence(score)
	}

	for _, set := range a.features {
		hit := false
		for _, m := range set.matchers {
			if len(matchPositions(tokens, m.tokens, covered)) > 0 {
				hit = true
			}
		}
		if hit {
			out.DetectedFeatures = append(out.DetectedFeatures, set.id)
		}
	}

	for term := range termFirst {
		if len(a.termOwners[term]) >= 2 {
			out.AmbiguousTerms = append(out.AmbiguousTerms, term)
		}
	}
	sort.Slice(out.AmbiguousTerms, func(i, j int) bool {
		ti, tj := out.AmbiguousTerms[i], out.AmbiguousTerms[j]
		if termFirst[ti] != termFirst[tj] {
			return termFirst[ti] < termFirst[tj]
		}
		return ti < tj
	})

	for _, c := range covered {
		if c {
			out.KeywordTokenCount++
		}
	}
	out.ClarityScore = a.clarity(out)
	a.readSignals(text, tokens, &out)
	return out, nil
}

func (a *Analyzer) confidence(score float64) float64 {
	if a.normaliser <= 0 {
		return 0
	}
	return round4(math.Min(1, score/a.normaliser))
}

func (a *Analyzer) clarity(an Analysis) float64 {
	s := a.cat.Settings
	w := s.ClarityWeights

	platform := 0.0
	if an.PlatformSignal != catalog.PlatformUnknown {
		platform = 1
	}
	specificity := 0.0
	if an.TokenCount > 0 {
		ratio := float64(an.KeywordTokenCount) / float64(an.TokenCount)
		specificity = math.Min(1, ratio/s.SpecificityCap)
	}
	features := math.Min(1, float64(len(an.DetectedFeatures))/float64(s.FeatureCap))

	score := w.Business*an.BusinessTypeConfidence +
		w.Platform*platform +
		w.Specificity*specificity +
		w.Features*features
	return round4(math.Max(0, math.Min(1, score)))
}

// NeedsClarification reports whether the analysis is too weak to recommend
// from without follow-up answers. A zero Analysis needs clarification.
func (a *Analyzer) NeedsClarification(an Analysis) bool {
	return an.ClarityScore < a.cat.Settings.ClarityThreshold ||
		!an.BusinessType.Valid() ||
		!an.PlatformSignal.Valid()
}

// matchPositions returns the start index of every contiguous occurrence of
// needle in tokens and marks the matched positions as covered.
func matchPositions(tokens, needle []string, covered []bool) []int {
	var out []int
	for i := 0; i+len(needle) <= len(tokens); i++ {
		match := true
		for j, want := range needle {
			if tokens[i+j] != want {
				match = false
				break
			}
		}
		if !match {
			continue
		}
		out = append(out, i)
		for j := range needle {
			covered[i+j] = true
		}
	}
	return out
}

// argmax returns the first index holding the largest score.
func argmax(scores []float64) (int, float64) {
	best, bestScore := -1, 0.0
	for i, s := range scores {
		if best == -1 || s > bestScore {
			best, bestScore = i, s
		}
	}
	return best, bestScore
}

func round4(x float64) float64 {
	return math.Round(x*1e4) / 1e4
}
