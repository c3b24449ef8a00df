// Package tokenize turns free text into the normalized token sequence that
// catalog keywords are matched against.
package tokenize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Tokenizer splits text into lower-cased, normalized word tokens. The same
// tokenizer must be used for input text and for catalog keyword terms.
type Tokenizer interface {
	Tokenize(text string) []string
}

// Func adapts a plain function to Tokenizer.
type Func func(text string) []string

func (f Func) Tokenize(text string) []string { return f(text) }

type defaultTokenizer struct{}

// Default returns the standard tokenizer: NFKC normalization, Unicode case
// folding, apostrophes dropped and a split on anything that is not a letter
// or digit. It is safe for concurrent use.
func Default() Tokenizer {
	return defaultTokenizer{}
}

func (defaultTokenizer) Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	// cases.Caser keeps internal state, so each call gets its own.
	folded := cases.Fold().String(norm.NFKC.String(text))
	folded = strings.NewReplacer("'", "", "’", "").Replace(folded)
	return strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
