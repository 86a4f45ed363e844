package catalog

import (
	"unicode"

	"github.com/clipperhouse/uax29/v2/words"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Normalizer rewrites a sequence of keyword terms. A keyword index applies its
// normalizer both to the terms it stores and to the terms it is queried with.
type Normalizer func(terms []string) []string

func identityNormalizer(terms []string) []string {
	return terms
}

// FoldNormalizer applies Unicode normalization (NFKC) and case folding to
// every term and drops terms that end up empty.
func FoldNormalizer(terms []string) []string {
	folder := cases.Fold()
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		n := folder.String(norm.NFKC.String(t))
		if n == "" {
			continue
		}
		out = append(out, n)
	}
	return out
}

// Tokenize splits text into words using UAX#29 word segmentation.
// Segments without a letter or digit (spaces, punctuation) are dropped.
func Tokenize(text string) []string {
	toks := words.FromString(text)
	var tokens []string
	for toks.Next() {
		tok := toks.Value()
		if isWord(tok) {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

func isWord(tok string) bool {
	for _, r := range tok {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
