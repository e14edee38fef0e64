// Package search folds free-text filters into terms that can be matched
// against a pre-folded search column.
//
// Folding is Unicode-aware: text is decomposed (NFD), combining marks are
// dropped, and the result is case-folded, so "Élodie" and "elodie" produce
// the same term. The same Fold is applied when a row is written and when a
// query is parsed, which keeps matching a plain substring test.
package search

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxTerms caps how many distinct terms a single query contributes.
const MaxTerms = 8

var (
	wordRE = regexp.MustCompile(`[\p{L}\p{N}@._+-]+`)
	folder = cases.Fold()
)

// Fold returns s without diacritics, case-folded, with runs of whitespace
// collapsed to a single space.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(folder.String(out)), " ")
}

// Document folds and joins the non-empty parts of a row into the value
// stored in its search column.
func Document(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if f := Fold(p); f != "" {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, " ")
}

// Terms splits a query into distinct folded terms, in first-seen order.
// An empty or punctuation-only query yields nil.
func Terms(q string) []string {
	words := wordRE.FindAllString(Fold(q), -1)
	if len(words) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.Trim(w, ".-_")
		if w == "" {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
		if len(out) == MaxTerms {
			break
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// LikePattern returns a SQL LIKE pattern matching term anywhere in a value.
// The wildcards % and _ and the escape character itself are escaped with a
// backslash, so callers must use "ESCAPE '\'".
func LikePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}
