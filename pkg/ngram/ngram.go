// Package ngram turns free text into fixed-length character shingles and
// compares shingle sets.
package ngram

import (
	"regexp"
	"sort"
	"strings"
)

// DefaultSize is the gram length used when callers have no preference.
const DefaultSize = 3

// IndexSizes are the gram lengths the doctor index is built with.
var IndexSizes = []int{2, 3, 4}

var nonWordOrSpace = regexp.MustCompile(`[^\w\s]`)

// Normalize lower-cases text and strips everything that is not a word
// character or whitespace. Whitespace is kept as-is.
func Normalize(text string) string {
	return nonWordOrSpace.ReplaceAllString(strings.ToLower(text), "")
}

// Generate slides a window of width n over the normalized text with stride 1.
// Order and duplicates are preserved. Text shorter than n yields an empty
// slice.
func Generate(text string, n int) []string {
	normalized := Normalize(text)
	if n < 1 || len(normalized) < n {
		return []string{}
	}

	grams := make([]string, 0, len(normalized)-n+1)
	for i := 0; i+n <= len(normalized); i++ {
		grams = append(grams, normalized[i:i+n])
	}
	return grams
}

// Set is a deduplicated collection of grams.
type Set map[string]struct{}

// NewSet builds the gram set of text for size n.
func NewSet(text string, n int) Set {
	grams := Generate(text, n)
	set := make(Set, len(grams))
	for _, g := range grams {
		set[g] = struct{}{}
	}
	return set
}

// Sets builds one gram set per requested size.
func Sets(text string, sizes ...int) map[int]Set {
	sets := make(map[int]Set, len(sizes))
	for _, n := range sizes {
		sets[n] = NewSet(text, n)
	}
	return sets
}

// Contains reports whether gram is in the set.
func (s Set) Contains(gram string) bool {
	_, ok := s[gram]
	return ok
}

// Sorted returns the grams in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for g := range s {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}
