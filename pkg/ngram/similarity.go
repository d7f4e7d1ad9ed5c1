package ngram

import "math"

// Jaccard returns |A∩B| / |A∪B|.
func Jaccard(a, b Set) float64 {
	if v, ok := emptyCase(a, b); ok {
		return v
	}
	inter := intersection(a, b)
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// Dice returns 2|A∩B| / (|A|+|B|).
func Dice(a, b Set) float64 {
	if v, ok := emptyCase(a, b); ok {
		return v
	}
	return 2 * float64(intersection(a, b)) / float64(len(a)+len(b))
}

// OverlapCosine returns |A∩B| / sqrt(|A|·|B|).
func OverlapCosine(a, b Set) float64 {
	if v, ok := emptyCase(a, b); ok {
		return v
	}
	return float64(intersection(a, b)) / math.Sqrt(float64(len(a))*float64(len(b)))
}

// TextDice compares two raw strings with Dice over their n-gram sets.
func TextDice(a, b string, n int) float64 {
	return Dice(NewSet(a, n), NewSet(b, n))
}

// Intersection counts the grams shared by a and b.
func Intersection(a, b Set) int {
	return intersection(a, b)
}

// emptyCase: both empty is a perfect match, one empty is no match.
func emptyCase(a, b Set) (float64, bool) {
	switch {
	case len(a) == 0 && len(b) == 0:
		return 1, true
	case len(a) == 0 || len(b) == 0:
		return 0, true
	}
	return 0, false
}

func intersection(a, b Set) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	count := 0
	for g := range a {
		if _, ok := b[g]; ok {
			count++
		}
	}
	return count
}
