// Package similarity provides pure string and set similarity measures used
// by duplicate detection. All functions are deterministic and side-effect free.
package similarity

import "strings"

// winklerThreshold is the minimum Jaro score required before the common-prefix
// boost is applied.
const winklerThreshold = 0.7

// maxPrefixLength caps how many leading characters contribute to the Winkler boost.
const maxPrefixLength = 4

// prefixScale is the weight given to each shared prefix character.
const prefixScale = 0.1

// Similarity computes a [0,1] similarity between two strings.
// Comparison is case-insensitive after trimming. Exact equality returns 1.0.
// Two empty strings are considered identical; one empty side scores 0.0.
// Otherwise the score is Jaro similarity with a Winkler prefix boost, which
// rewards shared prefixes (useful for abbreviated company names like
// "Acme" vs "Acme Ltd").
func Similarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))

	if a == "" && b == "" {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	if a == b {
		return 1.0
	}

	j := jaro([]rune(a), []rune(b))
	if j < winklerThreshold {
		return j
	}

	prefix := commonPrefixLength(a, b)
	if prefix > maxPrefixLength {
		prefix = maxPrefixLength
	}

	return j + float64(prefix)*prefixScale*(1.0-j)
}

// jaro computes the classic Jaro similarity over rune slices.
func jaro(a, b []rune) float64 {
	la, lb := len(a), len(b)
	if la == 0 || lb == 0 {
		return 0.0
	}

	matchWindow := max(la, lb)/2 - 1
	if matchWindow < 0 {
		matchWindow = 0
	}

	aMatched := make([]bool, la)
	bMatched := make([]bool, lb)

	matches := 0
	for i := 0; i < la; i++ {
		lo := i - matchWindow
		if lo < 0 {
			lo = 0
		}
		hi := i + matchWindow + 1
		if hi > lb {
			hi = lb
		}
		for k := lo; k < hi; k++ {
			if bMatched[k] || a[i] != b[k] {
				continue
			}
			aMatched[i] = true
			bMatched[k] = true
			matches++
			break
		}
	}

	if matches == 0 {
		return 0.0
	}

	// Count transpositions among matched characters.
	transpositions := 0
	k := 0
	for i := 0; i < la; i++ {
		if !aMatched[i] {
			continue
		}
		for !bMatched[k] {
			k++
		}
		if a[i] != b[k] {
			transpositions++
		}
		k++
	}
	transpositions /= 2

	m := float64(matches)
	return (m/float64(la) + m/float64(lb) + (m-float64(transpositions))/m) / 3.0
}

// commonPrefixLength returns the number of leading characters shared by a and b.
func commonPrefixLength(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	n := len(ra)
	if len(rb) < n {
		n = len(rb)
	}
	count := 0
	for i := 0; i < n; i++ {
		if ra[i] != rb[i] {
			break
		}
		count++
	}
	return count
}

// Jaccard computes |A ∩ B| / |A ∪ B| over two string slices.
// Elements are lower-cased and trimmed before comparison so that "Java" and
// " java " count as the same technology. Returns 0 if either set is empty.
func Jaccard(a, b []string) float64 {
	setA := normalizeSet(a)
	setB := normalizeSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0.0
	}

	intersection := 0
	for item := range setA {
		if setB[item] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection

	return float64(intersection) / float64(union)
}

// normalizeSet lower-cases, trims, and de-duplicates a slice into a set.
func normalizeSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		normalized := strings.ToLower(strings.TrimSpace(item))
		if normalized != "" {
			set[normalized] = true
		}
	}
	return set
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
