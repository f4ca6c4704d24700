package search

// fuzzyScore is an order-preserving subsequence match: the number of pattern
// runes found in order while scanning text, over the longer of the two lengths.
// Insertions in text are tolerated, reordering is not. The result is in [0, 1].
func fuzzyScore(pattern string, text string) float64 {
	p := []rune(pattern)
	t := []rune(text)

	longest := max(len(p), len(t))
	if longest == 0 {
		return 0
	}

	matched := 0
	for _, r := range t {
		if matched < len(p) && r == p[matched] {
			matched++
		}
	}

	return float64(matched) / float64(longest)
}
