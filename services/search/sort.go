package search

import (
	"cmp"
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

func sortResults(results []resultWithDate, mode SortMode) {
	switch mode {
	case SortDate:
		slices.SortStableFunc(results, func(a, b resultWithDate) int {
			return b.date.Compare(a.date)
		})
	case SortTitle:
		// collators keep internal buffers, one per call
		collator := collate.New(language.English)
		slices.SortStableFunc(results, func(a, b resultWithDate) int {
			return collator.CompareString(a.Title, b.Title)
		})
	default:
		slices.SortStableFunc(results, func(a, b resultWithDate) int {
			return cmp.Compare(b.Score, a.Score)
		})
	}
}
