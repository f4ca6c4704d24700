package search

import (
	"math"
	"regexp"
	"slices"
	"strings"
	"time"
)

const (
	pointsTitleExact    = 15
	pointsTitlePhrase   = 25
	pointsContentHit    = 2
	maxPointsContent    = 10
	pointsExcerpt       = 8
	pointsTagExact      = 12
	pointsTagFuzzy      = 8
	pointsCategory      = 10
	pointsWordBoundary  = 5
	pointsRecentMonth   = 3
	pointsRecentQuarter = 1
	pointsPost          = 1

	titleFuzzyThreshold  = 0.7
	tagFuzzyThreshold    = 0.8
	maxProximityDistance = 5
)

const (
	fieldTitle   = "title"
	fieldContent = "content"
	fieldExcerpt = "excerpt"
)

type query struct {
	phrase string
	terms  []string
	// literal and whole-word matchers, case-insensitive, keyed by term
	literal   map[string]*regexp.Regexp
	wholeWord map[string]*regexp.Regexp
}

func newQuery(queryString string) *query {
	q := &query{
		phrase:    strings.ToLower(strings.TrimSpace(queryString)),
		literal:   make(map[string]*regexp.Regexp),
		wholeWord: make(map[string]*regexp.Regexp),
	}

	for _, term := range strings.Fields(q.phrase) {
		q.terms = append(q.terms, term)
		if _, ok := q.literal[term]; ok {
			continue
		}
		quoted := regexp.QuoteMeta(term)
		q.literal[term] = regexp.MustCompile(`(?i)` + quoted)
		q.wholeWord[term] = regexp.MustCompile(`(?i)\b` + quoted + `\b`)
	}

	return q
}

// score sums per-term signals (terms are ORed) and whole-query bonuses. Recency
// and type boosts only apply to items that matched textually, so a zero score
// always means no match.
func (q *query) score(item indexedItem, now time.Time) (float64, map[string]string) {
	var score float64
	hits := make(map[string][]string)
	titleFuzzyHit := false

	for _, term := range q.terms {
		if strings.Contains(item.title, term) {
			score += pointsTitleExact
			hits[fieldTitle] = appendUnique(hits[fieldTitle], term)
		}
		// scored whether or not the exact title hit fired
		if fuzzy := fuzzyScore(term, item.title); fuzzy > titleFuzzyThreshold {
			score += math.Round(fuzzy * 10)
			titleFuzzyHit = true
		}

		if count := len(q.literal[term].FindAllStringIndex(item.Content, -1)); count > 0 {
			score += math.Min(float64(count*pointsContentHit), maxPointsContent)
			hits[fieldContent] = appendUnique(hits[fieldContent], term)
		}

		if strings.Contains(item.excerpt, term) {
			score += pointsExcerpt
			hits[fieldExcerpt] = appendUnique(hits[fieldExcerpt], term)
		}

		for _, tag := range item.tags {
			if strings.Contains(tag, term) {
				score += pointsTagExact
			} else if fuzzyScore(term, tag) > tagFuzzyThreshold {
				score += pointsTagFuzzy
			}
		}

		if strings.Contains(item.category, term) {
			score += pointsCategory
		}

		if q.wholeWord[term].MatchString(item.searchable) {
			score += pointsWordBoundary
		}
	}

	if strings.Contains(item.title, q.phrase) {
		score += pointsTitlePhrase
	}

	if len(q.terms) > 1 {
		score += proximityBonus(item.words, q.terms)
	}

	if score <= 0 {
		return 0, nil
	}

	score += recencyBoost(item, now)
	if item.Type == TypePost {
		score += pointsPost
	}

	return score, q.highlights(item, hits, titleFuzzyHit)
}

func (q *query) highlights(item indexedItem, hits map[string][]string, titleFuzzyHit bool) map[string]string {
	highlights := make(map[string]string)

	if terms, ok := hits[fieldTitle]; ok {
		highlights[fieldTitle] = highlightTerms(item.Title, terms)
	} else if titleFuzzyHit {
		highlights[fieldTitle] = item.Title
	}

	if terms, ok := hits[fieldContent]; ok {
		if loc := q.literal[terms[0]].FindStringIndex(item.Content); loc != nil {
			highlights[fieldContent] = highlightTerms(contentSnippet(item.Content, loc), terms)
		}
	}

	if terms, ok := hits[fieldExcerpt]; ok {
		highlights[fieldExcerpt] = highlightTerms(item.Excerpt, terms)
	}

	return highlights
}

// proximityBonus rewards pairs of terms whose first containing words are close.
// Only the first word containing each term is considered.
func proximityBonus(words []string, terms []string) float64 {
	positions := make([]int, len(terms))
	for i, term := range terms {
		positions[i] = slices.IndexFunc(words, func(word string) bool {
			return strings.Contains(word, term)
		})
	}

	var bonus float64
	for i := 0; i < len(terms); i++ {
		for j := i + 1; j < len(terms); j++ {
			if positions[i] < 0 || positions[j] < 0 {
				continue
			}
			distance := positions[i] - positions[j]
			if distance < 0 {
				distance = -distance
			}
			if distance <= maxProximityDistance {
				bonus += float64(max(0, maxProximityDistance-distance))
			}
		}
	}

	return bonus
}

func recencyBoost(item indexedItem, now time.Time) float64 {
	if !item.hasDate {
		return 0
	}

	age := now.Sub(item.date)
	switch {
	case age < 30*24*time.Hour:
		return pointsRecentMonth
	case age < 90*24*time.Hour:
		return pointsRecentQuarter
	default:
		return 0
	}
}

func appendUnique(terms []string, term string) []string {
	if slices.Contains(terms, term) {
		return terms
	}
	return append(terms, term)
}
