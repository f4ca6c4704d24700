package search

import (
	"cmp"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"
)

const (
	highlightOpen  = "<mark>"
	highlightClose = "</mark>"

	snippetContext = 100
)

// highlightTerms wraps every case-insensitive occurrence of the terms in one
// pass, so markers never end up inside other markers.
func highlightTerms(text string, terms []string) string {
	if text == "" || len(terms) == 0 {
		return text
	}

	sorted := slices.Clone(terms)
	// longer terms first so "screener" wins over "screen"
	slices.SortStableFunc(sorted, func(a, b string) int {
		return cmp.Compare(len(b), len(a))
	})

	alternatives := make([]string, len(sorted))
	for i, term := range sorted {
		alternatives[i] = regexp.QuoteMeta(term)
	}
	matcher := regexp.MustCompile(`(?i)(?:` + strings.Join(alternatives, "|") + `)`)

	return matcher.ReplaceAllStringFunc(text, func(match string) string {
		return highlightOpen + match + highlightClose
	})
}

// contentSnippet cuts a window of snippetContext runes either side of the match,
// shrunk to whole words.
func contentSnippet(content string, match []int) string {
	start := match[0]
	for i := 0; i < snippetContext && start > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(content[:start])
		start -= size
	}

	end := match[1]
	for i := 0; i < snippetContext && end < len(content); i++ {
		_, size := utf8.DecodeRuneInString(content[end:])
		end += size
	}

	if start > 0 {
		if i := strings.IndexAny(content[start:match[0]], " \t\r\n"); i >= 0 {
			start += i + 1
		}
	}
	if end < len(content) {
		if i := strings.LastIndexAny(content[match[1]:end], " \t\r\n"); i >= 0 {
			end = match[1] + i
		}
	}

	return formatSnippet(content[start:end], start > 0, end < len(content))
}

func formatSnippet(snippet string, cutStart bool, cutEnd bool) string {
	snippet = strings.TrimSpace(snippet)
	if cutStart {
		snippet = "..." + snippet
	}
	if cutEnd {
		snippet = snippet + "..."
	}

	return snippet
}
