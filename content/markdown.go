package content

import (
	"regexp"
	"strings"
)

var (
	codeFenceMarkers = regexp.MustCompile("(?m)^\\s*(```|~~~)[^\\n]*$")
	inlineCode       = regexp.MustCompile("`([^`]+)`")
	images           = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	links            = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	htmlTags         = regexp.MustCompile(`</?[A-Za-z][^>]*>`)
	headings         = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	emphasis         = regexp.MustCompile(`(\*\*|__|\*|~~)`)
	blockquotes      = regexp.MustCompile(`(?m)^\s*>\s?`)
	horizontalRules  = regexp.MustCompile(`(?m)^\s*([-*_]\s*){3,}$`)
	listMarkers      = regexp.MustCompile(`(?m)^\s*([-*+]|\d+\.)\s+`)
	blankLines       = regexp.MustCompile(`\n{3,}`)
)

// stripMarkdown turns markdown into searchable plain text. Code is kept as
// text since posts are often searched by the identifiers they mention.
func stripMarkdown(markdown string) string {
	text := codeFenceMarkers.ReplaceAllString(markdown, "")
	text = inlineCode.ReplaceAllString(text, "$1")
	text = images.ReplaceAllString(text, "$1")
	text = links.ReplaceAllString(text, "$1")
	text = htmlTags.ReplaceAllString(text, "")
	text = headings.ReplaceAllString(text, "")
	text = horizontalRules.ReplaceAllString(text, "")
	text = listMarkers.ReplaceAllString(text, "")
	text = blockquotes.ReplaceAllString(text, "")
	text = emphasis.ReplaceAllString(text, "")
	text = blankLines.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}
