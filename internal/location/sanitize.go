package location

import (
	"html"
	"regexp"
	"strings"
)

var (
	scriptBlocks = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	htmlTags     = regexp.MustCompile(`(?s)<[^>]*>`)
	multiSpace   = regexp.MustCompile(`[ \t]{2,}`)
)

// Sanitize strips markup from source-provided free text: script/style blocks
// are dropped with their contents, remaining tags are removed, entities are
// decoded, and whitespace is collapsed. Source data is crowd- or
// scraper-provided and must never carry markup into the corpus.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	s = scriptBlocks.ReplaceAllString(s, " ")
	s = htmlTags.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = multiSpace.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
