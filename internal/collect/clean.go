package collect

import (
	"html"
	"regexp"
	"strings"
)

var tagPattern = regexp.MustCompile(`<[^>]+?>`)

// CleanHTML strips markup tags, decodes HTML entities and collapses runs of
// whitespace to single spaces. Safe on empty input.
func CleanHTML(raw string) string {
	if raw == "" {
		return ""
	}
	noTags := tagPattern.ReplaceAllString(raw, "")
	unescaped := html.UnescapeString(noTags)
	return strings.Join(strings.Fields(unescaped), " ")
}
