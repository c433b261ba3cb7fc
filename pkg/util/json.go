package util

import (
	"regexp"
	"strings"
)

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// ExtractJsonFromText returns the JSON payload of a model reply. Fenced code
// blocks win; otherwise the outermost object or array is cut out. Text
// without any braces comes back unchanged.
func ExtractJsonFromText(text string) string {
	if m := fencedJSON.FindStringSubmatch(text); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}

	start := strings.IndexAny(text, "{[")
	end := strings.LastIndexAny(text, "}]")
	if start < 0 || end <= start {
		return text
	}
	return text[start : end+1]
}
