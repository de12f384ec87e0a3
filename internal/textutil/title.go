package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// DisplayTitle renders an internal token (state names, format names) for
// human-facing output: underscores become spaces and words are title-cased.
func DisplayTitle(token string) string {
	token = strings.TrimSpace(strings.ReplaceAll(token, "_", " "))
	if token == "" {
		return ""
	}
	return titleCaser.String(token)
}
