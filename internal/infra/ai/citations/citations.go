package citations

import (
	"net/url"
	"regexp"
	"strings"

	"mvdan.cc/xurls/v2"
)

var textURLs = mustScheme(`https?://`)

func mustScheme(exp string) *regexp.Regexp {
	re, err := xurls.StrictMatchingScheme(exp)
	if err != nil {
		panic(err)
	}
	return re
}

// FromText returns the http(s) URLs written in free text, in order of appearance.
func FromText(text string) []string {
	var out []string
	for _, raw := range textURLs.FindAllString(text, -1) {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			continue
		}
		out = append(out, raw)
	}
	return out
}

// Merge concatenates lists, dropping blanks and duplicates. First occurrence wins.
func Merge(lists ...[]string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, l := range lists {
		for _, c := range l {
			c = strings.TrimSpace(c)
			if c == "" || seen[c] {
				continue
			}
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// Collect is the common adapter rule: structured citations first, then
// URLs found in the answer text.
func Collect(structured []string, text string) []string {
	return Merge(structured, FromText(text))
}
