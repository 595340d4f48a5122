package retriever

import (
	"regexp"
	"strings"
)

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

var sentenceSplitRe = regexp.MustCompile(`(?s)[^.!?]+[.!?]+`)

// snippet builds a short highlight around the first occurrence of any
// query token, falling back to the chunk's opening sentences.
func snippet(text, query string, maxLen int) string {
	sentences := sentenceSplitRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		if len(text) > maxLen {
			return strings.TrimSpace(text[:maxLen]) + "…"
		}
		return text
	}

	qtoks := tokenSet(query)
	for _, s := range sentences {
		for t := range tokenSet(s) {
			if _, ok := qtoks[strings.Trim(t, `.,;:!?"'()`)]; ok {
				return truncate(strings.TrimSpace(s), maxLen)
			}
		}
	}
	return truncate(strings.TrimSpace(sentences[0]), maxLen)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return strings.TrimSpace(s[:maxLen]) + "…"
}
