package chunker

import "github.com/context-cache/ctxc/internal/core/ports/driven"

var _ driven.Tokeniser = ApproxTokeniser{}

// ApproxTokeniser counts tokens as ceil(runes/4), an offline fallback for
// when no real tokeniser is wired in. A character-based approximation
// degrades gracefully for code and non-English text alike.
type ApproxTokeniser struct{}

func (ApproxTokeniser) Kind() string { return "approx-char4" }

func (ApproxTokeniser) Count(s string) int {
	n := len([]rune(s))
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}
