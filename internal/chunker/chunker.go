// Package chunker splits a normalised document into retrieval-sized spans:
// segment on structural boundaries first (Markdown headings, blank-line
// paragraph breaks), then greedily accumulate segments into a chunk until
// its token budget is hit or its section changes, splitting any single
// oversized segment on sentence boundaries. Chunk text is always a verbatim
// slice of the document text, never a reconstruction, so start_char/end_char
// stay byte-exact.
package chunker

import (
	"regexp"
	"strings"

	"github.com/context-cache/ctxc/internal/core/domain"
	"github.com/context-cache/ctxc/internal/core/ports/driven"
)

var _ driven.Chunker = (*Chunker)(nil)

var headingRe = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)
var sentenceBoundaryRe = regexp.MustCompile(`(?s)(.*?[.!?])\s+`)

// Budget controls chunk sizing in tokens, as counted by Tokeniser.
type Budget struct {
	Target int
	Max    int
	Min    int
}

// DefaultBudget matches the pinned retrieval-sized defaults: 512 target
// tokens, capped at 768; a chunk under 120 is folded into the preceding
// chunk of the same section, and otherwise kept as it is.
func DefaultBudget() Budget {
	return Budget{Target: 512, Max: 768, Min: 120}
}

type segment struct {
	text      string
	startChar int
	endChar   int
	section   string
}

// Chunker implements driven.Chunker.
type Chunker struct {
	Tokeniser driven.Tokeniser
	Budget    Budget
}

func New(tok driven.Tokeniser, budget Budget) *Chunker {
	if tok == nil {
		tok = ApproxTokeniser{}
	}
	return &Chunker{Tokeniser: tok, Budget: budget}
}

func (c *Chunker) Chunk(doc domain.Document) ([]domain.Chunk, error) {
	if strings.TrimSpace(doc.Text) == "" {
		return nil, nil
	}

	segments := segmentDocument(doc.Text)
	var packed []segment
	for _, s := range segments {
		if c.Tokeniser.Count(s.text) > c.Budget.Max {
			packed = append(packed, splitOversized(s, c.Tokeniser, c.Budget.Max)...)
		} else {
			packed = append(packed, s)
		}
	}

	chunks := c.greedyPack(doc.Text, packed)
	out := make([]domain.Chunk, 0, len(chunks))
	for i, ch := range chunks {
		text := doc.Text[ch.startChar:ch.endChar]
		pageFrom, pageTo := pagesFor(doc.Meta.Pages, ch.startChar, ch.endChar)
		out = append(out, domain.Chunk{
			DocumentID: doc.ID,
			Ordinal:    i,
			StartChar:  ch.startChar,
			EndChar:    ch.endChar,
			Text:       text,
			TokenCount: c.Tokeniser.Count(text),
			Meta: domain.ChunkMeta{
				Section:       ch.section,
				PageFrom:      pageFrom,
				PageTo:        pageTo,
				TokeniserKind: c.Tokeniser.Kind(),
				Fingerprint:   fnv64(text),
			},
		})
	}
	return out, nil
}

// segmentDocument splits on Markdown heading boundaries when present,
// otherwise on blank-line paragraph breaks, carrying the nearest preceding
// heading as each segment's section label.
func segmentDocument(text string) []segment {
	locs := headingRe.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return segmentParagraphs(text, "")
	}

	var segs []segment
	for i, loc := range locs {
		headingStart := loc[0]
		bodyStart := loc[1]
		section := text[loc[4]:loc[5]]

		bodyEnd := len(text)
		if i+1 < len(locs) {
			bodyEnd = locs[i+1][0]
		}

		if i == 0 && headingStart > 0 {
			segs = append(segs, segmentParagraphs(text[:headingStart], "")...)
		}

		body := text[bodyStart:bodyEnd]
		for _, s := range segmentParagraphs(body, section) {
			s.startChar += bodyStart
			s.endChar += bodyStart
			segs = append(segs, s)
		}
	}
	return segs
}

func segmentParagraphs(text string, section string) []segment {
	var segs []segment
	offset := 0
	for _, para := range strings.Split(text, "\n\n") {
		start := strings.Index(text[offset:], para) + offset
		trimmed := strings.TrimSpace(para)
		if trimmed != "" {
			segs = append(segs, segment{
				text:      trimmed,
				startChar: start,
				endChar:   start + len(para),
				section:   section,
			})
		}
		offset = start + len(para)
	}
	return segs
}

// splitOversized breaks a single too-large segment on sentence boundaries,
// accumulating sentences up to maxTokens per piece.
func splitOversized(s segment, tok driven.Tokeniser, maxTokens int) []segment {
	sentences := splitSentences(s.text)
	var out []segment
	var cur strings.Builder
	curStart := s.startChar
	pos := s.startChar

	flush := func(end int) {
		if cur.Len() == 0 {
			return
		}
		out = append(out, segment{text: strings.TrimSpace(cur.String()), startChar: curStart, endChar: end, section: s.section})
		cur.Reset()
	}

	for _, sent := range sentences {
		if cur.Len() > 0 && tok.Count(cur.String()+" "+sent) > maxTokens {
			flush(pos)
			curStart = pos
		}
		if cur.Len() > 0 {
			cur.WriteString(" ")
		}
		cur.WriteString(sent)
		pos += len(sent) + 1
	}
	flush(s.endChar)
	return out
}

func splitSentences(text string) []string {
	var out []string
	rest := text
	for {
		m := sentenceBoundaryRe.FindStringSubmatchIndex(rest)
		if m == nil {
			break
		}
		out = append(out, rest[m[2]:m[3]])
		rest = rest[m[1]:]
	}
	if strings.TrimSpace(rest) != "" {
		out = append(out, strings.TrimSpace(rest))
	}
	return out
}

type packedChunk struct {
	startChar int
	endChar   int
	section   string
}

// greedyPack accumulates segments into chunks until the target budget is
// reached, the next segment would push past the max budget, or the section
// changes, whichever comes first. Chunk spans are
// tracked as start/end offsets only; the text itself is always sliced
// verbatim from the document afterwards so a chunk's bytes never diverge
// from doc.Text[start_char:end_char].
func (c *Chunker) greedyPack(fullText string, segs []segment) []packedChunk {
	var chunks []packedChunk
	var cur []segment
	curTokens := 0

	flush := func() {
		if len(cur) == 0 {
			return
		}
		chunks = append(chunks, packedChunk{
			startChar: cur[0].startChar,
			endChar:   cur[len(cur)-1].endChar,
			section:   firstSection(cur),
		})
		cur = nil
		curTokens = 0
	}

	for _, s := range segs {
		t := c.Tokeniser.Count(s.text)
		sectionChanged := len(cur) > 0 && cur[len(cur)-1].section != s.section
		if curTokens > 0 && (sectionChanged || curTokens+t > c.Budget.Max) {
			flush()
		}
		cur = append(cur, s)
		curTokens += t
		if curTokens >= c.Budget.Target {
			flush()
		}
	}
	flush()

	return mergeUndersized(fullText, chunks, c.Budget.Min, c.Tokeniser)
}

func firstSection(segs []segment) string {
	for _, s := range segs {
		if s.section != "" {
			return s.section
		}
	}
	return ""
}

// mergeUndersized folds a chunk below the minimum budget into its preceding
// neighbour, so a stray trailing paragraph never becomes its own retrieval
// unit. Only chunks within the same section are merged; a section boundary
// flush stands even when the resulting chunk is small.
func mergeUndersized(fullText string, chunks []packedChunk, minTokens int, tok driven.Tokeniser) []packedChunk {
	if len(chunks) <= 1 {
		return chunks
	}
	var out []packedChunk
	for _, ch := range chunks {
		if len(out) > 0 {
			prev := out[len(out)-1]
			if prev.section == ch.section && tok.Count(fullText[ch.startChar:ch.endChar]) < minTokens {
				prev.endChar = ch.endChar
				out[len(out)-1] = prev
				continue
			}
		}
		out = append(out, ch)
	}
	return out
}

func pagesFor(pages []domain.PageSpan, start, end int) (*int, *int) {
	if len(pages) == 0 {
		return nil, nil
	}
	var from, to *int
	for _, p := range pages {
		if p.EndChar <= start || p.StartChar >= end {
			continue
		}
		idx := p.Index
		if from == nil {
			from = &idx
		}
		to = &idx
	}
	return from, to
}

func fnv64(s string) uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	h := uint64(offset64)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime64
	}
	return h
}
