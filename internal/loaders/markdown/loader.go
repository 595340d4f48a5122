// Package markdown loads Markdown documents. Unlike a typical Markdown
// normaliser, this loader does not strip heading markup: the structural
// chunker needs `#`/`##` boundaries intact to stamp section metadata on
// chunks, so stripping happens nowhere in this pipeline.
package markdown

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/context-cache/ctxc/internal/core/domain"
	"github.com/context-cache/ctxc/internal/core/ports/driven"
)

var _ driven.Loader = (*Loader)(nil)

var frontMatterRe = regexp.MustCompile(`(?s)^---\n(.*?)\n---\n`)
var tagLineRe = regexp.MustCompile(`(?m)^tags:\s*\[([^\]]*)\]\s*$`)
var headingRe = regexp.MustCompile(`(?m)^#\s+(.+)$`)

type Loader struct{}

func New() *Loader { return &Loader{} }

func (l *Loader) Priority() int { return 50 }

func (l *Loader) SupportedMIME() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

func (l *Loader) Load(raw domain.RawDocument) ([]domain.Document, error) {
	if len(raw.Content) == 0 {
		return nil, &domain.LoadError{Kind: domain.LoadErrorEmpty, Path: raw.Path}
	}

	body := string(raw.Content)
	var tags []string
	if m := frontMatterRe.FindStringSubmatch(body); m != nil {
		if tm := tagLineRe.FindStringSubmatch(m[1]); tm != nil {
			for _, t := range strings.Split(tm[1], ",") {
				t = strings.Trim(strings.TrimSpace(t), `"'`)
				if t != "" {
					tags = append(tags, t)
				}
			}
		}
		body = body[len(m[0]):]
	}

	title := extractTitle(body, raw.Path)

	doc := domain.Document{
		ID:       uuid.New().String(),
		SourceID: raw.SourceID,
		Title:    title,
		MIME:     "text/markdown",
		Text:     strings.TrimSpace(body),
		Meta: domain.DocumentMeta{
			Tags: tags,
			Lang: "en",
		},
	}
	return []domain.Document{doc}, nil
}

func extractTitle(content, path string) string {
	if m := headingRe.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1])
	}
	name := filepath.Base(path)
	if ext := filepath.Ext(name); ext != "" {
		name = strings.TrimSuffix(name, ext)
	}
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	return name
}
