// Package notion loads flattened Notion HTML exports via
// code.sajari.com/docconv's HTML conversion. Notion's export zip names each
// page "<Title> <hash>.html"; the hash suffix becomes the external ID so
// re-exporting the same workspace doesn't duplicate pages.
package notion

import (
	"bytes"
	"path/filepath"
	"regexp"
	"strings"

	"code.sajari.com/docconv"
	"github.com/google/uuid"

	"github.com/context-cache/ctxc/internal/core/domain"
	"github.com/context-cache/ctxc/internal/core/ports/driven"
)

var _ driven.Loader = (*Loader)(nil)

var hashSuffixRe = regexp.MustCompile(`\s+[0-9a-f]{32}$`)

type Loader struct{}

func New() *Loader { return &Loader{} }

func (l *Loader) Priority() int { return 60 }

func (l *Loader) SupportedMIME() []string { return []string{"text/html"} }

func (l *Loader) Load(raw domain.RawDocument) ([]domain.Document, error) {
	if len(raw.Content) == 0 {
		return nil, &domain.LoadError{Kind: domain.LoadErrorEmpty, Path: raw.Path}
	}

	body, _, err := docconv.ConvertHTML(bytes.NewReader(raw.Content), false)
	if err != nil {
		return nil, &domain.LoadError{Kind: domain.LoadErrorDecode, Path: raw.Path, Err: err}
	}

	base := strings.TrimSuffix(filepath.Base(raw.Path), filepath.Ext(raw.Path))
	externalID := ""
	if m := hashSuffixRe.FindString(base); m != "" {
		externalID = strings.TrimSpace(m)
		base = strings.TrimSuffix(base, m)
	}

	doc := domain.Document{
		ID:         uuid.New().String(),
		SourceID:   raw.SourceID,
		ExternalID: externalID,
		Title:      strings.TrimSpace(base),
		MIME:       "text/html",
		Text:       strings.TrimSpace(body),
		Meta:       domain.DocumentMeta{Lang: "en"},
	}
	return []domain.Document{doc}, nil
}
