// Package pdf loads PDF documents via ledongthuc/pdf. Page boundaries are
// recorded as domain.PageSpan so chunks that cross or sit within a page
// carry page_from/page_to provenance.
package pdf

import (
	"bytes"
	"strings"

	"github.com/google/uuid"
	pdflib "github.com/ledongthuc/pdf"

	"github.com/context-cache/ctxc/internal/core/domain"
	"github.com/context-cache/ctxc/internal/core/ports/driven"
)

var _ driven.Loader = (*Loader)(nil)

type Loader struct{}

func New() *Loader { return &Loader{} }

func (l *Loader) Priority() int { return 50 }

func (l *Loader) SupportedMIME() []string { return []string{"application/pdf"} }

func (l *Loader) Load(raw domain.RawDocument) ([]domain.Document, error) {
	if len(raw.Content) == 0 {
		return nil, &domain.LoadError{Kind: domain.LoadErrorEmpty, Path: raw.Path}
	}

	reader, err := pdflib.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return nil, &domain.LoadError{Kind: domain.LoadErrorDecode, Path: raw.Path, Err: err}
	}

	var sb strings.Builder
	var pages []domain.PageSpan
	n := reader.NumPage()
	for i := 1; i <= n; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		start := sb.Len()
		sb.WriteString(text)
		sb.WriteString("\n")
		pages = append(pages, domain.PageSpan{Index: i, StartChar: start, EndChar: sb.Len()})
	}

	if sb.Len() == 0 {
		return nil, &domain.LoadError{Kind: domain.LoadErrorEmpty, Path: raw.Path}
	}

	doc := domain.Document{
		ID:       uuid.New().String(),
		SourceID: raw.SourceID,
		MIME:     "application/pdf",
		Text:     sb.String(),
		Meta:     domain.DocumentMeta{Pages: pages, Lang: "en"},
	}
	return []domain.Document{doc}, nil
}
