// Package plaintext is the fallback loader for plain text and source code.
package plaintext

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/context-cache/ctxc/internal/core/domain"
	"github.com/context-cache/ctxc/internal/core/ports/driven"
)

var _ driven.Loader = (*Loader)(nil)

type Loader struct{}

func New() *Loader { return &Loader{} }

func (l *Loader) Priority() int { return 5 }

func (l *Loader) SupportedMIME() []string {
	return []string{
		"text/plain", "text/x-go", "text/x-python", "text/x-rust", "text/x-java",
		"text/x-c", "text/x-c++", "text/csv", "text/yaml", "application/json",
	}
}

func (l *Loader) Load(raw domain.RawDocument) ([]domain.Document, error) {
	if len(raw.Content) == 0 {
		return nil, &domain.LoadError{Kind: domain.LoadErrorEmpty, Path: raw.Path}
	}
	doc := domain.Document{
		ID:       uuid.New().String(),
		SourceID: raw.SourceID,
		MIME:     raw.MIME,
		Title:    titleFromPath(raw.Path),
		Text:     string(raw.Content),
		Meta:     domain.DocumentMeta{Lang: "en"},
	}
	return []domain.Document{doc}, nil
}

func titleFromPath(path string) string {
	name := filepath.Base(path)
	if ext := filepath.Ext(name); ext != "" {
		name = strings.TrimSuffix(name, ext)
	}
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	return name
}
