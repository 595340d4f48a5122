// Package eml loads individual RFC 5322 email messages via net/mail.
package eml

import (
	"bytes"
	"io"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/context-cache/ctxc/internal/core/domain"
	"github.com/context-cache/ctxc/internal/core/ports/driven"
)

var _ driven.Loader = (*Loader)(nil)

type Loader struct{}

func New() *Loader { return &Loader{} }

func (l *Loader) Priority() int { return 50 }

func (l *Loader) SupportedMIME() []string { return []string{"message/rfc822"} }

func (l *Loader) Load(raw domain.RawDocument) ([]domain.Document, error) {
	if len(raw.Content) == 0 {
		return nil, &domain.LoadError{Kind: domain.LoadErrorEmpty, Path: raw.Path}
	}
	doc, err := parseMessage(raw, bytes.NewReader(raw.Content))
	if err != nil {
		return nil, &domain.LoadError{Kind: domain.LoadErrorDecode, Path: raw.Path, Err: err}
	}
	return []domain.Document{doc}, nil
}

func parseMessage(raw domain.RawDocument, r io.Reader) (domain.Document, error) {
	msg, err := mail.ReadMessage(r)
	if err != nil {
		return domain.Document{}, err
	}
	body, err := io.ReadAll(msg.Body)
	if err != nil {
		return domain.Document{}, err
	}

	from := msg.Header.Get("From")
	to := msg.Header.Get("To")
	subject := msg.Header.Get("Subject")
	dateHdr := msg.Header.Get("Date")

	var sb strings.Builder
	sb.WriteString("From: " + from + "\n")
	sb.WriteString("To: " + to + "\n")
	sb.WriteString("Date: " + dateHdr + "\n")
	sb.WriteString("Subject: " + subject + "\n\n")
	sb.Write(body)

	doc := domain.Document{
		ID:       uuid.New().String(),
		SourceID: raw.SourceID,
		Title:    subject,
		Author:   from,
		MIME:     "message/rfc822",
		Text:     sb.String(),
		Meta:     domain.DocumentMeta{Lang: "en"},
	}
	if t, err := msg.Header.Date(); err == nil {
		doc.CreatedTS = &t
	}
	return doc, nil
}
