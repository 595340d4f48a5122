// Package mbox loads mbox archives: one RawDocument in, one domain.Document
// out per contained message, each keyed by a derived ExternalID so
// re-ingesting the same mbox file doesn't duplicate the messages already
// seen. Message splitting on the "From " envelope line and per-message
// parsing otherwise follow the same net/mail approach as the eml loader.
package mbox

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/mail"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/context-cache/ctxc/internal/core/domain"
	"github.com/context-cache/ctxc/internal/core/ports/driven"
)

var _ driven.Loader = (*Loader)(nil)

type Loader struct{}

func New() *Loader { return &Loader{} }

func (l *Loader) Priority() int { return 50 }

func (l *Loader) SupportedMIME() []string { return []string{"application/mbox"} }

func (l *Loader) Load(raw domain.RawDocument) ([]domain.Document, error) {
	if len(raw.Content) == 0 {
		return nil, &domain.LoadError{Kind: domain.LoadErrorEmpty, Path: raw.Path}
	}

	messages := splitEnvelopes(raw.Content)
	if len(messages) == 0 {
		return nil, &domain.LoadError{Kind: domain.LoadErrorEmpty, Path: raw.Path}
	}

	docs := make([]domain.Document, 0, len(messages))
	for i, raw := range messages {
		doc, err := parseOne(raw)
		if err != nil {
			continue
		}
		doc.ExternalID = externalID(raw, i)
		docs = append(docs, doc)
	}
	if len(docs) == 0 {
		return nil, &domain.LoadError{Kind: domain.LoadErrorDecode, Path: "mbox"}
	}
	return docs, nil
}

func splitEnvelopes(content []byte) [][]byte {
	var out [][]byte
	var cur bytes.Buffer
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	started := false
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "From ") && (cur.Len() > 0 || !started) {
			if started {
				out = append(out, append([]byte(nil), cur.Bytes()...))
				cur.Reset()
			}
			started = true
			continue
		}
		cur.WriteString(line)
		cur.WriteByte('\n')
	}
	if cur.Len() > 0 {
		out = append(out, append([]byte(nil), cur.Bytes()...))
	}
	return out
}

func parseOne(raw []byte) (domain.Document, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return domain.Document{}, err
	}
	body, err := io.ReadAll(msg.Body)
	if err != nil {
		return domain.Document{}, err
	}

	subject := msg.Header.Get("Subject")
	from := msg.Header.Get("From")

	var sb strings.Builder
	sb.WriteString("From: " + from + "\n")
	sb.WriteString("Subject: " + subject + "\n\n")
	sb.Write(body)

	doc := domain.Document{
		ID:     uuid.New().String(),
		Title:  subject,
		Author: from,
		MIME:   "message/rfc822",
		Text:   sb.String(),
		Meta:   domain.DocumentMeta{Lang: "en"},
	}
	if t, err := msg.Header.Date(); err == nil {
		doc.CreatedTS = &t
	}
	return doc, nil
}

func externalID(raw []byte, index int) string {
	h := sha256.Sum256(raw)
	return hex.EncodeToString(h[:8]) + "-" + strconv.Itoa(index)
}
