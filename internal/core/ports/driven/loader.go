package driven

import "github.com/context-cache/ctxc/internal/core/domain"

// Loader converts a RawDocument into zero or more Documents. A loader that
// handles container formats (mbox) returns one Document per contained
// message; all other loaders return exactly one.
type Loader interface {
	// Priority breaks ties when more than one loader claims the same MIME
	// type; higher runs first.
	Priority() int
	SupportedMIME() []string
	Load(raw domain.RawDocument) ([]domain.Document, error)
}

// LoaderRegistry resolves a RawDocument to the loader responsible for it,
// by suffix and MIME sniffing, the way the ingest pipeline's front door
// does.
type LoaderRegistry interface {
	Register(l Loader)
	Resolve(path string, mime string) (Loader, bool)
}
