package loaders

import (
	"github.com/context-cache/ctxc/internal/core/ports/driven"
	"github.com/context-cache/ctxc/internal/loaders/eml"
	"github.com/context-cache/ctxc/internal/loaders/markdown"
	"github.com/context-cache/ctxc/internal/loaders/mbox"
	"github.com/context-cache/ctxc/internal/loaders/notion"
	"github.com/context-cache/ctxc/internal/loaders/pdf"
	"github.com/context-cache/ctxc/internal/loaders/plaintext"
)

// RegisterDefaults wires every built-in loader into r, indexed by both
// MIME type and the file suffixes each format is normally found under.
func RegisterDefaults(r *Registry) {
	md := markdown.New()
	pt := plaintext.New()
	pf := pdf.New()
	em := eml.New()
	mb := mbox.New()
	nt := notion.New()

	var loaders = []driven.Loader{md, pt, pf, em, mb, nt}
	for _, l := range loaders {
		r.Register(l)
	}

	for _, suffix := range []string{"md", "markdown"} {
		r.RegisterSuffix(suffix, md)
	}
	for _, suffix := range []string{"txt", "text", "go", "py", "js", "ts", "rs", "java", "c", "cpp", "h", "sh", "json", "yaml", "yml", "toml", "log"} {
		r.RegisterSuffix(suffix, pt)
	}
	r.RegisterSuffix("pdf", pf)
	r.RegisterSuffix("eml", em)
	r.RegisterSuffix("mbox", mb)
	for _, suffix := range []string{"html", "htm"} {
		r.RegisterSuffix(suffix, nt)
	}
}
