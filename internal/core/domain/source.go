package domain

import "time"

// SourceKind identifies the kind of data a Source watches.
type SourceKind string

// Supported source kinds. All are local file formats — Context Cache never
// indexes a remote account.
const (
	SourceKindFolder       SourceKind = "folder"
	SourceKindMbox         SourceKind = "mbox"
	SourceKindEml          SourceKind = "eml"
	SourceKindMarkdown     SourceKind = "markdown"
	SourceKindNotionExport SourceKind = "notion_export"
	SourceKindOther        SourceKind = "other"
)

// Valid reports whether k is one of the supported source kinds.
func (k SourceKind) Valid() bool {
	switch k {
	case SourceKindFolder, SourceKindMbox, SourceKindEml, SourceKindMarkdown, SourceKindNotionExport, SourceKindOther:
		return true
	default:
		return false
	}
}

// Source represents a configured data source that the watcher observes and
// the ingest pipeline consumes.
type Source struct {
	ID            string
	Kind          SourceKind
	URI           string
	Label         string
	IncludeGlob   []string
	ExcludeGlob   []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
