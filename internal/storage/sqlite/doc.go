// Package sqlite is the driven.Store implementation: a single embedded
// database file holding sources, documents, chunks, embeddings, tags,
// ingest jobs, and the query journal, with WAL journaling for
// single-process concurrent readers and a serialised writer.
//
// Schema lives under migrations/ as embedded *.sql files, applied in
// filename order against a schema_migrations tracking table. Default path
// is ~/.config/context-cache/cache.db.
package sqlite
