package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/context-cache/ctxc/internal/core/domain"
	"github.com/context-cache/ctxc/internal/core/ports/driven"
	"github.com/context-cache/ctxc/internal/storage/sqlite/migrations"
	"github.com/context-cache/ctxc/internal/vecenc"
)

var _ driven.Store = (*Store)(nil)

// Store is a single embedded SQLite database backing every entity the
// cache tracks. writeMu serialises writers: SQLite allows one writer at a
// time even under WAL, and this makes that constraint explicit rather
// than relying on SQLITE_BUSY retries.
type Store struct {
	db      *sql.DB
	writeMu sync.Mutex
}

// NewStore opens (creating if absent) the database file at path, enables
// WAL journaling and foreign keys, and applies any pending migrations.
func NewStore(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(8)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied_at TEXT NOT NULL)`); err != nil {
		return err
	}

	entries, err := migrations.FS.ReadDir(".")
	if err != nil {
		return err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		var applied int
		if err := s.db.QueryRow(`SELECT COUNT(1) FROM schema_migrations WHERE version = ?`, name).Scan(&applied); err != nil {
			return err
		}
		if applied > 0 {
			continue
		}
		contents, err := migrations.FS.ReadFile(name)
		if err != nil {
			return err
		}
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(string(contents)); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply %s: %w", name, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations(version, applied_at) VALUES (?, ?)`, name, time.Now().UTC().Format(time.RFC3339)); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseNullableTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil
	}
	return &t
}

// --- sources ---

func (s *Store) UpsertSource(ctx context.Context, src domain.Source) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	include, _ := json.Marshal(src.IncludeGlob)
	exclude, _ := json.Marshal(src.ExcludeGlob)
	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sources (id, kind, uri, label, include_glob, exclude_glob, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind, uri = excluded.uri, label = excluded.label,
			include_glob = excluded.include_glob, exclude_glob = excluded.exclude_glob,
			updated_at = excluded.updated_at
	`, src.ID, string(src.Kind), src.URI, src.Label, string(include), string(exclude), now, now)
	return err
}

func (s *Store) GetSource(ctx context.Context, id string) (domain.Source, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, kind, uri, label, include_glob, exclude_glob, created_at, updated_at FROM sources WHERE id = ?`, id)
	return scanSource(row)
}

func (s *Store) ListSources(ctx context.Context) ([]domain.Source, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, kind, uri, label, include_glob, exclude_glob, created_at, updated_at FROM sources ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, rows.Err()
}

func (s *Store) DeleteSource(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (domain.Source, error) {
	var src domain.Source
	var kind, include, exclude, createdAt, updatedAt string
	if err := row.Scan(&src.ID, &kind, &src.URI, &src.Label, &include, &exclude, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return domain.Source{}, domain.ErrNotFound
		}
		return domain.Source{}, err
	}
	src.Kind = domain.SourceKind(kind)
	json.Unmarshal([]byte(include), &src.IncludeGlob)
	json.Unmarshal([]byte(exclude), &src.ExcludeGlob)
	src.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	src.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return src, nil
}

// --- documents ---

func (s *Store) UpsertDocument(ctx context.Context, d domain.Document) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	existing, found, err := s.getDocumentBySHA256Locked(ctx, d.SHA256)
	if err != nil {
		return false, err
	}
	if found && existing.SourceID == d.SourceID {
		now := time.Now().UTC().Format(time.RFC3339Nano)
		_, err := s.db.ExecContext(ctx, `UPDATE documents SET updated_at = ? WHERE id = ?`, now, existing.ID)
		return false, err
	}

	meta, _ := json.Marshal(d.Meta)
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (id, source_id, external_id, title, author, created_ts, modified_ts, mime, sha256, text, meta, size_bytes, is_deleted, deleted_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, NULL, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title, author = excluded.author, created_ts = excluded.created_ts,
			modified_ts = excluded.modified_ts, mime = excluded.mime, sha256 = excluded.sha256,
			text = excluded.text, meta = excluded.meta, size_bytes = excluded.size_bytes,
			is_deleted = 0, deleted_at = NULL, updated_at = excluded.updated_at
	`, d.ID, d.SourceID, d.ExternalID, d.Title, d.Author, nullableTime(d.CreatedTS), nullableTime(d.ModifiedTS),
		d.MIME, d.SHA256, d.Text, string(meta), d.SizeBytes, now, now)
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) GetDocument(ctx context.Context, id string) (domain.Document, error) {
	row := s.db.QueryRowContext(ctx, documentSelect+` WHERE id = ?`, id)
	return scanDocument(row)
}

func (s *Store) GetDocumentBySHA256(ctx context.Context, sha256 string) (domain.Document, bool, error) {
	return s.getDocumentBySHA256Locked(ctx, sha256)
}

func (s *Store) getDocumentBySHA256Locked(ctx context.Context, sha256 string) (domain.Document, bool, error) {
	row := s.db.QueryRowContext(ctx, documentSelect+` WHERE sha256 = ? AND is_deleted = 0`, sha256)
	d, err := scanDocument(row)
	if err == domain.ErrNotFound {
		return domain.Document{}, false, nil
	}
	if err != nil {
		return domain.Document{}, false, err
	}
	return d, true, nil
}

func (s *Store) ListDocuments(ctx context.Context, sourceID string) ([]domain.Document, error) {
	query := documentSelect
	var args []any
	if sourceID != "" {
		query += ` WHERE source_id = ?`
		args = append(args, sourceID)
	}
	rows, err := s.db.QueryContext(ctx, query+` ORDER BY created_at`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) MarkDeleted(ctx context.Context, documentID string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `UPDATE documents SET is_deleted = 1, deleted_at = ?, updated_at = ? WHERE id = ?`, now, now, documentID)
	return err
}

const documentSelect = `SELECT id, source_id, external_id, title, author, created_ts, modified_ts, mime, sha256, text, meta, size_bytes, is_deleted, deleted_at, created_at, updated_at FROM documents`

func scanDocument(row rowScanner) (domain.Document, error) {
	var d domain.Document
	var createdTS, modifiedTS, deletedAt sql.NullString
	var meta string
	var isDeleted int
	var createdAt, updatedAt string
	err := row.Scan(&d.ID, &d.SourceID, &d.ExternalID, &d.Title, &d.Author, &createdTS, &modifiedTS,
		&d.MIME, &d.SHA256, &d.Text, &meta, &d.SizeBytes, &isDeleted, &deletedAt, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return domain.Document{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Document{}, err
	}
	d.CreatedTS = parseNullableTime(createdTS)
	d.ModifiedTS = parseNullableTime(modifiedTS)
	d.DeletedAt = parseNullableTime(deletedAt)
	d.IsDeleted = isDeleted != 0
	json.Unmarshal([]byte(meta), &d.Meta)
	d.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	d.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return d, nil
}

// --- chunks + embeddings ---

func (s *Store) InsertChunks(ctx context.Context, documentID string, chunks []domain.Chunk, embeddings []domain.Embedding) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, documentID); err != nil {
		return err
	}

	chunkStmt, err := tx.PrepareContext(ctx, `INSERT INTO chunks (id, document_id, ordinal, start_char, end_char, text, token_count, meta) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer chunkStmt.Close()

	for _, c := range chunks {
		meta, _ := json.Marshal(c.Meta)
		if _, err := chunkStmt.ExecContext(ctx, c.ID, documentID, c.Ordinal, c.StartChar, c.EndChar, c.Text, c.TokenCount, string(meta)); err != nil {
			return err
		}
	}

	embStmt, err := tx.PrepareContext(ctx, `INSERT INTO embeddings (chunk_id, model, dim, vector, style) VALUES (?, ?, ?, ?, ?) ON CONFLICT(chunk_id, model) DO UPDATE SET vector = excluded.vector, dim = excluded.dim, style = excluded.style`)
	if err != nil {
		return err
	}
	defer embStmt.Close()

	for _, e := range embeddings {
		if _, err := embStmt.ExecContext(ctx, e.ChunkID, e.Model, e.Dim, vecenc.Encode(e.Vector), string(e.Style)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *Store) GetChunk(ctx context.Context, id string) (domain.Chunk, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, document_id, ordinal, start_char, end_char, text, token_count, meta FROM chunks WHERE id = ?`, id)
	return scanChunk(row)
}

func (s *Store) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, document_id, ordinal, start_char, end_char, text, token_count, meta FROM chunks WHERE document_id = ? ORDER BY ordinal`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanChunk(row rowScanner) (domain.Chunk, error) {
	var c domain.Chunk
	var meta string
	err := row.Scan(&c.ID, &c.DocumentID, &c.Ordinal, &c.StartChar, &c.EndChar, &c.Text, &c.TokenCount, &meta)
	if err == sql.ErrNoRows {
		return domain.Chunk{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Chunk{}, err
	}
	json.Unmarshal([]byte(meta), &c.Meta)
	return c, nil
}

func (s *Store) ListAllChunkEmbeddings(ctx context.Context, model string) ([]domain.Embedding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.chunk_id, e.model, e.dim, e.vector, e.style
		FROM embeddings e
		JOIN chunks c ON c.id = e.chunk_id
		JOIN documents d ON d.id = c.document_id
		WHERE e.model = ? AND d.is_deleted = 0
	`, model)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Embedding
	for rows.Next() {
		var e domain.Embedding
		var vec []byte
		var style string
		if err := rows.Scan(&e.ChunkID, &e.Model, &e.Dim, &vec, &style); err != nil {
			return nil, err
		}
		e.Vector = vecenc.Decode(vec)
		e.Style = domain.EmbeddingStyle(style)
		out = append(out, e)
	}
	return out, rows.Err()
}

// --- full text search ---

func (s *Store) SearchFTS(ctx context.Context, queryText string, filters domain.SearchFilters, limit int) ([]driven.FTSHit, error) {
	query := `
		SELECT c.id, c.document_id, bm25(chunks_fts) AS score, d.is_deleted
		FROM chunks_fts
		JOIN chunks c ON c.rowid = chunks_fts.rowid
		JOIN documents d ON d.id = c.document_id
		WHERE chunks_fts MATCH ?
	`
	args := []any{escapeFTSQuery(queryText)}
	query, args = applyFilters(query, args, filters, "d")
	query += ` ORDER BY score LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []driven.FTSHit
	for rows.Next() {
		var h driven.FTSHit
		var isDeleted int
		if err := rows.Scan(&h.ChunkID, &h.DocumentID, &h.BM25Score, &isDeleted); err != nil {
			return nil, err
		}
		// sqlite's bm25() returns lower-is-better; invert so callers treat
		// higher as more relevant, consistent with the vector leg.
		h.BM25Score = -h.BM25Score
		h.IsDeleted = isDeleted != 0
		out = append(out, h)
	}
	return out, rows.Err()
}

func applyFilters(query string, args []any, filters domain.SearchFilters, docAlias string) (string, []any) {
	if len(filters.SourceIDs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(filters.SourceIDs)), ",")
		query += fmt.Sprintf(" AND %s.source_id IN (%s)", docAlias, placeholders)
		for _, id := range filters.SourceIDs {
			args = append(args, id)
		}
	}
	if len(filters.MIME) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(filters.MIME)), ",")
		query += fmt.Sprintf(" AND %s.mime IN (%s)", docAlias, placeholders)
		for _, m := range filters.MIME {
			args = append(args, m)
		}
	}
	if filters.ModifiedAfter != nil {
		query += fmt.Sprintf(" AND %s.modified_ts >= ?", docAlias)
		args = append(args, filters.ModifiedAfter.UTC().Format(time.RFC3339Nano))
	}
	if filters.ModifiedBefore != nil {
		query += fmt.Sprintf(" AND %s.modified_ts <= ?", docAlias)
		args = append(args, filters.ModifiedBefore.UTC().Format(time.RFC3339Nano))
	}
	return query, args
}

// escapeFTSQuery quotes the raw query as an FTS5 string literal so user
// text containing FTS operators (AND, OR, -, *) is matched literally
// rather than parsed as query syntax.
func escapeFTSQuery(q string) string {
	return `"` + strings.ReplaceAll(q, `"`, `""`) + `"`
}

// --- tags ---

func (s *Store) UpsertTag(ctx context.Context, t domain.Tag) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.db.ExecContext(ctx, `INSERT INTO tags (id, label) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET label = excluded.label`, t.ID, t.Label)
	return err
}

func (s *Store) TagDocument(ctx context.Context, documentID, tagID string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO document_tags (document_id, tag_id) VALUES (?, ?)`, documentID, tagID)
	return err
}

func (s *Store) TagChunk(ctx context.Context, chunkID, tagID string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO chunk_tags (chunk_id, tag_id) VALUES (?, ?)`, chunkID, tagID)
	return err
}

func (s *Store) ListTags(ctx context.Context) ([]domain.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, label FROM tags ORDER BY label`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Tag
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.ID, &t.Label); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// --- ingest jobs ---

func (s *Store) CreateIngestJob(ctx context.Context, j domain.IngestJob) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	stats, _ := json.Marshal(j.Stats)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ingest_jobs (id, source_id, status, priority, started_at, finished_at, stats, cancel_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, j.ID, j.SourceID, string(j.Status), int(j.Priority), nullableTime(j.StartedAt), nullableTime(j.FinishedAt), string(stats), j.CancelReason)
	return err
}

func (s *Store) UpdateIngestJob(ctx context.Context, j domain.IngestJob) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	stats, _ := json.Marshal(j.Stats)
	_, err := s.db.ExecContext(ctx, `
		UPDATE ingest_jobs SET status = ?, started_at = ?, finished_at = ?, stats = ?, cancel_reason = ? WHERE id = ?
	`, string(j.Status), nullableTime(j.StartedAt), nullableTime(j.FinishedAt), string(stats), j.CancelReason, j.ID)
	return err
}

func (s *Store) GetIngestJob(ctx context.Context, id string) (domain.IngestJob, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, source_id, status, priority, started_at, finished_at, stats, cancel_reason FROM ingest_jobs WHERE id = ?`, id)
	var j domain.IngestJob
	var status string
	var priority int
	var startedAt, finishedAt sql.NullString
	var stats string
	if err := row.Scan(&j.ID, &j.SourceID, &status, &priority, &startedAt, &finishedAt, &stats, &j.CancelReason); err != nil {
		if err == sql.ErrNoRows {
			return domain.IngestJob{}, domain.ErrNotFound
		}
		return domain.IngestJob{}, err
	}
	j.Status = domain.JobStatus(status)
	j.Priority = domain.Priority(priority)
	j.StartedAt = parseNullableTime(startedAt)
	j.FinishedAt = parseNullableTime(finishedAt)
	json.Unmarshal([]byte(stats), &j.Stats)
	return j, nil
}

// --- query journal ---

func (s *Store) RecordQuery(ctx context.Context, q domain.Query) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	filters, _ := json.Marshal(q.Filters)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO queries (id, text, filters, rerank_enabled, created_at) VALUES (?, ?, ?, ?, ?)
	`, q.ID, q.Text, string(filters), q.RerankEnabled, q.CreatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

func (s *Store) RecordResults(ctx context.Context, queryID string, results []domain.QueryResult) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO query_results (query_id, chunk_id, rank, score, provenance_snapshot) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range results {
		snap, _ := json.Marshal(r.ProvenanceSnapshot)
		if _, err := stmt.ExecContext(ctx, queryID, r.ChunkID, r.Rank, r.Score, string(snap)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) FetchWhy(ctx context.Context, queryID string) (domain.Query, []domain.QueryResult, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, text, filters, rerank_enabled, created_at FROM queries WHERE id = ?`, queryID)
	var q domain.Query
	var filters, createdAt string
	if err := row.Scan(&q.ID, &q.Text, &filters, &q.RerankEnabled, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return domain.Query{}, nil, domain.ErrNotFound
		}
		return domain.Query{}, nil, err
	}
	json.Unmarshal([]byte(filters), &q.Filters)
	q.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)

	rows, err := s.db.QueryContext(ctx, `SELECT query_id, chunk_id, rank, score, provenance_snapshot FROM query_results WHERE query_id = ? ORDER BY rank`, queryID)
	if err != nil {
		return domain.Query{}, nil, err
	}
	defer rows.Close()

	var results []domain.QueryResult
	for rows.Next() {
		var r domain.QueryResult
		var snap string
		if err := rows.Scan(&r.QueryID, &r.ChunkID, &r.Rank, &r.Score, &snap); err != nil {
			return domain.Query{}, nil, err
		}
		json.Unmarshal([]byte(snap), &r.ProvenanceSnapshot)
		results = append(results, r)
	}
	return q, results, rows.Err()
}
