package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"
	_ "modernc.org/sqlite"
)

const localCollection = "knowledge"

// Local is a Store backed by a SQLite database for rows and a chromem-go
// collection for nearest-neighbour search. It mirrors the production schema
// and is used for local development and tests, where no Supabase project is
// available.
type Local struct {
	db      *sql.DB
	vectors *chromem.Collection
}

// OpenLocal creates or opens a local store under dir: a kb.db SQLite file
// and a vectors/ directory for the persisted chromem collection.
func OpenLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", filepath.Join(dir, "kb.db")+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	vdb, err := chromem.NewPersistentDB(filepath.Join(dir, "vectors"), false)
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("opening vector store: %w", err)
	}

	return newLocal(sqlDB, vdb)
}

// OpenLocalMemory creates a fully in-memory local store (useful for testing).
func OpenLocalMemory() (*Local, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}
	return newLocal(sqlDB, chromem.NewDB())
}

func newLocal(sqlDB *sql.DB, vdb *chromem.DB) (*Local, error) {
	// The chunks carry precomputed embeddings, so the collection never runs
	// an embedding function of its own.
	col, err := vdb.GetOrCreateCollection(localCollection, nil, func(ctx context.Context, text string) ([]float32, error) {
		return nil, fmt.Errorf("local store only accepts precomputed embeddings")
	})
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("creating collection: %w", err)
	}

	l := &Local{db: sqlDB, vectors: col}
	if err := l.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return l, nil
}

func (l *Local) migrate() error {
	_, err := l.db.Exec(localSchema)
	return err
}

// localSchema mirrors the production knowledge_chunks / knowledge_versions
// tables.
const localSchema = `
CREATE TABLE IF NOT EXISTS knowledge_chunks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    source_file TEXT NOT NULL,
    section_title TEXT NOT NULL,
    content TEXT NOT NULL,
    metadata TEXT NOT NULL DEFAULT '{}',
    embedding TEXT NOT NULL DEFAULT '[]',
    is_active INTEGER NOT NULL DEFAULT 1,
    version INTEGER NOT NULL DEFAULT 1,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chunks_source_active ON knowledge_chunks(source_file, is_active);

CREATE TABLE IF NOT EXISTS knowledge_versions (
    id TEXT PRIMARY KEY,
    chunk_id INTEGER NOT NULL,
    action TEXT NOT NULL CHECK(action IN ('create','update','delete','reembed')),
    old_content TEXT NOT NULL DEFAULT '',
    new_content TEXT NOT NULL DEFAULT '',
    changed_by TEXT NOT NULL,
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_versions_chunk ON knowledge_versions(chunk_id);
`

func (l *Local) DeactivateChunks(ctx context.Context, sourceDocument string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := l.db.ExecContext(ctx,
		`UPDATE knowledge_chunks SET is_active = 0, updated_at = ? WHERE source_file = ? AND is_active = 1`,
		now, sourceDocument)
	if err != nil {
		return fmt.Errorf("deactivate chunks for %s: %w", sourceDocument, err)
	}

	// Retired generations must stop answering similarity queries.
	if l.vectors.Count() > 0 {
		if err := l.vectors.Delete(ctx, map[string]string{"source_file": sourceDocument}, nil); err != nil {
			return fmt.Errorf("remove vectors for %s: %w", sourceDocument, err)
		}
	}
	return nil
}

func (l *Local) InsertChunks(ctx context.Context, chunks []Chunk) ([]Chunk, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	now := time.Now().UTC()
	ts := now.Format(time.RFC3339Nano)

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	out := make([]Chunk, len(chunks))
	docs := make([]chromem.Document, 0, len(chunks))

	for i, c := range chunks {
		meta, err := json.Marshal(c.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encode metadata for %q: %w", c.Title, err)
		}
		emb, err := encodeEmbedding(c.Embedding)
		if err != nil {
			return nil, fmt.Errorf("encode embedding for %q: %w", c.Title, err)
		}
		if emb == "" {
			emb = "[]"
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO knowledge_chunks (source_file, section_title, content, metadata, embedding, is_active, version, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.SourceDocument, c.Title, c.Content, string(meta), emb, boolToInt(c.IsActive), c.Version, ts, ts)
		if err != nil {
			return nil, fmt.Errorf("insert chunk %q: %w", c.Title, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("read id for %q: %w", c.Title, err)
		}

		out[i] = c
		out[i].ID = id
		out[i].CreatedAt = now
		out[i].UpdatedAt = now

		if c.IsActive {
			docs = append(docs, chromem.Document{
				ID:        strconv.FormatInt(id, 10),
				Content:   c.Content,
				Embedding: c.Embedding,
				Metadata:  map[string]string{"source_file": c.SourceDocument},
			})
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit insert: %w", err)
	}

	if len(docs) > 0 {
		if err := l.vectors.AddDocuments(ctx, docs, 1); err != nil {
			return nil, fmt.Errorf("index vectors: %w", err)
		}
	}
	return out, nil
}

func (l *Local) ActiveChunks(ctx context.Context, ids []int64) ([]Chunk, error) {
	query := `SELECT id, source_file, section_title, content, metadata, embedding, is_active, version, created_at, updated_at
		FROM knowledge_chunks WHERE is_active = 1`
	var args []any
	if len(ids) > 0 {
		query += ` AND id IN (` + placeholders(len(ids)) + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}
	query += ` ORDER BY id`

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch active chunks: %w", err)
	}
	defer rows.Close()

	var out []Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (l *Local) UpdateEmbedding(ctx context.Context, id int64, embedding []float32) error {
	emb, err := encodeEmbedding(embedding)
	if err != nil {
		return fmt.Errorf("encode embedding: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := l.db.ExecContext(ctx,
		`UPDATE knowledge_chunks SET embedding = ?, updated_at = ? WHERE id = ?`,
		emb, now, id)
	if err != nil {
		return fmt.Errorf("update embedding for chunk %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("chunk %d not found", id)
	}

	var (
		source  string
		content string
		active  int
	)
	err = l.db.QueryRowContext(ctx,
		`SELECT source_file, content, is_active FROM knowledge_chunks WHERE id = ?`, id).
		Scan(&source, &content, &active)
	if err != nil {
		return fmt.Errorf("read chunk %d: %w", id, err)
	}

	if active == 1 {
		// AddDocuments upserts by ID, replacing the indexed vector.
		doc := chromem.Document{
			ID:        strconv.FormatInt(id, 10),
			Content:   content,
			Embedding: embedding,
			Metadata:  map[string]string{"source_file": source},
		}
		if err := l.vectors.AddDocuments(ctx, []chromem.Document{doc}, 1); err != nil {
			return fmt.Errorf("reindex vector for chunk %d: %w", id, err)
		}
	}
	return nil
}

func (l *Local) AppendLedger(ctx context.Context, entries []LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ledger append: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, e := range entries {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO knowledge_versions (id, chunk_id, action, old_content, new_content, changed_by, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), e.ChunkID, string(e.Action), e.OldContent, e.NewContent, e.ChangedBy, now)
		if err != nil {
			return fmt.Errorf("append ledger entry for chunk %d: %w", e.ChunkID, err)
		}
	}
	return tx.Commit()
}

func (l *Local) LedgerEntries(ctx context.Context, chunkID int64) ([]LedgerEntry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT chunk_id, action, old_content, new_content, changed_by, created_at
		 FROM knowledge_versions WHERE chunk_id = ? ORDER BY created_at DESC, rowid DESC`,
		chunkID)
	if err != nil {
		return nil, fmt.Errorf("fetch ledger for chunk %d: %w", chunkID, err)
	}
	defer rows.Close()

	var out []LedgerEntry
	for rows.Next() {
		var (
			e  LedgerEntry
			a  string
			ts string
		)
		if err := rows.Scan(&e.ChunkID, &a, &e.OldContent, &e.NewContent, &e.ChangedBy, &ts); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		e.Action = LedgerAction(a)
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (l *Local) MatchChunks(ctx context.Context, embedding []float32, threshold float64, limit int) ([]Match, error) {
	count := l.vectors.Count()
	if count == 0 || limit <= 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}

	results, err := l.vectors.QueryEmbedding(ctx, embedding, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}

	var out []Match
	for _, r := range results {
		if float64(r.Similarity) < threshold {
			continue
		}
		id, err := strconv.ParseInt(r.ID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad vector id %q: %w", r.ID, err)
		}
		chunks, err := l.ActiveChunks(ctx, []int64{id})
		if err != nil {
			return nil, err
		}
		if len(chunks) == 0 {
			continue
		}
		out = append(out, Match{Chunk: chunks[0], Similarity: float64(r.Similarity)})
	}
	return out, nil
}

func (l *Local) Close() error {
	return l.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChunk(row rowScanner) (Chunk, error) {
	var (
		c         Chunk
		meta      string
		emb       string
		active    int
		createdAt string
		updatedAt string
	)
	err := row.Scan(&c.ID, &c.SourceDocument, &c.Title, &c.Content, &meta, &emb, &active, &c.Version, &createdAt, &updatedAt)
	if err != nil {
		return Chunk{}, fmt.Errorf("scan chunk: %w", err)
	}

	if meta != "" {
		if err := json.Unmarshal([]byte(meta), &c.Metadata); err != nil {
			return Chunk{}, fmt.Errorf("decode metadata for chunk %d: %w", c.ID, err)
		}
	}
	if emb != "" && emb != "[]" {
		if err := json.Unmarshal([]byte(emb), &c.Embedding); err != nil {
			return Chunk{}, fmt.Errorf("decode embedding for chunk %d: %w", c.ID, err)
		}
	}
	c.IsActive = active == 1
	c.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	c.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return c, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
