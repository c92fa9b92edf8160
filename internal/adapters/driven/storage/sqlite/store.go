package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/rememex/rememex-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/rememex/rememex-cli/internal/core/domain"
	"github.com/rememex/rememex-cli/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.FragmentStore = (*Store)(nil)

// Store is a SQLite-based fragment store with per-container tables.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.rememex/data/index.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".rememex", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "index.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// tableSuffix derives a safe table name component from a container name.
func tableSuffix(container string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(container) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// suffixFor resolves the registered table suffix for a container.
// Returns domain.ErrNotFound when the container has not been ensured.
func (s *Store) suffixFor(ctx context.Context, container string) (string, error) {
	var suffix string
	err := s.db.QueryRowContext(ctx,
		"SELECT table_suffix FROM containers WHERE name = ?", container).Scan(&suffix)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("container %q: %w", container, domain.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("resolving container: %w", err)
	}
	return suffix, nil
}

// EnsureContainer creates the container's tables if they do not exist.
func (s *Store) EnsureContainer(ctx context.Context, container string) error {
	if container == "" {
		return domain.ErrInvalidInput
	}
	suffix := tableSuffix(container)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO containers (name, table_suffix) VALUES (?, ?)
		ON CONFLICT(name) DO NOTHING
	`, container, suffix)
	if err != nil {
		return fmt.Errorf("registering container: %w", err)
	}

	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS frag_%s (
			fragment_id TEXT PRIMARY KEY,
			path TEXT NOT NULL,
			ordinal INTEGER NOT NULL,
			offset_start INTEGER NOT NULL,
			offset_end INTEGER NOT NULL,
			text TEXT NOT NULL,
			vector BLOB,
			chunk_kind TEXT NOT NULL,
			language TEXT NOT NULL DEFAULT '',
			mtime INTEGER NOT NULL
		)`, suffix),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS frag_%s_path_idx ON frag_%s(path)`, suffix, suffix),
		fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS frag_%s_fts
			USING fts5(fragment_id UNINDEXED, text)`, suffix),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS frag_%s_annotations (
			annotation_id TEXT PRIMARY KEY,
			path TEXT NOT NULL,
			note TEXT NOT NULL,
			source TEXT NOT NULL,
			vector BLOB,
			created_at INTEGER NOT NULL
		)`, suffix),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating container tables: %w", err)
		}
	}

	return nil
}

// DropContainer removes the container's tables and registration.
func (s *Store) DropContainer(ctx context.Context, container string) error {
	suffix, err := s.suffixFor(ctx, container)
	if err != nil {
		return err
	}

	stmts := []string{
		fmt.Sprintf("DROP TABLE IF EXISTS frag_%s", suffix),
		fmt.Sprintf("DROP TABLE IF EXISTS frag_%s_fts", suffix),
		fmt.Sprintf("DROP TABLE IF EXISTS frag_%s_annotations", suffix),
		"DELETE FROM containers WHERE name = ?",
	}
	for _, stmt := range stmts {
		var execErr error
		if strings.HasPrefix(stmt, "DELETE") {
			_, execErr = s.db.ExecContext(ctx, stmt, container)
		} else {
			_, execErr = s.db.ExecContext(ctx, stmt)
		}
		if execErr != nil {
			return fmt.Errorf("dropping container: %w", execErr)
		}
	}

	return nil
}

// Reset clears all fragments and annotations but keeps the container.
func (s *Store) Reset(ctx context.Context, container string) error {
	suffix, err := s.suffixFor(ctx, container)
	if err != nil {
		return err
	}

	for _, table := range []string{
		"frag_" + suffix,
		"frag_" + suffix + "_fts",
		"frag_" + suffix + "_annotations",
	} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("resetting container: %w", err)
		}
	}
	return nil
}

// ReplaceFile atomically replaces all fragments for a path.
func (s *Store) ReplaceFile(ctx context.Context, container, path string, fragments []domain.Fragment) error {
	suffix, err := s.suffixFor(ctx, container)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := deleteFileTx(ctx, tx, suffix, path); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO frag_%s
			(fragment_id, path, ordinal, offset_start, offset_end, text, vector, chunk_kind, language, mtime)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, suffix))
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	ftsStmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO frag_%s_fts (fragment_id, text) VALUES (?, ?)", suffix))
	if err != nil {
		return fmt.Errorf("preparing fts statement: %w", err)
	}
	defer ftsStmt.Close()

	for _, f := range fragments {
		vectorBlob := float32SliceToBytes(f.Vector)
		if _, err := stmt.ExecContext(ctx, f.ID, f.Path, f.Ordinal, f.StartOffset, f.EndOffset,
			f.Text, vectorBlob, string(f.Kind), f.Language, f.MTime.Unix()); err != nil {
			return fmt.Errorf("saving fragment: %w", err)
		}
		if _, err := ftsStmt.ExecContext(ctx, f.ID, f.Text); err != nil {
			return fmt.Errorf("indexing fragment text: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// DeleteFile removes all fragments for a path.
func (s *Store) DeleteFile(ctx context.Context, container, path string) error {
	suffix, err := s.suffixFor(ctx, container)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := deleteFileTx(ctx, tx, suffix, path); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// deleteFileTx removes a path's fragments from both indexes.
func deleteFileTx(ctx context.Context, tx *sql.Tx, suffix, path string) error {
	_, err := tx.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM frag_%s_fts WHERE fragment_id IN
			(SELECT fragment_id FROM frag_%s WHERE path = ?)
	`, suffix, suffix), path)
	if err != nil {
		return fmt.Errorf("deleting fts rows: %w", err)
	}

	_, err = tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM frag_%s WHERE path = ?", suffix), path)
	if err != nil {
		return fmt.Errorf("deleting fragments: %w", err)
	}
	return nil
}

// FileMTime returns the modification time recorded for a path.
func (s *Store) FileMTime(ctx context.Context, container, path string) (time.Time, error) {
	suffix, err := s.suffixFor(ctx, container)
	if err != nil {
		return time.Time{}, err
	}

	var mtime int64
	err = s.db.QueryRowContext(ctx, fmt.Sprintf(
		"SELECT MAX(mtime) FROM frag_%s WHERE path = ?", suffix), path).Scan(&mtime)
	if err == sql.ErrNoRows {
		return time.Time{}, domain.ErrNotFound
	}
	if err != nil {
		// MAX() over no rows yields NULL, which fails the int64 scan.
		return time.Time{}, domain.ErrNotFound
	}
	return time.Unix(mtime, 0), nil
}

// FileFragments returns all fragments for a path in ordinal order.
func (s *Store) FileFragments(ctx context.Context, container, path string) ([]domain.Fragment, error) {
	suffix, err := s.suffixFor(ctx, container)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT fragment_id, path, ordinal, offset_start, offset_end, text, vector, chunk_kind, language, mtime
		FROM frag_%s WHERE path = ?
		ORDER BY ordinal
	`, suffix), path)
	if err != nil {
		return nil, fmt.Errorf("querying fragments: %w", err)
	}
	defer rows.Close()

	return scanFragments(rows)
}

// ListFiles returns a summary of every indexed file.
func (s *Store) ListFiles(ctx context.Context, container string) ([]domain.FileInfo, error) {
	suffix, err := s.suffixFor(ctx, container)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT path, COUNT(*), COALESCE(SUM(LENGTH(text)), 0), MAX(mtime)
		FROM frag_%s
		GROUP BY path
		ORDER BY path
	`, suffix))
	if err != nil {
		return nil, fmt.Errorf("querying files: %w", err)
	}
	defer rows.Close()

	var files []domain.FileInfo //nolint:prealloc // size unknown from query
	for rows.Next() {
		var f domain.FileInfo
		var mtime int64
		if err := rows.Scan(&f.Path, &f.Fragments, &f.Size, &mtime); err != nil {
			return nil, fmt.Errorf("scanning file summary: %w", err)
		}
		f.MTime = time.Unix(mtime, 0)
		files = append(files, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating files: %w", err)
	}

	return files, nil
}

// DenseSearch returns the k nearest fragments by cosine distance.
// This is an exact scan over the container's vectors.
func (s *Store) DenseSearch(ctx context.Context, container string, vector []float32, k int) ([]driven.FragmentHit, error) {
	suffix, err := s.suffixFor(ctx, container)
	if err != nil {
		return nil, err
	}
	if len(vector) == 0 || k <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT fragment_id, path, ordinal, offset_start, offset_end, text, vector, chunk_kind, language, mtime
		FROM frag_%s WHERE vector IS NOT NULL
	`, suffix))
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	fragments, err := scanFragments(rows)
	if err != nil {
		return nil, err
	}

	hits := make([]driven.FragmentHit, 0, len(fragments))
	for _, f := range fragments {
		if len(f.Vector) != len(vector) {
			continue
		}
		hits = append(hits, driven.FragmentHit{
			Fragment: f,
			Distance: cosineDistance(vector, f.Vector),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	if len(hits) > k {
		hits = hits[:k]
	}

	return hits, nil
}

// KeywordSearch returns the k best full-text matches for the query.
func (s *Store) KeywordSearch(ctx context.Context, container, query string, k int) ([]driven.KeywordHit, error) {
	suffix, err := s.suffixFor(ctx, container)
	if err != nil {
		return nil, err
	}

	match := ftsMatchExpr(query)
	if match == "" || k <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT f.fragment_id, f.path, f.ordinal, f.offset_start, f.offset_end,
		       f.text, f.vector, f.chunk_kind, f.language, f.mtime,
		       bm25(frag_%s_fts) AS rank
		FROM frag_%s_fts
		JOIN frag_%s f ON f.fragment_id = frag_%s_fts.fragment_id
		WHERE frag_%s_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, suffix, suffix, suffix, suffix, suffix), match, k)
	if err != nil {
		return nil, fmt.Errorf("querying full-text index: %w", err)
	}
	defer rows.Close()

	var hits []driven.KeywordHit //nolint:prealloc // size unknown from query
	for rows.Next() {
		var f domain.Fragment
		var vectorBlob []byte
		var kind string
		var mtime int64
		var rank float64
		if err := rows.Scan(&f.ID, &f.Path, &f.Ordinal, &f.StartOffset, &f.EndOffset,
			&f.Text, &vectorBlob, &kind, &f.Language, &mtime, &rank); err != nil {
			return nil, fmt.Errorf("scanning keyword hit: %w", err)
		}
		f.Vector = bytesToFloat32Slice(vectorBlob)
		f.Kind = domain.ChunkKind(kind)
		f.MTime = time.Unix(mtime, 0)
		hits = append(hits, driven.KeywordHit{Fragment: f, Rank: rank})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating keyword hits: %w", err)
	}

	return hits, nil
}

// ftsMatchExpr builds a safe FTS5 match expression from free-form input.
// Tokens are double-quoted and joined with OR so punctuation in user
// queries cannot break the match syntax.
func ftsMatchExpr(query string) string {
	words := strings.FieldsFunc(query, func(r rune) bool {
		return !isWordRune(r)
	})
	if len(words) == 0 {
		return ""
	}

	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = `"` + w + `"`
	}
	return strings.Join(quoted, " OR ")
}

func isWordRune(r rune) bool {
	return r == '_' ||
		(r >= '0' && r <= '9') ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		r > 127
}

// Stats returns index counters for the container.
func (s *Store) Stats(ctx context.Context, container string) (files, fragments, annotations int, err error) {
	suffix, err := s.suffixFor(ctx, container)
	if err != nil {
		return 0, 0, 0, err
	}

	err = s.db.QueryRowContext(ctx, fmt.Sprintf(
		"SELECT COUNT(DISTINCT path), COUNT(*) FROM frag_%s", suffix)).Scan(&files, &fragments)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("counting fragments: %w", err)
	}

	err = s.db.QueryRowContext(ctx, fmt.Sprintf(
		"SELECT COUNT(*) FROM frag_%s_annotations", suffix)).Scan(&annotations)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("counting annotations: %w", err)
	}

	return files, fragments, annotations, nil
}

// SaveAnnotation stores an annotation with its vector.
func (s *Store) SaveAnnotation(ctx context.Context, container string, a domain.Annotation) error {
	suffix, err := s.suffixFor(ctx, container)
	if err != nil {
		return err
	}
	if a.ID == "" || a.Note == "" {
		return domain.ErrInvalidInput
	}

	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO frag_%s_annotations (annotation_id, path, note, source, vector, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(annotation_id) DO UPDATE SET
			path = excluded.path,
			note = excluded.note,
			source = excluded.source,
			vector = excluded.vector
	`, suffix), a.ID, a.Path, a.Note, a.Source, float32SliceToBytes(a.Vector), a.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("saving annotation: %w", err)
	}
	return nil
}

// ListAnnotations returns annotations, newest first.
func (s *Store) ListAnnotations(ctx context.Context, container, path string) ([]domain.Annotation, error) {
	suffix, err := s.suffixFor(ctx, container)
	if err != nil {
		return nil, err
	}

	q := fmt.Sprintf(`
		SELECT annotation_id, path, note, source, vector, created_at
		FROM frag_%s_annotations
	`, suffix)
	args := []any{}
	if path != "" {
		q += " WHERE path = ?"
		args = append(args, path)
	}
	q += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying annotations: %w", err)
	}
	defer rows.Close()

	var annotations []domain.Annotation //nolint:prealloc // size unknown from query
	for rows.Next() {
		a, err := scanAnnotation(rows)
		if err != nil {
			return nil, err
		}
		annotations = append(annotations, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating annotations: %w", err)
	}

	return annotations, nil
}

// DeleteAnnotation removes an annotation by ID.
func (s *Store) DeleteAnnotation(ctx context.Context, container, id string) error {
	suffix, err := s.suffixFor(ctx, container)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, fmt.Sprintf(
		"DELETE FROM frag_%s_annotations WHERE annotation_id = ?", suffix), id)
	if err != nil {
		return fmt.Errorf("deleting annotation: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking deletion: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DenseSearchAnnotations returns the k nearest annotations by cosine distance.
func (s *Store) DenseSearchAnnotations(ctx context.Context, container string, vector []float32, k int) ([]driven.AnnotationHit, error) {
	suffix, err := s.suffixFor(ctx, container)
	if err != nil {
		return nil, err
	}
	if len(vector) == 0 || k <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT annotation_id, path, note, source, vector, created_at
		FROM frag_%s_annotations WHERE vector IS NOT NULL
	`, suffix))
	if err != nil {
		return nil, fmt.Errorf("querying annotation vectors: %w", err)
	}
	defer rows.Close()

	var hits []driven.AnnotationHit //nolint:prealloc // size unknown from query
	for rows.Next() {
		a, err := scanAnnotation(rows)
		if err != nil {
			return nil, err
		}
		if len(a.Vector) != len(vector) {
			continue
		}
		hits = append(hits, driven.AnnotationHit{
			Annotation: *a,
			Distance:   cosineDistance(vector, a.Vector),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating annotation hits: %w", err)
	}

	sort.Slice(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	if len(hits) > k {
		hits = hits[:k]
	}

	return hits, nil
}

// ==================== Helper Functions ====================

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// cosineDistance returns 1 - cosine similarity. A zero-magnitude vector
// is maximally distant.
func cosineDistance(a, b []float32) float64 {
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(magA)*math.Sqrt(magB))
}

// scanFragments scans fragment rows.
func scanFragments(rows *sql.Rows) ([]domain.Fragment, error) {
	var fragments []domain.Fragment //nolint:prealloc // size unknown from query
	for rows.Next() {
		var f domain.Fragment
		var vectorBlob []byte
		var kind string
		var mtime int64
		if err := rows.Scan(&f.ID, &f.Path, &f.Ordinal, &f.StartOffset, &f.EndOffset,
			&f.Text, &vectorBlob, &kind, &f.Language, &mtime); err != nil {
			return nil, fmt.Errorf("scanning fragment: %w", err)
		}
		f.Vector = bytesToFloat32Slice(vectorBlob)
		f.Kind = domain.ChunkKind(kind)
		f.MTime = time.Unix(mtime, 0)
		fragments = append(fragments, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating fragments: %w", err)
	}

	return fragments, nil
}

// scanAnnotation scans a single annotation from *sql.Rows.
func scanAnnotation(rows *sql.Rows) (*domain.Annotation, error) {
	var a domain.Annotation
	var vectorBlob []byte
	var createdAt int64

	if err := rows.Scan(&a.ID, &a.Path, &a.Note, &a.Source, &vectorBlob, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning annotation: %w", err)
	}

	a.Vector = bytesToFloat32Slice(vectorBlob)
	a.CreatedAt = time.Unix(createdAt, 0)

	return &a, nil
}
