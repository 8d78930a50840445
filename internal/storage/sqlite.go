package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database with methods for personas, documents and chat history.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "chatdesk.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		// Check if already applied.
		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Personas ---

// UpsertPersona creates or overwrites the persona with p.Name.
func (s *Store) UpsertPersona(p Persona) error {
	updated := p.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO personas (name, instructions, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET instructions = excluded.instructions, updated_at = excluded.updated_at`,
		p.Name, p.Instructions, updated.UTC().Format(time.RFC3339),
	)
	return err
}

// EnsurePersona inserts p only when no persona with that name exists.
func (s *Store) EnsurePersona(p Persona) error {
	_, err := s.db.Exec(`INSERT OR IGNORE INTO personas (name, instructions, updated_at) VALUES (?, ?, ?)`,
		p.Name, p.Instructions, time.Now().UTC().Format(time.RFC3339))
	return err
}

func (s *Store) GetPersona(name string) (Persona, error) {
	var p Persona
	var updatedAt string
	err := s.db.QueryRow(`SELECT name, instructions, updated_at FROM personas WHERE name = ?`, name).
		Scan(&p.Name, &p.Instructions, &updatedAt)
	if err == sql.ErrNoRows {
		return Persona{}, ErrNotFound
	}
	if err != nil {
		return Persona{}, err
	}
	t, err := time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return Persona{}, fmt.Errorf("parsing updated_at: %w", err)
	}
	p.UpdatedAt = t
	return p, nil
}

// ListPersonas returns the name to instructions mapping.
func (s *Store) ListPersonas() (map[string]string, error) {
	rows, err := s.db.Query("SELECT name, instructions FROM personas")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]string)
	for rows.Next() {
		var name, instructions string
		if err := rows.Scan(&name, &instructions); err != nil {
			return nil, err
		}
		result[name] = instructions
	}
	return result, rows.Err()
}

func (s *Store) DeletePersona(name string) error {
	res, err := s.db.Exec(`DELETE FROM personas WHERE name = ?`, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Documents ---

// SaveDocument stores doc and its chunks in one transaction.
func (s *Store) SaveDocument(doc Document, chunks []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning document transaction: %w", err)
	}
	defer tx.Rollback()

	var chunkCount, skipped, tokens sql.NullInt64
	var cost sql.NullFloat64
	if in := doc.Ingestion; in != nil {
		chunkCount = sql.NullInt64{Int64: int64(in.Chunks), Valid: true}
		skipped = sql.NullInt64{Int64: int64(in.Skipped), Valid: true}
		tokens = sql.NullInt64{Int64: int64(in.TokenEstimate), Valid: true}
		cost = sql.NullFloat64{Float64: in.CostEstimate, Valid: true}
	}

	if _, err := tx.Exec(`
		INSERT INTO documents (id, name, content, uploaded_at, chunks, skipped, token_estimate, cost_estimate)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Name, doc.Content, doc.UploadedAt.UTC().Format(time.RFC3339Nano),
		chunkCount, skipped, tokens, cost,
	); err != nil {
		return fmt.Errorf("inserting document %s: %w", doc.ID, err)
	}

	for i, c := range chunks {
		if _, err := tx.Exec(`INSERT INTO document_chunks (document_id, seq, content) VALUES (?, ?, ?)`, doc.ID, i, c); err != nil {
			return fmt.Errorf("inserting chunk %d of %s: %w", i, doc.ID, err)
		}
	}

	return tx.Commit()
}

const documentColumns = `id, name, uploaded_at, chunks, skipped, token_estimate, cost_estimate`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner, extra ...any) (Document, error) {
	var d Document
	var uploadedAt string
	var chunkCount, skipped, tokens sql.NullInt64
	var cost sql.NullFloat64
	dest := append([]any{&d.ID, &d.Name, &uploadedAt, &chunkCount, &skipped, &tokens, &cost}, extra...)
	if err := row.Scan(dest...); err != nil {
		return Document{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, uploadedAt)
	if err != nil {
		return Document{}, fmt.Errorf("parsing uploaded_at: %w", err)
	}
	d.UploadedAt = t
	if chunkCount.Valid {
		d.Ingestion = &Ingestion{
			Chunks:        int(chunkCount.Int64),
			Skipped:       int(skipped.Int64),
			TokenEstimate: int(tokens.Int64),
			CostEstimate:  cost.Float64,
		}
	}
	return d, nil
}

// ListDocuments returns all documents in upload order, without content.
func (s *Store) ListDocuments() ([]Document, error) {
	rows, err := s.db.Query(`SELECT ` + documentColumns + ` FROM documents ORDER BY rowid ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, d)
	}
	return results, rows.Err()
}

// GetDocument returns the document with its stored content.
func (s *Store) GetDocument(id string) (Document, error) {
	var content []byte
	d, err := scanDocument(s.db.QueryRow(`SELECT `+documentColumns+`, content FROM documents WHERE id = ?`, id), &content)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	d.Content = content
	return d, nil
}

// DeleteDocument removes the document and its chunks.
func (s *Store) DeleteDocument(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning delete transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	if _, err := tx.Exec(`DELETE FROM document_chunks WHERE document_id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// SearchChunks returns chunks containing any of terms, case-insensitively,
// at most limit rows.
func (s *Store) SearchChunks(terms []string, limit int) ([]Chunk, error) {
	if len(terms) == 0 || limit <= 0 {
		return nil, nil
	}
	conds := make([]string, len(terms))
	args := make([]any, 0, len(terms)+1)
	for i, t := range terms {
		conds[i] = "LOWER(content) LIKE ?"
		args = append(args, "%"+strings.ToLower(t)+"%")
	}
	args = append(args, limit)

	rows, err := s.db.Query(`SELECT document_id, seq, content FROM document_chunks WHERE `+
		strings.Join(conds, " OR ")+` ORDER BY document_id, seq LIMIT ?`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.DocumentID, &c.Seq, &c.Content); err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

// --- History ---

func (s *Store) AppendHistory(e HistoryEntry) error {
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.Exec(`INSERT INTO history (created_at, role, content, persona) VALUES (?, ?, ?, ?)`,
		created.UTC().Format(time.RFC3339), e.Role, e.Content, e.Persona)
	return err
}

// RecentHistory returns the last limit entries, oldest first.
func (s *Store) RecentHistory(limit int) ([]HistoryEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, created_at, role, content, persona FROM (
			SELECT id, created_at, role, content, persona FROM history ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var createdAt string
		if err := rows.Scan(&e.ID, &createdAt, &e.Role, &e.Content, &e.Persona); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		e.CreatedAt = t
		results = append(results, e)
	}
	return results, rows.Err()
}

// ClearHistory deletes every history entry and returns how many were removed.
func (s *Store) ClearHistory() (int64, error) {
	res, err := s.db.Exec(`DELETE FROM history`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
