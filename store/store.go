// Package store keeps documents and compiled artifacts in a SQLite database.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL DEFAULT 'Untitled',
	content     TEXT NOT NULL DEFAULT '',
	share_token TEXT UNIQUE,
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS artifacts (
	key        TEXT PRIMARY KEY,
	pdf        BLOB NOT NULL,
	created_at INTEGER NOT NULL
);
`

// Document is a stored LaTeX document.
type Document struct {
	ID         uuid.UUID
	Title      string
	Content    string
	ShareToken string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Store is a single connection to the database, calls are serialized.
type Store struct {
	mu   sync.Mutex
	conn *sqlite.Conn
	log  *zap.Logger
	now  func() time.Time
}

// Open opens (creating if necessary) database file, ":memory:" opens a private in-memory database.
func Open(path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	flags := []sqlite.OpenFlags{sqlite.OpenReadWrite, sqlite.OpenCreate}
	if path == ":memory:" {
		flags = append(flags, sqlite.OpenMemory)
	} else {
		flags = append(flags, sqlite.OpenWAL)
	}

	conn, err := sqlite.OpenConn(path, flags...)
	if err != nil {
		return nil, fmt.Errorf("unable to open database %q: %w", path, err)
	}

	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return nil, multierr.Append(fmt.Errorf("unable to prepare database schema: %w", err), conn.Close())
	}

	log.Debug("Store opened", zap.String("path", path))

	return &Store{conn: conn, log: log, now: time.Now}, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("unable to close database: %w", err)
	}

	return nil
}

// lock serializes access to the connection and makes queries interruptible by the context
func (s *Store) lock(ctx context.Context) func() {
	s.mu.Lock()
	s.conn.SetInterrupt(ctx.Done())

	return func() {
		s.conn.SetInterrupt(nil)
		s.mu.Unlock()
	}
}

// SaveDocument creates or updates a document. New documents get an ID, timestamps are maintained by the store.
func (s *Store) SaveDocument(ctx context.Context, doc *Document) (err error) {
	defer s.lock(ctx)()

	now := s.now().UTC()

	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}

	if doc.Title == "" {
		doc.Title = "Untitled"
	}

	var token any
	if doc.ShareToken != "" {
		token = doc.ShareToken
	}

	err = sqlitex.Execute(s.conn, `
		INSERT INTO documents (id, title, content, share_token, created_at, updated_at)
		VALUES (:id, :title, :content, :token, :now, :now)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			share_token = excluded.share_token,
			updated_at = excluded.updated_at
		RETURNING created_at`,
		&sqlitex.ExecOptions{Named: map[string]any{
			":id":      doc.ID.String(),
			":title":   doc.Title,
			":content": doc.Content,
			":token":   token,
			":now":     now.UnixMilli(),
		}, ResultFunc: func(stmt *sqlite.Stmt) error {
			doc.CreatedAt = time.UnixMilli(stmt.ColumnInt64(0)).UTC()
			return nil
		}})
	if err != nil {
		return fmt.Errorf("unable to save document %v: %w", doc.ID, err)
	}

	doc.UpdatedAt = time.UnixMilli(now.UnixMilli()).UTC()

	s.log.Debug("Document saved", zap.Stringer("id", doc.ID), zap.Int("size", len(doc.Content)))

	return nil
}

func scanDocument(stmt *sqlite.Stmt) (Document, error) {
	id, err := uuid.Parse(stmt.ColumnText(0))
	if err != nil {
		return Document{}, fmt.Errorf("invalid document id %q: %w", stmt.ColumnText(0), err)
	}

	return Document{
		ID:         id,
		Title:      stmt.ColumnText(1),
		Content:    stmt.ColumnText(2),
		ShareToken: stmt.ColumnText(3),
		CreatedAt:  time.UnixMilli(stmt.ColumnInt64(4)).UTC(),
		UpdatedAt:  time.UnixMilli(stmt.ColumnInt64(5)).UTC(),
	}, nil
}

const documentColumns = `id, title, content, coalesce(share_token, ''), created_at, updated_at`

// Document finds a document by ID.
func (s *Store) Document(ctx context.Context, id uuid.UUID) (*Document, error) {
	return s.findDocument(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id.String())
}

// SharedDocument finds a document by its share token.
func (s *Store) SharedDocument(ctx context.Context, token string) (*Document, error) {
	return s.findDocument(ctx, `SELECT `+documentColumns+` FROM documents WHERE share_token = ?`, token)
}

func (s *Store) findDocument(ctx context.Context, query string, arg string) (*Document, error) {
	defer s.lock(ctx)()

	var doc *Document

	err := sqlitex.Execute(s.conn, query, &sqlitex.ExecOptions{
		Args: []any{arg},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			d, err := scanDocument(stmt)
			if err != nil {
				return err
			}

			doc = &d
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("unable to read document: %w", err)
	}

	if doc == nil {
		return nil, fmt.Errorf("document %s: %w", arg, ErrNotFound)
	}

	return doc, nil
}

// Documents lists documents, most recently updated first.
func (s *Store) Documents(ctx context.Context) ([]Document, error) {
	defer s.lock(ctx)()

	var docs []Document

	err := sqlitex.Execute(s.conn, `SELECT `+documentColumns+` FROM documents ORDER BY updated_at DESC, id`,
		&sqlitex.ExecOptions{ResultFunc: func(stmt *sqlite.Stmt) error {
			d, err := scanDocument(stmt)
			if err != nil {
				return err
			}

			docs = append(docs, d)
			return nil
		}})
	if err != nil {
		return nil, fmt.Errorf("unable to list documents: %w", err)
	}

	return docs, nil
}

// DeleteDocument removes a document.
func (s *Store) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	defer s.lock(ctx)()

	err := sqlitex.Execute(s.conn, `DELETE FROM documents WHERE id = ?`, &sqlitex.ExecOptions{Args: []any{id.String()}})
	if err != nil {
		return fmt.Errorf("unable to delete document %v: %w", id, err)
	}

	if s.conn.Changes() == 0 {
		return fmt.Errorf("document %v: %w", id, ErrNotFound)
	}

	return nil
}

// ArtifactKey identifies compiled artifact of the markup.
func ArtifactKey(markup string) string {
	sum := sha256.Sum256([]byte(markup))
	return hex.EncodeToString(sum[:])
}

// PutArtifact stores compiled PDF under the key, existing artifact is replaced.
func (s *Store) PutArtifact(ctx context.Context, key string, pdf []byte) error {
	defer s.lock(ctx)()

	err := sqlitex.Execute(s.conn, `INSERT OR REPLACE INTO artifacts (key, pdf, created_at) VALUES (?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{key, pdf, s.now().UnixMilli()}})
	if err != nil {
		return fmt.Errorf("unable to store artifact %s: %w", key, err)
	}

	s.log.Debug("Artifact stored", zap.String("key", key), zap.Int("size", len(pdf)))

	return nil
}

// Artifact reads compiled PDF by key.
func (s *Store) Artifact(ctx context.Context, key string) ([]byte, error) {
	defer s.lock(ctx)()

	var pdf []byte
	found := false

	err := sqlitex.Execute(s.conn, `SELECT pdf FROM artifacts WHERE key = ?`, &sqlitex.ExecOptions{
		Args: []any{key},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			pdf = make([]byte, stmt.ColumnLen(0))
			stmt.ColumnBytes(0, pdf)
			found = true
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("unable to read artifact %s: %w", key, err)
	}

	if !found {
		return nil, fmt.Errorf("artifact %s: %w", key, ErrNotFound)
	}

	return pdf, nil
}

// PruneArtifacts removes artifacts created before the given time.
func (s *Store) PruneArtifacts(ctx context.Context, before time.Time) (int, error) {
	defer s.lock(ctx)()

	err := sqlitex.Execute(s.conn, `DELETE FROM artifacts WHERE created_at < ?`,
		&sqlitex.ExecOptions{Args: []any{before.UnixMilli()}})
	if err != nil {
		return 0, fmt.Errorf("unable to prune artifacts: %w", err)
	}

	return s.conn.Changes(), nil
}
