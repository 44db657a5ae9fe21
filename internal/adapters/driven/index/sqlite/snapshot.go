// Package sqlite persists passage index snapshots in a SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite" // pure-Go sqlite driver

	"github.com/custodia-labs/quire/internal/core/domain"
	"github.com/custodia-labs/quire/internal/core/ports/driven"
)

// Ensure SnapshotStore implements the interface.
var _ driven.SnapshotStore = (*SnapshotStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS passages (
	seq           INTEGER PRIMARY KEY,
	id            TEXT NOT NULL UNIQUE,
	document_id   TEXT NOT NULL,
	document_name TEXT NOT NULL,
	page          INTEGER NOT NULL,
	text          TEXT NOT NULL,
	start         INTEGER NOT NULL,
	end           INTEGER NOT NULL,
	word_count    INTEGER NOT NULL,
	section       TEXT NOT NULL DEFAULT '',
	model         TEXT NOT NULL,
	embedded_at   INTEGER NOT NULL,
	vector        BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_passages_document ON passages(document_id);
`

// SnapshotStore stores one snapshot per database file.
type SnapshotStore struct {
	db *sql.DB
}

// Open creates or opens a snapshot database at path.
func Open(path string) (*SnapshotStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init snapshot schema: %w", err)
	}
	return &SnapshotStore{db: db}, nil
}

// Save replaces the stored snapshot with snap, transactionally.
func (s *SnapshotStore) Save(ctx context.Context, snap *domain.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("%w: nil snapshot", domain.ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM passages`); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO passages
			(seq, id, document_id, document_name, page, text, start, end, word_count, section, model, embedded_at, vector)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range snap.Passages {
		p := snap.Passages[i]
		if _, err := stmt.ExecContext(ctx,
			i, p.ID, p.DocumentID, p.DocumentName, p.Page, p.Text,
			p.Start, p.End, p.WordCount, p.Section, p.Model,
			p.EmbeddedAt.UnixNano(), encodeVector(p.Vector),
		); err != nil {
			return fmt.Errorf("insert passage %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// Load returns the stored snapshot in insertion order, or
// domain.ErrNotFound when the store is empty.
func (s *SnapshotStore) Load(ctx context.Context) (*domain.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, document_name, page, text, start, end, word_count, section, model, embedded_at, vector
		FROM passages ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	defer rows.Close()

	snap := &domain.Snapshot{}
	for rows.Next() {
		var p domain.EmbeddedPassage
		var embeddedAt int64
		var blob []byte
		if err := rows.Scan(
			&p.ID, &p.DocumentID, &p.DocumentName, &p.Page, &p.Text,
			&p.Start, &p.End, &p.WordCount, &p.Section, &p.Model,
			&embeddedAt, &blob,
		); err != nil {
			return nil, fmt.Errorf("scan passage: %w", err)
		}
		p.EmbeddedAt = time.Unix(0, embeddedAt)
		p.Vector = decodeVector(blob)
		snap.Passages = append(snap.Passages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	if len(snap.Passages) == 0 {
		return nil, domain.ErrNotFound
	}
	snap.Model = snap.Passages[0].Model
	return snap, nil
}

// Close releases the database handle.
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

// encodeVector packs float32s as little-endian bytes.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}
