package vectorstore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

// SnapshotFile is the marker whose presence means the index was already built.
const SnapshotFile = "index.db"

const snapshotSchema = `
CREATE TABLE meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE chunks (
	position INTEGER PRIMARY KEY,
	id       TEXT NOT NULL,
	source   TEXT NOT NULL,
	ordinal  INTEGER NOT NULL,
	text     TEXT NOT NULL,
	vector   BLOB NOT NULL
);`

// SQLiteSnapshot persists a MemoryIndex to <dir>/index.db.
type SQLiteSnapshot struct {
	dir string
}

func NewSQLiteSnapshot(dir string) *SQLiteSnapshot {
	return &SQLiteSnapshot{dir: dir}
}

func (s *SQLiteSnapshot) Path() string {
	return filepath.Join(s.dir, SnapshotFile)
}

func (s *SQLiteSnapshot) Exists() bool {
	info, err := os.Stat(s.Path())
	return err == nil && !info.IsDir()
}

// Save writes records to a temporary database and renames it over index.db,
// so a reader never sees a half-written snapshot.
func (s *SQLiteSnapshot) Save(ctx context.Context, records []Record) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating vectorstore directory: %w", err)
	}

	tmpPath := filepath.Join(s.dir, fmt.Sprintf(".%s.%s.tmp", SnapshotFile, uuid.NewString()))
	if err := writeSnapshot(ctx, tmpPath, records); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, s.Path()); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("publishing snapshot: %w", err)
	}
	return nil
}

func writeSnapshot(ctx context.Context, path string, records []Record) error {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return fmt.Errorf("opening snapshot: %w", err)
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting snapshot transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, snapshotSchema); err != nil {
		return fmt.Errorf("creating snapshot schema: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES ('created_at', ?), ('count', ?)`,
		time.Now().UTC().Format(time.RFC3339), fmt.Sprint(len(records))); err != nil {
		return fmt.Errorf("writing snapshot meta: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO chunks (position, id, source, ordinal, text, vector) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing chunk insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		if _, err := stmt.ExecContext(ctx, i, r.ID, r.Source, r.Ordinal, r.Text, float32SliceToBytes(r.Vector)); err != nil {
			return fmt.Errorf("writing chunk %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing snapshot: %w", err)
	}
	return nil
}

// Load reads records back in their original order.
func (s *SQLiteSnapshot) Load(ctx context.Context) ([]Record, error) {
	db, err := sql.Open("sqlite", s.Path()+"?mode=ro&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT id, source, ordinal, text, vector FROM chunks ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r    Record
			blob []byte
		)
		if err := rows.Scan(&r.ID, &r.Source, &r.Ordinal, &r.Text, &blob); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		r.Vector = bytesToFloat32Slice(blob)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshot: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("snapshot %s holds no chunks", s.Path())
	}
	return records, nil
}

func float32SliceToBytes(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToFloat32Slice(data []byte) []float32 {
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
