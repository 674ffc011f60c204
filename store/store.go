package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"lhdiff/logger"
	"lhdiff/types"

	"github.com/andybalholm/brotli"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("store: calibration not found")

const schema = `CREATE TABLE IF NOT EXISTS calibrations (
	id              TEXT PRIMARY KEY,
	created_at      INTEGER NOT NULL,
	old_path        TEXT NOT NULL,
	new_path        TEXT NOT NULL,
	content_weight  REAL NOT NULL,
	context_weight  REAL NOT NULL,
	pass1_threshold REAL NOT NULL,
	pass2_threshold REAL NOT NULL,
	score           REAL NOT NULL,
	mappings        BLOB
);
CREATE INDEX IF NOT EXISTS calibrations_pair ON calibrations (old_path, new_path, created_at);`

// Calibration is a configuration found for one file pair, with the result it
// produced.
type Calibration struct {
	ID        string
	CreatedAt time.Time
	OldPath   string
	NewPath   string
	Config    types.Config
	Score     float64
	Mappings  []types.Mapping
}

// Store persists calibrations in a SQLite database.
type Store struct {
	db *sql.DB
}

func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts c and returns its id. A missing id or creation time is filled in.
func (s *Store) Save(ctx context.Context, c Calibration) (string, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	blob, err := compressMappings(c.Mappings)
	if err != nil {
		return "", err
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO calibrations
		(id, created_at, old_path, new_path, content_weight, context_weight, pass1_threshold, pass2_threshold, score, mappings)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.CreatedAt.UnixNano(), c.OldPath, c.NewPath,
		c.Config.ContentWeight, c.Config.ContextWeight, c.Config.Pass1Threshold, c.Config.Pass2Threshold,
		c.Score, blob)
	if err != nil {
		return "", fmt.Errorf("insert calibration: %w", err)
	}

	logger.Debug("store: saved calibration %s for %s -> %s (%d bytes)", c.ID, c.OldPath, c.NewPath, len(blob))
	return c.ID, nil
}

const selectColumns = `SELECT id, created_at, old_path, new_path, content_weight, context_weight,
	pass1_threshold, pass2_threshold, score, mappings FROM calibrations`

// Latest returns the most recent calibration for the file pair.
func (s *Store) Latest(ctx context.Context, oldPath, newPath string) (Calibration, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+`
		WHERE old_path = ? AND new_path = ?
		ORDER BY created_at DESC, rowid DESC LIMIT 1`, oldPath, newPath)
	return scanCalibration(row)
}

func (s *Store) Get(ctx context.Context, id string) (Calibration, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	return scanCalibration(row)
}

func scanCalibration(row *sql.Row) (Calibration, error) {
	var (
		c       Calibration
		created int64
		blob    []byte
	)
	err := row.Scan(&c.ID, &created, &c.OldPath, &c.NewPath,
		&c.Config.ContentWeight, &c.Config.ContextWeight, &c.Config.Pass1Threshold, &c.Config.Pass2Threshold,
		&c.Score, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return Calibration{}, ErrNotFound
	}
	if err != nil {
		return Calibration{}, fmt.Errorf("scan calibration: %w", err)
	}
	c.CreatedAt = time.Unix(0, created)

	if c.Mappings, err = decompressMappings(blob); err != nil {
		return Calibration{}, err
	}
	return c, nil
}

func compressMappings(mappings []types.Mapping) ([]byte, error) {
	if mappings == nil {
		return nil, nil
	}
	data, err := json.Marshal(mappings)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal mappings: %w", err)
	}

	// Compress with brotli (quality 1 for speed)
	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, 1)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("failed to compress mappings: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close brotli writer: %w", err)
	}
	return buf.Bytes(), nil
}

func decompressMappings(blob []byte) ([]types.Mapping, error) {
	if len(blob) == 0 {
		return nil, nil
	}
	data, err := io.ReadAll(brotli.NewReader(bytes.NewReader(blob)))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress mappings: %w", err)
	}
	var mappings []types.Mapping
	if err := json.Unmarshal(data, &mappings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal mappings: %w", err)
	}
	return mappings, nil
}
