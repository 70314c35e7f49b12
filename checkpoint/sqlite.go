package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps checkpoints in a single SQLite table. Payloads are
// zstd-compressed on the way in.
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) Save(ctx context.Context, cp Checkpoint) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := compress(cp.Payload)
	if err != nil {
		return fmt.Errorf("compress generation %d: %w", cp.Generation, err)
	}
	created := cp.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO checkpoints (generation, payload, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(generation) DO UPDATE SET
			payload = excluded.payload,
			created_at = excluded.created_at
	`, cp.Generation, payload, created.UTC().UnixNano())
	return err
}

func (s *SQLiteStore) Load(ctx context.Context, generation int) (Checkpoint, error) {
	return s.queryOne(ctx, `SELECT generation, payload, created_at FROM checkpoints WHERE generation = ?`, generation)
}

func (s *SQLiteStore) Latest(ctx context.Context) (Checkpoint, error) {
	return s.queryOne(ctx, `SELECT generation, payload, created_at FROM checkpoints ORDER BY generation DESC LIMIT 1`)
}

func (s *SQLiteStore) queryOne(ctx context.Context, query string, args ...any) (Checkpoint, error) {
	db, err := s.getDB()
	if err != nil {
		return Checkpoint{}, err
	}

	var (
		cp      Checkpoint
		payload []byte
		created int64
	)
	err = db.QueryRowContext(ctx, query, args...).Scan(&cp.Generation, &payload, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Checkpoint{}, ErrNotFound
		}
		return Checkpoint{}, err
	}

	cp.Payload, err = decompress(payload)
	if err != nil {
		return Checkpoint{}, fmt.Errorf("decompress generation %d: %w", cp.Generation, err)
	}
	cp.CreatedAt = time.Unix(0, created).UTC()
	return cp, nil
}

func (s *SQLiteStore) Generations(ctx context.Context) ([]int, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT generation FROM checkpoints ORDER BY generation`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var gens []int
	for rows.Next() {
		var gen int
		if err := rows.Scan(&gen); err != nil {
			return nil, err
		}
		gens = append(gens, gen)
	}
	return gens, rows.Err()
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS checkpoints (
			generation INTEGER PRIMARY KEY,
			payload BLOB NOT NULL,
			created_at INTEGER NOT NULL
		);
	`)
	return err
}
