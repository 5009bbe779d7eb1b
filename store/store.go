// Package store persists METTS samples and vector checkpoints in sqlite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/fumin/metts/vector"
)

const (
	tableSample     = "sample"
	tableCheckpoint = "checkpoint"

	// LabelPsi is the checkpoint label of the state a run collapses.
	LabelPsi = "psi"
)

var (
	// ErrNotFound is returned when a checkpoint label does not exist.
	ErrNotFound = errors.New("not found")
)

// Sample is the record of one collapse.
type Sample struct {
	Index  int
	Sites  [2]int
	States [2]int
	// Sector is the superblock sector of the collapsed vector.
	Sector int
	// Norm2 is the squared norm of the collapsed vector before normalization.
	Norm2 float64
	// Retries is the number of degenerate projections drawn before this one.
	Retries int
}

// Store is a sqlite database of samples and checkpoints.
type Store struct {
	Path string
	db   *sql.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000", path))
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	// sqlite serializes writers, and a single connection avoids busy errors between goroutines.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := prepareDB(ctx, db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, path)
	}
	return &Store{Path: path, db: db}, nil
}

func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// PutSample inserts or replaces the sample with the same index.
func (s *Store) PutSample(ctx context.Context, smp Sample) error {
	sqlStr := fmt.Sprintf(`INSERT OR REPLACE INTO %s (i, site0, site1, state0, state1, sector, norm2, retries) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, tableSample)
	args := []any{smp.Index, smp.Sites[0], smp.Sites[1], smp.States[0], smp.States[1], smp.Sector, smp.Norm2, smp.Retries}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return errors.Wrap(err, fmt.Sprintf("%s %#v", sqlStr, args))
	}
	return nil
}

// Samples returns all samples ordered by index.
func (s *Store) Samples(ctx context.Context) ([]Sample, error) {
	sqlStr := fmt.Sprintf(`SELECT i, site0, site1, state0, state1, sector, norm2, retries FROM %s ORDER BY i`, tableSample)
	rows, err := s.db.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer rows.Close()

	samples := make([]Sample, 0)
	for rows.Next() {
		var smp Sample
		if err := rows.Scan(&smp.Index, &smp.Sites[0], &smp.Sites[1], &smp.States[0], &smp.States[1], &smp.Sector, &smp.Norm2, &smp.Retries); err != nil {
			return nil, errors.Wrap(err, "")
		}
		samples = append(samples, smp)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return samples, nil
}

// PutCheckpoint saves v under label, replacing any previous vector of the same label.
func (s *Store) PutCheckpoint(ctx context.Context, label string, v *vector.VectorWithOffsets) error {
	b, err := v.MarshalBinary()
	if err != nil {
		return errors.Wrap(err, "")
	}
	sqlStr := fmt.Sprintf(`INSERT OR REPLACE INTO %s (label, vector) VALUES (?, ?)`, tableCheckpoint)
	if _, err := s.db.ExecContext(ctx, sqlStr, label, b); err != nil {
		return errors.Wrap(err, label)
	}
	return nil
}

// Checkpoint loads the vector saved under label.
func (s *Store) Checkpoint(ctx context.Context, label string) (*vector.VectorWithOffsets, error) {
	sqlStr := fmt.Sprintf(`SELECT vector FROM %s WHERE label=?`, tableCheckpoint)
	var b []byte
	err := s.db.QueryRowContext(ctx, sqlStr, label).Scan(&b)
	switch {
	case err == sql.ErrNoRows:
		return nil, errors.Wrap(ErrNotFound, label)
	case err != nil:
		return nil, errors.Wrap(err, label)
	}

	v := &vector.VectorWithOffsets{}
	if err := v.UnmarshalBinary(b); err != nil {
		return nil, errors.Wrap(err, label)
	}
	return v, nil
}

// TargetLabel returns the checkpoint label of target vector i, which is the collapsed vector of sample i.
func TargetLabel(i int) string {
	return fmt.Sprintf("tv%d", i)
}

func prepareDB(ctx context.Context, db *sql.DB) error {
	sqlStrs := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (i INTEGER PRIMARY KEY, site0 INTEGER, site1 INTEGER, state0 INTEGER, state1 INTEGER, sector INTEGER, norm2 REAL, retries INTEGER) STRICT`, tableSample),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (label TEXT PRIMARY KEY, vector BLOB) STRICT`, tableCheckpoint),
	}
	for _, sqlStr := range sqlStrs {
		if _, err := db.ExecContext(ctx, sqlStr); err != nil {
			return errors.Wrap(err, sqlStr)
		}
	}
	return nil
}
