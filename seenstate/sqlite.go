package seenstate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/hazyhaar/linkwatch/internal/dbopen"
)

// Schema is the SQLite layout of the seen-state document.
const Schema = `
CREATE TABLE IF NOT EXISTS profile_hashes (
	profile     TEXT    NOT NULL,
	position    INTEGER NOT NULL,
	fingerprint TEXT    NOT NULL,
	PRIMARY KEY (profile, position)
);
CREATE TABLE IF NOT EXISTS global_hashes (
	position    INTEGER PRIMARY KEY,
	fingerprint TEXT    NOT NULL
);
CREATE TABLE IF NOT EXISTS state_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// SQLiteStore keeps the state in SQLite. Each Save rewrites the document in
// a single transaction, so readers never see a half-written state.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (or creates) the database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(Schema))
	if err != nil {
		return nil, fmt.Errorf("seenstate: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// NewSQLiteStore wraps an open database. The schema must already exist.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Load reads the document. A database that was never saved to reports
// Found=false.
func (s *SQLiteStore) Load(ctx context.Context) (*State, LoadInfo, error) {
	var savedAt string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM state_meta WHERE key = 'saved_at'`).Scan(&savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return New(), LoadInfo{}, nil
	}
	if err != nil {
		return New(), LoadInfo{}, fmt.Errorf("seenstate: read meta: %w", err)
	}

	st := New()
	if err := s.loadProfiles(ctx, st); err != nil {
		return New(), LoadInfo{}, err
	}
	if err := s.loadGlobal(ctx, st); err != nil {
		return New(), LoadInfo{}, err
	}
	return st, LoadInfo{Found: true}, nil
}

func (s *SQLiteStore) loadProfiles(ctx context.Context, st *State) error {
	rows, err := s.db.QueryContext(ctx, `SELECT profile, fingerprint FROM profile_hashes ORDER BY profile, position`)
	if err != nil {
		return fmt.Errorf("seenstate: query profiles: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var profile, fp string
		if err := rows.Scan(&profile, &fp); err != nil {
			return fmt.Errorf("seenstate: scan profile row: %w", err)
		}
		st.PerProfile[profile] = append(st.PerProfile[profile], fp)
	}
	return rows.Err()
}

func (s *SQLiteStore) loadGlobal(ctx context.Context, st *State) error {
	rows, err := s.db.QueryContext(ctx, `SELECT fingerprint FROM global_hashes ORDER BY position`)
	if err != nil {
		return fmt.Errorf("seenstate: query global: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return fmt.Errorf("seenstate: scan global row: %w", err)
		}
		st.Global = append(st.Global, fp)
	}
	return rows.Err()
}

// Save replaces the stored document with st.
func (s *SQLiteStore) Save(ctx context.Context, st *State) error {
	return dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM profile_hashes`); err != nil {
			return fmt.Errorf("seenstate: clear profiles: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM global_hashes`); err != nil {
			return fmt.Errorf("seenstate: clear global: %w", err)
		}

		pstmt, err := tx.PrepareContext(ctx, `INSERT INTO profile_hashes (profile, position, fingerprint) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("seenstate: prepare: %w", err)
		}
		defer pstmt.Close()
		for profile, fps := range st.PerProfile {
			for i, fp := range fps {
				if _, err := pstmt.ExecContext(ctx, profile, i, fp); err != nil {
					return fmt.Errorf("seenstate: insert profile row: %w", err)
				}
			}
		}

		gstmt, err := tx.PrepareContext(ctx, `INSERT INTO global_hashes (position, fingerprint) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("seenstate: prepare: %w", err)
		}
		defer gstmt.Close()
		for i, fp := range st.Global {
			if _, err := gstmt.ExecContext(ctx, i, fp); err != nil {
				return fmt.Errorf("seenstate: insert global row: %w", err)
			}
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO state_meta (key, value) VALUES ('saved_at', ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			strconv.FormatInt(time.Now().UnixMilli(), 10))
		if err != nil {
			return fmt.Errorf("seenstate: write meta: %w", err)
		}
		return nil
	})
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
