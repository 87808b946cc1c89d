package logging

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists records to a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS command_logs (
        id TEXT PRIMARY KEY,
        ts INTEGER NOT NULL,
        intent TEXT NOT NULL,
        value INTEGER NOT NULL,
        topic TEXT NOT NULL,
        outcome TEXT NOT NULL,
        error TEXT
    );
    CREATE INDEX IF NOT EXISTS command_logs_ts ON command_logs (ts);`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Append writes the record to the database.
func (s *SQLiteStore) Append(ctx context.Context, rec CommandRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO command_logs (id, ts, intent, value, topic, outcome, error) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Timestamp.UnixNano(), rec.Intent, rec.Value, rec.Topic, rec.Outcome, rec.Error)
	return err
}

// Query returns records matching q ordered by time.
func (s *SQLiteStore) Query(ctx context.Context, q CommandQuery) ([]CommandRecord, error) {
	var args []any
	query := `SELECT id, ts, intent, value, topic, outcome, error FROM command_logs WHERE 1=1`
	if !q.Start.IsZero() {
		query += ` AND ts >= ?`
		args = append(args, q.Start.UnixNano())
	}
	if !q.End.IsZero() {
		query += ` AND ts <= ?`
		args = append(args, q.End.UnixNano())
	}
	if q.Intent != "" {
		query += ` AND intent = ?`
		args = append(args, q.Intent)
	}
	if q.Outcome != "" {
		query += ` AND outcome = ?`
		args = append(args, q.Outcome)
	}
	query += ` ORDER BY ts`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []CommandRecord
	for rows.Next() {
		var (
			r      CommandRecord
			ts     int64
			errStr sql.NullString
		)
		if err := rows.Scan(&r.ID, &ts, &r.Intent, &r.Value, &r.Topic, &r.Outcome, &errStr); err != nil {
			return nil, err
		}
		r.Timestamp = time.Unix(0, ts)
		r.Error = errStr.String
		res = append(res, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return q.limit(res), nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
