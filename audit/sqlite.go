package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/prashanth-gajula/Agentic-Rag-and-BedRock-Agentrcore/rag"
)

// SqliteRecorder implements rag.Recorder using SQLite.
type SqliteRecorder struct {
	db        *sql.DB
	tableName string
}

// SqliteOptions configuration for the SQLite connection.
type SqliteOptions struct {
	Path      string
	TableName string // Default "invocations"
}

// NewSqliteRecorder opens (or creates) the database and its schema.
func NewSqliteRecorder(opts SqliteOptions) (*SqliteRecorder, error) {
	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "invocations"
	}

	r := &SqliteRecorder{db: db, tableName: tableName}
	if err := r.InitSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

// InitSchema creates the invocations table if it doesn't exist.
func (r *SqliteRecorder) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			query_id TEXT NOT NULL,
			query TEXT NOT NULL,
			attempts INTEGER NOT NULL,
			status TEXT NOT NULL,
			cancelled INTEGER NOT NULL,
			verdicts TEXT NOT NULL,
			answer TEXT,
			refused INTEGER NOT NULL,
			reason TEXT,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%s_query_id ON %s (query_id);
	`, r.tableName, r.tableName, r.tableName)

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *SqliteRecorder) Close() error {
	return r.db.Close()
}

// Record appends one invocation row. Records are never updated.
func (r *SqliteRecorder) Record(ctx context.Context, rec *rag.InvocationRecord) error {
	verdictsJSON, err := json.Marshal(rec.Verdicts)
	if err != nil {
		return fmt.Errorf("failed to marshal verdicts: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, query_id, query, attempts, status, cancelled, verdicts, answer, refused, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.tableName)

	_, err = r.db.ExecContext(ctx, query,
		rec.ID,
		rec.QueryID,
		rec.Query,
		rec.Attempts,
		string(rec.Status),
		rec.Cancelled,
		string(verdictsJSON),
		rec.Answer,
		rec.Refused,
		rec.Reason,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record invocation: %w", err)
	}
	return nil
}

// List returns all records for a query ID, oldest first.
func (r *SqliteRecorder) List(ctx context.Context, queryID string) ([]*rag.InvocationRecord, error) {
	query := fmt.Sprintf(`
		SELECT id, query_id, query, attempts, status, cancelled, verdicts, answer, refused, reason, created_at
		FROM %s
		WHERE query_id = ?
		ORDER BY created_at ASC
	`, r.tableName)

	rows, err := r.db.QueryContext(ctx, query, queryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invocations: %w", err)
	}
	defer rows.Close()

	var records []*rag.InvocationRecord
	for rows.Next() {
		var rec rag.InvocationRecord
		var status string
		var verdictsJSON string

		err := rows.Scan(
			&rec.ID,
			&rec.QueryID,
			&rec.Query,
			&rec.Attempts,
			&status,
			&rec.Cancelled,
			&verdictsJSON,
			&rec.Answer,
			&rec.Refused,
			&rec.Reason,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invocation row: %w", err)
		}

		rec.Status = rag.LoopStatus(status)
		if err := json.Unmarshal([]byte(verdictsJSON), &rec.Verdicts); err != nil {
			return nil, fmt.Errorf("failed to unmarshal verdicts: %w", err)
		}
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invocation rows: %w", err)
	}
	return records, nil
}
