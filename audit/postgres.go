package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prashanth-gajula/Agentic-Rag-and-BedRock-Agentrcore/rag"
)

// DBPool defines the interface for the database connection pool.
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresRecorder implements rag.Recorder using PostgreSQL.
type PostgresRecorder struct {
	pool      DBPool
	tableName string
}

// PostgresOptions configuration for the Postgres connection.
type PostgresOptions struct {
	ConnString string
	TableName  string // Default "invocations"
}

// NewPostgresRecorder creates a recorder backed by a new connection pool.
func NewPostgresRecorder(ctx context.Context, opts PostgresOptions) (*PostgresRecorder, error) {
	pool, err := pgxpool.New(ctx, opts.ConnString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "invocations"
	}
	return &PostgresRecorder{pool: pool, tableName: tableName}, nil
}

// NewPostgresRecorderWithPool creates a recorder over an existing pool.
// Useful for testing with mocks.
func NewPostgresRecorderWithPool(pool DBPool, tableName string) *PostgresRecorder {
	if tableName == "" {
		tableName = "invocations"
	}
	return &PostgresRecorder{pool: pool, tableName: tableName}
}

// InitSchema creates the invocations table if it doesn't exist.
func (r *PostgresRecorder) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			query_id TEXT NOT NULL,
			query TEXT NOT NULL,
			attempts INTEGER NOT NULL,
			status TEXT NOT NULL,
			cancelled BOOLEAN NOT NULL,
			verdicts JSONB NOT NULL,
			answer TEXT,
			refused BOOLEAN NOT NULL,
			reason TEXT,
			created_at BIGINT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%s_query_id ON %s (query_id);
	`, r.tableName, r.tableName, r.tableName)

	if _, err := r.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (r *PostgresRecorder) Close() {
	r.pool.Close()
}

// Record appends one invocation row. Records are never updated.
func (r *PostgresRecorder) Record(ctx context.Context, rec *rag.InvocationRecord) error {
	verdictsJSON, err := json.Marshal(rec.Verdicts)
	if err != nil {
		return fmt.Errorf("failed to marshal verdicts: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, query_id, query, attempts, status, cancelled, verdicts, answer, refused, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, r.tableName)

	_, err = r.pool.Exec(ctx, query,
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
func (r *PostgresRecorder) List(ctx context.Context, queryID string) ([]*rag.InvocationRecord, error) {
	query := fmt.Sprintf(`
		SELECT id, query_id, query, attempts, status, cancelled, verdicts, answer, refused, reason, created_at
		FROM %s
		WHERE query_id = $1
		ORDER BY created_at ASC
	`, r.tableName)

	rows, err := r.pool.Query(ctx, query, queryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invocations: %w", err)
	}
	defer rows.Close()

	var records []*rag.InvocationRecord
	for rows.Next() {
		var rec rag.InvocationRecord
		var status string
		var verdictsJSON []byte

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
		if err := json.Unmarshal(verdictsJSON, &rec.Verdicts); err != nil {
			return nil, fmt.Errorf("failed to unmarshal verdicts: %w", err)
		}
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invocation rows: %w", err)
	}
	return records, nil
}
