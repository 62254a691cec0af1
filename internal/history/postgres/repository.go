package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/querypilot/querypilot/internal/history"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) HealthCheck(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping store db: %w", err)
	}
	return nil
}

func (r *Repository) Append(ctx context.Context, record history.Record) error {
	var columnsJSON, rowsJSON any
	if record.Columns != nil {
		data, err := json.Marshal(record.Columns)
		if err != nil {
			return fmt.Errorf("marshal columns: %w", err)
		}
		columnsJSON = string(data)
	}
	if record.Rows != nil {
		data, err := json.Marshal(record.Rows)
		if err != nil {
			return fmt.Errorf("marshal rows: %w", err)
		}
		rowsJSON = string(data)
	}

	var errorMessage any
	if record.ErrorMessage != "" {
		errorMessage = record.ErrorMessage
	}

	query := `
INSERT INTO query_history (question, sql_text, columns, rows, was_successful, error_message, execution_time, store_results, created_at)
VALUES ($1, $2, $3::jsonb, $4::jsonb, $5, $6, $7, $8, $9)`

	if _, err := r.db.ExecContext(ctx, query,
		record.Question,
		record.SQL,
		columnsJSON,
		rowsJSON,
		record.WasSuccessful,
		errorMessage,
		record.ExecutionTime,
		record.StoreResults,
		record.Timestamp,
	); err != nil {
		return fmt.Errorf("append history record: %w", err)
	}
	return nil
}

func (r *Repository) Recent(ctx context.Context, limit int) ([]history.Record, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := `
SELECT question, sql_text, columns, rows, was_successful, error_message, execution_time, store_results, created_at
FROM query_history
ORDER BY created_at DESC, history_id DESC
LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]history.Record, 0, limit)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	return records, nil
}

func (r *Repository) ListAfter(ctx context.Context, afterID int64, limit int) ([]history.Entry, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := `
SELECT history_id, question, sql_text, was_successful, error_message, execution_time, store_results, created_at
FROM query_history
WHERE history_id > $1
ORDER BY history_id ASC
LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list history after %d: %w", afterID, err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]history.Entry, 0, limit)
	for rows.Next() {
		var entry history.Entry
		var errorMessage sql.NullString
		if err := rows.Scan(
			&entry.ID,
			&entry.Record.Question,
			&entry.Record.SQL,
			&entry.Record.WasSuccessful,
			&errorMessage,
			&entry.Record.ExecutionTime,
			&entry.Record.StoreResults,
			&entry.Record.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		entry.Record.ErrorMessage = errorMessage.String
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history entries: %w", err)
	}
	return entries, nil
}

func (r *Repository) LastArchivedID(ctx context.Context) (int64, error) {
	var maxID int64
	query := `SELECT COALESCE(MAX(max_history_id), 0) FROM archive_run`
	if err := r.db.QueryRowContext(ctx, query).Scan(&maxID); err != nil {
		return 0, fmt.Errorf("last archived id: %w", err)
	}
	return maxID, nil
}

func (r *Repository) RecordArchiveRun(ctx context.Context, in history.RecordArchiveRunInput) error {
	query := `
INSERT INTO archive_run (max_history_id, object_path, record_count)
VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, query, in.MaxHistoryID, in.ObjectPath, in.RecordCount); err != nil {
		return fmt.Errorf("record archive run: %w", err)
	}
	return nil
}

func scanRecord(rows *sql.Rows) (history.Record, error) {
	var record history.Record
	var columnsJSON, rowsJSON []byte
	var errorMessage sql.NullString

	if err := rows.Scan(
		&record.Question,
		&record.SQL,
		&columnsJSON,
		&rowsJSON,
		&record.WasSuccessful,
		&errorMessage,
		&record.ExecutionTime,
		&record.StoreResults,
		&record.Timestamp,
	); err != nil {
		return history.Record{}, fmt.Errorf("scan history row: %w", err)
	}

	record.ErrorMessage = errorMessage.String
	if len(columnsJSON) > 0 {
		if err := json.Unmarshal(columnsJSON, &record.Columns); err != nil {
			return history.Record{}, fmt.Errorf("decode stored columns: %w", err)
		}
	}
	if len(rowsJSON) > 0 {
		if err := json.Unmarshal(rowsJSON, &record.Rows); err != nil {
			return history.Record{}, fmt.Errorf("decode stored rows: %w", err)
		}
	}
	return record, nil
}
