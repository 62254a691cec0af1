// Package history is the append-only audit log of query attempts. Every
// orchestration pass lands here, successful or not; the log is never edited
// or deleted through normal operation.
package history

import (
	"context"
	"time"

	"github.com/querypilot/querypilot/internal/warehouse"
)

// Record is one completed query attempt. Immutable once created.
//
// Invariants: a failed record carries an error message and no rows; a
// successful record carries no error message. ExecutionTime is seconds.
type Record struct {
	Question      string          `json:"question"`
	SQL           string          `json:"sql"`
	Columns       []string        `json:"columns,omitempty"`
	Rows          []warehouse.Row `json:"rows,omitempty"`
	WasSuccessful bool            `json:"was_successful"`
	ErrorMessage  string          `json:"error_message,omitempty"`
	ExecutionTime float64         `json:"execution_time"`
	Timestamp     time.Time       `json:"timestamp"`
	StoreResults  bool            `json:"store_results"`
}

// Entry is a Record with its log position, used by the archive exporter.
type Entry struct {
	ID     int64
	Record Record
}

type Store interface {
	Append(ctx context.Context, record Record) error
	// Recent returns at most limit records, most recent first.
	Recent(ctx context.Context, limit int) ([]Record, error)
}

// ArchiveLog exposes the log to the cold-archive exporter.
type ArchiveLog interface {
	ListAfter(ctx context.Context, afterID int64, limit int) ([]Entry, error)
	LastArchivedID(ctx context.Context) (int64, error)
	RecordArchiveRun(ctx context.Context, in RecordArchiveRunInput) error
}

type RecordArchiveRunInput struct {
	MaxHistoryID int64
	ObjectPath   string
	RecordCount  int64
}
