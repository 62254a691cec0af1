// Package warehouse defines the execution boundary toward the analytical
// database. The orchestrator treats any implementation as an opaque
// capability: SQL text in, rows or a failure out.
package warehouse

import (
	"context"
	"time"
)

// Row is one result row keyed by column name. Column order is carried
// separately in Result.Columns because Go maps are unordered.
type Row map[string]any

type Request struct {
	SQL      string
	RowLimit int
}

type Result struct {
	Columns  []string
	Rows     []Row
	Duration time.Duration
}

type Engine interface {
	Execute(ctx context.Context, request Request) (Result, error)
}
