package duckdb

import (
	"context"
	"strings"
	"testing"

	"github.com/querypilot/querypilot/internal/warehouse"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(Config{})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	t.Cleanup(func() { _ = engine.Close() })
	return engine
}

func TestExecuteReturnsNamedRows(t *testing.T) {
	engine := newTestEngine(t)

	result, err := engine.Execute(context.Background(), warehouse.Request{
		SQL: "SELECT 1 AS id, 'north' AS region",
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("rows = %d", len(result.Rows))
	}
	if len(result.Columns) != 2 || result.Columns[0] != "id" || result.Columns[1] != "region" {
		t.Fatalf("columns = %v", result.Columns)
	}
	if result.Rows[0]["region"] != "north" {
		t.Fatalf("region = %#v", result.Rows[0]["region"])
	}
	if result.Duration <= 0 {
		t.Fatalf("Duration = %v", result.Duration)
	}
}

func TestExecuteAppliesRowLimitAndTrailingSemicolon(t *testing.T) {
	engine := newTestEngine(t)

	result, err := engine.Execute(context.Background(), warehouse.Request{
		SQL:      "SELECT * FROM range(100);",
		RowLimit: 7,
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(result.Rows) != 7 {
		t.Fatalf("rows = %d, want 7", len(result.Rows))
	}
}

func TestExecuteFallsBackToEngineRowLimit(t *testing.T) {
	engine, err := NewEngine(Config{RowLimit: 5})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	defer func() { _ = engine.Close() }()

	result, err := engine.Execute(context.Background(), warehouse.Request{
		SQL: "SELECT * FROM range(100)",
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(result.Rows) != 5 {
		t.Fatalf("rows = %d, want 5", len(result.Rows))
	}
}

func TestExecuteRejectsEmptySQL(t *testing.T) {
	engine := newTestEngine(t)

	if _, err := engine.Execute(context.Background(), warehouse.Request{SQL: " ; "}); err == nil {
		t.Fatal("expected error for empty sql")
	}
}

func TestExecuteSurfacesWarehouseError(t *testing.T) {
	engine := newTestEngine(t)

	_, err := engine.Execute(context.Background(), warehouse.Request{SQL: "SELECT * FROM missing_table"})
	if err == nil {
		t.Fatal("expected error for missing table")
	}
	if !strings.Contains(err.Error(), "execute query") {
		t.Fatalf("error = %v", err)
	}
}
