package migrations

import (
	"strings"
	"testing"
)

func TestCoreMigrationContainsRequiredTablesAndIndexes(t *testing.T) {
	body, err := embeddedFS.ReadFile("sql/000001_core.up.sql")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	sql := string(body)
	requiredSnippets := []string{
		"CREATE TABLE IF NOT EXISTS query_history",
		"CREATE TABLE IF NOT EXISTS query_example",
		"CREATE TABLE IF NOT EXISTS archive_run",
		"question_key TEXT PRIMARY KEY",
		"embedding JSONB NOT NULL",
		"CREATE INDEX IF NOT EXISTS idx_query_history_created_at",
		"CREATE INDEX IF NOT EXISTS idx_query_example_created_at",
		"CREATE INDEX IF NOT EXISTS idx_archive_run_max_history_id",
	}

	for _, snippet := range requiredSnippets {
		if !strings.Contains(sql, snippet) {
			t.Fatalf("migration missing required snippet: %s", snippet)
		}
	}
}
