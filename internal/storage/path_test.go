package storage

import (
	"testing"
	"time"
)

func TestBuildArchiveFilePath(t *testing.T) {
	exportedAt := time.Date(2026, 8, 23, 14, 30, 0, 0, time.UTC)
	got, err := BuildArchiveFilePath(exportedAt, 1, 500)
	if err != nil {
		t.Fatalf("BuildArchiveFilePath() error = %v", err)
	}
	want := "history/date=2026-08-23/archive-1-500.parquet"
	if got != want {
		t.Fatalf("path = %q, want %q", got, want)
	}
}

func TestBuildArchiveFilePathUsesUTCDate(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	exportedAt := time.Date(2026, 8, 24, 2, 0, 0, 0, loc)
	got, err := BuildArchiveFilePath(exportedAt, 10, 20)
	if err != nil {
		t.Fatalf("BuildArchiveFilePath() error = %v", err)
	}
	if got != "history/date=2026-08-23/archive-10-20.parquet" {
		t.Fatalf("path = %q", got)
	}
}

func TestBuildArchiveFilePathRejectsBadRange(t *testing.T) {
	if _, err := BuildArchiveFilePath(time.Now(), 0, 5); err == nil {
		t.Fatal("expected error for zero first id")
	}
	if _, err := BuildArchiveFilePath(time.Now(), 10, 5); err == nil {
		t.Fatal("expected error for inverted range")
	}
}
