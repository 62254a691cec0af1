package storage

import (
	"fmt"
	"path"
	"time"
)

// BuildArchiveFilePath places an archive batch under a date partition so the
// lake stays queryable by day. firstID and lastID are the history log bounds
// of the batch, inclusive.
func BuildArchiveFilePath(exportedAt time.Time, firstID, lastID int64) (string, error) {
	if firstID <= 0 || lastID < firstID {
		return "", fmt.Errorf("invalid archive id range [%d, %d]", firstID, lastID)
	}
	ts := exportedAt.UTC()
	return path.Join(
		"history",
		fmt.Sprintf("date=%04d-%02d-%02d", ts.Year(), ts.Month(), ts.Day()),
		fmt.Sprintf("archive-%d-%d.parquet", firstID, lastID),
	), nil
}
