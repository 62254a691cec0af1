package archive

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/querypilot/querypilot/internal/history"
	"github.com/querypilot/querypilot/internal/observability"
	"github.com/querypilot/querypilot/internal/storage"
)

const defaultBatchSize = 500

type Config struct {
	Interval  time.Duration
	BatchSize int
}

type Service struct {
	Log         history.ArchiveLog
	ObjectStore storage.ObjectStore
	Config      Config
	Logger      *slog.Logger
	Clock       func() time.Time
}

type Summary struct {
	RecordsArchived int64  `json:"records_archived"`
	FirstID         int64  `json:"first_id,omitempty"`
	LastID          int64  `json:"last_id,omitempty"`
	ObjectPath      string `json:"object_path,omitempty"`
}

// Run exports on a fixed interval until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.ensureDefaults()

	ticker := time.NewTicker(s.Config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			summary, err := s.RunOnce(ctx)
			if err != nil {
				s.Logger.ErrorContext(ctx, "archive cycle failed", slog.Any("error", err))
				continue
			}
			if summary.RecordsArchived > 0 {
				s.Logger.InfoContext(ctx, "archive cycle completed", slog.Any("summary", summary))
			}
		}
	}
}

// RunOnce exports at most one batch of history records past the last
// archived watermark. The watermark only advances after the object upload
// succeeds, so a failed run is retried from the same position.
func (s *Service) RunOnce(ctx context.Context) (Summary, error) {
	s.ensureDefaults()
	if s.Log == nil {
		return Summary{}, fmt.Errorf("archive log is required")
	}
	if s.ObjectStore == nil {
		return Summary{}, fmt.Errorf("object store is required")
	}

	lastArchived, err := s.Log.LastArchivedID(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("load archive watermark: %w", err)
	}

	entries, err := s.Log.ListAfter(ctx, lastArchived, s.Config.BatchSize)
	if err != nil {
		return Summary{}, fmt.Errorf("list history after %d: %w", lastArchived, err)
	}
	if len(entries) == 0 {
		return Summary{}, nil
	}

	encoded, err := EncodeEntries(entries)
	if err != nil {
		return Summary{}, fmt.Errorf("encode archive batch: %w", err)
	}

	objectPath, err := storage.BuildArchiveFilePath(s.clock(), encoded.FirstID, encoded.LastID)
	if err != nil {
		return Summary{}, err
	}

	if _, err := s.ObjectStore.Put(ctx, objectPath, bytes.NewReader(encoded.Data), int64(len(encoded.Data)), storage.PutOptions{
		ContentType: "application/octet-stream",
	}); err != nil {
		return Summary{}, fmt.Errorf("upload archive %q: %w", objectPath, err)
	}

	if err := s.Log.RecordArchiveRun(ctx, history.RecordArchiveRunInput{
		MaxHistoryID: encoded.LastID,
		ObjectPath:   objectPath,
		RecordCount:  encoded.RecordCount,
	}); err != nil {
		return Summary{}, fmt.Errorf("record archive run: %w", err)
	}

	observability.AddArchivedRecords(encoded.RecordCount)
	return Summary{
		RecordsArchived: encoded.RecordCount,
		FirstID:         encoded.FirstID,
		LastID:          encoded.LastID,
		ObjectPath:      objectPath,
	}, nil
}

func (s *Service) ensureDefaults() {
	if s.Config.Interval <= 0 {
		s.Config.Interval = time.Hour
	}
	if s.Config.BatchSize <= 0 {
		s.Config.BatchSize = defaultBatchSize
	}
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
}

func (s *Service) clock() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}
