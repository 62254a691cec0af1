package archive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/querypilot/querypilot/internal/history"
	"github.com/querypilot/querypilot/internal/storage"
)

type fakeArchiveLog struct {
	entries      []history.Entry
	lastArchived int64
	runs         []history.RecordArchiveRunInput
	listErr      error
}

func (f *fakeArchiveLog) ListAfter(_ context.Context, afterID int64, limit int) ([]history.Entry, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]history.Entry, 0, limit)
	for _, entry := range f.entries {
		if entry.ID > afterID && len(out) < limit {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (f *fakeArchiveLog) LastArchivedID(context.Context) (int64, error) {
	return f.lastArchived, nil
}

func (f *fakeArchiveLog) RecordArchiveRun(_ context.Context, in history.RecordArchiveRunInput) error {
	f.runs = append(f.runs, in)
	f.lastArchived = in.MaxHistoryID
	return nil
}

type fakeObjectStore struct {
	objects map[string][]byte
	putErr  error
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: make(map[string][]byte)}
}

func (f *fakeObjectStore) Put(_ context.Context, key string, body io.Reader, _ int64, _ storage.PutOptions) (storage.ObjectInfo, error) {
	if f.putErr != nil {
		return storage.ObjectInfo{}, f.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	f.objects[key] = data
	return storage.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (f *fakeObjectStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeObjectStore) Delete(_ context.Context, key string) error {
	delete(f.objects, key)
	return nil
}

func sampleEntries(n int) []history.Entry {
	base := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	entries := make([]history.Entry, 0, n)
	for i := 0; i < n; i++ {
		entries = append(entries, history.Entry{
			ID: int64(i + 1),
			Record: history.Record{
				Question:      "question",
				SQL:           "SELECT 1",
				WasSuccessful: i%2 == 0,
				ExecutionTime: 0.1,
				Timestamp:     base.Add(time.Duration(i) * time.Minute),
			},
		})
	}
	return entries
}

func TestRunOnceExportsBatchAndAdvancesWatermark(t *testing.T) {
	log := &fakeArchiveLog{entries: sampleEntries(3)}
	store := newFakeObjectStore()
	svc := &Service{
		Log:         log,
		ObjectStore: store,
		Clock:       func() time.Time { return time.Date(2026, 8, 23, 14, 0, 0, 0, time.UTC) },
	}

	summary, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if summary.RecordsArchived != 3 || summary.FirstID != 1 || summary.LastID != 3 {
		t.Fatalf("summary = %+v", summary)
	}
	if summary.ObjectPath != "history/date=2026-08-23/archive-1-3.parquet" {
		t.Fatalf("object path = %q", summary.ObjectPath)
	}
	if len(log.runs) != 1 || log.runs[0].MaxHistoryID != 3 {
		t.Fatalf("runs = %+v", log.runs)
	}

	decoded, err := DecodeEntries(store.objects[summary.ObjectPath])
	if err != nil {
		t.Fatalf("DecodeEntries() error = %v", err)
	}
	if len(decoded) != 3 || decoded[0].ID != 1 || decoded[2].ID != 3 {
		t.Fatalf("decoded = %+v", decoded)
	}
	if decoded[1].Record.WasSuccessful {
		t.Fatalf("decoded outcome flipped: %+v", decoded[1])
	}
}

func TestRunOnceResumesAfterWatermark(t *testing.T) {
	log := &fakeArchiveLog{entries: sampleEntries(5), lastArchived: 3}
	svc := &Service{Log: log, ObjectStore: newFakeObjectStore()}

	summary, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if summary.FirstID != 4 || summary.LastID != 5 {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestRunOnceWithNothingToArchive(t *testing.T) {
	log := &fakeArchiveLog{entries: sampleEntries(2), lastArchived: 2}
	store := newFakeObjectStore()
	svc := &Service{Log: log, ObjectStore: store}

	summary, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if summary.RecordsArchived != 0 {
		t.Fatalf("summary = %+v", summary)
	}
	if len(store.objects) != 0 {
		t.Fatalf("objects = %v", store.objects)
	}
}

func TestRunOnceRespectsBatchSize(t *testing.T) {
	log := &fakeArchiveLog{entries: sampleEntries(10)}
	svc := &Service{Log: log, ObjectStore: newFakeObjectStore(), Config: Config{BatchSize: 4}}

	summary, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if summary.RecordsArchived != 4 || summary.LastID != 4 {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestRunOnceUploadFailureKeepsWatermark(t *testing.T) {
	log := &fakeArchiveLog{entries: sampleEntries(3)}
	store := newFakeObjectStore()
	store.putErr = errors.New("bucket gone")
	svc := &Service{Log: log, ObjectStore: store}

	if _, err := svc.RunOnce(context.Background()); err == nil || !strings.Contains(err.Error(), "bucket gone") {
		t.Fatalf("error = %v", err)
	}
	if log.lastArchived != 0 || len(log.runs) != 0 {
		t.Fatalf("watermark advanced after failed upload: %+v", log)
	}
}

func TestEncodeEntriesRejectsEmptyBatch(t *testing.T) {
	if _, err := EncodeEntries(nil); err == nil {
		t.Fatal("expected error")
	}
}
