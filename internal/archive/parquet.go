// Package archive exports cold history records to parquet files in the
// object store so the hot postgres log stays small.
package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/querypilot/querypilot/internal/history"
)

type EncodeResult struct {
	Data        []byte
	RecordCount int64
	FirstID     int64
	LastID      int64
}

type parquetRecord struct {
	HistoryID       int64   `parquet:"history_id"`
	Question        string  `parquet:"question"`
	SQL             string  `parquet:"sql"`
	WasSuccessful   bool    `parquet:"was_successful"`
	ErrorMessage    string  `parquet:"error_message"`
	ExecutionTime   float64 `parquet:"execution_time"`
	StoreResults    bool    `parquet:"store_results"`
	CreatedAtUnixMs int64   `parquet:"created_at_unix_ms"`
}

// EncodeEntries writes the entries, which must be in ascending log order, as
// one parquet file.
func EncodeEntries(entries []history.Entry) (EncodeResult, error) {
	if len(entries) == 0 {
		return EncodeResult{}, fmt.Errorf("entries are required")
	}

	rows := make([]parquetRecord, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, parquetRecord{
			HistoryID:       entry.ID,
			Question:        entry.Record.Question,
			SQL:             entry.Record.SQL,
			WasSuccessful:   entry.Record.WasSuccessful,
			ErrorMessage:    entry.Record.ErrorMessage,
			ExecutionTime:   entry.Record.ExecutionTime,
			StoreResults:    entry.Record.StoreResults,
			CreatedAtUnixMs: entry.Record.Timestamp.UnixMilli(),
		})
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[parquetRecord](buf)
	if _, err := writer.Write(rows); err != nil {
		return EncodeResult{}, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return EncodeResult{}, fmt.Errorf("close parquet writer: %w", err)
	}

	return EncodeResult{
		Data:        buf.Bytes(),
		RecordCount: int64(len(rows)),
		FirstID:     entries[0].ID,
		LastID:      entries[len(entries)-1].ID,
	}, nil
}

// DecodeEntries reads a parquet archive back into history entries. Used by
// tests and ad-hoc restores.
func DecodeEntries(data []byte) ([]history.Entry, error) {
	reader := parquet.NewGenericReader[parquetRecord](bytes.NewReader(data))
	defer func() { _ = reader.Close() }()

	rows := make([]parquetRecord, reader.NumRows())
	if len(rows) == 0 {
		return nil, nil
	}
	if _, err := reader.Read(rows); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read parquet rows: %w", err)
	}

	entries := make([]history.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, history.Entry{
			ID: row.HistoryID,
			Record: history.Record{
				Question:      row.Question,
				SQL:           row.SQL,
				WasSuccessful: row.WasSuccessful,
				ErrorMessage:  row.ErrorMessage,
				ExecutionTime: row.ExecutionTime,
				StoreResults:  row.StoreResults,
				Timestamp:     time.UnixMilli(row.CreatedAtUnixMs).UTC(),
			},
		})
	}
	return entries, nil
}
