package agent

import (
	"fmt"
	"strings"
	"time"

	"github.com/querypilot/querypilot/internal/warehouse"
)

type ColumnKind string

const (
	ColumnKindNumeric     ColumnKind = "numeric"
	ColumnKindCategorical ColumnKind = "categorical"
	ColumnKindDatetime    ColumnKind = "datetime"
	ColumnKindBoolean     ColumnKind = "boolean"
)

const previewRowLimit = 5

// ClassifyColumns inspects result values and assigns each column a coarse
// kind. The first non-nil value per column decides; columns with only nil
// values fall back to categorical.
func ClassifyColumns(columns []string, rows []warehouse.Row) map[string]ColumnKind {
	if len(columns) == 0 {
		return nil
	}
	kinds := make(map[string]ColumnKind, len(columns))
	for _, column := range columns {
		kinds[column] = classifyColumn(column, rows)
	}
	return kinds
}

func classifyColumn(column string, rows []warehouse.Row) ColumnKind {
	for _, row := range rows {
		value, ok := row[column]
		if !ok || value == nil {
			continue
		}
		switch v := value.(type) {
		case bool:
			return ColumnKindBoolean
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
			return ColumnKindNumeric
		case time.Time:
			return ColumnKindDatetime
		case string:
			if _, err := time.Parse(time.RFC3339, v); err == nil {
				return ColumnKindDatetime
			}
			if _, err := time.Parse("2006-01-02", v); err == nil {
				return ColumnKindDatetime
			}
			return ColumnKindCategorical
		default:
			return ColumnKindCategorical
		}
	}
	return ColumnKindCategorical
}

// ResultPreview renders the first few rows as a compact text table. The
// preview is stored with examples so retrieval hits can show what the query
// produced without re-running it.
func ResultPreview(columns []string, rows []warehouse.Row) string {
	if len(columns) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(strings.Join(columns, "\t"))
	for i, row := range rows {
		if i >= previewRowLimit {
			fmt.Fprintf(&b, "\n... %d more rows", len(rows)-previewRowLimit)
			break
		}
		b.WriteByte('\n')
		for j, column := range columns {
			if j > 0 {
				b.WriteByte('\t')
			}
			b.WriteString(formatPreviewValue(row[column]))
		}
	}
	return b.String()
}

func formatPreviewValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "NULL"
	case string:
		return v
	case time.Time:
		return v.Format(time.RFC3339)
	case float64:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", v), "0"), ".")
	default:
		return fmt.Sprintf("%v", v)
	}
}
