package agent

import (
	"github.com/querypilot/querypilot/internal/history"
	"github.com/querypilot/querypilot/internal/retrieval"
)

// DirectSQLQuestion labels records produced by the direct-SQL path so history
// consumers can tell them apart from natural-language questions.
const DirectSQLQuestion = "Direct SQL Query"

type ErrorKind string

const (
	ErrorKindGeneration ErrorKind = "generation_error"
	ErrorKindExecution  ErrorKind = "execution_error"
	ErrorKindTimeout    ErrorKind = "execution_timeout"
)

// Answer is the uniform response of one orchestration pass. It wraps the
// persisted record with orchestration-only fields that are never stored.
type Answer struct {
	history.Record

	ColumnKinds      map[string]ColumnKind     `json:"column_kinds,omitempty"`
	ErrorKind        ErrorKind                 `json:"error_kind,omitempty"`
	RequiresApproval bool                      `json:"requires_approval,omitempty"`
	AwaitingApproval bool                      `json:"awaiting_approval,omitempty"`
	SimilarQueries   []retrieval.ScoredExample `json:"similar_queries,omitempty"`
}
