package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/querypilot/querypilot/internal/embedding"
	"github.com/querypilot/querypilot/internal/retrieval"
)

const defaultCandidateWindow = 256

// Repository persists examples in postgres and ranks candidates in-process.
// The ON CONFLICT upsert gives per-key serialization: two writers racing on
// the same question cannot interleave partial writes.
type Repository struct {
	db              *sql.DB
	candidateWindow int
}

func NewRepository(db *sql.DB, candidateWindow int) *Repository {
	if candidateWindow <= 0 {
		candidateWindow = defaultCandidateWindow
	}
	return &Repository{db: db, candidateWindow: candidateWindow}
}

func (r *Repository) Upsert(ctx context.Context, example retrieval.Example, vector embedding.Vector) error {
	if len(vector) == 0 {
		return fmt.Errorf("embedding vector is required")
	}
	embeddingJSON, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("marshal embedding: %w", err)
	}

	query := `
INSERT INTO query_example (question_key, question, sql_text, embedding, was_successful, execution_time, result_preview, created_at)
VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7, NOW())
ON CONFLICT (question_key)
DO UPDATE SET question = EXCLUDED.question,
	sql_text = EXCLUDED.sql_text,
	embedding = EXCLUDED.embedding,
	was_successful = EXCLUDED.was_successful,
	execution_time = EXCLUDED.execution_time,
	result_preview = EXCLUDED.result_preview,
	created_at = NOW()`

	if _, err := r.db.ExecContext(ctx, query,
		retrieval.QuestionKey(example.Question),
		example.Question,
		example.SQL,
		string(embeddingJSON),
		example.WasSuccessful,
		example.ExecutionTime,
		example.ResultPreview,
	); err != nil {
		return fmt.Errorf("upsert example: %w", err)
	}
	return nil
}

func (r *Repository) Similar(ctx context.Context, vector embedding.Vector, topK int) ([]retrieval.ScoredExample, error) {
	if topK <= 0 {
		return nil, nil
	}

	query := `
SELECT question, sql_text, embedding, was_successful, execution_time, result_preview, created_at
FROM query_example
ORDER BY created_at DESC
LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, r.candidateWindow)
	if err != nil {
		return nil, fmt.Errorf("list example candidates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	candidates := make([]retrieval.Candidate, 0)
	for rows.Next() {
		var candidate retrieval.Candidate
		var embeddingJSON []byte
		if err := rows.Scan(
			&candidate.Example.Question,
			&candidate.Example.SQL,
			&embeddingJSON,
			&candidate.Example.WasSuccessful,
			&candidate.Example.ExecutionTime,
			&candidate.Example.ResultPreview,
			&candidate.Example.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan example row: %w", err)
		}
		if err := json.Unmarshal(embeddingJSON, &candidate.Vector); err != nil {
			return nil, fmt.Errorf("decode stored embedding: %w", err)
		}
		candidates = append(candidates, candidate)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate example rows: %w", err)
	}

	return retrieval.Rank(vector, candidates, topK), nil
}
