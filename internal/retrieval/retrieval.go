// Package retrieval stores embedded question/SQL examples and answers
// nearest-neighbor lookups over them. Only successful, opted-in attempts are
// ever upserted; the orchestrator enforces that rule.
package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/querypilot/querypilot/internal/embedding"
)

var ErrUnavailable = errors.New("example store unavailable")

// Example is a stored question/SQL pair with its outcome metadata.
type Example struct {
	Question      string  `json:"question"`
	SQL           string  `json:"sql"`
	WasSuccessful bool    `json:"was_successful"`
	ExecutionTime float64 `json:"execution_time"`
	ResultPreview string  `json:"result_preview,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// ScoredExample is an Example plus its similarity to a query question,
// computed at retrieval time. Never persisted.
type ScoredExample struct {
	Example
	Score float64 `json:"score"`
}

type Store interface {
	// Upsert is idempotent by the key derived from the question text; the
	// latest content for a question wins.
	Upsert(ctx context.Context, example Example, vector embedding.Vector) error
	// Similar returns at most topK examples ranked by descending similarity,
	// ties broken by more recent CreatedAt.
	Similar(ctx context.Context, vector embedding.Vector, topK int) ([]ScoredExample, error)
}

// QuestionKey derives the stable upsert key for a question. Case and
// surrounding whitespace do not produce distinct examples.
func QuestionKey(question string) string {
	normalized := strings.ToLower(strings.TrimSpace(question))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// Candidate pairs a stored example with its embedding for in-process ranking.
type Candidate struct {
	Example Example
	Vector  embedding.Vector
}

func CosineSimilarity(a, b embedding.Vector) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Rank orders candidates by descending cosine similarity to the query vector,
// breaking ties by recency, and returns at most topK scored examples.
func Rank(query embedding.Vector, candidates []Candidate, topK int) []ScoredExample {
	if topK <= 0 || len(candidates) == 0 {
		return nil
	}

	scored := make([]ScoredExample, 0, len(candidates))
	for _, candidate := range candidates {
		scored = append(scored, ScoredExample{
			Example: candidate.Example,
			Score:   CosineSimilarity(query, candidate.Vector),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].CreatedAt.After(scored[j].CreatedAt)
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}
