package retrieval

import (
	"testing"
	"time"

	"github.com/querypilot/querypilot/internal/embedding"
)

func TestQuestionKeyNormalizesCaseAndWhitespace(t *testing.T) {
	a := QuestionKey("Total Sales by Region")
	b := QuestionKey("  total sales by region  ")
	if a != b {
		t.Fatalf("keys differ: %q vs %q", a, b)
	}
	if a == QuestionKey("total sales by country") {
		t.Fatal("distinct questions must not collide")
	}
}

func TestCosineSimilarity(t *testing.T) {
	identical := CosineSimilarity(embedding.Vector{1, 0}, embedding.Vector{1, 0})
	if identical < 0.999 {
		t.Fatalf("identical vectors score = %f", identical)
	}
	orthogonal := CosineSimilarity(embedding.Vector{1, 0}, embedding.Vector{0, 1})
	if orthogonal > 0.001 {
		t.Fatalf("orthogonal vectors score = %f", orthogonal)
	}
	if got := CosineSimilarity(embedding.Vector{1, 0}, embedding.Vector{1}); got != 0 {
		t.Fatalf("mismatched lengths score = %f", got)
	}
}

func TestRankOrdersBySimilarityThenRecency(t *testing.T) {
	now := time.Now().UTC()
	candidates := []Candidate{
		{Example: Example{Question: "old exact", CreatedAt: now.Add(-time.Hour)}, Vector: embedding.Vector{1, 0}},
		{Example: Example{Question: "new exact", CreatedAt: now}, Vector: embedding.Vector{1, 0}},
		{Example: Example{Question: "far", CreatedAt: now}, Vector: embedding.Vector{0, 1}},
	}

	ranked := Rank(embedding.Vector{1, 0}, candidates, 3)
	if len(ranked) != 3 {
		t.Fatalf("ranked = %d", len(ranked))
	}
	if ranked[0].Question != "new exact" {
		t.Fatalf("first = %q, want recency tie-break winner", ranked[0].Question)
	}
	if ranked[1].Question != "old exact" {
		t.Fatalf("second = %q", ranked[1].Question)
	}
	if ranked[2].Question != "far" {
		t.Fatalf("third = %q", ranked[2].Question)
	}
}

func TestRankHonorsTopK(t *testing.T) {
	candidates := []Candidate{
		{Example: Example{Question: "a"}, Vector: embedding.Vector{1, 0}},
		{Example: Example{Question: "b"}, Vector: embedding.Vector{0.9, 0.1}},
	}
	if got := Rank(embedding.Vector{1, 0}, candidates, 1); len(got) != 1 {
		t.Fatalf("topK=1 returned %d items", len(got))
	}
	if got := Rank(embedding.Vector{1, 0}, candidates, 0); got != nil {
		t.Fatalf("topK=0 returned %v", got)
	}
	if got := Rank(embedding.Vector{1, 0}, nil, 3); got != nil {
		t.Fatalf("empty candidates returned %v", got)
	}
}
