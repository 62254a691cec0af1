package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/querypilot/querypilot/internal/retrieval"
)

func handleHistory(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Agent == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "AGENT_NOT_CONFIGURED", "query agent is not configured", false, nil)
		return
	}

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(r.Context(), w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer", false, nil)
			return
		}
		limit = parsed
	}

	records, err := deps.Agent.History(r.Context(), limit)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "HISTORY_ERROR", "failed to load query history", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"records": records,
		"count":   len(records),
	})
}

func handleSimilarQueries(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Agent == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "AGENT_NOT_CONFIGURED", "query agent is not configured", false, nil)
		return
	}

	question := strings.TrimSpace(r.URL.Query().Get("question"))
	if question == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question query parameter is required", false, nil)
		return
	}

	topK := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("top_k")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(r.Context(), w, http.StatusBadRequest, "INVALID_TOP_K", "top_k must be a positive integer", false, nil)
			return
		}
		topK = parsed
	}

	similar, err := deps.Agent.SimilarQueries(r.Context(), question, topK)
	if err != nil {
		writeError(r.Context(), w, http.StatusServiceUnavailable, "RETRIEVAL_UNAVAILABLE", "similarity lookup failed", true, map[string]any{"details": err.Error()})
		return
	}
	if similar == nil {
		similar = []retrieval.ScoredExample{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"question": question,
		"matches":  similar,
	})
}
