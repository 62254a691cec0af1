package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/querypilot/querypilot/internal/agent"
)

type askRequest struct {
	Question        string `json:"question"`
	StoreResults    bool   `json:"store_results"`
	RequireApproval bool   `json:"require_approval"`
	Approved        bool   `json:"approved"`
}

type directRequest struct {
	SQL          string `json:"sql"`
	StoreResults bool   `json:"store_results"`
}

type approvedRequest struct {
	Question     string `json:"question"`
	SQL          string `json:"sql"`
	StoreResults bool   `json:"store_results"`
}

type generateRequest struct {
	Question string `json:"question"`
}

func handleQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Agent == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "AGENT_NOT_CONFIGURED", "query agent is not configured", false, nil)
		return
	}

	var request askRequest
	if !decodeBody(w, r, &request) {
		return
	}

	answer, err := deps.Agent.AnswerQuestion(r.Context(), agent.AskRequest{
		SessionID:       sessionFromRequest(r),
		Question:        request.Question,
		StoreResults:    request.StoreResults,
		RequireApproval: request.RequireApproval,
		Approved:        request.Approved,
	})
	if err != nil {
		writeAgentError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func handleDirectQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Agent == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "AGENT_NOT_CONFIGURED", "query agent is not configured", false, nil)
		return
	}

	var request directRequest
	if !decodeBody(w, r, &request) {
		return
	}

	answer, err := deps.Agent.ExecuteDirectSQL(r.Context(), agent.DirectRequest{
		SQL:          request.SQL,
		StoreResults: request.StoreResults,
	})
	if err != nil {
		writeAgentError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func handleApprovedQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Agent == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "AGENT_NOT_CONFIGURED", "query agent is not configured", false, nil)
		return
	}

	var request approvedRequest
	if !decodeBody(w, r, &request) {
		return
	}

	answer, err := deps.Agent.ExecuteApprovedSQL(r.Context(), agent.ApprovedRequest{
		SessionID:    sessionFromRequest(r),
		Question:     request.Question,
		SQL:          request.SQL,
		StoreResults: request.StoreResults,
	})
	if err != nil {
		writeAgentError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func handleGenerateSQL(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Agent == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "AGENT_NOT_CONFIGURED", "query agent is not configured", false, nil)
		return
	}

	var request generateRequest
	if !decodeBody(w, r, &request) {
		return
	}

	sqlText, similar, err := deps.Agent.GenerateSQL(r.Context(), request.Question)
	if err != nil {
		if errors.Is(err, agent.ErrEmptyQuestion) || errors.Is(err, agent.ErrGenerationNotConfigured) {
			writeAgentError(w, r, err)
			return
		}
		writeError(r.Context(), w, http.StatusBadGateway, "GENERATION_FAILED", "sql generation failed", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sql":             sqlText,
		"similar_queries": similar,
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid request body", false, map[string]any{"details": err.Error()})
		return false
	}
	return true
}

func writeAgentError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, agent.ErrEmptyQuestion):
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
	case errors.Is(err, agent.ErrEmptySQL):
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_REQUIRED", "sql is required", false, nil)
	case errors.Is(err, agent.ErrGenerationNotConfigured):
		writeError(r.Context(), w, http.StatusNotImplemented, "GENERATION_NOT_CONFIGURED", "sql generation is not configured", false, nil)
	default:
		writeError(r.Context(), w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), true, nil)
	}
}
