package api

import "net/http"

func handleCancelApproval(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Agent == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "AGENT_NOT_CONFIGURED", "query agent is not configured", false, nil)
		return
	}

	cancelled := deps.Agent.CancelApproval(sessionFromRequest(r))
	writeJSON(w, http.StatusOK, map[string]any{"cancelled": cancelled})
}
