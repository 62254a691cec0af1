// Package api exposes the HTTP surface of the query agent.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/querypilot/querypilot/internal/agent"
	"github.com/querypilot/querypilot/internal/archive"
	"github.com/querypilot/querypilot/internal/config"
	"github.com/querypilot/querypilot/internal/history"
	"github.com/querypilot/querypilot/internal/observability"
	"github.com/querypilot/querypilot/internal/retrieval"
)

// sessionHeader scopes approval state; callers without it share the
// "default" session.
const sessionHeader = "X-Session-ID"

type ReadinessCheck func(ctx context.Context) error

// Agent is the orchestration surface the handlers call into.
type Agent interface {
	AnswerQuestion(ctx context.Context, req agent.AskRequest) (agent.Answer, error)
	ExecuteDirectSQL(ctx context.Context, req agent.DirectRequest) (agent.Answer, error)
	ExecuteApprovedSQL(ctx context.Context, req agent.ApprovedRequest) (agent.Answer, error)
	CancelApproval(sessionID string) bool
	GenerateSQL(ctx context.Context, question string) (string, []retrieval.ScoredExample, error)
	SimilarQueries(ctx context.Context, question string, topK int) ([]retrieval.ScoredExample, error)
	History(ctx context.Context, limit int) ([]history.Record, error)
}

type ArchiveRunner interface {
	RunOnce(ctx context.Context) (archive.Summary, error)
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	DependencyTimeout time.Duration
	Agent             Agent
	Archive           ArchiveRunner
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	mux.HandleFunc("POST /v1/query", func(w http.ResponseWriter, r *http.Request) {
		handleQuery(deps, w, r)
	})
	mux.HandleFunc("POST /v1/query/direct", func(w http.ResponseWriter, r *http.Request) {
		handleDirectQuery(deps, w, r)
	})
	mux.HandleFunc("POST /v1/query/approved", func(w http.ResponseWriter, r *http.Request) {
		handleApprovedQuery(deps, w, r)
	})
	mux.HandleFunc("POST /v1/approval/cancel", func(w http.ResponseWriter, r *http.Request) {
		handleCancelApproval(deps, w, r)
	})
	mux.HandleFunc("POST /v1/sql/generate", func(w http.ResponseWriter, r *http.Request) {
		handleGenerateSQL(deps, w, r)
	})
	mux.HandleFunc("GET /v1/similar-queries", func(w http.ResponseWriter, r *http.Request) {
		handleSimilarQueries(deps, w, r)
	})
	mux.HandleFunc("GET /v1/history", func(w http.ResponseWriter, r *http.Request) {
		handleHistory(deps, w, r)
	})
	mux.HandleFunc("POST /v1/archive/run", func(w http.ResponseWriter, r *http.Request) {
		handleArchiveRun(deps, w, r)
	})

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

func CheckStoreDSN(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if cfg.Store.DSN == "" {
			return errors.New("store dsn is not configured")
		}
		return nil
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func sessionFromRequest(r *http.Request) string {
	return r.Header.Get(sessionHeader)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
