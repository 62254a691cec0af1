// Package agent orchestrates one question end to end: retrieve similar
// examples, generate SQL, gate on approval when asked, execute against the
// warehouse, and persist the outcome.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/querypilot/querypilot/internal/embedding"
	"github.com/querypilot/querypilot/internal/history"
	"github.com/querypilot/querypilot/internal/nl2sql"
	"github.com/querypilot/querypilot/internal/observability"
	"github.com/querypilot/querypilot/internal/retrieval"
	"github.com/querypilot/querypilot/internal/warehouse"
)

var (
	ErrEmptyQuestion           = errors.New("question is required")
	ErrEmptySQL                = errors.New("sql is required")
	ErrGenerationNotConfigured = errors.New("sql generation is not configured")
)

type Config struct {
	TopK            int
	GenerateTimeout time.Duration
	ExecuteTimeout  time.Duration
	ApprovalTTL     time.Duration
}

type Dependencies struct {
	Translator nl2sql.Translator
	Embedder   embedding.Embedder
	Examples   retrieval.Store
	History    history.Store
	Engine     warehouse.Engine
	Logger     *slog.Logger
}

type Service struct {
	translator nl2sql.Translator
	embedder   embedding.Embedder
	examples   retrieval.Store
	history    history.Store
	engine     warehouse.Engine
	gate       *Gate
	logger     *slog.Logger

	topK            int
	generateTimeout time.Duration
	executeTimeout  time.Duration

	now func() time.Time
}

func NewService(cfg Config, deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = 3
	}
	return &Service{
		translator:      deps.Translator,
		embedder:        deps.Embedder,
		examples:        deps.Examples,
		history:         deps.History,
		engine:          deps.Engine,
		gate:            NewGate(cfg.ApprovalTTL),
		logger:          logger,
		topK:            topK,
		generateTimeout: cfg.GenerateTimeout,
		executeTimeout:  cfg.ExecuteTimeout,
	}
}

type AskRequest struct {
	SessionID       string
	Question        string
	StoreResults    bool
	RequireApproval bool
	// Approved marks the re-submission of a question whose SQL was held for
	// review. The held statement runs as-is; nothing is regenerated unless
	// the pending entry expired.
	Approved bool
}

type DirectRequest struct {
	SQL          string
	StoreResults bool
}

type ApprovedRequest struct {
	SessionID    string
	Question     string
	SQL          string
	StoreResults bool
}

// AnswerQuestion runs the full pipeline for a natural-language question.
// Generation and execution failures are reported inside the Answer, not as a
// returned error; the error path is reserved for invalid input and missing
// configuration.
func (s *Service) AnswerQuestion(ctx context.Context, req AskRequest) (Answer, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return Answer{}, ErrEmptyQuestion
	}
	if s.translator == nil {
		return Answer{}, ErrGenerationNotConfigured
	}

	if req.RequireApproval && req.Approved {
		if pending, ok := s.gate.Pending(req.SessionID, question); ok {
			answer, err := s.ExecuteApprovedSQL(ctx, ApprovedRequest{
				SessionID:    req.SessionID,
				Question:     question,
				SQL:          pending,
				StoreResults: req.StoreResults,
			})
			if err != nil {
				return Answer{}, err
			}
			return answer, nil
		}
		// Pending entry expired or was cancelled; fall through and
		// regenerate. The fresh SQL executes directly since the caller
		// already approved.
	}

	vector, similar := s.retrieveContext(ctx, question)

	generated, err := s.generate(ctx, question, similar)
	if err != nil {
		record := history.Record{
			Question:      question,
			WasSuccessful: false,
			ErrorMessage:  fmt.Sprintf("generate sql: %v", err),
			Timestamp:     s.clock().UTC(),
			StoreResults:  req.StoreResults,
		}
		s.appendHistory(ctx, record)
		observability.IncrementQuestions("question", string(ErrorKindGeneration))
		return Answer{Record: record, ErrorKind: ErrorKindGeneration, SimilarQueries: similar}, nil
	}

	if req.RequireApproval && !req.Approved {
		s.gate.Put(req.SessionID, question, generated)
		s.logger.Info("sql awaiting approval",
			"session_id", normalizeSession(req.SessionID),
			"question", question)
		return Answer{
			Record: history.Record{
				Question:     question,
				SQL:          generated,
				Timestamp:    s.clock().UTC(),
				StoreResults: req.StoreResults,
			},
			RequiresApproval: true,
			AwaitingApproval: true,
			SimilarQueries:   similar,
		}, nil
	}

	answer := s.execute(ctx, execution{
		origin:       "question",
		question:     question,
		sql:          generated,
		storeResults: req.StoreResults,
		vector:       vector,
	})
	answer.SimilarQueries = similar
	answer.RequiresApproval = req.RequireApproval
	return answer, nil
}

// ExecuteDirectSQL bypasses generation and approval. Records land in history
// under the direct-SQL sentinel question.
func (s *Service) ExecuteDirectSQL(ctx context.Context, req DirectRequest) (Answer, error) {
	sqlText := strings.TrimSpace(req.SQL)
	if sqlText == "" {
		return Answer{}, ErrEmptySQL
	}
	answer := s.execute(ctx, execution{
		origin:       "direct",
		question:     DirectSQLQuestion,
		sql:          sqlText,
		storeResults: req.StoreResults,
	})
	return answer, nil
}

// ExecuteApprovedSQL runs SQL that a human signed off on, possibly after
// editing it. The session's pending approval is cleared either way.
func (s *Service) ExecuteApprovedSQL(ctx context.Context, req ApprovedRequest) (Answer, error) {
	question := strings.TrimSpace(req.Question)
	sqlText := strings.TrimSpace(req.SQL)
	if question == "" {
		return Answer{}, ErrEmptyQuestion
	}
	if sqlText == "" {
		if pending, ok := s.gate.Pending(req.SessionID, question); ok {
			sqlText = pending
		} else {
			return Answer{}, ErrEmptySQL
		}
	}

	answer := s.execute(ctx, execution{
		origin:       "approved",
		question:     question,
		sql:          sqlText,
		storeResults: req.StoreResults,
	})
	answer.RequiresApproval = true
	s.gate.Resolve(req.SessionID)
	return answer, nil
}

// CancelApproval discards a session's pending SQL without running it.
func (s *Service) CancelApproval(sessionID string) bool {
	return s.gate.Cancel(sessionID)
}

// GenerateSQL produces SQL for a question without executing or persisting
// anything. Used by the generate-only endpoint.
func (s *Service) GenerateSQL(ctx context.Context, question string) (string, []retrieval.ScoredExample, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", nil, ErrEmptyQuestion
	}
	if s.translator == nil {
		return "", nil, ErrGenerationNotConfigured
	}
	_, similar := s.retrieveContext(ctx, question)
	sqlText, err := s.generate(ctx, question, similar)
	if err != nil {
		return "", similar, err
	}
	return sqlText, similar, nil
}

// SimilarQueries runs the similarity lookup directly. Unlike the degraded
// path inside AnswerQuestion, outages surface as errors here.
func (s *Service) SimilarQueries(ctx context.Context, question string, topK int) ([]retrieval.ScoredExample, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	if s.embedder == nil || s.examples == nil {
		return nil, retrieval.ErrUnavailable
	}
	if topK <= 0 {
		topK = s.topK
	}
	vector, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	return s.examples.Similar(ctx, vector, topK)
}

func (s *Service) History(ctx context.Context, limit int) ([]history.Record, error) {
	if s.history == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}
	return s.history.Recent(ctx, limit)
}

type execution struct {
	origin       string
	question     string
	sql          string
	storeResults bool
	vector       embedding.Vector
}

func (s *Service) execute(ctx context.Context, in execution) Answer {
	execCtx := ctx
	if s.executeTimeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, s.executeTimeout)
		defer cancel()
	}

	start := s.clock()
	result, err := s.engine.Execute(execCtx, warehouse.Request{SQL: in.sql})
	elapsed := time.Since(start)

	record := history.Record{
		Question:      in.question,
		SQL:           in.sql,
		ExecutionTime: elapsed.Seconds(),
		Timestamp:     s.clock().UTC(),
		StoreResults:  in.storeResults,
	}

	var answer Answer
	if err != nil {
		kind := ErrorKindExecution
		if errors.Is(err, context.DeadlineExceeded) {
			kind = ErrorKindTimeout
			record.ErrorMessage = fmt.Sprintf("execution timed out after %s", s.executeTimeout)
		} else {
			record.ErrorMessage = err.Error()
		}
		answer = Answer{Record: record, ErrorKind: kind}
		observability.IncrementQuestions(in.origin, string(kind))
		s.logger.Warn("query execution failed",
			"origin", in.origin,
			"error", record.ErrorMessage)
	} else {
		record.WasSuccessful = true
		record.Columns = result.Columns
		record.Rows = result.Rows
		record.ExecutionTime = result.Duration.Seconds()
		answer = Answer{Record: record, ColumnKinds: ClassifyColumns(result.Columns, result.Rows)}
		observability.IncrementQuestions(in.origin, "success")
		observability.ObserveExecutionDuration(result.Duration)
	}

	s.appendHistory(ctx, record)
	if record.StoreResults && record.WasSuccessful {
		s.storeExample(ctx, record, in.vector)
	}
	return answer
}

func (s *Service) generate(ctx context.Context, question string, similar []retrieval.ScoredExample) (string, error) {
	genCtx := ctx
	if s.generateTimeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, s.generateTimeout)
		defer cancel()
	}

	examples := make([]nl2sql.Example, 0, len(similar))
	for _, scored := range similar {
		if !scored.WasSuccessful {
			continue
		}
		examples = append(examples, nl2sql.Example{Question: scored.Question, SQL: scored.SQL})
	}

	start := s.clock()
	result, err := s.translator.Translate(genCtx, nl2sql.Request{Question: question, Examples: examples})
	if err != nil {
		return "", err
	}
	observability.ObserveGenerationDuration(time.Since(start))

	sqlText := strings.TrimSpace(result.SQL)
	if sqlText == "" {
		return "", errors.New("translator returned empty sql")
	}
	return sqlText, nil
}

// retrieveContext embeds the question and looks up similar prior examples.
// Any failure degrades to empty context so the question can still be
// answered.
func (s *Service) retrieveContext(ctx context.Context, question string) (embedding.Vector, []retrieval.ScoredExample) {
	if s.embedder == nil || s.examples == nil {
		return nil, nil
	}

	vector, err := s.embedder.Embed(ctx, question)
	if err != nil {
		observability.IncrementRetrievalDegraded()
		s.logger.Warn("embedding unavailable, answering without context", "error", err)
		return nil, nil
	}

	similar, err := s.examples.Similar(ctx, vector, s.topK)
	if err != nil {
		observability.IncrementRetrievalDegraded()
		s.logger.Warn("similarity lookup unavailable, answering without context", "error", err)
		return vector, nil
	}
	return vector, similar
}

func (s *Service) appendHistory(ctx context.Context, record history.Record) {
	if s.history == nil {
		return
	}
	if err := s.history.Append(ctx, record); err != nil {
		observability.IncrementPersistenceFailure("history")
		s.logger.Error("history append failed", "question", record.Question, "error", err)
	}
}

// storeExample upserts the successful run into the example store, reusing
// the question embedding when the retrieval pass already computed it.
func (s *Service) storeExample(ctx context.Context, record history.Record, vector embedding.Vector) {
	if s.examples == nil {
		return
	}
	if vector == nil {
		if s.embedder == nil {
			return
		}
		embedded, err := s.embedder.Embed(ctx, record.Question)
		if err != nil {
			observability.IncrementPersistenceFailure("examples")
			s.logger.Warn("example embedding failed", "question", record.Question, "error", err)
			return
		}
		vector = embedded
	}

	example := retrieval.Example{
		Question:      record.Question,
		SQL:           record.SQL,
		WasSuccessful: true,
		ExecutionTime: record.ExecutionTime,
		ResultPreview: ResultPreview(record.Columns, record.Rows),
		CreatedAt:     record.Timestamp,
	}
	if err := s.examples.Upsert(ctx, example, vector); err != nil {
		observability.IncrementPersistenceFailure("examples")
		s.logger.Warn("example upsert failed", "question", record.Question, "error", err)
	}
}

func (s *Service) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}
