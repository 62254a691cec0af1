package nl2sql

import "context"

// Example is a prior question/SQL pair used as few-shot context.
type Example struct {
	Question string `json:"question"`
	SQL      string `json:"sql"`
}

type Request struct {
	Question string    `json:"question"`
	Examples []Example `json:"examples"`
}

type Result struct {
	SQL      string `json:"sql"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

type Translator interface {
	Translate(ctx context.Context, req Request) (Result, error)
}
