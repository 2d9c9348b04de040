package search

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	ErrUnauthorized   = errors.New("invalid API key")
	ErrRateLimit      = errors.New("rate limit exceeded")
	ErrInvalidRequest = errors.New("invalid request parameters")
	ErrSearchFailed   = errors.New("search request failed")
)

// TypeAuto lets the provider choose between keyword and neural search.
const TypeAuto = "auto"

type Provider interface {
	SearchAndContents(ctx context.Context, req Request) (*Result, error)
}

type Request struct {
	Query      string
	Type       string
	Highlights bool
}

// Result is the provider payload as received. Its structure is not interpreted.
type Result struct {
	Raw json.RawMessage
}

func NewResult(raw []byte) *Result {
	return &Result{Raw: json.RawMessage(raw)}
}

func (r *Result) String() string {
	if r == nil {
		return ""
	}
	return string(r.Raw)
}
