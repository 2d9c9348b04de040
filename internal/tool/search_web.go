// Package tool exposes Exa web search as a single host-callable operation
// that reports progress while it runs.
package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kitbuilder587/exa-search-tool/internal/metrics"
	"github.com/kitbuilder587/exa-search-tool/internal/progress"
	"github.com/kitbuilder587/exa-search-tool/internal/search"
	"github.com/kitbuilder587/exa-search-tool/internal/search/exa"
)

const (
	Name        = "search_web"
	Description = "Search the web using Exa and get the content of the relevant pages."

	tracerName = "github.com/kitbuilder587/exa-search-tool/internal/tool"
)

// SearchError is the single failure kind of SearchWeb: the provider call failed.
type SearchError struct {
	Query string
	Err   error
}

func (e *SearchError) Error() string {
	return "exa search failed: " + e.Err.Error()
}

func (e *SearchError) Unwrap() error {
	return e.Err
}

// Definition describes the tool to a host runtime.
type Definition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

type SearchTool struct {
	provider search.Provider
	logger   *zap.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

type Option func(*SearchTool)

func WithMetrics(m *metrics.Metrics) Option {
	return func(t *SearchTool) { t.metrics = m }
}

func WithTracer(tr trace.Tracer) Option {
	return func(t *SearchTool) { t.tracer = tr }
}

func New(provider search.Provider, logger *zap.Logger, opts ...Option) *SearchTool {
	t := &SearchTool{
		provider: provider,
		logger:   logger,
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewExa builds a tool backed by the Exa HTTP client. The configuration is
// copied and never changes afterwards.
func NewExa(cfg exa.Config, logger *zap.Logger, opts ...Option) *SearchTool {
	return New(exa.New(cfg, logger), logger, opts...)
}

func (t *SearchTool) Definition() Definition {
	return Definition{
		Name:        Name,
		Description: Description,
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {"type": "string", "description": "Web query used in the search engine."}
			},
			"required": ["query"]
		}`),
	}
}

// SearchWeb runs one search and returns the provider payload as text. Progress
// goes to sink, which may be nil. Provider failures are returned as
// *SearchError after a terminal error event; a sink error aborts the call.
func (t *SearchTool) SearchWeb(ctx context.Context, query string, sink progress.Sink) (string, error) {
	startTime := time.Now()

	if t.metrics != nil {
		t.metrics.IncRequestsInFlight()
		defer t.metrics.DecRequestsInFlight()
	}

	ctx, span := t.tracer.Start(ctx, "tool.search_web",
		trace.WithAttributes(attribute.String("search.query", query)),
	)
	defer span.End()

	n := progress.NewNotifier(t.observe(sink))

	if err := n.Emit(ctx, fmt.Sprintf("Initiating Exa web search for: %s", query)); err != nil {
		return "", t.sinkFailed(span, startTime, err)
	}
	if err := n.Emit(ctx, "Performing Exa search"); err != nil {
		return "", t.sinkFailed(span, startTime, err)
	}

	res, err := t.provider.SearchAndContents(ctx, search.Request{
		Query:      query,
		Type:       search.TypeAuto,
		Highlights: true,
	})
	if err != nil {
		searchErr := &SearchError{Query: query, Err: err}

		t.logger.Warn("exa search failed",
			zap.Int("query_length", len(query)),
			zap.Error(err),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		t.record("error", startTime)

		if emitErr := n.Fail(ctx, fmt.Sprintf("Error during Exa search: %s", err.Error())); emitErr != nil {
			return "", errors.Join(searchErr, fmt.Errorf("emit progress: %w", emitErr))
		}
		return "", searchErr
	}

	if err := n.Emit(ctx, "Retrieved Exa search results"); err != nil {
		return "", t.sinkFailed(span, startTime, err)
	}
	if err := n.Complete(ctx, "Exa web search completed. Retrieved content from search results."); err != nil {
		return "", t.sinkFailed(span, startTime, err)
	}

	out := res.String()

	t.logger.Debug("exa search completed",
		zap.Int("query_length", len(query)),
		zap.Int("result_bytes", len(out)),
		zap.Duration("duration", time.Since(startTime)),
	)
	span.SetAttributes(attribute.Int("search.result_bytes", len(out)))
	span.SetStatus(codes.Ok, "")
	t.record("success", startTime)

	return out, nil
}

// observe counts events on their way to sink. A nil sink stays nil.
func (t *SearchTool) observe(sink progress.Sink) progress.Sink {
	if sink == nil || t.metrics == nil {
		return sink
	}
	return func(ctx context.Context, ev progress.Event) error {
		t.metrics.RecordProgressEvent(string(ev.Status))
		return sink(ctx, ev)
	}
}

func (t *SearchTool) sinkFailed(span trace.Span, startTime time.Time, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, "progress sink failed")
	t.record("sink_error", startTime)
	return fmt.Errorf("emit progress: %w", err)
}

func (t *SearchTool) record(status string, startTime time.Time) {
	if t.metrics != nil {
		t.metrics.RecordSearchRequest(status, time.Since(startTime))
	}
}
