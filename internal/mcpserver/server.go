// Package mcpserver publishes the search_web tool over the Model Context
// Protocol and forwards its progress events as MCP notifications.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/kitbuilder587/exa-search-tool/internal/progress"
	"github.com/kitbuilder587/exa-search-tool/internal/tool"
)

const (
	methodProgress = "notifications/progress"
	methodMessage  = "notifications/message"
)

type SearchTool interface {
	Definition() tool.Definition
	SearchWeb(ctx context.Context, query string, sink progress.Sink) (string, error)
}

type notifyFunc func(ctx context.Context, method string, params map[string]any) error

type Server struct {
	mcp    *server.MCPServer
	tool   SearchTool
	logger *zap.Logger
	notify notifyFunc
}

func New(name, version string, t SearchTool, logger *zap.Logger) *Server {
	s := &Server{
		mcp: server.NewMCPServer(name, version,
			server.WithToolCapabilities(false),
			server.WithLogging(),
		),
		tool:   t,
		logger: logger,
		notify: notifyClient,
	}

	def := t.Definition()
	s.mcp.AddTool(mcp.NewToolWithRawSchema(def.Name, def.Description, def.Parameters), s.handleSearchWeb)

	return s
}

// ServeStdio serves until ctx is cancelled or in reaches EOF.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	s.logger.Info("mcp stdio server started")

	err := stdio.Listen(ctx, in, out)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("serve stdio: %w", err)
	}
	return nil
}

func (s *Server) handleSearchWeb(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var token mcp.ProgressToken
	if req.Params.Meta != nil {
		token = req.Params.Meta.ProgressToken
	}

	out, err := s.tool.SearchWeb(ctx, query, s.sink(token))
	if err != nil {
		var searchErr *tool.SearchError
		if errors.As(err, &searchErr) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return nil, err
	}

	return mcp.NewToolResultText(out), nil
}

// sink forwards events to the calling client. Progress notifications need a
// token from the client; the log message is sent regardless. Delivery
// failures are logged and do not abort the search.
func (s *Server) sink(token mcp.ProgressToken) progress.Sink {
	step := 0
	return func(ctx context.Context, ev progress.Event) error {
		step++

		if token != nil {
			params := map[string]any{
				"progressToken": token,
				"progress":      step,
				"message":       ev.Description,
			}
			if ev.Done {
				params["total"] = step
			}
			if err := s.notify(ctx, methodProgress, params); err != nil {
				s.logger.Debug("progress notification dropped", zap.Error(err))
			}
		}

		level := "info"
		if ev.Status == progress.StatusError {
			level = "error"
		}
		if err := s.notify(ctx, methodMessage, map[string]any{
			"level":  level,
			"logger": tool.Name,
			"data":   ev.Message(),
		}); err != nil {
			s.logger.Debug("log notification dropped", zap.Error(err))
		}

		return nil
	}
}

func notifyClient(ctx context.Context, method string, params map[string]any) error {
	srv := server.ServerFromContext(ctx)
	if srv == nil {
		return nil
	}
	return srv.SendNotificationToClient(ctx, method, params)
}
