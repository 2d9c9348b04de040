package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kitbuilder587/exa-search-tool/internal/progress"
	"github.com/kitbuilder587/exa-search-tool/internal/search/mock"
	"github.com/kitbuilder587/exa-search-tool/internal/tool"
)

type notification struct {
	method string
	params map[string]any
}

type capture struct {
	mu   sync.Mutex
	sent []notification
}

func (c *capture) notify(_ context.Context, method string, params map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, notification{method: method, params: params})
	return nil
}

func (c *capture) byMethod(method string) []notification {
	var out []notification
	for _, n := range c.sent {
		if n.method == method {
			out = append(out, n)
		}
	}
	return out
}

func newTestServer(provider *mock.Client) (*Server, *capture) {
	logger := zap.NewNop()
	s := New("exa-search", "test", tool.New(provider, logger), logger)
	c := &capture{}
	s.notify = c.notify
	return s, c
}

func callRequest(args map[string]any, token mcp.ProgressToken) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = tool.Name
	req.Params.Arguments = args
	if token != nil {
		req.Params.Meta = &mcp.Meta{ProgressToken: token}
	}
	return req
}

func resultText(res *mcp.CallToolResult) string {
	var parts []string
	for _, c := range res.Content {
		switch v := c.(type) {
		case mcp.TextContent:
			parts = append(parts, v.Text)
		case *mcp.TextContent:
			parts = append(parts, v.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func TestHandleSearchWeb_Success(t *testing.T) {
	s, c := newTestServer(mock.New().WithResult(`{"results": "some content"}`))

	res, err := s.handleSearchWeb(context.Background(), callRequest(map[string]any{"query": "latest AI research"}, "tok-1"))
	require.NoError(t, err)

	assert.False(t, res.IsError)
	assert.Contains(t, resultText(res), "some content")

	prog := c.byMethod(methodProgress)
	require.Len(t, prog, 4)
	for i, n := range prog {
		assert.Equal(t, "tok-1", n.params["progressToken"])
		assert.Equal(t, i+1, n.params["progress"])
	}
	assert.Equal(t, 4, prog[3].params["total"])
	assert.NotContains(t, prog[0].params, "total")

	logs := c.byMethod(methodMessage)
	require.Len(t, logs, 4)
	last := logs[3].params["data"].(progress.Message)
	assert.Equal(t, "status", last.Type)
	assert.Equal(t, progress.StatusComplete, last.Data.Status)
	assert.True(t, last.Data.Done)
}

func TestHandleSearchWeb_NoProgressToken(t *testing.T) {
	s, c := newTestServer(mock.New().WithResult("{}"))

	res, err := s.handleSearchWeb(context.Background(), callRequest(map[string]any{"query": "q"}, nil))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	assert.Empty(t, c.byMethod(methodProgress))
	assert.Len(t, c.byMethod(methodMessage), 4)
}

func TestHandleSearchWeb_ProviderError(t *testing.T) {
	s, c := newTestServer(mock.New().WithError(errors.New("Test error")))

	res, err := s.handleSearchWeb(context.Background(), callRequest(map[string]any{"query": "q"}, "tok"))
	require.NoError(t, err)

	assert.True(t, res.IsError)
	assert.Contains(t, resultText(res), "Test error")

	logs := c.byMethod(methodMessage)
	require.NotEmpty(t, logs)
	terminal := logs[len(logs)-1]
	assert.Equal(t, "error", terminal.params["level"])
	msg := terminal.params["data"].(progress.Message)
	assert.Equal(t, progress.StatusError, msg.Data.Status)
	assert.Contains(t, msg.Data.Description, "Test error")
}

func TestHandleSearchWeb_MissingQuery(t *testing.T) {
	provider := mock.New().WithResult("{}")
	s, _ := newTestServer(provider)

	res, err := s.handleSearchWeb(context.Background(), callRequest(map[string]any{}, nil))
	require.NoError(t, err)

	assert.True(t, res.IsError)
	assert.Equal(t, 0, provider.Calls())
}

func TestHandleSearchWeb_NotifyFailureDoesNotAbort(t *testing.T) {
	s, _ := newTestServer(mock.New().WithResult(`{"ok":1}`))
	s.notify = func(context.Context, string, map[string]any) error {
		return errors.New("notification channel full")
	}

	res, err := s.handleSearchWeb(context.Background(), callRequest(map[string]any{"query": "q"}, "tok"))
	require.NoError(t, err)
	assert.Equal(t, `{"ok":1}`, resultText(res))
}

func TestNotifyClient_NoSession(t *testing.T) {
	assert.NoError(t, notifyClient(context.Background(), methodMessage, map[string]any{}))
}

func TestToolsList_PublishesDefinition(t *testing.T) {
	provider := mock.New()
	s, _ := newTestServer(provider)
	def := tool.New(provider, zap.NewNop()).Definition()

	resp := s.mcp.HandleMessage(context.Background(), json.RawMessage(
		`{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{}}`,
	))

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var body struct {
		Result struct {
			Tools []struct {
				Name        string          `json:"name"`
				Description string          `json:"description"`
				InputSchema json.RawMessage `json:"inputSchema"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(data, &body))
	require.Len(t, body.Result.Tools, 1)

	published := body.Result.Tools[0]
	assert.Equal(t, def.Name, published.Name)
	assert.Equal(t, def.Description, published.Description)
	assert.JSONEq(t, string(def.Parameters), string(published.InputSchema))
}
