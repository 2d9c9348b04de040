package mock

import (
	"context"
	"sync"
	"time"

	"github.com/kitbuilder587/exa-search-tool/internal/search"
)

type Client struct {
	Result string
	Error  error
	Delay  time.Duration

	CallCount   int
	LastRequest search.Request
	AllRequests []search.Request

	mu sync.Mutex
}

func New() *Client {
	return &Client{}
}

func (c *Client) WithResult(raw string) *Client {
	c.Result = raw
	return c
}

func (c *Client) WithError(err error) *Client {
	c.Error = err
	return c
}

func (c *Client) WithDelay(delay time.Duration) *Client {
	c.Delay = delay
	return c
}

func (c *Client) SearchAndContents(ctx context.Context, req search.Request) (*search.Result, error) {
	c.mu.Lock()
	c.CallCount++
	c.LastRequest = req
	c.AllRequests = append(c.AllRequests, req)
	delay := c.Delay
	err := c.Error
	result := c.Result
	c.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	if err != nil {
		return nil, err
	}

	return search.NewResult([]byte(result)), nil
}

func (c *Client) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.CallCount
}
