package server

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// Client calls a remote ExecutionService. It speaks CBOR unless WithJSON
// is passed.
type Client struct {
	execute *connect.Client[ExecuteRequest, ExecuteResponse]
	check   *connect.Client[CheckRequest, CheckResponse]
}

// NewClient creates a Client for the server at baseURL, for example
// "http://localhost:4567". A nil httpClient uses http.DefaultClient.
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(cborCodec{})}, opts...)

	return &Client{
		execute: connect.NewClient[ExecuteRequest, ExecuteResponse](httpClient, baseURL+ExecuteProcedure, opts...),
		check:   connect.NewClient[CheckRequest, CheckResponse](httpClient, baseURL+CheckProcedure, opts...),
	}
}

// Execute runs source remotely. maxSteps <= 0 uses the server's budget.
func (c *Client) Execute(ctx context.Context, source string, maxSteps int) (*ExecuteResponse, error) {
	resp, err := c.execute.CallUnary(ctx, connect.NewRequest(&ExecuteRequest{
		Source:   source,
		MaxSteps: maxSteps,
	}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// Check runs the static checker remotely.
func (c *Client) Check(ctx context.Context, source string) (*CheckResponse, error) {
	resp, err := c.check.CallUnary(ctx, connect.NewRequest(&CheckRequest{Source: source}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}
