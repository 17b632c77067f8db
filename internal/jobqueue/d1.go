package jobqueue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultD1BaseURL = "https://api.cloudflare.com/client/v4"

// D1Config holds configuration for the Cloudflare D1 raw query endpoint.
type D1Config struct {
	AccountID  string
	DatabaseID string
	APIToken   string
	BaseURL    string
	Timeout    time.Duration
}

// D1Executor runs statements through the D1 "raw" query RPC, which answers
// with {result:[{results:{columns, rows}}]}.
type D1Executor struct {
	client *resty.Client
	url    string
}

// RPCError is returned when the job store answers with a failure.
type RPCError struct {
	StatusCode int
	Messages   []string
}

func (e *RPCError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("d1 query failed: status %d", e.StatusCode)
	}
	return fmt.Sprintf("d1 query failed: status %d: %s", e.StatusCode, strings.Join(e.Messages, "; "))
}

type d1Request struct {
	SQL    string `json:"sql"`
	Params []any  `json:"params"`
}

type d1Response struct {
	Success bool `json:"success"`
	Errors  []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
	Result []struct {
		Success bool `json:"success"`
		Results struct {
			Columns []string `json:"columns"`
			Rows    [][]any  `json:"rows"`
		} `json:"results"`
	} `json:"result"`
}

// NewD1Executor creates a D1 executor.
func NewD1Executor(cfg *D1Config) (*D1Executor, error) {
	if cfg.AccountID == "" || cfg.DatabaseID == "" {
		return nil, fmt.Errorf("d1 account id and database id are required")
	}
	if cfg.APIToken == "" {
		return nil, fmt.Errorf("d1 api token is required")
	}
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if base == "" {
		base = defaultD1BaseURL
	}

	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIToken)
	client.SetHeader("Content-Type", "application/json")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	return &D1Executor{
		client: client,
		url:    fmt.Sprintf("%s/accounts/%s/d1/database/%s/raw", base, cfg.AccountID, cfg.DatabaseID),
	}, nil
}

// Execute posts one statement and returns the first result set.
func (e *D1Executor) Execute(ctx context.Context, statement string, params ...any) (*ResultSet, error) {
	if params == nil {
		params = []any{}
	}

	var resp d1Response
	httpResp, err := e.client.R().
		SetContext(ctx).
		SetBody(d1Request{SQL: statement, Params: params}).
		SetResult(&resp).
		SetError(&resp).
		Post(e.url)
	if err != nil {
		return nil, fmt.Errorf("failed to call D1 API: %w", err)
	}

	if httpResp.IsError() || !resp.Success {
		rpcErr := &RPCError{StatusCode: httpResp.StatusCode()}
		for _, apiErr := range resp.Errors {
			rpcErr.Messages = append(rpcErr.Messages, fmt.Sprintf("%d: %s", apiErr.Code, apiErr.Message))
		}
		return nil, rpcErr
	}

	if len(resp.Result) == 0 {
		return &ResultSet{}, nil
	}
	first := resp.Result[0].Results
	return &ResultSet{Columns: first.Columns, Rows: first.Rows}, nil
}
