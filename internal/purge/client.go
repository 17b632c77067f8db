// Package purge invalidates CDN-cached copies of published artifacts.
package purge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultBaseURL = "https://api.cloudflare.com/client/v4"

	// maxFilesPerRequest is the purge_cache limit on URLs per call.
	maxFilesPerRequest = 30
)

// Purger invalidates cached copies of the given public URLs.
type Purger interface {
	Purge(ctx context.Context, urls []string) error
}

// Config holds the Cloudflare zone and credentials.
type Config struct {
	ZoneID   string
	APIToken string
	BaseURL  string
	Timeout  time.Duration
}

// Client calls the Cloudflare purge_cache API.
type Client struct {
	client *resty.Client
	url    string
}

type purgeRequest struct {
	Files []string `json:"files"`
}

type purgeResponse struct {
	Success bool `json:"success"`
	Errors  []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// NewClient creates a purge client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.ZoneID == "" || cfg.APIToken == "" {
		return nil, fmt.Errorf("purge zone id and api token are required")
	}
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}

	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIToken)
	client.SetHeader("Content-Type", "application/json")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	return &Client{
		client: client,
		url:    fmt.Sprintf("%s/zones/%s/purge_cache", base, cfg.ZoneID),
	}, nil
}

// Purge sends the URLs in batches. It stops at the first failed batch.
func (c *Client) Purge(ctx context.Context, urls []string) error {
	for start := 0; start < len(urls); start += maxFilesPerRequest {
		end := min(start+maxFilesPerRequest, len(urls))
		if err := c.purgeBatch(ctx, urls[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) purgeBatch(ctx context.Context, files []string) error {
	var resp purgeResponse
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetBody(purgeRequest{Files: files}).
		SetResult(&resp).
		SetError(&resp).
		Post(c.url)
	if err != nil {
		return fmt.Errorf("failed to call purge API: %w", err)
	}
	if httpResp.IsError() || !resp.Success {
		msgs := make([]string, 0, len(resp.Errors))
		for _, apiErr := range resp.Errors {
			msgs = append(msgs, fmt.Sprintf("%d: %s", apiErr.Code, apiErr.Message))
		}
		return fmt.Errorf("purge failed: status %d: %s", httpResp.StatusCode(), strings.Join(msgs, "; "))
	}
	return nil
}
