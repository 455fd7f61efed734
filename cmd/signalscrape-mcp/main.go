package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/use-agent/signalscrape/models"
)

// apiClient talks to a running signalscrape HTTP API.
type apiClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	poll    time.Duration
}

func main() {
	apiURL := os.Getenv("SIGNAL_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	client := &apiClient{
		baseURL: strings.TrimRight(apiURL, "/"),
		apiKey:  os.Getenv("SIGNAL_API_KEY"),
		http:    &http.Client{Timeout: 120 * time.Second},
		poll:    2 * time.Second,
	}

	s := server.NewMCPServer(
		"signalscrape",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	s.AddTool(mcp.NewTool("extract_product_signals",
		mcp.WithDescription("Fetch a product page and return its title, description, price, category, meta description, first heading and product type. Fields that cannot be found are null."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The product page URL"),
		),
	), client.handleProduct)

	s.AddTool(mcp.NewTool("extract_follower_count",
		mcp.WithDescription("Fetch a public social profile page and return its follower or subscriber count, or null if it cannot be read."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The profile page URL"),
		),
		mcp.WithString("platform",
			mcp.Required(),
			mcp.Description("The platform the profile belongs to"),
			mcp.Enum("instagram", "facebook", "tiktok", "twitter", "linkedin", "youtube"),
		),
	), client.handleFollowers)

	s.AddTool(mcp.NewTool("extract_many_social_media",
		mcp.WithDescription("Read follower counts for many profiles concurrently. Results keep the input order; unreadable entries have a null count."),
		mcp.WithArray("profiles",
			mcp.Required(),
			mcp.Description(`List of {"platform": "...", "url": "..."} objects`),
			mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"platform": map[string]any{"type": "string"},
					"url":      map[string]any{"type": "string"},
				},
				"required": []string{"platform", "url"},
			}),
		),
	), client.handleMany)

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func (c *apiClient) handleProduct(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := request.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError("url is required"), nil
	}

	var resp models.ProductResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/product", models.ProductRequest{URL: url}, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !resp.Success {
		return mcp.NewToolResultError(errorText(resp.Error, "product extraction failed")), nil
	}
	return jsonResult(resp.Data)
}

func (c *apiClient) handleFollowers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := request.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError("url is required"), nil
	}
	platform, err := request.RequireString("platform")
	if err != nil {
		return mcp.NewToolResultError("platform is required"), nil
	}

	var resp models.FollowerResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/followers", models.FollowerRequest{URL: url, Platform: platform}, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !resp.Success {
		return mcp.NewToolResultError(errorText(resp.Error, "follower extraction failed")), nil
	}
	if resp.Data.Followers == nil {
		return mcp.NewToolResultText(fmt.Sprintf("No follower count found for %s profile %s", platform, url)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s %s: %d followers", platform, url, *resp.Data.Followers)), nil
}

func (c *apiClient) handleMany(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, ok := request.GetArguments()["profiles"]
	if !ok {
		return mcp.NewToolResultError("profiles is required"), nil
	}
	// Round-trip through JSON to turn the generic argument into typed refs.
	b, err := json.Marshal(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid profiles: %v", err)), nil
	}
	var profiles []models.SocialMediaRef
	if err := json.Unmarshal(b, &profiles); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("profiles must be a list of {platform, url} objects: %v", err)), nil
	}
	if len(profiles) == 0 {
		return mcp.NewToolResultError("profiles must not be empty"), nil
	}

	var accepted models.BatchResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/followers/batch/async", models.SocialBatchRequest{Profiles: profiles}, &accepted); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if accepted.ID == "" {
		return mcp.NewToolResultError("batch job creation failed"), nil
	}

	status, err := c.waitForBatch(ctx, accepted.ID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("polling batch job failed: %v", err)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Batch %s: %d/%d profiles with a count\n\n", status.ID, status.Found, status.Total)
	for i, r := range status.Results {
		if r.Followers == nil {
			fmt.Fprintf(&sb, "[%d] %s %s: not found\n", i+1, r.Platform, r.URL)
			continue
		}
		fmt.Fprintf(&sb, "[%d] %s %s: %d\n", i+1, r.Platform, r.URL, *r.Followers)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// waitForBatch polls a batch until it leaves the "processing" state.
func (c *apiClient) waitForBatch(ctx context.Context, id string) (*models.BatchStatusResponse, error) {
	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			var status models.BatchStatusResponse
			if err := c.do(ctx, http.MethodGet, "/api/v1/followers/batch/"+id, nil, &status); err != nil {
				return nil, err
			}
			if status.Status != "processing" {
				return &status, nil
			}
		}
	}
}

// do sends payload (if any) as JSON and decodes the response into out.
func (c *apiClient) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var e models.ErrorResponse
		if json.Unmarshal(respBody, &e) == nil && e.Error != nil {
			return fmt.Errorf("API error: %s", errorText(e.Error, ""))
		}
		return fmt.Errorf("API returned status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

func errorText(e *models.ErrorDetail, fallback string) string {
	if e == nil {
		return fallback
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}
