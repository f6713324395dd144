// drover-mcp exposes the drover API as MCP tools over stdio, so agent
// clients can extract page content, drive action sequences, and run stored
// workflows without speaking HTTP themselves.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func main() {
	apiURL := os.Getenv("DROVER_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("DROVER_API_KEY")

	s := server.NewMCPServer(
		"drover",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	extractTool := mcp.NewTool("extract",
		mcp.WithDescription("Extract HTML, CSS, or structured JSON from a web page element. Uses a headless browser, so JavaScript-rendered content works."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the page to extract from"),
		),
		mcp.WithString("kind",
			mcp.Required(),
			mcp.Description("What to extract: 'HTML' (element markup), 'CSS' (applied styles), or 'JSON' (schema-mapped fields)"),
			mcp.Enum("HTML", "CSS", "JSON"),
		),
		mcp.WithString("selector",
			mcp.Required(),
			mcp.Description("CSS selector addressing the element(s) to extract"),
		),
		mcp.WithString("wait",
			mcp.Description("Navigation wait policy: 'LOAD' (default), 'DOMCONTENTLOADED', or 'NETWORKIDLE'"),
			mcp.Enum("LOAD", "DOMCONTENTLOADED", "NETWORKIDLE"),
		),
		mcp.WithString("options",
			mcp.Description("Optional JSON object of strategy options, e.g. {\"multiple\":\"true\",\"format\":\"markdown\"}"),
		),
	)
	s.AddTool(extractTool, handleExtract(apiURL, apiKey))

	runActionsTool := mcp.NewTool("run_actions",
		mcp.WithDescription("Run an ordered list of browser actions (click, fill, submit, ...) against a page and return per-action results."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL to load before running the actions"),
		),
		mcp.WithString("actions",
			mcp.Required(),
			mcp.Description("JSON array of actions, e.g. [{\"type\":\"fill\",\"selector\":\"#q\",\"value\":\"hi\"},{\"type\":\"press_key\",\"selector\":\"#q\",\"key\":\"Enter\"}]"),
		),
	)
	s.AddTool(runActionsTool, handleRunActions(apiURL, apiKey))

	executeWorkflowTool := mcp.NewTool("execute_workflow",
		mcp.WithDescription("Execute a stored workflow by id with optional ${name} parameter substitutions. Returns the execution report."),
		mcp.WithString("workflow_id",
			mcp.Required(),
			mcp.Description("The id of the workflow to execute"),
		),
		mcp.WithString("params",
			mcp.Description("Optional JSON object of string parameters substituted into ${name} placeholders"),
		),
	)
	s.AddTool(executeWorkflowTool, handleExecuteWorkflow(apiURL, apiKey))

	listWorkflowsTool := mcp.NewTool("list_workflows",
		mcp.WithDescription("List stored workflows, optionally filtered by name or tag substring."),
		mcp.WithString("name",
			mcp.Description("Filter by name substring"),
		),
		mcp.WithString("tag",
			mcp.Description("Filter by tag substring"),
		),
	)
	s.AddTool(listWorkflowsTool, handleListWorkflows(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiDo sends one request to the drover API and returns the response body.
func apiDo(ctx context.Context, client *http.Client, method, apiURL, apiKey, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

func handleExtract(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 120 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}
		kind, err := request.RequireString("kind")
		if err != nil {
			return mcp.NewToolResultError("kind is required"), nil
		}
		selector, err := request.RequireString("selector")
		if err != nil {
			return mcp.NewToolResultError("selector is required"), nil
		}

		payload := map[string]any{
			"url":      url,
			"kind":     kind,
			"selector": selector,
		}
		if wait := request.GetString("wait", ""); wait != "" {
			payload["wait"] = wait
		}
		if rawOpts := request.GetString("options", ""); rawOpts != "" {
			var opts map[string]string
			if err := json.Unmarshal([]byte(rawOpts), &opts); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("options is not a JSON object of strings: %v", err)), nil
			}
			payload["options"] = opts
		}

		body, err := apiDo(ctx, client, http.MethodPost, apiURL, apiKey, "/api/v1/extract", payload)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(body)), nil
	}
}

func handleRunActions(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 120 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}
		rawActions, err := request.RequireString("actions")
		if err != nil {
			return mcp.NewToolResultError("actions is required"), nil
		}
		var acts []json.RawMessage
		if err := json.Unmarshal([]byte(rawActions), &acts); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("actions is not a JSON array: %v", err)), nil
		}

		payload := map[string]any{"url": url, "actions": acts}
		body, err := apiDo(ctx, client, http.MethodPost, apiURL, apiKey, "/api/v1/actions", payload)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(body)), nil
	}
}

func handleExecuteWorkflow(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 300 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("workflow_id")
		if err != nil {
			return mcp.NewToolResultError("workflow_id is required"), nil
		}

		payload := map[string]any{}
		if rawParams := request.GetString("params", ""); rawParams != "" {
			var params map[string]string
			if err := json.Unmarshal([]byte(rawParams), &params); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("params is not a JSON object of strings: %v", err)), nil
			}
			payload["params"] = params
		}

		body, err := apiDo(ctx, client, http.MethodPost, apiURL, apiKey, "/api/v1/workflows/"+id+"/execute", payload)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(body)), nil
	}
}

func handleListWorkflows(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 30 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path := "/api/v1/workflows"
		if name := request.GetString("name", ""); name != "" {
			path += "?name=" + name
		} else if tag := request.GetString("tag", ""); tag != "" {
			path += "?tag=" + tag
		}

		body, err := apiDo(ctx, client, http.MethodGet, apiURL, apiKey, path, nil)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(body)), nil
	}
}
