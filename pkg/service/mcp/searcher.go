package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/marten/pkg/model"
	"github.com/m-mizutani/marten/pkg/utils/logging"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var (
	queryArgCandidates = []string{"query", "q", "search", "keyword"}
	limitArgCandidates = []string{"limit", "max_results", "count", "num"}
)

// Searcher runs web searches through a tool of a connected MCP server
type Searcher struct {
	client   *Client
	server   string
	tool     string
	queryArg string
	limitArg string
}

// NewSearcher binds cfg.Tool of server cfg.Name. Argument names not given in
// cfg are picked from the tool's input schema.
func NewSearcher(client *Client, cfg ServerConfig) (*Searcher, error) {
	if cfg.Tool == "" {
		return nil, goerr.New("tool is required for MCP search", goerr.V("server", cfg.Name))
	}

	tools, err := client.Tools(cfg.Name)
	if err != nil {
		return nil, err
	}

	var tool *mcp.Tool
	for _, t := range tools {
		if t.Name == cfg.Tool {
			tool = t
			break
		}
	}
	if tool == nil {
		return nil, goerr.New("tool not found", goerr.V("server", cfg.Name), goerr.V("tool", cfg.Tool))
	}

	schema, err := inputSchema(tool)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read tool input schema", goerr.V("tool", cfg.Tool))
	}

	s := &Searcher{
		client:   client,
		server:   cfg.Name,
		tool:     cfg.Tool,
		queryArg: cfg.QueryArg,
		limitArg: cfg.LimitArg,
	}
	if s.queryArg == "" {
		s.queryArg = pickArg(schema, queryArgCandidates, "string")
	}
	if s.limitArg == "" {
		s.limitArg = pickArg(schema, limitArgCandidates, "")
	}
	if s.queryArg == "" {
		return nil, goerr.New("no query argument in tool schema", goerr.V("tool", cfg.Tool))
	}

	return s, nil
}

// Name identifies the searcher in a search chain
func (s *Searcher) Name() string {
	return "mcp:" + s.server
}

func (s *Searcher) Search(ctx context.Context, query string, limit int) ([]model.SearchResult, error) {
	args := map[string]any{s.queryArg: query}
	if s.limitArg != "" && limit > 0 {
		args[s.limitArg] = limit
	}

	result, err := s.client.CallTool(ctx, s.server, s.tool, args)
	if err != nil {
		return nil, err
	}

	text := textOf(result)
	if result.IsError {
		return nil, goerr.New("MCP search tool returned an error",
			goerr.V("server", s.server),
			goerr.V("tool", s.tool),
			goerr.V("message", text))
	}

	results := parseResults(text, s.Name())
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	logging.From(ctx).Debug("MCP search", "server", s.server, "query", query, "results", len(results))
	return results, nil
}

func inputSchema(tool *mcp.Tool) (*jsonschema.Schema, error) {
	if tool.InputSchema == nil {
		return &jsonschema.Schema{Type: "object"}, nil
	}

	raw, err := json.Marshal(tool.InputSchema)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal input schema")
	}
	var schema jsonschema.Schema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal input schema")
	}
	return &schema, nil
}

// pickArg returns the first candidate present in schema's properties. With
// no candidate present it falls back to the first required property of
// typ, if typ is set.
func pickArg(schema *jsonschema.Schema, candidates []string, typ string) string {
	for _, name := range candidates {
		if _, ok := schema.Properties[name]; ok {
			return name
		}
	}
	if typ == "" {
		return ""
	}
	for _, name := range schema.Required {
		if p, ok := schema.Properties[name]; ok && p.Type == typ {
			return name
		}
	}
	return ""
}

func textOf(result *mcp.CallToolResult) string {
	var parts []string
	for _, c := range result.Content {
		if t, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, t.Text)
		}
	}
	return strings.Join(parts, "\n")
}

type resultItem struct {
	Title       string `json:"title"`
	Snippet     string `json:"snippet"`
	Description string `json:"description"`
	Content     string `json:"content"`
	Link        string `json:"link"`
	URL         string `json:"url"`
}

func (x resultItem) toModel(source string) model.SearchResult {
	r := model.SearchResult{Title: x.Title, Snippet: x.Snippet, Link: x.Link, Source: source}
	if r.Snippet == "" {
		r.Snippet = x.Description
	}
	if r.Snippet == "" {
		r.Snippet = x.Content
	}
	if r.Link == "" {
		r.Link = x.URL
	}
	return r
}

// parseResults accepts a JSON array of results, an object with a "results"
// array, or plain text, which becomes a single snippet.
func parseResults(text, source string) []model.SearchResult {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var items []resultItem
	if err := json.Unmarshal([]byte(text), &items); err != nil {
		var wrapped struct {
			Results []resultItem `json:"results"`
		}
		if err := json.Unmarshal([]byte(text), &wrapped); err != nil || wrapped.Results == nil {
			return []model.SearchResult{{Title: "MCP search result", Snippet: text, Source: source}}
		}
		items = wrapped.Results
	}

	results := make([]model.SearchResult, 0, len(items))
	for _, item := range items {
		r := item.toModel(source)
		if r.Title == "" && r.Snippet == "" {
			continue
		}
		results = append(results, r)
	}
	return results
}
