package mcp

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/marten/pkg/memory"
	"github.com/m-mizutani/marten/pkg/model"
	"github.com/m-mizutani/marten/pkg/usecase/research"
	"github.com/m-mizutani/marten/pkg/utils/logging"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// UseCase is the orchestrator surface exposed as MCP tools
type UseCase interface {
	AnalyzeQuery(ctx context.Context, id model.SessionID, query string) *research.Result
	ClearMemory(id model.SessionID)
	MemoryStatus(id model.SessionID) memory.Status
}

// Server publishes analyze_query, clear_memory and memory_status tools
type Server struct {
	server *mcp.Server
	uc     UseCase
}

type analyzeParams struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

type sessionParams struct {
	SessionID string `json:"session_id,omitempty"`
}

type statusView struct {
	Status    string `json:"status"`
	Active    bool   `json:"active"`
	Product   string `json:"product,omitempty"`
	Exchanges int    `json:"exchanges"`
}

var sessionIDSchema = &jsonschema.Schema{
	Type:        "string",
	Description: "Conversation id. Questions sharing an id share research memory. Defaults to \"default\".",
}

func NewServer(uc UseCase) *Server {
	s := &Server{
		server: mcp.NewServer(&mcp.Implementation{Name: implName, Version: implVersion}, nil),
		uc:     uc,
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "analyze_query",
		Description: "Research a question. Stock, news, product and general questions are routed to dedicated " +
			"collectors; a question about the product researched last in the same session is answered from memory.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"query": {
					Type:        "string",
					Description: "Question to research, e.g. \"Pixel 9 review\" or \"Tesla stock price\"",
				},
				"session_id": sessionIDSchema,
			},
			Required: []string{"query"},
		},
	}, s.analyze)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "clear_memory",
		Description: "Forget the research session of a conversation",
		InputSchema: sessionSchema(),
	}, s.clearMemory)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "memory_status",
		Description: "Report whether a conversation has an active research session",
		InputSchema: sessionSchema(),
	}, s.memoryStatus)

	return s
}

func sessionSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:       "object",
		Properties: map[string]*jsonschema.Schema{"session_id": sessionIDSchema},
	}
}

// Run serves over stdio until ctx is canceled or the peer disconnects
func (s *Server) Run(ctx context.Context) error {
	logging.From(ctx).Info("starting MCP server on stdio")
	if err := s.server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return goerr.Wrap(err, "MCP server stopped")
	}
	return nil
}

// Handler serves the tools over streamable HTTP
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return s.server
	}, nil)
}

func sessionOf(id string) model.SessionID {
	if id == "" {
		return model.DefaultSessionID
	}
	return model.SessionID(id)
}

func text(s string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: s}}}
}

func (s *Server) analyze(ctx context.Context, req *mcp.CallToolRequest, params *analyzeParams) (*mcp.CallToolResult, any, error) {
	if params.Query == "" {
		result := text("Query is required")
		result.IsError = true
		return result, nil, nil
	}

	r := s.uc.AnalyzeQuery(ctx, sessionOf(params.SessionID), params.Query)
	out := text(r.Report)
	out.IsError = r.Err != nil
	return out, nil, nil
}

func (s *Server) clearMemory(ctx context.Context, req *mcp.CallToolRequest, params *sessionParams) (*mcp.CallToolResult, any, error) {
	s.uc.ClearMemory(sessionOf(params.SessionID))
	return text("Memory cleared successfully"), nil, nil
}

func (s *Server) memoryStatus(ctx context.Context, req *mcp.CallToolRequest, params *sessionParams) (*mcp.CallToolResult, any, error) {
	status := s.uc.MemoryStatus(sessionOf(params.SessionID))
	raw, err := json.Marshal(statusView{
		Status:    status.String(),
		Active:    status.Active,
		Product:   status.Subject,
		Exchanges: status.Exchanges,
	})
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to marshal memory status")
	}
	return text(string(raw)), nil, nil
}
