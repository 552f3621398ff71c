// Package mcp provides the MCP (Model Context Protocol) server for propfinder.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Benny93/propfinder-go/internal/finder"
	"github.com/Benny93/propfinder-go/internal/graph"
	"github.com/Benny93/propfinder-go/internal/metrics"
)

// Tool names.
const (
	ToolSearch = "property_search"
	ToolInfo   = "property_info"
)

// Finder is the search pipeline the tools run against.
type Finder interface {
	Find(ctx context.Context, params finder.Params) ([]finder.Result, error)
	Info(id graph.PropertyID) (finder.Result, bool)
}

// Server represents the MCP server.
type Server struct {
	finder  Finder
	metrics *metrics.Metrics
	log     *slog.Logger
	server  *mcp.Server
}

// Tool represents an MCP tool.
type Tool struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
}

// NewServer creates a new MCP server. m may be nil.
func NewServer(f Finder, version string, m *metrics.Metrics, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		finder:  f,
		metrics: m,
		log:     log,
	}

	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    "propfinder",
		Version: version,
	}, nil)

	s.registerTools()

	return s
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []Tool {
	return []Tool{
		{
			Name: ToolSearch,
			Description: "Find knowledge-graph properties matching a free-text label. " +
				"Returns properties ranked by relevance, most relevant first.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"label":     {Type: "string", Description: "Free-text description of the sought property"},
					"data_type": {Type: "string", Description: "Restrict to a value type, e.g. time, quantity or item"},
					"scope": {
						Type:        "string",
						Enum:        []any{"qualifier", "value", "both"},
						Description: "Whether the property is used as a qualifier, a main value or both",
					},
					"filter":     {Type: "boolean", Description: "Apply property constraints (default true)"},
					"constraint": {Type: "string", Description: "Main property whose qualifier constraints apply, e.g. P1082"},
					"other_properties": {
						Type:        "array",
						Items:       &jsonschema.Schema{Type: "string"},
						Description: "Properties already used in the statement; conflicting candidates are removed",
					},
					"size":       {Type: "integer", Description: "Maximum number of results (default 10)"},
					"extra_info": {Type: "boolean", Description: "Include labels, aliases, pagerank, statements, score and data type"},
				},
				Required: []string{"label"},
			},
		},
		{
			Name:        ToolInfo,
			Description: "Describe one property: labels, aliases, description, value type and usage.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"id": {Type: "string", Description: "Property identifier, e.g. P569"},
				},
				Required: []string{"id"},
			},
		},
	}
}

// CallTool executes a tool with the given arguments and returns its JSON
// output.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	switch name {
	case ToolSearch:
		return s.handleSearch(ctx, args)
	case ToolInfo:
		id, _ := args["id"].(string)
		return s.handleInfo(id)
	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}

// Run serves MCP over stdin and stdout until the client disconnects or ctx
// is cancelled.
func (s *Server) Run(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	if stdin == nil || stdout == nil {
		return fmt.Errorf("stdin and stdout must not be nil")
	}
	transport := &mcp.IOTransport{
		Reader: io.NopCloser(stdin),
		Writer: nopWriteCloser{stdout},
	}
	return s.server.Run(ctx, transport)
}

// Connect serves one session over t, for in-process clients.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.server.Connect(ctx, t, nil)
}

// Tool Handlers

func (s *Server) handleSearch(ctx context.Context, args map[string]any) (string, error) {
	start := time.Now()
	params := searchParams(args)

	results, err := s.finder.Find(ctx, params)
	if err != nil {
		s.metrics.ObserveSearch("mcp", statusFor(err), 0, time.Since(start))
		return "", err
	}
	s.metrics.ObserveSearch("mcp", http.StatusOK, len(results), time.Since(start))
	return marshal(results)
}

func (s *Server) handleInfo(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.New("id is required")
	}
	res, ok := s.finder.Info(graph.PropertyID(id))
	if !ok {
		return "", fmt.Errorf("unknown property %s", id)
	}
	return marshal(res)
}

// searchParams reads tool arguments. JSON numbers arrive as float64.
func searchParams(args map[string]any) finder.Params {
	params := finder.Params{
		Filter: true,
		Size:   finder.DefaultResultSize,
	}
	params.Label, _ = args["label"].(string)
	params.DataType, _ = args["data_type"].(string)
	params.Scope, _ = args["scope"].(string)
	params.Constraint, _ = args["constraint"].(string)
	if v, ok := args["filter"].(bool); ok {
		params.Filter = v
	}
	if v, ok := args["extra_info"].(bool); ok {
		params.ExtraInfo = v
	}
	if v, ok := args["size"].(float64); ok {
		params.Size = int(v)
	}

	switch v := args["other_properties"].(type) {
	case []any:
		for _, p := range v {
			if id, ok := p.(string); ok {
				params.OtherProperties = append(params.OtherProperties, id)
			}
		}
	case string:
		params.OtherProperties = finder.SplitList(v)
	}
	return params
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, finder.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, finder.ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func marshal(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding result: %w", err)
	}
	return string(b), nil
}

// registerTools registers every tool from ListTools with the MCP server.
func (s *Server) registerTools() {
	for _, tool := range s.ListTools() {
		name := tool.Name
		s.server.AddTool(&mcp.Tool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		}, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return s.callSDKTool(ctx, name, req.Params.Arguments), nil
		})
	}
}

// callSDKTool reports tool failures in the result so the model sees them.
func (s *Server) callSDKTool(ctx context.Context, name string, raw json.RawMessage) *mcp.CallToolResult {
	args := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return errorResult(fmt.Errorf("invalid arguments: %w", err))
		}
	}

	text, err := s.CallTool(ctx, name, args)
	if err != nil {
		s.log.Warn("tool call failed", "tool", name, "error", err)
		return errorResult(err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error {
	return nil
}
