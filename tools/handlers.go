package tools

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/olgasafonova/mediawiki-mcp-server/metrics"
	"github.com/olgasafonova/mediawiki-mcp-server/tracing"
	"github.com/olgasafonova/mediawiki-mcp-server/wiki"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// HandlerRegistry provides type-safe tool registration by mapping
// tool names to their concrete handler implementations.
type HandlerRegistry struct {
	client *wiki.Client
	logger *slog.Logger

	// mu serializes tool calls; the wiki client keeps unsynchronized per-call state
	mu sync.Mutex
}

// NewHandlerRegistry creates a new handler registry.
func NewHandlerRegistry(client *wiki.Client, logger *slog.Logger) *HandlerRegistry {
	return &HandlerRegistry{
		client: client,
		logger: logger,
	}
}

// RegisterAll registers all tools with the MCP server.
func (h *HandlerRegistry) RegisterAll(server *mcp.Server) {
	registered := 0
	for _, spec := range AllTools {
		if h.registerByName(server, spec) {
			registered++
		}
	}
	h.logger.Info("Registered all tools", "count", registered)
}

// registerByName dispatches to the correct typed registration function.
func (h *HandlerRegistry) registerByName(server *mcp.Server, spec ToolSpec) bool {
	tool := h.buildTool(spec)

	switch spec.Method {
	// Search tools
	case "Search":
		register(h, server, tool, spec, h.client.SearchMCP)
	case "PrefixSearch":
		register(h, server, tool, spec, h.client.PrefixSearchMCP)
	case "Random":
		register(h, server, tool, spec, h.client.RandomMCP)

	// Read tools
	case "GetPage":
		register(h, server, tool, spec, h.client.GetPageMCP)
	case "GetSummary":
		register(h, server, tool, spec, h.client.GetSummaryMCP)
	case "GetSections":
		register(h, server, tool, spec, h.client.GetSectionsMCP)

	// Link tools
	case "GetPageLinks":
		register(h, server, tool, spec, h.client.GetPageLinksMCP)

	// Category tools
	case "CategoryMembers":
		register(h, server, tool, spec, h.client.CategoryMembersMCP)
	case "CategoryTree":
		register(h, server, tool, spec, h.client.CategoryTreeMCP)

	default:
		h.logger.Error("Unknown method, tool not registered", "method", spec.Method, "tool", spec.Name)
		return false
	}
	return true
}

// buildTool creates an mcp.Tool from a ToolSpec.
func (h *HandlerRegistry) buildTool(spec ToolSpec) *mcp.Tool {
	annotations := &mcp.ToolAnnotations{
		Title:          spec.Title,
		ReadOnlyHint:   spec.ReadOnly,
		IdempotentHint: spec.Idempotent,
	}
	if spec.Destructive {
		annotations.DestructiveHint = ptr(true)
	}
	if spec.OpenWorld {
		annotations.OpenWorldHint = ptr(true)
	}

	return &mcp.Tool{
		Name:        spec.Name,
		Description: spec.Description,
		Annotations: annotations,
	}
}

// register adds a tool to the MCP server. It wraps the client method with
// panic recovery, serialization, metrics, tracing, and logging.
func register[Args, Result any](
	h *HandlerRegistry,
	server *mcp.Server,
	tool *mcp.Tool,
	spec ToolSpec,
	method func(context.Context, Args) (Result, error),
) {
	mcp.AddTool(server, tool, handler(h, spec, method))
}

// handler builds the typed tool handler for method
func handler[Args, Result any](
	h *HandlerRegistry,
	spec ToolSpec,
	method func(context.Context, Args) (Result, error),
) mcp.ToolHandlerFor[Args, Result] {
	return func(ctx context.Context, req *mcp.CallToolRequest, args Args) (_ *mcp.CallToolResult, result Result, err error) {
		defer h.recoverPanic(spec.Name, &err)

		ctx, span := tracing.StartSpan(ctx, "mcp.tool."+spec.Name)
		defer span.End()

		tracing.AddToolAttributes(span, spec.Name, spec.Category)
		span.SetAttributes(attribute.Bool("mcp.tool.readonly", spec.ReadOnly))

		metrics.RequestInFlight.WithLabelValues(spec.Name).Inc()
		defer metrics.RequestInFlight.WithLabelValues(spec.Name).Dec()

		h.mu.Lock()
		defer h.mu.Unlock()

		start := time.Now()
		result, err = method(ctx, args)
		duration := time.Since(start).Seconds()

		span.SetAttributes(attribute.Float64("mcp.tool.duration_seconds", duration))

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			metrics.RecordRequest(spec.Name, duration, false)
			h.logger.Warn("Tool failed", "tool", spec.Name, "code", wiki.Code(err), "error", err)
			var zero Result
			return nil, zero, fmt.Errorf("%s failed: %w", spec.Name, err)
		}

		span.SetStatus(codes.Ok, "")
		metrics.RecordRequest(spec.Name, duration, true)
		h.logExecution(spec, args, result)
		return nil, result, nil
	}
}

// recoverPanic turns a panic in a tool handler into an error result.
func (h *HandlerRegistry) recoverPanic(toolName string, err *error) {
	if rec := recover(); rec != nil {
		metrics.PanicsRecovered.WithLabelValues(toolName).Inc()
		h.logger.Error("Panic recovered",
			"tool", toolName,
			"panic", rec,
			"stack", string(debug.Stack()))
		if err != nil {
			*err = fmt.Errorf("%s failed: internal error", toolName)
		}
	}
}

// logExecution logs tool execution details.
func (h *HandlerRegistry) logExecution(spec ToolSpec, args, result any) {
	attrs := []any{"tool", spec.Name, "category", spec.Category}

	switch a := args.(type) {
	case wiki.SearchArgs:
		attrs = append(attrs, "query", a.Query)
	case wiki.PrefixSearchArgs:
		attrs = append(attrs, "prefix", a.Prefix)
	case wiki.RandomArgs:
		attrs = append(attrs, "count", a.Count)
	case wiki.GetPageArgs:
		attrs = append(attrs, "title", a.Title, "page_id", a.PageID)
	case wiki.GetSummaryArgs:
		attrs = append(attrs, "title", a.Title)
	case wiki.GetSectionsArgs:
		attrs = append(attrs, "title", a.Title, "section", a.Section)
	case wiki.GetPageLinksArgs:
		attrs = append(attrs, "title", a.Title, "kind", a.Kind)
	case wiki.CategoryMembersArgs:
		attrs = append(attrs, "category", a.Category)
	case wiki.CategoryTreeArgs:
		attrs = append(attrs, "categories", a.Categories, "depth", a.Depth)
	}

	switch r := result.(type) {
	case wiki.SearchResult:
		attrs = append(attrs, "results_count", len(r.Titles))
	case wiki.PrefixSearchResult:
		attrs = append(attrs, "results_count", len(r.Titles))
	case wiki.RandomResult:
		attrs = append(attrs, "results_count", len(r.Titles))
	case wiki.GetPageResult:
		attrs = append(attrs, "found", r.Found, "resolved_title", r.Title, "truncated", r.Truncated)
	case wiki.GetSectionsResult:
		attrs = append(attrs, "sections", len(r.Sections))
	case wiki.GetPageLinksResult:
		attrs = append(attrs, "results_count", r.Count)
	case wiki.CategoryMembersResult:
		attrs = append(attrs, "pages", len(r.Pages), "subcategories", len(r.Subcategories))
	case wiki.CategoryTreeResult:
		attrs = append(attrs, "entries", len(r.Entries))
	}

	h.logger.Info("Tool executed", attrs...)
}
