package mcp

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

type correlationKey struct{}

// WithCorrelationID stores id in ctx.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the id stored in ctx, or "" when there is none.
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// EnsureCorrelationID returns ctx with a correlation id, generating one
// when ctx does not carry one yet.
func EnsureCorrelationID(ctx context.Context) (context.Context, string) {
	if id := CorrelationID(ctx); id != "" {
		return ctx, id
	}
	id := uuid.NewString()
	return WithCorrelationID(ctx, id), id
}

// symbolsArg summarises the symbol arguments of a tool call for logs.
func symbolsArg(args map[string]interface{}) string {
	if s, ok := args["symbol"].(string); ok {
		return s
	}
	list, ok := args["symbols"].([]interface{})
	if !ok {
		return ""
	}
	names := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			names = append(names, s)
		}
	}
	return strings.Join(names, ",")
}

// LogMCPRequest logs an incoming tool call.
func LogMCPRequest(ctx context.Context, logger *slog.Logger, tool string, symbols string) {
	logger.InfoContext(ctx, "mcp_request",
		"component", "mcp",
		"tool_name", tool,
		"symbols", symbols,
		"correlation_id", CorrelationID(ctx),
	)
}

// LogMCPSuccess logs a successful tool call.
func LogMCPSuccess(ctx context.Context, logger *slog.Logger, tool string, symbols string, truncated bool, latencyMS int64) {
	logger.InfoContext(ctx, "mcp_success",
		"component", "mcp",
		"tool_name", tool,
		"symbols", symbols,
		"correlation_id", CorrelationID(ctx),
		"truncated", truncated,
		"latency_ms", latencyMS,
	)
}

// LogMCPError logs a failed tool call or protocol error.
func LogMCPError(ctx context.Context, logger *slog.Logger, tool string, symbols string, errorKind string, errorMsg string) {
	logger.WarnContext(ctx, "mcp_error",
		"component", "mcp",
		"tool_name", tool,
		"symbols", symbols,
		"correlation_id", CorrelationID(ctx),
		"error_kind", errorKind,
		"error_message", errorMsg,
	)
}
