package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Recorder receives per-call metrics.
type Recorder interface {
	RecordToolCall(tool, status string, elapsed time.Duration)
	RecordTruncation(tool string)
	RecordError(component, errorType string)
}

type runFunc func(ctx context.Context, args map[string]interface{}) (string, bool, error)

type toolHandler struct {
	tool      Tool
	validator *SchemaValidator
	run       runFunc
}

// bind adapts a typed executor method to raw arguments.
func bind[P any, PT interface {
	*P
	Params
}](run func(context.Context, PT) (string, bool, error)) runFunc {
	return func(ctx context.Context, args map[string]interface{}) (string, bool, error) {
		p := PT(new(P))
		if err := DecodeParams(args, p); err != nil {
			return "", false, err
		}
		return run(ctx, p)
	}
}

// ToolInvoker validates tool arguments and dispatches to the executor.
type ToolInvoker struct {
	handlers map[string]toolHandler
	tools    []Tool
	recorder Recorder
	logger   *slog.Logger
}

// NewToolInvoker compiles the input schema of every tool.
func NewToolInvoker(executor *ToolExecutor, recorder Recorder, logger *slog.Logger) (*ToolInvoker, error) {
	runs := map[string]runFunc{
		ToolGetTicker:       bind[TickerParams](executor.GetTicker),
		ToolSearchSymbols:   bind[SearchParams](executor.SearchSymbols),
		ToolGetOrderBook:    bind[OrderBookParams](executor.GetOrderBook),
		ToolGetKlines:       bind[KlinesParams](executor.GetKlines),
		ToolGetRecentTrades: bind[TradesParams](executor.GetRecentTrades),
		ToolGetExchangeInfo: bind[ExchangeInfoParams](executor.GetExchangeInfo),
		ToolGetPrice:        bind[SymbolsParams](executor.GetPrice),
		ToolGetBestPrice:    bind[SymbolsParams](executor.GetBestPrice),
	}

	ti := &ToolInvoker{
		handlers: make(map[string]toolHandler, len(runs)),
		tools:    Tools(),
		recorder: recorder,
		logger:   logger.With("component", "tool_invoker"),
	}

	for _, tool := range ti.tools {
		run, ok := runs[tool.Name]
		if !ok {
			return nil, fmt.Errorf("no handler for tool %s", tool.Name)
		}
		validator, err := NewSchemaValidator(tool.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", tool.Name, err)
		}
		ti.handlers[tool.Name] = toolHandler{tool: tool, validator: validator, run: run}
	}

	return ti, nil
}

// Tools returns the tool definitions in listing order.
func (ti *ToolInvoker) Tools() []Tool {
	return ti.tools
}

// InvokeTool runs one tool call. Tool failures come back as a result with
// IsError set; only an unknown tool or an internal fault is returned as an
// error.
func (ti *ToolInvoker) InvokeTool(ctx context.Context, toolName string, args map[string]interface{}) (*CallToolResult, error) {
	h, ok := ti.handlers[toolName]
	if !ok {
		return nil, &RPCError{
			Code:    InvalidParams,
			Message: fmt.Sprintf("Unknown tool: %s", toolName),
			Data:    toolName,
		}
	}

	start := time.Now()
	symbols := symbolsArg(args)
	LogMCPRequest(ctx, ti.logger, toolName, symbols)

	text, truncated, err := ti.run(ctx, h, args)
	elapsed := time.Since(start)

	if err != nil {
		toolErr, ok := asToolError(err)
		if !ok {
			ti.recorder.RecordToolCall(toolName, "error", elapsed)
			ti.recorder.RecordError("mcp", "internal")
			LogMCPError(ctx, ti.logger, toolName, symbols, "internal", err.Error())
			return nil, FormatMCPError(err)
		}

		ti.recorder.RecordToolCall(toolName, "error", elapsed)
		ti.recorder.RecordError("tool", string(toolErr.Kind))
		LogMCPError(ctx, ti.logger, toolName, symbols, string(toolErr.Kind), toolErr.Message)
		return NewTextResult(toolErr.Render(requestedFormat(args)), true), nil
	}

	ti.recorder.RecordToolCall(toolName, "success", elapsed)
	if truncated {
		ti.recorder.RecordTruncation(toolName)
	}
	LogMCPSuccess(ctx, ti.logger, toolName, symbols, truncated, elapsed.Milliseconds())

	return NewTextResult(text, false), nil
}

func (ti *ToolInvoker) run(ctx context.Context, h toolHandler, args map[string]interface{}) (string, bool, error) {
	if args == nil {
		args = map[string]interface{}{}
	}
	if err := h.validator.Validate(args); err != nil {
		return "", false, err
	}
	return h.run(ctx, args)
}

func asToolError(err error) (*ToolError, bool) {
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return toolErr, true
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return InvalidParameter(ve), true
	}
	return nil, false
}

// requestedFormat reads response_format before validation so that argument
// errors are rendered the way the caller asked for.
func requestedFormat(args map[string]interface{}) string {
	if s, ok := args["response_format"].(string); ok && strings.EqualFold(strings.TrimSpace(s), FormatJSON) {
		return FormatJSON
	}
	return FormatMarkdown
}
