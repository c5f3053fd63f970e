package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"binance-mcp/internal/mcp"
)

// maxRequestBytes bounds one JSON-RPC request body.
const maxRequestBytes = 1 << 20

// MCPHandler answers MCP JSON-RPC requests over the SSE transport. Each POST
// carries one request; the response is sent back as one SSE event.
type MCPHandler struct {
	server  *mcp.Server
	timeout time.Duration
	logger  *slog.Logger
}

// NewMCPHandler creates a handler that gives each request at most timeout.
func NewMCPHandler(server *mcp.Server, timeout time.Duration, logger *slog.Logger) *MCPHandler {
	return &MCPHandler{
		server:  server,
		timeout: timeout,
		logger:  logger.With("handler", "mcp_sse"),
	}
}

// ServeHTTP handles POST /mcp/sse.
func (h *MCPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		sendError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only POST requests are supported")
		return
	}

	start := time.Now()
	ctx, correlationID := mcp.EnsureCorrelationID(r.Context())

	req, err := mcp.ParseJSONRPCRequest(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		rpcErr := mcp.FormatMCPError(err)
		h.logger.Warn("mcp_parse_failed", "correlation_id", correlationID, "error", rpcErr.Message)
		if err := mcp.NewSSEWriter(w).SendError(nil, rpcErr.Code, rpcErr.Message, rpcErr.Data); err != nil {
			h.logger.Error("sse_write_failed", "correlation_id", correlationID, "error", err)
		}
		return
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	done := make(chan *mcp.JSONRPCResponse, 1)
	go func() {
		done <- h.server.Handle(ctx, req)
	}()

	var resp *mcp.JSONRPCResponse
	select {
	case resp = <-done:
	case <-ctx.Done():
		elapsed := time.Since(start).Milliseconds()
		h.logger.Warn("mcp_timeout",
			"correlation_id", correlationID,
			"method", req.Method,
			"elapsed_ms", elapsed,
		)
		if req.IsNotification() {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		resp = mcp.NewJSONRPCError(req.ID, mcp.TimeoutExceeded, "Request timeout", map[string]interface{}{
			"timeout_ms": h.timeout.Milliseconds(),
			"elapsed_ms": elapsed,
		})
	}

	if resp == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	if err := mcp.NewSSEWriter(w).SendResponse(resp); err != nil {
		h.logger.Error("sse_write_failed", "correlation_id", correlationID, "error", err)
	}
}
