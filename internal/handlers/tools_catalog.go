package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"binance-mcp/internal/mcp"
)

// ToolLister is the part of the tool invoker the catalog endpoint needs.
type ToolLister interface {
	Tools() []mcp.Tool
}

// ToolsHandler handles GET /tools, listing the tool definitions as a plain
// JSON document for clients that do not speak JSON-RPC.
type ToolsHandler struct {
	tools  ToolLister
	logger *slog.Logger
}

// NewToolsHandler creates a new tool catalog handler.
func NewToolsHandler(tools ToolLister, logger *slog.Logger) *ToolsHandler {
	return &ToolsHandler{
		tools:  tools,
		logger: logger.With("handler", "tools"),
	}
}

// ServeHTTP handles the tool catalog request.
func (h *ToolsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only GET requests are supported")
		return
	}

	tools := h.tools.Tools()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(mcp.ListToolsResult{Tools: tools}); err != nil {
		h.logger.Error("json_encode_failed", "error", err)
		return
	}

	h.logger.Debug("tools_listed", "count", len(tools))
}
