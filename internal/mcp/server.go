package mcp

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
)

// ServerName identifies the server in the initialize handshake.
const ServerName = "binance-mcp"

const instructions = "Read-only access to Binance public market data. " +
	"Use binance_search_symbols to discover valid trading pairs before querying them."

// Server answers MCP JSON-RPC requests. It is transport independent: stdio
// and the HTTP handler both feed it parsed requests.
type Server struct {
	invoker *ToolInvoker
	version string
	logger  *slog.Logger
}

// NewServer creates a server around invoker.
func NewServer(invoker *ToolInvoker, version string, logger *slog.Logger) *Server {
	return &Server{
		invoker: invoker,
		version: version,
		logger:  logger.With("component", "mcp_server"),
	}
}

// HandleMessage parses and answers one raw message. It returns nil when no
// response must be sent.
func (s *Server) HandleMessage(ctx context.Context, data []byte) *JSONRPCResponse {
	req, err := ParseJSONRPCRequest(bytes.NewReader(data))
	if err != nil {
		rpcErr := FormatMCPError(err)
		LogMCPError(ctx, s.logger, "", "", "protocol", rpcErr.Message)
		return NewJSONRPCError(nil, rpcErr.Code, rpcErr.Message, rpcErr.Data)
	}
	return s.Handle(ctx, req)
}

// Handle answers one parsed request. It returns nil for notifications.
func (s *Server) Handle(ctx context.Context, req *JSONRPCRequest) *JSONRPCResponse {
	if strings.HasPrefix(req.Method, notificationsPrefix) {
		s.logger.DebugContext(ctx, "mcp_notification", "method", req.Method)
		return nil
	}

	resp := s.dispatch(ctx, req)
	if req.IsNotification() {
		return nil
	}
	return resp
}

func (s *Server) dispatch(ctx context.Context, req *JSONRPCRequest) *JSONRPCResponse {
	switch req.Method {
	case MethodInitialize:
		return NewJSONRPCResult(req.ID, s.initialize(ParseInitializeParams(req.Params)))

	case MethodPing:
		return NewJSONRPCResult(req.ID, struct{}{})

	case MethodToolsList, MethodListTools:
		return NewJSONRPCResult(req.ID, ListToolsResult{Tools: s.invoker.Tools()})

	case MethodToolsCall, MethodCallTool:
		params, err := ParseCallToolParams(req.Params)
		if err != nil {
			return NewJSONRPCErrorFrom(req.ID, err)
		}

		result, err := s.invoker.InvokeTool(ctx, params.Name, params.Arguments)
		if err != nil {
			rpcErr := FormatMCPError(err)
			LogMCPError(ctx, s.logger, params.Name, "", "protocol", rpcErr.Message)
			return NewJSONRPCError(req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		}
		return NewJSONRPCResult(req.ID, result)

	default:
		return NewJSONRPCError(req.ID, MethodNotFound, "Method not found", req.Method)
	}
}

func (s *Server) initialize(p InitializeParams) InitializeResult {
	version := ProtocolVersion
	if supportedProtocolVersions[p.ProtocolVersion] {
		version = p.ProtocolVersion
	}

	if p.ClientInfo != nil {
		s.logger.Info("mcp_initialize",
			"client_name", p.ClientInfo.Name,
			"client_version", p.ClientInfo.Version,
			"protocol_version", version,
		)
	}

	return InitializeResult{
		ProtocolVersion: version,
		Capabilities:    ServerCapabilities{Tools: &ToolsCapability{ListChanged: false}},
		ServerInfo:      Implementation{Name: ServerName, Version: s.version},
		Instructions:    instructions,
	}
}
