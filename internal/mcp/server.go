// ABOUTME: JSON-RPC 2.0 dispatcher for the MCP initialize, tools/list and tools/call methods
// ABOUTME: Stateless; each request body is decoded, routed and answered independently

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/j4jefferson/miro-mcp-server/internal/auth"
	"github.com/j4jefferson/miro-mcp-server/internal/metrics"
	"github.com/j4jefferson/miro-mcp-server/internal/tools"
)

// ProtocolVersion is the MCP revision advertised by initialize.
const ProtocolVersion = "2024-11-05"

// Server identity reported by initialize.
const (
	ServerName    = "miro-mcp-server"
	ServerVersion = "1.0.0"
)

// MaxRequestBodySize is the maximum allowed size for request bodies (1MB).
const MaxRequestBodySize = 1 << 20

// JSON-RPC 2.0 types

// JSONRPCRequest represents a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response. Exactly one of Result and
// Error is set.
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// JSONRPCError represents a JSON-RPC 2.0 error object.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Standard JSON-RPC error codes
const (
	JSONRPCMethodNotFound = -32601
	JSONRPCInternalError  = -32603
)

var nullID = json.RawMessage("null")

// MCP-specific types

// InitializeResult is the result for initialize.
type InitializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	Capabilities    Capabilities `json:"capabilities"`
	ServerInfo      ServerInfo   `json:"serverInfo"`
}

// Capabilities lists the protocol features the server declares.
type Capabilities struct {
	Tools     struct{} `json:"tools"`
	Resources struct{} `json:"resources"`
}

// ServerInfo identifies the server.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// MCPListToolsResult is the result for tools/list.
type MCPListToolsResult struct {
	Tools []tools.Definition `json:"tools"`
}

// MCPCallToolParams are the params for tools/call.
type MCPCallToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Invoker executes tools. *tools.Engine satisfies it.
type Invoker interface {
	Definitions() []tools.Definition
	Invoke(ctx context.Context, name string, args map[string]any) (*tools.CallResult, error)
}

// Config holds configuration for the MCP server.
type Config struct {
	Tools   Invoker
	Logger  *slog.Logger
	Metrics metrics.Recorder
}

// Server dispatches JSON-RPC requests to the tool engine.
type Server struct {
	tools   Invoker
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewServer creates a new MCP server with the given configuration.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Tools == nil {
		return nil, errors.New("tool invoker is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.Noop{}
	}

	return &Server{
		tools:   cfg.Tools,
		logger:  logger,
		metrics: recorder,
	}, nil
}

// Handle decodes body as a JSON-RPC request and produces its response. A body
// that cannot be decoded yields an internal error with a null id.
func (s *Server) Handle(ctx context.Context, body []byte) *JSONRPCResponse {
	var req JSONRPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return s.decodeFailure(err)
	}
	return s.Dispatch(ctx, req)
}

func (s *Server) decodeFailure(err error) *JSONRPCResponse {
	s.metrics.ObserveRPC("invalid", err)
	s.logger.Warn("undecodable MCP request", "error", err)
	return errorResponse(nullID, JSONRPCInternalError, "Internal error: "+err.Error())
}

// Dispatch routes a decoded request by method. The response id always mirrors
// the request id.
func (s *Server) Dispatch(ctx context.Context, req JSONRPCRequest) *JSONRPCResponse {
	id := req.ID
	if len(id) == 0 {
		id = nullID
	}

	s.logger.Debug("MCP request", "method", req.Method)

	var resp *JSONRPCResponse
	switch req.Method {
	case "initialize":
		resp = resultResponse(id, s.initializeResult())
	case "tools/list":
		resp = resultResponse(id, MCPListToolsResult{Tools: s.tools.Definitions()})
	case "tools/call":
		resp = s.handleToolsCall(ctx, id, req.Params)
	default:
		resp = errorResponse(id, JSONRPCMethodNotFound, "Method not found: "+req.Method)
	}

	var rpcErr error
	if resp.Error != nil {
		rpcErr = errors.New(resp.Error.Message)
	}
	s.metrics.ObserveRPC(methodLabel(req.Method), rpcErr)
	return resp
}

// methodLabel keeps arbitrary client method names out of metric labels.
func methodLabel(method string) string {
	switch method {
	case "initialize", "tools/list", "tools/call":
		return method
	default:
		return "unknown"
	}
}

func (s *Server) initializeResult() InitializeResult {
	return InitializeResult{
		ProtocolVersion: ProtocolVersion,
		ServerInfo: ServerInfo{
			Name:    ServerName,
			Version: ServerVersion,
		},
	}
}

// handleToolsCall handles tools/call requests.
func (s *Server) handleToolsCall(ctx context.Context, id, rawParams json.RawMessage) *JSONRPCResponse {
	var params MCPCallToolParams
	if len(rawParams) > 0 && string(rawParams) != "null" {
		if err := json.Unmarshal(rawParams, &params); err != nil {
			return errorResponse(id, JSONRPCInternalError, fmt.Sprintf("invalid params: %v", err))
		}
	}

	// Generate request ID for correlation
	requestID := uuid.New().String()
	logger := s.logger.With("tool_name", params.Name, "request_id", requestID)
	if subject := auth.SubjectFromContext(ctx); subject != "" {
		logger = logger.With("subject", subject)
	}

	logger.Debug("tools/call")

	result, err := s.tools.Invoke(ctx, params.Name, params.Arguments)
	if err != nil {
		logger.Warn("tool execution failed", "error", err)
		return errorResponse(id, JSONRPCInternalError, err.Error())
	}

	logger.Debug("tools/call complete")
	return resultResponse(id, result)
}

// ServeHTTP answers POST requests carrying one JSON-RPC message.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize+1))
	if err != nil {
		s.sendJSONRPCResponse(w, http.StatusInternalServerError,
			errorResponse(nullID, JSONRPCInternalError, "Internal error: failed to read request body"))
		return
	}
	if int64(len(body)) > MaxRequestBodySize {
		s.sendJSONRPCResponse(w, http.StatusInternalServerError,
			errorResponse(nullID, JSONRPCInternalError, "Internal error: request body too large"))
		return
	}

	var req JSONRPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.sendJSONRPCResponse(w, http.StatusInternalServerError, s.decodeFailure(err))
		return
	}
	s.sendJSONRPCResponse(w, http.StatusOK, s.Dispatch(r.Context(), req))
}

func resultResponse(id json.RawMessage, result any) *JSONRPCResponse {
	return &JSONRPCResponse{JSONRPC: "2.0", ID: id, Result: result}
}

func errorResponse(id json.RawMessage, code int, message string) *JSONRPCResponse {
	return &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &JSONRPCError{
			Code:    code,
			Message: message,
		},
	}
}

// sendJSONRPCResponse writes resp as the HTTP body.
func (s *Server) sendJSONRPCResponse(w http.ResponseWriter, status int, resp *JSONRPCResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("failed to encode JSON-RPC response", "error", err)
	}
}
