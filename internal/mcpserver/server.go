package mcpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/strata-cache/strata/internal/cache"
	"github.com/strata-cache/strata/internal/config"
	"github.com/strata-cache/strata/internal/observability"
	"github.com/strata-cache/strata/internal/routing"
)

const (
	serverName      = "strata"
	serverVersion   = "0.1.0"
	protocolVersion = "2024-11-05"

	maxLineBytes = 1024 * 1024
)

// Server is the MCP server exposing the cache tool surface over stdio.
type Server struct {
	router     *routing.Router
	predictive *cache.PredictiveCache
	semantic   *cache.SemanticCache
	vector     *cache.VectorCache
	global     *cache.GlobalCache
	diary      *cache.VectorDiary

	timeout time.Duration
	mu      sync.Mutex
}

// NewServer creates the MCP server (DI constructor).
func NewServer(
	cfg *config.ToolConfig,
	router *routing.Router,
	predictive *cache.PredictiveCache,
	semantic *cache.SemanticCache,
	vector *cache.VectorCache,
	global *cache.GlobalCache,
	diary *cache.VectorDiary,
) *Server {
	return &Server{
		router:     router,
		predictive: predictive,
		semantic:   semantic,
		vector:     vector,
		global:     global,
		diary:      diary,
		timeout:    time.Duration(cfg.TimeoutSeconds) * time.Second,
	}
}

// RunStdio runs the server over stdin/stdout until EOF or cancellation.
func (s *Server) RunStdio(ctx context.Context) error {
	return s.run(ctx, os.Stdin, os.Stdout)
}

func (s *Server) run(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, maxLineBytes), maxLineBytes)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		resp := s.dispatch(ctx, line)
		if resp == nil {
			continue // notification, no response needed
		}

		if err := s.writeResponse(w, resp); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}
	return scanner.Err()
}

func (s *Server) dispatch(ctx context.Context, line []byte) *Response {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return &Response{
			JSONRPC: "2.0",
			Error: &RPCError{
				Code:    CodeParseError,
				Message: "invalid JSON: " + err.Error(),
			},
		}
	}

	// Notifications have no ID; don't send a response.
	if req.ID == nil {
		s.handleNotification(ctx, req)
		return nil
	}

	var result json.RawMessage
	var rpcErr *RPCError

	switch req.Method {
	case "initialize":
		result, rpcErr = s.handleInitialize()
	case "ping":
		result, _ = json.Marshal(map[string]any{})
	case "tools/list":
		result, rpcErr = s.handleToolsList()
	case "tools/call":
		result, rpcErr = s.handleToolsCall(ctx, req.Params)
	default:
		rpcErr = &RPCError{
			Code:    CodeMethodNotFound,
			Message: fmt.Sprintf("unknown method: %s", req.Method),
		}
	}

	resp := &Response{JSONRPC: "2.0", ID: req.ID}
	if rpcErr != nil {
		resp.Error = rpcErr
	} else {
		resp.Result = result
	}
	return resp
}

func (s *Server) handleNotification(ctx context.Context, req Request) {
	logger := observability.FromContext(ctx)
	switch req.Method {
	case "notifications/initialized":
		logger.Info("mcp client initialized")
	default:
		logger.Debug("unhandled notification",
			observability.String("method", req.Method))
	}
}

func (s *Server) handleInitialize() (json.RawMessage, *RPCError) {
	result := InitializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities: ServerCapability{
			Tools: &ToolCapability{ListChanged: false},
		},
		ServerInfo: ServerInfo{
			Name:    serverName,
			Version: serverVersion,
		},
	}
	data, err := json.Marshal(result)
	if err != nil {
		return nil, &RPCError{Code: CodeInternalError, Message: err.Error()}
	}
	return data, nil
}

func (s *Server) handleToolsList() (json.RawMessage, *RPCError) {
	result := map[string]any{"tools": allTools()}
	data, err := json.Marshal(result)
	if err != nil {
		return nil, &RPCError{Code: CodeInternalError, Message: err.Error()}
	}
	return data, nil
}

// handleToolsCall runs a tool under the boundary timeout. A timed-out
// call still produces a structured payload with a timeout message rather
// than a raw transport error.
func (s *Server) handleToolsCall(ctx context.Context, params json.RawMessage) (json.RawMessage, *RPCError) {
	var call CallToolRequest
	if err := json.Unmarshal(params, &call); err != nil {
		return nil, &RPCError{Code: CodeInvalidParams, Message: "invalid tools/call params: " + err.Error()}
	}

	handler, ok := s.handlerFor(call.Name)
	if !ok {
		return nil, &RPCError{Code: CodeMethodNotFound, Message: "unknown tool: " + call.Name}
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	payloadCh := make(chan map[string]any, 1)
	go func() {
		payloadCh <- handler(callCtx, call.Arguments)
	}()

	var payload map[string]any
	select {
	case payload = <-payloadCh:
	case <-callCtx.Done():
		payload = map[string]any{
			"success": false,
			"status":  "error",
			"message": fmt.Sprintf("request timeout after %s in %s", s.timeout, call.Name),
		}
	}

	return marshalToolResult(payload)
}

func marshalToolResult(payload map[string]any) (json.RawMessage, *RPCError) {
	text, err := json.Marshal(payload)
	if err != nil {
		return nil, &RPCError{Code: CodeInternalError, Message: err.Error()}
	}

	isError := false
	if success, ok := payload["success"].(bool); ok {
		isError = !success
	}

	result := CallToolResult{
		Content: []ToolContent{{Type: "text", Text: string(text)}},
		IsError: isError,
	}
	data, err := json.Marshal(result)
	if err != nil {
		return nil, &RPCError{Code: CodeInternalError, Message: err.Error()}
	}
	return data, nil
}

func (s *Server) writeResponse(w io.Writer, resp *Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
