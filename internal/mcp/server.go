// Package mcp serves tools over the Model Context Protocol: newline-delimited
// JSON-RPC 2.0 on stdio.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"rindex/internal/logging"
)

const ProtocolVersion = "2024-11-05"

// ToolHandler is the function signature for handling tool calls
type ToolHandler func(ctx context.Context, args map[string]any) (*ToolsCallResult, error)

// Server handles MCP JSON-RPC communication over stdio
type Server struct {
	name     string
	version  string
	tools    []Tool
	handlers map[string]ToolHandler
	logger   *slog.Logger
}

// NewServer creates a new MCP server. A nil logger discards output.
func NewServer(name, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Server{
		name:     name,
		version:  version,
		tools:    []Tool{},
		handlers: make(map[string]ToolHandler),
		logger:   logger,
	}
}

// Tools returns the registered tools in registration order
func (s *Server) Tools() []Tool {
	return s.tools
}

// RegisterTool adds a tool to the server
func (s *Server) RegisterTool(tool Tool, handler ToolHandler) {
	s.tools = append(s.tools, tool)
	s.handlers[tool.Name] = handler
}

// Run reads requests from in and writes responses to out until in is
// exhausted or ctx is cancelled. Requests are handled one at a time.
func (s *Server) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		line, err := reader.ReadBytes('\n')
		if len(line) > 0 && string(line) != "\n" {
			if response := s.handleMessage(ctx, line); response != nil {
				if werr := writeResponse(out, response); werr != nil {
					s.logger.Error("error writing response", "error", werr)
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}
	}
}

func (s *Server) handleMessage(ctx context.Context, data []byte) *Response {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		s.logger.Error("parse error", "error", err)
		resp := errorResponse(nil, ParseError, "Parse error")
		resp.Error.Data = err.Error()
		return resp
	}

	s.logger.Debug("received request", "method", req.Method, "id", req.ID)

	switch req.Method {
	case "initialize":
		return resultResponse(req.ID, InitializeResult{
			ProtocolVersion: ProtocolVersion,
			Capabilities:    ServerCapabilities{Tools: &ToolsCapability{}},
			ServerInfo:      ServerInfo{Name: s.name, Version: s.version},
		})
	case "initialized", "notifications/initialized":
		// Notification, no response needed
		return nil
	case "tools/list":
		return resultResponse(req.ID, ToolsListResult{Tools: s.tools})
	case "tools/call":
		return s.handleToolsCall(ctx, &req)
	case "ping":
		return resultResponse(req.ID, map[string]any{})
	default:
		return errorResponse(req.ID, MethodNotFound, fmt.Sprintf("Method not found: %s", req.Method))
	}
}

func (s *Server) handleToolsCall(ctx context.Context, req *Request) *Response {
	// Params arrive as a generic map; round-trip them into the typed form.
	raw, err := json.Marshal(req.Params)
	if err != nil {
		return errorResponse(req.ID, InvalidParams, "Invalid params")
	}
	var params ToolsCallParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return errorResponse(req.ID, InvalidParams, "Invalid params")
	}

	handler, ok := s.handlers[params.Name]
	if !ok {
		return errorResponse(req.ID, MethodNotFound, fmt.Sprintf("Tool not found: %s", params.Name))
	}

	result, err := handler(ctx, params.Arguments)
	if err != nil {
		s.logger.Debug("tool failed", "tool", params.Name, "error", err)
		return resultResponse(req.ID, &ToolsCallResult{
			Content: []Content{{Type: "text", Text: err.Error()}},
			IsError: true,
		})
	}
	return resultResponse(req.ID, result)
}

func resultResponse(id, result any) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Result: result}
}

func errorResponse(id any, code int, message string) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Error: &Error{Code: code, Message: message}}
}

func writeResponse(out io.Writer, resp *Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s\n", data)
	return err
}
