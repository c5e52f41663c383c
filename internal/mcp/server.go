package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/brandon/onthisday/internal/tools"
)

const protocolVersion = "2024-11-05"

// Server represents the MCP server
type Server struct {
	logger  *logrus.Logger
	tools   *tools.Registry
	version string
}

// NewServer creates a new MCP server instance
func NewServer(registry *tools.Registry, version string, logger *logrus.Logger) *Server {
	return &Server{
		logger:  logger,
		tools:   registry,
		version: version,
	}
}

// Run serves newline-delimited JSON-RPC requests from in, writing responses
// to out, until in is exhausted or ctx is cancelled
func (s *Server) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	s.logger.Info("Starting MCP server with stdio transport")

	decoder := json.NewDecoder(in)
	encoder := json.NewEncoder(out)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			var req map[string]interface{}
			if err := decoder.Decode(&req); err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				s.logger.WithError(err).Error("Failed to decode request")
				// The stream position is unknown after a syntax error.
				return fmt.Errorf("decode request: %w", err)
			}

			resp := s.handleRequest(ctx, req)
			if resp == nil {
				continue
			}
			if err := encoder.Encode(resp); err != nil {
				s.logger.WithError(err).Error("Failed to encode response")
				continue
			}
		}
	}
}

// handleRequest processes an MCP request. Notifications get no response.
func (s *Server) handleRequest(ctx context.Context, req map[string]interface{}) map[string]interface{} {
	method, _ := req["method"].(string)
	id, hasID := req["id"]

	if !hasID && strings.HasPrefix(method, "notifications/") {
		s.logger.WithField("method", method).Debug("Notification received")
		return nil
	}

	switch method {
	case "initialize":
		return result(id, map[string]interface{}{
			"protocolVersion": protocolVersion,
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    "onthisday",
				"version": s.version,
			},
		})

	case "ping":
		return result(id, map[string]interface{}{})

	case "tools/list":
		return result(id, map[string]interface{}{
			"tools": s.tools.GetToolDefinitions(),
		})

	case "tools/call":
		params, _ := req["params"].(map[string]interface{})
		toolName, _ := params["name"].(string)
		arguments, _ := params["arguments"].(map[string]interface{})
		if arguments == nil {
			arguments = map[string]interface{}{}
		}

		tool, exists := s.tools.GetTool(toolName)
		if !exists {
			return rpcError(id, -32601, fmt.Sprintf("Tool not found: %s", toolName))
		}

		log := s.logger.WithField("tool", toolName)
		res, err := tool.Execute(ctx, arguments)
		if err != nil {
			log.WithError(err).Warn("Tool call failed")
			return rpcError(id, -32603, err.Error())
		}

		resultJSON, err := json.Marshal(res)
		if err != nil {
			resultJSON = []byte(fmt.Sprintf("%v", res))
		}
		log.Debug("Tool call finished")

		return result(id, map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": string(resultJSON),
				},
			},
		})
	}

	return rpcError(id, -32601, fmt.Sprintf("Method not found: %s", method))
}

func result(id interface{}, res map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"result":  res,
	}
}

func rpcError(id interface{}, code int, message string) map[string]interface{} {
	return map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
	}
}
