package tools

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"
)

// Registry manages MCP tools
type Registry struct {
	logger *logrus.Logger
	tools  map[string]Tool
}

// Tool represents an MCP tool
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]interface{}
	Execute(ctx context.Context, params map[string]interface{}) (interface{}, error)
}

// NewRegistry creates a tool registry. digest may be nil when mail delivery
// is not configured; send_digest then reports an error.
func NewRegistry(memories MemoryLister, digest DigestRunner, logger *logrus.Logger) *Registry {
	reg := &Registry{
		logger: logger,
		tools:  make(map[string]Tool),
	}

	reg.register(
		NewListMemoriesTool(memories, logger),
		NewSendDigestTool(digest, memories.Location(), logger),
	)

	return reg
}

func (r *Registry) register(toolList ...Tool) {
	for _, tool := range toolList {
		r.tools[tool.Name()] = tool
		r.logger.WithField("tool", tool.Name()).Debug("Registered tool")
	}

	r.logger.WithField("count", len(r.tools)).Info("Registered tools")
}

// GetTool returns a tool by name
func (r *Registry) GetTool(name string) (Tool, bool) {
	tool, exists := r.tools[name]
	return tool, exists
}

// ListTools returns all registered tools sorted by name
func (r *Registry) ListTools() []Tool {
	tools := make([]Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		tools = append(tools, tool)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name() < tools[j].Name() })
	return tools
}

// GetToolDefinitions returns tool definitions for MCP
func (r *Registry) GetToolDefinitions() []map[string]interface{} {
	tools := r.ListTools()
	definitions := make([]map[string]interface{}, 0, len(tools))
	for _, tool := range tools {
		definitions = append(definitions, map[string]interface{}{
			"name":        tool.Name(),
			"description": tool.Description(),
			"inputSchema": tool.InputSchema(),
		})
	}
	return definitions
}

// dateSchema is the input schema shared by the date-driven tools
func dateSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"date": map[string]interface{}{
				"type":        "string",
				"description": "Optional: Day to look up as YYYY-MM-DD (default: today). Photos from that month and day of every year match.",
			},
		},
	}
}
