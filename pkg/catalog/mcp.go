package catalog

import (
	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"
)

// MCPTools exports the catalog as MCP tool definitions so a host can publish
// the same capability list on an MCP server.
func (c *Catalog) MCPTools() []mcp.Tool {
	tools := make([]mcp.Tool, 0, len(c.list))
	for _, d := range c.list {
		tools = append(tools, toMCPTool(d))
	}
	return tools
}

func toMCPTool(d Descriptor) mcp.Tool {
	props := make(map[string]any, len(d.Parameters.Properties))
	for name, p := range d.Parameters.Properties {
		props[name] = propertyMap(p)
	}
	return mcp.Tool{
		Name:        d.Name,
		Description: d.Description,
		InputSchema: mcp.ToolInputSchema{
			Type:       TypeObject,
			Properties: props,
			Required:   append([]string(nil), d.Parameters.Required...),
		},
	}
}

// propertyMap converts a Property into the generic map form MCP schemas use.
func propertyMap(p Property) map[string]any {
	data, err := json.Marshal(p)
	if err != nil {
		return map[string]any{"type": p.Type}
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]any{"type": p.Type}
	}
	return m
}

// FromMCPTool converts an MCP tool definition into a Descriptor. Properties
// are carried over through their JSON form; unknown schema keywords are
// dropped.
func FromMCPTool(t mcp.Tool) (Descriptor, error) {
	d := Descriptor{
		Name:        t.Name,
		Description: t.Description,
		Parameters: Schema{
			Type:       TypeObject,
			Properties: make(map[string]Property, len(t.InputSchema.Properties)),
			Required:   append([]string(nil), t.InputSchema.Required...),
		},
	}
	for name, raw := range t.InputSchema.Properties {
		data, err := json.Marshal(raw)
		if err != nil {
			return Descriptor{}, err
		}
		var p Property
		if err := json.Unmarshal(data, &p); err != nil {
			return Descriptor{}, err
		}
		d.Parameters.Properties[name] = p
	}
	return d, nil
}
