// Package mcp exposes the chat, live snapshot and order desk as Model
// Context Protocol tools.
package mcp

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nileshindira/stock-chat-app/catalog"
	"github.com/nileshindira/stock-chat-app/chat"
	"github.com/nileshindira/stock-chat-app/live"
	"github.com/nileshindira/stock-chat-app/orders"
)

// Deps are the components tools operate on. Desk is only used by the
// ticker profile tools.
type Deps struct {
	Profile catalog.Profile
	Chat    *chat.Service
	Store   *live.Store
	Desk    *orders.Desk
	Logger  *slog.Logger
}

// Tool pairs an MCP definition with its handler.
type Tool interface {
	Tool() mcp.Tool
	Handler(d Deps) server.ToolHandlerFunc
}

// GetAllTools returns the tools available for a profile.
func GetAllTools(p catalog.Profile) []Tool {
	tools := []Tool{
		&ChatTool{},
		&LiveSnapshotTool{},
	}
	if p == catalog.ProfileTicker {
		tools = append(tools, &PlaceOrderTool{}, &ListOrdersTool{})
	}
	return tools
}

// parseExcludedTools turns a comma-separated list of tool names into a set.
func parseExcludedTools(excludedTools string) map[string]bool {
	excludedSet := make(map[string]bool)
	for _, name := range strings.Split(excludedTools, ",") {
		if name = strings.TrimSpace(name); name != "" {
			excludedSet[name] = true
		}
	}
	return excludedSet
}

// NewServer builds an MCP server with every tool for d.Profile except the
// excluded ones.
func NewServer(version string, d Deps, excludedTools string) *server.MCPServer {
	srv := server.NewMCPServer("stock-chat", version, server.WithToolCapabilities(false))
	RegisterTools(srv, d, excludedTools)
	return srv
}

// RegisterTools adds tools to srv and returns the registered names.
func RegisterTools(srv *server.MCPServer, d Deps, excludedTools string) []string {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	excludedSet := parseExcludedTools(excludedTools)
	for name := range excludedSet {
		d.Logger.Info("Excluding tool from registration", "tool", name)
	}

	all := GetAllTools(d.Profile)
	var registered []string
	for _, t := range all {
		def := t.Tool()
		if excludedSet[def.Name] {
			continue
		}
		srv.AddTool(def, t.Handler(d))
		registered = append(registered, def.Name)
	}

	d.Logger.Info("Tool registration complete",
		"registered", len(registered),
		"excluded", len(all)-len(registered),
		"total_available", len(all))
	return registered
}

func marshalResponse(v any, tool string) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s: failed to encode response", tool)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
