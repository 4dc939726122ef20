// Package mcpserver exposes channel analysis and creative generation as MCP tools over stdio.
package mcpserver

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

var analyzeToolDef = mcp.NewTool("channel_analyze",
	mcp.WithDescription("Analyze a public Telegram channel: title, description and up to 15 recent posts with views and reactions."),
	mcp.WithString("link",
		mcp.Required(),
		mcp.Description("Channel link (t.me/name), @mention or bare username"),
	),
)

var generateToolDef = mcp.NewTool("creative_generate",
	mcp.WithDescription("Analyze a channel and write an advertising creative in its style, optionally with a picture."),
	mcp.WithString("link",
		mcp.Required(),
		mcp.Description("Channel link (t.me/name), @mention or bare username"),
	),
	mcp.WithBoolean("with_image",
		mcp.Description("Also produce a picture"),
	),
	mcp.WithBoolean("reuse_post_image",
		mcp.Description("Use the most engaging post picture instead of generating one"),
	),
)

var toolRegistry = map[string]toolEntry{
	"channel_analyze": {
		def:     analyzeToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAnalyze },
	},
	"creative_generate": {
		def:     generateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGenerate },
	},
}

// NewServer creates an MCP server with the tools registered. creative_generate
// is left out when h has no studio.
func NewServer(h *Handlers, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"tgcreative",
		version,
		server.WithToolCapabilities(true),
	)
	for name, entry := range toolRegistry {
		if name == "creative_generate" && h.studio == nil {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}
	return s
}

// Run serves the tools over stdio until stdin closes.
func Run(h *Handlers, version string) error {
	return server.ServeStdio(NewServer(h, version))
}
