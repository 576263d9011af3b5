// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes promptdeck tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/promptdeck/internal/apperr"
	"github.com/starford/promptdeck/internal/models"
	"github.com/starford/promptdeck/internal/promptservice"
)

const (
	guideURI     = "promptdeck://prompt-format"
	defaultLimit = 20
)

// Server wraps the MCP server with promptdeck tools.
type Server struct {
	mcp *server.MCPServer
	svc *promptservice.Service
}

// New creates a new MCP server with all promptdeck tools registered.
func New(svc *promptservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Promptdeck",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_prompts",
		mcp.WithDescription("Fuzzy search over prompt names, descriptions and folders. "+
			"An empty query lists prompts, most recently used first."),
		mcp.WithString("query", mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Max results (default 20, 0 for all)")),
	), s.searchPrompts)

	s.mcp.AddTool(mcp.NewTool("get_prompt",
		mcp.WithDescription("Read a prompt with its full content and checksum."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Prompt id")),
	), s.getPrompt)

	s.mcp.AddTool(mcp.NewTool("save_prompt",
		mcp.WithDescription("Create a prompt, or update it when id names an existing one. "+
			"On update, folder, description, icon and color keep their stored values unless given. "+
			"Read the format guide first via the get_prompt_guide tool or the "+guideURI+" resource."),
		mcp.WithString("id", mcp.Description("Id of the prompt to update; omit to create")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Display name")),
		mcp.WithString("folder", mcp.Description("Folder path, empty for the root")),
		mcp.WithString("description", mcp.Description("One-line description")),
		mcp.WithString("icon", mcp.Description("Icon name, empty to clear")),
		mcp.WithString("color", mcp.Description("Color, empty to clear")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Prompt body")),
		mcp.WithString("if_match", mcp.Description("Checksum returned by get_prompt")),
	), s.savePrompt)

	s.mcp.AddTool(mcp.NewTool("delete_prompt",
		mcp.WithDescription("Delete a prompt and its file."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Prompt id")),
	), s.deletePrompt)

	s.mcp.AddTool(mcp.NewTool("list_folders",
		mcp.WithDescription("List all folders in display order."),
	), s.listFolders)

	s.mcp.AddTool(mcp.NewTool("record_usage",
		mcp.WithDescription("Count one use of a prompt. Used prompts rank first in empty searches."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Prompt id")),
	), s.recordUsage)

	s.mcp.AddTool(mcp.NewTool("get_prompt_guide",
		mcp.WithDescription("Returns the promptdeck prompt format guide."),
	), s.getPromptGuide)

	s.mcp.AddResource(
		mcp.NewResource(guideURI, "Prompt Format Guide",
			mcp.WithResourceDescription("How prompts are stored and updated."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readGuideResource,
	)

	return s
}

// ServeStdio serves the MCP protocol on stdin/stdout until ctx is
// cancelled or stdin is closed.
func (s *Server) ServeStdio(ctx context.Context) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchPrompts(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	limit := req.GetInt("limit", defaultLimit)
	if limit < 0 {
		return mcp.NewToolResultError("limit must not be negative"), nil
	}
	results, err := s.svc.Search(query, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) getPrompt(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := s.svc.GetPrompt(id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(p)
}

func (s *Server) savePrompt(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	p := &models.Prompt{}
	if id := req.GetString("id", ""); id != "" {
		existing, err := s.svc.GetPrompt(id)
		switch {
		case err == nil:
			p = &existing.Prompt
		case errors.Is(err, apperr.ErrNotFound):
			p.ID = id
		default:
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	p.Name = name
	p.Content = content

	// Fields left out keep their stored value on update.
	args := req.GetArguments()
	if _, ok := args["folder"]; ok {
		p.Folder = req.GetString("folder", "")
	}
	if _, ok := args["description"]; ok {
		p.Description = req.GetString("description", "")
	}
	if _, ok := args["icon"]; ok {
		p.Icon = optional(req.GetString("icon", ""))
	}
	if _, ok := args["color"]; ok {
		p.Color = optional(req.GetString("color", ""))
	}

	meta, err := s.svc.SavePrompt(p, req.GetString("if_match", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(meta)
}

// optional maps an empty argument to nil so it clears the field.
func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func (s *Server) deletePrompt(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.DeletePrompt(id); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

func (s *Server) listFolders(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folders, err := s.svc.Folders()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(folders)
}

func (s *Server) recordUsage(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.RecordUsage(id); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("used: %s", id)), nil
}

func (s *Server) getPromptGuide(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(PromptFormatGuide), nil
}

func (s *Server) readGuideResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      guideURI,
			MIMEType: "text/markdown",
			Text:     PromptFormatGuide,
		},
	}, nil
}
