// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes read-only store tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/notestore/internal/api"
)

// GrammarURI names the search grammar resource.
const GrammarURI = "notestore://search-grammar"

// Server wraps the MCP server with the store tools.
type Server struct {
	mcp *server.MCPServer
	svc *api.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *api.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"notestore",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Search notes with the note search grammar "+
			"(e.g. `tag:errand notebook:Home milk*`). Read the grammar via the "+
			"get_search_grammar tool or the "+GrammarURI+" resource."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of notes (default 20)")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read one note: title, tags, ENML content, plain text and resource metadata."),
		mcp.WithString("local_id", mcp.Required(), mcp.Description("Local id of the note")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes, most recently updated first, optionally in one notebook."),
		mcp.WithString("notebook", mcp.Description("Optional notebook local id")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of notes (default 50)")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("list_notebooks",
		mcp.WithDescription("List all notebooks by name."),
	), s.listNotebooks)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List all tags with the number of notes carrying each."),
	), s.listTags)

	s.mcp.AddTool(mcp.NewTool("get_search_grammar",
		mcp.WithDescription("Returns the reference of the note search grammar."),
	), s.getSearchGrammar)

	s.mcp.AddResource(
		mcp.NewResource(GrammarURI, "Search Grammar",
			mcp.WithResourceDescription("Reference of the note search grammar accepted by search_notes."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readGrammarResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
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

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	notes, err := s.svc.Search(ctx, query, req.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(notes)
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("local_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.Note(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(note)
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notes, err := s.svc.Notes(ctx, api.NoteQuery{
		Notebook: req.GetString("notebook", ""),
		Limit:    req.GetInt("limit", 50),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(notes)
}

func (s *Server) listNotebooks(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nbs, err := s.svc.Notebooks(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(nbs)
}

func (s *Server) listTags(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags, err := s.svc.Tags(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(tags)
}

func (s *Server) getSearchGrammar(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(SearchGrammar), nil
}

func (s *Server) readGrammarResource(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      GrammarURI,
			MIMEType: "text/markdown",
			Text:     SearchGrammar,
		},
	}, nil
}
