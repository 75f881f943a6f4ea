package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/notestore/internal/api"
	"github.com/starford/notestore/internal/testutil"
)

func testServer(t *testing.T) (*Server, *testutil.Fixture) {
	t.Helper()
	db := testutil.TestDB(t)
	fx := testutil.Seed(t, db)
	return New(api.NewService(db), "test"), fx
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no in-process call helper, so handlers are invoked directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_notes":
		result, err = srv.searchNotes(ctx, req)
	case "read_note":
		result, err = srv.readNote(ctx, req)
	case "list_notes":
		result, err = srv.listNotes(ctx, req)
	case "list_notebooks":
		result, err = srv.listNotebooks(ctx, req)
	case "list_tags":
		result, err = srv.listTags(ctx, req)
	case "get_search_grammar":
		result, err = srv.getSearchGrammar(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func decode(t *testing.T, r *mcp.CallToolResult, v any) {
	t.Helper()
	if r.IsError {
		t.Fatalf("unexpected error result: %s", resultText(r))
	}
	if err := json.Unmarshal([]byte(resultText(r)), v); err != nil {
		t.Fatalf("decode %q: %v", resultText(r), err)
	}
}

func TestSearchNotes(t *testing.T) {
	srv, fx := testServer(t)

	var notes []api.NoteListItem
	decode(t, callTool(t, srv, "search_notes", map[string]any{"query": "tag:errand"}), &notes)
	if len(notes) != 1 || notes[0].LocalID != fx.Tagged.LocalID {
		t.Fatalf("tag:errand = %+v, want only %s", notes, fx.Tagged.LocalID)
	}

	decode(t, callTool(t, srv, "search_notes", map[string]any{"query": "roadmap"}), &notes)
	if len(notes) != 1 || notes[0].LocalID != fx.Plain.LocalID {
		t.Fatalf("roadmap = %+v, want only %s", notes, fx.Plain.LocalID)
	}
}

func TestSearchNotes_Errors(t *testing.T) {
	srv, _ := testServer(t)

	if r := callTool(t, srv, "search_notes", map[string]any{}); !r.IsError {
		t.Error("expected error for missing query")
	}
	if r := callTool(t, srv, "search_notes", map[string]any{"query": "notebook:a notebook:b"}); !r.IsError {
		t.Error("expected error for two notebook filters")
	}
}

func TestReadNote(t *testing.T) {
	srv, fx := testServer(t)

	var note api.NoteDetail
	decode(t, callTool(t, srv, "read_note", map[string]any{"local_id": fx.Tagged.LocalID}), &note)
	if note.Title != "Buy milk" {
		t.Errorf("title = %q", note.Title)
	}
	if !strings.Contains(note.PlainText, "Two litres of milk") {
		t.Errorf("plain text = %q", note.PlainText)
	}

	r := callTool(t, srv, "read_note", map[string]any{"local_id": "missing"})
	if !r.IsError {
		t.Error("expected error for unknown note")
	}
}

func TestListNotes(t *testing.T) {
	srv, fx := testServer(t)

	var notes []api.NoteListItem
	decode(t, callTool(t, srv, "list_notes", map[string]any{"notebook": fx.Notebook.LocalID}), &notes)
	if len(notes) != 2 {
		t.Fatalf("notes = %d, want 2", len(notes))
	}

	decode(t, callTool(t, srv, "list_notes", map[string]any{"limit": 1}), &notes)
	if len(notes) != 1 {
		t.Fatalf("limited notes = %d, want 1", len(notes))
	}
}

func TestListNotebooksAndTags(t *testing.T) {
	srv, _ := testServer(t)

	var nbs []api.NotebookItem
	decode(t, callTool(t, srv, "list_notebooks", nil), &nbs)
	if len(nbs) != 1 || nbs[0].Name != "Inbox" || !nbs[0].Default {
		t.Errorf("notebooks = %+v", nbs)
	}

	var tags []api.TagItem
	decode(t, callTool(t, srv, "list_tags", nil), &tags)
	if len(tags) != 1 || tags[0].Name != "errand" || tags[0].NoteCount != 1 {
		t.Errorf("tags = %+v", tags)
	}
}

func TestSearchGrammar(t *testing.T) {
	srv, _ := testServer(t)
	text := resultText(callTool(t, srv, "get_search_grammar", nil))
	for _, want := range []string{"notebook:", "tag:", "todo:", "day-1"} {
		if !strings.Contains(text, want) {
			t.Errorf("grammar missing %q", want)
		}
	}

	contents, err := srv.readGrammarResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(contents) != 1 {
		t.Fatalf("resource = %v, %v", contents, err)
	}
}
