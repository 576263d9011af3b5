package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/promptdeck/internal/models"
	"github.com/starford/promptdeck/internal/promptservice"
	"github.com/starford/promptdeck/internal/testutil"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	svc, _ := testutil.Service(t)
	return New(svc, "test")
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct call helper, so the handlers are invoked as is.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_prompts":
		result, err = srv.searchPrompts(ctx, req)
	case "get_prompt":
		result, err = srv.getPrompt(ctx, req)
	case "save_prompt":
		result, err = srv.savePrompt(ctx, req)
	case "delete_prompt":
		result, err = srv.deletePrompt(ctx, req)
	case "list_folders":
		result, err = srv.listFolders(ctx, req)
	case "record_usage":
		result, err = srv.recordUsage(ctx, req)
	case "get_prompt_guide":
		result, err = srv.getPromptGuide(ctx, req)
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

func decodeResult[T any](t *testing.T, r *mcp.CallToolResult) T {
	t.Helper()
	var v T
	if r.IsError {
		t.Fatalf("tool error: %s", resultText(r))
	}
	if err := json.Unmarshal([]byte(resultText(r)), &v); err != nil {
		t.Fatalf("decode %q: %v", resultText(r), err)
	}
	return v
}

func TestSaveAndGetPrompt(t *testing.T) {
	srv := testServer(t)

	meta := decodeResult[models.PromptMetadata](t, callTool(t, srv, "save_prompt", map[string]any{
		"name":    "Summarize",
		"folder":  "Writing",
		"content": "Summarize this.",
	}))
	if meta.ID == "" || meta.Folder != "Writing" {
		t.Fatalf("meta = %+v", meta)
	}

	got := decodeResult[promptservice.PromptDetail](t, callTool(t, srv, "get_prompt", map[string]any{"id": meta.ID}))
	if got.Content != "Summarize this." || got.Checksum == "" {
		t.Errorf("got %+v", got)
	}

	// A stale checksum is rejected.
	r := callTool(t, srv, "save_prompt", map[string]any{
		"id": meta.ID, "name": "Summarize", "content": "v2", "if_match": "stale",
	})
	if !r.IsError {
		t.Error("expected conflict for stale checksum")
	}

	r = callTool(t, srv, "save_prompt", map[string]any{
		"id": meta.ID, "name": "Summarize", "content": "v2", "if_match": got.Checksum,
	})
	if r.IsError {
		t.Errorf("update with current checksum failed: %s", resultText(r))
	}
}

func TestSavePromptKeepsOmittedFields(t *testing.T) {
	svc, _ := testutil.Service(t)
	srv := New(svc, "test")

	icon := "pen"
	created, err := svc.CreatePrompt(&models.Prompt{
		PromptMetadata: models.PromptMetadata{
			Name:        "Summarize",
			Folder:      "Writing",
			Description: "Short summary",
			Icon:        &icon,
		},
		Content: "v1",
	})
	if err != nil {
		t.Fatalf("CreatePrompt: %v", err)
	}

	meta := decodeResult[models.PromptMetadata](t, callTool(t, srv, "save_prompt", map[string]any{
		"id": created.ID, "name": "Summarize", "content": "v2",
	}))
	if meta.Folder != "Writing" || meta.Description != "Short summary" {
		t.Errorf("meta = %+v, want folder and description kept", meta)
	}
	if meta.Icon == nil || *meta.Icon != "pen" {
		t.Errorf("icon = %v, want pen", meta.Icon)
	}
	if meta.Filename != created.Filename {
		t.Errorf("filename = %q, want %q", meta.Filename, created.Filename)
	}

	got, err := svc.GetPrompt(created.ID)
	if err != nil {
		t.Fatalf("GetPrompt: %v", err)
	}
	if got.Content != "v2" || got.Folder != "Writing" {
		t.Errorf("stored = %+v", got)
	}

	// An explicit empty value clears the field.
	meta = decodeResult[models.PromptMetadata](t, callTool(t, srv, "save_prompt", map[string]any{
		"id": created.ID, "name": "Summarize", "content": "v2", "icon": "", "folder": "",
	}))
	if meta.Icon != nil || meta.Folder != "" {
		t.Errorf("meta = %+v, want icon cleared and folder root", meta)
	}
}

func TestSavePromptMissingName(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "save_prompt", map[string]any{"content": "x"})
	if !r.IsError {
		t.Error("expected error for missing name")
	}
}

func TestGetPromptMissing(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_prompt", map[string]any{"id": "nope"})
	if !r.IsError {
		t.Error("expected error for missing prompt")
	}
}

func TestSearchAndUsage(t *testing.T) {
	srv := testServer(t)
	a := decodeResult[models.PromptMetadata](t, callTool(t, srv, "save_prompt", map[string]any{"name": "Alpha", "content": "a"}))
	b := decodeResult[models.PromptMetadata](t, callTool(t, srv, "save_prompt", map[string]any{"name": "Beta", "content": "b"}))

	r := callTool(t, srv, "record_usage", map[string]any{"id": b.ID})
	if r.IsError {
		t.Fatalf("record_usage: %s", resultText(r))
	}

	results := decodeResult[[]models.PromptMetadata](t, callTool(t, srv, "search_prompts", map[string]any{}))
	if len(results) != 2 || results[0].ID != b.ID {
		t.Errorf("recency order = %+v", results)
	}

	results = decodeResult[[]models.PromptMetadata](t, callTool(t, srv, "search_prompts", map[string]any{"query": "alp"}))
	if len(results) == 0 || results[0].ID != a.ID {
		t.Errorf("search alp = %+v", results)
	}
}

func TestDeleteAndListFolders(t *testing.T) {
	srv := testServer(t)
	meta := decodeResult[models.PromptMetadata](t, callTool(t, srv, "save_prompt", map[string]any{
		"name": "Note", "folder": "Work", "content": "x",
	}))

	folders := decodeResult[[]string](t, callTool(t, srv, "list_folders", map[string]any{}))
	if len(folders) != 1 || folders[0] != "Work" {
		t.Errorf("folders = %v", folders)
	}

	r := callTool(t, srv, "delete_prompt", map[string]any{"id": meta.ID})
	if text := resultText(r); text != "deleted: "+meta.ID {
		t.Errorf("delete result = %q", text)
	}
	r = callTool(t, srv, "delete_prompt", map[string]any{"id": meta.ID})
	if !r.IsError {
		t.Error("expected error deleting twice")
	}
}

func TestPromptGuide(t *testing.T) {
	srv := testServer(t)
	if text := resultText(callTool(t, srv, "get_prompt_guide", nil)); text != PromptFormatGuide {
		t.Error("guide text mismatch")
	}
}
