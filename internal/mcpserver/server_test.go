package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/lagu/internal/study"
	"github.com/starford/lagu/internal/testutil"
	"github.com/starford/lagu/internal/vault"
)

var notes = map[string]string{
	"physics/Vectors.md":    "Arrows with length.\n",
	"physics/Forces.md":     "Forces are [[Vectors]].\n",
	"physics/Momentum.md":   "Uses [[Forces]] and [[physics/Vectors|vectors]].\n",
	"journal/2025-01-01.md": "Started [[Momentum]].\n",
}

func testServer(t *testing.T) (*Server, *testutil.Env) {
	t.Helper()
	env := testutil.NewEnv(t, notes, study.Config{})
	return New(env.Service, vault.New(env.Store), "test"), env
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no in-process "call tool" helper, so handlers are called directly.
	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"start_session":     srv.startSession,
		"open_note":         srv.openNote,
		"complete_note":     srv.completeNote,
		"session_status":    srv.sessionStatus,
		"next_notes":        srv.nextNotes,
		"end_session":       srv.endSession,
		"session_history":   srv.sessionHistory,
		"read_note":         srv.readNote,
		"get_backlinks":     srv.getBacklinks,
		"get_note_contract": srv.getNoteContract,
	}
	h, ok := handlers[name]
	if !ok {
		t.Fatalf("unknown tool: %s", name)
	}
	result, err := h(ctx, req)
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

func TestStudyFlow(t *testing.T) {
	srv, env := testServer(t)

	r := callTool(t, srv, "start_session", map[string]any{"folder": "physics"})
	if r.IsError {
		t.Fatalf("start_session: %s", resultText(r))
	}
	var started study.StartResult
	if err := json.Unmarshal([]byte(resultText(r)), &started); err != nil {
		t.Fatalf("decode start: %v", err)
	}
	if started.Notes != 3 || len(started.Roots) != 1 || started.Roots[0] != "Vectors" {
		t.Errorf("start = %+v", started)
	}

	if got := resultText(callTool(t, srv, "next_notes", nil)); got != "Vectors\tphysics/Vectors.md" {
		t.Errorf("next_notes = %q", got)
	}

	callTool(t, srv, "open_note", map[string]any{"note": "Vectors"})
	r = callTool(t, srv, "open_note", map[string]any{"note": "Forces"})
	if r.IsError {
		t.Fatalf("open_note: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), `"Forces"`) {
		t.Errorf("open_note = %s", resultText(r))
	}

	r = callTool(t, srv, "complete_note", map[string]any{"note": "Forces"})
	if !strings.Contains(resultText(r), `"Momentum"`) {
		t.Errorf("complete_note did not unlock Momentum: %s", resultText(r))
	}

	r = callTool(t, srv, "session_status", nil)
	if !strings.Contains(resultText(r), started.SessionID) {
		t.Errorf("session_status = %s", resultText(r))
	}

	r = callTool(t, srv, "session_history", map[string]any{"limit": 1})
	var events []map[string]any
	if err := json.Unmarshal([]byte(resultText(r)), &events); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(events) != 1 || events[0]["note"] != "Momentum" {
		t.Errorf("history = %v", events)
	}

	if got := resultText(callTool(t, srv, "end_session", nil)); got != "session ended" {
		t.Errorf("end_session = %q", got)
	}
	if got := resultText(callTool(t, srv, "session_status", nil)); got != "no active study session" {
		t.Errorf("session_status after end = %q", got)
	}
	if !strings.Contains(env.ReadFile(t, "physics/Momentum.md"), "next: true") {
		t.Error("Momentum header not written")
	}
}

func TestToolErrors(t *testing.T) {
	srv, _ := testServer(t)

	tests := []struct {
		name string
		tool string
		args map[string]any
	}{
		{"complete without session", "complete_note", map[string]any{"note": "Forces"}},
		{"next without session", "next_notes", nil},
		{"end without session", "end_session", nil},
		{"missing note argument", "open_note", map[string]any{}},
		{"empty scope", "start_session", map[string]any{"tag": "none"}},
		{"unknown note", "read_note", map[string]any{"note": "Nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if r := callTool(t, srv, tt.tool, tt.args); !r.IsError {
				t.Errorf("%s: expected error, got %q", tt.tool, resultText(r))
			}
		})
	}
}

func TestReadNote(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_note", map[string]any{"note": "Forces"})
	if got := resultText(r); got != notes["physics/Forces.md"] {
		t.Errorf("read_note = %q", got)
	}
}

func TestGetBacklinks(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "get_backlinks", map[string]any{"note": "Vectors"})
	if got := resultText(r); got != "physics/Forces.md\nphysics/Momentum.md" {
		t.Errorf("backlinks = %q", got)
	}

	r = callTool(t, srv, "get_backlinks", map[string]any{"note": "journal"})
	if got := resultText(r); got != "no backlinks found" {
		t.Errorf("backlinks = %q", got)
	}
}

func TestNoteContract(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_note_contract", nil)
	if !strings.Contains(resultText(r), "read: false") {
		t.Error("contract does not describe the progress header")
	}

	res, err := srv.readNoteFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(res) != 1 {
		t.Fatalf("resource = %v, %v", res, err)
	}
}
