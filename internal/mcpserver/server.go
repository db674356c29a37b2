// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes study session tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/lagu/internal/index"
	"github.com/starford/lagu/internal/linkgraph"
	"github.com/starford/lagu/internal/studyservice"
)

const contractURI = "lagu://note-format"

// Server wraps the MCP server with study tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *studyservice.Service
	notes linkgraph.ContentSource
}

// New creates a new MCP server with all tools registered.
func New(svc *studyservice.Service, notes linkgraph.ContentSource, version string) *Server {
	s := &Server{svc: svc, notes: notes}

	s.mcp = server.NewMCPServer(
		"Lagu",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("start_session",
		mcp.WithDescription("Start a study session over the notes in a folder and/or with a tag. "+
			"Notes without prerequisites are unlocked immediately. Read the contract first via "+
			"get_note_contract or the "+contractURI+" resource."),
		mcp.WithString("folder", mcp.Description("Vault folder to study (empty for the configured default)")),
		mcp.WithString("tag", mcp.Description("Only study notes with this tag")),
	), s.startSession)

	s.mcp.AddTool(mcp.NewTool("open_note",
		mcp.WithDescription("Switch to another note of the session. The previously open note is marked read."),
		mcp.WithString("note", mcp.Required(), mcp.Description("Note name (file name without .md)")),
	), s.openNote)

	s.mcp.AddTool(mcp.NewTool("complete_note",
		mcp.WithDescription("Mark a note read and unlock the notes that were waiting for it."),
		mcp.WithString("note", mcp.Required(), mcp.Description("Note name (file name without .md)")),
	), s.completeNote)

	s.mcp.AddTool(mcp.NewTool("session_status",
		mcp.WithDescription("Show the running session and the read/next flags of its notes."),
	), s.sessionStatus)

	s.mcp.AddTool(mcp.NewTool("next_notes",
		mcp.WithDescription("List the notes unlocked and not yet read."),
	), s.nextNotes)

	s.mcp.AddTool(mcp.NewTool("end_session",
		mcp.WithDescription("End the running session. Note headers keep their last values."),
	), s.endSession)

	s.mcp.AddTool(mcp.NewTool("session_history",
		mcp.WithDescription("List recorded study events, newest first."),
		mcp.WithNumber("limit", mcp.Description("Max events (default 50)")),
	), s.sessionHistory)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full content of a note."),
		mcp.WithString("note", mcp.Required(), mcp.Description("Note name (file name without .md)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all notes that link to the specified note."),
		mcp.WithString("note", mcp.Required(), mcp.Description("Note name to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns how links and the progress header drive a study session."),
	), s.getNoteContract)

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Study Note Contract",
			mcp.WithResourceDescription("How links and the read/next header drive a study session."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
	)

	return s
}

// Serve answers MCP requests read from in until in is exhausted or ctx is
// cancelled. The stdio transport passes os.Stdin and os.Stdout.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
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

func (s *Server) startSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f := index.ScopeFilter{
		Folder: req.GetString("folder", ""),
		Tag:    req.GetString("tag", ""),
	}
	res, err := s.svc.Start(ctx, f)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) openNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	note, err := req.RequireString("note")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Open(ctx, note)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) completeNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	note, err := req.RequireString("note")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Complete(ctx, note)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) sessionStatus(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	info := s.svc.Info()
	if !info.Active {
		return mcp.NewToolResultText("no active study session"), nil
	}
	return jsonResult(info)
}

func (s *Server) nextNotes(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notes, err := s.svc.Next()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(notes) == 0 {
		return mcp.NewToolResultText("nothing unlocked"), nil
	}
	lines := make([]string, len(notes))
	for i, n := range notes {
		lines[i] = fmt.Sprintf("%s\t%s", n.ID, n.Path)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) endSession(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.svc.End(ctx); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("session ended"), nil
}

func (s *Server) sessionHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	events, err := s.svc.History(ctx, req.GetInt("limit", 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(events)
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	note, err := req.RequireString("note")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ref, err := s.svc.Resolve(ctx, note)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.notes.ReadContent(ctx, ref)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", ref.Path)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	note, err := req.RequireString("note")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.svc.Backlinks(ctx, note)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}

func (s *Server) getNoteContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}
