// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Laguz tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/noteservice"
)

// Server wraps the MCP server with Laguz tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates a new MCP server with all Laguz tools registered.
func New(svc *noteservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Laguz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List all notes with their refs, one per line as 'ref<TAB>title'. "+
			"Notes are ordered by type then ref; bibliography entries come last."),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note by its ref (e.g. 1, 1.2, B3). Returns the full note as JSON."),
		mcp.WithString("ref", mcp.Required(), mcp.Description("Ref of the note to read (e.g. 1.2 or B3)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a new note or bibliography entry. The ref is assigned "+
			"automatically from the parent's position in the tree: root notes get 1, 2, ...; "+
			"children extend the parent ref (1.2 under 1); bib entries get B1, B2, .... "+
			"Read the ref scheme first via the get_ref_scheme tool or the "+
			"laguz://ref-scheme resource."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title")),
		mcp.WithString("type", mcp.Description("Note type: 'note' (default) or 'bib'")),
		mcp.WithString("parent_ref", mcp.Description("Ref of the parent note (empty for a root note; ignored for bib)")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("update_note",
		mcp.WithDescription("Update the title and/or content of an existing note, addressed by ref. "+
			"Content may use ==highlight==, [label](url) links, > quote lines, and [[ref]] "+
			"cross-references to other notes."),
		mcp.WithString("ref", mcp.Required(), mcp.Description("Ref of the note to update")),
		mcp.WithString("title", mcp.Description("New title (omit to keep)")),
		mcp.WithString("content", mcp.Description("New content (omit to keep)")),
	), s.updateNote)

	s.mcp.AddTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Delete a note by ref. Fails if the note still has children."),
		mcp.WithString("ref", mcp.Required(), mcp.Description("Ref of the note to delete")),
	), s.deleteNote)

	s.mcp.AddTool(mcp.NewTool("render_note",
		mcp.WithDescription("Render a note's content to HTML, resolving [[ref]] cross-references "+
			"against the current note set."),
		mcp.WithString("ref", mcp.Required(), mcp.Description("Ref of the note to render")),
	), s.renderNote)

	s.mcp.AddTool(mcp.NewTool("get_ref_scheme",
		mcp.WithDescription("Returns the Laguz ref scheme and content markup rules. "+
			"Call this before creating or linking notes."),
	), s.getRefScheme)

	// Resource: ref scheme.
	s.mcp.AddResource(
		mcp.NewResource("laguz://ref-scheme", "Ref Scheme",
			mcp.WithResourceDescription("How Laguz refs are assigned and how note content markup works."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readRefSchemeResource,
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

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notes, err := s.svc.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(notes) == 0 {
		return mcp.NewToolResultText("no notes"), nil
	}
	var lines []string
	for _, n := range notes {
		lines = append(lines, n.Ref+"\t"+n.Title)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("ref")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, ok, err := s.byRef(ctx, ref)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", ref)), nil
	}
	out, _ := json.MarshalIndent(note, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	cr := noteservice.CreateRequest{Title: title}
	if typ, tErr := req.RequireString("type"); tErr == nil {
		cr.Type = typ
	}
	if parentRef, pErr := req.RequireString("parent_ref"); pErr == nil && parentRef != "" {
		parent, ok, bErr := s.byRef(ctx, parentRef)
		if bErr != nil {
			return mcp.NewToolResultError(bErr.Error()), nil
		}
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("parent not found: %s", parentRef)), nil
		}
		cr.ParentID = &parent.ID
	}

	note, err := s.svc.Create(ctx, cr)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", note.Ref)), nil
}

func (s *Server) updateNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("ref")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, ok, err := s.byRef(ctx, ref)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", ref)), nil
	}

	var ur noteservice.UpdateRequest
	if title, tErr := req.RequireString("title"); tErr == nil {
		ur.Title = &title
	}
	if content, cErr := req.RequireString("content"); cErr == nil {
		ur.Content = &content
	}

	if _, err := s.svc.Update(ctx, note.ID, ur); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %s", ref)), nil
}

func (s *Server) deleteNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("ref")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, ok, err := s.byRef(ctx, ref)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", ref)), nil
	}
	if err := s.svc.Delete(ctx, note.ID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", ref)), nil
}

func (s *Server) renderNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("ref")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, ok, err := s.byRef(ctx, ref)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", ref)), nil
	}
	_, html, err := s.svc.Render(ctx, note.Content)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(html), nil
}

func (s *Server) getRefScheme(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(RefSchemeContract), nil
}

func (s *Server) readRefSchemeResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "laguz://ref-scheme",
			MIMEType: "text/markdown",
			Text:     RefSchemeContract,
		},
	}, nil
}

// byRef looks a note up by ref through a fresh snapshot.
func (s *Server) byRef(ctx context.Context, ref string) (*models.Note, bool, error) {
	snap, err := s.svc.Snapshot(ctx)
	if err != nil {
		return nil, false, err
	}
	note, ok := snap.ByRef(strings.TrimSpace(ref))
	return note, ok, nil
}
