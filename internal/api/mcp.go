package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/chatdesk/internal/session"
	"github.com/kalambet/chatdesk/internal/transcript"
)

// toolAnswers answers the session's prompts from the arguments of the
// tool call in progress.
type toolAnswers struct {
	mu       sync.Mutex
	confirm  bool
	password string
}

func (a *toolAnswers) arm(confirm bool, password string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.confirm, a.password = confirm, password
}

func (a *toolAnswers) Confirm(context.Context, string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.confirm, nil
}

func (a *toolAnswers) Password(context.Context) (string, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.password, a.password != "", nil
}

// Console exposes one console session to MCP clients.
// Tool calls are serialized so prompt answers belong to the call that armed them.
type Console struct {
	mu      sync.Mutex
	ctl     *session.Controller
	answers *toolAnswers
}

// NewConsole starts a session from initial, running effects with exec.
func NewConsole(initial session.State, exec *session.Executor) *Console {
	a := &toolAnswers{}
	return &Console{ctl: session.NewController(initial, exec, a), answers: a}
}

// State returns a copy of the session state.
func (c *Console) State() session.State {
	return c.ctl.State()
}

func (c *Console) dispatch(ctx context.Context, confirm bool, password string, events ...session.Event) []session.Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.answers.arm(confirm, password)
	defer c.answers.arm(false, "")

	var notices []session.Notice
	for _, ev := range events {
		notices = append(notices, c.ctl.Dispatch(ctx, ev)...)
	}
	return notices
}

// NewMCPServer creates an MCP server with the console tools and resources registered.
func NewMCPServer(c *Console) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer(
		"chatdesk",
		"1.0.0",
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, true),
		mcpserver.WithInstructions("chatdesk: chat with the FAQ assistant and manage its personas and reference documents."),
		mcpserver.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("send_message",
			mcp.WithDescription("Send a message to the assistant and return its reply."),
			mcp.WithString("message", mcp.Description("Message text"), mcp.Required()),
			mcp.WithString("persona", mcp.Description("Persona to answer as (must already exist)")),
			mcp.WithNumber("temperature", mcp.Description("Sampling temperature between 0 and 1")),
		),
		mcpSendMessage(c),
	)

	s.AddTool(
		mcp.NewTool("list_personas",
			mcp.WithDescription("Refresh and list personas with their instructions."),
		),
		mcpListPersonas(c),
	)

	s.AddTool(
		mcp.NewTool("select_persona",
			mcp.WithDescription("Make a saved persona the active one for following messages."),
			mcp.WithString("name", mcp.Description("Persona name"), mcp.Required()),
		),
		mcpSelectPersona(c),
	)

	s.AddTool(
		mcp.NewTool("unlock_admin",
			mcp.WithDescription("Unlock persona and document management with the admin password."),
			mcp.WithString("password", mcp.Description("Admin password"), mcp.Required()),
		),
		mcpUnlockAdmin(c),
	)

	s.AddTool(
		mcp.NewTool("save_persona",
			mcp.WithDescription("Create or overwrite a persona. Requires admin access."),
			mcp.WithString("name", mcp.Description("Persona name"), mcp.Required()),
			mcp.WithString("instructions", mcp.Description("System instructions for the persona")),
		),
		mcpSavePersona(c),
	)

	s.AddTool(
		mcp.NewTool("delete_persona",
			mcp.WithDescription("Delete a persona. Requires admin access and confirm=true."),
			mcp.WithString("name", mcp.Description("Persona name"), mcp.Required()),
			mcp.WithBoolean("confirm", mcp.Description("Must be true to delete")),
		),
		mcpDeletePersona(c),
	)

	s.AddTool(
		mcp.NewTool("list_documents",
			mcp.WithDescription("Refresh and list reference documents. Requires admin access."),
			mcp.WithString("filter", mcp.Description("File extension to show, or \"all\"")),
			mcp.WithString("sort", mcp.Description("Sort key: name, date or type")),
		),
		mcpListDocuments(c),
	)

	s.AddTool(
		mcp.NewTool("upload_documents",
			mcp.WithDescription("Upload local files as reference documents. Requires admin access."),
			mcp.WithArray("paths", mcp.Description("Local file paths"), mcp.Required(), mcp.WithStringItems()),
			mcp.WithNumber("chunk_size", mcp.Description("Chunk size in characters (default: the saved preference)")),
		),
		mcpUploadDocuments(c),
	)

	s.AddTool(
		mcp.NewTool("delete_document",
			mcp.WithDescription("Delete a reference document. Requires admin access and confirm=true."),
			mcp.WithString("id", mcp.Description("Document id"), mcp.Required()),
			mcp.WithBoolean("confirm", mcp.Description("Must be true to delete")),
		),
		mcpDeleteDocument(c),
	)

	s.AddTool(
		mcp.NewTool("clear_conversation",
			mcp.WithDescription("Clear the server-side conversation history. Requires admin access and confirm=true."),
			mcp.WithBoolean("confirm", mcp.Description("Must be true to clear")),
		),
		mcpClearConversation(c),
	)

	s.AddResource(
		mcp.NewResource(
			"console://state",
			"Console State",
			mcp.WithResourceDescription("Current console session state as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceState(c),
	)

	s.AddResource(
		mcp.NewResource(
			"console://transcript",
			"Transcript",
			mcp.WithResourceDescription("Conversation so far as Markdown"),
			mcp.WithMIMEType("text/markdown"),
		),
		mcpResourceTranscript(c),
	)

	return s
}

func mcpSendMessage(c *Console) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		message, err := req.RequireString("message")
		if err != nil {
			return mcpError("message is required"), nil
		}

		var setup []session.Event
		if persona := req.GetString("persona", ""); persona != "" {
			setup = append(setup, session.PersonaSelected{Name: persona})
		}
		if t := req.GetFloat("temperature", -1); t >= 0 {
			setup = append(setup, session.TemperatureChanged{Value: t})
		}
		if res := refusalResult(c.dispatch(ctx, false, "", setup...)); res != nil {
			return res, nil
		}

		before := len(c.State().Chat.Messages)
		if res := refusalResult(c.dispatch(ctx, false, "", session.SendRequested{Text: message})); res != nil {
			return res, nil
		}

		msgs := c.State().Chat.Messages
		if len(msgs) <= before || msgs[len(msgs)-1].Sender != session.SenderAssistant {
			return mcpError("no reply was produced"), nil
		}
		if reply := msgs[len(msgs)-1].Text; reply != session.MsgGenericFailure {
			return mcpText(reply), nil
		}
		return mcpError(session.MsgGenericFailure), nil
	}
}

type personaResult struct {
	Name         string `json:"name"`
	Instructions string `json:"instructions"`
	Active       bool   `json:"active,omitempty"`
	Draft        bool   `json:"draft,omitempty"`
}

func mcpListPersonas(c *Console) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if res := refusalResult(c.dispatch(ctx, false, "", session.PersonasRefreshRequested{})); res != nil {
			return res, nil
		}

		p := c.State().Personas
		names := p.Names()
		results := make([]personaResult, len(names))
		for i, name := range names {
			instructions, _ := p.Instructions(name)
			results[i] = personaResult{
				Name:         name,
				Instructions: instructions,
				Active:       name == p.Active,
				Draft:        p.IsDraft(name),
			}
		}
		return mcpJSON(results)
	}
}

func mcpSelectPersona(c *Console) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return mcpError("name is required"), nil
		}
		if res := refusalResult(c.dispatch(ctx, false, "", session.PersonaSelected{Name: name})); res != nil {
			return res, nil
		}
		if active := c.State().Personas.Active; active != name {
			return mcpError(fmt.Sprintf("persona %q is not available; active persona is %q", name, active)), nil
		}
		return mcpText(fmt.Sprintf("Active persona: %s", name)), nil
	}
}

func mcpUnlockAdmin(c *Console) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		password, err := req.RequireString("password")
		if err != nil {
			return mcpError("password is required"), nil
		}
		if c.State().Gate.IsOpen() {
			return mcpText(session.MsgAdminGranted), nil
		}

		notices := c.dispatch(ctx, false, password,
			session.PaneRequested{Pane: session.PanePersonas},
			session.PaneRequested{Pane: session.PaneChat},
		)
		if !c.State().Gate.IsOpen() {
			if res := refusalResult(notices); res != nil {
				return res, nil
			}
			return mcpError(session.MsgWrongPassword), nil
		}
		return mcpText(session.MsgAdminGranted), nil
	}
}

func mcpSavePersona(c *Console) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return mcpError("name is required"), nil
		}
		ev := session.PersonaSaveRequested{Name: name, Instructions: req.GetString("instructions", "")}
		return noticeResult(c.dispatch(ctx, false, "", ev), "Saved persona "+name), nil
	}
}

func mcpDeletePersona(c *Console) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return mcpError("name is required"), nil
		}
		confirm := req.GetBool("confirm", false)
		notices := c.dispatch(ctx, confirm, "", session.PersonaDeleteRequested{Name: name})
		if !confirm && len(notices) == 0 {
			return mcpError("not deleted: pass confirm=true to delete " + name), nil
		}
		return noticeResult(notices, "Deleted persona "+name), nil
	}
}

type documentResult struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	UploadedAt string `json:"uploaded_at"`
	Ingestion  string `json:"ingestion,omitempty"`
}

func mcpListDocuments(c *Console) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var events []session.Event
		if f := req.GetString("filter", ""); f != "" {
			events = append(events, session.FilterChanged{Filter: f})
		}
		if s := req.GetString("sort", ""); s != "" {
			events = append(events, session.SortChanged{Sort: session.SortKey(s)})
		}
		events = append(events, session.DocumentsRefreshRequested{})
		if res := refusalResult(c.dispatch(ctx, false, "", events...)); res != nil {
			return res, nil
		}

		view := c.State().Corpus.View()
		results := make([]documentResult, len(view))
		for i, d := range view {
			results[i] = documentResult{
				ID:         d.ID,
				Name:       d.Name,
				UploadedAt: d.UploadedAt.Format("2006-01-02 15:04"),
				Ingestion:  session.FormatIngestion(d.Ingestion),
			}
		}
		return mcpJSON(results)
	}
}

func mcpUploadDocuments(c *Console) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		paths := req.GetStringSlice("paths", nil)
		ev := session.UploadRequested{
			Files:     session.FilesFromPaths(paths),
			ChunkSize: req.GetInt("chunk_size", 0),
		}
		return noticeResult(c.dispatch(ctx, false, "", ev), "Upload finished"), nil
	}
}

func mcpDeleteDocument(c *Console) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcpError("id is required"), nil
		}
		confirm := req.GetBool("confirm", false)
		notices := c.dispatch(ctx, confirm, "", session.DocumentDeleteRequested{ID: id})
		if !confirm && len(notices) == 0 {
			return mcpError("not deleted: pass confirm=true to delete " + id), nil
		}
		return noticeResult(notices, "Deleted document "+id), nil
	}
}

func mcpClearConversation(c *Console) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		confirm := req.GetBool("confirm", false)
		notices := c.dispatch(ctx, confirm, "", session.ClearRequested{})
		if !confirm && len(notices) == 0 {
			return mcpError("not cleared: pass confirm=true to clear the conversation"), nil
		}
		return noticeResult(notices, "Conversation cleared"), nil
	}
}

func mcpResourceState(c *Console) mcpserver.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(c.State())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal state: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpResourceTranscript(c *Console) mcpserver.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		st := c.State()
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "text/markdown",
				Text:     transcript.Markdown(st.Title, st.Chat.Messages),
			},
		}, nil
	}
}

// refusalResult returns an error result when any notice is a refusal or
// failure, and nil otherwise.
func refusalResult(notices []session.Notice) *mcp.CallToolResult {
	var problems []string
	for _, n := range notices {
		if n.Level == session.NoticeRefusal || n.Level == session.NoticeFailure {
			problems = append(problems, n.Text)
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return mcpError(strings.Join(problems, "\n"))
}

// noticeResult reports notices, falling back to fallback when there are none.
func noticeResult(notices []session.Notice, fallback string) *mcp.CallToolResult {
	if res := refusalResult(notices); res != nil {
		return res
	}
	if len(notices) == 0 {
		return mcpText(fallback)
	}
	lines := make([]string, len(notices))
	for i, n := range notices {
		lines[i] = n.Text
	}
	return mcpText(strings.Join(lines, "\n"))
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
