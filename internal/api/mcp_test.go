package api

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kalambet/chatdesk/internal/session"
	"github.com/kalambet/chatdesk/internal/transport"
)

// --- helpers ---

// newTestConsole wires a console session to a live stub backend.
func newTestConsole(t *testing.T) *Console {
	t.Helper()
	h, _ := setupHandler(t, nil)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	client, err := transport.New(srv.URL)
	if err != nil {
		t.Fatalf("transport.New: %v", err)
	}
	return NewConsole(session.New("", 0), session.NewExecutor(client, nil, nil))
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func makeReadResourceRequest(uri string) mcp.ReadResourceRequest {
	return mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func callOK(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), name string, args map[string]interface{}) string {
	t.Helper()
	result, err := handler(context.Background(), makeCallToolRequest(name, args))
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", name, err)
	}
	if result.IsError {
		t.Fatalf("%s: unexpected tool error: %s", name, toolText(t, result))
	}
	return toolText(t, result)
}

func callErr(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), name string, args map[string]interface{}) string {
	t.Helper()
	result, err := handler(context.Background(), makeCallToolRequest(name, args))
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", name, err)
	}
	if !result.IsError {
		t.Fatalf("%s: expected tool error, got %s", name, toolText(t, result))
	}
	return toolText(t, result)
}

func unlock(t *testing.T, c *Console) {
	t.Helper()
	callOK(t, mcpUnlockAdmin(c), "unlock_admin", map[string]interface{}{"password": testPassword})
}

// --- tests ---

func TestMCPTool_SendMessage(t *testing.T) {
	c := newTestConsole(t)

	got := callOK(t, mcpSendMessage(c), "send_message", map[string]interface{}{"message": "  hello  "})
	if got != "Echo (Default): hello" {
		t.Errorf("reply = %q", got)
	}

	msgs := c.State().Chat.Messages
	if len(msgs) != 2 || msgs[0].Text != "hello" {
		t.Errorf("messages = %+v", msgs)
	}
	if c.State().Chat.Busy {
		t.Error("session left busy")
	}
}

func TestMCPTool_SendMessage_Validation(t *testing.T) {
	c := newTestConsole(t)

	callErr(t, mcpSendMessage(c), "send_message", map[string]interface{}{})
	callErr(t, mcpSendMessage(c), "send_message", map[string]interface{}{"message": "   "})
	got := callErr(t, mcpSendMessage(c), "send_message", map[string]interface{}{"message": "hi", "persona": "Ghost"})
	if !strings.Contains(got, "Ghost") {
		t.Errorf("error = %q", got)
	}
	if n := len(c.State().Chat.Messages); n != 0 {
		t.Errorf("refused sends appended %d messages", n)
	}
}

func TestMCPTool_SendMessage_Temperature(t *testing.T) {
	c := newTestConsole(t)
	callOK(t, mcpSendMessage(c), "send_message", map[string]interface{}{"message": "hi", "temperature": 3.0})
	if got := c.State().Chat.Temperature; got != 1 {
		t.Errorf("temperature = %v, want clamped to 1", got)
	}
}

func TestMCPTool_AdminRequired(t *testing.T) {
	c := newTestConsole(t)

	got := callErr(t, mcpSavePersona(c), "save_persona", map[string]interface{}{"name": "Pirate"})
	if got != session.MsgAdminRequired {
		t.Errorf("error = %q", got)
	}
	callErr(t, mcpListPersonas(c), "list_personas", nil)
	callErr(t, mcpClearConversation(c), "clear_conversation", map[string]interface{}{"confirm": true})
}

func TestMCPTool_UnlockAdmin(t *testing.T) {
	c := newTestConsole(t)

	got := callErr(t, mcpUnlockAdmin(c), "unlock_admin", map[string]interface{}{"password": "nope"})
	if got != session.MsgWrongPassword {
		t.Errorf("wrong password error = %q", got)
	}
	if c.State().Gate.IsOpen() {
		t.Fatal("gate opened on wrong password")
	}

	unlock(t, c)
	st := c.State()
	if !st.Gate.IsOpen() {
		t.Fatal("gate not open after unlock")
	}
	if st.Pane != session.PaneChat {
		t.Errorf("pane = %q, want chat", st.Pane)
	}

	got = callOK(t, mcpUnlockAdmin(c), "unlock_admin", map[string]interface{}{"password": "ignored"})
	if got != session.MsgAdminGranted {
		t.Errorf("second unlock = %q", got)
	}
}

func TestMCPTool_PersonaLifecycle(t *testing.T) {
	c := newTestConsole(t)
	unlock(t, c)

	callOK(t, mcpSavePersona(c), "save_persona", map[string]interface{}{"name": "Pirate", "instructions": "Arr."})

	var personas []personaResult
	if err := json.Unmarshal([]byte(callOK(t, mcpListPersonas(c), "list_personas", nil)), &personas); err != nil {
		t.Fatalf("decoding personas: %v", err)
	}
	if len(personas) != 2 || personas[0].Name != "Default" || !personas[0].Active || personas[1].Name != "Pirate" {
		t.Errorf("personas = %+v", personas)
	}

	callOK(t, mcpSelectPersona(c), "select_persona", map[string]interface{}{"name": "Pirate"})
	if got := callOK(t, mcpSendMessage(c), "send_message", map[string]interface{}{"message": "hi"}); got != "Echo (Pirate): hi" {
		t.Errorf("reply = %q", got)
	}

	got := callErr(t, mcpDeletePersona(c), "delete_persona", map[string]interface{}{"name": "Pirate"})
	if !strings.Contains(got, "confirm=true") {
		t.Errorf("unconfirmed delete = %q", got)
	}
	got = callErr(t, mcpDeletePersona(c), "delete_persona", map[string]interface{}{"name": "Default", "confirm": true})
	if got != session.MsgDefaultReserved {
		t.Errorf("delete Default = %q", got)
	}

	callOK(t, mcpDeletePersona(c), "delete_persona", map[string]interface{}{"name": "Pirate", "confirm": true})
	p := c.State().Personas
	if _, ok := p.Cache.Data["Pirate"]; ok {
		t.Error("Pirate still cached after delete")
	}
	if p.Active != session.DefaultPersona {
		t.Errorf("active = %q, want Default", p.Active)
	}
}

func TestMCPTool_DocumentLifecycle(t *testing.T) {
	c := newTestConsole(t)
	unlock(t, c)

	dir := t.TempDir()
	txt := filepath.Join(dir, "faq.txt")
	png := filepath.Join(dir, "logo.png")
	os.WriteFile(txt, []byte(strings.Repeat("word ", 40)), 0o644)
	os.WriteFile(png, []byte{0x89, 'P', 'N', 'G'}, 0o644)

	got := callOK(t, mcpUploadDocuments(c), "upload_documents", map[string]interface{}{
		"paths":      []interface{}{txt, png},
		"chunk_size": 50,
	})
	if got != "Uploaded 2 documents." {
		t.Errorf("upload = %q", got)
	}

	var docs []documentResult
	raw := callOK(t, mcpListDocuments(c), "list_documents", map[string]interface{}{"filter": "txt", "sort": "name"})
	if err := json.Unmarshal([]byte(raw), &docs); err != nil {
		t.Fatalf("decoding documents: %v", err)
	}
	if len(docs) != 1 || docs[0].Name != "faq.txt" {
		t.Fatalf("docs = %+v", docs)
	}
	if !strings.HasPrefix(docs[0].Ingestion, "chunks 4 · skipped 0") {
		t.Errorf("ingestion = %q", docs[0].Ingestion)
	}

	callErr(t, mcpDeleteDocument(c), "delete_document", map[string]interface{}{"id": docs[0].ID})
	callOK(t, mcpDeleteDocument(c), "delete_document", map[string]interface{}{"id": docs[0].ID, "confirm": true})

	raw = callOK(t, mcpListDocuments(c), "list_documents", map[string]interface{}{"filter": "all"})
	docs = nil
	json.Unmarshal([]byte(raw), &docs)
	if len(docs) != 1 || docs[0].Name != "logo.png" || docs[0].Ingestion != "" {
		t.Errorf("docs after delete = %+v", docs)
	}
}

func TestMCPTool_UploadNoFiles(t *testing.T) {
	c := newTestConsole(t)
	unlock(t, c)

	got := callErr(t, mcpUploadDocuments(c), "upload_documents", map[string]interface{}{"paths": []interface{}{}})
	if got != session.MsgChooseFile {
		t.Errorf("error = %q", got)
	}
}

func TestMCPTool_ClearConversation(t *testing.T) {
	c := newTestConsole(t)
	callOK(t, mcpSendMessage(c), "send_message", map[string]interface{}{"message": "hi"})
	unlock(t, c)

	callErr(t, mcpClearConversation(c), "clear_conversation", nil)
	if len(c.State().Chat.Messages) == 0 {
		t.Fatal("unconfirmed clear removed messages")
	}
	callOK(t, mcpClearConversation(c), "clear_conversation", map[string]interface{}{"confirm": true})
	if n := len(c.State().Chat.Messages); n != 0 {
		t.Errorf("%d messages left after clear", n)
	}
}

func TestMCPResource_State(t *testing.T) {
	c := newTestConsole(t)
	handler := mcpResourceState(c)

	contents, err := handler(context.Background(), makeReadResourceRequest("console://state"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}
	var st session.State
	if err := json.Unmarshal([]byte(tc.Text), &st); err != nil {
		t.Fatalf("decoding state: %v", err)
	}
	if st.Title != session.DefaultTitle || st.Gate.Status != session.GateClosed {
		t.Errorf("state = %+v", st)
	}
}

func TestMCPResource_Transcript(t *testing.T) {
	c := newTestConsole(t)
	callOK(t, mcpSendMessage(c), "send_message", map[string]interface{}{"message": "hi"})

	contents, err := mcpResourceTranscript(c)(context.Background(), makeReadResourceRequest("console://transcript"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := contents[0].(mcp.TextResourceContents).Text
	if !strings.Contains(text, "### You\n\n> hi") || !strings.Contains(text, "Echo (Default): hi") {
		t.Errorf("transcript = %q", text)
	}
}

func TestNewMCPServer_Registers(t *testing.T) {
	s := NewMCPServer(newTestConsole(t))
	if s == nil {
		t.Fatal("NewMCPServer returned nil")
	}
}
