package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/kalambet/chatdesk/internal/transport"
)

// fakeBackend keeps personas and documents in memory and records calls.
type fakeBackend struct {
	mu       sync.Mutex
	calls    []string
	password string
	personas map[string]string
	docs     []transport.Document
	uploaded []transport.UploadFile
	chunk    int
	chatErr  error
	docErr   error
	reply    transport.ChatReply

	chatStarted chan struct{}
	chatRelease chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		password: "secret",
		personas: map[string]string{"Default": "Be helpful."},
		reply:    transport.Answer("ok"),
	}
}

func (f *fakeBackend) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeBackend) callCount(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeBackend) Chat(ctx context.Context, req transport.ChatRequest) (transport.ChatReply, error) {
	f.record("chat")
	if f.chatStarted != nil {
		f.chatStarted <- struct{}{}
		<-f.chatRelease
	}
	return f.reply, f.chatErr
}

func (f *fakeBackend) Login(ctx context.Context, password string) (int, error) {
	f.record("login")
	if password != f.password {
		return http.StatusUnauthorized, nil
	}
	return http.StatusNoContent, nil
}

func (f *fakeBackend) ListPersonas(ctx context.Context) (map[string]string, error) {
	f.record("list_personas")
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.personas))
	for k, v := range f.personas {
		out[k] = v
	}
	return out, nil
}

func (f *fakeBackend) SavePersona(ctx context.Context, name, instructions string) error {
	f.record("save_persona")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.personas[name] = instructions
	return nil
}

func (f *fakeBackend) DeletePersona(ctx context.Context, name string) error {
	f.record("delete_persona")
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.personas, name)
	return nil
}

func (f *fakeBackend) ListDocuments(ctx context.Context) ([]transport.Document, error) {
	f.record("list_documents")
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]transport.Document(nil), f.docs...), nil
}

func (f *fakeBackend) UploadDocuments(ctx context.Context, files []transport.UploadFile, chunkSize int) ([]transport.Document, error) {
	f.record("upload")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploaded = files
	f.chunk = chunkSize
	var created []transport.Document
	for i, file := range files {
		d := transport.Document{ID: file.Name, Name: file.Name}
		if i == 0 {
			d.Ingestion = &transport.Ingestion{Chunks: 3, TokenEstimate: 420, CostEstimate: 0.00084}
		}
		created = append(created, d)
	}
	f.docs = append(f.docs, created...)
	return created, nil
}

func (f *fakeBackend) DeleteDocument(ctx context.Context, id string) error {
	f.record("delete_document")
	return f.docErr
}

func (f *fakeBackend) ClearHistory(ctx context.Context) error {
	f.record("clear")
	return nil
}

type scriptedPrompter struct {
	password string
	cancel   bool
	confirm  bool
	prompts  []string
}

func (p *scriptedPrompter) Confirm(ctx context.Context, prompt string) (bool, error) {
	p.prompts = append(p.prompts, prompt)
	return p.confirm, nil
}

func (p *scriptedPrompter) Password(ctx context.Context) (string, bool, error) {
	return p.password, !p.cancel, nil
}

type memPrefs map[string]string

func (m memPrefs) Set(key, value string) error {
	m[key] = value
	return nil
}

var ctx = context.Background()

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestController(fb *fakeBackend, p Prompter, prefs PreferenceWriter) *Controller {
	return NewController(New("", 0), NewExecutor(fb, prefs, quietLogger()), p)
}

func TestController_PersonaRoundTrip(t *testing.T) {
	fb := newFakeBackend()
	p := &scriptedPrompter{password: "secret", confirm: true}
	c := newTestController(fb, p, nil)

	c.Dispatch(ctx, PaneRequested{Pane: PanePersonas})
	if st := c.State(); !st.Gate.IsOpen() || st.Pane != PanePersonas {
		t.Fatalf("gate = %+v pane = %s", st.Gate, st.Pane)
	}

	c.Dispatch(ctx, PersonaSaveRequested{Name: "X", Instructions: "instr"})
	st := c.State()
	if !st.Personas.Cache.IsFresh() || st.Personas.Cache.Data["X"] != "instr" {
		t.Fatalf("cache = %+v, want fresh with X", st.Personas.Cache)
	}

	c.Dispatch(ctx, PersonaSelected{Name: "X"})
	c.Dispatch(ctx, PersonaDeleteRequested{Name: "X"})
	st = c.State()
	if _, ok := st.Personas.Cache.Data["X"]; ok {
		t.Error("X still present after delete")
	}
	if st.Personas.Active != DefaultPersona {
		t.Errorf("active = %q, want Default", st.Personas.Active)
	}
	if len(p.prompts) != 1 {
		t.Errorf("prompts = %v, want one confirmation", p.prompts)
	}
}

func TestController_DefaultDeleteNoNetwork(t *testing.T) {
	fb := newFakeBackend()
	c := newTestController(fb, &scriptedPrompter{password: "secret", confirm: true}, nil)
	c.Dispatch(ctx, PaneRequested{Pane: PanePersonas})

	notes := c.Dispatch(ctx, PersonaDeleteRequested{Name: "Default"})
	if len(notes) != 1 || notes[0].Level != NoticeRefusal {
		t.Errorf("notices = %v", notes)
	}
	if n := fb.callCount("delete_persona"); n != 0 {
		t.Errorf("delete_persona calls = %d, want 0", n)
	}
}

func TestController_WrongPassword(t *testing.T) {
	fb := newFakeBackend()
	c := newTestController(fb, &scriptedPrompter{password: "nope"}, nil)

	notes := c.Dispatch(ctx, PaneRequested{Pane: PaneDocuments})
	st := c.State()
	if st.Gate.Status != GateClosed || st.Pane != PaneChat {
		t.Errorf("gate = %+v pane = %s", st.Gate, st.Pane)
	}
	if len(notes) != 1 || notes[0].Text != MsgWrongPassword {
		t.Errorf("notices = %v", notes)
	}
	if fb.callCount("list_documents") != 0 {
		t.Error("documents listed without access")
	}
}

func TestController_CancelledChallenge(t *testing.T) {
	fb := newFakeBackend()
	c := newTestController(fb, &scriptedPrompter{cancel: true}, nil)
	c.Dispatch(ctx, PaneRequested{Pane: PaneDocuments})
	if fb.callCount("login") != 0 {
		t.Error("login issued after cancel")
	}
	if st := c.State(); st.Gate.Status != GateClosed {
		t.Errorf("gate = %s", st.Gate.Status)
	}
}

func TestController_UploadFromPaths(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.png")
	os.WriteFile(a, []byte("alpha"), 0o644)
	os.WriteFile(b, []byte{0x89, 'P', 'N', 'G'}, 0o644)

	fb := newFakeBackend()
	prefs := memPrefs{}
	c := newTestController(fb, &scriptedPrompter{password: "secret"}, prefs)
	c.Dispatch(ctx, PaneRequested{Pane: PaneDocuments})
	c.Dispatch(ctx, ChunkSizeChanged{Size: 50})

	c.Dispatch(ctx, FilesDropped{Files: FilesFromPaths([]string{a, b})})

	if fb.chunk != 50 {
		t.Errorf("chunk size = %d, want 50", fb.chunk)
	}
	if len(fb.uploaded) != 2 || string(fb.uploaded[0].Content) != "alpha" {
		t.Errorf("uploaded = %+v", fb.uploaded)
	}
	if prefs[PrefChunkSize] != "50" {
		t.Errorf("prefs = %v", prefs)
	}
	st := c.State()
	if len(st.Corpus.View()) != 2 || st.Corpus.Uploading {
		t.Errorf("corpus = %+v", st.Corpus)
	}
}

func TestController_UploadMissingFile(t *testing.T) {
	fb := newFakeBackend()
	c := newTestController(fb, &scriptedPrompter{password: "secret"}, nil)
	c.Dispatch(ctx, PaneRequested{Pane: PaneDocuments})

	notes := c.Dispatch(ctx, UploadRequested{Files: FilesFromPaths([]string{"/does/not/exist.txt"})})
	if fb.callCount("upload") != 0 {
		t.Error("upload issued for unreadable file")
	}
	if len(notes) == 0 || notes[0].Level != NoticeFailure {
		t.Errorf("notices = %v", notes)
	}
	if c.State().Corpus.Uploading {
		t.Error("uploading flag left set")
	}
}

func TestController_TransportFailureNotStuck(t *testing.T) {
	fb := newFakeBackend()
	fb.chatErr = errors.New("connection reset")
	c := newTestController(fb, nil, nil)

	c.Dispatch(ctx, SendRequested{Text: "hello"})
	st := c.State()
	if st.Chat.Busy || !st.Chat.Focused {
		t.Errorf("chat = %+v, want idle and focused", st.Chat)
	}
	if last := st.Chat.Messages[len(st.Chat.Messages)-1]; last.Text != MsgGenericFailure {
		t.Errorf("last = %+v", last)
	}
}

func TestController_OneOutstandingChat(t *testing.T) {
	fb := newFakeBackend()
	fb.chatStarted = make(chan struct{})
	fb.chatRelease = make(chan struct{})
	c := newTestController(fb, nil, nil)

	done := make(chan struct{})
	go func() {
		c.Dispatch(ctx, SendRequested{Text: "first"})
		close(done)
	}()
	<-fb.chatStarted

	// A refresh runs while the chat turn is outstanding; a second send does not.
	c.Dispatch(ctx, DocumentsRefreshRequested{})
	c.Dispatch(ctx, SendRequested{Text: "second"})
	if n := fb.callCount("chat"); n != 1 {
		t.Errorf("chat calls = %d, want 1", n)
	}
	if fb.callCount("list_documents") != 1 {
		t.Error("refresh blocked by outstanding chat")
	}

	close(fb.chatRelease)
	<-done
	st := c.State()
	if st.Chat.Busy || len(st.Chat.Messages) != 2 {
		t.Errorf("chat = %+v", st.Chat)
	}
}

func TestController_NoPrompterDeclines(t *testing.T) {
	fb := newFakeBackend()
	c := newTestController(fb, nil, nil)
	c.Dispatch(ctx, PaneRequested{Pane: PanePersonas})
	if fb.callCount("login") != 0 {
		t.Error("login without a prompter")
	}
}
