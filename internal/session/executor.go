package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kalambet/chatdesk/internal/transport"
)

// Backend is the set of backend routes the session depends on.
// *transport.Client implements it.
type Backend interface {
	Chat(ctx context.Context, req transport.ChatRequest) (transport.ChatReply, error)
	Login(ctx context.Context, password string) (int, error)
	ListPersonas(ctx context.Context) (map[string]string, error)
	SavePersona(ctx context.Context, name, instructions string) error
	DeletePersona(ctx context.Context, name string) error
	ListDocuments(ctx context.Context) ([]transport.Document, error)
	UploadDocuments(ctx context.Context, files []transport.UploadFile, chunkSize int) ([]transport.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	ClearHistory(ctx context.Context) error
}

// PreferenceWriter persists one preference key.
type PreferenceWriter interface {
	Set(key, value string) error
}

// Executor performs I/O effects and reports their settlement.
type Executor struct {
	backend Backend
	prefs   PreferenceWriter
	logger  *slog.Logger
}

func NewExecutor(backend Backend, prefs PreferenceWriter, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{backend: backend, prefs: prefs, logger: logger}
}

// Run performs eff and returns the settlement event. It returns nil for
// effects that are not I/O (Notify, AskConfirmation, AskPassword).
func (x *Executor) Run(ctx context.Context, eff Effect) Event {
	switch eff := eff.(type) {
	case SendChat:
		reply, err := x.backend.Chat(ctx, eff.Request)
		x.logFailure("chat request failed", err, "persona", eff.Request.Persona, "model", eff.Request.Model)
		return ChatSettled{Reply: reply, Err: err}
	case Login:
		status, err := x.backend.Login(ctx, eff.Password)
		x.logFailure("admin login failed", err)
		if err == nil {
			x.logger.Debug("admin login settled", "status", status)
		}
		return LoginSettled{Status: status, Err: err}
	case FetchPersonas:
		personas, err := x.backend.ListPersonas(ctx)
		x.logFailure("listing personas failed", err)
		return PersonasLoaded{Gen: eff.Gen, Personas: personas, Err: err}
	case SavePersona:
		err := x.backend.SavePersona(ctx, eff.Name, eff.Instructions)
		x.logFailure("saving persona failed", err, "name", eff.Name)
		return PersonaSaved{Name: eff.Name, Err: err}
	case DeletePersona:
		err := x.backend.DeletePersona(ctx, eff.Name)
		x.logFailure("deleting persona failed", err, "name", eff.Name)
		return PersonaDeleted{Name: eff.Name, Err: err}
	case FetchDocuments:
		docs, err := x.backend.ListDocuments(ctx)
		x.logFailure("listing documents failed", err)
		return DocumentsLoaded{Gen: eff.Gen, Docs: docs, Err: err}
	case UploadDocuments:
		files, err := readFiles(eff.Files)
		if err != nil {
			x.logFailure("reading upload files failed", err)
			return DocumentsUploaded{Err: err}
		}
		docs, err := x.backend.UploadDocuments(ctx, files, eff.ChunkSize)
		x.logFailure("uploading documents failed", err, "files", len(files), "chunk_size", eff.ChunkSize)
		return DocumentsUploaded{Docs: docs, Err: err}
	case DeleteDocument:
		err := x.backend.DeleteDocument(ctx, eff.ID)
		x.logFailure("deleting document failed", err, "id", eff.ID)
		return DocumentDeleted{ID: eff.ID, Err: err}
	case ClearHistory:
		err := x.backend.ClearHistory(ctx)
		x.logFailure("clearing history failed", err)
		return HistoryCleared{Err: err}
	case PersistPreference:
		if x.prefs == nil {
			return nil
		}
		err := x.prefs.Set(eff.Key, eff.Value)
		x.logFailure("saving preference failed", err, "key", eff.Key)
		return PreferenceSaved{Key: eff.Key, Err: err}
	}
	return nil
}

func (x *Executor) logFailure(msg string, err error, args ...any) {
	if err == nil {
		return
	}
	x.logger.Error(msg, append(args, "error", err)...)
}

// readFiles attaches content for files given by path only.
func readFiles(files []transport.UploadFile) ([]transport.UploadFile, error) {
	out := make([]transport.UploadFile, len(files))
	for i, f := range files {
		if f.Content == nil && f.Path != "" {
			data, err := os.ReadFile(f.Path)
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", f.Path, err)
			}
			f.Content = data
		}
		if f.Name == "" {
			f.Name = filepath.Base(f.Path)
		}
		out[i] = f
	}
	return out, nil
}

// FilesFromPaths builds upload references for local paths.
func FilesFromPaths(paths []string) []transport.UploadFile {
	files := make([]transport.UploadFile, 0, len(paths))
	for _, p := range paths {
		files = append(files, transport.UploadFile{Name: filepath.Base(p), Path: p})
	}
	return files
}
