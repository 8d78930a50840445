package session

import "github.com/kalambet/chatdesk/internal/transport"

// Event is a user intent or the settlement of an effect.
type Event interface {
	event()
}

// User intents.

type InputChanged struct{ Text string }

// SubmitKeyPressed is the submit key; Newline is set when the newline
// modifier was held.
type SubmitKeyPressed struct{ Newline bool }

// SendRequested sends Text as typed. Leading and trailing whitespace is trimmed.
type SendRequested struct{ Text string }

type ClearRequested struct{}

type PaneRequested struct{ Pane Pane }

type PasswordSubmitted struct{ Password string }

type PasswordCancelled struct{}

type ConfirmationAnswered struct{ Yes bool }

type PersonaSelected struct{ Name string }

// PersonaDrafted adds a client-only persona with empty instructions.
type PersonaDrafted struct{ Name string }

type PersonaSaveRequested struct{ Name, Instructions string }

type PersonaDeleteRequested struct{ Name string }

type PersonasRefreshRequested struct{}

// UploadRequested submits Files. A ChunkSize of zero or less uses the
// session's preferred chunk size.
type UploadRequested struct {
	Files     []transport.UploadFile
	ChunkSize int
}

// FilesDropped is the drag-and-drop path into the same upload.
type FilesDropped struct{ Files []transport.UploadFile }

type DocumentDeleteRequested struct{ ID string }

type DocumentsRefreshRequested struct{}

type FilterChanged struct{ Filter string }

type SortChanged struct{ Sort SortKey }

type TitleChanged struct{ Title string }

type ChunkSizeChanged struct{ Size int }

type TemperatureChanged struct{ Value float64 }

type ModelChanged struct{ Model string }

type DarkModeToggled struct{}

// Settlements.

type ChatSettled struct {
	Reply transport.ChatReply
	Err   error
}

type LoginSettled struct {
	Status int
	Err    error
}

type PersonasLoaded struct {
	Gen      int
	Personas map[string]string
	Err      error
}

type PersonaSaved struct {
	Name string
	Err  error
}

type PersonaDeleted struct {
	Name string
	Err  error
}

type DocumentsLoaded struct {
	Gen  int
	Docs []transport.Document
	Err  error
}

type DocumentsUploaded struct {
	Docs []transport.Document
	Err  error
}

type DocumentDeleted struct {
	ID  string
	Err error
}

type HistoryCleared struct{ Err error }

type PreferenceSaved struct {
	Key string
	Err error
}

func (InputChanged) event()              {}
func (SubmitKeyPressed) event()          {}
func (SendRequested) event()             {}
func (ClearRequested) event()            {}
func (PaneRequested) event()             {}
func (PasswordSubmitted) event()         {}
func (PasswordCancelled) event()         {}
func (ConfirmationAnswered) event()      {}
func (PersonaSelected) event()           {}
func (PersonaDrafted) event()            {}
func (PersonaSaveRequested) event()      {}
func (PersonaDeleteRequested) event()    {}
func (PersonasRefreshRequested) event()  {}
func (UploadRequested) event()           {}
func (FilesDropped) event()              {}
func (DocumentDeleteRequested) event()   {}
func (DocumentsRefreshRequested) event() {}
func (FilterChanged) event()             {}
func (SortChanged) event()               {}
func (TitleChanged) event()              {}
func (ChunkSizeChanged) event()          {}
func (TemperatureChanged) event()        {}
func (ModelChanged) event()              {}
func (DarkModeToggled) event()           {}
func (ChatSettled) event()               {}
func (LoginSettled) event()              {}
func (PersonasLoaded) event()            {}
func (PersonaSaved) event()              {}
func (PersonaDeleted) event()            {}
func (DocumentsLoaded) event()           {}
func (DocumentsUploaded) event()         {}
func (DocumentDeleted) event()           {}
func (HistoryCleared) event()            {}
func (PreferenceSaved) event()           {}
