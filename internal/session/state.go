package session

import (
	"maps"
	"slices"

	"github.com/kalambet/chatdesk/internal/prefs"
	"github.com/kalambet/chatdesk/internal/transport"
)

// Pane is one of the three mutually exclusive console views.
type Pane string

const (
	PaneChat      Pane = "chat"
	PanePersonas  Pane = "personas"
	PaneDocuments Pane = "documents"
)

// Privileged reports whether entering the pane goes through the admin gate.
func (p Pane) Privileged() bool {
	return p == PanePersonas || p == PaneDocuments
}

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

type Message struct {
	Sender Sender `json:"sender"`
	Text   string `json:"text"`
}

type GateStatus string

const (
	GateClosed      GateStatus = "closed"
	GateChallenging GateStatus = "challenging"
	GateOpen        GateStatus = "open"
)

// Gate is the admin capability. Pending is the pane requested before the
// challenge started; Verifying is set while a login call is in flight.
type Gate struct {
	Status    GateStatus `json:"status"`
	Pending   Pane       `json:"pending,omitempty"`
	Verifying bool       `json:"verifying,omitempty"`
}

func (g Gate) IsOpen() bool {
	return g.Status == GateOpen
}

type ChatState struct {
	Messages    []Message `json:"messages"`
	Input       string    `json:"input"`
	Busy        bool      `json:"busy"`
	Focused     bool      `json:"focused"`
	Model       string    `json:"model"`
	Temperature float64   `json:"temperature"`
}

type PersonasState struct {
	Cache  Cache[map[string]string] `json:"cache"`
	Active string                   `json:"active"`
	// Drafts are client-only personas not yet saved to the backend.
	Drafts map[string]string `json:"drafts,omitempty"`
}

type CorpusState struct {
	Cache      Cache[[]transport.Document] `json:"cache"`
	Filter     string                      `json:"filter"`
	Sort       SortKey                     `json:"sort"`
	ChunkSize  int                         `json:"chunk_size"`
	Uploading  bool                        `json:"uploading"`
	LastUpload []transport.Document        `json:"last_upload,omitempty"`
}

type ConfirmKind string

const (
	ConfirmDeletePersona  ConfirmKind = "delete_persona"
	ConfirmDeleteDocument ConfirmKind = "delete_document"
	ConfirmClearHistory   ConfirmKind = "clear_history"
)

// Confirmation is a destructive request waiting for the user's answer.
type Confirmation struct {
	Kind   ConfirmKind `json:"kind"`
	Target string      `json:"target,omitempty"`
	Prompt string      `json:"prompt"`
}

// State is the whole console session.
type State struct {
	Pane     Pane          `json:"pane"`
	DarkMode bool          `json:"dark_mode"`
	Title    string        `json:"title"`
	Gate     Gate          `json:"gate"`
	Chat     ChatState     `json:"chat"`
	Personas PersonasState `json:"personas"`
	Corpus   CorpusState   `json:"corpus"`
	Confirm  *Confirmation `json:"confirm,omitempty"`
}

const (
	DefaultPersona     = "Default"
	DefaultModel       = "gpt-4o-mini"
	DefaultTemperature = 0.2
	DefaultTitle       = prefs.DefaultTitle
	DefaultChunkSize   = prefs.DefaultChunkSize
)

// New returns the initial state for a session with the given persisted
// preferences. Empty or non-positive values fall back to defaults.
func New(title string, chunkSize int) State {
	if title == "" {
		title = DefaultTitle
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return State{
		Pane:  PaneChat,
		Title: title,
		Gate:  Gate{Status: GateClosed},
		Chat: ChatState{
			Focused:     true,
			Model:       DefaultModel,
			Temperature: DefaultTemperature,
		},
		Personas: PersonasState{
			Cache:  Cache[map[string]string]{Status: Stale, Data: map[string]string{DefaultPersona: ""}},
			Active: DefaultPersona,
		},
		Corpus: CorpusState{
			Cache:     Cache[[]transport.Document]{Status: Stale},
			Filter:    FilterAll,
			Sort:      SortName,
			ChunkSize: chunkSize,
		},
	}
}

// Clone returns a deep copy safe to hand to another goroutine.
func (s State) Clone() State {
	s.Chat.Messages = slices.Clone(s.Chat.Messages)
	s.Personas.Cache.Data = maps.Clone(s.Personas.Cache.Data)
	s.Personas.Drafts = maps.Clone(s.Personas.Drafts)
	s.Corpus.Cache.Data = slices.Clone(s.Corpus.Cache.Data)
	s.Corpus.LastUpload = slices.Clone(s.Corpus.LastUpload)
	if s.Confirm != nil {
		c := *s.Confirm
		s.Confirm = &c
	}
	return s
}
