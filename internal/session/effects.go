package session

import "github.com/kalambet/chatdesk/internal/transport"

// Effect is work the reducer asks the host to perform.
type Effect interface {
	effect()
}

type SendChat struct{ Request transport.ChatRequest }

type Login struct{ Password string }

type FetchPersonas struct{ Gen int }

type SavePersona struct{ Name, Instructions string }

type DeletePersona struct{ Name string }

type FetchDocuments struct{ Gen int }

// UploadDocuments carries file references; content is read by the executor
// when not already attached.
type UploadDocuments struct {
	Files     []transport.UploadFile
	ChunkSize int
}

type DeleteDocument struct{ ID string }

type ClearHistory struct{}

type PersistPreference struct{ Key, Value string }

type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeRefusal NoticeLevel = "refusal"
	NoticeFailure NoticeLevel = "failure"
)

// Notice is a user-visible message outside the transcript.
type Notice struct {
	Level NoticeLevel `json:"level"`
	Text  string      `json:"text"`
}

type Notify struct{ Notice Notice }

type AskConfirmation struct{ Prompt string }

type AskPassword struct{}

func (SendChat) effect()          {}
func (Login) effect()             {}
func (FetchPersonas) effect()     {}
func (SavePersona) effect()       {}
func (DeletePersona) effect()     {}
func (FetchDocuments) effect()    {}
func (UploadDocuments) effect()   {}
func (DeleteDocument) effect()    {}
func (ClearHistory) effect()      {}
func (PersistPreference) effect() {}
func (Notify) effect()            {}
func (AskConfirmation) effect()   {}
func (AskPassword) effect()       {}

func refuse(text string) Effect {
	return Notify{Notice{Level: NoticeRefusal, Text: text}}
}

func fail(text string) Effect {
	return Notify{Notice{Level: NoticeFailure, Text: text}}
}

func succeed(text string) Effect {
	return Notify{Notice{Level: NoticeSuccess, Text: text}}
}

func inform(text string) Effect {
	return Notify{Notice{Level: NoticeInfo, Text: text}}
}
