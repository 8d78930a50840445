package transport

import (
	"encoding/json"
	"fmt"
	"time"
)

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message     string  `json:"message"`
	Model       string  `json:"model"`
	Persona     string  `json:"persona"`
	Temperature float64 `json:"temperature"`
}

// ReplyKind tags a ChatReply.
type ReplyKind int

const (
	ReplyAnswer ReplyKind = iota
	ReplyFailure
)

// ChatReply is the decoded outcome of a well-formed /chat response.
// A failure reply is a handled backend error, not a transport error.
type ChatReply struct {
	Kind ReplyKind
	Text string
}

// Answer builds an answer reply.
func Answer(text string) ChatReply { return ChatReply{Kind: ReplyAnswer, Text: text} }

// Failure builds a backend-reported failure reply.
func Failure(reason string) ChatReply { return ChatReply{Kind: ReplyFailure, Text: reason} }

type chatWire struct {
	Answer *string `json:"answer"`
	Error  *string `json:"error"`
}

// decodeChatReply prefers a non-empty answer, then the error text.
// An empty answer stands only when no error accompanies it.
func decodeChatReply(data []byte) (ChatReply, error) {
	var w chatWire
	if err := json.Unmarshal(data, &w); err != nil {
		return ChatReply{}, fmt.Errorf("decoding chat reply: %w", err)
	}
	switch {
	case w.Answer != nil && *w.Answer != "":
		return Answer(*w.Answer), nil
	case w.Error != nil:
		return Failure(*w.Error), nil
	case w.Answer != nil:
		return Answer(""), nil
	default:
		return ChatReply{}, fmt.Errorf("decoding chat reply: neither answer nor error present")
	}
}

// Ingestion is the chunking metadata reported for a document.
type Ingestion struct {
	Chunks        int     `json:"chunks"`
	Skipped       int     `json:"skipped"`
	TokenEstimate int     `json:"token_estimate"`
	CostEstimate  float64 `json:"cost_estimate"`
}

// Document is one uploaded reference document.
// Ingestion is nil for documents stored verbatim.
type Document struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	UploadedAt time.Time  `json:"uploaded_at"`
	Ingestion  *Ingestion `json:"ingestion,omitempty"`
}

// UploadFile is one file of a multipart upload.
type UploadFile struct {
	Name    string `json:"name"`
	Path    string `json:"path,omitempty"`
	Content []byte `json:"-"`
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: server returned %d: %s", e.Method, e.Path, e.Code, e.Body)
}
