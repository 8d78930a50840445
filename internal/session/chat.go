package session

import (
	"math"
	"strings"

	"github.com/kalambet/chatdesk/internal/transport"
)

func reduceChat(s State, ev Event) (State, []Effect) {
	switch ev := ev.(type) {
	case InputChanged:
		s.Chat.Input = ev.Text
	case SubmitKeyPressed:
		if ev.Newline {
			if !s.Chat.Busy {
				s.Chat.Input += "\n"
			}
			return s, nil
		}
		return send(s, s.Chat.Input)
	case SendRequested:
		return send(s, ev.Text)
	case ChatSettled:
		if !s.Chat.Busy {
			return s, nil
		}
		s.Chat.Busy = false
		s.Chat.Focused = true
		text := MsgGenericFailure
		if ev.Err == nil {
			text = ev.Reply.Text
		}
		s.Chat.Messages = append(s.Chat.Messages, Message{Sender: SenderAssistant, Text: text})
	case ClearRequested:
		if refusal := requireAdmin(s); refusal != nil {
			return s, refusal
		}
		return confirm(s, Confirmation{Kind: ConfirmClearHistory, Prompt: "Clear the conversation?"})
	case HistoryCleared:
		if ev.Err != nil {
			return s, []Effect{fail(MsgGenericFailure)}
		}
		s.Chat.Messages = nil
		return s, []Effect{succeed("Conversation cleared.")}
	case TemperatureChanged:
		s.Chat.Temperature = ClampTemperature(ev.Value)
	case ModelChanged:
		if m := strings.TrimSpace(ev.Model); m != "" {
			s.Chat.Model = m
		}
	}
	return s, nil
}

// send issues one chat turn. It is a no-op while busy and for blank text.
func send(s State, raw string) (State, []Effect) {
	if s.Chat.Busy {
		return s, nil
	}
	text := strings.TrimSpace(raw)
	if text == "" {
		return s, nil
	}
	s.Chat.Messages = append(s.Chat.Messages, Message{Sender: SenderUser, Text: text})
	s.Chat.Input = ""
	s.Chat.Busy = true
	s.Chat.Focused = false
	return s, []Effect{SendChat{Request: transport.ChatRequest{
		Message:     text,
		Model:       s.Chat.Model,
		Persona:     s.Personas.Active,
		Temperature: s.Chat.Temperature,
	}}}
}

// ClampTemperature bounds v to [0, 1].
func ClampTemperature(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return DefaultTemperature
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
