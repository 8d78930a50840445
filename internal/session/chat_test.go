package session

import (
	"errors"
	"testing"

	"github.com/kalambet/chatdesk/internal/transport"
)

func findEffect[T Effect](effects []Effect) (T, bool) {
	for _, e := range effects {
		if v, ok := e.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func notices(effects []Effect) []Notice {
	var out []Notice
	for _, e := range effects {
		if n, ok := e.(Notify); ok {
			out = append(out, n.Notice)
		}
	}
	return out
}

func TestSend_BlankInputIsNoop(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\t "} {
		s := New("", 0)
		next, effects := Reduce(s, SendRequested{Text: input})
		if len(effects) != 0 {
			t.Errorf("send(%q) effects = %v, want none", input, effects)
		}
		if len(next.Chat.Messages) != 0 || next.Chat.Busy {
			t.Errorf("send(%q) changed state: %+v", input, next.Chat)
		}
	}
}

func TestSend_IssuesOneRequest(t *testing.T) {
	s := New("", 0)
	s, _ = Reduce(s, TemperatureChanged{Value: 0.7})
	s.Personas.Active = "Support"
	s, _ = Reduce(s, InputChanged{Text: "  hello  "})

	next, effects := Reduce(s, SubmitKeyPressed{})
	sc, ok := findEffect[SendChat](effects)
	if !ok {
		t.Fatalf("effects = %v, want SendChat", effects)
	}
	want := transport.ChatRequest{Message: "hello", Model: DefaultModel, Persona: "Support", Temperature: 0.7}
	if sc.Request != want {
		t.Errorf("request = %+v, want %+v", sc.Request, want)
	}
	if !next.Chat.Busy || next.Chat.Focused || next.Chat.Input != "" {
		t.Errorf("chat = %+v, want busy, unfocused, empty input", next.Chat)
	}
	if len(next.Chat.Messages) != 1 || next.Chat.Messages[0] != (Message{Sender: SenderUser, Text: "hello"}) {
		t.Errorf("messages = %+v", next.Chat.Messages)
	}

	// Reduce must not have touched the previous state.
	if s.Chat.Busy || len(s.Chat.Messages) != 0 {
		t.Errorf("input state mutated: %+v", s.Chat)
	}
}

func TestSend_RejectedWhileBusy(t *testing.T) {
	s := New("", 0)
	s, _ = Reduce(s, SendRequested{Text: "first"})

	next, effects := Reduce(s, SendRequested{Text: "second"})
	if len(effects) != 0 {
		t.Errorf("effects = %v, want none while busy", effects)
	}
	if len(next.Chat.Messages) != 1 {
		t.Errorf("messages = %+v, want only the first", next.Chat.Messages)
	}
}

func TestChatSettled_ClearsBusyOnEveryPath(t *testing.T) {
	tests := []struct {
		name string
		ev   ChatSettled
		want string
	}{
		{"answer", ChatSettled{Reply: transport.Answer("Hi!")}, "Hi!"},
		{"backend error", ChatSettled{Reply: transport.Failure("empty message")}, "empty message"},
		{"transport failure", ChatSettled{Err: errors.New("connection refused")}, MsgGenericFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New("", 0)
			s, _ = Reduce(s, SendRequested{Text: "hello"})
			next, _ := Reduce(s, tt.ev)

			if next.Chat.Busy {
				t.Error("busy still set")
			}
			if !next.Chat.Focused {
				t.Error("input not refocused")
			}
			last := next.Chat.Messages[len(next.Chat.Messages)-1]
			if last.Sender != SenderAssistant || last.Text != tt.want {
				t.Errorf("last message = %+v, want assistant %q", last, tt.want)
			}
		})
	}
}

func TestSubmitKey_NewlineModifier(t *testing.T) {
	s := New("", 0)
	s, _ = Reduce(s, InputChanged{Text: "line one"})
	s, effects := Reduce(s, SubmitKeyPressed{Newline: true})
	if len(effects) != 0 {
		t.Errorf("effects = %v, want none", effects)
	}
	if s.Chat.Input != "line one\n" {
		t.Errorf("input = %q, want trailing newline", s.Chat.Input)
	}

	s, _ = Reduce(s, InputChanged{Text: s.Chat.Input + "line two"})
	_, effects = Reduce(s, SubmitKeyPressed{})
	sc, ok := findEffect[SendChat](effects)
	if !ok || sc.Request.Message != "line one\nline two" {
		t.Errorf("effects = %v, want multi-line send", effects)
	}
}

func TestTemperatureClamped(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-0.5, 0},
		{0.35, 0.35},
		{1.8, 1},
	}
	for _, tt := range tests {
		s, _ := Reduce(New("", 0), TemperatureChanged{Value: tt.in})
		if s.Chat.Temperature != tt.want {
			t.Errorf("temperature(%v) = %v, want %v", tt.in, s.Chat.Temperature, tt.want)
		}
	}
}

func TestClearConversation(t *testing.T) {
	s := New("", 0)
	s.Gate.Status = GateOpen
	s, _ = Reduce(s, SendRequested{Text: "hello"})
	s, _ = Reduce(s, ChatSettled{Reply: transport.Answer("hi")})

	s, effects := Reduce(s, ClearRequested{})
	if _, ok := findEffect[AskConfirmation](effects); !ok {
		t.Fatalf("effects = %v, want AskConfirmation", effects)
	}

	declined, effects := Reduce(s, ConfirmationAnswered{Yes: false})
	if len(effects) != 0 || len(declined.Chat.Messages) != 2 {
		t.Errorf("declined clear issued %v or dropped messages", effects)
	}

	s, effects = Reduce(s, ConfirmationAnswered{Yes: true})
	if _, ok := findEffect[ClearHistory](effects); !ok {
		t.Fatalf("effects = %v, want ClearHistory", effects)
	}
	if len(s.Chat.Messages) != 2 {
		t.Error("messages cleared before the backend confirmed")
	}

	s, _ = Reduce(s, HistoryCleared{})
	if len(s.Chat.Messages) != 0 {
		t.Errorf("messages = %+v, want none", s.Chat.Messages)
	}
}

func TestClearConversation_RequiresAdmin(t *testing.T) {
	_, effects := Reduce(New("", 0), ClearRequested{})
	n := notices(effects)
	if len(n) != 1 || n[0].Level != NoticeRefusal {
		t.Errorf("effects = %v, want one refusal", effects)
	}
}
