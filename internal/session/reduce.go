package session

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/kalambet/chatdesk/internal/prefs"
)

// User-visible notice texts.
const (
	MsgGenericFailure  = "Sorry, something went wrong. Please try again."
	MsgAdminRequired   = "Admin access is required for this action."
	MsgWrongPassword   = "Wrong password."
	MsgAdminGranted    = "Admin access granted."
	MsgChooseFile      = "Choose a file first"
	MsgUploadInFlight  = "An upload is already in progress."
	MsgDefaultReserved = "The Default persona cannot be deleted."
	MsgPersonaName     = "Persona name is required."
	MsgChunkSize       = "Chunk size must be a positive whole number."
	MsgTitleEmpty      = "Title cannot be empty."
)

// PrefTitle and PrefChunkSize are the persisted preference keys.
const (
	PrefTitle     = prefs.KeyTitle
	PrefChunkSize = prefs.KeyChunkSize
)

// Reduce applies ev to s and returns the next state and the effects to run.
// It never mutates s.
func Reduce(s State, ev Event) (State, []Effect) {
	s = s.Clone()
	switch ev := ev.(type) {
	case InputChanged, SubmitKeyPressed, SendRequested, ClearRequested,
		ChatSettled, HistoryCleared, TemperatureChanged, ModelChanged:
		return reduceChat(s, ev)
	case PersonaSelected, PersonaDrafted, PersonaSaveRequested, PersonaDeleteRequested,
		PersonasRefreshRequested, PersonasLoaded, PersonaSaved, PersonaDeleted:
		return reducePersonas(s, ev)
	case UploadRequested, FilesDropped, DocumentDeleteRequested, DocumentsRefreshRequested,
		FilterChanged, SortChanged, DocumentsLoaded, DocumentsUploaded, DocumentDeleted:
		return reduceCorpus(s, ev)
	case PaneRequested:
		return enterPane(s, ev.Pane)
	case PasswordSubmitted:
		if s.Gate.Status != GateChallenging || s.Gate.Verifying {
			return s, nil
		}
		s.Gate.Verifying = true
		return s, []Effect{Login{Password: ev.Password}}
	case PasswordCancelled:
		if s.Gate.Status == GateChallenging && !s.Gate.Verifying {
			s.Gate = Gate{Status: GateClosed}
		}
		return s, nil
	case LoginSettled:
		return settleLogin(s, ev)
	case ConfirmationAnswered:
		return answerConfirmation(s, ev.Yes)
	case TitleChanged:
		title := strings.TrimSpace(ev.Title)
		if title == "" {
			return s, []Effect{refuse(MsgTitleEmpty)}
		}
		s.Title = title
		return s, []Effect{PersistPreference{Key: PrefTitle, Value: title}}
	case ChunkSizeChanged:
		if ev.Size <= 0 {
			return s, []Effect{refuse(MsgChunkSize)}
		}
		s.Corpus.ChunkSize = ev.Size
		return s, []Effect{PersistPreference{Key: PrefChunkSize, Value: strconv.Itoa(ev.Size)}}
	case PreferenceSaved:
		if ev.Err != nil {
			return s, []Effect{fail("Could not save the " + ev.Key + " preference.")}
		}
		return s, nil
	case DarkModeToggled:
		s.DarkMode = !s.DarkMode
		return s, nil
	}
	return s, nil
}

// enterPane routes to p, challenging for admin access first when p is
// privileged and the gate is not open.
func enterPane(s State, p Pane) (State, []Effect) {
	switch {
	case p == PaneChat:
		s.Pane = PaneChat
		s.Chat.Focused = !s.Chat.Busy
		return s, nil
	case !p.Privileged():
		return s, nil
	case s.Gate.IsOpen():
		s.Pane = p
		return refreshPane(s, p)
	case s.Gate.Status == GateChallenging:
		s.Gate.Pending = p
		return s, nil
	default:
		s.Gate = Gate{Status: GateChallenging, Pending: p}
		return s, []Effect{AskPassword{}}
	}
}

func refreshPane(s State, p Pane) (State, []Effect) {
	switch p {
	case PanePersonas:
		return fetchPersonas(s)
	case PaneDocuments:
		return fetchDocuments(s)
	}
	return s, nil
}

// settleLogin opens the gate only on 204 No Content.
func settleLogin(s State, ev LoginSettled) (State, []Effect) {
	if s.Gate.Status != GateChallenging {
		return s, nil
	}
	pending := s.Gate.Pending
	if ev.Err != nil {
		s.Gate = Gate{Status: GateClosed}
		return s, []Effect{fail(MsgGenericFailure)}
	}
	if ev.Status != http.StatusNoContent {
		s.Gate = Gate{Status: GateClosed}
		return s, []Effect{refuse(MsgWrongPassword)}
	}
	s.Gate = Gate{Status: GateOpen}
	effects := []Effect{succeed(MsgAdminGranted)}
	if pending.Privileged() {
		s.Pane = pending
		var more []Effect
		s, more = refreshPane(s, pending)
		effects = append(effects, more...)
	}
	return s, effects
}

// requireAdmin returns a refusal when the gate is not open.
func requireAdmin(s State) []Effect {
	if s.Gate.IsOpen() {
		return nil
	}
	return []Effect{refuse(MsgAdminRequired)}
}

// confirm replaces any unanswered confirmation with c.
func confirm(s State, c Confirmation) (State, []Effect) {
	s.Confirm = &c
	return s, []Effect{AskConfirmation{Prompt: c.Prompt}}
}

func answerConfirmation(s State, yes bool) (State, []Effect) {
	c := s.Confirm
	if c == nil {
		return s, nil
	}
	s.Confirm = nil
	if !yes {
		return s, nil
	}
	switch c.Kind {
	case ConfirmDeletePersona:
		return s, []Effect{DeletePersona{Name: c.Target}}
	case ConfirmDeleteDocument:
		return s, []Effect{DeleteDocument{ID: c.Target}}
	case ConfirmClearHistory:
		return s, []Effect{ClearHistory{}}
	}
	return s, nil
}
