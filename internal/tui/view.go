package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/kalambet/chatdesk/internal/session"
)

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n\n")

	switch m.state.Pane {
	case session.PanePersonas:
		b.WriteString(m.personasView())
	case session.PaneDocuments:
		b.WriteString(m.documentsView())
	default:
		b.WriteString(m.chatView())
	}
	b.WriteString("\n")

	if line := m.modalView(); line != "" {
		b.WriteString("\n" + line + "\n")
	}
	if m.notice != nil {
		b.WriteString("\n" + m.styles.Notice[m.notice.Level].Render(m.notice.Text) + "\n")
	}
	b.WriteString("\n" + m.help.ShortHelpView(m.helpKeys()))
	return b.String()
}

func (m Model) header() string {
	tabs := make([]string, 0, len(panes))
	for _, p := range panes {
		label := paneLabel(p)
		if p.Privileged() && !m.state.Gate.IsOpen() {
			label += " 🔒"
		}
		if p == m.state.Pane {
			tabs = append(tabs, m.styles.ActiveTab.Render(label))
		} else {
			tabs = append(tabs, m.styles.Tab.Render(label))
		}
	}
	title := m.styles.Title.Render(m.state.Title)
	persona := m.styles.Muted.Render("persona: " + m.state.Personas.Active)
	return lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", strings.Join(tabs, ""), "  ", persona)
}

func paneLabel(p session.Pane) string {
	switch p {
	case session.PanePersonas:
		return "Personas"
	case session.PaneDocuments:
		return "Documents"
	}
	return "Chat"
}

func (m Model) chatView() string {
	var b strings.Builder
	b.WriteString(m.transcript.View())
	b.WriteString("\n")
	if m.state.Chat.Busy {
		b.WriteString(m.styles.Muted.Render("Thinking…") + "\n")
	}
	b.WriteString(m.input.View())
	return b.String()
}

// renderTranscript renders the message list; assistant replies go through
// glamour when a renderer is available.
func (m Model) renderTranscript() string {
	if len(m.state.Chat.Messages) == 0 {
		return m.styles.Muted.Render("No messages yet.")
	}
	var b strings.Builder
	for _, msg := range m.state.Chat.Messages {
		if msg.Sender == session.SenderUser {
			b.WriteString(m.styles.User.Render("You") + "\n")
			b.WriteString(msg.Text + "\n\n")
			continue
		}
		b.WriteString(m.styles.Assistant.Render("Assistant") + "\n")
		text := msg.Text
		if m.renderer != nil {
			if out, err := m.renderer.Render(text); err == nil {
				text = strings.Trim(out, "\n")
			}
		}
		b.WriteString(text + "\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) personasView() string {
	p := m.state.Personas
	var b strings.Builder
	if p.Cache.Status == session.Loading {
		b.WriteString(m.styles.Muted.Render("Loading personas…") + "\n")
	}
	names := p.Names()
	for i, name := range names {
		marker := "  "
		if i == m.personaIndex {
			marker = "> "
		}
		line := name
		if name == p.Active {
			line += " ●"
		}
		if p.IsDraft(name) {
			line += " (draft)"
		}
		if i == m.personaIndex {
			line = m.styles.Selected.Render(line)
		}
		b.WriteString(marker + line + "\n")
	}
	if m.personaIndex < len(names) {
		instructions, _ := p.Instructions(names[m.personaIndex])
		if instructions == "" {
			instructions = "(no instructions)"
		}
		b.WriteString("\n" + m.styles.Border.Width(max(m.width-4, 20)).Render(instructions))
	}
	return b.String()
}

func (m Model) documentsView() string {
	c := m.state.Corpus
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", m.styles.Muted.Render(fmt.Sprintf(
		"filter: %s · sort: %s · chunk size: %d", c.Filter, c.Sort, c.ChunkSize)))
	if c.Cache.Status == session.Loading {
		b.WriteString(m.styles.Muted.Render("Loading documents…") + "\n")
	}
	if c.Uploading {
		b.WriteString(m.styles.Muted.Render("Uploading…") + "\n")
	}

	docs := c.View()
	if len(docs) == 0 {
		b.WriteString(m.styles.Muted.Render("No documents. Press u or drop files here.") + "\n")
	}
	for i, d := range docs {
		marker := "  "
		name := d.Name
		if i == m.docIndex {
			marker = "> "
			name = m.styles.Selected.Render(name)
		}
		meta := session.FormatIngestion(d.Ingestion)
		if meta == "" {
			meta = "stored verbatim"
		}
		fmt.Fprintf(&b, "%s%s  %s  %s\n", marker, name,
			m.styles.Muted.Render(d.UploadedAt.Local().Format("2006-01-02 15:04")),
			m.styles.Muted.Render(meta))
	}
	return b.String()
}

func (m Model) modalView() string {
	switch m.mode {
	case modeNone:
		return ""
	case modeConfirm:
		return m.styles.Title.Render(m.modalTitle) + " [y/n]"
	}
	return m.styles.Title.Render(m.modalTitle+":") + " " + m.prompt.View()
}

func (m Model) helpKeys() []key.Binding {
	switch m.mode {
	case modeNone:
	case modeConfirm:
		return []key.Binding{keys.Yes, keys.No}
	default:
		return []key.Binding{keys.Submit, keys.Cancel}
	}
	switch m.state.Pane {
	case session.PanePersonas:
		return keys.personasHelp()
	case session.PaneDocuments:
		return keys.docsHelp()
	}
	return keys.chatHelp()
}
