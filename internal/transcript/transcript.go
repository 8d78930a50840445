// Package transcript renders a chat session for export.
package transcript

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/kalambet/chatdesk/internal/session"
)

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
)

func speaker(s session.Sender) string {
	if s == session.SenderUser {
		return "You"
	}
	return "Assistant"
}

// Markdown renders msgs as a Markdown document headed by title.
// Message bodies are blockquoted so their text cannot open a heading.
func Markdown(title string, msgs []session.Message) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n", strings.Join(strings.Fields(title), " "))
	for _, m := range msgs {
		fmt.Fprintf(&sb, "\n### %s\n\n%s\n", speaker(m.Sender), quote(strings.TrimSpace(m.Text)))
	}
	return sb.String()
}

func quote(text string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		if l == "" {
			lines[i] = ">"
		} else {
			lines[i] = "> " + l
		}
	}
	return strings.Join(lines, "\n")
}

// HTML renders msgs as a standalone HTML page. Raw HTML in messages is
// not passed through.
func HTML(title string, msgs []session.Message) (string, error) {
	var body bytes.Buffer
	if err := md.Convert([]byte(Markdown(title, msgs)), &body); err != nil {
		return "", fmt.Errorf("rendering transcript: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&sb, "<title>%s</title>\n", html.EscapeString(title))
	sb.WriteString("</head>\n<body>\n")
	sb.Write(body.Bytes())
	sb.WriteString("</body>\n</html>\n")
	return sb.String(), nil
}
