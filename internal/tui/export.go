package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kalambet/chatdesk/internal/session"
	"github.com/kalambet/chatdesk/internal/transcript"
)

// exportTranscript writes Markdown and HTML copies of msgs into dir and
// returns the Markdown path.
func exportTranscript(dir, title string, msgs []session.Message, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}
	base := filepath.Join(dir, "transcript-"+now.Format("20060102-150405"))

	if err := os.WriteFile(base+".md", []byte(transcript.Markdown(title, msgs)), 0o644); err != nil {
		return "", fmt.Errorf("writing markdown transcript: %w", err)
	}
	page, err := transcript.HTML(title, msgs)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(base+".html", []byte(page), 0o644); err != nil {
		return "", fmt.Errorf("writing html transcript: %w", err)
	}
	return base + ".md", nil
}
