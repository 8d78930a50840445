package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/kalambet/chatdesk/internal/session"
)

var (
	colorRed    = color.New(color.FgRed)
	colorGreen  = color.New(color.FgGreen)
	colorYellow = color.New(color.FgYellow)
	colorCyan   = color.New(color.FgCyan)
	colorBold   = color.New(color.Bold)
)

func colorize(c *color.Color, text string) string {
	if noColor {
		return text
	}
	return c.Sprint(text)
}

func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorGreen, "✓ "+msg))
}

func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorRed, "✗ "+msg))
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorYellow, "⚠ "+msg))
}

func printStep(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorCyan, "→ "+msg))
}

// reportNotices prints success and info notices and returns the first
// refusal or failure as an error.
func reportNotices(notices []session.Notice) error {
	for _, n := range notices {
		switch n.Level {
		case session.NoticeSuccess:
			printSuccess("%s", n.Text)
		case session.NoticeInfo:
			printStep("%s", n.Text)
		}
	}
	return noticeError(notices)
}

func noticeError(notices []session.Notice) error {
	for _, n := range notices {
		if n.Level == session.NoticeRefusal || n.Level == session.NoticeFailure {
			return errors.New(n.Text)
		}
	}
	return nil
}
