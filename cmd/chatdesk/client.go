package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kalambet/chatdesk/internal/config"
	"github.com/kalambet/chatdesk/internal/logging"
	"github.com/kalambet/chatdesk/internal/prefs"
	"github.com/kalambet/chatdesk/internal/session"
	"github.com/kalambet/chatdesk/internal/transport"
)

// environment is what every backend command needs.
type environment struct {
	cfg    config.Config
	client *transport.Client
	prefs  *prefs.Store
	logger *slog.Logger
}

var loadEnvironment = func() (*environment, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if backendURL != "" {
		cfg.Backend.URL = strings.TrimRight(backendURL, "/")
	}

	client, err := transport.New(cfg.Backend.URL)
	if err != nil {
		return nil, err
	}
	return &environment{
		cfg:    cfg,
		client: client,
		prefs:  prefs.Open(cfg.Storage.DataDir, cfg.Backend.URL),
		logger: logging.SetupStderr(cfg.Log.Level),
	}, nil
}

// initialState seeds a session from stored preferences and chat config.
func (e *environment) initialState() session.State {
	s := session.New(e.prefs.Title(), e.prefs.ChunkSize())
	if e.cfg.Chat.Model != "" {
		s.Chat.Model = e.cfg.Chat.Model
	}
	s.Chat.Temperature = session.ClampTemperature(e.cfg.Chat.Temperature)
	return s
}

func (e *environment) executor() *session.Executor {
	return session.NewExecutor(e.client, e.prefs, e.logger)
}

func (e *environment) controller(p session.Prompter) *session.Controller {
	return session.NewController(e.initialState(), e.executor(), p)
}

// cliPrompter answers confirmations from stdin (or --yes) and the admin
// challenge with a password resolved before the command runs.
type cliPrompter struct {
	in       io.Reader
	out      io.Writer
	yes      bool
	password string
}

func (p *cliPrompter) Confirm(_ context.Context, prompt string) (bool, error) {
	if p.yes {
		return true, nil
	}
	fmt.Fprintf(p.out, "%s [y/N] ", prompt)
	line, err := bufio.NewReader(p.in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("reading answer: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func (p *cliPrompter) Password(context.Context) (string, bool, error) {
	return p.password, p.password != "", nil
}

// resolvePassword takes the admin password from --password,
// CHATDESK_ADMIN_PASSWORD or a hidden terminal prompt, in that order.
func resolvePassword() (string, error) {
	if adminPassword != "" {
		return adminPassword, nil
	}
	if pw := os.Getenv("CHATDESK_ADMIN_PASSWORD"); pw != "" {
		return pw, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("admin password required: pass --password or set CHATDESK_ADMIN_PASSWORD")
	}
	fmt.Fprint(os.Stderr, "Admin password: ")
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	if len(pw) == 0 {
		return "", errors.New("admin password required")
	}
	return string(pw), nil
}

// adminSession starts a session and passes the admin gate by entering pane,
// which also refreshes the pane's data.
func adminSession(cmd *cobra.Command, pane session.Pane) (*environment, *session.Controller, error) {
	env, err := loadEnvironment()
	if err != nil {
		return nil, nil, err
	}
	password, err := resolvePassword()
	if err != nil {
		return nil, nil, err
	}

	ctl := env.controller(&cliPrompter{
		in:       cmd.InOrStdin(),
		out:      cmd.ErrOrStderr(),
		yes:      assumeYes,
		password: password,
	})
	notices := ctl.Dispatch(cmd.Context(), session.PaneRequested{Pane: pane})
	if err := noticeError(notices); err != nil {
		return nil, nil, err
	}
	if !ctl.State().Gate.IsOpen() {
		return nil, nil, errors.New(session.MsgAdminRequired)
	}
	return env, ctl, nil
}
