package main

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/chatdesk/internal/config"
	"github.com/kalambet/chatdesk/internal/session"
)

// --- send ---

var sendCmd = &cobra.Command{
	Use:   "send <message...>",
	Short: "Send one message and print the reply",
	Long: `Send one message and print the reply.

Examples:
  chatdesk send "How do I reset my password?"
  chatdesk send --persona Support --temperature 0.5 "Where is my order?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		persona, _ := cmd.Flags().GetString("persona")

		var (
			env *environment
			ctl *session.Controller
			err error
		)
		if persona != "" && persona != session.DefaultPersona {
			// Only saved personas can be selected, and listing them is an admin call.
			env, ctl, err = adminSession(cmd, session.PanePersonas)
			if err != nil {
				return err
			}
			ctl.Dispatch(ctx, session.PaneRequested{Pane: session.PaneChat})
		} else {
			env, err = loadEnvironment()
			if err != nil {
				return err
			}
			ctl = env.controller(nil)
		}

		var setup []session.Event
		if persona != "" {
			setup = append(setup, session.PersonaSelected{Name: persona})
		}
		if cmd.Flags().Changed("model") {
			model, _ := cmd.Flags().GetString("model")
			setup = append(setup, session.ModelChanged{Model: model})
		}
		if cmd.Flags().Changed("temperature") {
			t, _ := cmd.Flags().GetFloat64("temperature")
			setup = append(setup, session.TemperatureChanged{Value: t})
		}
		for _, ev := range setup {
			if err := reportNotices(ctl.Dispatch(ctx, ev)); err != nil {
				return err
			}
		}

		before := len(ctl.State().Chat.Messages)
		if err := reportNotices(ctl.Dispatch(ctx, session.SendRequested{Text: strings.Join(args, " ")})); err != nil {
			return err
		}
		msgs := ctl.State().Chat.Messages
		if len(msgs) <= before {
			return errors.New("message is empty")
		}
		reply := msgs[len(msgs)-1]
		if reply.Sender != session.SenderAssistant {
			return errors.New("no reply was produced")
		}
		if reply.Text == session.MsgGenericFailure {
			return errors.New(reply.Text)
		}

		fmt.Fprintln(cmd.OutOrStdout(), reply.Text)
		env.logger.Debug("chat turn complete", "persona", ctl.State().Personas.Active)
		return nil
	},
}

func init() {
	sendCmd.Flags().String("persona", "", "persona to answer as (default Default)")
	sendCmd.Flags().Float64("temperature", session.DefaultTemperature, "sampling temperature, clamped to [0, 1]")
	sendCmd.Flags().String("model", "", "model name forwarded to the backend")
}

// --- personas ---

var personasCmd = &cobra.Command{
	Use:   "personas",
	Short: "List and manage personas (admin)",
}

var personasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved personas",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, ctl, err := adminSession(cmd, session.PanePersonas)
		if err != nil {
			return err
		}

		p := ctl.State().Personas
		out := cmd.OutOrStdout()
		for _, name := range p.Names() {
			instructions, _ := p.Instructions(name)
			if instructions == "" {
				instructions = "(no instructions)"
			}
			fmt.Fprintf(out, "%-20s %s\n", colorize(colorBold, name), firstLine(instructions, 60))
		}
		return nil
	},
}

var personasSaveCmd = &cobra.Command{
	Use:   "save <name>",
	Short: "Create or update a persona",
	Long: `Create or update a persona.

Examples:
  chatdesk personas save Support --instructions "Answer briefly and politely."
  chatdesk personas save Legal --file ./legal-persona.md`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		instructions, _ := cmd.Flags().GetString("instructions")
		file, _ := cmd.Flags().GetString("file")
		if file != "" {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading instructions file: %w", err)
			}
			instructions = string(data)
		}

		_, ctl, err := adminSession(cmd, session.PanePersonas)
		if err != nil {
			return err
		}
		return reportNotices(ctl.Dispatch(cmd.Context(), session.PersonaSaveRequested{
			Name:         args[0],
			Instructions: instructions,
		}))
	},
}

var personasDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a persona",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, ctl, err := adminSession(cmd, session.PanePersonas)
		if err != nil {
			return err
		}
		notices := ctl.Dispatch(cmd.Context(), session.PersonaDeleteRequested{Name: args[0]})
		if len(notices) == 0 {
			printWarning("Cancelled")
			return nil
		}
		return reportNotices(notices)
	},
}

func init() {
	personasSaveCmd.Flags().String("instructions", "", "persona instructions")
	personasSaveCmd.Flags().String("file", "", "read instructions from a file")
	personasCmd.AddCommand(personasListCmd, personasSaveCmd, personasDeleteCmd)
}

// --- docs ---

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "List and manage reference documents (admin)",
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List uploaded documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, _ := cmd.Flags().GetString("filter")
		sortBy, _ := cmd.Flags().GetString("sort")
		key := session.SortKey(sortBy)
		if !slices.Contains([]session.SortKey{session.SortName, session.SortDate, session.SortType}, key) {
			return fmt.Errorf("invalid --sort %q: use name, date or type", sortBy)
		}

		_, ctl, err := adminSession(cmd, session.PaneDocuments)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		ctl.Dispatch(ctx, session.FilterChanged{Filter: filter})
		ctl.Dispatch(ctx, session.SortChanged{Sort: key})

		docs := ctl.State().Corpus.View()
		out := cmd.OutOrStdout()
		if len(docs) == 0 {
			fmt.Fprintln(out, "No documents.")
			return nil
		}
		for _, d := range docs {
			meta := session.FormatIngestion(d.Ingestion)
			if meta == "" {
				meta = "stored verbatim"
			}
			fmt.Fprintf(out, "%s  %-30s %s  %s\n", d.ID, colorize(colorBold, d.Name),
				d.UploadedAt.Local().Format("2006-01-02 15:04"), meta)
		}
		return nil
	},
}

var docsUploadCmd = &cobra.Command{
	Use:   "upload <paths...>",
	Short: "Upload documents",
	Long: `Upload documents. Text files and PDFs are chunked for retrieval;
other files are stored verbatim.

Examples:
  chatdesk docs upload ./faq.md ./handbook.pdf
  chatdesk docs upload --chunk-size 800 ./policies/*.txt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		chunkSize, _ := cmd.Flags().GetInt("chunk-size")

		_, ctl, err := adminSession(cmd, session.PaneDocuments)
		if err != nil {
			return err
		}
		if err := reportNotices(ctl.Dispatch(cmd.Context(), session.UploadRequested{
			Files:     session.FilesFromPaths(args),
			ChunkSize: chunkSize,
		})); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, d := range ctl.State().Corpus.LastUpload {
			meta := session.FormatIngestion(d.Ingestion)
			if meta == "" {
				meta = "stored verbatim"
			}
			fmt.Fprintf(out, "%s  %s  %s\n", d.ID, d.Name, meta)
		}
		return nil
	},
}

var docsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, ctl, err := adminSession(cmd, session.PaneDocuments)
		if err != nil {
			return err
		}
		notices := ctl.Dispatch(cmd.Context(), session.DocumentDeleteRequested{ID: args[0]})
		if len(notices) == 0 {
			printWarning("Cancelled")
			return nil
		}
		return reportNotices(notices)
	},
}

func init() {
	docsListCmd.Flags().String("filter", session.FilterAll, "extension filter, e.g. pdf")
	docsListCmd.Flags().String("sort", string(session.SortName), "sort by name, date or type")
	docsUploadCmd.Flags().Int("chunk-size", 0, "characters per chunk (default: stored preference)")
	docsCmd.AddCommand(docsListCmd, docsUploadCmd, docsDeleteCmd)
}

// --- clear ---

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the conversation history on the backend (admin)",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, ctl, err := adminSession(cmd, session.PanePersonas)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		ctl.Dispatch(ctx, session.PaneRequested{Pane: session.PaneChat})

		notices := ctl.Dispatch(ctx, session.ClearRequested{})
		if len(notices) == 0 {
			printWarning("Cancelled")
			return nil
		}
		return reportNotices(notices)
	},
}

// --- prefs ---

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Show or change display preferences for the current backend",
}

var prefsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show stored preferences",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "  %s %s\n", colorize(colorBold, "backend:"), env.client.BaseURL())
		fmt.Fprintf(out, "  %s %s\n", colorize(colorBold, "title:"), env.prefs.Title())
		fmt.Fprintf(out, "  %s %d\n", colorize(colorBold, "chunk-size:"), env.prefs.ChunkSize())
		return nil
	},
}

var prefsSetCmd = &cobra.Command{
	Use:   "set <title|chunk-size> <value>",
	Short: "Change a preference",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var ev session.Event
		switch args[0] {
		case "title":
			ev = session.TitleChanged{Title: args[1]}
		case "chunk-size", session.PrefChunkSize:
			n, err := strconv.Atoi(strings.TrimSpace(args[1]))
			if err != nil {
				n = 0
			}
			ev = session.ChunkSizeChanged{Size: n}
		default:
			return fmt.Errorf("unknown preference %q: use title or chunk-size", args[0])
		}

		env, err := loadEnvironment()
		if err != nil {
			return err
		}
		if err := reportNotices(env.controller(nil).Dispatch(cmd.Context(), ev)); err != nil {
			return err
		}
		printSuccess("Set %s = %s", args[0], args[1])
		return nil
	},
}

func init() {
	prefsCmd.AddCommand(prefsShowCmd, prefsSetCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value. Valid keys: " + strings.Join(config.ValidKeys(), ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd)
}

// firstLine truncates s to its first line and at most n runes.
func firstLine(s string, n int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i] + " …"
	}
	if r := []rune(s); len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return s
}
