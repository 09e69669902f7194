package commands

import (
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/54b3r/orangebot-go/internal/audit"
	"github.com/54b3r/orangebot-go/internal/config"
	"github.com/54b3r/orangebot-go/internal/logging"
	"github.com/54b3r/orangebot-go/internal/tracing"
	"github.com/54b3r/orangebot-go/internal/tui"
)

// NewChatCmd constructs the `orangebot chat` command, which runs the
// terminal chat client against the in-process assistant.
func NewChatCmd() *cobra.Command {
	var logFile string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant in the terminal",
		Long: `Sign in with a customer phone number and password, then chat with the
assistant. The terminal belongs to the chat view, so logs are written to a
file (LOG_FILE, default: orangebot.log).

Commands inside the chat:
  /shortcuts   list popular questions
  /ask N       ask popular question N
  /clear       clear the conversation
  /logout      sign out
  /quit        exit

Examples:
  orangebot chat
  orangebot chat --log-file /tmp/orangebot.log`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("log-file") {
				logFile = config.String(config.KeyLogFile, config.DefaultLogFile)
			}
			log, closeLog, err := logging.OpenFile(logFile)
			if err != nil {
				return fmt.Errorf("chat: %w", err)
			}
			defer func() { _ = closeLog() }()
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			ctx := logging.WithLogger(cmd.Context(), log)

			flush, _ := tracing.Install()
			defer flush()

			a, err := newApp(ctx, log)
			defer a.Close()
			if err != nil {
				return fmt.Errorf("chat: %w", err)
			}

			p := tea.NewProgram(tui.New(ctx, a.conversation, a.customers, log), tea.WithAltScreen(), tea.WithContext(ctx))
			if _, err := p.Run(); err != nil {
				log.Error("chat: terminal UI failed", slog.Any("error", err))
				return fmt.Errorf("chat: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&logFile, "log-file", config.DefaultLogFile, "File that receives log output")

	return cmd
}
