// Package commands defines all Cobra CLI commands for the orangebot binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/54b3r/orangebot-go/internal/audit"
	"github.com/54b3r/orangebot-go/internal/config"
	"github.com/54b3r/orangebot-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "orangebot",
		Short: "OrangeBot: customer-service assistant for Orange Egypt",
		Long: `OrangeBot answers customer questions about Orange Egypt mobile and home
internet bundles, devices, roaming and services. Answers are grounded in a
knowledge base held in a vector store and, for logged-in customers, in their
own plan, usage and bill.

Model provider is selected via the MODEL_PROVIDER environment variable,
a .env file or a YAML config file (~/.orangebot/config.yaml).
See 'orangebot --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			if err := config.LoadDotEnv(log); err != nil {
				return err
			}

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// The chat command owns the terminal; it audits to its log file.
			if cmd.Name() != "chat" {
				audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.orangebot/config.yaml)")

	root.AddCommand(
		NewServeCmd(),
		NewChatCmd(),
		NewAskCmd(),
		NewIngestCmd(),
		NewDoctorCmd(),
		NewVersionCmd(),
	)

	return root
}
