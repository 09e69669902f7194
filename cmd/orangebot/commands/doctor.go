package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/54b3r/orangebot-go/internal/audit"
	"github.com/54b3r/orangebot-go/internal/catalog"
	"github.com/54b3r/orangebot-go/internal/config"
	"github.com/54b3r/orangebot-go/internal/customer"
	"github.com/54b3r/orangebot-go/internal/embedder"
	"github.com/54b3r/orangebot-go/internal/logging"
	"github.com/54b3r/orangebot-go/internal/prompts"
	"github.com/54b3r/orangebot-go/internal/provider"
	"github.com/54b3r/orangebot-go/internal/server"
)

// doctorProbeTimeout bounds each reachability check.
const doctorProbeTimeout = 10 * time.Second

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// check is one line of the doctor report.
type check struct {
	name   string
	detail string
	err    error
}

// NewDoctorCmd constructs the `orangebot doctor` command, which validates
// the configuration and probes every dependency the assistant needs.
func NewDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, data files and dependencies",
		Long: `Validate the model and embedding configuration, load the customer directory,
bundle catalog and prompt templates, and probe the model backend, vector
store, history database and session store.

Exits non-zero when any check fails.

Examples:
  orangebot doctor
  MODEL_PROVIDER=openai orangebot doctor`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := logging.Discard()

			checks := runDoctor(ctx, log)
			failed := printChecks(cmd.OutOrStdout(), checks)
			if failed > 0 {
				return fmt.Errorf("doctor: %d of %d checks failed", failed, len(checks))
			}
			return nil
		},
	}
	return cmd
}

// runDoctor performs every check in order. Later checks still run after a
// failure so the report is complete.
func runDoctor(ctx context.Context, log *slog.Logger) []check {
	var checks []check
	add := func(name, detail string, err error) {
		checks = append(checks, check{name: name, detail: detail, err: err})
	}
	probe := func(p server.Pinger) {
		pctx, cancel := context.WithTimeout(ctx, doctorProbeTimeout)
		defer cancel()
		add("reach "+p.Name(), "", p.Ping(pctx))
	}

	add("config file", audit.SanitiseConfigPath(loadedConfigPath), nil)

	providerCfg := provider.ConfigFromEnv(provider.RoleChat)
	add("model config", fmt.Sprintf("%s / %s", providerCfg.Backend, providerCfg.ModelName()), providerCfg.Validate())
	add("embedding config", embedder.Backend(), embedder.Validate(log))

	_, err := prompts.Load(config.String(config.KeyPromptsDir, ""))
	add("prompt templates", config.String(config.KeyPromptsDir, "embedded"), err)

	customersPath := config.String(config.KeyCustomersCSV, config.DefaultCustomersCSV)
	dir := customer.Load(customersPath, log)
	add("customer directory", fmt.Sprintf("%s (%d customers)", customersPath, dir.Len()), emptyErr(dir.Len(), "no customers loaded"))

	catalogPath := config.String(config.KeyCatalogCSV, config.DefaultCatalogCSV)
	bundles := catalog.Load(catalogPath, log)
	add("bundle catalog", fmt.Sprintf("%s (%d bundles)", catalogPath, bundles.Len()), emptyErr(bundles.Len(), "no bundles loaded"))

	if chatModel, err := provider.New(ctx, &providerCfg); err != nil {
		add("reach model", "", err)
	} else {
		probe(server.NewLLMPinger(chatModel, provider.NewHealthCheck(&providerCfg), "model"))
	}

	if vectors, err := openVectorStore(ctx, log); err != nil {
		add("reach vector_store", "", err)
	} else {
		probe(server.NewStorePinger(vectors, "vector_store"))
		_ = vectors.Close()
	}

	if history, err := openHistory(log); err != nil {
		add("reach history", "", err)
	} else {
		probe(server.PingFunc("history", history.Ping))
		_ = history.Close()
	}

	if sessions, err := openSessions(ctx, log); err != nil {
		add("reach sessions", "", err)
	} else {
		probe(server.PingFunc("sessions", sessions.Ping))
		_ = sessions.Close()
	}

	return checks
}

// printChecks renders the report and returns the number of failures.
func printChecks(w io.Writer, checks []check) int {
	failed := 0
	for _, c := range checks {
		mark := okStyle.Render("ok  ")
		detail := c.detail
		if c.err != nil {
			failed++
			mark = failStyle.Render("FAIL")
			detail = c.err.Error()
		}
		fmt.Fprintf(w, "%s %-20s %s\n", mark, c.name, dimStyle.Render(detail))
	}
	return failed
}

func emptyErr(n int, msg string) error {
	if n == 0 {
		return fmt.Errorf("%s", msg)
	}
	return nil
}
